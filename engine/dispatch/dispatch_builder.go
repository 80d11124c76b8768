package dispatch

import "github.com/Carmen-Shannon/oxy-ivy/engine/profiler"

// OrchestratorOption is a functional option applied to an Orchestrator during construction via NewOrchestrator.
type OrchestratorOption func(*orchestrator)

// WithProfiler ticks p once per dispatch with the number of records supplied.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - OrchestratorOption: a function that sets the profiler
func WithProfiler(p *profiler.Profiler) OrchestratorOption {
	return func(o *orchestrator) {
		o.profiler = p
	}
}

// WithEntryPointNames sets the entry points branch and area records are supplied to.
//
// Parameters:
//   - branch: the branch entry point name
//   - area: the area entry point name
//
// Returns:
//   - OrchestratorOption: a function that sets the entry point names
func WithEntryPointNames(branch, area string) OrchestratorOption {
	return func(o *orchestrator) {
		o.branchEntry = branch
		o.areaEntry = area
	}
}

// WithMarker sets the profiling marker name.
func WithMarker(name string) OrchestratorOption {
	return func(o *orchestrator) {
		o.marker = name
	}
}
