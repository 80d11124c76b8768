package engine

import (
	"github.com/Carmen-Shannon/oxy-ivy/engine/profiler"
)

// ModuleBuilderOption is a functional option for configuring a Module.
// Use the With* functions to create options that are applied directly to the module instance.
type ModuleBuilderOption func(*module)

// WithProfiling enables or disables dispatch statistics output.
//
// Parameters:
//   - enabled: if true, dispatch statistics are logged at the profiler interval
//
// Returns:
//   - ModuleBuilderOption: option function to apply
func WithProfiling(enabled bool) ModuleBuilderOption {
	return func(m *module) {
		m.profilingEnabled = enabled
	}
}

// WithProfiler sets a custom configured profiler and enables profiling.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - ModuleBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) ModuleBuilderOption {
	return func(m *module) {
		m.profiler = p
		m.profilingEnabled = p != nil
	}
}

// WithUIRegistrar sets the host UI that receives the settings section of the selected record.
//
// Parameters:
//   - ui: the registrar
//
// Returns:
//   - ModuleBuilderOption: option function to apply
func WithUIRegistrar(ui UIRegistrar) ModuleBuilderOption {
	return func(m *module) {
		m.ui = ui
	}
}
