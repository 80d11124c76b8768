// Package engine is the ivy render module: it owns the execution graph, the entry records and the
// bindless tables, and serializes frame execution against content notifications and edits.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-ivy/common"
	"github.com/Carmen-Shannon/oxy-ivy/engine/bindless"
	"github.com/Carmen-Shannon/oxy-ivy/engine/config"
	"github.com/Carmen-Shannon/oxy-ivy/engine/content"
	"github.com/Carmen-Shannon/oxy-ivy/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-ivy/engine/profiler"
	"github.com/Carmen-Shannon/oxy-ivy/engine/records"
	"github.com/Carmen-Shannon/oxy-ivy/engine/renderer"
	"github.com/Carmen-Shannon/oxy-ivy/engine/renderer/parameter_set"
	"github.com/Carmen-Shannon/oxy-ivy/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-ivy/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-ivy/engine/workgraph"
	"github.com/cogentcore/webgpu/wgpu"
)

// BindingsInclude is the include name shaders use to pull in the binding constants and info types.
const BindingsInclude = "bindings"

// maxInitAttempts bounds the rebuilds Init makes when records are added while it compiles.
const maxInitAttempts = 3

var (
	// ErrNotInitialized is returned by Execute before Init succeeds.
	ErrNotInitialized = errors.New("engine: module is not initialized")
	// ErrRecordLimit is returned when an added record would exceed the graph's input record bound.
	ErrRecordLimit = errors.New("engine: entry record limit reached")
)

// UIRegistrar receives the settings section of the selected record. The host renders it.
type UIRegistrar interface {
	RegisterSection(section records.UISection)
	UnregisterSection(section records.UISection)
}

// module implements the Module interface.
// One mutex guards every piece of mutable state; no method holds it while waiting on the GPU.
type module struct {
	mu sync.Mutex

	device   renderer.Device
	compiler shader.Compiler
	cfg      *config.Config

	params       parameter_set.ParameterSet
	tables       bindless.Manager
	store        records.Store
	program      *workgraph.Program
	orchestrator dispatch.Orchestrator

	ui        UIRegistrar
	section   records.UISection
	sectionOn bool

	profiler         *profiler.Profiler
	profilingEnabled bool

	maxRecords int
	fatal      error
}

// Module is the ivy render module.
// Every method is safe for concurrent use.
type Module interface {
	// Init builds the execution graph against the formats of the host's G-buffer and readies the
	// dispatch path.
	//
	// Parameters:
	//   - ctx: cancels shader compilation
	//   - targets: the G-buffer the mesh nodes draw into; only formats are read
	//
	// Returns:
	//   - error: a *workgraph.CapabilityError, *workgraph.CompileError or *workgraph.ProgramError
	Init(ctx context.Context, targets dispatch.GBuffer) error

	// Execute refreshes the settings section if the selection changed and records one dispatch.
	//
	// Parameters:
	//   - frame: the host's per-frame inputs
	//
	// Returns:
	//   - error: ErrNotInitialized, or the orchestrator's error; after a *dispatch.FatalError every
	//     later call returns the same error without recording
	Execute(frame dispatch.Frame) error

	// OnContentLoaded registers a content block's materials and meshes in the bindless tables.
	//
	// Parameters:
	//   - block: the loaded block
	//
	// Returns:
	//   - error: a rollback error, or joined *bindless.IndexFormatError values for surfaces loaded
	//     with an invalid index type
	OnContentLoaded(block content.Block) error

	// OnContentUnloaded releases the texture references a block added.
	//
	// Parameters:
	//   - block: the unloaded block
	OnContentUnloaded(block content.Block)

	// ApplyEdit applies one record edit.
	//
	// Parameters:
	//   - edit: the edit
	//
	// Returns:
	//   - error: ErrRecordLimit, or a records validation error
	ApplyEdit(edit records.Edit) error

	// Records returns copies of the current branch and area records.
	Records() ([]records.BranchRecord, []records.AreaRecord)

	// Selection returns the selected branch and area, records.NoSelection when none.
	Selection() (branch, area int)

	// Program returns the built graph, or nil before Init.
	Program() *workgraph.Program

	// Profiler returns the dispatch profiler, or nil when profiling is disabled.
	Profiler() *profiler.Profiler

	// Release frees the graph, the bindless tables and every device object the module created.
	Release()
}

var _ Module = &module{}
var _ dispatch.ArchetypeSource = &module{}

// NewModule creates a Module. The records and archetype conventions come from cfg.
//
// Parameters:
//   - device: the device the module creates objects on
//   - compiler: compiles the shader modules; see NewShaderCompiler
//   - cfg: the configuration, or nil for config.Default()
//   - options: ModuleBuilderOption values
//
// Returns:
//   - Module: the module, ready for content notifications; call Init before Execute
func NewModule(device renderer.Device, compiler shader.Compiler, cfg *config.Config, options ...ModuleBuilderOption) Module {
	if device == nil || compiler == nil {
		panic("engine: device and compiler cannot be nil")
	}
	if cfg == nil {
		cfg = config.Default()
	}
	m := &module{
		device:   device,
		compiler: compiler,
		cfg:      cfg,
		params: parameter_set.NewParameterSet(
			parameter_set.WithLabel("IvyParameterSet"),
			parameter_set.WithLayout(bindless.Layout()),
		),
		store: records.NewStore(cfg.StoreOptions()...),
	}
	m.tables = bindless.NewManager(device, m.params, bindless.WithArchetypeMeshes(cfg.Archetypes.Stem, cfg.Archetypes.Leaf))
	for _, opt := range options {
		opt(m)
	}
	if m.profilingEnabled && m.profiler == nil {
		m.profiler = profiler.NewProfiler()
	}
	return m
}

// NewShaderCompiler returns the naga compiler with the bindings include registered.
//
// Parameters:
//   - fsys: the file system holding the .wgsl sources
//
// Returns:
//   - shader.Compiler: the compiler
func NewShaderCompiler(fsys fs.FS) shader.Compiler {
	return shader.NewNagaCompiler(fsys, shader.WithInclude(BindingsInclude, bindless.ShaderInclude()))
}

// graphOptions declares the generation libraries and the stem and leaf mesh nodes.
func graphOptions(cfg *config.Config, targets dispatch.GBuffer, maxRecords int) []workgraph.BuilderOption {
	colors := make([]wgpu.TextureFormat, 0, 4)
	for _, t := range targets.Colors() {
		colors = append(colors, t.Format())
	}
	return []workgraph.BuilderOption{
		workgraph.WithProgramName(cfg.Graph.ProgramName),
		workgraph.WithRootSignature(bindless.Layout()),
		workgraph.WithGraphicsState(pipeline.NewGraphicsState(
			pipeline.WithColorFormats(colors...),
			pipeline.WithDepthFormat(targets.Depth.Format()),
			pipeline.WithFrontFace(wgpu.FrontFaceCCW),
		)),
		workgraph.WithShaderLibrary("area"),
		workgraph.WithShaderLibrary("ivy"),
		workgraph.WithShaderLibrary("ivystemrenderer"),
		workgraph.WithPixelShader("ivystemrenderer", "PixelShader", "IvyStemPixelShader"),
		workgraph.WithMeshNode("IvyStemMeshShader", "IvyStemPixelShader", wgpu.CullModeBack),
		workgraph.WithShaderLibrary("ivyleafrenderer"),
		workgraph.WithPixelShader("ivyleafrenderer", "PixelShader", "IvyLeafPixelShader"),
		workgraph.WithMeshNode("IvyLeafMeshShader", "IvyLeafPixelShader", wgpu.CullModeBack),
		workgraph.WithEntryPoints(dispatch.DefaultBranchEntryPoint, dispatch.DefaultAreaEntryPoint),
		workgraph.WithMaxInputRecords(uint32(maxRecords)),
		workgraph.WithCompileWorkers(cfg.Graph.CompileWorkers),
	}
}

func (m *module) Init(ctx context.Context, targets dispatch.GBuffer) error {
	if targets.Depth == nil || targets.Albedo == nil || targets.Normal == nil || targets.AORoughnessMetal == nil || targets.Motion == nil {
		return fmt.Errorf("engine: init: %w", dispatch.ErrIncompleteFrame)
	}

	var (
		program    *workgraph.Program
		maxRecords int
	)
	for attempt := 0; ; attempt++ {
		m.mu.Lock()
		maxRecords = max(int(m.cfg.Graph.MaxInputRecords), m.store.BranchCount()+m.store.AreaCount(), 1)
		m.mu.Unlock()

		// compilation runs unlocked so content notifications are not held up by it
		built, err := workgraph.NewBuilder(graphOptions(m.cfg, targets, maxRecords)...).Build(ctx, m.device, m.compiler)
		if err != nil {
			return err
		}

		// on success the lock stays held until the program is swapped in
		m.mu.Lock()
		count := m.store.BranchCount() + m.store.AreaCount()
		if count <= maxRecords {
			program = built
			break
		}
		m.mu.Unlock()
		built.Release()
		if attempt+1 >= maxInitAttempts {
			return fmt.Errorf("engine: init: %w: %d records added during the build, bound %d", ErrRecordLimit, count, maxRecords)
		}
		common.ComponentLogger("engine").Debug("records outgrew the graph during the build, rebuilding",
			slog.Int("records", count),
			slog.Int("max_records", maxRecords),
		)
	}

	defer m.mu.Unlock()

	var opts []dispatch.OrchestratorOption
	if m.profiler != nil {
		opts = append(opts, dispatch.WithProfiler(m.profiler))
	}
	if m.program != nil {
		m.program.Release()
	}
	m.program = program
	m.maxRecords = maxRecords
	m.fatal = nil
	m.orchestrator = dispatch.NewOrchestrator(m.device, program, m.params, m.store, m, opts...)

	common.ComponentLogger("engine").Info("ivy module ready",
		slog.Int("branches", m.store.BranchCount()),
		slog.Int("areas", m.store.AreaCount()),
		slog.Int("max_records", maxRecords),
	)
	return nil
}

func (m *module) Execute(frame dispatch.Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fatal != nil {
		return m.fatal
	}
	if m.orchestrator == nil {
		return ErrNotInitialized
	}
	m.refreshUI()

	err := m.orchestrator.Execute(frame)
	var fatal *dispatch.FatalError
	if errors.As(err, &fatal) {
		m.fatal = err
		common.ComponentLogger("engine").Error("execution graph commands unavailable", slog.Any("err", err))
	}
	return err
}

// refreshUI swaps the registered settings section after a selection change.
func (m *module) refreshUI() {
	if !m.store.TakeUIRefresh() || m.ui == nil {
		return
	}
	if m.sectionOn {
		m.ui.UnregisterSection(m.section)
		m.sectionOn = false
	}
	if s, ok := m.store.SettingsSection(); ok {
		m.ui.RegisterSection(s)
		m.section, m.sectionOn = s, true
	}
}

func (m *module) OnContentLoaded(block content.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tables.OnContentLoaded(block)
}

func (m *module) OnContentUnloaded(block content.Block) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables.OnContentUnloaded(block)
}

func (m *module) ApplyEdit(edit records.Edit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if edit.Op == records.EditAdd && m.maxRecords > 0 && m.store.BranchCount()+m.store.AreaCount() >= m.maxRecords {
		return fmt.Errorf("%w: %d", ErrRecordLimit, m.maxRecords)
	}
	return m.store.Apply(edit)
}

func (m *module) Records() ([]records.BranchRecord, []records.AreaRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Branches(), m.store.Areas()
}

func (m *module) Selection() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Selection()
}

func (m *module) Program() *workgraph.Program {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.program
}

func (m *module) Profiler() *profiler.Profiler {
	return m.profiler
}

// ArchetypeIndices is called by the orchestrator with the lock already held.
func (m *module) ArchetypeIndices() (int32, int32) {
	return m.tables.ArchetypeIndices()
}

func (m *module) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.program != nil {
		m.program.Release()
		m.program = nil
	}
	m.orchestrator = nil
	m.tables.Release()
	m.params.Release()
}
