package workgraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-ivy/common"
	"github.com/Carmen-Shannon/oxy-ivy/engine/renderer"
	"github.com/Carmen-Shannon/oxy-ivy/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-ivy/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// RequiredTier is the execution graph tier mesh nodes need.
const RequiredTier = renderer.WorkGraphsTier1_1

// DefaultProgramName is the program name used when none is configured.
const DefaultProgramName = "WorkGraph"

// MeshNode declares one graphics node: a generation export, an optional pixel export and the cull
// mode its rasterizer uses.
type MeshNode struct {
	MeshExport  string
	PixelExport string
	CullMode    wgpu.CullMode
}

// builder is the implementation of the Builder interface.
type builder struct {
	programName     string
	modules         []shader.Module
	nodes           []MeshNode
	graphicsState   pipeline.GraphicsState
	rootSignature   renderer.RootSignatureDesc
	entryPoints     []string
	maxInputRecords uint32
	compileWorkers  int
	pool            worker.DynamicWorkerPool
}

// compileQueueSize bounds the task queue of the shared compile pools.
const compileQueueSize = 64

var (
	compilePoolsMu sync.Mutex
	compilePools   = make(map[int]worker.DynamicWorkerPool)
)

// compilePool returns the long-lived pool shared by every builder compiling with n workers.
// Pool workers live for the rest of the process, so a pool is never stopped.
func compilePool(n int) worker.DynamicWorkerPool {
	compilePoolsMu.Lock()
	defer compilePoolsMu.Unlock()
	p, ok := compilePools[n]
	if !ok {
		p = worker.NewDynamicWorkerPool(n, compileQueueSize, 1*time.Second)
		compilePools[n] = p
	}
	return p
}

// Builder assembles an execution graph program from shader modules and node declarations.
type Builder interface {
	// Build runs the full build: capability check, parallel compilation, program assembly, state
	// object creation, backing memory allocation and entry point resolution. Every compiled blob
	// is released before Build returns, on success or failure. There is no partial result.
	//
	// Parameters:
	//   - ctx: cancels compilation between modules
	//   - device: the device to build on
	//   - compiler: the shader compiler
	//
	// Returns:
	//   - *Program: the built program
	//   - error: a *CapabilityError, *CompileError or *ProgramError
	Build(ctx context.Context, device renderer.Device, compiler shader.Compiler) (*Program, error)

	// Modules returns the declared shader modules in declaration order.
	Modules() []shader.Module

	// Nodes returns the declared mesh nodes in declaration order.
	Nodes() []MeshNode
}

var _ Builder = &builder{}

// NewBuilder creates a Builder.
//
// Parameters:
//   - options: BuilderOption values declaring modules, nodes and state
//
// Returns:
//   - Builder: the builder
func NewBuilder(options ...BuilderOption) Builder {
	b := &builder{
		programName:     DefaultProgramName,
		graphicsState:   pipeline.NewGraphicsState(),
		maxInputRecords: 1,
		compileWorkers:  4,
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

func (b *builder) Modules() []shader.Module {
	return append([]shader.Module(nil), b.modules...)
}

func (b *builder) Nodes() []MeshNode {
	return append([]MeshNode(nil), b.nodes...)
}

func (b *builder) Build(ctx context.Context, device renderer.Device, compiler shader.Compiler) (*Program, error) {
	if device == nil || compiler == nil {
		panic("workgraph: device and compiler cannot be nil")
	}
	log := common.ComponentLogger("workgraph")

	tier, err := device.WorkGraphsTier()
	if err != nil {
		return nil, &CapabilityError{Required: RequiredTier, Reported: renderer.WorkGraphsNotSupported, Err: err}
	}
	if tier < RequiredTier {
		return nil, &CapabilityError{Required: RequiredTier, Reported: tier}
	}

	if err := b.validate(); err != nil {
		return nil, &ProgramError{Step: "validate", Err: err}
	}

	blobs, err := b.compile(ctx, compiler)
	defer func() {
		for _, blob := range blobs {
			if blob != nil {
				blob.Release()
			}
		}
	}()
	if err != nil {
		return nil, err
	}

	desc, err := b.stateObjectDesc(blobs)
	if err != nil {
		return nil, &ProgramError{Step: "resolve exports", Err: err}
	}

	so, err := device.CreateStateObject(desc)
	if err != nil {
		return nil, &ProgramError{Step: "create state object", Err: err}
	}
	p, err := b.finalize(device, so)
	if err != nil {
		so.Release()
		return nil, err
	}

	log.Info("graph built",
		slog.String("program", p.name),
		slog.Int("modules", len(b.modules)),
		slog.Int("nodes", len(b.nodes)),
		slog.Uint64("backing_memory", p.memory.Size()),
	)
	return p, nil
}

// validate checks the declarations are consistent before anything is compiled.
func (b *builder) validate() error {
	if err := b.graphicsState.Validate(); err != nil {
		return err
	}
	if len(b.entryPoints) == 0 {
		return errors.New("no entry points declared")
	}
	seen := make(map[string]bool, len(b.entryPoints))
	for _, e := range b.entryPoints {
		if seen[e] {
			return fmt.Errorf("entry point %q declared twice", e)
		}
		seen[e] = true
	}
	pixels := make(map[string]bool)
	hasLibrary := false
	for _, m := range b.modules {
		switch m.Stage {
		case shader.StageLibrary:
			hasLibrary = true
		case shader.StagePixel:
			if m.ExportName == "" || m.EntryPoint == "" {
				return fmt.Errorf("pixel module %s needs an entry point and an export name", m.Name)
			}
			if pixels[m.ExportName] {
				return fmt.Errorf("pixel export %q declared twice", m.ExportName)
			}
			pixels[m.ExportName] = true
		}
	}
	if !hasLibrary {
		return errors.New("no shader libraries declared")
	}
	for _, n := range b.nodes {
		if n.MeshExport == "" {
			return errors.New("mesh node without a mesh export")
		}
		if n.PixelExport != "" && !pixels[n.PixelExport] {
			return fmt.Errorf("mesh node %s references undeclared pixel export %q", n.MeshExport, n.PixelExport)
		}
	}
	return nil
}

// compile compiles every module on the builder's worker pool. The result slice is indexed like b.modules and
// holds every blob that compiled, even when another module failed, so the caller can release them.
func (b *builder) compile(ctx context.Context, compiler shader.Compiler) ([]shader.Blob, error) {
	blobs := make([]shader.Blob, len(b.modules))
	errs := make([]error, len(b.modules))

	pool := b.pool
	if pool == nil {
		pool = compilePool(b.compileWorkers)
	}

	// A WaitGroup is the barrier; pool.Wait() only returns once idle workers exit.
	var wg sync.WaitGroup
	for i, m := range b.modules {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		wg.Add(1)
		idx, mod := i, m
		pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				if err := ctx.Err(); err != nil {
					errs[idx] = err
					return nil, err
				}
				blob, err := compiler.Compile(mod)
				blobs[idx] = blob
				errs[idx] = err
				return blob, err
			},
		})
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			m := b.modules[i]
			return blobs, &CompileError{Module: m.Name, Stage: m.Stage, Err: err}
		}
	}
	return blobs, nil
}

// stateObjectDesc assembles the libraries and one generic program per node.
func (b *builder) stateObjectDesc(blobs []shader.Blob) (renderer.StateObjectDesc, error) {
	desc := renderer.StateObjectDesc{
		ProgramName:              b.programName,
		RootSignature:            b.rootSignature,
		IncludeAllAvailableNodes: true,
	}

	libraryExports := make(map[string]bool)
	pixelExports := make(map[string]bool)
	for i, m := range b.modules {
		lib := renderer.LibraryDesc{Name: m.Name, Code: blobs[i].Code()}
		switch m.Stage {
		case shader.StagePixel:
			lib.Exports = []renderer.ExportDesc{{Name: m.ExportName, EntryPoint: m.EntryPoint}}
			pixelExports[m.ExportName] = true
		default:
			for _, e := range blobs[i].EntryPoints() {
				lib.Exports = append(lib.Exports, renderer.ExportDesc{Name: e, EntryPoint: e})
				libraryExports[e] = true
			}
		}
		desc.Libraries = append(desc.Libraries, lib)
	}

	for _, e := range b.entryPoints {
		if !libraryExports[e] {
			return desc, fmt.Errorf("entry point %q is not exported by any library", e)
		}
	}

	for _, n := range b.nodes {
		if !libraryExports[n.MeshExport] {
			return desc, fmt.Errorf("mesh export %q is not exported by any library", n.MeshExport)
		}
		exports := []string{n.MeshExport}
		if n.PixelExport != "" {
			if !pixelExports[n.PixelExport] {
				return desc, fmt.Errorf("pixel export %q was not compiled", n.PixelExport)
			}
			exports = append(exports, n.PixelExport)
		}
		desc.GenericPrograms = append(desc.GenericPrograms, renderer.GenericProgramDesc{
			Name:         n.MeshExport,
			Exports:      exports,
			Rasterizer:   b.graphicsState.Rasterizer(n.CullMode),
			Topology:     b.graphicsState.Topology,
			DepthFormat:  b.graphicsState.DepthFormat,
			ColorFormats: append([]wgpu.TextureFormat(nil), b.graphicsState.ColorFormats...),
		})
	}
	return desc, nil
}

// finalize queries the finished state object, allocates backing memory and resolves entry points.
func (b *builder) finalize(device renderer.Device, so renderer.StateObject) (*Program, error) {
	graph, err := so.WorkGraphIndex(b.programName)
	if err != nil {
		return nil, &ProgramError{Step: "work graph index", Err: err}
	}
	if err := so.SetMaximumInputRecords(graph, b.maxInputRecords, uint32(len(b.entryPoints))); err != nil {
		return nil, &ProgramError{Step: "set maximum input records", Err: err}
	}
	req, err := so.MemoryRequirements(graph)
	if err != nil {
		return nil, &ProgramError{Step: "memory requirements", Err: err}
	}

	var buf renderer.Buffer
	if req.MaxSize > 0 {
		buf, err = device.CreateBuffer(renderer.BufferDesc{
			Label:     b.programName + " Backing Memory",
			Size:      req.MaxSize,
			Alignment: renderer.BackingMemoryAlignment,
			Usage:     wgpu.BufferUsageStorage,
		})
		if err != nil {
			return nil, &ProgramError{Step: "allocate backing memory", Err: err}
		}
	}
	memory := newBackingMemory(buf, req.MaxSize)

	id, err := so.ProgramIdentifier(b.programName)
	if err != nil {
		memory.release()
		return nil, &ProgramError{Step: "program identifier", Err: err}
	}

	indices := make([]uint32, len(b.entryPoints))
	for i, name := range b.entryPoints {
		idx, err := so.EntrypointIndex(graph, name)
		if err != nil {
			memory.release()
			return nil, &ProgramError{Step: "entry point index", Err: fmt.Errorf("%s: %w", name, err)}
		}
		indices[i] = idx
	}

	return &Program{
		name:         b.programName,
		stateObject:  so,
		identifier:   id,
		requirements: req,
		memory:       memory,
		entryPoints:  newEntryPointTable(b.entryPoints, indices),
	}, nil
}
