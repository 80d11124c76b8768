package workgraph

import (
	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-ivy/engine/renderer"
	"github.com/Carmen-Shannon/oxy-ivy/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-ivy/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// BuilderOption is a functional option applied to a Builder during construction via NewBuilder.
type BuilderOption func(*builder)

// WithProgramName sets the program name the state object and its queries use.
//
// Parameters:
//   - name: the program name
//
// Returns:
//   - BuilderOption: a function that sets the program name
func WithProgramName(name string) BuilderOption {
	return func(b *builder) {
		b.programName = name
	}
}

// WithShaderLibrary declares a module compiled as a library of node entry points.
//
// Parameters:
//   - name: the module source name
//
// Returns:
//   - BuilderOption: a function that declares the library
func WithShaderLibrary(name string) BuilderOption {
	return func(b *builder) {
		b.modules = append(b.modules, shader.Module{Name: name, Stage: shader.StageLibrary})
	}
}

// WithPixelShader declares a module compiled as a pixel stage and exported under exportName.
//
// Parameters:
//   - name: the module source name
//   - entryPoint: the fragment function to compile
//   - exportName: the name mesh nodes reference the stage by
//
// Returns:
//   - BuilderOption: a function that declares the pixel stage
func WithPixelShader(name, entryPoint, exportName string) BuilderOption {
	return func(b *builder) {
		b.modules = append(b.modules, shader.Module{Name: name, Stage: shader.StagePixel, EntryPoint: entryPoint, ExportName: exportName})
	}
}

// WithMeshNode declares a graphics node. Nodes are assembled in declaration order.
//
// Parameters:
//   - meshExport: the generation export of the node
//   - pixelExport: the pixel export paired with it, or "" for none
//   - cullMode: the rasterizer cull mode (wgpu.CullModeNone or wgpu.CullModeBack)
//
// Returns:
//   - BuilderOption: a function that declares the node
func WithMeshNode(meshExport, pixelExport string, cullMode wgpu.CullMode) BuilderOption {
	return func(b *builder) {
		b.nodes = append(b.nodes, MeshNode{MeshExport: meshExport, PixelExport: pixelExport, CullMode: cullMode})
	}
}

// WithGraphicsState sets the fixed-function state shared by every node.
//
// Parameters:
//   - state: the graphics state
//
// Returns:
//   - BuilderOption: a function that sets the graphics state
func WithGraphicsState(state pipeline.GraphicsState) BuilderOption {
	return func(b *builder) {
		b.graphicsState = state
	}
}

// WithRootSignature sets the global binding layout of the program.
//
// Parameters:
//   - layout: the binding ranges
//
// Returns:
//   - BuilderOption: a function that sets the layout
func WithRootSignature(layout renderer.RootSignatureDesc) BuilderOption {
	return func(b *builder) {
		b.rootSignature = layout
	}
}

// WithEntryPoints declares the entry point names resolved into the EntryPointTable, in the order
// dispatches list them.
//
// Parameters:
//   - names: the entry point names
//
// Returns:
//   - BuilderOption: a function that declares the entry points
func WithEntryPoints(names ...string) BuilderOption {
	return func(b *builder) {
		b.entryPoints = append([]string(nil), names...)
	}
}

// WithMaxInputRecords sets the most records a single dispatch supplies across all entry points.
// Values below 1 are raised to 1.
//
// Parameters:
//   - n: the record bound
//
// Returns:
//   - BuilderOption: a function that sets the record bound
func WithMaxInputRecords(n uint32) BuilderOption {
	return func(b *builder) {
		b.maxInputRecords = max(n, 1)
	}
}

// WithCompileWorkers sets how many modules compile in parallel.
//
// Parameters:
//   - n: the worker count, at least 1
//
// Returns:
//   - BuilderOption: a function that sets the worker count
func WithCompileWorkers(n int) BuilderOption {
	return func(b *builder) {
		b.compileWorkers = max(n, 1)
	}
}

// WithWorkerPool compiles on the given pool instead of the shared pool for the configured worker
// count. The pool is not stopped by the builder.
//
// Parameters:
//   - pool: a running worker pool
//
// Returns:
//   - BuilderOption: a function that sets the compile pool
func WithWorkerPool(pool worker.DynamicWorkerPool) BuilderOption {
	return func(b *builder) {
		b.pool = pool
	}
}
