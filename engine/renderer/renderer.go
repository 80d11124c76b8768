// Package renderer is the device layer the generation module drives: capability queries, state
// object creation, resource allocation and the command list used to bind and dispatch execution
// graphs. A recording NullDevice serves tests and dry runs; the wgpu device allocates real
// buffers and samplers and delegates execution graph support to an optional GraphDriver.
package renderer

import (
	"github.com/Carmen-Shannon/oxy-ivy/common"
)

// Device creates the GPU objects the generation module needs.
type Device interface {
	// WorkGraphsTier queries the execution graph capability of the device.
	//
	// Returns:
	//   - WorkGraphsTier: the supported tier
	//   - error: an error if the feature query itself failed
	WorkGraphsTier() (WorkGraphsTier, error)

	// CreateStateObject finalizes an execution graph program.
	//
	// Parameters:
	//   - desc: the libraries, generic programs and bindings of the program
	//
	// Returns:
	//   - StateObject: the created state object
	//   - error: an error if creation failed
	CreateStateObject(desc StateObjectDesc) (StateObject, error)

	// CreateBuffer allocates a device buffer, optionally filled with initial data.
	//
	// Parameters:
	//   - desc: the buffer description
	//
	// Returns:
	//   - Buffer: the created buffer
	//   - error: an error if allocation failed
	CreateBuffer(desc BufferDesc) (Buffer, error)

	// CreateSampler creates a sampler.
	//
	// Parameters:
	//   - desc: the sampler description
	//
	// Returns:
	//   - Sampler: the created sampler
	//   - error: an error if creation failed
	CreateSampler(desc common.SamplerDesc) (Sampler, error)

	// AllocConstantBuffer copies data into transient per-frame constant memory.
	//
	// Parameters:
	//   - data: the constant payload
	//
	// Returns:
	//   - BufferAddress: the range the payload was written to
	//   - error: an error if allocation failed
	AllocConstantBuffer(data []byte) (BufferAddress, error)
}

// Buffer is a device buffer.
type Buffer interface {
	Label() string
	Size() uint64
	Release()
}

// Sampler is a device sampler.
type Sampler interface {
	Desc() common.SamplerDesc
	Release()
}

// StateObject is a finalized execution graph program and its property queries.
type StateObject interface {
	// WorkGraphIndex returns the index of a named graph program.
	WorkGraphIndex(program string) (uint32, error)

	// SetMaximumInputRecords declares the most records and entry points a single dispatch uses.
	// It must be called before MemoryRequirements.
	SetMaximumInputRecords(graph uint32, records, entrypoints uint32) error

	// MemoryRequirements returns the backing memory the graph needs.
	MemoryRequirements(graph uint32) (MemoryRequirements, error)

	// EntrypointIndex resolves the index of a named entry point node (array index 0).
	EntrypointIndex(graph uint32, name string) (uint32, error)

	// ProgramIdentifier returns the identifier used to bind a named program.
	ProgramIdentifier(program string) (ProgramIdentifier, error)

	// Release frees the state object.
	Release()
}

// CommandList records raster scope, binding and barrier commands. It is owned by the host
// frame loop; the generation module only appends to it.
type CommandList interface {
	// ResourceBarrier records usage transitions.
	ResourceBarrier(barriers ...Barrier)

	// BeginRaster opens a raster scope writing the given color targets and depth target.
	BeginRaster(colors []RenderTarget, depth RenderTarget)

	// SetViewportScissor sets the viewport and a matching scissor rectangle.
	SetViewportScissor(v Viewport)

	// EndRaster closes the raster scope opened by BeginRaster.
	EndRaster()

	// BeginMarker opens a named profiling region.
	BeginMarker(name string)

	// EndMarker closes the innermost profiling region.
	EndMarker()

	// SetBindings binds a complete parameter set for subsequent dispatches.
	SetBindings(b Bindings)

	// WorkGraphCommands returns the extended interface that binds and dispatches execution graphs.
	//
	// Returns:
	//   - WorkGraphCommandList: the extended interface
	//   - error: an error if the command list does not support execution graphs
	WorkGraphCommands() (WorkGraphCommandList, error)
}

// WorkGraphCommandList binds and dispatches execution graph programs.
type WorkGraphCommandList interface {
	SetProgram(desc ProgramDesc)
	DispatchGraph(desc DispatchGraphDesc)
}
