package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-ivy/engine/content"
	"github.com/Carmen-Shannon/oxy-ivy/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// BackingMemoryAlignment is the required alignment, in bytes, of execution graph backing memory.
const BackingMemoryAlignment = 8

// WorkGraphsTier is the execution graph capability reported by a device.
type WorkGraphsTier int

const (
	// WorkGraphsNotSupported means the device cannot run execution graphs.
	WorkGraphsNotSupported WorkGraphsTier = iota
	// WorkGraphsTier1_0 supports compute-only execution graphs.
	WorkGraphsTier1_0
	// WorkGraphsTier1_1 adds graphics (mesh) nodes that spawn rasterized work.
	WorkGraphsTier1_1
)

// String returns the tier name used in logs and errors.
func (t WorkGraphsTier) String() string {
	switch t {
	case WorkGraphsNotSupported:
		return "not supported"
	case WorkGraphsTier1_0:
		return "tier 1.0"
	case WorkGraphsTier1_1:
		return "tier 1.1"
	default:
		return "unknown"
	}
}

// ResourceState is the usage state a render target is transitioned between.
type ResourceState int

const (
	ResourceStateCommon ResourceState = iota
	ResourceStateShaderResource
	ResourceStateRenderTarget
	ResourceStateDepthWrite
	ResourceStateUnorderedAccess
)

// RenderTarget is a texture the host renders into. The host owns its memory.
type RenderTarget interface {
	// Name returns a debug name.
	Name() string
	// Format returns the texture format.
	Format() wgpu.TextureFormat
}

// AccelerationStructure is the host's top-level ray tracing acceleration structure.
type AccelerationStructure interface {
	// ID returns a stable identity of the structure.
	ID() uint64
}

// Barrier transitions one render target between usage states.
type Barrier struct {
	Resource RenderTarget
	Before   ResourceState
	After    ResourceState
}

// Viewport is a viewport rectangle. The scissor rectangle always matches it.
type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

// BufferDesc describes a device buffer to create.
type BufferDesc struct {
	// Label is the debug name of the buffer.
	Label string
	// Size is the size in bytes. The created buffer reports exactly this size.
	Size uint64
	// Alignment is the required placement alignment in bytes, a power of two, or 0 for the device
	// default. It constrains where the buffer starts, never its size.
	Alignment uint64
	// Usage are the wgpu usage flags of the buffer.
	Usage wgpu.BufferUsage
	// Data is optional initial content. Its length must not exceed Size.
	Data []byte
}

// BufferAddress is a byte range of a device buffer.
type BufferAddress struct {
	Buffer Buffer
	Offset uint64
	Size   uint64
}

// MemoryRequirements is the backing memory size range an execution graph reports.
type MemoryRequirements struct {
	MinSize         uint64
	MaxSize         uint64
	SizeGranularity uint64
}

// ProgramIdentifier is the opaque identifier of a program inside a state object.
type ProgramIdentifier struct {
	OpaqueData [4]uint64
}

// IsZero reports whether the identifier is unset.
func (p ProgramIdentifier) IsZero() bool {
	return p == ProgramIdentifier{}
}

// ExportDesc names one entry point of a compiled library. Name is the export name other
// subobjects reference it by; EntryPoint is the function inside the code.
type ExportDesc struct {
	Name       string
	EntryPoint string
}

// LibraryDesc is one compiled shader module added to a state object.
type LibraryDesc struct {
	Name    string
	Code    []byte
	Exports []ExportDesc
}

// GenericProgramDesc is one graphics node: a generation export, an optional pixel export and the
// fixed-function state of the node.
type GenericProgramDesc struct {
	Name         string
	Exports      []string
	Rasterizer   pipeline.RasterizerState
	Topology     wgpu.PrimitiveTopology
	DepthFormat  wgpu.TextureFormat
	ColorFormats []wgpu.TextureFormat
}

// BindingKind classifies a declared binding range.
type BindingKind int

const (
	BindingKindConstantBuffer BindingKind = iota
	BindingKindAccelerationStructure
	BindingKindBuffer
	BindingKindTexture
	BindingKindSampler
)

// BindingRange declares Count consecutive slots of one kind starting at BaseSlot.
type BindingRange struct {
	Name     string
	Kind     BindingKind
	BaseSlot int
	Count    int
}

// Contains reports whether slot falls inside the range.
func (r BindingRange) Contains(slot int) bool {
	return slot >= r.BaseSlot && slot < r.BaseSlot+r.Count
}

// RootSignatureDesc is the global binding layout shared by every node of a state object.
type RootSignatureDesc struct {
	Ranges []BindingRange
}

// StateObjectDesc describes an executable execution graph program.
type StateObjectDesc struct {
	ProgramName     string
	Libraries       []LibraryDesc
	GenericPrograms []GenericProgramDesc
	RootSignature   RootSignatureDesc
	// IncludeAllAvailableNodes adds every node export of every library to the graph.
	IncludeAllAvailableNodes bool
}

// SetProgramFlags modifies how a program is bound.
type SetProgramFlags uint32

const (
	// SetProgramFlagsNone binds the program without touching backing memory.
	SetProgramFlagsNone SetProgramFlags = 0
	// SetProgramFlagsInitialize initializes the backing memory before the next dispatch.
	SetProgramFlagsInitialize SetProgramFlags = 1 << 0
)

// ProgramDesc binds an execution graph program and its backing memory to a command list.
type ProgramDesc struct {
	Identifier    ProgramIdentifier
	Flags         SetProgramFlags
	BackingMemory BufferAddress
}

// DispatchMode selects how graph input is supplied.
type DispatchMode int

const (
	// DispatchModeNodeCPUInput supplies one entry point's records from CPU memory.
	DispatchModeNodeCPUInput DispatchMode = iota
	// DispatchModeMultiNodeCPUInput supplies several entry points' records from CPU memory.
	DispatchModeMultiNodeCPUInput
)

// NodeCPUInput is the CPU-side record batch for one entry point.
type NodeCPUInput struct {
	EntrypointIndex uint32
	NumRecords      uint32
	Records         []byte
	RecordStride    uint64
}

// DispatchGraphDesc describes one graph dispatch.
type DispatchGraphDesc struct {
	Mode   DispatchMode
	Inputs []NodeCPUInput
}

// Bindings is a complete parameter set handed to a command list. Keys are absolute slots.
type Bindings struct {
	ConstantBuffers        map[int]BufferAddress
	AccelerationStructures map[int]AccelerationStructure
	Buffers                map[int]Buffer
	ContentBuffers         map[int]content.Buffer
	Textures               map[int]content.Texture
	Samplers               map[int]Sampler
}

// checkAlignment validates a buffer placement alignment against the largest one the device honours.
func checkAlignment(desc BufferDesc, maxAlignment uint64) error {
	a := desc.Alignment
	if a == 0 {
		return nil
	}
	if a&(a-1) != 0 {
		return fmt.Errorf("renderer: buffer %q alignment %d is not a power of two", desc.Label, a)
	}
	if a > maxAlignment {
		return fmt.Errorf("renderer: buffer %q alignment %d exceeds the device maximum %d", desc.Label, a, maxAlignment)
	}
	return nil
}
