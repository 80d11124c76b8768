package bindless

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-ivy/engine/renderer"
)

// Binding slots shared by the table builder and the generation stages.
const (
	// ConstantsSlot is the root constant buffer slot of the frame constants.
	ConstantsSlot = 0
	// SceneSlot is the acceleration structure slot of the scene.
	SceneSlot = 0

	MaterialInfoSlot = 20
	InstanceInfoSlot = 21
	SurfaceIDSlot    = 22
	SurfaceInfoSlot  = 23

	SamplerBeginSlot = 10
	MaxSamplers      = 20

	TextureBeginSlot = 50
	MaxTextures      = 1000

	// MaxInstances bounds the instance array, which is indexed by scene-wide mesh index.
	MaxInstances = 1 << 20

	IndexBufferBeginSlot  = 1050
	VertexBufferBeginSlot = 21050
	MaxBuffers            = 20000
)

// Index type tags stored in SurfaceInfo.IndexType.
const (
	IndexTypeU32     int32 = 0
	IndexTypeU16     int32 = 1
	IndexTypeInvalid int32 = -1
)

// infoTypesSource is the WGSL definition of MaterialInfo, InstanceInfo and SurfaceInfo. It matches
// the layouts written by the Marshal methods in gpu_types.go.
//
//go:embed assets/info_types.wgsl
var infoTypesSource string

// Layout returns the binding ranges of the generation parameter set.
//
// Returns:
//   - renderer.RootSignatureDesc: the ranges, one per table
func Layout() renderer.RootSignatureDesc {
	return renderer.RootSignatureDesc{Ranges: []renderer.BindingRange{
		{Name: "constants", Kind: renderer.BindingKindConstantBuffer, BaseSlot: ConstantsSlot, Count: 1},
		{Name: "scene", Kind: renderer.BindingKindAccelerationStructure, BaseSlot: SceneSlot, Count: 1},
		{Name: "info", Kind: renderer.BindingKindBuffer, BaseSlot: MaterialInfoSlot, Count: 4},
		{Name: "samplers", Kind: renderer.BindingKindSampler, BaseSlot: SamplerBeginSlot, Count: MaxSamplers},
		{Name: "textures", Kind: renderer.BindingKindTexture, BaseSlot: TextureBeginSlot, Count: MaxTextures},
		{Name: "index buffers", Kind: renderer.BindingKindBuffer, BaseSlot: IndexBufferBeginSlot, Count: MaxBuffers},
		{Name: "vertex buffers", Kind: renderer.BindingKindBuffer, BaseSlot: VertexBufferBeginSlot, Count: MaxBuffers},
	}}
}

// ShaderInclude returns the WGSL injected for `@ivy:include bindings`: every slot, capacity and
// index type constant followed by the info struct definitions.
//
// Returns:
//   - string: the WGSL source
func ShaderInclude() string {
	consts := []struct {
		name  string
		value int
	}{
		{"MATERIAL_INFO_SLOT", MaterialInfoSlot},
		{"INSTANCE_INFO_SLOT", InstanceInfoSlot},
		{"SURFACE_ID_SLOT", SurfaceIDSlot},
		{"SURFACE_INFO_SLOT", SurfaceInfoSlot},
		{"SAMPLER_BEGIN_SLOT", SamplerBeginSlot},
		{"MAX_SAMPLERS_COUNT", MaxSamplers},
		{"TEXTURE_BEGIN_SLOT", TextureBeginSlot},
		{"MAX_TEXTURES_COUNT", MaxTextures},
		{"INDEX_BUFFER_BEGIN_SLOT", IndexBufferBeginSlot},
		{"VERTEX_BUFFER_BEGIN_SLOT", VertexBufferBeginSlot},
		{"MAX_BUFFER_COUNT", MaxBuffers},
		{"SURFACE_INFO_INDEX_TYPE_U32", int(IndexTypeU32)},
		{"SURFACE_INFO_INDEX_TYPE_U16", int(IndexTypeU16)},
	}
	var sb strings.Builder
	for _, c := range consts {
		fmt.Fprintf(&sb, "const %s: i32 = %d;\n", c.name, c.value)
	}
	sb.WriteString(infoTypesSource)
	return sb.String()
}
