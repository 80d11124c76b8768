// Package content describes the scene content consumed by the bindless resource tables: textures,
// geometry buffers, materials, meshes and the content blocks that stream them in and out.
//
// Everything here is owned by the host's content system. The tables only read it, and they identify
// textures and buffers by the stable ID the content system assigns rather than by address.
package content

import (
	"github.com/Carmen-Shannon/oxy-ivy/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// TextureClass selects one of the texture slots a material may populate.
type TextureClass int

const (
	// TextureClassAlbedo is the base color texture.
	TextureClassAlbedo TextureClass = iota
	// TextureClassMetalRough is the packed metalness/roughness texture of the metal-rough PBR workflow.
	TextureClassMetalRough
	// TextureClassSpecGloss is the specular/glossiness texture of the spec-gloss PBR workflow.
	TextureClassSpecGloss
	// TextureClassNormal is the tangent space normal map.
	TextureClassNormal
	// TextureClassEmissive is the emission texture.
	TextureClassEmissive

	textureClassCount
)

// String returns the class name used in logs.
func (c TextureClass) String() string {
	switch c {
	case TextureClassAlbedo:
		return "albedo"
	case TextureClassMetalRough:
		return "metal-rough"
	case TextureClassSpecGloss:
		return "spec-gloss"
	case TextureClassNormal:
		return "normal"
	case TextureClassEmissive:
		return "emissive"
	default:
		return "unknown"
	}
}

// BlendMode is the material's alpha blending mode.
type BlendMode int

const (
	// BlendModeOpaque ignores alpha.
	BlendModeOpaque BlendMode = iota
	// BlendModeMask discards fragments below the alpha cutoff.
	BlendModeMask
	// BlendModeBlend alpha blends.
	BlendModeBlend
)

// VertexAttributeType identifies one per-vertex attribute stream of a surface.
type VertexAttributeType int

const (
	VertexAttributePosition VertexAttributeType = iota
	VertexAttributeNormal
	VertexAttributeTangent
	VertexAttributeTexcoord0
	VertexAttributeTexcoord1
	VertexAttributeColor0
	VertexAttributeWeights0
	VertexAttributeJoints0

	// VertexAttributeCount is the number of attribute types.
	VertexAttributeCount
)

// VertexAttributeFlags is a bitmask of VertexAttributeType values, bit n set for attribute n.
type VertexAttributeFlags uint32

// Flag returns the bit for a single attribute type.
func (t VertexAttributeType) Flag() VertexAttributeFlags {
	return VertexAttributeFlags(1) << uint(t)
}

// Has reports whether the attribute's bit is set.
func (f VertexAttributeFlags) Has(t VertexAttributeType) bool {
	return f&t.Flag() != 0
}

// Texture is a texture resource owned by the content system.
type Texture interface {
	// ID returns the content-assigned identity of the texture. Two Texture values with the same ID
	// refer to the same GPU texture.
	ID() uint64
	// Name returns a debug name.
	Name() string
}

// Buffer is a geometry buffer (index or vertex data) owned by the content system.
type Buffer interface {
	// ID returns the content-assigned identity of the buffer.
	ID() uint64
	// Name returns a debug name.
	Name() string
}

// TextureInfo pairs a material texture with the sampler it should be read through.
type TextureInfo struct {
	Texture Texture
	Sampler common.SamplerDesc
}

// IndexBufferInfo describes the index stream of a surface.
type IndexBufferInfo struct {
	Buffer Buffer
	Count  uint32
	// Format is the index width. Only wgpu.IndexFormatUint16 and wgpu.IndexFormatUint32 are supported by the generation stages.
	Format wgpu.IndexFormat
}

// VertexBufferInfo describes one vertex attribute stream of a surface.
type VertexBufferInfo struct {
	Buffer Buffer
	Count  uint32
}

// Block is a unit of content that is loaded and unloaded as a whole.
type Block interface {
	// ID returns the identity of the block. Unload notifications carry the same ID as the load.
	ID() uint64
	// Materials returns every material in the block. A surface's material index is its position here.
	Materials() []Material
	// MeshInstances returns the mesh of every mesh component in the block in entity order.
	// The same mesh may appear more than once.
	MeshInstances() []Mesh
}

// block is the default Block implementation.
type block struct {
	id        uint64
	materials []Material
	meshes    []Mesh
}

var _ Block = &block{}

// NewBlock creates a content Block.
//
// Parameters:
//   - id: the block identity
//   - materials: the block's materials
//   - meshInstances: the meshes referenced by the block's mesh components, in entity order
//
// Returns:
//   - Block: the content block
func NewBlock(id uint64, materials []Material, meshInstances []Mesh) Block {
	return &block{id: id, materials: materials, meshes: meshInstances}
}

func (b *block) ID() uint64 {
	return b.id
}

func (b *block) Materials() []Material {
	return b.materials
}

func (b *block) MeshInstances() []Mesh {
	return b.meshes
}

// resource is the default Texture and Buffer implementation.
type resource struct {
	id   uint64
	name string
}

// NewTexture returns a Texture handle with the given identity.
func NewTexture(id uint64, name string) Texture {
	return &resource{id: id, name: name}
}

// NewBuffer returns a Buffer handle with the given identity.
func NewBuffer(id uint64, name string) Buffer {
	return &resource{id: id, name: name}
}

func (r *resource) ID() uint64 {
	return r.id
}

func (r *resource) Name() string {
	return r.name
}
