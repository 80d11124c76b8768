package content

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// Surface is one draw range of a mesh: an index stream, its vertex attribute streams and a material.
type Surface interface {
	// Material returns the surface's material, which is one of its block's Materials.
	Material() Material
	// IndexBuffer returns the index stream.
	IndexBuffer() IndexBufferInfo
	// VertexBuffer returns the stream of one vertex attribute. The Buffer is nil when the attribute is absent.
	VertexBuffer(attr VertexAttributeType) VertexBufferInfo
	// VertexAttributes returns the set of attributes the surface provides.
	VertexAttributes() VertexAttributeFlags
	// HasTranslucency reports whether the surface needs blending.
	HasTranslucency() bool
}

// Mesh is a named collection of surfaces identified by a scene-wide mesh index.
type Mesh interface {
	// Index returns the scene-wide mesh id. Instance records are addressed by it.
	Index() uint32
	// Name returns the mesh name or source path.
	Name() string
	// Surfaces returns the mesh's surfaces in draw order.
	Surfaces() []Surface
}

type surface struct {
	material     Material
	index        IndexBufferInfo
	vertices     [VertexAttributeCount]VertexBufferInfo
	attributes   VertexAttributeFlags
	translucency bool
}

var _ Surface = &surface{}

// SurfaceBuilderOption configures a surface during construction.
type SurfaceBuilderOption func(*surface)

// WithIndexBuffer sets the surface's index stream.
//
// Parameters:
//   - buf: the index buffer
//   - count: the number of indices
//   - format: the index width
//
// Returns:
//   - SurfaceBuilderOption: a function that applies the index buffer to a surface
func WithIndexBuffer(buf Buffer, count uint32, format wgpu.IndexFormat) SurfaceBuilderOption {
	return func(s *surface) {
		s.index = IndexBufferInfo{Buffer: buf, Count: count, Format: format}
	}
}

// WithVertexBuffer sets one vertex attribute stream and marks the attribute present.
//
// Parameters:
//   - attr: the attribute type
//   - buf: the vertex buffer
//   - count: the number of vertices
//
// Returns:
//   - SurfaceBuilderOption: a function that applies the vertex buffer to a surface
func WithVertexBuffer(attr VertexAttributeType, buf Buffer, count uint32) SurfaceBuilderOption {
	return func(s *surface) {
		if attr < 0 || attr >= VertexAttributeCount || buf == nil {
			return
		}
		s.vertices[attr] = VertexBufferInfo{Buffer: buf, Count: count}
		s.attributes |= attr.Flag()
	}
}

// WithTranslucency marks the surface as translucent.
func WithTranslucency(translucent bool) SurfaceBuilderOption {
	return func(s *surface) {
		s.translucency = translucent
	}
}

// NewSurface creates a Surface drawn with the given material.
//
// Parameters:
//   - mat: the surface material
//   - options: surface builder options
//
// Returns:
//   - Surface: the surface
func NewSurface(mat Material, options ...SurfaceBuilderOption) Surface {
	s := &surface{material: mat}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *surface) Material() Material {
	return s.material
}

func (s *surface) IndexBuffer() IndexBufferInfo {
	return s.index
}

func (s *surface) VertexBuffer(attr VertexAttributeType) VertexBufferInfo {
	if attr < 0 || attr >= VertexAttributeCount {
		return VertexBufferInfo{}
	}
	return s.vertices[attr]
}

func (s *surface) VertexAttributes() VertexAttributeFlags {
	return s.attributes
}

func (s *surface) HasTranslucency() bool {
	return s.translucency
}

type mesh struct {
	index    uint32
	name     string
	surfaces []Surface
}

var _ Mesh = &mesh{}

// NewMesh creates a Mesh.
//
// Parameters:
//   - index: the scene-wide mesh id
//   - name: the mesh name or source path
//   - surfaces: the mesh's surfaces
//
// Returns:
//   - Mesh: the mesh
func NewMesh(index uint32, name string, surfaces ...Surface) Mesh {
	return &mesh{index: index, name: name, surfaces: surfaces}
}

func (m *mesh) Index() uint32 {
	return m.index
}

func (m *mesh) Name() string {
	return m.name
}

func (m *mesh) Surfaces() []Surface {
	return m.surfaces
}
