package loader

import (
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-ivy/common"
	"github.com/Carmen-Shannon/oxy-ivy/engine/content"

	"github.com/cogentcore/webgpu/wgpu"
)

// gltfAttributeSemantics maps glTF attribute semantics to content vertex streams.
var gltfAttributeSemantics = map[string]content.VertexAttributeType{
	"POSITION":   content.VertexAttributePosition,
	"NORMAL":     content.VertexAttributeNormal,
	"TANGENT":    content.VertexAttributeTangent,
	"TEXCOORD_0": content.VertexAttributeTexcoord0,
	"TEXCOORD_1": content.VertexAttributeTexcoord1,
	"COLOR_0":    content.VertexAttributeColor0,
	"WEIGHTS_0":  content.VertexAttributeWeights0,
	"JOINTS_0":   content.VertexAttributeJoints0,
}

// gltfMeshExtractorImpl is the implementation of the gltfMeshExtractor interface.
type gltfMeshExtractorImpl struct {
	parser    gltfParser
	ids       *identities
	materials gltfMaterialExtractor
	resolved  []content.Material
	buffers   map[int]content.Buffer
	meshes    map[int]content.Mesh

	usedDefault bool
}

// gltfMeshExtractor converts glTF meshes into content meshes. Each accessor becomes one content
// buffer and each glTF mesh is converted once, however many nodes reference it.
type gltfMeshExtractor interface {
	// ExtractMesh converts a single mesh by index. Primitives that are not triangle lists are
	// skipped with a warning.
	//
	// Parameters:
	//   - meshIndex: the index of the mesh in the document
	//
	// Returns:
	//   - content.Mesh: the mesh with a scene-wide index
	//   - error: error if a primitive references an invalid accessor or material
	ExtractMesh(meshIndex int) (content.Mesh, error)

	// Materials returns the materials surfaces were bound to, the document's materials followed by
	// the default material if any primitive needed it.
	Materials() []content.Material
}

var _ gltfMeshExtractor = &gltfMeshExtractorImpl{}

// newGLTFMeshExtractor creates a mesh extractor.
//
// Parameters:
//   - parser: the parser containing a loaded document
//   - ids: the loader's identity allocator
//   - materials: the material extractor the document's materials came from
//   - resolved: the document's materials, index-aligned
//
// Returns:
//   - gltfMeshExtractor: the mesh extractor
func newGLTFMeshExtractor(parser gltfParser, ids *identities, materials gltfMaterialExtractor, resolved []content.Material) gltfMeshExtractor {
	return &gltfMeshExtractorImpl{
		parser:    parser,
		ids:       ids,
		materials: materials,
		resolved:  resolved,
		buffers:   make(map[int]content.Buffer),
		meshes:    make(map[int]content.Mesh),
	}
}

func (e *gltfMeshExtractorImpl) ExtractMesh(meshIndex int) (content.Mesh, error) {
	if m, ok := e.meshes[meshIndex]; ok {
		return m, nil
	}

	doc := e.parser.Document()
	if meshIndex < 0 || meshIndex >= len(doc.Meshes) {
		return nil, fmt.Errorf("mesh index %d out of range", meshIndex)
	}

	gm := &doc.Meshes[meshIndex]
	name := meshPath(e.parser.Path(), common.Coalesce(gm.Name, fmt.Sprintf("mesh%d", meshIndex)))

	surfaces := make([]content.Surface, 0, len(gm.Primitives))
	for pi := range gm.Primitives {
		prim := &gm.Primitives[pi]
		if prim.Mode != nil && *prim.Mode != gltfPrimitiveModeTriangles {
			logger().Warn("skipping non-triangle primitive",
				slog.String("mesh", name),
				slog.Int("primitive", pi),
				slog.Int("mode", *prim.Mode),
			)
			continue
		}
		surf, err := e.extractPrimitive(prim)
		if err != nil {
			return nil, fmt.Errorf("mesh %q primitive %d: %w", name, pi, err)
		}
		surfaces = append(surfaces, surf)
	}

	m := content.NewMesh(e.ids.mesh(), name, surfaces...)
	e.meshes[meshIndex] = m
	return m, nil
}

func (e *gltfMeshExtractorImpl) Materials() []content.Material {
	if !e.usedDefault {
		return e.resolved
	}
	return append(e.resolved[:len(e.resolved):len(e.resolved)], e.materials.DefaultMaterial())
}

// extractPrimitive builds the surface of one triangle-list primitive. A primitive without indices,
// or with 8-bit indices, keeps wgpu.IndexFormatUndefined so the tables report it.
func (e *gltfMeshExtractorImpl) extractPrimitive(prim *gltfPrimitive) (content.Surface, error) {
	doc := e.parser.Document()

	var mat content.Material
	switch {
	case prim.Material == nil:
		mat = e.materials.DefaultMaterial()
		e.usedDefault = true
	case *prim.Material < 0 || *prim.Material >= len(e.resolved):
		return nil, fmt.Errorf("material index %d out of range", *prim.Material)
	default:
		mat = e.resolved[*prim.Material]
	}

	if _, ok := prim.Attributes["POSITION"]; !ok {
		return nil, fmt.Errorf("primitive has no POSITION attribute")
	}

	opts := []content.SurfaceBuilderOption{
		content.WithTranslucency(mat.BlendMode() == content.BlendModeBlend),
	}

	if prim.Indices != nil {
		buf, count, err := e.buffer(*prim.Indices)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
		format := wgpu.IndexFormatUndefined
		switch doc.Accessors[*prim.Indices].ComponentType {
		case gltfComponentTypeUnsignedShort:
			format = wgpu.IndexFormatUint16
		case gltfComponentTypeUnsignedInt:
			format = wgpu.IndexFormatUint32
		}
		opts = append(opts, content.WithIndexBuffer(buf, uint32(count), format))
	}

	for semantic, accessor := range prim.Attributes {
		attr, ok := gltfAttributeSemantics[semantic]
		if !ok {
			continue
		}
		buf, count, err := e.buffer(accessor)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", semantic, err)
		}
		opts = append(opts, content.WithVertexBuffer(attr, buf, uint32(count)))
	}

	return content.NewSurface(mat, opts...), nil
}

// buffer returns the content buffer of an accessor, allocating its identity on first use.
func (e *gltfMeshExtractorImpl) buffer(accessorIndex int) (content.Buffer, int, error) {
	count, err := e.parser.AccessorCount(accessorIndex)
	if err != nil {
		return nil, 0, err
	}
	if b, ok := e.buffers[accessorIndex]; ok {
		return b, count, nil
	}
	acc := &e.parser.Document().Accessors[accessorIndex]
	name := common.Coalesce(acc.Name, fmt.Sprintf("%s#accessor%d", e.parser.Path(), accessorIndex))
	b := content.NewBuffer(e.ids.next(), name)
	e.buffers[accessorIndex] = b
	return b, count, nil
}

// meshPath names a mesh by its document path without extension followed by the mesh name, so
// "media/Ivy.gltf" mesh "Stem" becomes "media/Ivy/Stem".
func meshPath(docPath, meshName string) string {
	p := filepath.ToSlash(docPath)
	p = strings.TrimSuffix(p, path.Ext(p))
	if p == "" {
		return meshName
	}
	return p + "/" + meshName
}
