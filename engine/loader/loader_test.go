package loader

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/Carmen-Shannon/oxy-ivy/engine/bindless"
	"github.com/Carmen-Shannon/oxy-ivy/engine/content"
	"github.com/Carmen-Shannon/oxy-ivy/engine/renderer"
	"github.com/Carmen-Shannon/oxy-ivy/engine/renderer/parameter_set"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ivyBufferViews lays out 120 bytes: positions, normals, uvs, then 16, 32 and 8 bit index streams.
const ivyBufferViews = `
	"bufferViews": [
		{"buffer": 0, "byteOffset": 0, "byteLength": 36},
		{"buffer": 0, "byteOffset": 36, "byteLength": 36},
		{"buffer": 0, "byteOffset": 72, "byteLength": 24},
		{"buffer": 0, "byteOffset": 96, "byteLength": 6},
		{"buffer": 0, "byteOffset": 104, "byteLength": 12},
		{"buffer": 0, "byteOffset": 116, "byteLength": 3}
	],
	"accessors": [
		{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"},
		{"bufferView": 1, "componentType": 5126, "count": 3, "type": "VEC3"},
		{"bufferView": 2, "componentType": 5126, "count": 3, "type": "VEC2"},
		{"bufferView": 3, "componentType": 5123, "count": 3, "type": "SCALAR"},
		{"bufferView": 4, "componentType": 5125, "count": 3, "type": "SCALAR"},
		{"bufferView": 5, "componentType": 5121, "count": 3, "type": "SCALAR"}
	]`

const ivyDoc = `{
	"asset": {"version": "2.0"},
	"scene": 0,
	"scenes": [{"nodes": [0, 4]}],
	"nodes": [
		{"name": "root", "children": [1, 2]},
		{"mesh": 0},
		{"mesh": 1, "children": [3]},
		{"mesh": 0},
		{"mesh": 2}
	],
	"meshes": [
		{"name": "Stem", "primitives": [
			{"attributes": {"POSITION": 0, "NORMAL": 1, "TEXCOORD_0": 2}, "indices": 3, "material": 0}
		]},
		{"name": "Leaf", "primitives": [
			{"attributes": {"POSITION": 0, "TEXCOORD_0": 2}, "indices": 4, "material": 1},
			{"attributes": {"POSITION": 0}, "mode": 1}
		]},
		{"name": "Rock", "primitives": [
			{"attributes": {"POSITION": 0}, "indices": 5}
		]}
	],
	"materials": [
		{"name": "Bark",
		 "pbrMetallicRoughness": {"baseColorFactor": [0.5, 0.4, 0.3, 1], "metallicFactor": 0, "roughnessFactor": 0.8,
		  "baseColorTexture": {"index": 0}},
		 "normalTexture": {"index": 1}},
		{"name": "Leaf", "alphaMode": "MASK", "alphaCutoff": 0.3,
		 "pbrMetallicRoughness": {"baseColorTexture": {"index": 2}}}
	],
	"textures": [{"source": 0, "sampler": 0}, {"source": 1}, {"source": 2}],
	"images": [{"uri": "bark.png"}, {"uri": "bark_n.png"}, {"uri": "leaf.png"}],
	"samplers": [{"magFilter": 9728, "minFilter": 9984, "wrapS": 33071}],
	"buffers": [{"uri": "Ivy.bin", "byteLength": 120}],` + ivyBufferViews + `
}`

const wallDoc = `{
	"asset": {"version": "2.0"},
	"meshes": [{"name": "Wall", "primitives": [
		{"attributes": {"POSITION": 0}, "indices": 4, "material": 0}
	]}],
	"materials": [{"name": "Wall", "pbrMetallicRoughness": {"baseColorTexture": {"index": 0}}}],
	"textures": [{"source": 0}],
	"images": [{"uri": "bark.png"}],
	"buffers": [{"uri": "Ivy.bin", "byteLength": 120}],` + ivyBufferViews + `
}`

func sceneFS() fstest.MapFS {
	return fstest.MapFS{
		"media/Ivy.gltf":  {Data: []byte(ivyDoc)},
		"media/Wall.gltf": {Data: []byte(wallDoc)},
		"media/Ivy.bin":   {Data: make([]byte, 120)},
	}
}

func surfaceOf(t *testing.T, m content.Mesh) content.Surface {
	t.Helper()
	require.Len(t, m.Surfaces(), 1)
	return m.Surfaces()[0]
}

func TestLoadBuildsBlock(t *testing.T) {
	l := NewLoader(WithFS(sceneFS()))

	b, err := l.Load("media/Ivy.gltf")
	require.NoError(t, err)

	inst := b.MeshInstances()
	require.Len(t, inst, 4)
	assert.Equal(t, "media/Ivy/Stem", inst[0].Name())
	assert.Equal(t, "media/Ivy/Leaf", inst[1].Name())
	assert.Same(t, inst[0], inst[2])
	assert.Equal(t, "media/Ivy/Rock", inst[3].Name())
	assert.Equal(t, []uint32{0, 1, 2}, []uint32{inst[0].Index(), inst[1].Index(), inst[3].Index()})

	mats := b.Materials()
	require.Len(t, mats, 3)
	assert.Equal(t, "Bark", mats[0].Name())
	assert.Equal(t, "default", mats[2].Name())

	bark := mats[0]
	assert.True(t, bark.HasPBRMetalRough())
	assert.Equal(t, [4]float32{0.5, 0.4, 0.3, 1}, bark.AlbedoColor())
	assert.Equal(t, [4]float32{0, 0.8, 0, 0}, bark.PBRInfo())
	albedo := bark.TextureInfo(content.TextureClassAlbedo)
	require.NotNil(t, albedo)
	assert.Equal(t, "bark.png", albedo.Texture.Name())
	assert.Equal(t, wgpu.FilterModeNearest, albedo.Sampler.MagFilter)
	assert.Equal(t, wgpu.MipmapFilterModeNearest, albedo.Sampler.MipmapFilter)
	assert.Equal(t, wgpu.AddressModeClampToEdge, albedo.Sampler.AddressModeU)
	assert.Equal(t, wgpu.AddressModeRepeat, albedo.Sampler.AddressModeV)
	assert.NotNil(t, bark.TextureInfo(content.TextureClassNormal))
	assert.Nil(t, bark.TextureInfo(content.TextureClassMetalRough))

	leaf := mats[1]
	assert.Equal(t, content.BlendModeMask, leaf.BlendMode())
	assert.InDelta(t, 0.3, leaf.AlphaCutoff(), 1e-6)

	stem := surfaceOf(t, inst[0])
	assert.Equal(t, bark, stem.Material())
	assert.Equal(t, wgpu.IndexFormatUint16, stem.IndexBuffer().Format)
	assert.Equal(t, uint32(3), stem.IndexBuffer().Count)
	assert.True(t, stem.VertexAttributes().Has(content.VertexAttributeNormal))
	assert.Equal(t, uint32(3), stem.VertexBuffer(content.VertexAttributeTexcoord0).Count)

	leafSurf := surfaceOf(t, inst[1])
	assert.Equal(t, wgpu.IndexFormatUint32, leafSurf.IndexBuffer().Format)
	assert.Equal(t, stem.VertexBuffer(content.VertexAttributePosition).Buffer, leafSurf.VertexBuffer(content.VertexAttributePosition).Buffer)

	rock := surfaceOf(t, inst[3])
	assert.Equal(t, mats[2], rock.Material())
	assert.Equal(t, wgpu.IndexFormatUndefined, rock.IndexBuffer().Format)
}

func TestLoadSharesTextureIdentity(t *testing.T) {
	l := NewLoader(WithFS(sceneFS()), WithFirstMeshIndex(10), WithIDBase(1000))

	ivy, err := l.Load("media/Ivy.gltf")
	require.NoError(t, err)
	wall, err := l.Load("media/Wall.gltf")
	require.NoError(t, err)

	a := ivy.Materials()[0].TextureInfo(content.TextureClassAlbedo).Texture
	b := wall.Materials()[0].TextureInfo(content.TextureClassAlbedo).Texture
	assert.Equal(t, a.ID(), b.ID())
	assert.Greater(t, a.ID(), uint64(1000))

	assert.NotEqual(t, ivy.ID(), wall.ID())
	assert.NotEqual(t, ivy.Materials()[0].ID(), wall.Materials()[0].ID())
	assert.Equal(t, uint32(10), ivy.MeshInstances()[0].Index())
	assert.Equal(t, uint32(13), wall.MeshInstances()[0].Index())
}

func TestLoadCachesAndUnloads(t *testing.T) {
	l := NewLoader(WithFS(sceneFS()))

	first, err := l.Load("media/Ivy.gltf")
	require.NoError(t, err)
	again, err := l.Load("media/Ivy.gltf")
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Same(t, first, l.Get("media/Ivy.gltf"))
	assert.Len(t, l.Blocks(), 1)

	removed, ok := l.Unload("media/Ivy.gltf")
	require.True(t, ok)
	assert.Same(t, first, removed)
	assert.Nil(t, l.Get("media/Ivy.gltf"))
	_, ok = l.Unload("media/Ivy.gltf")
	assert.False(t, ok)

	reloaded, err := l.Load("media/Ivy.gltf")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), reloaded.ID())
}

func TestLoadReaderGLB(t *testing.T) {
	doc := `{"asset": {"version": "2.0"},
		"meshes": [{"name": "Stem", "primitives": [{"attributes": {"POSITION": 0}, "indices": 3}]}],
		"buffers": [{"byteLength": 120}],` + ivyBufferViews + `}`
	jsonChunk := []byte(doc)
	for len(jsonChunk)%4 != 0 {
		jsonChunk = append(jsonChunk, ' ')
	}
	bin := make([]byte, 120)

	var glb bytes.Buffer
	total := uint32(12 + 8 + len(jsonChunk) + 8 + len(bin))
	require.NoError(t, binary.Write(&glb, binary.LittleEndian, gltfGLBHeader{Magic: gltfGLBMagic, Version: gltfGLBVersion, Length: total}))
	require.NoError(t, binary.Write(&glb, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: uint32(len(jsonChunk)), ChunkType: gltfGLBChunkJSON}))
	glb.Write(jsonChunk)
	require.NoError(t, binary.Write(&glb, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: uint32(len(bin)), ChunkType: gltfGLBChunkBIN}))
	glb.Write(bin)

	l := NewLoader()
	b, err := l.LoadReader("media/Ivy.glb", &glb, true)
	require.NoError(t, err)
	require.Len(t, b.MeshInstances(), 1)
	assert.Equal(t, "media/Ivy/Stem", b.MeshInstances()[0].Name())
	assert.Equal(t, "default", b.Materials()[0].Name())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		path string
		want error
		text string
	}{
		{name: "unsupported extension", path: "media/Ivy.obj", text: "unsupported file type"},
		{name: "missing file", path: "media/Missing.gltf", text: "failed to read file"},
		{name: "version", doc: `{"asset": {"version": "1.0"}}`, want: errInvalidGLTFVersion},
		{name: "required extension", doc: `{"asset": {"version": "2.0"}, "extensionsRequired": ["KHR_draco_mesh_compression"]}`, text: "KHR_draco_mesh_compression"},
		{
			name: "accessor overrun",
			doc:  strings.Replace(wallDoc, `"count": 3, "type": "VEC3"}`, `"count": 30, "type": "VEC3"}`, 1),
			want: errBufferSizeMismatch,
		},
		{
			name: "material out of range",
			doc:  strings.Replace(wallDoc, `"indices": 4, "material": 0`, `"indices": 4, "material": 9`, 1),
			text: "material index 9 out of range",
		},
		{
			name: "texture without image",
			doc:  strings.Replace(wallDoc, `"textures": [{"source": 0}]`, `"textures": [{}]`, 1),
			text: "no valid image source",
		},
		{
			name: "node cycle",
			doc:  `{"asset": {"version": "2.0"}, "scenes": [{"nodes": [0]}], "nodes": [{"children": [0]}]}`,
			text: "reachable twice",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := sceneFS()
			p := tt.path
			if tt.doc != "" {
				p = "media/Case.gltf"
				fsys[p] = &fstest.MapFile{Data: []byte(tt.doc)}
			}
			l := NewLoader(WithFS(fsys))
			_, err := l.Load(p)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
			if tt.text != "" {
				assert.Contains(t, err.Error(), tt.text)
			}
			assert.Empty(t, l.Blocks())
		})
	}
}

func TestFailedLoadDoesNotConsumeIdentities(t *testing.T) {
	fsys := sceneFS()
	fsys["media/Bad.gltf"] = &fstest.MapFile{Data: []byte(strings.Replace(wallDoc, `"material": 0`, `"material": 9`, 1))}
	l := NewLoader(WithFS(fsys))

	_, err := l.Load("media/Bad.gltf")
	require.Error(t, err)

	b, err := l.Load("media/Ivy.gltf")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), b.MeshInstances()[0].Index())
}

func TestLoadedBlockFeedsResourceTables(t *testing.T) {
	d := renderer.NewNullDevice()
	ps := parameter_set.NewParameterSet(parameter_set.WithLayout(bindless.Layout()))
	tables := bindless.NewManager(d, ps)
	defer tables.Release()

	l := NewLoader(WithFS(sceneFS()))
	ivy, err := l.Load("media/Ivy.gltf")
	require.NoError(t, err)
	wall, err := l.Load("media/Wall.gltf")
	require.NoError(t, err)

	err = tables.OnContentLoaded(ivy)
	var formatErr *bindless.IndexFormatError
	require.True(t, errors.As(err, &formatErr))
	assert.Equal(t, "media/Ivy/Rock", formatErr.Mesh)

	stem, leaf := tables.ArchetypeIndices()
	assert.Equal(t, int32(0), stem)
	assert.Equal(t, int32(1), leaf)
	assert.Equal(t, 3, tables.TextureCount())

	require.NoError(t, tables.OnContentLoaded(wall))
	assert.Equal(t, 3, tables.TextureCount())

	tables.OnContentUnloaded(wall)
	assert.Equal(t, 3, tables.TextureCount())
}
