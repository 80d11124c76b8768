package bindless

import (
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-ivy/common"
	"github.com/Carmen-Shannon/oxy-ivy/engine/content"
	"github.com/Carmen-Shannon/oxy-ivy/engine/renderer"
	"github.com/Carmen-Shannon/oxy-ivy/engine/renderer/parameter_set"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, opts ...renderer.NullDeviceOption) (Manager, *renderer.NullDevice, parameter_set.ParameterSet) {
	t.Helper()
	d := renderer.NewNullDevice(opts...)
	ps := parameter_set.NewParameterSet(parameter_set.WithLayout(Layout()))
	return NewManager(d, ps), d, ps
}

func albedoMaterial(id uint64, tex content.Texture) content.Material {
	return content.NewMaterial(id,
		content.WithMetalRough(0.25, 0.75),
		content.WithTexture(content.TextureClassAlbedo, tex, common.DefaultSamplerDesc()),
	)
}

// quad is a single surface mesh with a 32-bit index buffer and position and normal streams.
func quad(meshID uint32, name string, mat content.Material, ib content.Buffer) content.Mesh {
	return content.NewMesh(meshID, name, content.NewSurface(mat,
		content.WithIndexBuffer(ib, 6, wgpu.IndexFormatUint32),
		content.WithVertexBuffer(content.VertexAttributePosition, content.NewBuffer(1000+uint64(meshID), "pos"), 4),
		content.WithVertexBuffer(content.VertexAttributeNormal, content.NewBuffer(2000+uint64(meshID), "nrm"), 4),
	))
}

func TestScenarioSingleAlbedoTexture(t *testing.T) {
	m, _, ps := newTestManager(t)
	tex := content.NewTexture(7, "bark")
	mat := albedoMaterial(1, tex)
	block := content.NewBlock(1, []content.Material{mat}, []content.Mesh{quad(0, "wall", mat, content.NewBuffer(1, "ib"))})

	require.NoError(t, m.OnContentLoaded(block))

	assert.Equal(t, 1, m.TextureCount())
	assert.Equal(t, 1, m.SamplerCount())
	mats := m.Materials()
	require.Len(t, mats, 1)
	assert.Equal(t, int32(0), mats[0].AlbedoTexID)
	assert.Equal(t, int32(0), mats[0].AlbedoTexSamplerID)
	assert.Equal(t, int32(-1), mats[0].NormalTexID)
	assert.Equal(t, [3]float32{1, 0.75, 0.25}, mats[0].ARMFactor)
	assert.Equal(t, int32(1), mats[0].IsOpaque)

	assert.Equal(t, tex, ps.Texture(TextureBeginSlot))
	assert.NotNil(t, ps.Sampler(SamplerBeginSlot))
	for slot := MaterialInfoSlot; slot <= SurfaceInfoSlot; slot++ {
		assert.NotNil(t, ps.Buffer(slot), "info slot %d", slot)
	}
	assert.NotNil(t, ps.ContentBuffer(IndexBufferBeginSlot))
	assert.NotNil(t, ps.ContentBuffer(VertexBufferBeginSlot+1))
}

func TestScenarioSharedTextureAcrossLoadsAndUnloads(t *testing.T) {
	m, _, ps := newTestManager(t)
	tex := content.NewTexture(7, "leaf")
	first := content.NewBlock(1, []content.Material{albedoMaterial(1, tex)}, nil)
	second := content.NewBlock(2, []content.Material{albedoMaterial(2, tex)}, nil)

	require.NoError(t, m.OnContentLoaded(first))
	require.NoError(t, m.OnContentLoaded(second))
	assert.Equal(t, 1, m.TextureCount())
	assert.Equal(t, 2, m.TextureRefCount(0))

	m.OnContentUnloaded(first)
	assert.Equal(t, 1, m.TextureRefCount(0))
	assert.Equal(t, tex, m.Texture(0))
	assert.Equal(t, tex, ps.Texture(TextureBeginSlot))

	m.OnContentUnloaded(first)
	assert.Equal(t, 1, m.TextureRefCount(0))

	m.OnContentUnloaded(second)
	assert.Equal(t, 0, m.TextureRefCount(0))
	assert.Nil(t, m.Texture(0))
	assert.Nil(t, ps.Texture(TextureBeginSlot))

	other := content.NewTexture(8, "stone")
	idx, _, err := m.AddTexture(albedoMaterial(3, other), content.TextureClassAlbedo)
	require.NoError(t, err)
	assert.Equal(t, int32(0), idx)
	assert.Equal(t, 1, m.TextureCount())
}

func TestScenarioSharedIndexBuffer(t *testing.T) {
	m, _, _ := newTestManager(t)
	mat := content.NewMaterial(1)
	ib := content.NewBuffer(1, "shared ib")
	block := content.NewBlock(1, []content.Material{mat}, []content.Mesh{
		quad(0, "a", mat, ib),
		quad(1, "b", mat, ib),
	})

	require.NoError(t, m.OnContentLoaded(block))
	assert.Equal(t, 1, m.IndexBufferCount())
	assert.Equal(t, 4, m.VertexBufferCount())
	surfaces := m.Surfaces()
	require.Len(t, surfaces, 2)
	assert.Equal(t, int32(0), surfaces[0].IndexOffset)
	assert.Equal(t, int32(0), surfaces[1].IndexOffset)
	assert.Equal(t, IndexTypeU32, surfaces[1].IndexType)
	assert.Equal(t, int32(2), surfaces[1].PositionAttributeOffset)
	assert.Equal(t, int32(3), surfaces[1].NormalAttributeOffset)
	assert.Equal(t, int32(-1), surfaces[1].TangentAttributeOffset)
	assert.Equal(t, int32(0), surfaces[1].MaterialID)
}

func TestAddTextureProperties(t *testing.T) {
	m, _, _ := newTestManager(t)
	texA := content.NewTexture(1, "a")
	texB := content.NewTexture(2, "b")
	texC := content.NewTexture(3, "c")

	t.Run("absent class has no side effect", func(t *testing.T) {
		idx, sampler, err := m.AddTexture(content.NewMaterial(9), content.TextureClassNormal)
		require.NoError(t, err)
		assert.Equal(t, int32(-1), idx)
		assert.Equal(t, int32(-1), sampler)
		assert.Zero(t, m.SamplerCount())
	})

	a1, _, err := m.AddTexture(albedoMaterial(1, texA), content.TextureClassAlbedo)
	require.NoError(t, err)
	a2, _, err := m.AddTexture(albedoMaterial(2, texA), content.TextureClassAlbedo)
	require.NoError(t, err)
	assert.Equal(t, a1, a2)
	assert.Equal(t, 2, m.TextureRefCount(a1))

	b, _, err := m.AddTexture(albedoMaterial(3, texB), content.TextureClassAlbedo)
	require.NoError(t, err)
	assert.Equal(t, int32(1), b)

	m.RemoveTexture(a1)
	m.RemoveTexture(a1)
	assert.Equal(t, 0, m.TextureRefCount(a1))
	m.RemoveTexture(a1)
	m.RemoveTexture(-1)
	assert.Equal(t, 0, m.TextureRefCount(a1))

	assert.Equal(t, texB, m.Texture(b))

	c, _, err := m.AddTexture(albedoMaterial(4, texC), content.TextureClassAlbedo)
	require.NoError(t, err)
	assert.Equal(t, a1, c)
	assert.Equal(t, texB, m.Texture(b))
	assert.Equal(t, 2, m.TextureCount())
	assert.Equal(t, 1, m.SamplerCount())
}

func TestSamplerDedupByDescriptor(t *testing.T) {
	m, d, _ := newTestManager(t)
	clamp := common.DefaultSamplerDesc()
	clamp.AddressModeU = wgpu.AddressModeClampToEdge

	mat := content.NewMaterial(1,
		content.WithMetalRough(0, 1),
		content.WithTexture(content.TextureClassAlbedo, content.NewTexture(1, "a"), common.DefaultSamplerDesc()),
		content.WithTexture(content.TextureClassMetalRough, content.NewTexture(2, "mr"), clamp),
		content.WithTexture(content.TextureClassNormal, content.NewTexture(3, "n"), common.DefaultSamplerDesc()),
		content.WithTexture(content.TextureClassEmissive, content.NewTexture(4, "e"), clamp),
	)
	require.NoError(t, m.OnContentLoaded(content.NewBlock(1, []content.Material{mat}, nil)))

	info := m.Materials()[0]
	assert.Equal(t, 2, m.SamplerCount())
	assert.Len(t, d.Samplers(), 2)
	assert.Equal(t, info.AlbedoTexSamplerID, info.NormalTexSamplerID)
	assert.Equal(t, info.ARMTexSamplerID, info.EmissionTexSamplerID)
	assert.NotEqual(t, info.AlbedoTexSamplerID, info.ARMTexSamplerID)
	assert.Equal(t, [4]int32{0, 1, 3, 2}, info.textureIDs())
}

func TestCapacityRollsBackBlock(t *testing.T) {
	m, d, ps := newTestManager(t)
	keep := content.NewTexture(1, "keep")
	require.NoError(t, m.OnContentLoaded(content.NewBlock(1, []content.Material{albedoMaterial(1, keep)}, nil)))

	var mats []content.Material
	for i := range MaxSamplers {
		desc := common.DefaultSamplerDesc()
		desc.LodMaxClamp = float32(i)
		mats = append(mats, content.NewMaterial(uint64(100+i),
			content.WithMetalRough(0, 1),
			content.WithTexture(content.TextureClassAlbedo, keep, desc),
		))
	}
	err := m.OnContentLoaded(content.NewBlock(2, mats, nil))

	var capErr *CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, "sampler", capErr.Table)
	assert.Equal(t, MaxSamplers, capErr.Limit)

	assert.Equal(t, 1, m.SamplerCount())
	assert.Equal(t, 1, m.TextureRefCount(0))
	assert.Len(t, m.Materials(), 1)
	for _, s := range d.Samplers()[1:] {
		assert.True(t, s.Released())
	}
	assert.Equal(t, 1, ps.Count(renderer.BindingKindSampler))

	m.OnContentUnloaded(content.NewBlock(2, nil, nil))
	assert.Equal(t, 1, m.TextureRefCount(0))
}

func TestTextureCapacity(t *testing.T) {
	m, _, _ := newTestManager(t)
	var mats []content.Material
	for i := range MaxTextures + 1 {
		mats = append(mats, albedoMaterial(uint64(i), content.NewTexture(uint64(i), "t")))
	}
	err := m.OnContentLoaded(content.NewBlock(1, mats, nil))
	var capErr *CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, "texture", capErr.Table)
	assert.Zero(t, m.TextureCount())

	require.NoError(t, m.OnContentLoaded(content.NewBlock(2, mats[:MaxTextures], nil)))
	assert.Equal(t, MaxTextures, m.TextureCount())
}

func TestUploadFailureRollsBack(t *testing.T) {
	boom := errors.New("out of memory")
	m, _, ps := newTestManager(t, renderer.WithBufferError(boom))
	mat := albedoMaterial(1, content.NewTexture(1, "t"))
	block := content.NewBlock(1, []content.Material{mat}, []content.Mesh{quad(0, "m", mat, content.NewBuffer(1, "ib"))})

	err := m.OnContentLoaded(block)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, m.TextureCount())
	assert.Empty(t, m.Surfaces())
	assert.Zero(t, m.IndexBufferCount())
	assert.Nil(t, ps.Buffer(MaterialInfoSlot))
}

func TestUnsupportedIndexFormatKeepsBlock(t *testing.T) {
	m, _, _ := newTestManager(t)
	mat := albedoMaterial(1, content.NewTexture(1, "t"))
	bad := content.NewMesh(1, "bad", content.NewSurface(mat,
		content.WithIndexBuffer(content.NewBuffer(5, "ib8"), 3, wgpu.IndexFormatUndefined),
	))
	block := content.NewBlock(1, []content.Material{mat}, []content.Mesh{quad(0, "good", mat, content.NewBuffer(1, "ib")), bad})

	err := m.OnContentLoaded(block)
	var fmtErr *IndexFormatError
	require.ErrorAs(t, err, &fmtErr)
	assert.Equal(t, "bad", fmtErr.Mesh)
	assert.Equal(t, 0, fmtErr.Surface)

	surfaces := m.Surfaces()
	require.Len(t, surfaces, 2)
	assert.Equal(t, IndexTypeU32, surfaces[0].IndexType)
	assert.Equal(t, IndexTypeInvalid, surfaces[1].IndexType)

	m.OnContentUnloaded(block)
	assert.Equal(t, 0, m.TextureRefCount(0))
}

func TestInstancesIndexedByMeshID(t *testing.T) {
	m, _, _ := newTestManager(t)
	mat := content.NewMaterial(1)
	ib := content.NewBuffer(1, "ib")
	mixed := content.NewMesh(3, "mixed",
		content.NewSurface(mat, content.WithIndexBuffer(ib, 3, wgpu.IndexFormatUint16)),
		content.NewSurface(mat, content.WithIndexBuffer(ib, 3, wgpu.IndexFormatUint16), content.WithTranslucency(true)),
	)
	first := quad(0, "first", mat, ib)
	block := content.NewBlock(1, []content.Material{mat}, []content.Mesh{first, mixed, first})

	require.NoError(t, m.OnContentLoaded(block))
	instances := m.Instances()
	require.Len(t, instances, 4)
	assert.True(t, instances[1].Empty())
	assert.True(t, instances[2].Empty())
	assert.Equal(t, InstanceInfo{SurfaceIDTableOffset: 1, NumOpaqueSurfaces: 1, NodeID: 3, NumSurfaces: 2}, instances[3])
	assert.Equal(t, []uint32{0, 1, 2}, m.SurfaceIDs())
	assert.Len(t, m.Surfaces(), 3)
}

func TestArchetypeIndices(t *testing.T) {
	m, _, _ := newTestManager(t)
	stem, leaf := m.ArchetypeIndices()
	assert.Equal(t, NotFound, stem)
	assert.Equal(t, NotFound, leaf)

	mat := content.NewMaterial(1)
	ib := content.NewBuffer(1, "ib")
	block := content.NewBlock(1, []content.Material{mat}, []content.Mesh{
		quad(0, "wall", mat, ib),
		quad(1, `..\media\Ivy\Stem`, mat, ib),
	})
	require.NoError(t, m.OnContentLoaded(block))
	stem, leaf = m.ArchetypeIndices()
	assert.Equal(t, int32(1), stem)
	assert.Equal(t, NotFound, leaf)
}

func TestMatchesMesh(t *testing.T) {
	tests := []struct {
		name, suffix string
		want         bool
	}{
		{`..\media\Ivy\Stem`, DefaultStemMesh, true},
		{"assets/media/Ivy/Leaf", DefaultLeafMesh, true},
		{"media/Ivy/Leaf", DefaultLeafMesh, true},
		{"othermedia/Ivy/Leaf", DefaultLeafMesh, false},
		{"media/Ivy/Leaves", DefaultLeafMesh, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, matchesMesh(tt.name, tt.suffix), tt.name)
	}
}

func TestCapacityInvariantHolds(t *testing.T) {
	m, _, ps := newTestManager(t)
	mat := albedoMaterial(1, content.NewTexture(1, "t"))
	var meshes []content.Mesh
	for i := range 50 {
		meshes = append(meshes, quad(uint32(i), "m", mat, content.NewBuffer(uint64(i), "ib")))
	}
	require.NoError(t, m.OnContentLoaded(content.NewBlock(1, []content.Material{mat}, meshes)))
	assert.LessOrEqual(t, m.TextureCount(), MaxTextures)
	assert.LessOrEqual(t, m.SamplerCount(), MaxSamplers)
	assert.LessOrEqual(t, m.IndexBufferCount(), MaxBuffers)
	assert.LessOrEqual(t, m.VertexBufferCount(), MaxBuffers)
	assert.Equal(t, 4+50+100, ps.Count(renderer.BindingKindBuffer))
}

func TestReleaseFreesDeviceObjects(t *testing.T) {
	m, d, _ := newTestManager(t)
	mat := albedoMaterial(1, content.NewTexture(1, "t"))
	require.NoError(t, m.OnContentLoaded(content.NewBlock(1, []content.Material{mat}, []content.Mesh{quad(0, "m", mat, content.NewBuffer(1, "ib"))})))
	require.NoError(t, m.OnContentLoaded(content.NewBlock(2, nil, []content.Mesh{quad(1, "n", mat, content.NewBuffer(2, "ib"))})))

	buffers := d.Buffers()
	require.Len(t, buffers, 8)
	for _, b := range buffers[:4] {
		assert.True(t, b.Released())
	}
	m.Release()
	for _, b := range buffers[4:] {
		assert.True(t, b.Released())
	}
	assert.True(t, d.Samplers()[0].Released())
}

func TestMeshIndexBeyondInstanceCapacity(t *testing.T) {
	tests := []struct {
		name  string
		opts  []ManagerOption
		index uint32
		limit int
	}{
		{"max uint32", nil, math.MaxUint32, MaxInstances},
		{"first past default", nil, MaxInstances, MaxInstances},
		{"configured", []ManagerOption{WithMaxInstances(4)}, 4, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := renderer.NewNullDevice()
			ps := parameter_set.NewParameterSet(parameter_set.WithLayout(Layout()))
			m := NewManager(d, ps, tt.opts...)

			mat := albedoMaterial(1, content.NewTexture(1, "t"))
			block := content.NewBlock(1, []content.Material{mat}, []content.Mesh{quad(tt.index, "far", mat, content.NewBuffer(1, "ib"))})
			err := m.OnContentLoaded(block)

			var capErr *CapacityError
			require.ErrorAs(t, err, &capErr)
			assert.Equal(t, "instance", capErr.Table)
			assert.Equal(t, tt.limit, capErr.Limit)
			assert.Empty(t, m.Instances())
			assert.Empty(t, m.Surfaces())
			assert.Empty(t, m.Materials())
			assert.Zero(t, m.TextureCount())
		})
	}
}

func TestMeshIndexWithinInstanceCapacity(t *testing.T) {
	d := renderer.NewNullDevice()
	ps := parameter_set.NewParameterSet(parameter_set.WithLayout(Layout()))
	m := NewManager(d, ps, WithMaxInstances(4))

	mat := albedoMaterial(1, content.NewTexture(1, "t"))
	block := content.NewBlock(1, []content.Material{mat}, []content.Mesh{quad(3, "near", mat, content.NewBuffer(1, "ib"))})
	require.NoError(t, m.OnContentLoaded(block))

	instances := m.Instances()
	require.Len(t, instances, 4)
	assert.Equal(t, int32(3), instances[3].NodeID)
	assert.True(t, instances[0].Empty())
}
