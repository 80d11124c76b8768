// Package bindless maintains the resource tables the generation stages read without per-draw
// bindings: refcounted texture slots, deduplicated samplers and geometry buffers, and the flattened
// material, instance and surface records rebuilt on every content load.
package bindless

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Carmen-Shannon/oxy-ivy/common"
	"github.com/Carmen-Shannon/oxy-ivy/engine/content"
	"github.com/Carmen-Shannon/oxy-ivy/engine/renderer"
	"github.com/Carmen-Shannon/oxy-ivy/engine/renderer/parameter_set"
	"github.com/cogentcore/webgpu/wgpu"
)

// NotFound is the archetype surface index used until the archetype mesh is loaded.
const NotFound int32 = -1

// geometryAttributes are the vertex streams the generation stages read.
var geometryAttributes = []content.VertexAttributeType{
	content.VertexAttributePosition,
	content.VertexAttributeNormal,
	content.VertexAttributeTangent,
	content.VertexAttributeTexcoord0,
	content.VertexAttributeTexcoord1,
}

// materialRange is a run of MaterialInfo records added by one block load.
type materialRange struct {
	start, end int
}

// manager is the implementation of the Manager interface.
type manager struct {
	device renderer.Device
	params parameter_set.ParameterSet

	stemMesh     string
	leafMesh     string
	maxInstances int

	textures      textureTable
	samplers      samplerTable
	indexBuffers  bufferTable
	vertexBuffers bufferTable

	materials  []MaterialInfo
	instances  []InstanceInfo
	surfaces   []SurfaceInfo
	surfaceIDs []uint32

	stemIndex int32
	leafIndex int32

	// blocks maps a block ID to the material runs its loads added.
	blocks map[uint64][]materialRange

	// infoBuffers are the uploaded material, instance, surface id and surface arrays.
	infoBuffers [4]renderer.Buffer
}

// Manager owns the bindless tables for one parameter set.
//
// Manager is not safe for concurrent use. Content notifications and the per-frame bind must be
// serialized by the owner.
type Manager interface {
	// AddTexture references the material's texture of a class, registering its sampler and a
	// texture slot as needed. A texture already in the table has its refcount incremented and keeps
	// its slot.
	//
	// Parameters:
	//   - mat: the material
	//   - class: the texture class to look up
	//
	// Returns:
	//   - int32: the texture slot, -1 if the material has no texture of that class
	//   - int32: the sampler slot, -1 if the material has no texture of that class
	//   - error: a *CapacityError if a table is full, or the sampler creation error
	AddTexture(mat content.Material, class content.TextureClass) (int32, int32, error)

	// RemoveTexture drops one reference from a texture slot. When the refcount reaches zero the
	// slot forgets its texture and becomes the first candidate for reuse. Negative indices and
	// already free slots are ignored.
	//
	// Parameters:
	//   - index: the texture slot
	RemoveTexture(index int32)

	// OnContentLoaded appends the block's materials, meshes and surfaces to the flattened arrays,
	// uploads all four arrays and rebinds every table into the parameter set.
	//
	// A *CapacityError or device error rolls the whole block back. Surfaces with an unsupported
	// index format are kept with IndexTypeInvalid and reported as joined *IndexFormatError values
	// while the rest of the block stays loaded.
	//
	// Parameters:
	//   - block: the loaded content block
	//
	// Returns:
	//   - error: nil, a rollback error, or the joined index format errors
	OnContentLoaded(block content.Block) error

	// OnContentUnloaded drops every texture reference the block's materials added. The flattened
	// arrays are not compacted. Unknown or already unloaded blocks are ignored.
	//
	// Parameters:
	//   - block: the unloaded content block
	OnContentUnloaded(block content.Block)

	// TextureCount returns the texture table size, tombstones included.
	TextureCount() int

	// TextureRefCount returns the refcount of a texture slot, 0 for free or out of range slots.
	TextureRefCount(index int32) int

	// Texture returns the texture held by a slot, nil for free or out of range slots.
	Texture(index int32) content.Texture

	// SamplerCount returns the sampler table size.
	SamplerCount() int

	// IndexBufferCount returns the index buffer table size.
	IndexBufferCount() int

	// VertexBufferCount returns the vertex buffer table size.
	VertexBufferCount() int

	// Materials returns a copy of the flattened material records.
	Materials() []MaterialInfo

	// Instances returns a copy of the instance records indexed by mesh id.
	Instances() []InstanceInfo

	// Surfaces returns a copy of the flattened surface records.
	Surfaces() []SurfaceInfo

	// SurfaceIDs returns a copy of the surface id indirection table.
	SurfaceIDs() []uint32

	// ArchetypeIndices returns the first surface index of the stem and leaf meshes, NotFound when
	// not loaded.
	ArchetypeIndices() (stem, leaf int32)

	// Release frees the uploaded arrays and the samplers.
	Release()
}

var _ Manager = &manager{}

// NewManager creates a Manager binding into params.
//
// Parameters:
//   - device: the device used for samplers and info buffer uploads
//   - params: the parameter set the tables are bound into; it must declare Layout()
//   - options: ManagerOption values
//
// Returns:
//   - Manager: the table manager
func NewManager(device renderer.Device, params parameter_set.ParameterSet, options ...ManagerOption) Manager {
	if device == nil || params == nil {
		panic("bindless: device and parameter set cannot be nil")
	}
	m := &manager{
		device:        device,
		params:        params,
		stemMesh:      DefaultStemMesh,
		leafMesh:      DefaultLeafMesh,
		maxInstances:  MaxInstances,
		textures:      newTextureTable(),
		samplers:      newSamplerTable(),
		indexBuffers:  newBufferTable("index buffer"),
		vertexBuffers: newBufferTable("vertex buffer"),
		stemIndex:     NotFound,
		leafIndex:     NotFound,
		blocks:        make(map[uint64][]materialRange),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *manager) AddTexture(mat content.Material, class content.TextureClass) (int32, int32, error) {
	info := mat.TextureInfo(class)
	if info == nil || info.Texture == nil {
		return -1, -1, nil
	}
	sampler, err := m.samplers.resolve(m.device, info.Sampler)
	if err != nil {
		return -1, -1, fmt.Errorf("sampler for %s texture of %s: %w", class, mat.Name(), err)
	}
	slot, err := m.textures.add(info.Texture)
	if err != nil {
		return -1, -1, err
	}
	return slot, sampler, nil
}

func (m *manager) RemoveTexture(index int32) {
	m.textures.remove(index)
}

// snapshot is the table state before a block load, restored when the load fails.
type snapshot struct {
	textures      textureTable
	samplers      int
	indexBuffers  int
	vertexBuffers int
	materials     int
	surfaces      int
	surfaceIDs    int
	instances     []InstanceInfo
	stemIndex     int32
	leafIndex     int32
}

func (m *manager) snapshot() snapshot {
	return snapshot{
		textures:      m.textures.clone(),
		samplers:      len(m.samplers.samplers),
		indexBuffers:  len(m.indexBuffers.buffers),
		vertexBuffers: len(m.vertexBuffers.buffers),
		materials:     len(m.materials),
		surfaces:      len(m.surfaces),
		surfaceIDs:    len(m.surfaceIDs),
		instances:     slices.Clone(m.instances),
		stemIndex:     m.stemIndex,
		leafIndex:     m.leafIndex,
	}
}

func (m *manager) restore(s snapshot) {
	m.textures = s.textures
	m.samplers.truncate(s.samplers)
	m.indexBuffers.truncate(s.indexBuffers)
	m.vertexBuffers.truncate(s.vertexBuffers)
	m.materials = m.materials[:s.materials]
	m.surfaces = m.surfaces[:s.surfaces]
	m.surfaceIDs = m.surfaceIDs[:s.surfaceIDs]
	m.instances = s.instances
	m.stemIndex = s.stemIndex
	m.leafIndex = s.leafIndex
}

func (m *manager) OnContentLoaded(block content.Block) error {
	log := common.ComponentLogger("bindless")
	snap := m.snapshot()

	formatErrs, err := m.load(block)
	if err == nil && len(m.surfaces) > 0 {
		err = m.upload()
	}
	if err == nil {
		err = m.bind()
	}
	if err != nil {
		m.restore(snap)
		log.Warn("content block rolled back", slog.Uint64("block", block.ID()), slog.Any("error", err))
		return fmt.Errorf("loading content block %d: %w", block.ID(), err)
	}

	m.blocks[block.ID()] = append(m.blocks[block.ID()], materialRange{start: snap.materials, end: len(m.materials)})
	log.Debug("content block loaded",
		slog.Uint64("block", block.ID()),
		slog.Int("materials", len(m.materials)),
		slog.Int("instances", len(m.instances)),
		slog.Int("surfaces", len(m.surfaces)),
		slog.Int("textures", len(m.textures.slots)),
		slog.Int("samplers", len(m.samplers.samplers)),
		slog.Int("index_buffers", len(m.indexBuffers.buffers)),
		slog.Int("vertex_buffers", len(m.vertexBuffers.buffers)),
	)
	for _, fe := range formatErrs {
		log.Warn("surface skipped", slog.Any("error", fe))
	}
	return errors.Join(formatErrs...)
}

// load appends the block to the tables and flattened arrays. Index format problems are collected
// rather than returned as err.
func (m *manager) load(block content.Block) ([]error, error) {
	materialOffset := len(m.materials)
	materialIndex := make(map[uint64]int32)
	for i, mat := range block.Materials() {
		info, err := m.materialInfo(mat)
		if err != nil {
			return nil, err
		}
		m.materials = append(m.materials, info)
		if _, ok := materialIndex[mat.ID()]; !ok {
			materialIndex[mat.ID()] = int32(materialOffset + i)
		}
	}

	var formatErrs []error
	seen := make(map[uint32]bool)
	for _, mesh := range block.MeshInstances() {
		if seen[mesh.Index()] {
			continue
		}
		seen[mesh.Index()] = true
		if uint64(mesh.Index()) >= uint64(m.maxInstances) {
			return nil, &CapacityError{Table: "instance", Count: int(mesh.Index()) + 1, Limit: m.maxInstances}
		}

		instance := InstanceInfo{
			SurfaceIDTableOffset: int32(len(m.surfaceIDs)),
			NodeID:               int32(mesh.Index()),
		}
		switch {
		case matchesMesh(mesh.Name(), m.stemMesh):
			m.stemIndex = int32(len(m.surfaces))
		case matchesMesh(mesh.Name(), m.leafMesh):
			m.leafIndex = int32(len(m.surfaces))
		}

		for si, surf := range mesh.Surfaces() {
			m.surfaceIDs = append(m.surfaceIDs, uint32(len(m.surfaces)))
			info, formatErr, err := m.surfaceInfo(surf, materialIndex)
			if err != nil {
				return nil, err
			}
			if formatErr {
				formatErrs = append(formatErrs, &IndexFormatError{Mesh: mesh.Name(), Surface: si, Format: surf.IndexBuffer().Format})
			}
			m.surfaces = append(m.surfaces, info)
			instance.NumSurfaces++
			if !surf.HasTranslucency() {
				instance.NumOpaqueSurfaces++
			}
		}

		if int(mesh.Index()) >= len(m.instances) {
			m.instances = append(m.instances, make([]InstanceInfo, int(mesh.Index())+1-len(m.instances))...)
		}
		m.instances[mesh.Index()] = instance
	}
	return formatErrs, nil
}

func (m *manager) materialInfo(mat content.Material) (MaterialInfo, error) {
	pbr := mat.PBRInfo()
	emissive := mat.EmissiveColor()
	info := MaterialInfo{
		AlbedoFactor:         mat.AlbedoColor(),
		ARMFactor:            [3]float32{1, pbr[1], pbr[0]},
		ARMTexID:             -1,
		ARMTexSamplerID:      -1,
		EmissionFactor:       emissive,
		EmissionTexID:        -1,
		EmissionTexSamplerID: -1,
		NormalTexID:          -1,
		NormalTexSamplerID:   -1,
		AlbedoTexID:          -1,
		AlbedoTexSamplerID:   -1,
		AlphaCutoff:          mat.AlphaCutoff(),
	}
	if mat.BlendMode() == content.BlendModeOpaque {
		info.IsOpaque = 1
	}

	var err error
	if mat.HasPBRInfo() {
		if info.AlbedoTexID, info.AlbedoTexSamplerID, err = m.AddTexture(mat, content.TextureClassAlbedo); err != nil {
			return info, err
		}
		switch {
		case mat.HasPBRMetalRough():
			info.ARMTexID, info.ARMTexSamplerID, err = m.AddTexture(mat, content.TextureClassMetalRough)
		case mat.HasPBRSpecGloss():
			info.ARMTexID, info.ARMTexSamplerID, err = m.AddTexture(mat, content.TextureClassSpecGloss)
		}
		if err != nil {
			return info, err
		}
	}
	if info.NormalTexID, info.NormalTexSamplerID, err = m.AddTexture(mat, content.TextureClassNormal); err != nil {
		return info, err
	}
	if info.EmissionTexID, info.EmissionTexSamplerID, err = m.AddTexture(mat, content.TextureClassEmissive); err != nil {
		return info, err
	}
	return info, nil
}

// surfaceInfo builds the record of one surface. badFormat is true when the index format is not
// readable by the generation stages.
func (m *manager) surfaceInfo(surf content.Surface, materialIndex map[uint64]int32) (info SurfaceInfo, badFormat bool, err error) {
	info = newSurfaceInfo()
	ib := surf.IndexBuffer()
	info.NumIndices = int32(ib.Count)
	info.NumVertices = int32(surf.VertexBuffer(content.VertexAttributePosition).Count)

	if ib.Buffer != nil {
		if info.IndexOffset, err = m.indexBuffers.resolve(ib.Buffer); err != nil {
			return info, false, err
		}
	}
	switch ib.Format {
	case wgpu.IndexFormatUint16:
		info.IndexType = IndexTypeU16
	case wgpu.IndexFormatUint32:
		info.IndexType = IndexTypeU32
	default:
		info.IndexType = IndexTypeInvalid
		badFormat = true
	}

	attrs := surf.VertexAttributes()
	for _, attr := range geometryAttributes {
		vb := surf.VertexBuffer(attr)
		if !attrs.Has(attr) || vb.Buffer == nil {
			continue
		}
		slot, err := m.vertexBuffers.resolve(vb.Buffer)
		if err != nil {
			return info, badFormat, err
		}
		switch attr {
		case content.VertexAttributePosition:
			info.PositionAttributeOffset = slot
		case content.VertexAttributeNormal:
			info.NormalAttributeOffset = slot
		case content.VertexAttributeTangent:
			info.TangentAttributeOffset = slot
		case content.VertexAttributeTexcoord0:
			info.Texcoord0AttributeOffset = slot
		case content.VertexAttributeTexcoord1:
			info.Texcoord1AttributeOffset = slot
		}
	}

	if mat := surf.Material(); mat != nil {
		if i, ok := materialIndex[mat.ID()]; ok {
			info.MaterialID = i
		}
	}
	return info, badFormat, nil
}

// upload replaces the four info buffers. The previous buffers are released only once all four
// new ones exist.
func (m *manager) upload() error {
	data := [4]struct {
		label string
		bytes []byte
	}{
		{"MaterialInfo", marshalAll(m.materials, MaterialInfoSize)},
		{"InstanceInfo", marshalAll(m.instances, InstanceInfoSize)},
		{"SurfaceIDs", marshalUint32s(m.surfaceIDs)},
		{"SurfaceInfo", marshalAll(m.surfaces, SurfaceInfoSize)},
	}
	var next [4]renderer.Buffer
	for i, d := range data {
		buf, err := m.device.CreateBuffer(renderer.BufferDesc{
			Label: d.label,
			Size:  uint64(len(d.bytes)),
			Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
			Data:  d.bytes,
		})
		if err != nil {
			for _, b := range next[:i] {
				b.Release()
			}
			return fmt.Errorf("uploading %s: %w", d.label, err)
		}
		next[i] = buf
	}
	for _, b := range m.infoBuffers {
		if b != nil {
			b.Release()
		}
	}
	m.infoBuffers = next
	return nil
}

// bind writes every table into the parameter set. Free texture slots are unbound.
func (m *manager) bind() error {
	for i, b := range m.infoBuffers {
		if b == nil {
			continue
		}
		if err := m.params.SetBuffer(MaterialInfoSlot+i, b); err != nil {
			return err
		}
	}
	if err := m.bindTextures(); err != nil {
		return err
	}
	for i, s := range m.samplers.samplers {
		if err := m.params.SetSampler(SamplerBeginSlot+i, s); err != nil {
			return err
		}
	}
	for i, b := range m.indexBuffers.buffers {
		if err := m.params.SetContentBuffer(IndexBufferBeginSlot+i, b); err != nil {
			return err
		}
	}
	for i, b := range m.vertexBuffers.buffers {
		if err := m.params.SetContentBuffer(VertexBufferBeginSlot+i, b); err != nil {
			return err
		}
	}
	return nil
}

func (m *manager) bindTextures() error {
	for i, slot := range m.textures.slots {
		if err := m.params.SetTexture(TextureBeginSlot+i, slot.texture); err != nil {
			return err
		}
	}
	return nil
}

func (m *manager) OnContentUnloaded(block content.Block) {
	ranges, ok := m.blocks[block.ID()]
	if !ok {
		return
	}
	delete(m.blocks, block.ID())
	for _, r := range ranges {
		for k := r.start; k < r.end; k++ {
			for _, id := range m.materials[k].textureIDs() {
				m.textures.remove(id)
			}
		}
	}
	if err := m.bindTextures(); err != nil {
		common.ComponentLogger("bindless").Warn("unbinding textures", slog.Any("error", err))
	}
}

func (m *manager) TextureCount() int {
	return len(m.textures.slots)
}

func (m *manager) TextureRefCount(index int32) int {
	if index < 0 || int(index) >= len(m.textures.slots) {
		return 0
	}
	return m.textures.slots[index].count
}

func (m *manager) Texture(index int32) content.Texture {
	if index < 0 || int(index) >= len(m.textures.slots) {
		return nil
	}
	return m.textures.slots[index].texture
}

func (m *manager) SamplerCount() int {
	return len(m.samplers.samplers)
}

func (m *manager) IndexBufferCount() int {
	return len(m.indexBuffers.buffers)
}

func (m *manager) VertexBufferCount() int {
	return len(m.vertexBuffers.buffers)
}

func (m *manager) Materials() []MaterialInfo {
	return slices.Clone(m.materials)
}

func (m *manager) Instances() []InstanceInfo {
	return slices.Clone(m.instances)
}

func (m *manager) Surfaces() []SurfaceInfo {
	return slices.Clone(m.surfaces)
}

func (m *manager) SurfaceIDs() []uint32 {
	return slices.Clone(m.surfaceIDs)
}

func (m *manager) ArchetypeIndices() (int32, int32) {
	return m.stemIndex, m.leafIndex
}

func (m *manager) Release() {
	for i, b := range m.infoBuffers {
		if b != nil {
			b.Release()
			m.infoBuffers[i] = nil
		}
	}
	m.samplers.truncate(0)
}
