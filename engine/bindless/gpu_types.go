package bindless

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// MaterialInfo is the GPU record of one material. Texture and sampler ids are table indices, -1
// when the material has no texture of that class.
// Matches the WGSL MaterialInfo struct layout exactly. Size: 80 bytes.
type MaterialInfo struct {
	AlbedoFactor [4]float32 // offset 0

	// ARMFactor is (ambient occlusion, roughness, metalness).
	ARMFactor       [3]float32 // offset 16
	ARMTexID        int32      // offset 28
	ARMTexSamplerID int32      // offset 32

	EmissionFactor       [3]float32 // offset 36
	EmissionTexID        int32      // offset 48
	EmissionTexSamplerID int32      // offset 52

	NormalTexID        int32   // offset 56
	NormalTexSamplerID int32   // offset 60
	AlbedoTexID        int32   // offset 64
	AlbedoTexSamplerID int32   // offset 68
	AlphaCutoff        float32 // offset 72
	IsOpaque           int32   // offset 76
}

// MaterialInfoSize is the packed size of MaterialInfo in bytes.
const MaterialInfoSize = 80

// Size returns the size of the MaterialInfo struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (m *MaterialInfo) Size() int {
	return int(unsafe.Sizeof(*m))
}

// Marshal serializes the MaterialInfo into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 80-byte buffer ready for GPU upload.
func (m *MaterialInfo) Marshal() []byte {
	buf := make([]byte, MaterialInfoSize)
	m.put(buf)
	return buf
}

func (m *MaterialInfo) put(buf []byte) {
	f := func(off int, v float32) { binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v)) }
	i := func(off int, v int32) { binary.LittleEndian.PutUint32(buf[off:], uint32(v)) }
	for k, v := range m.AlbedoFactor {
		f(k*4, v)
	}
	for k, v := range m.ARMFactor {
		f(16+k*4, v)
	}
	i(28, m.ARMTexID)
	i(32, m.ARMTexSamplerID)
	for k, v := range m.EmissionFactor {
		f(36+k*4, v)
	}
	i(48, m.EmissionTexID)
	i(52, m.EmissionTexSamplerID)
	i(56, m.NormalTexID)
	i(60, m.NormalTexSamplerID)
	i(64, m.AlbedoTexID)
	i(68, m.AlbedoTexSamplerID)
	f(72, m.AlphaCutoff)
	i(76, m.IsOpaque)
}

// textureIDs returns the four texture table references the material holds.
func (m *MaterialInfo) textureIDs() [4]int32 {
	return [4]int32{m.AlbedoTexID, m.ARMTexID, m.EmissionTexID, m.NormalTexID}
}

// InstanceInfo is the GPU record of one mesh, addressed by mesh id.
// Matches the WGSL InstanceInfo struct layout exactly. Size: 16 bytes.
type InstanceInfo struct {
	SurfaceIDTableOffset int32 // offset 0: first entry of the mesh in the surface id table
	NumOpaqueSurfaces    int32 // offset 4
	NodeID               int32 // offset 8
	NumSurfaces          int32 // offset 12
}

// InstanceInfoSize is the packed size of InstanceInfo in bytes.
const InstanceInfoSize = 16

// Empty reports whether the record is the placeholder for a mesh id no loaded mesh uses.
// A loaded mesh with no surfaces is indistinguishable from it, and neither is ever sampled.
func (n InstanceInfo) Empty() bool {
	return n.NumSurfaces == 0
}

// Size returns the size of the InstanceInfo struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (n *InstanceInfo) Size() int {
	return int(unsafe.Sizeof(*n))
}

// Marshal serializes the InstanceInfo into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload.
func (n *InstanceInfo) Marshal() []byte {
	buf := make([]byte, InstanceInfoSize)
	n.put(buf)
	return buf
}

func (n *InstanceInfo) put(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], uint32(n.SurfaceIDTableOffset))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(n.NumOpaqueSurfaces))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(n.NodeID))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(n.NumSurfaces))
}

// SurfaceInfo is the GPU record of one surface. Buffer offsets are indices into the index and
// vertex buffer tables, -1 when the attribute is absent.
// Matches the WGSL SurfaceInfo struct layout exactly. Size: 48 bytes.
type SurfaceInfo struct {
	MaterialID              int32 // offset 0: flat MaterialInfo index, -1 if unresolved
	IndexOffset             int32 // offset 4
	IndexType               int32 // offset 8: IndexTypeU32, IndexTypeU16 or IndexTypeInvalid
	PositionAttributeOffset int32 // offset 12

	Texcoord0AttributeOffset int32 // offset 16
	Texcoord1AttributeOffset int32 // offset 20
	NormalAttributeOffset    int32 // offset 24
	TangentAttributeOffset   int32 // offset 28

	NumIndices            int32 // offset 32
	NumVertices           int32 // offset 36
	WeightAttributeOffset int32 // offset 40
	JointsAttributeOffset int32 // offset 44
}

// SurfaceInfoSize is the packed size of SurfaceInfo in bytes.
const SurfaceInfoSize = 48

// newSurfaceInfo returns a SurfaceInfo with every field set to -1.
func newSurfaceInfo() SurfaceInfo {
	return SurfaceInfo{-1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1}
}

// Size returns the size of the SurfaceInfo struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (s *SurfaceInfo) Size() int {
	return int(unsafe.Sizeof(*s))
}

// Marshal serializes the SurfaceInfo into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 48-byte buffer ready for GPU upload.
func (s *SurfaceInfo) Marshal() []byte {
	buf := make([]byte, SurfaceInfoSize)
	s.put(buf)
	return buf
}

func (s *SurfaceInfo) put(buf []byte) {
	fields := [12]int32{
		s.MaterialID, s.IndexOffset, s.IndexType, s.PositionAttributeOffset,
		s.Texcoord0AttributeOffset, s.Texcoord1AttributeOffset, s.NormalAttributeOffset, s.TangentAttributeOffset,
		s.NumIndices, s.NumVertices, s.WeightAttributeOffset, s.JointsAttributeOffset,
	}
	for k, v := range fields {
		binary.LittleEndian.PutUint32(buf[k*4:], uint32(v))
	}
}

// putter is implemented by the info records.
type putter interface {
	put(buf []byte)
}

// marshalAll packs records back to back at stride. An empty slice packs to one zeroed record so
// the uploaded buffer is never empty.
func marshalAll[T any, P interface {
	*T
	putter
}](recs []T, stride int) []byte {
	buf := make([]byte, max(len(recs), 1)*stride)
	for k := range recs {
		P(&recs[k]).put(buf[k*stride:])
	}
	return buf
}

// marshalUint32s packs ids little-endian, one zeroed word when empty.
func marshalUint32s(ids []uint32) []byte {
	buf := make([]byte, max(len(ids), 1)*4)
	for k, v := range ids {
		binary.LittleEndian.PutUint32(buf[k*4:], v)
	}
	return buf
}
