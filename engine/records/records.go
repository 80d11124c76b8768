// Package records holds the CPU-authored input records the execution graph is entered with each
// frame: one array of branch records and one array of area records, together with the editor
// selection that drives the settings UI.
package records

import (
	"encoding/binary"

	"github.com/Carmen-Shannon/oxy-ivy/common"
)

const (
	// BranchRecordStride is the packed size of a BranchRecord in bytes.
	BranchRecordStride = 68
	// AreaRecordStride is the packed size of an AreaRecord in bytes.
	AreaRecordStride = 72

	// MaxSeed is the largest seed the edit path accepts.
	MaxSeed = 10000
	// MinDensity and MaxDensity bound the area density the edit path accepts.
	MinDensity, MaxDensity = float32(0), float32(1)
)

// BranchRecord seeds a single ivy branch at the origin of Transform.
type BranchRecord struct {
	Transform common.Mat4
	Seed      uint32
}

// AreaRecord spawns branches across the unit area described by Transform. Density is the fraction
// of candidate spawn points that grow a branch.
type AreaRecord struct {
	Transform common.Mat4
	Seed      uint32
	Density   float32
}

// Marshal encodes the record in its little-endian GPU layout.
//
// Returns:
//   - []byte: BranchRecordStride bytes
func (r BranchRecord) Marshal() []byte {
	buf := make([]byte, BranchRecordStride)
	r.put(buf)
	return buf
}

func (r BranchRecord) put(buf []byte) {
	n := common.PutMat4(buf, r.Transform)
	binary.LittleEndian.PutUint32(buf[n:], r.Seed)
}

// Marshal encodes the record in its little-endian GPU layout.
//
// Returns:
//   - []byte: AreaRecordStride bytes
func (r AreaRecord) Marshal() []byte {
	buf := make([]byte, AreaRecordStride)
	r.put(buf)
	return buf
}

func (r AreaRecord) put(buf []byte) {
	n := common.PutMat4(buf, r.Transform)
	binary.LittleEndian.PutUint32(buf[n:], r.Seed)
	common.PutFloat32(buf[n+4:], r.Density)
}

// MarshalBranches packs records back to back at BranchRecordStride.
//
// Parameters:
//   - recs: the records to pack
//
// Returns:
//   - []byte: the packed array, nil when recs is empty
func MarshalBranches(recs []BranchRecord) []byte {
	if len(recs) == 0 {
		return nil
	}
	buf := make([]byte, len(recs)*BranchRecordStride)
	for i, r := range recs {
		r.put(buf[i*BranchRecordStride:])
	}
	return buf
}

// MarshalAreas packs records back to back at AreaRecordStride.
//
// Parameters:
//   - recs: the records to pack
//
// Returns:
//   - []byte: the packed array, nil when recs is empty
func MarshalAreas(recs []AreaRecord) []byte {
	if len(recs) == 0 {
		return nil
	}
	buf := make([]byte, len(recs)*AreaRecordStride)
	for i, r := range recs {
		r.put(buf[i*AreaRecordStride:])
	}
	return buf
}

// DefaultBranches returns the branch records the sample scene starts with.
func DefaultBranches() []BranchRecord {
	return []BranchRecord{
		{Transform: common.Translation(-15.2, 4.5, 0), Seed: 4750},
		{Transform: common.Translation(0, 0.1, 0), Seed: 0},
	}
}

// DefaultAreas returns the area records the sample scene starts with.
func DefaultAreas() []AreaRecord {
	return []AreaRecord{
		{
			Transform: common.Mul4(common.Translation(0, 17, 7), common.Scale(15, 1, 4)),
			Seed:      4050,
			Density:   0.14,
		},
	}
}
