package common

import (
	"encoding/binary"
	"math"
)

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// PutMat4 writes m into buf as 16 little-endian float32 values and returns the number of bytes written (64).
//
// Parameters:
//   - buf: destination, must hold at least 64 bytes
//   - m: the matrix to write
//
// Returns:
//   - int: bytes written
func PutMat4(buf []byte, m Mat4) int {
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(m[i]))
	}
	return 64
}

// PutVec4 writes v into buf as 4 little-endian float32 values and returns the number of bytes written (16).
//
// Parameters:
//   - buf: destination, must hold at least 16 bytes
//   - v: the vector to write
//
// Returns:
//   - int: bytes written
func PutVec4(buf []byte, v Vec4) int {
	for i := range 4 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v[i]))
	}
	return 16
}

// PutFloat32 writes a little-endian float32 into buf.
func PutFloat32(buf []byte, f float32) {
	binary.LittleEndian.PutUint32(buf, math.Float32bits(f))
}

// PutInt32 writes a little-endian int32 into buf.
func PutInt32(buf []byte, v int32) {
	binary.LittleEndian.PutUint32(buf, uint32(v))
}

// AlignUp rounds n up to the next multiple of align. align must be a power of two.
func AlignUp(n, align uint64) uint64 {
	if align == 0 {
		return n
	}
	return (n + align - 1) &^ (align - 1)
}
