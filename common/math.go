package common

import (
	"github.com/chewxy/math32"
)

// Mat4 is a 4x4 float32 matrix stored in column-major order (element [c*4+r] is column c, row r).
// This is the same memory layout the generation shaders read for record transforms and frame constants.
type Mat4 [16]float32

// Vec4 is a 4 component float32 vector, used for homogeneous positions in frame constants.
type Vec4 [4]float32

// Identity returns the 4x4 identity matrix.
//
// Returns:
//   - Mat4: the identity matrix
func Identity() Mat4 {
	var m Mat4
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
	return m
}

// Translation returns a matrix translating by (x, y, z).
//
// Parameters:
//   - x, y, z: translation in world space
//
// Returns:
//   - Mat4: the translation matrix
func Translation(x, y, z float32) Mat4 {
	m := Identity()
	m[12], m[13], m[14] = x, y, z
	return m
}

// Scale returns a matrix scaling by (x, y, z).
//
// Parameters:
//   - x, y, z: scale factors along each axis
//
// Returns:
//   - Mat4: the scale matrix
func Scale(x, y, z float32) Mat4 {
	m := Identity()
	m[0], m[5], m[10] = x, y, z
	return m
}

// Mul4 multiplies two 4x4 matrices.
// Result: a * b, so b is applied first when transforming column vectors.
//
// Parameters:
//   - a: left-hand matrix
//   - b: right-hand matrix
//
// Returns:
//   - Mat4: the product a * b
func Mul4(a, b Mat4) Mat4 {
	var out Mat4
	for i := 0; i < 4; i++ { // column of B
		for j := 0; j < 4; j++ { // row of A
			sum := float32(0)
			for k := 0; k < 4; k++ {
				sum += a[k*4+j] * b[i*4+k]
			}
			out[i*4+j] = sum
		}
	}
	return out
}

// Invert4 computes the inverse of a 4x4 column-major matrix using the Laplace
// expansion (cofactor) method. If the matrix is singular (determinant ≈ 0) the
// identity is returned together with false.
//
// Parameters:
//   - m: source matrix
//
// Returns:
//   - Mat4: the inverse, or identity if m is singular
//   - bool: true if the matrix was successfully inverted, false if singular
func Invert4(m Mat4) (Mat4, bool) {
	// 2x2 sub-determinants of the upper-left and lower-right quadrants.
	s0 := m[0]*m[5] - m[4]*m[1]
	s1 := m[0]*m[6] - m[4]*m[2]
	s2 := m[0]*m[7] - m[4]*m[3]
	s3 := m[1]*m[6] - m[5]*m[2]
	s4 := m[1]*m[7] - m[5]*m[3]
	s5 := m[2]*m[7] - m[6]*m[3]

	c5 := m[10]*m[15] - m[14]*m[11]
	c4 := m[9]*m[15] - m[13]*m[11]
	c3 := m[9]*m[14] - m[13]*m[10]
	c2 := m[8]*m[15] - m[12]*m[11]
	c1 := m[8]*m[14] - m[12]*m[10]
	c0 := m[8]*m[13] - m[12]*m[9]

	det := s0*c5 - s1*c4 + s2*c3 + s3*c2 - s4*c1 + s5*c0
	if math32.Abs(det) < 1e-12 {
		return Identity(), false
	}

	invDet := 1.0 / det
	var out Mat4

	out[0] = (m[5]*c5 - m[6]*c4 + m[7]*c3) * invDet
	out[1] = (-m[1]*c5 + m[2]*c4 - m[3]*c3) * invDet
	out[2] = (m[13]*s5 - m[14]*s4 + m[15]*s3) * invDet
	out[3] = (-m[9]*s5 + m[10]*s4 - m[11]*s3) * invDet

	out[4] = (-m[4]*c5 + m[6]*c2 - m[7]*c1) * invDet
	out[5] = (m[0]*c5 - m[2]*c2 + m[3]*c1) * invDet
	out[6] = (-m[12]*s5 + m[14]*s2 - m[15]*s1) * invDet
	out[7] = (m[8]*s5 - m[10]*s2 + m[11]*s1) * invDet

	out[8] = (m[4]*c4 - m[5]*c2 + m[7]*c0) * invDet
	out[9] = (-m[0]*c4 + m[1]*c2 - m[3]*c0) * invDet
	out[10] = (m[12]*s4 - m[13]*s2 + m[15]*s0) * invDet
	out[11] = (-m[8]*s4 + m[9]*s2 - m[11]*s0) * invDet

	out[12] = (-m[4]*c3 + m[5]*c1 - m[6]*c0) * invDet
	out[13] = (m[0]*c3 - m[1]*c1 + m[2]*c0) * invDet
	out[14] = (-m[12]*s3 + m[13]*s1 - m[14]*s0) * invDet
	out[15] = (m[8]*s3 - m[9]*s1 + m[10]*s0) * invDet

	return out, true
}

// Col returns column c of the matrix. Column 3 of an inverse view matrix is the eye position.
//
// Parameters:
//   - m: the matrix
//   - c: column index in [0, 3]
//
// Returns:
//   - Vec4: the column
func Col(m Mat4, c int) Vec4 {
	return Vec4{m[c*4], m[c*4+1], m[c*4+2], m[c*4+3]}
}

// LookAt creates a view matrix that positions and orients the camera.
// The resulting matrix transforms world coordinates to view/camera space.
//
// Parameters:
//   - eye: camera position in world space
//   - center: target point the camera looks at
//   - up: up vector defining camera orientation (typically 0,1,0)
//
// Returns:
//   - Mat4: the view matrix
func LookAt(eye, center, up [3]float32) Mat4 {
	z := normalize3([3]float32{eye[0] - center[0], eye[1] - center[1], eye[2] - center[2]})
	x := normalize3([3]float32{
		up[1]*z[2] - up[2]*z[1],
		up[2]*z[0] - up[0]*z[2],
		up[0]*z[1] - up[1]*z[0],
	})
	y := [3]float32{
		z[1]*x[2] - z[2]*x[1],
		z[2]*x[0] - z[0]*x[2],
		z[0]*x[1] - z[1]*x[0],
	}

	var out Mat4
	out[0], out[4], out[8], out[12] = x[0], x[1], x[2], -(x[0]*eye[0] + x[1]*eye[1] + x[2]*eye[2])
	out[1], out[5], out[9], out[13] = y[0], y[1], y[2], -(y[0]*eye[0] + y[1]*eye[1] + y[2]*eye[2])
	out[2], out[6], out[10], out[14] = z[0], z[1], z[2], -(z[0]*eye[0] + z[1]*eye[1] + z[2]*eye[2])
	out[3], out[7], out[11], out[15] = 0, 0, 0, 1
	return out
}

// Perspective creates a perspective projection matrix for a [0, 1] clip-space depth range.
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
//
// Returns:
//   - Mat4: the projection matrix
func Perspective(fovY, aspect, near, far float32) Mat4 {
	f := 1.0 / math32.Tan(fovY/2.0)
	var out Mat4
	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = -1.0
	out[14] = (near * far) / (near - far)
	return out
}

func normalize3(v [3]float32) [3]float32 {
	l := math32.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if l == 0 {
		return v
	}
	return [3]float32{v[0] / l, v[1] / l, v[2] / l}
}
