package render

import "math"

// Matrix is a row-major 4x4 matrix used for the affine/projective
// transforms vertex shaders apply to incoming attributes. Ported from the
// original renderer's Matrix type (translate/rotate/scale/project/lookAt),
// one of the features the distilled spec left implicit as "math helpers".
type Matrix [4][4]float32

// Identity returns the 4x4 identity matrix.
func Identity() Matrix {
	return Matrix{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

// Mul returns m * rhs.
func (m Matrix) Mul(rhs Matrix) Matrix {
	var out Matrix
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			var sum float32
			for i := 0; i < 4; i++ {
				sum += m[row][i] * rhs[i][col]
			}
			out[row][col] = sum
		}
	}
	return out
}

// MulVec4 transforms the homogeneous point (x,y,z,w) by m.
func (m Matrix) MulVec4(x, y, z, w float32) (ox, oy, oz, ow float32) {
	ox = m[0][0]*x + m[0][1]*y + m[0][2]*z + m[0][3]*w
	oy = m[1][0]*x + m[1][1]*y + m[1][2]*z + m[1][3]*w
	oz = m[2][0]*x + m[2][1]*y + m[2][2]*z + m[2][3]*w
	ow = m[3][0]*x + m[3][1]*y + m[3][2]*z + m[3][3]*w
	return
}

// Upper3x3 zeroes the translation row/column, leaving only rotation/scale
// (used to transform direction vectors such as normals).
func (m Matrix) Upper3x3() Matrix {
	out := m
	out[0][3] = 0
	out[1][3] = 0
	out[2][3] = 0
	out[3][0] = 0
	out[3][1] = 0
	out[3][2] = 0
	return out
}

// Transpose returns the transpose of m.
func (m Matrix) Transpose() Matrix {
	var out Matrix
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			out[row][col] = m[col][row]
		}
	}
	return out
}

// Inverse returns the general 4x4 inverse of m via cofactor expansion.
func (m Matrix) Inverse() Matrix {
	s0 := m[0][0]*m[1][1] - m[1][0]*m[0][1]
	s1 := m[0][0]*m[1][2] - m[1][0]*m[0][2]
	s2 := m[0][0]*m[1][3] - m[1][0]*m[0][3]
	s3 := m[0][1]*m[1][2] - m[1][1]*m[0][2]
	s4 := m[0][1]*m[1][3] - m[1][1]*m[0][3]
	s5 := m[0][2]*m[1][3] - m[1][2]*m[0][3]

	c5 := m[2][2]*m[3][3] - m[3][2]*m[2][3]
	c4 := m[2][1]*m[3][3] - m[3][1]*m[2][3]
	c3 := m[2][1]*m[3][2] - m[3][1]*m[2][2]
	c2 := m[2][0]*m[3][3] - m[3][0]*m[2][3]
	c1 := m[2][0]*m[3][2] - m[3][0]*m[2][2]
	c0 := m[2][0]*m[3][1] - m[3][0]*m[2][1]

	invDet := 1.0 / (s0*c5 - s1*c4 + s2*c3 + s3*c2 - s4*c1 + s5*c0)

	var out Matrix
	out[0][0] = (m[1][1]*c5 - m[1][2]*c4 + m[1][3]*c3) * invDet
	out[0][1] = (-m[0][1]*c5 + m[0][2]*c4 - m[0][3]*c3) * invDet
	out[0][2] = (m[3][1]*s5 - m[3][2]*s4 + m[3][3]*s3) * invDet
	out[0][3] = (-m[2][1]*s5 + m[2][2]*s4 - m[2][3]*s3) * invDet

	out[1][0] = (-m[1][0]*c5 + m[1][2]*c2 - m[1][3]*c1) * invDet
	out[1][1] = (m[0][0]*c5 - m[0][2]*c2 + m[0][3]*c1) * invDet
	out[1][2] = (-m[3][0]*s5 + m[3][2]*s2 - m[3][3]*s1) * invDet
	out[1][3] = (m[2][0]*s5 - m[2][2]*s2 + m[2][3]*s1) * invDet

	out[2][0] = (m[1][0]*c4 - m[1][1]*c2 + m[1][3]*c0) * invDet
	out[2][1] = (-m[0][0]*c4 + m[0][1]*c2 - m[0][3]*c0) * invDet
	out[2][2] = (m[3][0]*s4 - m[3][1]*s2 + m[3][3]*s0) * invDet
	out[2][3] = (-m[2][0]*s4 + m[2][1]*s2 - m[2][3]*s0) * invDet

	out[3][0] = (-m[1][0]*c3 + m[1][1]*c1 - m[1][2]*c0) * invDet
	out[3][1] = (m[0][0]*c3 - m[0][1]*c1 + m[0][2]*c0) * invDet
	out[3][2] = (-m[3][0]*s3 + m[3][1]*s1 - m[3][2]*s0) * invDet
	out[3][3] = (m[2][0]*s3 - m[2][1]*s1 + m[2][2]*s0) * invDet
	return out
}

// Translation returns a matrix that translates by (x,y,z).
func Translation(x, y, z float32) Matrix {
	m := Identity()
	m[0][3] = x
	m[1][3] = y
	m[2][3] = z
	return m
}

// Scaling returns a matrix that scales by (x,y,z).
func Scaling(x, y, z float32) Matrix {
	return Matrix{
		{x, 0, 0, 0},
		{0, y, 0, 0},
		{0, 0, z, 0},
		{0, 0, 0, 1},
	}
}

// Rotation returns a matrix that rotates by angle radians about the unit
// axis (x,y,z).
func Rotation(angle, x, y, z float32) Matrix {
	s := float32(math.Sin(float64(angle)))
	c := float32(math.Cos(float64(angle)))
	t := 1 - c
	return Matrix{
		{t*x*x + c, t*x*y - s*z, t*x*z + s*y, 0},
		{t*x*y + s*z, t*y*y + c, t*y*z - s*x, 0},
		{t*x*z - s*y, t*y*z + s*x, t*z*z + c, 0},
		{0, 0, 0, 1},
	}
}

// Perspective returns a projection matrix for the given aspect ratio,
// matching the original renderer's minimal projection (aspect-correct x,
// passthrough y/z/w; the perspective divide itself happens later in
// triangle setup using w).
func Perspective(viewportWidth, viewportHeight float32) Matrix {
	aspect := viewportWidth / viewportHeight
	return Matrix{
		{1.0 / aspect, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

// LookAt returns a view matrix placing the camera at eye, looking toward
// target, with the given up direction.
func LookAt(eye, target, up Vec3) Matrix {
	f := target.Sub(eye).Normalize()
	s := f.Cross(up).Normalize()
	u := s.Cross(f)
	return Matrix{
		{s.X, s.Y, s.Z, -s.Dot(eye)},
		{u.X, u.Y, u.Z, -u.Dot(eye)},
		{-f.X, -f.Y, -f.Z, f.Dot(eye)},
		{0, 0, 0, 1},
	}
}
