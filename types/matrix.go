package types

// Mat3 is a 3x3 matrix stored in row-major order.
type Mat3 [9]float32

// Mat4 is a 4x4 matrix stored in row-major order.
type Mat4 [16]float32

// Ident4 returns the 4x4 identity matrix.
func Ident4() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translate4 returns a translation matrix for the given offset.
func Translate4(v Vec3) Mat4 {
	m := Ident4()
	m[3] = v[0]
	m[7] = v[1]
	m[11] = v[2]
	return m
}

// Mul4 multiplies m by m2 and returns the result (m * m2).
func (m Mat4) Mul4(m2 Mat4) Mat4 {
	var out Mat4
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m[row*4+k] * m2[k*4+col]
			}
			out[row*4+col] = sum
		}
	}
	return out
}

// Mul4x1 multiplies m by the column vector v.
func (m Mat4) Mul4x1(v Vec4) Vec4 {
	return Vec4{
		m[0]*v[0] + m[1]*v[1] + m[2]*v[2] + m[3]*v[3],
		m[4]*v[0] + m[5]*v[1] + m[6]*v[2] + m[7]*v[3],
		m[8]*v[0] + m[9]*v[1] + m[10]*v[2] + m[11]*v[3],
		m[12]*v[0] + m[13]*v[1] + m[14]*v[2] + m[15]*v[3],
	}
}

// MulPoint3 transforms a 3D point (implicit w=1) and drops back to Vec3.
func (m Mat4) MulPoint3(v Vec3) Vec3 {
	return m.Mul4x1(v.Vec4(1)).Vec3()
}

// Inv computes the inverse of m using Gauss-Jordan elimination with
// partial pivoting. Mesh transforms in a rendered scene are always
// invertible (non-degenerate); a degenerate matrix returns the identity
// rather than propagating NaNs through the pipeline.
func (m Mat4) Inv() Mat4 {
	// Augment [m | I] as two 4x4 arrays and reduce the left side to I.
	a := m
	inv := Ident4()

	for col := 0; col < 4; col++ {
		// Find pivot.
		pivot := col
		best := abs32(a[col*4+col])
		for row := col + 1; row < 4; row++ {
			if v := abs32(a[row*4+col]); v > best {
				best = v
				pivot = row
			}
		}
		if best < floatCmpEpsilon {
			return Ident4()
		}
		if pivot != col {
			swapRow4(&a, col, pivot)
			swapRow4(&inv, col, pivot)
		}

		pivotVal := a[col*4+col]
		for k := 0; k < 4; k++ {
			a[col*4+k] /= pivotVal
			inv[col*4+k] /= pivotVal
		}

		for row := 0; row < 4; row++ {
			if row == col {
				continue
			}
			factor := a[row*4+col]
			if factor == 0 {
				continue
			}
			for k := 0; k < 4; k++ {
				a[row*4+k] -= factor * a[col*4+k]
				inv[row*4+k] -= factor * inv[col*4+k]
			}
		}
	}

	return inv
}

func swapRow4(m *Mat4, r1, r2 int) {
	for k := 0; k < 4; k++ {
		m[r1*4+k], m[r2*4+k] = m[r2*4+k], m[r1*4+k]
	}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
