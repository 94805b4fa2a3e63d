package render

import "github.com/nyuzi-go/nyuzigo/internal/simd"

// LinearInterpolator evaluates a plane c(x,y) = gx*x + gy*y + c00 in
// screen space. The plane's coefficients are solved once per triangle via
// Cramer's rule from three (x,y,c) samples.
type LinearInterpolator struct {
	gx, gy, c00 float32
}

// NewLinearInterpolator solves the plane through (x0,y0,c0), (x1,y1,c1),
// (x2,y2,c2). The triangle is assumed non-degenerate (det != 0); callers
// must have already discarded zero-area triangles before setup.
func NewLinearInterpolator(x0, y0, c0, x1, y1, c1, x2, y2, c2 float32) LinearInterpolator {
	det := (x1-x0)*(y2-y0) - (y1-y0)*(x2-x0)
	invDet := 1.0 / det
	gx := ((c1-c0)*(y2-y0) - (y1-y0)*(c2-c0)) * invDet
	gy := ((x1-x0)*(c2-c0) - (c1-c0)*(x2-x0)) * invDet
	c00 := c0 - x0*gx - y0*gy
	return LinearInterpolator{gx: gx, gy: gy, c00: c00}
}

// EvalScalar evaluates the plane at one (x,y).
func (l LinearInterpolator) EvalScalar(x, y float32) float32 {
	return l.gx*x + l.gy*y + l.c00
}

// Eval evaluates the plane across 16 lanes of (x,y).
func (l LinearInterpolator) Eval(x, y simd.Vec) simd.Vec {
	gxv := simd.SplatF(l.gx)
	gyv := simd.SplatF(l.gy)
	c00v := simd.SplatF(l.c00)
	return simd.AddF(simd.AddF(simd.MulF(gxv, x), simd.MulF(gyv, y)), c00v)
}

// maxParams bounds the number of interpolated parameters a single triangle
// carries (position's x,y,z,w are handled separately by setup, so 16 covers
// every additional varying a shader declares).
const maxParams = 16

// paramInterpolator holds one parameter's plane, either in raw screen space
// (constant fast path) or pre-divided by z (the perspective-correct path).
type paramInterpolator struct {
	isConstant bool
	constant   float32
	plane      LinearInterpolator
}

// ParameterInterpolator holds everything needed to evaluate a triangle's
// interpolated varyings, perspective-correctly, across 4x4 quads.
//
// Perspective correctness: the 1/z plane is interpolated linearly in screen
// space (1/z is itself affine in screen space for a perspective-projected
// triangle), and each parameter's plane holds c/z rather than c; at a pixel,
// z = 1 / lerp(1/z), and c = lerp(c/z) * z. If the three z values are equal
// the division is skipped entirely and the parameter planes are evaluated
// directly in c (not c/z) terms.
type ParameterInterpolator struct {
	needPerspective bool
	oneOverZ        LinearInterpolator
	params          [maxParams]paramInterpolator
	numParams       int

	x0, y0, z0 float32
	x1, y1, z1 float32
	x2, y2, z2 float32
}

// NewParameterInterpolator stores the triangle's three screen-space
// vertex positions (after perspective divide) and prepares the 1/z plane.
// If all three z are equal, perspective correction is skipped for the
// lifetime of this triangle.
func NewParameterInterpolator(x0, y0, z0, x1, y1, z1, x2, y2, z2 float32) *ParameterInterpolator {
	p := &ParameterInterpolator{}
	if z0 == z1 && z1 == z2 {
		p.needPerspective = false
		return p
	}
	p.needPerspective = true
	p.oneOverZ = NewLinearInterpolator(x0, y0, 1/z0, x1, y1, 1/z1, x2, y2, 1/z2)
	p.x0, p.y0, p.z0 = x0, y0, z0
	p.x1, p.y1, p.z1 = x1, y1, z1
	p.x2, p.y2, p.z2 = x2, y2, z2
	return p
}

// SetUpParam appends one interpolated parameter's plane in submission
// order, given its value at the triangle's three vertices. A parameter
// whose three values are equal is marked constant and evaluated without a
// plane lookup at all.
func (p *ParameterInterpolator) SetUpParam(c0, c1, c2 float32) {
	idx := p.numParams
	p.numParams++
	if c0 == c1 && c1 == c2 {
		p.params[idx] = paramInterpolator{isConstant: true, constant: c0}
		return
	}
	if !p.needPerspective {
		p.params[idx] = paramInterpolator{
			plane: NewLinearInterpolator(p.x0, p.y0, c0, p.x1, p.y1, c1, p.x2, p.y2, c2),
		}
		return
	}
	p.params[idx] = paramInterpolator{
		plane: NewLinearInterpolator(
			p.x0, p.y0, c0/p.z0,
			p.x1, p.y1, c1/p.z1,
			p.x2, p.y2, c2/p.z2,
		),
	}
}

// NumParams reports how many parameters have been registered.
func (p *ParameterInterpolator) NumParams() int { return p.numParams }

// EvalZ returns the interpolated depth across 16 lanes of screen (x,y).
func (p *ParameterInterpolator) EvalZ(x, y simd.Vec) simd.Vec {
	if !p.needPerspective {
		return simd.SplatF(p.z0)
	}
	invZ := p.oneOverZ.Eval(x, y)
	return simd.Reciprocal(invZ)
}

// EvalParam returns parameter idx evaluated across 16 lanes, given the
// already-computed per-pixel z from EvalZ.
func (p *ParameterInterpolator) EvalParam(idx int, x, y, z simd.Vec) simd.Vec {
	pi := p.params[idx]
	if pi.isConstant {
		return simd.SplatF(pi.constant)
	}
	raw := pi.plane.Eval(x, y)
	if !p.needPerspective {
		return raw
	}
	return simd.MulF(raw, z)
}
