package render

import "github.com/nyuzi-go/nyuzigo/internal/simd"

// RenderTarget owns a color surface and an optional depth surface. Depth,
// when present, is always FormatFloatDepth.
type RenderTarget struct {
	Color *Surface
	Depth *Surface // nil disables depth testing regardless of DrawState
}

// TriangleFiller is the per-tile shading delegate: for one triangle, it
// holds the perspective-correct interpolators and is invoked once per 4x4
// quad by the hierarchical rasterizer's base case. It performs depth test,
// shader dispatch, 8-bit conversion, premultiplied-alpha blending, and the
// final writeback through the color Surface.
type TriangleFiller struct {
	target      *RenderTarget
	shader      *Shader
	uniforms    []byte
	textures    [4]*Texture
	depthEnable bool
	blendEnable bool

	params *ParameterInterpolator
}

// NewTriangleFiller builds a filler bound to a render target and draw
// state, ready to have SetUpTriangle/SetUpParam called for one triangle.
func NewTriangleFiller(target *RenderTarget, shader *Shader, uniforms []byte, textures [4]*Texture, depthEnable, blendEnable bool) *TriangleFiller {
	return &TriangleFiller{
		target:      target,
		shader:      shader,
		uniforms:    uniforms,
		textures:    textures,
		depthEnable: depthEnable && target.Depth != nil,
		blendEnable: blendEnable,
	}
}

// SetUpTriangle records the triangle's three post-divide screen-space
// positions and prepares the 1/z interpolator.
func (f *TriangleFiller) SetUpTriangle(x0, y0, z0, x1, y1, z1, x2, y2, z2 float32) {
	f.params = NewParameterInterpolator(x0, y0, z0, x1, y1, z1, x2, y2, z2)
}

// SetUpParam appends one interpolated parameter in submission order.
func (f *TriangleFiller) SetUpParam(c0, c1, c2 float32) {
	f.params.SetUpParam(c0, c1, c2)
}

// FillMasked shades the 4x4 quad at (left, top) restricted to mask,
// running depth test, shading, and blend, then writes surviving lanes
// through the color surface.
func (f *TriangleFiller) FillMasked(left, top int, mask simd.Mask) {
	if mask == 0 {
		return
	}
	x, y := f.target.Color.QuadXY(left, top)
	z := f.params.EvalZ(x, y)

	if f.depthEnable {
		oldZ := f.target.Depth.ReadBlock(left, top)
		mask &= simd.CompareF(z, oldZ, func(a, b float32) bool { return a > b })
		if mask == 0 {
			return
		}
	}

	params := make([]simd.Vec, f.params.NumParams())
	for i := range params {
		params[i] = f.params.EvalParam(i, x, y, z)
	}

	var color [4]simd.Vec
	f.shader.ShadePixels(&color, params, f.uniforms, f.textures, mask)

	color[0] = simd.Clamp(color[0], 0, 1)
	color[1] = simd.Clamp(color[1], 0, 1)
	color[2] = simd.Clamp(color[2], 0, 1)
	color[3] = simd.Clamp(color[3], 0, 1)

	anyTranslucent := false
	for i := 0; i < simd.Lanes; i++ {
		if mask&(1<<uint(i)) != 0 && color[3].LaneF(i) < 1.0 {
			anyTranslucent = true
			break
		}
	}

	var packed simd.Vec
	if f.blendEnable && anyTranslucent {
		dst := f.target.Color.ReadBlock(left, top)
		for i := 0; i < simd.Lanes; i++ {
			if mask&(1<<uint(i)) == 0 {
				continue
			}
			packed.SetLane(i, blendPixel(color, i, dst.Lane(i)))
		}
	} else {
		for i := 0; i < simd.Lanes; i++ {
			if mask&(1<<uint(i)) == 0 {
				continue
			}
			packed.SetLane(i, packColor(color, i))
		}
	}
	f.target.Color.WriteBlockMasked(left, top, mask, packed)

	if f.depthEnable {
		f.target.Depth.WriteBlockMasked(left, top, mask, z)
	}
}

func packColor(color [4]simd.Vec, lane int) uint32 {
	r := uint32(color[0].LaneF(lane) * 255)
	g := uint32(color[1].LaneF(lane) * 255)
	b := uint32(color[2].LaneF(lane) * 255)
	return 0xff000000 | r | g<<8 | b<<16
}

// blendPixel implements the premultiplied-alpha formula
// newC = saturate(((srcC<<8) + dstC*(255-srcA)) >> 8), per channel, with
// srcA already expressed in 0..255.
func blendPixel(color [4]simd.Vec, lane int, dst uint32) uint32 {
	srcR := uint32(color[0].LaneF(lane) * 255)
	srcG := uint32(color[1].LaneF(lane) * 255)
	srcB := uint32(color[2].LaneF(lane) * 255)
	srcA := uint32(color[3].LaneF(lane) * 255)

	dstR := dst & 0xff
	dstG := (dst >> 8) & 0xff
	dstB := (dst >> 16) & 0xff

	inv := 255 - srcA
	blend := func(s, d uint32) uint32 {
		v := ((s << 8) + d*inv) >> 8
		if v > 255 {
			v = 255
		}
		return v
	}
	r := blend(srcR, dstR)
	g := blend(srcG, dstG)
	b := blend(srcB, dstB)
	return 0xff000000 | r | g<<8 | b<<16
}
