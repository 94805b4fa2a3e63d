package render

import "github.com/nyuzi-go/nyuzigo/internal/simd"

// VertexShaderFunc gathers a group of up to 16 vertices' attributes and
// writes their output parameters. inAttribs is laid out one vertex's
// attributes contiguously per lane; outParams receives NumParams planes'
// worth of values per lane. The first four output parameters must be
// clip-space (x,y,z,w), per the external interface contract.
type VertexShaderFunc func(outParams *[]simd.Vec, inAttribs [][]float32, uniforms []byte, mask simd.Mask)

// PixelShaderFunc shades up to 16 pixels at once: outColor[0..3] are
// R,G,B,A; params holds one simd.Vec per interpolated parameter (position
// already stripped); textures are the four bound texture slots (nil if
// unbound).
type PixelShaderFunc func(outColor *[4]simd.Vec, params []simd.Vec, uniforms []byte, textures [4]*Texture, mask simd.Mask)

// Shader is the capability pair a draw state carries in place of the
// source's virtual VertexShader/PixelShader base classes: a vtable of two
// function values rather than dynamic dispatch, kept out-of-line from the
// filler and rasterizer's hot loops.
type Shader struct {
	ShadeVertices VertexShaderFunc
	ShadePixels   PixelShaderFunc
	NumAttribs    int
	NumParams     int
}
