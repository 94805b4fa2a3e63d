package shaders

import (
	"math"
	"testing"

	"github.com/nyuzi-go/nyuzigo/internal/render"
	"github.com/nyuzi-go/nyuzigo/internal/simd"
)

func allLanesMask() simd.Mask {
	return simd.Mask(0xffff)
}

func oneVertexAttribs(pos, normal render.Vec3, u, v float32) [][]float32 {
	attribs := make([][]float32, simd.Lanes)
	for i := range attribs {
		attribs[i] = []float32{pos.X, pos.Y, pos.Z, normal.X, normal.Y, normal.Z, u, v}
	}
	return attribs
}

func TestEncodeDecodeGouraudUniformsRoundTrip(t *testing.T) {
	want := GouraudUniforms{
		MVP:        render.Translation(1, 2, 3),
		Model:      render.Scaling(2, 2, 2),
		LightDir:   render.Vec3{X: 0, Y: -1, Z: 0},
		LightColor: render.Vec3{X: 1, Y: 0.5, Z: 0.25},
	}
	buf := EncodeGouraudUniforms(want)
	got := decodeGouraudUniforms(buf)
	if got.MVP != want.MVP || got.Model != want.Model {
		t.Fatalf("decoded matrices do not match: got %+v, want %+v", got, want)
	}
	if got.LightDir != want.LightDir || got.LightColor != want.LightColor {
		t.Fatalf("decoded lights do not match: got %+v, want %+v", got, want)
	}
}

func TestEncodeGouraudUniformsBufferLength(t *testing.T) {
	buf := EncodeGouraudUniforms(GouraudUniforms{MVP: render.Identity(), Model: render.Identity()})
	want := 4*4*4*2 + 3*4*2
	if len(buf) != want {
		t.Fatalf("len(buf) = %d, want %d", len(buf), want)
	}
}

func TestGouraudShaderVertexPassesThroughClipPosition(t *testing.T) {
	attribs := oneVertexAttribs(render.Vec3{X: 1, Y: 2, Z: 3}, render.Vec3{X: 0, Y: 0, Z: 1}, 0, 0)
	uniforms := EncodeGouraudUniforms(GouraudUniforms{
		MVP:        render.Identity(),
		Model:      render.Identity(),
		LightDir:   render.Vec3{X: 0, Y: 0, Z: 1},
		LightColor: render.Vec3{X: 1, Y: 1, Z: 1},
	})
	out := make([]simd.Vec, GouraudShader.NumParams)
	GouraudShader.ShadeVertices(&out, attribs, uniforms, allLanesMask())
	if out[0].LaneF(0) != 1 || out[1].LaneF(0) != 2 || out[2].LaneF(0) != 3 || out[3].LaneF(0) != 1 {
		t.Fatalf("clip position = (%v,%v,%v,%v), want (1,2,3,1)",
			out[0].LaneF(0), out[1].LaneF(0), out[2].LaneF(0), out[3].LaneF(0))
	}
}

func TestGouraudShaderVertexClampsNegativeDiffuseToZero(t *testing.T) {
	attribs := oneVertexAttribs(render.Vec3{}, render.Vec3{X: 0, Y: 0, Z: 1}, 0, 0)
	uniforms := EncodeGouraudUniforms(GouraudUniforms{
		MVP:        render.Identity(),
		Model:      render.Identity(),
		LightDir:   render.Vec3{X: 0, Y: 0, Z: -1}, // facing away from the normal
		LightColor: render.Vec3{X: 1, Y: 1, Z: 1},
	})
	out := make([]simd.Vec, GouraudShader.NumParams)
	GouraudShader.ShadeVertices(&out, attribs, uniforms, allLanesMask())
	if out[4].LaneF(0) != 0 || out[5].LaneF(0) != 0 || out[6].LaneF(0) != 0 {
		t.Fatalf("diffuse color = (%v,%v,%v), want (0,0,0) for a backlit normal",
			out[4].LaneF(0), out[5].LaneF(0), out[6].LaneF(0))
	}
}

func TestGouraudShaderVertexRespectsMask(t *testing.T) {
	attribs := oneVertexAttribs(render.Vec3{X: 5, Y: 5, Z: 5}, render.Vec3{X: 0, Y: 0, Z: 1}, 0, 0)
	uniforms := EncodeGouraudUniforms(GouraudUniforms{MVP: render.Identity(), Model: render.Identity()})
	out := make([]simd.Vec, GouraudShader.NumParams)
	GouraudShader.ShadeVertices(&out, attribs, uniforms, simd.Mask(0)) // no lanes active
	if out[0].LaneF(1) != 0 {
		t.Fatalf("lane 1 should be untouched when masked out, got %v", out[0].LaneF(1))
	}
}

func TestGouraudShaderPixelForcesOpaqueAlpha(t *testing.T) {
	params := make([]simd.Vec, 3)
	params[0].SetLaneF(0, 0.1)
	params[1].SetLaneF(0, 0.2)
	params[2].SetLaneF(0, 0.3)
	var outColor [4]simd.Vec
	GouraudShader.ShadePixels(&outColor, params, nil, [4]*render.Texture{}, allLanesMask())
	if outColor[0].LaneF(0) != 0.1 || outColor[1].LaneF(0) != 0.2 || outColor[2].LaneF(0) != 0.3 {
		t.Fatal("ShadePixels should pass interpolated color through unchanged")
	}
	if outColor[3].LaneF(0) != 1 {
		t.Fatalf("alpha = %v, want 1 (fully opaque)", outColor[3].LaneF(0))
	}
}

func TestPhongShaderPixelEvaluatesLightingPerPixel(t *testing.T) {
	attribs := oneVertexAttribs(render.Vec3{}, render.Vec3{X: 0, Y: 0, Z: 1}, 0, 0)
	uniforms := EncodeGouraudUniforms(GouraudUniforms{
		MVP:        render.Identity(),
		Model:      render.Identity(),
		LightDir:   render.Vec3{X: 0, Y: 0, Z: 1},
		LightColor: render.Vec3{X: 1, Y: 1, Z: 1},
	})
	params := make([]simd.Vec, PhongShader.NumParams)
	PhongShader.ShadeVertices(&params, attribs, uniforms, allLanesMask())

	var outColor [4]simd.Vec
	PhongShader.ShadePixels(&outColor, params[4:], uniforms, [4]*render.Texture{}, allLanesMask())
	if math.Abs(float64(outColor[0].LaneF(0)-1)) > 1e-5 {
		t.Fatalf("diffuse red channel = %v, want ~1 for a head-on light", outColor[0].LaneF(0))
	}
	if outColor[3].LaneF(0) != 1 {
		t.Fatal("PhongShader should also emit opaque alpha")
	}
}

func TestTextureShaderPixelIsNoOpWithoutBoundTexture(t *testing.T) {
	params := make([]simd.Vec, TextureShader.NumParams)
	var outColor [4]simd.Vec
	outColor[0].SetLaneF(0, 0.5)
	TextureShader.ShadePixels(&outColor, params, nil, [4]*render.Texture{nil}, allLanesMask())
	if outColor[0].LaneF(0) != 0.5 {
		t.Fatal("ShadePixels should leave outColor untouched when texture slot 0 is nil")
	}
}

func TestTextureShaderVertexClampsDiffuseFloor(t *testing.T) {
	attribs := oneVertexAttribs(render.Vec3{}, render.Vec3{X: 0, Y: 0, Z: 1}, 0.25, 0.75)
	uniforms := EncodeGouraudUniforms(GouraudUniforms{
		MVP:        render.Identity(),
		Model:      render.Identity(),
		LightDir:   render.Vec3{X: 0, Y: 0, Z: -1}, // fully backlit
		LightColor: render.Vec3{X: 1, Y: 1, Z: 1},
	})
	out := make([]simd.Vec, TextureShader.NumParams)
	TextureShader.ShadeVertices(&out, attribs, uniforms, allLanesMask())
	if out[6].LaneF(0) != 0.2 {
		t.Fatalf("diffuse floor = %v, want 0.2 even when fully backlit", out[6].LaneF(0))
	}
	if out[4].LaneF(0) != 0.25 || out[5].LaneF(0) != 0.75 {
		t.Fatalf("texcoords = (%v,%v), want (0.25,0.75) passed through", out[4].LaneF(0), out[5].LaneF(0))
	}
}

func TestShaderAttribAndParamCounts(t *testing.T) {
	for name, sh := range map[string]render.Shader{"gouraud": GouraudShader, "phong": PhongShader, "texture": TextureShader} {
		if sh.NumAttribs != 8 {
			t.Errorf("%s.NumAttribs = %d, want 8", name, sh.NumAttribs)
		}
		if sh.NumParams != 7 {
			t.Errorf("%s.NumParams = %d, want 7", name, sh.NumParams)
		}
	}
}
