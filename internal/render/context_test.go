package render

import (
	"testing"

	"github.com/nyuzi-go/nyuzigo/internal/simd"
)

func passthroughVertexShader(outParams *[]simd.Vec, inAttribs [][]float32, uniforms []byte, mask simd.Mask) {
	params := *outParams
	for i := 0; i < simd.Lanes; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		a := inAttribs[i]
		for p := 0; p < len(params); p++ {
			params[p].SetLaneF(i, a[p])
		}
	}
}

func flatColorPixelShader(outColor *[4]simd.Vec, params []simd.Vec, uniforms []byte, textures [4]*Texture, mask simd.Mask) {
	outColor[0] = simd.SplatF(1)
	outColor[1] = simd.SplatF(0)
	outColor[2] = simd.SplatF(0)
	outColor[3] = simd.SplatF(1)
}

func TestRenderContextDrawsSolidRedTriangle(t *testing.T) {
	color := NewSurface(TileSize, TileSize, FormatRGBA8888)
	target := &RenderTarget{Color: color}
	rc := NewRenderContext(target, 1<<16)

	shader := &Shader{
		ShadeVertices: passthroughVertexShader,
		ShadePixels:   flatColorPixelShader,
		NumAttribs:    4,
		NumParams:     4,
	}

	state := &DrawState{
		Attribs: [][]float32{
			{0, -0.5, 0, 1},
			{0.5, 0.5, 0, 1},
			{-0.5, 0.5, 0, 1},
		},
		Indices: []int32{0, 1, 2},
		Shader:  shader,
		Cull:    CullNone,
	}
	rc.Submit(state)
	if err := rc.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	block := color.ReadBlock(TileSize/2-2, TileSize/2)
	var anyRed bool
	for i := 0; i < simd.Lanes; i++ {
		if block.Lane(i)&0xff == 0xff {
			anyRed = true
		}
	}
	if !anyRed {
		t.Fatalf("expected at least one red pixel near tile center, block=%v", block)
	}
}

func TestSetUpTriangleDiscardsFullyClippedTriangle(t *testing.T) {
	color := NewSurface(TileSize, TileSize, FormatRGBA8888)
	target := &RenderTarget{Color: color}
	rc := NewRenderContext(target, 1<<12)
	state := &DrawState{Shader: &Shader{NumParams: 4}}

	before := 0
	for _, q := range rc.tileQueues {
		before += q.Len()
	}
	rc.setUpTriangle(state,
		[]float32{0, 0, 0, 0.5},
		[]float32{1, 0, 0, 0.5},
		[]float32{0, 1, 0, 0.5},
	)
	after := 0
	for _, q := range rc.tileQueues {
		after += q.Len()
	}
	if after != before {
		t.Fatalf("triangle with all w<1 must be discarded, queues grew by %d", after-before)
	}
}
