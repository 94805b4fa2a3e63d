package render

import (
	"math"
	"testing"

	"github.com/nyuzi-go/nyuzigo/internal/simd"
)

func TestLinearInterpolatorEvalScalarMatchesVertices(t *testing.T) {
	l := NewLinearInterpolator(0, 0, 1, 10, 0, 3, 0, 10, 7)
	cases := []struct {
		x, y, want float32
	}{
		{0, 0, 1},
		{10, 0, 3},
		{0, 10, 7},
	}
	for _, c := range cases {
		got := l.EvalScalar(c.x, c.y)
		if math.Abs(float64(got-c.want)) > 1e-3 {
			t.Errorf("eval(%v,%v) = %v, want %v", c.x, c.y, got, c.want)
		}
	}
}

func TestParameterInterpolatorSkipsPerspectiveWhenZEqual(t *testing.T) {
	p := NewParameterInterpolator(0, 0, 2, 10, 0, 2, 0, 10, 2)
	p.SetUpParam(1, 1, 1)
	z := p.EvalZ(simd.SplatF(5), simd.SplatF(5))
	if z.LaneF(0) != 2 {
		t.Fatalf("constant-z triangle should report z=2 everywhere, got %v", z.LaneF(0))
	}
	c := p.EvalParam(0, simd.SplatF(5), simd.SplatF(5), z)
	if c.LaneF(0) != 1 {
		t.Fatalf("constant param should be 1 everywhere, got %v", c.LaneF(0))
	}
}

func TestParameterInterpolatorConstantParamSkipsPlane(t *testing.T) {
	p := NewParameterInterpolator(0, 0, 1, 10, 0, 2, 0, 10, 3)
	p.SetUpParam(4, 4, 4)
	if !p.params[0].isConstant {
		t.Fatalf("equal vertex values should be marked constant")
	}
}
