package simd

import (
	"math"
	"testing"
)

func TestScatterGatherRoundTrip(t *testing.T) {
	mem := make([]byte, 256)
	var addrs Vec
	for i := range addrs {
		addrs.SetLane(i, uint32(i*4))
	}
	var values Vec
	for i := range values {
		values.SetLane(i, uint32(i*7+1))
	}
	Scatter(mem, addrs, values)
	got := Gather(mem, addrs)
	if got != values {
		t.Fatalf("gather(scatter(v)) = %v, want %v", got, values)
	}
}

func TestScatterMaskedLeavesUnmaskedLanesUntouched(t *testing.T) {
	mem := make([]byte, 256)
	var addrs Vec
	for i := range addrs {
		addrs.SetLane(i, uint32(i*4))
	}
	Scatter(mem, addrs, Splat(0xdeadbeef))

	var newValues Vec
	for i := range newValues {
		newValues.SetLane(i, 0x11111111)
	}
	const mask Mask = 0x00ff
	ScatterMasked(mem, addrs, mask, newValues)

	got := Gather(mem, addrs)
	for i := 0; i < Lanes; i++ {
		if mask&(1<<uint(i)) != 0 {
			if got[i] != 0x11111111 {
				t.Fatalf("lane %d: masked-in write lost, got %x", i, got[i])
			}
		} else if got[i] != 0xdeadbeef {
			t.Fatalf("lane %d: masked-out lane overwritten, got %x", i, got[i])
		}
	}
}

func TestReciprocalTruncatesMantissaToSixBits(t *testing.T) {
	x := float32(3.0)
	got := ReciprocalScalar(x)
	bits := math.Float32bits(got)
	const clearMask = uint32(1)<<(23-6) - 1
	if bits&clearMask != 0 {
		t.Fatalf("reciprocal(%v) = %x, mantissa not truncated to 6 bits", x, bits)
	}
	// still within the ballpark of the true reciprocal
	want := 1.0 / x
	if diff := math.Abs(float64(got - want)); diff > 0.05 {
		t.Fatalf("reciprocal(%v) = %v, too far from true value %v", x, got, want)
	}
}

func TestReciprocalOfNaNIsNaN(t *testing.T) {
	nan := float32(math.NaN())
	got := ReciprocalScalar(nan)
	if !math.IsNaN(float64(got)) {
		t.Fatalf("reciprocal(NaN) = %x, want NaN (not masked to 0xfffe0000)", math.Float32bits(got))
	}
}

func TestIsqrtApproximatesInverseSqrt(t *testing.T) {
	x := float32(4.0)
	got := IsqrtScalar(x)
	want := float32(0.5)
	if diff := math.Abs(float64(got - want)); diff > 0.01 {
		t.Fatalf("isqrt(4) = %v, want ~%v", got, want)
	}
}

func TestShuffleSelectsLaneModulo16(t *testing.T) {
	var src1 Vec
	for i := range src1 {
		src1.SetLane(i, uint32(i*10))
	}
	var idx Vec
	for i := range idx {
		idx.SetLane(i, uint32(Lanes-1-i)+uint32(i*Lanes))
	}
	out := Shuffle(src1, idx)
	for i := 0; i < Lanes; i++ {
		want := src1[Lanes-1-i]
		if out[i] != want {
			t.Fatalf("lane %d: got %d want %d", i, out[i], want)
		}
	}
}

func TestSelectPicksPerLane(t *testing.T) {
	a := SplatI(1)
	b := SplatI(2)
	out := Select(0x0001, a, b)
	if out.LaneI(0) != 1 {
		t.Fatalf("lane 0 should come from a")
	}
	if out.LaneI(1) != 2 {
		t.Fatalf("lane 1 should come from b")
	}
}

func TestConvertRoundTrip(t *testing.T) {
	v := SplatI(-7)
	f := ToFloat(v)
	if f.LaneF(0) != -7.0 {
		t.Fatalf("ToFloat(-7) = %v", f.LaneF(0))
	}
	back := ToInt(f)
	if back.LaneI(0) != -7 {
		t.Fatalf("ToInt(-7.0) = %v", back.LaneI(0))
	}
}
