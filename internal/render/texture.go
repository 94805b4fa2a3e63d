package render

import (
	"fmt"
	"math/bits"

	"github.com/nyuzi-go/nyuzigo/internal/simd"
)

// MaxMipLevels bounds a Texture's mip pyramid (base level plus up to 7
// halvings covers any base width this renderer is expected to handle).
const MaxMipLevels = 8

// Texture is a mip pyramid of Surfaces read through for bilinear or nearest
// sampling. Level 0 defines the base width/height; level n must be
// base_width >> n. Dimensions are always powers of two.
type Texture struct {
	mips         [MaxMipLevels]*Surface
	bilinear     bool
	baseWidth    int
	baseHeight   int
	baseMipBits  int
	maxLevel     int
}

// NewTexture returns an empty texture pyramid with the given filter mode.
func NewTexture(bilinear bool) *Texture {
	return &Texture{bilinear: bilinear}
}

// SetBilinear toggles bilinear filtering.
func (t *Texture) SetBilinear(b bool) { t.bilinear = b }

// SetMipSurface binds surface to level. Setting level 0 clears every
// higher level and recomputes the mip-selection constant derived from the
// base width. It asserts (panics, per spec §7's programmer-error policy)
// that surface's dimensions equal base_width >> level.
func (t *Texture) SetMipSurface(level int, surface *Surface) {
	if level < 0 || level >= MaxMipLevels {
		panic(fmt.Sprintf("render: mip level %d out of range", level))
	}
	if level == 0 {
		t.baseWidth = surface.Width
		t.baseHeight = surface.Height
		t.baseMipBits = bits.LeadingZeros32(uint32(surface.Width)) + 1
		for i := 1; i < MaxMipLevels; i++ {
			t.mips[i] = nil
		}
		t.maxLevel = 0
	} else {
		wantW := t.baseWidth >> uint(level)
		wantH := t.baseHeight >> uint(level)
		if surface.Width != wantW || surface.Height != wantH {
			panic(fmt.Sprintf("render: mip level %d dimensions %dx%d, want %dx%d",
				level, surface.Width, surface.Height, wantW, wantH))
		}
		if level > t.maxLevel {
			t.maxLevel = level
		}
	}
	t.mips[level] = surface
}

// pickMipLevel derives a mip level from the quad's adjacent-lane texture
// coordinate derivatives, per the (O3) decision: use the largest of the
// horizontal and vertical finite differences across the quad rather than
// only the du/dx the original approximation used.
func (t *Texture) pickMipLevel(du, dv float32) int {
	maxD := du
	if dv > maxD {
		maxD = dv
	}
	if maxD <= 0 {
		return 0
	}
	level := bits.LeadingZeros32(uint32(1.0/maxD)) - t.baseMipBits
	if level < 0 {
		level = 0
	}
	if level > t.maxLevel {
		level = t.maxLevel
	}
	return level
}

func wrapCoord(x float32) float32 {
	f := x - float32(int32(x))
	if f < 0 {
		f += 1
	}
	return f
}

// ReadPixels samples 16 texels at (u,v) texture coordinates, wrapping to
// [0,1) and inverting v so v=1.0 maps to the top row. The mip level is
// derived once per quad from the largest u and v differences between lane
// 0 and its horizontal (lane 1) and vertical (lane QuadSize) neighbours,
// approximating the quad's footprint (§4.3 step 1 and the (O3) fix for
// off-axis derivatives).
func (t *Texture) ReadPixels(u, v simd.Vec, mask simd.Mask, out *[4]simd.Vec) {
	var du, dv float32
	for _, n := range [2]int{1, QuadSize} {
		d := u.LaneF(n) - u.LaneF(0)
		if d < 0 {
			d = -d
		}
		if d > du {
			du = d
		}
		d = v.LaneF(n) - v.LaneF(0)
		if d < 0 {
			d = -d
		}
		if d > dv {
			dv = d
		}
	}
	level := t.pickMipLevel(du, dv)
	surf := t.mips[level]
	if surf == nil {
		return
	}
	w, h := surf.Width, surf.Height

	if !t.bilinear {
		var tx, ty simd.Vec
		for i := 0; i < simd.Lanes; i++ {
			if mask&(1<<uint(i)) == 0 {
				continue
			}
			uu := wrapCoord(u.LaneF(i))
			vv := 1.0 - wrapCoord(v.LaneF(i))
			tx.SetLaneI(i, int32(uu*float32(w))%int32(w))
			ty.SetLaneI(i, int32(vv*float32(h))%int32(h))
		}
		surf.ReadPixels(tx, ty, mask, out)
		return
	}

	var tl, tr, bl, br [4]simd.Vec
	var wu, wv simd.Vec
	var tx0, ty0, tx1, ty1 simd.Vec
	for i := 0; i < simd.Lanes; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		uu := wrapCoord(u.LaneF(i)) * float32(w)
		vv := (1.0 - wrapCoord(v.LaneF(i))) * float32(h)
		x0 := int32(uu) % int32(w)
		y0 := int32(vv) % int32(h)
		x1 := (x0 + 1) % int32(w)
		y1 := (y0 + 1) % int32(h)
		tx0.SetLaneI(i, x0)
		ty0.SetLaneI(i, y0)
		tx1.SetLaneI(i, x1)
		ty1.SetLaneI(i, y1)
		wu.SetLaneF(i, uu-float32(int32(uu)))
		wv.SetLaneF(i, vv-float32(int32(vv)))
	}
	surf.ReadPixels(tx0, ty0, mask, &tl)
	surf.ReadPixels(tx1, ty0, mask, &tr)
	surf.ReadPixels(tx0, ty1, mask, &bl)
	surf.ReadPixels(tx1, ty1, mask, &br)

	for c := 0; c < 4; c++ {
		for i := 0; i < simd.Lanes; i++ {
			if mask&(1<<uint(i)) == 0 {
				continue
			}
			u0 := 1 - wu.LaneF(i)
			v0 := 1 - wv.LaneF(i)
			weightTL := u0 * v0
			weightTR := wu.LaneF(i) * v0
			weightBL := u0 * wv.LaneF(i)
			weightBR := wu.LaneF(i) * wv.LaneF(i)
			val := tl[c].LaneF(i)*weightTL + tr[c].LaneF(i)*weightTR +
				bl[c].LaneF(i)*weightBL + br[c].LaneF(i)*weightBR
			out[c].SetLaneF(i, val)
		}
	}
}
