// Package render implements the sort-middle, tile-based, perspective-correct
// software rasterization pipeline: Surface storage, texture sampling,
// plane-equation interpolation, the per-tile pixel-shading filler, the
// hierarchical coverage rasterizer, and the render context that drives a
// frame from submitted draw state to finished tiles.
package render

import (
	"github.com/nyuzi-go/nyuzigo/internal/simd"
)

// PixelFormat selects a Surface's per-pixel encoding.
type PixelFormat int

const (
	// FormatRGBA8888 packs four 8-bit channels into one 32-bit word.
	FormatRGBA8888 PixelFormat = iota
	// FormatFloatDepth stores one raw float32 per pixel (no packing).
	FormatFloatDepth
	// FormatGray8 stores one 8-bit luminance byte per pixel.
	FormatGray8
)

func (f PixelFormat) bytesPerPixel() int {
	switch f {
	case FormatRGBA8888, FormatFloatDepth:
		return 4
	case FormatGray8:
		return 1
	default:
		panic("render: unknown pixel format")
	}
}

// QuadSize is the side length, in pixels, of the atomic 4x4 shading quad.
const QuadSize = 4

// TileSize is the side length, in pixels, of a screen tile. It must be a
// power of four times QuadSize so the hierarchical rasterizer's 4x
// subdivisions land exactly on a 4x4 quad at the base case.
const TileSize = 64

// Surface is a packed 2D pixel buffer with precomputed lane offsets for
// gather/scatter over a 4x4 block. Lane 0 of that block is the block's
// upper-left pixel and lane 15 is its lower-right pixel, in row-major
// order; every consumer of Surface depends on that lane layout.
type Surface struct {
	Width, Height int
	Format        PixelFormat
	bpp           int
	stride        int
	pixels        []byte
	owned         bool

	blockOffsets simd.Vec // byte offset of each lane within a 4x4 block
	stepX, stepY [simd.Lanes]int32
}

// NewSurface allocates and owns a width x height surface in the given
// format. When the surface will be used as a rasterization destination,
// width and height must be multiples of TileSize (the tile dispatcher
// relies on that to avoid partial-tile bookkeeping in the hot path).
func NewSurface(width, height int, format PixelFormat) *Surface {
	bpp := format.bytesPerPixel()
	s := &Surface{
		Width:  width,
		Height: height,
		Format: format,
		bpp:    bpp,
		stride: width * bpp,
		pixels: make([]byte, width*height*bpp),
		owned:  true,
	}
	s.precomputeBlockLayout()
	return s
}

// WrapSurface constructs a Surface over caller-owned pixel memory (the
// framebuffer case): it never frees pixels and pixels must outlive it.
// len(pixels) must be at least width*height*bytesPerPixel(format).
func WrapSurface(pixels []byte, width, height int, format PixelFormat) *Surface {
	bpp := format.bytesPerPixel()
	s := &Surface{
		Width:  width,
		Height: height,
		Format: format,
		bpp:    bpp,
		stride: width * bpp,
		pixels: pixels,
		owned:  false,
	}
	s.precomputeBlockLayout()
	return s
}

func (s *Surface) precomputeBlockLayout() {
	for lane := 0; lane < simd.Lanes; lane++ {
		dx := int32(lane % QuadSize)
		dy := int32(lane / QuadSize)
		s.stepX[lane] = dx
		s.stepY[lane] = dy
		s.blockOffsets.SetLane(lane, uint32(dy)*uint32(s.stride)+uint32(dx)*uint32(s.bpp))
	}
}

// Pixels exposes the raw backing store (used by host present callbacks).
func (s *Surface) Pixels() []byte { return s.pixels }

// Stride returns the number of bytes between the start of consecutive rows.
func (s *Surface) Stride() int { return s.stride }

// BytesPerPixel returns the surface's per-pixel byte width.
func (s *Surface) BytesPerPixel() int { return s.bpp }

func (s *Surface) blockAddrs(left, top int) simd.Vec {
	base := uint32(top*s.stride + left*s.bpp)
	var addrs simd.Vec
	for i := 0; i < simd.Lanes; i++ {
		addrs.SetLane(i, base+s.blockOffsets.Lane(i))
	}
	return addrs
}

// QuadXY returns the pixel-center screen coordinates of the 4x4 quad whose
// upper-left corner is (left, top), in the same lane order as ReadBlock.
func (s *Surface) QuadXY(left, top int) (x, y simd.Vec) {
	fl, ft := float32(left), float32(top)
	for i := 0; i < simd.Lanes; i++ {
		x.SetLaneF(i, fl+float32(s.stepX[i])+0.5)
		y.SetLaneF(i, ft+float32(s.stepY[i])+0.5)
	}
	return
}

// ReadBlock gathers the 4x4 quad whose upper-left corner is (left, top) in
// the spec's lane order (lane 0 = (left,top), lane 15 = (left+3,top+3)).
func (s *Surface) ReadBlock(left, top int) simd.Vec {
	return simd.Gather(s.pixels, s.blockAddrs(left, top))
}

// WriteBlockMasked scatters 16 pixel values into the 4x4 quad at
// (left, top); lanes with mask bit 0 leave the destination untouched.
func (s *Surface) WriteBlockMasked(left, top int, mask simd.Mask, values simd.Vec) {
	simd.ScatterMasked(s.pixels, s.blockAddrs(left, top), mask, values)
}

// ReadPixels samples 16 arbitrary pixel positions given as integer lane
// vectors tx, ty, unpacking into four float channels (R,G,B,A for
// RGBA8888/Gray8) or returning the raw float value replicated across all
// four outputs for FloatDepth.
func (s *Surface) ReadPixels(tx, ty simd.Vec, mask simd.Mask, out *[4]simd.Vec) {
	var addrs simd.Vec
	for i := 0; i < simd.Lanes; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		x := int(tx.LaneI(i))
		y := int(ty.LaneI(i))
		addrs.SetLane(i, uint32(y*s.stride+x*s.bpp))
	}
	raw := simd.GatherMasked(s.pixels, addrs, mask, simd.Vec{})

	switch s.Format {
	case FormatFloatDepth:
		out[0] = raw
		out[1] = raw
		out[2] = raw
		out[3] = raw
	default:
		for i := 0; i < simd.Lanes; i++ {
			if mask&(1<<uint(i)) == 0 {
				continue
			}
			p := raw.Lane(i)
			out[0].SetLaneF(i, float32(p&0xff)/255.0)
			out[1].SetLaneF(i, float32((p>>8)&0xff)/255.0)
			out[2].SetLaneF(i, float32((p>>16)&0xff)/255.0)
			out[3].SetLaneF(i, float32((p>>24)&0xff)/255.0)
		}
	}
}

// ClearTile fills a TileSize x TileSize tile with value. The common case
// (tile fully inside the surface) uses the 4x4-block writer across the
// whole tile; edges of a non-multiple-of-TileSize surface are clipped
// pixel by pixel.
func (s *Surface) ClearTile(left, top int, value uint32) {
	fillVec := simd.Splat(value)
	maxX := left + TileSize
	maxY := top + TileSize
	if maxX <= s.Width && maxY <= s.Height {
		for y := top; y < maxY; y += QuadSize {
			for x := left; x < maxX; x += QuadSize {
				s.WriteBlockMasked(x, y, 0xffff, fillVec)
			}
		}
		return
	}
	for y := top; y < maxY && y < s.Height; y++ {
		for x := left; x < maxX && x < s.Width; x++ {
			s.setPixelScalar(x, y, value)
		}
	}
}

func (s *Surface) setPixelScalar(x, y int, value uint32) {
	off := y*s.stride + x*s.bpp
	switch s.bpp {
	case 4:
		s.pixels[off] = byte(value)
		s.pixels[off+1] = byte(value >> 8)
		s.pixels[off+2] = byte(value >> 16)
		s.pixels[off+3] = byte(value >> 24)
	case 1:
		s.pixels[off] = byte(value)
	}
}

// FlushTile is the cache-visibility barrier for a tile's writeback. Memory
// here is coherent and Go has no cache-flush intrinsic, so it does nothing:
// no cache line of the tile is touched or counted.
func (s *Surface) FlushTile(left, top int) {
	_ = left
	_ = top
}
