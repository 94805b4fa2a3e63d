package render

import "github.com/nyuzi-go/nyuzigo/internal/simd"

// edgeEquation is one triangle edge expressed as the standard rasterizer
// half-plane test a*x + b*y + c, generalized from the scanline rasterizer's
// per-pixel edgeFunction into an incrementally-evaluable plane so the
// hierarchical rasterizer can test a box's four corners at once instead of
// every pixel inside it.
type edgeEquation struct {
	a, b, c float32
	// topLeft marks a top or left edge (by the standard fill-rule
	// definition) so it is included when a sample lands exactly on it and
	// excluded otherwise, avoiding seam double-shading or gaps between
	// adjacent triangles that share the edge.
	topLeft bool
}

func newEdgeEquation(x0, y0, x1, y1 float32) edgeEquation {
	a := y0 - y1
	b := x1 - x0
	c := -(a*x0 + b*y0)
	topLeft := (a > 0) || (a == 0 && b < 0)
	return edgeEquation{a: a, b: b, c: c, topLeft: topLeft}
}

func (e edgeEquation) eval(x, y float32) float32 { return e.a*x + e.b*y + e.c }

// accept reports whether the point is inside the half-plane under the
// top-left fill rule: strictly inside is always accepted, and a point
// exactly on the edge is accepted only if the edge is a top or left edge.
func (e edgeEquation) accept(v float32) bool {
	if e.topLeft {
		return v >= 0
	}
	return v > 0
}

// box is an axis-aligned region of screen space, in integer pixel
// coordinates, tested by the hierarchical rasterizer.
type box struct{ left, top, right, bottom int }

func (b box) width() int  { return b.right - b.left }
func (b box) height() int { return b.bottom - b.top }

// HierarchicalRasterizer walks a screen-space triangle's three edge
// equations down from a tile-sized box to 4x4 quads, skipping boxes
// entirely outside the triangle and shading boxes entirely inside it
// without re-testing every pixel, per the sort-middle pipeline's per-tile
// coverage stage.
type HierarchicalRasterizer struct {
	edges [3]edgeEquation
}

// NewHierarchicalRasterizer builds the three edge equations of the
// triangle (x0,y0)-(x1,y1)-(x2,y2), whose vertices must be ordered so that
// (x1-x0)*(y2-y0) - (y1-y0)*(x2-x0) is positive; fillTile swaps vertices 1
// and 2 of every triangle enqueueTriangle marked ccw to get that order.
// Backface culling is resolved before this point.
func NewHierarchicalRasterizer(x0, y0, x1, y1, x2, y2 float32) *HierarchicalRasterizer {
	return &HierarchicalRasterizer{edges: [3]edgeEquation{
		newEdgeEquation(x0, y0, x1, y1),
		newEdgeEquation(x1, y1, x2, y2),
		newEdgeEquation(x2, y2, x0, y0),
	}}
}

// cornerSigns evaluates one edge at a box's four corners and returns
// whether all four are accepted (trivial accept for this edge) and
// whether all four are rejected (trivial reject for this edge).
func (e edgeEquation) cornerSigns(b box) (allIn, allOut bool) {
	corners := [4][2]float32{
		{float32(b.left), float32(b.top)},
		{float32(b.right), float32(b.top)},
		{float32(b.left), float32(b.bottom)},
		{float32(b.right), float32(b.bottom)},
	}
	allIn, allOut = true, true
	for _, c := range corners {
		v := e.eval(c[0], c[1])
		if e.accept(v) {
			allOut = false
		} else {
			allIn = false
		}
	}
	return
}

// Fill walks the tile bounded by tileBox and invokes filler.FillMasked for
// every 4x4 quad that has at least one covered pixel.
func (r *HierarchicalRasterizer) Fill(tileBox box, filler *TriangleFiller) {
	r.recurse(tileBox, filler)
}

func (r *HierarchicalRasterizer) recurse(b box, filler *TriangleFiller) {
	allAccept := true
	for _, e := range r.edges {
		allIn, allOut := e.cornerSigns(b)
		if allOut {
			return // trivially rejected: triangle doesn't touch this box
		}
		if !allIn {
			allAccept = false
		}
	}

	if b.width() == QuadSize && b.height() == QuadSize {
		r.fillQuad(b, filler, allAccept)
		return
	}

	if allAccept {
		r.fillSolidRegion(b, filler)
		return
	}

	halfW := b.width() / 2
	halfH := b.height() / 2
	quadrants := [4]box{
		{b.left, b.top, b.left + halfW, b.top + halfH},
		{b.left + halfW, b.top, b.right, b.top + halfH},
		{b.left, b.top + halfH, b.left + halfW, b.bottom},
		{b.left + halfW, b.top + halfH, b.right, b.bottom},
	}
	for _, q := range quadrants {
		r.recurse(q, filler)
	}
}

// fillSolidRegion shades every 4x4 quad in a box known to be fully inside
// the triangle, skipping the per-edge corner tests entirely.
func (r *HierarchicalRasterizer) fillSolidRegion(b box, filler *TriangleFiller) {
	for y := b.top; y < b.bottom; y += QuadSize {
		for x := b.left; x < b.right; x += QuadSize {
			filler.FillMasked(x, y, 0xffff)
		}
	}
}

// fillQuad is the base case: a single 4x4 quad that needs per-pixel
// coverage, unless the recursion already proved the whole box accepted.
func (r *HierarchicalRasterizer) fillQuad(b box, filler *TriangleFiller, allAccept bool) {
	if allAccept {
		filler.FillMasked(b.left, b.top, 0xffff)
		return
	}
	var mask simd.Mask
	for lane := 0; lane < simd.Lanes; lane++ {
		dx := lane % QuadSize
		dy := lane / QuadSize
		px := float32(b.left+dx) + 0.5
		py := float32(b.top+dy) + 0.5
		covered := true
		for _, e := range r.edges {
			if !e.accept(e.eval(px, py)) {
				covered = false
				break
			}
		}
		if covered {
			mask |= 1 << uint(lane)
		}
	}
	filler.FillMasked(b.left, b.top, mask)
}
