package render

import (
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/nyuzi-go/nyuzigo/internal/render/slab"
	"github.com/nyuzi-go/nyuzigo/internal/simd"
)

// CullMode selects which triangle winding is discarded during setup.
type CullMode int

const (
	CullNone CullMode = iota
	CullCW
	CullCCW
)

// negInfDepth is -infinity encoded as a raw float32 bit pattern, the tile
// clear value for the depth buffer so every subsequent greater-than test
// passes on the first draw to touch a pixel.
const negInfDepth uint32 = 0xff800000

// DrawState is a value record describing one submitted draw: attribute and
// index buffers, uniform blob, shader pair, texture bindings, and the
// per-draw state flags. Submit clones it into the draw queue and copies its
// uniform blob into the frame slab; finish() drops the clones and resets
// the slab.
type DrawState struct {
	Attribs    [][]float32 // one slice of attribute floats per vertex
	Indices    []int32
	Uniforms   []byte
	Shader     *Shader
	Textures   [4]*Texture
	DepthTest  bool
	Blend      bool
	Cull       CullMode
	ClearColor bool
}

// Triangle is the post-setup record a vertex-shaded, clipped, and
// perspective-divided triangle becomes before binning: three raster-space
// vertices with their full interpolated parameter sets, plus enough of the
// owning DrawState to shade it later in isolation from draw order.
type Triangle struct {
	seq      int64
	state    *DrawState
	x, y, z  [3]float32 // screen-space, post perspective divide
	rx, ry   [3]int32   // raster (pixel) coordinates
	ccw      bool
	params   [3][]float32 // per-vertex interpolated parameter values (position stripped)
}

// RenderContext drives one frame: draw submission, vertex shading, near
// plane clipping, triangle setup/binning into tile queues, and the
// parallel tile-fill pass, mirroring the source's finish()-phased pipeline.
type RenderContext struct {
	target *RenderTarget

	arena *slab.Arena
	draws []*DrawState

	tileCols, tileRows int
	tileQueues         []*slab.ChunkedArray[*Triangle]

	clearR, clearG, clearB float32
	wireframe              bool
	nextSeq                int64
}

// NewRenderContext builds a context bound to target, sized for target's
// color surface. The frame slab is sized generously for a typical frame's
// worth of DrawStates, triangles, and parameter buffers; finish() resets it
// every frame rather than growing it.
func NewRenderContext(target *RenderTarget, arenaBytes int) *RenderContext {
	cols := (target.Color.Width + TileSize - 1) / TileSize
	rows := (target.Color.Height + TileSize - 1) / TileSize
	rc := &RenderContext{
		target:   target,
		arena:    slab.NewArena(arenaBytes),
		tileCols: cols,
		tileRows: rows,
	}
	rc.tileQueues = make([]*slab.ChunkedArray[*Triangle], cols*rows)
	for i := range rc.tileQueues {
		rc.tileQueues[i] = slab.NewChunkedArray[*Triangle]()
	}
	return rc
}

// SetClearColor sets the color the target's color tile is cleared to
// before each frame's triangles are drawn into it.
func (rc *RenderContext) SetClearColor(r, g, b float32) { rc.clearR, rc.clearG, rc.clearB = r, g, b }

// EnableWireframeMode switches fill_tile to wireframe_tile for subsequent
// finish() calls.
func (rc *RenderContext) EnableWireframeMode(on bool) { rc.wireframe = on }

// Submit enqueues one draw command, to be processed in finish() in
// submission order. The uniform blob is copied into the frame slab so the
// caller's buffer can be reused or freed immediately after Submit returns.
func (rc *RenderContext) Submit(state *DrawState) {
	cp := *state
	if len(cp.Uniforms) > 0 {
		cp.Uniforms = rc.arena.Alloc(len(state.Uniforms), 8)
		copy(cp.Uniforms, state.Uniforms)
	}
	rc.draws = append(rc.draws, &cp)
}

// Finish executes every queued draw (vertex shading, clip, setup, binning),
// then fills every tile in parallel, then resets the frame for reuse.
func (rc *RenderContext) Finish() error {
	for _, state := range rc.draws {
		if err := rc.processDraw(state); err != nil {
			return err
		}
	}
	if err := rc.fillTiles(); err != nil {
		return err
	}
	rc.draws = rc.draws[:0]
	for _, q := range rc.tileQueues {
		q.Reset()
	}
	rc.arena.Reset()
	return nil
}

// processDraw runs phases (a)-(c) of finish() for one DrawState: vertex
// shading in groups of 16, then per-triangle clip+setup+enqueue.
func (rc *RenderContext) processDraw(state *DrawState) error {
	numVerts := len(state.Attribs)
	numParams := state.Shader.NumParams
	outParams := make([][]float32, numVerts)

	var g errgroup.Group
	for base := 0; base < numVerts; base += simd.Lanes {
		base := base
		g.Go(func() error {
			count := numVerts - base
			if count > simd.Lanes {
				count = simd.Lanes
			}
			var mask simd.Mask
			group := make([][]float32, simd.Lanes)
			for i := 0; i < count; i++ {
				group[i] = state.Attribs[base+i]
				mask |= 1 << uint(i)
			}
			params := make([]simd.Vec, numParams)
			state.Shader.ShadeVertices(&params, group, state.Uniforms, mask)
			for i := 0; i < count; i++ {
				v := make([]float32, numParams)
				for p := 0; p < numParams; p++ {
					v[p] = params[p].LaneF(i)
				}
				outParams[base+i] = v
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	numTris := len(state.Indices) / 3
	var fg errgroup.Group
	for t := 0; t < numTris; t++ {
		t := t
		fg.Go(func() error {
			i0 := state.Indices[t*3]
			i1 := state.Indices[t*3+1]
			i2 := state.Indices[t*3+2]
			rc.setUpTriangle(state, outParams[i0], outParams[i1], outParams[i2])
			return nil
		})
	}
	return fg.Wait()
}

// clipVertex is one Sutherland-Hodgman clip-space vertex: params[0:4] are
// (x,y,z,w); params[4:] are the remaining interpolated varyings.
type clipVertex struct{ params []float32 }

func (v clipVertex) w() float32 { return v.params[3] }

// lerpVertex returns the point on the edge between a (clipped, w<1) and
// b (kept) where w = 1: it moves from b toward a by
// t = (w_b - 1) / (w_b - w_a), per the near-plane clip formula.
func lerpVertex(a, b clipVertex) clipVertex {
	t := (b.w() - 1) / (b.w() - a.w())
	out := make([]float32, len(a.params))
	for i := range out {
		out[i] = b.params[i] + (a.params[i]-b.params[i])*t
	}
	return clipVertex{params: out}
}

// setUpTriangle clips v0,v1,v2 against the near plane (w < 1), then for
// each surviving triangle performs perspective divide, raster-coordinate
// conversion, winding/culling, and tile binning.
func (rc *RenderContext) setUpTriangle(state *DrawState, p0, p1, p2 []float32) {
	verts := [3]clipVertex{{p0}, {p1}, {p2}}
	var clipMask int
	for i, v := range verts {
		if v.w() < 1.0 {
			clipMask |= 1 << uint(i)
		}
	}

	switch clipMask {
	case 0:
		rc.enqueueTriangle(state, verts[0], verts[1], verts[2])
	case 7:
		return
	case 1, 2, 4:
		rc.clipOne(state, verts, clipMask)
	case 3, 5, 6:
		rc.clipTwo(state, verts, clipMask)
	}
}

// clipOne handles a single clipped vertex: it is replaced by two
// interpolated vertices on the edges leaving it, producing two triangles.
func (rc *RenderContext) clipOne(state *DrawState, v [3]clipVertex, mask int) {
	var bad int
	switch mask {
	case 1:
		bad = 0
	case 2:
		bad = 1
	case 4:
		bad = 2
	}
	a := v[bad]
	b := v[(bad+1)%3]
	c := v[(bad+2)%3]
	ab := lerpVertex(a, b)
	ac := lerpVertex(a, c)
	rc.enqueueTriangle(state, ab, b, c)
	rc.enqueueTriangle(state, ab, c, ac)
}

// clipTwo handles two clipped vertices: the single surviving vertex is
// replaced by two interpolated vertices on the edges entering it, emitting
// one triangle.
func (rc *RenderContext) clipTwo(state *DrawState, v [3]clipVertex, mask int) {
	var good int
	switch mask {
	case 6:
		good = 0
	case 5:
		good = 1
	case 3:
		good = 2
	}
	a := v[(good+1)%3]
	b := v[(good+2)%3]
	c := v[good]
	ca := lerpVertex(a, c)
	cb := lerpVertex(b, c)
	rc.enqueueTriangle(state, c, ca, cb)
}

// enqueueTriangle performs perspective divide, raster-coordinate
// conversion, winding test and culling, then bins the triangle into every
// tile its bounding box overlaps.
func (rc *RenderContext) enqueueTriangle(state *DrawState, v0, v1, v2 clipVertex) {
	w := float32(rc.target.Color.Width)
	h := float32(rc.target.Color.Height)

	var sx, sy, sz [3]float32
	var params [3][]float32
	for i, v := range [3]clipVertex{v0, v1, v2} {
		invW := 1.0 / v.w()
		x, y, z := v.params[0]*invW, v.params[1]*invW, v.params[2]*invW
		sx[i] = x*w/2 + w/2
		sy[i] = -y*h/2 + h/2
		sz[i] = z
		extra := make([]float32, len(v.params)-4)
		for k := range extra {
			extra[k] = v.params[4+k] * invW
		}
		params[i] = extra
	}

	cross := (sx[1]-sx[0])*(sy[2]-sy[0]) - (sy[1]-sy[0])*(sx[2]-sx[0])
	if cross == 0 {
		return // edge-on
	}
	ccw := cross < 0 // screen space has y flipped vs. model space
	switch state.Cull {
	case CullCCW:
		if ccw {
			return
		}
	case CullCW:
		if !ccw {
			return
		}
	}

	tri := &Triangle{
		seq:    rc.nextSeq,
		state:  state,
		x:      sx,
		y:      sy,
		z:      sz,
		ccw:    ccw,
		params: params,
	}
	rc.nextSeq++
	for i := 0; i < 3; i++ {
		tri.rx[i] = int32(math.Round(float64(sx[i])))
		tri.ry[i] = int32(math.Round(float64(sy[i])))
	}

	minX := minOf3(sx[0], sx[1], sx[2])
	maxX := maxOf3(sx[0], sx[1], sx[2])
	minY := minOf3(sy[0], sy[1], sy[2])
	maxY := maxOf3(sy[0], sy[1], sy[2])

	tileMinX := clampInt(int(minX)/TileSize, 0, rc.tileCols-1)
	tileMaxX := clampInt(int(maxX)/TileSize, 0, rc.tileCols-1)
	tileMinY := clampInt(int(minY)/TileSize, 0, rc.tileRows-1)
	tileMaxY := clampInt(int(maxY)/TileSize, 0, rc.tileRows-1)

	for ty := tileMinY; ty <= tileMaxY; ty++ {
		for tx := tileMinX; tx <= tileMaxX; tx++ {
			rc.tileQueues[ty*rc.tileCols+tx].Append(tri)
		}
	}
}

// fillTiles runs fill_tile (or wireframe_tile) over every tile in
// parallel, one goroutine-pool task per tile.
func (rc *RenderContext) fillTiles() error {
	var g errgroup.Group
	for ty := 0; ty < rc.tileRows; ty++ {
		for tx := 0; tx < rc.tileCols; tx++ {
			ty, tx := ty, tx
			g.Go(func() error {
				if rc.wireframe {
					rc.wireframeTile(tx, ty)
				} else {
					rc.fillTile(tx, ty)
				}
				return nil
			})
		}
	}
	return g.Wait()
}

// fillTile clears, sorts, and shades one tile: every triangle queued
// against it is re-tested with exact edge equations (the bounding box used
// for binning is coarse) before the hierarchical rasterizer runs.
func (rc *RenderContext) fillTile(tx, ty int) {
	left, top := tx*TileSize, ty*TileSize
	right := minInt(left+TileSize, rc.target.Color.Width)
	bottom := minInt(top+TileSize, rc.target.Color.Height)

	queue := rc.tileQueues[ty*rc.tileCols+tx]
	if queue.Len() == 0 {
		return
	}

	rc.target.Color.ClearTile(left, top, packClearColor(rc.clearR, rc.clearG, rc.clearB))
	if rc.target.Depth != nil {
		rc.target.Depth.ClearTile(left, top, negInfDepth)
	}

	queue.SortBy(func(a, b *Triangle) bool { return a.seq < b.seq })

	tb := box{left, top, right, bottom}
	for i := 0; i < queue.Len(); i++ {
		tri := queue.At(i)
		if !triangleOverlapsTile(tri, tb) {
			continue
		}
		filler := NewTriangleFiller(rc.target, tri.state.Shader, tri.state.Uniforms, tri.state.Textures, tri.state.DepthTest, tri.state.Blend)
		filler.SetUpTriangle(tri.x[0], tri.y[0], tri.z[0], tri.x[1], tri.y[1], tri.z[1], tri.x[2], tri.y[2], tri.z[2])
		for p := 0; p < len(tri.params[0]); p++ {
			filler.SetUpParam(tri.params[0][p], tri.params[1][p], tri.params[2][p])
		}

		x0, y0, x1, y1, x2, y2 := tri.x[0], tri.y[0], tri.x[1], tri.y[1], tri.x[2], tri.y[2]
		if tri.ccw {
			x1, y1, x2, y2 = x2, y2, x1, y1
		}
		r := NewHierarchicalRasterizer(x0, y0, x1, y1, x2, y2)
		r.Fill(tb, filler)
	}

	rc.target.Color.FlushTile(left, top)
}

// triangleOverlapsTile re-tests a triangle's exact edge equations against
// the tile's four corners, discarding triangles whose coarse binning
// bounding box touched the tile but whose actual geometry does not.
func triangleOverlapsTile(tri *Triangle, tb box) bool {
	x0, y0, x1, y1, x2, y2 := tri.x[0], tri.y[0], tri.x[1], tri.y[1], tri.x[2], tri.y[2]
	if tri.ccw {
		x1, y1, x2, y2 = x2, y2, x1, y1
	}
	edges := [3]edgeEquation{
		newEdgeEquation(x0, y0, x1, y1),
		newEdgeEquation(x1, y1, x2, y2),
		newEdgeEquation(x2, y2, x0, y0),
	}
	for _, e := range edges {
		_, allOut := e.cornerSigns(tb)
		if allOut {
			return false
		}
	}
	return true
}

// wireframeTile clears the tile and draws each queued triangle's three
// edges as Cohen-Sutherland-clipped line segments in the clear color.
func (rc *RenderContext) wireframeTile(tx, ty int) {
	left, top := tx*TileSize, ty*TileSize
	right := minInt(left+TileSize, rc.target.Color.Width)
	bottom := minInt(top+TileSize, rc.target.Color.Height)

	queue := rc.tileQueues[ty*rc.tileCols+tx]
	rc.target.Color.ClearTile(left, top, packClearColor(rc.clearR, rc.clearG, rc.clearB))
	if queue.Len() == 0 {
		return
	}

	color := packClearColorInv(rc.clearR, rc.clearG, rc.clearB)
	tb := box{left, top, right, bottom}
	for i := 0; i < queue.Len(); i++ {
		tri := queue.At(i)
		drawClippedLine(rc.target.Color, tb, tri.x[0], tri.y[0], tri.x[1], tri.y[1], color)
		drawClippedLine(rc.target.Color, tb, tri.x[1], tri.y[1], tri.x[2], tri.y[2], color)
		drawClippedLine(rc.target.Color, tb, tri.x[2], tri.y[2], tri.x[0], tri.y[0], color)
	}
	rc.target.Color.FlushTile(left, top)
}

// Cohen-Sutherland outcodes for line clipping against a tile rectangle.
const (
	outLeft   = 1
	outRight  = 2
	outBottom = 4
	outTop    = 8
)

func outcode(x, y float32, b box) int {
	code := 0
	if x < float32(b.left) {
		code |= outLeft
	} else if x > float32(b.right) {
		code |= outRight
	}
	if y < float32(b.top) {
		code |= outTop
	} else if y > float32(b.bottom) {
		code |= outBottom
	}
	return code
}

// drawClippedLine clips (x0,y0)-(x1,y1) against b with Cohen-Sutherland,
// then rasterizes the surviving segment with a single-pixel-wide Bresenham
// walk directly into surf.
func drawClippedLine(surf *Surface, b box, x0, y0, x1, y1 float32, color uint32) {
	c0 := outcode(x0, y0, b)
	c1 := outcode(x1, y1, b)
	for {
		if c0 == 0 && c1 == 0 {
			break
		}
		if c0&c1 != 0 {
			return
		}
		out := c0
		if out == 0 {
			out = c1
		}
		var x, y float32
		switch {
		case out&outTop != 0:
			x = x0 + (x1-x0)*(float32(b.top)-y0)/(y1-y0)
			y = float32(b.top)
		case out&outBottom != 0:
			x = x0 + (x1-x0)*(float32(b.bottom)-y0)/(y1-y0)
			y = float32(b.bottom)
		case out&outRight != 0:
			y = y0 + (y1-y0)*(float32(b.right)-x0)/(x1-x0)
			x = float32(b.right)
		case out&outLeft != 0:
			y = y0 + (y1-y0)*(float32(b.left)-x0)/(x1-x0)
			x = float32(b.left)
		}
		if out == c0 {
			x0, y0 = x, y
			c0 = outcode(x0, y0, b)
		} else {
			x1, y1 = x, y
			c1 = outcode(x1, y1, b)
		}
	}
	bresenhamLine(surf, int(x0), int(y0), int(x1), int(y1), color)
}

func bresenhamLine(surf *Surface, x0, y0, x1, y1 int, color uint32) {
	dx := absInt(x1 - x0)
	dy := -absInt(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		if x0 >= 0 && x0 < surf.Width && y0 >= 0 && y0 < surf.Height {
			surf.setPixelScalar(x0, y0, color)
		}
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func packClearColor(r, g, b float32) uint32 {
	return 0xff000000 | uint32(r*255) | uint32(g*255)<<8 | uint32(b*255)<<16
}

func packClearColorInv(r, g, b float32) uint32 {
	return 0xff000000 | uint32((1-r)*255) | uint32((1-g)*255)<<8 | uint32((1-b)*255)<<16
}

func minOf3(a, b, c float32) float32 { return minF(minF(a, b), c) }
func maxOf3(a, b, c float32) float32 { return maxF(maxF(a, b), c) }
func minF(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
func maxF(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
