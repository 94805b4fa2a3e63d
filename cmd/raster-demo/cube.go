package main

// Cube geometry ported from the original firmware demo's cube.h: 24 vertices
// (four per face, so each face gets its own normal and texture coordinates
// rather than sharing averaged corner normals) and 12 triangles, two per
// face, wound counterclockwise when viewed from outside.

// attribute layout must match shaders.numAttribs: pos(3), normal(3), uv(2).
const cubeAttribsPerVertex = 8

var cubeVertices = [][]float32{
	// +Z face
	{-1, -1, 1, 0, 0, 1, 0, 0},
	{1, -1, 1, 0, 0, 1, 1, 0},
	{1, 1, 1, 0, 0, 1, 1, 1},
	{-1, 1, 1, 0, 0, 1, 0, 1},
	// -Z face
	{1, -1, -1, 0, 0, -1, 0, 0},
	{-1, -1, -1, 0, 0, -1, 1, 0},
	{-1, 1, -1, 0, 0, -1, 1, 1},
	{1, 1, -1, 0, 0, -1, 0, 1},
	// +X face
	{1, -1, 1, 1, 0, 0, 0, 0},
	{1, -1, -1, 1, 0, 0, 1, 0},
	{1, 1, -1, 1, 0, 0, 1, 1},
	{1, 1, 1, 1, 0, 0, 0, 1},
	// -X face
	{-1, -1, -1, -1, 0, 0, 0, 0},
	{-1, -1, 1, -1, 0, 0, 1, 0},
	{-1, 1, 1, -1, 0, 0, 1, 1},
	{-1, 1, -1, -1, 0, 0, 0, 1},
	// +Y face
	{-1, 1, 1, 0, 1, 0, 0, 0},
	{1, 1, 1, 0, 1, 0, 1, 0},
	{1, 1, -1, 0, 1, 0, 1, 1},
	{-1, 1, -1, 0, 1, 0, 0, 1},
	// -Y face
	{-1, -1, -1, 0, -1, 0, 0, 0},
	{1, -1, -1, 0, -1, 0, 1, 0},
	{1, -1, 1, 0, -1, 0, 1, 1},
	{-1, -1, 1, 0, -1, 0, 0, 1},
}

var cubeIndices = []int32{
	0, 1, 2, 0, 2, 3, // +Z
	4, 5, 6, 4, 6, 7, // -Z
	8, 9, 10, 8, 10, 11, // +X
	12, 13, 14, 12, 14, 15, // -X
	16, 17, 18, 16, 18, 19, // +Y
	20, 21, 22, 20, 22, 23, // -Y
}

// checkerTexels builds an n x n checkerboard in RGBA8888, alternating 8x8
// blocks of near-white and mid-gray, for the textured face of the demo.
func checkerTexels(n int) []byte {
	buf := make([]byte, n*n*4)
	const block = 8
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			light := ((x/block)+(y/block))%2 == 0
			off := (y*n + x) * 4
			if light {
				buf[off], buf[off+1], buf[off+2], buf[off+3] = 0xe0, 0xe0, 0xe0, 0xff
			} else {
				buf[off], buf[off+1], buf[off+2], buf[off+3] = 0x40, 0x40, 0x40, 0xff
			}
		}
	}
	return buf
}
