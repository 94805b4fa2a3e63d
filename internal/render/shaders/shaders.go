// Package shaders provides worked reference Shader pairs mirroring the
// original firmware's demo shaders (GourandShader.h, PhongShader.h,
// TextureShader.h): flat/Gouraud vertex lighting, per-pixel Phong
// lighting, and textured sampling. These aren't part of librender's public
// surface; cmd/raster-demo and this package's tests exercise them as
// examples of the shader contract.
package shaders

import (
	"encoding/binary"
	"math"

	"github.com/nyuzi-go/nyuzigo/internal/render"
	"github.com/nyuzi-go/nyuzigo/internal/simd"
)

// GouraudUniforms is the uniform blob layout both Gouraud and Phong shaders
// expect: a model-view-projection matrix, a model matrix (for world-space
// normals/positions), and a single directional light.
type GouraudUniforms struct {
	MVP        render.Matrix
	Model      render.Matrix
	LightDir   render.Vec3
	LightColor render.Vec3
}

func packFloat32(dst []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(dst[off:], math.Float32bits(v))
}

func unpackFloat32(src []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(src[off:]))
}

// EncodeGouraudUniforms packs u into a byte blob suitable for bind_uniforms.
func EncodeGouraudUniforms(u GouraudUniforms) []byte {
	buf := make([]byte, 4*4*4*2+3*4*2)
	off := 0
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			packFloat32(buf, off, u.MVP[r][c])
			off += 4
		}
	}
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			packFloat32(buf, off, u.Model[r][c])
			off += 4
		}
	}
	packFloat32(buf, off, u.LightDir.X)
	packFloat32(buf, off+4, u.LightDir.Y)
	packFloat32(buf, off+8, u.LightDir.Z)
	off += 12
	packFloat32(buf, off, u.LightColor.X)
	packFloat32(buf, off+4, u.LightColor.Y)
	packFloat32(buf, off+8, u.LightColor.Z)
	return buf
}

func decodeMatrix(buf []byte, off int) render.Matrix {
	var m render.Matrix
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			m[r][c] = unpackFloat32(buf, off)
			off += 4
		}
	}
	return m
}

func decodeGouraudUniforms(buf []byte) GouraudUniforms {
	mvp := decodeMatrix(buf, 0)
	model := decodeMatrix(buf, 64)
	return GouraudUniforms{
		MVP:        mvp,
		Model:      model,
		LightDir:   render.Vec3{X: unpackFloat32(buf, 128), Y: unpackFloat32(buf, 132), Z: unpackFloat32(buf, 136)},
		LightColor: render.Vec3{X: unpackFloat32(buf, 140), Y: unpackFloat32(buf, 144), Z: unpackFloat32(buf, 148)},
	}
}

// Vertex attribute layout shared by all three shaders below: position(3),
// normal(3), texcoord(2).
const (
	attrPosX = iota
	attrPosY
	attrPosZ
	attrNX
	attrNY
	attrNZ
	attrU
	attrV
	numAttribs
)

// GouraudShader computes per-vertex diffuse lighting and interpolates the
// resulting color linearly across the triangle (params: x,y,z,w,r,g,b).
var GouraudShader = render.Shader{
	NumAttribs: numAttribs,
	NumParams:  7,
	ShadeVertices: func(outParams *[]simd.Vec, inAttribs [][]float32, uniformBlob []byte, mask simd.Mask) {
		u := decodeGouraudUniforms(uniformBlob)
		out := *outParams
		for i := 0; i < simd.Lanes; i++ {
			if mask&(1<<uint(i)) == 0 {
				continue
			}
			a := inAttribs[i]
			x, y, z, w := u.MVP.MulVec4(a[attrPosX], a[attrPosY], a[attrPosZ], 1)
			out[0].SetLaneF(i, x)
			out[1].SetLaneF(i, y)
			out[2].SetLaneF(i, z)
			out[3].SetLaneF(i, w)

			worldNormal := u.Model.Upper3x3()
			nx, ny, nz, _ := worldNormal.MulVec4(a[attrNX], a[attrNY], a[attrNZ], 0)
			n := render.Vec3{X: nx, Y: ny, Z: nz}.Normalize()
			diffuse := n.Dot(u.LightDir.Normalize())
			if diffuse < 0 {
				diffuse = 0
			}
			out[4].SetLaneF(i, u.LightColor.X*diffuse)
			out[5].SetLaneF(i, u.LightColor.Y*diffuse)
			out[6].SetLaneF(i, u.LightColor.Z*diffuse)
		}
	},
	ShadePixels: func(outColor *[4]simd.Vec, params []simd.Vec, uniformBlob []byte, textures [4]*render.Texture, mask simd.Mask) {
		outColor[0] = params[0]
		outColor[1] = params[1]
		outColor[2] = params[2]
		for i := 0; i < simd.Lanes; i++ {
			if mask&(1<<uint(i)) == 0 {
				continue
			}
			outColor[3].SetLaneF(i, 1)
		}
	},
}

// PhongShader interpolates the world-space normal per-pixel and evaluates
// diffuse lighting in the pixel shader instead of the vertex shader, for
// smoother highlights on coarse geometry (params: x,y,z,w,nx,ny,nz).
var PhongShader = render.Shader{
	NumAttribs: numAttribs,
	NumParams:  7,
	ShadeVertices: func(outParams *[]simd.Vec, inAttribs [][]float32, uniformBlob []byte, mask simd.Mask) {
		u := decodeGouraudUniforms(uniformBlob)
		out := *outParams
		worldNormal := u.Model.Upper3x3()
		for i := 0; i < simd.Lanes; i++ {
			if mask&(1<<uint(i)) == 0 {
				continue
			}
			a := inAttribs[i]
			x, y, z, w := u.MVP.MulVec4(a[attrPosX], a[attrPosY], a[attrPosZ], 1)
			out[0].SetLaneF(i, x)
			out[1].SetLaneF(i, y)
			out[2].SetLaneF(i, z)
			out[3].SetLaneF(i, w)

			nx, ny, nz, _ := worldNormal.MulVec4(a[attrNX], a[attrNY], a[attrNZ], 0)
			out[4].SetLaneF(i, nx)
			out[5].SetLaneF(i, ny)
			out[6].SetLaneF(i, nz)
		}
	},
	ShadePixels: func(outColor *[4]simd.Vec, params []simd.Vec, uniformBlob []byte, textures [4]*render.Texture, mask simd.Mask) {
		u := decodeGouraudUniforms(uniformBlob)
		lightDir := u.LightDir.Normalize()
		for i := 0; i < simd.Lanes; i++ {
			if mask&(1<<uint(i)) == 0 {
				continue
			}
			n := render.Vec3{X: params[0].LaneF(i), Y: params[1].LaneF(i), Z: params[2].LaneF(i)}.Normalize()
			diffuse := n.Dot(lightDir)
			if diffuse < 0 {
				diffuse = 0
			}
			outColor[0].SetLaneF(i, u.LightColor.X*diffuse)
			outColor[1].SetLaneF(i, u.LightColor.Y*diffuse)
			outColor[2].SetLaneF(i, u.LightColor.Z*diffuse)
			outColor[3].SetLaneF(i, 1)
		}
	},
}

// TextureShader passes texture coordinates through and samples texture
// slot 0, modulated by per-vertex diffuse lighting (params: x,y,z,w,u,v,l).
var TextureShader = render.Shader{
	NumAttribs: numAttribs,
	NumParams:  7,
	ShadeVertices: func(outParams *[]simd.Vec, inAttribs [][]float32, uniformBlob []byte, mask simd.Mask) {
		u := decodeGouraudUniforms(uniformBlob)
		out := *outParams
		worldNormal := u.Model.Upper3x3()
		lightDir := u.LightDir.Normalize()
		for i := 0; i < simd.Lanes; i++ {
			if mask&(1<<uint(i)) == 0 {
				continue
			}
			a := inAttribs[i]
			x, y, z, w := u.MVP.MulVec4(a[attrPosX], a[attrPosY], a[attrPosZ], 1)
			out[0].SetLaneF(i, x)
			out[1].SetLaneF(i, y)
			out[2].SetLaneF(i, z)
			out[3].SetLaneF(i, w)
			out[4].SetLaneF(i, a[attrU])
			out[5].SetLaneF(i, a[attrV])

			nx, ny, nz, _ := worldNormal.MulVec4(a[attrNX], a[attrNY], a[attrNZ], 0)
			n := render.Vec3{X: nx, Y: ny, Z: nz}.Normalize()
			diffuse := n.Dot(lightDir)
			if diffuse < 0.2 {
				diffuse = 0.2
			}
			out[6].SetLaneF(i, diffuse)
		}
	},
	ShadePixels: func(outColor *[4]simd.Vec, params []simd.Vec, uniformBlob []byte, textures [4]*render.Texture, mask simd.Mask) {
		if textures[0] == nil {
			return
		}
		var sampled [4]simd.Vec
		textures[0].ReadPixels(params[0], params[1], mask, &sampled)
		for i := 0; i < simd.Lanes; i++ {
			if mask&(1<<uint(i)) == 0 {
				continue
			}
			l := params[2].LaneF(i)
			outColor[0].SetLaneF(i, sampled[0].LaneF(i)*l)
			outColor[1].SetLaneF(i, sampled[1].LaneF(i)*l)
			outColor[2].SetLaneF(i, sampled[2].LaneF(i)*l)
			outColor[3].SetLaneF(i, sampled[3].LaneF(i))
		}
	},
}
