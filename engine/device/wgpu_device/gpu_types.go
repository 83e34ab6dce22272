package wgpu_device

import (
	"encoding/binary"
	"image"
	"math"

	"github.com/Carmen-Shannon/oxy-view/engine/render"
	"github.com/go-gl/mathgl/mgl32"
)

// Byte sizes of the packed GPU records.
const (
	vertexStride      = 24 // position vec3 + normal vec3
	instanceStride    = 96 // model mat4 + diffuse vec4 + specular vec4
	frameParamsSize   = 16
	blitParamsSize    = 32
	minLightBufferLen = 16 + 64 // header + one light, the minimum binding size of a runtime array
)

func putFloats(dst []byte, values ...float32) {
	for i, v := range values {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
}

// packVertices interleaves mesh positions and normals. Missing normals are zero.
//
// Parameters:
//   - m: the mesh
//
// Returns:
//   - []byte: len(m.Positions) * vertexStride bytes
func packVertices(m *render.Mesh) []byte {
	buf := make([]byte, len(m.Positions)*vertexStride)
	for i, p := range m.Positions {
		var n mgl32.Vec3
		if i < len(m.Normals) {
			n = m.Normals[i]
		}
		putFloats(buf[i*vertexStride:], p[0], p[1], p[2], n[0], n[1], n[2])
	}
	return buf
}

// packIndices writes m.Indices as little-endian uint32.
func packIndices(m *render.Mesh) []byte {
	buf := make([]byte, len(m.Indices)*4)
	for i, idx := range m.Indices {
		binary.LittleEndian.PutUint32(buf[i*4:], idx)
	}
	return buf
}

// packInstance packs the per-draw instance record: the world matrix column by
// column, then the diffuse color and the specular color with the shininess in
// its alpha.
func packInstance(world mgl32.Mat4, mat render.Material) []byte {
	buf := make([]byte, instanceStride)
	putFloats(buf, world[:]...)
	putFloats(buf[64:], mat.Diffuse.R, mat.Diffuse.G, mat.Diffuse.B, mat.Diffuse.A)
	putFloats(buf[80:], mat.Specular.R, mat.Specular.G, mat.Specular.B, mat.Shininess)
	return buf
}

func packFrameParams(fc render.FrameConstants) []byte {
	radius := fc.SceneRadius
	if radius <= 0 {
		radius = render.DefaultSceneRadius
	}
	buf := make([]byte, frameParamsSize)
	putFloats(buf, radius)
	return buf
}

// packBlitParams describes a copy of src into dst in pixels.
func packBlitParams(dst, src image.Rectangle) []byte {
	buf := make([]byte, blitParamsSize)
	putFloats(buf,
		float32(src.Min.X), float32(src.Min.Y), float32(src.Dx()), float32(src.Dy()),
		float32(dst.Min.X), float32(dst.Min.Y), float32(dst.Dx()), float32(dst.Dy()),
	)
	return buf
}

// padLightBuffer grows a marshaled light buffer to the minimum binding size.
func padLightBuffer(buf []byte) []byte {
	if len(buf) >= minLightBufferLen {
		return buf
	}
	out := make([]byte, minLightBufferLen)
	copy(out, buf)
	return out
}
