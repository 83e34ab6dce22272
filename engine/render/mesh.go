package render

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Mesh is an indexed triangle list with per-vertex normals.
type Mesh struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	Indices   []uint32
}

// Triangles returns the number of triangles in m.
func (m *Mesh) Triangles() int {
	return len(m.Indices) / 3
}

// NewCubeMesh returns an axis-aligned cube centered on the origin with flat normals.
//
// Parameters:
//   - size: edge length
//
// Returns:
//   - *Mesh: 24 vertices, 12 triangles
func NewCubeMesh(size float32) *Mesh {
	h := size / 2
	faces := []struct {
		n, u, v mgl32.Vec3
	}{
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
	}

	m := &Mesh{}
	for _, f := range faces {
		base := uint32(len(m.Positions))
		c := f.n.Mul(h)
		for _, s := range [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
			m.Positions = append(m.Positions, c.Add(f.u.Mul(s[0]*h)).Add(f.v.Mul(s[1]*h)))
			m.Normals = append(m.Normals, f.n)
		}
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return m
}

// NewSphereMesh returns a unit UV sphere, the point light proxy.
//
// Parameters:
//   - segments: longitude segments; latitude uses half as many (minimum 3)
//
// Returns:
//   - *Mesh: the sphere
func NewSphereMesh(segments int) *Mesh {
	segments = max(segments, 6)
	rings := segments / 2
	m := &Mesh{}
	for r := 0; r <= rings; r++ {
		phi := math32.Pi * float32(r) / float32(rings)
		for s := 0; s <= segments; s++ {
			theta := 2 * math32.Pi * float32(s) / float32(segments)
			p := mgl32.Vec3{
				math32.Sin(phi) * math32.Cos(theta),
				math32.Cos(phi),
				math32.Sin(phi) * math32.Sin(theta),
			}
			m.Positions = append(m.Positions, p)
			m.Normals = append(m.Normals, p)
		}
	}
	stride := uint32(segments + 1)
	for r := uint32(0); r < uint32(rings); r++ {
		for s := uint32(0); s < uint32(segments); s++ {
			a := r*stride + s
			b := a + stride
			m.Indices = append(m.Indices, a, b, a+1, a+1, b, b+1)
		}
	}
	return m
}

// NewConeMesh returns the spot light proxy: apex at the origin, axis +Z, a base
// of radius 1 at z=1.
//
// Parameters:
//   - segments: number of base segments (minimum 3)
//
// Returns:
//   - *Mesh: the cone including its base cap
func NewConeMesh(segments int) *Mesh {
	segments = max(segments, 3)
	m := &Mesh{
		Positions: []mgl32.Vec3{{0, 0, 0}, {0, 0, 1}},
		Normals:   []mgl32.Vec3{{0, 0, -1}, {0, 0, 1}},
	}
	for s := 0; s < segments; s++ {
		theta := 2 * math32.Pi * float32(s) / float32(segments)
		x, y := math32.Cos(theta), math32.Sin(theta)
		m.Positions = append(m.Positions, mgl32.Vec3{x, y, 1})
		m.Normals = append(m.Normals, mgl32.Vec3{x, y, -1}.Normalize())
	}
	for s := 0; s < segments; s++ {
		a := uint32(2 + s)
		b := uint32(2 + (s+1)%segments)
		m.Indices = append(m.Indices, 0, b, a, 1, a, b)
	}
	return m
}
