package common

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Plane represents a plane in 3D space using the equation: ax + by + cz + d = 0
// where (a, b, c) is the normal and d is the distance from origin.
type Plane struct {
	Normal   mgl32.Vec3
	Distance float32
}

// SignedDistance returns the signed distance from p to the plane. Positive values lie
// on the side the normal points to.
func (p Plane) SignedDistance(pt mgl32.Vec3) float32 {
	return p.Normal.Dot(pt) + p.Distance
}

// Frustum represents the six planes of a view frustum for culling.
// Planes are oriented so that positive half-space is inside the frustum.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

// FrustumPlane indices for clarity
const (
	FrustumLeft   = 0
	FrustumRight  = 1
	FrustumBottom = 2
	FrustumTop    = 3
	FrustumNear   = 4
	FrustumFar    = 5
)

// ExtractFrustum extracts frustum planes from a combined projection * view matrix
// using the Gribb/Hartmann method. The matrix follows the OpenGL clip convention
// (z in [-1, 1]) produced by mgl32.Perspective and mgl32.Ortho.
//
// Reference: https://www8.cs.umu.se/kurser/5DV051/HT12/lab/plane_extraction.pdf
//
// Parameters:
//   - viewProj: the projection * view matrix
//
// Returns:
//   - Frustum: the extracted frustum with normalized planes
func ExtractFrustum(viewProj mgl32.Mat4) Frustum {
	var f Frustum

	r0 := viewProj.Row(0)
	r1 := viewProj.Row(1)
	r2 := viewProj.Row(2)
	r3 := viewProj.Row(3)

	set := func(i int, v mgl32.Vec4) {
		f.Planes[i] = Plane{Normal: v.Vec3(), Distance: v[3]}
	}
	set(FrustumLeft, r3.Add(r0))
	set(FrustumRight, r3.Sub(r0))
	set(FrustumBottom, r3.Add(r1))
	set(FrustumTop, r3.Sub(r1))
	set(FrustumNear, r3.Add(r2))
	set(FrustumFar, r3.Sub(r2))

	for i := range f.Planes {
		f.normalizePlane(i)
	}

	return f
}

// IntersectsSphere reports whether a sphere touches or lies inside the frustum.
//
// Parameters:
//   - center: sphere center in world space
//   - radius: sphere radius
//
// Returns:
//   - bool: false only if the sphere is fully outside at least one plane
func (f Frustum) IntersectsSphere(center mgl32.Vec3, radius float32) bool {
	for _, p := range f.Planes {
		if p.SignedDistance(center) < -radius {
			return false
		}
	}
	return true
}

// ContainsPoint reports whether pt is inside all six planes.
func (f Frustum) ContainsPoint(pt mgl32.Vec3) bool {
	return f.IntersectsSphere(pt, 0)
}

// normalizePlane normalizes a frustum plane so that the normal has unit length.
func (f *Frustum) normalizePlane(index int) {
	p := &f.Planes[index]
	length := p.Normal.Len()
	if length > 0 {
		invLen := 1.0 / length
		p.Normal = p.Normal.Mul(invLen)
		p.Distance *= invLen
	}
}
