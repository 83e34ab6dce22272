package light

import (
	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// BoundingSphere returns the world-space sphere a light can affect. Point and
// spot lights are bounded by their range around the position; a spot light uses
// the same sphere as a point light of equal range.
//
// Returns:
//   - center: sphere center
//   - radius: sphere radius
//   - bounded: false for directional and ambient lights, which affect everything
func (p Params) BoundingSphere() (center mgl32.Vec3, radius float32, bounded bool) {
	switch p.Type {
	case LightTypePoint, LightTypeSpot:
		return p.Position, p.Range, true
	}
	return mgl32.Vec3{}, 0, false
}

// Visible reports whether the light can contribute to anything inside f.
// Unbounded lights are always visible; a light with a non-positive range never is.
//
// Parameters:
//   - f: the camera frustum
//
// Returns:
//   - bool: true if the light must be drawn
func (p Params) Visible(f common.Frustum) bool {
	center, radius, bounded := p.BoundingSphere()
	if !bounded {
		return true
	}
	if radius <= 0 {
		return false
	}
	return f.IntersectsSphere(center, radius)
}

// ProxyTransform returns the world matrix of the light's proxy geometry: identity
// for the full-screen quad of directional and ambient lights, a unit sphere scaled
// to the range for point lights, and a unit cone (apex at the origin, axis +Z,
// base radius 1 at z=1) oriented along the direction for spot lights.
//
// Returns:
//   - mgl32.Mat4: the proxy world matrix
func (p Params) ProxyTransform() mgl32.Mat4 {
	switch p.Type {
	case LightTypePoint:
		return mgl32.Translate3D(p.Position.X(), p.Position.Y(), p.Position.Z()).
			Mul4(mgl32.Scale3D(p.Range, p.Range, p.Range))
	case LightTypeSpot:
		cosOuter := common.Clamp(p.OuterCone, 0.01, 1)
		radius := p.Range * math32.Sqrt(1-cosOuter*cosOuter) / cosOuter
		rot := mgl32.QuatBetweenVectors(mgl32.Vec3{0, 0, 1}, p.Direction).Mat4()
		return mgl32.Translate3D(p.Position.X(), p.Position.Y(), p.Position.Z()).
			Mul4(rot).
			Mul4(mgl32.Scale3D(radius, radius, p.Range))
	}
	return mgl32.Ident4()
}

// Batch groups the visible lights by type in drawing order: ambient, then
// directional, point and spot.
type Batch struct {
	Ambient     []Params
	Directional []Params
	Point       []Params
	Spot        []Params
}

// Add appends p to the slice for its type.
func (b *Batch) Add(p Params) {
	switch p.Type {
	case LightTypeAmbient:
		b.Ambient = append(b.Ambient, p)
	case LightTypeDirectional:
		b.Directional = append(b.Directional, p)
	case LightTypePoint:
		b.Point = append(b.Point, p)
	case LightTypeSpot:
		b.Spot = append(b.Spot, p)
	}
}

// Len returns the number of lights in the batch.
func (b *Batch) Len() int {
	return len(b.Ambient) + len(b.Directional) + len(b.Point) + len(b.Spot)
}
