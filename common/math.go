package common

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Epsilon is the tolerance used when deciding whether a vector is degenerate.
const Epsilon float32 = 1e-6

// Clamp limits v to the closed range [lo, hi].
//
// Parameters:
//   - v: the value to clamp
//   - lo: lower bound
//   - hi: upper bound
//
// Returns:
//   - float32: v limited to [lo, hi]
func Clamp(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(hi, v))
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float32) bool {
	return !math32.IsNaN(v) && !math32.IsInf(v, 0)
}

// IsFiniteVec2 reports whether every component of v is finite.
func IsFiniteVec2(v mgl32.Vec2) bool {
	return IsFinite(v[0]) && IsFinite(v[1])
}

// IsFiniteVec3 reports whether every component of v is finite.
func IsFiniteVec3(v mgl32.Vec3) bool {
	return IsFinite(v[0]) && IsFinite(v[1]) && IsFinite(v[2])
}

// SafeNormalize returns v scaled to unit length. Zero-length and non-finite vectors
// are returned unchanged with ok set to false, so callers can skip the operation
// instead of propagating NaN into camera state.
//
// Parameters:
//   - v: the vector to normalize
//
// Returns:
//   - mgl32.Vec3: the normalized vector, or v when it cannot be normalized
//   - bool: true if v was normalized
func SafeNormalize(v mgl32.Vec3) (mgl32.Vec3, bool) {
	if !IsFiniteVec3(v) {
		return v, false
	}
	l := v.Len()
	if l < Epsilon {
		return v, false
	}
	return v.Mul(1 / l), true
}

// IsParallel reports whether a and b point along the same line (or either is degenerate).
func IsParallel(a, b mgl32.Vec3) bool {
	na, ok1 := SafeNormalize(a)
	nb, ok2 := SafeNormalize(b)
	if !ok1 || !ok2 {
		return true
	}
	return na.Cross(nb).Len() < 1e-5
}

// RotateAround rotates point p about the axis through pivot by quaternion q.
func RotateAround(q mgl32.Quat, p, pivot mgl32.Vec3) mgl32.Vec3 {
	return pivot.Add(q.Rotate(p.Sub(pivot)))
}

// QuatFromAxisAngleDeg builds a rotation of deg degrees about axis. A degenerate
// axis yields the identity rotation.
func QuatFromAxisAngleDeg(axis mgl32.Vec3, deg float32) mgl32.Quat {
	n, ok := SafeNormalize(axis)
	if !ok || !IsFinite(deg) {
		return mgl32.QuatIdent()
	}
	return mgl32.QuatRotate(mgl32.DegToRad(deg), n)
}
