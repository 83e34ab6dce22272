package camera

import (
	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/go-gl/mathgl/mgl32"
)

// ProjectionType selects how a camera maps view space to clip space.
type ProjectionType int

const (
	// ProjectionPerspective uses a vertical field of view.
	ProjectionPerspective ProjectionType = iota

	// ProjectionOrthographic uses a fixed view width.
	ProjectionOrthographic
)

// CameraSetting is an immutable snapshot of the fields that fully describe a camera.
// Snapshots are pushed onto the undo history before a camera-mutating gesture begins.
type CameraSetting struct {
	Position          mgl32.Vec3
	LookDirection     mgl32.Vec3
	UpDirection       mgl32.Vec3
	Projection        ProjectionType
	FieldOfView       float32 // degrees, perspective only
	Width             float32 // world units, orthographic only
	NearPlaneDistance float32
	FarPlaneDistance  float32
}

// Target returns Position + LookDirection.
func (s CameraSetting) Target() mgl32.Vec3 {
	return s.Position.Add(s.LookDirection)
}

// Valid reports whether the snapshot can be applied to a camera without breaking
// the look/up invariant: both directions are finite, non-zero and not parallel.
//
// Returns:
//   - bool: true if the setting is usable
func (s CameraSetting) Valid() bool {
	if !common.IsFiniteVec3(s.Position) {
		return false
	}
	if s.LookDirection.Len() < common.Epsilon || s.UpDirection.Len() < common.Epsilon {
		return false
	}
	return !common.IsParallel(s.LookDirection, s.UpDirection)
}
