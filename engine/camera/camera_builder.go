package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraBuilderOption is a functional option for configuring a Camera.
type CameraBuilderOption func(*cameraImpl)

// WithPosition sets the camera's initial position.
//
// Parameters:
//   - p: world-space position
//
// Returns:
//   - CameraBuilderOption: functional option to set the position
func WithPosition(p mgl32.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.position = p
	}
}

// WithLookDirection sets the initial look direction. Its length is the distance to the target.
//
// Parameters:
//   - d: look direction
//
// Returns:
//   - CameraBuilderOption: functional option to set the look direction
func WithLookDirection(d mgl32.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.lookDirection = d
	}
}

// WithUpDirection sets the initial up direction.
//
// Parameters:
//   - u: up direction
//
// Returns:
//   - CameraBuilderOption: functional option to set the up direction
func WithUpDirection(u mgl32.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.upDirection = u
	}
}

// WithLookAt positions the camera at eye looking at target.
//
// Parameters:
//   - eye: camera position
//   - target: look-at point
//
// Returns:
//   - CameraBuilderOption: functional option to set position and look direction
func WithLookAt(eye, target mgl32.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.position = eye
		c.lookDirection = target.Sub(eye)
	}
}

// WithPerspective selects a perspective projection with the given vertical field of view.
//
// Parameters:
//   - fov: field of view in degrees
//
// Returns:
//   - CameraBuilderOption: functional option to set a perspective projection
func WithPerspective(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.projection = ProjectionPerspective
		if fov > 0 && fov < 180 {
			c.fieldOfView = fov
		}
	}
}

// WithOrthographic selects an orthographic projection with the given view width.
//
// Parameters:
//   - width: view width in world units
//
// Returns:
//   - CameraBuilderOption: functional option to set an orthographic projection
func WithOrthographic(width float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.projection = ProjectionOrthographic
		if width > 0 {
			c.width = width
		}
	}
}

// WithClipPlanes sets the near and far plane distances.
//
// Parameters:
//   - near: near plane distance
//   - far: far plane distance
//
// Returns:
//   - CameraBuilderOption: functional option to set clip planes
func WithClipPlanes(near, far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if near > 0 && near < far {
			c.near = near
			c.far = far
		}
	}
}
