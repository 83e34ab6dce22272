package viewport

import (
	"github.com/Carmen-Shannon/oxy-view/engine/camera"
	"github.com/Carmen-Shannon/oxy-view/engine/controller"
	"github.com/Carmen-Shannon/oxy-view/engine/render"
)

// ViewportBuilderOption is a functional option for configuring a Viewport.
type ViewportBuilderOption func(*viewportImpl)

// WithHost sets the render host. Required.
//
// Parameters:
//   - h: the render host
//
// Returns:
//   - ViewportBuilderOption: option function to apply
func WithHost(h render.RenderHost) ViewportBuilderOption {
	return func(v *viewportImpl) {
		v.host = h
	}
}

// WithCamera sets the camera. Defaults to the host's camera, or a new camera
// if the host has none.
//
// Parameters:
//   - cam: the camera
//
// Returns:
//   - ViewportBuilderOption: option function to apply
func WithCamera(cam camera.Camera) ViewportBuilderOption {
	return func(v *viewportImpl) {
		v.cam = cam
	}
}

// WithController supplies a preconfigured controller instead of creating one.
// The controller is rebound to the viewport's camera.
//
// Parameters:
//   - c: the controller
//
// Returns:
//   - ViewportBuilderOption: option function to apply
func WithController(c controller.CameraController) ViewportBuilderOption {
	return func(v *viewportImpl) {
		v.ctrl = c
	}
}

// WithHitTester sets the scene hit tester handed to the created controller.
//
// Parameters:
//   - h: the hit tester
//
// Returns:
//   - ViewportBuilderOption: option function to apply
func WithHitTester(h controller.HitTester) ViewportBuilderOption {
	return func(v *viewportImpl) {
		v.hitTester = h
	}
}

// WithControllerOptions adds options for the created controller. They are
// applied after the viewport's own wiring and can override it.
//
// Parameters:
//   - options: controller options
//
// Returns:
//   - ViewportBuilderOption: option function to apply
func WithControllerOptions(options ...controller.CameraControllerOption) ViewportBuilderOption {
	return func(v *viewportImpl) {
		v.ctrlOpts = append(v.ctrlOpts, options...)
	}
}
