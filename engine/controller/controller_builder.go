package controller

import (
	"time"

	"github.com/Carmen-Shannon/oxy-view/engine/camera"
	"github.com/barkimedes/go-deepcopy"
	"github.com/go-gl/mathgl/mgl32"
)

// CameraControllerOption is a functional option for configuring a CameraController.
type CameraControllerOption func(*controllerImpl)

// WithCamera binds the camera to control.
//
// Parameters:
//   - cam: the camera
//
// Returns:
//   - CameraControllerOption: functional option to set the camera
func WithCamera(cam camera.Camera) CameraControllerOption {
	return func(c *controllerImpl) {
		c.cam = cam
	}
}

// WithConfig sets the initial configuration. An invalid configuration is ignored
// and the defaults stay active.
//
// Parameters:
//   - cfg: the configuration
//
// Returns:
//   - CameraControllerOption: functional option to set the configuration
func WithConfig(cfg Config) CameraControllerOption {
	return func(c *controllerImpl) {
		if cfg.Validate() != nil {
			return
		}
		cp := deepcopy.MustAnything(&cfg).(*Config)
		if cp.KeyBindings == nil {
			cp.KeyBindings = DefaultKeyBindings()
		}
		c.cfg = *cp
	}
}

// WithHitTester sets the scene hit tester used for mouse-down pivots.
//
// Parameters:
//   - h: the hit tester
//
// Returns:
//   - CameraControllerOption: functional option to set the hit tester
func WithHitTester(h HitTester) CameraControllerOption {
	return func(c *controllerImpl) {
		c.hitTester = h
	}
}

// WithInvalidator sets who is told when a new frame is needed.
//
// Parameters:
//   - inv: the invalidator, usually the render host
//
// Returns:
//   - CameraControllerOption: functional option to set the invalidator
func WithInvalidator(inv Invalidator) CameraControllerOption {
	return func(c *controllerImpl) {
		c.invalidator = inv
	}
}

// WithModifierSource sets where held modifier keys are read from.
//
// Parameters:
//   - m: the modifier source, usually the window
//
// Returns:
//   - CameraControllerOption: functional option to set the modifier source
func WithModifierSource(m ModifierSource) CameraControllerOption {
	return func(c *controllerImpl) {
		c.modifiers = m
	}
}

// WithViewportSize sets the initial viewport size in pixels.
func WithViewportSize(width, height float32) CameraControllerOption {
	return func(c *controllerImpl) {
		c.viewport = mgl32.Vec2{width, height}
	}
}

// WithTickFrequency sets how many ticks make one second for
// OnCompositionTargetRendering. The default is one tick per nanosecond.
//
// Parameters:
//   - perSecond: ticks per second
//
// Returns:
//   - CameraControllerOption: functional option to set the tick frequency
func WithTickFrequency(perSecond float64) CameraControllerOption {
	return func(c *controllerImpl) {
		if perSecond > 0 {
			c.tickFrequency = perSecond
		}
	}
}

// WithClock replaces time.Now for gesture timing.
func WithClock(clock func() time.Time) CameraControllerOption {
	return func(c *controllerImpl) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithHistoryCapacity sets the undo history capacity.
//
// Parameters:
//   - capacity: the maximum number of snapshots kept
//
// Returns:
//   - CameraControllerOption: functional option to set the history capacity
func WithHistoryCapacity(capacity int) CameraControllerOption {
	return func(c *controllerImpl) {
		c.history = camera.NewSettingHistory(capacity)
	}
}
