package render

import (
	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/camera"
)

// RenderHostBuilderOption is a functional option for configuring a RenderHost.
type RenderHostBuilderOption func(*renderHostImpl)

// WithDeviceFactory sets the function that creates the device. Required.
//
// Parameters:
//   - factory: creates a device for a surface size
//
// Returns:
//   - RenderHostBuilderOption: option function to apply
func WithDeviceFactory(factory DeviceFactory) RenderHostBuilderOption {
	return func(h *renderHostImpl) {
		h.factory = factory
	}
}

// WithHostConfig replaces the default host configuration. The configuration is
// validated when the host is built.
//
// Parameters:
//   - cfg: the configuration
//
// Returns:
//   - RenderHostBuilderOption: option function to apply
func WithHostConfig(cfg HostConfig) RenderHostBuilderOption {
	return func(h *renderHostImpl) {
		h.cfg = cfg
	}
}

// WithRegistry injects the technique registry. Without it the host creates one
// holding the built-in techniques.
//
// Parameters:
//   - r: the registry
//
// Returns:
//   - RenderHostBuilderOption: option function to apply
func WithRegistry(r TechniqueRegistry) RenderHostBuilderOption {
	return func(h *renderHostImpl) {
		h.registry = r
	}
}

// WithRenderable sets the initial renderable.
//
// Parameters:
//   - r: the renderable
//
// Returns:
//   - RenderHostBuilderOption: option function to apply
func WithRenderable(r Renderable) RenderHostBuilderOption {
	return func(h *renderHostImpl) {
		h.renderable = r
	}
}

// WithHostCamera sets the camera frames are rendered from.
//
// Parameters:
//   - cam: the camera
//
// Returns:
//   - RenderHostBuilderOption: option function to apply
func WithHostCamera(cam camera.Camera) RenderHostBuilderOption {
	return func(h *renderHostImpl) {
		h.cam = cam
	}
}

// WithExceptionHandler sets the handler for unrecovered render failures.
//
// Parameters:
//   - fn: the handler; setting Handled keeps the host running
//
// Returns:
//   - RenderHostBuilderOption: option function to apply
func WithExceptionHandler(fn func(*ExceptionEvent)) RenderHostBuilderOption {
	return func(h *renderHostImpl) {
		h.onException = fn
	}
}

// WithInitialSize sets the size used when the device is restarted before any
// StartDevice or Resize call reported one.
//
// Parameters:
//   - size: the size in pixels
//
// Returns:
//   - RenderHostBuilderOption: option function to apply
func WithInitialSize(size common.Size) RenderHostBuilderOption {
	return func(h *renderHostImpl) {
		h.size = size
	}
}
