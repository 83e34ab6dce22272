package device

import (
	"image"

	"github.com/cogentcore/webgpu/wgpu"
)

// deviceConfig collects the options of every backend.
type deviceConfig struct {
	label     string
	surface   *wgpu.SurfaceDescriptor
	vsync     bool
	fallback  bool
	onPresent func(frame *image.NRGBA)
}

// DeviceBuilderOption is a functional option for NewFactory.
type DeviceBuilderOption func(*deviceConfig)

// WithLabel names created devices.
//
// Parameters:
//   - label: the device name
//
// Returns:
//   - DeviceBuilderOption: a function that applies the label
func WithLabel(label string) DeviceBuilderOption {
	return func(c *deviceConfig) {
		c.label = label
	}
}

// WithSurface makes WebGPU devices present to a window surface.
//
// Parameters:
//   - desc: the platform surface descriptor
//
// Returns:
//   - DeviceBuilderOption: a function that applies the surface
func WithSurface(desc *wgpu.SurfaceDescriptor) DeviceBuilderOption {
	return func(c *deviceConfig) {
		c.surface = desc
	}
}

// WithVSync selects FIFO (true, the default) or immediate presentation for
// WebGPU devices.
func WithVSync(enabled bool) DeviceBuilderOption {
	return func(c *deviceConfig) {
		c.vsync = enabled
	}
}

// WithFallbackAdapter requests the WebGPU software fallback adapter.
func WithFallbackAdapter(force bool) DeviceBuilderOption {
	return func(c *deviceConfig) {
		c.fallback = force
	}
}

// WithPresentHook hands a copy of every presented software frame to fn.
//
// Parameters:
//   - fn: the callback
//
// Returns:
//   - DeviceBuilderOption: a function that applies the hook
func WithPresentHook(fn func(frame *image.NRGBA)) DeviceBuilderOption {
	return func(c *deviceConfig) {
		c.onPresent = fn
	}
}
