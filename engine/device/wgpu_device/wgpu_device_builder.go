package wgpu_device

import "github.com/cogentcore/webgpu/wgpu"

// DeviceBuilderOption is a functional option for configuring a WebGPU device.
type DeviceBuilderOption func(*wgpuDeviceImpl)

// WithSurfaceDescriptor renders to the window surface described by desc.
// Without it the device renders offscreen.
//
// Parameters:
//   - desc: the platform surface descriptor, e.g. from the window
//
// Returns:
//   - DeviceBuilderOption: a function that applies the surface descriptor
func WithSurfaceDescriptor(desc *wgpu.SurfaceDescriptor) DeviceBuilderOption {
	return func(d *wgpuDeviceImpl) {
		d.surfaceDescriptor = desc
	}
}

// WithVSync selects FIFO presentation when true and immediate presentation
// when false. FIFO is the default.
//
// Parameters:
//   - enabled: whether presentation waits for vertical blank
//
// Returns:
//   - DeviceBuilderOption: a function that applies the present mode
func WithVSync(enabled bool) DeviceBuilderOption {
	return func(d *wgpuDeviceImpl) {
		if enabled {
			d.presentMode = wgpu.PresentModeFifo
		} else {
			d.presentMode = wgpu.PresentModeImmediate
		}
	}
}

// WithForceFallbackAdapter requests the software fallback adapter.
//
// Parameters:
//   - force: whether to force the fallback adapter
//
// Returns:
//   - DeviceBuilderOption: a function that applies the adapter preference
func WithForceFallbackAdapter(force bool) DeviceBuilderOption {
	return func(d *wgpuDeviceImpl) {
		d.forceFallbackAdapter = force
	}
}

// WithLabel sets the device label reported by Name.
//
// Parameters:
//   - label: the label
//
// Returns:
//   - DeviceBuilderOption: a function that applies the label
func WithLabel(label string) DeviceBuilderOption {
	return func(d *wgpuDeviceImpl) {
		d.label = label
	}
}
