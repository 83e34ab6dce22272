package software

import "image"

// DeviceBuilderOption is a functional option for configuring a software device.
type DeviceBuilderOption func(*softwareDeviceImpl)

// WithName sets the device name reported by Name.
//
// Parameters:
//   - name: the device name
//
// Returns:
//   - DeviceBuilderOption: a function that applies the name
func WithName(name string) DeviceBuilderOption {
	return func(d *softwareDeviceImpl) {
		d.name = name
	}
}

// WithPresentHook registers fn to receive a copy of every presented frame.
// fn runs on the presenting goroutine after the device lock is released.
//
// Parameters:
//   - fn: the callback
//
// Returns:
//   - DeviceBuilderOption: a function that applies the hook
func WithPresentHook(fn func(frame *image.NRGBA)) DeviceBuilderOption {
	return func(d *softwareDeviceImpl) {
		d.onPresent = fn
	}
}
