package render

import (
	"errors"
	"fmt"
)

var (
	// ErrDeviceLost is matched by every error that means the GPU device must be recreated.
	ErrDeviceLost = errors.New("render: device lost")

	// ErrNotAttached is returned when a frame cannot run because no device or
	// renderable is attached.
	ErrNotAttached = errors.New("render: not attached")

	// ErrResizeAborted is returned by a resize superseded by a newer one before it
	// could start.
	ErrResizeAborted = errors.New("render: resize aborted")

	// ErrBusy is returned when a frame is requested while the previous one is
	// still waiting to be presented.
	ErrBusy = errors.New("render: previous frame in flight")

	// ErrUnknownTechnique is returned when a technique name is not registered.
	ErrUnknownTechnique = errors.New("render: unknown technique")
)

// DeviceErrorCode is an HRESULT-style device status code.
type DeviceErrorCode uint32

const (
	// DeviceRemoved means the adapter was physically removed or the driver was updated.
	DeviceRemoved DeviceErrorCode = 0x887A0005

	// DeviceHung means the device stopped responding to commands.
	DeviceHung DeviceErrorCode = 0x887A0006

	// DeviceReset means the driver reset the device, e.g. after a TDR or resume.
	DeviceReset DeviceErrorCode = 0x887A0007

	// DeviceInternalError is any other driver failure.
	DeviceInternalError DeviceErrorCode = 0x887A0020
)

// DeviceError is returned by Device and Context implementations.
type DeviceError struct {
	Op   string
	Code DeviceErrorCode
	Err  error
}

func (e *DeviceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("render: %s: device error 0x%08X: %v", e.Op, uint32(e.Code), e.Err)
	}
	return fmt.Sprintf("render: %s: device error 0x%08X", e.Op, uint32(e.Code))
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// Is matches ErrDeviceLost for the removed and reset codes.
func (e *DeviceError) Is(target error) bool {
	return target == ErrDeviceLost && (e.Code == DeviceRemoved || e.Code == DeviceReset)
}

// IsDeviceLost reports whether err requires the device to be recreated.
//
// Parameters:
//   - err: the error to inspect
//
// Returns:
//   - bool: true for device removed/reset errors and anything wrapping ErrDeviceLost
func IsDeviceLost(err error) bool {
	return errors.Is(err, ErrDeviceLost)
}

// ExceptionEvent carries a render failure that is not recovered automatically.
// A listener sets Handled to keep the host running; otherwise the host tears down.
type ExceptionEvent struct {
	Err     error
	Handled bool
}
