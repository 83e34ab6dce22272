// Package device selects a concrete render.Device implementation.
package device

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-view/engine/device/software"
	"github.com/Carmen-Shannon/oxy-view/engine/device/wgpu_device"
	"github.com/Carmen-Shannon/oxy-view/engine/render"
)

// Backend identifies a device implementation.
type Backend int

const (
	// BackendWGPU renders on the GPU through WebGPU.
	BackendWGPU Backend = iota

	// BackendSoftware rasterizes on the CPU. It needs no window or GPU.
	BackendSoftware
)

func (b Backend) String() string {
	if b == BackendSoftware {
		return "software"
	}
	return "wgpu"
}

// ParseBackend parses a backend name as accepted on the command line.
//
// Parameters:
//   - name: "wgpu" or "software", case-insensitive
//
// Returns:
//   - Backend: the backend
//   - error: an error for an unknown name
func ParseBackend(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "wgpu", "gpu", "webgpu":
		return BackendWGPU, nil
	case "software", "cpu":
		return BackendSoftware, nil
	}
	return 0, fmt.Errorf("unknown device backend %q", name)
}

// NewFactory returns the factory a render host uses to create devices of the
// given backend. Options that do not apply to the backend are ignored.
//
// Parameters:
//   - backend: the device implementation
//   - options: functional options to configure created devices
//
// Returns:
//   - render.DeviceFactory: the factory
func NewFactory(backend Backend, options ...DeviceBuilderOption) render.DeviceFactory {
	cfg := &deviceConfig{vsync: true}
	for _, opt := range options {
		opt(cfg)
	}

	if backend == BackendSoftware {
		var opts []software.DeviceBuilderOption
		if cfg.label != "" {
			opts = append(opts, software.WithName(cfg.label))
		}
		if cfg.onPresent != nil {
			opts = append(opts, software.WithPresentHook(cfg.onPresent))
		}
		return software.Factory(opts...)
	}

	opts := []wgpu_device.DeviceBuilderOption{
		wgpu_device.WithVSync(cfg.vsync),
		wgpu_device.WithForceFallbackAdapter(cfg.fallback),
	}
	if cfg.surface != nil {
		opts = append(opts, wgpu_device.WithSurfaceDescriptor(cfg.surface))
	}
	if cfg.label != "" {
		opts = append(opts, wgpu_device.WithLabel(cfg.label))
	}
	return wgpu_device.Factory(opts...)
}
