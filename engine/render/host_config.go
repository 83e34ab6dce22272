package render

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by every error returned from HostConfig.Validate.
var ErrInvalidConfig = errors.New("render: invalid host config")

// HostConfig is the option set of a RenderHost.
type HostConfig struct {
	// MaxFPS caps the frame rate; zero renders on every tick.
	MaxFPS int `toml:"max_fps"`

	// RenderCycles is the number of compositor ticks an invalidation waits
	// before rendering: 1, or 2 to work around drivers that drop the first
	// frame after resuming.
	RenderCycles int `toml:"render_cycles"`

	// MSAA is the color sample count; 0 or 1 disables multisampling.
	MSAA int `toml:"msaa"`

	// Technique names the default technique, used when the renderable names none.
	Technique string `toml:"technique"`

	// Threaded records frames on a dedicated goroutine.
	Threaded bool `toml:"threaded"`

	// CullWorkers is the number of goroutines the deferred renderer culls
	// lights with; zero picks one per spare CPU.
	CullWorkers int `toml:"cull_workers"`
}

// DefaultHostConfig returns the stock host configuration.
//
// Returns:
//   - HostConfig: 60 FPS cap, single render cycle, forward Blinn-Phong
func DefaultHostConfig() HostConfig {
	return HostConfig{
		MaxFPS:       60,
		RenderCycles: 1,
		Technique:    TechniqueBlinnPhong,
	}
}

// Validate reports the first out-of-range option.
//
// Returns:
//   - error: nil, or an error wrapping ErrInvalidConfig
func (c HostConfig) Validate() error {
	switch {
	case c.MaxFPS < 0:
		return fmt.Errorf("%w: negative max fps %d", ErrInvalidConfig, c.MaxFPS)
	case c.RenderCycles != 1 && c.RenderCycles != 2:
		return fmt.Errorf("%w: render cycles must be 1 or 2, got %d", ErrInvalidConfig, c.RenderCycles)
	case c.MSAA < 0 || c.MSAA > 16 || (c.MSAA > 1 && c.MSAA&(c.MSAA-1) != 0):
		return fmt.Errorf("%w: msaa sample count %d", ErrInvalidConfig, c.MSAA)
	case c.Technique == "":
		return fmt.Errorf("%w: empty technique", ErrInvalidConfig)
	case c.CullWorkers < 0:
		return fmt.Errorf("%w: negative cull workers %d", ErrInvalidConfig, c.CullWorkers)
	}
	return nil
}
