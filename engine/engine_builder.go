package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-view/engine/viewport"
	"github.com/Carmen-Shannon/oxy-view/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithTickRate sets the headless tick rate in ticks per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Duration(float64(time.Second) / fps)
	}
}

// WithWindow makes the window's message loop drive the compositor.
// Without a window the engine runs headless on a ticker.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithViewport registers a viewport at the given key during engine construction.
//
// Parameters:
//   - key: ordering key (lower ticks first)
//   - v: the viewport
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithViewport(key int, v viewport.Viewport) EngineBuilderOption {
	return func(e *engine) {
		e.viewports[key] = v
	}
}

// WithFrameLimit stops Run after the given number of ticks that rendered at
// least one frame. Pass 0 to run until stopped (default).
//
// Parameters:
//   - frames: number of rendering ticks
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFrameLimit(frames int) EngineBuilderOption {
	return func(e *engine) {
		if frames < 0 {
			frames = 0
		}
		e.frameLimit = frames
	}
}

// WithClock replaces the compositor clock. The clock must be monotonic and
// never return zero.
//
// Parameters:
//   - clock: function returning the current tick timestamp
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithClock(clock func() time.Duration) EngineBuilderOption {
	return func(e *engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}
