package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/profiler"
	"github.com/Carmen-Shannon/oxy-view/engine/viewport"
	"github.com/Carmen-Shannon/oxy-view/engine/window"
)

// ErrStopped is returned by Run when the engine was stopped with Quit.
var ErrStopped = errors.New("engine: stopped")

// engine implements the Engine interface.
// Composites one or more viewports once per display refresh.
type engine struct {
	mu *sync.Mutex

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates
	engineTickRate  time.Duration

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once
	quitErr     error

	window window.Window

	profiler         *profiler.Profiler
	profilingEnabled bool

	tickCallback func(now time.Duration)
	clock        func() time.Duration

	viewports map[int]viewport.Viewport

	// frameLimit stops the engine after this many ticks that rendered; 0 = unlimited.
	frameLimit int
	frames     int
}

// Engine is the compositor loop of the viewer.
// Each tick advances every viewport in ascending key order: camera physics
// first, then the viewport's render host.
type Engine interface {
	// Window returns the window driving the compositor, or nil when headless.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the headless compositor rate in ticks per second.
	// Windowed engines tick once per message loop iteration instead.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers a function called at the start of every tick,
	// before any viewport is advanced.
	//
	// Parameters:
	//   - callback: function receiving the tick timestamp
	SetTickCallback(callback func(now time.Duration))

	// AddViewport registers a viewport at the given key.
	// Viewports are ticked in ascending key order.
	//
	// Parameters:
	//   - key: ordering key (lower ticks first)
	//   - v: the viewport
	AddViewport(key int, v viewport.Viewport)

	// RemoveViewport removes the viewport at the given key without closing it.
	//
	// Parameters:
	//   - key: the key of the viewport to remove
	RemoveViewport(key int)

	// Viewport retrieves the viewport registered at key, or nil.
	//
	// Parameters:
	//   - key: the viewport key
	//
	// Returns:
	//   - viewport.Viewport: the viewport, or nil if not found
	Viewport(key int) viewport.Viewport

	// Viewports returns a copy of all registered viewports keyed by order.
	//
	// Returns:
	//   - map[int]viewport.Viewport: a copy of the viewport map
	Viewports() map[int]viewport.Viewport

	// Tick runs one compositor tick.
	//
	// Returns:
	//   - int: number of viewports that rendered a frame
	//   - error: the first unhandled render error
	Tick() (int, error)

	// Run drives the compositor until the window closes, ctx is done, Quit is
	// called, the frame limit is reached, or a viewport fails.
	//
	// Parameters:
	//   - ctx: stops the loop when done
	//
	// Returns:
	//   - error: nil when the window closed or the frame limit was reached, the
	//     viewport error that stopped the loop, ctx.Err(), or ErrStopped
	Run(ctx context.Context) error

	// Quit signals the compositor to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
//
// Parameters:
//   - options: functional options for engine configuration (window, profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	start := time.Now()
	e := &engine{
		mu:              &sync.Mutex{},
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		viewports:       make(map[int]viewport.Viewport),
		profiler:        profiler.NewProfiler(),
		engineTickRate:  time.Second / 60,
		// Offset by one tick so the first timestamp is never zero.
		clock: func() time.Duration { return time.Since(start) + time.Nanosecond },
	}

	for _, opt := range options {
		opt(e)
	}
	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Run(ctx context.Context) error {
	if e.window != nil {
		return e.runWindowed(ctx)
	}
	return e.runHeadless(ctx)
}

// runWindowed ticks from the window's message loop, which must run on the
// thread that created the window.
func (e *engine) runWindowed(ctx context.Context) error {
	e.window.SetUpdateCallback(func() {
		select {
		case <-ctx.Done():
			e.stop(ctx.Err())
		case <-e.quitChannel:
		default:
			if _, err := e.Tick(); err != nil {
				e.stop(err)
			}
		}
		if e.stopped() {
			_ = e.window.Close()
		}
	})
	e.window.ProcessMessages()
	e.window.SetUpdateCallback(nil)
	return e.result()
}

// runHeadless ticks at the configured rate and listens for dynamic rate changes
// via tickRateChannel.
func (e *engine) runHeadless(ctx context.Context) error {
	e.mu.Lock()
	rate := e.engineTickRate
	e.mu.Unlock()
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.stop(ctx.Err())
			return e.result()
		case <-e.quitChannel:
			return e.result()
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.mu.Lock()
			e.engineTickRate = newRate
			e.mu.Unlock()
		case <-ticker.C:
			if e.stopped() {
				return e.result()
			}
			if _, err := e.Tick(); err != nil {
				e.stop(err)
			}
		}
	}
}

func (e *engine) Tick() (int, error) {
	now := e.clock()

	e.mu.Lock()
	cb := e.tickCallback
	keys := make([]int, 0, len(e.viewports))
	for k := range e.viewports {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	views := make([]viewport.Viewport, len(keys))
	for i, k := range keys {
		views[i] = e.viewports[k]
	}
	e.mu.Unlock()

	if cb != nil {
		cb(now)
	}

	rendered := 0
	for i, v := range views {
		ok, err := v.Tick(now)
		if err != nil {
			common.Logger().Error("viewport render failed", "viewport", keys[i], "err", err)
			return rendered, fmt.Errorf("viewport %d: %w", keys[i], err)
		}
		if ok {
			rendered++
		}
	}

	e.mu.Lock()
	profiling := e.profilingEnabled
	limitReached := false
	if rendered > 0 {
		e.frames++
		limitReached = e.frameLimit > 0 && e.frames >= e.frameLimit
	}
	e.mu.Unlock()

	if profiling {
		e.profiler.Tick(rendered > 0)
	}
	if limitReached {
		e.stop(nil)
	}
	return rendered, nil
}

// Quit signals the compositor to stop.
func (e *engine) Quit() {
	e.stop(ErrStopped)
}

// stop closes the quit channel once, keeping the first reason.
func (e *engine) stop(err error) {
	e.quitOnce.Do(func() {
		e.mu.Lock()
		e.quitErr = err
		e.mu.Unlock()
		close(e.quitChannel)
	})
}

func (e *engine) stopped() bool {
	select {
	case <-e.quitChannel:
		return true
	default:
		return false
	}
}

func (e *engine) result() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.quitErr
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.mu.Lock()
	e.profilingEnabled = true
	e.mu.Unlock()
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.mu.Lock()
	e.profilingEnabled = false
	e.mu.Unlock()
}

// SetTickRate sets the headless tick rate in ticks per second.
// A running headless loop picks the change up immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	// Non-blocking send; a pending update is replaced.
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
	e.mu.Lock()
	e.engineTickRate = newRate
	e.mu.Unlock()
}

func (e *engine) SetTickCallback(callback func(now time.Duration)) {
	e.mu.Lock()
	e.tickCallback = callback
	e.mu.Unlock()
}

func (e *engine) AddViewport(key int, v viewport.Viewport) {
	e.mu.Lock()
	e.viewports[key] = v
	e.mu.Unlock()
}

func (e *engine) RemoveViewport(key int) {
	e.mu.Lock()
	delete(e.viewports, key)
	e.mu.Unlock()
}

func (e *engine) Viewport(key int) viewport.Viewport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewports[key]
}

func (e *engine) Viewports() map[int]viewport.Viewport {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make(map[int]viewport.Viewport, len(e.viewports))
	for k, v := range e.viewports {
		cp[k] = v
	}
	return cp
}
