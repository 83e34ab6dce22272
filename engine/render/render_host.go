package render

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/camera"
	"github.com/Carmen-Shannon/oxy-view/engine/light"
	"github.com/cenkalti/backoff/v4"
	"github.com/subchen/go-trylock/v2"
)

// State is a RenderHost lifecycle state.
type State int32

const (
	StateUnattached State = iota
	StateDeviceStarting
	StateIdle
	StateRendering
	StateResizing
	StateDeviceLost
)

var stateNames = [...]string{"unattached", "device-starting", "idle", "rendering", "resizing", "device-lost"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int32(s))
	}
	return stateNames[s]
}

// Stats are the counters of a RenderHost.
type Stats struct {
	Frames   uint64
	Skipped  uint64
	Restarts uint64
}

// renderHostImpl is the implementation of the RenderHost interface.
//
// frameLock serializes everything that touches the device: frames, resizes,
// device start and end, and renderable changes. mu guards the fields read by
// accessors, which are written only while frameLock is also held, so accessors
// stay callable from inside Renderable.Attach.
type renderHostImpl struct {
	mu        *sync.Mutex
	frameLock trylock.TryLocker

	// self is the host handed to renderables, the threaded wrapper when there is one.
	self RenderHost

	factory  DeviceFactory
	registry TechniqueRegistry
	cfg      HostConfig

	device     Device
	targets    *TargetArena
	renderable Renderable
	attached   bool
	attachErr  error
	rc         *RenderContext
	technique  Technique
	clearColor common.Color
	shadows    bool
	size       common.Size
	cam        camera.Camera

	state   atomic.Int32
	pending atomic.Int32
	frames  atomic.Uint64
	skipped atomic.Uint64
	restart atomic.Uint64

	// gen changes whenever the targets are rebuilt, invalidating recorded frames.
	gen atomic.Uint64

	skipper      *FrameSkipper
	resizeCancel context.CancelFunc

	onException func(*ExceptionEvent)
	onState     func(from, to State)
}

// RenderHost owns a GPU device and its render targets and draws a Renderable
// whenever it is invalidated.
//
// The host is driven by the compositor: OnCompositionRendering is called once per
// display refresh and renders only when an invalidation is pending, the frame
// rate ceiling allows it, and the configured number of render cycles elapsed.
// A lost device is recreated once automatically; any other render failure is
// reported through the exception handler.
type RenderHost interface {
	// Device returns the current device, or nil when none is started.
	Device() Device

	// ClearColor returns the background color captured from the renderable on attach.
	ClearColor() common.Color

	// IsShadowMapEnabled reports whether the attached renderable asked for shadow mapping.
	IsShadowMapEnabled() bool

	// RenderTechnique returns the technique frames are rendered with.
	RenderTechnique() Technique

	// Registry returns the technique registry the host resolves names with.
	Registry() TechniqueRegistry

	// Renderable returns the scene graph being drawn, or nil.
	Renderable() Renderable

	// SetRenderable replaces the scene graph. The previous one is detached; the
	// new one is attached on the next frame.
	//
	// Parameters:
	//   - r: the renderable, or nil to draw only the background
	SetRenderable(r Renderable)

	// Camera returns the camera the view and projection are taken from.
	Camera() camera.Camera

	// SetCamera sets the camera the view and projection are taken from.
	SetCamera(cam camera.Camera)

	// Size returns the render target size in pixels.
	Size() common.Size

	// State returns the lifecycle state.
	State() State

	// Stats returns the frame, skipped-tick and device-restart counters.
	Stats() Stats

	// StartDevice creates the device and the render targets.
	//
	// Parameters:
	//   - size: the surface size in pixels
	//
	// Returns:
	//   - error: a device creation error
	StartDevice(size common.Size) error

	// EndDevice detaches the renderable and releases the targets and the device.
	EndDevice()

	// SetDefaultRenderTargets recreates the render targets at size, binds them and
	// clears them to the background color.
	//
	// Parameters:
	//   - size: requested size, floored to 100x100
	//
	// Returns:
	//   - error: a device error, or ErrNotAttached without a device
	SetDefaultRenderTargets(size common.Size) error

	// Resize recreates the render targets once no frame is in progress. A newer
	// Resize aborts an older one still waiting for the frame to finish.
	//
	// Parameters:
	//   - ctx: cancels the wait for the in-progress frame
	//   - size: the new surface size in pixels
	//
	// Returns:
	//   - error: ErrResizeAborted when superseded or cancelled, or a device error
	Resize(ctx context.Context, size common.Size) error

	// Render draws one frame immediately, attaching the renderable first if needed.
	//
	// Parameters:
	//   - now: the frame timestamp
	//
	// Returns:
	//   - error: ErrNotAttached without a device, an attach error, or an
	//     unhandled render error
	Render(now time.Duration) error

	// OnCompositionRendering is the per-refresh tick.
	//
	// Parameters:
	//   - now: the compositor timestamp
	//
	// Returns:
	//   - bool: true if a frame was rendered
	//   - error: the error returned by Render
	OnCompositionRendering(now time.Duration) (bool, error)

	// InvalidateRender requests a frame. Requests made while one is pending are
	// coalesced.
	InvalidateRender()

	// InvalidateSceneGraph forces the renderable to be attached again and requests a frame.
	InvalidateSceneGraph()

	// SetMaxFPS changes the frame rate ceiling; zero removes it.
	SetMaxFPS(fps int)

	// SetRenderCycles selects how many ticks an invalidation waits before rendering.
	//
	// Parameters:
	//   - cycles: 1 or 2
	//
	// Returns:
	//   - error: an error wrapping ErrInvalidConfig for other values
	SetRenderCycles(cycles int) error

	// OnException sets the handler for render failures that are not recovered
	// automatically.
	OnException(fn func(*ExceptionEvent))

	// OnStateChanged sets a handler called after every state transition.
	OnStateChanged(fn func(from, to State))

	// Close ends the device.
	Close()
}

var _ RenderHost = &renderHostImpl{}

// NewRenderHost creates a render host. WithDeviceFactory is required.
//
// Parameters:
//   - options: functional options
//
// Returns:
//   - RenderHost: the host; a threaded host when the configuration asks for one
func NewRenderHost(options ...RenderHostBuilderOption) RenderHost {
	h := newRenderHost(options...)
	if h.cfg.Threaded {
		return newThreadedHost(h)
	}
	return h
}

func newRenderHost(options ...RenderHostBuilderOption) *renderHostImpl {
	h := &renderHostImpl{
		mu:        &sync.Mutex{},
		frameLock: trylock.New(),
		cfg:       DefaultHostConfig(),
	}
	h.self = h

	for _, option := range options {
		option(h)
	}

	if h.factory == nil {
		panic("render: RenderHost requires a device factory")
	}
	if err := h.cfg.Validate(); err != nil {
		panic(err)
	}
	if h.registry == nil {
		var regOpts []TechniqueRegistryOption
		if h.cfg.CullWorkers > 0 {
			regOpts = append(regOpts, WithTechnique(NewDeferredRenderer(WithCullWorkers(h.cfg.CullWorkers))))
		}
		h.registry = NewTechniqueRegistry(regOpts...)
	}
	t, err := h.registry.Lookup(h.cfg.Technique)
	if err != nil {
		panic(err)
	}
	h.technique = t
	h.skipper = NewFrameSkipper(h.cfg.MaxFPS)
	return h
}

func (h *renderHostImpl) Device() Device {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.device
}

func (h *renderHostImpl) ClearColor() common.Color {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clearColor
}

func (h *renderHostImpl) IsShadowMapEnabled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.shadows
}

func (h *renderHostImpl) RenderTechnique() Technique {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.technique
}

func (h *renderHostImpl) Registry() TechniqueRegistry {
	return h.registry
}

func (h *renderHostImpl) Renderable() Renderable {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.renderable
}

func (h *renderHostImpl) SetRenderable(r Renderable) {
	h.frameLock.Lock()
	defer h.frameLock.Unlock()

	h.detach()
	h.mu.Lock()
	h.renderable = r
	h.mu.Unlock()
	h.InvalidateRender()
}

func (h *renderHostImpl) Camera() camera.Camera {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cam
}

func (h *renderHostImpl) SetCamera(cam camera.Camera) {
	h.mu.Lock()
	h.cam = cam
	h.mu.Unlock()
	h.InvalidateRender()
}

func (h *renderHostImpl) Size() common.Size {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.size
}

func (h *renderHostImpl) State() State {
	return State(h.state.Load())
}

func (h *renderHostImpl) Stats() Stats {
	return Stats{
		Frames:   h.frames.Load(),
		Skipped:  h.skipped.Load(),
		Restarts: h.restart.Load(),
	}
}

func (h *renderHostImpl) StartDevice(size common.Size) error {
	h.frameLock.Lock()
	defer h.frameLock.Unlock()
	return h.startDevice(size)
}

func (h *renderHostImpl) EndDevice() {
	h.frameLock.Lock()
	defer h.frameLock.Unlock()
	h.endDevice()
	h.setState(StateUnattached)
}

func (h *renderHostImpl) SetDefaultRenderTargets(size common.Size) error {
	h.frameLock.Lock()
	defer h.frameLock.Unlock()
	if h.device == nil {
		return ErrNotAttached
	}
	return h.buildTargets(size)
}

func (h *renderHostImpl) Resize(ctx context.Context, size common.Size) error {
	h.mu.Lock()
	if h.resizeCancel != nil {
		h.resizeCancel()
	}
	rctx, cancel := context.WithCancel(ctx)
	h.resizeCancel = cancel
	h.mu.Unlock()
	defer cancel()

	if !h.frameLock.TryLock(rctx) {
		return fmt.Errorf("%w: %w", ErrResizeAborted, context.Cause(rctx))
	}
	err := h.resize(rctx, size)
	h.frameLock.Unlock()
	return h.report(err)
}

// resize rebuilds the targets at size. frameLock must be held.
func (h *renderHostImpl) resize(ctx context.Context, size common.Size) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrResizeAborted, err)
	}

	if h.device == nil {
		h.mu.Lock()
		h.size = size
		h.mu.Unlock()
		return nil
	}

	h.setState(StateResizing)
	if err := h.buildTargets(size); err != nil {
		return h.handleFrameError(err)
	}
	h.setState(StateIdle)
	h.pending.Store(int32(h.renderCycles()))
	common.Logger().Debug("render host resized", "width", h.targets.Size().Width, "height", h.targets.Size().Height)
	return nil
}

func (h *renderHostImpl) Render(now time.Duration) error {
	h.frameLock.Lock()
	err := h.render(now)
	h.frameLock.Unlock()
	return h.report(err)
}

func (h *renderHostImpl) OnCompositionRendering(now time.Duration) (bool, error) {
	p := h.pending.Load()
	if p <= 0 {
		return false, nil
	}
	if h.skipper.ShouldSkip(now) {
		h.skipped.Add(1)
		return false, nil
	}
	if !h.pending.CompareAndSwap(p, p-1) || p-1 > 0 {
		return false, nil
	}
	if err := h.self.Render(now); err != nil {
		if errors.Is(err, ErrBusy) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// InvalidateRender arms the pending counter only from zero, so repeated
// requests while a generation is counting down do not restart it.
func (h *renderHostImpl) InvalidateRender() {
	h.pending.CompareAndSwap(0, int32(h.renderCycles()))
}

func (h *renderHostImpl) InvalidateSceneGraph() {
	h.frameLock.Lock()
	h.detach()
	h.frameLock.Unlock()
	h.InvalidateRender()
}

func (h *renderHostImpl) SetMaxFPS(fps int) {
	if fps < 0 {
		fps = 0
	}
	h.mu.Lock()
	h.cfg.MaxFPS = fps
	h.mu.Unlock()
	h.skipper.SetMaxFPS(fps)
}

func (h *renderHostImpl) SetRenderCycles(cycles int) error {
	if cycles != 1 && cycles != 2 {
		return fmt.Errorf("%w: render cycles must be 1 or 2, got %d", ErrInvalidConfig, cycles)
	}
	h.mu.Lock()
	h.cfg.RenderCycles = cycles
	h.mu.Unlock()
	return nil
}

func (h *renderHostImpl) OnException(fn func(*ExceptionEvent)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onException = fn
}

func (h *renderHostImpl) OnStateChanged(fn func(from, to State)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onState = fn
}

func (h *renderHostImpl) Close() {
	h.EndDevice()
}

func (h *renderHostImpl) renderCycles() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cfg.RenderCycles
}

func (h *renderHostImpl) setState(s State) {
	from := State(h.state.Swap(int32(s)))
	if from == s {
		return
	}
	h.mu.Lock()
	fn := h.onState
	h.mu.Unlock()
	common.Logger().Debug("render host state", "from", from, "to", s)
	if fn != nil {
		fn(from, s)
	}
}

// startDevice creates the device and targets. frameLock must be held.
func (h *renderHostImpl) startDevice(size common.Size) error {
	if h.device != nil {
		h.endDevice()
	}
	h.setState(StateDeviceStarting)

	dev, err := h.factory(ClampTargetSize(size))
	if err != nil {
		h.setState(StateUnattached)
		return fmt.Errorf("failed to start device: %w", err)
	}
	h.mu.Lock()
	h.device = dev
	h.mu.Unlock()
	h.targets = NewTargetArena(dev)

	if err := h.buildTargets(size); err != nil {
		h.endDevice()
		h.setState(StateUnattached)
		return err
	}
	h.setState(StateIdle)
	h.pending.Store(int32(h.renderCycles()))
	common.Logger().Debug("render device started", "device", dev.Name(), "width", h.targets.Size().Width, "height", h.targets.Size().Height)
	return nil
}

// endDevice releases everything the device owns without changing state.
func (h *renderHostImpl) endDevice() {
	h.gen.Add(1)
	h.detach()
	if h.targets != nil {
		h.targets.TearDown()
		h.targets = nil
	}
	h.mu.Lock()
	dev := h.device
	h.device = nil
	h.mu.Unlock()
	if dev != nil {
		dev.Release()
	}
}

// detach releases the renderable's attachment so the next frame attaches again.
func (h *renderHostImpl) detach() {
	h.mu.Lock()
	r, attached := h.renderable, h.attached
	h.attached = false
	h.attachErr = nil
	h.mu.Unlock()
	if attached && r != nil {
		r.Detach()
	}
}

// buildTargets allocates the arena for the current technique and binds the
// default targets. frameLock must be held.
func (h *renderHostImpl) buildTargets(size common.Size) error {
	h.mu.Lock()
	opts := ArenaOptions{
		MSAA:    h.cfg.MSAA,
		GBuffer: h.technique.UsesGBuffer(),
		Shadows: h.shadows,
	}
	bg := h.clearColor
	h.mu.Unlock()

	h.gen.Add(1)
	if err := h.targets.Build(size, opts); err != nil {
		return err
	}
	h.mu.Lock()
	h.size = h.targets.Size()
	h.mu.Unlock()

	ctx := h.device.ImmediateContext()
	color := h.targets.Get(SlotColor)
	depth := h.targets.Get(SlotDepthStencil)
	ctx.SetRenderTargets(depth, color)
	ctx.SetViewport(h.targets.Bounds())
	ctx.ClearRenderTarget(color, bg)
	ctx.ClearDepthStencil(depth, 1, 0)
	return ctx.Flush()
}

// attach performs the one-time attach of the renderable. frameLock must be held.
// A failure is kept and returned on every frame until the renderable changes or
// the scene graph is invalidated.
func (h *renderHostImpl) attach() error {
	h.mu.Lock()
	r, attached, attachErr := h.renderable, h.attached, h.attachErr
	h.mu.Unlock()
	if attached {
		return nil
	}
	if attachErr != nil {
		return attachErr
	}

	h.registry.ResetLightCount()

	var (
		bg        = common.ColorBlack
		shadows   bool
		requested string
	)
	if r != nil {
		bg = r.BackgroundColor()
		shadows = r.IsShadowMappingEnabled()
		requested = r.RenderTechnique()
	}
	h.mu.Lock()
	configured := h.cfg.Technique
	h.mu.Unlock()
	// The renderable's choice wins; the configured name was validated at construction.
	tech, err := h.registry.Lookup(common.Coalesce(requested, configured))
	if err != nil {
		return h.failAttach(err)
	}

	h.mu.Lock()
	h.clearColor = bg
	h.shadows = shadows
	h.technique = tech
	h.mu.Unlock()

	rc := NewRenderContext(tech)
	if rp, ok := r.(RadiusProvider); ok {
		rc.SetSceneRadius(rp.SceneRadius())
	}
	h.rc = rc

	want := ArenaOptions{MSAA: h.cfg.MSAA, GBuffer: tech.UsesGBuffer(), Shadows: shadows}
	if h.targets.Options() != want || h.targets.Live() == 0 {
		if err := h.buildTargets(h.targets.Size()); err != nil {
			return err
		}
	}

	if r != nil {
		if err := r.Attach(h.self); err != nil {
			return h.failAttach(err)
		}
	}
	h.mu.Lock()
	h.attached = true
	h.mu.Unlock()
	common.Logger().Debug("renderable attached", "technique", tech.Name(), "shadows", shadows)
	return nil
}

func (h *renderHostImpl) failAttach(err error) error {
	err = fmt.Errorf("failed to attach renderable: %w", err)
	h.mu.Lock()
	h.attachErr = err
	h.mu.Unlock()
	common.Logger().Error("renderable attach failed", "error", err)
	return err
}

// render draws one frame on the immediate context. frameLock must be held.
func (h *renderHostImpl) render(now time.Duration) error {
	ok, err := h.beginFrame()
	if !ok {
		return err
	}
	ctx := h.device.ImmediateContext()
	err = h.record(now, ctx)
	if err == nil {
		err = ctx.Flush()
	}
	return h.present(err)
}

// beginFrame checks the device, attaches the renderable and enters
// StateRendering. frameLock must be held.
//
// Returns:
//   - bool: true if the frame can be recorded
//   - error: why it cannot, nil when a lost device was recovered
func (h *renderHostImpl) beginFrame() (bool, error) {
	if h.device == nil {
		return false, ErrNotAttached
	}
	if err := h.attach(); err != nil {
		if IsDeviceLost(err) {
			return false, h.handleFrameError(err)
		}
		return false, err
	}
	h.setState(StateRendering)
	return true, nil
}

// present shows the back buffer unless recording failed with err. frameLock
// must be held.
func (h *renderHostImpl) present(err error) error {
	if err == nil {
		err = h.device.Present(h.targets.Get(SlotColor))
	}
	if err != nil {
		return h.handleFrameError(err)
	}
	h.frames.Add(1)
	h.setState(StateIdle)
	return nil
}

// record draws the renderable into ctx with the current technique.
func (h *renderHostImpl) record(now time.Duration, ctx Context) error {
	h.mu.Lock()
	r, cam, tech := h.renderable, h.cam, h.technique
	bg, shadows := h.clearColor, h.shadows
	h.mu.Unlock()

	if r == nil {
		color := h.targets.Get(SlotColor)
		ctx.SetRenderTargets(h.targets.Get(SlotDepthStencil), color)
		ctx.SetViewport(h.targets.Bounds())
		ctx.ClearRenderTarget(color, bg)
		return nil
	}

	rc := h.rc
	rc.setContext(ctx)
	rc.SetTimestamp(now)
	if cam != nil {
		rc.UpdateFromCamera(cam, h.targets.Size())
	} else {
		rc.SetViewport(h.targets.Size())
	}
	r.Update(rc)

	return tech.Render(&Frame{
		Context:    ctx,
		RC:         rc,
		Targets:    h.targets,
		Scene:      r,
		Lights:     collectLights(r),
		ClearColor: bg,
		Shadows:    shadows,
		Index:      h.frames.Load(),
	})
}

// collectLights snapshots the enabled lights of r.
func collectLights(r Renderable) []light.Params {
	lp, ok := r.(LightProvider)
	if !ok {
		return nil
	}
	lights := lp.Lights()
	out := make([]light.Params, 0, len(lights))
	for _, l := range lights {
		if l.Enabled() {
			out = append(out, l.Params())
		}
	}
	return out
}

// handleFrameError recovers a lost device, or wraps err for report. frameLock
// must be held.
//
// Returns:
//   - error: nil when recovered, otherwise a *frameFailure
func (h *renderHostImpl) handleFrameError(err error) error {
	if IsDeviceLost(err) {
		h.setState(StateDeviceLost)
		common.Logger().Warn("render device lost, restarting", "error", err)
		rerr := h.restartDevice()
		if rerr == nil {
			return nil
		}
		err = errors.Join(err, rerr)
	}

	return &frameFailure{err: err, gen: h.gen.Load()}
}

// frameFailure is a frame error that was not recovered. It is reported to the
// exception handler by report once frameLock is released.
type frameFailure struct {
	err error
	gen uint64
}

func (f *frameFailure) Error() string { return f.err.Error() }
func (f *frameFailure) Unwrap() error { return f.err }

// report passes an unrecovered frame error to the exception handler, which may
// call back into the host. Unless the handler marks it handled, or already
// rebuilt or ended the device, the device is torn down. Other errors are
// returned unchanged. frameLock must not be held.
//
// Returns:
//   - error: nil when handled, otherwise the frame error
func (h *renderHostImpl) report(err error) error {
	var ff *frameFailure
	if !errors.As(err, &ff) {
		return err
	}

	ev := &ExceptionEvent{Err: ff.err}
	h.mu.Lock()
	fn := h.onException
	h.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
	if !ev.Handled {
		common.Logger().Error("render failed", "error", ff.err)
	}

	h.frameLock.Lock()
	defer h.frameLock.Unlock()
	switch {
	case h.device == nil || h.gen.Load() != ff.gen:
		// the handler replaced or ended the device
	case ev.Handled:
		h.setState(StateIdle)
	default:
		h.endDevice()
		h.setState(StateUnattached)
	}
	if ev.Handled {
		return nil
	}
	return ff.err
}

// restartDevice recreates the device once.
func (h *renderHostImpl) restartDevice() error {
	size := h.Size()
	op := func() error {
		h.endDevice()
		return h.startDevice(size)
	}
	if err := backoff.Retry(op, backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 0)); err != nil {
		return fmt.Errorf("failed to restart device: %w", err)
	}
	h.restart.Add(1)
	h.InvalidateRender()
	return nil
}
