package render

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/camera"
	"github.com/Carmen-Shannon/oxy-view/engine/light"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSize = common.Size{Width: 640, Height: 480}

func newTestHost(t *testing.T, mutate func(*HostConfig), options ...RenderHostBuilderOption) (*renderHostImpl, *fakeFactory) {
	t.Helper()
	f := newFakeFactory()
	cfg := DefaultHostConfig()
	cfg.MaxFPS = 0
	if mutate != nil {
		mutate(&cfg)
	}
	options = append([]RenderHostBuilderOption{
		WithDeviceFactory(f.create),
		WithHostConfig(cfg),
	}, options...)
	return newRenderHost(options...), f
}

func containsEntry(entries []string, prefix string) bool {
	return slices.ContainsFunc(entries, func(e string) bool { return strings.HasPrefix(e, prefix) })
}

func TestNewRenderHostPanicsWithoutFactory(t *testing.T) {
	assert.Panics(t, func() { NewRenderHost() })
	assert.Panics(t, func() {
		cfg := DefaultHostConfig()
		cfg.Technique = "Toon"
		NewRenderHost(WithDeviceFactory(newFakeFactory().create), WithHostConfig(cfg))
	})
}

func TestStartDeviceBuildsBindsAndClears(t *testing.T) {
	h, f := newTestHost(t, nil)
	var states []State
	h.OnStateChanged(func(from, to State) { states = append(states, to) })

	require.NoError(t, h.StartDevice(common.Size{Width: 40, Height: 700}))

	dev := f.last()
	assert.Equal(t, []State{StateDeviceStarting, StateIdle}, states)
	assert.Equal(t, common.Size{Width: 100, Height: 700}, h.Size())
	assert.Equal(t, 2, dev.liveTargets())
	entries := dev.entries()
	assert.Contains(t, entries, "targets:depth-stencil:[color]")
	assert.True(t, containsEntry(entries, "clear:color:"))
	assert.Same(t, Device(dev), h.Device())

	h.EndDevice()
	assert.Equal(t, StateUnattached, h.State())
	assert.Equal(t, 0, dev.liveTargets())
	assert.True(t, dev.isReleased())
	assert.Nil(t, h.Device())
}

func TestStartDeviceFailure(t *testing.T) {
	h, f := newTestHost(t, nil)
	f.err = errors.New("no adapter")
	err := h.StartDevice(testSize)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no adapter")
	assert.Equal(t, StateUnattached, h.State())
	assert.ErrorIs(t, h.Render(0), ErrNotAttached)
}

func TestDeviceResetRecovery(t *testing.T) {
	scene := newFakeScene()
	h, f := newTestHost(t, nil, WithRenderable(scene))
	require.NoError(t, h.StartDevice(testSize))

	first := f.last()
	first.presentErr = []error{&DeviceError{Op: "present", Code: DeviceReset}}
	events := 0
	h.OnException(func(*ExceptionEvent) { events++ })
	var states []State
	h.OnStateChanged(func(from, to State) { states = append(states, to) })

	_, err := h.OnCompositionRendering(0)
	require.NoError(t, err)

	assert.Equal(t, 2, f.calls(), "device recreated exactly once")
	assert.Equal(t, uint64(1), h.Stats().Restarts)
	assert.Equal(t, 0, events, "recovered device loss is not reported")
	assert.True(t, first.isReleased())
	assert.Equal(t, 0, first.liveTargets())
	assert.Equal(t, []State{StateRendering, StateDeviceLost, StateDeviceStarting, StateIdle}, states)
	assert.NotContains(t, states, StateUnattached)

	rendered, err := h.OnCompositionRendering(16 * time.Millisecond)
	require.NoError(t, err)
	assert.True(t, rendered)

	second := f.last()
	assert.Equal(t, 1, second.presentCount())
	attaches, detaches, _ := scene.counts()
	assert.Equal(t, 2, attaches, "renderable attached again on the new device")
	assert.Equal(t, 1, detaches)
	assert.Equal(t, uint64(1), h.Stats().Frames)
}

func TestDeviceLostWithFailedRestartIsReported(t *testing.T) {
	h, f := newTestHost(t, nil, WithRenderable(newFakeScene()))
	require.NoError(t, h.StartDevice(testSize))
	f.last().presentErr = []error{&DeviceError{Op: "present", Code: DeviceRemoved}}
	f.err = errors.New("adapter gone")

	var got *ExceptionEvent
	h.OnException(func(ev *ExceptionEvent) { got = ev })

	err := h.Render(0)
	require.Error(t, err)
	assert.True(t, IsDeviceLost(err))
	require.NotNil(t, got)
	assert.Equal(t, StateUnattached, h.State())
	assert.ErrorContains(t, err, "adapter gone")
	assert.Equal(t, uint64(0), h.Stats().Restarts)
}

func TestUnhandledExceptionTearsDown(t *testing.T) {
	scene := newFakeScene()
	h, f := newTestHost(t, nil, WithRenderable(scene))
	require.NoError(t, h.StartDevice(testSize))
	dev := f.last()
	dev.presentErr = []error{&DeviceError{Op: "present", Code: DeviceHung}}

	err := h.Render(0)
	var derr *DeviceError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, DeviceHung, derr.Code)
	assert.False(t, IsDeviceLost(err))

	assert.Equal(t, StateUnattached, h.State())
	assert.True(t, dev.isReleased())
	assert.Equal(t, 0, dev.liveTargets())
	assert.Equal(t, 1, f.calls(), "no restart for other errors")
	_, detaches, _ := scene.counts()
	assert.Equal(t, 1, detaches)
}

func TestHandledExceptionKeepsRendering(t *testing.T) {
	scene := newFakeScene()
	scene.renderErr = []error{errors.New("bad mesh")}
	var got *ExceptionEvent
	h, f := newTestHost(t, nil, WithRenderable(scene), WithExceptionHandler(func(ev *ExceptionEvent) {
		got = ev
		ev.Handled = true
	}))
	require.NoError(t, h.StartDevice(testSize))

	require.NoError(t, h.Render(0))
	require.NotNil(t, got)
	assert.EqualError(t, got.Err, "bad mesh")
	assert.Equal(t, StateIdle, h.State())
	assert.False(t, f.last().isReleased())

	require.NoError(t, h.Render(time.Millisecond))
	assert.Equal(t, 1, f.last().presentCount())
}

func TestExceptionHandlerMayCallBackIntoHost(t *testing.T) {
	scene := newFakeScene()
	scene.renderErr = []error{errors.New("bad mesh")}
	var h *renderHostImpl
	h, f := newTestHost(t, nil, WithRenderable(scene), WithExceptionHandler(func(ev *ExceptionEvent) {
		h.EndDevice()
		ev.Handled = h.StartDevice(testSize) == nil
	}))
	require.NoError(t, h.StartDevice(testSize))

	done := make(chan error, 1)
	go func() { done <- h.Render(0) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("render blocked while the exception handler restarted the device")
	}

	assert.Equal(t, 2, f.calls())
	assert.Equal(t, StateIdle, h.State())
	assert.False(t, f.last().isReleased(), "the handler's device is kept")
	require.NoError(t, h.Render(time.Millisecond))
	assert.Equal(t, 1, f.last().presentCount())
}

func TestAttachFailureIsNotRetried(t *testing.T) {
	scene := newFakeScene()
	scene.attachErr = errors.New("missing part")
	events := 0
	h, _ := newTestHost(t, nil, WithRenderable(scene), WithExceptionHandler(func(*ExceptionEvent) { events++ }))
	require.NoError(t, h.StartDevice(testSize))

	err := h.Render(0)
	require.Error(t, err)
	assert.ErrorContains(t, err, "missing part")
	assert.ErrorIs(t, h.Render(time.Millisecond), scene.attachErr)

	attaches, _, renders := scene.counts()
	assert.Equal(t, 1, attaches)
	assert.Equal(t, 0, renders)
	assert.Equal(t, 0, events)

	scene.mu.Lock()
	scene.attachErr = nil
	scene.mu.Unlock()
	h.InvalidateSceneGraph()
	require.NoError(t, h.Render(2*time.Millisecond))
	attaches, _, renders = scene.counts()
	assert.Equal(t, 2, attaches)
	assert.Equal(t, 1, renders)
}

func TestUnknownRenderableTechniqueFailsAttach(t *testing.T) {
	scene := newFakeScene()
	scene.technique = "Toon"
	h, _ := newTestHost(t, nil, WithRenderable(scene))
	require.NoError(t, h.StartDevice(testSize))
	assert.ErrorIs(t, h.Render(0), ErrUnknownTechnique)
}

func TestAttachFallsBackToConfiguredTechnique(t *testing.T) {
	scene := newFakeScene()
	h, _ := newTestHost(t, func(c *HostConfig) { c.Technique = TechniqueGBuffer }, WithRenderable(scene))
	require.NoError(t, h.StartDevice(testSize))
	require.NoError(t, h.Render(0))
	assert.Equal(t, TechniqueGBuffer, h.RenderTechnique().Name())
}

func TestAttachCapturesRenderableState(t *testing.T) {
	scene := newFakeScene()
	scene.technique = TechniqueDeferred
	scene.shadows = true
	h, f := newTestHost(t, nil, WithRenderable(scene))
	require.NoError(t, h.StartDevice(testSize))
	h.Registry().NextLightIndex()

	require.NoError(t, h.Render(0))
	assert.Equal(t, scene.background, h.ClearColor())
	assert.True(t, h.IsShadowMapEnabled())
	assert.Equal(t, TechniqueDeferred, h.RenderTechnique().Name())
	assert.Equal(t, 0, h.Registry().LightCount(), "light counter reset on attach")
	assert.Equal(t, 9, f.last().liveTargets(), "color, depth, 4 g-buffer, ping, pong, shadow")
	assert.Same(t, RenderHost(h), scene.host)
}

func TestInvalidateRenderCoalesces(t *testing.T) {
	h, f := newTestHost(t, nil)
	require.NoError(t, h.StartDevice(testSize))

	rendered, err := h.OnCompositionRendering(0)
	require.NoError(t, err)
	assert.True(t, rendered, "start arms a frame")

	rendered, _ = h.OnCompositionRendering(16 * time.Millisecond)
	assert.False(t, rendered)

	h.InvalidateRender()
	h.InvalidateRender()
	h.InvalidateRender()
	rendered, _ = h.OnCompositionRendering(32 * time.Millisecond)
	assert.True(t, rendered)
	rendered, _ = h.OnCompositionRendering(48 * time.Millisecond)
	assert.False(t, rendered)
	assert.Equal(t, 2, f.last().presentCount())
}

func TestTwoCycleMode(t *testing.T) {
	h, f := newTestHost(t, func(c *HostConfig) { c.RenderCycles = 2 })
	require.NoError(t, h.StartDevice(testSize))

	tick := func(i int) bool {
		rendered, err := h.OnCompositionRendering(time.Duration(i) * 16 * time.Millisecond)
		require.NoError(t, err)
		return rendered
	}
	assert.False(t, tick(0))
	assert.True(t, tick(1))

	h.InvalidateRender()
	assert.False(t, tick(2))
	h.InvalidateRender()
	assert.True(t, tick(3), "a pending generation is not re-armed")
	assert.False(t, tick(4))
	assert.False(t, tick(5))
	assert.Equal(t, 2, f.last().presentCount())

	require.NoError(t, h.SetRenderCycles(1))
	h.InvalidateRender()
	assert.True(t, tick(6))
	assert.ErrorIs(t, h.SetRenderCycles(3), ErrInvalidConfig)
}

func TestTwoCycleModeRendersDuringContinuousInvalidation(t *testing.T) {
	h, _ := newTestHost(t, func(c *HostConfig) { c.RenderCycles = 2 })
	require.NoError(t, h.StartDevice(testSize))
	rendered, err := h.OnCompositionRendering(0)
	require.NoError(t, err)
	require.False(t, rendered)
	rendered, err = h.OnCompositionRendering(16 * time.Millisecond)
	require.NoError(t, err)
	require.True(t, rendered)

	const ticks = 60
	count := 0
	for i := 2; i < ticks+2; i++ {
		h.InvalidateRender()
		rendered, err := h.OnCompositionRendering(time.Duration(i) * 16 * time.Millisecond)
		require.NoError(t, err)
		if rendered {
			count++
		}
	}
	assert.Equal(t, ticks/2, count)
}

func TestMaxFPSSkipLeavesPendingUntouched(t *testing.T) {
	h, _ := newTestHost(t, func(c *HostConfig) { c.MaxFPS = 10 })
	require.NoError(t, h.StartDevice(testSize))

	rendered, _ := h.OnCompositionRendering(0)
	assert.True(t, rendered)

	// idle ticks never consult the skipper
	for i := 1; i <= 3; i++ {
		rendered, _ = h.OnCompositionRendering(time.Duration(i) * 10 * time.Millisecond)
		assert.False(t, rendered)
	}
	assert.Equal(t, uint64(0), h.Stats().Skipped)

	h.InvalidateRender()
	rendered, _ = h.OnCompositionRendering(50 * time.Millisecond)
	assert.False(t, rendered)
	assert.Equal(t, uint64(1), h.Stats().Skipped)
	assert.Equal(t, int32(1), h.pending.Load())

	rendered, _ = h.OnCompositionRendering(100 * time.Millisecond)
	assert.True(t, rendered)
	assert.Equal(t, uint64(2), h.Stats().Frames)

	h.SetMaxFPS(0)
	h.InvalidateRender()
	rendered, _ = h.OnCompositionRendering(101 * time.Millisecond)
	assert.True(t, rendered)
}

func TestResizeRebuildsAndRearms(t *testing.T) {
	h, f := newTestHost(t, func(c *HostConfig) { c.RenderCycles = 2 })
	require.NoError(t, h.StartDevice(testSize))
	h.pending.Store(0)

	var states []State
	h.OnStateChanged(func(from, to State) { states = append(states, to) })
	require.NoError(t, h.Resize(context.Background(), common.Size{Width: 1024, Height: 50}))

	assert.Equal(t, []State{StateResizing, StateIdle}, states)
	assert.Equal(t, common.Size{Width: 1024, Height: 100}, h.Size())
	assert.Equal(t, int32(2), h.pending.Load())
	assert.Equal(t, 2, f.last().liveTargets(), "old targets released")
}

func TestResizeBeforeStartRecordsSize(t *testing.T) {
	h, _ := newTestHost(t, nil)
	require.NoError(t, h.Resize(context.Background(), common.Size{Width: 300, Height: 200}))
	assert.Equal(t, common.Size{Width: 300, Height: 200}, h.Size())
}

func TestNewerResizeAbortsPendingResize(t *testing.T) {
	scene := newFakeScene()
	scene.gate = make(chan struct{})
	h, _ := newTestHost(t, nil, WithRenderable(scene))
	require.NoError(t, h.StartDevice(testSize))

	renderDone := make(chan error, 1)
	go func() { renderDone <- h.Render(0) }()
	require.Eventually(t, func() bool { return h.State() == StateRendering }, time.Second, time.Millisecond)

	first := make(chan error, 1)
	go func() { first <- h.Resize(context.Background(), common.Size{Width: 800, Height: 600}) }()
	require.Eventually(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.resizeCancel != nil
	}, time.Second, time.Millisecond)

	second := make(chan error, 1)
	go func() { second <- h.Resize(context.Background(), common.Size{Width: 1024, Height: 768}) }()

	select {
	case err := <-first:
		assert.ErrorIs(t, err, ErrResizeAborted)
	case <-time.After(time.Second):
		t.Fatal("superseded resize did not abort")
	}

	close(scene.gate)
	require.NoError(t, <-renderDone)
	require.NoError(t, <-second)
	assert.Equal(t, common.Size{Width: 1024, Height: 768}, h.Size())
}

func TestResizeCancelledContext(t *testing.T) {
	h, _ := newTestHost(t, nil)
	require.NoError(t, h.StartDevice(testSize))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, h.Resize(ctx, common.Size{Width: 800, Height: 600}), ErrResizeAborted)
	assert.Equal(t, testSize, h.Size())
}

func TestForwardTechniqueWithMSAA(t *testing.T) {
	scene := newFakeScene()
	scene.lights = []light.Light{
		light.NewLight(light.LightTypeDirectional),
		light.NewLight(light.LightTypePoint, light.WithEnabled(false)),
	}
	h, f := newTestHost(t, func(c *HostConfig) { c.MSAA = 4 }, WithRenderable(scene), WithHostCamera(camera.NewCamera()))
	require.NoError(t, h.StartDevice(testSize))
	require.NoError(t, h.Render(0))

	entries := f.last().entries()
	assert.Contains(t, entries, "targets:depth-stencil:[msaa]")
	assert.Contains(t, entries, "constants:1", "only enabled lights reach the shader")
	assert.Contains(t, entries, "mesh:12")
	assert.Contains(t, entries, "resolve:msaa->color")
	assert.Equal(t, "present:color", entries[len(entries)-1])
}

func TestDeferredTechniqueBatchesLightsByType(t *testing.T) {
	scene := newFakeScene()
	scene.technique = TechniqueDeferred
	scene.lights = []light.Light{
		light.NewLight(light.LightTypeAmbient, light.WithIntensity(0.2)),
		light.NewLight(light.LightTypeAmbient, light.WithIntensity(0.1)),
		light.NewLight(light.LightTypeDirectional),
		light.NewLight(light.LightTypePoint, light.WithPosition(mgl32.Vec3{0, 0, -5}), light.WithRange(3)),
		light.NewLight(light.LightTypePoint, light.WithPosition(mgl32.Vec3{1, 0, 0}), light.WithRange(3)),
		light.NewLight(light.LightTypePoint, light.WithPosition(mgl32.Vec3{0, 0, 5000}), light.WithRange(1)),
		light.NewLight(light.LightTypeSpot, light.WithPosition(mgl32.Vec3{0, 2, 0}), light.WithDirection(mgl32.Vec3{0, -1, 0}), light.WithRange(5)),
	}
	h, f := newTestHost(t, nil, WithRenderable(scene), WithHostCamera(camera.NewCamera()))
	require.NoError(t, h.StartDevice(testSize))
	require.NoError(t, h.Render(0))

	dev := f.last()
	dev.mu.Lock()
	proxies := dev.proxies
	dev.mu.Unlock()
	assert.Equal(t, []int{1, 1}, proxies[ProxyQuad], "one folded ambient pass and one directional batch")
	assert.Equal(t, []int{2}, proxies[ProxySphere], "the point light beyond the far plane is culled")
	assert.Equal(t, []int{1}, proxies[ProxyCone])

	entries := dev.entries()
	assert.Contains(t, entries, "targets:depth-stencil:[gbuffer0 gbuffer1 gbuffer2 gbuffer3]")
	assert.Contains(t, entries, "inputs:4")
	assert.Contains(t, entries, "copy:ping->color:(0,0)-(640,480)")

	require.NoError(t, h.Render(time.Millisecond))
	assert.Contains(t, dev.entries(), "copy:pong->color:(0,0)-(640,480)")
}

func TestGBufferTechniqueFillsQuadrants(t *testing.T) {
	scene := newFakeScene()
	scene.technique = TechniqueGBuffer
	h, f := newTestHost(t, nil, WithRenderable(scene))
	require.NoError(t, h.StartDevice(testSize))
	require.NoError(t, h.Render(0))

	entries := f.last().entries()
	assert.Contains(t, entries, "copy:gbuffer0->color:(0,0)-(320,240)")
	assert.Contains(t, entries, "copy:gbuffer1->color:(320,0)-(640,240)")
	assert.Contains(t, entries, "copy:gbuffer2->color:(0,240)-(320,480)")
	assert.Contains(t, entries, "copy:gbuffer3->color:(320,240)-(640,480)")
}

func TestShadowPassUsesShadowMap(t *testing.T) {
	scene := newFakeScene()
	scene.shadows = true
	scene.lights = []light.Light{light.NewLight(light.LightTypeDirectional, light.WithCastsShadows(true))}
	h, f := newTestHost(t, nil, WithRenderable(scene))
	require.NoError(t, h.StartDevice(testSize))
	require.NoError(t, h.Render(0))

	entries := f.last().entries()
	assert.Contains(t, entries, "clear-depth:shadow-map")
	_, _, renders := scene.counts()
	assert.Equal(t, 2, renders, "shadow pass and main pass")
}

func TestSetRenderableDetachesPrevious(t *testing.T) {
	a, b := newFakeScene(), newFakeScene()
	h, _ := newTestHost(t, nil, WithRenderable(a))
	require.NoError(t, h.StartDevice(testSize))
	require.NoError(t, h.Render(0))

	h.SetRenderable(b)
	_, detaches, _ := a.counts()
	assert.Equal(t, 1, detaches)
	require.NoError(t, h.Render(time.Millisecond))
	attaches, _, _ := b.counts()
	assert.Equal(t, 1, attaches)
	assert.Same(t, Renderable(b), h.Renderable())
}

func TestRenderWithoutRenderableClearsBackground(t *testing.T) {
	h, f := newTestHost(t, nil)
	require.NoError(t, h.StartDevice(testSize))
	require.NoError(t, h.Render(0))
	assert.Equal(t, 1, f.last().presentCount())
}

func TestThreadedHostDropsFramesWhileBusy(t *testing.T) {
	scene := newFakeScene()
	scene.gate = make(chan struct{})
	f := newFakeFactory()
	cfg := DefaultHostConfig()
	cfg.MaxFPS = 0
	cfg.Threaded = true
	host := NewRenderHost(WithDeviceFactory(f.create), WithHostConfig(cfg), WithRenderable(scene))
	th, ok := host.(*threadedHost)
	require.True(t, ok)
	defer th.Close()

	require.NoError(t, th.StartDevice(testSize))
	require.NoError(t, th.Render(0))
	assert.True(t, th.IsBusy())
	assert.ErrorIs(t, th.Render(time.Millisecond), ErrBusy)
	assert.Equal(t, int32(1), th.pending.Load(), "the dropped frame stays requested")

	rendered, err := th.OnCompositionRendering(2 * time.Millisecond)
	require.NoError(t, err)
	assert.False(t, rendered)

	close(scene.gate)
	require.Eventually(t, func() bool { return len(th.frames) == 1 }, time.Second, time.Millisecond)

	presented, err := th.drain()
	require.NoError(t, err)
	assert.True(t, presented)
	assert.False(t, th.IsBusy())
	assert.Equal(t, 1, f.last().presentCount())
	assert.Contains(t, f.last().entries(), "mesh:12")
	assert.Equal(t, uint64(1), th.Stats().Frames)
	assert.Same(t, RenderHost(th), scene.host)
}

func TestThreadedHostEndDeviceDropsRecordedFrame(t *testing.T) {
	f := newFakeFactory()
	cfg := DefaultHostConfig()
	cfg.MaxFPS = 0
	cfg.Threaded = true
	th := NewRenderHost(WithDeviceFactory(f.create), WithHostConfig(cfg)).(*threadedHost)

	require.NoError(t, th.StartDevice(testSize))
	require.NoError(t, th.Render(0))
	th.EndDevice()
	assert.False(t, th.IsBusy())
	assert.Equal(t, 0, f.last().presentCount())

	th.Close()
	th.Close()
	assert.ErrorIs(t, th.Render(time.Millisecond), ErrNotAttached)
}
