package viewport

import (
	"context"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/camera"
	"github.com/Carmen-Shannon/oxy-view/engine/config"
	"github.com/Carmen-Shannon/oxy-view/engine/device/software"
	"github.com/Carmen-Shannon/oxy-view/engine/light"
	"github.com/Carmen-Shannon/oxy-view/engine/render"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSize = common.Size{Width: 200, Height: 150}

type cubeScene struct {
	mesh *render.Mesh
}

func (s *cubeScene) Attach(render.RenderHost) error { return nil }
func (s *cubeScene) Detach()                        {}
func (s *cubeScene) Update(*render.RenderContext)   {}

func (s *cubeScene) Render(rc *render.RenderContext) error {
	rc.Context().DrawMesh(s.mesh, mgl32.Ident4(), render.Material{Diffuse: common.ColorWhite})
	return nil
}

func (s *cubeScene) BackgroundColor() common.Color { return common.ColorBlack }
func (s *cubeScene) IsShadowMappingEnabled() bool  { return false }
func (s *cubeScene) RenderTechnique() string       { return "" }
func (s *cubeScene) Lights() []light.Light {
	return []light.Light{light.NewLight(light.LightTypeAmbient)}
}

// fakeInput is a scripted input source.
type fakeInput struct {
	mods common.ModifierKeys

	resize      func(width, height int)
	scroll      func(delta, x, y float32)
	keyDown     func(key common.Key)
	mouseDown   func(button common.MouseButton, x, y float32)
	mouseUp     func(button common.MouseButton, x, y float32)
	doubleClick func(button common.MouseButton, x, y float32)
	mouseMove   func(x, y float32)
}

func (f *fakeInput) SetResizeCallback(cb func(width, height int))  { f.resize = cb }
func (f *fakeInput) SetScrollCallback(cb func(delta, x, y float32)) { f.scroll = cb }
func (f *fakeInput) SetKeyDownCallback(cb func(key common.Key))     { f.keyDown = cb }
func (f *fakeInput) SetMouseDownCallback(cb func(common.MouseButton, float32, float32)) {
	f.mouseDown = cb
}
func (f *fakeInput) SetMouseUpCallback(cb func(common.MouseButton, float32, float32)) {
	f.mouseUp = cb
}
func (f *fakeInput) SetDoubleClickCallback(cb func(common.MouseButton, float32, float32)) {
	f.doubleClick = cb
}
func (f *fakeInput) SetMouseMoveCallback(cb func(x, y float32)) { f.mouseMove = cb }
func (f *fakeInput) Modifiers() common.ModifierKeys             { return f.mods }

func newTestViewport(t *testing.T) (Viewport, *fakeInput) {
	t.Helper()
	cfg := render.DefaultHostConfig()
	cfg.MaxFPS = 0
	host := render.NewRenderHost(
		render.WithDeviceFactory(software.Factory()),
		render.WithHostConfig(cfg),
		render.WithRenderable(&cubeScene{mesh: render.NewCubeMesh(2)}),
	)
	v := NewViewport(WithHost(host))
	t.Cleanup(v.Close)

	in := &fakeInput{}
	v.Bind(in)
	require.NoError(t, v.Start(testSize))
	return v, in
}

// tick advances n compositor ticks 16ms apart starting after from.
func tick(t *testing.T, v Viewport, from time.Duration, n int) (time.Duration, int) {
	t.Helper()
	rendered := 0
	now := from
	for i := 0; i < n; i++ {
		now += 16 * time.Millisecond
		ok, err := v.Tick(now)
		require.NoError(t, err)
		if ok {
			rendered++
		}
	}
	return now, rendered
}

func TestNewViewportRequiresHost(t *testing.T) {
	assert.Panics(t, func() { NewViewport() })
}

func TestViewportSharesCamera(t *testing.T) {
	cam := camera.NewCamera()
	host := render.NewRenderHost(render.WithDeviceFactory(software.Factory()))
	v := NewViewport(WithHost(host), WithCamera(cam))
	defer v.Close()

	assert.Same(t, cam, v.Camera())
	assert.Same(t, cam, v.Host().Camera())
	assert.Same(t, cam, v.Controller().Camera())
}

func TestViewportCreatesCameraWhenHostHasNone(t *testing.T) {
	host := render.NewRenderHost(render.WithDeviceFactory(software.Factory()))
	v := NewViewport(WithHost(host))
	defer v.Close()

	require.NotNil(t, v.Camera())
	assert.Equal(t, v.Camera(), host.Camera())
}

func TestTickRendersFirstFrameThenIdles(t *testing.T) {
	v, _ := newTestViewport(t)

	now, rendered := tick(t, v, 0, 1)
	assert.Equal(t, 1, rendered)

	_, rendered = tick(t, v, now, 5)
	assert.Zero(t, rendered, "nothing invalidated the view")
	assert.Equal(t, uint64(1), v.Host().Stats().Frames)
}

func TestKeyboardRotationMovesCameraAndRenders(t *testing.T) {
	v, in := newTestViewport(t)
	now, _ := tick(t, v, 0, 2)
	before := v.Camera().Position()
	target := v.Camera().Target()

	in.keyDown(common.KeyLeft)
	_, rendered := tick(t, v, now, 10)

	after := v.Camera().Position()
	assert.NotEqual(t, before, after)
	assert.InDelta(t, before.Sub(target).Len(), after.Sub(v.Camera().Target()).Len(), 1e-3, "rotation orbits the target")
	assert.GreaterOrEqual(t, rendered, 2)
}

func TestShiftArrowPansThroughLiveModifiers(t *testing.T) {
	v, in := newTestViewport(t)
	now, _ := tick(t, v, 0, 2)
	target := v.Camera().Target()

	in.mods = common.ModShift
	assert.Equal(t, common.ModShift, v.Modifiers())
	in.keyDown(common.KeyLeft)
	tick(t, v, now, 10)

	assert.NotEqual(t, target, v.Camera().Target(), "pan moves the target")
}

func TestWheelZooms(t *testing.T) {
	v, in := newTestViewport(t)
	now, _ := tick(t, v, 0, 2)
	dist := v.Camera().LookDirection().Len()

	in.scroll(1, float32(testSize.Width)/2, float32(testSize.Height)/2)
	tick(t, v, now, 10)

	assert.NotEqual(t, dist, v.Camera().LookDirection().Len())
}

func TestResizeCallbackRebuildsTargets(t *testing.T) {
	v, in := newTestViewport(t)
	in.resize(320, 240)

	assert.Equal(t, common.Size{Width: 320, Height: 240}, v.Host().Size())
	now, rendered := tick(t, v, 0, 1)
	assert.Equal(t, 1, rendered, "a resize always produces a fresh frame")

	require.NoError(t, v.Resize(context.Background(), common.Size{Width: 10, Height: 10}))
	assert.Equal(t, common.Size{Width: 100, Height: 100}, v.Host().Size(), "sizes are floored")
	_, rendered = tick(t, v, now, 1)
	assert.Equal(t, 1, rendered)
}

func TestApplyConfig(t *testing.T) {
	v, _ := newTestViewport(t)
	now, _ := tick(t, v, 0, 1)

	f := config.Default()
	f.Controller.InertiaFactor = 0.5
	f.Host.MaxFPS = 5
	f.Host.RenderCycles = 2
	require.NoError(t, v.Apply(f))
	assert.InDelta(t, 0.5, v.Controller().Config().InertiaFactor, 1e-6)

	v.Host().InvalidateRender()
	now, rendered := tick(t, v, now, 1)
	assert.Zero(t, rendered, "two cycles are needed")
	_, rendered = tick(t, v, now+300*time.Millisecond, 1)
	assert.Equal(t, 1, rendered)
}

func TestApplyRejectsInvalidConfig(t *testing.T) {
	v, _ := newTestViewport(t)

	f := config.Default()
	f.Host.RenderCycles = 3
	f.Controller.InertiaFactor = 0.5
	err := v.Apply(f)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.InDelta(t, 0.93, v.Controller().Config().InertiaFactor, 1e-6)
}

func TestCloseEndsDevice(t *testing.T) {
	v, _ := newTestViewport(t)
	v.Close()
	assert.Equal(t, render.StateUnattached, v.Host().State())
	assert.Nil(t, v.Host().Device())
}
