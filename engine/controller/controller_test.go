package controller

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/camera"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frame = int64(16 * time.Millisecond)

type fakeModifiers struct{ mods common.ModifierKeys }

func (f *fakeModifiers) Modifiers() common.ModifierKeys { return f.mods }

type countingInvalidator struct{ n int }

func (c *countingInvalidator) InvalidateRender() { c.n++ }

type fakeClock struct{ now time.Time }

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(1000, 0)} }

func (f *fakeClock) Now() time.Time                 { return f.now }
func (f *fakeClock) Advance(d time.Duration)        { f.now = f.now.Add(d) }
func (f *fakeClock) option() CameraControllerOption { return WithClock(f.Now) }

func newTestController(t *testing.T, mutate func(*Config), options ...CameraControllerOption) (*controllerImpl, camera.Camera) {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	require.NoError(t, cfg.Validate())
	cam := camera.NewCamera()
	options = append([]CameraControllerOption{
		WithCamera(cam),
		WithConfig(cfg),
		WithViewportSize(800, 600),
		WithClock(newFakeClock().Now),
	}, options...)
	return NewCameraController(options...).(*controllerImpl), cam
}

func assertVec3InDelta(t *testing.T, want, got mgl32.Vec3, delta float64) {
	t.Helper()
	for i := range 3 {
		assert.InDelta(t, want[i], got[i], delta, "component %d of %v vs %v", i, want, got)
	}
}

func TestDecayFactor(t *testing.T) {
	assert.InDelta(t, 0.93, decayFactor(0.93, true, 0.02), 1e-6)
	assert.InDelta(t, math32.Pow(0.93, 0.8), decayFactor(0.93, true, 0.016), 1e-6)
	assert.Equal(t, float32(0), decayFactor(0.93, false, 0.016))
	assert.Equal(t, float32(0.1), decayFactor(0.93, true, 10))
}

func TestRotationDecaysToRest(t *testing.T) {
	c, _ := newTestController(t, nil)
	c.OnCompositionTargetRendering(1)
	c.AddRotateForce(10, 0)
	require.Equal(t, float32(400), c.Speeds().Rotation.X())

	ticks := int64(1)
	prev := c.Speeds().Rotation.Len()
	for i := 0; i < 1000 && c.Speeds().Rotation.Len() > 0; i++ {
		ticks += frame
		c.OnCompositionTargetRendering(ticks)
		cur := c.Speeds().Rotation.Len()
		require.LessOrEqual(t, cur, prev)
		prev = cur
	}
	assert.Equal(t, mgl32.Vec2{}, c.Speeds().Rotation)
	// the tick that reached rest also went idle
	assert.False(t, c.IsTicking())
}

func TestDisabledRotationIsNoop(t *testing.T) {
	c, cam := newTestController(t, func(cfg *Config) { cfg.IsRotationEnabled = false })
	before := cam.Setting()

	c.AddRotateForce(25, -10)
	c.OnCompositionTargetRendering(1)
	c.OnCompositionTargetRendering(1 + frame)
	c.StartSpin(mgl32.Vec2{50, 0}, mgl32.Vec2{}, mgl32.Vec3{})

	assert.Equal(t, before, cam.Setting())
	assert.Equal(t, 0, c.HistoryLen())
	assert.False(t, c.IsSpinning())
}

func TestRestoreEmptyHistory(t *testing.T) {
	c, cam := newTestController(t, nil)
	before := cam.Setting()
	assert.False(t, c.RestoreCameraSetting())
	assert.Equal(t, before, cam.Setting())

	unbound := NewCameraController()
	assert.False(t, unbound.RestoreCameraSetting())
}

func TestUndoHistoryBounded(t *testing.T) {
	c, cam := newTestController(t, func(cfg *Config) { cfg.IsInertiaEnabled = false })
	initial := cam.Setting()
	for range 150 {
		c.AddRotateForce(1, 0)
	}
	require.Equal(t, camera.DefaultHistoryCapacity, c.HistoryLen())

	for range camera.DefaultHistoryCapacity {
		require.True(t, c.RestoreCameraSetting())
	}
	assert.False(t, c.RestoreCameraSetting())
	// the oldest 50 snapshots were evicted, so the initial setting is unreachable
	assert.NotEqual(t, initial.Position, cam.Position())
}

func TestRestoreUndoesZoom(t *testing.T) {
	c, cam := newTestController(t, func(cfg *Config) { cfg.IsInertiaEnabled = false })
	before := cam.Setting()
	c.AddZoomForce(-1)
	require.NotEqual(t, before.Position, cam.Position())
	require.True(t, c.RestoreCameraSetting())
	assert.Equal(t, before, cam.Setting())
}

func TestPanForceScenario(t *testing.T) {
	c, cam := newTestController(t, nil)
	require.True(t, c.Config().IsInertiaEnabled)

	c.OnCompositionTargetRendering(int64(time.Second))
	c.AddPanForce(1, 0)
	assert.Equal(t, float32(40), c.Speeds().Pan.X())

	moved := c.OnCompositionTargetRendering(int64(time.Second) + frame)
	require.True(t, moved)
	assert.InDelta(t, 40*math32.Pow(0.93, 0.8), c.Speeds().Pan.X(), 1e-4)

	// axis1 is +X for the default camera; f = 10 * 0.001; dx = 40 * 0.016
	assertVec3InDelta(t, mgl32.Vec3{-0.0064, 0, 10}, cam.Position(), 1e-5)
	assertVec3InDelta(t, mgl32.Vec3{0, 0, -10}, cam.LookDirection(), 1e-6)
}

func TestPanForceVectorProjectsToScreen(t *testing.T) {
	c, _ := newTestController(t, nil)
	c.AddPanForceVector(mgl32.Vec3{0.01, 0, 0})
	assert.InDelta(t, -40, c.Speeds().Pan.X(), 1e-3)
	assert.InDelta(t, 0, c.Speeds().Pan.Y(), 1e-3)
}

func TestZoomClampsToNearLimit(t *testing.T) {
	c, cam := newTestController(t, func(cfg *Config) {
		cfg.IsInertiaEnabled = false
		cfg.ZoomDistanceLimitNear = 1
	})
	target := cam.Target()

	c.AddZoomForce(-10)
	assert.InDelta(t, 1.0, cam.LookDirection().Len(), 1e-5)
	assertVec3InDelta(t, target, cam.Target(), 1e-5)

	c.AddZoomForce(-1)
	assert.InDelta(t, 1.0, cam.LookDirection().Len(), 1e-5)
}

func TestZoomAroundPoint(t *testing.T) {
	c, cam := newTestController(t, func(cfg *Config) { cfg.IsInertiaEnabled = false })
	origin := mgl32.Vec3{2, 0, 0}
	c.AddZoomForceAt(-1, origin)

	f := math32.Pow(2.5, -1)
	assertVec3InDelta(t, origin.Add(mgl32.Vec3{-2, 0, 10}.Mul(f)), cam.Position(), 1e-5)
	assert.InDelta(t, 10*f, cam.LookDirection().Len(), 1e-5)
}

func TestFixedPositionZoomChangesFieldOfView(t *testing.T) {
	c, cam := newTestController(t, func(cfg *Config) {
		cfg.IsInertiaEnabled = false
		cfg.CameraMode = CameraModeFixedPosition
	})
	pos := cam.Position()

	c.AddZoomForce(0.5)
	assert.InDelta(t, 45*1.25, cam.FieldOfView(), 1e-4)
	assert.Equal(t, pos, cam.Position())

	c.AddZoomForce(10)
	assert.Equal(t, float32(160), cam.FieldOfView())

	c.AddPanForce(10, 10)
	c.AddMoveForce(1, 1, 1)
	assert.Equal(t, pos, cam.Position())
}

func TestSpinAndRotationExclusive(t *testing.T) {
	c, _ := newTestController(t, nil)
	c.OnCompositionTargetRendering(1)

	c.AddRotateForce(5, 0)
	c.StartSpin(mgl32.Vec2{30, 0}, mgl32.Vec2{400, 300}, mgl32.Vec3{})
	assert.True(t, c.IsSpinning())
	assert.Equal(t, mgl32.Vec2{}, c.Speeds().Rotation)

	c.AddRotateForce(5, 0)
	c.OnCompositionTargetRendering(1 + frame)
	assert.False(t, c.IsSpinning())
	assert.Equal(t, mgl32.Vec2{}, c.Speeds().Spin)
}

func TestInfiniteSpinKeepsSpeed(t *testing.T) {
	c, cam := newTestController(t, func(cfg *Config) { cfg.InfiniteSpin = true })
	c.OnCompositionTargetRendering(1)
	c.StartSpin(mgl32.Vec2{30, 0}, mgl32.Vec2{400, 300}, mgl32.Vec3{})

	ticks := int64(1)
	for range 50 {
		ticks += frame
		require.True(t, c.OnCompositionTargetRendering(ticks))
	}
	assert.True(t, c.IsSpinning())
	assert.Equal(t, mgl32.Vec2{30, 0}, c.Speeds().Spin)
	assert.InDelta(t, 10, cam.Position().Len(), 1e-3)

	c.StopSpin()
	assert.False(t, c.IsSpinning())
}

func TestMoveForceKeepsLookDirection(t *testing.T) {
	c, cam := newTestController(t, nil)
	c.OnCompositionTargetRendering(1)
	c.AddMoveForce(0, 0, 1)
	assert.Equal(t, float32(40), c.Speeds().Move.Z())

	c.OnCompositionTargetRendering(1 + frame)
	assertVec3InDelta(t, mgl32.Vec3{0, 0, 10 - 0.64}, cam.Position(), 1e-4)
	assertVec3InDelta(t, mgl32.Vec3{0, 0, -10}, cam.LookDirection(), 1e-6)
}

func TestManipulatorTransitionDiscardsMotion(t *testing.T) {
	c, cam := newTestController(t, nil)

	c.OnManipulationStarted(ManipulationEvent{Position: mgl32.Vec2{400, 300}, Scale: 1})
	c.OnManipulationDelta(ManipulationEvent{Position: mgl32.Vec2{400, 300}, Manipulators: 1, Scale: 1})
	c.OnManipulationDelta(ManipulationEvent{Position: mgl32.Vec2{420, 300}, Manipulators: 1, Scale: 1})
	afterRotate := cam.Setting()
	require.NotEqual(t, camera.NewCamera().Position(), afterRotate.Position)

	// second finger lands: hand over only
	c.OnManipulationDelta(ManipulationEvent{Position: mgl32.Vec2{500, 300}, Manipulators: 2, Scale: 1.5})
	assert.Equal(t, afterRotate, cam.Setting())
	assert.Equal(t, float32(1), c.prevScale)
	assert.False(t, c.pinchInitialized)

	// first pinch frame sets the baseline
	c.OnManipulationDelta(ManipulationEvent{Position: mgl32.Vec2{500, 300}, Manipulators: 2, Scale: 1.5})
	assert.Equal(t, afterRotate, cam.Setting())
	assert.Equal(t, float32(1.5), c.prevScale)

	// spreading the fingers zooms in
	dist := cam.LookDirection().Len()
	c.OnManipulationDelta(ManipulationEvent{Position: mgl32.Vec2{500, 300}, Manipulators: 2, Scale: 2})
	assert.Less(t, cam.LookDirection().Len(), dist)

	c.OnManipulationCompleted(ManipulationEvent{Position: mgl32.Vec2{500, 300}, Scale: 2})
	assert.Equal(t, float32(1), c.prevScale)
	assert.Equal(t, 0, c.manipulatorCount)
}

func TestThreeFingerPanDisabled(t *testing.T) {
	c, cam := newTestController(t, func(cfg *Config) { cfg.EnableThreeFingerPan = false })
	before := cam.Setting()
	c.OnManipulationDelta(ManipulationEvent{Position: mgl32.Vec2{400, 300}, Manipulators: 3, Scale: 1})
	c.OnManipulationDelta(ManipulationEvent{Position: mgl32.Vec2{450, 350}, Manipulators: 3, Scale: 1})
	assert.Equal(t, before, cam.Setting())
}

func TestKeyboardActions(t *testing.T) {
	mods := &fakeModifiers{}
	c, cam := newTestController(t, nil, WithModifierSource(mods))

	require.True(t, c.OnKeyDown(common.KeyPageUp))
	assert.InDelta(t, -0.8, c.Speeds().Zoom, 1e-6)

	mods.mods = common.ModShift
	require.True(t, c.OnKeyDown(common.KeyLeft))
	assert.InDelta(t, -200, c.Speeds().Pan.X(), 1e-4)

	mods.mods = common.ModControl
	require.True(t, c.OnKeyDown(common.KeyRight))
	assert.InDelta(t, 10, c.Speeds().Rotation.X(), 1e-4)

	mods.mods = 0
	require.True(t, c.OnKeyDown(common.KeyW))
	assert.InDelta(t, 4, c.Speeds().Move.Z(), 1e-4)

	assert.False(t, c.OnKeyDown(common.KeyE))

	n := c.HistoryLen()
	require.True(t, c.OnKeyDown(common.KeyBackspace))
	assert.Equal(t, n-1, c.HistoryLen())
	assert.Equal(t, AxisSpeeds{}, c.Speeds())

	cam.SetPosition(mgl32.Vec3{3, 3, 3})
	require.True(t, c.OnKeyDown(common.KeyHome))
	assert.Equal(t, mgl32.Vec3{0, 0, 10}, cam.Position())
}

func TestMouseRotateDrag(t *testing.T) {
	inv := &countingInvalidator{}
	c, cam := newTestController(t, func(cfg *Config) { cfg.IsInertiaEnabled = false }, WithInvalidator(inv))
	target := cam.Target()

	c.OnMouseDown(common.MouseButtonLeft, mgl32.Vec2{400, 300})
	c.OnMouseMove(mgl32.Vec2{500, 300})
	assert.Equal(t, mgl32.Vec3{0, 0, 10}, cam.Position())

	c.OnMouseDown(common.MouseButtonRight, mgl32.Vec2{400, 300})
	c.OnMouseMove(mgl32.Vec2{440, 300})
	c.OnMouseUp(common.MouseButtonRight, mgl32.Vec2{440, 300})

	assert.NotEqual(t, mgl32.Vec3{0, 0, 10}, cam.Position())
	assertVec3InDelta(t, target, cam.Target(), 1e-4)
	assert.InDelta(t, 10, cam.Position().Sub(target).Len(), 1e-4)
	assert.Equal(t, 1, c.HistoryLen())
	assert.Positive(t, inv.n)
	assert.False(t, c.IsSpinning())
}

func TestMouseFlickStartsSpin(t *testing.T) {
	clock := newFakeClock()
	c, _ := newTestController(t, nil, clock.option())

	c.OnMouseDown(common.MouseButtonRight, mgl32.Vec2{400, 300})
	clock.Advance(50 * time.Millisecond)
	c.OnMouseMove(mgl32.Vec2{450, 300})
	clock.Advance(10 * time.Millisecond)
	c.OnMouseUp(common.MouseButtonRight, mgl32.Vec2{450, 300})

	require.True(t, c.IsSpinning())
	assert.InDelta(t, 50*40/60.0, c.Speeds().Spin.X(), 1e-3)
}

func TestMouseSlowReleaseDoesNotSpin(t *testing.T) {
	clock := newFakeClock()
	c, _ := newTestController(t, nil, clock.option())

	c.OnMouseDown(common.MouseButtonRight, mgl32.Vec2{400, 300})
	clock.Advance(50 * time.Millisecond)
	c.OnMouseMove(mgl32.Vec2{450, 300})
	clock.Advance(time.Second)
	c.OnMouseUp(common.MouseButtonRight, mgl32.Vec2{450, 300})

	assert.False(t, c.IsSpinning())
}

func TestRotateOnLeft(t *testing.T) {
	c, cam := newTestController(t, func(cfg *Config) {
		cfg.IsInertiaEnabled = false
		cfg.RotateOnLeft = true
	})
	c.OnMouseDown(common.MouseButtonLeft, mgl32.Vec2{400, 300})
	c.OnMouseMove(mgl32.Vec2{400, 340})
	c.OnMouseUp(common.MouseButtonLeft, mgl32.Vec2{400, 340})
	assert.NotEqual(t, mgl32.Vec3{0, 0, 10}, cam.Position())
}

func TestMiddleDragPansUnderCursor(t *testing.T) {
	c, cam := newTestController(t, nil)
	c.OnMouseDown(common.MouseButtonMiddle, mgl32.Vec2{400, 300})
	c.OnMouseMove(mgl32.Vec2{500, 300})
	c.OnMouseUp(common.MouseButtonMiddle, mgl32.Vec2{500, 300})

	// dragging right moves the camera left
	assert.Less(t, cam.Position().X(), float32(0))
	assertVec3InDelta(t, mgl32.Vec3{0, 0, -10}, cam.LookDirection(), 1e-6)
}

func TestMouseWheelZooms(t *testing.T) {
	c, _ := newTestController(t, nil)
	c.OnMouseWheel(1, mgl32.Vec2{400, 300})
	assert.InDelta(t, -0.96, c.Speeds().Zoom, 1e-5)
}

type fixedHit struct{ p mgl32.Vec3 }

func (f fixedHit) HitTest(mgl32.Vec2) (mgl32.Vec3, bool) { return f.p, true }

func TestDoubleClickChangesLookAt(t *testing.T) {
	c, cam := newTestController(t, nil, WithHitTester(fixedHit{p: mgl32.Vec3{1, 2, 0}}))
	c.OnMouseDoubleClick(common.MouseButtonLeft, mgl32.Vec2{100, 100})
	require.True(t, cam.IsAnimating())

	ticks := int64(1)
	c.OnCompositionTargetRendering(ticks)
	for i := 0; i < 600 && cam.IsAnimating(); i++ {
		ticks += frame
		c.OnCompositionTargetRendering(ticks)
	}
	assertVec3InDelta(t, mgl32.Vec3{1, 2, 0}, cam.Target(), 1e-3)
	assertVec3InDelta(t, mgl32.Vec3{0, 0, -10}, cam.LookDirection(), 1e-3)
}

func TestZoomRectangleGesture(t *testing.T) {
	mods := &fakeModifiers{mods: common.ModControl | common.ModShift}
	c, cam := newTestController(t, nil, WithModifierSource(mods))

	c.OnMouseDown(common.MouseButtonRight, mgl32.Vec2{300, 225})
	c.OnMouseMove(mgl32.Vec2{500, 375})
	from, to, active := c.ZoomRectangle()
	require.True(t, active)
	assert.Equal(t, mgl32.Vec2{300, 225}, from)
	assert.Equal(t, mgl32.Vec2{500, 375}, to)

	c.OnMouseUp(common.MouseButtonRight, mgl32.Vec2{500, 375})
	_, _, active = c.ZoomRectangle()
	assert.False(t, active)
	assert.InDelta(t, 2.5, cam.LookDirection().Len(), 1e-3)
	assertVec3InDelta(t, mgl32.Vec3{}, cam.Target(), 1e-3)
}

func TestTrackballPreservesPivotDistance(t *testing.T) {
	c, cam := newTestController(t, func(cfg *Config) {
		cfg.IsInertiaEnabled = false
		cfg.RotationMode = RotationModeTrackball
	})
	c.OnMouseDown(common.MouseButtonRight, mgl32.Vec2{400, 300})
	c.OnMouseMove(mgl32.Vec2{450, 330})
	c.OnMouseUp(common.MouseButtonRight, mgl32.Vec2{450, 330})

	assert.NotEqual(t, mgl32.Vec3{0, 0, 10}, cam.Position())
	assert.InDelta(t, 10, cam.Position().Len(), 1e-3)
}

func TestWalkAroundRotationKeepsPosition(t *testing.T) {
	c, cam := newTestController(t, func(cfg *Config) {
		cfg.IsInertiaEnabled = false
		cfg.CameraMode = CameraModeWalkAround
	})
	c.AddRotateForce(20, 0)
	assert.Equal(t, mgl32.Vec3{0, 0, 10}, cam.Position())
	assert.NotEqual(t, mgl32.Vec3{0, 0, -10}, cam.LookDirection())
}

func TestTimestepBaseline(t *testing.T) {
	inv := &countingInvalidator{}
	c, _ := newTestController(t, nil, WithInvalidator(inv))

	assert.False(t, c.OnCompositionTargetRendering(5))
	assert.True(t, c.IsTicking())
	assert.False(t, c.OnCompositionTargetRendering(5+frame))
	assert.False(t, c.IsTicking())

	c.AddRotateForce(1, 0)
	n := inv.n
	c.OnCompositionTargetRendering(100)
	// same tick twice falls back to a default frame time
	assert.True(t, c.OnCompositionTargetRendering(100))
	assert.Greater(t, inv.n, n)
}

func TestApplyConfig(t *testing.T) {
	c, _ := newTestController(t, nil)

	bad := DefaultConfig()
	bad.InertiaFactor = 1.5
	require.ErrorIs(t, c.ApplyConfig(bad), ErrInvalidConfig)
	assert.Equal(t, float32(0.93), c.Config().InertiaFactor)

	cfg := c.Config()
	cfg.KeyBindings[common.KeyE] = KeyActionReset
	assert.False(t, c.OnKeyDown(common.KeyE))

	c.AddPanForce(1, 0)
	cfg.IsPanEnabled = false
	require.NoError(t, c.ApplyConfig(cfg))
	assert.Equal(t, mgl32.Vec2{}, c.Speeds().Pan)
	assert.True(t, c.OnKeyDown(common.KeyE))
}

func TestConfigModeText(t *testing.T) {
	var m CameraMode
	require.NoError(t, m.UnmarshalText([]byte("WalkAround")))
	assert.Equal(t, CameraModeWalkAround, m)
	assert.Error(t, m.UnmarshalText([]byte("orbit")))

	var r RotationMode
	require.NoError(t, r.UnmarshalText([]byte("trackball")))
	assert.Equal(t, "trackball", r.String())
}
