package camera

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settingAt(x float32) CameraSetting {
	return CameraSetting{
		Position:      mgl32.Vec3{x, 0, 10},
		LookDirection: mgl32.Vec3{0, 0, -10},
		UpDirection:   mgl32.Vec3{0, 1, 0},
		FieldOfView:   45,
	}
}

func TestSettingHistoryBounded(t *testing.T) {
	for _, n := range []int{1, 99, 100, 101, 250} {
		h := NewSettingHistory(DefaultHistoryCapacity)
		for i := range n {
			h.Push(settingAt(float32(i)))
			require.LessOrEqual(t, h.Len(), 100)
		}

		snaps := h.Snapshots()
		want := min(n, 100)
		require.Len(t, snaps, want)
		// The most recent entries survive, oldest first.
		for i, s := range snaps {
			assert.Equal(t, float32(n-want+i), s.Position[0])
		}
	}
}

func TestSettingHistoryPopOrder(t *testing.T) {
	h := NewSettingHistory(3)
	for i := range 5 {
		h.Push(settingAt(float32(i)))
	}
	for _, want := range []float32{4, 3, 2} {
		s, ok := h.Pop()
		require.True(t, ok)
		assert.Equal(t, want, s.Position[0])
	}
	_, ok := h.Pop()
	assert.False(t, ok)

	h.Push(settingAt(7))
	assert.Equal(t, 1, h.Len())
	h.Clear()
	assert.Equal(t, 0, h.Len())
}

func TestCameraDefaults(t *testing.T) {
	c := NewCamera()
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, c.Target())
	assert.Equal(t, float32(45), c.FieldOfView())
	assert.Equal(t, ProjectionPerspective, c.Projection())
}

func TestCameraRejectsParallelUp(t *testing.T) {
	c := NewCamera()
	c.SetUpDirection(mgl32.Vec3{0, 0, 1})
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, c.UpDirection())

	c.SetLookDirection(mgl32.Vec3{0, 5, 0})
	assert.Equal(t, mgl32.Vec3{0, 0, -10}, c.LookDirection())

	c.SetLookDirection(mgl32.Vec3{})
	assert.Equal(t, mgl32.Vec3{0, 0, -10}, c.LookDirection())

	bad := c.Setting()
	bad.UpDirection = mgl32.Vec3{0, 0, -1}
	assert.False(t, c.ApplySetting(bad))
}

func TestCameraSettingRoundTrip(t *testing.T) {
	c := NewCamera()
	s := c.Setting()
	c.SetPosition(mgl32.Vec3{4, 5, 6})
	c.SetFieldOfView(60)
	require.True(t, c.ApplySetting(s))
	assert.Equal(t, s, c.Setting())

	c.SetPosition(mgl32.Vec3{1, 1, 1})
	c.Reset()
	assert.Equal(t, s, c.Setting())
}

func TestCameraViewMatrixMapsTargetToForward(t *testing.T) {
	c := NewCamera(WithLookAt(mgl32.Vec3{3, 2, 1}, mgl32.Vec3{3, 2, -9}))
	v := c.CreateViewMatrix().Mul4x1(c.Target().Vec4(1))
	assert.InDelta(t, 0, v[0], 1e-5)
	assert.InDelta(t, 0, v[1], 1e-5)
	assert.InDelta(t, -10, v[2], 1e-4)
}

func TestCameraOrthographicProjection(t *testing.T) {
	c := NewCamera(WithOrthographic(20))
	p := c.CreateProjectionMatrix(2)
	// Half width 10 maps to NDC 1.
	v := p.Mul4x1(mgl32.Vec4{10, 5, -5, 1})
	assert.InDelta(t, 1, v[0], 1e-5)
	assert.InDelta(t, 1, v[1], 1e-5)
}

func TestPoint2DToRayCenter(t *testing.T) {
	c := NewCamera()
	origin, dir, ok := c.Point2DToRay(mgl32.Vec2{50, 50}, mgl32.Vec2{100, 100})
	require.True(t, ok)
	assert.InDelta(t, -1, dir[2], 1e-4)
	assert.InDelta(t, 0, origin[0], 1e-4)
	assert.InDelta(t, 0, origin[1], 1e-4)

	_, _, ok = c.Point2DToRay(mgl32.Vec2{1, 1}, mgl32.Vec2{})
	assert.False(t, ok)
}

func TestAnimateToSettles(t *testing.T) {
	c := NewCamera()
	goal := mgl32.Vec3{10, 0, 10}
	c.AnimateTo(goal, mgl32.Vec3{-10, 0, -10}, mgl32.Vec3{0, 1, 0}, 200*time.Millisecond)
	require.True(t, c.IsAnimating())

	steps := 0
	for c.IsAnimating() && steps < 1000 {
		assert.True(t, c.OnTimeStep())
		steps++
	}
	assert.False(t, c.IsAnimating())
	assert.Less(t, steps, 1000)
	assert.Equal(t, goal, c.Position())
	assert.False(t, c.OnTimeStep())
}

func TestAnimateToZeroDurationApplies(t *testing.T) {
	c := NewCamera()
	c.AnimateTo(mgl32.Vec3{1, 2, 3}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}, 0)
	assert.False(t, c.IsAnimating())
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, c.Position())
}

func TestGPUCameraUniformMarshal(t *testing.T) {
	u := NewGPUCameraUniform(mgl32.Ident4(), mgl32.Vec3{1, 2, 3})
	buf := u.Marshal()
	require.Len(t, buf, 80)
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(buf[0:])))
	assert.Equal(t, float32(2), math.Float32frombits(binary.LittleEndian.Uint32(buf[68:])))
}
