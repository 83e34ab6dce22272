package window

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClickTracker(t *testing.T) {
	t0 := time.Unix(100, 0)
	tests := []struct {
		name   string
		button common.MouseButton
		dt     time.Duration
		dx     float32
		want   bool
	}{
		{name: "same spot quickly", button: common.MouseButtonLeft, dt: 200 * time.Millisecond, want: true},
		{name: "too slow", button: common.MouseButtonLeft, dt: 600 * time.Millisecond},
		{name: "moved too far", button: common.MouseButtonLeft, dt: 100 * time.Millisecond, dx: 10},
		{name: "other button", button: common.MouseButtonRight, dt: 100 * time.Millisecond},
		{name: "within slop", button: common.MouseButtonLeft, dt: 100 * time.Millisecond, dx: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClickTracker(500*time.Millisecond, 4)
			require.False(t, c.press(common.MouseButtonLeft, 10, 10, t0))
			assert.Equal(t, tt.want, c.press(tt.button, 10+tt.dx, 10, t0.Add(tt.dt)))
		})
	}
}

func TestClickTrackerStartsNewPairAfterDoubleClick(t *testing.T) {
	c := newClickTracker(500*time.Millisecond, 4)
	t0 := time.Unix(100, 0)
	assert.False(t, c.press(common.MouseButtonLeft, 0, 0, t0))
	assert.True(t, c.press(common.MouseButtonLeft, 0, 0, t0.Add(100*time.Millisecond)))
	assert.False(t, c.press(common.MouseButtonLeft, 0, 0, t0.Add(200*time.Millisecond)))
	assert.True(t, c.press(common.MouseButtonLeft, 0, 0, t0.Add(300*time.Millisecond)))
}

func TestDispatchButton(t *testing.T) {
	w := newEngineWindow()
	var downs, ups, doubles []common.MouseButton
	w.SetMouseDownCallback(func(b common.MouseButton, x, y float32) { downs = append(downs, b) })
	w.SetMouseUpCallback(func(b common.MouseButton, x, y float32) { ups = append(ups, b) })
	w.SetDoubleClickCallback(func(b common.MouseButton, x, y float32) { doubles = append(doubles, b) })

	t0 := time.Unix(5, 0)
	w.dispatchButton(common.MouseButtonLeft, true, 1, 1, 0, t0)
	w.dispatchButton(common.MouseButtonLeft, false, 1, 1, 0, t0.Add(50*time.Millisecond))
	w.dispatchButton(common.MouseButtonLeft, true, 1, 1, common.ModShift, t0.Add(100*time.Millisecond))

	assert.Equal(t, []common.MouseButton{common.MouseButtonLeft, common.MouseButtonLeft}, downs)
	assert.Equal(t, []common.MouseButton{common.MouseButtonLeft}, ups)
	assert.Equal(t, []common.MouseButton{common.MouseButtonLeft}, doubles)
	assert.Equal(t, common.ModShift, w.Modifiers(), "modifiers fall back to the last event before the window exists")
}

func TestDispatchKey(t *testing.T) {
	w := newEngineWindow(WithEscapeToClose(false))
	var down, up []common.Key
	w.SetKeyDownCallback(func(k common.Key) { down = append(down, k) })
	w.SetKeyUpCallback(func(k common.Key) { up = append(up, k) })

	w.dispatchKey(common.KeyW, true, common.ModControl)
	w.dispatchKey(common.KeyW, false, 0)
	w.dispatchKey(common.KeyEsc, true, 0)

	assert.Equal(t, []common.Key{common.KeyW, common.KeyEsc}, down)
	assert.Equal(t, []common.Key{common.KeyW}, up)
}

func TestDispatchKeyEscapeCloses(t *testing.T) {
	w := newEngineWindow()
	called := false
	w.SetKeyDownCallback(func(common.Key) { called = true })
	w.dispatchKey(common.KeyEsc, true, 0)
	assert.False(t, called)
	assert.False(t, w.IsRunning())
}

func TestDispatchResizeIgnoresMinimize(t *testing.T) {
	w := newEngineWindow(WithSize(common.Size{Width: 640, Height: 480}))
	var sizes [][2]int
	w.SetResizeCallback(func(width, height int) { sizes = append(sizes, [2]int{width, height}) })

	w.dispatchResize(0, 0)
	w.dispatchResize(800, 600)

	assert.Equal(t, [][2]int{{800, 600}}, sizes)
	assert.Equal(t, 800, w.Width())
	assert.Equal(t, 600, w.Height())
}

func TestBuilderDefaultsAndOverrides(t *testing.T) {
	w := newEngineWindow()
	assert.Equal(t, "oxyview", w.title)
	assert.Equal(t, 1280, w.Width())
	assert.Equal(t, 720, w.Height())
	assert.Equal(t, [4]int{320, 240, 3840, 2160}, [4]int{w.minWidth, w.minHeight, w.maxWidth, w.maxHeight})
	assert.True(t, w.escapeCloses)

	w = newEngineWindow(
		WithTitle("scene"),
		WithSize(common.Size{Width: 800, Height: 600}),
		WithSizeLimits(common.Size{Width: 200, Height: 150}, common.Size{Width: 1920, Height: 1080}),
	)
	assert.Equal(t, "scene", w.title)
	assert.Equal(t, 800, w.Width())
	assert.Equal(t, 600, w.Height())
	assert.Equal(t, [4]int{200, 150, 1920, 1080}, [4]int{w.minWidth, w.minHeight, w.maxWidth, w.maxHeight})
}
