package window

import (
	"fmt"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// Window provides platform windowing and input event handling for a viewer.
// Wraps platform-specific window implementations with a common interface.
// Pointer positions are reported in framebuffer pixels.
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetScrollCallback sets the callback for mouse scroll wheel events.
	//
	// Parameters:
	//   - callback: function receiving the scroll delta (positive = up) and the cursor position
	SetScrollCallback(callback func(delta, x, y float32))

	// SetKeyDownCallback sets the callback for key press and repeat events.
	//
	// Parameters:
	//   - callback: function receiving the virtual key code
	SetKeyDownCallback(callback func(key common.Key))

	// SetKeyUpCallback sets the callback for key release events.
	//
	// Parameters:
	//   - callback: function receiving the virtual key code
	SetKeyUpCallback(callback func(key common.Key))

	// SetMouseDownCallback sets the callback for mouse button presses.
	//
	// Parameters:
	//   - callback: function receiving the button and cursor position
	SetMouseDownCallback(callback func(button common.MouseButton, x, y float32))

	// SetMouseUpCallback sets the callback for mouse button releases.
	//
	// Parameters:
	//   - callback: function receiving the button and cursor position
	SetMouseUpCallback(callback func(button common.MouseButton, x, y float32))

	// SetDoubleClickCallback sets the callback for a second press of the same
	// button within the double-click interval. The press is also reported to
	// the mouse-down callback.
	//
	// Parameters:
	//   - callback: function receiving the button and cursor position
	SetDoubleClickCallback(callback func(button common.MouseButton, x, y float32))

	// SetMouseMoveCallback sets the callback for mouse movement.
	//
	// Parameters:
	//   - callback: function receiving the cursor position
	SetMouseMoveCallback(callback func(x, y float32))

	// Modifiers reports the modifier keys held right now.
	//
	// Returns:
	//   - common.ModifierKeys: the held modifiers
	Modifiers() common.ModifierKeys

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true if the window is still active.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: error if close operation fails
	Close() error

	// ProcessMessages runs the window message loop.
	// Blocks until the window is closed. Calls OnUpdate callback each iteration.
	ProcessMessages()

	// Width returns the current framebuffer width in pixels.
	//
	// Returns:
	//   - int: width in pixels
	Width() int

	// Height returns the current framebuffer height in pixels.
	//
	// Returns:
	//   - int: height in pixels
	Height() int
}

// engineWindow is the implementation of the Window interface.
// Holds window configuration, GLFW state, and event callbacks.
type engineWindow struct {
	title string

	maxWidth  int
	maxHeight int
	minWidth  int
	minHeight int

	// width and height track the framebuffer size, which differs from the
	// window size on high-DPI displays.
	width  int
	height int

	// escapeCloses closes the window when Escape is pressed.
	escapeCloses bool

	clicks *clickTracker

	// mods is the modifier state reported by the most recent key or button
	// event; platformModifiers refines it with a live key query.
	mods common.ModifierKeys

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any

	onUpdate      func()
	onResize      func(width, height int)
	onScroll      func(delta, x, y float32)
	onKeyDown     func(key common.Key)
	onKeyUp       func(key common.Key)
	onMouseDown   func(button common.MouseButton, x, y float32)
	onMouseUp     func(button common.MouseButton, x, y float32)
	onDoubleClick func(button common.MouseButton, x, y float32)
	onMouseMove   func(x, y float32)
}

var _ Window = &engineWindow{}

// NewWindow creates a new Window with the specified options.
// Applies default values first, then each option in order.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the configured window, already shown
//   - error: error if the platform window could not be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := newEngineWindow(options...)
	if err := newPlatformWindow(w); err != nil {
		return nil, fmt.Errorf("failed to create platform window: %w", err)
	}
	return w, nil
}

func newEngineWindow(options ...WindowBuilderOption) *engineWindow {
	w := &engineWindow{
		title:        "oxyview",
		maxWidth:     3840,
		maxHeight:    2160,
		minWidth:     320,
		minHeight:    240,
		width:        1280,
		height:       720,
		escapeCloses: true,
		clicks:       newClickTracker(500*time.Millisecond, 4),
	}
	for _, opt := range options {
		opt(w)
	}
	return w
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetScrollCallback(callback func(delta, x, y float32)) {
	w.onScroll = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(key common.Key)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetKeyUpCallback(callback func(key common.Key)) {
	w.onKeyUp = callback
}

func (w *engineWindow) SetMouseDownCallback(callback func(button common.MouseButton, x, y float32)) {
	w.onMouseDown = callback
}

func (w *engineWindow) SetMouseUpCallback(callback func(button common.MouseButton, x, y float32)) {
	w.onMouseUp = callback
}

func (w *engineWindow) SetDoubleClickCallback(callback func(button common.MouseButton, x, y float32)) {
	w.onDoubleClick = callback
}

func (w *engineWindow) SetMouseMoveCallback(callback func(x, y float32)) {
	w.onMouseMove = callback
}

func (w *engineWindow) Modifiers() common.ModifierKeys {
	return platformModifiers(w)
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		if succ := platformProcessMessages(w); !succ {
			break
		}

		if w.onUpdate != nil {
			w.onUpdate()
		}

		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}

// dispatchKey routes a key event to the key callbacks.
//
// Parameters:
//   - key: the key code
//   - pressed: true for press and repeat, false for release
//   - mods: modifier state carried by the event
func (w *engineWindow) dispatchKey(key common.Key, pressed bool, mods common.ModifierKeys) {
	w.mods = mods
	if pressed && key == common.KeyEsc && w.escapeCloses {
		platformRequestClose(w)
		return
	}
	if pressed {
		if w.onKeyDown != nil {
			w.onKeyDown(key)
		}
		return
	}
	if w.onKeyUp != nil {
		w.onKeyUp(key)
	}
}

// dispatchButton routes a mouse button event, detecting double clicks.
//
// Parameters:
//   - button: the button
//   - pressed: true for a press
//   - x, y: cursor position in framebuffer pixels
//   - mods: modifier state carried by the event
//   - now: event time
func (w *engineWindow) dispatchButton(button common.MouseButton, pressed bool, x, y float32, mods common.ModifierKeys, now time.Time) {
	w.mods = mods
	if !pressed {
		if w.onMouseUp != nil {
			w.onMouseUp(button, x, y)
		}
		return
	}
	if w.onMouseDown != nil {
		w.onMouseDown(button, x, y)
	}
	if w.clicks.press(button, x, y, now) && w.onDoubleClick != nil {
		w.onDoubleClick(button, x, y)
	}
}

// dispatchResize records the framebuffer size and notifies the resize callback.
// Minimized windows report a zero size, which is not forwarded.
func (w *engineWindow) dispatchResize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	w.width = width
	w.height = height
	if w.onResize != nil {
		w.onResize(width, height)
	}
}
