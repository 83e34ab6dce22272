package window

import (
	"fmt"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// glfwWindow holds the GLFW-specific window state.
type glfwWindow struct {
	parent  *engineWindow
	window  *glfw.Window
	running bool
}

// newPlatformWindow creates the GLFW window with input callbacks and stores it as the internal window.
//
// GLFW reference: https://www.glfw.org/docs/latest/window_guide.html
// go-gl/glfw: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw
func newPlatformWindow(w *engineWindow) error {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	// WebGPU provides its own graphics API, so disable OpenGL context creation.
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("failed to create GLFW window: %w", err)
	}
	win.SetSizeLimits(w.minWidth, w.minHeight, w.maxWidth, w.maxHeight)

	gw := &glfwWindow{
		parent:  w,
		window:  win,
		running: true,
	}
	w.internalWindow = gw

	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyUnknown {
			return
		}
		w.dispatchKey(common.Key(key), action != glfw.Release, common.ModifierKeys(mods))
	})

	win.SetScrollCallback(func(_ *glfw.Window, xoff, yoff float64) {
		if w.onScroll != nil {
			x, y := gw.cursor()
			w.onScroll(float32(yoff), x, y)
		}
	})

	win.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if action == glfw.Repeat {
			return
		}
		x, y := gw.cursor()
		w.dispatchButton(common.MouseButton(button), action == glfw.Press, x, y, common.ModifierKeys(mods), time.Now())
	})

	win.SetCursorPosCallback(func(_ *glfw.Window, xpos, ypos float64) {
		if w.onMouseMove != nil {
			x, y := gw.toFramebuffer(xpos, ypos)
			w.onMouseMove(x, y)
		}
	})

	// Framebuffer size is the pixel size the renderer needs; on high-DPI
	// displays (e.g., macOS Retina) it differs from the window size.
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.dispatchResize(width, height)
	})

	fbWidth, fbHeight := win.GetFramebufferSize()
	w.width = fbWidth
	w.height = fbHeight

	return nil
}

// cursor returns the cursor position in framebuffer pixels.
func (gw *glfwWindow) cursor() (float32, float32) {
	return gw.toFramebuffer(gw.window.GetCursorPos())
}

// toFramebuffer scales a position from screen coordinates to framebuffer pixels.
func (gw *glfwWindow) toFramebuffer(x, y float64) (float32, float32) {
	ww, wh := gw.window.GetSize()
	fw, fh := gw.window.GetFramebufferSize()
	if ww > 0 && wh > 0 {
		x *= float64(fw) / float64(ww)
		y *= float64(fh) / float64(wh)
	}
	return float32(x), float32(y)
}

// platformModifiers queries the held modifier keys from GLFW. Before the
// window exists it falls back to the state of the last input event.
func platformModifiers(w *engineWindow) common.ModifierKeys {
	if w.internalWindow == nil {
		return w.mods
	}
	win := w.internalWindow.(*glfwWindow).window
	held := func(keys ...glfw.Key) bool {
		for _, k := range keys {
			if win.GetKey(k) == glfw.Press {
				return true
			}
		}
		return false
	}
	var mods common.ModifierKeys
	if held(glfw.KeyLeftShift, glfw.KeyRightShift) {
		mods |= common.ModShift
	}
	if held(glfw.KeyLeftControl, glfw.KeyRightControl) {
		mods |= common.ModControl
	}
	if held(glfw.KeyLeftAlt, glfw.KeyRightAlt) {
		mods |= common.ModAlt
	}
	if held(glfw.KeyLeftSuper, glfw.KeyRightSuper) {
		mods |= common.ModSuper
	}
	return mods
}

// platformGetSurfaceDescriptor creates a platform-appropriate wgpu.SurfaceDescriptor from the GLFW window.
// Uses the wgpuglfw bridge package which has per-platform implementations (Windows, X11, Wayland, macOS).
//
// Reference: https://pkg.go.dev/github.com/cogentcore/webgpu/wgpuglfw#GetSurfaceDescriptor
func platformGetSurfaceDescriptor(w *engineWindow) *wgpu.SurfaceDescriptor {
	if w.internalWindow == nil {
		return nil
	}
	gw := w.internalWindow.(*glfwWindow)
	return wgpuglfw.GetSurfaceDescriptor(gw.window)
}

// platformIsRunningCheck returns whether the GLFW window is still active.
// Returns false if the internal window is nil, the running flag is cleared, or GLFW reports ShouldClose.
func platformIsRunningCheck(w *engineWindow) bool {
	if w.internalWindow == nil {
		return false
	}
	gw := w.internalWindow.(*glfwWindow)
	return gw.running && !gw.window.ShouldClose()
}

// platformRequestClose asks the message loop to stop after the current iteration.
func platformRequestClose(w *engineWindow) {
	if w.internalWindow == nil {
		return
	}
	gw := w.internalWindow.(*glfwWindow)
	gw.running = false
	gw.window.SetShouldClose(true)
}

// platformCloseWindow destroys the GLFW window and terminates the GLFW library.
//
// Returns:
//   - error: error if the window is not initialized
func platformCloseWindow(w *engineWindow) error {
	if w.internalWindow == nil {
		return fmt.Errorf("window is not initialized")
	}
	gw := w.internalWindow.(*glfwWindow)
	gw.running = false
	gw.window.SetShouldClose(true)
	gw.window.Destroy()
	w.internalWindow = nil
	glfw.Terminate()
	return nil
}

// platformProcessMessages polls GLFW for pending events without blocking.
//
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#PollEvents
func platformProcessMessages(w *engineWindow) bool {
	glfw.PollEvents()
	return platformIsRunningCheck(w)
}
