// Package viewport binds an input source, a camera controller and a render
// host into one interactive 3D view.
package viewport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/camera"
	"github.com/Carmen-Shannon/oxy-view/engine/config"
	"github.com/Carmen-Shannon/oxy-view/engine/controller"
	"github.com/Carmen-Shannon/oxy-view/engine/render"
	"github.com/go-gl/mathgl/mgl32"
)

// InputSource delivers pointer and keyboard input. window.Window implements it.
type InputSource interface {
	SetResizeCallback(callback func(width, height int))
	SetScrollCallback(callback func(delta, x, y float32))
	SetKeyDownCallback(callback func(key common.Key))
	SetMouseDownCallback(callback func(button common.MouseButton, x, y float32))
	SetMouseUpCallback(callback func(button common.MouseButton, x, y float32))
	SetDoubleClickCallback(callback func(button common.MouseButton, x, y float32))
	SetMouseMoveCallback(callback func(x, y float32))

	// Modifiers reports the modifier keys held right now.
	Modifiers() common.ModifierKeys
}

// Viewport is one interactive view: input drives the camera controller, and
// every compositor tick advances the controller and then lets the render host
// draw if the view is invalid.
type Viewport interface {
	// Host returns the render host.
	Host() render.RenderHost

	// Controller returns the camera controller.
	Controller() controller.CameraController

	// Camera returns the camera shared by the controller and the host.
	Camera() camera.Camera

	// Bind routes the input source's events to the controller and its resize
	// events to Resize. Binding a new source replaces the previous one for
	// modifier queries; the old source keeps its callbacks.
	//
	// Parameters:
	//   - src: the input source
	Bind(src InputSource)

	// Start creates the device and render targets.
	//
	// Parameters:
	//   - size: the initial size in pixels
	//
	// Returns:
	//   - error: error if the device could not be started
	Start(size common.Size) error

	// Resize rebuilds the render targets and updates the controller's viewport size.
	//
	// Parameters:
	//   - ctx: cancels waiting for an in-flight frame
	//   - size: the new size in pixels
	//
	// Returns:
	//   - error: render.ErrResizeAborted if superseded, or a device error
	Resize(ctx context.Context, size common.Size) error

	// Tick runs one compositor tick: controller physics first, then the host's
	// throttled render.
	//
	// Parameters:
	//   - now: monotonic time of the tick
	//
	// Returns:
	//   - bool: true if a frame was rendered
	//   - error: an unhandled render error
	Tick(now time.Duration) (bool, error)

	// Apply installs a configuration: the controller options and the host's
	// frame-rate cap and render cycle count. The technique, MSAA and threading
	// options only take effect when a host is created.
	//
	// Parameters:
	//   - f: the configuration
	//
	// Returns:
	//   - error: error if the configuration is rejected; nothing is applied then
	Apply(f config.File) error

	// Modifiers reports the modifier keys held on the bound input source.
	Modifiers() common.ModifierKeys

	// Close ends the device and stops the host.
	Close()
}

type viewportImpl struct {
	mu    *sync.Mutex
	host  render.RenderHost
	ctrl  controller.CameraController
	cam   camera.Camera
	input InputSource

	hitTester  controller.HitTester
	ctrlOpts   []controller.CameraControllerOption
	resizeStop context.CancelFunc
}

var _ Viewport = &viewportImpl{}

// NewViewport creates a viewport. A render host is required; the camera and
// controller are created when not supplied. The controller invalidates the
// host and reads modifiers through the viewport.
//
// Parameters:
//   - options: functional options
//
// Returns:
//   - Viewport: the viewport
func NewViewport(options ...ViewportBuilderOption) Viewport {
	v := &viewportImpl{mu: &sync.Mutex{}}
	for _, option := range options {
		option(v)
	}
	if v.host == nil {
		panic("viewport: Viewport requires a render host")
	}

	if v.cam == nil {
		v.cam = v.host.Camera()
	}
	if v.cam == nil {
		v.cam = camera.NewCamera()
	}
	if v.host.Camera() != v.cam {
		v.host.SetCamera(v.cam)
	}

	if v.ctrl == nil {
		size := v.host.Size()
		opts := []controller.CameraControllerOption{
			controller.WithCamera(v.cam),
			controller.WithInvalidator(v.host),
			controller.WithModifierSource(v),
			controller.WithViewportSize(float32(size.Width), float32(size.Height)),
		}
		if v.hitTester != nil {
			opts = append(opts, controller.WithHitTester(v.hitTester))
		}
		v.ctrl = controller.NewCameraController(append(opts, v.ctrlOpts...)...)
	} else if v.ctrl.Camera() != v.cam {
		v.ctrl.SetCamera(v.cam)
	}
	return v
}

func (v *viewportImpl) Host() render.RenderHost {
	return v.host
}

func (v *viewportImpl) Controller() controller.CameraController {
	return v.ctrl
}

func (v *viewportImpl) Camera() camera.Camera {
	return v.cam
}

func (v *viewportImpl) Modifiers() common.ModifierKeys {
	v.mu.Lock()
	src := v.input
	v.mu.Unlock()
	if src == nil {
		return 0
	}
	return src.Modifiers()
}

func (v *viewportImpl) Bind(src InputSource) {
	v.mu.Lock()
	v.input = src
	v.mu.Unlock()

	point := func(x, y float32) mgl32.Vec2 { return mgl32.Vec2{x, y} }

	src.SetMouseDownCallback(func(b common.MouseButton, x, y float32) {
		v.ctrl.OnMouseDown(b, point(x, y))
	})
	src.SetMouseUpCallback(func(b common.MouseButton, x, y float32) {
		v.ctrl.OnMouseUp(b, point(x, y))
	})
	src.SetMouseMoveCallback(func(x, y float32) {
		v.ctrl.OnMouseMove(point(x, y))
	})
	src.SetDoubleClickCallback(func(b common.MouseButton, x, y float32) {
		v.ctrl.OnMouseDoubleClick(b, point(x, y))
	})
	src.SetScrollCallback(func(delta, x, y float32) {
		v.ctrl.OnMouseWheel(delta, point(x, y))
	})
	src.SetKeyDownCallback(func(k common.Key) {
		v.ctrl.OnKeyDown(k)
	})
	src.SetResizeCallback(func(width, height int) {
		ctx := v.nextResize()
		if err := v.Resize(ctx, common.Size{Width: width, Height: height}); err != nil {
			common.Logger().Warn("viewport resize failed", "width", width, "height", height, "err", err)
		}
	})
}

// nextResize cancels the context of a resize still waiting for its frame and
// returns a context for the next one.
func (v *viewportImpl) nextResize() context.Context {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.resizeStop != nil {
		v.resizeStop()
	}
	ctx, stop := context.WithCancel(context.Background())
	v.resizeStop = stop
	return ctx
}

func (v *viewportImpl) Start(size common.Size) error {
	if err := v.host.StartDevice(size); err != nil {
		return fmt.Errorf("start viewport: %w", err)
	}
	actual := v.host.Size()
	v.ctrl.SetViewportSize(float32(actual.Width), float32(actual.Height))
	return nil
}

func (v *viewportImpl) Resize(ctx context.Context, size common.Size) error {
	if err := v.host.Resize(ctx, size); err != nil {
		return err
	}
	actual := v.host.Size()
	v.ctrl.SetViewportSize(float32(actual.Width), float32(actual.Height))
	return nil
}

func (v *viewportImpl) Tick(now time.Duration) (bool, error) {
	v.ctrl.OnCompositionTargetRendering(int64(now))
	return v.host.OnCompositionRendering(now)
}

func (v *viewportImpl) Apply(f config.File) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if err := v.host.SetRenderCycles(f.Host.RenderCycles); err != nil {
		return err
	}
	if err := v.ctrl.ApplyConfig(f.Controller); err != nil {
		return err
	}
	v.host.SetMaxFPS(f.Host.MaxFPS)
	return nil
}

func (v *viewportImpl) Close() {
	v.mu.Lock()
	if v.resizeStop != nil {
		v.resizeStop()
	}
	v.mu.Unlock()
	v.host.Close()
}
