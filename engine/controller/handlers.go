package controller

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// flickSpeedScale converts a drag distance over its duration in milliseconds into
// an inertial speed.
const flickSpeedScale = 40

// gestureHandler is one mouse or touch gesture from press to release.
type gestureHandler interface {
	Started(p mgl32.Vec2)
	Delta(p mgl32.Vec2)
	Completed(p mgl32.Vec2)
}

// gestureState tracks the points and times shared by every gesture.
type gestureState struct {
	c         *controllerImpl
	downPoint mgl32.Vec2
	lastPoint mgl32.Vec2
	downTime  time.Time
	lastTime  time.Time
}

func (g *gestureState) begin(p mgl32.Vec2) {
	now := g.c.clock()
	g.downPoint, g.lastPoint = p, p
	g.downTime, g.lastTime = now, now
}

func (g *gestureState) advance(p mgl32.Vec2) {
	g.lastPoint = p
	g.lastTime = g.c.clock()
}

// flick returns the release speed of the gesture. It reports false when inertia
// is off or the pointer rested longer than the spin release time before release.
func (g *gestureState) flick() (mgl32.Vec2, bool) {
	if !g.c.cfg.IsInertiaEnabled {
		return mgl32.Vec2{}, false
	}
	now := g.c.clock()
	if now.Sub(g.lastTime) > time.Duration(g.c.cfg.SpinReleaseTime)*time.Millisecond {
		return mgl32.Vec2{}, false
	}
	elapsed := float32(now.Sub(g.downTime).Milliseconds())
	if elapsed <= 0 {
		return mgl32.Vec2{}, false
	}
	delta := g.lastPoint.Sub(g.downPoint)
	return delta.Mul(flickSpeedScale / elapsed), true
}

// rotateHandler rotates the camera while dragging and spins it on a flick.
type rotateHandler struct {
	gestureState
	pivot mgl32.Vec3
}

var _ gestureHandler = &rotateHandler{}

func newRotateHandler(c *controllerImpl) *rotateHandler {
	return &rotateHandler{gestureState: gestureState{c: c}}
}

func (h *rotateHandler) Started(p mgl32.Vec2) {
	h.begin(p)
	h.c.pushCameraSetting()
	h.c.stopSpin()
	h.c.rotationSpeed = mgl32.Vec2{}
	h.pivot = h.c.rotationPivotAt(p)
}

func (h *rotateHandler) Delta(p mgl32.Vec2) {
	h.c.rotate(h.lastPoint, p, h.pivot)
	h.advance(p)
	h.c.invalidate()
}

func (h *rotateHandler) Completed(p mgl32.Vec2) {
	if speed, ok := h.flick(); ok {
		h.c.startSpin(speed, h.downPoint, h.pivot)
	}
}

// rotationPivotAt picks the rotation point for a gesture starting at p.
func (c *controllerImpl) rotationPivotAt(p mgl32.Vec2) mgl32.Vec3 {
	switch {
	case c.cfg.CameraMode != CameraModeInspect:
		return c.cam.Position()
	case c.cfg.FixedRotationPointEnabled:
		return c.cfg.FixedRotationPoint
	case c.cfg.RotateAroundMouseDownPoint:
		return c.hitOrTarget(p)
	}
	return c.cam.Target()
}

// panHandler keeps the grabbed point under the cursor while dragging.
type panHandler struct {
	gestureState
	anchor mgl32.Vec3
}

var _ gestureHandler = &panHandler{}

func newPanHandler(c *controllerImpl) *panHandler {
	return &panHandler{gestureState: gestureState{c: c}}
}

func (h *panHandler) Started(p mgl32.Vec2) {
	h.begin(p)
	h.c.pushCameraSetting()
	h.c.panSpeed = mgl32.Vec2{}
	h.anchor = h.c.hitOrTarget(p)
}

func (h *panHandler) Delta(p mgl32.Vec2) {
	if v, ok := h.c.unprojectPan(h.lastPoint, p, h.anchor); ok {
		h.c.pan(v)
	} else {
		h.c.panScreen(p.Sub(h.lastPoint))
	}
	h.advance(p)
	h.c.invalidate()
}

func (h *panHandler) Completed(p mgl32.Vec2) {
	if speed, ok := h.flick(); ok && h.c.canPan() {
		h.c.panSpeed = h.c.panSpeed.Add(speed)
		h.c.invalidate()
	}
}

// unprojectPan returns the camera translation that keeps the point on the plane
// through anchor under the cursor while it moves from p0 to p1.
func (c *controllerImpl) unprojectPan(p0, p1 mgl32.Vec2, anchor mgl32.Vec3) (mgl32.Vec3, bool) {
	if c.viewport.X() <= 0 || c.viewport.Y() <= 0 {
		return mgl32.Vec3{}, false
	}
	n := c.cam.LookDirection()
	h0, ok := c.intersectViewPlane(p0, anchor, n)
	if !ok {
		return mgl32.Vec3{}, false
	}
	h1, ok := c.intersectViewPlane(p1, anchor, n)
	if !ok {
		return mgl32.Vec3{}, false
	}
	return h0.Sub(h1), true
}

func (c *controllerImpl) intersectViewPlane(p mgl32.Vec2, point, normal mgl32.Vec3) (mgl32.Vec3, bool) {
	origin, dir, ok := c.cam.Point2DToRay(p, c.viewport)
	if !ok {
		return mgl32.Vec3{}, false
	}
	denom := dir.Dot(normal)
	if denom > -1e-6 && denom < 1e-6 {
		return mgl32.Vec3{}, false
	}
	t := point.Sub(origin).Dot(normal) / denom
	return origin.Add(dir.Mul(t)), true
}

// zoomHandler zooms while dragging vertically.
type zoomHandler struct {
	gestureState
	origin mgl32.Vec3
}

var _ gestureHandler = &zoomHandler{}

// zoomDragScale converts vertical drag pixels into zoom delta.
const zoomDragScale = 0.01

func newZoomHandler(c *controllerImpl) *zoomHandler {
	return &zoomHandler{gestureState: gestureState{c: c}}
}

func (h *zoomHandler) Started(p mgl32.Vec2) {
	h.begin(p)
	h.c.pushCameraSetting()
	h.c.zoomSpeed = 0
	h.origin = h.c.cam.Target()
	if h.c.cfg.ZoomAroundMouseDownPoint {
		h.origin = h.c.hitOrTarget(p)
	}
}

func (h *zoomHandler) Delta(p mgl32.Vec2) {
	delta := (p.Y() - h.lastPoint.Y()) * zoomDragScale * h.c.cfg.ZoomSensitivity
	h.c.zoom(delta, h.origin)
	h.advance(p)
	h.c.invalidate()
}

func (h *zoomHandler) Completed(p mgl32.Vec2) {
	if speed, ok := h.flick(); ok {
		h.c.zoomPoint3D = h.origin
		h.c.zoomSpeed += speed.Y() * zoomDragScale * h.c.cfg.ZoomSensitivity
		h.c.invalidate()
	}
}

// zoomRectangleHandler tracks a rubber-band rectangle and frames it on release.
type zoomRectangleHandler struct {
	gestureState
	active bool
}

var _ gestureHandler = &zoomRectangleHandler{}

func newZoomRectangleHandler(c *controllerImpl) *zoomRectangleHandler {
	return &zoomRectangleHandler{gestureState: gestureState{c: c}}
}

func (h *zoomRectangleHandler) Started(p mgl32.Vec2) {
	h.begin(p)
	h.active = true
}

func (h *zoomRectangleHandler) Delta(p mgl32.Vec2) {
	h.advance(p)
	h.c.invalidate()
}

func (h *zoomRectangleHandler) Completed(p mgl32.Vec2) {
	h.active = false
	h.c.pushCameraSetting()
	h.c.zoomToRectangle(h.downPoint, p)
	h.c.invalidate()
}
