package controller

import (
	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// wheelDeltaPerNotch is the wheel delta of one notch on a standard mouse.
	wheelDeltaPerNotch = 120
	wheelZoomScale     = 0.001

	keyRotateStep   = 1
	keyPanStep      = 5
	keyZoomStep     = 0.1
	keyMoveStep     = 0.1
	keyControlScale = 0.25
)

func (c *controllerImpl) OnMouseDown(button common.MouseButton, p mgl32.Vec2) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cam == nil || c.mouseHandler != nil || !common.IsFiniteVec2(p) {
		return
	}
	h := c.mouseHandlerFor(button, c.currentModifiers())
	if h == nil {
		return
	}
	c.mouseHandler = h
	c.mouseButton = button
	h.Started(p)
}

// mouseHandlerFor maps a button and modifier combination to a gesture. The
// rotate button is right unless RotateOnLeft is set; middle always pans.
func (c *controllerImpl) mouseHandlerFor(button common.MouseButton, mods common.ModifierKeys) gestureHandler {
	rotateButton := common.MouseButtonRight
	if c.cfg.RotateOnLeft {
		rotateButton = common.MouseButtonLeft
	}

	ctrl, shift := mods.Has(common.ModControl), mods.Has(common.ModShift)
	switch {
	case button == common.MouseButtonMiddle:
		if c.canPan() {
			return newPanHandler(c)
		}
	case button != rotateButton:
	case ctrl && shift:
		if c.cfg.IsZoomEnabled {
			c.zoomRect = newZoomRectangleHandler(c)
			return c.zoomRect
		}
	case ctrl:
		if c.cfg.IsZoomEnabled {
			return newZoomHandler(c)
		}
	case shift:
		if c.canPan() {
			return newPanHandler(c)
		}
	default:
		if c.cfg.IsRotationEnabled {
			return newRotateHandler(c)
		}
	}
	return nil
}

func (c *controllerImpl) OnMouseMove(p mgl32.Vec2) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mouseHandler == nil || c.cam == nil || !common.IsFiniteVec2(p) {
		return
	}
	c.mouseHandler.Delta(p)
}

func (c *controllerImpl) OnMouseUp(button common.MouseButton, p mgl32.Vec2) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mouseHandler == nil || button != c.mouseButton {
		return
	}
	h := c.mouseHandler
	c.mouseHandler = nil
	if c.cam != nil {
		h.Completed(p)
	}
}

func (c *controllerImpl) OnMouseWheel(delta float32, p mgl32.Vec2) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cam == nil || !c.cfg.IsZoomEnabled || !common.IsFinite(delta) {
		return
	}
	origin := c.cam.Target()
	if c.cfg.ZoomAroundMouseDownPoint && common.IsFiniteVec2(p) {
		origin = c.hitOrTarget(p)
	}
	c.addZoomForceAt(-delta*wheelDeltaPerNotch*wheelZoomScale*c.cfg.ZoomSensitivity, origin)
}

func (c *controllerImpl) OnMouseDoubleClick(button common.MouseButton, p mgl32.Vec2) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cam == nil || c.hitTester == nil || button != common.MouseButtonLeft {
		return
	}
	if hit, ok := c.hitTester.HitTest(p); ok {
		c.changeLookAt(hit)
	}
}

func (c *controllerImpl) OnKeyDown(key common.Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	action, ok := c.cfg.KeyBindings[key]
	if !ok || action == KeyActionNone {
		return false
	}

	mods := c.currentModifiers()
	f := float32(1)
	if mods.Has(common.ModControl) {
		f = keyControlScale
	}
	shift := mods.Has(common.ModShift)
	cfg := &c.cfg

	switch action {
	case KeyActionRotateLeft:
		if shift {
			c.addPanForce(-keyPanStep*f*cfg.LeftRightPanSensitivity, 0)
		} else {
			c.addRotateForce(-keyRotateStep*f*cfg.LeftRightRotationSensitivity, 0)
		}
	case KeyActionRotateRight:
		if shift {
			c.addPanForce(keyPanStep*f*cfg.LeftRightPanSensitivity, 0)
		} else {
			c.addRotateForce(keyRotateStep*f*cfg.LeftRightRotationSensitivity, 0)
		}
	case KeyActionRotateUp:
		if shift {
			c.addPanForce(0, -keyPanStep*f*cfg.UpDownPanSensitivity)
		} else {
			c.addRotateForce(0, -keyRotateStep*f*cfg.UpDownRotationSensitivity)
		}
	case KeyActionRotateDown:
		if shift {
			c.addPanForce(0, keyPanStep*f*cfg.UpDownPanSensitivity)
		} else {
			c.addRotateForce(0, keyRotateStep*f*cfg.UpDownRotationSensitivity)
		}
	case KeyActionZoomIn:
		if c.cam != nil {
			c.addZoomForceAt(-keyZoomStep*cfg.PageUpDownZoomSensitivity, c.cam.Target())
		}
	case KeyActionZoomOut:
		if c.cam != nil {
			c.addZoomForceAt(keyZoomStep*cfg.PageUpDownZoomSensitivity, c.cam.Target())
		}
	case KeyActionUndo:
		c.restoreCameraSetting()
	case KeyActionMoveForward:
		c.addMoveForce(0, 0, keyMoveStep*cfg.MoveSensitivity)
	case KeyActionMoveBack:
		c.addMoveForce(0, 0, -keyMoveStep*cfg.MoveSensitivity)
	case KeyActionMoveLeft:
		c.addMoveForce(-keyMoveStep*cfg.LeftRightPanSensitivity, 0, 0)
	case KeyActionMoveRight:
		c.addMoveForce(keyMoveStep*cfg.LeftRightPanSensitivity, 0, 0)
	case KeyActionMoveUp:
		c.addMoveForce(0, keyMoveStep*cfg.UpDownPanSensitivity, 0)
	case KeyActionMoveDown:
		c.addMoveForce(0, -keyMoveStep*cfg.UpDownPanSensitivity, 0)
	case KeyActionReset:
		c.resetCamera()
	default:
		return false
	}
	return true
}

// --- touch ---

func (c *controllerImpl) OnManipulationStarted(e ManipulationEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endTouch(e.Position)
}

// OnManipulationDelta routes a touch frame by contact count: one finger rotates,
// two pinch-zoom, three pan. A frame that changes the count only hands over
// between gestures and moves nothing.
func (c *controllerImpl) OnManipulationDelta(e ManipulationEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cam == nil || !common.IsFiniteVec2(e.Position) || !common.IsFinite(e.Scale) {
		return
	}

	if e.Manipulators != c.manipulatorCount {
		if c.touchHandler != nil && c.touchZoom == nil {
			c.touchHandler.Completed(e.Position)
		}
		c.touchHandler = nil
		c.touchZoom = nil
		c.manipulatorCount = e.Manipulators
		c.prevScale = 1
		c.pinchInitialized = false

		switch e.Manipulators {
		case 1:
			if c.cfg.EnableTouchRotate && c.cfg.IsRotationEnabled {
				c.touchHandler = newRotateHandler(c)
			}
		case 2:
			if c.cfg.EnablePinchZoom && c.cfg.IsZoomEnabled {
				c.touchZoom = newZoomHandler(c)
				c.touchHandler = c.touchZoom
			}
		case 3:
			if c.cfg.EnableThreeFingerPan && c.canPan() {
				c.touchHandler = newPanHandler(c)
			}
		}
		if c.touchHandler != nil {
			c.touchHandler.Started(e.Position)
		}
		return
	}

	switch {
	case c.touchZoom != nil:
		if !c.pinchInitialized {
			c.prevScale = e.Scale
			c.pinchInitialized = true
			return
		}
		delta := c.prevScale - e.Scale
		c.prevScale = e.Scale
		c.touchZoom.advance(e.Position)
		c.zoom(delta*c.cfg.ZoomSensitivity, c.touchZoom.origin)
		c.invalidate()
	case c.touchHandler != nil:
		c.touchHandler.Delta(e.Position)
	}
}

func (c *controllerImpl) OnManipulationCompleted(e ManipulationEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endTouch(e.Position)
}

func (c *controllerImpl) endTouch(p mgl32.Vec2) {
	if c.touchHandler != nil && c.cam != nil && c.touchZoom == nil {
		c.touchHandler.Completed(p)
	}
	c.touchHandler = nil
	c.touchZoom = nil
	c.manipulatorCount = 0
	c.prevScale = 1
	c.pinchInitialized = false
}
