package controller

import (
	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	rotationForceScale = 40
	panForceScale      = 40
	moveForceScale     = 40
	zoomForceScale     = 8

	// Squared speeds below these are snapped to zero.
	rotationRestThreshold = 0.1
	spinRestThreshold     = 0.1
	panRestThreshold      = 0.0001
	moveRestThreshold     = 0.0001
	zoomRestThreshold     = 0.001

	// decayReferenceStep is the frame time the inertia factor is expressed for.
	decayReferenceStep = 0.02
	defaultFrameTime   = 0.016
)

// decayFactor is the per-frame speed multiplier for a frame of dt seconds.
//
// Parameters:
//   - inertia: the configured inertia factor in (0, 1)
//   - enabled: whether inertia is on
//   - dt: frame time in seconds
//
// Returns:
//   - float32: 0 without inertia, otherwise inertia^(dt/0.02) clamped to [0.1, 1]
func decayFactor(inertia float32, enabled bool, dt float32) float32 {
	if !enabled {
		return 0
	}
	return common.Clamp(math32.Pow(inertia, dt/decayReferenceStep), 0.1, 1)
}

func (c *controllerImpl) OnCompositionTargetRendering(ticks int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cam == nil {
		c.lastTick = 0
		return false
	}

	if c.lastTick == 0 {
		c.lastTick = ticks
		return false
	}

	dt := float32(float64(ticks-c.lastTick) / c.tickFrequency)
	if dt <= 0 {
		dt = defaultFrameTime
	}
	c.lastTick = ticks

	moved := c.onTimeStep(dt)
	animating := c.cam.OnTimeStep()
	if !moved && !animating {
		c.lastTick = 0
		return false
	}
	c.invalidate()
	return true
}

// onTimeStep applies every non-resting axis for dt seconds and decays it.
func (c *controllerImpl) onTimeStep(dt float32) bool {
	factor := decayFactor(c.cfg.InertiaFactor, c.cfg.IsInertiaEnabled, dt)
	active := false

	if c.rotationSpeed.LenSqr() > rotationRestThreshold {
		active = true
		c.rotate(c.rotationPosition, c.rotationPosition.Add(c.rotationSpeed.Mul(dt)), c.rotationPoint3D)
		c.rotationSpeed = c.rotationSpeed.Mul(factor)
		c.stopSpin()
	} else {
		c.rotationSpeed = mgl32.Vec2{}
	}

	if c.isSpinning && c.spinningSpeed.LenSqr() > spinRestThreshold {
		active = true
		c.rotate(c.spinningPosition, c.spinningPosition.Add(c.spinningSpeed.Mul(dt)), c.spinningPoint3D)
		if !c.cfg.InfiniteSpin {
			c.spinningSpeed = c.spinningSpeed.Mul(factor)
		}
	} else {
		c.stopSpin()
	}

	if c.panSpeed.LenSqr() > panRestThreshold {
		active = true
		c.panScreen(c.panSpeed.Mul(dt))
		c.panSpeed = c.panSpeed.Mul(factor)
	} else {
		c.panSpeed = mgl32.Vec2{}
	}

	if c.moveSpeed.LenSqr() > moveRestThreshold {
		active = true
		c.move(c.moveSpeed.Mul(dt))
		c.moveSpeed = c.moveSpeed.Mul(factor)
	} else {
		c.moveSpeed = mgl32.Vec3{}
	}

	if math32.Abs(c.zoomSpeed) > zoomRestThreshold {
		active = true
		c.zoom(c.zoomSpeed*dt, c.zoomPoint3D)
		c.zoomSpeed *= factor
	} else {
		c.zoomSpeed = 0
	}

	return active
}
