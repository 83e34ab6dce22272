package controller

import (
	"time"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/camera"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// turntableDegreesPerPixel is the inspect-mode rotation rate. Other camera
	// modes scale it by walkAroundRotationScale.
	turntableDegreesPerPixel = -0.5
	walkAroundRotationScale  = -0.2
	trackballRotationScale   = 5

	// panDistanceScale converts one pixel of pan into world units per unit of
	// camera distance.
	panDistanceScale = 0.001

	zoomBase              = 2.5
	fieldOfViewZoomScale  = 0.5
	changeLookAtAnimation = 200 * time.Millisecond
	zoomExtentsAnimation  = 300 * time.Millisecond
)

// rotate turns the camera for a drag from p0 to p1 around pivot, using the
// configured rotation mode.
func (c *controllerImpl) rotate(p0, p1 mgl32.Vec2, pivot mgl32.Vec3) {
	if !common.IsFiniteVec2(p0) || !common.IsFiniteVec2(p1) || !common.IsFiniteVec3(pivot) {
		return
	}
	if c.cfg.CameraMode != CameraModeInspect {
		pivot = c.cam.Position()
	}

	switch c.cfg.RotationMode {
	case RotationModeTrackball:
		c.rotateTrackball(p0, p1, pivot)
	case RotationModeTurnball:
		c.rotateTurnball(p1.Sub(p0), pivot)
	default:
		c.rotateTurntable(p1.Sub(p0), pivot)
	}
}

func (c *controllerImpl) rotationDegreesPerPixel() float32 {
	d := float32(turntableDegreesPerPixel)
	if c.cfg.CameraMode != CameraModeInspect {
		d *= walkAroundRotationScale
	}
	return d * c.cfg.RotationSensitivity
}

func (c *controllerImpl) rotateTurntable(delta mgl32.Vec2, pivot mgl32.Vec3) {
	right, ok := common.SafeNormalize(c.cam.LookDirection().Cross(c.cam.UpDirection()))
	if !ok {
		return
	}
	d := c.rotationDegreesPerPixel()
	q1 := common.QuatFromAxisAngleDeg(c.cfg.ModelUpDirection, d*delta.X())
	q2 := common.QuatFromAxisAngleDeg(right, d*delta.Y())
	c.applyRotation(q1.Mul(q2), pivot)
}

func (c *controllerImpl) rotateTurnball(delta mgl32.Vec2, pivot mgl32.Vec3) {
	look := c.cam.LookDirection()
	right, ok := common.SafeNormalize(look.Cross(c.cam.UpDirection()))
	if !ok {
		return
	}
	up, ok := common.SafeNormalize(right.Cross(look))
	if !ok {
		return
	}
	d := c.rotationDegreesPerPixel()
	q1 := common.QuatFromAxisAngleDeg(up, d*delta.X())
	q2 := common.QuatFromAxisAngleDeg(right, d*delta.Y())
	c.applyRotation(q1.Mul(q2), pivot)
}

func (c *controllerImpl) rotateTrackball(p0, p1 mgl32.Vec2, pivot mgl32.Vec3) {
	w, h := c.viewport.X(), c.viewport.Y()
	if w <= 0 || h <= 0 {
		return
	}
	v0 := projectToTrackball(p0, w, h)
	v1 := projectToTrackball(p1, w, h)
	axis := v1.Cross(v0)
	if axis.Len() < common.Epsilon {
		return
	}
	angle := mgl32.RadToDeg(math32.Acos(common.Clamp(v0.Dot(v1), -1, 1)))

	look, ok := common.SafeNormalize(c.cam.LookDirection())
	if !ok {
		return
	}
	right, ok := common.SafeNormalize(look.Cross(c.cam.UpDirection()))
	if !ok {
		return
	}
	up := right.Cross(look)

	// camera space to world space: x right, y up, z toward the viewer
	worldAxis := right.Mul(axis.X()).Add(up.Mul(axis.Y())).Sub(look.Mul(axis.Z()))
	q := common.QuatFromAxisAngleDeg(worldAxis, -angle*c.cfg.RotationSensitivity*trackballRotationScale)
	c.applyRotation(q, pivot)
}

// projectToTrackball maps a screen point onto the unit hemisphere facing the viewer.
func projectToTrackball(p mgl32.Vec2, w, h float32) mgl32.Vec3 {
	x := p.X()/(w/2) - 1
	y := 1 - p.Y()/(h/2)
	z2 := 1 - x*x - y*y
	var z float32
	if z2 > 0 {
		z = math32.Sqrt(z2)
	}
	v, ok := common.SafeNormalize(mgl32.Vec3{x, y, z})
	if !ok {
		return mgl32.Vec3{0, 0, 1}
	}
	return v
}

// applyRotation rotates the camera frame by q around pivot. The position only
// moves in inspect mode.
func (c *controllerImpl) applyRotation(q mgl32.Quat, pivot mgl32.Vec3) {
	s := c.cam.Setting()
	target := s.Target()
	newUp := q.Rotate(s.UpDirection)
	newTarget := common.RotateAround(q, target, pivot)
	newPos := s.Position
	if c.cfg.CameraMode == CameraModeInspect {
		newPos = common.RotateAround(q, s.Position, pivot)
	}
	newLook := newTarget.Sub(newPos)
	if c.cfg.CameraMode != CameraModeInspect {
		newLook = q.Rotate(s.LookDirection)
	}

	s.Position = newPos
	s.LookDirection = newLook
	s.UpDirection = newUp
	c.cam.ApplySetting(s)
}

// findPanVector converts a screen-space pan into a world-space camera translation.
func (c *controllerImpl) findPanVector(dx, dy float32) (mgl32.Vec3, bool) {
	axis1, axis2, f, ok := c.panAxes()
	if !ok {
		return mgl32.Vec3{}, false
	}
	return axis1.Mul(-f * dx).Add(axis2.Mul(f * dy)), true
}

// screenFromPanVector is the inverse of findPanVector for vectors in the view plane.
func (c *controllerImpl) screenFromPanVector(v mgl32.Vec3) (mgl32.Vec2, bool) {
	axis1, axis2, f, ok := c.panAxes()
	if !ok || f < common.Epsilon {
		return mgl32.Vec2{}, false
	}
	return mgl32.Vec2{-v.Dot(axis1) / f, v.Dot(axis2) / f}, true
}

func (c *controllerImpl) panAxes() (mgl32.Vec3, mgl32.Vec3, float32, bool) {
	look := c.cam.LookDirection()
	axis1, ok := common.SafeNormalize(look.Cross(c.cam.UpDirection()))
	if !ok {
		return mgl32.Vec3{}, mgl32.Vec3{}, 0, false
	}
	axis2, ok := common.SafeNormalize(axis1.Cross(look))
	if !ok {
		return mgl32.Vec3{}, mgl32.Vec3{}, 0, false
	}
	l := look.Len()
	if c.cam.Projection() == camera.ProjectionOrthographic {
		l = c.cam.Width()
	}
	return axis1, axis2, l * panDistanceScale, true
}

func (c *controllerImpl) panScreen(delta mgl32.Vec2) {
	if v, ok := c.findPanVector(delta.X(), delta.Y()); ok {
		c.pan(v)
	}
}

// pan translates the camera without changing its orientation.
func (c *controllerImpl) pan(v mgl32.Vec3) {
	if !common.IsFiniteVec3(v) || c.cfg.CameraMode == CameraModeFixedPosition {
		return
	}
	c.cam.SetPosition(c.cam.Position().Add(v))
}

// move translates the camera along its own axes: x right, y up, z forward.
func (c *controllerImpl) move(delta mgl32.Vec3) {
	if !common.IsFiniteVec3(delta) || c.cfg.CameraMode == CameraModeFixedPosition {
		return
	}
	look := c.cam.LookDirection()
	z, ok := common.SafeNormalize(look)
	if !ok {
		return
	}
	x, ok := common.SafeNormalize(look.Cross(c.cam.UpDirection()))
	if !ok {
		return
	}
	y := x.Cross(z)
	d := x.Mul(delta.X()).Add(y.Mul(delta.Y())).Add(z.Mul(delta.Z()))
	c.cam.SetPosition(c.cam.Position().Add(d))
}

// zoom scales the camera distance to around by 2.5^delta, clamped to the zoom
// distance limits. Fixed-position cameras change their field of view instead.
func (c *controllerImpl) zoom(delta float32, around mgl32.Vec3) {
	if !common.IsFinite(delta) || delta == 0 || !common.IsFiniteVec3(around) {
		return
	}
	if c.cfg.CameraMode == CameraModeFixedPosition {
		c.changeFieldOfView(delta)
		return
	}

	f := math32.Pow(zoomBase, delta)
	if c.cam.Projection() == camera.ProjectionOrthographic {
		c.cam.SetWidth(common.Clamp(c.cam.Width()*f, c.cfg.ZoomDistanceLimitNear, c.cfg.ZoomDistanceLimitFar))
		return
	}

	s := c.cam.Setting()
	dist := s.LookDirection.Len()
	if dist < common.Epsilon {
		return
	}
	switch next := dist * f; {
	case next < c.cfg.ZoomDistanceLimitNear:
		f = c.cfg.ZoomDistanceLimitNear / dist
	case next > c.cfg.ZoomDistanceLimitFar:
		f = c.cfg.ZoomDistanceLimitFar / dist
	}

	s.Position = around.Add(s.Position.Sub(around).Mul(f))
	s.LookDirection = s.LookDirection.Mul(f)
	c.cam.ApplySetting(s)
}

func (c *controllerImpl) changeFieldOfView(delta float32) {
	if !c.cfg.IsChangeFieldOfViewEnabled || c.cam.Projection() != camera.ProjectionPerspective {
		return
	}
	fov := c.cam.FieldOfView() * (1 + delta*fieldOfViewZoomScale)
	c.cam.SetFieldOfView(common.Clamp(fov, c.cfg.MinimumFieldOfView, c.cfg.MaximumFieldOfView))
}

// zoomToRectangle frames the screen rectangle spanned by p0 and p1.
func (c *controllerImpl) zoomToRectangle(p0, p1 mgl32.Vec2) {
	lo := mgl32.Vec2{math32.Min(p0.X(), p1.X()), math32.Min(p0.Y(), p1.Y())}
	hi := mgl32.Vec2{math32.Max(p0.X(), p1.X()), math32.Max(p0.Y(), p1.Y())}
	w, h := hi.X()-lo.X(), hi.Y()-lo.Y()
	if w < 1 || h < 1 || c.viewport.X() <= 0 || c.viewport.Y() <= 0 {
		return
	}

	origin, dir, ok := c.cam.Point2DToRay(lo.Add(hi).Mul(0.5), c.viewport)
	if !ok {
		return
	}
	s := c.cam.Setting()
	n, ok := common.SafeNormalize(s.LookDirection)
	if !ok {
		return
	}
	denom := dir.Dot(n)
	if math32.Abs(denom) < common.Epsilon {
		return
	}
	t := s.Target().Sub(origin).Dot(n) / denom
	newTarget := origin.Add(dir.Mul(t))
	scale := math32.Max(w/c.viewport.X(), h/c.viewport.Y())

	if s.Projection == camera.ProjectionOrthographic {
		s.Width *= scale
	} else {
		dist := common.Clamp(s.LookDirection.Len()*scale, c.cfg.ZoomDistanceLimitNear, c.cfg.ZoomDistanceLimitFar)
		s.LookDirection = n.Mul(dist)
	}
	s.Position = newTarget.Sub(s.LookDirection)
	c.cam.ApplySetting(s)
}

func (c *controllerImpl) changeLookAt(target mgl32.Vec3) {
	if c.cam == nil || !common.IsFiniteVec3(target) {
		return
	}
	c.pushCameraSetting()
	c.stopAll()
	look := c.cam.LookDirection()
	c.cam.AnimateTo(target.Sub(look), look, c.cam.UpDirection(), changeLookAtAnimation)
	c.invalidate()
}

func (c *controllerImpl) zoomExtents(center mgl32.Vec3, radius float32) {
	if c.cam == nil || !common.IsFiniteVec3(center) || !common.IsFinite(radius) || radius <= 0 {
		return
	}
	c.pushCameraSetting()
	c.stopAll()

	dir, ok := common.SafeNormalize(c.cam.LookDirection())
	if !ok {
		return
	}
	if c.cam.Projection() == camera.ProjectionOrthographic {
		c.cam.SetWidth(radius * 2)
		look := dir.Mul(c.cam.LookDirection().Len())
		c.cam.AnimateTo(center.Sub(look), look, c.cam.UpDirection(), zoomExtentsAnimation)
	} else {
		half := mgl32.DegToRad(c.cam.FieldOfView() / 2)
		dist := radius / math32.Sin(half)
		look := dir.Mul(dist)
		c.cam.AnimateTo(center.Sub(look), look, c.cam.UpDirection(), zoomExtentsAnimation)
	}
	c.invalidate()
}
