package camera

import (
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/charmbracelet/harmonica"
	"github.com/go-gl/mathgl/mgl32"
)

// animationFPS is the step rate assumed by the AnimateTo spring; OnTimeStep advances one step per call.
const animationFPS = 60

type cameraImpl struct {
	mu *sync.Mutex

	position      mgl32.Vec3
	lookDirection mgl32.Vec3
	upDirection   mgl32.Vec3

	projection  ProjectionType
	fieldOfView float32
	width       float32
	near        float32
	far         float32

	defaults  CameraSetting
	animation *animation
}

// animation drives a 0..1 progress value with a critically damped spring and
// interpolates between two camera snapshots.
type animation struct {
	from, to CameraSetting
	spring   harmonica.Spring
	progress float64
	velocity float64
}

// Camera defines the interface for a 3D camera.
// The camera stores position, look direction and up direction; the length of the look
// direction is the distance to the target. Position, look and up fully determine the
// view matrix, and look and up are never allowed to become parallel.
type Camera interface {
	// Position returns the camera's world-space position.
	//
	// Returns:
	//   - mgl32.Vec3: the camera position
	Position() mgl32.Vec3

	// LookDirection returns the vector from the position to the target.
	//
	// Returns:
	//   - mgl32.Vec3: the look direction (not normalized)
	LookDirection() mgl32.Vec3

	// UpDirection returns the camera's up vector.
	//
	// Returns:
	//   - mgl32.Vec3: the up direction
	UpDirection() mgl32.Vec3

	// Target returns Position + LookDirection.
	//
	// Returns:
	//   - mgl32.Vec3: the look-at point
	Target() mgl32.Vec3

	// SetPosition moves the camera. Non-finite positions are ignored.
	//
	// Parameters:
	//   - p: the new position
	SetPosition(p mgl32.Vec3)

	// SetLookDirection sets the look direction. Zero-length, non-finite, or
	// up-parallel directions are ignored.
	//
	// Parameters:
	//   - d: the new look direction
	SetLookDirection(d mgl32.Vec3)

	// SetUpDirection sets the up vector. Zero-length, non-finite, or
	// look-parallel directions are ignored.
	//
	// Parameters:
	//   - u: the new up direction
	SetUpDirection(u mgl32.Vec3)

	// Projection returns the projection kind.
	//
	// Returns:
	//   - ProjectionType: perspective or orthographic
	Projection() ProjectionType

	// FieldOfView returns the vertical field of view in degrees.
	//
	// Returns:
	//   - float32: field of view in degrees
	FieldOfView() float32

	// SetFieldOfView sets the vertical field of view in degrees.
	//
	// Parameters:
	//   - fov: field of view in degrees, must be in (0, 180)
	SetFieldOfView(fov float32)

	// Width returns the orthographic view width in world units.
	//
	// Returns:
	//   - float32: the view width
	Width() float32

	// SetWidth sets the orthographic view width. Non-positive widths are ignored.
	//
	// Parameters:
	//   - w: the view width in world units
	SetWidth(w float32)

	// NearPlaneDistance returns the near clipping plane distance.
	//
	// Returns:
	//   - float32: near plane distance
	NearPlaneDistance() float32

	// FarPlaneDistance returns the far clipping plane distance.
	//
	// Returns:
	//   - float32: far plane distance
	FarPlaneDistance() float32

	// SetClipPlanes sets near and far plane distances. Ignored unless 0 < near < far.
	//
	// Parameters:
	//   - near: near plane distance
	//   - far: far plane distance
	SetClipPlanes(near, far float32)

	// CreateViewMatrix builds the right-handed look-at view matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the view matrix
	CreateViewMatrix() mgl32.Mat4

	// CreateProjectionMatrix builds the projection matrix for the given aspect ratio.
	//
	// Parameters:
	//   - aspect: viewport width / height
	//
	// Returns:
	//   - mgl32.Mat4: the projection matrix
	CreateProjectionMatrix(aspect float32) mgl32.Mat4

	// Point2DToRay unprojects a screen point into a world-space ray.
	//
	// Parameters:
	//   - p: the screen point in pixels, origin top-left
	//   - viewport: the viewport size in pixels
	//
	// Returns:
	//   - origin: the ray origin on the near plane
	//   - direction: the normalized ray direction
	//   - ok: false if the viewport is empty or the matrices are singular
	Point2DToRay(p, viewport mgl32.Vec2) (origin, direction mgl32.Vec3, ok bool)

	// Setting returns a snapshot of the camera.
	//
	// Returns:
	//   - CameraSetting: the snapshot
	Setting() CameraSetting

	// ApplySetting replaces the camera state with s. Invalid snapshots are rejected.
	// Any running animation is stopped.
	//
	// Parameters:
	//   - s: the snapshot to apply
	//
	// Returns:
	//   - bool: true if the snapshot was applied
	ApplySetting(s CameraSetting) bool

	// Reset restores the state the camera was constructed with.
	Reset()

	// AnimateTo starts a spring animation toward the given pose. A new call replaces
	// any running animation. A non-positive duration applies the pose immediately.
	//
	// Parameters:
	//   - position: the target position
	//   - look: the target look direction
	//   - up: the target up direction
	//   - duration: the approximate settle time
	AnimateTo(position, look, up mgl32.Vec3, duration time.Duration)

	// StopAnimation cancels a running AnimateTo, leaving the camera where it is.
	StopAnimation()

	// IsAnimating reports whether an AnimateTo is in flight.
	//
	// Returns:
	//   - bool: true while animating
	IsAnimating() bool

	// OnTimeStep advances a running animation by one step.
	//
	// Returns:
	//   - bool: true if the camera moved during this step
	OnTimeStep() bool
}

var _ Camera = &cameraImpl{}

// NewCamera creates a perspective camera at (0, 0, 10) looking at the origin with +Y up,
// a 45 degree field of view and clip planes at 0.1 and 1000.
// The state after options are applied becomes the Reset state.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:            &sync.Mutex{},
		position:      mgl32.Vec3{0, 0, 10},
		lookDirection: mgl32.Vec3{0, 0, -10},
		upDirection:   mgl32.Vec3{0, 1, 0},
		projection:    ProjectionPerspective,
		fieldOfView:   45,
		width:         10,
		near:          0.1,
		far:           1000,
	}
	for _, option := range options {
		option(c)
	}
	if !c.settingLocked().Valid() {
		c.lookDirection = mgl32.Vec3{0, 0, -10}
		c.upDirection = mgl32.Vec3{0, 1, 0}
	}
	c.defaults = c.settingLocked()
	return c
}

func (c *cameraImpl) Position() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) LookDirection() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookDirection
}

func (c *cameraImpl) UpDirection() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.upDirection
}

func (c *cameraImpl) Target() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position.Add(c.lookDirection)
}

func (c *cameraImpl) SetPosition(p mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if common.IsFiniteVec3(p) {
		c.position = p
	}
}

func (c *cameraImpl) SetLookDirection(d mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !common.IsFiniteVec3(d) || d.Len() < common.Epsilon || common.IsParallel(d, c.upDirection) {
		return
	}
	c.lookDirection = d
}

func (c *cameraImpl) SetUpDirection(u mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !common.IsFiniteVec3(u) || u.Len() < common.Epsilon || common.IsParallel(c.lookDirection, u) {
		return
	}
	c.upDirection = u
}

func (c *cameraImpl) Projection() ProjectionType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projection
}

func (c *cameraImpl) FieldOfView() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fieldOfView
}

func (c *cameraImpl) SetFieldOfView(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if common.IsFinite(fov) && fov > 0 && fov < 180 {
		c.fieldOfView = fov
	}
}

func (c *cameraImpl) Width() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width
}

func (c *cameraImpl) SetWidth(w float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if common.IsFinite(w) && w > 0 {
		c.width = w
	}
}

func (c *cameraImpl) NearPlaneDistance() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) FarPlaneDistance() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) SetClipPlanes(near, far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if near > 0 && near < far {
		c.near = near
		c.far = far
	}
}

func (c *cameraImpl) CreateViewMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrixLocked()
}

func (c *cameraImpl) CreateProjectionMatrix(aspect float32) mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrixLocked(aspect)
}

func (c *cameraImpl) Point2DToRay(p, viewport mgl32.Vec2) (mgl32.Vec3, mgl32.Vec3, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if viewport[0] <= 0 || viewport[1] <= 0 || !common.IsFiniteVec2(p) {
		return mgl32.Vec3{}, mgl32.Vec3{}, false
	}
	viewProj := c.projectionMatrixLocked(viewport[0] / viewport[1]).Mul4(c.viewMatrixLocked())
	if viewProj.Det() == 0 {
		return mgl32.Vec3{}, mgl32.Vec3{}, false
	}
	inv := viewProj.Inv()

	x := 2*p[0]/viewport[0] - 1
	y := 1 - 2*p[1]/viewport[1]
	nearH := inv.Mul4x1(mgl32.Vec4{x, y, -1, 1})
	farH := inv.Mul4x1(mgl32.Vec4{x, y, 1, 1})
	if nearH[3] == 0 || farH[3] == 0 {
		return mgl32.Vec3{}, mgl32.Vec3{}, false
	}
	near := nearH.Vec3().Mul(1 / nearH[3])
	far := farH.Vec3().Mul(1 / farH[3])
	dir, ok := common.SafeNormalize(far.Sub(near))
	if !ok {
		return mgl32.Vec3{}, mgl32.Vec3{}, false
	}
	return near, dir, true
}

func (c *cameraImpl) Setting() CameraSetting {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settingLocked()
}

func (c *cameraImpl) ApplySetting(s CameraSetting) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !s.Valid() {
		return false
	}
	c.animation = nil
	c.applyLocked(s)
	return true
}

func (c *cameraImpl) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.animation = nil
	c.applyLocked(c.defaults)
}

func (c *cameraImpl) AnimateTo(position, look, up mgl32.Vec3, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	to := c.settingLocked()
	to.Position = position
	to.LookDirection = look
	to.UpDirection = up
	if !to.Valid() {
		return
	}
	if duration <= 0 {
		c.animation = nil
		c.applyLocked(to)
		return
	}

	// A critically damped spring settles in roughly 6/omega seconds.
	omega := 6.0 / duration.Seconds()
	c.animation = &animation{
		from:   c.settingLocked(),
		to:     to,
		spring: harmonica.NewSpring(harmonica.FPS(animationFPS), omega, 1.0),
	}
}

func (c *cameraImpl) StopAnimation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.animation = nil
}

func (c *cameraImpl) IsAnimating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.animation != nil
}

func (c *cameraImpl) OnTimeStep() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	a := c.animation
	if a == nil {
		return false
	}
	a.progress, a.velocity = a.spring.Update(a.progress, a.velocity, 1.0)

	if 1-a.progress < 1e-3 && a.velocity < 1e-3 && a.velocity > -1e-3 {
		c.applyLocked(a.to)
		c.animation = nil
		return true
	}

	t := float32(a.progress)
	next := a.to
	next.Position = lerp(a.from.Position, a.to.Position, t)
	next.LookDirection = lerp(a.from.LookDirection, a.to.LookDirection, t)
	next.UpDirection = lerp(a.from.UpDirection, a.to.UpDirection, t)
	if !next.Valid() {
		// Halfway vectors can cancel out; keep the current orientation for this step.
		next.LookDirection = c.lookDirection
		next.UpDirection = c.upDirection
	}
	c.applyLocked(next)
	return true
}

// settingLocked snapshots the camera. Caller must hold the mutex.
func (c *cameraImpl) settingLocked() CameraSetting {
	return CameraSetting{
		Position:          c.position,
		LookDirection:     c.lookDirection,
		UpDirection:       c.upDirection,
		Projection:        c.projection,
		FieldOfView:       c.fieldOfView,
		Width:             c.width,
		NearPlaneDistance: c.near,
		FarPlaneDistance:  c.far,
	}
}

// applyLocked copies s into the camera. Caller must hold the mutex and have validated s.
func (c *cameraImpl) applyLocked(s CameraSetting) {
	c.position = s.Position
	c.lookDirection = s.LookDirection
	c.upDirection = s.UpDirection
	c.projection = s.Projection
	if s.FieldOfView > 0 && s.FieldOfView < 180 {
		c.fieldOfView = s.FieldOfView
	}
	if s.Width > 0 {
		c.width = s.Width
	}
	if s.NearPlaneDistance > 0 && s.NearPlaneDistance < s.FarPlaneDistance {
		c.near = s.NearPlaneDistance
		c.far = s.FarPlaneDistance
	}
}

func (c *cameraImpl) viewMatrixLocked() mgl32.Mat4 {
	return mgl32.LookAtV(c.position, c.position.Add(c.lookDirection), c.upDirection)
}

func (c *cameraImpl) projectionMatrixLocked(aspect float32) mgl32.Mat4 {
	if aspect <= 0 || !common.IsFinite(aspect) {
		aspect = 1
	}
	if c.projection == ProjectionOrthographic {
		hw := c.width / 2
		hh := hw / aspect
		return mgl32.Ortho(-hw, hw, -hh, hh, c.near, c.far)
	}
	return mgl32.Perspective(mgl32.DegToRad(c.fieldOfView), aspect, c.near, c.far)
}

func lerp(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}
