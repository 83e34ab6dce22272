package controller

import (
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/camera"
	"github.com/barkimedes/go-deepcopy"
	"github.com/go-gl/mathgl/mgl32"
)

// HitTester resolves a screen point to the nearest scene hit.
type HitTester interface {
	// HitTest returns the world-space point under p.
	//
	// Parameters:
	//   - p: screen point in pixels
	//
	// Returns:
	//   - mgl32.Vec3: the hit point
	//   - bool: false if nothing was hit
	HitTest(p mgl32.Vec2) (mgl32.Vec3, bool)
}

// Invalidator is told when the camera changed and a new frame is needed.
type Invalidator interface {
	InvalidateRender()
}

// ModifierSource reports the modifier keys held at the time of the call.
// Input handlers query it live instead of receiving modifiers with each event.
type ModifierSource interface {
	Modifiers() common.ModifierKeys
}

// ManipulationEvent is one frame of a touch manipulation.
type ManipulationEvent struct {
	// Position is the manipulation origin (centroid of the contacts) in pixels.
	Position mgl32.Vec2

	// Manipulators is the number of touch contacts currently down.
	Manipulators int

	// Scale is the cumulative pinch scale since the manipulation started.
	Scale float32
}

// AxisSpeeds is a snapshot of every inertial axis.
type AxisSpeeds struct {
	Rotation mgl32.Vec2
	Pan      mgl32.Vec2 // screen space
	Zoom     float32
	Move     mgl32.Vec3 // camera local space: x right, y up, z forward
	Spin     mgl32.Vec2
}

// CameraController turns mouse, keyboard and touch input into camera motion with
// optional inertia, and keeps a bounded undo history of camera snapshots.
//
// Every mutator is a silent no-op when the matching capability is disabled or no
// camera is bound. Physics advances once per compositor frame through
// OnCompositionTargetRendering.
type CameraController interface {
	// Camera returns the bound camera, or nil.
	//
	// Returns:
	//   - camera.Camera: the active camera
	Camera() camera.Camera

	// SetCamera binds a camera and clears all inertial state.
	//
	// Parameters:
	//   - cam: the camera to control, or nil to unbind
	SetCamera(cam camera.Camera)

	// Config returns a copy of the active configuration.
	//
	// Returns:
	//   - Config: the configuration
	Config() Config

	// ApplyConfig validates and installs cfg as a whole. On error the previous
	// configuration stays active.
	//
	// Parameters:
	//   - cfg: the new configuration
	//
	// Returns:
	//   - error: a validation error wrapping ErrInvalidConfig
	ApplyConfig(cfg Config) error

	// SetViewportSize sets the viewport size used for screen-space gestures.
	//
	// Parameters:
	//   - width, height: the size in pixels
	SetViewportSize(width, height float32)

	// AddRotateForce pushes an undo snapshot and rotates by a screen delta, either
	// through the rotation inertia or immediately when inertia is off.
	//
	// Parameters:
	//   - dx, dy: screen-space delta in pixels
	AddRotateForce(dx, dy float32)

	// AddPanForce pushes an undo snapshot and pans by a screen delta.
	//
	// Parameters:
	//   - dx, dy: screen-space delta in pixels
	AddPanForce(dx, dy float32)

	// AddPanForceVector pushes an undo snapshot and pans by a world-space vector.
	//
	// Parameters:
	//   - v: world-space translation
	AddPanForceVector(v mgl32.Vec3)

	// AddZoomForce zooms toward the camera target.
	//
	// Parameters:
	//   - delta: zoom amount; negative moves closer
	AddZoomForce(delta float32)

	// AddZoomForceAt zooms toward origin.
	//
	// Parameters:
	//   - delta: zoom amount; negative moves closer
	//   - origin: the world-space zoom pivot
	AddZoomForceAt(delta float32, origin mgl32.Vec3)

	// AddMoveForce adds first-person movement along the camera axes. Movement is
	// always inertial.
	//
	// Parameters:
	//   - dx, dy, dz: right, up and forward amounts
	AddMoveForce(dx, dy, dz float32)

	// StartSpin starts a spin about pivot and cancels drag rotation.
	//
	// Parameters:
	//   - speed: screen-space spin speed
	//   - position: screen position the spin is computed from
	//   - pivot: world-space rotation point
	StartSpin(speed, position mgl32.Vec2, pivot mgl32.Vec3)

	// StopSpin stops a running spin.
	StopSpin()

	// IsSpinning reports whether a spin is running.
	//
	// Returns:
	//   - bool: true while spinning
	IsSpinning() bool

	// PushCameraSetting stores the camera in the undo history.
	PushCameraSetting()

	// RestoreCameraSetting pops the newest snapshot and applies it to the camera.
	//
	// Returns:
	//   - bool: false if the history is empty or no camera is bound
	RestoreCameraSetting() bool

	// HistoryLen returns the number of undo snapshots.
	//
	// Returns:
	//   - int: the history size
	HistoryLen() int

	// ResetCamera stops all motion and restores the camera's initial state.
	ResetCamera()

	// ChangeLookAt moves the camera so that target becomes its look-at point,
	// keeping the look direction. The move is animated.
	//
	// Parameters:
	//   - target: the new look-at point
	ChangeLookAt(target mgl32.Vec3)

	// ZoomExtents frames a bounding sphere.
	//
	// Parameters:
	//   - center: sphere center
	//   - radius: sphere radius
	ZoomExtents(center mgl32.Vec3, radius float32)

	// Speeds returns the current inertial speeds.
	//
	// Returns:
	//   - AxisSpeeds: the speed snapshot
	Speeds() AxisSpeeds

	// OnCompositionTargetRendering advances physics once per compositor frame.
	// The first call after idling only records the tick.
	//
	// Parameters:
	//   - ticks: a monotonic timestamp in units of the tick frequency
	//
	// Returns:
	//   - bool: true if the camera changed this frame
	OnCompositionTargetRendering(ticks int64) bool

	// IsTicking reports whether per-frame physics is running.
	//
	// Returns:
	//   - bool: false once every axis has come to rest
	IsTicking() bool

	// ZoomRectangle returns the rectangle of an in-progress zoom-rectangle gesture.
	//
	// Returns:
	//   - from, to: opposite corners in pixels
	//   - active: false if no zoom-rectangle gesture is running
	ZoomRectangle() (from, to mgl32.Vec2, active bool)

	OnMouseDown(button common.MouseButton, p mgl32.Vec2)
	OnMouseMove(p mgl32.Vec2)
	OnMouseUp(button common.MouseButton, p mgl32.Vec2)
	OnMouseWheel(delta float32, p mgl32.Vec2)
	OnMouseDoubleClick(button common.MouseButton, p mgl32.Vec2)

	// OnKeyDown runs the action bound to key.
	//
	// Parameters:
	//   - key: the pressed key
	//
	// Returns:
	//   - bool: true if the key is bound
	OnKeyDown(key common.Key) bool

	OnManipulationStarted(e ManipulationEvent)
	OnManipulationDelta(e ManipulationEvent)
	OnManipulationCompleted(e ManipulationEvent)
}

type controllerImpl struct {
	mu *sync.Mutex

	cam         camera.Camera
	cfg         Config
	history     camera.SettingHistory
	hitTester   HitTester
	invalidator Invalidator
	modifiers   ModifierSource
	clock       func() time.Time

	viewport      mgl32.Vec2
	tickFrequency float64
	lastTick      int64

	rotationSpeed    mgl32.Vec2
	rotationPosition mgl32.Vec2
	rotationPoint3D  mgl32.Vec3
	panSpeed         mgl32.Vec2
	zoomSpeed        float32
	zoomPoint3D      mgl32.Vec3
	moveSpeed        mgl32.Vec3
	spinningSpeed    mgl32.Vec2
	spinningPosition mgl32.Vec2
	spinningPoint3D  mgl32.Vec3
	isSpinning       bool

	// --- mouse ---
	mouseHandler gestureHandler
	mouseButton  common.MouseButton
	zoomRect     *zoomRectangleHandler

	// --- touch ---
	touchHandler     gestureHandler
	touchZoom        *zoomHandler
	manipulatorCount int
	prevScale        float32
	pinchInitialized bool
}

var _ CameraController = &controllerImpl{}

// NewCameraController creates a controller with DefaultConfig, an undo history of
// camera.DefaultHistoryCapacity snapshots, and a nanosecond tick frequency.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewCameraController(options ...CameraControllerOption) CameraController {
	c := &controllerImpl{
		mu:            &sync.Mutex{},
		cfg:           DefaultConfig(),
		clock:         time.Now,
		tickFrequency: float64(time.Second),
		prevScale:     1,
	}
	for _, option := range options {
		option(c)
	}
	if c.history == nil {
		c.history = camera.NewSettingHistory(camera.DefaultHistoryCapacity)
	}
	return c
}

func (c *controllerImpl) Camera() camera.Camera {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cam
}

func (c *controllerImpl) SetCamera(cam camera.Camera) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cam = cam
	c.stopAll()
	c.mouseHandler = nil
	c.touchHandler = nil
}

func (c *controllerImpl) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *deepcopy.MustAnything(&c.cfg).(*Config)
}

func (c *controllerImpl) ApplyConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cp := deepcopy.MustAnything(&cfg).(*Config)
	if cp.KeyBindings == nil {
		cp.KeyBindings = DefaultKeyBindings()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = *cp
	if !c.cfg.IsRotationEnabled {
		c.rotationSpeed = mgl32.Vec2{}
		c.stopSpin()
	}
	if !c.cfg.IsPanEnabled {
		c.panSpeed = mgl32.Vec2{}
	}
	if !c.cfg.IsZoomEnabled {
		c.zoomSpeed = 0
	}
	if !c.cfg.IsMoveEnabled {
		c.moveSpeed = mgl32.Vec3{}
	}
	return nil
}

func (c *controllerImpl) SetViewportSize(width, height float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewport = mgl32.Vec2{width, height}
}

func (c *controllerImpl) AddRotateForce(dx, dy float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addRotateForce(dx, dy)
}

func (c *controllerImpl) AddPanForce(dx, dy float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addPanForce(dx, dy)
}

func (c *controllerImpl) AddPanForceVector(v mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cam == nil || !common.IsFiniteVec3(v) {
		return
	}
	d, ok := c.screenFromPanVector(v)
	if !ok {
		return
	}
	c.addPanForce(d[0], d[1])
}

func (c *controllerImpl) AddZoomForce(delta float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cam == nil {
		return
	}
	c.addZoomForceAt(delta, c.cam.Target())
}

func (c *controllerImpl) AddZoomForceAt(delta float32, origin mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addZoomForceAt(delta, origin)
}

func (c *controllerImpl) AddMoveForce(dx, dy, dz float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addMoveForce(dx, dy, dz)
}

func (c *controllerImpl) StartSpin(speed, position mgl32.Vec2, pivot mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startSpin(speed, position, pivot)
}

func (c *controllerImpl) StopSpin() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopSpin()
}

func (c *controllerImpl) IsSpinning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isSpinning
}

func (c *controllerImpl) PushCameraSetting() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pushCameraSetting()
}

func (c *controllerImpl) RestoreCameraSetting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.restoreCameraSetting()
}

func (c *controllerImpl) HistoryLen() int {
	return c.history.Len()
}

func (c *controllerImpl) ResetCamera() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetCamera()
}

func (c *controllerImpl) ChangeLookAt(target mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changeLookAt(target)
}

func (c *controllerImpl) ZoomExtents(center mgl32.Vec3, radius float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zoomExtents(center, radius)
}

func (c *controllerImpl) Speeds() AxisSpeeds {
	c.mu.Lock()
	defer c.mu.Unlock()
	return AxisSpeeds{
		Rotation: c.rotationSpeed,
		Pan:      c.panSpeed,
		Zoom:     c.zoomSpeed,
		Move:     c.moveSpeed,
		Spin:     c.spinningSpeed,
	}
}

func (c *controllerImpl) IsTicking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastTick != 0
}

func (c *controllerImpl) ZoomRectangle() (mgl32.Vec2, mgl32.Vec2, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.zoomRect == nil || !c.zoomRect.active {
		return mgl32.Vec2{}, mgl32.Vec2{}, false
	}
	return c.zoomRect.downPoint, c.zoomRect.lastPoint, true
}

// --- force accumulation ---

func (c *controllerImpl) addRotateForce(dx, dy float32) {
	if c.cam == nil || !c.cfg.IsRotationEnabled || !common.IsFiniteVec2(mgl32.Vec2{dx, dy}) {
		return
	}
	c.pushCameraSetting()

	center := c.viewport.Mul(0.5)
	c.rotationPosition = center
	delta := mgl32.Vec2{dx, dy}
	if c.cfg.IsInertiaEnabled {
		c.rotationPoint3D = c.rotationPivot()
		c.rotationSpeed = c.rotationSpeed.Add(delta.Mul(rotationForceScale))
	} else {
		c.rotate(center, center.Add(delta), c.rotationPivot())
	}
	c.invalidate()
}

func (c *controllerImpl) addPanForce(dx, dy float32) {
	if c.cam == nil || !c.canPan() || !common.IsFiniteVec2(mgl32.Vec2{dx, dy}) {
		return
	}
	c.pushCameraSetting()

	delta := mgl32.Vec2{dx, dy}
	if c.cfg.IsInertiaEnabled {
		c.panSpeed = c.panSpeed.Add(delta.Mul(panForceScale))
	} else {
		c.panScreen(delta)
	}
	c.invalidate()
}

func (c *controllerImpl) addZoomForceAt(delta float32, origin mgl32.Vec3) {
	if c.cam == nil || !c.cfg.IsZoomEnabled || !common.IsFinite(delta) || !common.IsFiniteVec3(origin) {
		return
	}
	c.pushCameraSetting()

	if c.cfg.IsInertiaEnabled {
		c.zoomPoint3D = origin
		c.zoomSpeed += delta * zoomForceScale
	} else {
		c.zoom(delta, origin)
	}
	c.invalidate()
}

func (c *controllerImpl) addMoveForce(dx, dy, dz float32) {
	v := mgl32.Vec3{dx, dy, dz}
	if c.cam == nil || !c.canMove() || !common.IsFiniteVec3(v) {
		return
	}
	c.pushCameraSetting()
	c.moveSpeed = c.moveSpeed.Add(v.Mul(moveForceScale))
	c.invalidate()
}

func (c *controllerImpl) startSpin(speed, position mgl32.Vec2, pivot mgl32.Vec3) {
	if c.cam == nil || !c.cfg.IsRotationEnabled || !common.IsFiniteVec2(speed) || !common.IsFiniteVec3(pivot) {
		return
	}
	c.spinningSpeed = speed
	c.spinningPosition = position
	c.spinningPoint3D = pivot
	c.isSpinning = true
	c.rotationSpeed = mgl32.Vec2{}
	c.invalidate()
}

func (c *controllerImpl) stopSpin() {
	c.spinningSpeed = mgl32.Vec2{}
	c.isSpinning = false
}

func (c *controllerImpl) stopAll() {
	c.rotationSpeed = mgl32.Vec2{}
	c.panSpeed = mgl32.Vec2{}
	c.zoomSpeed = 0
	c.moveSpeed = mgl32.Vec3{}
	c.stopSpin()
}

// --- history ---

func (c *controllerImpl) pushCameraSetting() {
	if c.cam == nil {
		return
	}
	c.history.Push(c.cam.Setting())
}

func (c *controllerImpl) restoreCameraSetting() bool {
	if c.cam == nil {
		return false
	}
	s, ok := c.history.Pop()
	if !ok {
		return false
	}
	c.stopAll()
	c.cam.ApplySetting(s)
	c.invalidate()
	return true
}

func (c *controllerImpl) resetCamera() {
	if c.cam == nil {
		return
	}
	c.stopAll()
	c.cam.Reset()
	c.invalidate()
}

// --- collaborators ---

func (c *controllerImpl) invalidate() {
	if c.invalidator != nil {
		c.invalidator.InvalidateRender()
	}
}

func (c *controllerImpl) currentModifiers() common.ModifierKeys {
	if c.modifiers == nil {
		return 0
	}
	return c.modifiers.Modifiers()
}

// hitOrTarget returns the scene point under p, falling back to the camera target.
func (c *controllerImpl) hitOrTarget(p mgl32.Vec2) mgl32.Vec3 {
	if c.hitTester != nil {
		if hit, ok := c.hitTester.HitTest(p); ok && common.IsFiniteVec3(hit) {
			return hit
		}
	}
	return c.cam.Target()
}

// rotationPivot returns the point keyboard and programmatic rotation turn around.
func (c *controllerImpl) rotationPivot() mgl32.Vec3 {
	if c.cfg.FixedRotationPointEnabled {
		return c.cfg.FixedRotationPoint
	}
	return c.cam.Target()
}

func (c *controllerImpl) canPan() bool {
	return c.cfg.IsPanEnabled && c.cfg.CameraMode != CameraModeFixedPosition
}

func (c *controllerImpl) canMove() bool {
	return c.cfg.IsMoveEnabled && c.cfg.CameraMode != CameraModeFixedPosition
}
