package render

import (
	"time"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/camera"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultSceneRadius is the world-space extent assumed for position encoding
// when a renderable does not report one.
const DefaultSceneRadius float32 = 100

// RenderContext is the per-frame transform bundle handed to renderables. Derived
// matrices and the frustum are recomputed lazily, only after a source matrix or
// the viewport changed.
//
// A RenderContext belongs to the goroutine recording the frame and is not safe
// for concurrent use.
type RenderContext struct {
	technique Technique
	ctx       Context

	view       mgl32.Mat4
	projection mgl32.Mat4
	world      mgl32.Mat4
	eye        mgl32.Vec3
	viewport   common.Size

	viewProjection       mgl32.Mat4
	screenViewProjection mgl32.Mat4
	frustum              common.Frustum
	matrixChanged        bool
	recomputed           int

	timestamp   time.Duration
	sceneRadius float32
}

// NewRenderContext creates a context bound to technique with identity matrices.
//
// Parameters:
//   - technique: the technique the frame is rendered with
//
// Returns:
//   - *RenderContext: the context
func NewRenderContext(technique Technique) *RenderContext {
	return &RenderContext{
		technique:     technique,
		view:          mgl32.Ident4(),
		projection:    mgl32.Ident4(),
		world:         mgl32.Ident4(),
		matrixChanged: true,
		sceneRadius:   DefaultSceneRadius,
	}
}

// Technique returns the technique this context was built for.
func (rc *RenderContext) Technique() Technique {
	return rc.technique
}

// Context returns the device context the current frame records into.
func (rc *RenderContext) Context() Context {
	return rc.ctx
}

func (rc *RenderContext) setContext(ctx Context) {
	rc.ctx = ctx
}

// UpdateFromCamera copies the camera's view and projection for a viewport of size.
//
// Parameters:
//   - cam: the camera
//   - size: viewport size in pixels
func (rc *RenderContext) UpdateFromCamera(cam camera.Camera, size common.Size) {
	rc.SetViewport(size)
	rc.SetView(cam.CreateViewMatrix())
	rc.SetProjection(cam.CreateProjectionMatrix(size.Aspect()))
	rc.eye = cam.Position()
}

// SetView sets the view matrix.
func (rc *RenderContext) SetView(m mgl32.Mat4) {
	if m != rc.view {
		rc.view = m
		rc.matrixChanged = true
	}
}

// SetProjection sets the projection matrix.
func (rc *RenderContext) SetProjection(m mgl32.Mat4) {
	if m != rc.projection {
		rc.projection = m
		rc.matrixChanged = true
	}
}

// SetWorld sets the world matrix.
func (rc *RenderContext) SetWorld(m mgl32.Mat4) {
	if m != rc.world {
		rc.world = m
		rc.matrixChanged = true
	}
}

// SetViewport sets the viewport size in pixels.
func (rc *RenderContext) SetViewport(size common.Size) {
	if size != rc.viewport {
		rc.viewport = size
		rc.matrixChanged = true
	}
}

func (rc *RenderContext) ViewMatrix() mgl32.Mat4       { return rc.view }
func (rc *RenderContext) ProjectionMatrix() mgl32.Mat4 { return rc.projection }
func (rc *RenderContext) WorldMatrix() mgl32.Mat4      { return rc.world }
func (rc *RenderContext) EyePosition() mgl32.Vec3      { return rc.eye }
func (rc *RenderContext) Viewport() common.Size        { return rc.viewport }

// ViewProjection returns projection * view.
func (rc *RenderContext) ViewProjection() mgl32.Mat4 {
	rc.update()
	return rc.viewProjection
}

// ScreenViewProjection returns viewport * projection * view * world, which maps
// world-space points to pixel coordinates with y pointing down.
func (rc *RenderContext) ScreenViewProjection() mgl32.Mat4 {
	rc.update()
	return rc.screenViewProjection
}

// Frustum returns the view frustum extracted from ViewProjection.
func (rc *RenderContext) Frustum() common.Frustum {
	rc.update()
	return rc.frustum
}

// Timestamp returns the frame time.
func (rc *RenderContext) Timestamp() time.Duration {
	return rc.timestamp
}

// SetTimestamp sets the frame time.
func (rc *RenderContext) SetTimestamp(t time.Duration) {
	rc.timestamp = t
}

// SceneRadius returns the world extent used for position encoding.
func (rc *RenderContext) SceneRadius() float32 {
	return rc.sceneRadius
}

// SetSceneRadius sets the world extent used for position encoding. Non-positive
// values are ignored.
func (rc *RenderContext) SetSceneRadius(r float32) {
	if r > 0 && common.IsFinite(r) {
		rc.sceneRadius = r
	}
}

// FrameConstants returns the shader constants for the current state.
func (rc *RenderContext) FrameConstants() FrameConstants {
	return FrameConstants{
		View:           rc.view,
		Projection:     rc.projection,
		ViewProjection: rc.ViewProjection(),
		EyePosition:    rc.eye,
		Viewport:       rc.viewport,
		Time:           rc.timestamp,
		SceneRadius:    rc.sceneRadius,
	}
}

func (rc *RenderContext) update() {
	if !rc.matrixChanged {
		return
	}
	rc.viewProjection = rc.projection.Mul4(rc.view)
	rc.screenViewProjection = screenMatrix(rc.viewport).Mul4(rc.viewProjection).Mul4(rc.world)
	rc.frustum = common.ExtractFrustum(rc.viewProjection)
	rc.matrixChanged = false
	rc.recomputed++
}

// screenMatrix maps normalized device coordinates to pixels.
func screenMatrix(size common.Size) mgl32.Mat4 {
	w, h := float32(size.Width)/2, float32(size.Height)/2
	return mgl32.Mat4{
		w, 0, 0, 0,
		0, -h, 0, 0,
		0, 0, 1, 0,
		w, h, 0, 1,
	}
}
