package light

import "github.com/go-gl/mathgl/mgl32"

// ShadowMapResolution is the default width and height in texels of the shadow
// depth target the render host allocates when shadow mapping is enabled.
const ShadowMapResolution = 2048

// DefaultShadowHalfExtent is the default orthographic half-extent (in world units)
// used for the directional light shadow frustum. Controls how much of the scene
// around the view target is captured in the shadow map.
const DefaultShadowHalfExtent float32 = 40.0

// DefaultShadowNear is the default near plane for the directional light's
// orthographic shadow projection.
const DefaultShadowNear float32 = 0.1

// DefaultShadowFar is the default far plane for the directional light's
// orthographic shadow projection.
const DefaultShadowFar float32 = 200.0

// DirectionalShadowViewProjection builds the orthographic view-projection used to
// render a directional light's shadow map. The frustum is centered on center and
// looks along the light direction.
//
// Parameters:
//   - dir: normalized direction the light points (from light toward scene)
//   - center: world-space center of the shadow frustum
//
// Returns:
//   - mgl32.Mat4: the light view-projection matrix
func DirectionalShadowViewProjection(dir, center mgl32.Vec3) mgl32.Mat4 {
	// Place the eye behind the center, opposite the light direction.
	eye := center.Sub(dir.Mul(DefaultShadowFar * 0.5))

	// Pick an up vector that isn't parallel to the light direction.
	up := mgl32.Vec3{0, 1, 0}
	if dir.Y() > 0.99 || dir.Y() < -0.99 {
		up = mgl32.Vec3{1, 0, 0}
	}

	view := mgl32.LookAtV(eye, center, up)
	h := DefaultShadowHalfExtent
	proj := mgl32.Ortho(-h, h, -h, h, DefaultShadowNear, DefaultShadowFar)
	return proj.Mul4(view)
}
