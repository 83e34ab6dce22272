package render

import (
	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/light"
)

// Renderable is the scene graph a RenderHost draws.
type Renderable interface {
	// Attach binds the renderable to host. It is called once, on the first frame
	// after the renderable is set or the scene graph is invalidated.
	//
	// Parameters:
	//   - host: the host the renderable is drawn by
	//
	// Returns:
	//   - error: a failure that leaves the renderable unusable
	Attach(host RenderHost) error

	// Detach releases whatever Attach acquired.
	Detach()

	// Update advances per-frame state before recording.
	Update(rc *RenderContext)

	// Render records the renderable's draws into rc.Context().
	//
	// Returns:
	//   - error: a device error raised while recording
	Render(rc *RenderContext) error

	// BackgroundColor returns the color targets are cleared to.
	BackgroundColor() common.Color

	// IsShadowMappingEnabled reports whether the host allocates and fills a shadow map.
	IsShadowMappingEnabled() bool

	// RenderTechnique names the technique to render with. An empty name keeps the
	// host's configured technique.
	RenderTechnique() string
}

// LightProvider is implemented by renderables that contribute lights. The lights
// feed the deferred lighting pass and forward shading.
type LightProvider interface {
	Lights() []light.Light
}

// RadiusProvider is implemented by renderables that know their world extent.
type RadiusProvider interface {
	SceneRadius() float32
}
