package render

import (
	"image"
	"time"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/light"
	"github.com/go-gl/mathgl/mgl32"
)

// Format is a render target pixel format.
type Format int

const (
	FormatRGBA8 Format = iota
	FormatRGBA16F
	FormatDepth24Stencil8
	FormatDepth32F
)

// IsDepth reports whether f is a depth-stencil format.
func (f Format) IsDepth() bool {
	return f == FormatDepth24Stencil8 || f == FormatDepth32F
}

// TargetDesc describes a render target to create.
type TargetDesc struct {
	Label   string
	Size    common.Size
	Format  Format
	Samples int

	// BackBuffer marks the target that Device.Present puts on screen. A device
	// creates at most one live back buffer.
	BackBuffer bool
}

// Target is a device render target or depth-stencil buffer.
type Target interface {
	Desc() TargetDesc
	Release()
}

// BlendMode selects how draws combine with the bound color targets.
type BlendMode int

const (
	// BlendOpaque overwrites the destination.
	BlendOpaque BlendMode = iota

	// BlendAdditive adds the source to the destination.
	BlendAdditive
)

func (m BlendMode) String() string {
	if m == BlendAdditive {
		return "additive"
	}
	return "opaque"
}

// Material is the surface description a mesh is drawn with.
type Material struct {
	Diffuse   common.Color
	Specular  common.Color
	Shininess float32
}

// ProxyKind is the light volume geometry drawn for one light-type batch.
type ProxyKind int

const (
	// ProxyQuad is a full-screen quad, used for ambient and directional lights.
	ProxyQuad ProxyKind = iota

	// ProxySphere is a unit sphere scaled to a point light's range.
	ProxySphere

	// ProxyCone is a unit cone fitted to a spot light.
	ProxyCone
)

func (k ProxyKind) String() string {
	switch k {
	case ProxySphere:
		return "sphere"
	case ProxyCone:
		return "cone"
	}
	return "quad"
}

// ProxyInstance is one light drawn with proxy geometry.
type ProxyInstance struct {
	World mgl32.Mat4
	Light light.Params
}

// FrameConstants are the per-frame shader constants.
type FrameConstants struct {
	View           mgl32.Mat4
	Projection     mgl32.Mat4
	ViewProjection mgl32.Mat4
	EyePosition    mgl32.Vec3
	Viewport       common.Size
	Time           time.Duration

	// Lights are the enabled lights visible this frame, used by forward shading.
	Lights []light.Params

	// SceneRadius bounds world positions written into the position G-buffer.
	SceneRadius float32
}

// Context records or executes draw commands against a device.
//
// Context methods do not return errors; a failed command surfaces from the next
// Flush or Device.Present, the way a GPU reports a lost device lazily.
type Context interface {
	// SetRenderTargets binds depth (may be nil) and one or more color targets.
	// More than one color target selects multiple-render-target output, which
	// writes the G-buffer channels in order: normal, diffuse, specular, position.
	SetRenderTargets(depth Target, colors ...Target)

	// SetShaderResources binds targets read by DrawProxy. For the lighting pass
	// these are the four G-buffer channels.
	SetShaderResources(inputs ...Target)

	SetViewport(r image.Rectangle)
	SetBlendMode(m BlendMode)
	SetFrameConstants(fc FrameConstants)

	ClearRenderTarget(t Target, c common.Color)
	ClearDepthStencil(t Target, depth float32, stencil uint8)

	// DrawMesh draws an indexed triangle mesh.
	DrawMesh(m *Mesh, world mgl32.Mat4, mat Material)

	// DrawProxy draws one light-type batch of proxy volumes. Proxy geometry is
	// bound once per call.
	DrawProxy(kind ProxyKind, instances []ProxyInstance)

	// CopyRegion copies src's srcRect into dst's dstRect, scaling when the sizes differ.
	CopyRegion(dst Target, dstRect image.Rectangle, src Target, srcRect image.Rectangle)

	// Resolve collapses a multisampled target into a single-sampled one.
	Resolve(dst, src Target)

	// Flush submits recorded work.
	//
	// Returns:
	//   - error: a *DeviceError if the device failed
	Flush() error
}

// Device owns GPU resources and the immediate context.
type Device interface {
	Name() string

	// CreateTarget allocates a render target.
	//
	// Parameters:
	//   - desc: the target description
	//
	// Returns:
	//   - Target: the new target
	//   - error: a *DeviceError on failure
	CreateTarget(desc TargetDesc) (Target, error)

	// ImmediateContext returns the context that executes commands directly.
	ImmediateContext() Context

	// Present shows the back buffer.
	//
	// Parameters:
	//   - backBuffer: the target created with TargetDesc.BackBuffer set
	//
	// Returns:
	//   - error: a *DeviceError if presentation failed
	Present(backBuffer Target) error

	Release()
}

// DeviceFactory creates a device whose back buffer matches size.
type DeviceFactory func(size common.Size) (Device, error)
