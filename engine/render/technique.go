package render

import (
	"fmt"
	"image"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/light"
	"github.com/go-gl/mathgl/mgl32"
)

// Built-in technique names.
const (
	TechniqueBlinnPhong = "BlinnPhong"
	TechniqueDeferred   = "Deferred"
	TechniqueGBuffer    = "GBuffer"
)

// Frame is everything a technique needs to draw one frame.
type Frame struct {
	Context    Context
	RC         *RenderContext
	Targets    *TargetArena
	Scene      Renderable
	Lights     []light.Params
	ClearColor common.Color
	Shadows    bool

	// Index counts frames since the host started; the deferred renderer uses its
	// parity to alternate the ping-pong targets.
	Index uint64
}

// Technique is a way of turning a scene into pixels in the color target.
type Technique interface {
	// Name returns the registry key of the technique.
	Name() string

	// UsesGBuffer reports whether the host must allocate the G-buffer targets.
	UsesGBuffer() bool

	// Render draws f.Scene into f.Targets.
	//
	// Parameters:
	//   - f: the frame to draw
	//
	// Returns:
	//   - error: an error returned by the scene or the context
	Render(f *Frame) error
}

// TechniqueRegistry maps technique names to implementations and owns the light
// counter renderables use to number their lights. One registry is created per
// application or test and injected into hosts.
type TechniqueRegistry interface {
	// Register adds or replaces a technique.
	Register(t Technique)

	// Lookup returns the technique registered under name.
	//
	// Returns:
	//   - Technique: the technique
	//   - error: ErrUnknownTechnique wrapped with the name
	Lookup(name string) (Technique, error)

	// Names returns the registered names, sorted.
	Names() []string

	// ResetLightCount sets the light counter to zero. Hosts call it on attach.
	ResetLightCount()

	// NextLightIndex returns the next light index and advances the counter.
	NextLightIndex() int

	// LightCount returns the number of indices handed out since the last reset.
	LightCount() int
}

type techniqueRegistryImpl struct {
	mu         *sync.Mutex
	techniques map[string]Technique
	lightCount atomic.Int64
}

var _ TechniqueRegistry = &techniqueRegistryImpl{}

// NewTechniqueRegistry creates a registry holding the built-in techniques plus
// any added with options.
func NewTechniqueRegistry(options ...TechniqueRegistryOption) TechniqueRegistry {
	r := &techniqueRegistryImpl{
		mu:         &sync.Mutex{},
		techniques: make(map[string]Technique),
	}
	r.Register(NewForwardTechnique())
	r.Register(NewDeferredRenderer())
	r.Register(NewGBufferTechnique())

	for _, option := range options {
		option(r)
	}
	return r
}

// TechniqueRegistryOption configures a TechniqueRegistry.
type TechniqueRegistryOption func(*techniqueRegistryImpl)

// WithTechnique registers an additional technique.
//
// Parameters:
//   - t: the technique
//
// Returns:
//   - TechniqueRegistryOption: the option
func WithTechnique(t Technique) TechniqueRegistryOption {
	return func(r *techniqueRegistryImpl) {
		r.techniques[t.Name()] = t
	}
}

func (r *techniqueRegistryImpl) Register(t Technique) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.techniques[t.Name()] = t
}

func (r *techniqueRegistryImpl) Lookup(name string) (Technique, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.techniques[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTechnique, name)
	}
	return t, nil
}

func (r *techniqueRegistryImpl) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.techniques))
	for n := range r.techniques {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *techniqueRegistryImpl) ResetLightCount() {
	r.lightCount.Store(0)
}

func (r *techniqueRegistryImpl) NextLightIndex() int {
	return int(r.lightCount.Add(1) - 1)
}

func (r *techniqueRegistryImpl) LightCount() int {
	return int(r.lightCount.Load())
}

// forwardTechnique clears the targets and lets the scene draw directly with
// Blinn-Phong shading, resolving through the MSAA target when one exists.
type forwardTechnique struct{}

// NewForwardTechnique returns the forward Blinn-Phong technique.
func NewForwardTechnique() Technique {
	return forwardTechnique{}
}

func (forwardTechnique) Name() string      { return TechniqueBlinnPhong }
func (forwardTechnique) UsesGBuffer() bool { return false }

func (forwardTechnique) Render(f *Frame) error {
	ctx := f.Context
	if f.Shadows {
		renderShadowMap(f)
	}

	color := f.Targets.Get(SlotColor)
	draw := color
	if msaa := f.Targets.Get(SlotMSAA); msaa != nil {
		draw = msaa
	}
	depth := f.Targets.Get(SlotDepthStencil)

	ctx.SetRenderTargets(depth, draw)
	ctx.SetViewport(f.Targets.Bounds())
	ctx.SetBlendMode(BlendOpaque)
	ctx.ClearRenderTarget(draw, f.ClearColor)
	ctx.ClearDepthStencil(depth, 1, 0)

	fc := f.RC.FrameConstants()
	fc.Lights = f.Lights
	ctx.SetFrameConstants(fc)

	if err := f.Scene.Render(f.RC); err != nil {
		return err
	}
	if draw != color {
		ctx.Resolve(color, draw)
	}
	return nil
}

// renderShadowMap draws the scene depth from the first shadow-casting
// directional light into the shadow map.
func renderShadowMap(f *Frame) {
	shadow := f.Targets.Get(SlotShadowMap)
	if shadow == nil {
		return
	}
	for _, l := range f.Lights {
		if l.Type != light.LightTypeDirectional || !l.CastsShadows {
			continue
		}
		ctx := f.Context
		vp := light.DirectionalShadowViewProjection(l.Direction, f.RC.EyePosition())
		res := shadow.Desc().Size
		ctx.SetRenderTargets(shadow)
		ctx.SetViewport(image.Rect(0, 0, res.Width, res.Height))
		ctx.ClearDepthStencil(shadow, 1, 0)
		ctx.SetFrameConstants(FrameConstants{
			View:           mgl32.Ident4(),
			Projection:     vp,
			ViewProjection: vp,
			Viewport:       res,
			SceneRadius:    f.RC.SceneRadius(),
		})
		// Scene errors surface from the main pass, which draws the same content.
		_ = f.Scene.Render(f.RC)
		return
	}
}

// gbufferTechnique renders the G-buffer and shows each channel in one quadrant
// of the color target.
type gbufferTechnique struct{}

// NewGBufferTechnique returns the G-buffer visualization technique.
func NewGBufferTechnique() Technique {
	return gbufferTechnique{}
}

func (gbufferTechnique) Name() string      { return TechniqueGBuffer }
func (gbufferTechnique) UsesGBuffer() bool { return true }

func (gbufferTechnique) Render(f *Frame) error {
	if err := renderGeometryPass(f); err != nil {
		return err
	}
	ctx := f.Context
	color := f.Targets.Get(SlotColor)
	bounds := f.Targets.Bounds()
	ctx.SetRenderTargets(nil, color)
	ctx.ClearRenderTarget(color, f.ClearColor)
	for i, t := range f.Targets.GBuffer() {
		ctx.CopyRegion(color, Quadrant(bounds, i), t, bounds)
	}
	return nil
}

// Quadrant returns quadrant i of r in reading order: top-left, top-right,
// bottom-left, bottom-right.
func Quadrant(r image.Rectangle, i int) image.Rectangle {
	mid := image.Pt((r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2)
	switch i {
	case 0:
		return image.Rectangle{Min: r.Min, Max: mid}
	case 1:
		return image.Rect(mid.X, r.Min.Y, r.Max.X, mid.Y)
	case 2:
		return image.Rect(r.Min.X, mid.Y, mid.X, r.Max.Y)
	default:
		return image.Rectangle{Min: mid, Max: r.Max}
	}
}

// renderGeometryPass draws the scene into the four G-buffer channels.
func renderGeometryPass(f *Frame) error {
	gbuf := f.Targets.GBuffer()
	if gbuf == nil {
		return fmt.Errorf("%w: G-buffer targets not allocated", ErrNotAttached)
	}
	ctx := f.Context
	depth := f.Targets.Get(SlotDepthStencil)

	ctx.SetRenderTargets(depth, gbuf...)
	ctx.SetViewport(f.Targets.Bounds())
	ctx.SetBlendMode(BlendOpaque)
	for _, t := range gbuf {
		ctx.ClearRenderTarget(t, common.Color{})
	}
	ctx.ClearDepthStencil(depth, 1, 0)
	ctx.SetFrameConstants(f.RC.FrameConstants())
	return f.Scene.Render(f.RC)
}
