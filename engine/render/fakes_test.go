package render

import (
	"fmt"
	"image"
	"sync"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/light"
	"github.com/go-gl/mathgl/mgl32"
)

type fakeTarget struct {
	dev      *fakeDevice
	desc     TargetDesc
	released bool
}

func (t *fakeTarget) Desc() TargetDesc { return t.desc }

func (t *fakeTarget) Release() {
	t.dev.mu.Lock()
	defer t.dev.mu.Unlock()
	if !t.released {
		t.released = true
		t.dev.live--
	}
}

// fakeDevice records every command executed on its immediate context.
type fakeDevice struct {
	mu         *sync.Mutex
	name       string
	live       int
	created    []TargetDesc
	log        []string
	failCreate string
	presentErr []error
	flushErr   []error
	presents   int
	released   bool
	constants  []FrameConstants
	proxies    map[ProxyKind][]int
}

func newFakeDevice(name string) *fakeDevice {
	return &fakeDevice{mu: &sync.Mutex{}, name: name, proxies: make(map[ProxyKind][]int)}
}

func (d *fakeDevice) Name() string { return d.name }

func (d *fakeDevice) CreateTarget(desc TargetDesc) (Target, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failCreate != "" && desc.Label == d.failCreate {
		return nil, &DeviceError{Op: "create target", Code: DeviceInternalError}
	}
	d.live++
	d.created = append(d.created, desc)
	return &fakeTarget{dev: d, desc: desc}, nil
}

func (d *fakeDevice) ImmediateContext() Context { return &fakeContext{dev: d} }

func (d *fakeDevice) Present(backBuffer Target) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.presentErr) > 0 {
		err := d.presentErr[0]
		d.presentErr = d.presentErr[1:]
		if err != nil {
			return err
		}
	}
	d.presents++
	d.log = append(d.log, "present:"+backBuffer.Desc().Label)
	return nil
}

func (d *fakeDevice) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.released = true
}

func (d *fakeDevice) record(format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.log = append(d.log, fmt.Sprintf(format, args...))
}

func (d *fakeDevice) entries() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.log...)
}

func (d *fakeDevice) presentCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.presents
}

func (d *fakeDevice) liveTargets() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live
}

func (d *fakeDevice) isReleased() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.released
}

type fakeContext struct {
	dev *fakeDevice
}

func label(t Target) string {
	if t == nil {
		return "nil"
	}
	return t.Desc().Label
}

func (c *fakeContext) SetRenderTargets(depth Target, colors ...Target) {
	names := make([]string, len(colors))
	for i, t := range colors {
		names[i] = label(t)
	}
	c.dev.record("targets:%s:%v", label(depth), names)
}

func (c *fakeContext) SetShaderResources(inputs ...Target) {
	c.dev.record("inputs:%d", len(inputs))
}

func (c *fakeContext) SetViewport(r image.Rectangle) { c.dev.record("viewport:%v", r) }
func (c *fakeContext) SetBlendMode(m BlendMode)      { c.dev.record("blend:%s", m) }

func (c *fakeContext) SetFrameConstants(fc FrameConstants) {
	c.dev.mu.Lock()
	c.dev.constants = append(c.dev.constants, fc)
	c.dev.mu.Unlock()
	c.dev.record("constants:%d", len(fc.Lights))
}

func (c *fakeContext) ClearRenderTarget(t Target, col common.Color) {
	c.dev.record("clear:%s:%v", label(t), col)
}

func (c *fakeContext) ClearDepthStencil(t Target, depth float32, stencil uint8) {
	c.dev.record("clear-depth:%s", label(t))
}

func (c *fakeContext) DrawMesh(m *Mesh, world mgl32.Mat4, mat Material) {
	c.dev.record("mesh:%d", m.Triangles())
}

func (c *fakeContext) DrawProxy(kind ProxyKind, instances []ProxyInstance) {
	c.dev.mu.Lock()
	c.dev.proxies[kind] = append(c.dev.proxies[kind], len(instances))
	c.dev.mu.Unlock()
	c.dev.record("proxy:%s:%d", kind, len(instances))
}

func (c *fakeContext) CopyRegion(dst Target, dstRect image.Rectangle, src Target, srcRect image.Rectangle) {
	c.dev.record("copy:%s->%s:%v", label(src), label(dst), dstRect)
}

func (c *fakeContext) Resolve(dst, src Target) {
	c.dev.record("resolve:%s->%s", label(src), label(dst))
}

func (c *fakeContext) Flush() error {
	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()
	if len(c.dev.flushErr) > 0 {
		err := c.dev.flushErr[0]
		c.dev.flushErr = c.dev.flushErr[1:]
		return err
	}
	return nil
}

// fakeFactory hands out fake devices and remembers them.
type fakeFactory struct {
	mu      *sync.Mutex
	devices []*fakeDevice
	err     error
	setup   func(*fakeDevice)
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{mu: &sync.Mutex{}}
}

func (f *fakeFactory) create(size common.Size) (Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	d := newFakeDevice(fmt.Sprintf("fake-%d", len(f.devices)))
	if f.setup != nil {
		f.setup(d)
	}
	f.devices = append(f.devices, d)
	return d, nil
}

func (f *fakeFactory) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.devices)
}

func (f *fakeFactory) last() *fakeDevice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.devices[len(f.devices)-1]
}

// fakeScene is a Renderable drawing one cube.
type fakeScene struct {
	mu         *sync.Mutex
	attachErr  error
	renderErr  []error
	attaches   int
	detaches   int
	renders    int
	technique  string
	shadows    bool
	background common.Color
	lights     []light.Light
	gate       chan struct{}
	host       RenderHost
	mesh       *Mesh
}

func newFakeScene() *fakeScene {
	return &fakeScene{
		mu:         &sync.Mutex{},
		background: common.Color{R: 0.2, G: 0.3, B: 0.4, A: 1},
		mesh:       NewCubeMesh(1),
	}
}

func (s *fakeScene) Attach(host RenderHost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attaches++
	s.host = host
	return s.attachErr
}

func (s *fakeScene) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detaches++
}

func (s *fakeScene) Update(rc *RenderContext) {}

func (s *fakeScene) Render(rc *RenderContext) error {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	s.renders++
	var err error
	if len(s.renderErr) > 0 {
		err = s.renderErr[0]
		s.renderErr = s.renderErr[1:]
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	rc.Context().DrawMesh(s.mesh, mgl32.Ident4(), Material{Diffuse: common.ColorWhite})
	return nil
}

func (s *fakeScene) BackgroundColor() common.Color { return s.background }
func (s *fakeScene) IsShadowMappingEnabled() bool  { return s.shadows }
func (s *fakeScene) RenderTechnique() string       { return s.technique }
func (s *fakeScene) Lights() []light.Light         { return s.lights }

func (s *fakeScene) counts() (attaches, detaches, renders int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attaches, s.detaches, s.renders
}
