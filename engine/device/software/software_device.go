// Package software implements render.Device on the CPU with the fauxgl
// rasterizer. It needs no GPU, so it backs headless rendering, image export and
// the render host tests.
package software

import (
	"image"
	"sync"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/render"
	"github.com/fogleman/fauxgl"
	"golang.org/x/image/draw"
)

// softwareTarget is a color image or a depth buffer.
type softwareTarget struct {
	dev      *softwareDeviceImpl
	desc     render.TargetDesc
	img      *image.NRGBA
	depth    []float64
	scratch  []float64 // depth used when this color target is drawn without the bound depth buffer
	released bool
}

func (t *softwareTarget) Desc() render.TargetDesc {
	return t.desc
}

func (t *softwareTarget) Release() {
	t.dev.mu.Lock()
	defer t.dev.mu.Unlock()
	if t.released {
		return
	}
	t.released = true
	t.img = nil
	t.depth = nil
	t.scratch = nil
	t.dev.live--
	if t.dev.backBuffer == t {
		t.dev.backBuffer = nil
	}
}

// softwareDeviceImpl is the implementation of the Device interface.
type softwareDeviceImpl struct {
	mu         *sync.Mutex
	name       string
	size       common.Size
	live       int
	backBuffer *softwareTarget
	frame      *image.NRGBA
	presents   uint64
	lost       render.DeviceErrorCode
	released   bool
	onPresent  func(frame *image.NRGBA)

	rasters map[image.Point]*fauxgl.Context
	meshes  map[*render.Mesh]*fauxgl.Mesh
	ctx     *softwareContext
}

// Device is a render.Device that draws into CPU memory.
type Device interface {
	render.Device

	// Frame returns a copy of the most recently presented back buffer.
	//
	// Returns:
	//   - *image.NRGBA: the frame, or nil before the first Present
	Frame() *image.NRGBA

	// Presents returns how many frames were presented.
	Presents() uint64

	// LiveTargets returns how many targets are allocated and not released.
	LiveTargets() int

	// SimulateDeviceLoss makes every following Flush and Present fail with code,
	// the way a removed or reset GPU does. The device stays lost until released.
	//
	// Parameters:
	//   - code: the device error code to report
	SimulateDeviceLoss(code render.DeviceErrorCode)
}

var _ Device = &softwareDeviceImpl{}

// NewDevice creates a software device. The size is the initial back buffer
// size; targets of any size may be created afterwards.
//
// Parameters:
//   - size: the back buffer size
//   - options: functional options to configure the device
//
// Returns:
//   - Device: the new device
func NewDevice(size common.Size, options ...DeviceBuilderOption) Device {
	d := &softwareDeviceImpl{
		mu:      &sync.Mutex{},
		name:    "software",
		size:    size,
		rasters: make(map[image.Point]*fauxgl.Context),
		meshes:  make(map[*render.Mesh]*fauxgl.Mesh),
	}
	for _, opt := range options {
		opt(d)
	}
	d.ctx = &softwareContext{mu: &sync.Mutex{}, dev: d}
	return d
}

// Factory returns a render.DeviceFactory creating software devices with options.
func Factory(options ...DeviceBuilderOption) render.DeviceFactory {
	return func(size common.Size) (render.Device, error) {
		return NewDevice(size, options...), nil
	}
}

func (d *softwareDeviceImpl) Name() string {
	return d.name
}

func (d *softwareDeviceImpl) CreateTarget(desc render.TargetDesc) (render.Target, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLocked("create target"); err != nil {
		return nil, err
	}
	if desc.Size.Width <= 0 || desc.Size.Height <= 0 {
		return nil, &render.DeviceError{Op: "create target " + desc.Label, Code: render.DeviceInternalError}
	}
	if desc.BackBuffer && d.backBuffer != nil {
		return nil, &render.DeviceError{Op: "create target " + desc.Label, Code: render.DeviceInternalError}
	}

	t := &softwareTarget{dev: d, desc: desc}
	n := desc.Size.Width * desc.Size.Height
	if desc.Format.IsDepth() {
		t.depth = make([]float64, n)
		fillDepth(t.depth)
	} else {
		t.img = image.NewNRGBA(image.Rect(0, 0, desc.Size.Width, desc.Size.Height))
		t.scratch = make([]float64, n)
		fillDepth(t.scratch)
	}
	if desc.BackBuffer {
		d.backBuffer = t
		d.size = desc.Size
	}
	d.live++
	return t, nil
}

func (d *softwareDeviceImpl) ImmediateContext() render.Context {
	return d.ctx
}

func (d *softwareDeviceImpl) Present(backBuffer render.Target) error {
	d.mu.Lock()
	if err := d.checkLocked("present"); err != nil {
		d.mu.Unlock()
		return err
	}
	t, ok := backBuffer.(*softwareTarget)
	if !ok || t.released || t.img == nil || !t.desc.BackBuffer {
		d.mu.Unlock()
		return &render.DeviceError{Op: "present", Code: render.DeviceInternalError}
	}
	if d.frame == nil || d.frame.Bounds() != t.img.Bounds() {
		d.frame = image.NewNRGBA(t.img.Bounds())
	}
	draw.Draw(d.frame, d.frame.Bounds(), t.img, image.Point{}, draw.Src)
	d.presents++
	hook := d.onPresent
	var frame *image.NRGBA
	if hook != nil {
		frame = cloneImage(d.frame)
	}
	d.mu.Unlock()

	if hook != nil {
		hook(frame)
	}
	return nil
}

func (d *softwareDeviceImpl) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.released = true
	d.rasters = make(map[image.Point]*fauxgl.Context)
	d.meshes = make(map[*render.Mesh]*fauxgl.Mesh)
}

func (d *softwareDeviceImpl) Frame() *image.NRGBA {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.frame == nil {
		return nil
	}
	return cloneImage(d.frame)
}

func (d *softwareDeviceImpl) Presents() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.presents
}

func (d *softwareDeviceImpl) LiveTargets() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live
}

func (d *softwareDeviceImpl) SimulateDeviceLoss(code render.DeviceErrorCode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lost = code
}

func (d *softwareDeviceImpl) check(op string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.checkLocked(op)
}

func (d *softwareDeviceImpl) checkLocked(op string) error {
	if d.lost != 0 {
		return &render.DeviceError{Op: op, Code: d.lost}
	}
	if d.released {
		return &render.DeviceError{Op: op, Code: render.DeviceRemoved}
	}
	return nil
}

// raster returns the fauxgl context for images of size, creating it on first use.
// Its own buffers are replaced by the bound targets before each draw.
func (d *softwareDeviceImpl) raster(size image.Point) *fauxgl.Context {
	d.mu.Lock()
	defer d.mu.Unlock()
	rc, ok := d.rasters[size]
	if !ok {
		rc = fauxgl.NewContext(size.X, size.Y)
		rc.Cull = fauxgl.CullNone
		rc.AlphaBlend = false
		d.rasters[size] = rc
	}
	return rc
}

// mesh converts m to fauxgl triangles once. Meshes are treated as immutable
// after their first draw.
func (d *softwareDeviceImpl) mesh(m *render.Mesh) *fauxgl.Mesh {
	d.mu.Lock()
	defer d.mu.Unlock()
	if fm, ok := d.meshes[m]; ok {
		return fm
	}
	tris := make([]*fauxgl.Triangle, 0, m.Triangles())
	vertex := func(i uint32) fauxgl.Vertex {
		v := fauxgl.Vertex{Position: toVector(m.Positions[i]), Color: fauxgl.Gray(1)}
		if int(i) < len(m.Normals) {
			v.Normal = toVector(m.Normals[i])
		}
		return v
	}
	for i := 0; i+2 < len(m.Indices); i += 3 {
		tris = append(tris, &fauxgl.Triangle{
			V1: vertex(m.Indices[i]),
			V2: vertex(m.Indices[i+1]),
			V3: vertex(m.Indices[i+2]),
		})
	}
	fm := fauxgl.NewTriangleMesh(tris)
	d.meshes[m] = fm
	return fm
}

func fillDepth(buf []float64) {
	for i := range buf {
		buf[i] = 1
	}
}

func cloneImage(src *image.NRGBA) *image.NRGBA {
	dst := image.NewNRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}
