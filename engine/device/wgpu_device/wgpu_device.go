// Package wgpu_device implements render.Device on WebGPU.
package wgpu_device

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/render"
	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuDeviceImpl is the implementation of the Device interface.
type wgpuDeviceImpl struct {
	mu     *sync.Mutex
	label  string
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceDescriptor    *wgpu.SurfaceDescriptor
	forceFallbackAdapter bool
	presentMode          wgpu.PresentMode
	colorFormat          wgpu.TextureFormat
	alphaMode            wgpu.CompositeAlphaMode

	size       common.Size
	backBuffer *gpuTarget
	live       int
	presents   uint64
	released   bool

	pipelines *pipelineCache
	meshes    map[*render.Mesh]*meshBuffers
	ctx       *gpuContext
}

// Device is a render.Device backed by a WebGPU adapter.
type Device interface {
	render.Device

	// Device returns the underlying WebGPU device.
	Device() *wgpu.Device

	// Queue returns the device queue.
	Queue() *wgpu.Queue

	// Surface returns the window surface, or nil for an offscreen device.
	Surface() *wgpu.Surface

	// ColorFormat returns the texture format used for RGBA8 targets. It matches
	// the surface format so the back buffer can be copied onto the surface.
	ColorFormat() wgpu.TextureFormat

	// LiveTargets returns how many targets are allocated and not released.
	LiveTargets() int

	// Presents returns how many frames were presented.
	Presents() uint64
}

var _ Device = &wgpuDeviceImpl{}

// NewDevice creates a WebGPU instance, adapter and device. With a surface
// descriptor the surface is configured to size; without one the device renders
// offscreen and Present only submits.
//
// Parameters:
//   - size: the initial back buffer size
//   - options: functional options to configure the device
//
// Returns:
//   - Device: the new device
//   - error: a *render.DeviceError if no adapter or device could be obtained
func NewDevice(size common.Size, options ...DeviceBuilderOption) (Device, error) {
	runtime.LockOSThread()
	d := &wgpuDeviceImpl{
		mu:          &sync.Mutex{},
		label:       "oxy-view",
		presentMode: wgpu.PresentModeFifo,
		colorFormat: wgpu.TextureFormatRGBA8Unorm,
		size:        size,
		meshes:      make(map[*render.Mesh]*meshBuffers),
	}
	for _, opt := range options {
		opt(d)
	}

	d.instance = wgpu.CreateInstance(nil)
	if d.surfaceDescriptor != nil {
		d.surface = d.instance.CreateSurface(d.surfaceDescriptor)
	}

	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallbackAdapter,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		d.Release()
		return nil, &render.DeviceError{Op: "request adapter", Code: render.DeviceInternalError, Err: err}
	}
	d.adapter = a

	limits := wgpu.DefaultLimits()
	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: d.label,
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		d.Release()
		return nil, &render.DeviceError{Op: "request device", Code: render.DeviceInternalError, Err: err}
	}
	d.device = dev
	d.queue = dev.GetQueue()

	if d.surface != nil {
		caps := d.surface.GetCapabilities(d.adapter)
		if len(caps.Formats) == 0 {
			d.Release()
			return nil, &render.DeviceError{Op: "configure surface", Code: render.DeviceInternalError, Err: errors.New("surface reports no formats")}
		}
		d.colorFormat = caps.Formats[0]
		d.alphaMode = caps.AlphaModes[0]
	}

	d.pipelines, err = newPipelineCache(d.device)
	if err != nil {
		d.Release()
		return nil, classify("create pipelines", err)
	}
	d.ctx = newGPUContext(d)
	return d, nil
}

// Factory returns a render.DeviceFactory creating WebGPU devices with options.
func Factory(options ...DeviceBuilderOption) render.DeviceFactory {
	return func(size common.Size) (render.Device, error) {
		return NewDevice(size, options...)
	}
}

func (d *wgpuDeviceImpl) Name() string {
	return d.label
}

func (d *wgpuDeviceImpl) Device() *wgpu.Device {
	return d.device
}

func (d *wgpuDeviceImpl) Queue() *wgpu.Queue {
	return d.queue
}

func (d *wgpuDeviceImpl) Surface() *wgpu.Surface {
	return d.surface
}

func (d *wgpuDeviceImpl) ColorFormat() wgpu.TextureFormat {
	return d.colorFormat
}

func (d *wgpuDeviceImpl) LiveTargets() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live
}

func (d *wgpuDeviceImpl) Presents() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.presents
}

func (d *wgpuDeviceImpl) CreateTarget(desc render.TargetDesc) (render.Target, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	op := "create target " + desc.Label
	if d.released {
		return nil, &render.DeviceError{Op: op, Code: render.DeviceRemoved}
	}
	if desc.Size.Width <= 0 || desc.Size.Height <= 0 {
		return nil, &render.DeviceError{Op: op, Code: render.DeviceInternalError, Err: fmt.Errorf("invalid size %dx%d", desc.Size.Width, desc.Size.Height)}
	}
	if desc.BackBuffer && d.backBuffer != nil {
		return nil, &render.DeviceError{Op: op, Code: render.DeviceInternalError, Err: errors.New("back buffer already exists")}
	}

	format := textureFormat(desc.Format, d.colorFormat)
	samples := uint32(max(desc.Samples, 1))
	usage := wgpu.TextureUsageRenderAttachment
	if samples == 1 {
		usage |= wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopySrc | wgpu.TextureUsageCopyDst
	}

	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Label,
		Size: wgpu.Extent3D{
			Width:              uint32(desc.Size.Width),
			Height:             uint32(desc.Size.Height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   samples,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, classify(op, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, classify(op, err)
	}

	t := &gpuTarget{dev: d, desc: desc, texture: tex, view: view, format: format, samples: samples}
	if desc.BackBuffer {
		d.configureSurfaceLocked(desc.Size)
		d.backBuffer = t
		d.size = desc.Size
	}
	d.live++
	return t, nil
}

// configureSurfaceLocked sizes the surface to match a new back buffer.
func (d *wgpuDeviceImpl) configureSurfaceLocked(size common.Size) {
	if d.surface == nil {
		return
	}
	d.surface.Configure(d.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopyDst,
		Format:      d.colorFormat,
		Width:       uint32(size.Width),
		Height:      uint32(size.Height),
		PresentMode: d.presentMode,
		AlphaMode:   d.alphaMode,
	})
}

func (d *wgpuDeviceImpl) ImmediateContext() render.Context {
	return d.ctx
}

// Present copies the back buffer onto the current surface texture and
// presents it. Offscreen devices only count the frame.
func (d *wgpuDeviceImpl) Present(backBuffer render.Target) error {
	t, ok := backBuffer.(*gpuTarget)
	if !ok || t.isReleased() || !t.desc.BackBuffer {
		return &render.DeviceError{Op: "present", Code: render.DeviceInternalError, Err: errors.New("not a live back buffer")}
	}
	if err := d.ctx.Flush(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return &render.DeviceError{Op: "present", Code: render.DeviceRemoved}
	}
	if d.surface == nil {
		d.presents++
		return nil
	}

	surfaceTexture, err := d.surface.GetCurrentTexture()
	if err != nil {
		return classify("present", err)
	}
	defer surfaceTexture.Release()

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return classify("present", err)
	}
	defer encoder.Release()
	encoder.CopyTextureToTexture(
		&wgpu.ImageCopyTexture{Texture: t.texture, Aspect: wgpu.TextureAspectAll},
		&wgpu.ImageCopyTexture{Texture: surfaceTexture, Aspect: wgpu.TextureAspectAll},
		&wgpu.Extent3D{Width: uint32(t.desc.Size.Width), Height: uint32(t.desc.Size.Height), DepthOrArrayLayers: 1},
	)
	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return classify("present", err)
	}
	d.queue.Submit(commandBuffer)
	commandBuffer.Release()

	d.surface.Present()
	d.presents++
	return nil
}

func (d *wgpuDeviceImpl) Release() {
	if d.ctx != nil {
		d.ctx.reset()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return
	}
	d.released = true

	for m, b := range d.meshes {
		b.release()
		delete(d.meshes, m)
	}
	if d.pipelines != nil {
		d.pipelines.release()
	}
	if d.device != nil {
		d.device.Release()
	}
	if d.adapter != nil {
		d.adapter.Release()
	}
	if d.surface != nil {
		d.surface.Release()
	}
	if d.instance != nil {
		d.instance.Release()
	}
}

// meshBuffers are the uploaded vertex and index buffers of one render.Mesh.
type meshBuffers struct {
	vertices   *wgpu.Buffer
	indices    *wgpu.Buffer
	indexCount uint32
}

func (b *meshBuffers) release() {
	b.vertices.Release()
	b.indices.Release()
}

// mesh uploads m once. Meshes are treated as immutable after their first draw.
func (d *wgpuDeviceImpl) mesh(m *render.Mesh) (*meshBuffers, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.meshes[m]; ok {
		return b, nil
	}

	vertices, err := d.uploadLocked("mesh vertices", wgpu.BufferUsageVertex, packVertices(m))
	if err != nil {
		return nil, err
	}
	indices, err := d.uploadLocked("mesh indices", wgpu.BufferUsageIndex, packIndices(m))
	if err != nil {
		vertices.Release()
		return nil, err
	}
	b := &meshBuffers{vertices: vertices, indices: indices, indexCount: uint32(len(m.Indices))}
	d.meshes[m] = b
	return b, nil
}

// upload creates a buffer holding data.
func (d *wgpuDeviceImpl) upload(label string, usage wgpu.BufferUsage, data []byte) (*wgpu.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.uploadLocked(label, usage, data)
}

func (d *wgpuDeviceImpl) uploadLocked(label string, usage wgpu.BufferUsage, data []byte) (*wgpu.Buffer, error) {
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, classify("create buffer "+label, err)
	}
	d.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}

// textureFormat maps a render format to a WebGPU texture format. RGBA8 targets
// use the device color format.
func textureFormat(f render.Format, color wgpu.TextureFormat) wgpu.TextureFormat {
	switch f {
	case render.FormatRGBA16F:
		return wgpu.TextureFormatRGBA16Float
	case render.FormatDepth24Stencil8:
		return wgpu.TextureFormatDepth24PlusStencil8
	case render.FormatDepth32F:
		return wgpu.TextureFormatDepth32Float
	}
	return color
}

// classify wraps a WebGPU error into a *render.DeviceError. Errors mentioning a
// lost device or surface are reported as removed or reset so the render host
// recreates the device.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *render.DeviceError
	if errors.As(err, &de) {
		return err
	}
	msg := strings.ToLower(err.Error())
	code := render.DeviceInternalError
	switch {
	case strings.Contains(msg, "device") && strings.Contains(msg, "lost"):
		code = render.DeviceRemoved
	case strings.Contains(msg, "lost"), strings.Contains(msg, "outdated"):
		code = render.DeviceReset
	}
	return &render.DeviceError{Op: op, Code: code, Err: err}
}
