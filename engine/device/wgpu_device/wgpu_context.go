package wgpu_device

import (
	"image"
	"sync"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/camera"
	"github.com/Carmen-Shannon/oxy-view/engine/light"
	"github.com/Carmen-Shannon/oxy-view/engine/render"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

type releaser interface {
	Release()
}

// gpuContext encodes commands into one command encoder per frame. Draws share a
// render pass until the bound targets change; clears, copies and resolves run in
// passes of their own. Failures are kept and returned by the next Flush.
type gpuContext struct {
	mu  *sync.Mutex
	dev *wgpuDeviceImpl

	depth    *gpuTarget
	colors   []*gpuTarget
	inputs   []*gpuTarget
	viewport image.Rectangle
	blend    render.BlendMode
	fc       render.FrameConstants

	frameGroup *wgpu.BindGroup
	encoder    *wgpu.CommandEncoder
	pass       *wgpu.RenderPassEncoder
	transient  []releaser
	err        error
}

var _ render.Context = &gpuContext{}

func newGPUContext(dev *wgpuDeviceImpl) *gpuContext {
	return &gpuContext{mu: &sync.Mutex{}, dev: dev}
}

func asTarget(t render.Target) *gpuTarget {
	gt, ok := t.(*gpuTarget)
	if !ok || gt == nil || gt.isReleased() {
		return nil
	}
	return gt
}

func (c *gpuContext) fail(op string, err error) {
	if c.err == nil && err != nil {
		c.err = classify(op, err)
	}
}

func (c *gpuContext) ensureEncoder() bool {
	if c.encoder != nil {
		return true
	}
	encoder, err := c.dev.device.CreateCommandEncoder(nil)
	if err != nil {
		c.fail("create command encoder", err)
		return false
	}
	c.encoder = encoder
	return true
}

func (c *gpuContext) endPass() {
	if c.pass == nil {
		return
	}
	c.pass.End()
	c.pass = nil
}

func colorAttachment(t *gpuTarget, load wgpu.LoadOp, clear common.Color) wgpu.RenderPassColorAttachment {
	return wgpu.RenderPassColorAttachment{
		View:       t.view,
		LoadOp:     load,
		StoreOp:    wgpu.StoreOpStore,
		ClearValue: wgpu.Color{R: float64(clear.R), G: float64(clear.G), B: float64(clear.B), A: float64(clear.A)},
	}
}

func depthAttachment(t *gpuTarget, load wgpu.LoadOp, depth float32) *wgpu.RenderPassDepthStencilAttachment {
	a := &wgpu.RenderPassDepthStencilAttachment{
		View:            t.view,
		DepthLoadOp:     load,
		DepthStoreOp:    wgpu.StoreOpStore,
		DepthClearValue: depth,
	}
	if t.hasStencil() {
		a.StencilLoadOp = load
		a.StencilStoreOp = wgpu.StoreOpStore
	}
	return a
}

// beginPass opens a render pass on the bound targets, keeping their contents.
func (c *gpuContext) beginPass() bool {
	if c.pass != nil {
		return true
	}
	if !c.ensureEncoder() {
		return false
	}
	desc := &wgpu.RenderPassDescriptor{}
	for _, t := range c.colors {
		desc.ColorAttachments = append(desc.ColorAttachments, colorAttachment(t, wgpu.LoadOpLoad, common.Color{}))
	}
	if c.depth != nil {
		desc.DepthStencilAttachment = depthAttachment(c.depth, wgpu.LoadOpLoad, 1)
	}
	c.pass = c.encoder.BeginRenderPass(desc)
	c.applyViewport()
	return true
}

func (c *gpuContext) attachmentBounds() image.Rectangle {
	var size common.Size
	switch {
	case len(c.colors) > 0:
		size = c.colors[0].desc.Size
	case c.depth != nil:
		size = c.depth.desc.Size
	}
	return image.Rect(0, 0, size.Width, size.Height)
}

func (c *gpuContext) applyViewport() {
	if c.pass == nil {
		return
	}
	r := c.attachmentBounds()
	if !c.viewport.Empty() {
		r = r.Intersect(c.viewport)
	}
	if r.Empty() {
		return
	}
	c.pass.SetViewport(float32(r.Min.X), float32(r.Min.Y), float32(r.Dx()), float32(r.Dy()), 0, 1)
}

func (c *gpuContext) SetRenderTargets(depth render.Target, colors ...render.Target) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endPass()
	c.depth = asTarget(depth)
	c.colors = c.colors[:0]
	for _, t := range colors {
		if gt := asTarget(t); gt != nil {
			c.colors = append(c.colors, gt)
		}
	}
}

func (c *gpuContext) SetShaderResources(inputs ...render.Target) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inputs = c.inputs[:0]
	for _, t := range inputs {
		c.inputs = append(c.inputs, asTarget(t))
	}
}

func (c *gpuContext) SetViewport(r image.Rectangle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewport = r
	c.applyViewport()
}

func (c *gpuContext) SetBlendMode(m render.BlendMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blend = m
}

func (c *gpuContext) SetFrameConstants(fc render.FrameConstants) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fc = fc
	c.frameGroup = nil
}

// bindFrame uploads the camera, lights and scene parameters and returns a
// group 0 bind group holding them.
func (c *gpuContext) bindFrame(lights []light.Params) *wgpu.BindGroup {
	cam := camera.NewGPUCameraUniform(c.fc.ViewProjection, c.fc.EyePosition)
	buffers := []struct {
		label string
		usage wgpu.BufferUsage
		data  []byte
	}{
		{"camera", wgpu.BufferUsageUniform, cam.Marshal()},
		{"lights", wgpu.BufferUsageStorage, padLightBuffer(light.MarshalLightBuffer(lights, common.Color{}))},
		{"frame params", wgpu.BufferUsageUniform, packFrameParams(c.fc)},
	}
	entries := make([]wgpu.BindGroupEntry, len(buffers))
	for i, b := range buffers {
		buf, err := c.dev.upload(b.label, b.usage, b.data)
		if err != nil {
			c.fail("upload "+b.label, err)
			return nil
		}
		c.transient = append(c.transient, buf)
		entries[i] = wgpu.BindGroupEntry{Binding: uint32(i), Buffer: buf, Size: wgpu.WholeSize}
	}
	group, err := c.dev.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "frame",
		Layout:  c.dev.pipelines.frameLayout,
		Entries: entries,
	})
	if err != nil {
		c.fail("create frame bind group", err)
		return nil
	}
	c.transient = append(c.transient, group)
	return group
}

func (c *gpuContext) key(kind pipelineKind) pipelineKey {
	k := pipelineKey{kind: kind, samples: 1}
	for i, t := range c.colors {
		if i == len(k.colors) {
			break
		}
		k.colors[i] = t.format
		k.count++
		k.samples = t.samples
	}
	if c.depth != nil {
		k.depth = c.depth.format
		k.samples = c.depth.samples
	}
	return k
}

func (c *gpuContext) ClearRenderTarget(t render.Target, col common.Color) {
	c.mu.Lock()
	defer c.mu.Unlock()
	gt := asTarget(t)
	if gt == nil || gt.desc.Format.IsDepth() {
		return
	}
	c.endPass()
	if !c.ensureEncoder() {
		return
	}
	pass := c.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{colorAttachment(gt, wgpu.LoadOpClear, col)},
	})
	pass.End()
}

func (c *gpuContext) ClearDepthStencil(t render.Target, depth float32, _ uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	gt := asTarget(t)
	if gt == nil || !gt.desc.Format.IsDepth() {
		return
	}
	c.endPass()
	if !c.ensureEncoder() {
		return
	}
	pass := c.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		DepthStencilAttachment: depthAttachment(gt, wgpu.LoadOpClear, common.Clamp(depth, 0, 1)),
	})
	pass.End()
}

func (c *gpuContext) DrawMesh(m *render.Mesh, world mgl32.Mat4, mat render.Material) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m == nil || m.Triangles() == 0 || c.err != nil {
		return
	}
	kind := kindForward
	switch {
	case len(c.colors) == 0 && c.depth == nil:
		return
	case len(c.colors) == 0:
		kind = kindDepth
	case len(c.colors) > 1:
		kind = kindGBuffer
	}

	pipeline, err := c.dev.pipelines.get(c.key(kind))
	if err != nil {
		c.fail("draw mesh", err)
		return
	}
	mb, err := c.dev.mesh(m)
	if err != nil {
		c.fail("draw mesh", err)
		return
	}
	instance, err := c.dev.upload("instance", wgpu.BufferUsageVertex, packInstance(world, mat))
	if err != nil {
		c.fail("draw mesh", err)
		return
	}
	c.transient = append(c.transient, instance)
	if c.frameGroup == nil {
		if c.frameGroup = c.bindFrame(c.fc.Lights); c.frameGroup == nil {
			return
		}
	}
	if !c.beginPass() {
		return
	}

	c.pass.SetPipeline(pipeline)
	c.pass.SetBindGroup(0, c.frameGroup, nil)
	c.pass.SetVertexBuffer(0, mb.vertices, 0, wgpu.WholeSize)
	c.pass.SetVertexBuffer(1, instance, 0, wgpu.WholeSize)
	c.pass.SetIndexBuffer(mb.indices, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	c.pass.DrawIndexed(mb.indexCount, 1, 0, 0, 0)
}

// DrawProxy shades the viewport with one light batch. Every light in the batch
// is evaluated per texel in a single full-screen draw; lights contribute nothing
// outside their range, which is the area the proxy volume would cover.
func (c *gpuContext) DrawProxy(kind render.ProxyKind, instances []render.ProxyInstance) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.colors) == 0 || len(c.inputs) < 4 || len(instances) == 0 || c.err != nil {
		return
	}
	for _, in := range c.inputs[:4] {
		if in == nil {
			return
		}
	}

	pk := kindLightingOpaque
	if c.blend == render.BlendAdditive {
		pk = kindLightingAdditive
	}
	pipeline, err := c.dev.pipelines.get(c.key(pk))
	if err != nil {
		c.fail("draw proxy "+kind.String(), err)
		return
	}

	lights := make([]light.Params, len(instances))
	for i, inst := range instances {
		lights[i] = inst.Light
	}
	frame := c.bindFrame(lights)
	if frame == nil {
		return
	}
	entries := make([]wgpu.BindGroupEntry, 4)
	for i, in := range c.inputs[:4] {
		entries[i] = wgpu.BindGroupEntry{Binding: uint32(i), TextureView: in.view}
	}
	gbuffer, err := c.dev.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "gbuffer",
		Layout:  c.dev.pipelines.gbufferLayout,
		Entries: entries,
	})
	if err != nil {
		c.fail("draw proxy "+kind.String(), err)
		return
	}
	c.transient = append(c.transient, gbuffer)
	if !c.beginPass() {
		return
	}

	c.pass.SetPipeline(pipeline)
	c.pass.SetBindGroup(0, frame, nil)
	c.pass.SetBindGroup(1, gbuffer, nil)
	c.pass.Draw(3, 1, 0, 0)
}

// CopyRegion blends src's srcRect over dst's dstRect, scaling with nearest
// sampling when the sizes differ.
func (c *gpuContext) CopyRegion(dst render.Target, dstRect image.Rectangle, src render.Target, srcRect image.Rectangle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, s := asTarget(dst), asTarget(src)
	if d == nil || s == nil || d.desc.Format.IsDepth() || s.desc.Format.IsDepth() || s.samples > 1 || c.err != nil {
		return
	}
	dstRect = dstRect.Intersect(image.Rect(0, 0, d.desc.Size.Width, d.desc.Size.Height))
	if dstRect.Empty() || srcRect.Empty() {
		return
	}
	c.endPass()

	params, err := c.dev.upload("blit params", wgpu.BufferUsageUniform, packBlitParams(dstRect, srcRect))
	if err != nil {
		c.fail("copy region", err)
		return
	}
	c.transient = append(c.transient, params)
	group, err := c.dev.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "blit",
		Layout: c.dev.pipelines.blitLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: s.view},
			{Binding: 1, Buffer: params, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		c.fail("copy region", err)
		return
	}
	c.transient = append(c.transient, group)
	key := pipelineKey{kind: kindBlit, count: 1, samples: d.samples}
	key.colors[0] = d.format
	pipeline, err := c.dev.pipelines.get(key)
	if err != nil {
		c.fail("copy region", err)
		return
	}
	if !c.ensureEncoder() {
		return
	}

	pass := c.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{colorAttachment(d, wgpu.LoadOpLoad, common.Color{})},
	})
	pass.SetViewport(float32(dstRect.Min.X), float32(dstRect.Min.Y), float32(dstRect.Dx()), float32(dstRect.Dy()), 0, 1)
	pass.SetScissorRect(uint32(dstRect.Min.X), uint32(dstRect.Min.Y), uint32(dstRect.Dx()), uint32(dstRect.Dy()))
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, group, nil)
	pass.Draw(3, 1, 0, 0)
	pass.End()
}

// Resolve runs an empty pass on the multisampled src with dst as its resolve target.
func (c *gpuContext) Resolve(dst, src render.Target) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, s := asTarget(dst), asTarget(src)
	if d == nil || s == nil || s.samples <= 1 || d.format != s.format {
		return
	}
	c.endPass()
	if !c.ensureEncoder() {
		return
	}
	pass := c.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:          s.view,
			ResolveTarget: d.view,
			LoadOp:        wgpu.LoadOpLoad,
			StoreOp:       wgpu.StoreOpDiscard,
		}},
	})
	pass.End()
}

// Flush submits the encoded frame and frees its transient buffers.
func (c *gpuContext) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endPass()

	if c.encoder != nil && c.err == nil {
		commandBuffer, err := c.encoder.Finish(nil)
		if err != nil {
			c.fail("flush", err)
		} else {
			c.dev.queue.Submit(commandBuffer)
			commandBuffer.Release()
		}
	}
	err := c.err
	c.resetLocked()
	return err
}

func (c *gpuContext) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endPass()
	c.resetLocked()
}

func (c *gpuContext) resetLocked() {
	if c.encoder != nil {
		c.encoder.Release()
		c.encoder = nil
	}
	for _, r := range c.transient {
		r.Release()
	}
	c.transient = c.transient[:0]
	c.frameGroup = nil
	c.err = nil
}
