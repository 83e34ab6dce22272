package wgpu_device

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// pipelineKind selects the shader entry points and fixed-function state of a
// pipeline.
type pipelineKind int

const (
	kindForward pipelineKind = iota
	kindGBuffer
	kindDepth
	kindLightingOpaque
	kindLightingAdditive
	kindBlit
)

func (k pipelineKind) String() string {
	switch k {
	case kindForward:
		return "forward"
	case kindGBuffer:
		return "gbuffer"
	case kindDepth:
		return "depth"
	case kindLightingOpaque:
		return "lighting-opaque"
	case kindLightingAdditive:
		return "lighting-additive"
	}
	return "blit"
}

// pipelineKey identifies a pipeline by kind and the attachments it renders to.
type pipelineKey struct {
	kind    pipelineKind
	colors  [4]wgpu.TextureFormat
	count   int
	depth   wgpu.TextureFormat
	samples uint32
}

// pipelineCache owns the shader modules, bind group layouts and every render
// pipeline created so far.
type pipelineCache struct {
	mu     *sync.Mutex
	device *wgpu.Device

	frameLayout   *wgpu.BindGroupLayout
	gbufferLayout *wgpu.BindGroupLayout
	blitLayout    *wgpu.BindGroupLayout

	meshPipelineLayout     *wgpu.PipelineLayout
	lightingPipelineLayout *wgpu.PipelineLayout
	blitPipelineLayout     *wgpu.PipelineLayout

	meshModule     *wgpu.ShaderModule
	lightingModule *wgpu.ShaderModule
	blitModule     *wgpu.ShaderModule

	pipelines map[pipelineKey]*wgpu.RenderPipeline
}

func newPipelineCache(device *wgpu.Device) (*pipelineCache, error) {
	c := &pipelineCache{
		mu:        &sync.Mutex{},
		device:    device,
		pipelines: make(map[pipelineKey]*wgpu.RenderPipeline),
	}
	if err := c.init(); err != nil {
		c.release()
		return nil, err
	}
	return c, nil
}

func (c *pipelineCache) init() error {
	var err error
	if c.meshModule, err = c.module("mesh", meshSource); err != nil {
		return err
	}
	if c.lightingModule, err = c.module("lighting", lightingSource); err != nil {
		return err
	}
	if c.blitModule, err = c.module("blit", blitSource); err != nil {
		return err
	}

	stages := wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
	c.frameLayout, err = c.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "frame",
		Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: stages, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: stages, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage}},
			{Binding: 2, Visibility: stages, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create frame bind group layout: %w", err)
	}

	textures := make([]wgpu.BindGroupLayoutEntry, 4)
	for i := range textures {
		textures[i] = wgpu.BindGroupLayoutEntry{
			Binding:    uint32(i),
			Visibility: wgpu.ShaderStageFragment,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeUnfilterableFloat,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		}
	}
	c.gbufferLayout, err = c.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{Label: "gbuffer", Entries: textures})
	if err != nil {
		return fmt.Errorf("failed to create gbuffer bind group layout: %w", err)
	}

	c.blitLayout, err = c.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "blit",
		Entries: []wgpu.BindGroupLayoutEntry{
			textures[0],
			{Binding: 1, Visibility: wgpu.ShaderStageFragment, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create blit bind group layout: %w", err)
	}

	if c.meshPipelineLayout, err = c.pipelineLayout("mesh", c.frameLayout); err != nil {
		return err
	}
	if c.lightingPipelineLayout, err = c.pipelineLayout("lighting", c.frameLayout, c.gbufferLayout); err != nil {
		return err
	}
	if c.blitPipelineLayout, err = c.pipelineLayout("blit", c.blitLayout); err != nil {
		return err
	}
	return nil
}

func (c *pipelineCache) module(label, source string) (*wgpu.ShaderModule, error) {
	m, err := c.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: source,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s shader module: %w", label, err)
	}
	return m, nil
}

func (c *pipelineCache) pipelineLayout(label string, groups ...*wgpu.BindGroupLayout) (*wgpu.PipelineLayout, error) {
	l, err := c.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: groups,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s pipeline layout: %w", label, err)
	}
	return l, nil
}

// get returns the pipeline for key, creating it on first use.
func (c *pipelineCache) get(key pipelineKey) (*wgpu.RenderPipeline, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.pipelines[key]; ok {
		return p, nil
	}
	p, err := c.device.CreateRenderPipeline(c.descriptor(key))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s pipeline: %w", key.kind, err)
	}
	c.pipelines[key] = p
	return p, nil
}

var (
	additiveBlend = &wgpu.BlendState{
		Color: wgpu.BlendComponent{Operation: wgpu.BlendOperationAdd, SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOne},
		Alpha: wgpu.BlendComponent{Operation: wgpu.BlendOperationAdd, SrcFactor: wgpu.BlendFactorZero, DstFactor: wgpu.BlendFactorOne},
	}
	overBlend = &wgpu.BlendState{
		Color: wgpu.BlendComponent{Operation: wgpu.BlendOperationAdd, SrcFactor: wgpu.BlendFactorSrcAlpha, DstFactor: wgpu.BlendFactorOneMinusSrcAlpha},
		Alpha: wgpu.BlendComponent{Operation: wgpu.BlendOperationAdd, SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOneMinusSrcAlpha},
	}
)

func meshVertexLayouts() []wgpu.VertexBufferLayout {
	instance := make([]wgpu.VertexAttribute, 6)
	for i := range instance {
		instance[i] = wgpu.VertexAttribute{
			Format:         wgpu.VertexFormatFloat32x4,
			Offset:         uint64(i * 16),
			ShaderLocation: uint32(i + 2),
		}
	}
	return []wgpu.VertexBufferLayout{
		{
			ArrayStride: vertexStride,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{
				{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
				{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
			},
		},
		{
			ArrayStride: instanceStride,
			StepMode:    wgpu.VertexStepModeInstance,
			Attributes:  instance,
		},
	}
}

func (c *pipelineCache) descriptor(key pipelineKey) *wgpu.RenderPipelineDescriptor {
	desc := &wgpu.RenderPipelineDescriptor{
		Label: key.kind.String(),
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: max(key.samples, 1),
			Mask:  0xFFFFFFFF,
		},
	}

	var (
		module *wgpu.ShaderModule
		entry  string
		blend  *wgpu.BlendState
	)
	switch key.kind {
	case kindForward, kindGBuffer, kindDepth:
		desc.Layout = c.meshPipelineLayout
		desc.Vertex = wgpu.VertexState{Module: c.meshModule, EntryPoint: "vs_main", Buffers: meshVertexLayouts()}
		module = c.meshModule
		entry = "fs_forward"
		if key.kind == kindGBuffer {
			entry = "fs_gbuffer"
		}
	case kindLightingOpaque, kindLightingAdditive:
		desc.Layout = c.lightingPipelineLayout
		desc.Vertex = wgpu.VertexState{Module: c.lightingModule, EntryPoint: "vs_fullscreen"}
		module = c.lightingModule
		entry = "fs_lighting_opaque"
		if key.kind == kindLightingAdditive {
			entry = "fs_lighting_additive"
			blend = additiveBlend
		}
	default:
		desc.Layout = c.blitPipelineLayout
		desc.Vertex = wgpu.VertexState{Module: c.blitModule, EntryPoint: "vs_fullscreen"}
		module = c.blitModule
		entry = "fs_blit"
		blend = overBlend
	}

	if key.kind != kindDepth && key.count > 0 {
		targets := make([]wgpu.ColorTargetState, key.count)
		for i := range targets {
			targets[i] = wgpu.ColorTargetState{Format: key.colors[i], Blend: blend, WriteMask: wgpu.ColorWriteMaskAll}
		}
		desc.Fragment = &wgpu.FragmentState{Module: module, EntryPoint: entry, Targets: targets}
	}

	if key.depth != wgpu.TextureFormatUndefined {
		desc.DepthStencil = &wgpu.DepthStencilState{
			Format:            key.depth,
			DepthWriteEnabled: key.kind == kindForward || key.kind == kindGBuffer || key.kind == kindDepth,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		}
	}
	return desc
}

func (c *pipelineCache) release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, p := range c.pipelines {
		p.Release()
		delete(c.pipelines, k)
	}
	for _, l := range []*wgpu.PipelineLayout{c.meshPipelineLayout, c.lightingPipelineLayout, c.blitPipelineLayout} {
		if l != nil {
			l.Release()
		}
	}
	for _, l := range []*wgpu.BindGroupLayout{c.frameLayout, c.gbufferLayout, c.blitLayout} {
		if l != nil {
			l.Release()
		}
	}
	for _, m := range []*wgpu.ShaderModule{c.meshModule, c.lightingModule, c.blitModule} {
		if m != nil {
			m.Release()
		}
	}
}
