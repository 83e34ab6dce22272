package wgpu_device

import (
	"github.com/Carmen-Shannon/oxy-view/engine/render"
	"github.com/cogentcore/webgpu/wgpu"
)

// gpuTarget is a render target texture and its default view.
type gpuTarget struct {
	dev      *wgpuDeviceImpl
	desc     render.TargetDesc
	texture  *wgpu.Texture
	view     *wgpu.TextureView
	format   wgpu.TextureFormat
	samples  uint32
	released bool
}

func (t *gpuTarget) Desc() render.TargetDesc {
	return t.desc
}

func (t *gpuTarget) Release() {
	t.dev.mu.Lock()
	defer t.dev.mu.Unlock()
	if t.released {
		return
	}
	t.released = true
	t.view.Release()
	t.texture.Release()
	t.dev.live--
	if t.dev.backBuffer == t {
		t.dev.backBuffer = nil
	}
}

func (t *gpuTarget) isReleased() bool {
	t.dev.mu.Lock()
	defer t.dev.mu.Unlock()
	return t.released
}

func (t *gpuTarget) hasStencil() bool {
	return t.format == wgpu.TextureFormatDepth24PlusStencil8
}
