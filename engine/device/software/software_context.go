package software

import (
	"image"
	"image/color"
	"sync"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/render"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/draw"
)

// softwareContext executes commands immediately against CPU images.
type softwareContext struct {
	mu       *sync.Mutex
	dev      *softwareDeviceImpl
	depth    *softwareTarget
	colors   []*softwareTarget
	inputs   []*softwareTarget
	viewport image.Rectangle
	blend    render.BlendMode
	fc       render.FrameConstants
}

var _ render.Context = &softwareContext{}

func asTarget(t render.Target) *softwareTarget {
	st, ok := t.(*softwareTarget)
	if !ok || st == nil || st.released {
		return nil
	}
	return st
}

func (c *softwareContext) SetRenderTargets(depth render.Target, colors ...render.Target) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.depth = asTarget(depth)
	c.colors = c.colors[:0]
	for _, t := range colors {
		if st := asTarget(t); st != nil && st.img != nil {
			c.colors = append(c.colors, st)
		}
	}
}

func (c *softwareContext) SetShaderResources(inputs ...render.Target) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inputs = c.inputs[:0]
	for _, t := range inputs {
		c.inputs = append(c.inputs, asTarget(t))
	}
}

func (c *softwareContext) SetViewport(r image.Rectangle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewport = r
}

func (c *softwareContext) SetBlendMode(m render.BlendMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blend = m
}

func (c *softwareContext) SetFrameConstants(fc render.FrameConstants) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fc = fc
}

func (c *softwareContext) ClearRenderTarget(t render.Target, col common.Color) {
	st := asTarget(t)
	if st == nil || st.img == nil {
		return
	}
	draw.Draw(st.img, st.img.Bounds(), image.NewUniform(col.NRGBA()), image.Point{}, draw.Src)
	fillDepth(st.scratch)
}

func (c *softwareContext) ClearDepthStencil(t render.Target, depth float32, _ uint8) {
	st := asTarget(t)
	if st == nil || st.depth == nil {
		return
	}
	d := float64(common.Clamp(depth, 0, 1))
	for i := range st.depth {
		st.depth[i] = d
	}
}

func (c *softwareContext) DrawMesh(m *render.Mesh, world mgl32.Mat4, mat render.Material) {
	if m == nil || m.Triangles() == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var size image.Point
	switch {
	case len(c.colors) > 0:
		size = c.colors[0].img.Bounds().Size()
	case c.depth != nil:
		size = image.Pt(c.depth.desc.Size.Width, c.depth.desc.Size.Height)
	default:
		return
	}

	xf := newTransform(c.fc.ViewProjection, world)
	fm := c.dev.mesh(m)
	rc := c.dev.raster(size)
	rc.ReadDepth = true
	rc.WriteDepth = true

	depthFits := c.depth != nil && len(c.depth.depth) == size.X*size.Y
	if len(c.colors) == 0 {
		if !depthFits {
			return
		}
		rc.WriteColor = false
		rc.DepthBuffer = c.depth.depth
		rc.Shader = &depthShader{transform: xf}
		rc.DrawMesh(fm)
		return
	}

	rc.WriteColor = true
	for i, t := range c.colors {
		if t.img.Bounds().Size() != size {
			continue
		}
		rc.ColorBuffer = t.img
		if i == 0 && depthFits {
			rc.DepthBuffer = c.depth.depth
		} else {
			rc.DepthBuffer = t.scratch
		}
		if len(c.colors) > 1 {
			radius := c.fc.SceneRadius
			if radius <= 0 {
				radius = render.DefaultSceneRadius
			}
			rc.Shader = &gbufferShader{transform: xf, channel: i, mat: mat, radius: radius}
		} else {
			rc.Shader = &forwardShader{transform: xf, eye: c.fc.EyePosition, mat: mat, lights: c.fc.Lights}
		}
		rc.DrawMesh(fm)
	}
}

// DrawProxy shades every covered G-buffer texel with the batch's lights. The
// whole viewport is evaluated; a light outside its range contributes nothing,
// which matches what rasterizing the proxy volume would cover.
func (c *softwareContext) DrawProxy(kind render.ProxyKind, instances []render.ProxyInstance) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.colors) == 0 || len(c.inputs) < 4 || len(instances) == 0 {
		return
	}
	dst := c.colors[0].img
	bounds := dst.Bounds()
	for _, in := range c.inputs[:4] {
		if in == nil || in.img == nil || in.img.Bounds() != bounds {
			return
		}
	}
	normals, diffuse, specular, positions := c.inputs[0].img, c.inputs[1].img, c.inputs[2].img, c.inputs[3].img

	area := bounds
	if !c.viewport.Empty() {
		area = area.Intersect(c.viewport)
	}
	radius := c.fc.SceneRadius
	if radius <= 0 {
		radius = render.DefaultSceneRadius
	}
	eye := c.fc.EyePosition
	opaque := c.blend == render.BlendOpaque

	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			nc := normals.NRGBAAt(x, y)
			if nc.A == 0 {
				if opaque {
					dst.SetNRGBA(x, y, color.NRGBA{})
				}
				continue
			}
			sc := specular.NRGBAAt(x, y)
			s := surface{
				normal:    unpackNormal(nc),
				diffuse:   unpack(diffuse.NRGBAAt(x, y)),
				specular:  unpack(sc),
				shininess: float32(sc.A) / 255 * maxShininess,
				position:  unpack(positions.NRGBAAt(x, y)).Sub(mgl32.Vec3{0.5, 0.5, 0.5}).Mul(2 * radius),
			}
			var sum mgl32.Vec3
			for _, inst := range instances {
				sum = sum.Add(contribution(inst.Light, s, eye))
			}
			if !opaque {
				sum = sum.Add(unpack(dst.NRGBAAt(x, y)))
			}
			dst.SetNRGBA(x, y, common.Color{R: sum[0], G: sum[1], B: sum[2], A: 1}.NRGBA())
		}
	}
}

func (c *softwareContext) CopyRegion(dst render.Target, dstRect image.Rectangle, src render.Target, srcRect image.Rectangle) {
	d, s := asTarget(dst), asTarget(src)
	if d == nil || s == nil || d.img == nil || s.img == nil {
		return
	}
	if dstRect.Size() == srcRect.Size() {
		draw.Draw(d.img, dstRect, s.img, srcRect.Min, draw.Over)
		return
	}
	draw.ApproxBiLinear.Scale(d.img, dstRect, s.img, srcRect, draw.Over, nil)
}

func (c *softwareContext) Resolve(dst, src render.Target) {
	d, s := asTarget(dst), asTarget(src)
	if d == nil || s == nil || d.img == nil || s.img == nil {
		return
	}
	if d.img.Bounds() == s.img.Bounds() {
		copy(d.img.Pix, s.img.Pix)
		return
	}
	draw.ApproxBiLinear.Scale(d.img, d.img.Bounds(), s.img, s.img.Bounds(), draw.Src, nil)
}

func (c *softwareContext) Flush() error {
	return c.dev.check("flush")
}

func unpack(p color.NRGBA) mgl32.Vec3 {
	return mgl32.Vec3{float32(p.R) / 255, float32(p.G) / 255, float32(p.B) / 255}
}

func unpackNormal(p color.NRGBA) mgl32.Vec3 {
	n := unpack(p).Mul(2).Sub(mgl32.Vec3{1, 1, 1})
	n, _ = common.SafeNormalize(n)
	return n
}
