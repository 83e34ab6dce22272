package software

import (
	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/light"
	"github.com/Carmen-Shannon/oxy-view/engine/render"
	"github.com/chewxy/math32"
	"github.com/fogleman/fauxgl"
	"github.com/go-gl/mathgl/mgl32"
)

// surface is what the lighting model needs about one shaded point.
type surface struct {
	position  mgl32.Vec3
	normal    mgl32.Vec3
	diffuse   mgl32.Vec3
	specular  mgl32.Vec3
	shininess float32
}

// contribution evaluates Blinn-Phong lighting of s by l, seen from eye.
func contribution(l light.Params, s surface, eye mgl32.Vec3) mgl32.Vec3 {
	col := mgl32.Vec3{l.Color.R, l.Color.G, l.Color.B}.Mul(l.Intensity)
	if l.Type == light.LightTypeAmbient {
		return mulVec(s.diffuse, col)
	}

	var toLight mgl32.Vec3
	atten := float32(1)
	switch l.Type {
	case light.LightTypeDirectional:
		toLight = l.Direction.Mul(-1)
	case light.LightTypePoint, light.LightTypeSpot:
		d := l.Position.Sub(s.position)
		dist := d.Len()
		if dist >= l.Range || dist < common.Epsilon {
			return mgl32.Vec3{}
		}
		toLight = d.Mul(1 / dist)
		falloff := 1 - dist/l.Range
		atten = falloff * falloff
		if l.Type == light.LightTypeSpot {
			cos := toLight.Mul(-1).Dot(l.Direction)
			atten *= smoothstep(l.OuterCone, l.InnerCone, cos)
		}
	}

	ndotl := s.normal.Dot(toLight)
	if ndotl <= 0 || atten <= 0 {
		return mgl32.Vec3{}
	}
	out := mulVec(s.diffuse, col).Mul(ndotl)

	if s.shininess > 0 {
		view, ok := common.SafeNormalize(eye.Sub(s.position))
		if ok {
			if half, ok := common.SafeNormalize(toLight.Add(view)); ok {
				spec := math32.Pow(math32.Max(s.normal.Dot(half), 0), s.shininess)
				out = out.Add(mulVec(s.specular, col).Mul(spec))
			}
		}
	}
	return out.Mul(atten)
}

func smoothstep(edge0, edge1, x float32) float32 {
	if edge1 <= edge0 {
		if x >= edge1 {
			return 1
		}
		return 0
	}
	t := common.Clamp((x-edge0)/(edge1-edge0), 0, 1)
	return t * t * (3 - 2*t)
}

func mulVec(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

func toVector(v mgl32.Vec3) fauxgl.Vector {
	return fauxgl.Vector{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
}

func fromVector(v fauxgl.Vector) mgl32.Vec3 {
	return mgl32.Vec3{float32(v.X), float32(v.Y), float32(v.Z)}
}

func toVector4(v mgl32.Vec4) fauxgl.Vector4 {
	return fauxgl.Vector4{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2]), W: float64(v[3])}
}

func rgb(c common.Color) mgl32.Vec3 {
	return mgl32.Vec3{c.R, c.G, c.B}
}

// transform moves object-space vertices into clip space for the rasterizer and
// into world space for the fragment stage.
type transform struct {
	mvp    mgl32.Mat4
	world  mgl32.Mat4
	normal mgl32.Mat3
}

func newTransform(viewProj, world mgl32.Mat4) transform {
	return transform{
		mvp:    viewProj.Mul4(world),
		world:  world,
		normal: world.Mat3().Inv().Transpose(),
	}
}

func (t transform) vertex(v fauxgl.Vertex) fauxgl.Vertex {
	p := fromVector(v.Position).Vec4(1)
	v.Output = toVector4(t.mvp.Mul4x1(p))
	v.Position = toVector(t.world.Mul4x1(p).Vec3())
	v.Normal = toVector(t.normal.Mul3x1(fromVector(v.Normal)))
	return v
}

// forwardShader shades each fragment with every frame light.
type forwardShader struct {
	transform
	eye    mgl32.Vec3
	mat    render.Material
	lights []light.Params
}

func (s *forwardShader) Vertex(v fauxgl.Vertex) fauxgl.Vertex {
	return s.vertex(v)
}

func (s *forwardShader) Fragment(v fauxgl.Vertex) fauxgl.Color {
	diffuse := rgb(s.mat.Diffuse)
	if len(s.lights) == 0 {
		return fauxgl.Color{R: float64(diffuse[0]), G: float64(diffuse[1]), B: float64(diffuse[2]), A: 1}
	}
	n, _ := common.SafeNormalize(fromVector(v.Normal))
	surf := surface{
		position:  fromVector(v.Position),
		normal:    n,
		diffuse:   diffuse,
		specular:  rgb(s.mat.Specular),
		shininess: s.mat.Shininess,
	}
	var sum mgl32.Vec3
	for _, l := range s.lights {
		sum = sum.Add(contribution(l, surf, s.eye))
	}
	return fauxgl.Color{R: float64(sum[0]), G: float64(sum[1]), B: float64(sum[2]), A: 1}
}

// G-buffer channels in binding order.
const (
	channelNormal = iota
	channelDiffuse
	channelSpecular
	channelPosition
)

// maxShininess is the exponent stored as alpha 1 in the specular channel.
const maxShininess = 255

// gbufferShader writes one G-buffer channel.
type gbufferShader struct {
	transform
	channel int
	mat     render.Material
	radius  float32
}

func (s *gbufferShader) Vertex(v fauxgl.Vertex) fauxgl.Vertex {
	return s.vertex(v)
}

func (s *gbufferShader) Fragment(v fauxgl.Vertex) fauxgl.Color {
	switch s.channel {
	case channelNormal:
		n, _ := common.SafeNormalize(fromVector(v.Normal))
		return fauxgl.Color{R: float64(n[0]*0.5 + 0.5), G: float64(n[1]*0.5 + 0.5), B: float64(n[2]*0.5 + 0.5), A: 1}
	case channelDiffuse:
		c := s.mat.Diffuse
		return fauxgl.Color{R: float64(c.R), G: float64(c.G), B: float64(c.B), A: 1}
	case channelSpecular:
		c := s.mat.Specular
		return fauxgl.Color{R: float64(c.R), G: float64(c.G), B: float64(c.B), A: float64(common.Clamp(s.mat.Shininess/maxShininess, 0, 1))}
	default:
		p := fromVector(v.Position).Mul(1 / (2 * s.radius))
		return fauxgl.Color{R: float64(p[0] + 0.5), G: float64(p[1] + 0.5), B: float64(p[2] + 0.5), A: 1}
	}
}

// depthShader only positions vertices; color writes are disabled while it runs.
type depthShader struct {
	transform
}

func (s *depthShader) Vertex(v fauxgl.Vertex) fauxgl.Vertex {
	return s.vertex(v)
}

func (s *depthShader) Fragment(fauxgl.Vertex) fauxgl.Color {
	return fauxgl.Color{A: 1}
}
