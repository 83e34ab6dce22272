package main

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/light"
	"github.com/Carmen-Shannon/oxy-view/engine/render"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// demoObject is one drawable of the demo scene.
type demoObject struct {
	mesh     *render.Mesh
	world    mgl32.Mat4
	center   mgl32.Vec3
	radius   float32
	material render.Material
}

// demoScene is a grid of cubes on a floor, lit by one light of every type.
type demoScene struct {
	mu      *sync.Mutex
	host    render.RenderHost
	cube    *render.Mesh
	floor   mgl32.Mat4
	objects []demoObject
	markers []demoObject // light gizmos, not hit-testable
	lights  []light.Light
	radius  float32
}

var (
	_ render.Renderable     = &demoScene{}
	_ render.LightProvider  = &demoScene{}
	_ render.RadiusProvider = &demoScene{}
)

// newDemoScene builds a grid x grid arrangement of unit cubes spaced 2.5 apart.
func newDemoScene(grid int) *demoScene {
	if grid < 1 {
		grid = 1
	}
	s := &demoScene{
		mu:   &sync.Mutex{},
		cube: render.NewCubeMesh(1),
	}

	const spacing = 2.5
	half := float32(grid-1) * spacing / 2
	palette := []common.Color{
		{R: 0.85, G: 0.25, B: 0.2, A: 1},
		{R: 0.2, G: 0.6, B: 0.85, A: 1},
		{R: 0.9, G: 0.75, B: 0.2, A: 1},
		{R: 0.3, G: 0.8, B: 0.35, A: 1},
	}
	for i := 0; i < grid; i++ {
		for j := 0; j < grid; j++ {
			c := mgl32.Vec3{float32(i)*spacing - half, 0.5, float32(j)*spacing - half}
			s.objects = append(s.objects, demoObject{
				mesh:   s.cube,
				world:  mgl32.Translate3D(c.X(), c.Y(), c.Z()),
				center: c,
				radius: math32.Sqrt(3) / 2,
				material: render.Material{
					Diffuse:   palette[(i+j)%len(palette)],
					Specular:  common.Color{R: 0.5, G: 0.5, B: 0.5, A: 1},
					Shininess: 32,
				},
			})
		}
	}

	extent := half + spacing
	s.floor = mgl32.Translate3D(0, -0.05, 0).Mul4(mgl32.Scale3D(extent*2, 0.1, extent*2))
	s.radius = extent * math32.Sqrt(2) * 1.5

	s.lights = []light.Light{
		light.NewLight(light.LightTypeAmbient, light.WithIntensity(0.15)),
		light.NewLight(light.LightTypeDirectional,
			light.WithDirection(mgl32.Vec3{-0.4, -1, -0.3}),
			light.WithIntensity(0.6)),
		light.NewLight(light.LightTypePoint,
			light.WithPosition(mgl32.Vec3{-half, 3, -half}),
			light.WithColor(common.Color{R: 1, G: 0.6, B: 0.3, A: 1}),
			light.WithRange(extent*2)),
		light.NewLight(light.LightTypePoint,
			light.WithPosition(mgl32.Vec3{half, 3, half}),
			light.WithColor(common.Color{R: 0.3, G: 0.6, B: 1, A: 1}),
			light.WithRange(extent*2)),
		light.NewLight(light.LightTypeSpot,
			light.WithPosition(mgl32.Vec3{0, 8, 0}),
			light.WithDirection(mgl32.Vec3{0, -1, 0}),
			light.WithRange(16),
			light.WithSpotCone(15, 25)),
	}
	return s
}

func (s *demoScene) Attach(host render.RenderHost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.host = host
	for range s.lights {
		host.Registry().NextLightIndex()
	}
	return nil
}

func (s *demoScene) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.host = nil
}

func (s *demoScene) Update(*render.RenderContext) {}

func (s *demoScene) Render(rc *render.RenderContext) error {
	ctx := rc.Context()
	ctx.DrawMesh(s.cube, s.floor, render.Material{Diffuse: common.Color{R: 0.6, G: 0.6, B: 0.6, A: 1}})
	for _, list := range [][]demoObject{s.objects, s.markers} {
		for _, o := range list {
			if !rc.Frustum().IntersectsSphere(o.center, o.radius) {
				continue
			}
			ctx.DrawMesh(o.mesh, o.world, o.material)
		}
	}
	return nil
}

func (s *demoScene) BackgroundColor() common.Color {
	return common.Color{R: 0.08, G: 0.09, B: 0.12, A: 1}
}

func (s *demoScene) IsShadowMappingEnabled() bool { return false }

// RenderTechnique defers to the host's configured technique.
func (s *demoScene) RenderTechnique() string { return "" }

func (s *demoScene) Lights() []light.Light { return s.lights }

func (s *demoScene) SceneRadius() float32 { return s.radius }

// HitTest intersects the ray under p with the cubes' bounding spheres and the
// floor plane, returning the nearest hit.
func (s *demoScene) HitTest(p mgl32.Vec2) (mgl32.Vec3, bool) {
	s.mu.Lock()
	host := s.host
	s.mu.Unlock()
	if host == nil || host.Camera() == nil {
		return mgl32.Vec3{}, false
	}
	size := host.Size()
	origin, dir, ok := host.Camera().Point2DToRay(p, mgl32.Vec2{float32(size.Width), float32(size.Height)})
	if !ok {
		return mgl32.Vec3{}, false
	}

	best := math32.Inf(1)
	for _, o := range s.objects {
		if t, hit := raySphere(origin, dir, o.center, o.radius); hit && t < best {
			best = t
		}
	}
	if math32.Abs(dir.Y()) > common.Epsilon {
		if t := -origin.Y() / dir.Y(); t > 0 && t < best {
			best = t
		}
	}
	if math32.IsInf(best, 1) {
		return mgl32.Vec3{}, false
	}
	return origin.Add(dir.Mul(best)), true
}

// raySphere returns the distance along a normalized ray to the first
// intersection with a sphere in front of the origin.
func raySphere(origin, dir, center mgl32.Vec3, radius float32) (float32, bool) {
	oc := origin.Sub(center)
	b := oc.Dot(dir)
	c := oc.Dot(oc) - radius*radius
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	sq := math32.Sqrt(disc)
	if t := -b - sq; t > 0 {
		return t, true
	}
	if t := -b + sq; t > 0 {
		return t, true
	}
	return 0, false
}
