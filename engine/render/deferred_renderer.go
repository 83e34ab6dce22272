package render

import (
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/light"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultCullChunk is the number of lights one culling task tests.
const DefaultCullChunk = 16

// DeferredRenderer renders the scene into the G-buffer and accumulates lighting
// into a ping-pong target with one proxy-geometry batch per light type: a
// full-screen quad for ambient and directional lights, a sphere for point
// lights and a cone for spot lights.
type DeferredRenderer struct {
	mu        *sync.Mutex
	pool      worker.DynamicWorkerPool
	workers   int
	chunkSize int
	taskID    int
}

var _ Technique = &DeferredRenderer{}

// DeferredRendererOption configures a DeferredRenderer.
type DeferredRendererOption func(*DeferredRenderer)

// WithCullWorkers sets the number of goroutines culling lights.
//
// Parameters:
//   - n: worker count, at least 1
//
// Returns:
//   - DeferredRendererOption: the option
func WithCullWorkers(n int) DeferredRendererOption {
	return func(d *DeferredRenderer) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithCullChunk sets the number of lights per culling task.
//
// Parameters:
//   - n: lights per task, at least 1
//
// Returns:
//   - DeferredRendererOption: the option
func WithCullChunk(n int) DeferredRendererOption {
	return func(d *DeferredRenderer) {
		if n > 0 {
			d.chunkSize = n
		}
	}
}

// NewDeferredRenderer creates the deferred technique. The culling worker pool is
// started on the first frame that has enough lights to split.
func NewDeferredRenderer(options ...DeferredRendererOption) *DeferredRenderer {
	d := &DeferredRenderer{
		mu:        &sync.Mutex{},
		workers:   max(runtime.NumCPU()-1, 1),
		chunkSize: DefaultCullChunk,
	}
	for _, option := range options {
		option(d)
	}
	return d
}

func (d *DeferredRenderer) Name() string      { return TechniqueDeferred }
func (d *DeferredRenderer) UsesGBuffer() bool { return true }

func (d *DeferredRenderer) Render(f *Frame) error {
	if f.Shadows {
		renderShadowMap(f)
	}
	if err := renderGeometryPass(f); err != nil {
		return err
	}

	ctx := f.Context
	accum := f.Targets.Get(SlotPing)
	if f.Index%2 == 1 {
		accum = f.Targets.Get(SlotPong)
	}
	batch := d.cull(f.Lights, f.RC.Frustum())

	fc := f.RC.FrameConstants()
	ctx.SetRenderTargets(nil, accum)
	ctx.SetViewport(f.Targets.Bounds())
	ctx.SetShaderResources(f.Targets.GBuffer()...)
	ctx.SetFrameConstants(fc)

	// Ambient writes the base color, so it overwrites whatever the accumulation
	// target held two frames ago.
	ctx.SetBlendMode(BlendOpaque)
	ctx.DrawProxy(ProxyQuad, []ProxyInstance{ambientInstance(batch.Ambient)})

	ctx.SetBlendMode(BlendAdditive)
	drawBatch(ctx, ProxyQuad, batch.Directional)
	drawBatch(ctx, ProxySphere, batch.Point)
	drawBatch(ctx, ProxyCone, batch.Spot)

	color := f.Targets.Get(SlotColor)
	ctx.SetBlendMode(BlendOpaque)
	ctx.SetRenderTargets(nil, color)
	ctx.ClearRenderTarget(color, f.ClearColor)
	ctx.CopyRegion(color, f.Targets.Bounds(), accum, f.Targets.Bounds())
	return nil
}

func drawBatch(ctx Context, kind ProxyKind, lights []light.Params) {
	if len(lights) == 0 {
		return
	}
	instances := make([]ProxyInstance, len(lights))
	for i, l := range lights {
		instances[i] = ProxyInstance{World: l.ProxyTransform(), Light: l}
	}
	ctx.DrawProxy(kind, instances)
}

// ambientInstance folds every ambient light into one full-screen pass.
func ambientInstance(lights []light.Params) ProxyInstance {
	var sum common.Color
	for _, l := range lights {
		c := l.Color.Scale(l.Intensity)
		sum.R += c.R
		sum.G += c.G
		sum.B += c.B
	}
	sum.A = 1
	return ProxyInstance{
		World: mgl32.Ident4(),
		Light: light.Params{Type: light.LightTypeAmbient, Color: sum, Intensity: 1},
	}
}

// cull tests lights against frustum in parallel chunks on the worker pool and
// returns the visible ones batched by type, in their original order.
func (d *DeferredRenderer) cull(lights []light.Params, frustum common.Frustum) light.Batch {
	var batch light.Batch
	if len(lights) <= d.chunkSize {
		for _, l := range lights {
			if l.Visible(frustum) {
				batch.Add(l)
			}
		}
		return batch
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pool == nil {
		d.pool = worker.NewDynamicWorkerPool(d.workers, 256, 1*time.Second)
	}

	chunks := (len(lights) + d.chunkSize - 1) / d.chunkSize
	visible := make([][]bool, chunks)
	var wg sync.WaitGroup
	for c := 0; c < chunks; c++ {
		start := c * d.chunkSize
		end := min(start+d.chunkSize, len(lights))
		part := lights[start:end]
		out := make([]bool, len(part))
		visible[c] = out

		wg.Add(1)
		id := d.taskID
		d.taskID++
		d.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				for i, l := range part {
					out[i] = l.Visible(frustum)
				}
				return nil, nil
			},
		})
	}
	wg.Wait()

	for c, flags := range visible {
		for i, ok := range flags {
			if ok {
				batch.Add(lights[c*d.chunkSize+i])
			}
		}
	}
	return batch
}
