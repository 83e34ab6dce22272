package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/camera"
	"github.com/Carmen-Shannon/oxy-view/engine/config"
	"github.com/Carmen-Shannon/oxy-view/engine/controller"
	"github.com/Carmen-Shannon/oxy-view/engine/device/software"
	"github.com/Carmen-Shannon/oxy-view/engine/render"
	"github.com/Carmen-Shannon/oxy-view/engine/viewport"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeViewport records ticks into a shared log.
type fakeViewport struct {
	name   string
	mu     *sync.Mutex
	log    *[]string
	render bool
	err    error
}

func (v *fakeViewport) Host() render.RenderHost                   { return nil }
func (v *fakeViewport) Controller() controller.CameraController   { return nil }
func (v *fakeViewport) Camera() camera.Camera                     { return nil }
func (v *fakeViewport) Bind(viewport.InputSource)                 {}
func (v *fakeViewport) Start(common.Size) error                   { return nil }
func (v *fakeViewport) Resize(context.Context, common.Size) error { return nil }
func (v *fakeViewport) Apply(config.File) error                   { return nil }
func (v *fakeViewport) Modifiers() common.ModifierKeys            { return 0 }
func (v *fakeViewport) Close()                                    {}
func (v *fakeViewport) Tick(now time.Duration) (bool, error) {
	v.mu.Lock()
	*v.log = append(*v.log, v.name)
	v.mu.Unlock()
	return v.render, v.err
}

func newFakes(names ...string) ([]*fakeViewport, *[]string) {
	log := &[]string{}
	mu := &sync.Mutex{}
	out := make([]*fakeViewport, len(names))
	for i, n := range names {
		out[i] = &fakeViewport{name: n, mu: mu, log: log}
	}
	return out, log
}

type litScene struct{ mesh *render.Mesh }

func (s *litScene) Attach(render.RenderHost) error { return nil }
func (s *litScene) Detach()                        {}
func (s *litScene) Update(*render.RenderContext)   {}
func (s *litScene) Render(rc *render.RenderContext) error {
	rc.Context().DrawMesh(s.mesh, mgl32.Ident4(), render.Material{Diffuse: common.ColorWhite})
	return nil
}
func (s *litScene) BackgroundColor() common.Color { return common.ColorBlack }
func (s *litScene) IsShadowMappingEnabled() bool  { return false }
func (s *litScene) RenderTechnique() string       { return "" }

func TestTickOrdersViewportsByKey(t *testing.T) {
	fakes, log := newFakes("a", "b", "c")
	fakes[1].render = true
	e := NewEngine(WithViewport(10, fakes[0]), WithViewport(-1, fakes[1]))
	e.AddViewport(3, fakes[2])

	var callbackAt time.Duration
	e.SetTickCallback(func(now time.Duration) { callbackAt = now })

	rendered, err := e.Tick()
	require.NoError(t, err)
	assert.Equal(t, 1, rendered)
	assert.Equal(t, []string{"b", "c", "a"}, *log)
	assert.Positive(t, callbackAt)

	e.RemoveViewport(3)
	assert.Nil(t, e.Viewport(3))
	assert.Len(t, e.Viewports(), 2)
}

func TestTickStopsAtFirstError(t *testing.T) {
	fakes, log := newFakes("a", "b")
	boom := errors.New("boom")
	fakes[0].err = boom
	e := NewEngine(WithViewport(0, fakes[0]), WithViewport(1, fakes[1]))

	_, err := e.Tick()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a"}, *log)
}

func TestRunHeadlessStopsAtFrameLimit(t *testing.T) {
	cfg := render.DefaultHostConfig()
	cfg.MaxFPS = 0
	host := render.NewRenderHost(
		render.WithDeviceFactory(software.Factory()),
		render.WithHostConfig(cfg),
		render.WithRenderable(&litScene{mesh: render.NewCubeMesh(1)}),
	)
	v := viewport.NewViewport(viewport.WithHost(host))
	defer v.Close()
	require.NoError(t, v.Start(common.Size{Width: 120, Height: 100}))

	e := NewEngine(WithViewport(0, v), WithFrameLimit(3), WithTickRate(500), WithProfiling(true))
	e.SetTickCallback(func(time.Duration) { host.InvalidateRender() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.Run(ctx))
	assert.Equal(t, uint64(3), host.Stats().Frames)
}

func TestRunReturnsViewportError(t *testing.T) {
	fakes, _ := newFakes("a")
	boom := errors.New("device gone")
	fakes[0].err = boom
	e := NewEngine(WithViewport(0, fakes[0]), WithTickRate(1000))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.ErrorIs(t, e.Run(ctx), boom)
}

func TestRunStopsOnQuitAndCancel(t *testing.T) {
	e := NewEngine()
	e.Quit()
	e.Quit()
	assert.ErrorIs(t, e.Run(context.Background()), ErrStopped)

	e = NewEngine(WithTickRate(1000))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, e.Run(ctx), context.Canceled)
}

func TestSetTickRateWhileRunning(t *testing.T) {
	fakes, log := newFakes("a")
	fakes[0].render = true
	e := NewEngine(WithViewport(0, fakes[0]), WithTickRate(1), WithFrameLimit(5))

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()
	e.SetTickRate(1000)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		e.Quit()
		t.Fatal("tick rate change was not picked up")
	}
	fakes[0].mu.Lock()
	assert.Len(t, *log, 5)
	fakes[0].mu.Unlock()
}
