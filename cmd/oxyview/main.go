// oxyview - interactive 3D viewport
// Orbit, pan, zoom and fly around a lit demo scene, rendered forward or deferred.
//
// Controls:
//
//	Right drag        - Rotate (left drag with rotate_on_left)
//	Middle drag       - Pan (also Shift + right drag)
//	Ctrl + right drag - Zoom
//	Ctrl+Shift+right  - Zoom to rectangle
//	Wheel             - Zoom
//	Left double-click - Look at the point under the cursor
//	Arrows            - Rotate (Shift: pan, Ctrl: fine)
//	PageUp/PageDown   - Zoom
//	W/A/S/D/Q/Z       - Move
//	Backspace         - Undo camera change
//	Home              - Reset camera
//	Esc               - Quit
package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine"
	"github.com/Carmen-Shannon/oxy-view/engine/camera"
	"github.com/Carmen-Shannon/oxy-view/engine/config"
	"github.com/Carmen-Shannon/oxy-view/engine/controller"
	"github.com/Carmen-Shannon/oxy-view/engine/device"
	"github.com/Carmen-Shannon/oxy-view/engine/render"
	"github.com/Carmen-Shannon/oxy-view/engine/viewport"
	"github.com/Carmen-Shannon/oxy-view/engine/window"
	"github.com/fogleman/fauxgl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spf13/cobra"
)

// options holds the command line flags.
type options struct {
	configPath string
	technique  string
	threaded   bool
	headless   bool
	width      int
	height     int
	maxFPS     int
	frames     int
	out        string
	verbose    bool
	grid       int
	spin       float32
	profile    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "oxyview",
		Short: "Interactive 3D viewport",
		Long: `oxyview - interactive 3D viewport

Renders a lit demo scene with an inertial camera controller. Runs in a window
on the GPU, or headless on the CPU writing the last frame to a PNG.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}
			return run(cmd.Context(), opts, file)
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "", "Path to a TOML configuration file (reloaded on change)")
	f.StringVar(&opts.technique, "technique", render.TechniqueBlinnPhong,
		fmt.Sprintf("Render technique (%s, %s, %s)", render.TechniqueBlinnPhong, render.TechniqueDeferred, render.TechniqueGBuffer))
	f.BoolVar(&opts.threaded, "threaded", false, "Record frames on a dedicated render goroutine")
	f.BoolVar(&opts.headless, "headless", false, "Render offscreen with the software device")
	f.IntVar(&opts.width, "width", 1280, "Viewport width in pixels")
	f.IntVar(&opts.height, "height", 720, "Viewport height in pixels")
	f.IntVar(&opts.maxFPS, "max-fps", 60, "Frame rate ceiling (0 = uncapped)")
	f.IntVar(&opts.frames, "frames", 60, "Frames to render in headless mode")
	f.StringVar(&opts.out, "out", "oxyview.png", "PNG file the last headless frame is written to")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug output")
	f.IntVar(&opts.grid, "grid", 5, "Cubes per side of the demo grid")
	f.Float32Var(&opts.spin, "spin", 0, "Start an endless camera spin at this speed (pixels per second)")
	f.BoolVar(&opts.profile, "profile", false, "Log frame rate and memory statistics every second")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}
			data, err := file.Encode()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.AddCommand(configCmd)
	return cmd
}

// resolveConfig loads the configuration file, if any, and applies the flags
// that were set explicitly on top of it.
func resolveConfig(cmd *cobra.Command, opts *options) (config.File, error) {
	file := config.Default()
	if opts.configPath != "" {
		var err error
		if file, err = config.Load(opts.configPath); err != nil {
			return config.File{}, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("technique") || opts.configPath == "" {
		file.Host.Technique = opts.technique
	}
	if flags.Changed("threaded") {
		file.Host.Threaded = opts.threaded
	}
	if flags.Changed("max-fps") || opts.configPath == "" {
		file.Host.MaxFPS = opts.maxFPS
	}
	if opts.spin != 0 {
		file.Controller.InfiniteSpin = true
	}
	if err := file.Validate(); err != nil {
		return config.File{}, err
	}
	return file, nil
}

func run(ctx context.Context, opts *options, file config.File) error {
	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	common.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	size := common.Size{Width: opts.width, Height: opts.height}
	scene := newDemoScene(opts.grid)
	cam := camera.NewCamera(
		camera.WithLookAt(mgl32.Vec3{12, 9, 14}, mgl32.Vec3{0, 0, 0}),
		camera.WithClipPlanes(0.1, 500),
	)

	var (
		win     window.Window
		factory render.DeviceFactory
		last    = &lastFrame{mu: &sync.Mutex{}}
	)
	if opts.headless {
		factory = device.NewFactory(device.BackendSoftware,
			device.WithLabel("oxyview"),
			device.WithPresentHook(last.store))
	} else {
		var err error
		win, err = window.NewWindow(
			window.WithTitle("oxyview"),
			window.WithSize(size),
			window.WithSizeLimits(common.Size{Width: 320, Height: 240}, common.Size{Width: 7680, Height: 4320}),
		)
		if err != nil {
			return err
		}
		defer win.Close()
		size = common.Size{Width: win.Width(), Height: win.Height()}
		factory = device.NewFactory(device.BackendWGPU,
			device.WithLabel("oxyview"),
			device.WithSurface(win.SurfaceDescriptor()),
			device.WithVSync(file.Host.MaxFPS == 0))
	}

	host := render.NewRenderHost(
		render.WithDeviceFactory(factory),
		render.WithHostConfig(file.Host),
		render.WithRenderable(scene),
		render.WithHostCamera(cam),
		render.WithExceptionHandler(func(ev *render.ExceptionEvent) {
			common.Logger().Error("render exception", "err", ev.Err)
		}),
	)
	v := viewport.NewViewport(
		viewport.WithHost(host),
		viewport.WithCamera(cam),
		viewport.WithHitTester(scene),
		viewport.WithControllerOptions(controller.WithConfig(file.Controller)),
	)
	defer v.Close()

	if win != nil {
		v.Bind(win)
	}
	if err := v.Start(size); err != nil {
		return err
	}
	if opts.spin != 0 {
		center := mgl32.Vec2{float32(size.Width) / 2, float32(size.Height) / 2}
		v.Controller().StartSpin(mgl32.Vec2{opts.spin, 0}, center, mgl32.Vec3{})
	}

	if opts.configPath != "" {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			err := config.Watch(watchCtx, opts.configPath, func(f config.File) {
				if err := v.Apply(f); err != nil {
					common.Logger().Warn("config not applied", "err", err)
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				common.Logger().Warn("config watcher stopped", "err", err)
			}
		}()
	}

	engOpts := []engine.EngineBuilderOption{
		engine.WithViewport(0, v),
		engine.WithProfiling(opts.profile),
	}
	if win != nil {
		engOpts = append(engOpts, engine.WithWindow(win))
	} else {
		rate := float64(file.Host.MaxFPS)
		if rate <= 0 {
			rate = 240
		}
		engOpts = append(engOpts, engine.WithTickRate(rate), engine.WithFrameLimit(opts.frames))
	}
	eng := engine.NewEngine(engOpts...)
	if win == nil && opts.spin == 0 {
		// Nothing moves on its own offscreen; request a frame every tick.
		eng.SetTickCallback(func(time.Duration) { host.InvalidateRender() })
	}

	start := time.Now()
	err := eng.Run(ctx)
	stats := host.Stats()
	common.Logger().Info("viewer stopped",
		"frames", stats.Frames, "skipped", stats.Skipped, "restarts", stats.Restarts,
		"elapsed", time.Since(start).Round(time.Millisecond))
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if opts.headless {
		frame := last.load()
		if frame == nil {
			return fmt.Errorf("no frame was presented")
		}
		if err := fauxgl.SavePNG(opts.out, frame); err != nil {
			return fmt.Errorf("write %s: %w", opts.out, err)
		}
		common.Logger().Info("frame written", "path", opts.out)
	}
	return nil
}

// lastFrame keeps the most recently presented software frame.
type lastFrame struct {
	mu    *sync.Mutex
	frame *image.NRGBA
}

func (l *lastFrame) store(frame *image.NRGBA) {
	l.mu.Lock()
	l.frame = frame
	l.mu.Unlock()
}

func (l *lastFrame) load() *image.NRGBA {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frame
}
