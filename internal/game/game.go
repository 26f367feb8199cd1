package game

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/ncruces/zenity"

	"github.com/iburimskiy/ambient-particles/internal/config"
	"github.com/iburimskiy/ambient-particles/internal/host"
	"github.com/iburimskiy/ambient-particles/internal/particles"
)

// canvas is what the game draws the field into and blits to the screen.
type canvas interface {
	particles.Surface
	Image() *ebiten.Image
}

// Pauser follows the page visibility, e.g. an ambient soundtrack.
type Pauser interface {
	SetPaused(paused bool)
}

type Options struct {
	Config config.Config

	// LoadConfig resolves a config file picked from the dialog. Defaults to
	// config.Load.
	LoadConfig func(path string) (config.Config, error)

	Audio   Pauser
	Overlay bool
	Logger  *slog.Logger

	// test hooks
	clock  host.Clock
	canvas canvas
}

// input is one Update's worth of host state.
type input struct {
	hidden  bool
	pressed func(ebiten.Key) bool
}

type game struct {
	sim     *particles.Simulator
	canvas  canvas
	frames  *host.FrameQueue
	clock   host.Clock
	resize  *host.Debouncer
	visible host.VisibilityWatcher
	ring    *frameRing
	audio   Pauser
	load    func(path string) (config.Config, error)
	log     *slog.Logger

	// latest Layout report and what the field was last seeded with
	layout     host.Dimensions
	haveLayout bool
	observed   host.Dimensions
	applied    host.Dimensions
	seeded     bool

	started  time.Time
	lastTick time.Time

	overlay bool
	lastErr error
}

func NewGame(opts Options) *game {
	g := &game{
		canvas:  opts.canvas,
		frames:  host.NewFrameQueue(),
		clock:   opts.clock,
		resize:  host.NewDebouncer(config.ResizeQuietMillis * time.Millisecond),
		ring:    newFrameRing(config.FrameRingSize),
		audio:   opts.Audio,
		load:    opts.LoadConfig,
		log:     opts.Logger,
		overlay: opts.Overlay,
	}
	if g.canvas == nil {
		g.canvas = NewSurface()
	}
	if g.clock == nil {
		g.clock = host.SystemClock{}
	}
	if g.load == nil {
		g.load = config.Load
	}
	if g.log == nil {
		g.log = slog.Default()
	}

	g.sim = particles.New(opts.Config, particles.Options{
		Surface:   g.canvas,
		Scheduler: g.frames,
		Clock:     g.clock,
		Logger:    g.log,
	})
	g.started = g.clock.Now()
	g.lastTick = g.started
	return g
}

// Simulator exposes the field for restart/stop/start from outside the loop.
func (g *game) Simulator() *particles.Simulator {
	return g.sim
}

func (g *game) Update() error {
	return g.step(g.clock.Now(), input{
		hidden:  windowHidden(ebiten.IsWindowMinimized(), ebiten.IsFocused()),
		pressed: inpututil.IsKeyJustPressed,
	})
}

func (g *game) step(now time.Time, in input) error {
	if g.visible.Observe(in.hidden) {
		g.log.Info("visibility changed", "hidden", in.hidden)
		g.sim.OnVisibilityChange(in.hidden)
		if g.audio != nil {
			g.audio.SetPaused(in.hidden)
		}
	}

	g.syncLayout(now)

	if in.pressed(ebiten.KeyR) {
		g.sim.Restart()
	}
	if in.pressed(ebiten.KeyS) {
		g.sim.Stop()
	}
	if in.pressed(ebiten.KeySpace) {
		g.sim.Start()
	}
	if in.pressed(ebiten.KeyD) {
		g.overlay = !g.overlay
	}
	if in.pressed(ebiten.KeyO) {
		g.lastErr = g.openConfigDialog()
	}
	quit := in.pressed(ebiten.KeyEscape)
	if in.pressed(ebiten.KeyQ) || quit {
		g.sim.Dispose()
		return ebiten.Termination
	}

	g.ring.record(now.Sub(g.lastTick))
	g.lastTick = now
	g.frames.Tick(now)
	return nil
}

// syncLayout seeds the field on the first layout and routes later size
// changes through the debouncer so a drag-resize re-seeds once.
func (g *game) syncLayout(now time.Time) {
	if !g.haveLayout {
		return
	}

	if !g.seeded {
		g.seeded = true
		g.observed, g.applied = g.layout, g.layout
		g.sim.OnResize(g.layout)
		if !g.visible.Hidden() {
			g.sim.Start()
		}
		return
	}

	if g.layout != g.observed {
		g.observed = g.layout
		g.resize.Trigger(g.layout, now)
	}
	if dims, ok := g.resize.Poll(now); ok && dims != g.applied {
		g.applied = dims
		g.sim.OnResize(dims)
	}
}

func (g *game) openConfigDialog() error {
	filename, err := zenity.SelectFile(
		zenity.Title("Open Particle Config"),
		zenity.FileFilters{{
			Name:     "Particle config",
			Patterns: []string{"*.yaml", "*.yml"},
		}},
	)
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			return nil
		}
		return err
	}
	return g.reloadConfig(filename)
}

func (g *game) reloadConfig(path string) error {
	cfg, err := g.load(path)
	if err != nil {
		g.log.Error("config reload failed", "path", path, "error", err)
		return err
	}
	if err := g.sim.Reconfigure(cfg); err != nil {
		g.log.Error("config rejected", "path", path, "error", err)
		return err
	}
	g.log.Info("config reloaded", "path", path, "particles", g.sim.Len())
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	g.drawBackground(screen)

	if img := g.canvas.Image(); img != nil {
		screen.DrawImage(img, nil)
	}

	if g.overlay {
		ebitenutil.DebugPrintAt(screen, g.status(), 12, 12)
	}
}

// drawBackground paints the dark vertical gradient the dots float over.
func (g *game) drawBackground(screen *ebiten.Image) {
	const bands = 64
	b := screen.Bounds()
	bandHeight := float32(b.Dy()) / bands
	for i := 0; i < bands; i++ {
		ratio := float64(i) / bands
		c := color.RGBA{
			R: uint8(10 + 8*ratio),
			G: uint8(12 + 10*ratio),
			B: uint8(24 + 20*ratio),
			A: 255,
		}
		vector.DrawFilledRect(screen, 0, float32(i)*bandHeight, float32(b.Dx()), bandHeight+1, c, false)
	}
}

func (g *game) status() string {
	status := fmt.Sprintf("field: %s  dots: %d  %.0f fps  up %s\nR restart  S stop  Space start  O config  D overlay  Q quit",
		g.sim.State(), g.sim.Len(), g.ring.fps(), formatDuration(g.lastTick.Sub(g.started)))
	if g.lastErr != nil {
		status += "\nError: " + g.lastErr.Error()
	}
	return status
}

// Layout reports the screen at device resolution and remembers the logical
// size for the next Update.
func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	dpr := ebiten.Monitor().DeviceScaleFactor()
	g.observeLayout(outsideWidth, outsideHeight, dpr)
	return devicePixels(float64(outsideWidth), dpr), devicePixels(float64(outsideHeight), dpr)
}

func (g *game) observeLayout(width, height int, dpr float64) {
	if !(dpr >= 1) || math.IsInf(dpr, 0) {
		dpr = 1
	}
	g.layout = host.Dimensions{Width: float64(width), Height: float64(height), DPR: dpr}
	g.haveLayout = true
}
