// Package particles runs the ambient background: a field of slow, faint dots
// that drift, wrap around the viewport edges, and are re-seeded whenever the
// viewport changes size.
//
// A Simulator is driven entirely by its Scheduler. All calls, including the
// frame callbacks the scheduler fires, must happen on one goroutine; the
// Simulator does no locking of its own.
package particles

import (
	"image/color"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/iburimskiy/ambient-particles/internal/config"
	"github.com/iburimskiy/ambient-particles/internal/host"
)

// Surface is the drawing target, addressed in logical units. Resize sets the
// backing size to width*dpr by height*dpr device pixels and installs the dpr
// scale transform.
type Surface interface {
	Resize(width, height, dpr float64)
	ClearRect(x, y, width, height float64)
	FillCircle(x, y, radius float64, c color.NRGBA)
}

// Scheduler fires a callback roughly once per display refresh.
type Scheduler interface {
	RequestFrame(fn host.FrameFunc) host.FrameHandle
	CancelFrame(h host.FrameHandle)
}

type State int

const (
	Stopped State = iota
	Running
	Disposed
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Disposed:
		return "disposed"
	}
	return "unknown"
}

// Options carries the collaborators. Surface and Scheduler are required for
// animation; the rest default to the system clock, a time-seeded source and
// slog.Default().
type Options struct {
	Surface   Surface
	Scheduler Scheduler
	Clock     host.Clock
	Rand      *rand.Rand
	Logger    *slog.Logger
}

type Simulator struct {
	cfg  config.Config
	tint color.NRGBA

	surface   Surface
	scheduler Scheduler
	clock     host.Clock
	rng       *rand.Rand
	log       *slog.Logger

	// inert simulators have nothing to draw on and ignore every call
	inert bool

	dims      host.Dimensions
	particles []Particle

	state   State
	pending host.FrameHandle
	epoch   time.Time
	last    time.Time
}

// New builds a stopped simulator. A missing surface or scheduler yields an
// inert simulator rather than an error: the background is decorative and the
// rest of the page must not depend on it.
func New(cfg config.Config, opts Options) *Simulator {
	s := &Simulator{
		cfg:       cfg,
		tint:      TintColor(cfg.Tint),
		surface:   opts.Surface,
		scheduler: opts.Scheduler,
		clock:     opts.Clock,
		rng:       opts.Rand,
		log:       opts.Logger,
		state:     Stopped,
	}
	if s.clock == nil {
		s.clock = host.SystemClock{}
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.log = s.log.With("component", "particles")

	if s.surface == nil || s.scheduler == nil {
		s.inert = true
		s.log.Warn("no drawing surface, particle field disabled")
		return s
	}
	s.epoch = s.clock.Now()
	s.last = s.epoch
	return s
}

// Initialize discards the current field and seeds a new one for dims.
func (s *Simulator) Initialize(dims host.Dimensions) {
	if s.inert || s.state == Disposed {
		return
	}
	s.dims = normalize(dims)
	s.particles = seed(s.cfg, s.dims, s.rng)
	s.log.Debug("particle field seeded",
		"count", len(s.particles),
		"width", s.dims.Width,
		"height", s.dims.Height,
		"density", s.cfg.Density,
	)
}

// Start begins the frame loop, replacing any frame already pending.
func (s *Simulator) Start() {
	if s.inert || s.state == Disposed {
		return
	}
	s.cancelPending()
	s.state = Running
	s.last = s.clock.Now()
	s.pending = s.scheduler.RequestFrame(s.frame)
	s.log.Debug("particle field started")
}

// Stop halts the frame loop. No frame fires until the next Start.
func (s *Simulator) Stop() {
	if s.inert || s.state == Disposed {
		return
	}
	s.cancelPending()
	if s.state == Running {
		s.log.Debug("particle field stopped")
	}
	s.state = Stopped
}

// Restart re-seeds at the current size and starts.
func (s *Simulator) Restart() {
	if s.inert || s.state == Disposed {
		return
	}
	s.Initialize(s.dims)
	s.Start()
}

// OnResize resizes the surface and re-seeds. The field is replaced rather
// than adjusted since count and speed both depend on the viewport.
func (s *Simulator) OnResize(dims host.Dimensions) {
	if s.inert || s.state == Disposed {
		return
	}
	dims = normalize(dims)
	s.surface.Resize(dims.Width, dims.Height, dims.DPR)
	s.log.Info("viewport resized", "width", dims.Width, "height", dims.Height, "dpr", dims.DPR)
	s.Initialize(dims)
}

// OnVisibilityChange pauses the loop while nobody can see it.
func (s *Simulator) OnVisibilityChange(hidden bool) {
	if hidden {
		s.Stop()
		return
	}
	s.Start()
}

// Reconfigure swaps the tuning and re-seeds. An invalid config is rejected
// and the current one stays active.
func (s *Simulator) Reconfigure(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "reconfigure particle field")
	}
	s.cfg = cfg
	s.tint = TintColor(cfg.Tint)
	s.Initialize(s.dims)
	return nil
}

// Dispose stops the loop for good and releases the field.
func (s *Simulator) Dispose() {
	if s.inert || s.state == Disposed {
		return
	}
	s.Stop()
	s.particles = nil
	s.state = Disposed
}

// State reports the loop state. Inert simulators are always stopped.
func (s *Simulator) State() State {
	return s.state
}

// Inert reports whether the simulator was built without a surface.
func (s *Simulator) Inert() bool {
	return s.inert
}

// Scheduled reports whether a frame is pending.
func (s *Simulator) Scheduled() bool {
	return s.pending != 0
}

func (s *Simulator) Len() int {
	return len(s.particles)
}

// Particles returns a copy of the field.
func (s *Simulator) Particles() []Particle {
	out := make([]Particle, len(s.particles))
	copy(out, s.particles)
	return out
}

func (s *Simulator) Dimensions() host.Dimensions {
	return s.dims
}

func (s *Simulator) Config() config.Config {
	return s.cfg
}

func (s *Simulator) cancelPending() {
	if s.pending != 0 {
		s.scheduler.CancelFrame(s.pending)
		s.pending = 0
	}
}

// frameGap is the elapsed time since the previous frame, capped so a stalled
// or backgrounded tab resumes without a jump.
func (s *Simulator) frameGap(now time.Time) float64 {
	gap := now.Sub(s.last)
	if gap < 0 {
		gap = 0
	}
	if maxGap := config.MaxFrameGapMillis * time.Millisecond; gap > maxGap {
		gap = maxGap
	}
	return gap.Seconds()
}

func (s *Simulator) frame(now time.Time) {
	s.pending = 0
	if s.state != Running {
		return
	}

	dt := s.frameGap(now)
	s.last = now

	w, h := s.dims.Width, s.dims.Height
	s.surface.ClearRect(0, 0, w, h)

	phase := float64(now.Sub(s.epoch)) / float64(time.Millisecond) * phaseRate
	for i := range s.particles {
		p := &s.particles[i]
		advance(p, s.cfg, w, h, phase, dt)
		s.surface.FillCircle(p.X, p.Y, p.radius, withAlpha(s.tint, p.alpha))
	}

	s.pending = s.scheduler.RequestFrame(s.frame)
}

// normalize applies the viewport floor and a dpr of at least 1.
func normalize(d host.Dimensions) host.Dimensions {
	d.Width = clampViewport(d.Width)
	d.Height = clampViewport(d.Height)
	if !(d.DPR >= 1) || math.IsInf(d.DPR, 0) {
		d.DPR = 1
	}
	return d
}
