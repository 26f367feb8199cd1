package particles

import (
	"image/color"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iburimskiy/ambient-particles/internal/config"
	"github.com/iburimskiy/ambient-particles/internal/host"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

type circle struct {
	x, y, r float64
	c       color.NRGBA
}

type recordingSurface struct {
	resizes []host.Dimensions
	clears  int
	circles []circle
}

func (s *recordingSurface) Resize(width, height, dpr float64) {
	s.resizes = append(s.resizes, host.Dimensions{Width: width, Height: height, DPR: dpr})
}

func (s *recordingSurface) ClearRect(x, y, width, height float64) {
	s.clears++
	s.circles = s.circles[:0]
}

func (s *recordingSurface) FillCircle(x, y, radius float64, c color.NRGBA) {
	s.circles = append(s.circles, circle{x: x, y: y, r: radius, c: c})
}

// countingScheduler wraps a FrameQueue and tracks how many requests were made.
type countingScheduler struct {
	*host.FrameQueue
	requests int
	cancels  int
}

func (c *countingScheduler) RequestFrame(fn host.FrameFunc) host.FrameHandle {
	c.requests++
	return c.FrameQueue.RequestFrame(fn)
}

func (c *countingScheduler) CancelFrame(h host.FrameHandle) {
	c.cancels++
	c.FrameQueue.CancelFrame(h)
}

type fixture struct {
	sim     *Simulator
	surface *recordingSurface
	sched   *countingScheduler
	clock   *host.MockClock
}

func newFixture(t *testing.T, cfg config.Config) *fixture {
	t.Helper()
	f := &fixture{
		surface: &recordingSurface{},
		sched:   &countingScheduler{FrameQueue: host.NewFrameQueue()},
		clock:   host.NewMockClock(epoch),
	}
	f.sim = New(cfg, Options{
		Surface:   f.surface,
		Scheduler: f.sched,
		Clock:     f.clock,
		Rand:      rand.New(rand.NewSource(7)),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return f
}

// tick advances the clock by d and fires the pending frame.
func (f *fixture) tick(d time.Duration) {
	f.clock.Advance(d)
	f.sched.Tick(f.clock.Now())
}

func dims(w, h float64) host.Dimensions {
	return host.Dimensions{Width: w, Height: h, DPR: 1}
}

func TestNewIsStopped(t *testing.T) {
	f := newFixture(t, config.Default())
	assert.Equal(t, Stopped, f.sim.State())
	assert.False(t, f.sim.Scheduled())
	assert.Equal(t, 0, f.sched.Pending())
	assert.False(t, f.sim.Inert())
}

func TestInitializeBounds(t *testing.T) {
	cfg := config.Default()
	f := newFixture(t, cfg)
	f.sim.Initialize(dims(1920, 1080))

	ps := f.sim.Particles()
	require.Len(t, ps, 60)
	for _, p := range ps {
		assert.GreaterOrEqual(t, p.Radius(), cfg.MinRadius)
		assert.LessOrEqual(t, p.Radius(), cfg.MaxRadius)
		assert.GreaterOrEqual(t, p.Alpha(), cfg.MinAlpha)
		assert.LessOrEqual(t, p.Alpha(), cfg.MaxAlpha)
		assert.GreaterOrEqual(t, p.Seed(), 0.0)
		assert.Less(t, p.Seed(), float64(seedRange))
		assert.GreaterOrEqual(t, p.X, -cfg.SpawnBuffer)
		assert.LessOrEqual(t, p.X, 1920+cfg.SpawnBuffer)
		assert.GreaterOrEqual(t, p.Y, -cfg.SpawnBuffer)
		assert.LessOrEqual(t, p.Y, 1080+cfg.SpawnBuffer)
	}
}

func TestStartTwiceLeavesOnePendingFrame(t *testing.T) {
	f := newFixture(t, config.Default())
	f.sim.Initialize(dims(800, 600))

	f.sim.Start()
	f.sim.Start()
	assert.Equal(t, Running, f.sim.State())
	assert.Equal(t, 1, f.sched.Pending())
	assert.True(t, f.sim.Scheduled())

	f.tick(16 * time.Millisecond)
	assert.Equal(t, 1, f.sched.Pending())
	assert.Equal(t, 1, f.surface.clears)
}

func TestStopTwiceLeavesNothingPending(t *testing.T) {
	f := newFixture(t, config.Default())
	f.sim.Initialize(dims(800, 600))
	f.sim.Start()

	f.sim.Stop()
	f.sim.Stop()
	assert.Equal(t, Stopped, f.sim.State())
	assert.Equal(t, 0, f.sched.Pending())
	assert.False(t, f.sim.Scheduled())

	f.tick(16 * time.Millisecond)
	assert.Equal(t, 0, f.surface.clears)
}

func TestStopWhileStoppedIsNoop(t *testing.T) {
	f := newFixture(t, config.Default())
	f.sim.Stop()
	assert.Equal(t, Stopped, f.sim.State())
	assert.Equal(t, 0, f.sched.cancels)
}

func TestFrameDrawsEveryParticle(t *testing.T) {
	cfg := config.Default()
	f := newFixture(t, cfg)
	f.sim.Initialize(dims(1920, 1080))
	f.sim.Start()

	f.tick(16 * time.Millisecond)
	require.Len(t, f.surface.circles, 60)

	ps := f.sim.Particles()
	for i, c := range f.surface.circles {
		assert.Equal(t, ps[i].X, c.x)
		assert.Equal(t, ps[i].Y, c.y)
		assert.Equal(t, ps[i].Radius(), c.r)
		assert.Equal(t, uint8(0xff), c.c.R)
		assert.Equal(t, toByte(ps[i].Alpha()), c.c.A)
	}
}

func TestFixedAttributesNeverChange(t *testing.T) {
	f := newFixture(t, config.Default())
	f.sim.Initialize(dims(1280, 720))
	before := f.sim.Particles()

	f.sim.Start()
	for i := 0; i < 500; i++ {
		f.tick(16 * time.Millisecond)
	}

	after := f.sim.Particles()
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].Radius(), after[i].Radius())
		assert.Equal(t, before[i].Alpha(), after[i].Alpha())
		assert.Equal(t, before[i].Seed(), after[i].Seed())
	}
}

func TestWrapInvariantHolds(t *testing.T) {
	cfg := config.Default()
	// strong drift pushes dots across edges quickly
	cfg.DriftStrength = 25
	cfg.MaxSpeed = 50
	f := newFixture(t, cfg)
	f.sim.Initialize(dims(320, 320))
	f.sim.Start()

	m := cfg.WrapMargin
	for i := 0; i < 2000; i++ {
		f.tick(time.Duration(5+i%80) * time.Millisecond)
		for _, p := range f.sim.Particles() {
			require.GreaterOrEqual(t, p.X, -m)
			require.LessOrEqual(t, p.X, 320+m)
			require.GreaterOrEqual(t, p.Y, -m)
			require.LessOrEqual(t, p.Y, 320+m)
		}
	}
}

func TestElapsedTimeIsClamped(t *testing.T) {
	cfg := config.Default()
	cfg.DriftStrength = 0
	f := newFixture(t, cfg)
	f.sim.Initialize(dims(1920, 1080))
	before := f.sim.Particles()
	f.sim.Start()

	f.tick(10 * time.Second)
	after := f.sim.Particles()

	dt := (config.MaxFrameGapMillis * time.Millisecond).Seconds()
	checked := 0
	for i := range before {
		wantX := before[i].X + before[i].VX*dt*motionScale
		wantY := before[i].Y + before[i].VY*dt*motionScale
		// particles that wrapped are covered by the wrap test
		if wantX < -cfg.WrapMargin || wantX > 1920+cfg.WrapMargin ||
			wantY < -cfg.WrapMargin || wantY > 1080+cfg.WrapMargin {
			continue
		}
		assert.InDelta(t, wantX, after[i].X, 1e-9)
		assert.InDelta(t, wantY, after[i].Y, 1e-9)
		checked++
	}
	assert.Greater(t, checked, 0)
}

func TestNegativeFrameGapDoesNotMove(t *testing.T) {
	cfg := config.Default()
	cfg.DriftStrength = 0
	f := newFixture(t, cfg)
	f.sim.Initialize(dims(1920, 1080))
	before := f.sim.Particles()
	f.sim.Start()

	f.clock.Advance(-time.Second)
	f.sched.Tick(f.clock.Now())
	assert.Equal(t, before, f.sim.Particles())
}

func TestVelocityIsClamped(t *testing.T) {
	cfg := config.Default()
	cfg.DriftStrength = 40
	cfg.MaxSpeed = 2
	f := newFixture(t, cfg)
	f.sim.Initialize(dims(1920, 1080))
	f.sim.Start()

	for i := 0; i < 1000; i++ {
		f.tick(16 * time.Millisecond)
		for _, p := range f.sim.Particles() {
			require.LessOrEqual(t, p.Speed(), cfg.MaxSpeed+1e-9)
		}
	}
}

func TestDefaultMaxSpeedLeavesDriftAlone(t *testing.T) {
	cfg := config.Default()
	cfg.MaxSpeed = 1e9
	f := newFixture(t, cfg)
	f.sim.Initialize(dims(1920, 1080))
	f.sim.Start()

	// 100s at 60 Hz covers more than two drift periods on both axes
	peak := 0.0
	for i := 0; i < 6000; i++ {
		f.tick(16667 * time.Microsecond)
		for _, p := range f.sim.Particles() {
			peak = max(peak, p.Speed())
		}
	}
	assert.Greater(t, peak, 3.0)
	assert.Less(t, peak, config.Default().MaxSpeed)
}

func TestDriftChangesVelocity(t *testing.T) {
	f := newFixture(t, config.Default())
	f.sim.Initialize(dims(1920, 1080))
	before := f.sim.Particles()
	f.sim.Start()
	f.tick(16 * time.Millisecond)

	after := f.sim.Particles()
	changed := 0
	for i := range before {
		if before[i].VX != after[i].VX || before[i].VY != after[i].VY {
			changed++
		}
	}
	assert.Equal(t, len(before), changed)
}

func TestResizeReseedsField(t *testing.T) {
	f := newFixture(t, config.Default())
	f.sim.OnResize(host.Dimensions{Width: 800, Height: 600, DPR: 2})
	require.Equal(t, 30, f.sim.Len())
	old := f.sim.Particles()

	f.sim.OnResize(host.Dimensions{Width: 1600, Height: 1200, DPR: 2})
	assert.Equal(t, 56, f.sim.Len())
	assert.Equal(t, []host.Dimensions{
		{Width: 800, Height: 600, DPR: 2},
		{Width: 1600, Height: 1200, DPR: 2},
	}, f.surface.resizes)

	seeds := make(map[float64]bool, len(old))
	for _, p := range old {
		seeds[p.Seed()] = true
	}
	for _, p := range f.sim.Particles() {
		assert.False(t, seeds[p.Seed()], "particle survived the resize")
	}
}

func TestResizeClampsDegenerateDimensions(t *testing.T) {
	f := newFixture(t, config.Default())
	f.sim.OnResize(host.Dimensions{Width: 0, Height: -50, DPR: 0})

	assert.Equal(t, host.Dimensions{Width: 300, Height: 300, DPR: 1}, f.sim.Dimensions())
	assert.Equal(t, []host.Dimensions{{Width: 300, Height: 300, DPR: 1}}, f.surface.resizes)
	assert.Equal(t, 30, f.sim.Len())
}

func TestResizeWhileRunningKeepsLoop(t *testing.T) {
	f := newFixture(t, config.Default())
	f.sim.OnResize(dims(800, 600))
	f.sim.Start()

	f.sim.OnResize(dims(1920, 1080))
	assert.Equal(t, Running, f.sim.State())
	assert.Equal(t, 1, f.sched.Pending())

	f.tick(16 * time.Millisecond)
	assert.Len(t, f.surface.circles, 60)
}

func TestVisibilityFlapEndsStopped(t *testing.T) {
	f := newFixture(t, config.Default())
	f.sim.Initialize(dims(800, 600))
	f.sim.Start()

	f.sim.OnVisibilityChange(true)
	f.sim.OnVisibilityChange(false)
	f.sim.OnVisibilityChange(true)

	assert.Equal(t, Stopped, f.sim.State())
	assert.Equal(t, 0, f.sched.Pending())
}

func TestVisibleResumesWithoutJump(t *testing.T) {
	cfg := config.Default()
	cfg.DriftStrength = 0
	f := newFixture(t, cfg)
	f.sim.Initialize(dims(1920, 1080))
	f.sim.Start()
	f.tick(16 * time.Millisecond)

	f.sim.OnVisibilityChange(true)
	f.clock.Advance(time.Minute)
	before := f.sim.Particles()
	f.sim.OnVisibilityChange(false)

	// Start resets the frame baseline, so only the 16ms gap applies
	f.tick(16 * time.Millisecond)
	after := f.sim.Particles()
	for i := range before {
		dx := after[i].X - before[i].X
		if dx > 100 || dx < -100 {
			continue // wrapped
		}
		assert.InDelta(t, before[i].VX*0.016*motionScale, dx, 1e-9)
	}
}

func TestRestartReseedsAndRuns(t *testing.T) {
	f := newFixture(t, config.Default())
	f.sim.Initialize(dims(1920, 1080))
	old := f.sim.Particles()

	f.sim.Restart()
	assert.Equal(t, Running, f.sim.State())
	assert.Equal(t, 1, f.sched.Pending())
	assert.NotEqual(t, old[0].Seed(), f.sim.Particles()[0].Seed())
}

func TestRestartBeforeLayoutUsesFloor(t *testing.T) {
	f := newFixture(t, config.Default())
	f.sim.Restart()
	assert.Equal(t, 30, f.sim.Len())
}

func TestReconfigure(t *testing.T) {
	f := newFixture(t, config.Default())
	f.sim.Initialize(dims(1920, 1080))

	cfg := config.Default()
	cfg.Density = 2
	cfg.Tint = config.Tint{Hue: 120, Saturation: 1, Value: 1}
	require.NoError(t, f.sim.Reconfigure(cfg))
	assert.Equal(t, 120, f.sim.Len())

	f.sim.Start()
	f.tick(16 * time.Millisecond)
	c := f.surface.circles[0].c
	assert.Equal(t, uint8(0), c.R)
	assert.Equal(t, uint8(0xff), c.G)
}

func TestReconfigureRejectsInvalid(t *testing.T) {
	f := newFixture(t, config.Default())
	f.sim.Initialize(dims(1920, 1080))

	bad := config.Default()
	bad.MinAlpha = 0.9
	require.Error(t, f.sim.Reconfigure(bad))
	assert.Equal(t, config.Default(), f.sim.Config())
	assert.Equal(t, 60, f.sim.Len())
}

func TestDispose(t *testing.T) {
	f := newFixture(t, config.Default())
	f.sim.Initialize(dims(800, 600))
	f.sim.Start()

	f.sim.Dispose()
	assert.Equal(t, Disposed, f.sim.State())
	assert.Equal(t, 0, f.sched.Pending())
	assert.Equal(t, 0, f.sim.Len())

	requests := f.sched.requests
	f.sim.Start()
	f.sim.Restart()
	f.sim.OnResize(dims(1920, 1080))
	f.sim.OnVisibilityChange(false)
	assert.Equal(t, requests, f.sched.requests)
	assert.Equal(t, Disposed, f.sim.State())
	assert.Equal(t, 0, f.sim.Len())
}

func TestInertWithoutSurface(t *testing.T) {
	sched := &countingScheduler{FrameQueue: host.NewFrameQueue()}
	sim := New(config.Default(), Options{
		Scheduler: sched,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.True(t, sim.Inert())

	sim.OnResize(dims(1920, 1080))
	sim.Initialize(dims(1920, 1080))
	sim.Start()
	sim.Restart()
	sim.OnVisibilityChange(false)
	sim.Stop()
	sim.Dispose()

	assert.Equal(t, 0, sched.requests)
	assert.Equal(t, 0, sched.cancels)
	assert.Equal(t, Stopped, sim.State())
	assert.Equal(t, 0, sim.Len())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "stopped", Stopped.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "disposed", Disposed.String())
	assert.Equal(t, "unknown", State(42).String())
}
