package particles

import (
	"math"
	"math/rand"

	"github.com/iburimskiy/ambient-particles/internal/config"
	"github.com/iburimskiy/ambient-particles/internal/host"
)

const (
	// oscillation: t = elapsedMillis*phaseRate + seed
	phaseRate  = 0.0002
	freqX      = 0.7
	freqY      = 0.6
	driftScale = 0.02
	seedRange  = 1000

	// position advance per second of dt: 60 frames worth, slowed to a fifth
	motionScale = 60 * 0.2

	// initial velocity spread relative to the viewport speed factor
	initialSpread = 0.25
	speedRefDiag  = 1200
)

// Particle is one drifting dot. Position and velocity move every frame;
// radius, alpha and seed are fixed when the particle is created.
type Particle struct {
	X, Y   float64
	VX, VY float64

	radius float64
	alpha  float64
	seed   float64
}

func (p Particle) Radius() float64 { return p.radius }
func (p Particle) Alpha() float64  { return p.alpha }
func (p Particle) Seed() float64   { return p.seed }

// Speed is the velocity magnitude.
func (p Particle) Speed() float64 {
	return math.Hypot(p.VX, p.VY)
}

// clampViewport keeps degenerate (zero, negative, NaN) sizes from starving the field.
func clampViewport(v float64) float64 {
	if !(v >= config.MinViewport) {
		return config.MinViewport
	}
	return v
}

// Count is the number of particles for a viewport of the given logical size.
func Count(cfg config.Config, width, height float64) int {
	w, h := clampViewport(width), clampViewport(height)
	area := (w * h) / (config.ReferenceWidth * config.ReferenceHeight)
	density := config.NormalizeDensity(cfg.Density)

	// clamp before converting, a huge multiplier overflows int
	n := math.Round(float64(cfg.BaseCount) * math.Max(config.MinAreaRatio, area) * density)
	n = math.Min(math.Max(n, float64(cfg.MinCount)), float64(cfg.MaxCount))
	return int(n)
}

func between(rng *rand.Rand, min, max float64) float64 {
	return rng.Float64()*(max-min) + min
}

// seed generates a fresh field for dims. Velocity scales with the viewport
// diagonal so large screens do not look slower.
func seed(cfg config.Config, dims host.Dimensions, rng *rand.Rand) []Particle {
	n := Count(cfg, dims.Width, dims.Height)
	w, h := dims.Width, dims.Height
	speedFactor := (math.Hypot(w, h) / speedRefDiag) * (cfg.BaseSpeed / 10)

	out := make([]Particle, n)
	for i := range out {
		out[i] = Particle{
			X:      between(rng, -cfg.SpawnBuffer, w+cfg.SpawnBuffer),
			Y:      between(rng, -cfg.SpawnBuffer, h+cfg.SpawnBuffer),
			VX:     between(rng, -initialSpread, initialSpread) * speedFactor,
			VY:     between(rng, -initialSpread, initialSpread) * speedFactor,
			radius: between(rng, cfg.MinRadius, cfg.MaxRadius),
			alpha:  between(rng, cfg.MinAlpha, cfg.MaxAlpha),
			seed:   rng.Float64() * seedRange,
		}
	}
	return out
}

// advance moves p by one frame. phase is the global oscillation time
// (elapsedMillis*phaseRate); dt is the clamped frame gap in seconds.
func advance(p *Particle, cfg config.Config, w, h, phase, dt float64) {
	t := phase + p.seed
	nudge := cfg.DriftStrength * driftScale
	p.VX += math.Sin(t*freqX) * nudge
	p.VY += math.Cos(t*freqY) * nudge

	if speed := p.Speed(); speed > cfg.MaxSpeed {
		k := cfg.MaxSpeed / speed
		p.VX *= k
		p.VY *= k
	}

	p.X += p.VX * dt * motionScale
	p.Y += p.VY * dt * motionScale

	m := cfg.WrapMargin
	if p.X < -m {
		p.X = w + m
	}
	if p.X > w+m {
		p.X = -m
	}
	if p.Y < -m {
		p.Y = h + m
	}
	if p.Y > h+m {
		p.Y = -m
	}
}
