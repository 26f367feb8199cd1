package config

import (
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	WindowWidth  = 1280
	WindowHeight = 720

	// Viewport floor applied before sizing the field
	MinViewport = 300

	// Reference viewport for the base particle count (~1080p)
	ReferenceWidth  = 1920
	ReferenceHeight = 1080

	// Area ratio floor so small viewports keep a sparse field
	MinAreaRatio = 0.5

	// Frame timing
	MaxFrameGapMillis = 60
	ResizeQuietMillis = 120
	FrameRingSize     = 120

	// Environment variable carrying the density multiplier
	ScaleEnv = "PARTICLES_SCALE"
)

// Tint is the dot colour expressed as HSV (hue: 0-360, saturation: 0-1, value: 0-1).
type Tint struct {
	Hue        float64 `yaml:"hue"`
	Saturation float64 `yaml:"saturation"`
	Value      float64 `yaml:"value"`
}

// Config tunes the particle field. The defaults keep it subtle:
// low opacity, slow motion, no connecting lines.
type Config struct {
	BaseCount int `yaml:"base_count"`
	MinCount  int `yaml:"min_count"`
	MaxCount  int `yaml:"max_count"`

	MinRadius float64 `yaml:"min_radius"`
	MaxRadius float64 `yaml:"max_radius"`
	MinAlpha  float64 `yaml:"min_alpha"`
	MaxAlpha  float64 `yaml:"max_alpha"`

	BaseSpeed     float64 `yaml:"base_speed"`
	DriftStrength float64 `yaml:"drift_strength"`
	MaxSpeed      float64 `yaml:"max_speed"`

	SpawnBuffer float64 `yaml:"spawn_buffer"`
	WrapMargin  float64 `yaml:"wrap_margin"`

	// Density scales the particle count without touching the other knobs
	Density float64 `yaml:"density"`

	Tint Tint `yaml:"tint"`
}

// Default returns the tuning used when nothing else is configured.
func Default() Config {
	return Config{
		BaseCount:     60,
		MinCount:      18,
		MaxCount:      160,
		MinRadius:     0.8,
		MaxRadius:     2.6,
		MinAlpha:      0.035,
		MaxAlpha:      0.12,
		BaseSpeed:     6,
		DriftStrength: 0.25,
		MaxSpeed:      8,
		SpawnBuffer:   20,
		WrapMargin:    30,
		Density:       1,
		Tint:          Tint{Hue: 0, Saturation: 0, Value: 1},
	}
}

// Load reads a YAML file over the defaults. Unknown keys are rejected so a
// typo does not silently fall back to a default.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "open config %s", path)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	// an empty file is just the defaults
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Default(), errors.Wrapf(err, "decode config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return Default(), errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// ApplyEnv loads envFile (if it exists) into the process environment and then
// applies PARTICLES_SCALE. Variables already set in the environment win over
// the file, matching godotenv.Load.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return errors.Wrapf(err, "load %s", envFile)
			}
		}
	}

	raw, ok := os.LookupEnv(ScaleEnv)
	if !ok {
		return nil
	}
	c.Density = ParseDensity(raw)
	return nil
}

// ParseDensity mirrors the page-level style variable: anything that is not a
// usable non-zero number means 1.
func ParseDensity(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 1
	}
	return NormalizeDensity(v)
}

// NormalizeDensity maps zero, NaN and infinities to 1.
func NormalizeDensity(v float64) float64 {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 1
	}
	return v
}

// Validate rejects ranges the simulator cannot honour.
func (c Config) Validate() error {
	// NaN slips through every comparison below
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"min_radius", c.MinRadius},
		{"max_radius", c.MaxRadius},
		{"min_alpha", c.MinAlpha},
		{"max_alpha", c.MaxAlpha},
		{"base_speed", c.BaseSpeed},
		{"drift_strength", c.DriftStrength},
		{"max_speed", c.MaxSpeed},
		{"spawn_buffer", c.SpawnBuffer},
		{"wrap_margin", c.WrapMargin},
		{"density", c.Density},
		{"tint.hue", c.Tint.Hue},
		{"tint.saturation", c.Tint.Saturation},
		{"tint.value", c.Tint.Value},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return errors.Errorf("%s is not a finite number", f.name)
		}
	}

	switch {
	case c.MinCount < 0:
		return errors.Errorf("min_count %d is negative", c.MinCount)
	case c.MinCount > c.MaxCount:
		return errors.Errorf("min_count %d exceeds max_count %d", c.MinCount, c.MaxCount)
	case c.MinRadius < 0:
		return errors.Errorf("min_radius %.3f is negative", c.MinRadius)
	case c.MinRadius > c.MaxRadius:
		return errors.Errorf("min_radius %.3f exceeds max_radius %.3f", c.MinRadius, c.MaxRadius)
	case c.MinAlpha < 0 || c.MaxAlpha > 1:
		return errors.Errorf("alpha range [%.3f, %.3f] outside [0, 1]", c.MinAlpha, c.MaxAlpha)
	case c.MinAlpha > c.MaxAlpha:
		return errors.Errorf("min_alpha %.3f exceeds max_alpha %.3f", c.MinAlpha, c.MaxAlpha)
	case c.WrapMargin <= c.MaxRadius:
		return errors.Errorf("wrap_margin %.1f must exceed max_radius %.1f", c.WrapMargin, c.MaxRadius)
	case c.SpawnBuffer > c.WrapMargin:
		return errors.Errorf("spawn_buffer %.1f exceeds wrap_margin %.1f", c.SpawnBuffer, c.WrapMargin)
	case c.MaxSpeed <= 0:
		return errors.Errorf("max_speed %.3f must be positive", c.MaxSpeed)
	}
	return nil
}
