package particles

import (
	"image/color"
	"math"

	"github.com/iburimskiy/ambient-particles/internal/config"
)

// hsvToRgb converts HSV to RGB (hue: 0-360, saturation: 0-1, value: 0-1)
func hsvToRgb(h, s, v float64) (uint8, uint8, uint8) {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	s, v = clamp01(s), clamp01(v)
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	return toByte(r + m), toByte(g + m), toByte(b + m)
}

func toByte(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// TintColor resolves the configured tint to an opaque RGB colour.
func TintColor(t config.Tint) color.NRGBA {
	r, g, b := hsvToRgb(t.Hue, t.Saturation, t.Value)
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}
}

// withAlpha returns base at the given opacity.
func withAlpha(base color.NRGBA, alpha float64) color.NRGBA {
	base.A = toByte(alpha)
	return base
}
