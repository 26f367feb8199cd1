package game

import (
	"image"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// Surface is an offscreen image the particle field draws into. Coordinates
// arrive in logical units and are scaled by the device pixel ratio here,
// which plays the part of the canvas transform.
type Surface struct {
	img *ebiten.Image
	dpr float64
}

func NewSurface() *Surface {
	return &Surface{dpr: 1}
}

// Resize reallocates the backing image at device resolution. A resize to the
// same pixel size only clears.
func (s *Surface) Resize(width, height, dpr float64) {
	pw, ph := devicePixels(width, dpr), devicePixels(height, dpr)
	s.dpr = dpr

	if s.img != nil {
		if b := s.img.Bounds(); b.Dx() == pw && b.Dy() == ph {
			s.img.Clear()
			return
		}
		s.img.Deallocate()
	}
	s.img = ebiten.NewImage(pw, ph)
}

func (s *Surface) ClearRect(x, y, width, height float64) {
	if s.img == nil {
		return
	}
	bounds := s.img.Bounds()
	r := deviceRect(x, y, width, height, s.dpr).Intersect(bounds)
	if r.Empty() {
		return
	}
	if r == bounds {
		s.img.Clear()
		return
	}
	s.img.SubImage(r).(*ebiten.Image).Clear()
}

func (s *Surface) FillCircle(x, y, radius float64, c color.NRGBA) {
	if s.img == nil {
		return
	}
	vector.DrawFilledCircle(s.img, float32(x*s.dpr), float32(y*s.dpr), float32(radius*s.dpr), c, true)
}

// Image is the backing image, nil before the first resize.
func (s *Surface) Image() *ebiten.Image {
	return s.img
}

func devicePixels(v, dpr float64) int {
	n := int(math.Round(v * dpr))
	if n < 1 {
		n = 1
	}
	return n
}

// deviceRect covers every device pixel touched by the logical rectangle.
func deviceRect(x, y, width, height, dpr float64) image.Rectangle {
	return image.Rect(
		int(math.Floor(x*dpr)),
		int(math.Floor(y*dpr)),
		int(math.Ceil((x+width)*dpr)),
		int(math.Ceil((y+height)*dpr)),
	)
}
