// SPDX-License-Identifier: MIT
package render

import (
	"fmt"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Colorizer picks the color of a bar from its position across the spectrum.
type Colorizer interface {
	// At returns the color for ratio in [0, 1).
	At(ratio float64) color.RGBA
	// Advance moves to the next frame.
	Advance()
}

// ColorWheel spreads the hue circle across the bars, starting at Offset.
// Rate turns the wheel every frame.
type ColorWheel struct {
	Offset     float64
	Saturation float64
	Value      float64
	Rate       float64

	phase float64
}

// NewColorWheel builds a wheel from hue offset, saturation and value, each in [0, 1].
func NewColorWheel(hsv [3]float64, rate float64) *ColorWheel {
	return &ColorWheel{Offset: hsv[0], Saturation: hsv[1], Value: hsv[2], Rate: rate}
}

func (w *ColorWheel) At(ratio float64) color.RGBA {
	_, hue := math.Modf(ratio + w.Offset + w.phase)
	if hue < 0 {
		hue++
	}
	r, g, b := colorful.Hsv(hue*360, w.Saturation, w.Value).Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

func (w *ColorWheel) Advance() {
	_, w.phase = math.Modf(w.phase + w.Rate)
}

// Phase is the current wheel rotation in [0, 1).
func (w *ColorWheel) Phase() float64 {
	return w.phase
}

// Solid paints every bar the same color.
type Solid color.RGBA

func (s Solid) At(float64) color.RGBA { return color.RGBA(s) }
func (Solid) Advance()                {}

// NewColorizer builds a colorizer from its config name: "wheel", "solid" or
// "none" (plain white).
func NewColorizer(mode string, hsv []float64, rgb []int, rate float64) (Colorizer, error) {
	switch mode {
	case "wheel":
		if len(hsv) != 3 {
			return nil, fmt.Errorf("color wheel needs 3 hsv values, got %d", len(hsv))
		}
		return NewColorWheel([3]float64{hsv[0], hsv[1], hsv[2]}, rate), nil
	case "solid":
		if len(rgb) != 3 {
			return nil, fmt.Errorf("solid color needs 3 rgb values, got %d", len(rgb))
		}
		return Solid{R: uint8(rgb[0]), G: uint8(rgb[1]), B: uint8(rgb[2]), A: 0xff}, nil
	case "none":
		return Solid{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, nil
	default:
		return nil, fmt.Errorf("unknown color mode %q", mode)
	}
}

// Hex formats c as #rrggbb.
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
