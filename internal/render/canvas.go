// SPDX-License-Identifier: MIT
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
)

// BarStyle selects the bar shape.
type BarStyle int

const (
	Pill BarStyle = iota
	Rectangle
)

func (s BarStyle) String() string {
	switch s {
	case Pill:
		return "pill"
	case Rectangle:
		return "rectangle"
	default:
		return "unknown"
	}
}

// ParseBarStyle converts a config name into a BarStyle.
func ParseBarStyle(name string) (BarStyle, error) {
	switch name {
	case "pill":
		return Pill, nil
	case "rectangle":
		return Rectangle, nil
	default:
		return 0, fmt.Errorf("unknown bar type %q", name)
	}
}

// Canvas rasterizes spectrum bars into an RGBA frame.
type Canvas struct {
	img        *image.RGBA
	layout     Layout
	style      BarStyle
	multiplier float64
	colors     Colorizer
	background image.Image
}

// NewCanvas allocates a width x height frame.
func NewCanvas(width, height int, layout Layout, style BarStyle, multiplier float64, colors Colorizer) *Canvas {
	return &Canvas{
		img:        image.NewRGBA(image.Rect(0, 0, width, height)),
		layout:     layout,
		style:      style,
		multiplier: multiplier,
		colors:     colors,
		background: image.NewUniform(color.RGBA{A: 0xff}),
	}
}

// Image returns the frame buffer. It is reused across frames.
func (c *Canvas) Image() *image.RGBA {
	return c.img
}

// Layout returns the bar geometry.
func (c *Canvas) Layout() Layout {
	return c.layout
}

// Viewport is the drawable area inside the margins.
func (c *Canvas) Viewport() image.Rectangle {
	b := c.img.Bounds()
	return c.layout.Viewport(b.Dx(), b.Dy())
}

// Colors returns the colorizer bars are painted with.
func (c *Canvas) Colors() Colorizer {
	return c.colors
}

// Clear paints the whole frame black.
func (c *Canvas) Clear() {
	draw.Draw(c.img, c.img.Bounds(), c.background, image.Point{}, draw.Src)
}

// DrawBars draws one bar per bin inside rect, anchored to its bottom edge.
func (c *Canvas) DrawBars(rect image.Rectangle, bins []float64, backwards bool) {
	n := len(bins)
	w := c.layout.BarWidth
	for i, v := range bins {
		col := c.colors.At(float64(i) / float64(n))
		x := c.layout.BarX(i, rect, backwards)
		h := BarHeight(v, c.multiplier, rect.Dy())
		bar := image.Rect(x, rect.Max.Y-h, x+w, rect.Max.Y)

		if w == 1 || c.style == Rectangle {
			draw.Draw(c.img, bar, image.NewUniform(col), image.Point{}, draw.Src)
			continue
		}
		c.fillPill(bar, col)
	}
}

// fillPill fills bar as a capsule: a vertical segment swept by a disc whose
// diameter is the narrower side of the bar.
func (c *Canvas) fillPill(bar image.Rectangle, col color.RGBA) {
	bar = bar.Intersect(c.img.Bounds())
	if bar.Empty() {
		return
	}
	r := float64(min(bar.Dx(), bar.Dy())) / 2
	cx := float64(bar.Min.X) + float64(bar.Dx())/2
	top := float64(bar.Min.Y) + r
	bottom := float64(bar.Max.Y) - r
	limit := r*r + 0.25

	for y := bar.Min.Y; y < bar.Max.Y; y++ {
		py := float64(y) + 0.5
		dy := 0.0
		if py < top {
			dy = top - py
		} else if py > bottom {
			dy = py - bottom
		}
		half := math.Sqrt(math.Max(0, limit-dy*dy))
		x0 := max(bar.Min.X, int(math.Ceil(cx-half-0.5)))
		x1 := min(bar.Max.X, int(math.Floor(cx+half-0.5))+1)
		for x := x0; x < x1; x++ {
			c.img.SetRGBA(x, y, col)
		}
	}
}
