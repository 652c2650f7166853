// SPDX-License-Identifier: MIT

// Package render lays out spectrum bars and rasterizes them onto RGBA frames.
package render

import (
	"image"
	"math"
)

// Layout describes bar geometry in pixels.
type Layout struct {
	BarWidth   int
	BarSpacing int
	Margin     int
}

// Stride is the horizontal distance from one bar to the next.
func (l Layout) Stride() int {
	return l.BarWidth + l.BarSpacing
}

// Count returns how many bars fit across a frame of the given width.
func (l Layout) Count(width int) int {
	avail := width - 2*l.Margin
	if l.Stride() <= 0 || avail <= 0 {
		return 0
	}
	return avail / l.Stride()
}

// CountIn returns how many bars fit across rect.
func (l Layout) CountIn(rect image.Rectangle) int {
	if l.Stride() <= 0 || rect.Dx() <= 0 {
		return 0
	}
	return rect.Dx() / l.Stride()
}

// Viewport is the frame inset by the margin on every side.
func (l Layout) Viewport(width, height int) image.Rectangle {
	if width <= 2*l.Margin || height <= 2*l.Margin {
		return image.Rectangle{}
	}
	return image.Rect(l.Margin, l.Margin, width-l.Margin, height-l.Margin)
}

// Halves splits a viewport into left and right rectangles for stereo.
func Halves(view image.Rectangle) (left, right image.Rectangle) {
	mid := view.Min.X + view.Dx()/2
	left = image.Rect(view.Min.X, view.Min.Y, mid, view.Max.Y)
	right = image.Rect(mid, view.Min.Y, view.Max.X, view.Max.Y)
	return left, right
}

// BarX is the left edge of bar i inside rect. Backwards bars start at the
// right edge and grow leftwards.
func (l Layout) BarX(i int, rect image.Rectangle, backwards bool) int {
	if backwards {
		return rect.Max.X - l.BarWidth - i*l.Stride()
	}
	return rect.Min.X + i*l.Stride()
}

// BarHeight converts a spectrum value into a bar height in pixels. Bars are
// never shorter than one pixel nor taller than the viewport.
func BarHeight(v, multiplier float64, viewport int) int {
	h := math.Round(math.Min(float64(viewport), multiplier*math.Max(0, v)*float64(viewport)))
	if h < 1 || math.IsNaN(h) {
		return 1
	}
	return int(h)
}
