// SPDX-License-Identifier: MIT
package spectrum

import "gonum.org/v1/gonum/interp"

// minControlPoints is the fewest nonzero bins worth fitting a curve through.
const minControlPoints = 3

// curve is the subset of gonum's interp.FittablePredictor the engine uses.
type curve interface {
	Fit(xs, ys []float64) error
	Predict(x float64) float64
}

func (k Interpolation) newCurve() curve {
	switch k {
	case InterpolateLinear:
		return &interp.PiecewiseLinear{}
	case InterpolateCubicSpline:
		return &interp.NaturalCubic{}
	case InterpolateCubicHermite:
		return &interp.FritschButland{}
	default:
		panic(&LogicError{Op: "interpolation", Value: int(k)})
	}
}

// interpolate fills the zero bins of out with a curve through the nonzero
// ones. Nonzero bins are never written. Below minControlPoints it does
// nothing.
func (e *Engine) interpolate(out []float64) {
	e.xs = e.xs[:0]
	e.ys = e.ys[:0]
	for i, v := range out {
		if v == 0 {
			continue
		}
		e.xs = append(e.xs, float64(i))
		e.ys = append(e.ys, v)
	}
	if len(e.xs) < minControlPoints || len(e.xs) == len(out) {
		return
	}

	if e.curve == nil || e.curveKind != e.settings.Interpolation {
		e.curve = e.settings.Interpolation.newCurve()
		e.curveKind = e.settings.Interpolation
	}
	if err := e.curve.Fit(e.xs, e.ys); err != nil {
		// Control points are strictly increasing and at least three, so
		// gonum has nothing to reject. Leave the gaps rather than guess.
		return
	}

	for i, v := range out {
		if v != 0 {
			continue
		}
		// Cubic curves can undershoot between control points.
		if y := e.curve.Predict(float64(i)); y > 0 {
			out[i] = y
		}
	}
}
