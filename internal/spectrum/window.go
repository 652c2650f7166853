// SPDX-License-Identifier: MIT
package spectrum

import "gonum.org/v1/gonum/dsp/window"

// fill writes the window coefficients for len(coeffs) samples. The gonum
// windows are the symmetric forms over N-1:
//
//	hanning   0.5 (1 - cos(2πi/(N-1)))
//	hamming   0.54 - 0.46 cos(2πi/(N-1))
//	blackman  0.42 - 0.5 cos(2πi/(N-1)) + 0.08 cos(4πi/(N-1))
func (w Window) fill(coeffs []float64) {
	// gonum windows scale the sequence in place, so start from ones.
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch w {
	case WindowNone:
	case WindowHanning:
		window.Hann(coeffs)
	case WindowHamming:
		window.Hamming(coeffs)
	case WindowBlackman:
		window.Blackman(coeffs)
	default:
		panic(&LogicError{Op: "window", Value: int(w)})
	}
}
