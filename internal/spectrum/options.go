// SPDX-License-Identifier: MIT
package spectrum

import (
	"fmt"
	"strings"
)

// Scale is the law that maps a source bin index to a position in [0, 1].
type Scale int

const (
	ScaleLinear Scale = iota
	ScaleLog
	ScaleNthRoot
)

// Accumulation decides how several source bins landing in the same output
// bin are combined.
type Accumulation int

const (
	AccumulateSum Accumulation = iota
	AccumulateMax
)

// Window selects the weighting applied to the samples before the transform.
type Window int

const (
	WindowNone Window = iota
	WindowHanning
	WindowHamming
	WindowBlackman
)

// Interpolation selects the curve used to fill empty output bins.
type Interpolation int

const (
	InterpolateNone Interpolation = iota
	InterpolateLinear
	InterpolateCubicSpline
	InterpolateCubicHermite
)

func (s Scale) String() string {
	switch s {
	case ScaleLinear:
		return "linear"
	case ScaleLog:
		return "log"
	case ScaleNthRoot:
		return "nth-root"
	default:
		return fmt.Sprintf("Scale(%d)", int(s))
	}
}

func (a Accumulation) String() string {
	switch a {
	case AccumulateSum:
		return "sum"
	case AccumulateMax:
		return "max"
	default:
		return fmt.Sprintf("Accumulation(%d)", int(a))
	}
}

func (w Window) String() string {
	switch w {
	case WindowNone:
		return "none"
	case WindowHanning:
		return "hanning"
	case WindowHamming:
		return "hamming"
	case WindowBlackman:
		return "blackman"
	default:
		return fmt.Sprintf("Window(%d)", int(w))
	}
}

func (k Interpolation) String() string {
	switch k {
	case InterpolateNone:
		return "none"
	case InterpolateLinear:
		return "linear"
	case InterpolateCubicSpline:
		return "cspline"
	case InterpolateCubicHermite:
		return "cspline_hermite"
	default:
		return fmt.Sprintf("Interpolation(%d)", int(k))
	}
}

// ParseScale converts an option string (case-insensitive) to a Scale.
func ParseScale(name string) (Scale, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "linear":
		return ScaleLinear, nil
	case "log":
		return ScaleLog, nil
	case "nth-root", "nthroot", "nth_root":
		return ScaleNthRoot, nil
	default:
		return ScaleLog, fmt.Errorf("%w: unknown scale '%s'", ErrInvalidConfiguration, name)
	}
}

// ParseAccumulation converts an option string (case-insensitive) to an
// Accumulation.
func ParseAccumulation(name string) (Accumulation, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sum":
		return AccumulateSum, nil
	case "max":
		return AccumulateMax, nil
	default:
		return AccumulateMax, fmt.Errorf("%w: unknown accumulation method '%s'", ErrInvalidConfiguration, name)
	}
}

// ParseWindow converts an option string (case-insensitive) to a Window.
// "hann" is accepted as an alias of "hanning".
func ParseWindow(name string) (Window, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "none":
		return WindowNone, nil
	case "hanning", "hann":
		return WindowHanning, nil
	case "hamming":
		return WindowHamming, nil
	case "blackman":
		return WindowBlackman, nil
	default:
		return WindowBlackman, fmt.Errorf("%w: unknown window function '%s'", ErrInvalidConfiguration, name)
	}
}

// ParseInterpolation converts an option string (case-insensitive) to an
// Interpolation.
func ParseInterpolation(name string) (Interpolation, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "none":
		return InterpolateNone, nil
	case "linear":
		return InterpolateLinear, nil
	case "cspline":
		return InterpolateCubicSpline, nil
	case "cspline_hermite", "cspline-hermite":
		return InterpolateCubicHermite, nil
	default:
		return InterpolateCubicSpline, fmt.Errorf("%w: unknown interpolation type '%s'", ErrInvalidConfiguration, name)
	}
}
