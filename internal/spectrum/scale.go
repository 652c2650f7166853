// SPDX-License-Identifier: MIT
package spectrum

import "math"

// normalizers caches the "max" of every scale law, computed from the number
// of source bins. They only change with the fft size or the nth root.
type normalizers struct {
	linear, log, sqrt, cbrt, nthRoot float64
}

func newNormalizers(bins int, rootInv float64) normalizers {
	b := float64(bins)
	return normalizers{
		linear:  b,
		log:     math.Log(b),
		sqrt:    math.Sqrt(b),
		cbrt:    math.Cbrt(b),
		nthRoot: math.Pow(b, rootInv),
	}
}

// ratio maps source bin i to [0, 1). Index 0 is floored to 1 under the log
// law. The root 1/2/3 cases are cheaper paths of the general root formula.
func (s Scale) ratio(i, root, rootInv float64, n *normalizers) float64 {
	switch s {
	case ScaleLinear:
		return i / n.linear
	case ScaleLog:
		return math.Log(math.Max(i, 1)) / n.log
	case ScaleNthRoot:
		switch root {
		case 1:
			return i / n.linear
		case 2:
			return math.Sqrt(i) / n.sqrt
		case 3:
			return math.Cbrt(i) / n.cbrt
		default:
			return math.Pow(i, rootInv) / n.nthRoot
		}
	default:
		panic(&LogicError{Op: "scale", Value: int(s)})
	}
}

// binIndex turns a ratio into an output index clamped to [0, m).
func binIndex(ratio float64, m int) int {
	idx := int(math.Floor(ratio * float64(m)))
	if idx < 0 {
		return 0
	}
	if idx > m-1 {
		return m - 1
	}
	return idx
}
