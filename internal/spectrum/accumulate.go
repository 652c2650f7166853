// SPDX-License-Identifier: MIT
package spectrum

// combine folds amplitude a into the running value of an output bin.
//
// SUM keeps the total energy of the bins that collapse together and gives more
// treble detail with exaggerated heights. MAX keeps the shape of the
// waveform with less treble detail.
func (acc Accumulation) combine(current, a float64) float64 {
	switch acc {
	case AccumulateSum:
		return current + a
	case AccumulateMax:
		if a > current {
			return a
		}
		return current
	default:
		panic(&LogicError{Op: "accumulation", Value: int(acc)})
	}
}
