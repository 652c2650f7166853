// SPDX-License-Identifier: MIT
package audio

import "fmt"

// CopyChannel de-interleaves one channel of src into dst. channel is 0-based.
// dst positions past the end of src are zero-filled, so dst always ends up
// fully written.
//
// Performance Critical (Hot Path):
// - No allocations
func CopyChannel(dst []float64, src []float32, channels, channel int) error {
	if channels <= 0 {
		return fmt.Errorf("invalid channel count: %d", channels)
	}
	if channel < 0 || channel >= channels {
		return fmt.Errorf("invalid channel %d for %d-channel audio", channel, channels)
	}

	frames := len(src) / channels
	n := min(frames, len(dst))
	for i := range n {
		dst[i] = float64(src[i*channels+channel])
	}
	clear(dst[n:])
	return nil
}
