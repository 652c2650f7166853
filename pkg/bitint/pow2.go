// SPDX-License-Identifier: MIT

/*
Package bitint holds the power-of-two helpers used to step transform sizes.

The transform accepts any even size, but powers of two take gonum's fastest
path, so interactive resizing snaps to them:

	bitint.NextPowerOfTwo(3000) // 4096
	bitint.PrevPowerOfTwo(3000) // 2048

NextPowerOfTwo subtracts one before taking the bit length so that an exact
power of two maps to itself: Len(8-1) = 3 and 1<<3 = 8, whereas Len(8) = 4
would double it.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size, or 1 for size <= 0.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// PrevPowerOfTwo returns the largest power of 2 <= size, or 0 for size <= 0.
func PrevPowerOfTwo(size int) int {
	if size <= 0 {
		return 0
	}
	return 1 << (bits.Len(uint(size)) - 1)
}

// IsPowerOfTwo checks if n is a power of 2 using bit manipulation.
// Subtracting 1 from a power of 2 sets all lower bits, so the AND is zero
// only for powers of 2.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
