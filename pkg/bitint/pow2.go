/*
Package bitint provides the power-of-two helpers used to size analysis
windows and FFT buffers.

Usage:

	size := bitint.NextPowerOfTwo(1500) // 2048
	ok := bitint.IsPowerOfTwo(size)     // true

NextPowerOfTwo subtracts one before taking the bit length so that exact
powers of two map to themselves: bits.Len(8-1) is 3 and 1<<3 is 8, while
bits.Len(8) would give 16.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size. Non-positive
// sizes return 1.
func NextPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of two. A power of two
// has exactly one bit set, so clearing the lowest set bit leaves zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Log2 returns log2(n) for a power of two n, or -1 otherwise. It gives the
// number of radix-2 stages an FFT of size n runs.
func Log2(n int) int {
	if !IsPowerOfTwo(n) {
		return -1
	}
	return bits.TrailingZeros(uint(n))
}
