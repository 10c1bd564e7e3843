// SPDX-License-Identifier: MIT

/*
Package bitint provides the power-of-two helpers used to size transform
windows and ring buffers. Every function is O(1), allocation free and safe
to call from the audio callback.

Usage:

	// Window length from an FFT order (2^11 = 2048)
	size := bitint.FromOrder(11)

	// Recover the order from a configured window length
	order, ok := bitint.Order(size)

	// Round a requested buffer length up to a valid window length
	size = bitint.NextPowerOfTwo(1000) // 1024

NextPowerOfTwo subtracts one before taking the bit length so exact powers of
two map onto themselves: for 8, bits.Len(7) = 3 and 1<<3 = 8, whereas
bits.Len(8) = 4 would double the input.
*/
package bitint

import "math/bits"

// MaxOrder bounds FromOrder so the shift stays inside a 32-bit int.
const MaxOrder = 30

// NextPowerOfTwo returns the next power of 2 >= size.
//
//	Input  Output
//	4      4
//	5      8
//	0      1
//	-1     1
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2.
// (n & (n-1)) clears the lowest set bit, so it is zero only when n has a
// single bit set.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Order returns log2(n) for a power of two. ok is false for any other n.
func Order(n int) (order int, ok bool) {
	if !IsPowerOfTwo(n) {
		return 0, false
	}
	return bits.TrailingZeros(uint(n)), true
}

// FromOrder returns 2^order, clamping order into [0, MaxOrder].
func FromOrder(order int) int {
	if order < 0 {
		order = 0
	}
	if order > MaxOrder {
		order = MaxOrder
	}
	return 1 << order
}
