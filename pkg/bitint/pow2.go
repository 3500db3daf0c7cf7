// SPDX-License-Identifier: MIT
/*
Package bitint provides the power-of-2 helpers used to size capture and
playback buffers. All functions are allocation free and constant time.

Usage:

	frames := bitint.NextPowerOfTwo(1000)        // 1024
	frames = bitint.ClampPowerOfTwo(20000, 8192) // 8192

NextPowerOfTwo subtracts one before taking the bit length so that exact
powers of 2 are preserved: for 8, bits.Len(7) = 3 and 1<<3 = 8. Without the
subtraction bits.Len(8) = 4 would double the input.
*/
package bitint

import "math/bits"

// Integer is any signed integer type.
type Integer interface {
	~int | ~int32 | ~int64
}

// NextPowerOfTwo returns the smallest power of 2 >= size. Zero and negative
// sizes return 1.
//
//	Input  Output
//	4      4
//	5      8
//	0      1
//	-1     1
func NextPowerOfTwo[T Integer](size T) T {
	if size <= 1 {
		return 1
	}
	return T(1) << bits.Len64(uint64(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2. Powers of 2 have
// exactly one bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo[T Integer](n T) bool {
	return n > 0 && n&(n-1) == 0
}

// ClampPowerOfTwo rounds size up to a power of 2 no larger than limit, which
// must itself be a power of 2.
func ClampPowerOfTwo[T Integer](size, limit T) T {
	return min(NextPowerOfTwo(size), limit)
}
