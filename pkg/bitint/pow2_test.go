// SPDX-License-Identifier: MIT
package bitint

import (
	"math"
	"testing"
)

func TestNextPowerOfTwo(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-1, 1},
		{0, 1},
		{1, 1},
		{2, 2},
		{3, 4},
		{5, 8},
		{1000, 1024},
		{1024, 1024},
		{1025, 2048},
	}
	for _, tt := range tests {
		if got := NextPowerOfTwo(tt.in); got != tt.want {
			t.Errorf("NextPowerOfTwo(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}

	if got := NextPowerOfTwo(int32(600)); got != 1024 {
		t.Errorf("NextPowerOfTwo[int32](600) = %d, want 1024", got)
	}
	if got := NextPowerOfTwo(int64(math.MaxInt32)); got != 1<<31 {
		t.Errorf("NextPowerOfTwo[int64](MaxInt32) = %d, want %d", got, int64(1)<<31)
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	tests := []struct {
		in   int
		want bool
	}{
		{-8, false},
		{0, false},
		{1, true},
		{7, false},
		{8, true},
		{8192, true},
		{8193, false},
	}
	for _, tt := range tests {
		if got := IsPowerOfTwo(tt.in); got != tt.want {
			t.Errorf("IsPowerOfTwo(%d) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestClampPowerOfTwo(t *testing.T) {
	tests := []struct {
		size, limit, want int
	}{
		{0, 8192, 1},
		{1000, 8192, 1024},
		{8192, 8192, 8192},
		{20000, 8192, 8192},
	}
	for _, tt := range tests {
		if got := ClampPowerOfTwo(tt.size, tt.limit); got != tt.want {
			t.Errorf("ClampPowerOfTwo(%d, %d) = %d, want %d", tt.size, tt.limit, got, tt.want)
		}
	}
}

func BenchmarkNextPowerOfTwo(b *testing.B) {
	for i := 0; b.Loop(); i++ {
		_ = NextPowerOfTwo(i)
	}
}
