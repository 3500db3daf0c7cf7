// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"testing"

	"shottimer/pkg/utils"
)

func TestMonoPCM16(t *testing.T) {
	tests := []struct {
		name     string
		in       []int16
		channels int
		want     []int16
	}{
		{"mono", []int16{1, -2, 3}, 1, []int16{1, -2, 3}},
		{"stereo takes left", []int16{1, 100, -2, 200, 3, 300}, 2, []int16{1, -2, 3}},
		{"partial frame dropped", []int16{1, 100, 2}, 2, []int16{1}},
		{"zero channels treated as mono", []int16{5, 6}, 0, []int16{5, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MonoPCM16(nil, tt.in, tt.channels)
			if want := utils.PCM16(tt.want); !bytes.Equal(got, want) {
				t.Errorf("MonoPCM16 = % x, want % x", got, want)
			}
		})
	}

	// Reuses a large enough buffer.
	dst := make([]byte, 64)
	got := MonoPCM16(dst, []int16{7, 8}, 1)
	if &got[0] != &dst[0] {
		t.Error("MonoPCM16 allocated despite sufficient capacity")
	}
}

func TestToInt16(t *testing.T) {
	tests := []struct {
		v, depth int
		want     int16
	}{
		{1234, 16, 1234},
		{-32768, 16, -32768},
		{1 << 20, 24, 1 << 12},
		{-(1 << 23), 24, -32768},
		{1 << 30, 32, 1 << 14},
		{128, 8, 0},
		{255, 8, 127 << 8},
		{0, 8, -32768},
	}
	for _, tt := range tests {
		if got := toInt16(tt.v, tt.depth); got != tt.want {
			t.Errorf("toInt16(%d, %d) = %d, want %d", tt.v, tt.depth, got, tt.want)
		}
	}
}
