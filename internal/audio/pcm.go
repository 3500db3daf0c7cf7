// SPDX-License-Identifier: MIT
package audio

import "encoding/binary"

const bytesPerSample = 2

// MonoPCM16 writes channel 0 of the interleaved samples into dst as 16-bit
// little-endian PCM and returns the filled part. dst grows when too short.
func MonoPCM16(dst []byte, interleaved []int16, channels int) []byte {
	channels = max(channels, 1)
	frames := len(interleaved) / channels
	if cap(dst) < frames*bytesPerSample {
		dst = make([]byte, frames*bytesPerSample)
	}
	dst = dst[:frames*bytesPerSample]
	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint16(dst[i*bytesPerSample:], uint16(interleaved[i*channels]))
	}
	return dst
}

// toInt16 scales a decoded sample of the given bit depth to 16 bits.
func toInt16(v, bitDepth int) int16 {
	switch {
	case bitDepth == 8:
		// 8-bit WAV is unsigned.
		return int16((v - 128) << 8)
	case bitDepth > 16:
		return int16(v >> (bitDepth - 16))
	case bitDepth < 16 && bitDepth > 0:
		return int16(v << (16 - bitDepth))
	default:
		return int16(v)
	}
}
