// SPDX-License-Identifier: MIT
package utils

import (
	"encoding/binary"
	"math"
	"sync"
)

// MockTransport implements the Transport interface for testing. Everything
// sent is kept for later inspection.
type MockTransport struct {
	mu     sync.Mutex
	sent   []any
	closed bool
}

// Send records data instead of transmitting it.
func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, data)
	return nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Sent returns a copy of everything sent so far.
func (m *MockTransport) Sent() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]any(nil), m.sent...)
}

// Closed reports whether Close was called.
func (m *MockTransport) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// PCM16 packs samples as 16-bit little-endian bytes, the capture wire format.
func PCM16(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// Silence returns n zero samples.
func Silence(n int) []byte {
	return make([]byte, n*2)
}

// Burst returns n samples of constant amplitude.
func Burst(n int, amplitude int16) []byte {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = amplitude
	}
	return PCM16(samples)
}

// Concat joins PCM fragments into one buffer.
func Concat(parts ...[]byte) []byte {
	size := 0
	for _, p := range parts {
		size += len(p)
	}
	out := make([]byte, 0, size)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Chunk splits buf into pieces of at most size bytes, as a capture device
// would deliver it.
func Chunk(buf []byte, size int) [][]byte {
	var chunks [][]byte
	for len(buf) > 0 {
		n := min(size, len(buf))
		chunks = append(chunks, buf[:n])
		buf = buf[n:]
	}
	return chunks
}

// GenerateSineWave returns n 16-bit samples of a sine at frequency Hz, scaled
// by amplitude in [0,1].
func GenerateSineWave(n int, sampleRate, frequency, amplitude float64) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / sampleRate
		samples[i] = int16(math.Sin(2*math.Pi*frequency*t) * math.MaxInt16 * amplitude)
	}
	return samples
}
