// SPDX-License-Identifier: MIT
package analysis

// ShotDetector is the standard interface for components that turn raw capture
// chunks into shot events. ProcessAudio is called from the capture callback, so
// implementations must be fast, non-blocking and free of I/O.
type ShotDetector interface {
	// ProcessAudio consumes a chunk of 16-bit little-endian mono PCM and returns
	// the shots found in it, in time order. The buffer is only valid for the
	// duration of the call.
	ProcessAudio(buffer []byte) []ShotEvent

	// Reset rewinds the sample cursor and shot numbering to the start of a run.
	Reset()
}

// Ensure SpikeDetector satisfies the interface at compile time.
var _ ShotDetector = (*SpikeDetector)(nil)
