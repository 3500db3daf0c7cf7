// SPDX-License-Identifier: MIT
/*
Package analysis turns a chunked PCM capture stream into discrete shot events.

The SpikeDetector counts samples whose magnitude exceeds a loudness threshold.
Once enough of them have been seen it reports a shot and stops listening for a
short settle window so the decay tail of the report is not counted again.

Sample accounting:
  - Every chunk advances the sample cursor by len(chunk)/2, whether or not any
    sample in it was read.
  - Ignore windows are expressed as absolute sample indexes, so they carry
    across chunk boundaries.
  - Shot times come from the sample cursor, never from the wall clock.
*/
package analysis

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

const (
	bytesPerSample = 2

	// warmUpMs masks capture start-up clicks right after construction.
	warmUpMs = 1000
	// settleMs is how long a report is allowed to ring before listening again.
	settleMs = 120

	maxMagnitude = math.MaxInt16
)

var (
	// ErrUnsupportedSampleBits is returned for any sample width other than 16 bits.
	ErrUnsupportedSampleBits = errors.New("only 16 bit samples are supported")
	// ErrInvalidSampleRate is returned when the rate is below one sample per millisecond.
	ErrInvalidSampleRate = errors.New("sample rate must be at least 1000 Hz")
)

// ConfigError reports an invalid detector setting.
type ConfigError struct {
	Field string
	Value int
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("detector config: %s=%d: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// DetectorConfig holds the detector settings. RefractoryCount is the number of
// extra above-threshold samples needed to confirm a shot (lower is more
// sensitive). LoudnessPercent is the threshold as a percentage of full scale.
type DetectorConfig struct {
	SampleRate      int
	SampleBits      int
	RefractoryCount int
	LoudnessPercent int
}

// SpikeDetector detects shots as runs of loud samples. It is safe for
// concurrent ProcessAudio and Reset calls.
type SpikeDetector struct {
	threshold     int   // Absolute 16-bit magnitude a sample must exceed
	required      int   // Above-threshold samples needed to confirm a shot
	samplesPerMs  int64 // Truncated samples per millisecond
	settleSamples int64 // Length of the post-shot ignore window

	mu             sync.Mutex
	currentSample  int64 // Absolute index of the first sample of the next chunk
	lastShotSample int64
	shotCount      int
	ignoreUntil    int64 // -1 when no ignore window is active
	aboveThreshold int
	peak           int // Loudest magnitude since the last reset, diagnostics only
}

// NewSpikeDetector validates cfg and returns a detector with the warm-up window
// armed. Loudness is clamped to [1,100] and the refractory count to at least 1.
func NewSpikeDetector(cfg DetectorConfig) (*SpikeDetector, error) {
	if cfg.SampleBits != 16 {
		return nil, &ConfigError{Field: "sample_bits", Value: cfg.SampleBits, Err: ErrUnsupportedSampleBits}
	}
	if cfg.SampleRate < 1000 {
		return nil, &ConfigError{Field: "sample_rate", Value: cfg.SampleRate, Err: ErrInvalidSampleRate}
	}

	loudness := min(max(cfg.LoudnessPercent, 1), 100)
	refractory := max(cfg.RefractoryCount, 1)
	samplesPerMs := int64(cfg.SampleRate / 1000)

	return &SpikeDetector{
		threshold:     int(math.Round(float64(loudness) * maxMagnitude / 100)),
		required:      refractory + 1, // The first loud sample counts as one.
		samplesPerMs:  samplesPerMs,
		settleSamples: settleMs * samplesPerMs,
		ignoreUntil:   warmUpMs * samplesPerMs,
	}, nil
}

// ProcessAudio scans one chunk of 16-bit little-endian mono PCM. A trailing odd
// byte is ignored. Events are returned in time order; nil means no shot.
func (d *SpikeDetector) ProcessAudio(buffer []byte) []ShotEvent {
	d.mu.Lock()
	defer d.mu.Unlock()

	samples := len(buffer) / bytesPerSample
	events := d.scan(buffer[:samples*bytesPerSample], samples)
	d.currentSample += int64(samples)
	return events
}

// scan must be called with d.mu held. It never moves d.currentSample.
func (d *SpikeDetector) scan(buffer []byte, samples int) []ShotEvent {
	start := 0
	if d.ignoreUntil >= 0 {
		if d.currentSample+int64(samples) <= d.ignoreUntil {
			return nil
		}
		start = int(max(d.ignoreUntil-d.currentSample, 0))
		d.ignoreUntil = -1
	}

	var events []ShotEvent
	for i := start; i < samples; i++ {
		raw := int16(binary.LittleEndian.Uint16(buffer[i*bytesPerSample:]))
		magnitude := magnitudeOf(raw)
		if magnitude > d.peak {
			d.peak = magnitude
		}

		// A quiet sample does not restart the run; only a confirmed shot or
		// Reset does.
		if magnitude <= d.threshold {
			continue
		}
		d.aboveThreshold++
		if d.aboveThreshold < d.required {
			continue
		}
		d.aboveThreshold = 0

		shotSample := d.currentSample + int64(i)
		events = append(events, d.newShot(shotSample))

		d.ignoreUntil = shotSample + d.settleSamples
		resume := d.ignoreUntil - d.currentSample
		if resume >= int64(samples) {
			// The window outlives this chunk; the next call skips the rest.
			break
		}
		d.ignoreUntil = -1
		i = int(resume) - 1
	}

	return events
}

// newShot must be called with d.mu held.
func (d *SpikeDetector) newShot(shotSample int64) ShotEvent {
	d.shotCount++
	event := ShotEvent{
		Number: d.shotCount,
		Time:   time.Duration(shotSample/d.samplesPerMs) * time.Millisecond,
		Split:  time.Duration((shotSample-d.lastShotSample)/d.samplesPerMs) * time.Millisecond,
	}
	d.lastShotSample = shotSample
	return event
}

// Reset rewinds the detector to the start of a run. The warm-up window is not
// re-armed.
func (d *SpikeDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.currentSample = 0
	d.lastShotSample = 0
	d.shotCount = 0
	d.ignoreUntil = -1
	d.aboveThreshold = 0
	d.peak = 0
}

// Threshold returns the absolute 16-bit magnitude a sample must exceed.
func (d *SpikeDetector) Threshold() int {
	return d.threshold
}

// SamplesPerMillisecond returns the truncated samples-per-millisecond factor
// used for every time computation.
func (d *SpikeDetector) SamplesPerMillisecond() int {
	return int(d.samplesPerMs)
}

// SampleIndex returns the absolute index of the next sample to be processed.
func (d *SpikeDetector) SampleIndex() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.currentSample
}

// Peak returns the loudest magnitude read since construction or the last reset.
func (d *SpikeDetector) Peak() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.peak
}

// magnitudeOf returns |s|, mapping -32768 to 32767 since its absolute value
// does not fit in 16 bits.
func magnitudeOf(s int16) int {
	if s == math.MinInt16 {
		return maxMagnitude
	}
	if s < 0 {
		return int(-s)
	}
	return int(s)
}
