// SPDX-License-Identifier: MIT
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrAlreadyRecording is returned by Recorder.Start while a file is open.
var ErrAlreadyRecording = errors.New("already recording")

// Recorder writes mono 16-bit PCM chunks to a WAV file. Writes beyond the
// optional maximum duration are dropped.
type Recorder struct {
	sampleRate int
	maxSamples int64 // 0 for unlimited

	mu         sync.Mutex
	outputFile *os.File
	wavEncoder *wav.Encoder
	sampleBuf  *audio.IntBuffer // Reusable buffer for format conversion
	written    int64
}

// NewRecorder returns an idle recorder. maxDuration <= 0 means unlimited.
func NewRecorder(sampleRate int, maxDuration time.Duration) *Recorder {
	r := &Recorder{sampleRate: sampleRate}
	if maxDuration > 0 {
		r.maxSamples = int64(maxDuration.Seconds() * float64(sampleRate))
	}
	return r
}

// Start creates filename and begins accepting writes.
func (r *Recorder) Start(filename string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.wavEncoder != nil {
		return ErrAlreadyRecording
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("failed to create recording directory: %w", err)
	}
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create recording: %w", err)
	}
	r.outputFile = file
	r.wavEncoder = wav.NewEncoder(file, r.sampleRate, 16, 1, 1)
	r.sampleBuf = &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: r.sampleRate},
		SourceBitDepth: 16,
	}
	r.written = 0
	return nil
}

// Recording reports whether a file is open.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.wavEncoder != nil
}

// Written returns the number of samples written to the current or last file.
func (r *Recorder) Written() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

// Write appends one chunk of 16-bit little-endian mono PCM. It is a no-op
// when not recording.
func (r *Recorder) Write(pcm []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.wavEncoder == nil {
		return nil
	}

	n := len(pcm) / bytesPerSample
	if r.maxSamples > 0 {
		n = int(min(int64(n), r.maxSamples-r.written))
	}
	if n <= 0 {
		return nil
	}

	if cap(r.sampleBuf.Data) < n {
		r.sampleBuf.Data = make([]int, n)
	}
	r.sampleBuf.Data = r.sampleBuf.Data[:n]
	for i := range n {
		r.sampleBuf.Data[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*bytesPerSample:])))
	}

	if err := r.wavEncoder.Write(r.sampleBuf); err != nil {
		return err
	}
	r.written += int64(n)
	return nil
}

// Stop finalizes the WAV header and closes the file. It is a no-op when not
// recording.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.wavEncoder == nil {
		return nil
	}

	encErr := r.wavEncoder.Close()
	fileErr := r.outputFile.Close()
	r.wavEncoder = nil
	r.outputFile = nil
	return errors.Join(encErr, fileErr)
}
