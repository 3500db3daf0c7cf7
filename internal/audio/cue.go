// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"

	applog "shottimer/internal/log"
)

// ErrInvalidWAV is returned for files the WAV decoder rejects.
var ErrInvalidWAV = errors.New("not a valid WAV file")

// Cue is a decoded sound, interleaved 16-bit samples.
type Cue struct {
	Path       string
	SampleRate int
	Channels   int
	Samples    []int16
}

// Frames returns the number of sample frames.
func (c *Cue) Frames() int {
	return len(c.Samples) / max(c.Channels, 1)
}

// Duration returns the playing time.
func (c *Cue) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(c.Frames()) * time.Second / time.Duration(c.SampleRate)
}

// LoadCue decodes a PCM WAV file of any bit depth into 16-bit samples.
func LoadCue(path string) (*Cue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cue: %w", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%s: %w", path, ErrInvalidWAV)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	bitDepth := int(d.BitDepth)
	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = toInt16(v, bitDepth)
	}

	return &Cue{
		Path:       path,
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		Samples:    samples,
	}, nil
}

// Player plays WAV cues on a PortAudio output device. Decoded cues are
// cached. PortAudio must be initialized.
type Player struct {
	deviceID        int
	framesPerBuffer int
	log             applog.Logger

	mu    sync.Mutex
	cache map[string]*Cue
}

// NewPlayer returns a player for the given output device (-1 for default).
func NewPlayer(deviceID, framesPerBuffer int, logger applog.Logger) *Player {
	if logger == nil {
		logger = applog.Default()
	}
	return &Player{
		deviceID:        deviceID,
		framesPerBuffer: max(framesPerBuffer, 64),
		log:             logger,
		cache:           make(map[string]*Cue),
	}
}

// Load returns the decoded cue, decoding it on first use.
func (p *Player) Load(path string) (*Cue, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cue, ok := p.cache[path]; ok {
		return cue, nil
	}
	cue, err := LoadCue(path)
	if err != nil {
		return nil, err
	}
	p.cache[path] = cue
	return cue, nil
}

// Preload decodes every path so the first Play does not pay for it.
func (p *Player) Preload(paths ...string) error {
	var errs []error
	for _, path := range paths {
		if _, err := p.Load(path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Play blocks until the cue has been written to the device or ctx is done.
// Cancellation is checked between buffers, so Play returns within one buffer
// of ctx being cancelled.
func (p *Player) Play(ctx context.Context, path string) error {
	cue, err := p.Load(path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	device, err := OutputDevice(p.deviceID)
	if err != nil {
		return fmt.Errorf("cue output: %w", err)
	}

	channels := max(cue.Channels, 1)
	out := make([]int16, p.framesPerBuffer*channels)
	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: channels,
			Latency:  device.DefaultLowOutputLatency,
		},
		SampleRate:      float64(cue.SampleRate),
		FramesPerBuffer: p.framesPerBuffer,
	}

	stream, err := portaudio.OpenStream(params, out)
	if err != nil {
		return fmt.Errorf("failed to open cue stream: %w", err)
	}
	defer stream.Close()
	if err := stream.Start(); err != nil {
		return fmt.Errorf("failed to start cue stream: %w", err)
	}
	defer stream.Stop()

	p.log.Debugf("Player: playing %s (%s)", cue.Path, cue.Duration())
	for offset := 0; offset < len(cue.Samples); offset += len(out) {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := copy(out, cue.Samples[offset:])
		clear(out[n:])
		if err := stream.Write(); err != nil {
			return fmt.Errorf("failed to write cue: %w", err)
		}
	}
	return nil
}
