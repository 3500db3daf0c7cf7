// SPDX-License-Identifier: MIT
/*
Package audio is the capture and playback boundary of the shot timer:
- Capture from a PortAudio input device (Engine) or a WAV file (FileSource)
- Delivery of channel 0 as 16-bit little-endian mono PCM chunks
- Recording of the capture stream to WAV
- Playback of WAV cues through a PortAudio output device (Player)

Thread Safety:
- The capture callback runs on the PortAudio thread and reuses one buffer
- Recording state is guarded so it can start and stop while capturing
*/
package audio

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"shottimer/internal/config"
	applog "shottimer/internal/log"
)

// ErrCaptureUnavailable matches every capture open failure.
var ErrCaptureUnavailable = errors.New("capture device unavailable")

// CaptureError reports which device failed to open so another can be chosen.
type CaptureError struct {
	DeviceID int
	Err      error
}

func (e *CaptureError) Error() string {
	if e.DeviceID == config.MinDeviceID {
		return fmt.Sprintf("default capture device: %v", e.Err)
	}
	return fmt.Sprintf("capture device %d: %v", e.DeviceID, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// Is makes every CaptureError match ErrCaptureUnavailable.
func (e *CaptureError) Is(target error) bool { return target == ErrCaptureUnavailable }

// DataCallback receives one chunk of 16-bit little-endian mono PCM. The
// buffer is only valid for the duration of the call.
type DataCallback func(pcm []byte)

// Source is anything that can feed capture chunks to a callback.
type Source interface {
	Start(cb DataCallback) error
	Stop() error
}

var (
	_ Source = (*Engine)(nil)
	_ Source = (*FileSource)(nil)
)

type Engine struct {
	// Core configuration and state.
	config *config.Config

	// Audio input handling.
	inputBuffer  []int16
	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream

	// Mono PCM handed to the callback, reused for every buffer.
	monoBytes []byte
	callback  DataCallback

	recorder *Recorder
	mu       sync.Mutex // Guards inputStream
}

// NewEngine resolves the configured input device. Failures are returned as
// *CaptureError.
func NewEngine(cfg *config.Config) (*Engine, error) {
	inputDevice, err := InputDevice(cfg.DeviceID())
	if err != nil {
		return nil, &CaptureError{DeviceID: cfg.DeviceID(), Err: err}
	}

	frames := cfg.FramesPerBuffer()
	engine := &Engine{
		config:      cfg,
		inputBuffer: make([]int16, frames*cfg.Channels()),
		inputDevice: inputDevice,
		monoBytes:   make([]byte, frames*bytesPerSample),
		recorder:    NewRecorder(int(cfg.SampleRate()), time.Duration(cfg.Recording.MaxDuration)*time.Second),
	}

	if cfg.LowLatency() {
		engine.inputLatency = inputDevice.DefaultLowInputLatency
	} else {
		engine.inputLatency = inputDevice.DefaultHighInputLatency
	}

	return engine, nil
}

// Start opens the input stream and begins delivering chunks to cb.
func (e *Engine) Start(cb DataCallback) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inputStream != nil {
		return fmt.Errorf("capture already started")
	}
	e.callback = cb

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.config.Channels(),
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: e.config.FramesPerBuffer(),
		SampleRate:      e.config.SampleRate(),
	}

	stream, err := portaudio.OpenStream(params, e.processInputStream)
	if err != nil {
		return &CaptureError{DeviceID: e.config.DeviceID(), Err: err}
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return &CaptureError{DeviceID: e.config.DeviceID(), Err: err}
	}
	e.inputStream = stream

	applog.Infof("Engine: capturing from %s at %.0f Hz, %d frames per buffer",
		e.inputDevice.Name, e.config.SampleRate(), e.config.FramesPerBuffer())
	return nil
}

// Stop stops and closes the input stream. It is a no-op when not started.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inputStream == nil {
		return nil
	}

	if err := e.inputStream.Stop(); err != nil {
		return err
	}
	if err := e.inputStream.Close(); err != nil {
		return err
	}
	e.inputStream = nil
	return nil
}

// processInputStream is the PortAudio callback. It only uses pre-allocated
// buffers.
func (e *Engine) processInputStream(in []int16) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	copy(e.inputBuffer, in)
	pcm := MonoPCM16(e.monoBytes, e.inputBuffer[:len(in)], e.config.Channels())

	if e.recorder.Recording() {
		if err := e.recorder.Write(pcm); err != nil {
			applog.Errorf("Engine: error writing to WAV file: %v", err)
		}
	}

	if e.callback != nil {
		e.callback(pcm)
	}
}

// StartRecording writes the capture stream to filename as 16-bit mono WAV.
func (e *Engine) StartRecording(filename string) error {
	return e.recorder.Start(filename)
}

// StopRecording finalizes the WAV file.
func (e *Engine) StopRecording() error {
	return e.recorder.Stop()
}

// Close stops recording and capture.
func (e *Engine) Close() error {
	recErr := e.recorder.Stop()
	streamErr := e.Stop()
	return errors.Join(recErr, streamErr)
}
