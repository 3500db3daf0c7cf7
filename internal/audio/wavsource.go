// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"sync"
	"time"

	applog "shottimer/internal/log"
)

// FileSource replays channel 0 of a WAV file as if it were captured. In
// realtime mode chunks are paced at the file's sample rate; otherwise they
// are delivered as fast as the callback consumes them.
type FileSource struct {
	cue             *Cue
	framesPerBuffer int
	realtime        bool

	mu       sync.Mutex
	started  bool
	doneChan chan struct{} // Closed when replay ends or Stop is called
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewFileSource decodes path up front so its sample rate is known before
// Start.
func NewFileSource(path string, framesPerBuffer int, realtime bool) (*FileSource, error) {
	cue, err := LoadCue(path)
	if err != nil {
		return nil, err
	}
	if cue.SampleRate <= 0 {
		return nil, fmt.Errorf("%s: invalid sample rate %d", path, cue.SampleRate)
	}
	return &FileSource{
		cue:             cue,
		framesPerBuffer: max(framesPerBuffer, 1),
		realtime:        realtime,
		doneChan:        make(chan struct{}),
		stopChan:        make(chan struct{}),
	}, nil
}

// SampleRate returns the file's sample rate.
func (s *FileSource) SampleRate() int {
	return s.cue.SampleRate
}

// Duration returns the file's playing time.
func (s *FileSource) Duration() time.Duration {
	return s.cue.Duration()
}

// Done is closed once every chunk has been delivered or Stop was called.
func (s *FileSource) Done() <-chan struct{} {
	return s.doneChan
}

// Start begins replay on a new goroutine. A FileSource can be started once.
func (s *FileSource) Start(cb DataCallback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("file source already started")
	}
	s.started = true

	s.wg.Add(1)
	go s.replay(cb)
	return nil
}

func (s *FileSource) replay(cb DataCallback) {
	defer s.wg.Done()
	defer close(s.doneChan)

	channels := max(s.cue.Channels, 1)
	chunkSamples := s.framesPerBuffer * channels
	buf := make([]byte, s.framesPerBuffer*bytesPerSample)

	var pace *time.Ticker
	if s.realtime {
		pace = time.NewTicker(time.Duration(s.framesPerBuffer) * time.Second / time.Duration(s.cue.SampleRate))
		defer pace.Stop()
	}

	applog.Debugf("FileSource: replaying %s (%s, realtime=%v)", s.cue.Path, s.cue.Duration(), s.realtime)
	for offset := 0; offset < len(s.cue.Samples); offset += chunkSamples {
		end := min(offset+chunkSamples, len(s.cue.Samples))
		pcm := MonoPCM16(buf, s.cue.Samples[offset:end], channels)

		select {
		case <-s.stopChan:
			return
		default:
		}
		cb(pcm)

		if pace != nil {
			select {
			case <-pace.C:
			case <-s.stopChan:
				return
			}
		}
	}
}

// Stop ends replay early and waits for the replay goroutine. Stopping a
// source that was never started closes Done.
func (s *FileSource) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.started = true
		close(s.doneChan)
	}
	s.mu.Unlock()

	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}
