// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	applog "shottimer/internal/log"
)

// writeTestWAV encodes interleaved data to a new WAV file in a temp dir.
func writeTestWAV(t *testing.T, name string, rate, depth, channels int, data []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	enc := wav.NewEncoder(f, rate, depth, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: depth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	return path
}

func TestLoadCue(t *testing.T) {
	t.Run("16 bit stereo", func(t *testing.T) {
		path := writeTestWAV(t, "Beep_1.wav", 22050, 16, 2, []int{100, -100, 2000, -2000, 32767, -32768})
		cue, err := LoadCue(path)
		if err != nil {
			t.Fatalf("LoadCue: %v", err)
		}
		if cue.SampleRate != 22050 || cue.Channels != 2 || cue.Frames() != 3 {
			t.Errorf("cue = %d Hz, %d ch, %d frames", cue.SampleRate, cue.Channels, cue.Frames())
		}
		want := []int16{100, -100, 2000, -2000, 32767, -32768}
		for i, s := range want {
			if cue.Samples[i] != s {
				t.Errorf("sample %d = %d, want %d", i, cue.Samples[i], s)
			}
		}
	})

	t.Run("24 bit scaled down", func(t *testing.T) {
		path := writeTestWAV(t, "hi.wav", 48000, 24, 1, []int{1 << 20, -(1 << 20)})
		cue, err := LoadCue(path)
		if err != nil {
			t.Fatalf("LoadCue: %v", err)
		}
		if cue.Samples[0] != 1<<12 || cue.Samples[1] != -(1<<12) {
			t.Errorf("samples = %v, want ±4096", cue.Samples)
		}
	})

	t.Run("duration", func(t *testing.T) {
		path := writeTestWAV(t, "long.wav", 1000, 16, 1, make([]int, 1500))
		cue, err := LoadCue(path)
		if err != nil {
			t.Fatalf("LoadCue: %v", err)
		}
		if cue.Duration() != 1500*time.Millisecond {
			t.Errorf("Duration = %v, want 1.5s", cue.Duration())
		}
	})

	t.Run("not a wav", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "notes.wav")
		if err := os.WriteFile(path, []byte("definitely not RIFF data"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadCue(path); !errors.Is(err, ErrInvalidWAV) {
			t.Errorf("err = %v, want ErrInvalidWAV", err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		if _, err := LoadCue(filepath.Join(t.TempDir(), "gone.wav")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}

func TestPlayerLoadCaches(t *testing.T) {
	path := writeTestWAV(t, "Beep_1.wav", 8000, 16, 1, []int{1, 2, 3})
	p := NewPlayer(-1, 256, applog.Nop())

	first, err := p.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	second, err := p.Load(path)
	if err != nil {
		t.Fatalf("cached Load: %v", err)
	}
	if first != second {
		t.Error("second Load did not come from the cache")
	}
}

func TestPlayerPreload(t *testing.T) {
	good := writeTestWAV(t, "Beep_1.wav", 8000, 16, 1, []int{1})
	p := NewPlayer(-1, 256, applog.Nop())

	if err := p.Preload(good); err != nil {
		t.Errorf("Preload: %v", err)
	}
	if err := p.Preload(good, filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("Preload should report the missing cue")
	}
}

func TestPlayerPlayCancelledBeforeOutput(t *testing.T) {
	path := writeTestWAV(t, "Beep_1.wav", 8000, 16, 1, []int{1, 2, 3})
	p := NewPlayer(-1, 256, applog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Play(ctx, path); !errors.Is(err, context.Canceled) {
		t.Errorf("Play with cancelled context = %v, want context.Canceled", err)
	}
}

func TestPlayerPlayMissingCue(t *testing.T) {
	p := NewPlayer(-1, 256, applog.Nop())
	if err := p.Play(context.Background(), filepath.Join(t.TempDir(), "gone.wav")); err == nil {
		t.Error("expected error for missing cue")
	}
}
