// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"shottimer/internal/analysis"
	"shottimer/internal/timer"
)

// DeviceID returns the input device ID.
func (c *Config) DeviceID() int {
	return c.Audio.InputDevice
}

// Channels returns the number of input channels.
func (c *Config) Channels() int {
	return c.Audio.InputChannels
}

// FramesPerBuffer returns the frames per capture callback.
func (c *Config) FramesPerBuffer() int {
	return c.Audio.FramesPerBuffer
}

// SampleRate returns the sample rate.
func (c *Config) SampleRate() float64 {
	return c.Audio.SampleRate
}

// LowLatency returns whether to use low latency mode.
func (c *Config) LowLatency() bool {
	return c.Audio.LowLatency
}

// DetectorConfig adapts the audio and detector sections for the spike detector.
func (c *Config) DetectorConfig() analysis.DetectorConfig {
	return analysis.DetectorConfig{
		SampleRate:      int(c.Audio.SampleRate),
		SampleBits:      c.Audio.SampleBits,
		RefractoryCount: c.Detector.RefractoryCount,
		LoudnessPercent: c.Detector.LoudnessPercent,
	}
}

// DrillOptions adapts the timer section for the timing controller.
func (c *Config) DrillOptions() timer.Options {
	return timer.Options{
		MinDelay:     seconds(c.Timer.MinDelay),
		MaxDelay:     seconds(c.Timer.MaxDelay),
		RandomDelay:  c.Timer.RandomDelay,
		PlayStandby:  c.Timer.PlayStandby,
		StandbyCues:  append([]string(nil), c.Timer.StandbyCues...),
		StartCue:     c.Timer.StartCue,
		TickInterval: c.Timer.TickInterval,
	}
}

// Summary is a one-line description of the drill settings, e.g.
// "Delay: 2-4secs / Ready-standby: no / Spikes: 2 / Loudness 50%".
func (c *Config) Summary() string {
	var delay string
	if c.Timer.RandomDelay {
		delay = fmt.Sprintf("Delay: %s-%ssecs", formatSeconds(c.Timer.MinDelay), formatSeconds(c.Timer.MaxDelay))
	} else {
		delay = fmt.Sprintf("Delay: %ssecs", formatSeconds(c.Timer.MinDelay))
	}
	standby := "no"
	if c.Timer.PlayStandby {
		standby = "yes"
	}
	return fmt.Sprintf("%s / Ready-standby: %s / Spikes: %d / Loudness %d%%",
		delay, standby, c.Detector.RefractoryCount, c.Detector.LoudnessPercent)
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s*1000)) * time.Millisecond
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}
