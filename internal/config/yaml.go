// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"shottimer/internal/analysis"
	applog "shottimer/internal/log"
	"shottimer/pkg/bitint"
)

// DefaultConfigFile is searched for in the working directory when no path is given.
const DefaultConfigFile = "shottimer.yaml"

// ErrSampleRateOutOfRange is returned for rates outside [MinSampleRate, MaxSampleRate].
var ErrSampleRateOutOfRange = fmt.Errorf("sample rate must be between %d and %d Hz", MinSampleRate, MaxSampleRate)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug logging.
	LogLevel  string          `yaml:"log_level"` // Logging level (e.g., "debug", "info", "warn", "error").
	LogFile   string          `yaml:"log_file"`  // Log destination in TUI mode; empty discards.
	Timer     TimerConfig     `yaml:"timer"`     // Drill sequencing.
	Audio     AudioConfig     `yaml:"audio"`     // Audio capture settings.
	Detector  DetectorConfig  `yaml:"detector"`  // Shot detection.
	Recording RecordingConfig `yaml:"recording"` // Drill recording to WAV.
	Transport TransportConfig `yaml:"transport"` // Where shots and the clock are published.
}

// TimerConfig holds drill sequencing settings. Delays are in seconds.
type TimerConfig struct {
	RandomDelay  bool          `yaml:"random_delay"`      // Draw the start delay between min and max.
	MinDelay     float64       `yaml:"min_delay_seconds"` // Fixed delay, or lower bound when random.
	MaxDelay     float64       `yaml:"max_delay_seconds"` // Upper bound when random.
	PlayStandby  bool          `yaml:"play_standby"`      // Play a "ready, standby" cue first.
	SoundsDir    string        `yaml:"sounds_dir"`        // Directory searched for cues.
	StartCue     string        `yaml:"start_cue"`         // Start beep; first Beep_* file when empty.
	StandbyCues  []string      `yaml:"standby_cues"`      // Standby cues; all ReadyStandby_* files when empty.
	TickInterval time.Duration `yaml:"tick_interval"`     // Clock publishing period.
}

// AudioConfig holds settings related to audio input.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index for audio input (-1 for default).
	OutputDevice    int     `yaml:"output_device"`     // PortAudio device index for cue playback (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz (e.g., 44100, 48000).
	SampleBits      int     `yaml:"sample_bits"`       // Bits per sample; must be 16.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per capture callback, rounded up to a power of two.
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from PortAudio device.
	InputChannels   int     `yaml:"input_channels"`    // Channels to open; only channel 0 is analysed.
	InputFile       string  `yaml:"input_file"`        // Replay this WAV instead of capturing.
	Realtime        bool    `yaml:"realtime_replay"`   // Pace InputFile replay at its sample rate.
}

// DetectorConfig holds shot detection settings.
type DetectorConfig struct {
	RefractoryCount int `yaml:"refractory_count"` // Extra loud samples needed to confirm a shot.
	LoudnessPercent int `yaml:"loudness_percent"` // Threshold as a percentage of full scale (1-100).
}

// RecordingConfig holds settings related to drill recording.
type RecordingConfig struct {
	Enabled     bool   `yaml:"enabled"`              // Record the capture stream to a WAV file.
	OutputDir   string `yaml:"output_dir"`           // Directory used for generated file names.
	OutputFile  string `yaml:"output_file"`          // Explicit output path.
	MaxDuration int    `yaml:"max_duration_seconds"` // Stop recording after this many seconds (0 for unlimited).
}

// TransportConfig holds settings related to sending shots and the clock.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`  // Broadcast shots to WebSocket clients.
	WebSocketAddress string        `yaml:"websocket_address"`  // Listen address for the WebSocket server.
	ElapsedInterval  time.Duration `yaml:"elapsed_interval"`   // Minimum period between relayed elapsed updates.
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Publish clock packets over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port for UDP packets (e.g., "127.0.0.1:9090").
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between sending UDP packets.
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		Timer: TimerConfig{
			RandomDelay:  DefaultRandomDelay,
			MinDelay:     DefaultMinDelaySeconds,
			MaxDelay:     DefaultMaxDelaySeconds,
			PlayStandby:  DefaultPlayStandby,
			SoundsDir:    DefaultSoundsDir,
			TickInterval: DefaultTickIntervalMs * time.Millisecond,
		},
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			OutputDevice:    DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			SampleBits:      DefaultSampleBits,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
			InputChannels:   DefaultChannels,
			Realtime:        DefaultRealtimeReplay,
		},
		Detector: DetectorConfig{
			RefractoryCount: DefaultRefractoryCount,
			LoudnessPercent: DefaultLoudnessPercent,
		},
		Recording: RecordingConfig{
			OutputDir: DefaultOutputDir,
		},
		Transport: TransportConfig{
			WebSocketAddress: DefaultWebSocketAddress,
			ElapsedInterval:  DefaultElapsedMs * time.Millisecond,
			UDPTargetAddress: DefaultUDPTargetAddress,
			UDPSendInterval:  DefaultUDPSendMs * time.Millisecond,
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches the working directory for DefaultConfigFile. If no file is found, it uses
// built-in defaults. After loading, it applies environment variable overrides and
// validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Environment overrides apply on top of the file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate rejects settings the timer cannot run with and clamps the rest into range.
func (c *Config) Validate() error {
	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel)
	}

	// Audio
	if c.Audio.SampleBits != DefaultSampleBits {
		return fmt.Errorf("audio.sample_bits=%d: %w", c.Audio.SampleBits, analysis.ErrUnsupportedSampleBits)
	}
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate=%.0f: %w", c.Audio.SampleRate, ErrSampleRateOutOfRange)
	}
	if c.Audio.InputDevice < MinDeviceID {
		return fmt.Errorf("audio.input_device=%d: must be %d (default) or a device index", c.Audio.InputDevice, MinDeviceID)
	}
	if c.Audio.OutputDevice < MinDeviceID {
		return fmt.Errorf("audio.output_device=%d: must be %d (default) or a device index", c.Audio.OutputDevice, MinDeviceID)
	}
	if c.Audio.FramesPerBuffer <= 0 {
		c.Audio.FramesPerBuffer = DefaultFramesPerBuffer
	}
	c.Audio.FramesPerBuffer = bitint.ClampPowerOfTwo(c.Audio.FramesPerBuffer, MaxBufferFrames)
	c.Audio.InputChannels = max(c.Audio.InputChannels, 1)

	// Detector
	c.Detector.LoudnessPercent = min(max(c.Detector.LoudnessPercent, MinLoudness), MaxLoudness)
	c.Detector.RefractoryCount = max(c.Detector.RefractoryCount, MinRefractory)

	// Timer
	c.Timer.MinDelay = min(max(c.Timer.MinDelay, 0), MaxDelaySeconds)
	c.Timer.MaxDelay = min(max(c.Timer.MaxDelay, c.Timer.MinDelay), MaxDelaySeconds)
	if c.Timer.TickInterval <= 0 {
		c.Timer.TickInterval = DefaultTickIntervalMs * time.Millisecond
	}

	// Recording
	if c.Recording.MaxDuration < 0 {
		c.Recording.MaxDuration = 0
	}

	// Transport
	if c.Transport.ElapsedInterval < 0 {
		c.Transport.ElapsedInterval = 0
	}
	if c.Transport.WebSocketEnabled {
		if _, _, err := net.SplitHostPort(c.Transport.WebSocketAddress); err != nil {
			return fmt.Errorf("transport.websocket_address %q: %w", c.Transport.WebSocketAddress, err)
		}
	}
	if c.Transport.UDPEnabled {
		if _, _, err := net.SplitHostPort(c.Transport.UDPTargetAddress); err != nil {
			return fmt.Errorf("transport.udp_target_address %q: %w", c.Transport.UDPTargetAddress, err)
		}
		if c.Transport.UDPSendInterval <= 0 {
			return fmt.Errorf("transport.udp_send_interval must be positive when UDP is enabled")
		}
	}

	return nil
}

// applyEnvOverrides reads SHOTTIMER_* variables. Values that do not parse
// are ignored.
func (c *Config) applyEnvOverrides() {
	// SHOTTIMER_{...}
	// These are general overrides.
	envBool("SHOTTIMER_DEBUG", &c.Debug)
	envString("SHOTTIMER_LOG_LEVEL", &c.LogLevel)
	envString("SHOTTIMER_LOG_FILE", &c.LogFile)

	// Capture and detection.
	envInt("SHOTTIMER_INPUT_DEVICE", &c.Audio.InputDevice)
	envInt("SHOTTIMER_OUTPUT_DEVICE", &c.Audio.OutputDevice)
	envFloat("SHOTTIMER_SAMPLE_RATE", &c.Audio.SampleRate)
	envInt("SHOTTIMER_LOUDNESS", &c.Detector.LoudnessPercent)
	envInt("SHOTTIMER_REFRACTORY", &c.Detector.RefractoryCount)

	// Drill.
	envBool("SHOTTIMER_RANDOM_DELAY", &c.Timer.RandomDelay)
	envFloat("SHOTTIMER_MIN_DELAY", &c.Timer.MinDelay)
	envFloat("SHOTTIMER_MAX_DELAY", &c.Timer.MaxDelay)
	envBool("SHOTTIMER_STANDBY", &c.Timer.PlayStandby)
	envString("SHOTTIMER_SOUNDS_DIR", &c.Timer.SoundsDir)

	// SHOTTIMER_UDP_{...} and SHOTTIMER_WS_{...}
	// These are specific to the transport layer.
	envBool("SHOTTIMER_WS_ENABLED", &c.Transport.WebSocketEnabled)
	envString("SHOTTIMER_WS_ADDRESS", &c.Transport.WebSocketAddress)
	envBool("SHOTTIMER_UDP_ENABLED", &c.Transport.UDPEnabled)
	envString("SHOTTIMER_UDP_TARGET_ADDRESS", &c.Transport.UDPTargetAddress)
	envDuration("SHOTTIMER_UDP_SEND_INTERVAL", &c.Transport.UDPSendInterval)
}

func envString(key string, dst *string) {
	if val, ok := os.LookupEnv(key); ok {
		*dst = val
		applog.Debugf("configuration: overriding from %s: %s", key, val)
	}
}

func envBool(key string, dst *bool) {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
			applog.Debugf("configuration: overriding from %s: %v", key, b)
		}
	}
}

func envInt(key string, dst *int) {
	if val, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
			applog.Debugf("configuration: overriding from %s: %d", key, n)
		}
	}
}

func envFloat(key string, dst *float64) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
			applog.Debugf("configuration: overriding from %s: %g", key, f)
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
			applog.Debugf("configuration: overriding from %s: %s", key, d)
		}
	}
}
