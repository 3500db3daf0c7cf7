// SPDX-License-Identifier: MIT
package config

// Core configuration constants that define the boundaries and defaults
// for the shot timer.
const (
	// Audio capture defaults
	DefaultDeviceID        = MinDeviceID // System default device
	DefaultSampleRate      = 44100       // CD-quality audio
	DefaultSampleBits      = 16          // The detector only reads 16-bit PCM
	DefaultChannels        = 1           // Mono; channel 0 is used when more are captured
	DefaultFramesPerBuffer = 1024        // ~23ms at 44.1kHz
	DefaultLowLatency      = false
	DefaultRealtimeReplay  = true // Replayed files keep their own timing

	// Detector defaults
	DefaultRefractoryCount = 2  // Extra loud samples needed to confirm a shot
	DefaultLoudnessPercent = 50 // Threshold as a percentage of full scale

	// Drill defaults
	DefaultRandomDelay     = true
	DefaultMinDelaySeconds = 2.0
	DefaultMaxDelaySeconds = 4.0
	DefaultPlayStandby     = false
	DefaultSoundsDir       = "sounds"
	DefaultTickIntervalMs  = 1

	// Cue file name prefixes inside the sounds directory
	BeepSoundsPrefix         = "Beep_"
	ReadyStandbySoundsPrefix = "ReadyStandby_"

	// Recording and output defaults
	DefaultFormat     = "wav"
	DefaultOutputDir  = "./recordings"
	DefaultOutputFile = "" // Auto-generated filename

	// Transport defaults
	DefaultWebSocketAddress = "127.0.0.1:8080"
	DefaultUDPTargetAddress = "127.0.0.1:9090"
	DefaultUDPSendMs        = 33 // ~30Hz
	DefaultElapsedMs        = 50 // Display refresh for elapsed updates

	// Hardware and processing limits
	MinDeviceID      = -1     // -1 represents system default device
	MinSampleRate    = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate    = 192000 // Maximum supported sample rate (Hz)
	MaxBufferFrames  = 8192   // Maximum frames per buffer (power of 2)
	MinLoudness      = 1
	MaxLoudness      = 100
	MinRefractory    = 1
	MaxDelaySeconds  = 60.0
	DefaultVerbosity = false
)
