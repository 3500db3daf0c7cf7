// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"shottimer/internal/config"
	"shottimer/pkg/build"
)

// Commands selected on the command line. The empty command runs a drill.
const (
	CommandDrill   = ""
	CommandList    = "list"
	CommandAnalyze = "analyze"
)

// Options is the parsed command line: the effective configuration plus what
// to do with it.
type Options struct {
	Config   *config.Config
	Command  string
	Args     []string
	Headless bool          // Log shots instead of showing the drill screen
	Duration time.Duration // Stop the drill and exit after this long; 0 waits for the user
}

// flagValues receives flag values before they are applied on top of the
// loaded configuration.
type flagValues struct {
	configPath      string
	device          int
	outputDevice    int
	channels        int
	sampleRate      float64
	framesPerBuffer int
	lowLatency      bool
	minDelay        float64
	maxDelay        float64
	randomDelay     bool
	standby         bool
	soundsDir       string
	loudness        int
	refractory      int
	input           string
	realtime        bool
	record          bool
	output          string
	websocket       bool
	udp             bool
	verbose         bool
}

// ParseArgs parses args (without the program name). It returns nil options
// when only help or version output was requested.
func ParseArgs(args []string) (*Options, error) {
	buildInfo := build.GetBuildFlags()
	opts := &Options{}
	var (
		fv       flagValues
		executed *cobra.Command
	)

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.String(),
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Command = CommandDrill
			executed = cmd
			return nil
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Command = CommandList
			executed = cmd
			return nil
		},
	}
	analyzeCmd := &cobra.Command{
		Use:   "analyze <file.wav>",
		Short: "Detect shots in a recording and print the splits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Command = CommandAnalyze
			opts.Args = args
			executed = cmd
			return nil
		},
	}
	rootCmd.AddCommand(listCmd, analyzeCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&fv.configPath, "config", "C", "",
		"Path to a YAML configuration file (default ./"+config.DefaultConfigFile+" if present)")

	// Audio Device Configuration
	pf.IntVarP(&fv.device, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	pf.IntVar(&fv.outputDevice, "output-device", config.DefaultDeviceID,
		"Output device ID for cues")
	pf.IntVarP(&fv.channels, "channels", "c", config.DefaultChannels,
		"Number of channels to capture; only the first is analysed")
	pf.Float64VarP(&fv.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	pf.IntVarP(&fv.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	pf.BoolVarP(&fv.lowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use low latency mode for real-time processing")

	// Drill Configuration
	pf.Float64Var(&fv.minDelay, "min-delay", config.DefaultMinDelaySeconds,
		"Start delay in seconds, or its lower bound with --random-delay")
	pf.Float64Var(&fv.maxDelay, "max-delay", config.DefaultMaxDelaySeconds,
		"Upper bound of the random start delay in seconds")
	pf.BoolVar(&fv.randomDelay, "random-delay", config.DefaultRandomDelay,
		"Randomise the start delay between --min-delay and --max-delay")
	pf.BoolVar(&fv.standby, "standby", config.DefaultPlayStandby,
		"Play a ready/standby cue before the start delay")
	pf.StringVar(&fv.soundsDir, "sounds-dir", config.DefaultSoundsDir,
		"Directory holding "+config.BeepSoundsPrefix+"* and "+config.ReadyStandbySoundsPrefix+"* cues")

	// Detector Configuration
	pf.IntVar(&fv.loudness, "loudness", config.DefaultLoudnessPercent,
		"Detection threshold as a percentage of full scale (1-100)")
	pf.IntVar(&fv.refractory, "refractory", config.DefaultRefractoryCount,
		"Extra loud samples needed to confirm a shot (lower is more sensitive)")

	// Input, Recording and Output
	pf.StringVarP(&fv.input, "input", "i", "",
		"Replay a WAV file instead of capturing from a device")
	pf.BoolVar(&fv.realtime, "realtime", config.DefaultRealtimeReplay,
		"Pace --input replay at the file's sample rate")
	pf.BoolVarP(&fv.record, "record", "r", false,
		"Record the capture stream to a WAV file")
	pf.StringVarP(&fv.output, "output", "o", config.DefaultOutputFile,
		"Output file name. Default is recording-DD-MM-YYYY-HHMMSS.wav in the recordings directory")
	pf.BoolVar(&fv.websocket, "websocket", false,
		"Broadcast shots and the clock to WebSocket clients")
	pf.BoolVar(&fv.udp, "udp", false,
		"Publish clock packets over UDP")

	// Run Control
	pf.BoolVar(&opts.Headless, "headless", false,
		"Run one drill without the terminal screen and log shots")
	pf.DurationVar(&opts.Duration, "duration", 0,
		"Stop the drill after this long (e.g. 30s)")

	// Debug Configuration
	pf.BoolVarP(&fv.verbose, "verbose", "v", config.DefaultVerbosity,
		"Show verbose output")

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	if executed == nil {
		return nil, nil
	}

	cfg, err := config.LoadConfig(fv.configPath)
	if err != nil {
		return nil, err
	}
	fv.apply(cfg, executed.Flags().Changed)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	if cfg.Recording.Enabled && cfg.Recording.OutputFile == "" {
		cfg.Recording.OutputFile = filepath.Join(cfg.Recording.OutputDir,
			"recording-"+time.Now().UTC().Format("02-01-2006-150405")+"."+config.DefaultFormat)
	}
	if opts.Duration < 0 {
		return nil, fmt.Errorf("--duration must not be negative")
	}

	opts.Config = cfg
	return opts, nil
}

// apply copies every flag the user set onto cfg. Flags left at their
// defaults never override the file or environment.
func (fv *flagValues) apply(cfg *config.Config, changed func(string) bool) {
	setInt := func(name string, dst *int, v int) {
		if changed(name) {
			*dst = v
		}
	}
	setFloat := func(name string, dst *float64, v float64) {
		if changed(name) {
			*dst = v
		}
	}
	setBool := func(name string, dst *bool, v bool) {
		if changed(name) {
			*dst = v
		}
	}
	setString := func(name string, dst *string, v string) {
		if changed(name) {
			*dst = v
		}
	}

	setInt("device", &cfg.Audio.InputDevice, fv.device)
	setInt("output-device", &cfg.Audio.OutputDevice, fv.outputDevice)
	setInt("channels", &cfg.Audio.InputChannels, fv.channels)
	setFloat("sample-rate", &cfg.Audio.SampleRate, fv.sampleRate)
	setInt("frames-per-buffer", &cfg.Audio.FramesPerBuffer, fv.framesPerBuffer)
	setBool("low-latency", &cfg.Audio.LowLatency, fv.lowLatency)

	setFloat("min-delay", &cfg.Timer.MinDelay, fv.minDelay)
	setFloat("max-delay", &cfg.Timer.MaxDelay, fv.maxDelay)
	setBool("random-delay", &cfg.Timer.RandomDelay, fv.randomDelay)
	setBool("standby", &cfg.Timer.PlayStandby, fv.standby)
	setString("sounds-dir", &cfg.Timer.SoundsDir, fv.soundsDir)

	setInt("loudness", &cfg.Detector.LoudnessPercent, fv.loudness)
	setInt("refractory", &cfg.Detector.RefractoryCount, fv.refractory)

	setString("input", &cfg.Audio.InputFile, fv.input)
	setBool("realtime", &cfg.Audio.Realtime, fv.realtime)
	setBool("record", &cfg.Recording.Enabled, fv.record)
	setString("output", &cfg.Recording.OutputFile, fv.output)
	setBool("websocket", &cfg.Transport.WebSocketEnabled, fv.websocket)
	setBool("udp", &cfg.Transport.UDPEnabled, fv.udp)

	if changed("verbose") && fv.verbose {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}
	if cfg.Recording.OutputFile != "" && changed("output") && !changed("record") {
		cfg.Recording.Enabled = true
	}
}
