// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"golang.org/x/sync/errgroup"

	"shottimer/cmd"
	"shottimer/internal/analysis"
	"shottimer/internal/audio"
	"shottimer/internal/config"
	applog "shottimer/internal/log"
	"shottimer/internal/timer"
	"shottimer/internal/transport"
	"shottimer/internal/transport/udp"
	"shottimer/internal/tui"
	"shottimer/pkg/build"
)

// main is the entry point for the shot timer.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and configuration
//   - Execute one-off commands if requested
//   - Resolve cues, open capture, build the controller and transports
//
// 2. Concurrent Phase (Hot Path):
//   - Capture callback feeds the controller
//   - Drill screen (or headless run) drives Start/Stop
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals
//   - Stop the drill, capture and recording
//   - Close transports
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Development builds run without ldflags and keep the defaults.
	buildErr := build.Initialize()

	// One thread for the capture callback, one for the UI and I/O.
	runtime.GOMAXPROCS(2)

	opts, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		applog.Fatalf("%v", err)
	}
	if opts == nil {
		return // help or version
	}

	closeLog, err := configureLogging(opts)
	if err != nil {
		applog.Fatalf("%v", err)
	}
	if buildErr != nil {
		applog.Debugf("build: %v", buildErr)
	}

	if err := execute(opts); err != nil {
		closeLog()
		applog.Fatalf("%v", err)
	}
	closeLog()
}

// configureLogging sets the package logger level and, when the drill screen
// owns the terminal, redirects it to the configured log file.
func configureLogging(opts *cmd.Options) (func(), error) {
	cfg := opts.Config
	level, _ := applog.ParseLevel(cfg.LogLevel)
	if cfg.Debug {
		level = applog.LevelDebug
	}
	applog.SetLevel(level)

	if opts.Command != cmd.CommandDrill || opts.Headless {
		return func() {}, nil
	}
	if cfg.LogFile == "" {
		applog.SetOutput(io.Discard, true)
		return func() {}, nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	applog.SetOutput(f, true)
	return func() {
		applog.SetOutput(os.Stderr, false)
		f.Close()
	}, nil
}

// execute handles one-off commands, then runs a drill.
func execute(opts *cmd.Options) error {
	switch opts.Command {
	case cmd.CommandAnalyze:
		return cmd.Analyze(os.Stdout, opts.Config, opts.Args[0])
	case cmd.CommandList:
		if err := audio.Initialize(); err != nil {
			return err
		}
		defer audio.Terminate()
		return cmd.List(os.Stdout)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}
	return runDrill(ctx, opts)
}

// openSource returns the capture source and the sample rate its chunks use.
func openSource(cfg *config.Config) (audio.Source, int, error) {
	if cfg.Audio.InputFile != "" {
		src, err := audio.NewFileSource(cfg.Audio.InputFile, cfg.FramesPerBuffer(), cfg.Audio.Realtime)
		if err != nil {
			return nil, 0, err
		}
		return src, src.SampleRate(), nil
	}
	engine, err := audio.NewEngine(cfg)
	if err != nil {
		return nil, 0, err
	}
	return engine, int(cfg.SampleRate()), nil
}

func runDrill(ctx context.Context, opts *cmd.Options) error {
	cfg := opts.Config
	logger := applog.Default()

	if err := cfg.ResolveCues(); err != nil {
		return fmt.Errorf("failed to discover cues: %w", err)
	}
	if cfg.Timer.StartCue == "" {
		return fmt.Errorf("%w in %q (expected %s*.wav)", timer.ErrNoCueAvailable, cfg.Timer.SoundsDir, config.BeepSoundsPrefix)
	}

	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	player := audio.NewPlayer(cfg.Audio.OutputDevice, cfg.FramesPerBuffer(), logger.With("player"))
	if err := player.Preload(append([]string{cfg.Timer.StartCue}, cfg.Timer.StandbyCues...)...); err != nil {
		return err
	}

	source, rate, err := openSource(cfg)
	if err != nil {
		var captureErr *audio.CaptureError
		if errors.As(err, &captureErr) {
			return fmt.Errorf("%w (use '%s list' to pick another device)", err, build.GetBuildFlags().Name)
		}
		return err
	}

	detCfg := cfg.DetectorConfig()
	detCfg.SampleRate = rate
	detector, err := analysis.NewSpikeDetector(detCfg)
	if err != nil {
		return err
	}

	broadcaster := transport.NewBroadcaster(cfg.Transport.ElapsedInterval, logger.With("broadcast"))
	defer func() {
		if err := broadcaster.Close(); err != nil {
			applog.Errorf("Error closing transports: %v", err)
		}
	}()
	if opts.Headless {
		broadcaster.Add(transport.NewLoggingTransport(logger))
	}
	if cfg.Transport.WebSocketEnabled {
		broadcaster.Add(transport.NewWebSocketTransport(cfg.Transport.WebSocketAddress, logger.With("websocket")))
	}

	ctrl, err := timer.New(cfg.DrillOptions(), timer.Deps{
		Detector: detector,
		Player:   player,
		Relay:    broadcaster,
		Logger:   logger.With("timer"),
	})
	if err != nil {
		return err
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress, logger.With("udp"))
		if err != nil {
			return err
		}
		defer sender.Close()
		publisher, err := udp.NewUDPPublisher(cfg.Transport.UDPSendInterval, sender, ctrl)
		if err != nil {
			return err
		}
		publisher.Start()
		defer publisher.Close()
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	// The first chunk delivered here marks the start of the hot path.
	if err := source.Start(ctrl.HandleAudio); err != nil {
		return err
	}
	defer func() {
		if err := source.Stop(); err != nil {
			applog.Errorf("Error stopping capture: %v", err)
		}
	}()

	if cfg.Recording.Enabled {
		if engine, ok := source.(*audio.Engine); ok {
			if err := engine.StartRecording(cfg.Recording.OutputFile); err != nil {
				return err
			}
			defer func() {
				if err := engine.StopRecording(); err != nil {
					applog.Errorf("Error stopping recording: %v", err)
					return
				}
				applog.Infof("Recording saved to: %s", cfg.Recording.OutputFile)
			}()
		} else {
			applog.Warnf("Recording is only available when capturing from a device")
		}
	}

	applog.Infof("%s", cfg.Summary())

	g, gctx := errgroup.WithContext(ctx)
	if opts.Headless {
		g.Go(func() error {
			return runHeadless(gctx, ctrl, source)
		})
	} else {
		g.Go(func() error {
			defer ctrl.Stop()
			return tui.Run(gctx, ctrl, cfg.Summary(), broadcaster.Add)
		})
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	err = g.Wait()
	ctrl.Stop()
	if opts.Headless {
		fmt.Println(analysis.Summarize(ctrl.Shots()))
	}
	return err
}

// runHeadless runs one drill until ctx is done or a replayed file ends.
func runHeadless(ctx context.Context, ctrl *timer.Controller, source audio.Source) error {
	if err := ctrl.Start(ctx); err != nil {
		return err
	}

	var replayDone <-chan struct{}
	if fs, ok := source.(*audio.FileSource); ok {
		replayDone = fs.Done()
	}

	select {
	case <-ctx.Done():
	case <-replayDone:
	}
	ctrl.Stop()
	return nil
}
