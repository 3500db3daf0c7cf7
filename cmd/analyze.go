// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"shottimer/internal/analysis"
	"shottimer/internal/audio"
	"shottimer/internal/config"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8A8A8"))

	summaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)
)

// AnalyzeFile runs the spike detector over a WAV file as fast as it can be
// decoded. Shot times are relative to the start of the file. Detector
// settings other than the sample rate come from cfg.
func AnalyzeFile(cfg *config.Config, path string) ([]analysis.ShotEvent, error) {
	src, err := audio.NewFileSource(path, cfg.FramesPerBuffer(), false)
	if err != nil {
		return nil, err
	}

	detCfg := cfg.DetectorConfig()
	detCfg.SampleRate = src.SampleRate()
	det, err := analysis.NewSpikeDetector(detCfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var (
		mu     sync.Mutex
		events []analysis.ShotEvent
	)
	if err := src.Start(func(pcm []byte) {
		found := det.ProcessAudio(pcm)
		mu.Lock()
		events = append(events, found...)
		mu.Unlock()
	}); err != nil {
		return nil, err
	}
	<-src.Done()
	if err := src.Stop(); err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	return events, nil
}

// Analyze prints the shots found in path and their summary to w.
func Analyze(w io.Writer, cfg *config.Config, path string) error {
	events, err := AnalyzeFile(cfg, path)
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString(headerStyle.Render("Analysis: " + path))
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render(fmt.Sprintf("Spikes: %d / Loudness %d%%",
		cfg.Detector.RefractoryCount, cfg.Detector.LoudnessPercent)))
	sb.WriteString("\n\n")
	for _, e := range events {
		sb.WriteString(e.String())
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(summaryStyle.Render(analysis.Summarize(events).String()))
	sb.WriteString("\n")

	_, err = io.WriteString(w, sb.String())
	return err
}

// List prints the host's audio devices to w.
func List(w io.Writer) error {
	if _, err := io.WriteString(w, headerStyle.Render("Audio Device List")+"\n\n"); err != nil {
		return err
	}
	return audio.ListDevices(w)
}
