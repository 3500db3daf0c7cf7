// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	applog "shottimer/internal/log"
)

// DiscoverCues returns the regular files in dir whose names start with prefix,
// sorted by name. A missing directory yields no cues.
func DiscoverCues(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sounds directory: %w", err)
	}

	var cues []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		cues = append(cues, filepath.Join(dir, e.Name()))
	}
	slices.Sort(cues)
	return cues, nil
}

// ResolveCues turns configured cue names into existing paths. A cue that is
// neither a path nor a file in the sounds directory is dropped. With no usable
// start cue the first Beep_ file is chosen; with standby enabled and no usable
// standby cues every ReadyStandby_ file is used. StartCue stays empty when
// nothing is found.
func (c *Config) ResolveCues() error {
	dir := c.Timer.SoundsDir

	if c.Timer.StartCue != "" {
		cue, ok := c.locateCue(c.Timer.StartCue)
		if !ok {
			applog.Warnf("configuration: start cue %s not found", c.Timer.StartCue)
		}
		c.Timer.StartCue = cue
	}
	if c.Timer.StartCue == "" {
		beeps, err := DiscoverCues(dir, BeepSoundsPrefix)
		if err != nil {
			return err
		}
		if len(beeps) > 0 {
			c.Timer.StartCue = beeps[0]
		}
	}

	standby := c.Timer.StandbyCues[:0:0]
	for _, name := range c.Timer.StandbyCues {
		if cue, ok := c.locateCue(name); ok {
			standby = append(standby, cue)
		} else {
			applog.Warnf("configuration: standby cue %s not found", name)
		}
	}
	if len(standby) == 0 && c.Timer.PlayStandby {
		found, err := DiscoverCues(dir, ReadyStandbySoundsPrefix)
		if err != nil {
			return err
		}
		standby = found
	}
	c.Timer.StandbyCues = standby
	return nil
}

// locateCue checks name as given, then relative to the sounds directory.
func (c *Config) locateCue(name string) (string, bool) {
	candidates := []string{name}
	if !filepath.IsAbs(name) && c.Timer.SoundsDir != "" {
		candidates = append(candidates, filepath.Join(c.Timer.SoundsDir, name))
	}
	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, true
		}
	}
	return "", false
}
