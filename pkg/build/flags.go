// SPDX-License-Identifier: MIT
//
// Package build holds build metadata embedded at compile time with linker
// flags:
//
//	go build -ldflags "-X shottimer/pkg/build.buildName=shottimer \
//	  -X shottimer/pkg/build.buildVersion=0.3.0 ..."
//
// Development builds run without them and report "dev".
package build

import (
	"errors"
	"fmt"
)

const description = "Shot timer: random start delay, audible start cue and shot detection from a microphone"

type ldFlags struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// Package-level variables for build information, populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = defaultFlags()
)

func defaultFlags() *ldFlags {
	return &ldFlags{
		Name:        "shottimer",
		Description: description,
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "dev",
	}
}

// Initialize copies whatever ldflags were set into the build information.
// It returns an error naming every missing flag; the defaults stay in place
// for those.
func Initialize() error {
	var errs []error
	set := func(dst *string, v, name string) {
		if v == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
			return
		}
		*dst = v
	}
	set(&buildFlags.Name, buildName, "BuildName")
	set(&buildFlags.Time, buildTime, "BuildTime")
	set(&buildFlags.Commit, buildCommit, "BuildCommit")
	set(&buildFlags.Version, buildVersion, "BuildVersion")
	return errors.Join(errs...)
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *ldFlags {
	return buildFlags
}

// String renders the version line printed by --version.
func (f *ldFlags) String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", f.Version, f.Commit, f.Time)
}
