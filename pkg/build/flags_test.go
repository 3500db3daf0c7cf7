// SPDX-License-Identifier: MIT
package build

import (
	"os"
	"strings"
	"testing"
)

var (
	origName    string
	origTime    string
	origCommit  string
	origVersion string
	origFlags   ldFlags
)

func TestMain(m *testing.M) {
	origName = buildName
	origTime = buildTime
	origCommit = buildCommit
	origVersion = buildVersion
	origFlags = *buildFlags

	exitCode := m.Run()

	buildName = origName
	buildTime = origTime
	buildCommit = origCommit
	buildVersion = origVersion
	*buildFlags = origFlags

	os.Exit(exitCode)
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name        string
		buildName   string
		buildTime   string
		buildCommit string
		buildVer    string
		wantMissing []string
		wantVersion string
	}{
		{
			"Missing BuildName",
			"", "2025-04-13", "abcdef123", "v1.0.0",
			[]string{"BuildName is required"},
			"v1.0.0",
		},
		{
			"Missing BuildCommit and BuildVersion",
			"shottimer", "2025-04-13", "", "",
			[]string{"BuildCommit is required", "BuildVersion is required"},
			"dev",
		},
		{
			"Nothing set",
			"", "", "", "",
			[]string{"BuildName", "BuildTime", "BuildCommit", "BuildVersion"},
			"dev",
		},
		{
			"Success Case",
			"shottimer", "2025-04-13", "abcdef123", "v1.0.0",
			nil,
			"v1.0.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buildFlags = defaultFlags()
			buildName = tt.buildName
			buildTime = tt.buildTime
			buildCommit = tt.buildCommit
			buildVersion = tt.buildVer

			err := Initialize()

			if len(tt.wantMissing) == 0 {
				if err != nil {
					t.Fatalf("Initialize() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Fatal("Initialize() expected error, got nil")
				}
				for _, want := range tt.wantMissing {
					if !strings.Contains(err.Error(), want) {
						t.Errorf("Initialize() error = %q, missing %q", err, want)
					}
				}
			}

			flags := GetBuildFlags()
			if flags.Version != tt.wantVersion {
				t.Errorf("Version = %q, want %q", flags.Version, tt.wantVersion)
			}
			if flags.Name == "" || flags.Description == "" {
				t.Errorf("Name/Description must never be empty: %+v", flags)
			}
		})
	}
}

func TestBuildFlagsString(t *testing.T) {
	f := &ldFlags{Version: "v1.0.0", Commit: "abcdef1", Time: "2025-04-13"}
	want := "v1.0.0 (commit abcdef1, built 2025-04-13)"
	if got := f.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
