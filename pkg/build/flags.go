// SPDX-License-Identifier: MIT
//
// Package build exposes metadata embedded into the synthscope binary at link
// time: application name, build timestamp, Git commit and semantic version.
//
//	go build -ldflags "-X synthscope/pkg/build.buildName=synthscope \
//	    -X synthscope/pkg/build.buildVersion=0.3.0 ..."
package build

import "fmt"

// Description is the one-line summary shown by the CLI.
const Description = "Polyphonic sine/sampler synth with a live spectrum analyser"

type ldFlags struct {
	Name        string
	Time        string
	Commit      string
	Version     string
	Description string
}

// Populated by -ldflags during compilation. Development builds keep the
// "unknown" defaults.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:        "synthscope",
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "dev",
		Description: Description,
	}
)

// Initialize validates and copies the ldflags variables into the build
// information. When a flag is missing the development defaults are kept and
// an error naming the first missing flag is returned.
func Initialize() error {
	if buildName == "" {
		return fmt.Errorf("BuildName is required")
	}
	if buildTime == "" {
		return fmt.Errorf("BuildTime is required")
	}
	if buildCommit == "" {
		return fmt.Errorf("BuildCommit is required")
	}
	if buildVersion == "" {
		return fmt.Errorf("BuildVersion is required")
	}

	buildFlags.Name = buildName
	buildFlags.Time = buildTime
	buildFlags.Commit = buildCommit
	buildFlags.Version = buildVersion

	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *ldFlags {
	return buildFlags
}

// VersionString formats the version line printed by --version.
func (f *ldFlags) VersionString() string {
	return fmt.Sprintf("%s (commit %s, built %s)", f.Version, f.Commit, f.Time)
}
