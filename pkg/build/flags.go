// SPDX-License-Identifier: MIT
//
// Package build provides functionality to manage and retrieve build information
// for the vlab binary. Metadata such as the build timestamp, Git commit hash and
// semantic version is embedded at compile time using linker flags, e.g.:
//
//	go build -ldflags "-X vlabsound/pkg/build.buildName=vlab \
//	  -X vlabsound/pkg/build.buildVersion=0.3.0 ..."
package build

import "fmt"

// Description is the one-line summary shown in help output.
const Description = "Virtual Lab Sound: spectrum analysis, Doppler synthesis and wave previews"

// Info is the build information of the running binary.
type Info struct {
	Name        string
	Time        string
	Commit      string
	Version     string
	Description string
}

// VersionString returns "version (commit, time)", leaving out unknown parts.
func (i *Info) VersionString() string {
	if i.Commit == "unknown" && i.Time == "unknown" {
		return i.Version
	}
	return fmt.Sprintf("%s (%s, %s)", i.Version, i.Commit, i.Time)
}

// Package-level variables for build information. These are populated by -ldflags
// during compilation. Default values of "unknown" are used during development.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = defaultInfo()
)

func defaultInfo() *Info {
	return &Info{
		Name:        "vlab",
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "unknown",
		Description: Description,
	}
}

// Initialize validates and copies build information from ldflags variables
// into the build info. Returns an error naming the first missing flag; the
// development defaults stay in place in that case.
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
func GetBuildFlags() *Info {
	return buildFlags
}
