// SPDX-License-Identifier: MIT
//
// Package build carries the metadata stamped into the specviz binary at link
// time: program name, build timestamp, Git commit and version. Development
// builds run without it and report "dev" values.
//
//	go build -ldflags "-X specviz/pkg/build.buildName=specviz \
//	  -X specviz/pkg/build.buildVersion=v0.3.0 ..."
package build

import (
	"fmt"
	"runtime"
)

// DefaultName is reported when the binary was built without ldflags.
const DefaultName = "specviz"

// Description is the one-line summary shown in help output.
const Description = "Real-time audio spectrum visualizer for the terminal, sockets and video"

type ldFlags struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// Package-level variables for build information. These are populated by
// -ldflags during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:        DefaultName,
		Description: Description,
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "dev",
	}
)

// Initialize validates and copies build information from ldflags variables
// into the build flags. On error the development defaults stay in place, so
// callers may log it and carry on.
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

// String formats the build information for the version command.
func (f *ldFlags) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s, %s/%s)",
		f.Name, f.Version, f.Commit, f.Time, runtime.GOOS, runtime.GOARCH)
}
