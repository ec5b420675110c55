package internal

import (
	"fmt"
	"runtime"
)

// These are filled at build time with -ldflags.
var (
	version   = "dev"
	gitCommit string
	buildTime string
)

// GetVersion returns the bare version string.
func GetVersion() string {
	return version
}

// FormatVersion returns the version string with optional git commit.
func FormatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

// FormatBuildInfo returns build time and go version info.
func FormatBuildInfo() (string, string) {
	return buildTime, runtime.Version()
}
