// Package version holds build metadata stamped into the livecheck binary.
package version

import (
	"fmt"
	"runtime"
)

// Set at build time with -ldflags "-X github.com/goclaw/livecheck/pkg/version.Version=...".
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GoVersion = runtime.Version()
)

// Info returns the build metadata keyed the way /status reports it.
func Info() map[string]string {
	return map[string]string{
		"version":   Version,
		"buildTime": BuildTime,
		"gitCommit": GitCommit,
		"goVersion": GoVersion,
	}
}

// String renders a one-line banner, e.g. "livecheck dev (unknown, go1.24.0)".
func String() string {
	commit := GitCommit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	return fmt.Sprintf("livecheck %s (%s, %s)", Version, commit, GoVersion)
}
