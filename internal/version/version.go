// Package version carries the build identity stamped in by -ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Set with -ldflags "-X github.com/MeKo-Tech/nagarikta/internal/version.Version=...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Build describes the running binary.
type Build struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// Current returns the stamped build identity.
func Current() Build {
	return Build{Version: Version, GitCommit: GitCommit, BuildDate: BuildDate, GoVersion: runtime.Version()}
}

func (b Build) String() string {
	return fmt.Sprintf("nagarikta version %s\nCommit: %s\nDate: %s\nGo: %s", b.Version, b.GitCommit, b.BuildDate, b.GoVersion)
}
