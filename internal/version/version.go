// Package version exposes build metadata injected at link time.
//
// Release builds set the variables below via ldflags:
//
//	-X github.com/camnode/camnode/internal/version.Version=v1.2.3
//	-X github.com/camnode/camnode/internal/version.GitCommit=$(git rev-parse --short HEAD)
//
// Unset variables keep their dev defaults, which the updater treats as
// always outdated.
package version

import (
	"fmt"
	"runtime"
)

// Set at link time; see the package comment. An untagged build is "dev".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	BuildID   = "unknown"
)

// Info is the build description served by the health endpoint.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	BuildID   string `json:"build_id"`
	GoVersion string `json:"go_version"`
	Compiler  string `json:"compiler"`
	Platform  string `json:"platform"`
}

// Get collects the injected metadata plus toolchain facts.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		BuildID:   BuildID,
		GoVersion: runtime.Version(),
		Compiler:  runtime.Compiler,
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String returns the bare version, as shown by --version.
func String() string {
	return Version
}

// Full returns a one-line version with commit and build date for CLI
// output.
func Full() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate)
}

// IsDev reports whether this is an unversioned development build.
func IsDev() bool {
	return Version == "dev"
}
