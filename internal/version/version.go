// Package version holds build metadata for backdrop, set at link time with
// -ldflags "-X github.com/jmylchreest/backdrop/internal/version.Version=x.y.z"
// (likewise Commit and Date).
package version

import (
	"fmt"
	"runtime"
)

const unknown = "unknown"

var (
	// Version is the semantic version of the build.
	Version = "dev"

	// Commit is the git commit hash of the build.
	Commit = unknown

	// Date is the build date in RFC3339 format.
	Date = unknown

	// GoVersion is the Go version used to build the binary.
	GoVersion = runtime.Version()
)

// Info is the structured form of the build metadata.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetInfo returns the build metadata.
func GetInfo() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: GoVersion,
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// ShortCommit returns the first eight characters of the commit hash.
func (i Info) ShortCommit() string {
	if len(i.Commit) > 8 {
		return i.Commit[:8]
	}
	return i.Commit
}

// String returns a human-readable version line.
func String() string {
	info := GetInfo()
	if info.Commit != unknown && info.Date != unknown {
		return fmt.Sprintf("backdrop version %s (commit: %s, built: %s, %s, %s)",
			info.Version, info.ShortCommit(), info.Date, info.GoVersion, info.Platform)
	}
	return fmt.Sprintf("backdrop version %s (%s, %s)", info.Version, info.GoVersion, info.Platform)
}

// Short returns the bare version, as used by --version.
func Short() string {
	return Version
}
