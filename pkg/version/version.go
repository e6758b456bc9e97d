// Package version holds fpsearch build information.
package version

import (
	"fmt"
	"runtime"
)

// Version is set at build time:
//
//	-ldflags "-X github.com/Aman-CERP/fpsearch/pkg/version.Version=v1.2.3"
var Version = "dev"

var (
	// Commit is the short git commit, set via ldflags.
	Commit = "unknown"
	// Date is the RFC3339 build date, set via ldflags.
	Date = "unknown"
)

// BuildInfo is version information for JSON output.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// String returns a one-line description of the build.
func String() string {
	return fmt.Sprintf("fpsearch %s (commit: %s, built: %s, go: %s)",
		Version, Commit, Date, runtime.Version())
}

// Short returns only the version number.
func Short() string {
	return Version
}

// GetInfo returns structured build information.
func GetInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}
