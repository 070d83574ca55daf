package omnifetch

import (
	"fmt"
	"runtime"
)

// Build metadata, overridable at link time:
//
//	go build -ldflags "-X github.com/PauloJuniorVitrine/omnifetch.Version=v1.2.3"
var (
	Version   = "v0.3.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// BuildInfo describes the linked library build.
type BuildInfo struct {
	Version   string
	GitCommit string
	BuildDate string
	GoVersion string
}

// GetBuildInfo returns the build metadata, including the Go toolchain that
// compiled the binary.
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
}

func (b BuildInfo) String() string {
	return fmt.Sprintf("omnifetch %s (commit %s, built %s, %s)",
		b.Version, b.GitCommit, b.BuildDate, b.GoVersion)
}
