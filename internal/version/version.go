// Package version carries build metadata injected at link time:
//
//	go build -ldflags "-X git.home.luguber.info/inful/seriesgen/internal/version.Version=v1.0.0"
package version

import "fmt"

var Version = "unknown"

// Set alongside Version by release builds.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String formats the metadata for --version output.
func String() string {
	return fmt.Sprintf("seriesgen %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
