// Package version exposes the build stamp the release pipeline injects
// through -ldflags.
package version

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
