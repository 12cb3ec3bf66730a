// Package version exposes the build metadata served by the gateway's
// /version endpoint.
package version

import "runtime"

// Set at build time via ldflags; the defaults apply to development
// builds.
var (
	// Version is the release version of the gateway
	Version = "1.0.0"

	// GitCommit is the git commit hash the binary was built from
	GitCommit = "unknown"

	// BuildTime is when the binary was built (RFC3339 format)
	BuildTime = "unknown"
)

// Info is the /version response payload.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// Get assembles the version payload.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}
