// Package version exposes build metadata stamped in via -ldflags.
package version

var (
	// Version is the release tag, "v0.0.0-dev" for local builds.
	Version = "v0.0.0-dev"

	// GitCommit is the short commit hash of the build.
	GitCommit = "unknown"

	// BuildTime is when the binary was built.
	BuildTime = "unknown"
)

// Info renders the version line printed by the -version flag.
func Info() string {
	return Version + " (" + GitCommit + ") built at " + BuildTime
}
