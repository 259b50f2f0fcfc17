package version

// Version and GitCommit are overridden at build time via -ldflags.
var (
	Version   = "v0.0.0-dev"
	GitCommit = "unknown"
)
