// Package version holds the build version tag reported by the health endpoint.
package version

// Version is the current release tag. Overridden at build time via
// -ldflags "-X github.com/aristath/harrier/internal/version.Version=...".
var Version = "0.3.0"
