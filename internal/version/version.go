// Package version holds the build version stamped into snapshots.
package version

// Version is overridden at build time via
// -ldflags "-X github.com/profileforge/profileforge/internal/version.Version=v1.2.3".
var Version = "dev"
