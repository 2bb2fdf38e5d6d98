// Package version provides build version information for the diarize CLI.
//
// Version, git commit, and build time are set at compile time
// via -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/diarize/version.Version=1.0.0"
//
// When ldflags are absent the package falls back to VCS metadata embedded
// by the Go toolchain (debug.ReadBuildInfo).
package version
