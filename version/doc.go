// Package version reports the flowgen build.
//
// Version, Commit and BuildTime are set with -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/flowgen/version.Version=1.2.0" ./cmd/flowgen
//
// Unset values fall back to the VCS stamps embedded by the Go toolchain.
package version
