// Package version reports build information for linkvault binaries.
//
// Version and commit are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/linkvault/version.Version=1.4.0" ./cmd/credctl
//
// Anything left unset falls back to the VCS stamp the Go toolchain embeds.
package version
