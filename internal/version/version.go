// Package version exposes build metadata set through -ldflags.
package version

import "runtime/debug"

// Version is overridden at build time with
// -ldflags "-X podd/internal/version.Version=v1.2.3".
var Version = "dev"

// String returns the build version, falling back to module info.
func String() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}

// UserAgent is the default User-Agent for feed and media requests.
func UserAgent() string {
	return "podd/" + String()
}
