// Package buildinfo reports the identity of the devent binary.
package buildinfo

import "runtime/debug"

// Binary is the canonical executable name, shared by the CLI surface
// and log output.
const Binary = "devent"

// version is overridden by release builds via
// -ldflags "-X .../internal/buildinfo.version=v1.2.3".
var version = "dev"

// SetVersion overrides the reported version at runtime; empty values
// are ignored.
func SetVersion(v string) {
	if v == "" {
		return
	}
	version = v
}

// Version resolves the build version: the release override when set,
// otherwise the module version the Go toolchain recorded, otherwise
// "dev" for local builds.
func Version() string {
	if version != "dev" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return version
}
