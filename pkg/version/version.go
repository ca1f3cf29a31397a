// Package version reports the modviz build version.
package version

import "runtime/debug"

// Version is overridden at build time via:
//
//	go build -ldflags "-X github.com/vanderheijden86/modviz/pkg/version.Version=v0.2.0"
var Version = "v0.1.0"

// String returns Version, or the module version recorded by `go install`
// when the binary was built without an ldflags override.
func String() string {
	if Version != "v0.1.0" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	return Version
}
