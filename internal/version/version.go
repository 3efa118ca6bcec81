package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is overridden at build time with -ldflags "-X".
var Version = "dev"

// String describes the binary: version, VCS revision when the build
// recorded one, and the Go toolchain.
func String() string {
	revision := ""
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" && len(setting.Value) >= 7 {
				revision = setting.Value[:7]
			}
		}
	}

	if revision == "" {
		return fmt.Sprintf("mt %s (%s)", Version, runtime.Version())
	}
	return fmt.Sprintf("mt %s (%s, %s)", Version, revision, runtime.Version())
}
