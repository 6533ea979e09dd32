// Package version reports the docverify build.
package version

import "runtime/debug"

// Set at build time:
// go build -ldflags "-X git.home.luguber.info/inful/docverify/internal/version.Version=v1.0.0".
var (
	Version   = "unknown"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version line printed by --version. Without ldflags the
// module version and VCS revision recorded by the Go toolchain are used.
func String() string {
	version, commit := Version, GitCommit
	if info, ok := debug.ReadBuildInfo(); ok {
		if version == "unknown" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && commit == "unknown" {
				commit = s.Value
			}
		}
	}
	return "docverify " + version + " (commit " + commit + ", built " + BuildTime + ")"
}
