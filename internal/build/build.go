// Package build holds build-time information.
package build

import "runtime/debug"

// Version, Commit and Date can be overwritten by linker flags. When Version is left
// at "dev", Info falls back to the module version recorded in the binary.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Info returns the version, commit and build date of the running binary.
func Info() (version, commit, date string) {
	version, commit, date = Version, Commit, Date
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch {
		case s.Key == "vcs.revision" && commit == "unknown":
			commit = s.Value
		case s.Key == "vcs.time" && date == "unknown":
			date = s.Value
		}
	}
	return
}
