package lwrf

import (
	"fmt"
	"runtime/debug"
	"strconv"
)

// Set at build time via `-ldflags "-X 'github.com/doismellburning/lwrf/src.Version=X'"`
var Version string

func buildSetting(bi *debug.BuildInfo, key string, defaultValue string) string {
	if bi == nil {
		return defaultValue
	}

	for _, bs := range bi.Settings {
		if bs.Key == key {
			return bs.Value
		}
	}

	return defaultValue
}

// VersionString describes this build for --version.
func VersionString(name string) string {
	var bi, _ = debug.ReadBuildInfo()

	var commit = buildSetting(bi, "vcs.revision", "UNKNOWN")
	var built = buildSetting(bi, "vcs.time", "UNKNOWN")

	if dirty, err := strconv.ParseBool(buildSetting(bi, "vcs.modified", "")); err != nil {
		commit += "-UNKNOWNDIRTY"
	} else if dirty {
		commit += "-DIRTY"
	}

	var version = Version
	if version == "" {
		version = "!UNKNOWN!"
	}

	return fmt.Sprintf("%s - Version %s (revision %s, built at %s)", name, version, commit, built)
}
