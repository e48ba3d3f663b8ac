package version

import (
	"runtime/debug"
	"strings"
)

// Set at build time.
var (
	Version   = "dev"
	Commit    = ""
	BuildTime = ""
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildTime string `json:"buildTime,omitempty"`
	GoVersion string `json:"goVersion,omitempty"`
	Dirty     bool   `json:"dirty,omitempty"`
}

// Get returns the build information.
func Get() Info {
	info := Info{Version: Version, Commit: Commit, BuildTime: BuildTime}
	if bi, ok := debug.ReadBuildInfo(); ok {
		applyBuildInfo(&info, bi)
	}
	return info
}

func applyBuildInfo(info *Info, bi *debug.BuildInfo) {
	info.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.BuildTime == "" {
				info.BuildTime = s.Value
			}
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		}
	}
	if len(info.Commit) > 7 {
		info.Commit = info.Commit[:7]
	}
}

// String renders "version-commit[-dirty]".
func (i Info) String() string {
	parts := []string{i.Version}
	if i.Commit != "" {
		parts = append(parts, i.Commit)
	}
	if i.Dirty {
		parts = append(parts, "dirty")
	}
	return strings.Join(parts, "-")
}

// Short returns Get().String().
func Short() string { return Get().String() }
