package version

import (
	"runtime/debug"
	"testing"
)

func TestApplyBuildInfo(t *testing.T) {
	info := Info{Version: "1.2.0"}
	applyBuildInfo(&info, &debug.BuildInfo{
		GoVersion: "go1.26.0",
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	})

	if info.Commit != "0123456" {
		t.Errorf("commit = %q", info.Commit)
	}
	if info.BuildTime != "2026-01-02T03:04:05Z" || info.GoVersion != "go1.26.0" {
		t.Errorf("info = %+v", info)
	}
	if got := info.String(); got != "1.2.0-0123456-dirty" {
		t.Errorf("String = %q", got)
	}
}

func TestApplyBuildInfo_LdflagsWin(t *testing.T) {
	info := Info{Version: "1.2.0", Commit: "feedbee", BuildTime: "yesterday"}
	applyBuildInfo(&info, &debug.BuildInfo{Settings: []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef"},
		{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
	}})
	if info.Commit != "feedbee" || info.BuildTime != "yesterday" {
		t.Errorf("info = %+v", info)
	}
}

func TestInfoString_Plain(t *testing.T) {
	if got := (Info{Version: "dev"}).String(); got != "dev" {
		t.Errorf("String = %q", got)
	}
}
