package version

import (
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()
	if info.Version != Version {
		t.Errorf("Version = %q, want %q", info.Version, Version)
	}
	if !strings.Contains(info.Platform, "/") {
		t.Errorf("Platform = %q", info.Platform)
	}
	if info.GoVersion == "" {
		t.Error("GoVersion empty")
	}
}

func TestUserAgent(t *testing.T) {
	old := Version
	Version = "1.4.0"
	defer func() { Version = old }()

	if got := UserAgent(); got != "glownode/1.4.0" {
		t.Errorf("UserAgent = %q", got)
	}
}
