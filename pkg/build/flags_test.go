// SPDX-License-Identifier: MIT
package build

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setFlags replaces the ldflags variables and the build info for one test.
func setFlags(t *testing.T, name, tm, commit, version string) {
	t.Helper()
	saved := [4]string{buildName, buildTime, buildCommit, buildVersion}
	savedInfo := buildFlags
	t.Cleanup(func() {
		buildName, buildTime, buildCommit, buildVersion = saved[0], saved[1], saved[2], saved[3]
		buildFlags = savedInfo
	})

	buildName, buildTime, buildCommit, buildVersion = name, tm, commit, version
	buildFlags = defaultInfo()
}

func TestDefaultInfo(t *testing.T) {
	info := defaultInfo()
	assert.Equal(t, "vlab", info.Name)
	assert.Equal(t, Description, info.Description)
	assert.Equal(t, "unknown", info.VersionString(), "a development build shows only the version")
}

func TestInitializeCopiesFlags(t *testing.T) {
	setFlags(t, "vlab", "2025-04-13", "abc123", "v0.3.0")

	require.NoError(t, Initialize())
	info := GetBuildFlags()
	assert.Equal(t, Info{
		Name:        "vlab",
		Time:        "2025-04-13",
		Commit:      "abc123",
		Version:     "v0.3.0",
		Description: Description,
	}, *info)
	assert.Equal(t, "v0.3.0 (abc123, 2025-04-13)", info.VersionString())
}

func TestInitializeMissingFlagKeepsDefaults(t *testing.T) {
	tests := []struct {
		desc                      string
		name, tm, commit, version string
		wantErr                   string
	}{
		{"No name", "", "2025-04-13", "abc123", "v0.3.0", "BuildName is required"},
		{"No commit", "vlab", "2025-04-13", "", "v0.3.0", "BuildCommit is required"},
		{"Only name", "vlab", "", "", "", "BuildTime is required"},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			setFlags(t, tt.name, tt.tm, tt.commit, tt.version)

			assert.EqualError(t, Initialize(), tt.wantErr)
			assert.Equal(t, defaultInfo(), GetBuildFlags())
		})
	}
}

func TestVersionStringPartial(t *testing.T) {
	info := Info{Version: "v0.3.0", Commit: "abc123", Time: "unknown"}
	assert.Equal(t, "v0.3.0 (abc123, unknown)", info.VersionString())
}
