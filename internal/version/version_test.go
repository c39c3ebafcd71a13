package version_test

import (
	"testing"

	"github.com/paveg/tdsframe/internal/version"
	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	info := version.Info()

	assert.Equal(t, version.Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.String(), "tdsframe ")
	assert.Contains(t, info.String(), "Go Version:")
}

func TestBuildInfoString(t *testing.T) {
	tests := []struct {
		name     string
		info     version.BuildInfo
		expected string
	}{
		{
			name: "release",
			info: version.BuildInfo{
				Version:   "v1.2.0",
				BuildDate: "2024-01-01T00:00:00Z",
				GitCommit: "abc123def456",
				GoVersion: "go1.24.4",
			},
			expected: "tdsframe v1.2.0\nBuild Date: 2024-01-01T00:00:00Z\nGit Commit: abc123d\nGo Version: go1.24.4\n",
		},
		{
			name: "dirty without date",
			info: version.BuildInfo{
				Version:   "dev",
				BuildDate: "unknown",
				GitCommit: "abc123def456-dirty",
				GoVersion: "go1.24.4",
				Dirty:     true,
			},
			expected: "tdsframe dev (dirty)\nGit Commit: abc123d\nGo Version: go1.24.4\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.info.String())
		})
	}
}

func TestDependency(t *testing.T) {
	info := version.BuildInfo{Deps: []version.Module{
		{Path: "github.com/spf13/cobra", Version: "v1.8.1"},
		{Path: "go.uber.org/zap", Version: "v1.23.0"},
	}}

	m, ok := info.Dependency("go.uber.org/zap")
	assert.True(t, ok)
	assert.Equal(t, "v1.23.0", m.Version)

	_, ok = info.Dependency("example.com/missing")
	assert.False(t, ok)
}

func TestIsRelease(t *testing.T) {
	original := version.Version
	t.Cleanup(func() { version.Version = original })

	for v, expected := range map[string]bool{
		"v1.0.0":       true,
		"1.0.0":        true,
		"dev":          false,
		"v1.0.0-rc.1":  false,
		"v1.0.0-alpha": false,
	} {
		version.Version = v
		assert.Equal(t, expected, version.IsRelease(), v)
	}
}
