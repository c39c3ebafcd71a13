// Package version reports build information of the tdsframe binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
)

const (
	unknownValue     = "unknown"
	commitHashLength = 7
)

// Build-time variables set by ldflags
var (
	Version   = "dev"
	BuildDate = unknownValue
	GitCommit = unknownValue
	GoVersion = runtime.Version()
)

// Module is a Go module linked into the binary.
type Module struct {
	Path    string `json:"path"`
	Version string `json:"version"`
}

// BuildInfo contains build information of the running binary.
type BuildInfo struct {
	Version   string   `json:"version"`
	BuildDate string   `json:"build_date"`
	GitCommit string   `json:"git_commit"`
	GoVersion string   `json:"go_version"`
	Dirty     bool     `json:"dirty"`
	Deps      []Module `json:"deps,omitempty"`
}

// Info returns the build information. Deps is filled from the module data
// embedded by the Go toolchain, sorted by path.
func Info() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
		GoVersion: GoVersion,
		Dirty:     strings.HasSuffix(GitCommit, "-dirty"),
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, dep := range bi.Deps {
			info.Deps = append(info.Deps, Module{Path: dep.Path, Version: dep.Version})
		}
		sort.Slice(info.Deps, func(i, j int) bool { return info.Deps[i].Path < info.Deps[j].Path })
	}
	return info
}

// Dependency returns the linked module with the given path.
func (b BuildInfo) Dependency(path string) (Module, bool) {
	for _, m := range b.Deps {
		if m.Path == path {
			return m, true
		}
	}
	return Module{}, false
}

// String returns a formatted version string
func (b BuildInfo) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "tdsframe %s", b.Version)
	if b.Dirty {
		sb.WriteString(" (dirty)")
	}
	sb.WriteString("\n")

	if b.BuildDate != unknownValue {
		fmt.Fprintf(&sb, "Build Date: %s\n", b.BuildDate)
	}
	if b.GitCommit != unknownValue {
		commit := strings.TrimSuffix(b.GitCommit, "-dirty")
		if len(commit) > commitHashLength {
			commit = commit[:commitHashLength]
		}
		fmt.Fprintf(&sb, "Git Commit: %s\n", commit)
	}
	fmt.Fprintf(&sb, "Go Version: %s\n", b.GoVersion)
	return sb.String()
}

// IsRelease reports whether Version names a release rather than a dev or
// pre-release build.
func IsRelease() bool {
	return Version != "dev" && !strings.Contains(Version, "-")
}
