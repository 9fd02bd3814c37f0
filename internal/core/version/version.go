// Package version provides information about the build version of the binaries.
package version

import "runtime/debug"

// BuildInfo holds version information about a binary build.
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Info returns the build information for service. The version, commit, and date variables
// are intended to be set at build time using -ldflags; commit falls back to the vcs stamp.
func Info(service string) BuildInfo {
	// Set via -ldflags "-X 'emolens/internal/core/version.version=v0.1.0'
	// -X 'emolens/internal/core/version.commit=abcd' -X 'emolens/internal/core/version.date=2025-09-02'"
	c := commit
	if c == "none" {
		c = vcsRevision()
	}
	return BuildInfo{
		Service: service,
		Version: version,
		Commit:  c,
		Date:    date,
	}
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func vcsRevision() string {
	if bi, ok := debug.ReadBuildInfo(); ok && bi != nil {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				return s.Value[:7]
			}
		}
	}
	return "none"
}
