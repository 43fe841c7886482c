// Package version holds build information injected with -ldflags.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/aatumaykin/cronkeeper/internal/constants"
)

var (
	Version   = constants.DefaultVersion
	BuildTime = constants.DefaultBuildTime
	GitCommit = constants.DefaultGitCommit
	GoVersion = constants.DefaultGoVersion
)

func init() {
	if GoVersion == constants.DefaultGoVersion {
		GoVersion = runtime.Version()
	}
	// go install без ldflags: берём ревизию из build info
	if GitCommit == constants.DefaultGitCommit {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" && s.Value != "" {
					GitCommit = s.Value
				}
			}
		}
	}
}

func SetInfo(v, bt, gc, gv string) {
	if v != "" {
		Version = v
	}
	if bt != "" {
		BuildTime = bt
	}
	if gc != "" {
		GitCommit = gc
	}
	if gv != "" {
		GoVersion = gv
	}
}

// ShortCommit returns the first 12 characters of the commit hash.
func ShortCommit() string {
	if len(GitCommit) > 12 {
		return GitCommit[:12]
	}
	return GitCommit
}

// String is the one-line version banner.
func String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s, %s)", constants.ProductName, Version, ShortCommit(), BuildTime, GoVersion)
}
