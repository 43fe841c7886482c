package main

import (
	"os"

	"github.com/aatumaykin/cronkeeper/internal/version"
)

// Заполняются через -ldflags при сборке; пустые значения не перетирают
// значения по умолчанию из internal/version.
var (
	Version   string
	BuildTime string
	GitCommit string
	GoVersion string
)

func main() {
	version.SetInfo(Version, BuildTime, GitCommit, GoVersion)
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
