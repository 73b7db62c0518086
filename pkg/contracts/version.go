package contracts

import (
	"fmt"
	"runtime"
)

// Version is the loader's release version.
const Version = "0.1.0"

// GitCommit is set at build time:
//
//	go build -ldflags "-X github.com/applesandbeer/weatherisafog/pkg/contracts.GitCommit=$(git rev-parse --short HEAD)"
var GitCommit = "unknown"

// GetVersionString returns the program name and version
func GetVersionString() string {
	return fmt.Sprintf("weatherisafog v%s", Version)
}

// GetFullVersionString adds the commit and the Go runtime to GetVersionString
func GetFullVersionString() string {
	return fmt.Sprintf("%s (commit: %s, go: %s, %s/%s)",
		GetVersionString(), GitCommit, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
