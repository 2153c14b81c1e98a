// Package version reports build information.
package version

import (
	"fmt"
	"runtime"
)

// Values are set at build time using -ldflags, for example:
//
//	go build -ldflags "-X github.com/gregoriusjimmy/llm-council/internal/version.Version=v0.3.0"
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildTime = "unknown"
)

// Short returns just the version number.
func Short() string {
	return Version
}

// Info returns the full multi-line build description.
func Info() string {
	return fmt.Sprintf("llm-council %s\n  commit:     %s\n  built:      %s\n  go version: %s\n  platform:   %s/%s",
		Version, CommitSHA, BuildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
