// Package version reports build information set through -ldflags:
//
//	-X github.com/longkey1/llmcmp/internal/version.Version=v1.2.3
//	-X github.com/longkey1/llmcmp/internal/version.CommitSHA=abc1234
//	-X github.com/longkey1/llmcmp/internal/version.BuildTime=2025-01-01T00:00:00Z
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildTime = "unknown"
)

// Short returns the version number only
func Short() string {
	if Version == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version
		}
	}
	return Version
}

// Info returns the version with commit, build time and Go version
func Info() string {
	return fmt.Sprintf("llmcmp %s\n  commit:     %s\n  built:      %s\n  go version: %s\n  platform:   %s/%s",
		Short(), CommitSHA, BuildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
