// Package version reports build information. The values are set at build time with -ldflags, e.g.
//
//	go build -ldflags "-X github.com/information-sharing-networks/passbook/internal/version.version=v1.2.0"
package version

import "runtime/debug"

var (
	version   = "dev"
	buildDate = "unknown"
	gitCommit = ""
)

// Info describes the running binary.
type Info struct {
	Version   string
	BuildDate string
	GitCommit string
}

// Get returns the build information. When the commit was not set with -ldflags the vcs revision
// recorded by the go toolchain is used.
func Get() Info {
	commit := gitCommit
	if commit == "" {
		commit = "unknown"
		if bi, ok := debug.ReadBuildInfo(); ok {
			for _, s := range bi.Settings {
				if s.Key == "vcs.revision" {
					commit = s.Value
					break
				}
			}
		}
	}
	return Info{
		Version:   version,
		BuildDate: buildDate,
		GitCommit: commit,
	}
}
