// Package version carries build metadata stamped in via -ldflags.
package version

import "fmt"

// Defaults describe an unstamped local build.
var (
	Version   = "dev"
	GitCommit = "none"
	BuildTime = "unknown"
)

// Info renders a single-line version banner, shortening the commit hash
// to the usual seven characters when a full hash was stamped in.
func Info() string {
	commit := GitCommit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return fmt.Sprintf("%s (commit %s, built %s)", Version, commit, BuildTime)
}
