// Package version holds the build information stamped in by the linker.
package version

import "fmt"

// Info describes the running binary.
type Info struct {
	Version string
	Commit  string
	Date    string
}

var current = Info{Version: "dev", Commit: "none", Date: "unknown"}

// Set records build information. Empty values keep the defaults.
func Set(v, c, d string) {
	if v != "" {
		current.Version = v
	}
	if c != "" {
		current.Commit = c
	}
	if d != "" {
		current.Date = d
	}
}

// Get returns the recorded build information.
func Get() Info { return current }

func (i Info) String() string {
	return fmt.Sprintf("imagerelay %s (commit %s, built %s)", i.Version, i.Commit, i.Date)
}
