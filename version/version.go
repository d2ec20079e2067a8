// Package version carries build metadata, set at link time:
//
//	go build -ldflags "-X github.com/wenzapen/scout/version.Version=v0.3.0 -X github.com/wenzapen/scout/version.GitHash=$(git rev-parse HEAD)"
package version

import (
	"fmt"
	"io"
)

var (
	BuildTS   = "None"
	GitHash   = "None"
	GitBranch = "None"
	Version   = "None"
)

type Info struct {
	Version   string `json:"version"`
	GitBranch string `json:"git_branch"`
	GitHash   string `json:"git_hash"`
	BuildTS   string `json:"build_ts"`
}

func Get() Info {
	return Info{Version: Version, GitBranch: GitBranch, GitHash: GitHash, BuildTS: BuildTS}
}

// Short is the version with an abbreviated commit hash.
func (i Info) Short() string {
	if i.GitHash == "" || i.GitHash == "None" {
		return i.Version
	}
	h := i.GitHash
	if len(h) > 7 {
		h = h[:7]
	}
	return fmt.Sprintf("%s-%s", i.Version, h)
}

func (i Info) Fprint(w io.Writer) {
	fmt.Fprintln(w, "Version:          ", i.Short())
	fmt.Fprintln(w, "Git Branch:       ", i.GitBranch)
	fmt.Fprintln(w, "Git Hash:         ", i.GitHash)
	fmt.Fprintln(w, "Build Time (UTC): ", i.BuildTS)
}
