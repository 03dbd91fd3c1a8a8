package version

import "fmt"

// 构建时通过 -ldflags 注入
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func Full() string {
	return fmt.Sprintf("glite %s, commit %s, built at %s", Version, Commit, Date)
}
