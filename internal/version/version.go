package version

// 构建信息，由 -ldflags 注入（默认 dev 值）。
var (
	Version   = "2.0.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Info 是 /version 与 /status 返回的构建信息。
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
}

// GetVersionInfo 返回当前构建信息。
func GetVersionInfo() Info {
	return Info{Version: Version, GitCommit: GitCommit, BuildTime: BuildTime}
}
