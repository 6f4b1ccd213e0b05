package version

import "fmt"

// Version/Commit 可在构建时通过 -ldflags 注入，默认使用开发占位符。
var (
	Version = "0.1.0"
	Commit  = "dev"
)

// Full 返回便于 CLI 打印的完整版本信息。
func Full() string {
	return Tool("lsu-assets")
}

// Tool 为指定二进制名称生成版本信息，lsu-collector 与服务端共用同一版本号。
func Tool(name string) string {
	return fmt.Sprintf("%s %s (%s)", name, Version, Commit)
}
