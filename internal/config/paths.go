package config

import (
	"os"
	"path/filepath"
	"runtime"

	gap "github.com/muesli/go-app-paths"
)

// AppName 与 Electron 端 userData 目录名保持一致。
const AppName = "League Stream Utils"

// DefaultAssetRoot 返回未配置 AssetRoot 时使用的平台默认目录。
func DefaultAssetRoot() (string, error) {
	return defaultDataPath("assets")
}

// DefaultCollectorDatabase 返回 collector 默认的 SQLite 文件位置。
func DefaultCollectorDatabase() (string, error) {
	return defaultDataPath("collector.db")
}

// defaultDataPath 在 Windows 上沿用 %APPDATA%（Roaming），其它平台交给 go-app-paths。
func defaultDataPath(name string) (string, error) {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, AppName, name), nil
	}

	scope := gap.NewScope(gap.User, AppName)
	return scope.DataPath(name)
}
