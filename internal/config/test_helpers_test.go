package config

import (
	"os"
	"path/filepath"
	"testing"
)

func testConfigPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join("testdata", name)
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("写入临时配置失败: %v", err)
	}
	return path
}

// isolateEnv 清空所有覆盖变量，并把用户数据目录指向临时目录。
func isolateEnv(t *testing.T) string {
	t.Helper()
	for _, key := range []string{
		"ASSET_CACHE_PATH",
		"LSU_ASSETS_HOST",
		"LSU_ASSETS_PORT",
		"LSU_ASSETS_LOG_LEVEL",
		"LSU_COLLECTOR_DB",
		"LSU_COLLECTOR_ENDPOINT",
	} {
		t.Setenv(key, "")
	}
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)
	t.Setenv("APPDATA", dataHome)
	return dataHome
}
