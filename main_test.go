package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseCLIFlagsPriority(t *testing.T) {
	t.Setenv("LSU_ASSETS_CONFIG", "/tmp/env.toml")

	opts, err := parseCLIFlags([]string{})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/env.toml" {
		t.Fatalf("应优先使用环境变量，得到 %s", opts.configPath)
	}

	opts, err = parseCLIFlags([]string{"--config", "/tmp/flag.toml", "-check-config"})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/flag.toml" || !opts.checkOnly {
		t.Fatalf("flag 应高于环境变量，得到 %+v", opts)
	}
}

func TestParseCLIFlagsConfigOptional(t *testing.T) {
	t.Setenv("LSU_ASSETS_CONFIG", "")

	opts, err := parseCLIFlags(nil)
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "" {
		t.Fatalf("未指定配置时路径应为空，得到 %s", opts.configPath)
	}

	if _, err := parseCLIFlags([]string{"--unknown"}); err == nil {
		t.Fatalf("未知参数应返回错误")
	}
}

func TestRunCheckConfigSuccess(t *testing.T) {
	isolateEnv(t)
	useBufferWriters(t)
	code := run(context.Background(), cliOptions{configPath: configFixture(t, "valid.toml"), checkOnly: true})
	if code != 0 {
		t.Fatalf("期望退出码 0，得到 %d", code)
	}
}

func TestRunCheckConfigFailure(t *testing.T) {
	isolateEnv(t)
	for _, name := range []string{"missing.toml", "invalid.toml"} {
		_, errBuf := useBufferWriters(t)
		code := run(context.Background(), cliOptions{configPath: configFixture(t, name), checkOnly: true})
		if code == 0 {
			t.Fatalf("%s 应返回非零退出码", name)
		}
		if !strings.Contains(errBuf.String(), "加载配置失败") {
			t.Fatalf("应输出配置错误，得到 %s", errBuf.String())
		}
	}
}

func TestRunVersionOutput(t *testing.T) {
	outBuf, _ := useBufferWriters(t)
	code := run(context.Background(), cliOptions{showVersion: true})
	if code != 0 {
		t.Fatalf("version 模式应成功退出，得到 %d", code)
	}
	if !strings.Contains(outBuf.String(), "lsu-assets") {
		t.Fatalf("version 输出应包含 lsu-assets 标识")
	}
}

func TestRunServesAssetsAndShutsDown(t *testing.T) {
	isolateEnv(t)
	useBufferWriters(t)

	dir := t.TempDir()
	root := filepath.Join(dir, "assets")
	port := freePort(t)
	configPath := writeConfigFile(t, fmt.Sprintf(`
ListenHost = "127.0.0.1"
ListenPort = %d
LogFilePath = %q
AssetRoot = %q
WatchAssets = false
`, port, filepath.Join(dir, "logs", "lsu-assets.log"), root))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan int, 1)
	go func() {
		done <- run(ctx, cliOptions{configPath: configPath})
	}()

	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	waitForServer(t, base+"/-/healthz", done)

	if _, err := os.Stat(root); err != nil {
		t.Fatalf("启动时应创建资源目录: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "Ahri.png"), []byte("png"), 0o644); err != nil {
		t.Fatalf("写入资源失败: %v", err)
	}

	resp, err := http.Get(base + "/local-image?path=Ahri.png")
	if err != nil {
		t.Fatalf("请求失败: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "png" {
		t.Fatalf("期望 200 + 文件内容，得到 %d %q", resp.StatusCode, body)
	}

	cancel()
	select {
	case code := <-done:
		if code != 0 {
			t.Fatalf("优雅退出应返回 0，得到 %d", code)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("服务未在超时内退出")
	}
}

func waitForServer(t *testing.T, url string, done <-chan int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case code := <-done:
			t.Fatalf("服务提前退出，退出码 %d", code)
		default:
		}
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("服务未在超时内就绪: %s", url)
}
