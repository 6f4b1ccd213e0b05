package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// EnvOverrides 汇总可通过环境变量覆盖的字段，优先级高于配置文件。
type EnvOverrides struct {
	AssetRoot    string `env:"ASSET_CACHE_PATH"`
	ListenHost   string `env:"LSU_ASSETS_HOST"`
	ListenPort   int    `env:"LSU_ASSETS_PORT"`
	LogLevel     string `env:"LSU_ASSETS_LOG_LEVEL"`
	CollectorDB  string `env:"LSU_COLLECTOR_DB"`
	CollectorURL string `env:"LSU_COLLECTOR_ENDPOINT"`
}

// ParseEnv 读取当前进程环境中的覆盖项。
func ParseEnv() (EnvOverrides, error) {
	overrides, err := env.ParseAs[EnvOverrides]()
	if err != nil {
		return EnvOverrides{}, fmt.Errorf("parse env: %w", err)
	}
	return overrides, nil
}

// Apply 将非空覆盖项写入配置。
func (o EnvOverrides) Apply(cfg *Config) {
	if v := strings.TrimSpace(o.AssetRoot); v != "" {
		cfg.Global.AssetRoot = v
	}
	if v := strings.TrimSpace(o.ListenHost); v != "" {
		cfg.Global.ListenHost = v
	}
	if o.ListenPort != 0 {
		cfg.Global.ListenPort = o.ListenPort
	}
	if v := strings.TrimSpace(o.LogLevel); v != "" {
		cfg.Global.LogLevel = v
	}
	if v := strings.TrimSpace(o.CollectorDB); v != "" {
		cfg.Collector.DatabasePath = v
	}
	if v := strings.TrimSpace(o.CollectorURL); v != "" {
		cfg.Collector.Endpoint = v
	}
}
