package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// GlobalConfig 描述资源服务的运行参数，进程启动后只读。
type GlobalConfig struct {
	ListenHost    string `mapstructure:"ListenHost"`
	ListenPort    int    `mapstructure:"ListenPort"`
	LogLevel      string `mapstructure:"LogLevel"`
	LogFormat     string `mapstructure:"LogFormat"`
	LogFilePath   string `mapstructure:"LogFilePath"`
	LogMaxSize    int    `mapstructure:"LogMaxSize"`
	LogMaxBackups int    `mapstructure:"LogMaxBackups"`
	LogCompress   bool   `mapstructure:"LogCompress"`

	// AssetRoot 是所有请求路径必须落入的沙箱目录（绝对路径）。
	AssetRoot          string   `mapstructure:"AssetRoot"`
	ExistenceTTL       Duration `mapstructure:"ExistenceTTL"`
	ContentTTL         Duration `mapstructure:"ContentTTL"`
	MaxContentEntries  int      `mapstructure:"MaxContentEntries"`
	MaxContentFileSize int64    `mapstructure:"MaxContentFileSize"`
	StreamChunkSize    int      `mapstructure:"StreamChunkSize"`
	JanitorInterval    Duration `mapstructure:"JanitorInterval"`
	WatchAssets        bool     `mapstructure:"WatchAssets"`
}

// CollectorConfig 控制 lsu-collector 轮询本地游戏客户端的方式。
type CollectorConfig struct {
	Endpoint             string   `mapstructure:"Endpoint"`
	DatabasePath         string   `mapstructure:"DatabasePath"`
	PollInterval         Duration `mapstructure:"PollInterval"`
	RequestTimeout       Duration `mapstructure:"RequestTimeout"`
	MaxConsecutiveErrors int      `mapstructure:"MaxConsecutiveErrors"`
	ReconnectAttempts    int      `mapstructure:"ReconnectAttempts"`
	InsecureSkipVerify   bool     `mapstructure:"InsecureSkipVerify"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global    GlobalConfig    `mapstructure:",squash"`
	Collector CollectorConfig `mapstructure:"Collector"`
}

// ListenAddr 返回 fiber 监听地址，例如 0.0.0.0:8000。
func (g GlobalConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%d", g.ListenHost, g.ListenPort)
}

// EffectiveJanitorInterval 返回清理周期，未配置时与存在性缓存 TTL 保持一致。
func (g GlobalConfig) EffectiveJanitorInterval() time.Duration {
	if g.JanitorInterval.DurationValue() > 0 {
		return g.JanitorInterval.DurationValue()
	}
	return g.ExistenceTTL.DurationValue()
}
