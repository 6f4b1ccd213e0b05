package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	defaultListenHost         = "0.0.0.0"
	defaultListenPort         = 8000
	defaultExistenceTTL       = 30 * time.Second
	defaultContentTTL         = 60 * time.Second
	defaultMaxContentEntries  = 100
	defaultMaxContentFileSize = 1024 * 1024
	defaultStreamChunkSize    = 8192

	defaultCollectorEndpoint = "https://127.0.0.1:2999/liveclientdata/activeplayer"
)

// Load 读取可选的 TOML 配置文件，叠加环境变量覆盖，并注入默认值与校验逻辑。
// path 为空时仅使用默认值与环境变量。
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	overrides, err := ParseEnv()
	if err != nil {
		return nil, err
	}
	overrides.Apply(&cfg)

	if err := applyGlobalDefaults(&cfg.Global); err != nil {
		return nil, err
	}
	if err := applyCollectorDefaults(&cfg.Collector); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(cfg.Global.AssetRoot)
	if err != nil {
		return nil, fmt.Errorf("无法解析资源目录: %w", err)
	}
	cfg.Global.AssetRoot = absRoot

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenHost", defaultListenHost)
	v.SetDefault("ListenPort", defaultListenPort)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFormat", "json")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("AssetRoot", "")
	v.SetDefault("ExistenceTTL", "30s")
	v.SetDefault("ContentTTL", "60s")
	v.SetDefault("MaxContentEntries", defaultMaxContentEntries)
	v.SetDefault("MaxContentFileSize", defaultMaxContentFileSize)
	v.SetDefault("StreamChunkSize", defaultStreamChunkSize)
	v.SetDefault("JanitorInterval", "")
	v.SetDefault("WatchAssets", true)

	v.SetDefault("Collector.Endpoint", defaultCollectorEndpoint)
	v.SetDefault("Collector.DatabasePath", "")
	v.SetDefault("Collector.PollInterval", "1s")
	v.SetDefault("Collector.RequestTimeout", "5s")
	v.SetDefault("Collector.MaxConsecutiveErrors", 10)
	v.SetDefault("Collector.ReconnectAttempts", 3)
	v.SetDefault("Collector.InsecureSkipVerify", true)
}

func applyGlobalDefaults(g *GlobalConfig) error {
	if strings.TrimSpace(g.ListenHost) == "" {
		g.ListenHost = defaultListenHost
	}
	if g.ListenPort == 0 {
		g.ListenPort = defaultListenPort
	}
	if g.ExistenceTTL.DurationValue() == 0 {
		g.ExistenceTTL = Duration(defaultExistenceTTL)
	}
	if g.ContentTTL.DurationValue() == 0 {
		g.ContentTTL = Duration(defaultContentTTL)
	}
	if g.MaxContentEntries == 0 {
		g.MaxContentEntries = defaultMaxContentEntries
	}
	if g.MaxContentFileSize == 0 {
		g.MaxContentFileSize = defaultMaxContentFileSize
	}
	if g.StreamChunkSize == 0 {
		g.StreamChunkSize = defaultStreamChunkSize
	}
	if strings.TrimSpace(g.AssetRoot) == "" {
		root, err := DefaultAssetRoot()
		if err != nil {
			return fmt.Errorf("无法确定默认资源目录: %w", err)
		}
		g.AssetRoot = root
	}
	return nil
}

func applyCollectorDefaults(c *CollectorConfig) error {
	if strings.TrimSpace(c.Endpoint) == "" {
		c.Endpoint = defaultCollectorEndpoint
	}
	if c.PollInterval.DurationValue() == 0 {
		c.PollInterval = Duration(time.Second)
	}
	if c.RequestTimeout.DurationValue() == 0 {
		c.RequestTimeout = Duration(5 * time.Second)
	}
	if c.MaxConsecutiveErrors == 0 {
		c.MaxConsecutiveErrors = 10
	}
	if c.ReconnectAttempts == 0 {
		c.ReconnectAttempts = 3
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		dbPath, err := DefaultCollectorDatabase()
		if err != nil {
			return fmt.Errorf("无法确定 collector 数据库位置: %w", err)
		}
		c.DatabasePath = dbPath
	}
	return nil
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
