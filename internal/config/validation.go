package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if strings.TrimSpace(g.AssetRoot) == "" {
		return newFieldError("Global.AssetRoot", "不能为空")
	}
	if _, err := logrus.ParseLevel(g.LogLevel); err != nil {
		return newFieldError("Global.LogLevel", fmt.Sprintf("无法识别的日志级别 %q", g.LogLevel))
	}
	switch strings.ToLower(strings.TrimSpace(g.LogFormat)) {
	case "", "json", "text":
	default:
		return newFieldError("Global.LogFormat", "仅支持 json/text")
	}
	if g.ExistenceTTL.DurationValue() <= 0 {
		return newFieldError("Global.ExistenceTTL", "必须大于 0")
	}
	if g.ContentTTL.DurationValue() <= 0 {
		return newFieldError("Global.ContentTTL", "必须大于 0")
	}
	if g.JanitorInterval.DurationValue() < 0 {
		return newFieldError("Global.JanitorInterval", "不能为负数")
	}
	if g.MaxContentEntries < 2 {
		return newFieldError("Global.MaxContentEntries", "至少为 2")
	}
	if g.MaxContentFileSize <= 0 {
		return newFieldError("Global.MaxContentFileSize", "必须大于 0")
	}
	if g.StreamChunkSize <= 0 {
		return newFieldError("Global.StreamChunkSize", "必须大于 0")
	}

	return c.Collector.validate()
}

func (c CollectorConfig) validate() error {
	if err := validateEndpoint(c.Endpoint); err != nil {
		return fmt.Errorf("%s: %w", collectorField("Endpoint"), err)
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return newFieldError(collectorField("DatabasePath"), "不能为空")
	}
	if c.PollInterval.DurationValue() <= 0 {
		return newFieldError(collectorField("PollInterval"), "必须大于 0")
	}
	if c.RequestTimeout.DurationValue() <= 0 {
		return newFieldError(collectorField("RequestTimeout"), "必须大于 0")
	}
	if c.MaxConsecutiveErrors <= 0 {
		return newFieldError(collectorField("MaxConsecutiveErrors"), "必须大于 0")
	}
	if c.ReconnectAttempts <= 0 {
		return newFieldError(collectorField("ReconnectAttempts"), "必须大于 0")
	}
	return nil
}

func validateEndpoint(raw string) error {
	if raw == "" {
		return errors.New("缺少接口地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("接口地址缺少 Host: %s", raw)
	}
	return nil
}
