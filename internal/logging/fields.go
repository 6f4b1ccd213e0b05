package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// RequestFields 提供资源路径/数据来源/命中状态字段，供 /local-image 请求日志复用。
func RequestFields(path, source string, cacheHit bool) logrus.Fields {
	return logrus.Fields{
		"action":    "local_image",
		"path":      path,
		"source":    source,
		"cache_hit": cacheHit,
	}
}
