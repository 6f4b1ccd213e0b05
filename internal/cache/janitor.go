package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Janitor 按固定周期调用 Service.Sweep。单次清理中的 panic 会被记录并吞掉，
// 循环按计划继续；ctx 取消时在下一个周期边界退出。
type Janitor struct {
	cache    *Service
	interval time.Duration
	logger   *logrus.Logger

	sweep func() SweepResult
}

// NewJanitor 创建清理任务，interval 通常等于存在性缓存的 TTL。
func NewJanitor(cache *Service, interval time.Duration, logger *logrus.Logger) *Janitor {
	if interval <= 0 {
		interval = cache.existenceTTL
	}
	return &Janitor{
		cache:    cache,
		interval: interval,
		logger:   logger,
		sweep:    cache.Sweep,
	}
}

// Run 阻塞运行清理循环，直到 ctx 结束。
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.WithFields(logrus.Fields{
		"action":   "janitor_start",
		"interval": j.interval.String(),
	}).Debug("cache janitor started")

	for {
		select {
		case <-ctx.Done():
			j.logger.WithField("action", "janitor_stop").Debug("cache janitor stopped")
			return
		case <-ticker.C:
			j.runOnce()
		}
	}
}

// runOnce 执行一次清理，返回 panic 转换成的错误（若有）。
func (j *Janitor) runOnce() (result SweepResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sweep panic: %v", r)
			j.logger.WithFields(logrus.Fields{
				"action": "janitor_sweep",
			}).Warn(err.Error())
		}
	}()

	result = j.sweep()
	j.logger.WithFields(logrus.Fields{
		"action":            "janitor_sweep",
		"expired_existence": result.ExpiredExistence,
		"expired_content":   result.ExpiredContent,
		"evicted_content":   result.EvictedContent,
	}).Debug("cache sweep complete")
	return result, nil
}
