package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/league-stream-utils/lsu-assets/internal/config"
)

// ErrStoreUnavailable 表示连续失败后重连数据库仍然失败，采集无法继续。
var ErrStoreUnavailable = errors.New("player store unavailable")

// Source 提供当前玩家的原始数据，LiveClient 为默认实现。
type Source interface {
	ActivePlayer(ctx context.Context) (ActivePlayer, error)
}

// Store 是采集结果的持久化目标，SQLiteStore 为默认实现。
type Store interface {
	Upsert(ctx context.Context, snapshot PlayerSnapshot) (bool, error)
	Ping(ctx context.Context) error
}

// Options 描述一次采集会话。
type Options struct {
	Source  Source
	Store   Store
	Logger  *logrus.Logger
	MatchID string

	PollInterval         time.Duration
	MaxConsecutiveErrors int
	ReconnectAttempts    int
	ReconnectDelay       time.Duration

	Now func() time.Time
}

// OptionsFromConfig 使用配置中的节奏与阈值填充 Options，依赖项由调用方补充。
func OptionsFromConfig(cfg config.CollectorConfig) Options {
	return Options{
		PollInterval:         cfg.PollInterval.DurationValue(),
		MaxConsecutiveErrors: cfg.MaxConsecutiveErrors,
		ReconnectAttempts:    cfg.ReconnectAttempts,
	}
}

// Collector 按固定节奏执行 “拉取 → 提取 → upsert” 循环。
type Collector struct {
	source  Source
	store   Store
	logger  *logrus.Logger
	matchID string
	runID   string

	interval          time.Duration
	maxErrors         int
	reconnectAttempts int
	reconnectDelay    time.Duration
	now               func() time.Time
}

// New 校验依赖并补齐默认值（1s / 10 次 / 3 次）。
func New(opts Options) (*Collector, error) {
	if opts.Source == nil {
		return nil, errors.New("source is required")
	}
	if opts.Store == nil {
		return nil, errors.New("store is required")
	}
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.MatchID == "" {
		return nil, errors.New("match id is required")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.MaxConsecutiveErrors <= 0 {
		opts.MaxConsecutiveErrors = 10
	}
	if opts.ReconnectAttempts <= 0 {
		opts.ReconnectAttempts = 3
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 500 * time.Millisecond
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Collector{
		source:            opts.Source,
		store:             opts.Store,
		logger:            opts.Logger,
		matchID:           opts.MatchID,
		runID:             uuid.NewString(),
		interval:          opts.PollInterval,
		maxErrors:         opts.MaxConsecutiveErrors,
		reconnectAttempts: opts.ReconnectAttempts,
		reconnectDelay:    opts.ReconnectDelay,
		now:               opts.Now,
	}, nil
}

// Run 阻塞执行采集循环。ctx 取消时返回 nil；
// 连续失败达到阈值且重连失败时返回 ErrStoreUnavailable。
func (c *Collector) Run(ctx context.Context) error {
	limiter := rate.NewLimiter(rate.Every(c.interval), 1)
	consecutive := 0

	c.log().WithField("interval", c.interval.String()).Info("collector_start")

	for {
		if err := limiter.Wait(ctx); err != nil {
			c.log().Info("collector_stop")
			return nil
		}

		if c.pollOnce(ctx) {
			consecutive = 0
		} else {
			consecutive++
		}

		if consecutive < c.maxErrors {
			continue
		}

		c.log().WithField("consecutive_errors", consecutive).Warn("collector_reconnect")
		if err := c.reconnect(ctx); err != nil {
			if ctx.Err() != nil {
				c.log().Info("collector_stop")
				return nil
			}
			c.log().WithError(err).Error("collector_store_lost")
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		consecutive = 0
	}
}

// pollOnce 执行一次采集，仅在成功写入时返回 true。
func (c *Collector) pollOnce(ctx context.Context) bool {
	raw, err := c.source.ActivePlayer(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.log().WithError(err).Warn("collector_fetch_failed")
		}
		return false
	}

	snapshot := Extract(raw, c.matchID, c.now())
	created, err := c.store.Upsert(ctx, snapshot)
	if err != nil {
		entry := c.log().WithField("summoner", snapshot.SummonerName)
		if errors.Is(err, ErrMissingRiotID) {
			entry.Warn("collector_skip_missing_riot_id")
		} else {
			entry.WithError(err).Error("collector_upsert_failed")
		}
		return false
	}

	c.log().WithFields(logrus.Fields{
		"riot_id": snapshot.RiotID,
		"created": created,
	}).Debug("collector_upsert")
	return true
}

func (c *Collector) reconnect(ctx context.Context) error {
	return retry.Do(
		func() error { return c.store.Ping(ctx) },
		retry.Attempts(uint(c.reconnectAttempts)),
		retry.Delay(c.reconnectDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
}

func (c *Collector) log() *logrus.Entry {
	return c.logger.WithFields(logrus.Fields{
		"action":   "collector",
		"match_id": c.matchID,
		"run_id":   c.runID,
	})
}
