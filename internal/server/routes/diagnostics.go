package routes

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v3"

	"github.com/league-stream-utils/lsu-assets/internal/cache"
)

// StatsProvider 由缓存服务实现，诊断接口只读取快照。
type StatsProvider interface {
	Stats() cache.Stats
}

// DiagnosticsOptions 描述诊断接口需要展示的运行信息。
type DiagnosticsOptions struct {
	AssetRoot string
	Version   string
	StartedAt time.Time
	Cache     StatsProvider
}

// RegisterDiagnosticsRoutes 暴露 /-/healthz 与 /-/cache，供本机排查资源目录与缓存状态。
func RegisterDiagnosticsRoutes(app *fiber.App, opts DiagnosticsOptions) {
	if app == nil || opts.Cache == nil {
		return
	}

	app.Get("/-/healthz", func(c fiber.Ctx) error {
		return c.JSON(healthPayload{
			Status:    "ok",
			Version:   opts.Version,
			AssetRoot: opts.AssetRoot,
			Uptime:    time.Since(opts.StartedAt).Round(time.Second).String(),
		})
	})

	app.Get("/-/cache", func(c fiber.Ctx) error {
		return c.JSON(encodeCacheStats(opts.Cache.Stats()))
	})
}

type healthPayload struct {
	Status    string `json:"status"`
	Version   string `json:"version,omitempty"`
	AssetRoot string `json:"asset_root"`
	Uptime    string `json:"uptime"`
}

type cacheStatsPayload struct {
	Existence existencePayload `json:"existence"`
	Content   contentPayload   `json:"content"`
	Janitor   janitorPayload   `json:"janitor"`
}

type existencePayload struct {
	Entries    int    `json:"entries"`
	Hits       uint64 `json:"hits"`
	Misses     uint64 `json:"misses"`
	TTLSeconds int64  `json:"ttl_seconds"`
}

type contentPayload struct {
	Entries    int    `json:"entries"`
	MaxEntries int    `json:"max_entries"`
	Bytes      int64  `json:"bytes"`
	Size       string `json:"size"`
	Hits       uint64 `json:"hits"`
	Misses     uint64 `json:"misses"`
	TTLSeconds int64  `json:"ttl_seconds"`
}

type janitorPayload struct {
	Sweeps           uint64 `json:"sweeps"`
	LastSweep        string `json:"last_sweep,omitempty"`
	ExpiredExistence int    `json:"expired_existence"`
	ExpiredContent   int    `json:"expired_content"`
	EvictedContent   int    `json:"evicted_content"`
}

func encodeCacheStats(stats cache.Stats) cacheStatsPayload {
	payload := cacheStatsPayload{
		Existence: existencePayload{
			Entries:    stats.ExistenceEntries,
			Hits:       stats.ExistenceHits,
			Misses:     stats.ExistenceMisses,
			TTLSeconds: int64(stats.ExistenceTTL / time.Second),
		},
		Content: contentPayload{
			Entries:    stats.ContentEntries,
			MaxEntries: stats.MaxContentEntries,
			Bytes:      stats.ContentBytes,
			Size:       humanize.IBytes(uint64(stats.ContentBytes)),
			Hits:       stats.ContentHits,
			Misses:     stats.ContentMisses,
			TTLSeconds: int64(stats.ContentTTL / time.Second),
		},
		Janitor: janitorPayload{
			Sweeps:           stats.Sweeps,
			ExpiredExistence: stats.LastSweep.ExpiredExistence,
			ExpiredContent:   stats.LastSweep.ExpiredContent,
			EvictedContent:   stats.LastSweep.EvictedContent,
		},
	}
	if !stats.LastSweepAt.IsZero() {
		payload.Janitor.LastSweep = humanize.Time(stats.LastSweepAt)
	}
	return payload
}
