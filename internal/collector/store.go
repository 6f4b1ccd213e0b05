package collector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"
)

// ErrMissingRiotID 表示快照缺少 riotId，无法作为文档主键写入。
var ErrMissingRiotID = errors.New("snapshot has no riot id")

// playerLiveInfoModel represents the player_live_info table.
type playerLiveInfoModel struct {
	bun.BaseModel `bun:"table:player_live_info"`

	ID             int64    `bun:"id,pk,autoincrement"`
	RiotID         string   `bun:"riot_id,notnull,unique:riot_match"`
	MatchID        string   `bun:"match_id,notnull,unique:riot_match"`
	RiotIDGameName string   `bun:"riot_id_game_name,notnull"`
	RiotIDTagLine  string   `bun:"riot_id_tag_line,notnull"`
	SummonerName   string   `bun:"summoner_name,notnull"`
	CurrentGold    *float64 `bun:"current_gold"`
	ChampionStats  string   `bun:"champion_stats"`
	Timestamp      int64    `bun:"timestamp,notnull"` // Unix seconds
}

// SQLiteStore 以 SQLite 文件保存玩家文档，(riot_id, match_id) 唯一。
type SQLiteStore struct {
	db *bun.DB
}

// OpenSQLiteStore 打开（必要时创建）数据库文件并建表。
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}

	dsn := "file:" + cleanPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// 单连接写入，避免 WAL 下的锁竞争。
	sqlDB.SetMaxOpenConns(1)

	db := bun.NewDB(sqlDB, sqlitedialect.New())
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	_, err = db.NewCreateTable().
		Model((*playerLiveInfoModel)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create player_live_info: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Upsert 用快照整体替换 (riotId, matchId) 对应的文档，created 表示是否新建。
// "database is locked" 错误按线性退避重试。
func (s *SQLiteStore) Upsert(ctx context.Context, snapshot PlayerSnapshot) (bool, error) {
	if snapshot.RiotID == "" {
		return false, ErrMissingRiotID
	}
	return retry.DoWithData(
		func() (bool, error) { return s.upsert(ctx, snapshot) },
		retry.Attempts(3),
		retry.Delay(100*time.Millisecond),
		retry.MaxDelay(300*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(isDatabaseLocked),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
}

func (s *SQLiteStore) upsert(ctx context.Context, snapshot PlayerSnapshot) (bool, error) {
	model := &playerLiveInfoModel{
		RiotID:         snapshot.RiotID,
		MatchID:        snapshot.MatchID,
		RiotIDGameName: snapshot.RiotIDGameName,
		RiotIDTagLine:  snapshot.RiotIDTagLine,
		SummonerName:   snapshot.SummonerName,
		CurrentGold:    snapshot.CurrentGold,
		ChampionStats:  string(snapshot.ChampionStats),
		Timestamp:      snapshot.Timestamp,
	}

	created := false
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*playerLiveInfoModel)(nil)).
			Where("riot_id = ?", model.RiotID).
			Where("match_id = ?", model.MatchID).
			Exists(ctx)
		if err != nil {
			return err
		}
		created = !exists

		_, err = tx.NewInsert().
			Model(model).
			On("CONFLICT (riot_id, match_id) DO UPDATE").
			Set("riot_id_game_name = EXCLUDED.riot_id_game_name").
			Set("riot_id_tag_line = EXCLUDED.riot_id_tag_line").
			Set("summoner_name = EXCLUDED.summoner_name").
			Set("current_gold = EXCLUDED.current_gold").
			Set("champion_stats = EXCLUDED.champion_stats").
			Set("timestamp = EXCLUDED.timestamp").
			Exec(ctx)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("upsert player_live_info: %w", err)
	}
	return created, nil
}

// Get 读取 (riotID, matchID) 对应的文档。
func (s *SQLiteStore) Get(ctx context.Context, riotID, matchID string) (PlayerSnapshot, error) {
	var model playerLiveInfoModel
	err := s.db.NewSelect().
		Model(&model).
		Where("riot_id = ?", riotID).
		Where("match_id = ?", matchID).
		Scan(ctx)
	if err != nil {
		return PlayerSnapshot{}, err
	}

	snapshot := PlayerSnapshot{
		RiotID:         model.RiotID,
		RiotIDGameName: model.RiotIDGameName,
		RiotIDTagLine:  model.RiotIDTagLine,
		SummonerName:   model.SummonerName,
		CurrentGold:    model.CurrentGold,
		Timestamp:      model.Timestamp,
		MatchID:        model.MatchID,
	}
	if model.ChampionStats != "" {
		snapshot.ChampionStats = []byte(model.ChampionStats)
	}
	return snapshot, nil
}

// Count 返回文档总数。
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	return s.db.NewSelect().Model((*playerLiveInfoModel)(nil)).Count(ctx)
}

// Ping 检查数据库连接是否可用。
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close 关闭数据库句柄。
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func isDatabaseLocked(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "database is locked")
}
