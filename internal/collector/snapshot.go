package collector

import (
	"encoding/json"
	"time"
)

// PlayerSnapshot 是写入数据库的一份玩家文档。缺失字段保持零值，
// CurrentGold 与 ChampionStats 缺失时为 nil。
type PlayerSnapshot struct {
	RiotID         string          `json:"riotId"`
	RiotIDGameName string          `json:"riotIdGameName"`
	RiotIDTagLine  string          `json:"riotIdTagLine"`
	SummonerName   string          `json:"summonerName"`
	CurrentGold    *float64        `json:"currentGold"`
	ChampionStats  json.RawMessage `json:"championStats"`
	Timestamp      int64           `json:"timestamp"`
	MatchID        string          `json:"matchId"`
}

// Extract 从 activeplayer 原始数据中挑出需要持久化的字段。
// 类型不符的字段按缺失处理，不会中断采集。
func Extract(raw ActivePlayer, matchID string, now time.Time) PlayerSnapshot {
	snapshot := PlayerSnapshot{
		RiotID:         stringField(raw, "riotId"),
		RiotIDGameName: stringField(raw, "riotIdGameName"),
		RiotIDTagLine:  stringField(raw, "riotIdTagLine"),
		SummonerName:   stringField(raw, "summonerName"),
		Timestamp:      now.Unix(),
		MatchID:        matchID,
	}

	var gold float64
	if value, ok := raw["currentGold"]; ok && json.Unmarshal(value, &gold) == nil {
		snapshot.CurrentGold = &gold
	}
	if value, ok := raw["championStats"]; ok && string(value) != "null" {
		snapshot.ChampionStats = append(json.RawMessage(nil), value...)
	}
	return snapshot
}

func stringField(raw ActivePlayer, key string) string {
	value, ok := raw[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		return ""
	}
	return s
}
