package collector

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCopiesKnownFields(t *testing.T) {
	var raw ActivePlayer
	require.NoError(t, json.Unmarshal([]byte(`{
		"riotId": "Faker#KR1",
		"riotIdGameName": "Faker",
		"riotIdTagLine": "KR1",
		"summonerName": "Hide on bush",
		"currentGold": 1337.25,
		"championStats": {"attackDamage": 120.5},
		"level": 11
	}`), &raw))

	now := time.Unix(1718000000, 0)
	snapshot := Extract(raw, "LCK-2025-W1", now)

	assert.Equal(t, "Faker#KR1", snapshot.RiotID)
	assert.Equal(t, "Faker", snapshot.RiotIDGameName)
	assert.Equal(t, "KR1", snapshot.RiotIDTagLine)
	assert.Equal(t, "Hide on bush", snapshot.SummonerName)
	require.NotNil(t, snapshot.CurrentGold)
	assert.InDelta(t, 1337.25, *snapshot.CurrentGold, 0.001)
	assert.JSONEq(t, `{"attackDamage": 120.5}`, string(snapshot.ChampionStats))
	assert.Equal(t, int64(1718000000), snapshot.Timestamp)
	assert.Equal(t, "LCK-2025-W1", snapshot.MatchID)
}

func TestExtractToleratesMissingAndMistypedFields(t *testing.T) {
	raw := ActivePlayer{
		"riotId":        json.RawMessage(`42`),
		"currentGold":   json.RawMessage(`"lots"`),
		"championStats": json.RawMessage(`null`),
	}

	snapshot := Extract(raw, "m1", time.Unix(1, 0))
	assert.Empty(t, snapshot.RiotID)
	assert.Empty(t, snapshot.SummonerName)
	assert.Nil(t, snapshot.CurrentGold)
	assert.Nil(t, snapshot.ChampionStats)
	assert.Equal(t, "m1", snapshot.MatchID)
}
