package collector

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStoreUpsertCreatesThenReplaces(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	gold := 500.0
	first := PlayerSnapshot{
		RiotID:        "Faker#KR1",
		SummonerName:  "Hide on bush",
		CurrentGold:   &gold,
		ChampionStats: json.RawMessage(`{"armor":30}`),
		Timestamp:     100,
		MatchID:       "match-1",
	}
	created, err := store.Upsert(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)

	moreGold := 1200.0
	second := first
	second.CurrentGold = &moreGold
	second.ChampionStats = json.RawMessage(`{"armor":55}`)
	second.Timestamp = 101
	created, err = store.Upsert(ctx, second)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := store.Get(ctx, "Faker#KR1", "match-1")
	require.NoError(t, err)
	require.NotNil(t, got.CurrentGold)
	assert.InDelta(t, 1200.0, *got.CurrentGold, 0.001)
	assert.JSONEq(t, `{"armor":55}`, string(got.ChampionStats))
	assert.Equal(t, int64(101), got.Timestamp)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSQLiteStoreKeysByRiotIDAndMatch(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	for _, snapshot := range []PlayerSnapshot{
		{RiotID: "A#1", MatchID: "m1"},
		{RiotID: "A#1", MatchID: "m2"},
		{RiotID: "B#1", MatchID: "m1"},
	} {
		created, err := store.Upsert(ctx, snapshot)
		require.NoError(t, err)
		assert.True(t, created)
	}

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestSQLiteStoreRejectsMissingRiotID(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Upsert(context.Background(), PlayerSnapshot{MatchID: "m1"})
	require.ErrorIs(t, err, ErrMissingRiotID)
}

func TestSQLiteStorePingAndClose(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Ping(context.Background()))
	require.NoError(t, store.Close())
	assert.Error(t, store.Ping(context.Background()))
}

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "nested", "collector.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}
