package collector

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/league-stream-utils/lsu-assets/internal/config"
	"github.com/league-stream-utils/lsu-assets/internal/logging"
)

func TestCollectorUpsertsEachPoll(t *testing.T) {
	source := &fakeSource{payload: ActivePlayer{"riotId": json.RawMessage(`"Faker#KR1"`)}}
	store := &fakeStore{}

	ctx, cancel := context.WithCancel(context.Background())
	store.onUpsert = func(n int) {
		if n == 3 {
			cancel()
		}
	}

	c := newTestCollector(t, source, store)
	require.NoError(t, c.Run(ctx))

	snapshots := store.Snapshots()
	require.GreaterOrEqual(t, len(snapshots), 3)
	assert.Equal(t, "Faker#KR1", snapshots[0].RiotID)
	assert.Equal(t, "match-7", snapshots[0].MatchID)
	assert.Zero(t, store.Pings())
}

func TestCollectorReconnectsAfterConsecutiveErrors(t *testing.T) {
	source := &fakeSource{err: errors.New("client not running")}
	store := &fakeStore{}

	ctx, cancel := context.WithCancel(context.Background())
	store.onPing = func(n int) {
		if n == 2 {
			cancel()
		}
	}

	c := newTestCollector(t, source, store)
	require.NoError(t, c.Run(ctx))

	// 每 3 次失败触发一次重连，ping 成功后计数清零。
	assert.GreaterOrEqual(t, source.Calls(), 6)
	assert.Equal(t, 2, store.Pings())
}

func TestCollectorStopsWhenStoreIsLost(t *testing.T) {
	source := &fakeSource{payload: ActivePlayer{"riotId": json.RawMessage(`"Faker#KR1"`)}}
	store := &fakeStore{upsertErr: errors.New("disk I/O error"), pingErr: errors.New("database is closed")}

	c := newTestCollector(t, source, store)
	err := c.Run(context.Background())
	require.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, 3, source.Calls())
	assert.Equal(t, 2, store.Pings())
}

func TestCollectorCountsMissingRiotIDAsFailure(t *testing.T) {
	source := &fakeSource{payload: ActivePlayer{"summonerName": json.RawMessage(`"anon"`)}}
	store := &fakeStore{upsertErr: ErrMissingRiotID, pingErr: errors.New("down")}

	c := newTestCollector(t, source, store)
	require.ErrorIs(t, c.Run(context.Background()), ErrStoreUnavailable)
}

func TestNewCollectorDefaults(t *testing.T) {
	opts := OptionsFromConfig(config.CollectorConfig{})
	opts.Source = &fakeSource{}
	opts.Store = &fakeStore{}
	opts.Logger = logging.Discard()
	opts.MatchID = "m"

	c, err := New(opts)
	require.NoError(t, err)
	assert.Equal(t, time.Second, c.interval)
	assert.Equal(t, 10, c.maxErrors)
	assert.Equal(t, 3, c.reconnectAttempts)
	assert.NotEmpty(t, c.runID)

	opts.MatchID = ""
	_, err = New(opts)
	assert.Error(t, err)
}

func newTestCollector(t *testing.T, source Source, store Store) *Collector {
	t.Helper()
	c, err := New(Options{
		Source:               source,
		Store:                store,
		Logger:               logging.Discard(),
		MatchID:              "match-7",
		PollInterval:         time.Millisecond,
		MaxConsecutiveErrors: 3,
		ReconnectAttempts:    2,
		ReconnectDelay:       time.Millisecond,
	})
	require.NoError(t, err)
	return c
}

type fakeSource struct {
	mu      sync.Mutex
	payload ActivePlayer
	err     error
	calls   int
}

func (s *fakeSource) ActivePlayer(context.Context) (ActivePlayer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.payload, nil
}

func (s *fakeSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeStore struct {
	mu        sync.Mutex
	snapshots []PlayerSnapshot
	pings     int
	upsertErr error
	pingErr   error
	onUpsert  func(n int)
	onPing    func(n int)
}

func (s *fakeStore) Upsert(_ context.Context, snapshot PlayerSnapshot) (bool, error) {
	s.mu.Lock()
	if s.upsertErr != nil {
		s.mu.Unlock()
		return false, s.upsertErr
	}
	s.snapshots = append(s.snapshots, snapshot)
	n := len(s.snapshots)
	hook := s.onUpsert
	s.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return n == 1, nil
}

func (s *fakeStore) Ping(context.Context) error {
	s.mu.Lock()
	s.pings++
	n := s.pings
	hook := s.onPing
	err := s.pingErr
	s.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return err
}

func (s *fakeStore) Snapshots() []PlayerSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PlayerSnapshot(nil), s.snapshots...)
}

func (s *fakeStore) Pings() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pings
}
