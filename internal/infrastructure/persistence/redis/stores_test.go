package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stormlight-clan/stormlight-hub/internal/domain/clan"
	"github.com/stormlight-clan/stormlight-hub/internal/domain/player"
	"github.com/stormlight-clan/stormlight-hub/internal/domain/shared"
)

var t0 = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewCacheFromClient(client, "test:"), mr
}

func TestNewCache_ConnectsByURL(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := DefaultConfig()
	cfg.URL = "redis://" + mr.Addr() + "/0"

	cache, err := NewCache(context.Background(), cfg)
	require.NoError(t, err)
	defer cache.Close()

	assert.NoError(t, cache.Ping(context.Background()))
}

func TestNewCache_BadURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URL = "://nope"

	_, err := NewCache(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrCacheConnection)
}

func TestStatsCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t)
	sc := NewStatsCache(cache, time.Hour)
	sc.now = func() time.Time { return t0 }

	stats := player.NewPlayerStats("Le Me", map[string]player.SkillRecord{
		"overall": player.NewSkillRecord(12, 2500, 123456789),
	}, t0)
	require.NoError(t, sc.Put(ctx, stats))

	assert.True(t, mr.Exists("test:stats:le me"))

	got, ok, err := sc.Get(ctx, "LE ME")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Le Me", got.Username)
	assert.Len(t, got.Skills, 28)
	require.NotNil(t, got.Skills["overall"].Rank)
	assert.EqualValues(t, 12, *got.Skills["overall"].Rank)
	assert.Nil(t, got.Skills["attack"].Rank)
	assert.True(t, got.LastUpdated.Equal(t0))

	n, err := sc.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStatsCache_Expiry(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t)
	now := t0
	sc := NewStatsCache(cache, time.Minute)
	sc.now = func() time.Time { return now }

	require.NoError(t, sc.Put(ctx, player.NewPlayerStats("alice", nil, t0)))

	mr.FastForward(2 * time.Minute)
	now = now.Add(2 * time.Minute)

	_, ok, err := sc.Get(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := sc.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStatsCache_CorruptEntry(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t)
	sc := NewStatsCache(cache, 0)

	require.NoError(t, mr.Set("test:stats:alice", "{not json"))

	_, ok, err := sc.Get(ctx, "alice")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrCacheSerialization)
}

func TestDiscoveryLedger(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)
	l := NewDiscoveryLedger(cache)

	require.NoError(t, l.Record(ctx, player.DiscoveryRecord{Username: "Bob", DiscoveredAt: t0.Add(time.Second), Source: player.SourceSearch}))
	require.NoError(t, l.Record(ctx, player.DiscoveryRecord{Username: "alice", DiscoveredAt: t0, Source: player.SourceRanking}))
	require.NoError(t, l.Record(ctx, player.DiscoveryRecord{Username: "ALICE", DiscoveredAt: t0.Add(time.Minute), Source: player.SourceSearch}))

	recs, err := l.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Bob", recs[0].Username)
	assert.Equal(t, "ALICE", recs[1].Username)
	assert.Equal(t, player.SourceSearch, recs[1].Source)

	n, err := l.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDiscoveryLedger_RejectsUnknownSource(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)
	l := NewDiscoveryLedger(cache)

	err := l.Record(ctx, player.DiscoveryRecord{Username: "alice", DiscoveredAt: t0})
	assert.True(t, shared.IsInvalidInput(err))

	n, err := l.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRosterStore(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)
	s := NewRosterStore(cache)

	_, ok, err := s.Get(ctx, "Stormlight")
	require.NoError(t, err)
	assert.False(t, ok)

	members := []clan.RosterMember{
		{Username: "alice", RankLabel: "Owner", TotalXP: 10, KillCount: 1, LastUpdated: t0},
	}
	require.NoError(t, s.Replace(ctx, "Stormlight", members))

	got, ok, err := s.Get(ctx, " stormlight ")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "Owner", got[0].RankLabel)

	require.NoError(t, s.Replace(ctx, "Stormlight", nil))
	got, ok, _ = s.Get(ctx, "Stormlight")
	assert.True(t, ok)
	assert.Empty(t, got)
}
