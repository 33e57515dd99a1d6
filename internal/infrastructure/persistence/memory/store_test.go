package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stormlight-clan/stormlight-hub/internal/domain/clan"
	"github.com/stormlight-clan/stormlight-hub/internal/domain/player"
	"github.com/stormlight-clan/stormlight-hub/internal/domain/shared"
)

var t0 = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func statsFor(name string, overallXP int64) player.PlayerStats {
	return player.NewPlayerStats(name, map[string]player.SkillRecord{
		"overall": player.NewSkillRecord(1, 2000, overallXP),
	}, t0)
}

func TestStatsCache_PutGetByKey(t *testing.T) {
	ctx := context.Background()
	c := NewStatsCache()

	require.NoError(t, c.Put(ctx, statsFor("Le Me", 100)))

	got, ok, err := c.Get(ctx, "  le ME ")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Le Me", got.Username)
	assert.EqualValues(t, 100, got.XP("overall"))

	_, ok, err = c.Get(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStatsCache_ReplacesWholeAndIsolatesCallers(t *testing.T) {
	ctx := context.Background()
	c := NewStatsCache()

	s := statsFor("alice", 100)
	require.NoError(t, c.Put(ctx, s))

	// mutating the caller's copy must not reach the cache
	s.Skills["overall"] = player.Placeholder()
	got, _, _ := c.Get(ctx, "alice")
	assert.EqualValues(t, 100, got.XP("overall"))

	require.NoError(t, c.Put(ctx, statsFor("ALICE", 500)))
	got, _, _ = c.Get(ctx, "alice")
	assert.EqualValues(t, 500, got.XP("overall"))

	n, _ := c.Len(ctx)
	assert.Equal(t, 1, n)
}

func TestStatsCache_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewStatsCache()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = c.Put(ctx, statsFor(fmt.Sprintf("p%d", i%10), int64(i)))
		}(i)
		go func(i int) {
			defer wg.Done()
			if got, ok, _ := c.Get(ctx, fmt.Sprintf("p%d", i%10)); ok {
				assert.Len(t, got.Skills, 28)
			}
		}(i)
	}
	wg.Wait()

	n, _ := c.Len(ctx)
	assert.Equal(t, 10, n)
}

func TestDiscoveryLedger_OverwriteAndOrder(t *testing.T) {
	ctx := context.Background()
	l := NewDiscoveryLedger()

	require.NoError(t, l.Record(ctx, player.DiscoveryRecord{Username: "Carol", DiscoveredAt: t0.Add(time.Minute), Source: player.SourceSearch}))
	require.NoError(t, l.Record(ctx, player.DiscoveryRecord{Username: "bob", DiscoveredAt: t0, Source: player.SourceRanking}))
	require.NoError(t, l.Record(ctx, player.DiscoveryRecord{Username: "Alice", DiscoveredAt: t0, Source: player.SourceRanking}))
	require.NoError(t, l.Record(ctx, player.DiscoveryRecord{Username: "BOB", DiscoveredAt: t0.Add(2 * time.Minute), Source: player.SourceSearch}))

	recs, err := l.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "Alice", recs[0].Username)
	assert.Equal(t, "Carol", recs[1].Username)
	assert.Equal(t, "BOB", recs[2].Username)
	assert.Equal(t, player.SourceSearch, recs[2].Source)

	n, _ := l.Len(ctx)
	assert.Equal(t, 3, n)
}

func TestDiscoveryLedger_RejectsUnknownSource(t *testing.T) {
	ctx := context.Background()
	l := NewDiscoveryLedger()

	err := l.Record(ctx, player.DiscoveryRecord{Username: "alice", DiscoveredAt: t0, Source: "import"})
	assert.True(t, shared.IsInvalidInput(err))

	n, _ := l.Len(ctx)
	assert.Zero(t, n)
}

func TestRosterStore_Replace(t *testing.T) {
	ctx := context.Background()
	s := NewRosterStore()

	_, ok, err := s.Get(ctx, "Stormlight")
	require.NoError(t, err)
	assert.False(t, ok)

	members := []clan.RosterMember{{Username: "alice", RankLabel: "Owner"}, {Username: "bob", RankLabel: "Recruit"}}
	require.NoError(t, s.Replace(ctx, "Stormlight", members))
	members[0].Username = "mallory"

	got, ok, _ := s.Get(ctx, "stormlight")
	require.True(t, ok)
	assert.Equal(t, "alice", got[0].Username)

	require.NoError(t, s.Replace(ctx, "Stormlight", []clan.RosterMember{{Username: "carol"}}))
	got, _, _ = s.Get(ctx, "Stormlight")
	assert.Len(t, got, 1)
}
