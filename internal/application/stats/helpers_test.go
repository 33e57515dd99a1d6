package stats

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stormlight-clan/stormlight-hub/internal/domain/clan"
	"github.com/stormlight-clan/stormlight-hub/internal/domain/player"
	"github.com/stormlight-clan/stormlight-hub/internal/domain/shared"
	"github.com/stormlight-clan/stormlight-hub/internal/infrastructure/persistence/memory"
	"github.com/stormlight-clan/stormlight-hub/pkg/logger"
)

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

// fakeStats serves attack XP per player key and counts calls.
type fakeStats struct {
	mu    sync.Mutex
	xp    map[string]int64
	errs  map[string]error
	calls map[string]int
}

func newFakeStats(xp map[string]int64) *fakeStats {
	return &fakeStats{xp: xp, errs: map[string]error{}, calls: map[string]int{}}
}

func (f *fakeStats) GetStats(_ context.Context, username string) (map[string]player.SkillRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	k := player.Key(username)
	f.calls[k]++
	if err, ok := f.errs[k]; ok {
		return nil, err
	}
	xp, ok := f.xp[k]
	if !ok {
		return nil, shared.NewDomainError("runescape", "stats", shared.ErrNoData, "not found")
	}
	return map[string]player.SkillRecord{
		"overall": player.NewSkillRecord(1, 100, xp*10),
		"attack":  player.NewSkillRecord(1, 99, xp),
	}, nil
}

func (f *fakeStats) callsFor(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[player.Key(name)]
}

type fakeRanking struct {
	names   []string
	err     error
	tableID int
	size    int
}

func (f *fakeRanking) GetRanking(_ context.Context, tableID, size int) ([]string, error) {
	f.tableID, f.size = tableID, size
	return f.names, f.err
}

type fakeRoster struct {
	members []clan.RosterMember
	err     error
}

func (f *fakeRoster) Fetch(context.Context) ([]clan.RosterMember, error) {
	return f.members, f.err
}

// failingCache rejects every write.
type failingCache struct{ *memory.StatsCache }

func (failingCache) Put(context.Context, player.PlayerStats) error {
	return errors.New("cache down")
}

type fixture struct {
	source   *fakeStats
	ranking  *fakeRanking
	cache    *memory.StatsCache
	ledger   *memory.DiscoveryLedger
	fetcher  *Fetcher
	hiscores *Hiscores
}

func newFixture(xp map[string]int64, feed []string) *fixture {
	f := &fixture{
		source:  newFakeStats(xp),
		ranking: &fakeRanking{names: feed},
		cache:   memory.NewStatsCache(),
		ledger:  memory.NewDiscoveryLedger(),
	}

	log := logger.Discard()
	f.fetcher = NewFetcher(f.source, f.cache, log, WithFetcherClock(clock))
	rf := NewRankingFetcher(f.ranking, f.fetcher, f.ledger, log, WithRankingClock(clock))
	f.hiscores = NewHiscores(rf, f.fetcher, f.ledger, log, WithHiscoresClock(clock))
	return f
}

func (f *fixture) discover(name string, at time.Time) {
	_ = f.ledger.Record(context.Background(), player.DiscoveryRecord{
		Username:     name,
		DiscoveredAt: at,
		Source:       player.SourceSearch,
	})
}

func usernames(players []player.PlayerStats) []string {
	out := make([]string, len(players))
	for i, p := range players {
		out[i] = p.Username
	}
	return out
}
