package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stormlight-clan/stormlight-hub/internal/domain/clan"
	"github.com/stormlight-clan/stormlight-hub/internal/domain/player"
)

// noExpiryScore is the index score for entries stored without a TTL.
const noExpiryScore = float64(1 << 62)

// ══════════════════════════════════════════════════════════════════════════════
// STATS CACHE
// ══════════════════════════════════════════════════════════════════════════════

// StatsCache implements player.StatsCache. Each snapshot is a single JSON value
// written with SET, so readers see either the old or the new value.
type StatsCache struct {
	cache *Cache
	ttl   time.Duration
	now   func() time.Time
}

// NewStatsCache creates a StatsCache whose entries expire after ttl (0 = never).
func NewStatsCache(cache *Cache, ttl time.Duration) *StatsCache {
	return &StatsCache{cache: cache, ttl: ttl, now: time.Now}
}

// Put stores or replaces the snapshot for stats.Username.
func (s *StatsCache) Put(ctx context.Context, stats player.PlayerStats) error {
	key := stats.Key()

	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}

	score := noExpiryScore
	if s.ttl > 0 {
		score = float64(s.now().Add(s.ttl).UnixMilli())
	}

	pipe := s.cache.client.TxPipeline()
	pipe.Set(ctx, s.cache.key("stats", key), data, s.ttl)
	pipe.ZAdd(ctx, s.cache.key("stats-index"), redis.Z{Score: score, Member: key})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("put stats %s: %w", key, err)
	}
	return nil
}

// Get returns the snapshot for username.
func (s *StatsCache) Get(ctx context.Context, username string) (player.PlayerStats, bool, error) {
	var stats player.PlayerStats
	err := s.cache.getJSON(ctx, s.cache.key("stats", player.Key(username)), &stats)
	if errors.Is(err, ErrCacheMiss) {
		return player.PlayerStats{}, false, nil
	}
	if err != nil {
		return player.PlayerStats{}, false, fmt.Errorf("get stats %s: %w", username, err)
	}
	return stats, true, nil
}

// Len returns the number of unexpired cached players.
func (s *StatsCache) Len(ctx context.Context) (int, error) {
	index := s.cache.key("stats-index")
	cutoff := strconv.FormatInt(s.now().UnixMilli(), 10)

	pipe := s.cache.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, index, "-inf", "("+cutoff)
	card := pipe.ZCard(ctx, index)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("count stats: %w", err)
	}
	return int(card.Val()), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DISCOVERY LEDGER
// ══════════════════════════════════════════════════════════════════════════════

// DiscoveryLedger implements player.DiscoveryLedger on a single hash.
type DiscoveryLedger struct {
	cache *Cache
}

// NewDiscoveryLedger creates a DiscoveryLedger.
func NewDiscoveryLedger(cache *Cache) *DiscoveryLedger {
	return &DiscoveryLedger{cache: cache}
}

// Record inserts or overwrites the entry for rec.Username.
func (l *DiscoveryLedger) Record(ctx context.Context, rec player.DiscoveryRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	rec.Username = player.DisplayName(rec.Username)

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}

	if err := l.cache.client.HSet(ctx, l.cache.key("discovery"), rec.Key(), data).Err(); err != nil {
		return fmt.Errorf("record discovery %s: %w", rec.Username, err)
	}
	return nil
}

// List returns all records, oldest first. Undecodable entries are skipped.
func (l *DiscoveryLedger) List(ctx context.Context) ([]player.DiscoveryRecord, error) {
	raw, err := l.cache.client.HGetAll(ctx, l.cache.key("discovery")).Result()
	if err != nil {
		return nil, fmt.Errorf("list discovery: %w", err)
	}

	out := make([]player.DiscoveryRecord, 0, len(raw))
	for _, v := range raw {
		var rec player.DiscoveryRecord
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}

	player.SortRecords(out)
	return out, nil
}

// Len returns the number of recorded usernames.
func (l *DiscoveryLedger) Len(ctx context.Context) (int, error) {
	n, err := l.cache.client.HLen(ctx, l.cache.key("discovery")).Result()
	if err != nil {
		return 0, fmt.Errorf("count discovery: %w", err)
	}
	return int(n), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ROSTER STORE
// ══════════════════════════════════════════════════════════════════════════════

// RosterStore implements clan.RosterStore.
type RosterStore struct {
	cache *Cache
}

// NewRosterStore creates a RosterStore.
func NewRosterStore(cache *Cache) *RosterStore {
	return &RosterStore{cache: cache}
}

// Replace swaps the stored roster of clanName for members.
func (s *RosterStore) Replace(ctx context.Context, clanName string, members []clan.RosterMember) error {
	if members == nil {
		members = []clan.RosterMember{}
	}
	if err := s.cache.setJSON(ctx, s.rosterKey(clanName), members, 0); err != nil {
		return fmt.Errorf("replace roster %s: %w", clanName, err)
	}
	return nil
}

// Get returns the stored roster of clanName.
func (s *RosterStore) Get(ctx context.Context, clanName string) ([]clan.RosterMember, bool, error) {
	var members []clan.RosterMember
	err := s.cache.getJSON(ctx, s.rosterKey(clanName), &members)
	if errors.Is(err, ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get roster %s: %w", clanName, err)
	}
	return members, true, nil
}

func (s *RosterStore) rosterKey(clanName string) string {
	return s.cache.key("roster", strings.ToLower(strings.TrimSpace(clanName)))
}
