// Package memory implements the stats cache, discovery ledger and roster store
// in process memory. Contents live as long as the process.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/stormlight-clan/stormlight-hub/internal/domain/clan"
	"github.com/stormlight-clan/stormlight-hub/internal/domain/player"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATS CACHE
// ══════════════════════════════════════════════════════════════════════════════

// StatsCache implements player.StatsCache. Values are cloned on the way in and
// on the way out, so a stored snapshot is only ever replaced whole.
type StatsCache struct {
	mu    sync.RWMutex
	stats map[string]player.PlayerStats
}

// NewStatsCache creates an empty StatsCache.
func NewStatsCache() *StatsCache {
	return &StatsCache{stats: make(map[string]player.PlayerStats)}
}

// Put stores or replaces the snapshot for stats.Username.
func (c *StatsCache) Put(_ context.Context, stats player.PlayerStats) error {
	v := stats.Clone()

	c.mu.Lock()
	c.stats[v.Key()] = v
	c.mu.Unlock()
	return nil
}

// Get returns the snapshot for username.
func (c *StatsCache) Get(_ context.Context, username string) (player.PlayerStats, bool, error) {
	c.mu.RLock()
	v, ok := c.stats[player.Key(username)]
	c.mu.RUnlock()

	if !ok {
		return player.PlayerStats{}, false, nil
	}
	return v.Clone(), true, nil
}

// Len returns the number of cached players.
func (c *StatsCache) Len(_ context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.stats), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DISCOVERY LEDGER
// ══════════════════════════════════════════════════════════════════════════════

// DiscoveryLedger implements player.DiscoveryLedger.
type DiscoveryLedger struct {
	mu      sync.RWMutex
	records map[string]player.DiscoveryRecord
}

// NewDiscoveryLedger creates an empty DiscoveryLedger.
func NewDiscoveryLedger() *DiscoveryLedger {
	return &DiscoveryLedger{records: make(map[string]player.DiscoveryRecord)}
}

// Record inserts or overwrites the entry for rec.Username.
func (l *DiscoveryLedger) Record(_ context.Context, rec player.DiscoveryRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	rec.Username = player.DisplayName(rec.Username)

	l.mu.Lock()
	l.records[rec.Key()] = rec
	l.mu.Unlock()
	return nil
}

// List returns a snapshot of all records, oldest first.
func (l *DiscoveryLedger) List(_ context.Context) ([]player.DiscoveryRecord, error) {
	l.mu.RLock()
	out := make([]player.DiscoveryRecord, 0, len(l.records))
	for _, rec := range l.records {
		out = append(out, rec)
	}
	l.mu.RUnlock()

	player.SortRecords(out)
	return out, nil
}

// Len returns the number of recorded usernames.
func (l *DiscoveryLedger) Len(_ context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ROSTER STORE
// ══════════════════════════════════════════════════════════════════════════════

// RosterStore implements clan.RosterStore.
type RosterStore struct {
	mu      sync.RWMutex
	rosters map[string][]clan.RosterMember
}

// NewRosterStore creates an empty RosterStore.
func NewRosterStore() *RosterStore {
	return &RosterStore{rosters: make(map[string][]clan.RosterMember)}
}

// Replace swaps the stored roster of clanName for members.
func (s *RosterStore) Replace(_ context.Context, clanName string, members []clan.RosterMember) error {
	v := slices.Clone(members)

	s.mu.Lock()
	s.rosters[rosterKey(clanName)] = v
	s.mu.Unlock()
	return nil
}

// Get returns a copy of the stored roster of clanName.
func (s *RosterStore) Get(_ context.Context, clanName string) ([]clan.RosterMember, bool, error) {
	s.mu.RLock()
	v, ok := s.rosters[rosterKey(clanName)]
	s.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

func rosterKey(clanName string) string {
	return strings.ToLower(strings.TrimSpace(clanName))
}
