package player

import "context"

// StatsCache stores the last fetched snapshot per player, keyed by Key(username).
// It is both a cache and a ledger of players seen with stats.
//
// Implementations replace entries atomically as whole values; readers never see
// a partially written snapshot. Concurrent writers to the same key are
// last-write-wins with no ordering guarantee.
type StatsCache interface {
	// Put stores or replaces the snapshot for stats.Username.
	Put(ctx context.Context, stats PlayerStats) error

	// Get returns the snapshot for username. ok is false when absent.
	Get(ctx context.Context, username string) (stats PlayerStats, ok bool, err error)

	// Len returns the number of cached players.
	Len(ctx context.Context) (int, error)
}

// DiscoveryLedger remembers every username looked up outside the ranking feed
// (and the ranking lookups themselves). Entries are never deleted.
type DiscoveryLedger interface {
	// Record inserts or overwrites the entry for rec.Username.
	Record(ctx context.Context, rec DiscoveryRecord) error

	// List returns all records ordered by DiscoveredAt ascending, ties by key.
	List(ctx context.Context) ([]DiscoveryRecord, error)

	// Len returns the number of recorded usernames.
	Len(ctx context.Context) (int, error)
}
