// Package player contains the player statistics model: per-skill records, the
// full stats snapshot, discovery records, and the storage contracts for them.
package player

import (
	"maps"
	"time"

	"github.com/stormlight-clan/stormlight-hub/internal/domain/shared"
	"github.com/stormlight-clan/stormlight-hub/internal/domain/skill"
)

// ══════════════════════════════════════════════════════════════════════════════
// SKILL RECORD
// ══════════════════════════════════════════════════════════════════════════════

// SkillRecord is one player's standing in one skill.
type SkillRecord struct {
	// Rank is nil when the player is unranked in this skill.
	Rank *int64 `json:"rank"`

	// Level is at least 1.
	Level int `json:"level"`

	// XP is never negative.
	XP int64 `json:"xp"`
}

// Placeholder is the record used for skills the source omitted or marked unranked.
func Placeholder() SkillRecord {
	return SkillRecord{Rank: nil, Level: 1, XP: 0}
}

// NewSkillRecord normalizes raw source values. The source uses -1 (or any
// negative number) for "no value"; those become rank=nil, level=1, xp=0.
func NewSkillRecord(rank int64, level int, xp int64) SkillRecord {
	rec := Placeholder()
	if rank > 0 {
		r := rank
		rec.Rank = &r
	}
	if level >= 1 {
		rec.Level = level
	}
	if xp > 0 {
		rec.XP = xp
	}
	return rec
}

// ══════════════════════════════════════════════════════════════════════════════
// PLAYER STATS
// ══════════════════════════════════════════════════════════════════════════════

// PlayerStats is the last fetched snapshot of a player's full skill table.
// A value is replaced wholesale on every successful fetch; it is never merged
// with a previous snapshot.
type PlayerStats struct {
	Username    string                 `json:"username"`
	Skills      map[string]SkillRecord `json:"stats"`
	LastUpdated time.Time              `json:"last_updated"`
}

// NewPlayerStats builds a snapshot containing every catalog skill. Skills that are
// missing from parsed get the placeholder; names outside the catalog are dropped.
func NewPlayerStats(username string, parsed map[string]SkillRecord, fetchedAt time.Time) PlayerStats {
	skills := make(map[string]SkillRecord, skill.Count())
	for _, name := range skill.Names() {
		if rec, ok := parsed[name]; ok {
			skills[name] = rec
			continue
		}
		skills[name] = Placeholder()
	}

	return PlayerStats{
		Username:    DisplayName(username),
		Skills:      skills,
		LastUpdated: fetchedAt,
	}
}

// Key returns the normalized cache key for this player.
func (p PlayerStats) Key() string {
	return Key(p.Username)
}

// Has reports whether the snapshot contains the named skill.
func (p PlayerStats) Has(skillName string) bool {
	_, ok := p.Skills[skillName]
	return ok
}

// XP returns the experience for a skill, or 0 when absent.
func (p PlayerStats) XP(skillName string) int64 {
	return p.Skills[skillName].XP
}

// Clone returns a deep copy so callers can never mutate a cached value.
func (p PlayerStats) Clone() PlayerStats {
	out := p
	out.Skills = maps.Clone(p.Skills)
	for name, rec := range out.Skills {
		if rec.Rank != nil {
			r := *rec.Rank
			rec.Rank = &r
			out.Skills[name] = rec
		}
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// DISCOVERY
// ══════════════════════════════════════════════════════════════════════════════

// Source says how a player was discovered.
type Source string

const (
	SourceRanking Source = "ranking"
	SourceSearch  Source = "search"
)

// IsValid reports whether s is a known source.
func (s Source) IsValid() bool {
	return s == SourceRanking || s == SourceSearch
}

// DiscoveryRecord notes that a username was looked up at some point. Records are
// overwritten per username and never deleted. A record may exist without stats if
// the lookup failed.
type DiscoveryRecord struct {
	Username     string    `json:"username"`
	DiscoveredAt time.Time `json:"discovered_at"`
	Source       Source    `json:"source"`
}

// Key returns the normalized ledger key for this record.
func (d DiscoveryRecord) Key() string {
	return Key(d.Username)
}

// Validate rejects records a ledger must not store.
func (d DiscoveryRecord) Validate() error {
	if d.Key() == "" {
		return shared.NewDomainError("player", "DiscoveryRecord", shared.ErrInvalidInput, "empty username")
	}
	if !d.Source.IsValid() {
		return shared.NewDomainError("player", "DiscoveryRecord", shared.ErrInvalidInput, "unknown source "+string(d.Source))
	}
	return nil
}
