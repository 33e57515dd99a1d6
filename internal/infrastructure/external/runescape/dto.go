// Package runescape implements the client for the game's public web services:
// the hiscore lite endpoint, the skill ranking feed, the clan member list and
// the RuneMetrics activity profile.
package runescape

// ══════════════════════════════════════════════════════════════════════════════
// STATS DTOs
// ══════════════════════════════════════════════════════════════════════════════

// SkillValueDTO is one skill row from the hiscore service. ID is the catalog
// index; -1 in any numeric field means "no value".
type SkillValueDTO struct {
	ID    int   `json:"id"`
	Rank  int64 `json:"rank"`
	Level int   `json:"level"`
	XP    int64 `json:"xp"`
}

// statsJSONResponse is the JSON variant of the hiscore payload.
type statsJSONResponse struct {
	SkillValues []SkillValueDTO `json:"skillvalues"`
}

// StatsDTO is a parsed hiscore payload.
type StatsDTO struct {
	Values []SkillValueDTO

	// Skipped counts rows that could not be parsed. The skills they would have
	// described end up as placeholders.
	Skipped int
}

// ══════════════════════════════════════════════════════════════════════════════
// RANKING DTOs
// ══════════════════════════════════════════════════════════════════════════════

// RankingEntryDTO is one row of the ranking feed. Only the name is used.
type RankingEntryDTO struct {
	Name  string `json:"name"`
	Score string `json:"score,omitempty"`
	Rank  string `json:"rank,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// CLAN DTOs
// ══════════════════════════════════════════════════════════════════════════════

// RosterLineDTO is one parsed line of the clan member CSV.
type RosterLineDTO struct {
	Username  string
	RankLabel string
	TotalXP   int64
	KillCount int64
}

// RosterDTO is the parsed member list.
type RosterDTO struct {
	Lines   []RosterLineDTO
	Skipped int
}

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVITY DTOs
// ══════════════════════════════════════════════════════════════════════════════

// ActivityDTO is one entry of a RuneMetrics profile activity feed.
type ActivityDTO struct {
	Date    string `json:"date"`
	Text    string `json:"text"`
	Details string `json:"details"`
}

// profileResponse is the RuneMetrics profile payload. Error is set instead of
// activities for private or unknown profiles.
type profileResponse struct {
	Name       string        `json:"name,omitempty"`
	Error      string        `json:"error,omitempty"`
	Activities []ActivityDTO `json:"activities"`
}

// Known RuneMetrics profile error codes.
const (
	ProfilePrivate   = "PROFILE_PRIVATE"
	ProfileNotFound  = "NO_PROFILE"
	ProfileNotMember = "NOT_A_MEMBER"
)
