// Package clan contains the clan roster and member activity model.
package clan

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROSTER
// ══════════════════════════════════════════════════════════════════════════════

// RosterMember is one line of the clan member list.
type RosterMember struct {
	Username    string    `json:"username"`
	RankLabel   string    `json:"rank"`
	TotalXP     int64     `json:"total_xp"`
	KillCount   int64     `json:"kills"`
	LastUpdated time.Time `json:"last_updated"`
}

// UnknownRankPriority sorts unrecognized rank labels after every known one.
const UnknownRankPriority = 999

var rankPriorities = map[string]int{
	"owner":        1,
	"deputy owner": 2,
	"overseer":     3,
	"coordinator":  4,
	"organiser":    5,
	"admin":        6,
	"general":      7,
	"captain":      8,
	"lieutenant":   9,
	"sergeant":     10,
	"corporal":     11,
	"recruit":      12,
}

// RankPriority returns the sort priority of a clan rank label (Owner=1 … Recruit=12).
func RankPriority(label string) int {
	if p, ok := rankPriorities[strings.ToLower(strings.TrimSpace(label))]; ok {
		return p
	}
	return UnknownRankPriority
}

// SortBy selects a roster ordering.
type SortBy string

const (
	SortByRank SortBy = "rank"
	SortByXP   SortBy = "xp"
)

// ParseSortBy maps user input to a SortBy, defaulting to rank.
func ParseSortBy(s string) SortBy {
	if SortBy(strings.ToLower(strings.TrimSpace(s))) == SortByXP {
		return SortByXP
	}
	return SortByRank
}

// FilterMembers keeps members whose username contains search, ignoring case.
// An empty search keeps everyone. The input slice is not modified.
func FilterMembers(members []RosterMember, search string) []RosterMember {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]RosterMember, 0, len(members))
	for _, m := range members {
		if needle == "" || strings.Contains(strings.ToLower(m.Username), needle) {
			out = append(out, m)
		}
	}
	return out
}

// SortMembers orders members in place. xp sorts by total XP descending; rank sorts
// by rank priority, then username. Both are stable.
func SortMembers(members []RosterMember, by SortBy) {
	if by == SortByXP {
		slices.SortStableFunc(members, func(a, b RosterMember) int {
			return cmp.Compare(b.TotalXP, a.TotalXP)
		})
		return
	}

	slices.SortStableFunc(members, func(a, b RosterMember) int {
		if c := cmp.Compare(RankPriority(a.RankLabel), RankPriority(b.RankLabel)); c != 0 {
			return c
		}
		return cmp.Compare(strings.ToLower(a.Username), strings.ToLower(b.Username))
	})
}

// RosterStore keeps the last fetched roster per clan. Replace swaps the whole list.
type RosterStore interface {
	Replace(ctx context.Context, clanName string, members []RosterMember) error
	Get(ctx context.Context, clanName string) ([]RosterMember, bool, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVITY
// ══════════════════════════════════════════════════════════════════════════════

// ActivityEvent is one entry of a member's recent activity feed.
type ActivityEvent struct {
	Username  string `json:"username"`
	Text      string `json:"text"`
	Details   string `json:"details"`
	Date      string `json:"date"`
	Timestamp int64  `json:"timestamp"`
}

// SortEvents orders events newest first; equal timestamps keep input order.
func SortEvents(events []ActivityEvent) {
	slices.SortStableFunc(events, func(a, b ActivityEvent) int {
		return cmp.Compare(b.Timestamp, a.Timestamp)
	})
}
