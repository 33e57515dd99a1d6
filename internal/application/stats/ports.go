// Package stats contains the player statistics use cases: fetching one player's
// skill table, resolving the ranking feed, and merging the ranking with every
// player discovered through search into a sorted, paginated hiscore view.
package stats

import (
	"context"

	"github.com/stormlight-clan/stormlight-hub/internal/domain/clan"
	"github.com/stormlight-clan/stormlight-hub/internal/domain/player"
)

// StatsSource fetches one player's skill table from the hiscore service. Skills
// the source omitted are simply absent from the map.
type StatsSource interface {
	GetStats(ctx context.Context, username string) (map[string]player.SkillRecord, error)
}

// RankingSource fetches the ordered top-N usernames of a hiscore table.
type RankingSource interface {
	GetRanking(ctx context.Context, tableID, size int) ([]string, error)
}

// RosterLister returns the current clan roster.
type RosterLister interface {
	Fetch(ctx context.Context) ([]clan.RosterMember, error)
}
