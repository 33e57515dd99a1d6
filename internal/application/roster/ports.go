// Package roster serves the clan member list and the clan-wide activity feed.
package roster

import (
	"context"

	"github.com/stormlight-clan/stormlight-hub/internal/domain/clan"
)

// RosterSource returns the current member list of a clan.
type RosterSource interface {
	GetRoster(ctx context.Context, clanName string) ([]clan.RosterMember, error)
}

// ActivitySource returns a member's recent activity. Entries whose date could not
// be read are counted in unparseable and left out of events.
type ActivitySource interface {
	GetActivities(ctx context.Context, username string) (events []clan.ActivityEvent, unparseable int, err error)
}
