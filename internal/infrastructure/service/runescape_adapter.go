package service

import (
	"context"
	"time"

	"github.com/stormlight-clan/stormlight-hub/internal/domain/clan"
	"github.com/stormlight-clan/stormlight-hub/internal/domain/player"
	"github.com/stormlight-clan/stormlight-hub/internal/infrastructure/external/runescape"
)

// RuneScapeAdapter adapts runescape.Client to the application source interfaces:
// stats.StatsSource, stats.RankingSource, roster.RosterSource and
// roster.ActivitySource.
type RuneScapeAdapter struct {
	client *runescape.Client
}

func NewRuneScapeAdapter(client *runescape.Client) *RuneScapeAdapter {
	return &RuneScapeAdapter{client: client}
}

func (a *RuneScapeAdapter) GetStats(ctx context.Context, username string) (map[string]player.SkillRecord, error) {
	dto, err := a.client.GetStats(ctx, username)
	if err != nil {
		return nil, err
	}
	return runescape.SkillRecords(dto), nil
}

func (a *RuneScapeAdapter) GetRanking(ctx context.Context, tableID, size int) ([]string, error) {
	return a.client.GetRanking(ctx, tableID, size)
}

// GetRoster leaves LastUpdated zero; the roster service stamps it.
func (a *RuneScapeAdapter) GetRoster(ctx context.Context, clanName string) ([]clan.RosterMember, error) {
	dto, err := a.client.GetRoster(ctx, clanName)
	if err != nil {
		return nil, err
	}
	return runescape.RosterMembers(dto, time.Time{}), nil
}

func (a *RuneScapeAdapter) GetActivities(ctx context.Context, username string) ([]clan.ActivityEvent, int, error) {
	dtos, err := a.client.GetActivities(ctx, username)
	if err != nil {
		return nil, 0, err
	}
	events, unparseable := runescape.ActivityEvents(player.DisplayName(username), dtos)
	return events, unparseable, nil
}
