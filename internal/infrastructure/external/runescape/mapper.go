package runescape

import (
	"time"

	"github.com/stormlight-clan/stormlight-hub/internal/domain/clan"
	"github.com/stormlight-clan/stormlight-hub/internal/domain/player"
	"github.com/stormlight-clan/stormlight-hub/internal/domain/skill"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAPPER - DTO to domain transformations
// ══════════════════════════════════════════════════════════════════════════════

// SkillRecords maps parsed skill values onto catalog names. Skills the payload
// did not mention are left out; player.NewPlayerStats fills them in.
func SkillRecords(dto StatsDTO) map[string]player.SkillRecord {
	out := make(map[string]player.SkillRecord, len(dto.Values))
	for _, v := range dto.Values {
		s, ok := skill.ByTableID(v.ID)
		if !ok {
			continue
		}
		out[s.Name] = player.NewSkillRecord(v.Rank, v.Level, v.XP)
	}
	return out
}

// RosterMembers stamps every parsed line with fetchedAt.
func RosterMembers(dto RosterDTO, fetchedAt time.Time) []clan.RosterMember {
	out := make([]clan.RosterMember, 0, len(dto.Lines))
	for _, l := range dto.Lines {
		out = append(out, clan.RosterMember{
			Username:    l.Username,
			RankLabel:   l.RankLabel,
			TotalXP:     l.TotalXP,
			KillCount:   l.KillCount,
			LastUpdated: fetchedAt,
		})
	}
	return out
}

// ActivityEvents converts a member's feed into events, preserving feed order.
// Entries with an unparseable date are dropped and counted.
func ActivityEvents(username string, dtos []ActivityDTO) (events []clan.ActivityEvent, unparseable int) {
	events = make([]clan.ActivityEvent, 0, len(dtos))
	for _, d := range dtos {
		ts, err := ParseActivityDate(d.Date)
		if err != nil {
			unparseable++
			continue
		}
		events = append(events, clan.ActivityEvent{
			Username:  username,
			Text:      d.Text,
			Details:   d.Details,
			Date:      d.Date,
			Timestamp: ts.Unix(),
		})
	}
	return events, unparseable
}
