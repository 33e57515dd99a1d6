package runescape

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/stormlight-clan/stormlight-hub/internal/domain/player"
	"github.com/stormlight-clan/stormlight-hub/internal/domain/shared"
	"github.com/stormlight-clan/stormlight-hub/internal/domain/skill"
)

// ActivityDateLayout is the RuneMetrics activity timestamp format. Times are UTC.
const ActivityDateLayout = "02-Jan-2006 15:04"

const domain = "runescape"

// ══════════════════════════════════════════════════════════════════════════════
// STATS
// ══════════════════════════════════════════════════════════════════════════════

// ParseStats decodes a hiscore payload in either the lite line format
// ("rank,level,xp" per skill, catalog order) or the JSON skillvalues format.
func ParseStats(body []byte) (StatsDTO, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return StatsDTO{}, shared.NewDomainError(domain, "ParseStats", shared.ErrNoData, "empty body")
	}

	if body[0] == '{' {
		return parseStatsJSON(body)
	}
	return parseStatsLite(body)
}

func parseStatsJSON(body []byte) (StatsDTO, error) {
	var resp statsJSONResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return StatsDTO{}, shared.WrapError(domain, "ParseStats", shared.ErrMalformed, "decode skillvalues", err)
	}
	if len(resp.SkillValues) == 0 {
		return StatsDTO{}, shared.NewDomainError(domain, "ParseStats", shared.ErrNoData, "no skill values")
	}

	out := StatsDTO{Values: make([]SkillValueDTO, 0, len(resp.SkillValues))}
	for _, v := range resp.SkillValues {
		if _, ok := skill.ByTableID(v.ID); !ok {
			continue
		}
		out.Values = append(out.Values, v)
	}
	return out, nil
}

func parseStatsLite(body []byte) (StatsDTO, error) {
	lines := strings.Split(string(body), "\n")

	var out StatsDTO
	for i, line := range lines {
		// Activity/minigame rows follow the skills and are not part of the catalog.
		if i >= skill.Count() {
			break
		}

		v, ok := parseLiteLine(line)
		if !ok {
			out.Skipped++
			continue
		}
		v.ID = i
		out.Values = append(out.Values, v)
	}

	if len(out.Values) == 0 {
		return StatsDTO{}, shared.NewDomainError(domain, "ParseStats", shared.ErrMalformed, "no parseable skill lines")
	}
	return out, nil
}

func parseLiteLine(line string) (SkillValueDTO, bool) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) < 3 {
		return SkillValueDTO{}, false
	}

	rank, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return SkillValueDTO{}, false
	}
	level, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return SkillValueDTO{}, false
	}
	xp, err := strconv.ParseInt(strings.TrimSpace(parts[2]), 10, 64)
	if err != nil {
		return SkillValueDTO{}, false
	}

	return SkillValueDTO{Rank: rank, Level: level, XP: xp}, true
}

// ══════════════════════════════════════════════════════════════════════════════
// RANKING
// ══════════════════════════════════════════════════════════════════════════════

// ParseRanking decodes the ranking feed into display names, in feed order.
func ParseRanking(body []byte) ([]string, error) {
	var entries []RankingEntryDTO
	if err := json.Unmarshal(bytes.TrimSpace(body), &entries); err != nil {
		return nil, shared.WrapError(domain, "ParseRanking", shared.ErrMalformed, "decode ranking", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := player.DisplayName(e.Name)
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CLAN ROSTER
// ══════════════════════════════════════════════════════════════════════════════

// ParseRoster decodes the clan member CSV. The first line is a header. Blank
// lines are ignored; lines with fewer than four fields or non-numeric XP or
// kill counts are skipped one by one without failing the whole list.
func ParseRoster(body []byte) RosterDTO {
	text := decodeLatin1(body)

	var out RosterDTO
	header := true
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if header {
			header = false
			continue
		}

		l, ok := parseRosterLine(line)
		if !ok {
			out.Skipped++
			continue
		}
		out.Lines = append(out.Lines, l)
	}
	return out
}

func parseRosterLine(line string) (RosterLineDTO, bool) {
	parts := strings.Split(line, ",")
	if len(parts) < 4 {
		return RosterLineDTO{}, false
	}

	name := player.DisplayName(parts[0])
	if name == "" {
		return RosterLineDTO{}, false
	}

	xp, err := strconv.ParseInt(strings.TrimSpace(parts[2]), 10, 64)
	if err != nil {
		return RosterLineDTO{}, false
	}
	kills, err := strconv.ParseInt(strings.TrimSpace(parts[3]), 10, 64)
	if err != nil {
		return RosterLineDTO{}, false
	}

	return RosterLineDTO{
		Username:  name,
		RankLabel: strings.TrimSpace(parts[1]),
		TotalXP:   xp,
		KillCount: kills,
	}, true
}

// decodeLatin1 returns body as a string, transcoding from ISO-8859-1 when it is
// not valid UTF-8. The member list is served in Latin-1, where a non-breaking
// space is the single byte 0xA0.
func decodeLatin1(body []byte) string {
	if utf8.Valid(body) {
		return string(body)
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVITY
// ══════════════════════════════════════════════════════════════════════════════

// ParseActivities decodes a RuneMetrics profile. Private and unknown profiles
// come back as ErrNoData.
func ParseActivities(body []byte) ([]ActivityDTO, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, shared.NewDomainError(domain, "ParseActivities", shared.ErrNoData, "empty body")
	}

	var resp profileResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, shared.WrapError(domain, "ParseActivities", shared.ErrMalformed, "decode profile", err)
	}
	switch resp.Error {
	case "":
	case ProfilePrivate, ProfileNotFound, ProfileNotMember:
		return nil, shared.NewDomainError(domain, "ParseActivities", shared.ErrNoData, strings.ToLower(resp.Error))
	default:
		return nil, shared.NewDomainError(domain, "ParseActivities", shared.ErrMalformed, "unexpected profile error "+resp.Error)
	}
	return resp.Activities, nil
}

// ParseActivityDate parses an activity timestamp such as "15-Oct-2026 12:00".
func ParseActivityDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(ActivityDateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, shared.WrapError(domain, "ParseActivityDate", shared.ErrMalformed, "bad activity date", err)
	}
	return t, nil
}
