package http

import (
	"net/http"
	"strings"

	"github.com/stormlight-clan/stormlight-hub/internal/application/stats"
	"github.com/stormlight-clan/stormlight-hub/internal/domain/clan"
	"github.com/stormlight-clan/stormlight-hub/internal/domain/player"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"name":    "Stormlight Hub API",
		"version": s.config.Version,
		"endpoints": map[string]string{
			"health":        "/health",
			"hiscores":      "/api/hiscores",
			"player_stats":  "/api/player/{username}/stats",
			"clan_members":  "/api/clan/members",
			"clan_hiscores": "/api/clan/hiscores",
			"clan_activity": "/api/clan/activity",
		},
	})
}

// handleHealth reports process and backend health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, r, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, r, http.StatusOK, status)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": s.config.Version,
	})
}

// handleLive handles the liveness probe endpoint.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// HISCORES HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleHiscores handles GET /api/hiscores?skill=&page=&limit=&search=
func (s *Server) handleHiscores(w http.ResponseWriter, r *http.Request) {
	if s.deps.Hiscores == nil {
		writeJSONError(w, r, http.StatusNotImplemented, "not_implemented", "Hiscores service not configured")
		return
	}

	q := stats.RankedPageQuery{
		Skill:    r.URL.Query().Get("skill"),
		Page:     getQueryParamInt(r, "page", 1),
		PageSize: getQueryParamInt(r, "limit", 0),
	}

	var page stats.RankedPage
	if search := strings.TrimSpace(r.URL.Query().Get("search")); search != "" {
		page = s.deps.Hiscores.SearchPage(r.Context(), search, q)
	} else {
		page = s.deps.Hiscores.GetRankedPage(r.Context(), q)
	}

	writeJSONWithMeta(w, r, http.StatusOK, page, &ResponseMeta{
		Page:     page.Page,
		PageSize: page.PageSize,
		HasMore:  page.HasNext,
	})
}

// handlePlayerStats handles GET /api/player/{username}/stats
func (s *Server) handlePlayerStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.Hiscores == nil {
		writeJSONError(w, r, http.StatusNotImplemented, "not_implemented", "Hiscores service not configured")
		return
	}

	username := player.DisplayName(r.PathValue("username"))
	if username == "" {
		writeJSONError(w, r, http.StatusBadRequest, "invalid_username", "Username is required")
		return
	}

	res := s.deps.Hiscores.SearchPlayer(r.Context(), username)
	switch res.Outcome {
	case player.OutcomeOK:
		writeJSON(w, r, http.StatusOK, res.Stats)
	case player.OutcomeTransportFailure:
		writeJSONError(w, r, http.StatusBadGateway, "upstream_unavailable", "Hiscores are unavailable, try again later")
	default:
		writeJSONError(w, r, http.StatusNotFound, "player_not_found", "No stats found for "+username)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLAN HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// ClanMembersResponse is the body of GET /api/clan/members.
type ClanMembersResponse struct {
	ClanName string              `json:"clan_name"`
	Members  []clan.RosterMember `json:"members"`
}

// handleClanMembers handles GET /api/clan/members?search=&sort=xp|rank
func (s *Server) handleClanMembers(w http.ResponseWriter, r *http.Request) {
	if s.deps.Roster == nil {
		writeJSONError(w, r, http.StatusNotImplemented, "not_implemented", "Roster service not configured")
		return
	}

	members := s.deps.Roster.GetRoster(r.Context(),
		r.URL.Query().Get("search"),
		clan.ParseSortBy(r.URL.Query().Get("sort")),
	)

	writeJSON(w, r, http.StatusOK, ClanMembersResponse{
		ClanName: s.deps.Roster.ClanName(),
		Members:  members,
	})
}

// handleClanHiscores handles GET /api/clan/hiscores?skill=
func (s *Server) handleClanHiscores(w http.ResponseWriter, r *http.Request) {
	if s.deps.Hiscores == nil {
		writeJSONError(w, r, http.StatusNotImplemented, "not_implemented", "Hiscores service not configured")
		return
	}

	writeJSON(w, r, http.StatusOK, s.deps.Hiscores.GetClanHiscores(r.Context(), r.URL.Query().Get("skill")))
}

// handleClanActivity handles GET /api/clan/activity?page=&limit=
func (s *Server) handleClanActivity(w http.ResponseWriter, r *http.Request) {
	if s.deps.Activity == nil {
		writeJSONError(w, r, http.StatusNotImplemented, "not_implemented", "Activity service not configured")
		return
	}

	page := s.deps.Activity.GetActivityPage(r.Context(),
		getQueryParamInt(r, "page", 1),
		getQueryParamInt(r, "limit", 0),
	)

	writeJSONWithMeta(w, r, http.StatusOK, page, &ResponseMeta{
		Page:     page.Page,
		PageSize: page.PageSize,
		HasMore:  page.HasNext,
	})
}
