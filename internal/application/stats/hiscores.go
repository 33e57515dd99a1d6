package stats

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stormlight-clan/stormlight-hub/internal/application/batch"
	"github.com/stormlight-clan/stormlight-hub/internal/domain/player"
	"github.com/stormlight-clan/stormlight-hub/internal/domain/shared"
	"github.com/stormlight-clan/stormlight-hub/internal/domain/skill"
	"github.com/stormlight-clan/stormlight-hub/pkg/logger"
	"github.com/stormlight-clan/stormlight-hub/pkg/metrics"
)

// totalApproxOffset is added to the ledger size to report a total. The figure
// is an estimate of the ranking feed's contribution, not a count of the merged
// list; HasNext is what callers should page by.
const totalApproxOffset = 50

// DefaultDiscoveryConcurrency bounds parallel fetches of discovered players.
const DefaultDiscoveryConcurrency = 5

// ══════════════════════════════════════════════════════════════════════════════
// QUERY AND RESULT TYPES
// ══════════════════════════════════════════════════════════════════════════════

// RankedPageQuery asks for one page of a skill's hiscores.
type RankedPageQuery struct {
	// Skill is a catalog name; unknown names mean overall.
	Skill string

	// Page is 1-based; values below 1 mean the first page.
	Page int

	// PageSize must be 15, 30 or 50; anything else means 15.
	PageSize int
}

// Normalize applies the fallbacks described on the fields.
func (q RankedPageQuery) Normalize() RankedPageQuery {
	return RankedPageQuery{
		Skill:    skill.ResolveOrOverall(q.Skill).Name,
		Page:     shared.NormalizePage(q.Page),
		PageSize: shared.CoerceRankedPageSize(q.PageSize),
	}
}

// RankedPage is one page of merged hiscores.
type RankedPage struct {
	Skill       string               `json:"skill"`
	Players     []player.PlayerStats `json:"players"`
	Page        int                  `json:"page"`
	PageSize    int                  `json:"page_size"`
	TotalApprox int                  `json:"total_approx"`
	HasNext     bool                 `json:"has_next"`
}

// ClanHiscores is every roster member's stats ordered by one skill.
type ClanHiscores struct {
	Skill    string               `json:"skill"`
	Hiscores []player.PlayerStats `json:"hiscores"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HISCORES SERVICE
// ══════════════════════════════════════════════════════════════════════════════

// Hiscores merges the ranking feed with discovered players.
type Hiscores struct {
	ranking *RankingFetcher
	fetcher *Fetcher
	ledger  player.DiscoveryLedger
	roster  RosterLister
	logger  *slog.Logger
	metrics *metrics.Manager

	concurrency int
	clanBatch   batch.Options
	now         func() time.Time
}

// HiscoresOption configures Hiscores.
type HiscoresOption func(*Hiscores)

// WithDiscoveryConcurrency bounds parallel fetches of discovered players.
func WithDiscoveryConcurrency(n int) HiscoresOption {
	return func(h *Hiscores) {
		if n > 0 {
			h.concurrency = n
		}
	}
}

// WithRoster enables clan hiscores, resolving members with the given batching.
func WithRoster(roster RosterLister, opts batch.Options) HiscoresOption {
	return func(h *Hiscores) {
		h.roster = roster
		h.clanBatch = opts
	}
}

// clanBatchOptions returns the clan batching with panics logged by h.
func (h *Hiscores) clanBatchOptions(ctx context.Context, names []string) batch.Options {
	opts := h.clanBatch
	if opts.OnPanic == nil {
		opts.OnPanic = func(item int, v any) {
			h.logger.ErrorContext(ctx, "clan member fetch panicked",
				logger.Username(names[item]), slog.Any("panic", v))
		}
	}
	return opts
}

// WithHiscoresMetrics publishes the ledger size.
func WithHiscoresMetrics(m *metrics.Manager) HiscoresOption {
	return func(h *Hiscores) { h.metrics = m }
}

// WithHiscoresClock replaces time.Now.
func WithHiscoresClock(now func() time.Time) HiscoresOption {
	return func(h *Hiscores) { h.now = now }
}

// NewHiscores creates the hiscores service.
func NewHiscores(ranking *RankingFetcher, fetcher *Fetcher, ledger player.DiscoveryLedger, log *slog.Logger, opts ...HiscoresOption) *Hiscores {
	if log == nil {
		log = slog.Default()
	}
	h := &Hiscores{
		ranking:     ranking,
		fetcher:     fetcher,
		ledger:      ledger,
		logger:      log.With(logger.Component("hiscores")),
		concurrency: DefaultDiscoveryConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// GetRankedPage merges the resolved ranking leaders with every discovered
// player that has the skill, sorts by the skill's XP (highest first, ties keep
// their order) and returns the requested page.
func (h *Hiscores) GetRankedPage(ctx context.Context, q RankedPageQuery) RankedPage {
	q = q.Normalize()

	leaders := h.ranking.Fetch(ctx, q.Skill, 0)

	seen := make(map[string]struct{}, len(leaders))
	merged := make([]player.PlayerStats, 0, len(leaders))
	for _, p := range leaders {
		if _, dup := seen[p.Key()]; dup {
			continue
		}
		seen[p.Key()] = struct{}{}
		merged = append(merged, p)
	}

	records, err := h.ledger.List(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "discovery ledger read failed", logger.Err(err))
	}

	candidates := make([]string, 0, len(records))
	for _, rec := range records {
		k := rec.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		candidates = append(candidates, rec.Username)
	}

	for _, p := range h.resolveAll(ctx, candidates) {
		if p.Has(q.Skill) {
			merged = append(merged, p)
		}
	}

	player.SortByXP(merged, q.Skill)
	page := shared.Paginate(merged, q.Page, q.PageSize)

	return RankedPage{
		Skill:       q.Skill,
		Players:     page.Items,
		Page:        page.Page,
		PageSize:    page.PageSize,
		TotalApprox: h.totalApprox(ctx),
		HasNext:     page.HasNext,
	}
}

// totalApprox reports the ledger size plus the fixed ranking estimate. A failed
// count is logged and treated as an empty ledger.
func (h *Hiscores) totalApprox(ctx context.Context) int {
	ledgerSize, err := h.ledger.Len(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "discovery ledger count failed", logger.Err(err))
	}
	h.metrics.SetDiscoverySize(ledgerSize)
	return ledgerSize + totalApproxOffset
}

// resolveAll fetches names with bounded concurrency and returns the successful
// snapshots in input order.
func (h *Hiscores) resolveAll(ctx context.Context, names []string) []player.PlayerStats {
	results := make([]player.FetchResult, len(names))

	var g errgroup.Group
	g.SetLimit(h.concurrency)
	for i, name := range names {
		g.Go(func() error {
			results[i] = h.fetcher.Fetch(ctx, name)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]player.PlayerStats, 0, len(results))
	for _, r := range results {
		if r.OK() {
			out = append(out, r.Stats)
		}
	}
	return out
}

// SearchPlayer records username in the discovery ledger, whatever the fetch
// outcome, and fetches its stats.
func (h *Hiscores) SearchPlayer(ctx context.Context, username string) player.FetchResult {
	name := player.DisplayName(username)
	if name == "" {
		return player.NoData(shared.NewDomainError("stats", "SearchPlayer", shared.ErrInvalidInput, "empty username"))
	}

	rec := player.DiscoveryRecord{Username: name, DiscoveredAt: h.now(), Source: player.SourceSearch}
	if err := h.ledger.Record(ctx, rec); err != nil {
		h.logger.WarnContext(ctx, "discovery record failed", logger.Username(name), logger.Err(err))
	}

	return h.fetcher.Fetch(ctx, name)
}

// SearchPage wraps SearchPlayer as a ranked page. It is always page 1 and holds
// at most the one player, whatever page was asked for. TotalApprox is computed
// as for GetRankedPage, after the search has been recorded.
func (h *Hiscores) SearchPage(ctx context.Context, username string, q RankedPageQuery) RankedPage {
	q = q.Normalize()
	res := h.SearchPlayer(ctx, username)

	players := []player.PlayerStats{}
	if res.OK() {
		players = append(players, res.Stats)
	}

	return RankedPage{
		Skill:       q.Skill,
		Players:     players,
		Page:        1,
		PageSize:    q.PageSize,
		TotalApprox: h.totalApprox(ctx),
		HasNext:     false,
	}
}

// GetClanHiscores resolves every roster member and orders them by skillName's XP.
// Members without stats are left out. A failed roster yields an empty list.
func (h *Hiscores) GetClanHiscores(ctx context.Context, skillName string) ClanHiscores {
	sk := skill.ResolveOrOverall(skillName)
	result := ClanHiscores{Skill: sk.Name, Hiscores: []player.PlayerStats{}}

	if h.roster == nil {
		return result
	}

	members, err := h.roster.Fetch(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "roster unavailable for clan hiscores", logger.Err(err))
		return result
	}

	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.Username)
	}

	results, err := batch.Run(ctx, names, h.clanBatchOptions(ctx, names), h.fetcher.Fetch)
	if err != nil {
		h.logger.WarnContext(ctx, "clan hiscores interrupted", logger.Err(err))
	}

	for _, r := range results {
		if r.OK() {
			result.Hiscores = append(result.Hiscores, r.Stats)
		}
	}

	player.SortByXP(result.Hiscores, sk.Name)
	return result
}
