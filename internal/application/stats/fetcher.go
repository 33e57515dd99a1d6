package stats

import (
	"context"
	"log/slog"
	"time"

	"github.com/stormlight-clan/stormlight-hub/internal/domain/player"
	"github.com/stormlight-clan/stormlight-hub/internal/domain/shared"
	"github.com/stormlight-clan/stormlight-hub/pkg/logger"
	"github.com/stormlight-clan/stormlight-hub/pkg/metrics"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATS FETCHER
// ══════════════════════════════════════════════════════════════════════════════

// Fetcher resolves one player's full skill table and writes it through to the
// stats cache. It never returns an error: every failure becomes a FetchResult
// outcome and the caller decides how to degrade.
type Fetcher struct {
	source  StatsSource
	cache   player.StatsCache
	logger  *slog.Logger
	metrics *metrics.Manager

	maxAge time.Duration
	now    func() time.Time
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithMaxAge serves cached snapshots younger than d without a network call.
func WithMaxAge(d time.Duration) FetcherOption {
	return func(f *Fetcher) { f.maxAge = d }
}

// WithFetcherClock replaces time.Now.
func WithFetcherClock(now func() time.Time) FetcherOption {
	return func(f *Fetcher) { f.now = now }
}

// WithFetcherMetrics records fetch outcomes.
func WithFetcherMetrics(m *metrics.Manager) FetcherOption {
	return func(f *Fetcher) { f.metrics = m }
}

// NewFetcher creates a Fetcher.
func NewFetcher(source StatsSource, cache player.StatsCache, log *slog.Logger, opts ...FetcherOption) *Fetcher {
	if log == nil {
		log = slog.Default()
	}
	f := &Fetcher{
		source: source,
		cache:  cache,
		logger: log.With(logger.Component("stats_fetcher")),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the current stats for username.
func (f *Fetcher) Fetch(ctx context.Context, username string) player.FetchResult {
	name := player.DisplayName(username)
	if name == "" {
		return player.NoData(shared.NewDomainError("stats", "Fetch", shared.ErrInvalidInput, "empty username"))
	}

	if cached, ok := f.fresh(ctx, name); ok {
		f.metrics.RecordStatsFetch("cached")
		return player.Found(cached)
	}

	start := time.Now()
	parsed, err := f.source.GetStats(ctx, name)
	if err != nil {
		result := classify(err)
		f.metrics.RecordStatsFetch(result.Outcome.String())

		attrs := []any{logger.Username(name), logger.Outcome(result.Outcome.String()), logger.Err(err)}
		if result.Outcome == player.OutcomeNoData {
			f.logger.DebugContext(ctx, "no stats for player", attrs...)
		} else {
			f.logger.WarnContext(ctx, "stats fetch failed", attrs...)
		}
		return result
	}

	stats := player.NewPlayerStats(name, parsed, f.now())
	if err := f.cache.Put(ctx, stats); err != nil {
		f.logger.WarnContext(ctx, "stats cache write failed", logger.Username(name), logger.Err(err))
	}

	f.metrics.RecordStatsFetch(player.OutcomeOK.String())
	f.logger.DebugContext(ctx, "fetched player stats", logger.Username(name), logger.Latency(time.Since(start)))
	return player.Found(stats)
}

// fresh returns a cached snapshot when max-age serving is on and the entry is young enough.
func (f *Fetcher) fresh(ctx context.Context, name string) (player.PlayerStats, bool) {
	if f.maxAge <= 0 {
		return player.PlayerStats{}, false
	}

	cached, ok, err := f.cache.Get(ctx, name)
	if err != nil {
		f.logger.WarnContext(ctx, "stats cache read failed", logger.Username(name), logger.Err(err))
		return player.PlayerStats{}, false
	}
	if !ok || f.now().Sub(cached.LastUpdated) >= f.maxAge {
		return player.PlayerStats{}, false
	}
	return cached, true
}

// classify maps a source error to an outcome. Unknown players, private profiles,
// malformed payloads and bad input are "no data"; anything else is a transport
// failure.
func classify(err error) player.FetchResult {
	switch {
	case shared.IsNoData(err), shared.IsMalformed(err), shared.IsInvalidInput(err):
		return player.NoData(err)
	default:
		return player.TransportFailure(err)
	}
}
