package stats

import (
	"context"
	"log/slog"
	"time"

	"github.com/stormlight-clan/stormlight-hub/internal/application/batch"
	"github.com/stormlight-clan/stormlight-hub/internal/domain/player"
	"github.com/stormlight-clan/stormlight-hub/internal/domain/skill"
	"github.com/stormlight-clan/stormlight-hub/pkg/logger"
)

// Ranking defaults.
const (
	DefaultRankingSize  = 50
	DefaultResolveLimit = 5
)

// ══════════════════════════════════════════════════════════════════════════════
// RANKING FETCHER
// ══════════════════════════════════════════════════════════════════════════════

// RankingFetcher turns the top-N ranking feed of a skill into player stats.
// Only the first few names are resolved, which bounds outbound calls per request.
type RankingFetcher struct {
	source       RankingSource
	fetcher      *Fetcher
	ledger       player.DiscoveryLedger
	logger       *slog.Logger
	size         int
	resolveLimit int
	now          func() time.Time
}

// RankingOption configures a RankingFetcher.
type RankingOption func(*RankingFetcher)

// WithRankingSize sets how many names are requested from the feed when Fetch
// is not given a size.
func WithRankingSize(n int) RankingOption {
	return func(r *RankingFetcher) {
		if n > 0 {
			r.size = n
		}
	}
}

// WithResolveLimit sets how many of the leading names get full stats.
func WithResolveLimit(n int) RankingOption {
	return func(r *RankingFetcher) {
		if n >= 0 {
			r.resolveLimit = n
		}
	}
}

// WithRankingClock replaces time.Now.
func WithRankingClock(now func() time.Time) RankingOption {
	return func(r *RankingFetcher) { r.now = now }
}

// NewRankingFetcher creates a RankingFetcher.
func NewRankingFetcher(source RankingSource, fetcher *Fetcher, ledger player.DiscoveryLedger, log *slog.Logger, opts ...RankingOption) *RankingFetcher {
	if log == nil {
		log = slog.Default()
	}
	r := &RankingFetcher{
		source:       source,
		fetcher:      fetcher,
		ledger:       ledger,
		logger:       log.With(logger.Component("ranking_fetcher")),
		size:         DefaultRankingSize,
		resolveLimit: DefaultResolveLimit,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fetch requests the top size names of skillName and returns the resolved
// leaders in feed order. A size below 1 means the configured feed size. Unknown
// skill names use the overall table. A failed feed yields an empty list.
func (r *RankingFetcher) Fetch(ctx context.Context, skillName string, size int) []player.PlayerStats {
	sk := skill.ResolveOrOverall(skillName)
	if size < 1 {
		size = r.size
	}

	names, err := r.source.GetRanking(ctx, sk.TableID, size)
	if err != nil {
		r.logger.WarnContext(ctx, "ranking feed failed", logger.Skill(sk.Name), logger.Err(err))
		return []player.PlayerStats{}
	}

	leaders := leadingUnique(names, r.resolveLimit)

	for _, name := range leaders {
		rec := player.DiscoveryRecord{Username: name, DiscoveredAt: r.now(), Source: player.SourceRanking}
		if err := r.ledger.Record(ctx, rec); err != nil {
			r.logger.WarnContext(ctx, "discovery record failed", logger.Username(name), logger.Err(err))
		}
	}

	results, _ := batch.Run(ctx, leaders, batch.Options{}, r.fetcher.Fetch)

	out := make([]player.PlayerStats, 0, len(results))
	for _, res := range results {
		if res.OK() {
			out = append(out, res.Stats)
		}
	}

	r.logger.DebugContext(ctx, "resolved ranking leaders",
		logger.Skill(sk.Name),
		logger.Count("feed", len(names)),
		logger.Count("resolved", len(out)),
	)
	return out
}

// leadingUnique returns up to limit names from the front of names, skipping
// repeats of an earlier key.
func leadingUnique(names []string, limit int) []string {
	seen := make(map[string]struct{}, limit)
	out := make([]string, 0, limit)
	for _, n := range names {
		if len(out) == limit {
			break
		}
		k := player.Key(n)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, n)
	}
	return out
}
