package roster

import (
	"context"
	"log/slog"
	"time"

	"github.com/stormlight-clan/stormlight-hub/internal/application/batch"
	"github.com/stormlight-clan/stormlight-hub/internal/domain/clan"
	"github.com/stormlight-clan/stormlight-hub/internal/domain/shared"
	"github.com/stormlight-clan/stormlight-hub/pkg/logger"
	"github.com/stormlight-clan/stormlight-hub/pkg/metrics"
)

// Activity defaults.
const (
	DefaultActivityBatchSize = 20
	DefaultActivityPause     = 200 * time.Millisecond
	DefaultActivityWindow    = 12 * 7 * 24 * time.Hour

	DefaultActivityPageSize = 20
	MaxActivityPageSize     = 100
)

// ActivityPage is one page of the merged clan activity feed.
type ActivityPage struct {
	Events   []clan.ActivityEvent `json:"events"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
	HasNext  bool                 `json:"has_next"`
}

// RosterFetcher is the part of Service the collector needs.
type RosterFetcher interface {
	Fetch(ctx context.Context) ([]clan.RosterMember, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVITY COLLECTOR
// ══════════════════════════════════════════════════════════════════════════════

// ActivityCollector gathers every member's recent activity in paced batches.
type ActivityCollector struct {
	roster  RosterFetcher
	source  ActivitySource
	logger  *slog.Logger
	metrics *metrics.Manager

	batchSize int
	pause     time.Duration
	window    time.Duration
	sleep     batch.SleepFunc
	now       func() time.Time
}

// ActivityOption configures an ActivityCollector.
type ActivityOption func(*ActivityCollector)

// WithBatching sets the members per batch and the pause between batches.
func WithBatching(size int, pause time.Duration) ActivityOption {
	return func(c *ActivityCollector) {
		if size > 0 {
			c.batchSize = size
		}
		if pause >= 0 {
			c.pause = pause
		}
	}
}

// WithWindow sets how far back events are kept.
func WithWindow(d time.Duration) ActivityOption {
	return func(c *ActivityCollector) {
		if d > 0 {
			c.window = d
		}
	}
}

// WithActivityMetrics records batch timings and event counts.
func WithActivityMetrics(m *metrics.Manager) ActivityOption {
	return func(c *ActivityCollector) { c.metrics = m }
}

// WithSleep replaces the pause timer.
func WithSleep(sleep batch.SleepFunc) ActivityOption {
	return func(c *ActivityCollector) { c.sleep = sleep }
}

// WithActivityClock replaces time.Now.
func WithActivityClock(now func() time.Time) ActivityOption {
	return func(c *ActivityCollector) { c.now = now }
}

// NewActivityCollector creates an ActivityCollector.
func NewActivityCollector(roster RosterFetcher, source ActivitySource, log *slog.Logger, opts ...ActivityOption) *ActivityCollector {
	if log == nil {
		log = slog.Default()
	}
	c := &ActivityCollector{
		roster:    roster,
		source:    source,
		logger:    log.With(logger.Component("activity_collector")),
		batchSize: DefaultActivityBatchSize,
		pause:     DefaultActivityPause,
		window:    DefaultActivityWindow,
		sleep:     batch.Sleep,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// memberActivity is one member's contribution to the feed.
type memberActivity struct {
	events      []clan.ActivityEvent
	outside     int
	unparseable int
	failed      bool
}

// GetActivityPage returns one page of the clan's activity from the trailing
// window, newest first. It never fails: a missing roster gives an empty page.
//
// The collection is detached from ctx cancellation, so an abandoned request still
// finishes every batch and pause.
func (c *ActivityCollector) GetActivityPage(ctx context.Context, page, pageSize int) ActivityPage {
	page = shared.NormalizePage(page)
	pageSize = shared.ClampPageSize(pageSize, DefaultActivityPageSize, MaxActivityPageSize)
	empty := ActivityPage{Events: []clan.ActivityEvent{}, Page: page, PageSize: pageSize}

	ctx = context.WithoutCancel(ctx)

	members, err := c.roster.Fetch(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "roster unavailable, activity feed empty", logger.Err(err))
		return empty
	}

	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.Username)
	}

	cutoff := c.now().Add(-c.window).Unix()
	results, err := batch.Run(ctx, names, batch.Options{
		Size:  c.batchSize,
		Pause: c.pause,
		Sleep: c.sleep,
		OnBatch: func(index, size int, took time.Duration) {
			c.metrics.RecordActivityBatch(took)
			c.logger.DebugContext(ctx, "activity batch done",
				logger.Count("batch", index), logger.Count("members", size), logger.Latency(took))
		},
		OnPanic: func(item int, v any) {
			c.logger.ErrorContext(ctx, "activity fetch panicked",
				logger.Username(names[item]), slog.Any("panic", v))
		},
	}, func(ctx context.Context, name string) memberActivity {
		return c.collect(ctx, name, cutoff)
	})
	if err != nil {
		c.logger.WarnContext(ctx, "activity collection interrupted", logger.Err(err))
		return empty
	}

	var events []clan.ActivityEvent
	var outside, unparseable, failed int
	for _, r := range results {
		events = append(events, r.events...)
		outside += r.outside
		unparseable += r.unparseable
		if r.failed {
			failed++
		}
	}

	c.metrics.RecordActivityEvents("kept", len(events))
	c.metrics.RecordActivityEvents("outside_window", outside)
	c.metrics.RecordActivityEvents("unparseable", unparseable)

	c.logger.InfoContext(ctx, "collected clan activity",
		logger.Count("members", len(names)),
		logger.Count("events", len(events)),
		logger.Count("failed_members", failed),
	)

	clan.SortEvents(events)
	p := shared.Paginate(events, page, pageSize)
	return ActivityPage{Events: p.Items, Page: p.Page, PageSize: p.PageSize, HasNext: p.HasNext}
}

// collect fetches one member's feed and keeps events at or after cutoff.
func (c *ActivityCollector) collect(ctx context.Context, name string, cutoff int64) memberActivity {
	events, unparseable, err := c.source.GetActivities(ctx, name)
	if err != nil {
		level := slog.LevelWarn
		if shared.IsNoData(err) {
			level = slog.LevelDebug
		}
		c.logger.Log(ctx, level, "member activity unavailable", logger.Username(name), logger.Err(err))
		return memberActivity{failed: true}
	}

	out := memberActivity{unparseable: unparseable}
	for _, ev := range events {
		if ev.Timestamp < cutoff {
			out.outside++
			continue
		}
		out.events = append(out.events, ev)
	}
	return out
}
