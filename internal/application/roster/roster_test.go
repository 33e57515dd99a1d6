package roster

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stormlight-clan/stormlight-hub/internal/domain/clan"
	"github.com/stormlight-clan/stormlight-hub/internal/domain/shared"
	"github.com/stormlight-clan/stormlight-hub/internal/infrastructure/persistence/memory"
	"github.com/stormlight-clan/stormlight-hub/pkg/logger"
	"github.com/stormlight-clan/stormlight-hub/pkg/metrics"
)

var testNow = time.Date(2026, 10, 15, 12, 0, 1, 0, time.UTC)

func clock() time.Time { return testNow }

type fakeRosterSource struct {
	members []clan.RosterMember
	err     error
	calls   int
}

func (f *fakeRosterSource) GetRoster(_ context.Context, clanName string) ([]clan.RosterMember, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]clan.RosterMember, len(f.members))
	copy(out, f.members)
	return out, nil
}

type fakeActivity struct {
	mu     sync.Mutex
	events map[string][]clan.ActivityEvent
	errs   map[string]error
	bad    map[string]int
	panics map[string]bool
	seen   []string
}

func (f *fakeActivity) GetActivities(_ context.Context, username string) ([]clan.ActivityEvent, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, username)
	if f.panics[username] {
		panic("decoder bug for " + username)
	}
	if err := f.errs[username]; err != nil {
		return nil, 0, err
	}
	return f.events[username], f.bad[username], nil
}

func event(user, text string, at time.Time) clan.ActivityEvent {
	return clan.ActivityEvent{
		Username:  user,
		Text:      text,
		Date:      at.Format("02-Jan-2006 15:04"),
		Timestamp: at.Unix(),
	}
}

func texts(events []clan.ActivityEvent) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Text
	}
	return out
}

func members(names ...string) []clan.RosterMember {
	out := make([]clan.RosterMember, len(names))
	for i, n := range names {
		out[i] = clan.RosterMember{Username: n, RankLabel: "Recruit"}
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// ROSTER SERVICE
// ══════════════════════════════════════════════════════════════════════════════

func TestService_FetchStampsAndStores(t *testing.T) {
	ctx := context.Background()
	src := &fakeRosterSource{members: members("alice", "bob")}
	store := memory.NewRosterStore()
	svc := NewService("Stormlight", src, store, logger.Discard(), WithServiceClock(clock))

	got, err := svc.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, m := range got {
		assert.Equal(t, testNow, m.LastUpdated)
	}

	stored, ok, err := store.Get(ctx, "stormlight")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, stored, 2)
}

func TestService_GetRosterFiltersAndSorts(t *testing.T) {
	src := &fakeRosterSource{members: []clan.RosterMember{
		{Username: "Zed", RankLabel: "Recruit", TotalXP: 900},
		{Username: "Ann", RankLabel: "Owner", TotalXP: 100},
		{Username: "zara", RankLabel: "Captain", TotalXP: 500},
	}}
	svc := NewService("Stormlight", src, memory.NewRosterStore(), logger.Discard())

	byRank := svc.GetRoster(context.Background(), "", clan.SortByRank)
	assert.Equal(t, "Ann", byRank[0].Username)

	byXP := svc.GetRoster(context.Background(), "Z", clan.SortByXP)
	require.Len(t, byXP, 2)
	assert.Equal(t, "Zed", byXP[0].Username)
	assert.Equal(t, "zara", byXP[1].Username)
}

func TestService_GetRosterServesSnapshotOnFailure(t *testing.T) {
	ctx := context.Background()
	src := &fakeRosterSource{members: members("alice")}
	svc := NewService("Stormlight", src, memory.NewRosterStore(), logger.Discard())

	_, err := svc.Fetch(ctx)
	require.NoError(t, err)

	src.err = errors.New("upstream down")
	got := svc.GetRoster(ctx, "", clan.SortByRank)
	require.Len(t, got, 1)
	assert.Equal(t, "alice", got[0].Username)

	cold := NewService("Other", src, memory.NewRosterStore(), logger.Discard())
	assert.Empty(t, cold.GetRoster(ctx, "", clan.SortByRank))
}

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVITY COLLECTOR
// ══════════════════════════════════════════════════════════════════════════════

type collectorFixture struct {
	roster   *fakeRosterSource
	activity *fakeActivity
	pauses   []time.Duration
	c        *ActivityCollector
}

func newCollector(names []string, opts ...ActivityOption) *collectorFixture {
	f := &collectorFixture{
		roster: &fakeRosterSource{members: members(names...)},
		activity: &fakeActivity{
			events: map[string][]clan.ActivityEvent{},
			errs:   map[string]error{},
			bad:    map[string]int{},
		},
	}
	svc := NewService("Stormlight", f.roster, memory.NewRosterStore(), logger.Discard())

	base := []ActivityOption{
		WithActivityClock(clock),
		WithSleep(func(_ context.Context, d time.Duration) error {
			f.pauses = append(f.pauses, d)
			return nil
		}),
	}
	f.c = NewActivityCollector(svc, f.activity, logger.Discard(), append(base, opts...)...)
	return f
}

func TestActivity_WindowBoundary(t *testing.T) {
	f := newCollector([]string{"alice"})
	f.activity.events["alice"] = []clan.ActivityEvent{
		event("alice", "too old", testNow.Add(-DefaultActivityWindow-time.Second)),
		event("alice", "eleven weeks", testNow.Add(-11*7*24*time.Hour)),
		event("alice", "exactly at cutoff", testNow.Add(-DefaultActivityWindow)),
	}

	page := f.c.GetActivityPage(context.Background(), 1, 20)

	assert.Equal(t, []string{"eleven weeks", "exactly at cutoff"}, texts(page.Events))
}

func TestActivity_BatchIsolationAndOrdering(t *testing.T) {
	f := newCollector([]string{"alice", "bob", "carol"})
	t0 := testNow.Add(-time.Hour)
	f.activity.events["alice"] = []clan.ActivityEvent{event("alice", "a1", t0), event("alice", "a2", t0.Add(-time.Minute))}
	f.activity.errs["bob"] = shared.NewDomainError("runescape", "activities", shared.ErrTransport, "timeout")
	f.activity.events["carol"] = []clan.ActivityEvent{event("carol", "c1", t0), event("carol", "c2", t0.Add(time.Minute))}
	f.activity.bad["carol"] = 3

	page := f.c.GetActivityPage(context.Background(), 1, 20)

	// equal timestamps keep member order
	assert.Equal(t, []string{"c2", "a1", "c1", "a2"}, texts(page.Events))
	assert.False(t, page.HasNext)
}

func TestActivity_PanickingMemberIsSkipped(t *testing.T) {
	f := newCollector([]string{"alice", "bob"})
	f.activity.events["alice"] = []clan.ActivityEvent{event("alice", "a1", testNow.Add(-time.Hour))}
	f.activity.panics = map[string]bool{"bob": true}

	page := f.c.GetActivityPage(context.Background(), 1, 20)

	assert.Equal(t, []string{"a1"}, texts(page.Events))
}

func TestActivity_PausesBetweenBatchesOnly(t *testing.T) {
	names := make([]string, 45)
	for i := range names {
		names[i] = fmt.Sprintf("m%02d", i)
	}
	f := newCollector(names)

	f.c.GetActivityPage(context.Background(), 1, 20)

	assert.Equal(t, []time.Duration{DefaultActivityPause, DefaultActivityPause}, f.pauses)
	assert.Len(t, f.activity.seen, 45)
}

func TestActivity_CustomBatching(t *testing.T) {
	f := newCollector([]string{"a", "b", "c"}, WithBatching(1, time.Second))

	f.c.GetActivityPage(context.Background(), 1, 20)

	assert.Equal(t, []time.Duration{time.Second, time.Second}, f.pauses)
}

func TestActivity_Pagination(t *testing.T) {
	f := newCollector([]string{"alice"})
	for i := 0; i < 45; i++ {
		f.activity.events["alice"] = append(f.activity.events["alice"],
			event("alice", fmt.Sprintf("e%02d", i), testNow.Add(-time.Duration(i)*time.Hour)))
	}

	first := f.c.GetActivityPage(context.Background(), 0, 0)
	assert.Equal(t, 1, first.Page)
	assert.Equal(t, DefaultActivityPageSize, first.PageSize)
	assert.Len(t, first.Events, 20)
	assert.True(t, first.HasNext)

	last := f.c.GetActivityPage(context.Background(), 3, 20)
	assert.Equal(t, []string{"e40", "e41", "e42", "e43", "e44"}, texts(last.Events))
	assert.False(t, last.HasNext)

	huge := f.c.GetActivityPage(context.Background(), 1, 1000)
	assert.Equal(t, MaxActivityPageSize, huge.PageSize)
	assert.Len(t, huge.Events, 45)
}

func TestActivity_RosterFailureIsEmpty(t *testing.T) {
	f := newCollector(nil)
	f.roster.err = errors.New("roster down")

	page := f.c.GetActivityPage(context.Background(), 1, 20)

	assert.NotNil(t, page.Events)
	assert.Empty(t, page.Events)
	assert.False(t, page.HasNext)
	assert.Empty(t, f.activity.seen)
}

func TestActivity_IgnoresCallerCancellation(t *testing.T) {
	f := newCollector([]string{"alice", "bob"}, WithBatching(1, time.Millisecond))
	f.activity.events["bob"] = []clan.ActivityEvent{event("bob", "b1", testNow.Add(-time.Hour))}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	page := f.c.GetActivityPage(ctx, 1, 20)

	assert.Equal(t, []string{"b1"}, texts(page.Events))
	assert.Len(t, f.activity.seen, 2)
}

func TestActivity_RecordsMetrics(t *testing.T) {
	m := metrics.NewManager()
	f := newCollector([]string{"alice"}, WithActivityMetrics(m))
	f.activity.events["alice"] = []clan.ActivityEvent{
		event("alice", "new", testNow.Add(-time.Hour)),
		event("alice", "old", testNow.AddDate(-1, 0, 0)),
	}
	f.activity.bad["alice"] = 2

	f.c.GetActivityPage(context.Background(), 1, 20)

	out, err := m.Registry().Gather()
	require.NoError(t, err)
	found := map[string]float64{}
	for _, mf := range out {
		if mf.GetName() != "stormlight_activity_events_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			found[metric.GetLabel()[0].GetValue()] = metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{"kept": 1, "outside_window": 1, "unparseable": 2}, found)
}
