package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type breakers map[string]string

func (b breakers) BreakerStates() map[string]string { return b }

func TestCompositeHealthChecker_NoChecks(t *testing.T) {
	status := NewCompositeHealthChecker("1.0.0").Check(context.Background())

	assert.True(t, status.Healthy)
	assert.Equal(t, "1.0.0", status.Version)
}

func TestCompositeHealthChecker_AggregatesFailures(t *testing.T) {
	c := NewCompositeHealthChecker("dev")
	c.AddCheck("cache", NewPingCheck(pingFunc(func(context.Context) error { return nil })))
	c.AddCheck("upstream", NewUpstreamCheck(breakers{"stats": "open", "ranking": "closed", "roster": "open"}))

	status := c.Check(context.Background())

	assert.False(t, status.Healthy)
	assert.Equal(t, "Some checks failed: upstream", status.Message)
	require.Contains(t, status.Checks, "upstream")
	assert.Equal(t, "circuit open: roster, stats", status.Checks["upstream"].Message)
	assert.True(t, status.Checks["cache"].Healthy)
}

func TestCompositeHealthChecker_TimesOutSlowChecks(t *testing.T) {
	c := NewCompositeHealthChecker("dev")
	c.SetTimeout(10 * time.Millisecond)
	c.AddCheck("slow", NewPingCheck(pingFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})))

	status := c.Check(context.Background())

	assert.False(t, status.Healthy)
	assert.Equal(t, context.DeadlineExceeded.Error(), status.Checks["slow"].Message)
}

func TestUpstreamCheck_AllClosed(t *testing.T) {
	err := NewUpstreamCheck(breakers{"stats": "closed", "activity": "half-open"})(context.Background())
	assert.NoError(t, err)

	err = NewUpstreamCheck(breakers{"stats": "open"})(context.Background())
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, []string{"stats"}, upstream.Endpoints)
}
