package runescape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/stormlight-clan/stormlight-hub/internal/domain/shared"
	"github.com/stormlight-clan/stormlight-hub/pkg/circuitbreaker"
	"github.com/stormlight-clan/stormlight-hub/pkg/logger"
	"github.com/stormlight-clan/stormlight-hub/pkg/metrics"
	"github.com/stormlight-clan/stormlight-hub/pkg/retry"
)

// Endpoint names, used as circuit breaker names and metric labels.
const (
	EndpointStats    = "stats"
	EndpointRanking  = "ranking"
	EndpointRoster   = "roster"
	EndpointActivity = "activity"
)

// activityFeedSize is how many entries RuneMetrics returns per profile.
const activityFeedSize = 20

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 4 << 20

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the RuneScape client.
type ClientConfig struct {
	// Base URLs, without trailing slash
	HiscoreBaseURL  string
	RankingBaseURL  string
	RosterBaseURL   string
	ActivityBaseURL string

	// Timeout is the per-request HTTP timeout
	Timeout time.Duration

	// Token bucket shared by every endpoint
	RateLimit float64 // requests per second
	RateBurst int

	// Retry behavior for transport failures, 5xx and 429
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	// Circuit breaker settings, applied per endpoint
	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration

	// UserAgent is sent with every request
	UserAgent string

	// HTTPClient overrides the default client (tests)
	HTTPClient *http.Client

	Logger  *slog.Logger
	Metrics *metrics.Manager
}

// DefaultClientConfig returns sensible defaults for the public endpoints.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HiscoreBaseURL:          "https://secure.runescape.com",
		RankingBaseURL:          "https://secure.runescape.com/m=hiscore",
		RosterBaseURL:           "https://services.runescape.com/m=clan-hiscores",
		ActivityBaseURL:         "https://apps.runescape.com/runemetrics/profile",
		Timeout:                 10 * time.Second,
		RateLimit:               20,
		RateBurst:               20,
		MaxRetries:              2,
		RetryBaseDelay:          250 * time.Millisecond,
		RetryMaxDelay:           4 * time.Second,
		CircuitBreakerThreshold: 10,
		CircuitBreakerTimeout:   30 * time.Second,
		UserAgent:               "stormlight-hub",
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client talks to the hiscore, ranking, clan and RuneMetrics services. It is
// safe for concurrent use.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Manager
	limiter    *rate.Limiter
	retrier    *retry.Retrier
	breakers   map[string]*circuitbreaker.CircuitBreaker
}

// NewClient creates a new RuneScape client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.RateBurst < 1 {
		config.RateBurst = 1
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	log := config.Logger.With(logger.Component("runescape"))

	c := &Client{
		config:     config,
		httpClient: httpClient,
		logger:     log,
		metrics:    config.Metrics,
		limiter:    rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst),
		breakers:   make(map[string]*circuitbreaker.CircuitBreaker, 4),
	}

	c.retrier = retry.New(
		retry.WithMaxAttempts(config.MaxRetries+1),
		retry.WithInitialDelay(config.RetryBaseDelay),
		retry.WithMaxDelay(config.RetryMaxDelay),
		retry.WithJitter(0.2),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			log.Warn("retrying upstream request",
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				logger.Err(err),
			)
		}),
	)

	for _, name := range []string{EndpointStats, EndpointRanking, EndpointRoster, EndpointActivity} {
		c.breakers[name] = circuitbreaker.New(name,
			circuitbreaker.WithFailureThreshold(config.CircuitBreakerThreshold),
			circuitbreaker.WithTimeout(config.CircuitBreakerTimeout),
			circuitbreaker.WithIsFailure(shared.IsTransport),
			circuitbreaker.WithOnStateChange(func(name string, from, to circuitbreaker.State) {
				log.Warn("circuit breaker state changed",
					slog.String("endpoint", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()),
				)
			}),
		)
	}

	return c
}

// ══════════════════════════════════════════════════════════════════════════════
// OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetStats fetches a player's hiscore entry.
func (c *Client) GetStats(ctx context.Context, username string) (StatsDTO, error) {
	if strings.TrimSpace(username) == "" {
		return StatsDTO{}, shared.NewDomainError(domain, "GetStats", shared.ErrInvalidInput, "empty username")
	}

	q := url.Values{"player": {username}}
	body, err := c.fetch(ctx, EndpointStats, c.config.HiscoreBaseURL+"/m=hiscore/index_lite.ws?"+q.Encode())
	if err != nil {
		return StatsDTO{}, fmt.Errorf("get stats %s: %w", username, err)
	}

	dto, err := ParseStats(body)
	if err != nil {
		return StatsDTO{}, fmt.Errorf("get stats %s: %w", username, err)
	}
	if dto.Skipped > 0 {
		c.logger.Debug("skipped malformed hiscore lines",
			logger.Username(username),
			logger.Count("skipped", dto.Skipped),
		)
	}
	return dto, nil
}

// GetRanking fetches the top size names of a skill table, in rank order.
func (c *Client) GetRanking(ctx context.Context, tableID, size int) ([]string, error) {
	q := url.Values{
		"table":    {strconv.Itoa(tableID)},
		"category": {"0"},
		"size":     {strconv.Itoa(size)},
	}
	body, err := c.fetch(ctx, EndpointRanking, c.config.RankingBaseURL+"/ranking.json?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("get ranking table %d: %w", tableID, err)
	}

	names, err := ParseRanking(body)
	if err != nil {
		return nil, fmt.Errorf("get ranking table %d: %w", tableID, err)
	}
	return names, nil
}

// GetRoster fetches the member list of a clan. An empty body is an empty roster.
func (c *Client) GetRoster(ctx context.Context, clanName string) (RosterDTO, error) {
	if strings.TrimSpace(clanName) == "" {
		return RosterDTO{}, shared.NewDomainError(domain, "GetRoster", shared.ErrInvalidInput, "empty clan name")
	}

	q := url.Values{"clanName": {clanName}}
	body, err := c.fetch(ctx, EndpointRoster, c.config.RosterBaseURL+"/members_lite.ws?"+q.Encode())
	if err != nil {
		return RosterDTO{}, fmt.Errorf("get roster %s: %w", clanName, err)
	}

	dto := ParseRoster(body)
	if dto.Skipped > 0 {
		c.logger.Warn("skipped malformed roster lines",
			logger.Clan(clanName),
			logger.Count("skipped", dto.Skipped),
		)
	}
	return dto, nil
}

// GetActivities fetches a player's recent RuneMetrics activity feed.
func (c *Client) GetActivities(ctx context.Context, username string) ([]ActivityDTO, error) {
	if strings.TrimSpace(username) == "" {
		return nil, shared.NewDomainError(domain, "GetActivities", shared.ErrInvalidInput, "empty username")
	}

	q := url.Values{
		"user":       {username},
		"activities": {strconv.Itoa(activityFeedSize)},
	}
	body, err := c.fetch(ctx, EndpointActivity, c.config.ActivityBaseURL+"/profile?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("get activities %s: %w", username, err)
	}

	activities, err := ParseActivities(body)
	if err != nil {
		return nil, fmt.Errorf("get activities %s: %w", username, err)
	}
	return activities, nil
}

// BreakerStates reports the circuit state of every endpoint.
func (c *Client) BreakerStates() map[string]string {
	out := make(map[string]string, len(c.breakers))
	for name, cb := range c.breakers {
		out[name] = cb.State().String()
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// fetch runs one GET through the endpoint's circuit breaker with retries.
func (c *Client) fetch(ctx context.Context, endpoint, rawURL string) ([]byte, error) {
	breaker := c.breakers[endpoint]

	body, err := retry.DoWithData(ctx, c.retrier, func(ctx context.Context) ([]byte, error) {
		var body []byte
		err := breaker.Execute(ctx, func(ctx context.Context) error {
			var err error
			body, err = c.doSingleRequest(ctx, endpoint, rawURL)
			return err
		})
		return body, err
	})
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
		return nil, shared.WrapError(domain, endpoint, shared.ErrTransport, "circuit open", err)
	}
	return body, err
}

// doSingleRequest performs a single HTTP request. Transport errors, 429 and
// 5xx come back marked retryable; 404 is ErrNoData.
func (c *Client) doSingleRequest(ctx context.Context, endpoint, rawURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, shared.WrapError(domain, endpoint, shared.ErrTransport, "rate limiter wait", err)
	}

	start := time.Now()
	outcome := "transport"
	defer func() {
		c.metrics.RecordUpstream(endpoint, outcome, time.Since(start))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, shared.WrapError(domain, endpoint, shared.ErrInvalidInput, "create request", err)
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, retry.Retryable(shared.WrapError(domain, endpoint, shared.ErrTransport, "http request", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, retry.Retryable(shared.WrapError(domain, endpoint, shared.ErrTransport, "read response", err))
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		outcome = "no_data"
		return nil, shared.NewDomainError(domain, endpoint, shared.ErrNoData, "not found")
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, retry.Retryable(shared.NewDomainError(domain, endpoint, shared.ErrTransport,
			fmt.Sprintf("status %d", resp.StatusCode)))
	case resp.StatusCode >= 400:
		return nil, shared.NewDomainError(domain, endpoint, shared.ErrTransport,
			fmt.Sprintf("status %d", resp.StatusCode))
	}

	outcome = "ok"
	if len(body) == 0 {
		outcome = "empty"
	}
	return body, nil
}
