// Package http serves the hub's JSON API: merged hiscores, player lookups, the
// clan roster, clan hiscores and the clan activity feed.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/stormlight-clan/stormlight-hub/internal/application/roster"
	"github.com/stormlight-clan/stormlight-hub/internal/application/stats"
	"github.com/stormlight-clan/stormlight-hub/internal/domain/clan"
	"github.com/stormlight-clan/stormlight-hub/internal/domain/player"
	"github.com/stormlight-clan/stormlight-hub/internal/interface/http/handlers"
	"github.com/stormlight-clan/stormlight-hub/pkg/logger"
	"github.com/stormlight-clan/stormlight-hub/pkg/metrics"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	// Host - address to bind (default: all interfaces).
	Host string

	// Port - port to listen on (default: 8080).
	Port int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// MaxHeaderBytes - maximum size of request headers.
	MaxHeaderBytes int

	// EnableCORS - enable CORS headers.
	EnableCORS bool

	// AllowedOrigins - allowed origins for CORS; "*" allows any.
	AllowedOrigins []string

	// EnableMetrics - expose /metrics.
	EnableMetrics bool

	// RateLimitPerMinute - requests per minute per client IP (0 = disabled).
	RateLimitPerMinute int

	// Version is reported by the root and health endpoints.
	Version string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
		EnableCORS:     true,
		AllowedOrigins: []string{"*"},
		EnableMetrics:  true,
	}
}

// Address returns the server address string.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, fmt.Sprint(c.Port))
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// HiscoresService is the read side of player stats.
type HiscoresService interface {
	GetRankedPage(ctx context.Context, q stats.RankedPageQuery) stats.RankedPage
	SearchPage(ctx context.Context, username string, q stats.RankedPageQuery) stats.RankedPage
	SearchPlayer(ctx context.Context, username string) player.FetchResult
	GetClanHiscores(ctx context.Context, skillName string) stats.ClanHiscores
}

// RosterService lists clan members.
type RosterService interface {
	ClanName() string
	GetRoster(ctx context.Context, search string, sortBy clan.SortBy) []clan.RosterMember
}

// ActivityService pages the clan activity feed.
type ActivityService interface {
	GetActivityPage(ctx context.Context, page, pageSize int) roster.ActivityPage
}

// Dependencies contains all dependencies required by HTTP handlers.
type Dependencies struct {
	Hiscores HiscoresService
	Roster   RosterService
	Activity ActivityService

	Logger  *slog.Logger
	Metrics *metrics.Manager

	// HealthChecker reports backend health; nil means always healthy.
	HealthChecker handlers.HealthChecker
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server represents the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	httpServer *http.Server
	router     *http.ServeMux
	handler    http.Handler
	logger     *slog.Logger

	rateLimiter *rateLimiter

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration and dependencies.
func NewServer(config Config, deps Dependencies) *Server {
	s := &Server{
		config: config,
		deps:   deps,
		router: http.NewServeMux(),
		logger: deps.Logger,
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With(logger.Component("http"))

	if config.RateLimitPerMinute > 0 {
		s.rateLimiter = newRateLimiter(config.RateLimitPerMinute)
	}

	s.setupRoutes()
	s.handler = s.buildMiddlewareChain(s.router)

	s.httpServer = &http.Server{
		Addr:           config.Address(),
		Handler:        s.handler,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	return s
}

// Handler returns the fully wrapped handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Health & Status Endpoints
	// ─────────────────────────────────────────────────────────────────────────
	s.handle("GET /health", s.handleHealth)
	s.handle("GET /healthz", s.handleHealth)
	s.handle("GET /live", s.handleLive)
	s.handle("GET /{$}", s.handleRoot)

	// ─────────────────────────────────────────────────────────────────────────
	// Hiscores
	// ─────────────────────────────────────────────────────────────────────────
	s.handle("GET /api/hiscores", s.handleHiscores)
	s.handle("GET /api/player/{username}/stats", s.handlePlayerStats)

	// ─────────────────────────────────────────────────────────────────────────
	// Clan
	// ─────────────────────────────────────────────────────────────────────────
	s.handle("GET /api/clan/members", s.handleClanMembers)
	s.handle("GET /api/clan/hiscores", s.handleClanHiscores)
	s.handle("GET /api/clan/activity", s.handleClanActivity)

	if s.config.EnableMetrics && s.deps.Metrics != nil {
		s.router.Handle("GET /metrics", s.deps.Metrics.Handler())
	}
}

// handle registers fn and records per-route metrics under the route pattern.
func (s *Server) handle(pattern string, fn http.HandlerFunc) {
	s.router.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := wrapResponseWriter(w)
		fn(rw, r)
		s.deps.Metrics.RecordHTTPRequest(r.Method, r.Pattern, rw.statusCode, time.Since(start))
	}))
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", slog.String("address", s.config.Address()))

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

// Address returns the server address.
func (s *Server) Address() string {
	return s.config.Address()
}
