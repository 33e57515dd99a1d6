// Package main is the entry point of the Stormlight Hub API server.
//
// The server merges RuneScape hiscores with players discovered through earlier
// lookups, and serves the clan roster, clan hiscores and the clan activity feed.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/stormlight-clan/stormlight-hub/config"
	"github.com/stormlight-clan/stormlight-hub/internal/application/batch"
	"github.com/stormlight-clan/stormlight-hub/internal/application/roster"
	"github.com/stormlight-clan/stormlight-hub/internal/application/stats"
	"github.com/stormlight-clan/stormlight-hub/internal/domain/clan"
	"github.com/stormlight-clan/stormlight-hub/internal/domain/player"
	"github.com/stormlight-clan/stormlight-hub/internal/infrastructure/external/runescape"
	"github.com/stormlight-clan/stormlight-hub/internal/infrastructure/persistence/memory"
	"github.com/stormlight-clan/stormlight-hub/internal/infrastructure/persistence/redis"
	"github.com/stormlight-clan/stormlight-hub/internal/infrastructure/service"
	httpapi "github.com/stormlight-clan/stormlight-hub/internal/interface/http"
	"github.com/stormlight-clan/stormlight-hub/internal/interface/http/handlers"
	"github.com/stormlight-clan/stormlight-hub/pkg/logger"
	"github.com/stormlight-clan/stormlight-hub/pkg/metrics"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION AND LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		Format:    logger.ParseFormat(cfg.Observability.LogFormat),
		AddSource: cfg.IsDevelopment(),
	})
	slog.SetDefault(log)

	log.Info("starting Stormlight Hub",
		slog.String("env", string(cfg.App.Environment)),
		slog.String("version", cfg.App.Version),
		logger.Clan(cfg.App.ClanName),
		slog.String("cache_backend", string(cfg.Cache.Backend)),
	)

	var m *metrics.Manager
	if cfg.Observability.MetricsEnabled {
		m = metrics.NewManager(metrics.WithRuntimeCollectors())
	}

	health := handlers.NewCompositeHealthChecker(cfg.App.Version)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. STORAGE
	// ─────────────────────────────────────────────────────────────────────────
	stores, closeStores, err := openStores(ctx, cfg, health)
	if err != nil {
		return err
	}
	defer closeStores()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. UPSTREAM CLIENT
	// ─────────────────────────────────────────────────────────────────────────
	clientCfg := runescape.DefaultClientConfig()
	clientCfg.HiscoreBaseURL = cfg.RuneScape.HiscoreBaseURL
	clientCfg.RankingBaseURL = cfg.RuneScape.RankingBaseURL
	clientCfg.RosterBaseURL = cfg.RuneScape.RosterBaseURL
	clientCfg.ActivityBaseURL = cfg.RuneScape.ActivityBaseURL
	clientCfg.Timeout = cfg.RuneScape.RequestTimeout
	clientCfg.RateLimit = cfg.RuneScape.RateLimit
	clientCfg.RateBurst = cfg.RuneScape.RateBurst
	clientCfg.MaxRetries = cfg.RuneScape.MaxRetries
	clientCfg.CircuitBreakerThreshold = cfg.RuneScape.CircuitBreakerThreshold
	clientCfg.CircuitBreakerTimeout = cfg.RuneScape.CircuitBreakerTimeout
	clientCfg.UserAgent = cfg.App.Name + "/" + cfg.App.Version
	clientCfg.Logger = log
	clientCfg.Metrics = m

	client := runescape.NewClient(clientCfg)
	source := service.NewRuneScapeAdapter(client)
	health.AddCheck("upstream", handlers.NewUpstreamCheck(client))

	// ─────────────────────────────────────────────────────────────────────────
	// 4. APPLICATION SERVICES
	// ─────────────────────────────────────────────────────────────────────────
	rosterSvc := roster.NewService(cfg.App.ClanName, source, stores.roster, log)

	fetcher := stats.NewFetcher(source, stores.stats, log,
		stats.WithMaxAge(cfg.Cache.StatsMaxAge),
		stats.WithFetcherMetrics(m),
	)
	ranking := stats.NewRankingFetcher(source, fetcher, stores.ledger, log,
		stats.WithRankingSize(cfg.Collector.RankingSize),
		stats.WithResolveLimit(cfg.Collector.RankingResolveLimit),
	)
	hiscores := stats.NewHiscores(ranking, fetcher, stores.ledger, log,
		stats.WithDiscoveryConcurrency(cfg.Collector.DiscoveryConcurrency),
		stats.WithRoster(rosterSvc, batch.Options{
			Size:  cfg.Collector.ActivityBatchSize,
			Pause: cfg.Collector.ActivityBatchPause,
		}),
		stats.WithHiscoresMetrics(m),
	)

	activity := roster.NewActivityCollector(rosterSvc, source, log,
		roster.WithBatching(cfg.Collector.ActivityBatchSize, cfg.Collector.ActivityBatchPause),
		roster.WithWindow(cfg.Collector.ActivityWindow),
		roster.WithActivityMetrics(m),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 5. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	serverCfg := httpapi.DefaultConfig()
	serverCfg.Port = cfg.HTTP.Port
	serverCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	serverCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	serverCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	serverCfg.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	serverCfg.EnableMetrics = cfg.Observability.MetricsEnabled
	serverCfg.Version = cfg.App.Version

	server := httpapi.NewServer(serverCfg, httpapi.Dependencies{
		Hiscores:      hiscores,
		Roster:        rosterSvc,
		Activity:      activity,
		Logger:        log,
		Metrics:       m,
		HealthChecker: health,
	})

	errCh := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 6. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	case <-ctx.Done():
		log.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("stopped")
	return nil
}

// storeSet is the storage backend chosen by configuration.
type storeSet struct {
	stats  player.StatsCache
	ledger player.DiscoveryLedger
	roster clan.RosterStore
}

func openStores(ctx context.Context, cfg *config.Config, health *handlers.CompositeHealthChecker) (storeSet, func(), error) {
	if cfg.Cache.Backend != config.CacheRedis {
		return storeSet{
			stats:  memory.NewStatsCache(),
			ledger: memory.NewDiscoveryLedger(),
			roster: memory.NewRosterStore(),
		}, func() {}, nil
	}

	cache, err := redis.NewCache(ctx, redis.Config{
		URL:          cfg.Redis.URL,
		KeyPrefix:    cfg.Redis.KeyPrefix,
		PoolSize:     cfg.Redis.PoolSize,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		return storeSet{}, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	health.AddCheck("redis", handlers.NewPingCheck(cache))

	return storeSet{
		stats:  redis.NewStatsCache(cache, cfg.Cache.StatsTTL),
		ledger: redis.NewDiscoveryLedger(cache),
		roster: redis.NewRosterStore(cache),
	}, func() { _ = cache.Close() }, nil
}
