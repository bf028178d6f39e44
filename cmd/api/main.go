package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/splax/heatlens/internal/app/migrate"
	httpx "github.com/splax/heatlens/internal/http"
	"github.com/splax/heatlens/internal/repository"
	"github.com/splax/heatlens/internal/repository/postgres"
	rediscache "github.com/splax/heatlens/internal/repository/redis"
	"github.com/splax/heatlens/internal/service/estimate"
	"github.com/splax/heatlens/internal/service/telemetry"
	"github.com/splax/heatlens/internal/ws"
	"github.com/splax/heatlens/pkg/config"
	"github.com/splax/heatlens/pkg/logger"
)

func main() {
	cfg := config.LoadAPIConfig()
	log := logger.New("api", logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	runner, err := migrate.New(pool, cfg.DatabaseURL, cfg.MigrationsDir, log)
	if err != nil {
		log.Error("failed to configure migrations", "error", err)
		os.Exit(1)
	}
	defer runner.Close()
	if err := runner.Ping(ctx); err != nil {
		log.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	if err := runner.Ensure(ctx); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	repo := postgres.New(pool)

	var cache repository.SnapshotCache
	if addr := strings.TrimSpace(cfg.SnapshotCacheAddr); addr != "" {
		redisCache, err := rediscache.New(addr, cfg.SnapshotCachePass, cfg.SnapshotCacheDB)
		if err != nil {
			log.Warn("snapshot cache unavailable", "error", err)
		} else {
			defer redisCache.Close()
			cache = redisCache
		}
	}

	telemetrySvc := telemetry.New(repo, cache, log, telemetry.Options{
		PageLimit:   cfg.TelemetryPageLimit,
		ClickCells:  cfg.ClickMapCells,
		CacheTTL:    cfg.SnapshotCacheTTL,
		InsightDays: cfg.InsightDefaultDays,
	})
	estimator := estimate.New(cfg.ClickTargetLimit)

	insightHub := ws.NewHub()
	watcher := telemetry.NewWatcher(telemetrySvc, insightHub, log, cfg.InsightStreamEvery, cfg.InsightDefaultDays)
	go watcher.Run(ctx)

	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter.Close()
			limiter = redisLimiter
		}
	}

	if cfg.AuthDisabled {
		log.Warn("authentication disabled", "env", cfg.Environment)
	}
	router := httpx.NewRouter(log, estimator, telemetrySvc, insightHub, watcher, limiter, httpx.Settings{
		JWTSecret:    cfg.JWTSecret,
		AuthDisabled: cfg.AuthDisabled,
		MaxHTMLBytes: cfg.EstimateMaxHTMLBytes,
	}, pool.Ping)
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr, "env", cfg.Environment)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
