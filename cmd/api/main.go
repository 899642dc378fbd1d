// Package main is the entry point for the shift simulator API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/pkordes/shiftsim/internal/config"
	"github.com/pkordes/shiftsim/internal/handler"
	"github.com/pkordes/shiftsim/internal/hexgrid"
	"github.com/pkordes/shiftsim/internal/metrics"
	"github.com/pkordes/shiftsim/internal/middleware"
	"github.com/pkordes/shiftsim/internal/repo"
	"github.com/pkordes/shiftsim/internal/scoring"
	"github.com/pkordes/shiftsim/internal/service"
	"github.com/pkordes/shiftsim/migrations"
)

// maxBodyBytes bounds request bodies. Only the cache reset accepts POST and
// it ignores its body.
const maxBodyBytes = 64 << 10

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	// --- Database ---------------------------------------------------------
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Verify the DB is reachable before accepting traffic.
	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connection established")

	if cfg.Migrate {
		sqlDB := stdlib.OpenDBFromPool(pool)
		n, err := migrations.Up(ctx, sqlDB)
		_ = sqlDB.Close()
		if err != nil {
			slog.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
		slog.Info("migrations applied", "count", n)
	}

	// --- Scoring ----------------------------------------------------------
	var cache scoring.Cache = scoring.NewMemoryCache()
	if cfg.Scorer.CacheRedisURL != "" {
		rdb, err := scoring.OpenRedis(ctx, cfg.Scorer.CacheRedisURL)
		if err != nil {
			slog.Error("failed to connect to score cache", "error", err)
			os.Exit(1)
		}
		defer func() { _ = rdb.Close() }()
		cache = scoring.NewRedisCache(rdb, scoring.DefaultRedisKey)
		slog.Info("score cache backed by redis")
	}
	scorer := scoring.NewClient(scoring.Options{
		BaseURL:        cfg.Scorer.BaseURL,
		ConnectTimeout: cfg.Scorer.ConnectTimeout,
		ReadTimeout:    cfg.Scorer.ReadTimeout,
		RateLimit:      cfg.Scorer.RateLimit,
		Cache:          cache,
		Logger:         logger,
	})

	// --- Services ---------------------------------------------------------
	loc, err := cfg.Simulation.Location()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}
	trips := repo.NewTripLog(pool)
	hex := hexgrid.NewH3()
	baseline := service.NewBaselineService(trips, loc, cfg.Simulation.RestThresholdMinutes)
	simulator := service.NewSimulationService(baseline, trips, hex, scorer, service.SimulationDefaults{
		RestThresholdMinutes: cfg.Simulation.RestThresholdMinutes,
		LookaheadMinutes:     cfg.Simulation.LookaheadMinutes,
		ToleranceMinutes:     cfg.Simulation.ToleranceMinutes,
		RingK:                cfg.Simulation.HexRingK,
	}, logger)

	metrics.RegisterDefault()

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Metrics →
	// Recoverer → CORS → body limit.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(middleware.NewMetricsHandler())
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(maxBodyBytes))

	srvHandler := handler.NewServer(handler.Deps{
		Simulator:    simulator,
		Baseline:     baseline,
		Scorer:       scorer,
		Hex:          hex,
		DB:           pool,
		DefaultRingK: cfg.Simulation.HexRingK,
		Logger:       logger,
	})
	r.Mount("/", srvHandler.Routes())

	// --- HTTP Server ------------------------------------------------------
	// A simulated day can issue many scoring calls, so writes get more room
	// than reads.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "timezone", loc.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
