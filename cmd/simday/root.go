package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/pkordes/shiftsim/internal/config"
	"github.com/pkordes/shiftsim/internal/hexgrid"
	"github.com/pkordes/shiftsim/internal/repo"
	"github.com/pkordes/shiftsim/internal/scoring"
	"github.com/pkordes/shiftsim/internal/service"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "simday",
	Short:         "Driver shift baseline and counterfactual day simulator",
	Long:          "simday reconstructs a driver's observed day from the trip log and replays it greedily against nearby offers.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML file overlaying the simulation and scorer settings")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log decisions to stderr")

	rootCmd.AddCommand(baselineCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(ringCmd)
	rootCmd.AddCommand(scoreCmd)
}

// loadConfig reads the environment, then overlays the --config file when given.
func loadConfig(needDB bool) (config.Config, error) {
	load := config.LoadWithoutDatabase
	if needDB {
		load = config.Load
	}
	cfg, err := load()
	if err != nil {
		return config.Config{}, err
	}
	if configPath != "" {
		if err := cfg.ApplyFile(configPath); err != nil {
			return config.Config{}, err
		}
	}
	return cfg, nil
}

func newLogger() *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newScorer(ctx context.Context, cfg config.Config, logger *slog.Logger) (*scoring.Client, func(), error) {
	cleanup := func() {}
	var cache scoring.Cache = scoring.NewMemoryCache()
	if cfg.Scorer.CacheRedisURL != "" {
		rdb, err := scoring.OpenRedis(ctx, cfg.Scorer.CacheRedisURL)
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = func() { _ = rdb.Close() }
		cache = scoring.NewRedisCache(rdb, scoring.DefaultRedisKey)
	}
	return scoring.NewClient(scoring.Options{
		BaseURL:        cfg.Scorer.BaseURL,
		ConnectTimeout: cfg.Scorer.ConnectTimeout,
		ReadTimeout:    cfg.Scorer.ReadTimeout,
		RateLimit:      cfg.Scorer.RateLimit,
		Cache:          cache,
		Logger:         logger,
	}), cleanup, nil
}

// services is everything the database-backed commands need.
type services struct {
	baseline  *service.BaselineService
	simulator *service.SimulationService
	close     func()
}

func openServices(ctx context.Context) (services, error) {
	cfg, err := loadConfig(true)
	if err != nil {
		return services{}, err
	}
	loc, err := cfg.Simulation.Location()
	if err != nil {
		return services{}, err
	}
	logger := newLogger()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return services{}, fmt.Errorf("open database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return services{}, fmt.Errorf("connect to database: %w", err)
	}

	scorer, closeScorer, err := newScorer(ctx, cfg, logger)
	if err != nil {
		pool.Close()
		return services{}, fmt.Errorf("connect to score cache: %w", err)
	}

	trips := repo.NewTripLog(pool)
	baseline := service.NewBaselineService(trips, loc, cfg.Simulation.RestThresholdMinutes)
	simulator := service.NewSimulationService(baseline, trips, hexgrid.NewH3(), scorer, service.SimulationDefaults{
		RestThresholdMinutes: cfg.Simulation.RestThresholdMinutes,
		LookaheadMinutes:     cfg.Simulation.LookaheadMinutes,
		ToleranceMinutes:     cfg.Simulation.ToleranceMinutes,
		RingK:                cfg.Simulation.HexRingK,
	}, logger)

	return services{
		baseline:  baseline,
		simulator: simulator,
		close: func() {
			closeScorer()
			pool.Close()
		},
	}, nil
}

// parseDate accepts YYYY-MM-DD.
func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: want YYYY-MM-DD", s)
	}
	return d, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
