package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rcabello/lendbot/config"
	"github.com/rcabello/lendbot/internal/adapters/bitfinex"
	"github.com/rcabello/lendbot/internal/adapters/notify"
	"github.com/rcabello/lendbot/internal/adapters/storage"
	"github.com/rcabello/lendbot/internal/domain"
	"github.com/rcabello/lendbot/internal/engine"
	"github.com/rcabello/lendbot/internal/ports"
	"github.com/rcabello/lendbot/internal/strategy"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one reconciliation cycle and exit")
	statsNow := flag.Bool("stats-now", false, "run one stats cycle and exit")
	dryRun := flag.Bool("dry-run", false, "plan and log actions without sending them")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print stats as a full table")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "err", err)
		os.Exit(1)
	}

	slog.Info("lendbot starting",
		"config", *configPath,
		"symbol", cfg.Funding.Symbol,
		"policy", cfg.Strategy.Policy,
		"interval", cfg.ReconcileInterval(),
		"dry_run", *dryRun,
		"once", *once,
	)

	client := bitfinex.NewClient(cfg.Exchange.BaseURL, cfg.Exchange.APIKey, cfg.Exchange.APISecret)

	var recorder ports.Recorder
	if cfg.Storage.DSN != "" {
		store, err := storage.NewSQLiteRecorder(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer store.Close()
		recorder = store
	}

	notifier := notify.NewConsole(*table)
	selector := buildSelector(cfg, client)

	eng := engine.New(client, client, selector, recorder, notifier, engine.Config{
		Symbol:            cfg.Funding.Symbol,
		Currency:          cfg.Funding.Currency,
		MinOfferSize:      cfg.Funding.MinOfferSize,
		MinTradable:       cfg.Funding.MinTradable,
		MaxOfferAmount:    cfg.Funding.MaxOfferAmount,
		KeepFRROffers:     cfg.Funding.KeepFRROffers,
		PlaceFRROffer:     cfg.Funding.PlaceFRROffer,
		FRRPeriod:         cfg.Funding.FRRPeriod,
		FeeRate:           cfg.Funding.FeeRate,
		DeductFees:        cfg.Funding.DeductFees,
		ReconcileInterval: cfg.ReconcileInterval(),
		StatsInterval:     cfg.StatsInterval(),
		DryRun:            *dryRun,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch {
	case *statsNow:
		runStatsOnce(ctx, eng, notifier)
	case *once:
		runReconcileOnce(ctx, eng, notifier, recorder)
	default:
		if err := eng.Run(ctx); err != nil {
			slog.Error("engine exited with error", "err", err)
			os.Exit(1)
		}
	}

	slog.Info("lendbot stopped cleanly")
}

func runReconcileOnce(ctx context.Context, eng *engine.Engine, notifier ports.Notifier, recorder ports.Recorder) {
	rec, err := eng.RunReconcileOnce(ctx)
	if err != nil {
		slog.Error("reconcile cycle failed", "err", err)
		os.Exit(1)
	}
	if err := notifier.NotifyCycle(ctx, *rec); err != nil {
		slog.Warn("notifier error", "err", err)
	}
	if recorder != nil {
		if err := recorder.SaveCycle(ctx, *rec); err != nil {
			slog.Warn("recorder error", "err", err)
		}
	}
}

func runStatsOnce(ctx context.Context, eng *engine.Engine, notifier ports.Notifier) {
	stats, err := eng.RunStatsOnce(ctx)
	if err == domain.ErrNoCredits {
		slog.Info("no active funding credits")
		return
	}
	if err != nil {
		slog.Error("stats cycle failed", "err", err)
		os.Exit(1)
	}
	if err := notifier.NotifyStats(ctx, *stats); err != nil {
		slog.Warn("notifier error", "err", err)
	}
}

func buildSelector(cfg *config.Config, client *bitfinex.Client) strategy.Selector {
	obs := strategy.NewObserver(client, cfg.Funding.Symbol)

	switch cfg.Strategy.Policy {
	case "tiered":
		return strategy.NewTieredSelector(obs, strategy.TieredConfig{
			Min30DayRate: cfg.Strategy.Tiered.Min30DayRate,
			Min7DayRate:  cfg.Strategy.Tiered.Min7DayRate,
			MinMidRate:   cfg.Strategy.Tiered.MinMidRate,
			MinShortRate: cfg.Strategy.Tiered.MinShortRate,
			FloorRate:    cfg.Strategy.Tiered.FloorRate,
			Lookback:     cfg.TieredLookback(),
			Timeframe:    cfg.Strategy.Tiered.Timeframe,
		})
	default:
		return strategy.NewAnnualizedSelector(obs, strategy.AnnualizedConfig{
			MinRate:             cfg.Strategy.Annualized.MinRate,
			RateIncrementPerDay: cfg.Strategy.Annualized.RateIncrementPerDay,
			Lookback:            cfg.AnnualizedLookback(),
			Timeframe:           cfg.Strategy.Annualized.Timeframe,
		})
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
