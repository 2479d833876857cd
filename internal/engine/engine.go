package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rcabello/lendbot/internal/domain"
	"github.com/rcabello/lendbot/internal/ports"
	"github.com/rcabello/lendbot/internal/strategy"
)

// Config holds the reconciliation and stats parameters.
type Config struct {
	Symbol   string // funding symbol, e.g. "fUSD"
	Currency string // wallet currency, e.g. "USD"

	MinOfferSize   float64 // smallest offer the exchange accepts
	MinTradable    float64 // below this the balance is ignored entirely
	MaxOfferAmount float64 // per-offer cap

	KeepFRROffers bool // exempt floating-rate offers from cancellation
	PlaceFRROffer bool // maintain one floating-rate offer
	FRRPeriod     int  // period for the floating-rate offer

	FeeRate    float64 // exchange fee on earnings
	DeductFees bool    // apply the fee multiplier in stats

	ReconcileInterval time.Duration
	StatsInterval     time.Duration

	DryRun bool // plan and log actions without sending them
}

// Engine owns the two periodic cycles: offer reconciliation and stats
// reporting. It keeps no state between cycles: every decision is re-derived
// from a fresh exchange snapshot, which is what makes failed or skipped
// actions self-correcting.
type Engine struct {
	market   ports.MarketData
	desk     ports.FundingDesk
	selector strategy.Selector
	recorder ports.Recorder // optional
	notifier ports.Notifier
	cfg      Config
}

// New wires an Engine. recorder may be nil.
func New(
	market ports.MarketData,
	desk ports.FundingDesk,
	selector strategy.Selector,
	recorder ports.Recorder,
	notifier ports.Notifier,
	cfg Config,
) *Engine {
	if cfg.MinOfferSize <= 0 {
		cfg.MinOfferSize = 150
	}
	if cfg.MinTradable <= 0 {
		cfg.MinTradable = 1
	}
	if cfg.MaxOfferAmount <= 0 {
		cfg.MaxOfferAmount = 1000
	}
	if cfg.FRRPeriod <= 0 {
		cfg.FRRPeriod = 30
	}
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = time.Minute
	}
	if cfg.StatsInterval <= 0 {
		cfg.StatsInterval = time.Hour
	}
	return &Engine{
		market:   market,
		desk:     desk,
		selector: selector,
		recorder: recorder,
		notifier: notifier,
		cfg:      cfg,
	}
}

// Run drives both cycles until the context is cancelled. Each loop is
// serial: a cycle always completes before its next tick is served, so cycles
// of the same kind never overlap. The two loops may interleave with each
// other; they only read fresh snapshots, never shared bot state.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting",
		"symbol", e.cfg.Symbol,
		"reconcile_interval", e.cfg.ReconcileInterval,
		"stats_interval", e.cfg.StatsInterval,
		"dry_run", e.cfg.DryRun,
	)

	go e.statsLoop(ctx)

	if err := e.reconcileTick(ctx); err != nil {
		slog.Error("reconcile cycle failed", "err", err)
	}

	ticker := time.NewTicker(e.cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("engine stopped")
			return nil
		case <-ticker.C:
			if err := e.reconcileTick(ctx); err != nil {
				slog.Error("reconcile cycle failed", "err", err)
			}
		}
	}
}

func (e *Engine) statsLoop(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.statsTick(ctx); err != nil {
				slog.Error("stats cycle failed", "err", err)
			}
		}
	}
}

// reconcileTick runs one reconciliation cycle and notifies/records the result.
func (e *Engine) reconcileTick(ctx context.Context) error {
	rec, err := e.RunReconcileOnce(ctx)
	if err != nil {
		return err
	}

	if err := e.notifier.NotifyCycle(ctx, *rec); err != nil {
		slog.Warn("notifier error", "err", err)
	}
	if e.recorder != nil {
		if err := e.recorder.SaveCycle(ctx, *rec); err != nil {
			slog.Warn("recorder error", "err", err)
		}
	}
	return nil
}

// statsTick runs one stats cycle and notifies/records the result. A cycle
// with no active credits is reported as idle, not as a failure.
func (e *Engine) statsTick(ctx context.Context) error {
	stats, err := e.RunStatsOnce(ctx)
	if err == domain.ErrNoCredits {
		slog.Info("stats: no active funding credits")
		return nil
	}
	if err != nil {
		return err
	}

	if err := e.notifier.NotifyStats(ctx, *stats); err != nil {
		slog.Warn("notifier error", "err", err)
	}
	if e.recorder != nil {
		if err := e.recorder.SaveStats(ctx, *stats); err != nil {
			slog.Warn("recorder error", "err", err)
		}
	}
	return nil
}

// fundingBalance returns the available balance of the funding wallet for the
// configured currency. A missing wallet reads as zero.
func (e *Engine) fundingBalance(ctx context.Context) (float64, error) {
	wallets, err := e.desk.Wallets(ctx)
	if err != nil {
		return 0, fmt.Errorf("engine.fundingBalance: %w", err)
	}
	for _, w := range wallets {
		if w.Type == "funding" && w.Currency == e.cfg.Currency {
			return w.BalanceAvailable, nil
		}
	}
	return 0, nil
}

func newCycleRecord(strat domain.FundingStrategy, dryRun bool) *domain.CycleRecord {
	return &domain.CycleRecord{
		ID:        uuid.New().String(),
		StartedAt: time.Now().UTC(),
		Strategy:  strat,
		DryRun:    dryRun,
	}
}
