package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rcabello/lendbot/internal/domain"
)

// RunReconcileOnce executes one full reconciliation cycle:
// strategy → cancel mismatches → consolidate dust → (optional) floating
// offer → place offers. Individual cancel/submit failures are logged and
// skipped; the next cycle re-derives everything from a fresh snapshot, so
// nothing here needs an in-cycle retry.
func (e *Engine) RunReconcileOnce(ctx context.Context) (*domain.CycleRecord, error) {
	strat, err := e.selector.Select(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine.RunReconcileOnce: select strategy: %w", err)
	}

	rec := newCycleRecord(strat, e.cfg.DryRun)
	slog.Info("reconcile: cycle start",
		"cycle", rec.ID,
		"type", strat.Type, "rate", strat.Rate, "period", strat.Period)

	e.cancelMismatched(ctx, strat, rec)
	e.consolidateDust(ctx, rec)
	if e.cfg.PlaceFRROffer {
		e.ensureFRROffer(ctx, rec)
	}
	if err := e.placeOffers(ctx, strat, rec); err != nil {
		return nil, err
	}

	rec.Duration = time.Since(rec.StartedAt)
	slog.Info("reconcile: cycle complete",
		"cycle", rec.ID,
		"cancelled", rec.Cancelled,
		"placed", rec.Placed,
		"placed_amount", rec.PlacedAmount,
		"duration", rec.Duration.Round(time.Millisecond),
	)
	return rec, nil
}

// cancelMismatched cancels every live offer that does not rest at exactly
// the target strategy. Floating-rate offers are exempt when configured.
// Each cancellation is independent: a failure is logged and the loop moves on.
func (e *Engine) cancelMismatched(ctx context.Context, strat domain.FundingStrategy, rec *domain.CycleRecord) {
	offers, err := e.desk.ActiveOffers(ctx, e.cfg.Symbol)
	if err != nil {
		slog.Warn("reconcile: list offers failed", "err", err)
		return
	}

	for _, offer := range offers {
		if e.cfg.KeepFRROffers && offer.Type == domain.OfferTypeFRRDelta {
			continue
		}
		if strat.IsUsedBy(offer) {
			continue
		}
		if e.cancelOffer(ctx, offer, "strategy mismatch") {
			rec.Cancelled++
		}
	}
}

// consolidateDust frees a stuck sliver of capital: when the available
// balance is non-zero but too small to place an offer, cancelling the
// smallest live offer returns its amount to the wallet so the next cycle can
// lend the combined sum. This is liquidity recovery, not strategy matching.
func (e *Engine) consolidateDust(ctx context.Context, rec *domain.CycleRecord) {
	balance, err := e.fundingBalance(ctx)
	if err != nil {
		slog.Warn("reconcile: read balance failed", "err", err)
		return
	}
	if balance <= e.cfg.MinTradable || balance >= e.cfg.MinOfferSize {
		return
	}

	offers, err := e.desk.ActiveOffers(ctx, e.cfg.Symbol)
	if err != nil {
		slog.Warn("reconcile: list offers failed", "err", err)
		return
	}

	var smallest *domain.FundingOffer
	for i := range offers {
		if e.cfg.KeepFRROffers && offers[i].Type == domain.OfferTypeFRRDelta {
			continue
		}
		if smallest == nil || offers[i].Amount < smallest.Amount {
			smallest = &offers[i]
		}
	}
	if smallest == nil {
		return
	}

	slog.Info("reconcile: dust balance, consolidating",
		"balance", balance, "offer", smallest.ID, "amount", smallest.Amount)
	if e.cancelOffer(ctx, *smallest, "dust consolidation") {
		rec.Cancelled++
	}
}

// ensureFRROffer keeps exactly one floating-rate offer resting when the
// balance allows it.
func (e *Engine) ensureFRROffer(ctx context.Context, rec *domain.CycleRecord) {
	balance, err := e.fundingBalance(ctx)
	if err != nil {
		slog.Warn("reconcile: read balance failed", "err", err)
		return
	}
	if balance < e.cfg.MinOfferSize {
		return
	}

	offers, err := e.desk.ActiveOffers(ctx, e.cfg.Symbol)
	if err != nil {
		slog.Warn("reconcile: list offers failed", "err", err)
		return
	}
	for _, offer := range offers {
		if offer.Type == domain.OfferTypeFRRDelta {
			return
		}
	}

	amount := balance
	if amount > e.cfg.MaxOfferAmount {
		amount = e.cfg.MaxOfferAmount
	}
	req := domain.OfferRequest{
		Symbol: e.cfg.Symbol,
		Type:   domain.OfferTypeFRRDelta,
		Amount: amount,
		Rate:   0,
		Period: e.cfg.FRRPeriod,
	}
	if e.submitOffer(ctx, req, "floating offer") {
		rec.Placed++
		rec.PlacedAmount += amount
	}
}

// placeOffers spreads the available balance across offers at the target
// strategy, each capped at MaxOfferAmount. The final offer absorbs the
// remainder once one more full-size offer would leave less than the minimum
// behind. The balance is tracked locally between submissions and re-read
// next cycle. A submit failure ends the loop:
// the remaining submissions would hit the same endpoint with the same
// parameters, so they are retried next cycle instead.
func (e *Engine) placeOffers(ctx context.Context, strat domain.FundingStrategy, rec *domain.CycleRecord) error {
	balance, err := e.fundingBalance(ctx)
	if err != nil {
		return fmt.Errorf("engine.placeOffers: %w", err)
	}

	for balance >= e.cfg.MinOfferSize {
		amount := e.cfg.MaxOfferAmount
		if balance-e.cfg.MaxOfferAmount < e.cfg.MinOfferSize {
			amount = balance
		}

		req := domain.OfferRequest{
			Symbol: e.cfg.Symbol,
			Type:   strat.Type,
			Amount: amount,
			Rate:   strat.Rate,
			Period: strat.Period,
		}
		if !e.submitOffer(ctx, req, "strategy offer") {
			break
		}
		rec.Placed++
		rec.PlacedAmount += amount
		balance -= amount
	}
	return nil
}

// cancelOffer cancels one offer, honoring dry-run. Returns whether the
// cancellation was performed (or planned).
func (e *Engine) cancelOffer(ctx context.Context, offer domain.FundingOffer, reason string) bool {
	if e.cfg.DryRun {
		slog.Info("reconcile: would cancel offer",
			"offer", offer.ID, "type", offer.Type,
			"rate", offer.Rate, "period", offer.Period,
			"amount", offer.Amount, "reason", reason)
		return true
	}
	if err := e.desk.CancelOffer(ctx, offer.ID); err != nil {
		slog.Warn("reconcile: cancel failed",
			"offer", offer.ID, "reason", reason, "err", err)
		return false
	}
	slog.Info("reconcile: cancelled offer",
		"offer", offer.ID, "type", offer.Type,
		"rate", offer.Rate, "period", offer.Period,
		"amount", offer.Amount, "reason", reason)
	return true
}

// submitOffer submits one offer, honoring dry-run. Returns whether the
// submission was performed (or planned).
func (e *Engine) submitOffer(ctx context.Context, req domain.OfferRequest, reason string) bool {
	if e.cfg.DryRun {
		slog.Info("reconcile: would submit offer",
			"type", req.Type, "rate", req.Rate,
			"period", req.Period, "amount", req.Amount, "reason", reason)
		return true
	}
	if err := e.desk.SubmitOffer(ctx, req); err != nil {
		slog.Warn("reconcile: submit failed",
			"type", req.Type, "amount", req.Amount, "reason", reason, "err", err)
		return false
	}
	slog.Info("reconcile: submitted offer",
		"type", req.Type, "rate", req.Rate,
		"period", req.Period, "amount", req.Amount, "reason", reason)
	return true
}
