package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rcabello/lendbot/internal/domain"
)

// RunStatsOnce aggregates the currently-lent capital and its effective
// yield. Credits settled at the floating rate report a contractual rate of
// zero and are reinterpreted at the current FRR. Returns
// domain.ErrNoCredits when nothing is lent, never a NaN average.
func (e *Engine) RunStatsOnce(ctx context.Context) (*domain.FundingStats, error) {
	ticker, err := e.market.Ticker(ctx, e.cfg.Symbol)
	if err != nil {
		return nil, fmt.Errorf("engine.RunStatsOnce: ticker: %w", err)
	}

	credits, err := e.desk.Credits(ctx, e.cfg.Symbol)
	if err != nil {
		return nil, fmt.Errorf("engine.RunStatsOnce: credits: %w", err)
	}

	var totalAmount, totalEarn float64
	for _, credit := range credits {
		rate := credit.Rate
		if rate == 0 {
			rate = ticker.FRR
		}
		totalAmount += credit.Amount
		totalEarn += rate * credit.Amount
	}

	if totalAmount == 0 {
		return nil, domain.ErrNoCredits
	}

	earnings := totalEarn
	if e.cfg.DeductFees {
		earnings *= 1 - e.cfg.FeeRate
	}

	return &domain.FundingStats{
		At:            time.Now().UTC(),
		TotalLent:     totalAmount,
		DailyEarnings: earnings,
		AverageRate:   totalEarn / totalAmount,
		FRR:           ticker.FRR,
		Credits:       len(credits),
	}, nil
}
