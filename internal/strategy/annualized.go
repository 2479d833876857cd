package strategy

import (
	"context"
	"log/slog"
	"time"

	"github.com/rcabello/lendbot/internal/domain"
)

// annualizedPeriods is the fixed ordered set of lending periods the
// annualized policy evaluates. On ties in annualized yield the earlier
// period wins.
var annualizedPeriods = []int{2, 3, 4, 5, 6, 7, 8, 10, 14, 15, 16, 20, 21, 22, 24, 30}

// AnnualizedConfig tunes the annualized-yield policy.
type AnnualizedConfig struct {
	MinRate             float64       // absolute floor daily rate
	RateIncrementPerDay float64       // extra rate demanded per day beyond period 2
	Lookback            time.Duration // candle window, default 1h
	Timeframe           string        // candle granularity, default "5m"
}

// DefaultAnnualizedConfig mirrors the production constants.
func DefaultAnnualizedConfig() AnnualizedConfig {
	return AnnualizedConfig{
		MinRate:             0.0001,
		RateIncrementPerDay: 0.00003,
		Lookback:            time.Hour,
		Timeframe:           "5m",
	}
}

// AnnualizedSelector picks, across all allowed periods, the rate/period pair
// with the highest compounded annualized yield among those clearing the
// per-period threshold. Longer money must pay for its lock-up: each extra
// day of period raises the bar by RateIncrementPerDay.
type AnnualizedSelector struct {
	obs *Observer
	cfg AnnualizedConfig
}

// NewAnnualizedSelector builds the policy on top of a rate observer.
func NewAnnualizedSelector(obs *Observer, cfg AnnualizedConfig) *AnnualizedSelector {
	if cfg.Lookback <= 0 {
		cfg.Lookback = time.Hour
	}
	if cfg.Timeframe == "" {
		cfg.Timeframe = "5m"
	}
	return &AnnualizedSelector{obs: obs, cfg: cfg}
}

// Select implements Selector.
func (s *AnnualizedSelector) Select(ctx context.Context) (domain.FundingStrategy, error) {
	start := time.Now().Add(-s.cfg.Lookback)

	// The floor is the configured minimum, raised to the observed 2-day rate
	// when the short end is already trading above it.
	floor, ok, err := s.obs.HighestRate(ctx, 2, s.cfg.Timeframe, start, time.Time{})
	if err != nil {
		return domain.FundingStrategy{}, err
	}
	if !ok || floor < s.cfg.MinRate {
		floor = s.cfg.MinRate
	}

	best := domain.FundingStrategy{Type: domain.OfferTypeLimit, Rate: floor, Period: 2}
	bestAnnual := -1.0
	qualified := false

	for _, period := range annualizedPeriods {
		rate, ok, err := s.obs.HighestRate(ctx, period, s.cfg.Timeframe, start, time.Time{})
		if err != nil {
			return domain.FundingStrategy{}, err
		}
		if !ok {
			// No volume traded for this period in the window: no candidate.
			continue
		}
		if rate < floor+float64(period-2)*s.cfg.RateIncrementPerDay {
			continue
		}

		annual := domain.AnnualRate(rate, period)
		if annual > bestAnnual {
			best = domain.FundingStrategy{Type: domain.OfferTypeLimit, Rate: rate, Period: period}
			bestAnnual = annual
			qualified = true
		}
	}

	if !qualified {
		slog.Debug("annualized: no period qualified, falling back to floor",
			"floor", floor)
	} else {
		slog.Debug("annualized: selected",
			"rate", best.Rate, "period", best.Period, "annual", bestAnnual)
	}
	return best, nil
}
