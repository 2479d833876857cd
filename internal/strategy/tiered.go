package strategy

import (
	"context"
	"log/slog"
	"time"

	"github.com/rcabello/lendbot/internal/domain"
)

// TieredConfig tunes the period-bucket policy. Each bucket has its own
// minimum acceptable daily rate; FloorRate backs the terminal fallback.
type TieredConfig struct {
	Min30DayRate float64
	Min7DayRate  float64
	MinMidRate   float64 // 4-6 day bucket
	MinShortRate float64 // 2-3 day bucket
	FloorRate    float64
	Lookback     time.Duration // candle window, default 15m
	Timeframe    string        // candle granularity, default "1m"
}

// DefaultTieredConfig returns conservative bucket minimums.
func DefaultTieredConfig() TieredConfig {
	return TieredConfig{
		Min30DayRate: 0.0005,
		Min7DayRate:  0.0003,
		MinMidRate:   0.0002,
		MinShortRate: 0.00015,
		FloorRate:    0.0001,
		Lookback:     15 * time.Minute,
		Timeframe:    "1m",
	}
}

// bucketRule is one entry in the cascade: a set of candidate periods and the
// minimum rate the best of them must clear.
type bucketRule struct {
	name    string
	periods []int
	minRate float64
}

// TieredSelector evaluates bucket rules in fixed priority order and takes
// the first that succeeds. The 2-3 day bucket is terminal: when even it
// fails, the selector falls back to the floor rate at period 2, so Select
// always produces a strategy.
type TieredSelector struct {
	obs   *Observer
	cfg   TieredConfig
	rules []bucketRule
}

// NewTieredSelector builds the rule cascade from the config.
func NewTieredSelector(obs *Observer, cfg TieredConfig) *TieredSelector {
	if cfg.Lookback <= 0 {
		cfg.Lookback = 15 * time.Minute
	}
	if cfg.Timeframe == "" {
		cfg.Timeframe = "1m"
	}
	return &TieredSelector{
		obs: obs,
		cfg: cfg,
		rules: []bucketRule{
			{name: "30-day", periods: []int{30}, minRate: cfg.Min30DayRate},
			{name: "7-day", periods: []int{7}, minRate: cfg.Min7DayRate},
			{name: "4-6-day", periods: []int{4, 5, 6}, minRate: cfg.MinMidRate},
			{name: "2-3-day", periods: []int{2, 3}, minRate: cfg.MinShortRate},
		},
	}
}

// Select implements Selector.
func (s *TieredSelector) Select(ctx context.Context) (domain.FundingStrategy, error) {
	start := time.Now().Add(-s.cfg.Lookback)

	for _, rule := range s.rules {
		strat, ok, err := s.evaluate(ctx, rule, start)
		if err != nil {
			return domain.FundingStrategy{}, err
		}
		if ok {
			slog.Debug("tiered: bucket selected",
				"bucket", rule.name, "rate", strat.Rate, "period", strat.Period)
			return strat, nil
		}
	}

	slog.Debug("tiered: no bucket qualified, falling back to floor",
		"floor", s.cfg.FloorRate)
	return domain.FundingStrategy{
		Type:   domain.OfferTypeLimit,
		Rate:   s.cfg.FloorRate,
		Period: 2,
	}, nil
}

// evaluate picks the best observed rate among the rule's periods and checks
// it against the rule's minimum. Periods with no traded volume contribute no
// candidate.
func (s *TieredSelector) evaluate(ctx context.Context, rule bucketRule, start time.Time) (domain.FundingStrategy, bool, error) {
	var bestRate float64
	bestPeriod := 0

	for _, period := range rule.periods {
		rate, ok, err := s.obs.HighestRate(ctx, period, s.cfg.Timeframe, start, time.Time{})
		if err != nil {
			return domain.FundingStrategy{}, false, err
		}
		if !ok {
			continue
		}
		if bestPeriod == 0 || rate > bestRate {
			bestRate = rate
			bestPeriod = period
		}
	}

	if bestPeriod == 0 || bestRate < rule.minRate {
		return domain.FundingStrategy{}, false, nil
	}
	return domain.FundingStrategy{
		Type:   domain.OfferTypeLimit,
		Rate:   bestRate,
		Period: bestPeriod,
	}, true, nil
}
