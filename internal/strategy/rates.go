package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/rcabello/lendbot/internal/ports"
)

// Observer extracts rate signals from funding-market candles.
type Observer struct {
	market ports.MarketData
	symbol string
}

// NewObserver creates an Observer for one funding symbol.
func NewObserver(market ports.MarketData, symbol string) *Observer {
	return &Observer{market: market, symbol: symbol}
}

// HighestRate returns the maximum high among candles with traded volume in
// the window. ok is false when nothing traded: absence of a signal, which
// callers must not conflate with a rate of zero. A zero end means "now".
func (o *Observer) HighestRate(ctx context.Context, period int, timeframe string, start, end time.Time) (rate float64, ok bool, err error) {
	candles, err := o.market.FundingCandles(ctx, o.symbol, period, timeframe, start, end)
	if err != nil {
		return 0, false, fmt.Errorf("strategy.HighestRate: p%d candles: %w", period, err)
	}

	for _, c := range candles {
		if c.Volume <= 0 {
			continue
		}
		if !ok || c.High > rate {
			rate = c.High
			ok = true
		}
	}
	return rate, ok, nil
}
