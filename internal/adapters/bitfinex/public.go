package bitfinex

import (
	"context"
	"fmt"
	"time"

	"github.com/rcabello/lendbot/internal/domain"
)

// candleKey builds the v2 candle market key for a funding period, e.g.
// "trade:5m:fUSD:p2".
func candleKey(symbol string, period int, timeframe string) string {
	return fmt.Sprintf("trade:%s:%s:p%d", timeframe, symbol, period)
}

// FundingCandles implements ports.MarketData. Candles come back as
// [MTS, OPEN, CLOSE, HIGH, LOW, VOLUME] arrays, newest first; sort=1 flips
// them to oldest first. A zero end means "up to now".
func (c *Client) FundingCandles(ctx context.Context, symbol string, period int, timeframe string, start, end time.Time) ([]domain.Candle, error) {
	path := fmt.Sprintf("/v2/candles/%s/hist?sort=1&limit=%d&start=%d",
		candleKey(symbol, period, timeframe), maxCandles, start.UnixMilli())
	if !end.IsZero() {
		path += fmt.Sprintf("&end=%d", end.UnixMilli())
	}

	var raw [][]float64
	if err := c.get(ctx, path, &raw); err != nil {
		return nil, fmt.Errorf("bitfinex.FundingCandles: %s p%d: %w", symbol, period, err)
	}

	candles := make([]domain.Candle, 0, len(raw))
	for _, row := range raw {
		candle, err := mapCandle(row)
		if err != nil {
			return nil, fmt.Errorf("bitfinex.FundingCandles: %w", err)
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

// Ticker implements ports.MarketData. The funding ticker is
// [FRR, BID, BID_PERIOD, BID_SIZE, ASK, ASK_PERIOD, ASK_SIZE, ..., LAST, ...].
func (c *Client) Ticker(ctx context.Context, symbol string) (domain.Ticker, error) {
	var raw []float64
	if err := c.get(ctx, "/v2/ticker/"+symbol, &raw); err != nil {
		return domain.Ticker{}, fmt.Errorf("bitfinex.Ticker: %s: %w", symbol, err)
	}
	return mapTicker(raw)
}

const maxCandles = 500
