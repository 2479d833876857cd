package strategy_test

import (
	"context"
	"testing"

	"github.com/rcabello/lendbot/internal/domain"
	"github.com/rcabello/lendbot/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTiered(market *fakeMarket) *strategy.TieredSelector {
	return strategy.NewTieredSelector(
		strategy.NewObserver(market, "fUSD"),
		strategy.DefaultTieredConfig(),
	)
}

func TestTiered_ThirtyDayBucketWinsRegardlessOfLowerBuckets(t *testing.T) {
	// Every lower bucket trades far richer, but bucket order is strict.
	sel := newTiered(marketWithRates(map[int]float64{
		30: 0.0006, // ≥ min 0.0005 → selected
		7:  0.0030,
		5:  0.0030,
		2:  0.0030,
	}))

	strat, err := sel.Select(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.FundingStrategy{
		Type:   domain.OfferTypeLimit,
		Rate:   0.0006,
		Period: 30,
	}, strat)
}

func TestTiered_CascadesToSevenDayBucket(t *testing.T) {
	sel := newTiered(marketWithRates(map[int]float64{
		30: 0.0001, // below min 0.0005
		7:  0.0004, // ≥ min 0.0003 → selected
	}))

	strat, err := sel.Select(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 7, strat.Period)
	assert.Equal(t, 0.0004, strat.Rate)
}

func TestTiered_MidBucketPicksBestOfFourToSix(t *testing.T) {
	sel := newTiered(marketWithRates(map[int]float64{
		4: 0.00030,
		5: 0.00040, // best of the bucket, ≥ min 0.0002
		6: 0.00035,
	}))

	strat, err := sel.Select(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, strat.Period)
	assert.Equal(t, 0.00040, strat.Rate)
}

func TestTiered_ShortBucketPicksBestOfTwoAndThree(t *testing.T) {
	sel := newTiered(marketWithRates(map[int]float64{
		2: 0.00020,
		3: 0.00025, // ≥ min 0.00015 → selected
	}))

	strat, err := sel.Select(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, strat.Period)
	assert.Equal(t, 0.00025, strat.Rate)
}

func TestTiered_TerminalFallbackAlwaysProduces(t *testing.T) {
	// No market traded at all: the cascade must still end in a strategy.
	sel := newTiered(&fakeMarket{candles: map[int][]domain.Candle{}})

	strat, err := sel.Select(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.FundingStrategy{
		Type:   domain.OfferTypeLimit,
		Rate:   0.0001,
		Period: 2,
	}, strat)
}

func TestTiered_ShortBucketBelowMinFallsToFloor(t *testing.T) {
	sel := newTiered(marketWithRates(map[int]float64{
		2: 0.00005, // below min 0.00015
		3: 0.00008,
	}))

	strat, err := sel.Select(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, strat.Period)
	assert.Equal(t, 0.0001, strat.Rate)
}
