package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rcabello/lendbot/internal/domain"
	"github.com/rcabello/lendbot/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDesk simulates the exchange funding desk. Submissions consume the
// available balance; cancellations free the offer's amount back into it,
// mirroring how the real wallet behaves across a cycle.
type fakeDesk struct {
	offers    []domain.FundingOffer
	balance   float64
	credits   []domain.Credit
	cancelErr error
	submitErr error

	cancelled []int64
	submitted []domain.OfferRequest
}

func (f *fakeDesk) ActiveOffers(_ context.Context, _ string) ([]domain.FundingOffer, error) {
	out := make([]domain.FundingOffer, len(f.offers))
	copy(out, f.offers)
	return out, nil
}

func (f *fakeDesk) SubmitOffer(_ context.Context, req domain.OfferRequest) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submitted = append(f.submitted, req)
	f.balance -= req.Amount
	f.offers = append(f.offers, domain.FundingOffer{
		ID:     int64(1000 + len(f.submitted)),
		Symbol: req.Symbol,
		Type:   req.Type,
		Amount: req.Amount,
		Rate:   req.Rate,
		Period: req.Period,
	})
	return nil
}

func (f *fakeDesk) CancelOffer(_ context.Context, id int64) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, id)
	for i, offer := range f.offers {
		if offer.ID == id {
			f.balance += offer.Amount
			f.offers = append(f.offers[:i], f.offers[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeDesk) Wallets(_ context.Context) ([]domain.Wallet, error) {
	return []domain.Wallet{
		{Type: "exchange", Currency: "USD", Balance: 999, BalanceAvailable: 999},
		{Type: "funding", Currency: "USD", Balance: f.balance, BalanceAvailable: f.balance},
	}, nil
}

func (f *fakeDesk) Credits(_ context.Context, _ string) ([]domain.Credit, error) {
	return f.credits, nil
}

// fakeMarket only needs to serve the FRR for stats.
type fakeMarket struct {
	frr float64
}

func (f *fakeMarket) FundingCandles(_ context.Context, _ string, _ int, _ string, _, _ time.Time) ([]domain.Candle, error) {
	return nil, nil
}

func (f *fakeMarket) Ticker(_ context.Context, _ string) (domain.Ticker, error) {
	return domain.Ticker{FRR: f.frr}, nil
}

// fixedSelector always returns the same strategy.
type fixedSelector struct {
	strat domain.FundingStrategy
}

func (s fixedSelector) Select(_ context.Context) (domain.FundingStrategy, error) {
	return s.strat, nil
}

type noopNotifier struct{}

func (noopNotifier) NotifyCycle(_ context.Context, _ domain.CycleRecord) error  { return nil }
func (noopNotifier) NotifyStats(_ context.Context, _ domain.FundingStats) error { return nil }

var testStrategy = domain.FundingStrategy{Type: domain.OfferTypeLimit, Rate: 0.0005, Period: 7}

func newTestEngine(desk *fakeDesk, cfg engine.Config) *engine.Engine {
	if cfg.Symbol == "" {
		cfg.Symbol = "fUSD"
	}
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	return engine.New(&fakeMarket{frr: 0.0003}, desk, fixedSelector{testStrategy}, nil, noopNotifier{}, cfg)
}

func TestReconcile_SplitsBalanceAcrossCappedOffers(t *testing.T) {
	desk := &fakeDesk{balance: 2500}
	eng := newTestEngine(desk, engine.Config{})

	rec, err := eng.RunReconcileOnce(context.Background())
	require.NoError(t, err)

	// 2500 with cap 1000 and minimum 150 → [1000, 1000, 500]: the last
	// offer absorbs the remainder once another full-size offer would leave
	// dust behind.
	require.Len(t, desk.submitted, 3)
	assert.Equal(t, 1000.0, desk.submitted[0].Amount)
	assert.Equal(t, 1000.0, desk.submitted[1].Amount)
	assert.Equal(t, 500.0, desk.submitted[2].Amount)

	for _, req := range desk.submitted {
		assert.Equal(t, testStrategy.Type, req.Type)
		assert.Equal(t, testStrategy.Rate, req.Rate)
		assert.Equal(t, testStrategy.Period, req.Period)
		assert.LessOrEqual(t, req.Amount, 1000.0)
		assert.GreaterOrEqual(t, req.Amount, 150.0)
	}

	assert.Equal(t, 3, rec.Placed)
	assert.Equal(t, 2500.0, rec.PlacedAmount)
	assert.Equal(t, 0.0, desk.balance)
}

func TestReconcile_NeverSubmitsBelowMinimum(t *testing.T) {
	desk := &fakeDesk{balance: 149}
	eng := newTestEngine(desk, engine.Config{})

	rec, err := eng.RunReconcileOnce(context.Background())
	require.NoError(t, err)

	assert.Empty(t, desk.submitted)
	assert.Equal(t, 0, rec.Placed)
}

func TestReconcile_ExactMinimumPlacesOneOffer(t *testing.T) {
	desk := &fakeDesk{balance: 150}
	eng := newTestEngine(desk, engine.Config{})

	_, err := eng.RunReconcileOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, desk.submitted, 1)
	assert.Equal(t, 150.0, desk.submitted[0].Amount)
}

func TestReconcile_CancelsMismatchedOffersOnly(t *testing.T) {
	desk := &fakeDesk{
		offers: []domain.FundingOffer{
			{ID: 1, Type: domain.OfferTypeLimit, Rate: 0.0005, Period: 7, Amount: 1000},  // matches
			{ID: 2, Type: domain.OfferTypeLimit, Rate: 0.0004, Period: 7, Amount: 1000},  // wrong rate
			{ID: 3, Type: domain.OfferTypeLimit, Rate: 0.0005, Period: 30, Amount: 1000}, // wrong period
		},
	}
	eng := newTestEngine(desk, engine.Config{})

	rec, err := eng.RunReconcileOnce(context.Background())
	require.NoError(t, err)

	assert.ElementsMatch(t, []int64{2, 3}, desk.cancelled)
	assert.Equal(t, 2, rec.Cancelled)

	// The freed 2000 goes straight back out at the target strategy.
	require.Len(t, desk.submitted, 2)
	assert.Equal(t, 1000.0, desk.submitted[0].Amount)
	assert.Equal(t, 1000.0, desk.submitted[1].Amount)
}

func TestReconcile_FRRExemptionToggle(t *testing.T) {
	frrOffer := domain.FundingOffer{ID: 9, Type: domain.OfferTypeFRRDelta, Rate: 0, Period: 30, Amount: 500}

	t.Run("exempt", func(t *testing.T) {
		desk := &fakeDesk{offers: []domain.FundingOffer{frrOffer}}
		eng := newTestEngine(desk, engine.Config{KeepFRROffers: true})

		_, err := eng.RunReconcileOnce(context.Background())
		require.NoError(t, err)
		assert.Empty(t, desk.cancelled)
	})

	t.Run("not exempt", func(t *testing.T) {
		desk := &fakeDesk{offers: []domain.FundingOffer{frrOffer}}
		eng := newTestEngine(desk, engine.Config{KeepFRROffers: false})

		_, err := eng.RunReconcileOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []int64{9}, desk.cancelled)
	})
}

func TestReconcile_DustCancelsSmallestOffer(t *testing.T) {
	// Balance 100 sits in the dust range (1, 150): too small to lend, too
	// big to ignore. Cancelling the smallest matching offer (30) frees it
	// for consolidation next cycle.
	desk := &fakeDesk{
		balance: 100,
		offers: []domain.FundingOffer{
			{ID: 1, Type: domain.OfferTypeLimit, Rate: 0.0005, Period: 7, Amount: 50},
			{ID: 2, Type: domain.OfferTypeLimit, Rate: 0.0005, Period: 7, Amount: 30},
		},
	}
	eng := newTestEngine(desk, engine.Config{})

	rec, err := eng.RunReconcileOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int64{2}, desk.cancelled, "only the smallest offer is cancelled")
	assert.Equal(t, 1, rec.Cancelled)
	// 100 + 30 = 130 is still below the minimum: nothing placed this cycle.
	assert.Empty(t, desk.submitted)
}

func TestReconcile_NoDustActionOutsideRange(t *testing.T) {
	desk := &fakeDesk{
		balance: 0.5, // at or below the tradable floor: ignored entirely
		offers: []domain.FundingOffer{
			{ID: 1, Type: domain.OfferTypeLimit, Rate: 0.0005, Period: 7, Amount: 50},
		},
	}
	eng := newTestEngine(desk, engine.Config{})

	_, err := eng.RunReconcileOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, desk.cancelled)
}

func TestReconcile_PlacesFloatingOfferWhenEnabled(t *testing.T) {
	desk := &fakeDesk{balance: 2000}
	eng := newTestEngine(desk, engine.Config{PlaceFRROffer: true, KeepFRROffers: true})

	_, err := eng.RunReconcileOnce(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, desk.submitted)
	frr := desk.submitted[0]
	assert.Equal(t, domain.OfferTypeFRRDelta, frr.Type)
	assert.Equal(t, 0.0, frr.Rate)
	assert.Equal(t, 30, frr.Period)
	assert.Equal(t, 1000.0, frr.Amount, "floating offer is capped at the per-offer limit")

	// The remaining 1000 goes out at the target strategy.
	require.Len(t, desk.submitted, 2)
	assert.Equal(t, domain.OfferTypeLimit, desk.submitted[1].Type)
	assert.Equal(t, 1000.0, desk.submitted[1].Amount)
}

func TestReconcile_SkipsFloatingOfferWhenOneExists(t *testing.T) {
	desk := &fakeDesk{
		balance: 1000,
		offers: []domain.FundingOffer{
			{ID: 9, Type: domain.OfferTypeFRRDelta, Rate: 0, Period: 30, Amount: 500},
		},
	}
	eng := newTestEngine(desk, engine.Config{PlaceFRROffer: true, KeepFRROffers: true})

	_, err := eng.RunReconcileOnce(context.Background())
	require.NoError(t, err)

	for _, req := range desk.submitted {
		assert.NotEqual(t, domain.OfferTypeFRRDelta, req.Type)
	}
}

func TestReconcile_CancelFailureDoesNotBlockPlacement(t *testing.T) {
	desk := &fakeDesk{
		balance:   1000,
		cancelErr: errors.New("temporarily unavailable"),
		offers: []domain.FundingOffer{
			{ID: 2, Type: domain.OfferTypeLimit, Rate: 0.0004, Period: 7, Amount: 500},
		},
	}
	eng := newTestEngine(desk, engine.Config{})

	rec, err := eng.RunReconcileOnce(context.Background())
	require.NoError(t, err)

	// The stuck cancellation is left for the next cycle; the available
	// balance still goes out.
	assert.Equal(t, 0, rec.Cancelled)
	require.Len(t, desk.submitted, 1)
	assert.Equal(t, 1000.0, desk.submitted[0].Amount)
}

func TestReconcile_SubmitFailureEndsPlacementLoop(t *testing.T) {
	desk := &fakeDesk{
		balance:   2500,
		submitErr: errors.New("nonce too small"),
	}
	eng := newTestEngine(desk, engine.Config{})

	rec, err := eng.RunReconcileOnce(context.Background())
	require.NoError(t, err)

	assert.Empty(t, desk.submitted)
	assert.Equal(t, 0, rec.Placed)
	assert.Equal(t, 2500.0, desk.balance, "balance untouched, retried next cycle")
}

func TestReconcile_DryRunSendsNothing(t *testing.T) {
	desk := &fakeDesk{
		balance: 2500,
		offers: []domain.FundingOffer{
			{ID: 2, Type: domain.OfferTypeLimit, Rate: 0.0004, Period: 7, Amount: 500},
		},
	}
	eng := newTestEngine(desk, engine.Config{DryRun: true})

	rec, err := eng.RunReconcileOnce(context.Background())
	require.NoError(t, err)

	assert.Empty(t, desk.cancelled)
	assert.Empty(t, desk.submitted)
	assert.True(t, rec.DryRun)
	// The plan is still reported.
	assert.Equal(t, 1, rec.Cancelled)
	assert.Equal(t, 3, rec.Placed)
	assert.Equal(t, 2500.0, rec.PlacedAmount)
}
