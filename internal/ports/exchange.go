package ports

import (
	"context"
	"time"

	"github.com/rcabello/lendbot/internal/domain"
)

// MarketData serves public, unauthenticated market queries.
type MarketData interface {
	// FundingCandles returns the candles of the p<period> funding market for
	// the given symbol, oldest first. A zero end means "up to now".
	FundingCandles(ctx context.Context, symbol string, period int, timeframe string, start, end time.Time) ([]domain.Candle, error)

	// Ticker returns the funding ticker head, including the flash return rate.
	Ticker(ctx context.Context, symbol string) (domain.Ticker, error)
}

// FundingDesk serves authenticated account operations.
type FundingDesk interface {
	// ActiveOffers returns the offers currently resting in the market.
	ActiveOffers(ctx context.Context, symbol string) ([]domain.FundingOffer, error)

	// SubmitOffer places a new funding offer.
	SubmitOffer(ctx context.Context, req domain.OfferRequest) error

	// CancelOffer cancels a resting offer by ID.
	CancelOffer(ctx context.Context, id int64) error

	// Wallets returns all wallet balances for the account.
	Wallets(ctx context.Context) ([]domain.Wallet, error)

	// Credits returns the currently-earning funding credits for the symbol.
	Credits(ctx context.Context, symbol string) ([]domain.Credit, error)
}
