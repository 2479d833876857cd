package domain

import (
	"math"
	"time"
)

// OfferType distinguishes fixed-rate limit offers from floating offers
// pegged to the exchange's flash return rate.
type OfferType string

const (
	OfferTypeLimit    OfferType = "LIMIT"
	OfferTypeFRRDelta OfferType = "FRRDELTA"
)

// Candle is one OHLCV interval of a funding-period market.
// For funding markets the prices are daily rates, not asset prices.
type Candle struct {
	Timestamp time.Time
	Open      float64
	Close     float64
	High      float64
	Low       float64
	Volume    float64
}

// FundingOffer is a read-only snapshot of a lend order resting on the
// exchange. The exchange owns the offer; the bot only ever holds the
// snapshot taken at the start of a reconciliation cycle.
type FundingOffer struct {
	ID        int64
	Symbol    string
	Type      OfferType
	Amount    float64
	Rate      float64 // daily rate
	Period    int     // days
	CreatedAt time.Time
}

// FundingStrategy is the single target (type, rate, period) computed each
// cycle. Pure value, no identity, no persistence across cycles.
type FundingStrategy struct {
	Type   OfferType
	Rate   float64
	Period int
}

// IsUsedBy reports whether a live offer rests at exactly this strategy.
// The rate comparison is intentionally exact: every offer we compare against
// was submitted by this same process with the same float64 value, so a
// tolerance would only hide offers that genuinely need replacing.
func (s FundingStrategy) IsUsedBy(o FundingOffer) bool {
	return s.Type == o.Type && s.Rate == o.Rate && s.Period == o.Period
}

// AnnualRate converts a daily rate and loan period into a compounded
// annualized yield: (1 + rate*period)^(365/period) - 1.
func AnnualRate(rate float64, period int) float64 {
	return math.Pow(1+rate*float64(period), 365/float64(period)) - 1
}

// Wallet is a currency- and account-scoped balance snapshot.
type Wallet struct {
	Type             string // "funding", "exchange", "margin"
	Currency         string
	Balance          float64
	BalanceAvailable float64
}

// Credit is capital currently on loan and earning interest under a filled
// offer. Credits taken at the floating rate report Rate == 0.
type Credit struct {
	ID       int64
	Symbol   string
	Amount   float64
	Rate     float64
	Period   int
	OpenedAt time.Time
}

// Ticker is the funding ticker head. FRR is the exchange's published
// flash return rate.
type Ticker struct {
	FRR  float64
	Bid  float64
	Ask  float64
	Last float64
}

// OfferRequest describes a new funding offer to submit.
type OfferRequest struct {
	Symbol string
	Type   OfferType
	Amount float64
	Rate   float64
	Period int
}
