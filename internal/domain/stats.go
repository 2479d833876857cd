package domain

import (
	"errors"
	"time"
)

// ErrNoCredits signals that no capital is currently lent out, so an average
// rate cannot be computed. Callers must treat this as "nothing to report",
// not as a failure of the stats cycle.
var ErrNoCredits = errors.New("no active funding credits")

// FundingStats aggregates the currently-lent capital and its effective yield.
type FundingStats struct {
	At            time.Time
	TotalLent     float64
	DailyEarnings float64 // after the fee deduction when enabled
	AverageRate   float64 // pre-fee weighted average daily rate
	FRR           float64
	Credits       int
}

// CycleRecord summarizes one reconciliation cycle for logging, notification
// and history recording. It never feeds back into the next cycle's decisions.
type CycleRecord struct {
	ID           string
	StartedAt    time.Time
	Strategy     FundingStrategy
	Cancelled    int
	Placed       int
	PlacedAmount float64
	DryRun       bool
	Duration     time.Duration
}
