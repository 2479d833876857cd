package ports

import (
	"context"

	"github.com/rcabello/lendbot/internal/domain"
)

// Recorder persists cycle and stats history for later inspection.
// Nothing in the bot reads it back to make decisions.
type Recorder interface {
	SaveCycle(ctx context.Context, rec domain.CycleRecord) error
	SaveStats(ctx context.Context, stats domain.FundingStats) error
	Close() error
}
