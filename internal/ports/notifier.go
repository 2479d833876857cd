package ports

import (
	"context"

	"github.com/rcabello/lendbot/internal/domain"
)

// Notifier presents cycle outcomes and funding stats to the operator.
type Notifier interface {
	NotifyCycle(ctx context.Context, rec domain.CycleRecord) error
	NotifyStats(ctx context.Context, stats domain.FundingStats) error
}
