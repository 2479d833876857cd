package strategy

import (
	"context"

	"github.com/rcabello/lendbot/internal/domain"
)

// Selector computes the single target funding strategy for the current
// cycle. Implementations are pure functions of live market data: the same
// snapshot always yields the same strategy.
type Selector interface {
	Select(ctx context.Context) (domain.FundingStrategy, error)
}
