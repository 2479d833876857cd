package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rcabello/lendbot/internal/adapters/storage"
	"github.com/rcabello/lendbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecorder(t *testing.T) *storage.SQLiteRecorder {
	t.Helper()
	rec, err := storage.NewSQLiteRecorder(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })
	return rec
}

func TestSQLiteRecorder_CycleRoundtrip(t *testing.T) {
	rec := newRecorder(t)
	ctx := context.Background()

	cycle := domain.CycleRecord{
		ID:        uuid.New().String(),
		StartedAt: time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC),
		Strategy: domain.FundingStrategy{
			Type:   domain.OfferTypeLimit,
			Rate:   0.0005,
			Period: 7,
		},
		Cancelled:    2,
		Placed:       3,
		PlacedAmount: 2500,
		DryRun:       true,
		Duration:     1250 * time.Millisecond,
	}
	require.NoError(t, rec.SaveCycle(ctx, cycle))

	got, err := rec.RecentCycles(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, cycle.ID, got[0].ID)
	assert.True(t, got[0].StartedAt.Equal(cycle.StartedAt))
	assert.Equal(t, cycle.Strategy, got[0].Strategy)
	assert.Equal(t, 2, got[0].Cancelled)
	assert.Equal(t, 3, got[0].Placed)
	assert.Equal(t, 2500.0, got[0].PlacedAmount)
	assert.True(t, got[0].DryRun)
	assert.Equal(t, 1250*time.Millisecond, got[0].Duration)
}

func TestSQLiteRecorder_RecentCyclesNewestFirst(t *testing.T) {
	rec := newRecorder(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, rec.SaveCycle(ctx, domain.CycleRecord{
			ID:        uuid.New().String(),
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			Strategy:  domain.FundingStrategy{Type: domain.OfferTypeLimit, Rate: 0.0001, Period: 2},
		}))
	}

	got, err := rec.RecentCycles(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].StartedAt.After(got[1].StartedAt))
}

func TestSQLiteRecorder_SaveStats(t *testing.T) {
	rec := newRecorder(t)

	err := rec.SaveStats(context.Background(), domain.FundingStats{
		At:            time.Now().UTC(),
		TotalLent:     1500,
		DailyEarnings: 0.4675,
		AverageRate:   0.000366,
		FRR:           0.0003,
		Credits:       2,
	})
	require.NoError(t, err)
}

func TestSQLiteRecorder_DuplicateCycleIDRejected(t *testing.T) {
	rec := newRecorder(t)
	ctx := context.Background()

	cycle := domain.CycleRecord{
		ID:        "fixed-id",
		StartedAt: time.Now().UTC(),
		Strategy:  domain.FundingStrategy{Type: domain.OfferTypeLimit, Rate: 0.0001, Period: 2},
	}
	require.NoError(t, rec.SaveCycle(ctx, cycle))
	assert.Error(t, rec.SaveCycle(ctx, cycle))
}
