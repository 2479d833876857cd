package storage

// sqlite.go: lightweight history recording.
//
// Two tables: `cycles` (one row per reconciliation cycle) and `stats` (one
// row per stats cycle). The bot never reads either table to make a
// decision; every cycle re-derives its state from the exchange. The
// history exists purely as an audit trail for the operator.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rcabello/lendbot/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS cycles (
    id            TEXT PRIMARY KEY,
    started_at    DATETIME NOT NULL,
    strategy_type TEXT     NOT NULL,
    rate          REAL     NOT NULL,
    period        INTEGER  NOT NULL,
    cancelled     INTEGER  NOT NULL DEFAULT 0,
    placed        INTEGER  NOT NULL DEFAULT 0,
    placed_amount REAL     NOT NULL DEFAULT 0,
    dry_run       INTEGER  NOT NULL DEFAULT 0,
    duration_ms   INTEGER  NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS stats (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    reported_at    DATETIME NOT NULL,
    total_lent     REAL     NOT NULL DEFAULT 0,
    daily_earnings REAL     NOT NULL DEFAULT 0,
    average_rate   REAL     NOT NULL DEFAULT 0,
    frr            REAL     NOT NULL DEFAULT 0,
    credits        INTEGER  NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_cycles_at ON cycles(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_stats_at  ON stats(reported_at DESC);
`

const (
	retentionCycles = 30 * 24 * time.Hour
	retentionStats  = 90 * 24 * time.Hour
)

// SQLiteRecorder implements ports.Recorder using SQLite (pure Go, no CGo).
type SQLiteRecorder struct {
	db *sql.DB
}

// NewSQLiteRecorder opens (or creates) the database at the given path,
// applies the schema and prunes old rows.
func NewSQLiteRecorder(path string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteRecorder: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteRecorder: apply schema: %w", err)
	}

	s := &SQLiteRecorder{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveCycle persists one reconciliation cycle summary.
func (s *SQLiteRecorder) SaveCycle(ctx context.Context, rec domain.CycleRecord) error {
	dryRun := 0
	if rec.DryRun {
		dryRun = 1
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO cycles
			(id, started_at, strategy_type, rate, period,
			 cancelled, placed, placed_amount, dry_run, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.StartedAt.UTC(),
		string(rec.Strategy.Type),
		rec.Strategy.Rate,
		rec.Strategy.Period,
		rec.Cancelled,
		rec.Placed,
		rec.PlacedAmount,
		dryRun,
		rec.Duration.Milliseconds(),
	); err != nil {
		return fmt.Errorf("storage.SaveCycle: insert: %w", err)
	}
	return nil
}

// SaveStats persists one stats snapshot.
func (s *SQLiteRecorder) SaveStats(ctx context.Context, stats domain.FundingStats) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO stats
			(reported_at, total_lent, daily_earnings, average_rate, frr, credits)
		VALUES (?, ?, ?, ?, ?, ?)`,
		stats.At.UTC(),
		stats.TotalLent,
		stats.DailyEarnings,
		stats.AverageRate,
		stats.FRR,
		stats.Credits,
	); err != nil {
		return fmt.Errorf("storage.SaveStats: insert: %w", err)
	}
	return nil
}

// RecentCycles returns the newest cycle records, newest first.
func (s *SQLiteRecorder) RecentCycles(ctx context.Context, limit int) ([]domain.CycleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, strategy_type, rate, period,
		       cancelled, placed, placed_amount, dry_run, duration_ms
		FROM cycles
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.RecentCycles: query: %w", err)
	}
	defer rows.Close()

	var recs []domain.CycleRecord
	for rows.Next() {
		var rec domain.CycleRecord
		var stratType string
		var dryRun int
		var durationMs int64
		if err := rows.Scan(
			&rec.ID,
			&rec.StartedAt,
			&stratType,
			&rec.Strategy.Rate,
			&rec.Strategy.Period,
			&rec.Cancelled,
			&rec.Placed,
			&rec.PlacedAmount,
			&dryRun,
			&durationMs,
		); err != nil {
			return nil, fmt.Errorf("storage.RecentCycles: scan row: %w", err)
		}
		rec.Strategy.Type = domain.OfferType(stratType)
		rec.DryRun = dryRun == 1
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteRecorder) Close() error {
	return s.db.Close()
}

// pruneOld keeps the database light.
func (s *SQLiteRecorder) pruneOld(ctx context.Context) {
	s.db.ExecContext(ctx, `DELETE FROM cycles WHERE started_at < ?`,
		time.Now().UTC().Add(-retentionCycles))
	s.db.ExecContext(ctx, `DELETE FROM stats WHERE reported_at < ?`,
		time.Now().UTC().Add(-retentionStats))
}
