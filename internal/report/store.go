package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/errors"
)

// SnapshotSchema is the PostgreSQL table run statistics are kept in.
const SnapshotSchema = `
CREATE TABLE IF NOT EXISTS report_snapshots (
	id          BIGSERIAL PRIMARY KEY,
	run_id      TEXT NOT NULL,
	data        JSONB NOT NULL,
	captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Store persists run statistics in PostgreSQL so the lookup server can show
// the latest run.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "report-store"),
	}
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, SnapshotSchema); err != nil {
		return fmt.Errorf("creating report_snapshots: %w", err)
	}
	return nil
}

// SaveSnapshot persists the statistics of one run.
func (s *Store) SaveSnapshot(ctx context.Context, stats Stats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO report_snapshots (run_id, data, captured_at) VALUES ($1, $2, $3)`,
		stats.RunID, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving report snapshot: %w", err)
	}
	s.logger.Info("report snapshot saved", "run_id", stats.RunID, "foods", stats.Total)
	return nil
}

// LatestSnapshot loads the most recent run's statistics, or ErrNotFound.
func (s *Store) LatestSnapshot(ctx context.Context) (Stats, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM report_snapshots ORDER BY captured_at DESC, id DESC LIMIT 1`,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return Stats{}, fmt.Errorf("%w: no report snapshot", apperrors.ErrNotFound)
	}
	if err != nil {
		return Stats{}, fmt.Errorf("querying latest snapshot: %w", err)
	}
	var stats Stats
	if err := json.Unmarshal(data, &stats); err != nil {
		return Stats{}, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return stats, nil
}
