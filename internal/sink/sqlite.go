package sink

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/categorizer"
)

// SQLite writes categories back into the diet_category column of the Food
// table of food_data.db, in a single transaction.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLite expects db to carry fooddata.SQLiteSchema.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db, logger: slog.Default().With("component", "sqlite-sink")}
}

func (s *SQLite) Name() string { return "sqlite" }

func (s *SQLite) Write(ctx context.Context, results []categorizer.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning sqlite transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `UPDATE Food SET diet_category = ? WHERE fdc_id = ?`)
	if err != nil {
		return fmt.Errorf("preparing diet_category update: %w", err)
	}
	defer stmt.Close()

	var missing int
	for _, r := range results {
		res, err := stmt.ExecContext(ctx, r.Category.String(), r.Food.FdcID)
		if err != nil {
			return fmt.Errorf("updating fdc id %d: %w", r.Food.FdcID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			missing++
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing diet categories: %w", err)
	}
	if missing > 0 {
		s.logger.Warn("foods absent from sqlite database", "count", missing)
	}
	s.logger.Info("diet categories updated", "foods", len(results)-missing)
	return nil
}
