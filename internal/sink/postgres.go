package sink

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/categorizer"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/logger"
)

// TxRunner runs fn in a database transaction. *postgres.Client implements it.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

const upsertCategory = `
INSERT INTO food_categories (fdc_id, veg_category, source, description, dataset, run_id, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, now())
ON CONFLICT (fdc_id) DO UPDATE SET
	veg_category = EXCLUDED.veg_category,
	source       = EXCLUDED.source,
	description  = EXCLUDED.description,
	dataset      = EXCLUDED.dataset,
	run_id       = EXCLUDED.run_id,
	updated_at   = EXCLUDED.updated_at`

// Postgres upserts results into food_categories. Each batch commits on its
// own; a failed batch rolls back only itself.
type Postgres struct {
	db        TxRunner
	runID     string
	batchSize int
	logger    *slog.Logger
}

func NewPostgres(db TxRunner, runID string, batchSize int) *Postgres {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &Postgres{
		db:        db,
		runID:     runID,
		batchSize: batchSize,
		logger:    slog.Default().With("component", "postgres-sink"),
	}
}

func (p *Postgres) Name() string { return "postgres" }

// Write stamps rows with the sink's run ID, or with the run ID carried by ctx
// when the sink was built without one.
func (p *Postgres) Write(ctx context.Context, results []categorizer.Result) error {
	runID := p.runID
	if runID == "" {
		runID = logger.RunID(ctx)
	}
	for start := 0; start < len(results); start += p.batchSize {
		batch := results[start:min(start+p.batchSize, len(results))]
		err := p.db.InTx(ctx, func(tx *sql.Tx) error {
			stmt, err := tx.PrepareContext(ctx, upsertCategory)
			if err != nil {
				return fmt.Errorf("preparing upsert: %w", err)
			}
			defer stmt.Close()
			for _, r := range batch {
				if _, err := stmt.ExecContext(ctx,
					r.Food.FdcID, r.Category.String(), r.Source.String(),
					r.Food.Description, r.Food.Dataset, runID,
				); err != nil {
					return fmt.Errorf("upserting fdc id %d: %w", r.Food.FdcID, err)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		p.logger.Debug("batch upserted", "offset", start, "size", len(batch))
	}
	p.logger.Info("food categories upserted", "foods", len(results), "run_id", runID)
	return nil
}
