package sink

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/categorizer"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/fooddata"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/logger"
)

// Projector replays food-categorized events from Kafka into a sink, one
// event at a time, for stores that are fed off the topic rather than by the
// run itself. The target must update rows in place (Postgres, SQLite); the
// Redis sink replaces its whole key space on every write.
type Projector struct {
	target Sink
	logger *slog.Logger
}

func NewProjector(target Sink) *Projector {
	return &Projector{target: target, logger: slog.Default().With("component", "projector")}
}

// Handle is a kafka.MessageHandler.
func (p *Projector) Handle(ctx context.Context, msg kafka.Message) error {
	rec, err := kafka.DecodeJSON[Record](msg.Value)
	if err != nil {
		// a malformed event will never decode; skip it instead of stalling
		p.logger.Error("dropping undecodable event", "key", string(msg.Key), "error", err)
		return nil
	}
	if rec.FdcID <= 0 {
		p.logger.Error("dropping event without fdc id", "key", string(msg.Key))
		return nil
	}
	result := categorizer.Result{
		Food: fooddata.Food{
			ID:          rec.IngredientCode,
			FdcID:       rec.FdcID,
			Description: rec.Description,
			Dataset:     rec.Dataset,
		},
		Categorization: categorizer.Categorization{
			Category:      rec.VegCategory,
			Discrepancies: rec.Discrepancies,
		},
	}
	if rec.Source != nil {
		result.Source = *rec.Source
	}
	if runID := msg.Headers[RunIDHeader]; runID != "" {
		ctx = logger.WithRunID(ctx, runID)
	}
	if err := p.target.Write(ctx, []categorizer.Result{result}); err != nil {
		return fmt.Errorf("projecting fdc id %d (run %s): %w", rec.FdcID, msg.Headers[RunIDHeader], err)
	}
	return nil
}
