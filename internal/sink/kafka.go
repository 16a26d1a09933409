package sink

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/categorizer"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/kafka"
)

// RunIDHeader names the Kafka header carrying the run id.
const RunIDHeader = "run_id"

// Publisher is the part of the Kafka producer the sink needs.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Kafka publishes one food-categorized event per food, keyed by FDC ID so
// that a compacted topic keeps the latest result of every food.
type Kafka struct {
	pub    Publisher
	runID  string
	logger *slog.Logger
}

func NewKafka(pub Publisher, runID string) *Kafka {
	return &Kafka{pub: pub, runID: runID, logger: slog.Default().With("component", "kafka-sink")}
}

func (k *Kafka) Name() string { return "kafka" }

func (k *Kafka) Write(ctx context.Context, results []categorizer.Result) error {
	events := make([]kafka.Event, len(results))
	headers := map[string]string{RunIDHeader: k.runID}
	for i, r := range results {
		events[i] = kafka.Event{
			Key:     Key(r.Food.FdcID),
			Value:   NewRecord(r, true),
			Headers: headers,
		}
	}
	if err := k.pub.PublishBatch(ctx, events); err != nil {
		return err
	}
	k.logger.Info("food-categorized events published", "events", len(events), "run_id", k.runID)
	return nil
}
