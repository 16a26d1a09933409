package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/fooddata"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/report"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/sink"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/redis"
)

// Outputs are the sinks of one run and the connections behind them.
type Outputs struct {
	Sinks     []sink.Sink
	Snapshots *report.Store
	closers   []func() error
}

// Close releases every connection, returning the joined errors.
func (o *Outputs) Close() error {
	var errs []error
	for i := len(o.closers) - 1; i >= 0; i-- {
		errs = append(errs, o.closers[i]())
	}
	o.closers = nil
	return errors.Join(errs...)
}

// OpenOutputs connects every configured sink. The JSON file is always
// written; with output.debug a debug_ twin is written beside it. Any
// connection failure closes what was already opened.
func OpenOutputs(ctx context.Context, cfg *config.Config, runID string) (_ *Outputs, err error) {
	out := &Outputs{}
	defer func() {
		if err != nil {
			out.Close()
		}
	}()
	log := slog.Default().With("component", "pipeline")

	out.Sinks = append(out.Sinks, sink.NewJSONFile(cfg.Output.Path, false))
	if cfg.Output.Debug {
		out.Sinks = append(out.Sinks, sink.NewJSONFile(sink.DebugPath(cfg.Output.Path), true))
	}

	if cfg.SQLite.Enabled {
		db, err := fooddata.OpenSQLite(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		out.closers = append(out.closers, db.Close)
		out.Sinks = append(out.Sinks, sink.NewSQLite(db))
		log.Info("sqlite sink enabled", "path", cfg.SQLite.Path)
	}

	if cfg.Postgres.Enabled {
		client, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		out.closers = append(out.closers, client.Close)
		if err := client.Migrate(ctx); err != nil {
			return nil, err
		}
		out.Snapshots = report.NewStore(client.DB)
		if err := out.Snapshots.Migrate(ctx); err != nil {
			return nil, err
		}
		out.Sinks = append(out.Sinks, sink.NewPostgres(client, runID, 1000))
		log.Info("postgres sink enabled", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	}

	if cfg.Redis.Enabled {
		client, err := pkgredis.Open(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		out.closers = append(out.closers, client.Close)
		out.Sinks = append(out.Sinks, sink.NewRedis(client, cfg.Redis.TTL))
		log.Info("redis sink enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.TTL)
	}

	if cfg.Kafka.Enabled {
		topic := cfg.Kafka.Topics.FoodCategorized
		if topic == "" {
			return nil, fmt.Errorf("kafka.topics.foodCategorized must be set")
		}
		producer := kafka.NewProducer(cfg.Kafka, topic)
		out.closers = append(out.closers, producer.Close)
		out.Sinks = append(out.Sinks, sink.NewKafka(producer, runID))
		log.Info("kafka sink enabled", "topic", topic, "brokers", cfg.Kafka.Brokers)
	}
	return out, nil
}
