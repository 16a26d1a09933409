package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/fooddata"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/sink"
	apperrors "github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/postgres"
)

func (a *app) projectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "project",
		Short: "Apply food-categorized events from Kafka to Postgres or the SQLite database",
		Long: "project consumes the topic the generate run publishes to and writes each " +
			"event into Postgres when enabled, otherwise into the SQLite food database.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()
			cfg := a.cfg
			topic := cfg.Kafka.Topics.FoodCategorized
			if len(cfg.Kafka.Brokers) == 0 || topic == "" {
				return fmt.Errorf("%w: kafka brokers and topics.foodCategorized must be set", apperrors.ErrInvalidInput)
			}

			var target sink.Sink
			switch {
			case cfg.Postgres.Enabled:
				client, err := postgres.Open(ctx, cfg.Postgres)
				if err != nil {
					return err
				}
				defer client.Close()
				if err := client.Migrate(ctx); err != nil {
					return err
				}
				target = sink.NewPostgres(client, "", 1)
			case cfg.SQLite.Enabled:
				db, err := fooddata.OpenSQLite(ctx, cfg.SQLite.Path)
				if err != nil {
					return err
				}
				defer db.Close()
				target = sink.NewSQLite(db)
			default:
				return fmt.Errorf("%w: project needs postgres or sqlite enabled", apperrors.ErrInvalidInput)
			}

			projector := sink.NewProjector(target)
			consumer := kafka.NewConsumer(cfg.Kafka, topic, projector.Handle)
			slog.Info("projecting food categories", "topic", topic, "target", target.Name())
			return consumer.Start(ctx)
		},
	}
}
