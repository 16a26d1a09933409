package pipeline

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/categorizer"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/diet"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/fooddata"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/refsample"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/report"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/sink"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/tokens"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/tracing"
)

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Deps are the collaborators of a generate run. Metrics and Snapshots may be
// nil; an empty RunID gets a fresh one.
type Deps struct {
	RunID      string
	Foods      *fooddata.Store
	Refs       *refsample.Set
	Classifier *tokens.Classifier
	Sinks      []sink.Sink
	Metrics    *metrics.Metrics
	Snapshots  *report.Store
}

// Run is what a generate run produced.
type Run struct {
	ID            string
	Results       []categorizer.Result
	Stats         report.Stats
	Samples       map[diet.Category][]report.Sample
	Discrepancies []categorizer.Discrepancy
}

type metricsObserver struct{ m *metrics.Metrics }

func (o metricsObserver) Categorized(c categorizer.Categorization) {
	o.m.CategorizationsTotal.WithLabelValues(c.Category.String(), c.Source.String()).Inc()
}

// Generate categorizes every food, writes the results to every sink and
// reports statistics. Categorization errors abort the run before anything is
// written; sink errors are returned after all sinks were tried.
func Generate(ctx context.Context, cfg *config.Config, deps Deps) (*Run, error) {
	if deps.RunID == "" {
		deps.RunID = NewRunID()
	}
	ctx = logger.WithRunID(ctx, deps.RunID)
	ctx, span := tracing.Start(ctx, "generate")
	defer span.Log(ctx)
	log := logger.FromContext(ctx).With("component", "pipeline")
	start := time.Now()

	var opts []categorizer.Option
	if deps.Metrics != nil {
		opts = append(opts, categorizer.WithObserver(metricsObserver{deps.Metrics}))
	}
	c := categorizer.New(deps.Foods, deps.Refs, deps.Classifier, opts...)
	log.Info("generate started", "reference_samples", deps.Refs.Len(), "vocabulary", deps.Classifier.Len())

	results, err := CategorizeAll(ctx, deps.Foods, c, cfg.Categorizer.Workers)
	if err != nil {
		return nil, err
	}

	seed := cfg.Categorizer.SampleSeed
	if seed == 0 {
		seed = rand.Uint64()
	}
	agg := report.NewAggregator(deps.RunID, cfg.Output.Samples, seed)
	for _, r := range results {
		agg.Record(r.Food, r.Categorization)
	}

	run := &Run{
		ID:            deps.RunID,
		Results:       results,
		Discrepancies: c.Discrepancies(),
	}
	for _, d := range run.Discrepancies {
		if deps.Metrics != nil {
			known := "false"
			if d.KnownFailure {
				known = "true"
			}
			deps.Metrics.DiscrepanciesTotal.WithLabelValues(known).Inc()
		}
	}

	sctx, sinkSpan := tracing.Start(ctx, "sinks")
	multi := sink.NewMulti(deps.Sinks,
		sink.WithMetrics(deps.Metrics),
		sink.WithRetry(resilience.RetryConfig{MaxAttempts: 3, InitialDelay: 500 * time.Millisecond}),
	)
	sinkErr := multi.Write(sctx, results)
	sinkSpan.End()

	run.Stats = agg.Stats()
	run.Samples = agg.Samples()
	report.Log(log, run.Stats, run.Samples)
	if deps.Snapshots != nil {
		if err := deps.Snapshots.SaveSnapshot(ctx, run.Stats); err != nil {
			log.Warn("report snapshot not saved", "error", err)
		}
	}
	if deps.Metrics != nil {
		deps.Metrics.CategorizeDuration.Observe(time.Since(start).Seconds())
	}
	span.SetAttr("foods", len(results))
	span.SetAttr("discrepancies", len(run.Discrepancies))
	return run, sinkErr
}
