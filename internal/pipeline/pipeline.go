// Package pipeline wires the stores, the categorizer and the sinks into the
// three runs the command line offers: building the food archive, generating
// categories for every food, and curating reference samples.
package pipeline

import (
	"context"
	"fmt"
	"iter"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/categorizer"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/fooddata"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/refsample"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/tracing"
)

// BuildArchive reads every source in order and writes the food archive at
// path. m may be nil.
func BuildArchive(ctx context.Context, path string, sources []fooddata.Source, m *metrics.Metrics) (fooddata.BuildStats, error) {
	ctx, span := tracing.Start(ctx, "build-archive")
	defer span.Log(ctx)
	log := logger.FromContext(ctx).With("component", "pipeline")

	for _, s := range sources {
		if _, err := os.Stat(s.Path); err != nil {
			return fooddata.BuildStats{}, fmt.Errorf("%w: dataset %s: %v", apperrors.ErrInvalidInput, s.Name, err)
		}
	}
	stats, err := fooddata.WriteArchive(ctx, path, fooddata.Concat(ctx, sources...))
	if err != nil {
		return stats, fmt.Errorf("building archive %s: %w", path, err)
	}
	for dataset, n := range stats.PerDataset {
		log.Info("dataset archived", "dataset", dataset, "foods", n)
		if m != nil {
			m.ArchiveRecordsTotal.WithLabelValues(dataset).Add(float64(n))
		}
	}
	span.SetAttr("records", stats.Records)
	span.SetAttr("links", stats.Links)
	log.Info("archive built", "path", path, "records", stats.Records, "links", stats.Links,
		"skipped_duplicates", stats.SkippedDuplicates)
	return stats, nil
}

// OpenFoods opens the configured food source: the archive, or with
// categorizer.input set to sqlite, the SQLite food database loaded into
// memory. m may be nil.
func OpenFoods(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*fooddata.Store, error) {
	if cfg.Categorizer.Input == config.InputSQLite {
		db, err := fooddata.OpenSQLite(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return fooddata.LoadSQLite(ctx, db)
	}
	var observe func(bool)
	if m != nil {
		observe = m.CacheObserver()
	}
	return fooddata.OpenArchive(cfg.Archive.Path, cfg.Archive.Cache, observe)
}

// LoadReferences opens the reference sample file and keeps the samples whose
// food exists in foods.
func LoadReferences(ctx context.Context, cfg config.ReferenceConfig, foods *fooddata.Store) (*refsample.Store, *refsample.Set, error) {
	store, err := refsample.Open(cfg.Path, cfg.Create)
	if err != nil {
		return nil, nil, err
	}
	set, _, err := store.Load(ctx, Exists(foods))
	if err != nil {
		return nil, nil, err
	}
	return store, set, nil
}

// Exists reports food existence for reference sample validation.
func Exists(foods *fooddata.Store) refsample.Exists {
	return func(ctx context.Context, fdcID int64) (bool, error) {
		_, err := foods.ByFdcID(ctx, fdcID)
		switch {
		case err == nil:
			return true, nil
		case apperrors.IsMissing(err):
			return false, nil
		default:
			return false, err
		}
	}
}

// Describe copies food descriptions into reference samples.
func Describe(foods *fooddata.Store) refsample.Describer {
	return func(ctx context.Context, fdcID int64) (string, error) {
		f, err := foods.ByFdcID(ctx, fdcID)
		if err != nil {
			return "", err
		}
		return f.Description, nil
	}
}

// Lookup is the food access CategorizeAll needs.
type Lookup interface {
	categorizer.Foods
	FdcIDs(ctx context.Context) iter.Seq2[int64, error]
}

// CategorizeAll categorizes every food with a pool of workers. Results come
// back in the order FdcIDs yields them. The first error cancels the rest of
// the run and is returned.
func CategorizeAll(ctx context.Context, foods Lookup, c *categorizer.Categorizer, workers int) ([]categorizer.Result, error) {
	ctx, span := tracing.Start(ctx, "categorize-all")
	defer span.End()
	log := logger.FromContext(ctx).With("component", "pipeline")

	var ids []int64
	for id, err := range foods.FdcIDs(ctx) {
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	span.SetAttr("foods", len(ids))
	log.Info("categorizing foods", "foods", len(ids), "workers", workers)

	results := make([]categorizer.Result, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, id := range ids {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			food, err := foods.ByFdcID(gctx, id)
			if err != nil {
				return fmt.Errorf("loading fdc id %d: %w", id, err)
			}
			cat, err := c.Categorize(gctx, food)
			if err != nil {
				return fmt.Errorf("categorizing fdc id %d: %w", id, err)
			}
			results[i] = categorizer.Result{Food: food, Categorization: cat}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
