package fooddata

import (
	"context"
	"iter"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/recordstore"
)

// BuildStats reports the outcome of writing one archive.
type BuildStats struct {
	PerDataset map[string]int
	recordstore.Stats
}

// WriteArchive writes foods into a new archive at path. Any error, including
// a self-referencing food or a repeated FDC ID, discards the archive.
func WriteArchive(ctx context.Context, path string, foods iter.Seq2[Food, error]) (BuildStats, error) {
	primary, secondaries := Indices()
	w, err := recordstore.Create(path, primary, secondaries...)
	if err != nil {
		return BuildStats{}, err
	}
	defer w.Abort()

	logger := slog.Default().With("component", "archive-build")
	stats := BuildStats{PerDataset: make(map[string]int)}
	for food, err := range foods {
		if err != nil {
			return stats, err
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := food.Validate(); err != nil {
			return stats, err
		}
		if err := w.Put(food); err != nil {
			return stats, err
		}
		stats.PerDataset[food.Dataset]++
		if n := w.Stats().Records; n%50000 == 0 {
			logger.Info("build progress", "records", n)
		}
	}
	if err := w.Close(); err != nil {
		return stats, err
	}
	stats.Stats = w.Stats()
	return stats, nil
}

// Concat chains the foods of several sources.
func Concat(ctx context.Context, sources ...Source) iter.Seq2[Food, error] {
	return func(yield func(Food, error) bool) {
		for _, s := range sources {
			for food, err := range s.Foods(ctx) {
				if !yield(food, err) {
					return
				}
			}
		}
	}
}
