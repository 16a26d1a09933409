// Package report aggregates the results of a categorization run into counts
// per diet category, per result source, per dataset and per FoodData Central
// food category, and keeps a random sample of foods for each diet category.
package report

import (
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/categorizer"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/diet"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/fooddata"
)

type Stats struct {
	RunID          string                  `json:"run_id,omitempty"`
	Total          int64                   `json:"total"`
	ByCategory     map[diet.Category]int64 `json:"by_category"`
	BySource       map[diet.Source]int64   `json:"by_source"`
	ByDataset      map[string]int64        `json:"by_dataset"`
	ByFoodCategory []FoodCategoryCounts    `json:"by_food_category"`
	Discrepancies  int64                   `json:"discrepancies"`
	// TopFoodCategories lists, per diet category, the food categories that
	// contribute most foods to it.
	TopFoodCategories map[diet.Category][]NameCount `json:"top_food_categories"`
	StartedAt         time.Time                     `json:"started_at"`
	Duration          time.Duration                 `json:"duration_ns"`
}

// FoodCategoryCounts breaks one FoodData Central category down by diet
// category. Diet categories with no foods are left out.
type FoodCategoryCounts struct {
	FoodCategory string                  `json:"food_category"`
	Counts       map[diet.Category]int64 `json:"counts"`
}

type NameCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// Sample is one example food of a diet category. Padding entries, used when
// a category has fewer foods than requested, have FdcID -1.
type Sample struct {
	FdcID       int64  `json:"fdc_id"`
	Description string `json:"description"`
}

func (s Sample) IsPadding() bool { return s.FdcID < 0 }

// reservoir keeps a uniform random sample of a stream (Vitter's algorithm R).
type reservoir struct {
	seen  int64
	items []Sample
}

func (r *reservoir) offer(s Sample, n int, rng *rand.Rand) {
	r.seen++
	if len(r.items) < n {
		r.items = append(r.items, s)
		return
	}
	if j := rng.Int64N(r.seen); j < int64(n) {
		r.items[j] = s
	}
}

// Aggregator collects one run's results. It is safe for concurrent use.
type Aggregator struct {
	mu             sync.Mutex
	total          int64
	byCategory     map[diet.Category]int64
	bySource       map[diet.Source]int64
	byDataset      map[string]int64
	byFoodCategory map[string]map[diet.Category]int64
	discrepancies  int64
	samples        map[diet.Category]*reservoir
	nSamples       int
	rng            *rand.Rand
	startTime      time.Time
	runID          string
	logger         *slog.Logger
}

// NewAggregator keeps up to samples examples per diet category. The same
// seed over the same results gives the same samples.
func NewAggregator(runID string, samples int, seed uint64) *Aggregator {
	return &Aggregator{
		byCategory:     make(map[diet.Category]int64),
		bySource:       make(map[diet.Source]int64),
		byDataset:      make(map[string]int64),
		byFoodCategory: make(map[string]map[diet.Category]int64),
		samples:        make(map[diet.Category]*reservoir),
		nSamples:       max(samples, 0),
		rng:            rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		startTime:      time.Now(),
		runID:          runID,
		logger:         slog.Default().With("component", "report"),
	}
}

// Record adds one categorized food.
func (a *Aggregator) Record(food fooddata.Food, c categorizer.Categorization) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total++
	a.byCategory[c.Category]++
	a.bySource[c.Source]++
	a.byDataset[food.Dataset]++
	if len(c.Discrepancies) > 0 {
		a.discrepancies++
	}
	counts, ok := a.byFoodCategory[food.Category]
	if !ok {
		counts = make(map[diet.Category]int64)
		a.byFoodCategory[food.Category] = counts
	}
	counts[c.Category]++

	if a.nSamples == 0 {
		return
	}
	r, ok := a.samples[c.Category]
	if !ok {
		r = &reservoir{}
		a.samples[c.Category] = r
	}
	r.offer(Sample{FdcID: food.FdcID, Description: food.Description}, a.nSamples, a.rng)
}

// Stats returns a snapshot of the counts so far.
func (a *Aggregator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := Stats{
		RunID:             a.runID,
		Total:             a.total,
		ByCategory:        make(map[diet.Category]int64, len(diet.Categories)),
		BySource:          make(map[diet.Source]int64, len(a.bySource)),
		ByDataset:         make(map[string]int64, len(a.byDataset)),
		Discrepancies:     a.discrepancies,
		TopFoodCategories: make(map[diet.Category][]NameCount),
		StartedAt:         a.startTime,
		Duration:          time.Since(a.startTime),
	}
	for _, c := range diet.Categories {
		stats.ByCategory[c] = a.byCategory[c]
	}
	for s, n := range a.bySource {
		stats.BySource[s] = n
	}
	for d, n := range a.byDataset {
		stats.ByDataset[d] = n
	}

	perDiet := make(map[diet.Category]map[string]int64)
	for name, counts := range a.byFoodCategory {
		fc := FoodCategoryCounts{FoodCategory: name, Counts: make(map[diet.Category]int64, len(counts))}
		for c, n := range counts {
			fc.Counts[c] = n
			if perDiet[c] == nil {
				perDiet[c] = make(map[string]int64)
			}
			perDiet[c][name] = n
		}
		stats.ByFoodCategory = append(stats.ByFoodCategory, fc)
	}
	slices.SortFunc(stats.ByFoodCategory, func(x, y FoodCategoryCounts) int {
		return strings.Compare(x.FoodCategory, y.FoodCategory)
	})
	for c, counts := range perDiet {
		stats.TopFoodCategories[c] = topN(counts, 5)
	}
	return stats
}

// Samples returns exactly n examples per diet category, padded when a
// category has fewer foods.
func (a *Aggregator) Samples() map[diet.Category][]Sample {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[diet.Category][]Sample, len(diet.Categories))
	for _, c := range diet.Categories {
		var picked []Sample
		if r, ok := a.samples[c]; ok {
			picked = slices.Clone(r.items)
		}
		slices.SortFunc(picked, func(x, y Sample) int { return strings.Compare(x.Description, y.Description) })
		for len(picked) < a.nSamples {
			picked = append(picked, Sample{FdcID: -1})
		}
		out[c] = picked
	}
	return out
}

func topN(counts map[string]int64, n int) []NameCount {
	result := make([]NameCount, 0, len(counts))
	for name, count := range counts {
		result = append(result, NameCount{Name: name, Count: count})
	}
	slices.SortFunc(result, func(x, y NameCount) int {
		if x.Count != y.Count {
			if x.Count > y.Count {
				return -1
			}
			return 1
		}
		return strings.Compare(x.Name, y.Name)
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}

// Log writes the statistics and samples through l, one line per diet
// category and per food category.
func Log(l *slog.Logger, stats Stats, samples map[diet.Category][]Sample) {
	l.Info("categorization finished",
		"foods", stats.Total,
		"discrepancies", stats.Discrepancies,
		"duration", stats.Duration.Round(time.Millisecond),
	)
	for _, c := range diet.Categories {
		l.Info("foods per diet category", "category", c, "count", stats.ByCategory[c])
	}
	for _, fc := range stats.ByFoodCategory {
		attrs := []any{"food_category", fc.FoodCategory}
		for _, c := range diet.Categories {
			if n := fc.Counts[c]; n > 0 {
				attrs = append(attrs, c.String(), n)
			}
		}
		l.Debug("foods per food category", attrs...)
	}
	for _, c := range diet.Categories {
		var descs []string
		for _, s := range samples[c] {
			if !s.IsPadding() {
				descs = append(descs, s.Description)
			}
		}
		if len(descs) > 0 {
			l.Info("sample", "category", c, "foods", descs)
		}
	}
}
