// Package categorizer derives a food's diet category from its ingredients,
// recursively, falling back to its description, with curated reference
// samples overriding the heuristic for the foods they cover.
package categorizer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/diet"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/fooddata"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/refsample"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/tokens"
	apperrors "github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/errors"
)

// Foods is the lookup surface the categorizer needs from a food store.
type Foods interface {
	ByFdcID(ctx context.Context, fdcID int64) (fooddata.Food, error)
	ByIngredientCode(ctx context.Context, code int64) (fooddata.Food, error)
}

// Observer receives one call per top-level categorization.
type Observer interface {
	Categorized(c Categorization)
}

// Categorization is the verdict for one food.
type Categorization struct {
	Category diet.Category `json:"category"`
	Source   diet.Source   `json:"source"`
	// Discrepancies holds the heuristic verdict when it disagrees with the
	// reference sample that overrode it.
	Discrepancies map[diet.Source]diet.Category `json:"discrepancies,omitempty"`
}

// Result pairs a food with its categorization.
type Result struct {
	Food fooddata.Food
	Categorization
}

// Categorizer is scoped to one run: its memo and reference samples are
// never shared across runs. It is safe for concurrent use.
type Categorizer struct {
	foods      Foods
	refs       *refsample.Set
	classifier *tokens.Classifier
	observer   Observer
	logger     *slog.Logger

	// heuristic and final hold results that do not depend on the call path,
	// keyed by FDC ID.
	heuristic sync.Map
	final     sync.Map

	mu            sync.Mutex
	discrepancies map[int64]Discrepancy
}

type Option func(*Categorizer)

// WithObserver reports every top-level categorization to o.
func WithObserver(o Observer) Option {
	return func(c *Categorizer) { c.observer = o }
}

// WithLogger replaces the default component logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Categorizer) { c.logger = l }
}

// New returns a categorizer over foods. refs may be nil.
func New(foods Foods, refs *refsample.Set, classifier *tokens.Classifier, opts ...Option) *Categorizer {
	c := &Categorizer{
		foods:         foods,
		refs:          refs,
		classifier:    classifier,
		logger:        slog.Default().With("component", "categorizer"),
		discrepancies: make(map[int64]Discrepancy),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Categorize returns the final category of food. A reference sample, when
// present, decides the category; the heuristic still runs so disagreements
// are recorded.
func (c *Categorizer) Categorize(ctx context.Context, food fooddata.Food) (Categorization, error) {
	h, _, err := c.heuristicCategory(ctx, food, newWalk())
	if err != nil {
		return Categorization{}, err
	}
	result := Categorization{Category: h, Source: diet.SourceHeuristic}
	if ref, ok := c.refs.Get(food.FdcID); ok {
		result.Category = ref.ExpectedCategory
		result.Source = diet.SourceReference
		if ref.ExpectedCategory != h {
			result.Discrepancies = map[diet.Source]diet.Category{diet.SourceHeuristic: h}
			c.recordDiscrepancy(food, ref, h)
		}
	}
	if c.observer != nil {
		c.observer.Categorized(result)
	}
	return result, nil
}

// Heuristic returns the category the rules give food, ignoring any reference
// sample for food itself. Ingredients still honour their own samples.
func (c *Categorizer) Heuristic(ctx context.Context, food fooddata.Food) (diet.Category, error) {
	h, _, err := c.heuristicCategory(ctx, food, newWalk())
	return h, err
}

// walk is the state of one top-level categorization. path holds the foods
// currently being expanded. heuristic and final remember results that cut a
// cycle; they only hold for walks from the same starting food, so they die
// with the walk.
type walk struct {
	path      map[int64]bool
	heuristic map[int64]diet.Category
	final     map[int64]diet.Category
}

func newWalk() *walk {
	return &walk{
		path:      make(map[int64]bool),
		heuristic: make(map[int64]diet.Category),
		final:     make(map[int64]diet.Category),
	}
}

// finalCategory is the category food contributes as an ingredient.
//
// The returned flag reports whether an ingredient cycle was cut anywhere
// below food. Such a result depends on where the walk started and is kept
// in w only; everything in the shared memo is a pure function of the food
// graph, so results do not depend on categorization order.
func (c *Categorizer) finalCategory(ctx context.Context, food fooddata.Food, w *walk) (diet.Category, bool, error) {
	if v, ok := c.final.Load(food.FdcID); ok {
		return v.(diet.Category), false, nil
	}
	if v, ok := w.final[food.FdcID]; ok {
		return v, true, nil
	}
	if ref, ok := c.refs.Get(food.FdcID); ok {
		c.final.Store(food.FdcID, ref.ExpectedCategory)
		return ref.ExpectedCategory, false, nil
	}
	h, tainted, err := c.heuristicCategory(ctx, food, w)
	if err != nil {
		return diet.Uncategorized, false, err
	}
	if tainted {
		w.final[food.FdcID] = h
	} else {
		c.final.Store(food.FdcID, h)
	}
	return h, tainted, nil
}

func (c *Categorizer) heuristicCategory(ctx context.Context, food fooddata.Food, w *walk) (diet.Category, bool, error) {
	if v, ok := c.heuristic.Load(food.FdcID); ok {
		return v.(diet.Category), false, nil
	}
	if v, ok := w.heuristic[food.FdcID]; ok {
		return v, true, nil
	}
	if err := ctx.Err(); err != nil {
		return diet.Uncategorized, false, err
	}
	if err := food.Validate(); err != nil {
		return diet.Uncategorized, false, err
	}

	w.path[food.FdcID] = true
	defer delete(w.path, food.FdcID)

	var (
		present diet.CategorySet
		tainted bool
	)
	for _, code := range food.IngredientIDs {
		ing, err := c.foods.ByIngredientCode(ctx, code)
		if err != nil {
			if apperrors.IsMissing(err) {
				c.logger.Debug("ingredient not found", "fdc_id", food.FdcID, "ingredient_code", code)
				continue
			}
			return diet.Uncategorized, false, fmt.Errorf("looking up ingredient %d of fdc id %d: %w", code, food.FdcID, err)
		}
		if ing.FdcID == food.FdcID {
			return diet.Uncategorized, false, fmt.Errorf("%w: fdc id %d resolves ingredient code %d to itself",
				apperrors.ErrSelfReference, food.FdcID, code)
		}
		if w.path[ing.FdcID] {
			c.logger.Debug("ingredient cycle cut", "fdc_id", food.FdcID, "ingredient_fdc_id", ing.FdcID)
			tainted = true
			continue
		}
		cat, ingTainted, err := c.finalCategory(ctx, ing, w)
		if err != nil {
			return diet.Uncategorized, false, err
		}
		c.logger.Debug("ingredient categorized",
			"fdc_id", food.FdcID, "ingredient_fdc_id", ing.FdcID, "category", cat)
		tainted = tainted || ingTainted
		present = present.Add(cat)
	}

	result := diet.Merge(present)
	if result == diet.Uncategorized {
		result = c.classifier.Categorize(food.Description)
	}

	if tainted {
		w.heuristic[food.FdcID] = result
	} else {
		c.heuristic.Store(food.FdcID, result)
	}
	return result, tainted, nil
}
