// Package sink persists categorization results: the VegAttributes JSON file,
// the SQLite food database, PostgreSQL, Redis and a Kafka topic. Multi fans a
// run's results out to every configured sink with retries.
package sink

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/categorizer"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/diet"
)

// Sink receives the complete results of one run, in archive order.
type Sink interface {
	Name() string
	Write(ctx context.Context, results []categorizer.Result) error
}

// Record is the FoodData Central-like shape results are published in. The
// debug fields are only filled for debug output.
type Record struct {
	FdcID          int64         `json:"fdcId"`
	VegCategory    diet.Category `json:"vegCategory"`
	Description    string        `json:"description,omitempty"`
	Dataset        string        `json:"dataset,omitempty"`
	Source         *diet.Source  `json:"source,omitempty"`
	IngredientCode int64         `json:"ingredientCode,omitempty"`

	Discrepancies map[diet.Source]diet.Category `json:"discrepancies,omitempty"`
}

// NewRecord converts r; with debug set it also carries the description,
// dataset, source, ingredient code and any discrepancies.
func NewRecord(r categorizer.Result, debug bool) Record {
	rec := Record{FdcID: r.Food.FdcID, VegCategory: r.Category}
	if debug {
		src := r.Source
		rec.Description = r.Food.Description
		rec.Dataset = r.Food.Dataset
		rec.Source = &src
		rec.IngredientCode = r.Food.ID
		rec.Discrepancies = r.Discrepancies
	}
	return rec
}
