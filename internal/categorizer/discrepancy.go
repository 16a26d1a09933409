package categorizer

import (
	"slices"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/diet"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/fooddata"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/refsample"
)

// Discrepancy is a food whose reference sample disagrees with the heuristic.
type Discrepancy struct {
	FdcID        int64         `json:"fdcId"`
	Description  string        `json:"description"`
	Reference    diet.Category `json:"reference"`
	Heuristic    diet.Category `json:"heuristic"`
	KnownFailure bool          `json:"knownFailure"`
}

func (c *Categorizer) recordDiscrepancy(food fooddata.Food, ref refsample.Sample, h diet.Category) {
	c.mu.Lock()
	_, seen := c.discrepancies[food.FdcID]
	c.discrepancies[food.FdcID] = Discrepancy{
		FdcID:        food.FdcID,
		Description:  food.Description,
		Reference:    ref.ExpectedCategory,
		Heuristic:    h,
		KnownFailure: ref.KnownFailure,
	}
	c.mu.Unlock()
	if seen {
		return
	}
	if ref.KnownFailure {
		c.logger.Debug("known heuristic failure overridden",
			"fdc_id", food.FdcID, "reference", ref.ExpectedCategory, "heuristic", h)
		return
	}
	c.logger.Warn("heuristic disagrees with reference sample",
		"fdc_id", food.FdcID, "description", food.Description,
		"reference", ref.ExpectedCategory, "heuristic", h)
}

// Discrepancies returns every disagreement recorded so far, by FDC ID.
func (c *Categorizer) Discrepancies() []Discrepancy {
	c.mu.Lock()
	out := make([]Discrepancy, 0, len(c.discrepancies))
	for _, d := range c.discrepancies {
		out = append(out, d)
	}
	c.mu.Unlock()
	slices.SortFunc(out, func(a, b Discrepancy) int {
		switch {
		case a.FdcID < b.FdcID:
			return -1
		case a.FdcID > b.FdcID:
			return 1
		}
		return 0
	})
	return out
}
