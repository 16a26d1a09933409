// Package fooddata defines the Food record, reads FoodData Central dataset
// files into it, and stores foods in an indexed archive addressable by FDC
// ID, ingredient code and category description.
package fooddata

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/recordstore"
	apperrors "github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/errors"
)

// Index names used in food archives.
const (
	IndexFdcID          = "fdc-id"
	IndexIngredientCode = "ingredient-code"
	IndexCategory       = "fdc-category-description"
)

// Food is one FoodData Central entry reduced to what categorization needs.
type Food struct {
	// ID is the dataset-local code (FNDDS foodCode or SR ndbNumber) other
	// foods use to list this one as an ingredient. Zero when absent.
	ID            int64   `json:"id,omitempty"`
	FdcID         int64   `json:"fdcId"`
	Description   string  `json:"description"`
	Category      string  `json:"category,omitempty"`
	IngredientIDs []int64 `json:"ingredientIds,omitempty"`
	Dataset       string  `json:"dataset,omitempty"`
}

// Validate checks the invariants every stored food must satisfy.
func (f Food) Validate() error {
	if f.FdcID <= 0 {
		return fmt.Errorf("%w: food %q has no FDC ID", apperrors.ErrInvalidInput, f.Description)
	}
	if f.ID != 0 && slices.Contains(f.IngredientIDs, f.ID) {
		return fmt.Errorf("%w: fdc id %d (ingredient code %d)", apperrors.ErrSelfReference, f.FdcID, f.ID)
	}
	return nil
}

// AppURL links to the food's page on the FoodData Central site.
func AppURL(fdcID int64) string {
	return fmt.Sprintf("https://fdc.nal.usda.gov/fdc-app.html#/food-details/%d", fdcID)
}

// FdcKey formats an FDC ID as a primary key.
func FdcKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Indices returns the primary index and the secondary indices of a food
// archive.
func Indices() (recordstore.IndexSpec[Food], []recordstore.IndexSpec[Food]) {
	primary := recordstore.IndexSpec[Food]{
		Name: IndexFdcID,
		Key: func(f Food) (string, bool) {
			return FdcKey(f.FdcID), f.FdcID > 0
		},
	}
	secondaries := []recordstore.IndexSpec[Food]{
		{
			Name:   IndexIngredientCode,
			Unique: true,
			Key: func(f Food) (string, bool) {
				return strconv.FormatInt(f.ID, 10), f.ID != 0
			},
		},
		{
			Name: IndexCategory,
			Key: func(f Food) (string, bool) {
				return f.Category, f.Category != ""
			},
		},
	}
	return primary, secondaries
}
