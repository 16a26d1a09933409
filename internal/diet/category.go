// Package diet defines the diet categories a food can be assigned, the token
// categories vocabulary phrases carry, and the pure functions that combine
// them. All merge and precedence rules live here so the lattice can be
// audited in one place.
package diet

import (
	"fmt"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/errors"
)

// Category is the diet suitability of a food.
type Category uint8

const (
	Uncategorized Category = iota
	Vegan
	VeganOrVegetarian
	Vegetarian
	VeganOrOmni
	VeganVegetarianOrOmni
	VegetarianOrOmni
	Omni
)

// Categories lists every category in reporting order.
var Categories = []Category{
	Vegan,
	VeganOrVegetarian,
	Vegetarian,
	VeganOrOmni,
	VeganVegetarianOrOmni,
	VegetarianOrOmni,
	Omni,
	Uncategorized,
}

var categoryNames = map[Category]string{
	Uncategorized:         "UNCATEGORIZED",
	Vegan:                 "VEGAN",
	VeganOrVegetarian:     "VEGAN_OR_VEGETARIAN",
	Vegetarian:            "VEGETARIAN",
	VeganOrOmni:           "VEGAN_OR_OMNI",
	VeganVegetarianOrOmni: "VEGAN_VEGETARIAN_OR_OMNI",
	VegetarianOrOmni:      "VEGETARIAN_OR_OMNI",
	Omni:                  "OMNI",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Category(%d)", uint8(c))
}

// ParseCategory parses the upper-case category name used in CSV and JSON.
func ParseCategory(s string) (Category, error) {
	for c, name := range categoryNames {
		if name == s {
			return c, nil
		}
	}
	return Uncategorized, fmt.Errorf("%w: unknown diet category %q", apperrors.ErrInvalidCategoryOverride, s)
}

func (c Category) MarshalText() ([]byte, error) {
	if _, ok := categoryNames[c]; !ok {
		return nil, fmt.Errorf("marshaling invalid category %d", uint8(c))
	}
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	parsed, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Source records where a final category came from.
type Source uint8

const (
	SourceHeuristic Source = iota
	SourceReference
)

func (s Source) String() string {
	switch s {
	case SourceHeuristic:
		return "HEURISTIC"
	case SourceReference:
		return "REFERENCE"
	default:
		return fmt.Sprintf("Source(%d)", uint8(s))
	}
}

func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Source) UnmarshalText(b []byte) error {
	switch string(b) {
	case "HEURISTIC":
		*s = SourceHeuristic
	case "REFERENCE":
		*s = SourceReference
	default:
		return fmt.Errorf("%w: unknown source %q", apperrors.ErrInvalidInput, b)
	}
	return nil
}

// shortcuts are the abbreviations accepted when curating reference samples.
var shortcuts = map[string]Category{
	"veg": Vegan,
	"vov": VeganOrVegetarian,
	"vgt": Vegetarian,
	"vgo": VeganOrOmni,
	"vvo": VeganVegetarianOrOmni,
	"vto": VegetarianOrOmni,
	"o":   Omni,
}

// ParseCategoryOrShortcut accepts either a full category name or one of the
// curation shortcuts ("veg", "vgt", "o", ...).
func ParseCategoryOrShortcut(s string) (Category, error) {
	if c, ok := shortcuts[strings.ToLower(s)]; ok {
		return c, nil
	}
	return ParseCategory(strings.ToUpper(s))
}
