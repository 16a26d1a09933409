package diet

import (
	"fmt"
)

// TokenCategory classifies one vocabulary phrase.
type TokenCategory uint8

const (
	// Block matches a known false-positive phrase and contributes nothing,
	// e.g. "graham" keeps "ham" from matching inside "graham cracker".
	Block TokenCategory = iota
	NullifiesOmni
	NullifiesOmniAndVegetarian
	SuggestsVegan
	SuggestsVeganOrVegetarian
	SuggestsVegetarian
	SuggestsVeganOrOmni
	SuggestsVeganVegetarianOrOmni
	SuggestsVegetarianOrOmni
	SuggestsOmni
)

var tokenCategoryNames = map[TokenCategory]string{
	Block:                         "BLOCK",
	NullifiesOmni:                 "NULLIFIES_OMNI",
	NullifiesOmniAndVegetarian:    "NULLIFIES_OMNI_AND_VEGETARIAN",
	SuggestsVegan:                 "SUGGESTS_VEGAN",
	SuggestsVeganOrVegetarian:     "SUGGESTS_VEGAN_OR_VEGETARIAN",
	SuggestsVegetarian:            "SUGGESTS_VEGETARIAN",
	SuggestsVeganOrOmni:           "SUGGESTS_VEGAN_OR_OMNI",
	SuggestsVeganVegetarianOrOmni: "SUGGESTS_VEGAN_VEGETARIAN_OR_OMNI",
	SuggestsVegetarianOrOmni:      "SUGGESTS_VEGETARIAN_OR_OMNI",
	SuggestsOmni:                  "SUGGESTS_OMNI",
}

var suggestions = map[TokenCategory]Category{
	SuggestsVegan:                 Vegan,
	SuggestsVeganOrVegetarian:     VeganOrVegetarian,
	SuggestsVegetarian:            Vegetarian,
	SuggestsVeganOrOmni:           VeganOrOmni,
	SuggestsVeganVegetarianOrOmni: VeganVegetarianOrOmni,
	SuggestsVegetarianOrOmni:      VegetarianOrOmni,
	SuggestsOmni:                  Omni,
}

func (t TokenCategory) String() string {
	if name, ok := tokenCategoryNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenCategory(%d)", uint8(t))
}

// Suggests returns the diet category a SUGGESTS_* token stands for.
func (t TokenCategory) Suggests() (Category, bool) {
	c, ok := suggestions[t]
	return c, ok
}

func ParseTokenCategory(s string) (TokenCategory, error) {
	for t, name := range tokenCategoryNames {
		if name == s {
			return t, nil
		}
	}
	return Block, fmt.Errorf("unknown token category %q", s)
}

// TokenSet is the set of token categories matched in one description.
type TokenSet uint16

func NewTokenSet(ts ...TokenCategory) TokenSet {
	var s TokenSet
	for _, t := range ts {
		s = s.Add(t)
	}
	return s
}

func (s TokenSet) Add(t TokenCategory) TokenSet {
	return s | 1<<t
}

func (s TokenSet) Has(t TokenCategory) bool {
	return s&(1<<t) != 0
}

// Slice lists the members of s in declaration order.
func (s TokenSet) Slice() []TokenCategory {
	var out []TokenCategory
	for t := Block; t <= SuggestsOmni; t++ {
		if s.Has(t) {
			out = append(out, t)
		}
	}
	return out
}

// precedence is the strict short-circuit order used for descriptions. Unlike
// Merge, the first category present wins outright.
var precedence = []Category{
	Omni,
	VegetarianOrOmni,
	VeganVegetarianOrOmni,
	VeganOrOmni,
	Vegetarian,
	VeganOrVegetarian,
	Vegan,
}

// Resolve turns the token categories matched in a description into a single
// diet category. Nullifiers are applied to every suggestion first; BLOCK
// carries no signal.
func Resolve(s TokenSet) Category {
	var present CategorySet
	for t, c := range suggestions {
		if !s.Has(t) {
			continue
		}
		switch {
		case s.Has(NullifiesOmniAndVegetarian):
			c = WithoutOmniAndVegetarian(c)
		case s.Has(NullifiesOmni):
			c = WithoutOmni(c)
		}
		present = present.Add(c)
	}
	// A nullifier on its own ("vegan patty") still narrows the open question.
	if present.Empty() {
		switch {
		case s.Has(NullifiesOmniAndVegetarian):
			return Vegan
		case s.Has(NullifiesOmni):
			return VeganOrVegetarian
		}
	}
	for _, c := range precedence {
		if present.Has(c) {
			return c
		}
	}
	return Uncategorized
}
