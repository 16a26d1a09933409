package diet

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/errors"
)

func TestMergeTable(t *testing.T) {
	tests := []struct {
		name string
		in   []Category
		want Category
	}{
		{"empty", nil, Uncategorized},
		{"only uncategorized", []Category{Uncategorized}, Uncategorized},
		{"omni wins", []Category{Vegan, Omni, Vegetarian}, Omni},
		{"vegetarian or omni", []Category{Vegan, VegetarianOrOmni}, VegetarianOrOmni},
		{"vvo with vegetarian", []Category{VeganVegetarianOrOmni, Vegetarian}, VegetarianOrOmni},
		{"vvo alone", []Category{VeganVegetarianOrOmni, Vegan}, VeganVegetarianOrOmni},
		{"vegan or omni with vegetarian", []Category{VeganOrOmni, Vegetarian}, VegetarianOrOmni},
		{"vegan or omni alone", []Category{VeganOrOmni, Vegan}, VeganOrOmni},
		{"vvo beats vegan or omni", []Category{VeganOrOmni, VeganVegetarianOrOmni}, VeganVegetarianOrOmni},
		{"vegetarian", []Category{Vegan, Vegetarian, VeganOrVegetarian}, Vegetarian},
		{"vegan or vegetarian", []Category{Vegan, VeganOrVegetarian}, VeganOrVegetarian},
		{"vegan", []Category{Vegan, Vegan}, Vegan},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, MergeAll(tt.in...))
		})
	}
}

func TestMergeIsOrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		n := rng.Intn(6)
		cs := make([]Category, n)
		for j := range cs {
			cs[j] = Categories[rng.Intn(len(Categories))]
		}
		want := MergeAll(cs...)
		rng.Shuffle(len(cs), func(a, b int) { cs[a], cs[b] = cs[b], cs[a] })
		require.Equal(t, want, MergeAll(cs...), "permutation of %v", cs)

		// associativity: merging a merged prefix with the rest changes nothing
		if n > 1 {
			k := rng.Intn(n)
			prefix := MergeAll(cs[:k]...)
			require.Equal(t, want, MergeAll(append([]Category{prefix}, cs[k:]...)...), "split of %v at %d", cs, k)
		}
	}
}

func TestOmniAbsorbsAndUncategorizedIsNeutral(t *testing.T) {
	for _, a := range Categories {
		for _, b := range Categories {
			require.Equal(t, Omni, MergeAll(a, b, Omni))
			if got := MergeAll(a, b); got != Uncategorized {
				require.Equal(t, got, MergeAll(a, b, Uncategorized))
			}
		}
	}
}

func TestResolvePrecedence(t *testing.T) {
	tests := []struct {
		name string
		in   TokenSet
		want Category
	}{
		{"nothing", NewTokenSet(), Uncategorized},
		{"block only", NewTokenSet(Block), Uncategorized},
		{"omni short-circuits", NewTokenSet(SuggestsVegan, SuggestsVegetarian, SuggestsOmni), Omni},
		{"vvo over vegetarian", NewTokenSet(SuggestsVegetarian, SuggestsVeganVegetarianOrOmni), VeganVegetarianOrOmni},
		{"vegetarian over vegan or vegetarian", NewTokenSet(SuggestsVeganOrVegetarian, SuggestsVegetarian), Vegetarian},
		{"vegan or vegetarian over vegan", NewTokenSet(SuggestsVegan, SuggestsVeganOrVegetarian), VeganOrVegetarian},
		{"vegan", NewTokenSet(SuggestsVegan), Vegan},
		{"meatless burger", NewTokenSet(NullifiesOmni, SuggestsOmni), VeganOrVegetarian},
		{"meatless cheese", NewTokenSet(NullifiesOmni, SuggestsOmni, SuggestsVegetarian), Vegetarian},
		{"vegan cheese", NewTokenSet(NullifiesOmniAndVegetarian, SuggestsVegetarian), Vegan},
		{"vegan alone", NewTokenSet(NullifiesOmniAndVegetarian), Vegan},
		{"meatless alone", NewTokenSet(NullifiesOmni), VeganOrVegetarian},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Resolve(tt.in))
		})
	}
}

func TestWithoutOmni(t *testing.T) {
	require.Equal(t, VeganOrVegetarian, WithoutOmni(VeganVegetarianOrOmni))
	require.Equal(t, Vegetarian, WithoutOmni(VegetarianOrOmni))
	require.Equal(t, Vegan, WithoutOmni(VeganOrOmni))
	require.Equal(t, Uncategorized, WithoutOmni(Uncategorized))
	require.Equal(t, Uncategorized, WithoutOmniAndVegetarian(Uncategorized))
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories {
		got, err := ParseCategory(c.String())
		require.NoError(t, err)
		require.Equal(t, c, got)
	}
	_, err := ParseCategory("PESCATARIAN")
	require.ErrorIs(t, err, apperrors.ErrInvalidCategoryOverride)
}

func TestCategoryJSON(t *testing.T) {
	data, err := json.Marshal(map[string]Category{"c": VeganOrOmni})
	require.NoError(t, err)
	require.JSONEq(t, `{"c":"VEGAN_OR_OMNI"}`, string(data))

	var back map[string]Category
	require.NoError(t, json.Unmarshal(data, &back))
	require.Equal(t, VeganOrOmni, back["c"])

	data, err = json.Marshal(map[Source]Category{SourceHeuristic: Omni})
	require.NoError(t, err)
	require.JSONEq(t, `{"HEURISTIC":"OMNI"}`, string(data))
}

func TestTokenSetSlice(t *testing.T) {
	s := NewTokenSet(SuggestsOmni, Block, SuggestsVegan)
	require.Equal(t, []TokenCategory{Block, SuggestsVegan, SuggestsOmni}, s.Slice())
	tc, err := ParseTokenCategory("NULLIFIES_OMNI")
	require.NoError(t, err)
	require.Equal(t, NullifiesOmni, tc)
}

func TestParseCategoryOrShortcut(t *testing.T) {
	c, err := ParseCategoryOrShortcut("vgt")
	require.NoError(t, err)
	require.Equal(t, Vegetarian, c)
	c, err = ParseCategoryOrShortcut("vegan_or_omni")
	require.NoError(t, err)
	require.Equal(t, VeganOrOmni, c)
	_, err = ParseCategoryOrShortcut("x")
	require.ErrorIs(t, err, apperrors.ErrInvalidCategoryOverride)
}
