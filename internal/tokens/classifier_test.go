package tokens

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/diet"
	apperrors "github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/errors"
)

func TestLongestPhraseWins(t *testing.T) {
	c, err := New(Vocabulary{
		diet.SuggestsVegan:             {"almond"},
		diet.SuggestsVeganOrVegetarian: {"almond milk"},
	})
	require.NoError(t, err)

	got := c.Classify("unsweetened almond milk beverage")
	require.Equal(t, []diet.TokenCategory{diet.SuggestsVeganOrVegetarian}, got.Slice())
	require.Equal(t, diet.VeganOrVegetarian, c.Categorize("unsweetened almond milk beverage"))
	require.Equal(t, diet.Vegan, c.Categorize("Almonds, raw"))
}

func TestDefaultVocabulary(t *testing.T) {
	c := Default()
	tests := []struct {
		desc string
		want diet.Category
	}{
		{"chicken soup, nfs", diet.Omni},
		{"kale and quinoa salad", diet.Vegan},
		{"Milk, whole", diet.Vegetarian},
		{"Graham crackers", diet.VeganOrVegetarian},
		{"Eggplant parmesan", diet.Vegan},
		{"Meatless burger", diet.VeganOrVegetarian},
		{"Vegan cheese", diet.Vegan},
		{"Wine, table, red", diet.VeganVegetarianOrOmni},
		{"Quiche with spinach", diet.VegetarianOrOmni},
		{"Chili, nfs", diet.VeganOrOmni},
		{"Xylitol", diet.Uncategorized},
		{"", diet.Uncategorized},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			require.Equal(t, tt.want, c.Categorize(tt.desc))
		})
	}
}

func TestMatchesReportsOffsets(t *testing.T) {
	c := Default()
	ms := c.Matches("Peanut butter and jelly sandwich")
	require.Equal(t, []Match{
		{Phrase: "peanut butter", Category: diet.SuggestsVegan, Offset: 0},
		{Phrase: "jelly", Category: diet.SuggestsVeganVegetarianOrOmni, Offset: 18},
	}, ms)
}

func TestNewRejectsAmbiguousVocabulary(t *testing.T) {
	_, err := New(Vocabulary{
		diet.SuggestsVegan: {"gum"},
		diet.SuggestsOmni:  {"GUM "},
	})
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = New(Vocabulary{diet.Block: {" "}})
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestEmptyVocabularyMatchesNothing(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)
	require.Zero(t, c.Len())
	require.Empty(t, c.Matches("anything"))
	require.Equal(t, diet.Uncategorized, c.Categorize("anything"))
}

func TestDefaultVocabularyIsACopy(t *testing.T) {
	v := DefaultVocabulary()
	v[diet.SuggestsOmni] = append(v[diet.SuggestsOmni], "haggis")
	require.NotContains(t, DefaultVocabulary()[diet.SuggestsOmni], "haggis")
}

// BenchmarkCategorize measures description classification over the default
// vocabulary.
func BenchmarkCategorize(b *testing.B) {
	c := Default()
	descs := []string{
		"Chicken, broilers or fryers, breast, meat only, cooked, roasted",
		"Beans, kidney, all types, mature seeds, raw",
		"Cheese, cheddar, sharp, sliced",
		"Graham crackers, chocolate-coated",
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Categorize(descs[i%len(descs)])
	}
}
