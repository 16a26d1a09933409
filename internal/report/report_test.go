package report

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/categorizer"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/diet"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/fooddata"
)

func record(a *Aggregator, id int64, foodCategory string, c diet.Category, src diet.Source) {
	cat := categorizer.Categorization{Category: c, Source: src}
	if src == diet.SourceReference {
		cat.Discrepancies = map[diet.Source]diet.Category{diet.SourceHeuristic: diet.Omni}
	}
	a.Record(fooddata.Food{
		FdcID:       id,
		Description: fmt.Sprintf("food %03d", id),
		Category:    foodCategory,
		Dataset:     "survey",
	}, cat)
}

func TestStats(t *testing.T) {
	a := NewAggregator("run-1", 2, 1)
	record(a, 1, "Soups", diet.Omni, diet.SourceHeuristic)
	record(a, 2, "Soups", diet.Omni, diet.SourceHeuristic)
	record(a, 3, "Soups", diet.Vegan, diet.SourceReference)
	record(a, 4, "Salads", diet.Vegan, diet.SourceHeuristic)

	s := a.Stats()
	require.Equal(t, "run-1", s.RunID)
	require.EqualValues(t, 4, s.Total)
	require.EqualValues(t, 2, s.ByCategory[diet.Omni])
	require.EqualValues(t, 2, s.ByCategory[diet.Vegan])
	require.Zero(t, s.ByCategory[diet.Vegetarian])
	require.Len(t, s.ByCategory, len(diet.Categories))
	require.EqualValues(t, 1, s.BySource[diet.SourceReference])
	require.EqualValues(t, 1, s.Discrepancies)
	require.Equal(t, map[string]int64{"survey": 4}, s.ByDataset)
	require.Equal(t, []FoodCategoryCounts{
		{FoodCategory: "Salads", Counts: map[diet.Category]int64{diet.Vegan: 1}},
		{FoodCategory: "Soups", Counts: map[diet.Category]int64{diet.Omni: 2, diet.Vegan: 1}},
	}, s.ByFoodCategory)
	require.Equal(t, []NameCount{{"Salads", 1}, {"Soups", 1}}, s.TopFoodCategories[diet.Vegan])
}

func TestSamplesArePaddedAndSeeded(t *testing.T) {
	run := func() map[diet.Category][]Sample {
		a := NewAggregator("", 3, 42)
		for i := int64(1); i <= 50; i++ {
			record(a, i, "Soups", diet.Omni, diet.SourceHeuristic)
		}
		record(a, 99, "Salads", diet.Vegan, diet.SourceHeuristic)
		return a.Samples()
	}
	first := run()
	require.Equal(t, first, run())

	require.Len(t, first[diet.Omni], 3)
	for _, s := range first[diet.Omni] {
		require.False(t, s.IsPadding())
	}
	require.Equal(t, []Sample{{FdcID: 99, Description: "food 099"}, {FdcID: -1}, {FdcID: -1}}, first[diet.Vegan])
	require.Len(t, first[diet.Vegetarian], 3)
	require.True(t, first[diet.Vegetarian][0].IsPadding())
}

func TestConcurrentRecord(t *testing.T) {
	a := NewAggregator("", 5, 7)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				record(a, int64(w*100+i), "Soups", diet.Vegetarian, diet.SourceHeuristic)
			}
		}(w)
	}
	wg.Wait()
	require.EqualValues(t, 800, a.Stats().ByCategory[diet.Vegetarian])
}
