package categorizer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/diet"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/fooddata"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/refsample"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/tokens"
	apperrors "github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/errors"
)

func newStore(t *testing.T, foods ...fooddata.Food) *fooddata.Store {
	t.Helper()
	store, put, err := fooddata.NewMemoryStore()
	require.NoError(t, err)
	for _, f := range foods {
		require.NoError(t, put(f))
	}
	return store
}

func categorize(t *testing.T, c *Categorizer, store *fooddata.Store, fdcID int64) Categorization {
	t.Helper()
	ctx := context.Background()
	f, err := store.ByFdcID(ctx, fdcID)
	require.NoError(t, err)
	got, err := c.Categorize(ctx, f)
	require.NoError(t, err)
	return got
}

type recorder struct {
	mu   sync.Mutex
	seen []Categorization
}

func (r *recorder) Categorized(c Categorization) {
	r.mu.Lock()
	r.seen = append(r.seen, c)
	r.mu.Unlock()
}

func TestCategorizeScenario(t *testing.T) {
	store := newStore(t,
		fooddata.Food{ID: 1, FdcID: 101, Description: "chicken soup, nfs"},
		fooddata.Food{ID: 2, FdcID: 102, Description: "soup base", IngredientIDs: []int64{1, 1}},
		fooddata.Food{ID: 3, FdcID: 103, Description: "kale and quinoa salad"},
		fooddata.Food{ID: 4, FdcID: 104, Description: "milk"},
	)
	refs := refsample.NewSet([]refsample.Sample{{FdcID: 104, ExpectedCategory: diet.Vegetarian}})
	rec := &recorder{}
	c := New(store, refs, tokens.Default(), WithObserver(rec))

	require.Equal(t, Categorization{Category: diet.Omni, Source: diet.SourceHeuristic}, categorize(t, c, store, 101))
	require.Equal(t, Categorization{Category: diet.Omni, Source: diet.SourceHeuristic}, categorize(t, c, store, 102))
	require.Equal(t, Categorization{Category: diet.Vegan, Source: diet.SourceHeuristic}, categorize(t, c, store, 103))
	require.Equal(t, Categorization{Category: diet.Vegetarian, Source: diet.SourceReference}, categorize(t, c, store, 104))

	require.Empty(t, c.Discrepancies())
	require.Len(t, rec.seen, 4)
}

func TestIngredientsOverrideDescription(t *testing.T) {
	store := newStore(t,
		fooddata.Food{ID: 1, FdcID: 11, Description: "kale"},
		fooddata.Food{ID: 2, FdcID: 12, Description: "milk"},
		fooddata.Food{ID: 3, FdcID: 13, Description: "beef flavored dish", IngredientIDs: []int64{1, 2}},
		fooddata.Food{ID: 4, FdcID: 14, Description: "beef", IngredientIDs: []int64{404}},
	)
	c := New(store, nil, tokens.Default())

	require.Equal(t, diet.Vegetarian, categorize(t, c, store, 13).Category)
	// a missing ingredient gives no signal, so the description decides
	require.Equal(t, diet.Omni, categorize(t, c, store, 14).Category)
}

func TestReferenceOverridesAndRecordsDiscrepancy(t *testing.T) {
	store := newStore(t,
		fooddata.Food{ID: 1, FdcID: 11, Description: "chicken broth"},
		fooddata.Food{ID: 2, FdcID: 12, Description: "noodle soup", IngredientIDs: []int64{1}},
		fooddata.Food{ID: 3, FdcID: 13, Description: "bacon"},
	)
	refs := refsample.NewSet([]refsample.Sample{
		{FdcID: 11, ExpectedCategory: diet.Vegan},
		{FdcID: 13, ExpectedCategory: diet.Vegetarian, KnownFailure: true},
	})
	c := New(store, refs, tokens.Default())

	got := categorize(t, c, store, 11)
	require.Equal(t, diet.Vegan, got.Category)
	require.Equal(t, diet.SourceReference, got.Source)
	require.Equal(t, map[diet.Source]diet.Category{diet.SourceHeuristic: diet.Omni}, got.Discrepancies)

	// the override also applies when the food is an ingredient
	require.Equal(t, diet.Vegan, categorize(t, c, store, 12).Category)

	categorize(t, c, store, 13)
	require.Equal(t, []Discrepancy{
		{FdcID: 11, Description: "chicken broth", Reference: diet.Vegan, Heuristic: diet.Omni},
		{FdcID: 13, Description: "bacon", Reference: diet.Vegetarian, Heuristic: diet.Omni, KnownFailure: true},
	}, c.Discrepancies())
}

func TestCycleIsCutDeterministically(t *testing.T) {
	foods := []fooddata.Food{
		{ID: 10, FdcID: 100, Description: "beef stew", IngredientIDs: []int64{20}},
		{ID: 20, FdcID: 200, Description: "kale", IngredientIDs: []int64{10}},
	}
	want := map[int64]diet.Category{100: diet.Vegan, 200: diet.Omni}

	orders := [][]int64{{100, 200}, {200, 100}}
	for _, order := range orders {
		store := newStore(t, foods...)
		c := New(store, nil, tokens.Default())
		for _, id := range order {
			require.Equal(t, want[id], categorize(t, c, store, id).Category, "order %v fdc id %d", order, id)
		}
		// memoized state must not change later answers
		for _, id := range order {
			require.Equal(t, want[id], categorize(t, c, store, id).Category)
		}
	}

	store := newStore(t, foods...)
	c := New(store, nil, tokens.Default())
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		id := orders[0][i%2]
		wg.Add(1)
		go func() {
			defer wg.Done()
			f, err := store.ByFdcID(context.Background(), id)
			if err != nil {
				t.Error(err)
				return
			}
			got, err := c.Categorize(context.Background(), f)
			if err != nil {
				t.Error(err)
				return
			}
			if got.Category != want[id] {
				t.Errorf("fdc id %d: got %s, want %s", id, got.Category, want[id])
			}
		}()
	}
	wg.Wait()
}

type countingFoods struct {
	Foods
	lookups atomic.Int64
}

func (f *countingFoods) ByIngredientCode(ctx context.Context, code int64) (fooddata.Food, error) {
	f.lookups.Add(1)
	return f.Foods.ByIngredientCode(ctx, code)
}

func TestCyclicGraphIsWalkedOncePerCall(t *testing.T) {
	const n = 40
	foods := make([]fooddata.Food, n)
	for i := range n {
		f := fooddata.Food{ID: int64(i + 1), FdcID: int64(1000 + i), Description: "kale"}
		switch i {
		case n - 1:
			f.Description = "beef"
			f.IngredientIDs = []int64{1}
		case n - 2:
			f.IngredientIDs = []int64{int64(i + 2)}
		default:
			f.IngredientIDs = []int64{int64(i + 2), int64(i + 3)}
		}
		foods[i] = f
	}
	store := newStore(t, foods...)
	counted := &countingFoods{Foods: store}
	c := New(counted, nil, tokens.Default())

	// the cut back to the first food leaves the last with only its description
	require.Equal(t, diet.Omni, categorize(t, c, store, 1000).Category)

	for _, f := range foods {
		counted.lookups.Store(0)
		_, err := c.Categorize(context.Background(), f)
		require.NoError(t, err)
		require.LessOrEqual(t, counted.lookups.Load(), int64(2*n), "fdc id %d", f.FdcID)
	}
}

func TestSelfReferenceIsFatal(t *testing.T) {
	c := New(newStore(t), nil, tokens.Default())
	_, err := c.Categorize(context.Background(), fooddata.Food{ID: 7, FdcID: 70, IngredientIDs: []int64{7}})
	require.ErrorIs(t, err, apperrors.ErrSelfReference)
}

type failingFoods struct{ err error }

func (f failingFoods) ByFdcID(context.Context, int64) (fooddata.Food, error) {
	return fooddata.Food{}, f.err
}

func (f failingFoods) ByIngredientCode(context.Context, int64) (fooddata.Food, error) {
	return fooddata.Food{}, f.err
}

func TestLookupErrorsPropagate(t *testing.T) {
	boom := errors.New("disk on fire")
	c := New(failingFoods{err: boom}, nil, tokens.Default())
	_, err := c.Categorize(context.Background(), fooddata.Food{FdcID: 1, IngredientIDs: []int64{2}})
	require.ErrorIs(t, err, boom)

	c = New(failingFoods{err: apperrors.ErrBrokenLink}, nil, tokens.Default())
	got, err := c.Categorize(context.Background(), fooddata.Food{FdcID: 1, Description: "tofu", IngredientIDs: []int64{2}})
	require.NoError(t, err)
	require.Equal(t, diet.Vegan, got.Category)
}

func TestCancelledContext(t *testing.T) {
	store := newStore(t, fooddata.Food{ID: 1, FdcID: 11, Description: "kale"})
	c := New(store, nil, tokens.Default())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Categorize(ctx, fooddata.Food{FdcID: 12, IngredientIDs: []int64{1}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestIdempotent(t *testing.T) {
	store := newStore(t,
		fooddata.Food{ID: 1, FdcID: 11, Description: "egg"},
		fooddata.Food{ID: 2, FdcID: 12, Description: "omelet", IngredientIDs: []int64{1}},
	)
	c := New(store, nil, tokens.Default())
	first := categorize(t, c, store, 12)
	for i := 0; i < 3; i++ {
		require.Equal(t, first, categorize(t, c, store, 12))
	}
	require.Equal(t, first, categorize(t, New(store, nil, tokens.Default()), store, 12))
}

func TestAudit(t *testing.T) {
	store := newStore(t,
		fooddata.Food{ID: 1, FdcID: 11, Description: "kale"},
		fooddata.Food{ID: 2, FdcID: 12, Description: "bacon"},
		fooddata.Food{ID: 3, FdcID: 13, Description: "tofu"},
		fooddata.Food{ID: 4, FdcID: 14, Description: "chicken"},
	)
	refs := refsample.NewSet([]refsample.Sample{
		{FdcID: 11, ExpectedCategory: diet.Vegan},
		{FdcID: 12, ExpectedCategory: diet.Vegan},
		{FdcID: 13, ExpectedCategory: diet.Omni, KnownFailure: true},
		{FdcID: 14, ExpectedCategory: diet.Omni, KnownFailure: true},
		{FdcID: 99, ExpectedCategory: diet.Omni},
	})
	c := New(store, refs, tokens.Default())

	report, err := c.Audit(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[Outcome]int{Pass: 1, Fail: 1, XFail: 1, XPass: 1}, report.Counts)
	require.True(t, report.Failed())

	outcomes := make(map[int64]Outcome)
	for _, r := range report.Results {
		outcomes[r.FdcID] = r.Outcome
	}
	require.Equal(t, map[int64]Outcome{11: Pass, 12: Fail, 13: XFail, 14: XPass}, outcomes)
}

func BenchmarkCategorizeChain(b *testing.B) {
	store, put, err := fooddata.NewMemoryStore()
	require.NoError(b, err)
	const depth = 50
	for i := int64(1); i <= depth; i++ {
		f := fooddata.Food{ID: i, FdcID: 1000 + i, Description: "vegetable broth"}
		if i > 1 {
			f.IngredientIDs = []int64{i - 1}
		}
		require.NoError(b, put(f))
	}
	top, err := store.ByFdcID(context.Background(), 1000+depth)
	require.NoError(b, err)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c := New(store, nil, tokens.Default())
		if _, err := c.Categorize(context.Background(), top); err != nil {
			b.Fatal(err)
		}
	}
}
