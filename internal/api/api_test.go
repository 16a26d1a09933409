package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/categorizer"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/diet"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/fooddata"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/report"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/sink"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/tokens"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/resilience"
)

type fakeKV struct {
	values map[string]string
	err    error
	gets   int
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	f.gets++
	if f.err != nil {
		return "", f.err
	}
	v, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeKV) FlushByPattern(context.Context, string) (int64, error) {
	n := int64(len(f.values))
	clear(f.values)
	return n, nil
}

type fakeSnapshots struct{ stats *report.Stats }

func (f fakeSnapshots) LatestSnapshot(context.Context) (report.Stats, error) {
	if f.stats == nil {
		return report.Stats{}, apperrors.ErrNotFound
	}
	return *f.stats, nil
}

func newFoods(t *testing.T) *fooddata.Store {
	t.Helper()
	store, put, err := fooddata.NewMemoryStore()
	require.NoError(t, err)
	for _, f := range []fooddata.Food{
		{ID: 1, FdcID: 11, Description: "Chicken breast", Category: "Poultry"},
		{ID: 2, FdcID: 12, Description: "Chicken soup", Category: "Soups", IngredientIDs: []int64{1}},
		{ID: 3, FdcID: 13, Description: "Vegetable soup, kale", Category: "Soups"},
		{ID: 4, FdcID: 14, Description: "Tomato soup", Category: "Soups"},
	} {
		require.NoError(t, put(f))
	}
	return store
}

func newHandler(t *testing.T, cache *ResultCache, snapshots Snapshots, maxList int) http.Handler {
	t.Helper()
	foods := newFoods(t)
	h := New(foods, categorizer.New(foods, nil, tokens.Default()), cache, snapshots, maxList)
	checker := health.NewChecker()
	checker.Register("foods", health.Ping(func(context.Context) error { return nil }, true))
	srv := NewServer(config.ServerConfig{Port: 0, WriteTimeout: 5 * time.Second}, h, checker,
		metrics.New(prometheus.NewRegistry()))
	return srv.Handler
}

func get(t *testing.T, h http.Handler, path string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec.Code
}

func TestFoodCategorizedOnDemand(t *testing.T) {
	h := newHandler(t, nil, nil, 10)
	var resp FoodResponse
	require.Equal(t, http.StatusOK, get(t, h, "/api/v1/foods/12", &resp))
	require.Equal(t, diet.Omni, resp.VegCategory)
	require.Equal(t, diet.SourceHeuristic, resp.Source)
	require.False(t, resp.Cached)
	require.Equal(t, "Soups", resp.FoodCategory)
	require.Equal(t, fooddata.AppURL(12), resp.URL)
}

func TestFoodErrors(t *testing.T) {
	h := newHandler(t, nil, nil, 10)
	var body map[string]string
	require.Equal(t, http.StatusBadRequest, get(t, h, "/api/v1/foods/abc", &body))
	require.Contains(t, body["error"], "positive integer")
	require.Equal(t, http.StatusNotFound, get(t, h, "/api/v1/foods/999", &body))
}

func TestFoodFromCache(t *testing.T) {
	src := diet.SourceReference
	data, err := json.Marshal(sink.Record{
		FdcID:         14,
		VegCategory:   diet.Vegetarian,
		Source:        &src,
		Discrepancies: map[diet.Source]diet.Category{diet.SourceHeuristic: diet.Vegan},
	})
	require.NoError(t, err)
	kv := &fakeKV{values: map[string]string{sink.Key(14): string(data)}}
	cache := NewResultCache(kv, nil)
	h := newHandler(t, cache, nil, 10)

	var resp FoodResponse
	require.Equal(t, http.StatusOK, get(t, h, "/api/v1/foods/14", &resp))
	require.True(t, resp.Cached)
	require.Equal(t, diet.Vegetarian, resp.VegCategory)
	require.Equal(t, diet.SourceReference, resp.Source)
	require.Equal(t, map[diet.Source]diet.Category{diet.SourceHeuristic: diet.Vegan}, resp.Discrepancies)

	resp = FoodResponse{}
	require.Equal(t, http.StatusOK, get(t, h, "/api/v1/foods/13", &resp))
	require.False(t, resp.Cached)
	require.Equal(t, diet.Vegan, resp.VegCategory)

	hits, misses := cache.Stats()
	require.EqualValues(t, 1, hits)
	require.EqualValues(t, 1, misses)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, kv.values)
}

func TestCacheBreakerOpensOnRedisErrors(t *testing.T) {
	kv := &fakeKV{err: errors.New("connection refused")}
	reg := prometheus.NewRegistry()
	cache := NewResultCache(kv, metrics.New(reg))
	for range 10 {
		_, ok := cache.Lookup(context.Background(), 11)
		require.False(t, ok)
	}
	require.Equal(t, resilience.StateOpen, cache.State())
	require.Equal(t, 5, kv.gets)

	families, err := reg.Gather()
	require.NoError(t, err)
	var state float64 = -1
	for _, mf := range families {
		if mf.GetName() == "circuit_breaker_state" {
			state = mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	require.Equal(t, float64(resilience.StateOpen), state)
}

func TestCacheMissDoesNotTripBreaker(t *testing.T) {
	kv := &fakeKV{values: map[string]string{}}
	cache := NewResultCache(kv, nil)
	for range 10 {
		_, ok := cache.Lookup(context.Background(), 11)
		require.False(t, ok)
	}
	require.Equal(t, resilience.StateClosed, cache.State())
}

func TestCategoryListing(t *testing.T) {
	h := newHandler(t, nil, nil, 10)
	var resp CategoryResponse
	require.Equal(t, http.StatusOK, get(t, h, "/api/v1/categories/Soups/foods", &resp))
	require.Len(t, resp.Foods, 3)
	require.False(t, resp.Truncated)

	require.Equal(t, http.StatusOK, get(t, h, "/api/v1/categories/Soups/foods?diet=veg", &resp))
	require.Len(t, resp.Foods, 2)
	require.Equal(t, diet.Vegan, *resp.Diet)
	for _, f := range resp.Foods {
		require.Equal(t, diet.Vegan, f.VegCategory)
	}

	var body map[string]string
	require.Equal(t, http.StatusBadRequest, get(t, h, "/api/v1/categories/Soups/foods?diet=pescatarian", &body))
	require.Equal(t, http.StatusNotFound,
		get(t, h, "/api/v1/categories/"+url.PathEscape("Baked goods")+"/foods", &body))
}

func TestCategoryListingTruncates(t *testing.T) {
	h := newHandler(t, nil, nil, 2)
	var resp CategoryResponse
	require.Equal(t, http.StatusOK, get(t, h, "/api/v1/categories/Soups/foods", &resp))
	require.Len(t, resp.Foods, 2)
	require.True(t, resp.Truncated)
}

func TestStats(t *testing.T) {
	h := newHandler(t, nil, nil, 10)
	require.Equal(t, http.StatusNotFound, get(t, h, "/api/v1/stats", nil))

	h = newHandler(t, nil, fakeSnapshots{}, 10)
	require.Equal(t, http.StatusNotFound, get(t, h, "/api/v1/stats", nil))

	h = newHandler(t, nil, fakeSnapshots{stats: &report.Stats{RunID: "r1", Total: 4}}, 10)
	var stats report.Stats
	require.Equal(t, http.StatusOK, get(t, h, "/api/v1/stats", &stats))
	require.Equal(t, "r1", stats.RunID)
	require.EqualValues(t, 4, stats.Total)
}

func TestHealthRoutes(t *testing.T) {
	h := newHandler(t, nil, nil, 10)
	var report health.Report
	require.Equal(t, http.StatusOK, get(t, h, "/health/ready", &report))
	require.Equal(t, health.StatusUp, report.Status)
	require.Equal(t, http.StatusOK, get(t, h, "/health/live", nil))
}

type gatedFoods struct {
	categorizer.Foods
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedFoods) ByIngredientCode(ctx context.Context, code int64) (fooddata.Food, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return g.Foods.ByIngredientCode(ctx, code)
}

func TestSharedCategorizationOutlivesFirstCaller(t *testing.T) {
	foods := newFoods(t)
	gate := &gatedFoods{Foods: foods, entered: make(chan struct{}), release: make(chan struct{})}
	h := New(foods, categorizer.New(gate, nil, tokens.Default()), nil, nil, 10)
	food, err := foods.ByFdcID(context.Background(), 12)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := h.categorize(ctx, food)
		first <- err
	}()
	<-gate.entered

	type outcome struct {
		cat categorizer.Categorization
		err error
	}
	second := make(chan outcome, 1)
	go func() {
		cat, err := h.categorize(context.Background(), food)
		second <- outcome{cat, err}
	}()
	// let the second caller join the walk already in flight
	time.Sleep(20 * time.Millisecond)

	cancel()
	require.ErrorIs(t, <-first, context.Canceled)
	close(gate.release)

	got := <-second
	require.NoError(t, got.err)
	require.Equal(t, diet.Omni, got.cat.Category)
}
