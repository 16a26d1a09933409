package recordstore

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/errors"
)

type item struct {
	ID    int    `json:"id"`
	Code  int    `json:"code"`
	Group string `json:"group"`
}

var (
	byID = IndexSpec[item]{Name: "id", Key: func(i item) (string, bool) {
		return strconv.Itoa(i.ID), true
	}}
	byCode = IndexSpec[item]{Name: "code", Unique: true, Key: func(i item) (string, bool) {
		return strconv.Itoa(i.Code), i.Code != 0
	}}
	byGroup = IndexSpec[item]{Name: "group", Key: func(i item) (string, bool) {
		return i.Group, i.Group != ""
	}}
)

var items = []item{
	{ID: 1, Code: 100, Group: "soups"},
	{ID: 2, Code: 200, Group: "dairy"},
	{ID: 3, Code: 300, Group: "soups"},
	{ID: 4, Code: 100, Group: ""},
	{ID: 5, Code: 0, Group: "soups"},
}

func buildIndexed(t *testing.T) *Indexed[item] {
	t.Helper()
	path := filepath.Join(t.TempDir(), "items.fcar")
	w, err := Create(path, byID, byCode, byGroup)
	require.NoError(t, err)
	defer w.Abort()
	for _, it := range items {
		require.NoError(t, w.Put(it))
	}
	require.NoError(t, w.Close())
	require.Equal(t, Stats{Records: 5, Links: 5, SkippedDuplicates: 1}, w.Stats())

	s, err := Open[item](path, byID.Name)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func buildMemory(t *testing.T) *Memory[item] {
	t.Helper()
	m, err := NewMemory(byID, byCode, byGroup)
	require.NoError(t, err)
	for _, it := range items {
		require.NoError(t, m.Put(it))
	}
	return m
}

// storeContract runs the same expectations against every Store variant.
func storeContract(t *testing.T, s Store[item]) {
	ctx := context.Background()

	got, err := s.Get(ctx, "3")
	require.NoError(t, err)
	require.Equal(t, items[2], got)

	_, err = s.Get(ctx, "99")
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	all, err := s.GetAll(ctx, []string{"1", "2", "99"})
	require.NoError(t, err)
	require.Equal(t, map[string]item{"1": items[0], "2": items[1]}, all)

	// first record wins in a unique index
	got, err = s.GetBySecondary(ctx, "code", "100")
	require.NoError(t, err)
	require.Equal(t, 1, got.ID)

	_, err = s.GetBySecondary(ctx, "code", "0")
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	for range 2 {
		var ids []int
		for rec, err := range s.IterBySecondary(ctx, "group", "soups") {
			require.NoError(t, err)
			ids = append(ids, rec.ID)
		}
		require.Equal(t, []int{1, 3, 5}, ids)
	}

	var keys []string
	for k := range s.AllKeys(ctx) {
		keys = append(keys, k)
	}
	require.Equal(t, []string{"1", "2", "3", "4", "5"}, keys)
}

func TestIndexedStore(t *testing.T) {
	storeContract(t, buildIndexed(t))
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, buildMemory(t))
}

func TestCachingStore(t *testing.T) {
	c := NewCaching[item](buildIndexed(t), nil)
	storeContract(t, c)
	storeContract(t, c)
	hits, misses := c.Stats()
	require.Positive(t, hits)
	require.Positive(t, misses)
}

func TestDuplicatePrimaryKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dup.fcar")
	w, err := Create(path, byID)
	require.NoError(t, err)
	defer w.Abort()
	require.NoError(t, w.Put(item{ID: 1}))
	require.ErrorIs(t, w.Put(item{ID: 1}), apperrors.ErrDuplicateKey)

	m, err := NewMemory(byID)
	require.NoError(t, err)
	require.NoError(t, m.Put(item{ID: 1}))
	require.ErrorIs(t, m.Put(item{ID: 1}), apperrors.ErrDuplicateKey)
}

func TestInvalidSpecs(t *testing.T) {
	_, err := NewMemory(IndexSpec[item]{Name: "id"})
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	_, err = NewMemory(byID, byID)
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

type countingStore struct {
	Store[item]
	mu    sync.Mutex
	calls map[string]int
}

func (s *countingStore) Get(ctx context.Context, key string) (item, error) {
	s.mu.Lock()
	s.calls[key]++
	s.mu.Unlock()
	return s.Store.Get(ctx, key)
}

func TestCachingRemembersMissesAndDedupes(t *testing.T) {
	inner := &countingStore{Store: buildMemory(t), calls: make(map[string]int)}
	var observed, observedHits int
	var mu sync.Mutex
	c := NewCaching[item](inner, func(hit bool) {
		mu.Lock()
		defer mu.Unlock()
		observed++
		if hit {
			observedHits++
		}
	})
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := 1; k <= 6; k++ {
				_, _ = c.Get(ctx, fmt.Sprint(k))
			}
		}()
	}
	wg.Wait()

	for k := 1; k <= 6; k++ {
		require.Equal(t, 1, inner.calls[fmt.Sprint(k)], "key %d loaded more than once", k)
	}
	_, err := c.Get(ctx, "6")
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	hits, misses := c.Stats()
	require.EqualValues(t, 16*6+1, hits+misses)
	require.EqualValues(t, observed, hits+misses)
	require.EqualValues(t, observedHits, hits)
}
