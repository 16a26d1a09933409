package fooddata

import (
	"context"
	"fmt"
	"iter"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/recordstore"
	apperrors "github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/errors"
)

// Store gives typed access to foods held in any record store variant.
type Store struct {
	records recordstore.Store[Food]
	closer  func() error
}

// NewStore wraps records. The store takes no ownership of records.
func NewStore(records recordstore.Store[Food]) *Store {
	return &Store{records: records}
}

// OpenArchive opens a food archive. With cache set, lookups are memoized for
// the lifetime of the store and reported to observe.
func OpenArchive(path string, cache bool, observe recordstore.CacheObserver) (*Store, error) {
	primary, _ := Indices()
	indexed, err := recordstore.Open[Food](path, primary.Name)
	if err != nil {
		return nil, err
	}
	var records recordstore.Store[Food] = indexed
	if cache {
		records = recordstore.NewCaching(records, observe)
	}
	return &Store{records: records, closer: indexed.Close}, nil
}

// NewMemoryStore returns an empty in-memory food store and the function used
// to add foods to it.
func NewMemoryStore() (*Store, func(Food) error, error) {
	primary, secondaries := Indices()
	m, err := recordstore.NewMemory(primary, secondaries...)
	if err != nil {
		return nil, nil, err
	}
	put := func(f Food) error {
		if err := f.Validate(); err != nil {
			return err
		}
		return m.Put(f)
	}
	return &Store{records: m}, put, nil
}

// Records exposes the underlying record store.
func (s *Store) Records() recordstore.Store[Food] {
	return s.records
}

// ByFdcID returns the food with the given FDC ID.
func (s *Store) ByFdcID(ctx context.Context, fdcID int64) (Food, error) {
	return s.records.Get(ctx, FdcKey(fdcID))
}

// ByFdcIDs returns the foods that exist among ids.
func (s *Store) ByFdcIDs(ctx context.Context, ids []int64) (map[int64]Food, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = FdcKey(id)
	}
	found, err := s.records.GetAll(ctx, keys)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]Food, len(found))
	for _, f := range found {
		out[f.FdcID] = f
	}
	return out, nil
}

// ByIngredientCode returns the food other foods refer to by code.
func (s *Store) ByIngredientCode(ctx context.Context, code int64) (Food, error) {
	return s.records.GetBySecondary(ctx, IndexIngredientCode, strconv.FormatInt(code, 10))
}

// ByCategory yields every food in a source category, in build order.
func (s *Store) ByCategory(ctx context.Context, description string) iter.Seq2[Food, error] {
	return s.records.IterBySecondary(ctx, IndexCategory, description)
}

// FdcIDs yields every FDC ID in build order. Keys that do not parse are
// reported as corruption.
func (s *Store) FdcIDs(ctx context.Context) iter.Seq2[int64, error] {
	return func(yield func(int64, error) bool) {
		for k := range s.records.AllKeys(ctx) {
			id, err := strconv.ParseInt(k, 10, 64)
			if err != nil {
				err = fmt.Errorf("%w: fdc id key %q", apperrors.ErrCorrupt, k)
			}
			if !yield(id, err) {
				return
			}
		}
	}
}

// Close releases the archive, if any.
func (s *Store) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
