package recordstore

import (
	"context"
	"fmt"
	"iter"
	"sync"

	apperrors "github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/errors"
)

// Memory holds records in plain maps. It follows the same write rules as
// Writer: duplicate primary keys fail, unique secondary indices keep the
// first record. Used for foods loaded from SQLite and in tests.
type Memory[T any] struct {
	mu          sync.RWMutex
	primary     IndexSpec[T]
	secondaries map[string]IndexSpec[T]
	records     map[string]T
	order       []string
	links       map[string]map[string][]string
}

var _ Store[struct{}] = (*Memory[struct{}])(nil)

func NewMemory[T any](primary IndexSpec[T], secondaries ...IndexSpec[T]) (*Memory[T], error) {
	if err := validateSpecs(primary, secondaries); err != nil {
		return nil, err
	}
	m := &Memory[T]{
		primary:     primary,
		secondaries: make(map[string]IndexSpec[T], len(secondaries)),
		records:     make(map[string]T),
		links:       make(map[string]map[string][]string, len(secondaries)),
	}
	for _, s := range secondaries {
		m.secondaries[s.Name] = s
		m.links[s.Name] = make(map[string][]string)
	}
	return m, nil
}

func (m *Memory[T]) Put(rec T) error {
	key, ok := m.primary.Key(rec)
	if !ok {
		return fmt.Errorf("%w: record has no %s key", apperrors.ErrInvalidInput, m.primary.Name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.records[key]; dup {
		return fmt.Errorf("%w: %s=%q", apperrors.ErrDuplicateKey, m.primary.Name, key)
	}
	m.records[key] = rec
	m.order = append(m.order, key)
	for name, s := range m.secondaries {
		value, ok := s.Key(rec)
		if !ok {
			continue
		}
		if s.Unique && len(m.links[name][value]) > 0 {
			continue
		}
		m.links[name][value] = append(m.links[name][value], key)
	}
	return nil
}

func (m *Memory[T]) Get(ctx context.Context, key string) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[key]
	if !ok {
		return rec, fmt.Errorf("%w: %s=%q", apperrors.ErrNotFound, m.primary.Name, key)
	}
	return rec, nil
}

func (m *Memory[T]) GetAll(ctx context.Context, keys []string) (map[string]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]T, len(keys))
	for _, k := range keys {
		if rec, ok := m.records[k]; ok {
			out[k] = rec
		}
	}
	return out, nil
}

func (m *Memory[T]) secondaryKeys(index, value string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, ok := m.links[index]
	if !ok {
		return nil, fmt.Errorf("%w: index %q", apperrors.ErrNotFound, index)
	}
	keys, ok := idx[value]
	if !ok {
		return nil, fmt.Errorf("%w: %s=%q", apperrors.ErrNotFound, index, value)
	}
	return keys, nil
}

func (m *Memory[T]) GetBySecondary(ctx context.Context, index, value string) (T, error) {
	keys, err := m.secondaryKeys(index, value)
	if err != nil {
		var zero T
		return zero, err
	}
	return m.Get(ctx, keys[0])
}

func (m *Memory[T]) IterBySecondary(ctx context.Context, index, value string) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		keys, err := m.secondaryKeys(index, value)
		if err != nil {
			var zero T
			yield(zero, err)
			return
		}
		for _, k := range keys {
			if !yield(m.Get(ctx, k)) {
				return
			}
		}
	}
}

func (m *Memory[T]) AllKeys(ctx context.Context) iter.Seq[string] {
	return func(yield func(string) bool) {
		m.mu.RLock()
		keys := append([]string(nil), m.order...)
		m.mu.RUnlock()
		for _, k := range keys {
			if ctx.Err() != nil || !yield(k) {
				return
			}
		}
	}
}

func (m *Memory[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
