package recordstore

import (
	"context"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	apperrors "github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/errors"
)

// CacheObserver is notified of every cache lookup, e.g. to feed metrics.
type CacheObserver func(hit bool)

// Caching memoizes Get and GetBySecondary of an underlying store for its own
// lifetime. Missing keys are remembered too. There is no eviction: records
// never change after a build, and the cache lives only as long as one run or
// one server process.
type Caching[T any] struct {
	inner       Store[T]
	byKey       sync.Map
	bySecondary sync.Map
	group       singleflight.Group
	hits        atomic.Int64
	misses      atomic.Int64
	observe     CacheObserver
	logger      *slog.Logger
}

var _ Store[struct{}] = (*Caching[struct{}])(nil)

type cached[T any] struct {
	rec T
	err error
}

// NewCaching wraps inner. observe may be nil.
func NewCaching[T any](inner Store[T], observe CacheObserver) *Caching[T] {
	return &Caching[T]{
		inner:   inner,
		observe: observe,
		logger:  slog.Default().With("component", "record-cache"),
	}
}

func (c *Caching[T]) record(hit bool) {
	if hit {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	if c.observe != nil {
		c.observe(hit)
	}
}

func (c *Caching[T]) lookup(m *sync.Map, kind, key string, load func() (T, error)) (T, error) {
	if v, ok := m.Load(key); ok {
		c.record(true)
		e := v.(cached[T])
		return e.rec, e.err
	}
	c.record(false)
	v, err, _ := c.group.Do(kind+key, func() (any, error) {
		if v, ok := m.Load(key); ok {
			return v, nil
		}
		rec, err := load()
		if err != nil && !apperrors.IsMissing(err) {
			return nil, err
		}
		e := cached[T]{rec: rec, err: err}
		m.Store(key, e)
		return e, nil
	})
	if err != nil {
		c.logger.Debug("record load failed", "key", key, "error", err)
		var zero T
		return zero, err
	}
	e := v.(cached[T])
	return e.rec, e.err
}

func (c *Caching[T]) Get(ctx context.Context, key string) (T, error) {
	return c.lookup(&c.byKey, "k:", key, func() (T, error) {
		return c.inner.Get(ctx, key)
	})
}

func (c *Caching[T]) GetAll(ctx context.Context, keys []string) (map[string]T, error) {
	out := make(map[string]T, len(keys))
	for _, k := range keys {
		rec, err := c.Get(ctx, k)
		if err != nil {
			if apperrors.IsMissing(err) {
				continue
			}
			return nil, err
		}
		out[k] = rec
	}
	return out, nil
}

func (c *Caching[T]) GetBySecondary(ctx context.Context, index, value string) (T, error) {
	return c.lookup(&c.bySecondary, "s:", index+"\x00"+value, func() (T, error) {
		return c.inner.GetBySecondary(ctx, index, value)
	})
}

// IterBySecondary is not cached; many:1 groups can be large.
func (c *Caching[T]) IterBySecondary(ctx context.Context, index, value string) iter.Seq2[T, error] {
	return c.inner.IterBySecondary(ctx, index, value)
}

func (c *Caching[T]) AllKeys(ctx context.Context) iter.Seq[string] {
	return c.inner.AllKeys(ctx)
}

// Stats returns the hit and miss counts so far.
func (c *Caching[T]) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
