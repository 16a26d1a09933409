package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/sink"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/resilience"
)

// KV is the part of the Redis client the result cache reads through.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// ResultCache reads the per-food records the Redis sink wrote during the
// last generate run. A nil *ResultCache always misses.
type ResultCache struct {
	kv      KV
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewResultCache guards kv with a circuit breaker so a down Redis costs one
// failed call per reset period instead of one per request. m may be nil.
func NewResultCache(kv KV, m *metrics.Metrics) *ResultCache {
	cbCfg := resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		IsFailure: func(err error) bool {
			return err != nil && !pkgredis.IsNilError(err)
		},
	}
	if m != nil {
		m.CircuitBreakerState.WithLabelValues("redis").Set(float64(resilience.StateClosed))
		cbCfg.OnStateChange = func(name string, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		}
	}
	return &ResultCache{
		kv:      kv,
		breaker: resilience.NewCircuitBreaker("redis", cbCfg),
		logger:  slog.Default().With("component", "result-cache"),
	}
}

// Lookup returns the cached record for fdcID. Any failure is a miss.
func (c *ResultCache) Lookup(ctx context.Context, fdcID int64) (sink.Record, bool) {
	if c == nil {
		return sink.Record{}, false
	}
	key := sink.Key(fdcID)
	var data string
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.kv.Get(ctx, key)
		return err
	})
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Warn("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return sink.Record{}, false
	}
	var rec sink.Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil || rec.FdcID != fdcID {
		c.logger.Error("cache entry unreadable", "key", key, "error", err)
		c.misses.Add(1)
		return sink.Record{}, false
	}
	c.hits.Add(1)
	return rec, true
}

// Invalidate drops every cached result.
func (c *ResultCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.kv.FlushByPattern(ctx, sink.KeyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *ResultCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *ResultCache) State() resilience.State {
	return c.breaker.State()
}
