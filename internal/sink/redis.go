package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/categorizer"
)

// KeyPrefix namespaces per-food result keys in Redis.
const KeyPrefix = "vegcat:"

// Key returns the Redis key holding the result for fdcID.
func Key(fdcID int64) string {
	return KeyPrefix + strconv.FormatInt(fdcID, 10)
}

// KV is the part of the Redis client the sink needs.
type KV interface {
	SetMany(ctx context.Context, values map[string]string, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Redis stores one debug record per food under Key(fdcID). Keys left from
// an earlier run are removed first, so foods that disappeared do not linger.
type Redis struct {
	kv        KV
	ttl       time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewRedis(kv KV, ttl time.Duration) *Redis {
	return &Redis{
		kv:        kv,
		ttl:       ttl,
		batchSize: 1000,
		logger:    slog.Default().With("component", "redis-sink"),
	}
}

func (r *Redis) Name() string { return "redis" }

func (r *Redis) Write(ctx context.Context, results []categorizer.Result) error {
	removed, err := r.kv.FlushByPattern(ctx, KeyPrefix+"*")
	if err != nil {
		return fmt.Errorf("clearing stale results: %w", err)
	}
	batch := make(map[string]string, r.batchSize)
	for i, res := range results {
		data, err := json.Marshal(NewRecord(res, true))
		if err != nil {
			return fmt.Errorf("encoding fdc id %d: %w", res.Food.FdcID, err)
		}
		batch[Key(res.Food.FdcID)] = string(data)
		if len(batch) == r.batchSize || i == len(results)-1 {
			if err := r.kv.SetMany(ctx, batch, r.ttl); err != nil {
				return err
			}
			clear(batch)
		}
	}
	r.logger.Info("results cached", "foods", len(results), "stale_removed", removed)
	return nil
}
