// Package recordstore is a typed record store over the archive. Each record
// is serialized to JSON once, under its primary key, and reachable through
// any number of secondary indices that resolve to it by link.
package recordstore

import (
	"context"
	"iter"
)

// IndexSpec declares one index. Key derives the index value for a record;
// returning false leaves the record out of that index. A Unique index
// resolves each value to a single record.
type IndexSpec[T any] struct {
	Name   string
	Key    func(T) (string, bool)
	Unique bool
}

// Store is the read capability shared by every record store variant.
// Records are immutable once written, so returned values may be shared.
type Store[T any] interface {
	// Get returns the record with the given primary key or an error
	// matching ErrNotFound.
	Get(ctx context.Context, key string) (T, error)
	// GetAll returns the records for keys that exist. Missing keys are
	// omitted, not reported.
	GetAll(ctx context.Context, keys []string) (map[string]T, error)
	// GetBySecondary returns the record a 1:1 secondary index value points
	// at. On a many:1 index the first record is returned.
	GetBySecondary(ctx context.Context, index, value string) (T, error)
	// IterBySecondary yields every record sharing value in index, in
	// insertion order. The sequence is restartable.
	IterBySecondary(ctx context.Context, index, value string) iter.Seq2[T, error]
	// AllKeys yields every primary key in insertion order.
	AllKeys(ctx context.Context) iter.Seq[string]
}

// Stats summarises a write session.
type Stats struct {
	Records int
	// Links counts secondary index values written.
	Links int
	// SkippedDuplicates counts records dropped from unique secondary indices
	// because an earlier record already claimed the value.
	SkippedDuplicates int
}
