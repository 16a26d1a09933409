package recordstore

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/archive"
	apperrors "github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/errors"
)

// Indexed reads records from an archive built by Writer. Nothing is loaded
// up front beyond the archive directory.
type Indexed[T any] struct {
	r       *archive.Reader
	primary string
}

var _ Store[struct{}] = (*Indexed[struct{}])(nil)

// Open opens the archive at path for reading. primary must name the index
// the archive was built with.
func Open[T any](path string, primary string) (*Indexed[T], error) {
	r, err := archive.OpenReader(path)
	if err != nil {
		return nil, err
	}
	return &Indexed[T]{r: r, primary: primary}, nil
}

func decode[T any](data []byte) (T, error) {
	var rec T
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("%w: decoding record: %v", apperrors.ErrCorrupt, err)
	}
	return rec, nil
}

func (s *Indexed[T]) Get(ctx context.Context, key string) (T, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	data, err := s.r.GetEntry(s.primary, key)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode[T](data)
}

func (s *Indexed[T]) GetAll(ctx context.Context, keys []string) (map[string]T, error) {
	out := make(map[string]T, len(keys))
	for _, k := range keys {
		rec, err := s.Get(ctx, k)
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

func (s *Indexed[T]) GetBySecondary(ctx context.Context, index, value string) (T, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	data, err := s.r.GetEntry(index, value)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode[T](data)
}

func (s *Indexed[T]) IterBySecondary(ctx context.Context, index, value string) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for data, err := range s.r.IterEntries(index, value) {
			var rec T
			if err == nil {
				err = ctx.Err()
			}
			if err == nil {
				rec, err = decode[T](data)
			}
			if !yield(rec, err) {
				return
			}
		}
	}
}

func (s *Indexed[T]) AllKeys(ctx context.Context) iter.Seq[string] {
	return func(yield func(string) bool) {
		for k := range s.r.IterIndex(s.primary) {
			if ctx.Err() != nil || !yield(k) {
				return
			}
		}
	}
}

// Len reports the number of records.
func (s *Indexed[T]) Len() int {
	return s.r.Len(s.primary)
}

// Close releases the archive.
func (s *Indexed[T]) Close() error {
	return s.r.Close()
}
