package recordstore

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/archive"
	apperrors "github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/errors"
)

// secondaryBuffer collects primary keys per index value until Close, when
// each value becomes one link.
type secondaryBuffer struct {
	name   string
	unique bool
	values map[string][]string
	order  []string
}

func (b *secondaryBuffer) add(value, primary string) {
	if _, ok := b.values[value]; !ok {
		b.order = append(b.order, value)
	}
	b.values[value] = append(b.values[value], primary)
}

// Writer builds an indexed record archive. Records go to the primary index
// as they arrive; secondary links are written by Close.
type Writer[T any] struct {
	w           *archive.Writer
	primary     IndexSpec[T]
	secondaries []IndexSpec[T]
	buffers     []*secondaryBuffer
	stats       Stats
	logger      *slog.Logger
}

// Create starts a new archive at path.
func Create[T any](path string, primary IndexSpec[T], secondaries ...IndexSpec[T]) (*Writer[T], error) {
	if err := validateSpecs(primary, secondaries); err != nil {
		return nil, err
	}
	aw, err := archive.Create(path)
	if err != nil {
		return nil, err
	}
	buffers := make([]*secondaryBuffer, len(secondaries))
	for i, s := range secondaries {
		buffers[i] = &secondaryBuffer{
			name:   s.Name,
			unique: s.Unique,
			values: make(map[string][]string),
		}
	}
	return &Writer[T]{
		w:           aw,
		primary:     primary,
		secondaries: secondaries,
		buffers:     buffers,
		logger:      slog.Default().With("component", "record-writer", "path", path),
	}, nil
}

func validateSpecs[T any](primary IndexSpec[T], secondaries []IndexSpec[T]) error {
	if primary.Name == "" || primary.Key == nil {
		return fmt.Errorf("%w: primary index needs a name and a key function", apperrors.ErrInvalidInput)
	}
	seen := map[string]bool{primary.Name: true}
	for _, s := range secondaries {
		if s.Name == "" || s.Key == nil {
			return fmt.Errorf("%w: secondary index needs a name and a key function", apperrors.ErrInvalidInput)
		}
		if seen[s.Name] {
			return fmt.Errorf("%w: index %q declared twice", apperrors.ErrInvalidInput, s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// Put serializes rec under its primary key. A repeated primary key fails
// with ErrDuplicateKey.
func (w *Writer[T]) Put(rec T) error {
	key, ok := w.primary.Key(rec)
	if !ok {
		return fmt.Errorf("%w: record has no %s key", apperrors.ErrInvalidInput, w.primary.Name)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling record %s=%s: %w", w.primary.Name, key, err)
	}
	if err := w.w.PutEntries(w.primary.Name, []archive.Entry{{Value: key, Data: data}}); err != nil {
		return err
	}
	for i, s := range w.secondaries {
		if value, ok := s.Key(rec); ok {
			w.buffers[i].add(value, key)
		}
	}
	w.stats.Records++
	return nil
}

// Close writes the secondary links and commits the archive. On error the
// archive is discarded.
func (w *Writer[T]) Close() error {
	for _, b := range w.buffers {
		links := make([]archive.Link, 0, len(b.order))
		for _, value := range b.order {
			keys := b.values[value]
			if b.unique && len(keys) > 1 {
				w.logger.Debug("duplicate value in unique index",
					"index", b.name, "value", value, "kept", keys[0], "skipped", keys[1:])
				w.stats.SkippedDuplicates += len(keys) - 1
				keys = keys[:1]
			}
			targets := make([]archive.Target, len(keys))
			for i, k := range keys {
				targets[i] = archive.Target{Index: w.primary.Name, Value: k}
			}
			links = append(links, archive.Link{Value: value, Targets: targets})
		}
		if err := w.w.PutLinks(b.name, links); err != nil {
			w.w.Abort()
			return err
		}
		w.stats.Links += len(links)
	}
	if w.stats.SkippedDuplicates > 0 {
		w.logger.Warn("records skipped in unique indices", "count", w.stats.SkippedDuplicates)
	}
	return w.w.Close()
}

// Abort discards the archive. It is a no-op after Close.
func (w *Writer[T]) Abort() {
	w.w.Abort()
}

// Stats reports what has been written so far.
func (w *Writer[T]) Stats() Stats {
	return w.stats
}
