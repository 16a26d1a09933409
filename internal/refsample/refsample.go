// Package refsample stores human-curated reference samples: authoritative
// diet categories for individual foods, kept in a small CSV file.
//
// The file has one header row, fdc_id,expected_category,known_failure,description,
// and one sample per row. description is denormalized from the food store so
// the file can be audited by eye.
package refsample

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/diet"
	apperrors "github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/errors"
)

// Header lists the CSV columns in the order they are written.
var Header = []string{"fdc_id", "expected_category", "known_failure", "description"}

// Sample is one curated label.
type Sample struct {
	FdcID            int64
	ExpectedCategory diet.Category
	// KnownFailure marks samples the heuristic is known to get wrong.
	KnownFailure bool
	Description  string
}

// Invalid is a row that was read but not accepted.
type Invalid struct {
	Line   int
	FdcID  int64
	Record []string
	Err    error
}

// Describer returns the description of the food with the given FDC ID.
type Describer func(ctx context.Context, fdcID int64) (string, error)

// Exists reports whether a food with the given FDC ID is known.
type Exists func(ctx context.Context, fdcID int64) (bool, error)

// Store is a reference sample CSV file. Methods are safe for concurrent use
// within one process.
type Store struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// Open opens the sample file at path. With create set, a missing or empty
// file is initialised with the header row; otherwise a missing file fails
// with ErrNotFound.
func Open(path string, create bool) (*Store, error) {
	s := &Store{
		path:   path,
		logger: slog.Default().With("component", "reference-samples", "path", path),
	}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if !create {
			return nil, fmt.Errorf("%w: reference samples %s", apperrors.ErrNotFound, path)
		}
	case err != nil:
		return nil, fmt.Errorf("stat reference samples: %w", err)
	case info.Size() > 0:
		return s, nil
	case !create:
		return s, nil
	}
	if err := s.rewrite(nil); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the file location.
func (s *Store) Path() string {
	return s.path
}

// ReadAll parses the file. Rows with a bad id or an unknown category label
// are returned as Invalid. When an id repeats, the last row wins and takes
// the position of the first; the rows it replaces are returned as Invalid.
func (s *Store) ReadAll() ([]Sample, []Invalid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.Open(s.path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening reference samples: %w", err)
	}
	defer f.Close()
	return parse(f)
}

func parse(r io.Reader) ([]Sample, []Invalid, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reading reference sample header: %v", apperrors.ErrInvalidInput, err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, name := range Header {
		if _, ok := col[name]; !ok {
			return nil, nil, fmt.Errorf("%w: reference samples lack column %q", apperrors.ErrInvalidInput, name)
		}
	}

	var (
		samples []Sample
		invalid []Invalid
		seen    = make(map[int64]int)
		rows    []Invalid
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return samples, invalid, fmt.Errorf("%w: reference samples: %v", apperrors.ErrInvalidInput, err)
		}
		line, _ := cr.FieldPos(0)
		field := func(name string) string {
			if i := col[name]; i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}
		bad := func(id int64, err error) {
			invalid = append(invalid, Invalid{Line: line, FdcID: id, Record: rec, Err: err})
		}

		id, err := strconv.ParseInt(field("fdc_id"), 10, 64)
		if err != nil {
			bad(0, fmt.Errorf("%w: bad fdc_id %q", apperrors.ErrInvalidCategoryOverride, field("fdc_id")))
			continue
		}
		cat, err := diet.ParseCategory(field("expected_category"))
		if err != nil {
			bad(id, err)
			continue
		}
		knownFailure := false
		if v := field("known_failure"); v != "" {
			knownFailure, err = strconv.ParseBool(v)
			if err != nil {
				bad(id, fmt.Errorf("%w: bad known_failure %q", apperrors.ErrInvalidCategoryOverride, v))
				continue
			}
		}
		sample := Sample{
			FdcID:            id,
			ExpectedCategory: cat,
			KnownFailure:     knownFailure,
			Description:      field("description"),
		}
		if i, dup := seen[id]; dup {
			prev := rows[i]
			prev.Err = fmt.Errorf("%w: fdc id %d superseded by line %d", apperrors.ErrInvalidCategoryOverride, id, line)
			invalid = append(invalid, prev)
			samples[i] = sample
			rows[i] = Invalid{Line: line, FdcID: id, Record: rec}
			continue
		}
		seen[id] = len(samples)
		samples = append(samples, sample)
		rows = append(rows, Invalid{Line: line, FdcID: id, Record: rec})
	}
	return samples, invalid, nil
}

// Load reads all samples and keeps those whose food exists. Every rejected
// row is logged and returned.
func (s *Store) Load(ctx context.Context, exists Exists) (*Set, []Invalid, error) {
	samples, invalid, err := s.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	set := NewSet(nil)
	for _, sample := range samples {
		if exists != nil {
			ok, err := exists(ctx, sample.FdcID)
			if err != nil {
				return nil, nil, err
			}
			if !ok {
				invalid = append(invalid, Invalid{
					FdcID: sample.FdcID,
					Err:   fmt.Errorf("%w: unknown fdc id %d", apperrors.ErrInvalidCategoryOverride, sample.FdcID),
				})
				continue
			}
		}
		set.add(sample)
	}
	for _, inv := range invalid {
		s.logger.Warn("skipping reference sample", "line", inv.Line, "fdc_id", inv.FdcID, "error", inv.Err)
	}
	return set, invalid, nil
}

func record(sample Sample) []string {
	return []string{
		strconv.FormatInt(sample.FdcID, 10),
		sample.ExpectedCategory.String(),
		strconv.FormatBool(sample.KnownFailure),
		sample.Description,
	}
}

func describeAll(ctx context.Context, samples []Sample, describe Describer, strict bool) ([]Sample, error) {
	out := make([]Sample, len(samples))
	for i, sample := range samples {
		if describe != nil {
			desc, err := describe(ctx, sample.FdcID)
			switch {
			case err == nil:
				sample.Description = desc
			case strict || !apperrors.IsMissing(err):
				return nil, fmt.Errorf("describing fdc id %d: %w", sample.FdcID, err)
			}
		}
		out[i] = sample
	}
	return out, nil
}

// ResetAndPutAll replaces the file contents with samples. Descriptions are
// refreshed through describe; foods it cannot find keep theirs. The new file
// is written beside the old one and renamed over it.
func (s *Store) ResetAndPutAll(ctx context.Context, samples []Sample, describe Describer) error {
	samples, err := describeAll(ctx, samples, describe, false)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rewrite(samples)
}

func (s *Store) rewrite(samples []Sample) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating reference sample directory: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating reference samples: %w", err)
	}
	w := csv.NewWriter(f)
	werr := w.Write(Header)
	for _, sample := range samples {
		if werr != nil {
			break
		}
		werr = w.Write(record(sample))
	}
	w.Flush()
	if werr == nil {
		werr = w.Error()
	}
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing reference samples: %w", werr)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing reference samples: %w", err)
	}
	return nil
}

// Append adds one sample at the end of the file. The food must exist, since
// its description is copied in.
func (s *Store) Append(ctx context.Context, sample Sample, describe Describer) error {
	described, err := describeAll(ctx, []Sample{sample}, describe, true)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening reference samples: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat reference samples: %w", err)
	}
	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	if err := w.Write(record(described[0])); err != nil {
		return fmt.Errorf("appending reference sample: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("appending reference sample: %w", err)
	}
	return f.Sync()
}

// Set is an immutable lookup table of samples by FDC ID, scoped to one run.
type Set struct {
	byID  map[int64]Sample
	order []int64
}

// NewSet builds a set; a later duplicate of an FDC ID replaces the earlier
// sample in place.
func NewSet(samples []Sample) *Set {
	s := &Set{byID: make(map[int64]Sample, len(samples))}
	for _, sample := range samples {
		s.add(sample)
	}
	return s
}

func (s *Set) add(sample Sample) {
	if _, dup := s.byID[sample.FdcID]; !dup {
		s.order = append(s.order, sample.FdcID)
	}
	s.byID[sample.FdcID] = sample
}

// Get returns the sample for fdcID.
func (s *Set) Get(fdcID int64) (Sample, bool) {
	if s == nil {
		return Sample{}, false
	}
	sample, ok := s.byID[fdcID]
	return sample, ok
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// All yields samples in file order.
func (s *Set) All() iter.Seq[Sample] {
	return func(yield func(Sample) bool) {
		if s == nil {
			return
		}
		for _, id := range s.order {
			if !yield(s.byID[id]) {
				return
			}
		}
	}
}
