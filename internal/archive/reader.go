package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"iter"
	"os"
	"sync/atomic"

	"github.com/klauspost/compress/zstd"

	apperrors "github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/errors"
)

// Reader serves lookups from a finished archive. The directory is decoded
// once at open time and never mutated, so a Reader is safe for concurrent
// use.
type Reader struct {
	file    *os.File
	path    string
	key     string
	header  Header
	dec     *zstd.Decoder
	indices map[string]*readerIndex
	order   []string
	closed  atomic.Bool
}

type readerIndex struct {
	entries []dirEntry
	byValue map[string]int
}

// OpenReader opens the archive at path. A missing file yields ErrNotFound, a
// damaged one ErrCorrupt, and an archive currently being written
// ErrConcurrentAccess.
func OpenReader(path string) (*Reader, error) {
	key, err := acquireRead(path)
	if err != nil {
		return nil, err
	}
	r, err := openReader(path, key)
	if err != nil {
		release(key, false)
		return nil, err
	}
	return r, nil
}

func openReader(path, key string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: archive %s", apperrors.ErrNotFound, path)
		}
		return nil, fmt.Errorf("opening archive file: %w", err)
	}
	r, err := load(f, path, key)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func load(f *os.File, path, key string) (*Reader, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat archive file: %w", err)
	}
	if info.Size() < int64(HeaderSize+FooterSize) {
		return nil, fmt.Errorf("%w: %s is too small (%d bytes)", apperrors.ErrCorrupt, path, info.Size())
	}
	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	header, err := decodeHeader(headerBytes)
	if err != nil {
		return nil, err
	}
	footerBytes := make([]byte, FooterSize)
	if _, err := f.ReadAt(footerBytes, info.Size()-int64(FooterSize)); err != nil {
		return nil, fmt.Errorf("reading footer: %w", err)
	}
	ft, err := decodeFooter(footerBytes)
	if err != nil {
		return nil, err
	}
	if ft.DirOffset != header.DirOffset || ft.DirSize != header.DirSize {
		return nil, fmt.Errorf("%w: header and footer disagree on directory location", apperrors.ErrCorrupt)
	}
	if header.DirOffset+header.DirSize+int64(FooterSize) != info.Size() {
		return nil, fmt.Errorf("%w: directory does not end at footer", apperrors.ErrCorrupt)
	}

	dirData := make([]byte, header.DirSize)
	if _, err := f.ReadAt(dirData, header.DirOffset); err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}
	if sum := crc32.ChecksumIEEE(dirData); sum != ft.Checksum {
		return nil, fmt.Errorf("%w: directory checksum %08x, want %08x", apperrors.ErrCorrupt, sum, ft.Checksum)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	dirJSON, err := dec.DecodeAll(dirData, nil)
	if err != nil {
		dec.Close()
		return nil, fmt.Errorf("%w: decompressing directory: %v", apperrors.ErrCorrupt, err)
	}
	var dir directory
	if err := json.Unmarshal(dirJSON, &dir); err != nil {
		dec.Close()
		return nil, fmt.Errorf("%w: parsing directory: %v", apperrors.ErrCorrupt, err)
	}

	r := &Reader{
		file:    f,
		path:    path,
		key:     key,
		header:  header,
		dec:     dec,
		indices: make(map[string]*readerIndex, len(dir.Indices)),
		order:   make([]string, 0, len(dir.Indices)),
	}
	for _, d := range dir.Indices {
		idx := &readerIndex{entries: d.Entries, byValue: make(map[string]int, len(d.Entries))}
		for i, e := range d.Entries {
			idx.byValue[e.Value] = i
		}
		r.indices[d.Name] = idx
		r.order = append(r.order, d.Name)
	}
	return r, nil
}

// Header returns the archive header.
func (r *Reader) Header() Header {
	return r.header
}

// Indices lists index names in the order they were first written.
func (r *Reader) Indices() []string {
	return append([]string(nil), r.order...)
}

// Len reports the number of values in index, entries and links alike.
func (r *Reader) Len(index string) int {
	if idx, ok := r.indices[index]; ok {
		return len(idx.entries)
	}
	return 0
}

func (r *Reader) lookup(index, value string) (*dirEntry, error) {
	if r.closed.Load() {
		return nil, fmt.Errorf("%w: archive %s", apperrors.ErrClosed, r.path)
	}
	idx, ok := r.indices[index]
	if !ok {
		return nil, fmt.Errorf("%w: index %q", apperrors.ErrNotFound, index)
	}
	i, ok := idx.byValue[value]
	if !ok {
		return nil, fmt.Errorf("%w: %s=%q", apperrors.ErrNotFound, index, value)
	}
	return &idx.entries[i], nil
}

func (r *Reader) resolve(from string, t Target) (*dirEntry, error) {
	e, err := r.lookup(t.Index, t.Value)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s -> %s=%q", apperrors.ErrBrokenLink, from, t.Index, t.Value)
		}
		return nil, err
	}
	if e.isLink() {
		return nil, fmt.Errorf("%w: %s -> %s=%q is itself a link", apperrors.ErrBrokenLink, from, t.Index, t.Value)
	}
	return e, nil
}

func (r *Reader) payload(e *dirEntry) ([]byte, error) {
	compressed := make([]byte, e.Size)
	if _, err := r.file.ReadAt(compressed, r.header.PayloadOffset+e.Offset); err != nil {
		return nil, fmt.Errorf("reading payload %q: %w", e.Value, err)
	}
	data, err := r.dec.DecodeAll(compressed, make([]byte, 0, e.RawSize))
	if err != nil {
		return nil, fmt.Errorf("%w: decompressing payload %q: %v", apperrors.ErrCorrupt, e.Value, err)
	}
	return data, nil
}

// GetEntry returns the payload stored under (index, value), following at
// most one link. For a link with several targets the first one is returned.
func (r *Reader) GetEntry(index, value string) ([]byte, error) {
	e, err := r.lookup(index, value)
	if err != nil {
		return nil, err
	}
	if e.isLink() {
		e, err = r.resolve(index+"="+value, e.Targets[0])
		if err != nil {
			return nil, err
		}
	}
	return r.payload(e)
}

// IterEntries yields every payload reachable from (index, value): the payload
// itself, or each link target in insertion order. Lookup failures are yielded
// as errors; the consumer decides whether to stop. The sequence can be
// ranged over any number of times.
func (r *Reader) IterEntries(index, value string) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		e, err := r.lookup(index, value)
		if err != nil {
			yield(nil, err)
			return
		}
		if !e.isLink() {
			yield(r.payload(e))
			return
		}
		from := index + "=" + value
		for _, t := range e.Targets {
			target, err := r.resolve(from, t)
			if err != nil {
				if !yield(nil, err) {
					return
				}
				continue
			}
			if !yield(r.payload(target)) {
				return
			}
		}
	}
}

// IterIndex yields every value of index in insertion order.
func (r *Reader) IterIndex(index string) iter.Seq[string] {
	return func(yield func(string) bool) {
		idx, ok := r.indices[index]
		if !ok {
			return
		}
		for i := range idx.entries {
			if !yield(idx.entries[i].Value) {
				return
			}
		}
	}
}

// Close releases the file. Only the first call has an effect.
func (r *Reader) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	r.dec.Close()
	release(r.key, false)
	return r.file.Close()
}

// WithReader opens the archive at path, runs fn and always closes it.
func WithReader(path string, fn func(*Reader) error) error {
	r, err := OpenReader(path)
	if err != nil {
		return err
	}
	defer r.Close()
	return fn(r)
}
