package archive

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	apperrors "github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/errors"
)

// Writer builds a new archive. Output goes to path+".tmp" and is renamed into
// place by Close, so a build that fails or is aborted never leaves a file at
// path. The usual pattern is
//
//	w, err := archive.Create(path)
//	if err != nil { ... }
//	defer w.Abort()
//	... PutEntries / PutLinks ...
//	return w.Close()
type Writer struct {
	mu      sync.Mutex
	path    string
	tmpPath string
	key     string
	f       *os.File
	buf     *bufio.Writer
	enc     *zstd.Encoder
	offset  int64
	indices map[string]*writerIndex
	order   []string
	entries int
	links   int
	done    bool
	logger  *slog.Logger
}

type writerIndex struct {
	entries []dirEntry
	seen    map[string]int
}

// Create opens a new archive for writing, replacing any archive at path once
// Close succeeds.
func Create(path string) (*Writer, error) {
	key, err := acquireWrite(path)
	if err != nil {
		return nil, err
	}
	w, err := create(path, key)
	if err != nil {
		release(key, true)
		return nil, err
	}
	return w, nil
}

func create(path, key string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating archive directory: %w", err)
		}
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("creating temp archive file: %w", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	buf := bufio.NewWriterSize(f, 1<<20)
	if _, err := buf.Write(make([]byte, HeaderSize)); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("reserving header: %w", err)
	}
	return &Writer{
		path:    path,
		tmpPath: tmpPath,
		key:     key,
		f:       f,
		buf:     buf,
		enc:     enc,
		indices: make(map[string]*writerIndex),
		logger:  slog.Default().With("component", "archive-writer", "path", path),
	}, nil
}

func (w *Writer) index(name string) *writerIndex {
	idx, ok := w.indices[name]
	if !ok {
		idx = &writerIndex{seen: make(map[string]int)}
		w.indices[name] = idx
		w.order = append(w.order, name)
	}
	return idx
}

func (w *Writer) checkOpen(index string) error {
	if w.done {
		return fmt.Errorf("%w: archive writer for %s", apperrors.ErrClosed, w.path)
	}
	if index == "" {
		return fmt.Errorf("%w: empty index name", apperrors.ErrInvalidInput)
	}
	return nil
}

// PutEntries compresses and appends payloads under index. A value that is
// already present in index, as entry or link, fails with ErrDuplicateKey and
// nothing from the batch after it is written.
func (w *Writer) PutEntries(index string, entries []Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkOpen(index); err != nil {
		return err
	}
	idx := w.index(index)
	for _, e := range entries {
		if _, dup := idx.seen[e.Value]; dup {
			return fmt.Errorf("%w: %s=%q", apperrors.ErrDuplicateKey, index, e.Value)
		}
		compressed := w.enc.EncodeAll(e.Data, nil)
		if _, err := w.buf.Write(compressed); err != nil {
			return fmt.Errorf("writing payload %s=%q: %w", index, e.Value, err)
		}
		idx.seen[e.Value] = len(idx.entries)
		idx.entries = append(idx.entries, dirEntry{
			Value:   e.Value,
			Offset:  w.offset,
			Size:    int64(len(compressed)),
			RawSize: int64(len(e.Data)),
		})
		w.offset += int64(len(compressed))
		w.entries++
	}
	return nil
}

// PutLinks registers aliases under index. Targets are resolved at read time
// and must name payload entries, not other links.
func (w *Writer) PutLinks(index string, links []Link) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkOpen(index); err != nil {
		return err
	}
	idx := w.index(index)
	for _, l := range links {
		if len(l.Targets) == 0 {
			return fmt.Errorf("%w: link %s=%q has no targets", apperrors.ErrInvalidInput, index, l.Value)
		}
		if _, dup := idx.seen[l.Value]; dup {
			return fmt.Errorf("%w: %s=%q", apperrors.ErrDuplicateKey, index, l.Value)
		}
		idx.seen[l.Value] = len(idx.entries)
		idx.entries = append(idx.entries, dirEntry{
			Value:   l.Value,
			Targets: append([]Target(nil), l.Targets...),
		})
		w.links++
	}
	return nil
}

// checkLinks rejects chained links and reports how many targets are absent.
// Absent targets are tolerated here and surface as ErrBrokenLink on read.
func (w *Writer) checkLinks() (dangling int, err error) {
	for _, name := range w.order {
		for _, e := range w.indices[name].entries {
			for _, t := range e.Targets {
				target, ok := w.indices[t.Index]
				if !ok {
					dangling++
					continue
				}
				i, ok := target.seen[t.Value]
				if !ok {
					dangling++
					continue
				}
				if target.entries[i].isLink() {
					return dangling, fmt.Errorf("%w: link %s=%q points at link %s=%q",
						apperrors.ErrInvalidInput, name, e.Value, t.Index, t.Value)
				}
			}
		}
	}
	return dangling, nil
}

// Close writes the directory, header and footer, then renames the file into
// place. Calling Close after Close or Abort is a no-op.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return nil
	}
	if err := w.finish(); err != nil {
		w.discard()
		return err
	}
	return nil
}

func (w *Writer) finish() error {
	dangling, err := w.checkLinks()
	if err != nil {
		return err
	}
	if dangling > 0 {
		w.logger.Warn("archive contains links to absent entries", "dangling_targets", dangling)
	}

	dir := directory{Indices: make([]indexDir, 0, len(w.order))}
	for _, name := range w.order {
		dir.Indices = append(dir.Indices, indexDir{Name: name, Entries: w.indices[name].entries})
	}
	dirJSON, err := json.Marshal(dir)
	if err != nil {
		return fmt.Errorf("marshaling directory: %w", err)
	}
	dirData := w.enc.EncodeAll(dirJSON, nil)
	payloadStart := int64(HeaderSize)
	dirStart := payloadStart + w.offset
	if _, err := w.buf.Write(dirData); err != nil {
		return fmt.Errorf("writing directory: %w", err)
	}
	ft := footer{
		Checksum:   crc32.ChecksumIEEE(dirData),
		EntryCount: uint32(w.entries),
		DirOffset:  dirStart,
		DirSize:    int64(len(dirData)),
		LinkCount:  uint32(w.links),
	}
	if _, err := w.buf.Write(ft.encode()); err != nil {
		return fmt.Errorf("writing footer: %w", err)
	}
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("flushing archive: %w", err)
	}
	h := Header{
		Magic:         MagicBytes,
		Version:       FormatVersion,
		IndexCount:    uint32(len(w.order)),
		EntryCount:    uint32(w.entries),
		LinkCount:     uint32(w.links),
		CreatedAt:     time.Now().Unix(),
		PayloadOffset: payloadStart,
		PayloadSize:   w.offset,
		DirOffset:     dirStart,
		DirSize:       int64(len(dirData)),
	}
	if _, err := w.f.WriteAt(h.encode(), 0); err != nil {
		return fmt.Errorf("updating header: %w", err)
	}
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("syncing archive file: %w", err)
	}
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("closing archive file: %w", err)
	}
	if err := os.Rename(w.tmpPath, w.path); err != nil {
		return fmt.Errorf("renaming archive file: %w", err)
	}
	w.enc.Close()
	w.done = true
	release(w.key, true)
	w.logger.Info("archive written",
		"indices", len(w.order),
		"entries", w.entries,
		"links", w.links,
		"payload_bytes", w.offset,
		"directory_bytes", len(dirData),
	)
	return nil
}

// Abort discards everything written so far. It is a no-op after Close.
func (w *Writer) Abort() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return
	}
	w.discard()
}

func (w *Writer) discard() {
	w.done = true
	w.enc.Close()
	if err := w.f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		w.logger.Warn("closing aborted archive", "error", err)
	}
	if err := os.Remove(w.tmpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		w.logger.Warn("removing aborted archive", "error", err)
	}
	release(w.key, true)
}

// WithWriter creates an archive at path, runs fn and commits only if fn
// returns nil. Any error or panic leaves no archive behind.
func WithWriter(path string, fn func(*Writer) error) error {
	w, err := Create(path)
	if err != nil {
		return err
	}
	defer w.Abort()
	if err := fn(w); err != nil {
		return err
	}
	return w.Close()
}
