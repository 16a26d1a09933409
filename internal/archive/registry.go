package archive

import (
	"fmt"
	"path/filepath"
	"sync"

	apperrors "github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/errors"
)

// holders tracks, per absolute archive path, whether a writer is active and
// how many readers are open. Writing and reading the same archive at once is
// refused in both directions.
var holders = struct {
	mu    sync.Mutex
	paths map[string]*holder
}{paths: make(map[string]*holder)}

type holder struct {
	writer  bool
	readers int
}

func canonical(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func acquireWrite(path string) (string, error) {
	key := canonical(path)
	holders.mu.Lock()
	defer holders.mu.Unlock()
	h := holders.paths[key]
	if h == nil {
		h = &holder{}
		holders.paths[key] = h
	}
	if h.writer || h.readers > 0 {
		return "", fmt.Errorf("%w: %s is already open (writer=%t readers=%d)",
			apperrors.ErrConcurrentAccess, path, h.writer, h.readers)
	}
	h.writer = true
	return key, nil
}

func acquireRead(path string) (string, error) {
	key := canonical(path)
	holders.mu.Lock()
	defer holders.mu.Unlock()
	h := holders.paths[key]
	if h == nil {
		h = &holder{}
		holders.paths[key] = h
	}
	if h.writer {
		return "", fmt.Errorf("%w: %s is being written", apperrors.ErrConcurrentAccess, path)
	}
	h.readers++
	return key, nil
}

func release(key string, writer bool) {
	holders.mu.Lock()
	defer holders.mu.Unlock()
	h := holders.paths[key]
	if h == nil {
		return
	}
	if writer {
		h.writer = false
	} else if h.readers > 0 {
		h.readers--
	}
	if !h.writer && h.readers == 0 {
		delete(holders.paths, key)
	}
}
