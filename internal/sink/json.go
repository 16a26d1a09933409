package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/categorizer"
)

// JSONFile writes results as one JSON array. The file is replaced atomically
// so readers never see a partial array.
type JSONFile struct {
	path   string
	debug  bool
	logger *slog.Logger
}

func NewJSONFile(path string, debug bool) *JSONFile {
	return &JSONFile{
		path:   path,
		debug:  debug,
		logger: slog.Default().With("component", "json-sink", "path", path),
	}
}

// DebugPath is where the debug variant of path is written.
func DebugPath(path string) string {
	return filepath.Join(filepath.Dir(path), "debug_"+filepath.Base(path))
}

func (j *JSONFile) Name() string {
	if j.debug {
		return "json-debug"
	}
	return "json"
}

func (j *JSONFile) Write(ctx context.Context, results []categorizer.Result) error {
	if dir := filepath.Dir(j.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	tmp := j.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}
	committed := false
	defer func() {
		if !committed {
			f.Close()
			os.Remove(tmp)
		}
	}()

	w := bufio.NewWriterSize(f, 1<<20)
	enc := json.NewEncoder(w)
	if _, err := w.WriteString("["); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	for i, r := range results {
		if i%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if i > 0 {
			w.WriteString(",")
		}
		if err := enc.Encode(NewRecord(r, j.debug)); err != nil {
			return fmt.Errorf("encoding fdc id %d: %w", r.Food.FdcID, err)
		}
	}
	if _, err := w.WriteString("]\n"); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, j.path); err != nil {
		return fmt.Errorf("replacing %s: %w", j.path, err)
	}
	committed = true
	j.logger.Info("results written", "foods", len(results))
	return nil
}
