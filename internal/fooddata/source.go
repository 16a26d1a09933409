package fooddata

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/errors"
)

// Source is one dataset file plus the accessor that pulls Food fields out of
// its entries.
type Source struct {
	Name         string
	Path         string
	ListName     string
	IDField      string
	CategoryPath []string
}

// SourceFromConfig converts a configured dataset source.
func SourceFromConfig(c config.SourceConfig) Source {
	return Source{
		Name:         c.Name,
		Path:         c.Path,
		ListName:     c.ListName,
		IDField:      c.IDField,
		CategoryPath: c.CategoryPath,
	}
}

// Foods streams the entries of the source file. Entries are decoded one at a
// time so the whole dataset never sits in memory.
func (s Source) Foods(ctx context.Context) iter.Seq2[Food, error] {
	return func(yield func(Food, error) bool) {
		f, err := os.Open(s.Path)
		if err != nil {
			yield(Food{}, fmt.Errorf("opening dataset %s: %w", s.Name, err))
			return
		}
		defer f.Close()
		for food, err := range s.Decode(ctx, f) {
			if !yield(food, err) || err != nil {
				return
			}
		}
	}
}

// Decode streams entries from r, which must hold a JSON object with the
// source's list among its top-level keys.
func (s Source) Decode(ctx context.Context, r io.Reader) iter.Seq2[Food, error] {
	return func(yield func(Food, error) bool) {
		dec := json.NewDecoder(bufio.NewReaderSize(r, 1<<20))
		dec.UseNumber()
		fail := func(err error) {
			yield(Food{}, fmt.Errorf("%w: dataset %s: %v", apperrors.ErrInvalidInput, s.Name, err))
		}
		if err := expectDelim(dec, '{'); err != nil {
			fail(err)
			return
		}
		found := false
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				fail(err)
				return
			}
			key, _ := tok.(string)
			if key != s.ListName {
				var skip json.RawMessage
				if err := dec.Decode(&skip); err != nil {
					fail(err)
					return
				}
				continue
			}
			found = true
			if err := expectDelim(dec, '['); err != nil {
				fail(err)
				return
			}
			for dec.More() {
				if err := ctx.Err(); err != nil {
					yield(Food{}, err)
					return
				}
				var entry map[string]any
				if err := dec.Decode(&entry); err != nil {
					fail(err)
					return
				}
				food, err := s.Extract(entry)
				if !yield(food, err) || err != nil {
					return
				}
			}
			if err := expectDelim(dec, ']'); err != nil {
				fail(err)
				return
			}
		}
		if !found {
			fail(fmt.Errorf("list %q not found", s.ListName))
		}
	}
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

// Extract maps one decoded dataset entry to a Food.
func (s Source) Extract(entry map[string]any) (Food, error) {
	food := Food{Dataset: s.Name}
	fdcID, ok, err := intField(entry, "fdcId")
	if err != nil || !ok {
		if err == nil {
			err = errors.New("missing fdcId")
		}
		return food, fmt.Errorf("%w: dataset %s: %v", apperrors.ErrInvalidInput, s.Name, err)
	}
	food.FdcID = fdcID
	food.Description, _ = entry["description"].(string)

	if id, ok, err := intField(entry, s.IDField); err != nil {
		return food, fmt.Errorf("%w: fdc id %d: %s: %v", apperrors.ErrInvalidInput, fdcID, s.IDField, err)
	} else if ok {
		food.ID = id
	}

	var node any = entry
	for _, k := range s.CategoryPath {
		m, ok := node.(map[string]any)
		if !ok {
			node = nil
			break
		}
		node = m[k]
	}
	food.Category, _ = node.(string)

	inputs, _ := entry["inputFoods"].([]any)
	for _, in := range inputs {
		m, ok := in.(map[string]any)
		if !ok {
			continue
		}
		code, ok, err := intField(m, "ingredientCode")
		if err != nil {
			return food, fmt.Errorf("%w: fdc id %d: ingredientCode: %v", apperrors.ErrInvalidInput, fdcID, err)
		}
		if ok {
			food.IngredientIDs = append(food.IngredientIDs, code)
		}
	}
	return food, food.Validate()
}

// intField reads a numeric field that may also be encoded as a string, as
// ndbNumber is in some releases.
func intField(m map[string]any, key string) (int64, bool, error) {
	switch v := m[key].(type) {
	case nil:
		return 0, false, nil
	case json.Number:
		n, err := v.Int64()
		return n, err == nil, err
	case float64:
		return int64(v), true, nil
	case string:
		if v == "" {
			return 0, false, nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil, err
	default:
		return 0, false, fmt.Errorf("unexpected type %T", v)
	}
}
