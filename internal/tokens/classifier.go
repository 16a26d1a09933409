// Package tokens classifies free-text food descriptions by the vocabulary
// phrases they contain. Matching is maximal munch: all phrases are compiled
// into one alternation ordered longest first, so at any position the longest
// phrase wins ("almond milk" over "almond"). Matches are plain substring
// matches; BLOCK phrases exist to swallow known false positives.
package tokens

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/diet"
	apperrors "github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/errors"
)

// Match is one vocabulary phrase found in a description.
type Match struct {
	Phrase   string
	Category diet.TokenCategory
	// Offset is the byte offset in the lowercased description.
	Offset int
}

// Classifier is immutable after New and safe for concurrent use.
type Classifier struct {
	re      *regexp.Regexp
	phrases map[string]diet.TokenCategory
}

// New compiles vocab into a classifier. Empty phrases and phrases listed
// under more than one category are rejected.
func New(vocab Vocabulary) (*Classifier, error) {
	phrases := make(map[string]diet.TokenCategory)
	for tc, list := range vocab {
		for _, p := range list {
			p = strings.ToLower(strings.TrimSpace(p))
			if p == "" {
				return nil, fmt.Errorf("%w: empty phrase under %s", apperrors.ErrInvalidInput, tc)
			}
			if prev, dup := phrases[p]; dup && prev != tc {
				return nil, fmt.Errorf("%w: phrase %q listed under both %s and %s",
					apperrors.ErrInvalidInput, p, prev, tc)
			}
			phrases[p] = tc
		}
	}
	c := &Classifier{phrases: phrases}
	if len(phrases) == 0 {
		return c, nil
	}

	ordered := make([]string, 0, len(phrases))
	for p := range phrases {
		ordered = append(ordered, p)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if len(ordered[i]) != len(ordered[j]) {
			return len(ordered[i]) > len(ordered[j])
		}
		return ordered[i] < ordered[j]
	})
	quoted := make([]string, len(ordered))
	for i, p := range ordered {
		quoted[i] = regexp.QuoteMeta(p)
	}
	re, err := regexp.Compile(strings.Join(quoted, "|"))
	if err != nil {
		return nil, fmt.Errorf("compiling vocabulary: %w", err)
	}
	c.re = re
	return c, nil
}

// MustNew is New for vocabularies known to be valid, such as the default one.
func MustNew(vocab Vocabulary) *Classifier {
	c, err := New(vocab)
	if err != nil {
		panic(err)
	}
	return c
}

// Default returns a classifier over DefaultVocabulary.
func Default() *Classifier {
	return MustNew(DefaultVocabulary())
}

// Len reports the number of distinct phrases.
func (c *Classifier) Len() int {
	return len(c.phrases)
}

// Matches returns every non-overlapping phrase occurrence, left to right.
func (c *Classifier) Matches(description string) []Match {
	if c.re == nil {
		return nil
	}
	lower := strings.ToLower(description)
	locs := c.re.FindAllStringIndex(lower, -1)
	out := make([]Match, 0, len(locs))
	for _, loc := range locs {
		p := lower[loc[0]:loc[1]]
		out = append(out, Match{Phrase: p, Category: c.phrases[p], Offset: loc[0]})
	}
	return out
}

// Classify returns the set of token categories matched at least once.
func (c *Classifier) Classify(description string) diet.TokenSet {
	var s diet.TokenSet
	for _, m := range c.Matches(description) {
		s = s.Add(m.Category)
	}
	return s
}

// Categorize resolves description to a single diet category by strict
// precedence over the matched token categories.
func (c *Classifier) Categorize(description string) diet.Category {
	return diet.Resolve(c.Classify(description))
}
