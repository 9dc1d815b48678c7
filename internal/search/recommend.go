package search

import (
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/tphakala/codeseek/internal/errors"
	"github.com/tphakala/codeseek/internal/record"
)

// ErrUnknownCategory is returned when no configured category matches.
var ErrUnknownCategory = errors.NewStd("unknown recommendation category")

// Categories maps a recommendation category name to its collection.
type Categories map[string]string

// Names returns the category names sorted.
func (c Categories) Names() []string {
	return slices.Sorted(maps.Keys(c))
}

// Match returns the first category, in sorted order, whose name contains arg.
// Comparison ignores case.
func (c Categories) Match(arg string) (name, collection string, ok bool) {
	arg = strings.ToLower(strings.TrimSpace(arg))
	if arg == "" {
		return "", "", false
	}
	for _, name := range c.Names() {
		if strings.Contains(strings.ToLower(name), arg) {
			return name, c[name], true
		}
	}
	return "", "", false
}

// Recommendation is a random sample drawn for a category.
type Recommendation struct {
	Category   string       `json:"category"`
	Collection string       `json:"collection"`
	Hits       []record.Hit `json:"hits"`
}

// Recommend samples n random records from the collection of the category
// matching arg.
func (s *Searcher) Recommend(ctx context.Context, categories Categories, arg string, n int) (*Recommendation, error) {
	name, collection, ok := categories.Match(arg)
	if !ok {
		return nil, errors.New(ErrUnknownCategory).
			Component("search").
			Category(errors.CategoryNotFound).
			Context("category", arg).
			Build()
	}

	hits, err := s.Sample(ctx, collection, n)
	if err != nil {
		return nil, err
	}
	return &Recommendation{Category: name, Collection: collection, Hits: hits}, nil
}

// IsUnknownCategory reports whether err is a failed category match.
func IsUnknownCategory(err error) bool {
	return errors.Is(err, ErrUnknownCategory)
}
