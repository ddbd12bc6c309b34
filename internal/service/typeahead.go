package service

import (
	"context"
	"slices"
	"sync"

	"github.com/knowyournotes/catalog-server/internal/domain"
	"github.com/knowyournotes/catalog-server/internal/normalize"
)

// Suggestions is an immutable type-ahead state.
type Suggestions struct {
	Query   string                `json:"query"`
	Results []domain.SearchResult `json:"results"`
	Seq     uint64                `json:"seq"` // Tag of the update that produced it
}

// TypeAhead keeps the suggestions for the latest query typed.
// Searches may finish out of order; a result is committed only if its
// request is still the most recently issued one.
type TypeAhead struct {
	search *SearchService

	mu      sync.Mutex
	issued  uint64
	current Suggestions
}

// NewTypeAhead creates an empty type-ahead.
func NewTypeAhead(search *SearchService) *TypeAhead {
	return &TypeAhead{
		search:  search,
		current: Suggestions{Results: []domain.SearchResult{}},
	}
}

// Update searches for query and commits the result if no newer update was
// issued meanwhile. It reports whether the result was committed. Errors of
// superseded requests are dropped. A blank query clears the suggestions
// immediately and supersedes any search in flight.
func (t *TypeAhead) Update(ctx context.Context, query string) (bool, error) {
	t.mu.Lock()
	t.issued++
	seq := t.issued
	if normalize.IsBlank(query) {
		t.current = Suggestions{Query: query, Results: []domain.SearchResult{}, Seq: seq}
		t.mu.Unlock()
		return true, nil
	}
	t.mu.Unlock()

	results, err := t.search.Search(ctx, query)

	t.mu.Lock()
	defer t.mu.Unlock()
	if seq != t.issued {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	t.current = Suggestions{Query: query, Results: results, Seq: seq}
	return true, nil
}

// Snapshot returns the committed suggestions. The result is a copy.
func (t *TypeAhead) Snapshot() Suggestions {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.current
	s.Results = slices.Clone(s.Results)
	return s
}
