package service

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/knowyournotes/catalog-server/internal/domain"
	domainerrors "github.com/knowyournotes/catalog-server/internal/errors"
	"github.com/knowyournotes/catalog-server/internal/normalize"
	"github.com/knowyournotes/catalog-server/internal/search"
	"github.com/knowyournotes/catalog-server/internal/store"
)

// searchKinds lists the searched kinds in presentation order.
var searchKinds = []domain.SearchKind{
	domain.SearchKindNote,
	domain.SearchKindFragrance,
	domain.SearchKindBrand,
}

func storeKind(kind domain.SearchKind) store.Kind {
	switch kind {
	case domain.SearchKindNote:
		return store.KindNotes
	case domain.SearchKindFragrance:
		return store.KindFragrances
	default:
		return store.KindBrands
	}
}

// NameMatcher finds records of a kind whose name contains a literal token,
// ignoring case.
type NameMatcher interface {
	MatchNames(ctx context.Context, kind domain.SearchKind, token string) ([]store.Record, error)
}

// StoreMatcher matches names with the store's Contains filter.
type StoreMatcher struct {
	store store.Client
}

// NewStoreMatcher creates a matcher backed by client.
func NewStoreMatcher(client store.Client) *StoreMatcher {
	return &StoreMatcher{store: client}
}

// MatchNames implements NameMatcher.
func (m *StoreMatcher) MatchNames(ctx context.Context, kind domain.SearchKind, token string) ([]store.Record, error) {
	return m.store.Fetch(ctx, storeKind(kind), store.All().Contains("name", token).OrderBy("name", false))
}

// IndexMatcher matches names against the in-memory catalog index and loads
// the hits from the store in one batched fetch.
type IndexMatcher struct {
	index *search.CatalogIndex
	store store.Client
}

// NewIndexMatcher creates a matcher backed by index.
func NewIndexMatcher(index *search.CatalogIndex, client store.Client) *IndexMatcher {
	return &IndexMatcher{index: index, store: client}
}

// MatchNames implements NameMatcher. Hits deleted from the store since the
// index was built are dropped.
func (m *IndexMatcher) MatchNames(ctx context.Context, kind domain.SearchKind, token string) ([]store.Record, error) {
	ids, err := m.index.Match(ctx, kind, token)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "search index")
	}
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := m.store.Fetch(ctx, storeKind(kind), store.All().In("id", ids))
	if err != nil {
		return nil, err
	}
	byID := make(map[string]store.Record, len(rows))
	for _, row := range rows {
		byID[row.ID()] = row
	}
	out := make([]store.Record, 0, len(ids))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

// SearchService runs combined name searches over notes, fragrances and brands.
type SearchService struct {
	matcher NameMatcher
	logger  *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(matcher NameMatcher, logger *slog.Logger) *SearchService {
	return &SearchService{
		matcher: matcher,
		logger:  logger,
	}
}

// lookup runs the three kind lookups concurrently and waits for all of them.
// A blank query returns nil without touching the matcher.
func (s *SearchService) lookup(ctx context.Context, query string) ([][]store.Record, error) {
	if normalize.IsBlank(query) {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([][]store.Record, len(searchKinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range searchKinds {
		g.Go(func() error {
			rows, err := s.matcher.MatchNames(gctx, kind, query)
			if err != nil {
				return domainerrors.FromStore(err, fmt.Sprintf("search %ss", kind))
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Search returns suggestions for query: notes, then fragrances, then brands.
// The query is a literal token matched case-insensitively anywhere in a
// name. A blank query yields an empty result.
func (s *SearchService) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	groups, err := s.lookup(ctx, query)
	if err != nil {
		return nil, err
	}

	out := []domain.SearchResult{}
	for i, rows := range groups {
		for _, row := range rows {
			out = append(out, domain.NewSearchResult(searchKinds[i], row.ID(), row.String("name")))
		}
	}

	s.logger.DebugContext(ctx, "search", "query", query, "results", len(out))
	return out, nil
}

// SearchGrouped returns full records matching query, grouped by kind.
func (s *SearchService) SearchGrouped(ctx context.Context, query string) (*domain.SearchPage, error) {
	groups, err := s.lookup(ctx, query)
	if err != nil {
		return nil, err
	}

	page := &domain.SearchPage{
		Query:      query,
		Notes:      []domain.Note{},
		Fragrances: []domain.Fragrance{},
		Brands:     []domain.Brand{},
	}
	if groups == nil {
		return page, nil
	}

	for _, row := range groups[0] {
		page.Notes = append(page.Notes, store.DecodeNote(row))
	}
	for _, row := range groups[1] {
		page.Fragrances = append(page.Fragrances, store.DecodeFragrance(row))
	}
	for _, row := range groups[2] {
		page.Brands = append(page.Brands, store.DecodeBrand(row))
	}
	return page, nil
}
