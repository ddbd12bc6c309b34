package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowyournotes/catalog-server/internal/domain"
	domainerrors "github.com/knowyournotes/catalog-server/internal/errors"
	"github.com/knowyournotes/catalog-server/internal/logger"
	"github.com/knowyournotes/catalog-server/internal/search"
	"github.com/knowyournotes/catalog-server/internal/store"
)

func seedSearchCatalog(t *testing.T, c store.Client) {
	t.Helper()
	seedOne(t, c, store.KindNotes, store.Record{"name": "Vanilla", "accord": "sweet"})
	seedOne(t, c, store.KindNotes, store.Record{"name": "Bourbon vanilla"})
	seedOne(t, c, store.KindNotes, store.Record{"name": "Rose"})
	seedOne(t, c, store.KindFragrances, store.Record{"name": "Vanilla 28", "brand": "Kayali"})
	seedOne(t, c, store.KindFragrances, store.Record{"name": "100% Rose"})
	seedOne(t, c, store.KindBrands, store.Record{"name": "Vanille_Co", "logo": "logos/v.png"})
	seedOne(t, c, store.KindBrands, store.Record{"name": "VanilleXCo"})
}

// matchers returns each NameMatcher implementation over the same catalog.
func matchers(t *testing.T) map[string]NameMatcher {
	t.Helper()
	c := newTestClient(t)
	seedSearchCatalog(t, c)

	index, err := search.NewCatalogIndex(search.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	require.NoError(t, index.Rebuild(context.Background(), c))

	return map[string]NameMatcher{
		"store": NewStoreMatcher(c),
		"index": NewIndexMatcher(index, c),
	}
}

func labels(results []domain.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Label
	}
	return out
}

func TestSearch(t *testing.T) {
	for name, m := range matchers(t) {
		t.Run(name, func(t *testing.T) {
			svc := NewSearchService(m, logger.Discard())

			got, err := svc.Search(context.Background(), "VANIL")
			require.NoError(t, err)

			// Notes, then fragrances, then brands.
			require.Len(t, got, 5)
			assert.ElementsMatch(t, []string{"Note: Vanilla", "Note: Bourbon vanilla"}, labels(got[:2]))
			assert.Equal(t, "Fragrance: Vanilla 28", got[2].Label)
			assert.ElementsMatch(t, []string{"Brand: Vanille_Co", "Brand: VanilleXCo"}, labels(got[3:]))
			for _, r := range got {
				assert.NotEmpty(t, r.ID)
			}
		})
	}
}

func TestSearch_TokenIsLiteral(t *testing.T) {
	for name, m := range matchers(t) {
		t.Run(name, func(t *testing.T) {
			svc := NewSearchService(m, logger.Discard())

			tests := []struct {
				query string
				want  []string
			}{
				{"%", []string{"Fragrance: 100% Rose"}},
				{"e_c", []string{"Brand: Vanille_Co"}},
				{"*", []string{}},
				{"a,b", []string{}},
				{"(rose)", []string{}},
				{`\`, []string{}},
			}
			for _, tt := range tests {
				got, err := svc.Search(context.Background(), tt.query)
				require.NoError(t, err, tt.query)
				assert.Equal(t, tt.want, labels(got), tt.query)
			}
		})
	}
}

func TestSearch_BlankQuerySkipsStore(t *testing.T) {
	fc := newFaultyClient(newTestClient(t))
	svc := NewSearchService(NewStoreMatcher(fc), logger.Discard())

	for _, q := range []string{"", "   ", "\t\n"} {
		got, err := svc.Search(context.Background(), q)
		require.NoError(t, err)
		assert.Empty(t, got)

		page, err := svc.SearchGrouped(context.Background(), q)
		require.NoError(t, err)
		assert.Zero(t, page.Total())
	}
	assert.Zero(t, fc.totalFetches())
}

func TestSearch_FailsWhenAnyLookupFails(t *testing.T) {
	c := newTestClient(t)
	seedSearchCatalog(t, c)
	fc := newFaultyClient(c)
	fc.fetchErr[store.KindBrands] = store.ErrUnavailable
	svc := NewSearchService(NewStoreMatcher(fc), logger.Discard())

	_, err := svc.Search(context.Background(), "van")
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrUnavailable)
}

func TestSearch_RunsLookupsConcurrently(t *testing.T) {
	c := newTestClient(t)
	seedSearchCatalog(t, c)
	fc := newFaultyClient(c)

	// Each lookup waits until all three have started.
	started := make(chan struct{}, 3)
	release := make(chan struct{})
	fc.beforeFetch = func(store.Kind) {
		started <- struct{}{}
		<-release
	}
	go func() {
		for range 3 {
			<-started
		}
		close(release)
	}()

	svc := NewSearchService(NewStoreMatcher(fc), logger.Discard())
	got, err := svc.Search(context.Background(), "rose")
	require.NoError(t, err)
	assert.Equal(t, []string{"Note: Rose", "Fragrance: 100% Rose"}, labels(got))
}

func TestSearchGrouped(t *testing.T) {
	for name, m := range matchers(t) {
		t.Run(name, func(t *testing.T) {
			svc := NewSearchService(m, logger.Discard())

			page, err := svc.SearchGrouped(context.Background(), "vanil")
			require.NoError(t, err)

			assert.Equal(t, "vanil", page.Query)
			assert.Len(t, page.Notes, 2)
			require.Len(t, page.Fragrances, 1)
			assert.Equal(t, "Kayali", page.Fragrances[0].Brand)
			assert.Len(t, page.Brands, 2)
			assert.Equal(t, 5, page.Total())
		})
	}
}

func TestIndexMatcher_DropsRecordsDeletedSinceBuild(t *testing.T) {
	c := newTestClient(t)
	rose := seedOne(t, c, store.KindNotes, store.Record{"name": "Rose"})

	index, err := search.NewCatalogIndex(search.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	require.NoError(t, index.Rebuild(context.Background(), c))

	require.NoError(t, c.Delete(context.Background(), store.KindNotes, rose.ID()))

	rows, err := NewIndexMatcher(index, c).MatchNames(context.Background(), domain.SearchKindNote, "rose")
	require.NoError(t, err)
	assert.Empty(t, rows)
}
