package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/knowyournotes/catalog-server/internal/config"
	"github.com/knowyournotes/catalog-server/internal/logger"
	"github.com/knowyournotes/catalog-server/internal/search"
	"github.com/knowyournotes/catalog-server/internal/service"
)

// indexBuildTimeout bounds the startup index build.
const indexBuildTimeout = 2 * time.Minute

// SearchIndexHandle wraps the catalog index with shutdown capability.
// Index is nil when search goes to the store.
type SearchIndexHandle struct {
	Index *search.CatalogIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	if h.Index == nil {
		return nil
	}
	return h.Index.Close()
}

// ProvideSearchIndex builds the in-memory catalog index when the index
// search backend is configured.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	if cfg.Search.Backend != config.SearchIndex {
		return &SearchIndexHandle{}, nil
	}

	index, err := search.NewCatalogIndex(search.Options{Logger: log.WithComponent("search")})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), indexBuildTimeout)
	defer cancel()
	if err := index.Rebuild(ctx, storeHandle.Client); err != nil {
		_ = index.Close()
		return nil, err
	}

	return &SearchIndexHandle{Index: index}, nil
}

// ProvideNameMatcher selects how search matches names.
func ProvideNameMatcher(i do.Injector) (service.NameMatcher, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)

	if indexHandle.Index != nil {
		return service.NewIndexMatcher(indexHandle.Index, storeHandle.Client), nil
	}
	return service.NewStoreMatcher(storeHandle.Client), nil
}

// ProvideSearchService provides the search aggregator.
func ProvideSearchService(i do.Injector) (*service.SearchService, error) {
	matcher := do.MustInvoke[service.NameMatcher](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewSearchService(matcher, log.Logger), nil
}
