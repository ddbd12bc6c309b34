package di

import (
	"context"
	"testing"
	"time"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowyournotes/catalog-server/internal/config"
	"github.com/knowyournotes/catalog-server/internal/di/providers"
	"github.com/knowyournotes/catalog-server/internal/domain"
	"github.com/knowyournotes/catalog-server/internal/service"
	"github.com/knowyournotes/catalog-server/internal/store"
)

func testConfig(t *testing.T, storeBackend, searchBackend string) *config.Config {
	t.Helper()
	return &config.Config{
		App:     config.AppConfig{Environment: "development"},
		Logger:  config.LoggerConfig{Level: "error"},
		Store:   config.StoreConfig{Backend: storeBackend, DataPath: t.TempDir()},
		Search:  config.SearchConfig{Backend: searchBackend},
		Catalog: config.CatalogConfig{HomeListSize: 5},
		Server: config.ServerConfig{
			Port:         "0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			IdleTimeout:  time.Second,
		},
		Auth: config.AuthConfig{Issuer: "knowyournotes", Audience: "knowyournotes-api"},
	}
}

func TestBootstrap(t *testing.T) {
	for _, tc := range []struct{ store, search string }{
		{config.StoreSQLite, config.SearchStore},
		{config.StoreBadger, config.SearchIndex},
	} {
		t.Run(tc.store+"/"+tc.search, func(t *testing.T) {
			cfg := testConfig(t, tc.store, tc.search)
			require.NoError(t, cfg.Validate())

			injector := NewContainerWithConfig(cfg)
			t.Cleanup(func() { _ = injector.Shutdown() })

			require.NoError(t, Bootstrap(injector))

			storeHandle := do.MustInvoke[*providers.StoreHandle](injector)
			assert.Equal(t, tc.store, storeHandle.Backend)
			require.NoError(t, storeHandle.Ping(context.Background()))

			indexHandle := do.MustInvoke[*providers.SearchIndexHandle](injector)
			assert.Equal(t, tc.search == config.SearchIndex, indexHandle.Index != nil)

			_, err := storeHandle.Insert(context.Background(), store.KindBrands, store.Record{"name": "Guerlain"})
			require.NoError(t, err)

			results, err := do.MustInvoke[*service.SearchService](injector).Search(context.Background(), "guer")
			require.NoError(t, err)
			if tc.search == config.SearchStore {
				require.Len(t, results, 1)
				assert.Equal(t, domain.SearchKindBrand, results[0].Kind)
			} else {
				assert.Empty(t, results, "the index reflects the catalog as of startup")
			}
		})
	}
}

func TestBootstrap_DevelopmentKeyIsPersisted(t *testing.T) {
	cfg := testConfig(t, config.StoreSQLite, config.SearchStore)

	first := NewContainerWithConfig(cfg)
	key1 := do.MustInvoke[providers.AuthKey](first)
	_ = first.Shutdown()

	second := NewContainerWithConfig(cfg)
	key2 := do.MustInvoke[providers.AuthKey](second)
	_ = second.Shutdown()

	assert.Len(t, string(key1), 64)
	assert.Equal(t, key1, key2)
}
