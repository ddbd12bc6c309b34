package providers

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/knowyournotes/catalog-server/internal/config"
	"github.com/knowyournotes/catalog-server/internal/logger"
	"github.com/knowyournotes/catalog-server/internal/store"
	"github.com/knowyournotes/catalog-server/internal/store/kv"
	"github.com/knowyournotes/catalog-server/internal/store/postgrest"
	"github.com/knowyournotes/catalog-server/internal/store/sqlite"
)

// StoreHandle wraps the store client with shutdown capability.
type StoreHandle struct {
	store.Client
	Backend string
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// Ping reports whether the store answers a trivial query.
func (h *StoreHandle) Ping(ctx context.Context) error {
	_, err := h.Fetch(ctx, store.KindBrands, store.All().WithLimit(1))
	return err
}

// ProvideStore provides the record store selected by configuration.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client, err := OpenStore(cfg.Store, log)
	if err != nil {
		return nil, err
	}

	return &StoreHandle{Client: client, Backend: cfg.Store.Backend}, nil
}

// OpenStore opens the configured store backend. The seed command shares it.
func OpenStore(cfg config.StoreConfig, log *logger.Logger) (store.Client, error) {
	storeLog := log.WithComponent("store")

	switch cfg.Backend {
	case config.StoreSQLite:
		path := filepath.Join(cfg.DataPath, "catalog.db")
		client, err := sqlite.Open(path, storeLog)
		if err != nil {
			return nil, err
		}
		log.Info("Database initialized", "backend", cfg.Backend, "path", path)
		return client, nil

	case config.StoreBadger:
		path := filepath.Join(cfg.DataPath, "catalog.badger")
		client, err := kv.Open(path, storeLog)
		if err != nil {
			return nil, err
		}
		log.Info("Database initialized", "backend", cfg.Backend, "path", path)
		return client, nil

	case config.StorePostgREST:
		client, err := postgrest.New(postgrest.Config{
			URL:     cfg.PostgRESTURL,
			APIKey:  cfg.PostgRESTAPIKey,
			RPS:     cfg.PostgRESTRPS,
			Timeout: cfg.PostgRESTTimeout,
		}, storeLog)
		if err != nil {
			return nil, err
		}
		log.Info("Remote store configured", "backend", cfg.Backend, "url", cfg.PostgRESTURL)
		return client, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
