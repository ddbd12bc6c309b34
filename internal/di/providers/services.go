package providers

import (
	"github.com/samber/do/v2"

	"github.com/knowyournotes/catalog-server/internal/logger"
	"github.com/knowyournotes/catalog-server/internal/service"
	"github.com/knowyournotes/catalog-server/internal/validation"
)

// ProvideNoteResolver provides the fragrance-note relationship resolver.
func ProvideNoteResolver(i do.Injector) (*service.NoteResolver, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewNoteResolver(storeHandle.Client, log.Logger), nil
}

// ProvideCatalogService provides the catalog read service.
func ProvideCatalogService(i do.Injector) (*service.CatalogService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	resolver := do.MustInvoke[*service.NoteResolver](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewCatalogService(storeHandle.Client, resolver, log.Logger), nil
}

// ProvideRankingService provides the ranking service with a randomly seeded shuffle.
func ProvideRankingService(i do.Injector) (*service.RankingService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	resolver := do.MustInvoke[*service.NoteResolver](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewRankingService(storeHandle.Client, resolver, nil, log.Logger), nil
}

// ProvideCollectionService provides the collection manager.
func ProvideCollectionService(i do.Injector) (*service.CollectionService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewCollectionService(storeHandle.Client, log.Logger), nil
}

// ProvideProfileService provides the profile service.
func ProvideProfileService(i do.Injector) (*service.ProfileService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewProfileService(storeHandle.Client, validator, log.Logger), nil
}
