package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/knowyournotes/catalog-server/internal/domain"
	domainerrors "github.com/knowyournotes/catalog-server/internal/errors"
	"github.com/knowyournotes/catalog-server/internal/normalize"
	"github.com/knowyournotes/catalog-server/internal/store"
)

// CollectionService manages user collections and their memberships.
// Every mutation takes the acting profile id and checks ownership.
type CollectionService struct {
	store  store.Client
	logger *slog.Logger
}

// NewCollectionService creates a new collection service.
func NewCollectionService(client store.Client, logger *slog.Logger) *CollectionService {
	return &CollectionService{
		store:  client,
		logger: logger,
	}
}

func requireOwner(ownerID string) error {
	if normalize.IsBlank(ownerID) {
		return domainerrors.Unauthorized("sign in to manage collections")
	}
	return nil
}

// owned loads a collection and verifies ownerID owns it.
func (s *CollectionService) owned(ctx context.Context, ownerID, collectionID string) (domain.Collection, error) {
	row, err := s.store.FetchOne(ctx, store.KindCollections, collectionID)
	if err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return domain.Collection{}, domainerrors.NotFoundf("collection %s not found", collectionID)
		}
		return domain.Collection{}, domainerrors.FromStore(err, "load collection")
	}
	c := store.DecodeCollection(row)
	if !c.IsOwnedBy(ownerID) {
		return domain.Collection{}, domainerrors.Forbiddenf("collection %s belongs to another profile", collectionID)
	}
	return c, nil
}

// GetCollection returns a collection owned by ownerID.
func (s *CollectionService) GetCollection(ctx context.Context, ownerID, collectionID string) (domain.Collection, error) {
	if err := ctx.Err(); err != nil {
		return domain.Collection{}, err
	}
	if err := requireOwner(ownerID); err != nil {
		return domain.Collection{}, err
	}
	return s.owned(ctx, ownerID, collectionID)
}

// CreateCollection creates a collection named name for ownerID.
// A blank name is rejected before the store is contacted.
func (s *CollectionService) CreateCollection(ctx context.Context, ownerID, name string) (domain.Collection, error) {
	if err := ctx.Err(); err != nil {
		return domain.Collection{}, err
	}
	if normalize.IsBlank(name) {
		return domain.Collection{}, domainerrors.Validation("collection name is required")
	}
	if err := requireOwner(ownerID); err != nil {
		return domain.Collection{}, err
	}

	row, err := s.store.Insert(ctx, store.KindCollections, store.EncodeCollection(domain.Collection{
		Name:      strings.TrimSpace(name),
		ProfileID: ownerID,
	}))
	if err != nil {
		return domain.Collection{}, domainerrors.FromStore(err, "create collection")
	}
	c := store.DecodeCollection(row)

	s.logger.InfoContext(ctx, "collection created",
		"collection_id", c.ID,
		"owner_id", ownerID,
		"name", c.Name,
	)
	return c, nil
}

// DeleteCollection deletes a collection and all of its memberships.
// Memberships go first so no member outlives its collection. If the
// collection row cannot be removed afterwards the error is retryable:
// calling again finishes the job.
func (s *CollectionService) DeleteCollection(ctx context.Context, ownerID, collectionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	if _, err := s.owned(ctx, ownerID, collectionID); err != nil {
		return err
	}

	removed, err := s.store.DeleteWhere(ctx, store.KindCollectionFragrance, store.Where("collection_id", collectionID))
	if err != nil {
		return domainerrors.FromStore(err, "delete collection members")
	}

	if err := s.store.Delete(ctx, store.KindCollections, collectionID); err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return nil
		}
		s.logger.WarnContext(ctx, "collection members removed but collection delete failed",
			"collection_id", collectionID,
			"members_removed", removed,
			"error", err,
		)
		return domainerrors.Wrap(err, domainerrors.CodeUnavailable, "delete collection").AsRetryable()
	}

	s.logger.InfoContext(ctx, "collection deleted",
		"collection_id", collectionID,
		"owner_id", ownerID,
		"members_removed", removed,
	)
	return nil
}

// AddFragrance adds a fragrance to a collection. Adding a fragrance that is
// already there is not an error: the result reports AlreadyPresent.
func (s *CollectionService) AddFragrance(ctx context.Context, ownerID, collectionID, fragranceID string) (domain.AddResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.AddResult{}, err
	}
	if err := requireOwner(ownerID); err != nil {
		return domain.AddResult{}, err
	}
	if _, err := s.owned(ctx, ownerID, collectionID); err != nil {
		return domain.AddResult{}, err
	}
	if _, err := s.store.FetchOne(ctx, store.KindFragrances, fragranceID); err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return domain.AddResult{}, domainerrors.NotFoundf("fragrance %s not found", fragranceID)
		}
		return domain.AddResult{}, domainerrors.FromStore(err, "load fragrance")
	}

	existing, err := s.findMember(ctx, collectionID, fragranceID)
	if err != nil {
		return domain.AddResult{}, err
	}
	if existing != nil {
		return domain.AddResult{Member: existing, AlreadyPresent: true}, nil
	}

	row, err := s.store.Insert(ctx, store.KindCollectionFragrance, store.EncodeCollectionMember(domain.CollectionMember{
		CollectionID: collectionID,
		FragranceID:  fragranceID,
	}))
	if err != nil {
		if domainerrors.Is(err, store.ErrConflict) {
			// Lost a race with a concurrent add of the same pair.
			existing, findErr := s.findMember(ctx, collectionID, fragranceID)
			if findErr != nil {
				s.logger.DebugContext(ctx, "reload conflicting member failed", "error", findErr)
			}
			return domain.AddResult{Member: existing, AlreadyPresent: true}, nil
		}
		return domain.AddResult{}, domainerrors.FromStore(err, "add fragrance to collection")
	}
	m := store.DecodeCollectionMember(row)

	s.logger.InfoContext(ctx, "fragrance added to collection",
		"collection_id", collectionID,
		"fragrance_id", fragranceID,
		"member_id", m.ID,
		"owner_id", ownerID,
	)
	return domain.AddResult{Member: &m}, nil
}

func (s *CollectionService) findMember(ctx context.Context, collectionID, fragranceID string) (*domain.CollectionMember, error) {
	q := store.Where("collection_id", collectionID).Eq("fragrance_id", fragranceID).WithLimit(1)
	rows, err := s.store.Fetch(ctx, store.KindCollectionFragrance, q)
	if err != nil {
		return nil, domainerrors.FromStore(err, "check collection membership")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	m := store.DecodeCollectionMember(rows[0])
	return &m, nil
}

// CreateAndAdd creates a collection and adds a fragrance to it.
// If the add fails the new collection is kept and returned with the error.
func (s *CollectionService) CreateAndAdd(ctx context.Context, ownerID, name, fragranceID string) (domain.Collection, domain.AddResult, error) {
	c, err := s.CreateCollection(ctx, ownerID, name)
	if err != nil {
		return domain.Collection{}, domain.AddResult{}, err
	}
	res, err := s.AddFragrance(ctx, ownerID, c.ID, fragranceID)
	if err != nil {
		return c, domain.AddResult{}, err
	}
	return c, res, nil
}

// RemoveFragrance deletes a membership by id.
func (s *CollectionService) RemoveFragrance(ctx context.Context, ownerID, memberID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := requireOwner(ownerID); err != nil {
		return err
	}

	row, err := s.store.FetchOne(ctx, store.KindCollectionFragrance, memberID)
	if err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFoundf("collection member %s not found", memberID)
		}
		return domainerrors.FromStore(err, "load collection member")
	}
	m := store.DecodeCollectionMember(row)
	if _, err := s.owned(ctx, ownerID, m.CollectionID); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, store.KindCollectionFragrance, memberID); err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return nil
		}
		return domainerrors.FromStore(err, "remove fragrance from collection")
	}

	s.logger.InfoContext(ctx, "fragrance removed from collection",
		"collection_id", m.CollectionID,
		"fragrance_id", m.FragranceID,
		"member_id", memberID,
		"owner_id", ownerID,
	)
	return nil
}

// ListMembers returns a collection's memberships, oldest first, each with
// its fragrance loaded. Members whose fragrance no longer exists are omitted.
func (s *CollectionService) ListMembers(ctx context.Context, collectionID string) ([]domain.CollectionMember, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.store.Fetch(ctx, store.KindCollectionFragrance,
		store.Where("collection_id", collectionID).OrderBy("created_at", false))
	if err != nil {
		return nil, domainerrors.FromStore(err, "load collection members")
	}

	members := make([]domain.CollectionMember, 0, len(rows))
	fragIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		m := store.DecodeCollectionMember(row)
		members = append(members, m)
		fragIDs = append(fragIDs, m.FragranceID)
	}
	if len(members) == 0 {
		return members, nil
	}

	fragRows, err := s.store.Fetch(ctx, store.KindFragrances, store.All().In("id", fragIDs))
	if err != nil {
		return nil, domainerrors.FromStore(err, "load collection fragrances")
	}
	frags := make(map[string]domain.Fragrance, len(fragRows))
	for _, row := range fragRows {
		f := store.DecodeFragrance(row)
		frags[f.ID] = f
	}

	out := members[:0]
	for _, m := range members {
		f, ok := frags[m.FragranceID]
		if !ok {
			continue
		}
		m.Fragrance = &f
		out = append(out, m)
	}
	if dropped := len(members) - len(out); dropped > 0 {
		s.logger.DebugContext(ctx, "skipped members with missing fragrances",
			"collection_id", collectionID,
			"count", dropped,
		)
	}
	return out, nil
}

// Candidates returns catalog fragrances whose name contains query,
// ignoring case, for picking what to add to collectionID. A blank query
// returns nothing without touching the store.
func (s *CollectionService) Candidates(ctx context.Context, ownerID, collectionID, query string) ([]domain.Fragrance, error) {
	if _, err := s.GetCollection(ctx, ownerID, collectionID); err != nil {
		return nil, err
	}
	if normalize.IsBlank(query) {
		return []domain.Fragrance{}, nil
	}

	rows, err := s.store.Fetch(ctx, store.KindFragrances, store.All().Contains("name", query))
	if err != nil {
		return nil, domainerrors.FromStore(err, "search fragrances")
	}
	out := make([]domain.Fragrance, len(rows))
	for i, row := range rows {
		out[i] = store.DecodeFragrance(row)
	}
	return out, nil
}

// ListCollections returns a snapshot of ownerID's collections, oldest first.
func (s *CollectionService) ListCollections(ctx context.Context, ownerID string) (domain.CollectionList, error) {
	if err := ctx.Err(); err != nil {
		return domain.CollectionList{}, err
	}
	if err := requireOwner(ownerID); err != nil {
		return domain.CollectionList{}, err
	}

	rows, err := s.store.Fetch(ctx, store.KindCollections,
		store.Where("profile_id", ownerID).OrderBy("created_at", false))
	if err != nil {
		return domain.CollectionList{}, domainerrors.FromStore(err, "list collections")
	}
	items := make([]domain.Collection, len(rows))
	for i, row := range rows {
		items[i] = store.DecodeCollection(row)
	}
	return domain.NewCollectionList(items), nil
}
