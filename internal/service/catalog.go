package service

import (
	"context"
	"log/slog"

	"github.com/knowyournotes/catalog-server/internal/domain"
	domainerrors "github.com/knowyournotes/catalog-server/internal/errors"
	"github.com/knowyournotes/catalog-server/internal/store"
)

// FragranceDetail is a fragrance with its notes and accord chart.
type FragranceDetail struct {
	Fragrance domain.Fragrance     `json:"fragrance"`
	Notes     domain.LayeredNotes  `json:"notes"`
	Accords   []domain.AccordShare `json:"accords"`
}

// NoteDetail is a note with the fragrances that feature it.
type NoteDetail struct {
	Note       domain.Note        `json:"note"`
	Fragrances []domain.Fragrance `json:"fragrances"`
}

// BrandDetail is a brand with its fragrances.
type BrandDetail struct {
	Brand      domain.Brand       `json:"brand"`
	Fragrances []domain.Fragrance `json:"fragrances"`
}

// CatalogService serves the read-only catalog pages.
type CatalogService struct {
	store    store.Client
	resolver *NoteResolver
	logger   *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(client store.Client, resolver *NoteResolver, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		store:    client,
		resolver: resolver,
		logger:   logger,
	}
}

func (s *CatalogService) fetchOne(ctx context.Context, kind store.Kind, label, id string) (store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row, err := s.store.FetchOne(ctx, kind, id)
	if err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("%s %s not found", label, id)
		}
		return nil, domainerrors.FromStore(err, "load "+label)
	}
	return row, nil
}

// Fragrance returns a fragrance with its layered notes and accord breakdown.
func (s *CatalogService) Fragrance(ctx context.Context, id string) (*FragranceDetail, error) {
	row, err := s.fetchOne(ctx, store.KindFragrances, "fragrance", id)
	if err != nil {
		return nil, err
	}

	notes, accords, err := s.resolver.FragranceNotes(ctx, id)
	if err != nil {
		return nil, err
	}

	return &FragranceDetail{
		Fragrance: store.DecodeFragrance(row),
		Notes:     notes,
		Accords:   accords,
	}, nil
}

// Note returns a note and the fragrances that list it.
func (s *CatalogService) Note(ctx context.Context, id string) (*NoteDetail, error) {
	row, err := s.fetchOne(ctx, store.KindNotes, "note", id)
	if err != nil {
		return nil, err
	}

	frags, err := s.resolver.ReverseByNote(ctx, id)
	if err != nil {
		return nil, err
	}
	return &NoteDetail{Note: store.DecodeNote(row), Fragrances: frags}, nil
}

// Brand returns a brand and its fragrances.
func (s *CatalogService) Brand(ctx context.Context, id string) (*BrandDetail, error) {
	row, err := s.fetchOne(ctx, store.KindBrands, "brand", id)
	if err != nil {
		return nil, err
	}

	brand := store.DecodeBrand(row)
	frags, err := s.resolver.ReverseByBrand(ctx, brand)
	if err != nil {
		return nil, err
	}
	return &BrandDetail{Brand: brand, Fragrances: frags}, nil
}

// Notes lists every note by name.
func (s *CatalogService) Notes(ctx context.Context) ([]domain.Note, error) {
	rows, err := s.list(ctx, store.KindNotes, store.All().OrderBy("name", false))
	if err != nil {
		return nil, err
	}
	out := make([]domain.Note, len(rows))
	for i, row := range rows {
		out[i] = store.DecodeNote(row)
	}
	return out, nil
}

// Brands lists every brand by name.
func (s *CatalogService) Brands(ctx context.Context) ([]domain.Brand, error) {
	rows, err := s.list(ctx, store.KindBrands, store.All().OrderBy("name", false))
	if err != nil {
		return nil, err
	}
	out := make([]domain.Brand, len(rows))
	for i, row := range rows {
		out[i] = store.DecodeBrand(row)
	}
	return out, nil
}

// Upcoming lists unreleased fragrances by name.
func (s *CatalogService) Upcoming(ctx context.Context) ([]domain.Fragrance, error) {
	rows, err := s.list(ctx, store.KindFragrances, store.Where("released", false).OrderBy("name", false))
	if err != nil {
		return nil, err
	}
	out := make([]domain.Fragrance, len(rows))
	for i, row := range rows {
		out[i] = store.DecodeFragrance(row)
	}
	return out, nil
}

func (s *CatalogService) list(ctx context.Context, kind store.Kind, q store.Query) ([]store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.store.Fetch(ctx, kind, q)
	if err != nil {
		return nil, domainerrors.FromStore(err, "list "+string(kind))
	}
	return rows, nil
}
