package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/knowyournotes/catalog-server/internal/domain"
	"github.com/knowyournotes/catalog-server/internal/service"
)

func (s *Server) registerCatalogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getHome",
		Method:      http.MethodGet,
		Path:        "/api/v1/home",
		Summary:     "Home page",
		Description: "Top rated, featured and most popular fragrances with their accord badges",
		Tags:        []string{tagCatalog},
	}, s.handleGetHome)

	huma.Register(s.api, huma.Operation{
		OperationID: "getFragrance",
		Method:      http.MethodGet,
		Path:        "/api/v1/fragrances/{id}",
		Summary:     "Get fragrance",
		Description: "Returns a fragrance with its notes grouped by layer and its accord breakdown",
		Tags:        []string{tagCatalog},
	}, s.handleGetFragrance)

	huma.Register(s.api, huma.Operation{
		OperationID: "listUpcoming",
		Method:      http.MethodGet,
		Path:        "/api/v1/upcoming",
		Summary:     "List upcoming fragrances",
		Description: "Returns unreleased fragrances ordered by name",
		Tags:        []string{tagCatalog},
	}, s.handleListUpcoming)

	huma.Register(s.api, huma.Operation{
		OperationID: "listNotes",
		Method:      http.MethodGet,
		Path:        "/api/v1/notes",
		Summary:     "List notes",
		Tags:        []string{tagCatalog},
	}, s.handleListNotes)

	huma.Register(s.api, huma.Operation{
		OperationID: "getNote",
		Method:      http.MethodGet,
		Path:        "/api/v1/notes/{id}",
		Summary:     "Get note",
		Description: "Returns a note with the fragrances that feature it",
		Tags:        []string{tagCatalog},
	}, s.handleGetNote)

	huma.Register(s.api, huma.Operation{
		OperationID: "listBrands",
		Method:      http.MethodGet,
		Path:        "/api/v1/brands",
		Summary:     "List brands",
		Tags:        []string{tagCatalog},
	}, s.handleListBrands)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBrand",
		Method:      http.MethodGet,
		Path:        "/api/v1/brands/{id}",
		Summary:     "Get brand",
		Description: "Returns a brand with its fragrances",
		Tags:        []string{tagCatalog},
	}, s.handleGetBrand)
}

// === DTOs ===

// IDPathInput identifies a catalog record.
type IDPathInput struct {
	ID string `path:"id" doc:"Record ID"`
}

// HomeOutput wraps the home page for Huma.
type HomeOutput struct {
	Body *service.HomePage
}

// FragranceOutput wraps a fragrance detail for Huma.
type FragranceOutput struct {
	Body *service.FragranceDetail
}

// FragrancesOutput wraps a fragrance list for Huma.
type FragrancesOutput struct {
	Body []domain.Fragrance
}

// NoteOutput wraps a note detail for Huma.
type NoteOutput struct {
	Body *service.NoteDetail
}

// NotesOutput wraps a note list for Huma.
type NotesOutput struct {
	Body []domain.Note
}

// BrandOutput wraps a brand detail for Huma.
type BrandOutput struct {
	Body *service.BrandDetail
}

// BrandsOutput wraps a brand list for Huma.
type BrandsOutput struct {
	Body []domain.Brand
}

// === Handlers ===

func (s *Server) handleGetHome(ctx context.Context, _ *struct{}) (*HomeOutput, error) {
	home, err := s.services.Ranking.Home(ctx, s.homeSize)
	if err != nil {
		return nil, err
	}
	return &HomeOutput{Body: home}, nil
}

func (s *Server) handleGetFragrance(ctx context.Context, input *IDPathInput) (*FragranceOutput, error) {
	detail, err := s.services.Catalog.Fragrance(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &FragranceOutput{Body: detail}, nil
}

func (s *Server) handleListUpcoming(ctx context.Context, _ *struct{}) (*FragrancesOutput, error) {
	frags, err := s.services.Catalog.Upcoming(ctx)
	if err != nil {
		return nil, err
	}
	return &FragrancesOutput{Body: frags}, nil
}

func (s *Server) handleListNotes(ctx context.Context, _ *struct{}) (*NotesOutput, error) {
	notes, err := s.services.Catalog.Notes(ctx)
	if err != nil {
		return nil, err
	}
	return &NotesOutput{Body: notes}, nil
}

func (s *Server) handleGetNote(ctx context.Context, input *IDPathInput) (*NoteOutput, error) {
	detail, err := s.services.Catalog.Note(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &NoteOutput{Body: detail}, nil
}

func (s *Server) handleListBrands(ctx context.Context, _ *struct{}) (*BrandsOutput, error) {
	brands, err := s.services.Catalog.Brands(ctx)
	if err != nil {
		return nil, err
	}
	return &BrandsOutput{Body: brands}, nil
}

func (s *Server) handleGetBrand(ctx context.Context, input *IDPathInput) (*BrandOutput, error) {
	detail, err := s.services.Catalog.Brand(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BrandOutput{Body: detail}, nil
}
