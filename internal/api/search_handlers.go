package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/knowyournotes/catalog-server/internal/domain"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "search",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search catalog",
		Description: "Case-insensitive substring search across notes, fragrances and brands, grouped by kind",
		Tags:        []string{tagSearch},
	}, s.handleSearch)

	huma.Register(s.api, huma.Operation{
		OperationID: "suggest",
		Method:      http.MethodGet,
		Path:        "/api/v1/search/suggest",
		Summary:     "Search suggestions",
		Description: "Labelled suggestions for type-ahead: notes, then fragrances, then brands",
		Tags:        []string{tagSearch},
	}, s.handleSuggest)
}

// === DTOs ===

// SearchInput contains parameters for searching the catalog.
type SearchInput struct {
	Query string `query:"q" maxLength:"200" doc:"Search text, matched literally. Blank returns no results."`
}

// SearchOutput wraps the grouped search page for Huma.
type SearchOutput struct {
	Body *domain.SearchPage
}

// SuggestResponse contains type-ahead suggestions.
type SuggestResponse struct {
	Query   string                `json:"query" doc:"The query as received"`
	Results []domain.SearchResult `json:"results" doc:"Suggestions in presentation order"`
}

// SuggestOutput wraps suggestions for Huma.
type SuggestOutput struct {
	Body SuggestResponse
}

// === Handlers ===

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	page, err := s.services.Search.SearchGrouped(ctx, input.Query)
	if err != nil {
		return nil, err
	}
	return &SearchOutput{Body: page}, nil
}

func (s *Server) handleSuggest(ctx context.Context, input *SearchInput) (*SuggestOutput, error) {
	results, err := s.services.Search.Search(ctx, input.Query)
	if err != nil {
		return nil, err
	}
	return &SuggestOutput{Body: SuggestResponse{Query: input.Query, Results: results}}, nil
}
