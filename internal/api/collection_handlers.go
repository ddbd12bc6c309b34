package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/knowyournotes/catalog-server/internal/domain"
	domainerrors "github.com/knowyournotes/catalog-server/internal/errors"
)

func (s *Server) registerCollectionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listCollections",
		Method:      http.MethodGet,
		Path:        "/api/v1/collections",
		Summary:     "List collections",
		Description: "Returns the current user's collections, oldest first",
		Tags:        []string{tagCollections},
		Security:    bearerSecurity,
	}, s.handleListCollections)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createCollection",
		Method:        http.MethodPost,
		Path:          "/api/v1/collections",
		Summary:       "Create collection",
		Description:   "Creates a collection, optionally adding a first fragrance to it",
		Tags:          []string{tagCollections},
		Security:      bearerSecurity,
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateCollection)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCollection",
		Method:      http.MethodGet,
		Path:        "/api/v1/collections/{id}",
		Summary:     "Get collection",
		Description: "Returns a collection with its fragrances. With q, also lists catalog fragrances whose name matches, as candidates to add.",
		Tags:        []string{tagCollections},
		Security:    bearerSecurity,
	}, s.handleGetCollection)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteCollection",
		Method:        http.MethodDelete,
		Path:          "/api/v1/collections/{id}",
		Summary:       "Delete collection",
		Description:   "Deletes a collection and all of its memberships",
		Tags:          []string{tagCollections},
		Security:      bearerSecurity,
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteCollection)

	huma.Register(s.api, huma.Operation{
		OperationID: "addCollectionFragrance",
		Method:      http.MethodPost,
		Path:        "/api/v1/collections/{id}/members",
		Summary:     "Add fragrance to collection",
		Description: "Adds a fragrance. Adding one already present reports already_present instead of failing.",
		Tags:        []string{tagCollections},
		Security:    bearerSecurity,
	}, s.handleAddCollectionFragrance)

	huma.Register(s.api, huma.Operation{
		OperationID:   "removeCollectionFragrance",
		Method:        http.MethodDelete,
		Path:          "/api/v1/collections/members/{memberID}",
		Summary:       "Remove fragrance from collection",
		Tags:          []string{tagCollections},
		Security:      bearerSecurity,
		DefaultStatus: http.StatusNoContent,
	}, s.handleRemoveCollectionFragrance)
}

// === DTOs ===

// ListCollectionsResponse contains the user's collections.
type ListCollectionsResponse struct {
	Collections []domain.Collection `json:"collections" doc:"Collections, oldest first"`
}

// ListCollectionsOutput wraps the collection list for Huma.
type ListCollectionsOutput struct {
	Body ListCollectionsResponse
}

// CreateCollectionInput contains parameters for creating a collection.
type CreateCollectionInput struct {
	Body struct {
		Name        string `json:"name" maxLength:"100" doc:"Collection name"`
		FragranceID string `json:"fragrance_id,omitempty" doc:"Fragrance to add to the new collection"`
	}
}

// CreateCollectionResponse is the created collection and, when a
// fragrance was given, the result of adding it. AddError is set instead
// of Added when the collection was created but the add failed.
type CreateCollectionResponse struct {
	Collection domain.Collection `json:"collection"`
	Added      *domain.AddResult `json:"added,omitempty"`
	AddError   *APIError         `json:"add_error,omitempty"`
}

// CreateCollectionOutput wraps the created collection for Huma.
type CreateCollectionOutput struct {
	Body CreateCollectionResponse
}

// GetCollectionInput contains parameters for getting a collection.
type GetCollectionInput struct {
	ID    string `path:"id" doc:"Collection ID"`
	Query string `query:"q" maxLength:"200" doc:"Catalog search for fragrances to add"`
}

// CollectionDetailResponse is a collection with its members and, when
// a query was given, catalog fragrances matching it.
type CollectionDetailResponse struct {
	Collection domain.Collection         `json:"collection"`
	Members    []domain.CollectionMember `json:"members"`
	Candidates []domain.Fragrance        `json:"candidates"`
}

// GetCollectionOutput wraps a collection detail for Huma.
type GetCollectionOutput struct {
	Body CollectionDetailResponse
}

// CollectionIDInput identifies a collection.
type CollectionIDInput struct {
	ID string `path:"id" doc:"Collection ID"`
}

// AddFragranceInput contains parameters for adding a fragrance.
type AddFragranceInput struct {
	ID   string `path:"id" doc:"Collection ID"`
	Body struct {
		FragranceID string `json:"fragrance_id" minLength:"1" doc:"Fragrance ID"`
	}
}

// AddFragranceOutput wraps the add result for Huma.
type AddFragranceOutput struct {
	Body domain.AddResult
}

// MemberIDInput identifies a collection membership.
type MemberIDInput struct {
	MemberID string `path:"memberID" doc:"Membership ID"`
}

// === Handlers ===

func (s *Server) handleListCollections(ctx context.Context, _ *struct{}) (*ListCollectionsOutput, error) {
	userID, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	list, err := s.services.Collection.ListCollections(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &ListCollectionsOutput{}
	out.Body.Collections = list.Items()
	if out.Body.Collections == nil {
		out.Body.Collections = []domain.Collection{}
	}
	return out, nil
}

func (s *Server) handleCreateCollection(ctx context.Context, input *CreateCollectionInput) (*CreateCollectionOutput, error) {
	userID, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if input.Body.FragranceID == "" {
		c, err := s.services.Collection.CreateCollection(ctx, userID, input.Body.Name)
		if err != nil {
			return nil, err
		}
		return &CreateCollectionOutput{Body: CreateCollectionResponse{Collection: c}}, nil
	}

	c, added, err := s.services.Collection.CreateAndAdd(ctx, userID, input.Body.Name, input.Body.FragranceID)
	if err != nil {
		if c.ID == "" {
			return nil, err
		}
		s.logger.WarnContext(ctx, "Collection created but fragrance not added",
			"collection_id", c.ID,
			"fragrance_id", input.Body.FragranceID,
			"error", err,
		)
		addErr := fromError(err)
		if addErr == nil {
			addErr = &APIError{status: http.StatusInternalServerError, Code: string(domainerrors.CodeInternal), Message: "fragrance could not be added"}
		}
		return &CreateCollectionOutput{Body: CreateCollectionResponse{Collection: c, AddError: addErr}}, nil
	}
	return &CreateCollectionOutput{Body: CreateCollectionResponse{Collection: c, Added: &added}}, nil
}

func (s *Server) handleGetCollection(ctx context.Context, input *GetCollectionInput) (*GetCollectionOutput, error) {
	userID, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	c, err := s.services.Collection.GetCollection(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}

	members, err := s.services.Collection.ListMembers(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.services.Collection.Candidates(ctx, userID, c.ID, input.Query)
	if err != nil {
		return nil, err
	}

	return &GetCollectionOutput{Body: CollectionDetailResponse{
		Collection: c,
		Members:    members,
		Candidates: candidates,
	}}, nil
}

func (s *Server) handleDeleteCollection(ctx context.Context, input *CollectionIDInput) (*struct{}, error) {
	userID, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Collection.DeleteCollection(ctx, userID, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleAddCollectionFragrance(ctx context.Context, input *AddFragranceInput) (*AddFragranceOutput, error) {
	userID, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.services.Collection.AddFragrance(ctx, userID, input.ID, input.Body.FragranceID)
	if err != nil {
		return nil, err
	}
	return &AddFragranceOutput{Body: res}, nil
}

func (s *Server) handleRemoveCollectionFragrance(ctx context.Context, input *MemberIDInput) (*struct{}, error) {
	userID, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Collection.RemoveFragrance(ctx, userID, input.MemberID); err != nil {
		return nil, err
	}
	return nil, nil
}
