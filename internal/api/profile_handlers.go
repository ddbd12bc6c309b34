package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/knowyournotes/catalog-server/internal/domain"
)

func (s *Server) registerProfileRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getMyProfile",
		Method:      http.MethodGet,
		Path:        "/api/v1/me",
		Summary:     "Get my profile",
		Tags:        []string{tagProfile},
		Security:    bearerSecurity,
	}, s.handleGetMyProfile)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateMyProfile",
		Method:      http.MethodPatch,
		Path:        "/api/v1/me",
		Summary:     "Update my profile",
		Description: "Updates date of birth, bio and avatar. Omitted fields are unchanged.",
		Tags:        []string{tagProfile},
		Security:    bearerSecurity,
	}, s.handleUpdateMyProfile)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createProfile",
		Method:        http.MethodPost,
		Path:          "/api/v1/profiles",
		Summary:       "Create profile",
		Description:   "Creates the profile of a newly signed-up user. The id comes from the bearer token.",
		Tags:          []string{tagProfile},
		Security:      bearerSecurity,
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateProfile)
}

// === DTOs ===

// ProfileOutput wraps a profile for Huma.
type ProfileOutput struct {
	Body domain.Profile
}

// UpdateProfileInput contains the editable profile fields.
type UpdateProfileInput struct {
	Body struct {
		DOB       *string `json:"dob,omitempty" doc:"Date of birth, YYYY-MM-DD"`
		Bio       *string `json:"bio,omitempty" doc:"Short biography (max 500 characters)"`
		AvatarURL *string `json:"avatar_url,omitempty" doc:"Avatar asset reference"`
	}
}

// CreateProfileInput contains parameters for creating a profile.
type CreateProfileInput struct {
	Body struct {
		FullName string `json:"full_name,omitempty" maxLength:"100" doc:"Full name"`
		Username string `json:"username,omitempty" doc:"Public username"`
		Email    string `json:"email,omitempty" doc:"Contact email"`
		DOB      string `json:"dob,omitempty" doc:"Date of birth, YYYY-MM-DD"`
	}
}

// === Handlers ===

func (s *Server) handleGetMyProfile(ctx context.Context, _ *struct{}) (*ProfileOutput, error) {
	userID, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	p, err := s.services.Profile.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ProfileOutput{Body: p}, nil
}

func (s *Server) handleUpdateMyProfile(ctx context.Context, input *UpdateProfileInput) (*ProfileOutput, error) {
	userID, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	p, err := s.services.Profile.UpdateProfile(ctx, userID, domain.ProfileUpdate{
		DOB:       input.Body.DOB,
		Bio:       input.Body.Bio,
		AvatarURL: input.Body.AvatarURL,
	})
	if err != nil {
		return nil, err
	}
	return &ProfileOutput{Body: p}, nil
}

func (s *Server) handleCreateProfile(ctx context.Context, input *CreateProfileInput) (*ProfileOutput, error) {
	userID, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	p, err := s.services.Profile.CreateProfile(ctx, domain.Profile{
		ID:       userID,
		FullName: input.Body.FullName,
		Username: input.Body.Username,
		Email:    input.Body.Email,
		DOB:      input.Body.DOB,
	})
	if err != nil {
		return nil, err
	}
	return &ProfileOutput{Body: p}, nil
}
