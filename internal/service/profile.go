package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/knowyournotes/catalog-server/internal/domain"
	domainerrors "github.com/knowyournotes/catalog-server/internal/errors"
	"github.com/knowyournotes/catalog-server/internal/store"
	"github.com/knowyournotes/catalog-server/internal/validation"
)

// MaxBioLength is the maximum number of characters allowed in a bio.
const MaxBioLength = 500

// profileInput is validated before a profile is written.
type profileInput struct {
	ID       string `json:"id" validate:"notblank"`
	Username string `json:"username" validate:"omitempty,max=50"`
	Email    string `json:"email" validate:"omitempty,email"`
	DOB      string `json:"dob" validate:"omitempty,datetime=2006-01-02"`
	Bio      string `json:"bio" validate:"max=500"`
}

// ProfileService reads and edits user profiles.
type ProfileService struct {
	store     store.Client
	validator *validation.Validator
	logger    *slog.Logger
}

// NewProfileService creates a new profile service.
func NewProfileService(client store.Client, validator *validation.Validator, logger *slog.Logger) *ProfileService {
	return &ProfileService{
		store:     client,
		validator: validator,
		logger:    logger,
	}
}

// GetProfile returns the profile for userID.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return domain.Profile{}, err
	}
	row, err := s.store.FetchOne(ctx, store.KindProfiles, userID)
	if err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return domain.Profile{}, domainerrors.NotFound("profile not found")
		}
		return domain.Profile{}, domainerrors.FromStore(err, "load profile")
	}
	return store.DecodeProfile(row), nil
}

// CreateProfile stores the profile of a newly signed-up user.
// The id must be the identity-service user id.
func (s *ProfileService) CreateProfile(ctx context.Context, p domain.Profile) (domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return domain.Profile{}, err
	}
	p.FullName = strings.TrimSpace(p.FullName)
	p.Username = strings.TrimSpace(p.Username)
	if err := s.validator.Validate(profileInput{
		ID:       p.ID,
		Username: p.Username,
		Email:    p.Email,
		DOB:      p.DOB,
		Bio:      p.Bio,
	}); err != nil {
		return domain.Profile{}, err
	}

	row, err := s.store.Insert(ctx, store.KindProfiles, store.EncodeProfile(p))
	if err != nil {
		if domainerrors.Is(err, store.ErrConflict) {
			return domain.Profile{}, domainerrors.Conflict("profile already exists")
		}
		return domain.Profile{}, domainerrors.FromStore(err, "create profile")
	}

	s.logger.InfoContext(ctx, "profile created", "profile_id", p.ID)
	return store.DecodeProfile(row), nil
}

// UpdateProfile applies the set fields of u to userID's profile.
// An empty update returns the profile unchanged.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, u domain.ProfileUpdate) (domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return domain.Profile{}, err
	}
	if strings.TrimSpace(userID) == "" {
		return domain.Profile{}, domainerrors.Unauthorized("sign in to edit your profile")
	}
	if u.IsEmpty() {
		return s.GetProfile(ctx, userID)
	}

	in := profileInput{ID: userID}
	if u.DOB != nil {
		in.DOB = *u.DOB
	}
	if u.Bio != nil {
		in.Bio = *u.Bio
	}
	if err := s.validator.Validate(in); err != nil {
		return domain.Profile{}, err
	}

	row, err := s.store.Update(ctx, store.KindProfiles, userID, store.EncodeProfileUpdate(u))
	if err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return domain.Profile{}, domainerrors.NotFound("profile not found")
		}
		return domain.Profile{}, domainerrors.FromStore(err, "update profile")
	}

	s.logger.InfoContext(ctx, "profile updated",
		"profile_id", userID,
		"dob_changed", u.DOB != nil,
		"bio_changed", u.Bio != nil,
		"avatar_changed", u.AvatarURL != nil,
	)
	return store.DecodeProfile(row), nil
}
