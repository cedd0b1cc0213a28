package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"

	"github.com/followup-todo/todo-sync-backend/internal/domain"
	"github.com/followup-todo/todo-sync-backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrInvalidAccentColor = errors.New("accent color must be a hex value like #00FFC4")
	ErrInvalidTheme       = errors.New("theme must be \"dark\" or \"light\"")
	errFailedProfileRead  = errors.New("failed to retrieve profile")
	errFailedProfileWrite = errors.New("failed to save profile")
)

var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ProfileResponse is the settings view of a user's profile. When no record
// exists yet the defaults are synthesized, not persisted.
type ProfileResponse struct {
	UserID      string  `json:"userId"`
	DisplayName string  `json:"displayName"`
	AccentColor *string `json:"accentColor"`
	Theme       string  `json:"theme"`
}

// UpdateProfileRequest patches individual settings. Pointer fields
// distinguish "leave unchanged" from "set to the value". ClearAccent resets
// the accent color back to the theme default.
type UpdateProfileRequest struct {
	DisplayName *string `json:"displayName"`
	AccentColor *string `json:"accentColor"`
	ClearAccent bool    `json:"clearAccent"`
	Theme       *string `json:"theme"`
}

// ProfileService reads and writes the per-user settings record.
type ProfileService interface {
	GetProfile(ctx context.Context, userID, email string) (*ProfileResponse, error)
	UpdateProfile(ctx context.Context, userID, email string, req UpdateProfileRequest) (*ProfileResponse, error)
}

type profileService struct {
	repo repository.ProfileRepository
}

func NewProfileService(repo repository.ProfileRepository) ProfileService {
	return &profileService{repo: repo}
}

func (s *profileService) GetProfile(ctx context.Context, userID, email string) (*ProfileResponse, error) {
	profile, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ProfileResponse{
				UserID:      userID,
				DisplayName: domain.DefaultDisplayName(email),
				Theme:       domain.ThemeDark,
			}, nil
		}
		log.Printf("Error fetching profile for user %s: %v", userID, err)
		return nil, errFailedProfileRead
	}
	return toProfileResponse(profile), nil
}

// UpdateProfile is a read-modify-write: the current record (or a defaulted
// one when none exists) is patched with the requested fields and written
// back through an atomic upsert keyed on the user id.
func (s *profileService) UpdateProfile(ctx context.Context, userID, email string, req UpdateProfileRequest) (*ProfileResponse, error) {
	if req.AccentColor != nil && !hexColorPattern.MatchString(*req.AccentColor) {
		return nil, ErrInvalidAccentColor
	}
	if req.Theme != nil && *req.Theme != domain.ThemeDark && *req.Theme != domain.ThemeLight {
		return nil, fmt.Errorf("%w, got %q", ErrInvalidTheme, *req.Theme)
	}

	profile, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Error fetching profile for user %s: %v", userID, err)
			return nil, errFailedProfileRead
		}
		profile = &domain.UserProfile{
			ID:          uuid.NewString(),
			UserID:      userID,
			DisplayName: domain.DefaultDisplayName(email),
			Theme:       domain.ThemeDark,
		}
	}

	if req.DisplayName != nil {
		name := *req.DisplayName
		if name == "" {
			name = domain.DefaultDisplayName(email)
		}
		profile.DisplayName = name
	}
	if req.ClearAccent {
		profile.AccentColor = nil
	} else if req.AccentColor != nil {
		profile.AccentColor = req.AccentColor
	}
	if req.Theme != nil {
		profile.Theme = *req.Theme
	}

	if err := s.repo.Upsert(ctx, profile); err != nil {
		log.Printf("Error upserting profile for user %s: %v", userID, err)
		return nil, errFailedProfileWrite
	}

	return toProfileResponse(profile), nil
}

func toProfileResponse(p *domain.UserProfile) *ProfileResponse {
	return &ProfileResponse{
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
		AccentColor: p.AccentColor,
		Theme:       p.Theme,
	}
}
