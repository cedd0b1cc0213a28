package repository

import (
	"context"

	"github.com/followup-todo/todo-sync-backend/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileRepository manages the at-most-one profile record per user.
type ProfileRepository interface {
	FindByUser(ctx context.Context, userID string) (*domain.UserProfile, error)
	// Upsert atomically creates or patches the user's profile. The unique
	// index on user_id plus ON CONFLICT closes the duplicate-profile race
	// a separate existence-check-then-create would leave open.
	Upsert(ctx context.Context, profile *domain.UserProfile) error
}

type gormProfileRepository struct {
	db *gorm.DB
}

func NewGormProfileRepository(db *gorm.DB) ProfileRepository {
	return &gormProfileRepository{db: db}
}

func (r *gormProfileRepository) FindByUser(ctx context.Context, userID string) (*domain.UserProfile, error) {
	var profile domain.UserProfile
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&profile)
	if result.Error != nil {
		return nil, result.Error
	}
	return &profile, nil
}

func (r *gormProfileRepository) Upsert(ctx context.Context, profile *domain.UserProfile) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "accent_color", "theme"}),
		}).
		Create(profile).Error
}
