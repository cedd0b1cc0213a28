package repository

import (
	"context"
	"time"

	"github.com/followup-todo/todo-sync-backend/internal/domain"

	"gorm.io/gorm"
)

// UserRepository manages the lazily-created user records.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
}

// LoginCodeRepository manages dispatched one-time login codes.
type LoginCodeRepository interface {
	Create(ctx context.Context, code *domain.LoginCode) error
	// FindActiveByEmail returns the most recently dispatched code for the
	// email that is neither consumed nor expired.
	FindActiveByEmail(ctx context.Context, email string, now time.Time) (*domain.LoginCode, error)
	MarkConsumed(ctx context.Context, id string) error
}

type gormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &gormUserRepository{db: db}
}

func (r *gormUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	result := r.db.WithContext(ctx).Where("email = ?", email).First(&user)
	if result.Error != nil {
		return nil, result.Error
	}
	return &user, nil
}

func (r *gormUserRepository) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

type gormLoginCodeRepository struct {
	db *gorm.DB
}

func NewGormLoginCodeRepository(db *gorm.DB) LoginCodeRepository {
	return &gormLoginCodeRepository{db: db}
}

func (r *gormLoginCodeRepository) Create(ctx context.Context, code *domain.LoginCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

func (r *gormLoginCodeRepository) FindActiveByEmail(ctx context.Context, email string, now time.Time) (*domain.LoginCode, error) {
	var code domain.LoginCode
	result := r.db.WithContext(ctx).
		Where("email = ? AND consumed = ? AND expires_at > ?", email, false, now).
		Order("created_at DESC").
		First(&code)
	if result.Error != nil {
		return nil, result.Error
	}
	return &code, nil
}

func (r *gormLoginCodeRepository) MarkConsumed(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&domain.LoginCode{}).
		Where("id = ?", id).
		Update("consumed", true).Error
}
