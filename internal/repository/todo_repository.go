package repository

import (
	"context"

	"github.com/followup-todo/todo-sync-backend/internal/domain"

	"gorm.io/gorm"
)

// TodoRepository defines the data operations for todos. Every read and write
// is scoped by the owning user id; the store never answers for another
// user's records even if a caller passes a foreign todo id.
type TodoRepository interface {
	Create(ctx context.Context, todo *domain.Todo) error
	// CreateBatch inserts all records in one transaction, used by the
	// legacy-store import so a partial failure never leaves half a
	// migration behind.
	CreateBatch(ctx context.Context, todos []domain.Todo) error
	FindByID(ctx context.Context, id, userID string) (*domain.Todo, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Todo, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	Update(ctx context.Context, todo *domain.Todo) error
	Delete(ctx context.Context, id, userID string) error
}

type gormTodoRepository struct {
	db *gorm.DB
}

// NewGormTodoRepository creates a new GORM todo repository.
func NewGormTodoRepository(db *gorm.DB) TodoRepository {
	return &gormTodoRepository{db: db}
}

func (r *gormTodoRepository) Create(ctx context.Context, todo *domain.Todo) error {
	return r.db.WithContext(ctx).Create(todo).Error
}

func (r *gormTodoRepository) CreateBatch(ctx context.Context, todos []domain.Todo) error {
	if len(todos) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&todos).Error
	})
}

func (r *gormTodoRepository) FindByID(ctx context.Context, id, userID string) (*domain.Todo, error) {
	var todo domain.Todo
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&todo)
	if result.Error != nil {
		return nil, result.Error
	}
	return &todo, nil
}

func (r *gormTodoRepository) ListByUser(ctx context.Context, userID string) ([]domain.Todo, error) {
	var todos []domain.Todo
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&todos)
	if result.Error != nil {
		return nil, result.Error
	}
	return todos, nil
}

func (r *gormTodoRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&domain.Todo{}).
		Where("user_id = ?", userID).
		Count(&count)
	return count, result.Error
}

func (r *gormTodoRepository) Update(ctx context.Context, todo *domain.Todo) error {
	// Save writes every column, which is what a whole-record replace of
	// the follow-up structure needs (nil must overwrite a stored value).
	return r.db.WithContext(ctx).Save(todo).Error
}

func (r *gormTodoRepository) Delete(ctx context.Context, id, userID string) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.Todo{}).Error
}
