package service

import (
	"context"
	"testing"

	"github.com/followup-todo/todo-sync-backend/internal/domain"
	"github.com/followup-todo/todo-sync-backend/internal/repository"
	"github.com/followup-todo/todo-sync-backend/internal/subscription"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupDB opens a fresh in-memory database with the full schema migrated.
func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// One connection only: each sqlite :memory: connection is its own
	// database, so the pool must never hand out a second one.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&domain.Todo{},
		&domain.UserProfile{},
		&domain.User{},
		&domain.LoginCode{},
	))
	return db
}

type fixture struct {
	todos     TodoService
	profiles  ProfileService
	migration MigrationService
	repo      repository.TodoRepository
	hub       *subscription.Hub
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := setupDB(t)
	hub := subscription.NewHub()
	todoRepo := repository.NewGormTodoRepository(db)
	todos := NewTodoService(todoRepo, hub)
	return fixture{
		todos:     todos,
		profiles:  NewProfileService(repository.NewGormProfileRepository(db)),
		migration: NewMigrationService(todoRepo, todos, hub),
		repo:      todoRepo,
		hub:       hub,
	}
}

func mustCreate(t *testing.T, svc TodoService, userID, text string) *TodoResponse {
	t.Helper()
	todo, err := svc.CreateTodo(context.Background(), userID, CreateTodoRequest{Text: text})
	require.NoError(t, err)
	return todo
}
