package server

import (
	"fmt"
	"net/http"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/followup-todo/todo-sync-backend/internal/config"
	"github.com/followup-todo/todo-sync-backend/internal/database"
	"github.com/followup-todo/todo-sync-backend/internal/service"
	"github.com/followup-todo/todo-sync-backend/internal/subscription"
)

type Server struct {
	cfg       *config.Config
	db        database.Service
	todos     service.TodoService
	profiles  service.ProfileService
	auth      service.AuthService
	migration service.MigrationService
	hub       *subscription.Hub
}

// Deps bundles everything the HTTP layer needs.
type Deps struct {
	Config    *config.Config
	DB        database.Service
	Todos     service.TodoService
	Profiles  service.ProfileService
	Auth      service.AuthService
	Migration service.MigrationService
	Hub       *subscription.Hub
}

func New(deps Deps) *http.Server {
	appServer := &Server{
		cfg:       deps.Config,
		db:        deps.DB,
		todos:     deps.Todos,
		profiles:  deps.Profiles,
		auth:      deps.Auth,
		migration: deps.Migration,
		hub:       deps.Hub,
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", deps.Config.Port),
		Handler:      appServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}
