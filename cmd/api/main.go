package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/followup-todo/todo-sync-backend/internal/config"
	"github.com/followup-todo/todo-sync-backend/internal/database"
	"github.com/followup-todo/todo-sync-backend/internal/domain"
	"github.com/followup-todo/todo-sync-backend/internal/repository"
	"github.com/followup-todo/todo-sync-backend/internal/server"
	"github.com/followup-todo/todo-sync-backend/internal/service"
	"github.com/followup-todo/todo-sync-backend/internal/subscription"

	_ "github.com/joho/godotenv/autoload"
)

func gracefulShutdown(apiServer *http.Server, dbService database.Service, done chan bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Println("Shutting down gracefully, press Ctrl+C again to force")
	stop()

	ctxTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctxTimeout); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	if dbService != nil {
		log.Println("Closing database connection pool...")
		if err := dbService.Close(); err != nil {
			log.Printf("Error closing database connection pool: %v", err)
		}
	}

	log.Println("Server exiting")
	done <- true
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Configuration errors are fatal to the whole service; no
		// partial functionality is offered.
		log.Fatalf("Configuration error:\n%v", err)
	}

	dbService := database.New()
	gormDB := dbService.GetDB()

	if err := gormDB.AutoMigrate(
		&domain.Todo{},
		&domain.UserProfile{},
		&domain.User{},
		&domain.LoginCode{},
	); err != nil {
		log.Fatalf("Failed to auto-migrate database: %v", err)
	}

	todoRepo := repository.NewGormTodoRepository(gormDB)
	profileRepo := repository.NewGormProfileRepository(gormDB)
	userRepo := repository.NewGormUserRepository(gormDB)
	codeRepo := repository.NewGormLoginCodeRepository(gormDB)

	hub := subscription.NewHub()

	// A mail provider slots in here for production; the log sender keeps
	// the flow usable until one is configured.
	var sender service.CodeSender = service.LogCodeSender{}

	todoService := service.NewTodoService(todoRepo, hub)
	apiServer := server.New(server.Deps{
		Config:    cfg,
		DB:        dbService,
		Todos:     todoService,
		Profiles:  service.NewProfileService(profileRepo),
		Auth:      service.NewAuthService(userRepo, codeRepo, sender, cfg.AppID, cfg.JWTSecret),
		Migration: service.NewMigrationService(todoRepo, todoService, hub),
		Hub:       hub,
	})

	done := make(chan bool, 1)
	go gracefulShutdown(apiServer, dbService, done)

	log.Printf("Starting server on %s", apiServer.Addr)
	err = apiServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("HTTP server ListenAndServe error: %v", err)
	}

	<-done
	log.Println("Graceful shutdown complete.")
}
