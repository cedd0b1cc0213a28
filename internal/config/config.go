// Package config reads service configuration from the environment.
package config

import (
	"errors"
	"os"
	"strconv"

	_ "github.com/joho/godotenv/autoload"
)

// Config carries everything the service needs beyond the database
// coordinates, which the database package reads itself.
type Config struct {
	// AppID identifies this deployment. It namespaces issued tokens and is
	// required: without it the service refuses to start entirely rather
	// than offering partial functionality.
	AppID     string
	JWTSecret string
	Port      int
}

// ErrAppIDUnset is the fatal configuration error. The message doubles as the
// remediation text shown to the operator.
var ErrAppIDUnset = errors.New(`TODOSYNC_APP_ID is not configured.

Setup instructions:
  1. Create an application identifier for this deployment.
  2. Set the TODOSYNC_APP_ID environment variable (or add it to .env).
  3. Set TODOSYNC_JWT_SECRET to a random secret of at least 32 bytes.
  4. Restart the service.`)

func Load() (*Config, error) {
	appID := os.Getenv("TODOSYNC_APP_ID")
	if appID == "" {
		return nil, ErrAppIDUnset
	}

	secret := os.Getenv("TODOSYNC_JWT_SECRET")
	if secret == "" {
		return nil, errors.New("TODOSYNC_JWT_SECRET is not configured")
	}

	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, errors.New("PORT must be an integer")
		}
		port = p
	}

	return &Config{
		AppID:     appID,
		JWTSecret: secret,
		Port:      port,
	}, nil
}
