package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("missing app id is fatal with remediation text", func(t *testing.T) {
		t.Setenv("TODOSYNC_APP_ID", "")
		t.Setenv("TODOSYNC_JWT_SECRET", "secret")

		_, err := Load()
		require.ErrorIs(t, err, ErrAppIDUnset)
		assert.Contains(t, err.Error(), "Setup instructions")
	})

	t.Run("missing jwt secret", func(t *testing.T) {
		t.Setenv("TODOSYNC_APP_ID", "app-1")
		t.Setenv("TODOSYNC_JWT_SECRET", "")

		_, err := Load()
		require.Error(t, err)
	})

	t.Run("defaults port to 8080", func(t *testing.T) {
		t.Setenv("TODOSYNC_APP_ID", "app-1")
		t.Setenv("TODOSYNC_JWT_SECRET", "secret")
		t.Setenv("PORT", "")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "app-1", cfg.AppID)
	})

	t.Run("reads port from environment", func(t *testing.T) {
		t.Setenv("TODOSYNC_APP_ID", "app-1")
		t.Setenv("TODOSYNC_JWT_SECRET", "secret")
		t.Setenv("PORT", "9090")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.Port)
	})

	t.Run("rejects non-numeric port", func(t *testing.T) {
		t.Setenv("TODOSYNC_APP_ID", "app-1")
		t.Setenv("TODOSYNC_JWT_SECRET", "secret")
		t.Setenv("PORT", "eighty")

		_, err := Load()
		require.Error(t, err)
	})
}
