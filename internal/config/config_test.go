package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.URL)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

	assert.Equal(t, "/docs", cfg.Docs.Route)
	assert.Equal(t, "swagger", cfg.Docs.UI)
	assert.Empty(t, cfg.Docs.Exclude)

	assert.Empty(t, cfg.Auth.AccessSecret)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTTL)
	assert.Equal(t, 5*time.Minute, cfg.Auth.OTPTTL)

	assert.True(t, cfg.CORS.AllowCredentials)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	content := `
server:
  port: 8080
  url: api.example.com
  log_level: debug
docs:
  route: /reference
  title: Shop API
  ui: redoc
  exclude:
    - /internal/**
auth:
  access_ttl: 1m
cors:
  allowed_origins:
    - https://app.example.com
  allowed_domains:
    - example.com
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fastapify.yaml"), []byte(content), 0o600))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "api.example.com", cfg.Server.URL)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "/reference", cfg.Docs.Route)
	assert.Equal(t, "Shop API", cfg.Docs.Title)
	assert.Equal(t, "redoc", cfg.Docs.UI)
	assert.Equal(t, []string{"/internal/**"}, cfg.Docs.Exclude)
	assert.Equal(t, time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, []string{"example.com"}, cfg.CORS.AllowedDomains)
}

func TestLoadEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("FASTAPIFY_SERVER_PORT", "9090")
	t.Setenv("FASTAPIFY_DOCS_ROUTE", "/api-docs")
	t.Setenv("FASTAPIFY_AUTH_OTP_TTL", "2m")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/api-docs", cfg.Docs.Route)
	assert.Equal(t, 2*time.Minute, cfg.Auth.OTPTTL)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid port", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("FASTAPIFY_SERVER_PORT", "70000")

		_, err := Load("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid config")
	})

	t.Run("short secret", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("FASTAPIFY_AUTH_ACCESS_SECRET", "short")

		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("unknown docs ui", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("FASTAPIFY_DOCS_UI", "graphiql")

		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("docs route without slash", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("FASTAPIFY_DOCS_ROUTE", "docs")

		_, err := Load("")
		assert.Error(t, err)
	})
}
