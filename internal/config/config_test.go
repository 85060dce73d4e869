package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("POS_DATABASE_DSN", "file::memory:")
	t.Setenv("POS_DATABASE_DRIVER", "sqlite")
	t.Setenv("POS_AUTH_JWT_SECRET", "test-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, 15*time.Second, cfg.HTTP.Timeouts.Read)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.True(t, cfg.Auth.AllowRegistration)
	assert.False(t, cfg.Auth.AllowUserIDHeader)
	assert.Equal(t, 5, cfg.Database.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Database.RetryDelay)
	assert.Equal(t, "http://localhost:8080", cfg.HTTP.BaseURL)
	assert.Equal(t, 5, cfg.Reports.LowStockThreshold)
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("POS_HTTP_PORT", "9090")
	t.Setenv("POS_AUTH_ALLOW_USER_ID_HEADER", "true")
	t.Setenv("POS_AUTH_TOKEN_TTL", "90m")
	t.Setenv("POS_HTTP_ALLOWED_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.True(t, cfg.Auth.AllowUserIDHeader)
	assert.Equal(t, 90*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, "test-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.HTTP.AllowedOrigins)
}

func TestLoad_FileThenEnv(t *testing.T) {
	setRequired(t)
	path := filepath.Join(t.TempDir(), "pos.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  port: 7000\nreports:\n  topSellingLimit: 3\n"), 0o600))
	t.Setenv("POS_REPORTS_TOP_SELLING_LIMIT", "8")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.HTTP.Port)
	assert.Equal(t, 8, cfg.Reports.TopSellingLimit)
	assert.Equal(t, 10, cfg.Reports.RecentSalesLimit)
}

func TestLoad_LegacyVariables(t *testing.T) {
	t.Setenv("POS_AUTH_JWT_SECRET", "test-secret")
	t.Setenv("DB_DSN", "user:pass@tcp(localhost:3306)/pos")
	t.Setenv("ALLOW_REGISTRATION", "false")
	t.Setenv("GEMINI_API_KEY", "gemini-key")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "user:pass@tcp(localhost:3306)/pos", cfg.Database.DSN)
	assert.False(t, cfg.Auth.AllowRegistration)
	assert.Equal(t, "gemini-key", cfg.AI.APIKey)
}

func TestLoad_MissingFile(t *testing.T) {
	setRequired(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.HTTP.Port = 8080
	cfg.Database.Driver = "postgres"
	cfg.Database.DSN = "dsn"
	cfg.Auth.JWTSecret = "s"
	assert.ErrorContains(t, cfg.Validate(), "unsupported database driver")

	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = ""
	assert.ErrorContains(t, cfg.Validate(), "dsn is required")

	cfg.Database.DSN = "dsn"
	cfg.Auth.JWTSecret = ""
	assert.ErrorContains(t, cfg.Validate(), "jwtSecret")

	cfg.Auth.JWTSecret = "s"
	assert.NoError(t, cfg.Validate())
}

func TestCanonicalizeEnvKey(t *testing.T) {
	existing := map[string]any{
		"auth": map[string]any{"jwtSecret": "", "allowUserIdHeader": false},
		"http": map[string]any{"timeouts": map[string]any{"read": "15s"}},
	}

	tests := map[string]string{
		"AUTH_JWT_SECRET":           "auth.jwtSecret",
		"AUTH_ALLOW_USER_ID_HEADER": "auth.allowUserIdHeader",
		"HTTP_TIMEOUTS_READ":        "http.timeouts.read",
		"UNKNOWN_KEY":               "unknownkey",
		"AUTH__JWT_SECRET":          "auth.jwtSecret",
	}
	for raw, want := range tests {
		assert.Equal(t, want, canonicalizeEnvKey(raw, existing), raw)
	}
}
