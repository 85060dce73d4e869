// Package testutil provides an in-memory database and fixtures for tests.
package testutil

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"bakaaro-pos/internal/config"
	"bakaaro-pos/internal/database"
	"bakaaro-pos/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Config returns a valid configuration for an in-memory SQLite database.
func Config() *config.Config {
	cfg := &config.Config{}
	cfg.Env.Name = "test"
	cfg.HTTP.Port = 8080
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	cfg.Database.MaxAttempts = 1
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.TokenTTL = time.Hour
	cfg.Auth.BcryptCost = 4
	cfg.Auth.AllowRegistration = true
	cfg.AI.MaxRounds = 4
	cfg.Reports.LowStockThreshold = 5
	cfg.Reports.TopSellingLimit = 5
	cfg.Reports.RecentSalesLimit = 10
	return cfg
}

// NewDB opens a fresh migrated database that lives as long as the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	return NewDBWithConfig(t, Config())
}

// NewDBWithConfig is NewDB for a caller-provided configuration.
func NewDBWithConfig(t *testing.T, cfg *config.Config) *gorm.DB {
	t.Helper()

	db, err := database.Open(cfg, Logger())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// Branch inserts an active branch.
func Branch(t *testing.T, db *gorm.DB, name string) *models.Branch {
	t.Helper()
	b := &models.Branch{Name: name, Active: true}
	require.NoError(t, db.Create(b).Error)
	return b
}

// User inserts an active user. The password hash is a placeholder.
func User(t *testing.T, db *gorm.DB, username string, role models.Role, branch string) *models.User {
	t.Helper()
	u := &models.User{
		Username:     username,
		PasswordHash: "x",
		Name:         username,
		Role:         role,
		Branch:       branch,
		Active:       true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// Product inserts a product owned by branch.
func Product(t *testing.T, db *gorm.DB, barcode string, price float64, quantity int, branch string) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:     "Product " + barcode,
		Brand:    "Brand",
		Category: "General",
		Price:    price,
		Quantity: quantity,
		Barcode:  barcode,
		Branch:   branch,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// Reload reads the current row with id.
func Reload[T any](t *testing.T, db *gorm.DB, id string) *T {
	t.Helper()
	var out T
	require.NoError(t, db.First(&out, "id = ?", id).Error)
	return &out
}
