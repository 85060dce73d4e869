package database

import (
	"log/slog"
	"time"

	"bakaaro-pos/internal/config"
	"bakaaro-pos/internal/models"

	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the configured database, retrying while it comes up.
func Open(cfg *config.Config, log *slog.Logger) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg.Database)
	if err != nil {
		return nil, err
	}

	gormLogger := newGormSlogLogger(log, cfg.Database.Debug)

	attempts := cfg.Database.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var db *gorm.DB
	for i := 1; i <= attempts; i++ {
		db, err = gorm.Open(dialector, &gorm.Config{
			Logger:         gormLogger,
			TranslateError: true,
			// Sale items keep pointing at products that were deleted later.
			DisableForeignKeyConstraintWhenMigrating: true,
		})
		if err == nil {
			break
		}
		log.Warn("failed to connect to database, retrying",
			slog.Int("attempt", i),
			slog.Int("maxAttempts", attempts),
			slog.Duration("retryIn", cfg.Database.RetryDelay),
			slog.String("error", err.Error()),
		)
		if i < attempts {
			time.Sleep(cfg.Database.RetryDelay)
		}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "connect to %s after %d attempts", cfg.Database.Driver, attempts)
	}

	if cfg.Database.Driver == "sqlite" {
		// SQLite allows a single writer; serialise through one connection.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, errors.Wrap(err, "get sql.DB")
		}
		sqlDB.SetMaxOpenConns(1)
	}

	log.Info("connected to database", slog.String("driver", cfg.Database.Driver))
	return db, nil
}

func dialectorFor(cfg config.Database) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "mysql":
		return mysql.Open(cfg.DSN), nil
	case "sqlite":
		return sqlite.Open(cfg.DSN), nil
	default:
		return nil, errors.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Migrate creates or updates the schema for every model.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return errors.Wrap(err, "auto-migrate")
	}
	return nil
}

// Silence returns a session that does not log queries, for bulk jobs.
func Silence(db *gorm.DB) *gorm.DB {
	return db.Session(&gorm.Session{Logger: logger.Discard})
}
