// Package cli holds the pos-server commands.
package cli

import (
	"log/slog"

	"bakaaro-pos/internal/config"
	"bakaaro-pos/internal/database"
	"bakaaro-pos/internal/logging"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
}

// NewRootCommand creates the root command. Without a subcommand it serves.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	serve := NewServeCommand(opts)

	cmd := &cobra.Command{
		Use:           "pos-server",
		Short:         "Bakaaro multi-branch point of sale backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "YAML config file (defaults to $POS_CONFIG)")

	cmd.AddCommand(serve)
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewUserAddCommand(opts))

	return cmd
}

// environment is what the one-shot commands need.
type environment struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *gorm.DB
}

func (o *RootOptions) open() (*environment, func(), error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, errors.Wrap(err, "get sql.DB")
	}
	if err := database.Migrate(db); err != nil {
		_ = sqlDB.Close()
		return nil, nil, err
	}
	return &environment{cfg: cfg, logger: logger, db: db}, func() { _ = sqlDB.Close() }, nil
}
