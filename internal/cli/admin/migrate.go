package admin

import (
	"errors"
	"fmt"

	"github.com/cloo-solutions/ragpipe/internal/config"
	"github.com/cloo-solutions/ragpipe/internal/database"
	"github.com/cloo-solutions/ragpipe/internal/domain"
	"github.com/cloo-solutions/ragpipe/internal/logger"
	"github.com/spf13/cobra"
)

// MigrateCmd returns the migrate command
func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  "Create or upgrade the pgvector schema in RAGPIPE_DATABASE_URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if !cfg.HasDatabase() {
				return domain.NewConfigError("RAGPIPE_DATABASE_URL", errors.New("required for migrations"))
			}

			source, _ := cmd.Flags().GetString("migrations")
			log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
			return database.Migrate(cfg.DatabaseURL, source, logger.Component(log, "migrate"))
		},
	}

	cmd.Flags().String("migrations", "", "Migrations source URL (default file://migrations)")

	return cmd
}
