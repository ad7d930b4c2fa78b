package client

import (
	"context"

	"github.com/cloo-solutions/ragpipe/internal/cli"
	"github.com/cloo-solutions/ragpipe/internal/config"
	"github.com/cloo-solutions/ragpipe/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// loadConfig reads configuration and applies the persistent flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	if collection, err := cmd.Flags().GetString("collection"); err == nil && collection != "" {
		cfg.Collection = collection
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	return cfg, log, nil
}

// openPipeline builds the local pipeline. create allows opening a
// collection that does not exist yet.
func openPipeline(ctx context.Context, cmd *cobra.Command, create bool) (*cli.Pipeline, error) {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return cli.NewPipeline(ctx, cfg, log, cli.PipelineOptions{Create: create})
}

func outputJSON(cmd *cobra.Command) bool {
	asJSON, _ := cmd.Flags().GetBool("output")
	return asJSON
}
