package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloo-solutions/ragpipe/internal/config"
	"github.com/cloo-solutions/ragpipe/internal/domain"
	"github.com/cloo-solutions/ragpipe/internal/logger"
	"github.com/cloo-solutions/ragpipe/internal/storage"
	"github.com/spf13/cobra"
)

const snapshotPrefix = "collections"

// SnapshotCmd creates the snapshot command with its subcommands.
func SnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Copy file-backed collections to and from S3",
		Long: `Pushes or pulls a file-backed collection to the bucket configured by the
RAGPIPE_S3_* variables. Collections in PostgreSQL are not snapshotted.`,
	}

	cmd.AddCommand(snapshotPushCmd())
	cmd.AddCommand(snapshotPullCmd())

	return cmd
}

func snapshotPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Upload the configured collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, snap, err := newSnapshotter(ctx, cmd)
			if err != nil {
				return err
			}
			if err := snap.Push(ctx, cfg.PersistDir, cfg.Collection); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pushed collection %s to s3://%s/%s/%s\n", cfg.Collection, cfg.S3Bucket, snapshotPrefix, cfg.Collection)
			return nil
		},
	}
}

func snapshotPullCmd() *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Download the configured collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, snap, err := newSnapshotter(ctx, cmd)
			if err != nil {
				return err
			}
			if err := snap.Pull(ctx, cfg.PersistDir, cfg.Collection, overwrite); err != nil {
				if errors.Is(err, storage.ErrCollectionExists) {
					return fmt.Errorf("%w (use --overwrite to replace it)", err)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pulled collection %s into %s\n", cfg.Collection, cfg.PersistDir)
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace a collection that already exists locally")

	return cmd
}

func newSnapshotter(ctx context.Context, cmd *cobra.Command) (*config.Config, *storage.Snapshotter, error) {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Collection == "" {
		return nil, nil, domain.NewConfigError("RAGPIPE_COLLECTION", errors.New("required for snapshots"))
	}
	if cfg.HasDatabase() {
		return nil, nil, domain.NewConfigError("RAGPIPE_DATABASE_URL", errors.New("snapshots only apply to file-backed collections"))
	}
	if !cfg.HasS3() {
		return nil, nil, domain.NewConfigError("RAGPIPE_S3_ENDPOINT", errors.New("S3 endpoint and credentials are required for snapshots"))
	}

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
	}

	return cfg, storage.NewSnapshotter(s3Client, snapshotPrefix, logger.Component(log, "snapshot")), nil
}
