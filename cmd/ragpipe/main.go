package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloo-solutions/ragpipe/internal/cli"
	"github.com/cloo-solutions/ragpipe/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "ragpipe",
		Short: "ragpipe - retrieval-augmented generation over your documents",
		Long: `ragpipe loads documents, indexes their chunks as embeddings and answers
questions grounded in the most relevant chunks.

Environment variables:
  OPENAI_API_KEY        API key for embeddings and completions (required)
  RAGPIPE_COLLECTION    Collection to read or extend (generated on first ingest)
  RAGPIPE_PERSIST_DIR   Directory of file-backed collections (default: ./chroma_db)
  RAGPIPE_DATABASE_URL  Use a pgvector collection instead of files
  RAGPIPE_API_URL       Send ask, retrieve and stats to a running ragpiped`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().StringP("collection", "c", "", "Collection name (overrides RAGPIPE_COLLECTION)")
	rootCmd.PersistentFlags().String("api-url", "", "ragpiped base URL (overrides RAGPIPE_API_URL)")
	cli.BindEnv(rootCmd, "collection", "RAGPIPE_COLLECTION")
	cli.BindEnv(rootCmd, "api-url", "RAGPIPE_API_URL")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.IngestCmd())
	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.RetrieveCmd())
	rootCmd.AddCommand(client.StatsCmd())
	rootCmd.AddCommand(client.SnapshotCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
