package client

import (
	"github.com/cloo-solutions/ragpipe/internal/cli"
	"github.com/cloo-solutions/ragpipe/internal/loader"
	"github.com/cloo-solutions/ragpipe/internal/service"
	"github.com/spf13/cobra"
)

// IngestCmd creates the ingest command.
func IngestCmd() *cobra.Command {
	var (
		glob   string
		texts  []string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "ingest [dir]",
		Short: "Load, chunk and embed documents into the collection",
		Long: `Loads files under dir (RAGPIPE_DOCUMENTS_DIR by default) matching the glob,
splits them into overlapping chunks, embeds every chunk and stores it in the
collection. Files already present in the collection are skipped. A collection
name is generated when none is configured.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dryRun {
				return runEstimate(cmd, args, glob)
			}
			return runIngest(cmd, args, glob, texts)
		},
	}

	cmd.Flags().StringVarP(&glob, "glob", "g", "", "File pattern relative to dir (default RAGPIPE_DOCUMENTS_GLOB)")
	cmd.Flags().StringArrayVar(&texts, "text", nil, "Ingest an inline text instead of files (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Count tokens and estimate embedding cost without calling the API")
	cli.BindEnv(cmd, "glob", "RAGPIPE_DOCUMENTS_GLOB")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string, glob string, texts []string) error {
	ctx := cmd.Context()

	p, err := openPipeline(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer p.Close()

	var result *service.IngestResult
	if len(texts) > 0 {
		result, err = p.Ingest.IngestTexts(ctx, texts)
	} else {
		dir, pattern := documentsLocation(args, glob, p.Config.DocumentsDir, p.Config.DocumentsGlob)
		result, err = p.Ingest.IngestDir(ctx, dir, pattern)
	}
	if err != nil {
		return err
	}

	stats, err := p.Index.Stats(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outputJSON(cmd) {
		return printJSON(out, map[string]interface{}{"ingest": result, "collection": stats})
	}
	printIngest(out, result)
	printStats(out, stats)
	return nil
}

func runEstimate(cmd *cobra.Command, args []string, glob string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	dir, pattern := documentsLocation(args, glob, cfg.DocumentsDir, cfg.DocumentsGlob)
	docs, err := loader.Load(cmd.Context(), loader.Options{Dir: dir, Glob: pattern})
	if err != nil {
		return err
	}

	splitter, err := service.NewSplitter(service.ChunkConfig{ChunkSize: cfg.ChunkSize, ChunkOverlap: cfg.ChunkOverlap})
	if err != nil {
		return err
	}
	counter, err := service.NewTiktokenCounter(cfg.EmbeddingModel)
	if err != nil {
		return err
	}

	estimate := service.EstimateIngest(splitter, counter, cfg.EmbeddingModel, docs)
	if outputJSON(cmd) {
		return printJSON(cmd.OutOrStdout(), estimate)
	}
	printEstimate(cmd.OutOrStdout(), estimate)
	return nil
}

func documentsLocation(args []string, glob, defaultDir, defaultGlob string) (string, string) {
	dir := defaultDir
	if len(args) > 0 {
		dir = args[0]
	}
	if glob == "" {
		glob = defaultGlob
	}
	return dir, glob
}
