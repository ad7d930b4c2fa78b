package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/ragpipe/internal/api/handlers"
	"github.com/cloo-solutions/ragpipe/internal/cli"
	"github.com/cloo-solutions/ragpipe/internal/config"
	"github.com/cloo-solutions/ragpipe/internal/jobs"
	"github.com/cloo-solutions/ragpipe/internal/logger"
	"github.com/cloo-solutions/ragpipe/internal/metrics"
	"github.com/cloo-solutions/ragpipe/internal/server"
	"github.com/cloo-solutions/ragpipe/internal/telemetry"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the ragpipe API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (default RAGPIPE_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().String("migrations", "", "Migrations source URL (default file://migrations)")
	cmd.Flags().Bool("watch", false, "Ingest new files from RAGPIPE_DOCUMENTS_DIR in the background")
	cmd.Flags().Duration("watch-interval", 30*time.Second, "How often the documents directory is scanned")
	cli.BindEnv(cmd, "port", "RAGPIPE_PORT")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if portFlag, _ := cmd.Flags().GetString("port"); portFlag != "" {
		cfg.Port = portFlag
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	if cfg.HasSentry() {
		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if cfg.Environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: sampleRate,
		}, logger.Component(log, "telemetry"))
		if err != nil {
			log.Warn().Err(err).Msg("telemetry init failed, continuing without tracing")
		} else {
			defer shutdownTelemetry()
		}
	}

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	migrations, _ := cmd.Flags().GetString("migrations")
	m := metrics.New()

	p, err := cli.NewPipeline(ctx, cfg, log, cli.PipelineOptions{
		Create:           true,
		Migrate:          !noMigrate,
		MigrationsSource: migrations,
		Metrics:          m,
	})
	if err != nil {
		return err
	}
	defer p.Close()

	stats, err := p.Index.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to read collection stats: %w", err)
	}
	m.RecordIngest(0, stats.Entries)
	log.Info().
		Str("collection", stats.Collection).
		Str("backend", stats.Backend).
		Int("entries", stats.Entries).
		Msg("collection ready")

	var worker *jobs.Worker
	if watch, _ := cmd.Flags().GetBool("watch"); watch {
		interval, _ := cmd.Flags().GetDuration("watch-interval")
		worker = startIngestWorker(ctx, p, interval, logger.Component(log, "ingest_worker"))
	}

	router := server.NewRouter(server.RouterConfig{
		Collection:       stats.Collection,
		Logger:           logger.Component(log, "http"),
		Metrics:          m,
		AskHandler:       handlers.NewAskHandler(p.Answer),
		RetrieveHandler:  handlers.NewRetrieveHandler(p.Retriever),
		DocumentsHandler: handlers.NewDocumentsHandler(p.Ingest, p.Index),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down...")
	case serveErr = <-errCh:
	}

	if worker != nil {
		worker.Stop()
	}
	if serveErr != nil {
		return fmt.Errorf("server failed: %w", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server exited")
	return nil
}

func startIngestWorker(ctx context.Context, p *cli.Pipeline, interval time.Duration, log zerolog.Logger) *jobs.Worker {
	processor := jobs.NewIngestWorker(p.Ingest, p.Config.DocumentsDir, p.Config.DocumentsGlob, log)
	worker := jobs.NewWorker(processor, interval, log)
	go worker.Start(ctx)
	log.Info().
		Str("dir", p.Config.DocumentsDir).
		Str("glob", p.Config.DocumentsGlob).
		Dur("interval", interval).
		Msg("ingest worker started")
	return worker
}
