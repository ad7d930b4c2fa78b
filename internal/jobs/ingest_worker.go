package jobs

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/ragpipe/internal/service"
	"github.com/cloo-solutions/ragpipe/internal/telemetry"
	"github.com/rs/zerolog"
)

// DirIngester indexes files under a directory that are not indexed yet.
type DirIngester interface {
	IngestDir(ctx context.Context, dir, pattern string) (*service.IngestResult, error)
}

// IngestWorker picks up new documents in a watched directory.
type IngestWorker struct {
	ingester DirIngester
	dir      string
	pattern  string
	logger   zerolog.Logger
	failures int
}

// NewIngestWorker creates a new IngestWorker instance
func NewIngestWorker(ingester DirIngester, dir, pattern string, logger zerolog.Logger) *IngestWorker {
	return &IngestWorker{
		ingester: ingester,
		dir:      dir,
		pattern:  pattern,
		logger:   logger,
	}
}

// ProcessJobs implements the JobProcessor interface. Files that fail are
// picked up again on the next run since they were never indexed.
func (w *IngestWorker) ProcessJobs(ctx context.Context) error {
	ctx, span := telemetry.StartTransaction(ctx, "IngestWorker.ProcessJobs", "job.ingest")
	defer span.End()

	result, err := w.ingester.IngestDir(ctx, w.dir, w.pattern)
	if err != nil {
		span.SetError(err)
		w.failures++
		return fmt.Errorf("ingest %s (consecutive failures: %d): %w", w.dir, w.failures, err)
	}
	w.failures = 0

	span.SetData("documents", result.Documents)
	if result.Documents == 0 {
		return nil
	}

	w.logger.Info().
		Int("documents", result.Documents).
		Int("chunks", result.Chunks).
		Strs("sources", result.Sources).
		Msg("ingested new documents")
	return nil
}

// Failures returns the number of consecutive failed runs.
func (w *IngestWorker) Failures() int {
	return w.failures
}
