package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// JobProcessor defines the interface for processing jobs
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker runs a JobProcessor once on start and then on every tick.
type Worker struct {
	processor    JobProcessor
	pollInterval time.Duration
	logger       zerolog.Logger
	stopChan     chan struct{}
	doneChan     chan struct{}
	stopOnce     sync.Once
}

// NewWorker creates a new Worker instance
func NewWorker(processor JobProcessor, pollInterval time.Duration, logger zerolog.Logger) *Worker {
	return &Worker{
		processor:    processor,
		pollInterval: pollInterval,
		logger:       logger,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start blocks running the polling loop until ctx is done or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	w.logger.Info().Dur("poll_interval", w.pollInterval).Msg("worker started")
	w.process(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("worker stopped: context cancelled")
			return
		case <-w.stopChan:
			w.logger.Info().Msg("worker stopped: stop signal received")
			return
		case <-ticker.C:
			w.process(ctx)
		}
	}
}

func (w *Worker) process(ctx context.Context) {
	if err := w.processor.ProcessJobs(ctx); err != nil {
		w.logger.Error().Err(err).Msg("error processing jobs")
	}
}

// Stop gracefully stops the worker and waits for the loop to exit. It must
// only be called after Start.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	<-w.doneChan
	w.logger.Info().Msg("worker shutdown complete")
}
