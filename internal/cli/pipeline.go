package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloo-solutions/ragpipe/internal/config"
	"github.com/cloo-solutions/ragpipe/internal/database"
	"github.com/cloo-solutions/ragpipe/internal/domain"
	"github.com/cloo-solutions/ragpipe/internal/logger"
	"github.com/cloo-solutions/ragpipe/internal/metrics"
	"github.com/cloo-solutions/ragpipe/internal/openai"
	"github.com/cloo-solutions/ragpipe/internal/repository"
	"github.com/cloo-solutions/ragpipe/internal/service"
	"github.com/cloo-solutions/ragpipe/internal/vectorstore"
	"github.com/rs/zerolog"
)

// ModelBackend embeds and completes. Implemented by *openai.Client and
// *openai.Retrying.
type ModelBackend interface {
	Embed(ctx context.Context, text string) (domain.Vector, error)
	Complete(ctx context.Context, req domain.CompletionRequest) (*domain.Completion, error)
}

// PipelineOptions controls how a Pipeline is assembled.
type PipelineOptions struct {
	// Create opens the collection even when it does not exist yet, generating
	// a name if none is configured.
	Create bool
	// Migrate applies database migrations before opening a pgvector index.
	Migrate bool
	// MigrationsSource overrides database.DefaultMigrationsSource.
	MigrationsSource string
	Metrics          *metrics.Metrics
	// Backend replaces the OpenAI client, mainly for tests.
	Backend ModelBackend
}

// Pipeline holds every component built from configuration.
type Pipeline struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Metrics   *metrics.Metrics
	Backend   ModelBackend
	Index     service.VectorIndex
	Splitter  *service.Splitter
	Ingest    *service.IngestService
	Retriever *service.Retriever
	Answer    *service.AnswerService

	closers []func()
}

// NewPipeline wires loader, chunker, clients and index from cfg. The
// pgvector backend is used when a database URL is configured, the file
// backend otherwise.
func NewPipeline(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts PipelineOptions) (*Pipeline, error) {
	if cfg.Collection == "" && !opts.Create {
		return nil, domain.NewConfigError("RAGPIPE_COLLECTION", errors.New("required to open an existing collection"))
	}
	collection := cfg.EnsureCollection()

	p := &Pipeline{Config: cfg, Logger: log, Metrics: opts.Metrics}

	p.Backend = opts.Backend
	if p.Backend == nil {
		client := openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			BaseURL:             cfg.OpenAIBaseURL,
			Timeout:             cfg.RequestTimeout,
			EmbeddingModel:      cfg.EmbeddingModel,
			EmbeddingDimensions: cfg.EmbeddingDimensions,
		})
		p.Backend = client
		if cfg.MaxRetries > 0 {
			p.Backend = openai.NewRetrying(client, openai.RetryConfig{MaxRetries: uint64(cfg.MaxRetries)}, logger.Component(log, "openai"))
		}
	}

	index, err := p.openIndex(ctx, collection, opts)
	if err != nil {
		p.Close()
		return nil, err
	}
	p.Index = index

	splitter, err := service.NewSplitter(service.ChunkConfig{ChunkSize: cfg.ChunkSize, ChunkOverlap: cfg.ChunkOverlap})
	if err != nil {
		p.Close()
		return nil, err
	}
	p.Splitter = splitter

	svcOpts := []service.Option{service.WithLogger(logger.Component(log, "service")), service.WithMetrics(opts.Metrics)}

	p.Retriever, err = service.NewRetriever(p.Backend, index, cfg.SearchOptions(), svcOpts...)
	if err != nil {
		p.Close()
		return nil, err
	}
	p.Ingest = service.NewIngestService(p.Backend, index, splitter, svcOpts...)
	p.Answer = service.NewAnswerService(p.Retriever, p.Backend, service.GenerationConfig{
		Model:       cfg.ChatModel,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}, svcOpts...)

	return p, nil
}

func (p *Pipeline) openIndex(ctx context.Context, collection string, opts PipelineOptions) (service.VectorIndex, error) {
	cfg := p.Config

	if cfg.HasDatabase() {
		if opts.Migrate {
			if err := database.Migrate(cfg.DatabaseURL, opts.MigrationsSource, logger.Component(p.Logger, "migrate")); err != nil {
				return nil, err
			}
		}

		pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, pool.Close)

		repo := repository.NewChunkRepository(pool, collection, cfg.EmbeddingDimensions)
		check := repo.EnsureCollection
		if !opts.Create {
			check = repo.CheckCollection
		}
		if err := check(ctx); err != nil {
			return nil, err
		}

		p.Logger.Debug().Str("collection", collection).Str("backend", repository.BackendName).Msg("index opened")
		return repo, nil
	}

	if !opts.Create && !vectorstore.Exists(cfg.PersistDir, collection) {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeNotFound, "collection not found",
			fmt.Errorf("no collection %q under %s", collection, cfg.PersistDir))
	}

	store, err := vectorstore.Open(cfg.PersistDir, collection, cfg.EmbeddingDimensions)
	if err != nil {
		return nil, err
	}
	p.closers = append(p.closers, func() {
		if err := store.Close(); err != nil {
			p.Logger.Warn().Err(err).Msg("failed to close collection")
		}
	})

	p.Logger.Debug().Str("collection", collection).Str("backend", vectorstore.BackendName).Msg("index opened")
	return store, nil
}

// Close releases the index in reverse order of acquisition.
func (p *Pipeline) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
	p.closers = nil
}
