package service

import (
	"context"
	"strings"
	"time"

	"github.com/cloo-solutions/ragpipe/internal/domain"
	"github.com/cloo-solutions/ragpipe/internal/metrics"
	"github.com/cloo-solutions/ragpipe/internal/telemetry"
	"github.com/rs/zerolog"
)

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.Vector, error)
}

// VectorIndex stores index entries and answers similarity searches.
type VectorIndex interface {
	Insert(ctx context.Context, entries ...domain.IndexEntry) error
	Search(ctx context.Context, query domain.Vector, opts domain.SearchOptions) (*domain.RetrievalResult, error)
	NextChunkID(ctx context.Context) (int64, error)
	HasSource(ctx context.Context, source string) (bool, error)
	Stats(ctx context.Context) (*domain.CollectionStats, error)
}

// Retriever embeds a query and delegates ranking to the index.
type Retriever struct {
	embedder Embedder
	index    VectorIndex
	opts     domain.SearchOptions
	logger   zerolog.Logger
	metrics  *metrics.Metrics
}

// NewRetriever validates the default search options.
func NewRetriever(embedder Embedder, index VectorIndex, searchOpts domain.SearchOptions, opts ...Option) (*Retriever, error) {
	if err := domain.ValidateSearchOptions(&searchOpts); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	return &Retriever{
		embedder: embedder,
		index:    index,
		opts:     searchOpts,
		logger:   o.logger,
		metrics:  o.metrics,
	}, nil
}

// SearchOptions returns the default search options.
func (r *Retriever) SearchOptions() domain.SearchOptions {
	return r.opts
}

// Retrieve returns at most K chunks for query under the default policy.
func (r *Retriever) Retrieve(ctx context.Context, query string) (*domain.RetrievalResult, error) {
	return r.RetrieveWith(ctx, query, r.opts)
}

// RetrieveWith retrieves under explicit search options. Errors from the
// embedder or the index are returned unchanged.
func (r *Retriever) RetrieveWith(ctx context.Context, query string, searchOpts domain.SearchOptions) (*domain.RetrievalResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuestion
	}
	if err := domain.ValidateSearchOptions(&searchOpts); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "Retriever.Retrieve", telemetry.SpanAttributes{
		Operation: string(searchOpts.Type),
	})
	defer span.End()
	defer r.metrics.ObserveStage("retrieve", time.Now())

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	result, err := r.index.Search(ctx, vector, searchOpts)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	span.SetData("retrieved", result.Len())
	r.metrics.RecordRetrieval(result.Len())
	r.logger.Debug().
		Str("search_type", string(searchOpts.Type)).
		Int("k", searchOpts.K).
		Int("retrieved", result.Len()).
		Msg("retrieved chunks")

	return result, nil
}
