package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cloo-solutions/ragpipe/internal/domain"
	"github.com/cloo-solutions/ragpipe/internal/loader"
	"github.com/cloo-solutions/ragpipe/internal/metrics"
	"github.com/cloo-solutions/ragpipe/internal/telemetry"
	"github.com/rs/zerolog"
)

// insertBatchSize bounds how many embedded chunks are held before they are
// written to the index.
const insertBatchSize = 32

// IngestResult summarizes one ingestion run.
type IngestResult struct {
	Documents    int      `json:"documents"`
	Chunks       int      `json:"chunks"`
	FirstChunkID int64    `json:"first_chunk_id"`
	Sources      []string `json:"sources"`
}

// IngestService chunks documents, embeds every chunk and inserts it into
// the index. It is the single writer of a collection: concurrent calls are
// serialized so chunk and document ids never collide.
type IngestService struct {
	mu       sync.Mutex
	embedder Embedder
	index    VectorIndex
	splitter *Splitter
	logger   zerolog.Logger
	metrics  *metrics.Metrics
}

// NewIngestService creates a new IngestService instance
func NewIngestService(embedder Embedder, index VectorIndex, splitter *Splitter, opts ...Option) *IngestService {
	o := newOptions(opts)
	return &IngestService{
		embedder: embedder,
		index:    index,
		splitter: splitter,
		logger:   o.logger,
		metrics:  o.metrics,
	}
}

// Splitter returns the splitter used to chunk documents.
func (s *IngestService) Splitter() *Splitter {
	return s.splitter
}

// NextDocumentNumber returns the number the next loaded document should get
// so document ids stay unique within the collection.
func (s *IngestService) NextDocumentNumber(ctx context.Context) (int, error) {
	stats, err := s.index.Stats(ctx)
	if err != nil {
		return 0, err
	}
	return stats.Documents, nil
}

// Ingest chunks and indexes docs. Chunk ids continue from the index's next
// id. A failure stops the run; batches already inserted stay in the index.
func (s *IngestService) Ingest(ctx context.Context, docs []domain.Document) (*IngestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run(ctx, docs)
}

func (s *IngestService) run(ctx context.Context, docs []domain.Document) (*IngestResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.Ingest", telemetry.SpanAttributes{
		Operation: "ingest",
	})
	defer span.End()

	result, err := s.ingest(ctx, docs)
	s.metrics.RecordOperation("ingest", err)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	span.SetData("chunks", result.Chunks)
	return result, nil
}

func (s *IngestService) ingest(ctx context.Context, docs []domain.Document) (*IngestResult, error) {
	defer s.metrics.ObserveStage("ingest", time.Now())

	firstID, err := s.index.NextChunkID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read next chunk id: %w", err)
	}

	chunks := s.splitter.SplitDocuments(docs, firstID)
	result := &IngestResult{
		Documents:    len(docs),
		Chunks:       len(chunks),
		FirstChunkID: firstID,
		Sources:      make([]string, 0, len(docs)),
	}
	for _, doc := range docs {
		result.Sources = append(result.Sources, doc.Source())
	}

	batch := make([]domain.IndexEntry, 0, insertBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.index.Insert(ctx, batch...); err != nil {
			return fmt.Errorf("failed to insert chunks: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for _, chunk := range chunks {
		vector, err := s.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunk %d: %w", chunk.Metadata.ChunkID, err)
		}
		batch = append(batch, domain.IndexEntry{Vector: vector, Chunk: chunk})
		if len(batch) == insertBatchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	if stats, err := s.index.Stats(ctx); err == nil {
		s.metrics.RecordIngest(len(chunks), stats.Entries)
	}
	s.logger.Info().
		Int("documents", result.Documents).
		Int("chunks", result.Chunks).
		Int64("first_chunk_id", firstID).
		Msg("ingested documents")

	return result, nil
}

// IngestTexts indexes inline texts as documents without a source path.
func (s *IngestService) IngestTexts(ctx context.Context, texts []string) (*IngestResult, error) {
	for _, text := range texts {
		if text == "" {
			return nil, domain.ErrEmptyText
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	first, err := s.NextDocumentNumber(ctx)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, loader.FromStrings(texts, first))
}

// IngestDir loads files under dir matching pattern and indexes those whose
// path is not yet a source in the index.
func (s *IngestService) IngestDir(ctx context.Context, dir, pattern string) (*IngestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.LoadNew(ctx, dir, pattern)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return &IngestResult{Sources: []string{}}, nil
	}
	return s.run(ctx, docs)
}

// LoadNew loads the files under dir that are not indexed yet.
func (s *IngestService) LoadNew(ctx context.Context, dir, pattern string) ([]domain.Document, error) {
	first, err := s.NextDocumentNumber(ctx)
	if err != nil {
		return nil, err
	}

	var lookupErr error
	docs, err := loader.Load(ctx, loader.Options{
		Dir:     dir,
		Glob:    pattern,
		FirstID: first,
		Skip: func(path string) bool {
			if lookupErr != nil {
				return true
			}
			known, err := s.index.HasSource(ctx, path)
			if err != nil {
				lookupErr = err
				return true
			}
			return known
		},
	})
	if err != nil {
		return nil, err
	}
	if lookupErr != nil {
		return nil, fmt.Errorf("failed to check indexed sources: %w", lookupErr)
	}
	return docs, nil
}
