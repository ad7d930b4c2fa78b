package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloo-solutions/ragpipe/internal/domain"
	"github.com/cloo-solutions/ragpipe/internal/vectorstore"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// BackendName identifies the pgvector index in collection stats.
const BackendName = "pgvector"

// ChunkRepository is a vector index backed by PostgreSQL and pgvector.
// Candidates are ranked by cosine distance in the database; MMR runs over
// the fetched candidates.
type ChunkRepository struct {
	db         dbtx
	collection string
	dimension  int
}

func NewChunkRepository(pool *pgxpool.Pool, collection string, dimension int) *ChunkRepository {
	return &ChunkRepository{db: pool, collection: collection, dimension: dimension}
}

// EnsureCollection registers the collection, or checks that an existing one
// was created with the same embedding dimension.
func (r *ChunkRepository) EnsureCollection(ctx context.Context) error {
	if r.collection == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "collection name cannot be empty")
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO rag_collections (name, dimension) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
		r.collection, r.dimension,
	)
	if err != nil {
		return fmt.Errorf("failed to register collection: %w", err)
	}

	var dimension int
	if err := r.db.QueryRow(ctx, `SELECT dimension FROM rag_collections WHERE name = $1`, r.collection).Scan(&dimension); err != nil {
		return fmt.Errorf("failed to read collection: %w", err)
	}
	if dimension != r.dimension {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "embedding dimension mismatch",
			fmt.Errorf("collection %q has dimension %d, embedding model produces %d", r.collection, dimension, r.dimension))
	}
	return nil
}

// CheckCollection verifies that the collection was registered before with
// the same embedding dimension.
func (r *ChunkRepository) CheckCollection(ctx context.Context) error {
	var dimension int
	err := r.db.QueryRow(ctx, `SELECT dimension FROM rag_collections WHERE name = $1`, r.collection).Scan(&dimension)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NewDomainErrorWithCause(domain.ErrCodeNotFound, "collection not found",
			fmt.Errorf("no collection %q in database", r.collection))
	}
	if err != nil {
		return fmt.Errorf("failed to read collection: %w", err)
	}
	if dimension != r.dimension {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "embedding dimension mismatch",
			fmt.Errorf("collection %q has dimension %d, embedding model produces %d", r.collection, dimension, r.dimension))
	}
	return nil
}

// Insert adds entries in one batch. Entries are never overwritten.
func (r *ChunkRepository) Insert(ctx context.Context, entries ...domain.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for i := range entries {
		if err := domain.ValidateIndexEntry(&entries[i], r.dimension); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, e := range entries {
		createdAt := e.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		batch.Queue(
			`INSERT INTO rag_chunks (collection, chunk_id, id, document_id, source, content, embedding, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			r.collection,
			e.Chunk.Metadata.ChunkID,
			e.Chunk.ID,
			e.Chunk.Metadata.DocumentID,
			e.Chunk.Metadata.Source,
			e.Chunk.Text,
			pgvector.NewVector(e.Vector),
			createdAt,
		)
	}

	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "storage operation failed", err)
	}
	return nil
}

// Search fetches the nearest candidates by cosine distance, ties broken by
// insertion order, re-scores them with vectorstore.CosineSimilarity, then
// applies the search policy.
func (r *ChunkRepository) Search(ctx context.Context, query domain.Vector, opts domain.SearchOptions) (*domain.RetrievalResult, error) {
	if err := domain.ValidateSearchOptions(&opts); err != nil {
		return nil, err
	}
	if len(query) != r.dimension {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "embedding dimension mismatch",
			fmt.Errorf("query has dimension %d, expected %d", len(query), r.dimension))
	}
	if err := domain.ValidateVector(query); err != nil {
		return nil, err
	}

	limit := opts.K
	if opts.Type == domain.SearchTypeMMR {
		limit = opts.FetchK
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, chunk_id, document_id, source, content, embedding, created_at
		 FROM rag_chunks
		 WHERE collection = $2
		 ORDER BY embedding <=> $1, seq
		 LIMIT $3`,
		pgvector.NewVector(query), r.collection, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ranked := make([]vectorstore.Candidate, 0, limit)
	for rows.Next() {
		var c vectorstore.Candidate
		var vec pgvector.Vector
		if err := rows.Scan(
			&c.Entry.Chunk.ID,
			&c.Entry.Chunk.Metadata.ChunkID,
			&c.Entry.Chunk.Metadata.DocumentID,
			&c.Entry.Chunk.Metadata.Source,
			&c.Entry.Chunk.Text,
			&vec,
			&c.Entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		c.Entry.Vector = vec.Slice()
		c.Score = vectorstore.CosineSimilarity(query, c.Entry.Vector)
		ranked = append(ranked, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return vectorstore.ToResult(vectorstore.Select(ranked, opts)), nil
}

func (r *ChunkRepository) NextChunkID(ctx context.Context) (int64, error) {
	var next int64
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(chunk_id) + 1, 0) FROM rag_chunks WHERE collection = $1`,
		r.collection,
	).Scan(&next)
	return next, err
}

func (r *ChunkRepository) HasSource(ctx context.Context, source string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM rag_chunks WHERE collection = $1 AND source = $2)`,
		r.collection, source,
	).Scan(&exists)
	return exists, err
}

func (r *ChunkRepository) Stats(ctx context.Context) (*domain.CollectionStats, error) {
	stats := &domain.CollectionStats{
		Collection: r.collection,
		Backend:    BackendName,
		Dimension:  r.dimension,
	}
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT NULLIF(document_id, '')) FROM rag_chunks WHERE collection = $1`,
		r.collection,
	).Scan(&stats.Entries, &stats.Documents)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
