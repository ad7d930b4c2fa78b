// Package vectorstore implements the file-backed vector index and the
// ranking policies shared by every index backend.
package vectorstore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cloo-solutions/ragpipe/internal/domain"
)

const (
	ManifestFile = "manifest.json"
	EntriesFile  = "entries.jsonl"

	BackendName = "file"
)

// Manifest describes a persisted collection.
type Manifest struct {
	Collection string    `json:"collection"`
	Dimension  int       `json:"dimension"`
	CreatedAt  time.Time `json:"created_at"`
}

// FileStore is an in-memory index persisted as an append-only JSON lines
// file under <dir>/<collection>. Reopening a collection restores every entry
// previously inserted. Safe for one writer alongside many readers.
type FileStore struct {
	mu          sync.RWMutex
	dir         string
	manifest    Manifest
	entries     []domain.IndexEntry
	sources     map[string]struct{}
	documents   map[string]struct{}
	nextChunkID int64
	file        *os.File
	now         func() time.Time
}

// CollectionDir returns the directory holding a collection.
func CollectionDir(persistDir, collection string) string {
	return filepath.Join(persistDir, collection)
}

// Exists reports whether a collection has been persisted under persistDir.
func Exists(persistDir, collection string) bool {
	_, err := os.Stat(filepath.Join(CollectionDir(persistDir, collection), ManifestFile))
	return err == nil
}

// Open opens or creates a collection. dimension is the embedding model's
// output size and must match the one recorded for an existing collection.
func Open(persistDir, collection string, dimension int) (*FileStore, error) {
	if collection == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "collection name cannot be empty")
	}
	if dimension <= 0 {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "embedding dimension mismatch",
			fmt.Errorf("dimension must be positive, got %d", dimension))
	}

	dir := CollectionDir(persistDir, collection)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create collection dir: %w", err)
	}

	s := &FileStore{
		dir:       dir,
		sources:   make(map[string]struct{}),
		documents: make(map[string]struct{}),
		now:       time.Now,
	}

	if err := s.loadManifest(collection, dimension); err != nil {
		return nil, err
	}
	if err := s.loadEntries(); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(filepath.Join(dir, EntriesFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open entries file: %w", err)
	}
	s.file = f

	return s, nil
}

func (s *FileStore) loadManifest(collection string, dimension int) error {
	path := filepath.Join(s.dir, ManifestFile)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		s.manifest = Manifest{Collection: collection, Dimension: dimension, CreatedAt: s.now().UTC()}
		data, err = json.MarshalIndent(s.manifest, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode manifest: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write manifest: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	if err := json.Unmarshal(data, &s.manifest); err != nil {
		return fmt.Errorf("failed to decode manifest: %w", err)
	}
	if s.manifest.Dimension != dimension {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "embedding dimension mismatch",
			fmt.Errorf("collection %q has dimension %d, embedding model produces %d", collection, s.manifest.Dimension, dimension))
	}
	return nil
}

func (s *FileStore) loadEntries() error {
	f, err := os.Open(filepath.Join(s.dir, EntriesFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open entries file: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(bufio.NewReader(f))
	for {
		var e domain.IndexEntry
		if err := dec.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to decode entry %d: %w", len(s.entries), err)
		}
		s.add(e)
	}
}

// add must be called with mu held for writing.
func (s *FileStore) add(e domain.IndexEntry) {
	s.entries = append(s.entries, e)
	s.sources[e.Chunk.Metadata.Source] = struct{}{}
	if e.Chunk.Metadata.DocumentID != "" {
		s.documents[e.Chunk.Metadata.DocumentID] = struct{}{}
	}
	if e.Chunk.Metadata.ChunkID >= s.nextChunkID {
		s.nextChunkID = e.Chunk.Metadata.ChunkID + 1
	}
}

// Insert validates and appends entries. Entries are written and synced to
// disk before they become visible to searches. Duplicate text or ids are
// stored as distinct entries.
func (s *FileStore) Insert(_ context.Context, entries ...domain.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "storage operation failed", errors.New("store is closed"))
	}

	for i := range entries {
		if err := domain.ValidateIndexEntry(&entries[i], s.manifest.Dimension); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	now := s.now().UTC()
	for i := range entries {
		if entries[i].CreatedAt.IsZero() {
			entries[i].CreatedAt = now
		}
		if err := enc.Encode(&entries[i]); err != nil {
			return fmt.Errorf("failed to encode entry: %w", err)
		}
	}
	if err := s.appendBatch(buf.Bytes()); err != nil {
		return err
	}

	for _, e := range entries {
		s.add(e)
	}
	return nil
}

// appendBatch writes data to the entries file as one unit. On failure the
// file is truncated back to its previous size so no partial batch is
// restored on reopen.
func (s *FileStore) appendBatch(data []byte) error {
	info, err := s.file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat entries file: %w", err)
	}
	size := info.Size()

	_, err = s.file.Write(data)
	if err == nil {
		err = s.file.Sync()
	}
	if err != nil {
		if terr := s.file.Truncate(size); terr != nil {
			return fmt.Errorf("failed to write entries: %w (rollback failed: %v)", err, terr)
		}
		return fmt.Errorf("failed to write entries: %w", err)
	}
	return nil
}

// Search ranks entries by cosine similarity. An empty collection returns an
// empty result.
func (s *FileStore) Search(_ context.Context, query domain.Vector, opts domain.SearchOptions) (*domain.RetrievalResult, error) {
	if err := domain.ValidateSearchOptions(&opts); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(query) != s.manifest.Dimension {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "embedding dimension mismatch",
			fmt.Errorf("query has dimension %d, expected %d", len(query), s.manifest.Dimension))
	}
	if err := domain.ValidateVector(query); err != nil {
		return nil, err
	}
	if len(s.entries) == 0 {
		return &domain.RetrievalResult{Chunks: []domain.RetrievedChunk{}}, nil
	}

	fetch := opts.K
	if opts.Type == domain.SearchTypeMMR {
		fetch = opts.FetchK
	}
	ranked := TopK(Score(query, s.entries), fetch)

	return ToResult(Select(ranked, opts)), nil
}

// NextChunkID returns the id the next inserted chunk should carry.
func (s *FileStore) NextChunkID(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextChunkID, nil
}

// HasSource reports whether any entry was ingested from source.
func (s *FileStore) HasSource(_ context.Context, source string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sources[source]
	return ok, nil
}

func (s *FileStore) Stats(_ context.Context) (*domain.CollectionStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &domain.CollectionStats{
		Collection: s.manifest.Collection,
		Backend:    BackendName,
		Documents:  len(s.documents),
		Entries:    len(s.entries),
		Dimension:  s.manifest.Dimension,
	}, nil
}

// Count returns the number of entries.
func (s *FileStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Dir returns the collection directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Close releases the entries file. Searches keep working on the loaded
// entries; inserts fail.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
