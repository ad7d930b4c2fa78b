package domain

import (
	"fmt"
	"math"
	"time"
)

// Document is a raw text loaded from a file or supplied inline.
type Document struct {
	ID         string
	Text       string
	SourcePath string
}

// DocumentID returns the identifier assigned to the n-th loaded document.
func DocumentID(n int) string {
	return fmt.Sprintf("document_%d", n)
}

// Source returns the identifier chunks of this document are attributed to.
func (d Document) Source() string {
	if d.SourcePath != "" {
		return d.SourcePath
	}
	return d.ID
}

// ChunkMetadata is attached to every chunk and persisted with it.
type ChunkMetadata struct {
	Source     string `json:"source"`
	ChunkID    int64  `json:"chunk_id"`
	DocumentID string `json:"document_id,omitempty"`
}

// Chunk is a bounded text segment derived from exactly one document.
type Chunk struct {
	ID       string        `json:"id"`
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// Vector is an embedding of fixed dimension.
type Vector []float32

// ValidateVector rejects NaN and infinite components, which no similarity
// score can rank.
func ValidateVector(v Vector) error {
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return NewDomainErrorWithCause(ErrCodeValidation, "embedding contains non-finite values",
				fmt.Errorf("component %d is %v", i, x))
		}
	}
	return nil
}

// IndexEntry pairs a chunk with its embedding. Entries are immutable once
// inserted into an index.
type IndexEntry struct {
	Vector    Vector    `json:"vector"`
	Chunk     Chunk     `json:"chunk"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidateIndexEntry checks an entry against the index dimension.
func ValidateIndexEntry(e *IndexEntry, dimension int) error {
	if e == nil {
		return fmt.Errorf("index entry cannot be nil")
	}
	if e.Chunk.Text == "" {
		return ErrEmptyText
	}
	if len(e.Vector) == 0 {
		return NewDomainErrorWithCause(ErrCodeValidation, "embedding dimension mismatch", fmt.Errorf("entry has no vector"))
	}
	if dimension > 0 && len(e.Vector) != dimension {
		return NewDomainErrorWithCause(ErrCodeValidation, "embedding dimension mismatch",
			fmt.Errorf("got %d, expected %d", len(e.Vector), dimension))
	}
	return ValidateVector(e.Vector)
}

// CollectionStats summarizes the contents of a vector index collection.
type CollectionStats struct {
	Collection string `json:"collection"`
	Backend    string `json:"backend"`
	Documents  int    `json:"documents"`
	Entries    int    `json:"entries"`
	Dimension  int    `json:"dimension"`
}
