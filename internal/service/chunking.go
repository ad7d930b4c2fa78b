package service

import (
	"fmt"

	"github.com/cloo-solutions/ragpipe/internal/domain"
	"github.com/google/uuid"
)

// DefaultSeparators are tried in order, from paragraph breaks down to
// arbitrary character boundaries.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// ChunkConfig controls chunking. Sizes are measured in characters (runes).
type ChunkConfig struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		ChunkSize:    1000,
		ChunkOverlap: 200,
		Separators:   DefaultSeparators,
	}
}

// Validate checks that every window can make progress.
func (c ChunkConfig) Validate() error {
	if c.ChunkSize <= 0 {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid chunk configuration",
			fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize))
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid chunk configuration",
			fmt.Errorf("chunk overlap must be within [0, %d), got %d", c.ChunkSize, c.ChunkOverlap))
	}
	return nil
}

// Splitter cuts text into overlapping windows, preferring to end a window
// right after the highest-priority separator that fits.
type Splitter struct {
	cfg        ChunkConfig
	separators [][]rune
	newID      func() string
}

// NewSplitter validates cfg and returns a Splitter.
func NewSplitter(cfg ChunkConfig) (*Splitter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seps := cfg.Separators
	if len(seps) == 0 {
		seps = DefaultSeparators
	}
	runeSeps := make([][]rune, 0, len(seps))
	for _, sep := range seps {
		runeSeps = append(runeSeps, []rune(sep))
	}
	return &Splitter{cfg: cfg, separators: runeSeps, newID: uuid.NewString}, nil
}

// Config returns the splitter configuration.
func (s *Splitter) Config() ChunkConfig {
	return s.cfg
}

// SplitText splits text into chunks of at most ChunkSize runes. Each chunk
// after the first starts ChunkOverlap runes before the previous one ended,
// so dropping the first ChunkOverlap runes of every later chunk and
// concatenating reproduces text exactly.
func (s *Splitter) SplitText(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= s.cfg.ChunkSize {
		return []string{text}
	}

	chunks := make([]string, 0, len(runes)/(s.cfg.ChunkSize-s.cfg.ChunkOverlap)+1)
	start := 0
	for {
		if len(runes)-start <= s.cfg.ChunkSize {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		end := s.splitPoint(runes, start)
		chunks = append(chunks, string(runes[start:end]))
		start = end - s.cfg.ChunkOverlap
	}

	return chunks
}

// splitPoint returns the end of the window beginning at start. The end must
// lie past start+ChunkOverlap so the next window advances.
func (s *Splitter) splitPoint(runes []rune, start int) int {
	limit := start + s.cfg.ChunkSize
	minEnd := start + s.cfg.ChunkOverlap + 1

	for _, sep := range s.separators {
		if len(sep) == 0 {
			return limit
		}
		for end := limit; end >= minEnd; end-- {
			if end-len(sep) < start {
				break
			}
			if endsWith(runes, end, sep) {
				return end
			}
		}
	}

	return limit
}

func endsWith(runes []rune, end int, sep []rune) bool {
	offset := end - len(sep)
	for i, r := range sep {
		if runes[offset+i] != r {
			return false
		}
	}
	return true
}

// SplitDocuments chunks every document in order. Chunk ids are assigned
// sequentially starting at firstChunkID across the whole batch.
func (s *Splitter) SplitDocuments(docs []domain.Document, firstChunkID int64) []domain.Chunk {
	next := firstChunkID
	out := make([]domain.Chunk, 0, len(docs))
	for _, doc := range docs {
		for _, text := range s.SplitText(doc.Text) {
			out = append(out, domain.Chunk{
				ID:   s.newID(),
				Text: text,
				Metadata: domain.ChunkMetadata{
					Source:     doc.Source(),
					ChunkID:    next,
					DocumentID: doc.ID,
				},
			})
			next++
		}
	}
	return out
}
