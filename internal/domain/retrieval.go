package domain

import (
	"fmt"
	"time"
)

// SearchType selects how the vector index ranks candidates.
type SearchType string

const (
	SearchTypeSimilarity SearchType = "similarity"
	SearchTypeMMR        SearchType = "mmr"
)

// SearchOptions configures a vector index search.
type SearchOptions struct {
	Type   SearchType
	K      int
	FetchK int
	Lambda float32
}

// ValidateSearchOptions validates search options and fills FetchK for
// similarity searches.
func ValidateSearchOptions(o *SearchOptions) error {
	if o == nil {
		return ErrInvalidSearch
	}
	switch o.Type {
	case SearchTypeSimilarity, SearchTypeMMR:
	case "":
		o.Type = SearchTypeSimilarity
	default:
		return NewDomainErrorWithCause(ErrCodeValidation, "invalid search options", fmt.Errorf("unknown search type %q", o.Type))
	}
	if o.K <= 0 {
		return NewDomainErrorWithCause(ErrCodeValidation, "invalid search options", fmt.Errorf("k must be positive"))
	}
	if o.Type == SearchTypeMMR {
		if o.FetchK < o.K {
			return NewDomainErrorWithCause(ErrCodeValidation, "invalid search options", fmt.Errorf("fetch_k (%d) must be >= k (%d)", o.FetchK, o.K))
		}
		if o.Lambda < 0 || o.Lambda > 1 {
			return NewDomainErrorWithCause(ErrCodeValidation, "invalid search options", fmt.Errorf("lambda must be within [0,1]"))
		}
	}
	return nil
}

// RetrievedChunk is a chunk returned by a search, with its similarity to
// the query.
type RetrievedChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float32 `json:"score"`
}

// RetrievalResult is ordered most to least relevant under the policy used.
type RetrievalResult struct {
	Chunks []RetrievedChunk `json:"chunks"`
}

// Len returns the number of retrieved chunks.
func (r *RetrievalResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Chunks)
}

// Texts returns the chunk texts in result order.
func (r *RetrievalResult) Texts() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.Chunks))
	for _, c := range r.Chunks {
		out = append(out, c.Chunk.Text)
	}
	return out
}

// Sources returns unique source identifiers in first-seen order.
func (r *RetrievalResult) Sources() []string {
	if r == nil {
		return []string{}
	}
	seen := make(map[string]struct{}, len(r.Chunks))
	sources := make([]string, 0, len(r.Chunks))
	for _, c := range r.Chunks {
		source := c.Chunk.Metadata.Source
		if source == "" {
			source = "unknown"
		}
		if _, ok := seen[source]; ok {
			continue
		}
		seen[source] = struct{}{}
		sources = append(sources, source)
	}
	return sources
}

// TokenUsage is reported by the completion service.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion is the result of a single completion call.
type Completion struct {
	Text  string
	Model string
	Usage TokenUsage
	Cost  float64
}

// Answer is the result of answering a question.
type Answer struct {
	Question string
	Text     string
	Model    string
	Sources  []string
	Usage    TokenUsage
	Cost     float64
	Elapsed  time.Duration
}

// CompletionRequest is a single prompt sent to the completion service.
type CompletionRequest struct {
	Prompt      string
	Model       string
	Temperature float32
	MaxTokens   int
}
