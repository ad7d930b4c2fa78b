package service

import (
	"fmt"

	"github.com/cloo-solutions/ragpipe/internal/domain"
	"github.com/cloo-solutions/ragpipe/internal/openai"
	"github.com/pkoukk/tiktoken-go"
)

// fallbackEncoding is used for models tiktoken does not know, which
// includes OpenAI compatible servers.
const fallbackEncoding = "cl100k_base"

// TokenCounter counts model tokens in a text.
type TokenCounter interface {
	Count(text string) int
}

// TiktokenCounter counts tokens with the model's BPE encoding.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the encoding for model. The encoding file is
// fetched on first use unless it is cached locally.
func NewTiktokenCounter(model string) (*TiktokenCounter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("failed to load token encoding: %w", err)
		}
	}
	return &TiktokenCounter{enc: enc}, nil
}

func (c *TiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// IngestEstimate is the projected cost of embedding a set of documents.
type IngestEstimate struct {
	Model     string  `json:"model"`
	Documents int     `json:"documents"`
	Chunks    int     `json:"chunks"`
	Tokens    int     `json:"tokens"`
	Cost      float64 `json:"cost"`
}

// EstimateIngest chunks docs the same way Ingest would and prices the
// embedding calls without making any.
func EstimateIngest(splitter *Splitter, counter TokenCounter, model string, docs []domain.Document) *IngestEstimate {
	est := &IngestEstimate{Model: model, Documents: len(docs)}
	for _, chunk := range splitter.SplitDocuments(docs, 0) {
		est.Chunks++
		est.Tokens += counter.Count(chunk.Text)
	}
	est.Cost = openai.EmbeddingCost(model, est.Tokens)
	return est
}
