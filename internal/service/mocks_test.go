package service

import (
	"context"
	"strings"

	"github.com/cloo-solutions/ragpipe/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockEmbedder mocks the embedding client
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) (domain.Vector, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Vector), args.Error(1)
}

// MockGenerator mocks the completion client
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Complete(ctx context.Context, req domain.CompletionRequest) (*domain.Completion, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Completion), args.Error(1)
}

// MockVectorIndex mocks the vector index
type MockVectorIndex struct {
	mock.Mock
}

func (m *MockVectorIndex) Insert(ctx context.Context, entries ...domain.IndexEntry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *MockVectorIndex) Search(ctx context.Context, query domain.Vector, opts domain.SearchOptions) (*domain.RetrievalResult, error) {
	args := m.Called(ctx, query, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RetrievalResult), args.Error(1)
}

func (m *MockVectorIndex) NextChunkID(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockVectorIndex) HasSource(ctx context.Context, source string) (bool, error) {
	args := m.Called(ctx, source)
	return args.Bool(0), args.Error(1)
}

func (m *MockVectorIndex) Stats(ctx context.Context) (*domain.CollectionStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CollectionStats), args.Error(1)
}

// keywordEmbedder embeds text as keyword counts, so texts sharing words are
// close under cosine similarity.
type keywordEmbedder struct {
	keywords []string
}

var testKeywords = []string{"rag", "retrieval", "generation", "fine-tuning", "weights"}

func (e keywordEmbedder) Embed(_ context.Context, text string) (domain.Vector, error) {
	lower := strings.ToLower(text)
	v := make(domain.Vector, len(e.keywords))
	for i, kw := range e.keywords {
		v[i] = float32(strings.Count(lower, kw))
	}
	return v, nil
}
