package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cloo-solutions/ragpipe/internal/domain"
	"github.com/cloo-solutions/ragpipe/internal/loader"
	"github.com/cloo-solutions/ragpipe/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAnswer_EndToEnd(t *testing.T) {
	ctx := context.Background()
	embedder := keywordEmbedder{keywords: testKeywords}

	index, err := vectorstore.Open(t.TempDir(), "rag_test", len(testKeywords))
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	splitter, err := NewSplitter(ChunkConfig{ChunkSize: 100, ChunkOverlap: 20})
	require.NoError(t, err)

	ingested, err := NewIngestService(embedder, index, splitter).Ingest(ctx, loader.FromStrings([]string{
		"RAG combines retrieval with generation.",
		"Fine-tuning updates model weights.",
	}, 0))
	require.NoError(t, err)
	assert.Equal(t, 2, ingested.Chunks)

	retriever, err := NewRetriever(embedder, index, domain.SearchOptions{Type: domain.SearchTypeSimilarity, K: 1})
	require.NoError(t, err)

	result, err := retriever.Retrieve(ctx, "What is RAG?")
	require.NoError(t, err)
	require.Equal(t, 1, result.Len())
	assert.Equal(t, "RAG combines retrieval with generation.", result.Chunks[0].Chunk.Text)

	generator := new(MockGenerator)
	generator.On("Complete", mock.Anything, mock.MatchedBy(func(req domain.CompletionRequest) bool {
		return assert.Contains(t, req.Prompt, "What is RAG?") &&
			assert.Contains(t, req.Prompt, "RAG combines retrieval with generation.") &&
			assert.NotContains(t, req.Prompt, "Fine-tuning") &&
			req.Model == "gpt-3.5-turbo" && req.Temperature == 0.3 && req.MaxTokens == 500
	})).Return(&domain.Completion{
		Text:  "RAG retrieves then generates.",
		Usage: domain.TokenUsage{TotalTokens: 10},
		Cost:  0.0001,
	}, nil)

	svc := NewAnswerService(retriever, generator, GenerationConfig{Model: "gpt-3.5-turbo", Temperature: 0.3, MaxTokens: 500})

	answer, err := svc.Answer(ctx, "What is RAG?")

	require.NoError(t, err)
	assert.Equal(t, "RAG retrieves then generates.", answer.Text)
	assert.Equal(t, []string{"document_0"}, answer.Sources)
	assert.Equal(t, 10, answer.Usage.TotalTokens)
	assert.InDelta(t, 0.0001, answer.Cost, 1e-12)
	assert.Equal(t, "gpt-3.5-turbo", answer.Model)
	assert.GreaterOrEqual(t, answer.Elapsed.Nanoseconds(), int64(0))
	generator.AssertExpectations(t)
}

type stubRetriever struct {
	result *domain.RetrievalResult
	err    error
}

func (s stubRetriever) Retrieve(context.Context, string) (*domain.RetrievalResult, error) {
	return s.result, s.err
}

func TestAnswer_DeduplicatesSourcesInOrder(t *testing.T) {
	result := &domain.RetrievalResult{Chunks: []domain.RetrievedChunk{
		{Chunk: domain.Chunk{Text: "a", Metadata: domain.ChunkMetadata{Source: "docs/b.pdf"}}},
		{Chunk: domain.Chunk{Text: "b", Metadata: domain.ChunkMetadata{Source: "docs/a.pdf"}}},
		{Chunk: domain.Chunk{Text: "c", Metadata: domain.ChunkMetadata{Source: "docs/b.pdf"}}},
	}}
	generator := new(MockGenerator)
	generator.On("Complete", mock.Anything, mock.Anything).Return(&domain.Completion{Text: "ok", Model: "gpt-4o"}, nil)

	answer, err := NewAnswerService(stubRetriever{result: result}, generator, GenerationConfig{Model: "gpt-4o"}).
		Answer(context.Background(), "q")

	require.NoError(t, err)
	assert.Equal(t, []string{"docs/b.pdf", "docs/a.pdf"}, answer.Sources)
}

func TestAnswer_EmptyRetrievalStillAsks(t *testing.T) {
	generator := new(MockGenerator)
	generator.On("Complete", mock.Anything, mock.MatchedBy(func(req domain.CompletionRequest) bool {
		return assert.Contains(t, req.Prompt, FallbackPhrase)
	})).Return(&domain.Completion{Text: FallbackPhrase}, nil)

	answer, err := NewAnswerService(stubRetriever{result: &domain.RetrievalResult{}}, generator, GenerationConfig{Model: "m"}).
		Answer(context.Background(), "q")

	require.NoError(t, err)
	assert.Empty(t, answer.Sources)
	assert.Equal(t, FallbackPhrase, answer.Text)
}

func TestAnswer_RetrieverErrorPropagatesUnchanged(t *testing.T) {
	rlErr := domain.NewServiceError("openai", "embed", 429, errors.New("slow down"))
	generator := new(MockGenerator)

	answer, err := NewAnswerService(stubRetriever{err: rlErr}, generator, GenerationConfig{}).
		Answer(context.Background(), "q")

	assert.Nil(t, answer)
	assert.Same(t, rlErr, err)
	assert.True(t, domain.IsRateLimit(err))
	generator.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestAnswer_GeneratorErrorPropagatesUnchanged(t *testing.T) {
	svcErr := domain.NewServiceError("openai", "complete", 500, errors.New("boom"))
	generator := new(MockGenerator)
	generator.On("Complete", mock.Anything, mock.Anything).Return(nil, svcErr)

	answer, err := NewAnswerService(stubRetriever{result: retrieved("a")}, generator, GenerationConfig{}).
		Answer(context.Background(), "q")

	assert.Nil(t, answer)
	assert.Same(t, svcErr, err)
}

func TestAnswer_EmptyQuestion(t *testing.T) {
	_, err := NewAnswerService(stubRetriever{}, new(MockGenerator), GenerationConfig{}).Answer(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrEmptyQuestion)
}
