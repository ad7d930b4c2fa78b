package openai

import (
	"context"
	"errors"
	"math"
	"net/http"
	"testing"

	"github.com/cloo-solutions/ragpipe/internal/domain"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOpenAIAPI is a mock for the OpenAI API
type MockOpenAIAPI struct {
	mock.Mock
}

func (m *MockOpenAIAPI) CreateEmbedding(ctx context.Context, model, text string, dimensions int) ([]float32, error) {
	args := m.Called(ctx, model, text, dimensions)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockOpenAIAPI) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(openai.ChatCompletionResponse), args.Error(1)
}

func TestClient_Embed_Success(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := newClient(mockAPI, "", 0)

	ctx := context.Background()
	text := "RAG combines retrieval with generation."
	expectedEmbedding := make([]float32, DefaultEmbeddingDimensions)
	for i := range expectedEmbedding {
		expectedEmbedding[i] = float32(i) * 0.001
	}

	mockAPI.On("CreateEmbedding", ctx, DefaultEmbeddingModel, text, DefaultEmbeddingDimensions).Return(expectedEmbedding, nil)

	embedding, err := client.Embed(ctx, text)

	assert.NoError(t, err)
	assert.Len(t, embedding, DefaultEmbeddingDimensions)
	assert.Equal(t, domain.Vector(expectedEmbedding), embedding)
	mockAPI.AssertExpectations(t)
}

func TestClient_Embed_EmptyText(t *testing.T) {
	client := NewClient("")

	embedding, err := client.Embed(context.Background(), "")

	assert.Nil(t, embedding)
	assert.ErrorIs(t, err, domain.ErrEmptyText)
}

func TestClient_Embed_WrongDimensions(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := newClient(mockAPI, "text-embedding-3-small", 8)

	ctx := context.Background()
	mockAPI.On("CreateEmbedding", ctx, "text-embedding-3-small", "Test text", 8).Return(make([]float32, 4), nil)

	embedding, err := client.Embed(ctx, "Test text")

	assert.Nil(t, embedding)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	mockAPI.AssertExpectations(t)
}

func TestClient_Embed_NonFiniteResponse(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := newClient(mockAPI, "text-embedding-3-small", 2)

	ctx := context.Background()
	mockAPI.On("CreateEmbedding", ctx, "text-embedding-3-small", "Test text", 2).
		Return([]float32{float32(math.NaN()), 0.5}, nil)

	embedding, err := client.Embed(ctx, "Test text")

	assert.Nil(t, embedding)
	assert.True(t, domain.IsServiceError(err))
	assert.ErrorIs(t, err, domain.ErrNonFiniteVector)
	mockAPI.AssertExpectations(t)
}

func TestClient_Embed_ErrorPropagatesUnchanged(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := newClient(mockAPI, "", 0)

	ctx := context.Background()
	svcErr := domain.NewServiceError("openai", "embed", http.StatusUnauthorized, errors.New("bad key"))
	mockAPI.On("CreateEmbedding", ctx, mock.Anything, "Test text", mock.Anything).Return(nil, svcErr)

	embedding, err := client.Embed(ctx, "Test text")

	assert.Nil(t, embedding)
	assert.Same(t, svcErr, err)
}

func TestClient_Complete_Success(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := newClient(mockAPI, "", 0)

	ctx := context.Background()
	mockAPI.On("CreateChatCompletion", ctx, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return req.Model == "gpt-3.5-turbo" &&
			len(req.Messages) == 1 &&
			req.Messages[0].Role == openai.ChatMessageRoleUser &&
			req.Messages[0].Content == "What is RAG?" &&
			req.Temperature == 0.3 &&
			req.MaxTokens == 500
	})).Return(openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "RAG retrieves then generates."}},
		},
		Usage: openai.Usage{PromptTokens: 1000, CompletionTokens: 1000, TotalTokens: 2000},
	}, nil)

	completion, err := client.Complete(ctx, domain.CompletionRequest{
		Prompt:      "What is RAG?",
		Model:       "gpt-3.5-turbo",
		Temperature: 0.3,
		MaxTokens:   500,
	})

	require.NoError(t, err)
	assert.Equal(t, "RAG retrieves then generates.", completion.Text)
	assert.Equal(t, "gpt-3.5-turbo", completion.Model)
	assert.Equal(t, domain.TokenUsage{PromptTokens: 1000, CompletionTokens: 1000, TotalTokens: 2000}, completion.Usage)
	assert.InDelta(t, 0.0035, completion.Cost, 1e-12)
	mockAPI.AssertExpectations(t)
}

func TestClient_Complete_NoChoices(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := newClient(mockAPI, "", 0)

	mockAPI.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(openai.ChatCompletionResponse{}, nil)

	completion, err := client.Complete(context.Background(), domain.CompletionRequest{Prompt: "hi"})

	assert.Nil(t, completion)
	assert.True(t, domain.IsServiceError(err))
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		rateLimit  bool
		wantStatus int
	}{
		{
			name:       "api error throttled",
			err:        &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "slow down"},
			rateLimit:  true,
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name:       "api error unauthorized",
			err:        &openai.APIError{HTTPStatusCode: http.StatusUnauthorized, Message: "bad key"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "request error throttled",
			err:        &openai.RequestError{HTTPStatusCode: http.StatusTooManyRequests, Err: errors.New("throttled")},
			rateLimit:  true,
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name: "network error",
			err:  errors.New("connection refused"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ClassifyError("embed", tt.err)

			assert.Equal(t, tt.rateLimit, domain.IsRateLimit(err))

			var svcErr *domain.ServiceError
			require.ErrorAs(t, err, &svcErr)
			assert.Equal(t, "openai", svcErr.Service)
			assert.Equal(t, "embed", svcErr.Op)
			assert.Equal(t, tt.wantStatus, svcErr.StatusCode)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.NoError(t, ClassifyError("embed", nil))
}

func TestNewClient(t *testing.T) {
	client := NewClientWithConfig(Config{APIKey: "test-api-key", EmbeddingModel: "text-embedding-3-small", EmbeddingDimensions: 512})

	assert.NotNil(t, client.api)
	assert.Equal(t, 512, client.Dimensions())
	assert.Equal(t, "text-embedding-3-small", client.EmbeddingModel())
}
