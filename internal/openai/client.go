package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cloo-solutions/ragpipe/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = string(openai.AdaEmbeddingV2)
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from ada-002
	DefaultEmbeddingDimensions = 1536
	// DefaultChatModel is used when a completion request names no model.
	DefaultChatModel = openai.GPT3Dot5Turbo

	serviceName = "openai"
)

// API is the subset of the remote service the client depends on.
type API interface {
	CreateEmbedding(ctx context.Context, model, text string, dimensions int) ([]float32, error)
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Adapter implements API on top of go-openai and classifies its errors.
type Adapter struct {
	client *openai.Client
}

// NewAdapter builds an Adapter. baseURL may point at any OpenAI compatible
// server; empty keeps the public endpoint.
func NewAdapter(apiKey, baseURL string, timeout time.Duration) *Adapter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}
	return &Adapter{client: openai.NewClientWithConfig(cfg)}
}

// CreateEmbedding calls the embeddings endpoint for a single input.
func (a *Adapter) CreateEmbedding(ctx context.Context, model, text string, dimensions int) ([]float32, error) {
	req := openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(model),
	}
	// Only the v3 embedding models accept a requested dimension.
	if strings.HasPrefix(model, "text-embedding-3") && dimensions > 0 {
		req.Dimensions = dimensions
	}

	resp, err := a.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, ClassifyError("embed", err)
	}
	if len(resp.Data) == 0 {
		return nil, domain.NewServiceError(serviceName, "embed", 0, errors.New("no embedding data returned"))
	}

	return resp.Data[0].Embedding, nil
}

// CreateChatCompletion calls the chat completions endpoint.
func (a *Adapter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return openai.ChatCompletionResponse{}, ClassifyError("complete", err)
	}
	return resp, nil
}

// ClassifyError maps a go-openai error to a *domain.ServiceError, or a
// *domain.RateLimitError when the service answered 429.
func ClassifyError(op string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return domain.NewServiceError(serviceName, op, apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return domain.NewServiceError(serviceName, op, reqErr.HTTPStatusCode, err)
	}

	return domain.NewServiceError(serviceName, op, 0, err)
}

type Config struct {
	APIKey              string
	BaseURL             string
	Timeout             time.Duration
	EmbeddingModel      string
	EmbeddingDimensions int
}

// Client is the embedding and generation client used by the pipeline.
type Client struct {
	api        API
	model      string
	dimensions int
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	return newClient(NewAdapter(cfg.APIKey, cfg.BaseURL, cfg.Timeout), cfg.EmbeddingModel, cfg.EmbeddingDimensions)
}

func newClient(api API, model string, dimensions int) *Client {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	return &Client{api: api, model: model, dimensions: dimensions}
}

// Dimensions returns the fixed output dimension of the embedding model.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// EmbeddingModel returns the configured embedding model name.
func (c *Client) EmbeddingModel() string {
	return c.model
}

// Embed generates an embedding for the given text. Every call is a fresh
// remote request.
func (c *Client) Embed(ctx context.Context, text string) (domain.Vector, error) {
	if text == "" {
		return nil, domain.ErrEmptyText
	}

	embedding, err := c.api.CreateEmbedding(ctx, c.model, text, c.dimensions)
	if err != nil {
		return nil, err
	}

	if len(embedding) != c.dimensions {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "embedding dimension mismatch",
			fmt.Errorf("got %d, expected %d", len(embedding), c.dimensions))
	}
	if err := domain.ValidateVector(embedding); err != nil {
		return nil, domain.NewServiceError(serviceName, "embed", 0, err)
	}

	return embedding, nil
}

// Complete sends the prompt as a single user message. Token usage comes from
// the response and cost from the pricing table.
func (c *Client) Complete(ctx context.Context, req domain.CompletionRequest) (*domain.Completion, error) {
	if req.Prompt == "" {
		return nil, domain.ErrEmptyText
	}
	model := req.Model
	if model == "" {
		model = DefaultChatModel
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, domain.NewServiceError(serviceName, "complete", 0, errors.New("no choices returned"))
	}

	usage := domain.TokenUsage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}

	return &domain.Completion{
		Text:  resp.Choices[0].Message.Content,
		Model: model,
		Usage: usage,
		Cost:  CompletionCost(model, usage),
	}, nil
}
