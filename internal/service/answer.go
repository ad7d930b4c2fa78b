package service

import (
	"context"
	"strings"
	"time"

	"github.com/cloo-solutions/ragpipe/internal/domain"
	"github.com/cloo-solutions/ragpipe/internal/metrics"
	"github.com/cloo-solutions/ragpipe/internal/telemetry"
	"github.com/rs/zerolog"
)

// Generator sends a prompt to the completion service.
type Generator interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (*domain.Completion, error)
}

// ContextRetriever returns the chunks a question is answered from.
type ContextRetriever interface {
	Retrieve(ctx context.Context, query string) (*domain.RetrievalResult, error)
}

// GenerationConfig holds the completion parameters used for every answer.
type GenerationConfig struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// AnswerService runs retrieve, assemble and complete for one question.
type AnswerService struct {
	retriever ContextRetriever
	generator Generator
	cfg       GenerationConfig
	logger    zerolog.Logger
	metrics   *metrics.Metrics
}

// NewAnswerService creates a new AnswerService instance
func NewAnswerService(retriever ContextRetriever, generator Generator, cfg GenerationConfig, opts ...Option) *AnswerService {
	o := newOptions(opts)
	return &AnswerService{
		retriever: retriever,
		generator: generator,
		cfg:       cfg,
		logger:    o.logger,
		metrics:   o.metrics,
	}
}

// Answer answers question from the indexed documents. Any upstream failure
// is returned unchanged and no partial answer is produced. Elapsed covers
// the completion call only.
func (s *AnswerService) Answer(ctx context.Context, question string) (*domain.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.ErrEmptyQuestion
	}

	ctx, span := telemetry.StartSpan(ctx, "AnswerService.Answer", telemetry.SpanAttributes{
		Model:     s.cfg.Model,
		Operation: "answer",
	})
	defer span.End()

	answer, err := s.answer(ctx, question)
	s.metrics.RecordOperation("answer", err)
	if err != nil {
		span.SetError(err)
		s.logger.Error().Err(err).Msg("answer failed")
		return nil, err
	}

	return answer, nil
}

func (s *AnswerService) answer(ctx context.Context, question string) (*domain.Answer, error) {
	result, err := s.retriever.Retrieve(ctx, question)
	if err != nil {
		return nil, err
	}

	prompt := AssemblePrompt(question, result)

	start := time.Now()
	completion, err := s.generator.Complete(ctx, domain.CompletionRequest{
		Prompt:      prompt,
		Model:       s.cfg.Model,
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	})
	elapsed := time.Since(start)
	s.metrics.ObserveStage("generate", start)
	if err != nil {
		return nil, err
	}

	model := completion.Model
	if model == "" {
		model = s.cfg.Model
	}

	s.metrics.RecordUsage(completion.Usage.PromptTokens, completion.Usage.CompletionTokens, completion.Cost)
	s.logger.Info().
		Str("model", model).
		Int("retrieved", result.Len()).
		Int("total_tokens", completion.Usage.TotalTokens).
		Float64("cost", completion.Cost).
		Dur("elapsed", elapsed).
		Msg("answered question")

	return &domain.Answer{
		Question: question,
		Text:     completion.Text,
		Model:    model,
		Sources:  result.Sources(),
		Usage:    completion.Usage,
		Cost:     completion.Cost,
		Elapsed:  elapsed,
	}, nil
}
