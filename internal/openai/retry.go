package openai

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloo-solutions/ragpipe/internal/domain"
	"github.com/rs/zerolog"
)

// Backend is what Retrying decorates.
type Backend interface {
	Embed(ctx context.Context, text string) (domain.Vector, error)
	Complete(ctx context.Context, req domain.CompletionRequest) (*domain.Completion, error)
}

// RetryConfig controls the exponential backoff applied on rate limiting.
type RetryConfig struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Retrying retries calls that fail with *domain.RateLimitError. Every other
// error is returned immediately and unchanged.
type Retrying struct {
	next   Backend
	cfg    RetryConfig
	logger zerolog.Logger
}

// NewRetrying wraps next. A zero MaxRetries disables retrying.
func NewRetrying(next Backend, cfg RetryConfig, logger zerolog.Logger) *Retrying {
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 500 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 30 * time.Second
	}
	return &Retrying{next: next, cfg: cfg, logger: logger}
}

func (r *Retrying) Embed(ctx context.Context, text string) (domain.Vector, error) {
	return retry(ctx, r, "embed", func() (domain.Vector, error) {
		return r.next.Embed(ctx, text)
	})
}

func (r *Retrying) Complete(ctx context.Context, req domain.CompletionRequest) (*domain.Completion, error) {
	return retry(ctx, r, "complete", func() (*domain.Completion, error) {
		return r.next.Complete(ctx, req)
	})
}

func (r *Retrying) policy(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.cfg.InitialInterval
	eb.MaxInterval = r.cfg.MaxInterval
	eb.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(eb, r.cfg.MaxRetries), ctx)
}

func retry[T any](ctx context.Context, r *Retrying, op string, fn func() (T, error)) (T, error) {
	if r.cfg.MaxRetries == 0 {
		return fn()
	}

	attempt := 0
	return backoff.RetryNotifyWithData(func() (T, error) {
		attempt++
		v, err := fn()
		if err != nil && !domain.IsRateLimit(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, r.policy(ctx), func(err error, wait time.Duration) {
		r.logger.Warn().
			Err(err).
			Str("op", op).
			Int("attempt", attempt).
			Dur("wait", wait).
			Msg("rate limited, backing off")
	})
}
