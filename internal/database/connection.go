// Package database opens the PostgreSQL pool backing the pgvector index and
// applies schema migrations.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds database connection configuration. Zero values keep the pgx
// defaults.
type Config struct {
	URL      string
	MaxConns int32
	MinConns int32
	// ConnectTimeout bounds how long NewPool keeps retrying the first ping.
	ConnectTimeout time.Duration
}

const defaultConnectTimeout = 10 * time.Second

// NewPool creates a pgx pool and pings it until the server answers or
// ConnectTimeout elapses, so the daemon can start alongside its database.
func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 250 * time.Millisecond
	policy.MaxElapsedTime = timeout

	if err := backoff.Retry(func() error { return pool.Ping(ctx) }, backoff.WithContext(policy, ctx)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
