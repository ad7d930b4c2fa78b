// Package testutil starts the containers used by integration tests.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/cloo-solutions/ragpipe/internal/database"
	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	pgvectorImage = "pgvector/pgvector:0.8.1-pg18"
	pgUser        = "ragpipe"
	pgPassword    = "ragpipe"
	pgDatabase    = "ragpipe"

	rustfsImage = "rustfs/rustfs:latest"
	// S3AccessKey and S3SecretKey are the credentials of the container
	// started by StartS3.
	S3AccessKey = "rustfsadmin"
	S3SecretKey = "rustfsadmin"
)

// startContainer starts req and returns host:port of the mapped port. The
// container is removed when the test ends.
func startContainer(ctx context.Context, t *testing.T, req testcontainers.ContainerRequest, port string) string {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start %s: %v", req.Image, err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	mapped, err := container.MappedPort(ctx, nat.Port(port))
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}
	return fmt.Sprintf("%s:%s", host, mapped.Port())
}

// StartPgvector starts PostgreSQL with the pgvector extension, applies the
// migrations in migrationsDir and returns a pool released with the test.
func StartPgvector(ctx context.Context, t *testing.T, migrationsDir string) *pgxpool.Pool {
	t.Helper()

	addr := startContainer(ctx, t, testcontainers.ContainerRequest{
		Image:        pgvectorImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     pgUser,
			"POSTGRES_PASSWORD": pgPassword,
			"POSTGRES_DB":       pgDatabase,
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		).WithStartupTimeout(60 * time.Second),
	}, "5432")

	url := fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", pgUser, pgPassword, addr, pgDatabase)

	abs, err := filepath.Abs(migrationsDir)
	if err != nil {
		t.Fatalf("failed to resolve migrations dir: %v", err)
	}
	if err := database.Migrate(url, "file://"+filepath.ToSlash(abs), zerolog.Nop()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	pool, err := database.NewPool(ctx, database.Config{URL: url, ConnectTimeout: 15 * time.Second})
	if err != nil {
		t.Fatalf("failed to connect to pgvector: %v", err)
	}
	t.Cleanup(pool.Close)

	return pool
}

// StartS3 starts an S3-compatible RustFS server and returns its endpoint URL.
func StartS3(ctx context.Context, t *testing.T) string {
	t.Helper()

	addr := startContainer(ctx, t, testcontainers.ContainerRequest{
		Image:        rustfsImage,
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"RUSTFS_ACCESS_KEY": S3AccessKey,
			"RUSTFS_SECRET_KEY": S3SecretKey,
		},
		WaitingFor: wait.ForListeningPort("9000/tcp").WithStartupTimeout(30 * time.Second),
	}, "9000")

	return "http://" + addr
}
