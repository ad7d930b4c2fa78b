//go:build integration

package storage

import (
	"context"
	"testing"

	"github.com/cloo-solutions/ragpipe/internal/testutil"
	"github.com/cloo-solutions/ragpipe/internal/vectorstore"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Client_SnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	endpoint := testutil.StartS3(ctx, t)

	client, err := NewS3Client(ctx, S3ClientConfig{
		Endpoint:        endpoint,
		Region:          "us-east-1",
		AccessKeyID:     testutil.S3AccessKey,
		SecretAccessKey: testutil.S3SecretKey,
		Bucket:          "ragpipe-test",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	require.NoError(t, client.EnsureBucket(ctx))

	src, dst := t.TempDir(), t.TempDir()
	seedCollection(t, src)

	snap := NewSnapshotter(client, "collections", zerolog.Nop())
	require.NoError(t, snap.Push(ctx, src, "rag_snap"))
	require.NoError(t, snap.Pull(ctx, dst, "rag_snap", false))

	pulled, err := vectorstore.Open(dst, "rag_snap", 2)
	require.NoError(t, err)
	defer pulled.Close()
	assert.Equal(t, 1, pulled.Count())

	_, err = client.GetObject(ctx, "collections/rag_missing/manifest.json")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}
