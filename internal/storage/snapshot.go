package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/cloo-solutions/ragpipe/internal/vectorstore"
	"github.com/rs/zerolog"
)

// ObjectStore is the bucket a snapshot is written to.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, body io.Reader, size int64) error
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)
}

// ErrCollectionExists is returned by Pull when the collection is already
// present locally and overwrite was not requested.
var ErrCollectionExists = errors.New("collection already exists locally")

// snapshotFiles are copied in this order. The manifest goes last on push so
// a partially pushed snapshot is never pulled.
var snapshotFiles = []string{vectorstore.EntriesFile, vectorstore.ManifestFile}

// Snapshotter copies file-backed collections to and from an object store.
type Snapshotter struct {
	store  ObjectStore
	prefix string
	logger zerolog.Logger
}

func NewSnapshotter(store ObjectStore, prefix string, logger zerolog.Logger) *Snapshotter {
	return &Snapshotter{store: store, prefix: prefix, logger: logger}
}

func (s *Snapshotter) key(collection, file string) string {
	return path.Join(s.prefix, collection, file)
}

// Push uploads the collection stored under persistDir. The store must not be
// written to while the push runs.
func (s *Snapshotter) Push(ctx context.Context, persistDir, collection string) error {
	if !vectorstore.Exists(persistDir, collection) {
		return fmt.Errorf("collection %q not found in %s", collection, persistDir)
	}
	dir := vectorstore.CollectionDir(persistDir, collection)

	for _, name := range snapshotFiles {
		if err := s.pushFile(ctx, filepath.Join(dir, name), s.key(collection, name)); err != nil {
			return err
		}
	}

	s.logger.Info().Str("collection", collection).Msg("snapshot pushed")
	return nil
}

func (s *Snapshotter) pushFile(ctx context.Context, localPath, key string) error {
	f, err := os.Open(localPath)
	if errors.Is(err, os.ErrNotExist) {
		// An empty collection has no entries file yet.
		return s.store.PutObject(ctx, key, eofReader{}, 0)
	}
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", localPath, err)
	}
	return s.store.PutObject(ctx, key, f, info.Size())
}

// Pull downloads a collection into persistDir. Files are written next to
// their destination and renamed into place once complete.
func (s *Snapshotter) Pull(ctx context.Context, persistDir, collection string, overwrite bool) error {
	if vectorstore.Exists(persistDir, collection) && !overwrite {
		return fmt.Errorf("%q: %w", collection, ErrCollectionExists)
	}
	dir := vectorstore.CollectionDir(persistDir, collection)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create collection dir: %w", err)
	}

	// Manifest first: if it is missing there is no snapshot to pull.
	for _, name := range []string{vectorstore.ManifestFile, vectorstore.EntriesFile} {
		if err := s.pullFile(ctx, s.key(collection, name), filepath.Join(dir, name)); err != nil {
			return err
		}
	}

	s.logger.Info().Str("collection", collection).Msg("snapshot pulled")
	return nil
}

func (s *Snapshotter) pullFile(ctx context.Context, key, localPath string) error {
	body, err := s.store.GetObject(ctx, key)
	if err != nil {
		return err
	}
	defer body.Close()

	tmp, err := os.CreateTemp(filepath.Dir(localPath), filepath.Base(localPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to download %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", localPath, err)
	}
	if err := os.Rename(tmp.Name(), localPath); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", localPath, err)
	}
	return nil
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
