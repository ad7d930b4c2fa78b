package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cloo-solutions/ragpipe/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestMatcher(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"**/*.pdf", "a.pdf", true},
		{"**/*.pdf", "sub/dir/a.pdf", true},
		{"**/*.pdf", "a.txt", false},
		{"*.txt", "a.txt", true},
		{"*.txt", "sub/a.txt", false},
		{"notes/**/*.md", "notes/x/y.md", true},
		{"**/*.{md,txt}", "deep/a.md", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.path, func(t *testing.T) {
			m, err := NewMatcher(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Match(tt.path))
		})
	}
}

func TestNewMatcher_Invalid(t *testing.T) {
	_, err := NewMatcher("[")
	assert.Error(t, err)
}

func TestLoad_TextFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.txt"), "Fine-tuning updates model weights.")
	writeFile(t, filepath.Join(dir, "a.txt"), "RAG combines retrieval with generation.")
	writeFile(t, filepath.Join(dir, "nested", "c.txt"), "Nested document.")
	writeFile(t, filepath.Join(dir, "empty.txt"), "  \n")
	writeFile(t, filepath.Join(dir, "skip.md"), "not matched")

	docs, err := Load(context.Background(), Options{Dir: dir, Glob: "**/*.txt", FirstID: 3})

	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, domain.Document{ID: "document_3", Text: "RAG combines retrieval with generation.", SourcePath: filepath.Join(dir, "a.txt")}, docs[0])
	assert.Equal(t, "document_4", docs[1].ID)
	assert.Equal(t, filepath.Join(dir, "nested", "c.txt"), docs[2].SourcePath)
}

func TestLoad_Skip(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "first")
	writeFile(t, filepath.Join(dir, "b.txt"), "second")

	skipped := filepath.Join(dir, "a.txt")
	docs, err := Load(context.Background(), Options{
		Dir:  dir,
		Glob: "*.txt",
		Skip: func(path string) bool { return path == skipped },
	})

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "second", docs[0].Text)
	assert.Equal(t, "document_0", docs[0].ID)
}

func TestLoad_MissingDir(t *testing.T) {
	_, err := Load(context.Background(), Options{Dir: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

func TestLoad_CanceledContext(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "first")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Load(ctx, Options{Dir: dir, Glob: "*.txt"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadFile_InvalidPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	writeFile(t, path, "this is not a pdf")

	_, err := ReadFile(path)
	assert.Error(t, err)
}

func TestFromStrings(t *testing.T) {
	docs := FromStrings([]string{"RAG combines retrieval with generation.", "Fine-tuning updates model weights."}, 0)

	require.Len(t, docs, 2)
	assert.Equal(t, "document_0", docs[0].ID)
	assert.Equal(t, "document_1", docs[1].ID)
	assert.Equal(t, "document_0", docs[0].Source())
	assert.Empty(t, docs[1].SourcePath)
}
