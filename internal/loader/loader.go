// Package loader reads documents from a directory tree.
package loader

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cloo-solutions/ragpipe/internal/domain"
	"github.com/gobwas/glob"
	"github.com/ledongthuc/pdf"
)

// DefaultGlob matches PDFs at any depth.
const DefaultGlob = "**/*.pdf"

// Options selects the files to load.
type Options struct {
	Dir  string
	Glob string
	// FirstID is the number given to the first loaded document, so ids stay
	// unique across repeated loads into the same collection.
	FirstID int
	// Skip, when set, excludes paths (as they would appear in SourcePath).
	Skip func(path string) bool
}

// Matcher matches slash separated paths relative to the load root.
type Matcher struct {
	patterns []glob.Glob
}

// NewMatcher compiles pattern. A leading "**/" also matches files directly
// under the root.
func NewMatcher(pattern string) (*Matcher, error) {
	if pattern == "" {
		pattern = DefaultGlob
	}
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("invalid glob %q: %w", pattern, err)
	}
	m := &Matcher{patterns: []glob.Glob{g}}
	if rest, ok := strings.CutPrefix(pattern, "**/"); ok {
		root, err := glob.Compile(rest, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid glob %q: %w", pattern, err)
		}
		m.patterns = append(m.patterns, root)
	}
	return m, nil
}

// Match reports whether rel matches.
func (m *Matcher) Match(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, g := range m.patterns {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// Load walks opts.Dir and returns one document per matching file, in
// lexical path order. PDFs go through text extraction, every other file is
// read as UTF-8 text. Files that yield no text are skipped.
func Load(ctx context.Context, opts Options) ([]domain.Document, error) {
	paths, err := Scan(opts.Dir, opts.Glob)
	if err != nil {
		return nil, err
	}

	docs := make([]domain.Document, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if opts.Skip != nil && opts.Skip(path) {
			continue
		}

		text, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		docs = append(docs, domain.Document{
			ID:         domain.DocumentID(opts.FirstID + len(docs)),
			Text:       text,
			SourcePath: path,
		})
	}

	return docs, nil
}

// Scan lists files under dir matching pattern, sorted.
func Scan(dir, pattern string) ([]string, error) {
	m, err := NewMatcher(pattern)
	if err != nil {
		return nil, err
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = path
		}
		if m.Match(rel) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	sort.Strings(paths)
	return paths, nil
}

// ReadFile extracts the text of a single file.
func ReadFile(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return readPDF(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF %s: %w", path, err)
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to extract page %d of %s: %w", i, path, err)
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

// FromStrings turns inline texts into documents without a source path.
func FromStrings(texts []string, firstID int) []domain.Document {
	docs := make([]domain.Document, 0, len(texts))
	for i, text := range texts {
		docs = append(docs, domain.Document{
			ID:   domain.DocumentID(firstID + i),
			Text: text,
		})
	}
	return docs
}
