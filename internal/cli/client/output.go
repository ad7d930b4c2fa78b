package client

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloo-solutions/ragpipe/internal/api/handlers"
	"github.com/cloo-solutions/ragpipe/internal/domain"
	"github.com/cloo-solutions/ragpipe/internal/service"
)

const previewRunes = 150

func printJSON(w io.Writer, v interface{}) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

func printAnswer(w io.Writer, a *handlers.AskResponse) {
	fmt.Fprintf(w, "Response: %s\n", a.Answer)
	fmt.Fprintf(w, "\nToken usage: %d tokens\n", a.Usage.TotalTokens)
	fmt.Fprintf(w, "Cost: $%.5f\n", a.Cost)
	fmt.Fprintf(w, "Time: %.2f seconds\n", (time.Duration(a.ElapsedMS) * time.Millisecond).Seconds())

	if len(a.Sources) > 0 {
		fmt.Fprintln(w, "\nSources:")
		for _, source := range a.Sources {
			fmt.Fprintf(w, "- %s\n", source)
		}
	}
}

// printRetrieval shows at most show chunks; show <= 0 shows all of them.
func printRetrieval(w io.Writer, r *handlers.RetrieveResponse, show int) {
	fmt.Fprintf(w, "Query: %s\n", r.Query)
	if len(r.Chunks) == 0 {
		fmt.Fprintln(w, "No documents retrieved")
		return
	}

	fmt.Fprintf(w, "Retrieved %d documents\n", len(r.Chunks))

	chunks := r.Chunks
	if show > 0 && show < len(chunks) {
		chunks = chunks[:show]
	}
	for i, c := range chunks {
		source := c.Source
		if source == "" {
			source = "unknown"
		}
		fmt.Fprintf(w, "\nDocument %d:\n", i+1)
		fmt.Fprintf(w, "Source: %s\n", source)
		fmt.Fprintf(w, "Content: %s...\n", preview(c.Text, previewRunes))
	}
}

func printStats(w io.Writer, s *domain.CollectionStats) {
	fmt.Fprintf(w, "Vector store created with %d documents\n", s.Entries)
	fmt.Fprintf(w, "Embedding dimensions: %d\n", s.Dimension)
	fmt.Fprintf(w, "Collection name: %s\n", s.Collection)
	fmt.Fprintf(w, "Source documents: %d\n", s.Documents)
	fmt.Fprintf(w, "Backend: %s\n", s.Backend)
}

func printIngest(w io.Writer, r *service.IngestResult) {
	if r.Documents == 0 {
		fmt.Fprintln(w, "No new documents to ingest")
		return
	}
	fmt.Fprintf(w, "Processed %d documents into %d chunks\n", r.Documents, r.Chunks)
}

func printEstimate(w io.Writer, e *service.IngestEstimate) {
	fmt.Fprintf(w, "Processed %d documents into %d chunks\n", e.Documents, e.Chunks)
	fmt.Fprintf(w, "Embedding tokens: %d (%s)\n", e.Tokens, e.Model)
	fmt.Fprintf(w, "Estimated cost: $%.5f\n", e.Cost)
}

// preview returns the first n runes of s on a single line.
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes)
}
