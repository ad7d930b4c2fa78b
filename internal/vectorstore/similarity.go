package vectorstore

import (
	"math"
	"sort"

	"github.com/cloo-solutions/ragpipe/internal/domain"
)

// Candidate is an index entry scored against a query.
type Candidate struct {
	Entry domain.IndexEntry
	Score float32
}

// CosineSimilarity returns a value between -1 and 1. Vectors of different
// length or zero norm score 0.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// Score computes the similarity of every entry to query, keeping entry order.
func Score(query domain.Vector, entries []domain.IndexEntry) []Candidate {
	out := make([]Candidate, len(entries))
	for i := range entries {
		out[i] = Candidate{Entry: entries[i], Score: CosineSimilarity(query, entries[i].Vector)}
	}
	return out
}

// TopK sorts candidates by descending score and keeps the first k. Equal
// scores keep their input order.
func TopK(cands []Candidate, k int) []Candidate {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].Score > cands[j].Score
	})
	if k >= 0 && k < len(cands) {
		cands = cands[:k]
	}
	return cands
}

// Select applies the search policy to candidates already ordered by
// descending relevance.
func Select(ranked []Candidate, opts domain.SearchOptions) []Candidate {
	if opts.Type == domain.SearchTypeMMR {
		return MMR(ranked, opts.K, opts.Lambda)
	}
	if opts.K < len(ranked) {
		return ranked[:opts.K]
	}
	return ranked
}

// ToResult converts selected candidates into a retrieval result.
func ToResult(cands []Candidate) *domain.RetrievalResult {
	res := &domain.RetrievalResult{Chunks: make([]domain.RetrievedChunk, 0, len(cands))}
	for _, c := range cands {
		res.Chunks = append(res.Chunks, domain.RetrievedChunk{Chunk: c.Entry.Chunk, Score: c.Score})
	}
	return res
}
