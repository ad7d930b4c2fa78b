package vectorstore

import (
	"math"
	"testing"

	"github.com/cloo-solutions/ragpipe/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(text string, score float32, vec ...float32) Candidate {
	return Candidate{
		Entry: domain.IndexEntry{Vector: vec, Chunk: domain.Chunk{Text: text}},
		Score: score,
	}
}

func texts(cands []Candidate) []string {
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.Entry.Chunk.Text)
	}
	return out
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2, 3}, []float32{2, 4, 6}), 1e-6)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.Zero(t, CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}))
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}

func TestTopK_StableOnTies(t *testing.T) {
	cands := []Candidate{
		candidate("a", 0.5),
		candidate("b", 0.9),
		candidate("c", 0.5),
		candidate("d", 0.9),
	}

	got := TopK(cands, 3)

	assert.Equal(t, []string{"b", "d", "a"}, texts(got))
}

func TestMMR_LambdaOneEqualsTopK(t *testing.T) {
	ranked := []Candidate{
		candidate("a", 0.95, 1, 0),
		candidate("a-dup", 0.94, 1, 0.01),
		candidate("b", 0.60, 0, 1),
		candidate("c", 0.40, 0.7, 0.7),
	}

	got := MMR(append([]Candidate(nil), ranked...), 3, 1)

	assert.Equal(t, texts(ranked[:3]), texts(got))
}

func TestMMR_LambdaZeroMaximizesDiversity(t *testing.T) {
	ranked := []Candidate{
		candidate("a", 0.95, 1, 0),
		candidate("a-dup", 0.94, 1, 0.01),
		candidate("b", 0.60, 0, 1),
	}

	got := MMR(ranked, 2, 0)

	// The first pick is the most relevant; the second is the one least
	// similar to it.
	assert.Equal(t, []string{"a", "b"}, texts(got))
}

func TestMMR_LambdaZeroEachPickMinimizesMaxSimilarity(t *testing.T) {
	ranked := []Candidate{
		candidate("x", 0.9, 1, 0, 0),
		candidate("x2", 0.8, 0.9, 0.1, 0),
		candidate("y", 0.7, 0, 1, 0),
		candidate("z", 0.6, 0, 0, 1),
	}

	got := MMR(ranked, 3, 0)
	require.Len(t, got, 3)

	for i := 1; i < len(got); i++ {
		pickedRedundancy := maxSimTo(got[i], got[:i])
		for _, c := range ranked {
			if contains(got[:i+1], c) {
				continue
			}
			assert.LessOrEqual(t, pickedRedundancy, maxSimTo(c, got[:i]))
		}
	}
	assert.Equal(t, []string{"x", "y", "z"}, texts(got))
}

func TestMMR_Bounds(t *testing.T) {
	ranked := []Candidate{candidate("a", 0.9, 1, 0), candidate("b", 0.1, 0, 1)}

	assert.Len(t, MMR(ranked, 5, 0.5), 2)
	assert.Empty(t, MMR(ranked, 0, 0.5))
	assert.Empty(t, MMR(nil, 3, 0.5))
}

func TestMMR_NaNScoresDoNotPanic(t *testing.T) {
	nan := float32(math.NaN())
	ranked := []Candidate{candidate("a", nan, 1, 0), candidate("b", nan, 0, 1)}

	var picked []Candidate
	require.NotPanics(t, func() { picked = MMR(ranked, 1, 0.5) })
	assert.Empty(t, picked)
}

func maxSimTo(c Candidate, selected []Candidate) float32 {
	best := float32(-2)
	for _, s := range selected {
		if sim := CosineSimilarity(c.Entry.Vector, s.Entry.Vector); sim > best {
			best = sim
		}
	}
	return best
}

func contains(cands []Candidate, c Candidate) bool {
	for _, x := range cands {
		if x.Entry.Chunk.Text == c.Entry.Chunk.Text {
			return true
		}
	}
	return false
}
