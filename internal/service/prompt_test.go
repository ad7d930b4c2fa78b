package service

import (
	"strings"
	"testing"

	"github.com/cloo-solutions/ragpipe/internal/domain"
	"github.com/stretchr/testify/assert"
)

func retrieved(texts ...string) *domain.RetrievalResult {
	res := &domain.RetrievalResult{}
	for _, text := range texts {
		res.Chunks = append(res.Chunks, domain.RetrievedChunk{Chunk: domain.Chunk{Text: text}})
	}
	return res
}

func TestAssemblePrompt_ContainsQuestionAndChunks(t *testing.T) {
	prompt := AssemblePrompt("What is RAG?", retrieved("RAG combines retrieval with generation.", "Second chunk."))

	assert.Contains(t, prompt, "Question: What is RAG?")
	assert.Contains(t, prompt, "RAG combines retrieval with generation.\n\nSecond chunk.")
	assert.NotContains(t, prompt, "{context}")
	assert.NotContains(t, prompt, "{question}")
}

func TestAssemblePrompt_FallbackPhraseAlwaysPresent(t *testing.T) {
	inputs := []struct {
		question string
		result   *domain.RetrievalResult
	}{
		{"What is RAG?", retrieved("chunk")},
		{"", nil},
		{"{context}", retrieved()},
		{strings.Repeat("x", 5000), retrieved("a", "b", "c")},
	}

	for _, in := range inputs {
		prompt := AssemblePrompt(in.question, in.result)
		assert.Contains(t, prompt, FallbackPhrase)
		assert.Contains(t, prompt, "cite the sources")
	}
}

func TestAssemblePrompt_SlotMarkersInInputAreNotExpanded(t *testing.T) {
	prompt := AssemblePrompt("what is {question}?", retrieved("literal {context} marker"))

	assert.Contains(t, prompt, "Question: what is {question}?")
	assert.Contains(t, prompt, "literal {context} marker")
}

func TestAssemblePrompt_Deterministic(t *testing.T) {
	res := retrieved("a", "b")
	assert.Equal(t, AssemblePrompt("q", res), AssemblePrompt("q", res))
}
