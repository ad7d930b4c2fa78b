package service

import (
	"strings"

	"github.com/cloo-solutions/ragpipe/internal/domain"
)

// FallbackPhrase is what the model is told to answer when the context does
// not cover the question.
const FallbackPhrase = "I don't have enough information to answer this question"

// PromptTemplate has two slots, {context} and {question}.
const PromptTemplate = `
You are a helpful AI assistant answering questions about the indexed documents.
Use the following pieces of retrieved context to answer the user's question.
If you don't know the answer based on the context, say "` + FallbackPhrase + `" instead of making up an answer.
Always cite the sources of your information based on the document sources in the metadata.

Context:
{context}

Question: {question}

Answer in a comprehensive, educational and helpful manner:
`

// ContextSeparator joins chunk texts in the {context} slot.
const ContextSeparator = "\n\n"

// AssemblePrompt fills the template. Substitution is single pass, so slot
// markers inside the question or the chunks are left as they are.
func AssemblePrompt(question string, result *domain.RetrievalResult) string {
	joined := strings.Join(result.Texts(), ContextSeparator)
	return strings.NewReplacer("{context}", joined, "{question}", question).Replace(PromptTemplate)
}
