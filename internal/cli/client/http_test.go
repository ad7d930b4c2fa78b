package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloo-solutions/ragpipe/internal/api"
	"github.com/cloo-solutions/ragpipe/internal/api/handlers"
	"github.com/cloo-solutions/ragpipe/internal/domain"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClient_Ask(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/ask", r.URL.Path)

		var req handlers.AskRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "What is RAG?", req.Question)

		api.Success(w, http.StatusOK, handlers.AskResponse{
			Question: req.Question,
			Answer:   "Retrieval then generation.",
			Sources:  []string{"document_0"},
			Usage:    domain.TokenUsage{TotalTokens: 42},
		})
	}))
	defer srv.Close()

	resp, err := NewAPIClient(srv.URL+"/", 0).Ask(context.Background(), "What is RAG?")

	require.NoError(t, err)
	assert.Equal(t, "Retrieval then generation.", resp.Answer)
	assert.Equal(t, []string{"document_0"}, resp.Sources)
	assert.Equal(t, 42, resp.Usage.TotalTokens)
}

func TestAPIClient_ErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.HandleError(w, domain.NewServiceError("openai", "complete", http.StatusTooManyRequests, errors.New("rate limited")))
	}))
	defer srv.Close()

	_, err := NewAPIClient(srv.URL, 0).Ask(context.Background(), "q")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, domain.ErrCodeRateLimited, apiErr.Code)
	assert.Contains(t, apiErr.Message, "rate limited")
	assert.Contains(t, err.Error(), "RATE_LIMITED")
}

func TestAPIClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewAPIClient(srv.URL, 0).Stats(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "bad gateway")
}

func TestAPIClient_RetrieveAndStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/retrieve":
			var req handlers.RetrieveRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, 3, req.K)
			api.Success(w, http.StatusOK, handlers.RetrieveResponse{
				Query:      req.Query,
				SearchType: "similarity",
				Chunks:     []*handlers.RetrievedChunkResponse{{Source: "a.pdf", Text: "alpha"}},
			})
		case "/stats":
			api.Success(w, http.StatusOK, domain.CollectionStats{Collection: "rag_abc123", Entries: 9})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL, 0)

	retrieved, err := c.Retrieve(context.Background(), handlers.RetrieveRequest{Query: "alpha", K: 3})
	require.NoError(t, err)
	require.Len(t, retrieved.Chunks, 1)
	assert.Equal(t, "a.pdf", retrieved.Chunks[0].Source)

	stats, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "rag_abc123", stats.Collection)
	assert.Equal(t, 9, stats.Entries)
}

func TestNewAPIClientWithCmd(t *testing.T) {
	t.Setenv(envAPIURL, "")

	cmd := &cobra.Command{}
	cmd.Flags().String("api-url", "", "")
	assert.Nil(t, NewAPIClientWithCmd(cmd))

	t.Setenv(envAPIURL, "http://env:8080")
	c := NewAPIClientWithCmd(cmd)
	require.NotNil(t, c)
	assert.Equal(t, "http://env:8080", c.baseURL)

	require.NoError(t, cmd.Flags().Set("api-url", "http://flag:9000/"))
	c = NewAPIClientWithCmd(cmd)
	require.NotNil(t, c)
	assert.Equal(t, "http://flag:9000", c.baseURL)
}
