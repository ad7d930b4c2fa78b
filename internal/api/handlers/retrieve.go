package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/ragpipe/internal/api"
	"github.com/cloo-solutions/ragpipe/internal/domain"
)

type ChunkRetriever interface {
	SearchOptions() domain.SearchOptions
	RetrieveWith(ctx context.Context, query string, opts domain.SearchOptions) (*domain.RetrievalResult, error)
}

type RetrieveHandler struct {
	svc ChunkRetriever
}

func NewRetrieveHandler(svc ChunkRetriever) *RetrieveHandler {
	return &RetrieveHandler{svc: svc}
}

// RetrieveRequest overrides the configured search policy field by field.
type RetrieveRequest struct {
	Query      string   `json:"query" validate:"required,max=4000"`
	SearchType string   `json:"search_type" validate:"omitempty,oneof=similarity mmr"`
	K          int      `json:"k" validate:"omitempty,min=1,max=100"`
	FetchK     int      `json:"fetch_k" validate:"omitempty,min=1,max=1000"`
	Lambda     *float32 `json:"lambda" validate:"omitempty,min=0,max=1"`
}

// Apply overlays the non-zero request fields on opts.
func (req *RetrieveRequest) Apply(opts domain.SearchOptions) domain.SearchOptions {
	if req.SearchType != "" {
		opts.Type = domain.SearchType(req.SearchType)
	}
	if req.K > 0 {
		opts.K = req.K
		if opts.FetchK < opts.K {
			opts.FetchK = opts.K
		}
	}
	if req.FetchK > 0 {
		opts.FetchK = req.FetchK
	}
	if req.Lambda != nil {
		opts.Lambda = *req.Lambda
	}
	return opts
}

type RetrievedChunkResponse struct {
	ID      string  `json:"id"`
	ChunkID int64   `json:"chunk_id"`
	Source  string  `json:"source"`
	Text    string  `json:"text"`
	Score   float32 `json:"score"`
}

type RetrieveResponse struct {
	Query      string                    `json:"query"`
	SearchType string                    `json:"search_type"`
	Chunks     []*RetrievedChunkResponse `json:"chunks"`
}

// NewRetrieveResponse converts a retrieval result into its wire form.
func NewRetrieveResponse(query string, searchType domain.SearchType, result *domain.RetrievalResult) *RetrieveResponse {
	chunks := make([]*RetrievedChunkResponse, 0, result.Len())
	if result != nil {
		for _, c := range result.Chunks {
			chunks = append(chunks, &RetrievedChunkResponse{
				ID:      c.Chunk.ID,
				ChunkID: c.Chunk.Metadata.ChunkID,
				Source:  c.Chunk.Metadata.Source,
				Text:    c.Chunk.Text,
				Score:   c.Score,
			})
		}
	}
	return &RetrieveResponse{
		Query:      query,
		SearchType: string(searchType),
		Chunks:     chunks,
	}
}

func (h *RetrieveHandler) Retrieve(w http.ResponseWriter, r *http.Request) {
	var req RetrieveRequest
	if err := decodeRequest(r, &req); err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := req.Apply(h.svc.SearchOptions())
	result, err := h.svc.RetrieveWith(r.Context(), req.Query, opts)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, NewRetrieveResponse(req.Query, opts.Type, result))
}
