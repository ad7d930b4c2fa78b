package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/ragpipe/internal/api"
	"github.com/cloo-solutions/ragpipe/internal/domain"
	"github.com/cloo-solutions/ragpipe/internal/service"
)

type DocumentIngester interface {
	IngestTexts(ctx context.Context, texts []string) (*service.IngestResult, error)
}

type StatsProvider interface {
	Stats(ctx context.Context) (*domain.CollectionStats, error)
}

type DocumentsHandler struct {
	ingester DocumentIngester
	stats    StatsProvider
}

func NewDocumentsHandler(ingester DocumentIngester, stats StatsProvider) *DocumentsHandler {
	return &DocumentsHandler{ingester: ingester, stats: stats}
}

type IngestTextsRequest struct {
	Texts []string `json:"texts" validate:"required,min=1,max=256,dive,required"`
}

// Create ingests raw texts as new documents.
func (h *DocumentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req IngestTextsRequest
	if err := decodeRequest(r, &req); err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.ingester.IngestTexts(r.Context(), req.Texts)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, result)
}

func (h *DocumentsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, stats)
}
