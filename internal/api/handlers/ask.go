package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/ragpipe/internal/api"
	"github.com/cloo-solutions/ragpipe/internal/domain"
)

type Answerer interface {
	Answer(ctx context.Context, question string) (*domain.Answer, error)
}

type AskHandler struct {
	svc Answerer
}

func NewAskHandler(svc Answerer) *AskHandler {
	return &AskHandler{svc: svc}
}

type AskRequest struct {
	Question string `json:"question" validate:"required,max=4000"`
}

type AskResponse struct {
	Question  string            `json:"question"`
	Answer    string            `json:"answer"`
	Model     string            `json:"model"`
	Sources   []string          `json:"sources"`
	Usage     domain.TokenUsage `json:"usage"`
	Cost      float64           `json:"cost"`
	ElapsedMS int64             `json:"elapsed_ms"`
}

// NewAskResponse converts an answer into its wire form.
func NewAskResponse(a *domain.Answer) *AskResponse {
	sources := a.Sources
	if sources == nil {
		sources = []string{}
	}
	return &AskResponse{
		Question:  a.Question,
		Answer:    a.Text,
		Model:     a.Model,
		Sources:   sources,
		Usage:     a.Usage,
		Cost:      a.Cost,
		ElapsedMS: a.Elapsed.Milliseconds(),
	}
}

func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := decodeRequest(r, &req); err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	answer, err := h.svc.Answer(r.Context(), req.Question)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, NewAskResponse(answer))
}
