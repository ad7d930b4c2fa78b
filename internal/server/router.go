package server

import (
	"net/http"

	"github.com/cloo-solutions/ragpipe/internal/api"
	"github.com/cloo-solutions/ragpipe/internal/api/handlers"
	"github.com/cloo-solutions/ragpipe/internal/api/middleware"
	"github.com/cloo-solutions/ragpipe/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type RouterConfig struct {
	// Collection tags traces with the collection being served.
	Collection       string
	Logger           zerolog.Logger
	Metrics          *metrics.Metrics
	AskHandler       *handlers.AskHandler
	RetrieveHandler  *handlers.RetrieveHandler
	DocumentsHandler *handlers.DocumentsHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(cfg.Collection))
	r.Use(middleware.AccessLog(cfg.Logger))
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())

	r.Post("/ask", cfg.AskHandler.Ask)
	r.Post("/retrieve", cfg.RetrieveHandler.Retrieve)
	r.Post("/documents", cfg.DocumentsHandler.Create)
	r.Get("/stats", cfg.DocumentsHandler.Stats)

	return r
}
