package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the HTTP surface of the service.
func NewRouter(h *Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Post("/abstract-query", h.handleAbstractQuery)
	r.Post("/ingest", h.handleIngest)
	r.Get("/literature-summary", h.handleLiteratureSummary)
	r.Get("/healthz", h.handleHealthz)

	return r
}
