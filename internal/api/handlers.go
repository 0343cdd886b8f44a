package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"LiteratureHarvester/internal/apperr"
	"LiteratureHarvester/internal/usecase"
)

// QueryService answers abstract queries and hands out the latest report.
type QueryService interface {
	AbstractQuery(ctx context.Context, query string, topN int) (usecase.QueryResult, error)
	LatestReport() (string, []byte, error)
}

// Restorer replays a single archived page back into the catalog.
type Restorer interface {
	RestoreFromArchive(ctx context.Context, key string) (int, error)
}

type Handlers struct {
	query    QueryService
	restorer Restorer
	topN     int
	logger   *slog.Logger
}

type HandlersDeps struct {
	Query    QueryService
	Restorer Restorer
	TopN     int
	Logger   *slog.Logger
}

func NewHandlers(deps HandlersDeps) *Handlers {
	return &Handlers{
		query:    deps.Query,
		restorer: deps.Restorer,
		topN:     deps.TopN,
		logger:   deps.Logger,
	}
}

type abstractQueryRequest struct {
	Query string `json:"query"`
	TopN  int    `json:"top_n,omitempty"`
}

type abstractQueryResponse struct {
	Summary   string           `json:"summary"`
	Documents []matchedDocument `json:"documents"`
}

type matchedDocument struct {
	Title string `json:"title"`
	DOI   string `json:"doi,omitempty"`
	Date  string `json:"date"`
}

func (h *Handlers) handleAbstractQuery(w http.ResponseWriter, r *http.Request) {
	var req abstractQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("decode request: %w", apperr.ErrBadInput))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, fmt.Errorf("query is required: %w", apperr.ErrBadInput))
		return
	}
	topN := req.TopN
	if topN <= 0 {
		topN = h.topN
	}

	res, err := h.query.AbstractQuery(r.Context(), req.Query, topN)
	if err != nil {
		h.logError(r, err)
		writeError(w, err)
		return
	}

	resp := abstractQueryResponse{Summary: res.Summary, Documents: make([]matchedDocument, 0, len(res.Documents))}
	for _, d := range res.Documents {
		doc := matchedDocument{Title: d.Title, Date: d.Date}
		if d.DOI != nil {
			doc.DOI = *d.DOI
		}
		resp.Documents = append(resp.Documents, doc)
	}
	writeJSON(w, http.StatusOK, resp)
}

type ingestRequest struct {
	Key string `json:"key"`
}

type ingestResponse struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

func (h *Handlers) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("decode request: %w", apperr.ErrBadInput))
		return
	}
	if strings.TrimSpace(req.Key) == "" {
		writeError(w, fmt.Errorf("key is required: %w", apperr.ErrBadInput))
		return
	}

	count, err := h.restorer.RestoreFromArchive(r.Context(), req.Key)
	if err != nil {
		h.logError(r, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{Status: "Ingested", Count: count})
}

func (h *Handlers) handleLiteratureSummary(w http.ResponseWriter, r *http.Request) {
	name, body, err := h.query.LatestReport()
	if err != nil {
		h.logError(r, err)
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.logError(r, err)
	}
}

func (h *Handlers) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) logError(r *http.Request, err error) {
	if h.logger == nil {
		return
	}
	h.logger.Warn("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
}
