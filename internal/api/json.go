package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"LiteratureHarvester/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errResponse{Error: err.Error()})
}

// statusFor maps the error taxonomy onto HTTP statuses: bad input is the
// caller's fault, missing artifacts are 404, upstream trouble is 502 and
// everything else an internal failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrBadInput):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
