package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/waypoint/internal/apperr"
	"github.com/starford/waypoint/internal/checksum"
)

const maxBodySize = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

// writeRecord writes a single record with an ETag. A matching If-None-Match
// on a GET yields 304.
func writeRecord(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody(apperr.Tag(err), "internal error"))
		return
	}
	etag := checksum.ETag(data)
	w.Header().Set("ETag", etag)
	if r.Method == http.MethodGet && checksum.Match(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
	Kind  string `json:"kind" example:"not_found" validate:"required"`
}

func errorBody(kind, msg string) errResponse {
	return errResponse{Error: msg, Kind: kind}
}

// writeError maps a store error to its status code and tagged body.
// Errors without a known kind are logged and reported as internal.
func writeError(w http.ResponseWriter, op string, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody(apperr.Tag(err), "internal error"))
		return
	}
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperr.ErrUnauthorized):
		status = http.StatusForbidden
	}
	writeJSON(w, status, errorBody(apperr.Tag(err), ae.Msg))
}

// decodeBody reads a JSON request body into v, answering 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(apperr.Tag(apperr.ErrValidation), "invalid JSON body"))
		return false
	}
	return true
}
