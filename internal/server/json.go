package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/ecoquest/ecoquest/internal/ecoquest"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error  string                `json:"error"`
	Fields []ecoquest.FieldError `json:"fields,omitempty"`
}

const maxBodyBytes = 8 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

// readOptionalJSON is readJSON for endpoints whose body may be empty.
func readOptionalJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if err := readJSON(w, r, v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func writeValidationError(w http.ResponseWriter, fields []ecoquest.FieldError) {
	ve := &ecoquest.ValidationError{Fields: fields}
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: ve.Error(), Fields: fields})
}

// writeServiceError maps domain errors to HTTP responses. Unclassified
// errors are logged and hidden behind a generic message.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var ve *ecoquest.ValidationError
	switch {
	case errors.Is(err, ecoquest.ErrUpstream):
		logger.Error("upstream failure", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate quest, try again")
	case errors.As(err, &ve):
		writeValidationError(w, ve.Fields)
	case errors.Is(err, ecoquest.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ecoquest.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ecoquest.ErrActiveHuntExists),
		errors.Is(err, ecoquest.ErrHuntNotActive),
		errors.Is(err, ecoquest.ErrHuntNotPaused):
		writeError(w, http.StatusConflict, err.Error())
	default:
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
