package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"lingoquest/internal/logger"
	"lingoquest/internal/progress"
	"lingoquest/internal/service"
	"lingoquest/internal/validation"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// respondWithError writes a JSON error and logs the cause, if any
func respondWithError(w http.ResponseWriter, log *logger.Logger, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		if status >= http.StatusInternalServerError {
			log.Error(logMsg, "status", status, "error", err)
		} else {
			log.Debug(logMsg, "status", status, "error", err)
		}
	}

	respondJSON(w, status, errorResponse{Error: userMsg})
}

// respondWithServiceError maps a service error to a status code
func respondWithServiceError(w http.ResponseWriter, log *logger.Logger, logMsg string, err error) {
	var verr validation.ValidationError
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Message, Field: verr.Field})
	case errors.Is(err, service.ErrLearnerNotFound):
		respondWithError(w, log, http.StatusNotFound, ErrLearnerNotFound, "", nil)
	case errors.Is(err, progress.ErrInvalidOutcome):
		respondWithError(w, log, http.StatusUnprocessableEntity, err.Error(), logMsg, err)
	case errors.Is(err, service.ErrEmptyText):
		respondWithError(w, log, http.StatusBadRequest, "Text is required", logMsg, err)
	default:
		respondWithError(w, log, http.StatusInternalServerError, ErrInternalServerError, logMsg, err)
	}
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// decodeJSON reads a bounded JSON body into dst. Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("body must contain a single JSON object")
	}
	return nil
}

// decodeOptionalJSON is decodeJSON that accepts an empty body
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	err := decodeJSON(w, r, dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
