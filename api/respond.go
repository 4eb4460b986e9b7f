package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"dubforge/fetch"
	"dubforge/pdf"
	"dubforge/storage"
)

// envelope is the standard response wrapper.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

// apiError is the wire shape of a failure.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// respondData writes a success envelope with a data payload.
func respondData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// respondMessage writes a success envelope with a message.
func respondMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: message})
}

// respondError writes a failure envelope with an explicit status and code.
func respondError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, envelope{Success: false, Error: &apiError{Code: code, Message: message}})
}

// writeError maps an error from the service layer onto the HTTP
// contract. Every handler funnels failures through here so the same
// error always produces the same status and code.
func writeError(w http.ResponseWriter, err error) {
	// Fetch taxonomy carries its own status and code
	if status, code, ok := fetch.HTTPStatus(err); ok {
		respondError(w, status, code, err.Error())
		return
	}

	switch {
	case errors.Is(err, pdf.ErrProjectRequired):
		respondError(w, http.StatusBadRequest, "MISSING_PARAMETER", "projectId is required")
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, storage.ErrAlreadyExists):
		respondError(w, http.StatusConflict, "ALREADY_EXISTS", err.Error())
	case errors.Is(err, storage.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}
}
