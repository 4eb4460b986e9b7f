package api

import (
	"encoding/json"
	"net/http"

	"dubforge/tts"
)

// estimateRequest is the TTS estimate payload.
type estimateRequest struct {
	Text     string `json:"text"`
	Provider string `json:"provider"`
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "malformed JSON body")
		return
	}

	if req.Text == "" {
		respondError(w, http.StatusBadRequest, "MISSING_PARAMETER", "text is required")
		return
	}
	if req.Provider == "" {
		req.Provider = "fal"
	}

	provider, err := tts.Get(req.Provider)
	if err != nil {
		respondError(w, http.StatusBadRequest, "UNKNOWN_PROVIDER", err.Error())
		return
	}

	respondData(w, http.StatusOK, provider.Estimate(req.Text))
}
