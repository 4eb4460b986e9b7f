package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"dubforge/storage"
)

// dubRequest enqueues a dub job for a project.
type dubRequest struct {
	ProjectID  string `json:"projectId"`
	TargetLang string `json:"targetLang"`
	Voice      string `json:"voice"`
}

func (s *Server) handleEnqueueDub(w http.ResponseWriter, r *http.Request) {
	var req dubRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "malformed JSON body")
		return
	}
	if req.ProjectID == "" {
		respondError(w, http.StatusBadRequest, "MISSING_PARAMETER", "projectId is required")
		return
	}

	// Per-job language and voice overrides land on the project settings
	if req.TargetLang != "" || req.Voice != "" {
		project, err := s.editor.Get(r.Context(), req.ProjectID)
		if err != nil {
			writeError(w, err)
			return
		}
		settings := project.Settings
		if req.TargetLang != "" {
			settings.TargetLang = req.TargetLang
		}
		if req.Voice != "" {
			settings.Voice = req.Voice
		}
		if _, err := s.editor.UpdateSettings(r.Context(), req.ProjectID, settings); err != nil {
			writeError(w, err)
			return
		}
	}

	job, err := s.dispatcher.Enqueue(r.Context(), req.ProjectID, "dub")
	if err != nil {
		writeError(w, err)
		return
	}
	// Same unwrapped {"job": ...} shape as the status route
	writeJSON(w, http.StatusAccepted, map[string]*storage.Job{"job": job})
}

// handleJobStatus responds with {"job": ...} rather than the envelope.
// The unwrapped shape is part of the published contract for this route.
func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]
	if jobID == "" {
		respondError(w, http.StatusBadRequest, "MISSING_PARAMETER", "jobId is required")
		return
	}

	job, err := s.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "job not found")
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]*storage.Job{"job": job})
}
