package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"dubforge/pdf"
)

func (s *Server) handleListAnnotations(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("projectId")
	if projectID == "" {
		respondError(w, http.StatusBadRequest, "MISSING_PARAMETER", "projectId is required")
		return
	}

	annotations, err := s.pdf.List(r.Context(), projectID)
	if err != nil {
		writeError(w, err)
		return
	}
	respondData(w, http.StatusOK, annotations)
}

func (s *Server) handleCreateAnnotation(w http.ResponseWriter, r *http.Request) {
	var req pdf.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "malformed JSON body")
		return
	}

	ann, err := s.pdf.Create(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	respondData(w, http.StatusCreated, ann)
}

func (s *Server) handleUpdateAnnotation(w http.ResponseWriter, r *http.Request) {
	var req pdf.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "malformed JSON body")
		return
	}

	ann, err := s.pdf.Update(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, err)
		return
	}
	respondData(w, http.StatusOK, ann)
}

func (s *Server) handleDeleteAnnotation(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("projectId")
	if projectID == "" {
		respondError(w, http.StatusBadRequest, "MISSING_PARAMETER", "projectId is required")
		return
	}

	if err := s.pdf.Delete(r.Context(), projectID, mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	respondMessage(w, "annotation deleted")
}
