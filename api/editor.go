package api

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"dubforge/editor"
)

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.editor.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	respondData(w, http.StatusOK, projects)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req editor.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "malformed JSON body")
		return
	}

	project, err := s.editor.Create(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	respondData(w, http.StatusCreated, project)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	project, err := s.editor.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	respondData(w, http.StatusOK, project)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.editor.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	respondMessage(w, "project deleted")
}

// uploadResponse matches the documented upload payload.
type uploadResponse struct {
	FilePath string `json:"filePath"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Type     string `json:"type"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.uploads.MaxBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "upload exceeds size limit")
			return
		}
		respondError(w, http.StatusBadRequest, "MISSING_FILE", "multipart field 'file' is required")
		return
	}
	defer file.Close()

	contentType := uploadContentType(header)
	if !s.typeAllowed(contentType) {
		respondError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_TYPE", "file type not allowed: "+contentType)
		return
	}

	info, err := s.objects.Put(r.Context(), header.Filename, contentType, file, header.Size)
	if err != nil {
		writeError(w, err)
		return
	}

	respondData(w, http.StatusOK, uploadResponse{
		FilePath: info.Key,
		Filename: header.Filename,
		Size:     info.Size,
		Type:     contentType,
	})
}

func (s *Server) typeAllowed(contentType string) bool {
	for _, allowed := range s.uploads.AllowedTypes {
		if strings.HasPrefix(contentType, allowed) {
			return true
		}
	}
	return false
}

func uploadContentType(header *multipart.FileHeader) string {
	ct := header.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	return ct
}
