// Package api exposes the dubforge HTTP JSON API.
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"dubforge/automation"
	"dubforge/editor"
	"dubforge/objectstore"
	"dubforge/pdf"
	"dubforge/storage"
)

// UploadLimits constrains /api/editor/upload.
type UploadLimits struct {
	// MaxBytes is the largest accepted upload. 0 means 100 MiB.
	MaxBytes int64
	// AllowedTypes lists accepted MIME type prefixes. Empty allows
	// the default media set.
	AllowedTypes []string
}

// Server holds the handler dependencies and the router.
type Server struct {
	editor     *editor.Service
	pdf        *pdf.Service
	objects    objectstore.Store
	dispatcher *automation.Dispatcher
	jobs       storage.JobStore
	uploads    UploadLimits
	logger     *zap.Logger

	router *mux.Router
}

// Options configures a Server.
type Options struct {
	Editor     *editor.Service
	PDF        *pdf.Service
	Objects    objectstore.Store
	Dispatcher *automation.Dispatcher
	Jobs       storage.JobStore
	Uploads    UploadLimits
	Logger     *zap.Logger
}

// NewServer builds the router with all routes and middleware attached.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Uploads.MaxBytes <= 0 {
		opts.Uploads.MaxBytes = 100 << 20
	}
	if len(opts.Uploads.AllowedTypes) == 0 {
		opts.Uploads.AllowedTypes = []string{"video/", "audio/", "application/pdf", "image/"}
	}

	s := &Server{
		editor:     opts.Editor,
		pdf:        opts.PDF,
		objects:    opts.Objects,
		dispatcher: opts.Dispatcher,
		jobs:       opts.Jobs,
		uploads:    opts.Uploads,
		logger:     opts.Logger,
	}

	router := mux.NewRouter()

	// Editor
	router.HandleFunc("/api/editor/project", s.handleListProjects).Methods("GET")
	router.HandleFunc("/api/editor/project", s.handleCreateProject).Methods("POST")
	router.HandleFunc("/api/editor/project/{id}", s.handleGetProject).Methods("GET")
	router.HandleFunc("/api/editor/project/{id}", s.handleDeleteProject).Methods("DELETE")
	router.HandleFunc("/api/editor/upload", s.handleUpload).Methods("POST")

	// PDF annotations
	router.HandleFunc("/api/pdf/annotation", s.handleListAnnotations).Methods("GET")
	router.HandleFunc("/api/pdf/annotation", s.handleCreateAnnotation).Methods("POST")
	router.HandleFunc("/api/pdf/annotation/{id}", s.handleUpdateAnnotation).Methods("PUT")
	router.HandleFunc("/api/pdf/annotation/{id}", s.handleDeleteAnnotation).Methods("DELETE")

	// TTS
	router.HandleFunc("/api/tts/estimate", s.handleEstimate).Methods("POST")

	// Automation
	router.HandleFunc("/api/automation/dub", s.handleEnqueueDub).Methods("POST")
	router.HandleFunc("/api/automation/status/{jobId}", s.handleJobStatus).Methods("GET")

	// Health check endpoint
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	router.Use(s.logRequests, s.recoverPanics)

	s.router = router
	return s
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(s.router)
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("handler panic",
					zap.String("path", r.URL.Path),
					zap.Any("panic", rec))
				respondError(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
