package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/docuextract/internal/common"
	"github.com/joseph-ayodele/docuextract/internal/entity"
	"github.com/joseph-ayodele/docuextract/internal/export"
	"github.com/joseph-ayodele/docuextract/internal/llm"
	"github.com/joseph-ayodele/docuextract/internal/pipeline"
	"github.com/joseph-ayodele/docuextract/internal/repository"
)

// DocumentService is the pipeline surface the API drives.
type DocumentService interface {
	Submit(ctx context.Context, uploads []pipeline.Upload) ([]entity.Document, []pipeline.Rejection, error)
	Retry(ctx context.Context, id uuid.UUID) (bool, error)
	Remove(ctx context.Context, id uuid.UUID) (bool, error)
}

type Deps struct {
	Documents DocumentService
	Store     repository.DocumentRepository
	Extractor llm.FieldExtractor
	Models    llm.ModelLister // optional
	Export    *export.Service
	Hub       *Hub // optional
}

type Server struct {
	deps Deps
	log  *slog.Logger
}

func New(deps Deps, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch {
	case deps.Documents == nil:
		return nil, errors.New("server: document service is required")
	case deps.Store == nil:
		return nil, errors.New("server: store is required")
	case deps.Extractor == nil:
		return nil, errors.New("server: extractor is required")
	}
	if deps.Export == nil {
		deps.Export = export.NewService(deps.Store, logger)
	}
	return &Server{deps: deps, log: logger}, nil
}

// Routes builds the HTTP API.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/upload", s.handleHealth)
		r.Post("/upload", s.handleUploadCheck)

		r.Get("/extract", s.handleListModels)
		r.Post("/extract", s.handleExtract)

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", s.handleListDocuments)
			r.Post("/", s.handleSubmitDocuments)
			r.Post("/import", s.handleImport)
			r.Get("/{id}", s.handleGetDocument)
			r.Delete("/{id}", s.handleRemoveDocument)
			r.Post("/{id}/retry", s.handleRetryDocument)
		})

		r.Get("/metrics", s.handleMetrics)
		r.Get("/export", s.handleExport)
	})

	if s.deps.Hub != nil {
		r.Get("/ws", s.deps.Hub.ServeHTTP)
	}
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func documentID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	if err := common.NewValidator().Field("id", raw, common.Required, common.UUID).Err(); err != nil {
		return uuid.Nil, err
	}
	return uuid.MustParse(raw), nil
}
