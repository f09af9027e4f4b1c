package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/joseph-ayodele/docuextract/internal/common"
	"github.com/joseph-ayodele/docuextract/internal/entity"
	"github.com/joseph-ayodele/docuextract/internal/export"
	"github.com/joseph-ayodele/docuextract/internal/metrics"
	"github.com/joseph-ayodele/docuextract/internal/pipeline"
)

// maxBatchBytes bounds a whole multipart submission.
const maxBatchBytes = 256 << 20

type submitResponse struct {
	Accepted []entity.Document    `json:"accepted"`
	Rejected []pipeline.Rejection `json:"rejected"`
}

func (s *Server) handleSubmitDocuments(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBatchBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		e := common.InvalidInputError("expected multipart form data")
		e.Err = err
		s.writeError(w, r, e)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		files = r.MultipartForm.File["file"]
	}
	if len(files) == 0 {
		s.writeError(w, r, common.InvalidInputError("No file provided"))
		return
	}

	uploads := make([]pipeline.Upload, 0, len(files))
	for _, fh := range files {
		data, err := readPart(fh)
		if err != nil {
			s.writeError(w, r, common.WrapError(err, "read upload "+fh.Filename))
			return
		}
		uploads = append(uploads, pipeline.Upload{
			Name:     fh.Filename,
			MIMEType: fh.Header.Get("Content-Type"),
			Data:     data,
		})
	}

	accepted, rejected, err := s.deps.Documents.Submit(r.Context(), uploads)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if accepted == nil {
		accepted = []entity.Document{}
	}
	if rejected == nil {
		rejected = []pipeline.Rejection{}
	}
	writeJSON(w, http.StatusAccepted, submitResponse{Accepted: accepted, Rejected: rejected})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.deps.Store.ListAll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	doc, ok, err := s.deps.Store.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		s.writeError(w, r, common.NotFoundError(fmt.Sprintf("document %s not found", id)))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// handleRetryDocument restarts a failed document; other statuses report retried=false.
func (s *Server) handleRetryDocument(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, ok, err := s.deps.Store.GetByID(r.Context(), id); err != nil || !ok {
		if err == nil {
			err = common.NotFoundError(fmt.Sprintf("document %s not found", id))
		}
		s.writeError(w, r, err)
		return
	}
	retried, err := s.deps.Documents.Retry(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"retried": retried})
}

func (s *Server) handleRemoveDocument(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	removed, err := s.deps.Documents.Remove(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !removed {
		s.writeError(w, r, common.NotFoundError(fmt.Sprintf("document %s not found", id)))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	docs, err := s.deps.Store.ListAll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, metrics.Summarize(docs))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, name, err := s.deps.Export.Export(r.Context(), format)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	attachment(w, format.ContentType(), name)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleImport accepts a JSON export either as the request body or as a multipart "file".
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBatchBytes)

	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			e := common.InvalidInputError("expected multipart form data")
			e.Err = err
			s.writeError(w, r, e)
			return
		}
		_, fh, err := r.FormFile("file")
		if err != nil {
			s.writeError(w, r, common.InvalidInputError("No file provided"))
			return
		}
		f, err := fh.Open()
		if err != nil {
			s.writeError(w, r, common.WrapError(err, "open import file"))
			return
		}
		defer func() { _ = f.Close() }()
		src = f
	}

	docs, err := s.deps.Export.Import(r.Context(), src)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"imported": len(docs), "documents": docs})
}
