package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/joseph-ayodele/docuextract/constants"
	"github.com/joseph-ayodele/docuextract/internal/common"
	"github.com/joseph-ayodele/docuextract/internal/llm"
	"github.com/joseph-ayodele/docuextract/internal/preprocess"
)

// multipartMemory is how much of a form is buffered in memory before spilling to temp files.
const multipartMemory = 32 << 20

// maxSingleUploadBytes bounds a single-file request: the upload limit plus room for
// the other form fields and multipart framing.
const maxSingleUploadBytes = constants.MaxUploadBytes + 1<<20

type uploadCheckResponse struct {
	OK       bool   `json:"ok"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MIMEType string `json:"mimeType"`
	Pages    int    `json:"pages"`
}

type modelsResponse struct {
	Models           []llm.ModelDescriptor `json:"models"`
	GeminiCandidates []string              `json:"geminiCandidates"`
}

// readPart reads one uploaded file, keeping at most one byte past the size limit
// so that oversize uploads are still detected.
func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(io.LimitReader(f, constants.MaxUploadBytes+1))
}

// formFile returns the single "file" part of a multipart request.
func formFile(w http.ResponseWriter, r *http.Request) (*multipart.FileHeader, []byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSingleUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			e := common.InvalidInputError(fmt.Sprintf("File too large (max %d MB)", constants.MaxUploadBytes/(1<<20)))
			e.Err = err
			return nil, nil, e
		}
		e := common.InvalidInputError("expected multipart form data")
		e.Err = err
		return nil, nil, e
	}
	_, fh, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil, common.InvalidInputError("No file provided")
		}
		return nil, nil, common.WrapError(err, "read form file")
	}
	data, err := readPart(fh)
	if err != nil {
		return nil, nil, common.WrapError(err, "read upload")
	}
	return fh, data, nil
}

func validatePDF(fh *multipart.FileHeader, data []byte) error {
	if !constants.IsPDF(fh.Filename, fh.Header.Get("Content-Type")) {
		return common.InvalidInputError("Only PDF files are allowed")
	}
	return common.NewValidator().
		Field("file", data, common.Required, common.MaxBytes(constants.MaxUploadBytes)).
		Err()
}

func (s *Server) handleUploadCheck(w http.ResponseWriter, r *http.Request) {
	fh, data, err := formFile(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validatePDF(fh, data); err != nil {
		s.writeError(w, r, err)
		return
	}
	pages, err := preprocess.CountPages(data)
	if err != nil {
		e := common.InvalidInputError("file is not a readable PDF")
		e.Err = err
		s.writeError(w, r, e)
		return
	}

	writeJSON(w, http.StatusOK, uploadCheckResponse{
		OK:       true,
		Name:     fh.Filename,
		Size:     int64(len(data)),
		MIMEType: constants.PDFMIMEType,
		Pages:    pages,
	})
}

// handleExtract runs one synchronous extraction. An unknown type hint is treated as typed.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	fh, data, err := formFile(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validatePDF(fh, data); err != nil {
		s.writeError(w, r, err)
		return
	}

	docType, ok := constants.ParseDocumentType(r.FormValue("type"))
	if !ok {
		docType = constants.DocumentTypeTyped
	}

	res, _, err := s.deps.Extractor.ExtractFields(r.Context(), llm.ExtractRequest{
		FileName:     fh.Filename,
		MIMEType:     constants.PDFMIMEType,
		Data:         data,
		DocumentType: docType,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res.Response())
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	if s.deps.Models == nil {
		s.writeError(w, r, common.ConfigurationError("model listing is not configured"))
		return
	}
	models, err := s.deps.Models.ListModels(r.Context())
	if err != nil {
		s.writeError(w, r, common.ServiceUnavailableError("Failed to list models", err, ""))
		return
	}
	if models == nil {
		models = []llm.ModelDescriptor{}
	}
	writeJSON(w, http.StatusOK, modelsResponse{
		Models:           models,
		GeminiCandidates: llm.Candidates(models, llm.FamilyMarker),
	})
}

func attachment(w http.ResponseWriter, contentType, name string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
}
