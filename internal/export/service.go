package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/docuextract/internal/common"
	"github.com/joseph-ayodele/docuextract/internal/entity"
	"github.com/joseph-ayodele/docuextract/internal/repository"
)

// Service is a tiny façade over the document store that produces and consumes export files.
type Service struct {
	repo   repository.DocumentRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo repository.DocumentRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Export renders every completed document in the requested format.
func (s *Service) Export(ctx context.Context, format Format) ([]byte, string, error) {
	start := time.Now()
	docs, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("list documents: %w", err)
	}
	rows := Rows(docs)

	var buf bytes.Buffer
	switch format {
	case FormatCSV:
		err = WriteCSV(&buf, rows)
	case FormatXLSX:
		err = WriteXLSX(&buf, rows)
	case FormatJSON:
		err = WriteJSON(&buf, rows)
	default:
		return nil, "", common.InvalidInputError("unsupported export format " + string(format))
	}
	if err != nil {
		return nil, "", err
	}

	s.logger.Info("export.ok",
		"format", format,
		"rows", len(rows),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), format.FileName(s.now()), nil
}

// Import reads a JSON export and adds its records as completed documents.
func (s *Service) Import(ctx context.Context, r io.Reader) ([]entity.Document, error) {
	rows, err := ReadJSON(r)
	if err != nil {
		e := common.InvalidInputError("invalid export file")
		e.Err = err
		return nil, e
	}
	docs := ToDocuments(rows, s.now())
	if err := s.repo.CreateMany(ctx, docs); err != nil {
		return nil, err
	}
	s.logger.Info("export.import.ok", "documents", len(docs))
	return docs, nil
}
