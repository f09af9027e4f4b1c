package preprocess

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/docuextract/internal/common"
)

// Result describes a document after preprocessing.
type Result struct {
	Pages int
}

// Preprocessor is the boundary for image normalization before classification.
// It never rewrites the payload today.
type Preprocessor interface {
	Preprocess(ctx context.Context, data []byte) (Result, error)
}

// Passthrough accepts every payload unchanged.
type Passthrough struct{}

func (Passthrough) Preprocess(ctx context.Context, _ []byte) (Result, error) {
	return Result{}, ctx.Err()
}

// PDFInspector reads the PDF structure with pdfcpu and reports the page count.
// A payload pdfcpu cannot read is InvalidInput.
type PDFInspector struct {
	logger *slog.Logger
}

func NewPDFInspector(logger *slog.Logger) *PDFInspector {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFInspector{logger: logger}
}

func (p *PDFInspector) Preprocess(ctx context.Context, data []byte) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	start := time.Now()
	pages, err := CountPages(data)
	if err != nil {
		p.logger.Warn("preprocess.pdf.unreadable", "bytes", len(data), "error", err)
		e := common.InvalidInputError("file is not a readable PDF")
		e.Err = err
		return Result{}, e
	}
	p.logger.Debug("preprocess.pdf.ok", "pages", pages, "elapsed_ms", time.Since(start).Milliseconds())
	return Result{Pages: pages}, nil
}

// CountPages returns the page count of an in-memory PDF.
func CountPages(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.PageCount(bytes.NewReader(data), conf)
}
