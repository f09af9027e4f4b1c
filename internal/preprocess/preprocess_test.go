package preprocess

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/joseph-ayodele/docuextract/internal/common"
)

// minimalPDF builds a one-page PDF with a correct xref table.
func minimalPDF() []byte {
	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>",
	}
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", len(objs)+1)
	b.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return b.Bytes()
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestPDFInspectorCountsPages(t *testing.T) {
	res, err := NewPDFInspector(quiet()).Preprocess(context.Background(), minimalPDF())
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	if res.Pages != 1 {
		t.Errorf("pages = %d, want 1", res.Pages)
	}
}

func TestPDFInspectorRejectsGarbage(t *testing.T) {
	_, err := NewPDFInspector(quiet()).Preprocess(context.Background(), []byte("not a pdf"))
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("want InvalidInput, got %v", err)
	}
}

func TestPassthrough(t *testing.T) {
	if _, err := (Passthrough{}).Preprocess(context.Background(), []byte("anything")); err != nil {
		t.Errorf("Passthrough: %v", err)
	}
}
