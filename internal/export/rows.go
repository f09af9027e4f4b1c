package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docuextract/constants"
	"github.com/joseph-ayodele/docuextract/internal/entity"
)

// SheetName is the worksheet holding exported records.
const SheetName = "Extracted Data"

// Row is one completed document flattened for export.
type Row struct {
	ID             string                 `json:"id"`
	FileName       string                 `json:"pdf_file_name"`
	Classification constants.DocumentType `json:"classification,omitempty"`
	CreatedAt      time.Time              `json:"createdAt"`
	entity.ExtractedRecord
}

// Rows keeps completed documents in their input order.
func Rows(docs []entity.Document) []Row {
	out := make([]Row, 0, len(docs))
	for _, d := range docs {
		if d.Status != constants.StatusCompleted || d.ExtractedData == nil {
			continue
		}
		out = append(out, Row{
			ID:              d.ID.String(),
			FileName:        d.SourceFile.Name,
			Classification:  d.Classification,
			CreatedAt:       d.CreatedAt,
			ExtractedRecord: *d.ExtractedData.Clone(),
		})
	}
	return out
}

// ToDocuments turns imported rows into completed documents with fresh ids.
func ToDocuments(rows []Row, now time.Time) []entity.Document {
	out := make([]entity.Document, 0, len(rows))
	for _, r := range rows {
		d := entity.NewDocument(entity.SourceFile{Name: r.FileName, MIMEType: constants.PDFMIMEType}, now)
		if !r.CreatedAt.IsZero() {
			d.CreatedAt = r.CreatedAt
		}
		d.Status = constants.StatusCompleted
		d.Progress = constants.ProgressDone
		d.Classification = r.Classification
		d.ExtractedData = r.ExtractedRecord.Clone()
		out = append(out, d)
	}
	return out
}

var header = []string{
	"id", "pdf_file_name", "classification",
	"name", "address", "postalCode", "city", "birthday", "documentDate", "time",
	"handwritten", "signed", "stamp", "confidence", "lowConfidence", "warnings",
	"modelUsed", "requestedModel", "estimatedCost", "processingTimeSeconds", "createdAt",
}

func (r Row) values() []any {
	return []any{
		r.ID, r.FileName, string(r.Classification),
		str(r.Name), str(r.Address), str(r.PostalCode), str(r.City), str(r.Birthday), str(r.DocumentDate), str(r.Time),
		r.Handwritten, r.Signed, str(r.Stamp), r.Confidence, r.LowConfidence, strings.Join(r.Warnings, "; "),
		r.ModelUsed, r.RequestedModel, r.EstimatedCost, r.ProcessingTimeSeconds, r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func WriteJSON(w io.Writer, rows []Row) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// ReadJSON parses a JSON export.
func ReadJSON(r io.Reader) ([]Row, error) {
	var rows []Row
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode export: %w", err)
	}
	for i, row := range rows {
		if row.ID != "" {
			if _, err := uuid.Parse(row.ID); err != nil {
				return nil, fmt.Errorf("row %d: invalid id %q", i, row.ID)
			}
		}
	}
	return rows, nil
}

func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		vals := r.values()
		rec := make([]string, len(vals))
		for i, v := range vals {
			switch t := v.(type) {
			case string:
				rec[i] = t
			case bool:
				rec[i] = strconv.FormatBool(t)
			case int:
				rec[i] = strconv.Itoa(t)
			case float64:
				rec[i] = strconv.FormatFloat(t, 'f', -1, 64)
			default:
				rec[i] = fmt.Sprint(t)
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteXLSX(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}
	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}
	for r, row := range rows {
		for c, v := range row.values() {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			_ = f.SetCellValue(SheetName, cell, v)
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 38) // id
	_ = f.SetColWidth(SheetName, "B", "B", 32) // file
	_ = f.SetColWidth(SheetName, "D", "E", 28) // name, address

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}
