package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docuextract/constants"
)

// SourceFile describes the uploaded PDF. The bytes themselves live in the blob store.
type SourceFile struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MIMEType string `json:"mimeType"`
	SHA256   string `json:"sha256,omitempty"`
}

// ExtractedRecord is the normalized result of a successful extraction plus provenance.
// Nullable fields are pointers without omitempty so that null survives a JSON round trip.
type ExtractedRecord struct {
	Name         *string `json:"name"`
	Address      *string `json:"address"`
	PostalCode   *string `json:"postalCode"`
	City         *string `json:"city"`
	Birthday     *string `json:"birthday"`
	DocumentDate *string `json:"documentDate"`
	Time         *string `json:"time"`
	Handwritten  bool    `json:"handwritten"`
	Signed       bool    `json:"signed"`
	Stamp        *string `json:"stamp"`
	Confidence   int     `json:"confidence"`

	LowConfidence bool     `json:"lowConfidence"`
	Warnings      []string `json:"warnings"`

	ModelUsed             string  `json:"modelUsed"`
	RequestedModel        string  `json:"requestedModel"`
	EstimatedCost         float64 `json:"estimatedCost"`
	ProcessingTimeSeconds float64 `json:"processingTimeSeconds"`
}

// Clone returns a deep copy.
func (r *ExtractedRecord) Clone() *ExtractedRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.Name = cloneString(r.Name)
	out.Address = cloneString(r.Address)
	out.PostalCode = cloneString(r.PostalCode)
	out.City = cloneString(r.City)
	out.Birthday = cloneString(r.Birthday)
	out.DocumentDate = cloneString(r.DocumentDate)
	out.Time = cloneString(r.Time)
	out.Stamp = cloneString(r.Stamp)
	if r.Warnings != nil {
		out.Warnings = append([]string(nil), r.Warnings...)
	}
	return &out
}

// Document is one uploaded file and its pipeline state.
type Document struct {
	ID             uuid.UUID                `json:"id"`
	SourceFile     SourceFile               `json:"sourceFile"`
	Status         constants.DocumentStatus `json:"status"`
	Progress       int                      `json:"progress"`
	Classification constants.DocumentType   `json:"classification,omitempty"`
	ExtractedData  *ExtractedRecord         `json:"extractedData,omitempty"`
	Error          string                   `json:"error,omitempty"`
	RetryCount     int                      `json:"retryCount"`
	CreatedAt      time.Time                `json:"createdAt"`
	UpdatedAt      time.Time                `json:"updatedAt"`

	// Seq is the submission order assigned by the store.
	Seq int64 `json:"-"`
}

// NewDocument builds a pending record for an accepted upload.
func NewDocument(src SourceFile, now time.Time) Document {
	return Document{
		ID:         uuid.New(),
		SourceFile: src,
		Status:     constants.StatusPending,
		Progress:   constants.ProgressPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Clone returns a deep copy safe to hand out of the store.
func (d Document) Clone() Document {
	d.ExtractedData = d.ExtractedData.Clone()
	return d
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
