package llm

import (
	"context"
	"time"

	"github.com/joseph-ayodele/docuextract/constants"
)

// DocumentFields is the normalized shape we want from the model.
// JSON names follow the provider-facing schema (postalcode, date).
type DocumentFields struct {
	Name        *string `json:"name"`
	Address     *string `json:"address"`
	PostalCode  *string `json:"postalcode"`
	City        *string `json:"city"`
	Birthday    *string `json:"birthday"`
	Date        *string `json:"date"` // DD.MM.YYYY
	Time        *string `json:"time"` // HH:MM
	Handwritten bool    `json:"handwritten"`
	Signed      bool    `json:"signed"`
	Stamp       *string `json:"stamp"`
	Confidence  *int    `json:"confidence,omitempty"` // 0..100, optional
}

type ExtractRequest struct {
	FileName     string
	MIMEType     string
	Data         []byte
	DocumentType constants.DocumentType
}

// Result is a successful extraction with provenance.
type Result struct {
	Fields         DocumentFields
	Model          string // model actually invoked
	RequestedModel string
	Cost           float64
	ProcessingTime time.Duration
	// Warnings lists soft format checks the output failed; any warning marks the result low confidence.
	Warnings []string
}

func (r Result) LowConfidence() bool {
	return len(r.Warnings) > 0
}

// FieldExtractor is the interface our pipeline depends on.
// Errors are common.AppError values of kind InvalidInput, ConfigurationError,
// ServiceUnavailable, MalformedResponse or RateLimited.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, req ExtractRequest) (Result, []byte /*rawText*/, error)
}

// ModelDescriptor is one entry of a provider model listing.
type ModelDescriptor struct {
	Name                       string   `json:"name"`
	DisplayName                string   `json:"displayName,omitempty"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods,omitempty"`
}

// ModelLister enumerates the models available to the configured credential.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelDescriptor, error)
}
