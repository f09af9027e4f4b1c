package pipeline

import (
	"math"

	"github.com/joseph-ayodele/docuextract/internal/entity"
	"github.com/joseph-ayodele/docuextract/internal/llm"
)

const (
	// DefaultConfidence is reported when the model omits a confidence.
	DefaultConfidence = 85
	// LowConfidenceCap bounds confidence for results that failed a format check.
	LowConfidenceCap = 50
)

// buildRecord maps an extraction result onto the stored record, replacing any previous one.
func buildRecord(res llm.Result) entity.ExtractedRecord {
	f := res.Fields
	confidence := DefaultConfidence
	if f.Confidence != nil {
		confidence = *f.Confidence
	}
	low := res.LowConfidence()
	if low && confidence > LowConfidenceCap {
		confidence = LowConfidenceCap
	}

	var warnings []string
	if len(res.Warnings) > 0 {
		warnings = append([]string(nil), res.Warnings...)
	}

	return entity.ExtractedRecord{
		Name:                  f.Name,
		Address:               f.Address,
		PostalCode:            f.PostalCode,
		City:                  f.City,
		Birthday:              f.Birthday,
		DocumentDate:          f.Date,
		Time:                  f.Time,
		Handwritten:           f.Handwritten,
		Signed:                f.Signed,
		Stamp:                 f.Stamp,
		Confidence:            confidence,
		LowConfidence:         low,
		Warnings:              warnings,
		ModelUsed:             res.Model,
		RequestedModel:        res.RequestedModel,
		EstimatedCost:         res.Cost,
		ProcessingTimeSeconds: math.Round(res.ProcessingTime.Seconds()*100) / 100,
	}
}
