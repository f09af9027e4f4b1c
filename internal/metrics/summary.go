package metrics

import (
	"strings"

	"github.com/joseph-ayodele/docuextract/constants"
	"github.com/joseph-ayodele/docuextract/internal/entity"
)

// ModelUsage counts completed documents per model family.
type ModelUsage struct {
	Pro   int `json:"pro"`
	Flash int `json:"flash"`
	Other int `json:"other"`
}

// Summary is the dashboard view over the document list.
// Averages and cost cover completed documents only.
type Summary struct {
	TotalDocuments        int        `json:"totalDocuments"`
	SuccessCount          int        `json:"successCount"`
	FailureCount          int        `json:"failureCount"`
	ProcessingCount       int        `json:"processingCount"`
	RateLimitedCount      int        `json:"rateLimitedCount"`
	PendingCount          int        `json:"pendingCount"`
	TotalCost             float64    `json:"totalCost"`
	AverageConfidence     float64    `json:"averageConfidence"`
	ModelUsage            ModelUsage `json:"modelUsage"`
	AverageProcessingTime float64    `json:"averageProcessingTime"` // seconds
	SuccessRate           float64    `json:"successRate"`           // percent of finished documents
}

func Summarize(docs []entity.Document) Summary {
	s := Summary{TotalDocuments: len(docs)}
	var confSum, timeSum float64
	completed := 0

	for _, d := range docs {
		switch {
		case d.Status == constants.StatusCompleted:
			s.SuccessCount++
		case d.Status == constants.StatusFailed:
			s.FailureCount++
		case d.Status == constants.StatusRateLimited:
			s.RateLimitedCount++
		case d.Status == constants.StatusPending:
			s.PendingCount++
		case d.Status.InFlight():
			s.ProcessingCount++
		}

		if d.Status != constants.StatusCompleted || d.ExtractedData == nil {
			continue
		}
		rec := d.ExtractedData
		completed++
		s.TotalCost += rec.EstimatedCost
		confSum += float64(rec.Confidence)
		timeSum += rec.ProcessingTimeSeconds

		model := strings.ToLower(rec.ModelUsed)
		switch {
		case strings.Contains(model, "pro"):
			s.ModelUsage.Pro++
		case strings.Contains(model, "flash"):
			s.ModelUsage.Flash++
		default:
			s.ModelUsage.Other++
		}
	}

	if completed > 0 {
		s.AverageConfidence = confSum / float64(completed)
		s.AverageProcessingTime = timeSum / float64(completed)
	}
	if finished := s.SuccessCount + s.FailureCount; finished > 0 {
		s.SuccessRate = float64(s.SuccessCount) * 100 / float64(finished)
	}
	return s
}
