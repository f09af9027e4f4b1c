package metrics

import (
	"math"
	"testing"

	"github.com/joseph-ayodele/docuextract/constants"
	"github.com/joseph-ayodele/docuextract/internal/entity"
)

func doc(status constants.DocumentStatus, rec *entity.ExtractedRecord) entity.Document {
	return entity.Document{Status: status, ExtractedData: rec}
}

func TestSummarize(t *testing.T) {
	docs := []entity.Document{
		doc(constants.StatusCompleted, &entity.ExtractedRecord{Confidence: 90, ModelUsed: "models/gemini-2.5-pro", EstimatedCost: 0.002, ProcessingTimeSeconds: 4}),
		doc(constants.StatusCompleted, &entity.ExtractedRecord{Confidence: 70, ModelUsed: "models/gemini-2.5-flash", EstimatedCost: 0.0005, ProcessingTimeSeconds: 2}),
		doc(constants.StatusFailed, nil),
		doc(constants.StatusExtracting, nil),
		doc(constants.StatusClassifying, nil),
		doc(constants.StatusRateLimited, nil),
		doc(constants.StatusPending, nil),
	}

	s := Summarize(docs)
	if s.TotalDocuments != 7 || s.SuccessCount != 2 || s.FailureCount != 1 {
		t.Errorf("counts = %+v", s)
	}
	if s.ProcessingCount != 2 || s.RateLimitedCount != 1 || s.PendingCount != 1 {
		t.Errorf("in-flight counts = %+v", s)
	}
	if math.Abs(s.TotalCost-0.0025) > 1e-12 {
		t.Errorf("total cost = %v", s.TotalCost)
	}
	if s.AverageConfidence != 80 || s.AverageProcessingTime != 3 {
		t.Errorf("averages = %v / %v", s.AverageConfidence, s.AverageProcessingTime)
	}
	if s.ModelUsage != (ModelUsage{Pro: 1, Flash: 1}) {
		t.Errorf("model usage = %+v", s.ModelUsage)
	}
	if math.Abs(s.SuccessRate-200.0/3) > 1e-9 {
		t.Errorf("success rate = %v", s.SuccessRate)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if s := Summarize(nil); s != (Summary{}) {
		t.Errorf("empty summary = %+v", s)
	}
}
