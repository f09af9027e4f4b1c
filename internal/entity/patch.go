package entity

import (
	"time"

	"github.com/joseph-ayodele/docuextract/constants"
)

// DocumentPatch is a partial update applied atomically by the store.
type DocumentPatch struct {
	Status         *constants.DocumentStatus
	Progress       *int
	Classification *constants.DocumentType
	ExtractedData  *ExtractedRecord
	Error          *string
	IncrementRetry bool

	// IfStatus makes the patch conditional on the record's current status.
	IfStatus *constants.DocumentStatus
}

// Apply mutates d and reports whether the patch was applied.
// extractedData is kept only while completed and error only while failed.
func (p DocumentPatch) Apply(d *Document, now time.Time) bool {
	if p.IfStatus != nil && d.Status != *p.IfStatus {
		return false
	}
	if p.Status != nil {
		d.Status = *p.Status
	}
	if p.Progress != nil {
		d.Progress = clampProgress(*p.Progress)
	}
	if p.Classification != nil {
		d.Classification = *p.Classification
	}
	if p.ExtractedData != nil {
		d.ExtractedData = p.ExtractedData.Clone()
	}
	if p.Error != nil {
		d.Error = *p.Error
	}
	if p.IncrementRetry {
		d.RetryCount++
	}
	if d.Status != constants.StatusCompleted {
		d.ExtractedData = nil
	}
	if d.Status != constants.StatusFailed {
		d.Error = ""
	}
	d.UpdatedAt = now
	return true
}

// StagePatch moves a document to status at the given progress checkpoint.
func StagePatch(status constants.DocumentStatus, progress int) DocumentPatch {
	return DocumentPatch{Status: &status, Progress: &progress}
}

// CompletedPatch finalizes a successful run, replacing any previous extraction.
func CompletedPatch(rec ExtractedRecord) DocumentPatch {
	p := StagePatch(constants.StatusCompleted, constants.ProgressDone)
	p.ExtractedData = &rec
	return p
}

// FailedPatch finalizes a failed run.
func FailedPatch(message string) DocumentPatch {
	p := StagePatch(constants.StatusFailed, constants.ProgressDone)
	p.Error = &message
	return p
}

// RetryPatch resets a failed record to pending; it is a no-op for any other status.
func RetryPatch() DocumentPatch {
	p := StagePatch(constants.StatusPending, constants.ProgressPending)
	failed := constants.StatusFailed
	p.IfStatus = &failed
	p.IncrementRetry = true
	return p
}

// ClassificationPatch records the classifier's hint.
func ClassificationPatch(t constants.DocumentType) DocumentPatch {
	return DocumentPatch{Classification: &t}
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
