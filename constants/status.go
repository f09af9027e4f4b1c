package constants

// DocumentStatus is the canonical pipeline status of a document record.
type DocumentStatus string

// Stable values (persisted and sent to clients verbatim).
const (
	StatusPending       DocumentStatus = "pending"
	StatusPreprocessing DocumentStatus = "preprocessing"
	StatusClassifying   DocumentStatus = "classifying"
	StatusExtracting    DocumentStatus = "extracting"
	StatusCompleted     DocumentStatus = "completed"
	StatusFailed        DocumentStatus = "failed"
	StatusRateLimited   DocumentStatus = "rate-limited" // recoverable pause inside extracting
)

// Progress checkpoints reported at each stage boundary.
const (
	ProgressPending       = 0
	ProgressPreprocessing = 20
	ProgressClassifying   = 40
	ProgressExtracting    = 60
	ProgressDone          = 100
)

var allStatuses = []DocumentStatus{
	StatusPending,
	StatusPreprocessing,
	StatusClassifying,
	StatusExtracting,
	StatusCompleted,
	StatusFailed,
	StatusRateLimited,
}

// ParseDocumentStatus maps a stored string back to a status.
func ParseDocumentStatus(s string) (DocumentStatus, bool) {
	for _, st := range allStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Terminal reports whether the pipeline has stopped driving the document.
func (s DocumentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// InFlight reports whether a pipeline goroutine is actively working the document.
func (s DocumentStatus) InFlight() bool {
	switch s {
	case StatusPreprocessing, StatusClassifying, StatusExtracting:
		return true
	}
	return false
}
