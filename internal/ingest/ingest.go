package ingest

import (
	"context"

	"github.com/joseph-ayodele/docuextract/internal/entity"
	"github.com/joseph-ayodele/docuextract/internal/pipeline"
)

// Result reports what happened to one file on disk.
type Result struct {
	SourcePath   string `json:"sourcePath"`
	DocumentID   string `json:"documentId,omitempty"`
	HashHex      string `json:"sha256,omitempty"`
	Deduplicated bool   `json:"deduplicated,omitempty"`
	Err          string `json:"error,omitempty"`
}

type DirStats struct {
	Scanned      uint32 `json:"scanned"`
	Matched      uint32 `json:"matched"`
	Succeeded    uint32 `json:"succeeded"`
	Deduplicated uint32 `json:"deduplicated"`
	Failed       uint32 `json:"failed"`
}

// Submitter accepts a batch of uploads; *pipeline.Pipeline satisfies it.
type Submitter interface {
	Submit(ctx context.Context, uploads []pipeline.Upload) ([]entity.Document, []pipeline.Rejection, error)
}
