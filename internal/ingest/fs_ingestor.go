package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joseph-ayodele/docuextract/constants"
	"github.com/joseph-ayodele/docuextract/internal/common"
	"github.com/joseph-ayodele/docuextract/internal/pipeline"
)

// FSIngestor reads PDFs from the local filesystem and submits them to the pipeline.
// Files are deduplicated by content hash for the lifetime of the ingestor.
type FSIngestor struct {
	sub Submitter
	log *slog.Logger

	mu   sync.Mutex
	seen map[string]string // sha256 -> document id
}

func NewFSIngestor(sub Submitter, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{sub: sub, log: logger, seen: make(map[string]string)}
}

// LoadFile reads a PDF from disk into an upload and returns its hex sha256.
func LoadFile(path string) (pipeline.Upload, string, error) {
	if !AllowedExt(filepath.Ext(path)) {
		return pipeline.Upload{}, "", common.InvalidInputError(fmt.Sprintf("unsupported or missing extension: %q", filepath.Ext(path)))
	}

	f, err := os.Open(path)
	if err != nil {
		return pipeline.Upload{}, "", err
	}
	defer func() { _ = f.Close() }()

	// one extra byte so that oversize files are detectable without reading them whole
	data, err := io.ReadAll(io.LimitReader(f, constants.MaxUploadBytes+1))
	if err != nil {
		return pipeline.Upload{}, "", err
	}
	if int64(len(data)) > constants.MaxUploadBytes {
		return pipeline.Upload{}, "", common.InvalidInputError("file exceeds the upload size limit")
	}

	sum := sha256.Sum256(data)
	return pipeline.Upload{
		Name:     filepath.Base(path),
		MIMEType: constants.PDFMIMEType,
		Data:     data,
	}, hex.EncodeToString(sum[:]), nil
}

// CollectPDFs walks root and returns every ingestible file path in walk order.
func CollectPDFs(root string, skipHidden bool) ([]string, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var (
		paths []string
		stats DirStats
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return paths, stats, fmt.Errorf("walk: %w", err)
	}
	return paths, stats, nil
}

// IngestPath submits a single file. A file whose content was already submitted is reported
// as deduplicated and not submitted again.
func (i *FSIngestor) IngestPath(ctx context.Context, path string) (Result, error) {
	out := Result{SourcePath: path}

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, err
	}
	out.SourcePath = abs

	up, sum, err := LoadFile(abs)
	if err != nil {
		i.log.Warn("ingest.load_failed", "path", abs, "error", err)
		return out, err
	}
	out.HashHex = sum

	i.mu.Lock()
	if id, ok := i.seen[sum]; ok {
		i.mu.Unlock()
		out.DocumentID = id
		out.Deduplicated = true
		i.log.Debug("ingest.deduplicated", "path", abs, "document_id", id)
		return out, nil
	}
	// reserve the hash so a concurrent event for the same content does not submit twice
	i.seen[sum] = ""
	i.mu.Unlock()

	docs, rejected, err := i.sub.Submit(ctx, []pipeline.Upload{up})
	if err == nil && len(docs) == 0 {
		reason := "rejected"
		if len(rejected) > 0 {
			reason = rejected[0].Reason
		}
		err = common.InvalidInputError(reason)
	}
	if err != nil {
		i.mu.Lock()
		delete(i.seen, sum)
		i.mu.Unlock()
		i.log.Warn("ingest.submit_failed", "path", abs, "error", err)
		return out, err
	}

	out.DocumentID = docs[0].ID.String()
	i.mu.Lock()
	i.seen[sum] = out.DocumentID
	i.mu.Unlock()
	i.log.Info("ingest.submitted", "path", abs, "document_id", out.DocumentID, "sha256", sum)
	return out, nil
}

// IngestDirectory walks root and calls IngestPath for each PDF. Returns per-file results + aggregate stats.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]Result, DirStats, error) {
	paths, stats, err := CollectPDFs(root, skipHidden)
	if err != nil {
		return nil, stats, err
	}

	results := make([]Result, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return results, stats, err
		}
		r, err := i.IngestPath(ctx, p)
		if err != nil {
			r.Err = err.Error()
			stats.Failed++
		} else {
			stats.Succeeded++
			if r.Deduplicated {
				stats.Deduplicated++
			}
		}
		results = append(results, r)
	}
	return results, stats, nil
}
