package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/joseph-ayodele/docuextract/constants"
	"github.com/joseph-ayodele/docuextract/internal/common"
	"github.com/joseph-ayodele/docuextract/internal/entity"
	"github.com/joseph-ayodele/docuextract/internal/pipeline"
)

type fakeSubmitter struct {
	mu      sync.Mutex
	batches [][]pipeline.Upload
	reject  bool
	err     error
}

func (f *fakeSubmitter) Submit(_ context.Context, uploads []pipeline.Upload) ([]entity.Document, []pipeline.Rejection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, uploads)
	if f.err != nil {
		return nil, nil, f.err
	}
	if f.reject {
		return nil, []pipeline.Rejection{{Name: uploads[0].Name, Reason: "Only PDF files are allowed"}}, nil
	}
	docs := make([]entity.Document, 0, len(uploads))
	for _, u := range uploads {
		docs = append(docs, entity.NewDocument(entity.SourceFile{Name: u.Name}, time.Now()))
	}
	return docs, nil, nil
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "scan.PDF")
	writeFile(t, p, "%PDF-1.4 body")

	up, sum, err := LoadFile(p)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if up.Name != "scan.PDF" || up.MIMEType != constants.PDFMIMEType || string(up.Data) != "%PDF-1.4 body" {
		t.Errorf("upload = %+v", up)
	}
	if len(sum) != 64 {
		t.Errorf("sha256 = %q", sum)
	}

	txt := filepath.Join(dir, "notes.txt")
	writeFile(t, txt, "hi")
	if _, _, err := LoadFile(txt); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("txt: want InvalidInput, got %v", err)
	}
}

func TestCollectPDFsSkipsHiddenAndOtherTypes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.pdf"), "a")
	writeFile(t, filepath.Join(root, "sub", "b.pdf"), "b")
	writeFile(t, filepath.Join(root, "sub", "c.png"), "c")
	writeFile(t, filepath.Join(root, ".hidden", "d.pdf"), "d")
	writeFile(t, filepath.Join(root, ".e.pdf"), "e")

	paths, stats, err := CollectPDFs(root, true)
	if err != nil {
		t.Fatalf("CollectPDFs: %v", err)
	}
	if len(paths) != 2 || stats.Matched != 2 {
		t.Fatalf("paths = %v stats = %+v", paths, stats)
	}

	all, _, _ := CollectPDFs(root, false)
	if len(all) != 4 {
		t.Errorf("without skipHidden got %v", all)
	}

	if _, _, err := CollectPDFs("  ", false); err == nil {
		t.Error("empty root must fail")
	}
}

func TestIngestDirectoryDeduplicatesByContent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "one.pdf"), "same")
	writeFile(t, filepath.Join(root, "two.pdf"), "same")
	writeFile(t, filepath.Join(root, "three.pdf"), "other")

	sub := &fakeSubmitter{}
	ing := NewFSIngestor(sub, quiet())
	results, stats, err := ing.IngestDirectory(context.Background(), root, true)
	if err != nil {
		t.Fatalf("IngestDirectory: %v", err)
	}
	if len(results) != 3 || stats.Succeeded != 3 || stats.Deduplicated != 1 || stats.Failed != 0 {
		t.Fatalf("stats = %+v results = %+v", stats, results)
	}
	if sub.count() != 2 {
		t.Errorf("submitted %d batches, want 2", sub.count())
	}
	for _, r := range results {
		if r.DocumentID == "" {
			t.Errorf("%s has no document id", r.SourcePath)
		}
	}
}

func TestIngestPathRejectionAllowsLaterRetry(t *testing.T) {
	root := t.TempDir()
	p := filepath.Join(root, "x.pdf")
	writeFile(t, p, "x")

	sub := &fakeSubmitter{reject: true}
	ing := NewFSIngestor(sub, quiet())
	if _, err := ing.IngestPath(context.Background(), p); !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("want InvalidInput, got %v", err)
	}

	sub.reject = false
	r, err := ing.IngestPath(context.Background(), p)
	if err != nil || r.Deduplicated {
		t.Fatalf("second attempt = %+v, %v", r, err)
	}
}

func TestWatchSubmitsNewFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "existing.pdf"), "old")

	sub := &fakeSubmitter{}
	ing := NewFSIngestor(sub, quiet())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ing.Watch(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, Debounce: 20 * time.Millisecond})
	}()

	waitFor := func(n int) {
		t.Helper()
		deadline := time.Now().Add(3 * time.Second)
		for sub.count() < n {
			if time.Now().After(deadline) {
				t.Fatalf("submitted %d batches, want %d", sub.count(), n)
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
	waitFor(1)

	writeFile(t, filepath.Join(root, "new.pdf"), "new")
	writeFile(t, filepath.Join(root, "ignored.txt"), "nope")
	waitFor(2)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
	if n := sub.count(); n != 2 {
		t.Errorf("submitted %d batches, want 2", n)
	}
}

func TestStartWatcherNeedsRoots(t *testing.T) {
	if _, _, err := StartWatcher(context.Background(), WatchConfig{Logger: quiet()}); err == nil {
		t.Error("want error without roots")
	}
}
