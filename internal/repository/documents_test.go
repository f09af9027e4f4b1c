package repository

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docuextract/constants"
	"github.com/joseph-ayodele/docuextract/internal/common"
	"github.com/joseph-ayodele/docuextract/internal/entity"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newDocs(names ...string) []entity.Document {
	now := time.Now()
	out := make([]entity.Document, 0, len(names))
	for _, n := range names {
		out = append(out, entity.NewDocument(entity.SourceFile{Name: n, Size: 1024, MIMEType: constants.PDFMIMEType}, now))
	}
	return out
}

func TestDocumentStore_CreateManyPreservesOrder(t *testing.T) {
	ctx := context.Background()
	s := NewDocumentStore(quietLogger())

	if err := s.CreateMany(ctx, newDocs("a.pdf", "b.pdf")); err != nil {
		t.Fatalf("CreateMany: %v", err)
	}
	if err := s.CreateMany(ctx, newDocs("c.pdf")); err != nil {
		t.Fatalf("CreateMany: %v", err)
	}

	all, _ := s.ListAll(ctx)
	if len(all) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(all))
	}
	for i, want := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		if all[i].SourceFile.Name != want {
			t.Errorf("position %d = %s, want %s", i, all[i].SourceFile.Name, want)
		}
		if all[i].Seq != int64(i+1) {
			t.Errorf("position %d seq = %d", i, all[i].Seq)
		}
	}
}

func TestDocumentStore_CreateManyRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	s := NewDocumentStore(quietLogger())
	docs := newDocs("a.pdf")
	if err := s.CreateMany(ctx, docs); err != nil {
		t.Fatalf("CreateMany: %v", err)
	}
	err := s.CreateMany(ctx, docs)
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("expected InvalidInput for a duplicate id, got %v", err)
	}
	all, _ := s.ListAll(ctx)
	if len(all) != 1 {
		t.Errorf("duplicate create must not add records, have %d", len(all))
	}
}

func TestDocumentStore_UpdateMissingIsNoop(t *testing.T) {
	ctx := context.Background()
	s := NewDocumentStore(quietLogger())

	_, applied, err := s.UpdateByID(ctx, uuid.New(), entity.FailedPatch("late"))
	if err != nil || applied {
		t.Fatalf("update of a missing record = (%v, %v), want (false, nil)", applied, err)
	}
}

func TestDocumentStore_RemoveThenUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewDocumentStore(quietLogger())
	docs := newDocs("a.pdf")
	_ = s.CreateMany(ctx, docs)

	removed, err := s.RemoveByID(ctx, docs[0].ID)
	if err != nil || !removed {
		t.Fatalf("RemoveByID = (%v, %v)", removed, err)
	}
	_, applied, err := s.UpdateByID(ctx, docs[0].ID, entity.StagePatch(constants.StatusExtracting, 60))
	if err != nil || applied {
		t.Fatalf("update after remove = (%v, %v), want no-op", applied, err)
	}
	if _, found, _ := s.GetByID(ctx, docs[0].ID); found {
		t.Errorf("removed record reappeared")
	}
	if again, _ := s.RemoveByID(ctx, docs[0].ID); again {
		t.Errorf("second remove should report false")
	}
}

func TestDocumentStore_ConcurrentRetryAppliesOnce(t *testing.T) {
	ctx := context.Background()
	s := NewDocumentStore(quietLogger())
	docs := newDocs("a.pdf")
	_ = s.CreateMany(ctx, docs)
	_, _, _ = s.UpdateByID(ctx, docs[0].ID, entity.FailedPatch("boom"))

	var wg sync.WaitGroup
	var mu sync.Mutex
	appliedCount := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, applied, _ := s.UpdateByID(ctx, docs[0].ID, entity.RetryPatch())
			if applied {
				mu.Lock()
				appliedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if appliedCount != 1 {
		t.Fatalf("retry applied %d times, want exactly 1", appliedCount)
	}
	got, _, _ := s.GetByID(ctx, docs[0].ID)
	if got.RetryCount != 1 || got.Status != constants.StatusPending {
		t.Errorf("unexpected state after concurrent retries: %+v", got)
	}
}

func TestDocumentStore_ObserversSeeChanges(t *testing.T) {
	ctx := context.Background()
	var mu sync.Mutex
	var kinds []ChangeKind
	s := NewDocumentStore(quietLogger(), WithObserver(func(c Change) {
		mu.Lock()
		kinds = append(kinds, c.Kind)
		mu.Unlock()
	}))

	docs := newDocs("a.pdf")
	_ = s.CreateMany(ctx, docs)
	_, _, _ = s.UpdateByID(ctx, docs[0].ID, entity.StagePatch(constants.StatusPreprocessing, 20))
	_, _ = s.RemoveByID(ctx, docs[0].ID)

	mu.Lock()
	defer mu.Unlock()
	want := []ChangeKind{ChangeCreated, ChangeUpdated, ChangeRemoved}
	if len(kinds) != len(want) {
		t.Fatalf("observed %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("change %d = %s, want %s", i, kinds[i], want[i])
		}
	}
}

func TestDocumentStore_ChangesDeliveredInCommitOrder(t *testing.T) {
	ctx := context.Background()
	entered := make(chan struct{})
	release := make(chan struct{})

	var mu sync.Mutex
	var kinds []ChangeKind
	var once sync.Once
	s := NewDocumentStore(quietLogger(), WithObserver(func(c Change) {
		if c.Kind == ChangeUpdated {
			once.Do(func() {
				close(entered)
				<-release
			})
		}
		mu.Lock()
		kinds = append(kinds, c.Kind)
		mu.Unlock()
	}))

	docs := newDocs("a.pdf")
	if err := s.CreateMany(ctx, docs); err != nil {
		t.Fatalf("CreateMany: %v", err)
	}

	updated := make(chan struct{})
	go func() {
		defer close(updated)
		_, _, _ = s.UpdateByID(ctx, docs[0].ID, entity.StagePatch(constants.StatusExtracting, 60))
	}()
	<-entered

	// the remove commits while the update's change is still being delivered
	if ok, err := s.RemoveByID(ctx, docs[0].ID); err != nil || !ok {
		t.Fatalf("RemoveByID = %v, %v", ok, err)
	}
	close(release)
	<-updated

	mu.Lock()
	defer mu.Unlock()
	want := []ChangeKind{ChangeCreated, ChangeUpdated, ChangeRemoved}
	if len(kinds) != len(want) {
		t.Fatalf("observed %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("observed %v, want %v", kinds, want)
		}
	}
}

func TestDocumentStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewDocumentStore(quietLogger())
	docs := newDocs("a.pdf")
	_ = s.CreateMany(ctx, docs)

	all, _ := s.ListAll(ctx)
	all[0].Status = constants.StatusCompleted

	got, _, _ := s.GetByID(ctx, docs[0].ID)
	if got.Status != constants.StatusPending {
		t.Errorf("mutating a listed copy leaked into the store")
	}
}

func TestDocumentStore_PersistAndLoadWithSQLite(t *testing.T) {
	ctx := context.Background()
	logger := quietLogger()

	drv, err := OpenSQLite(filepath.Join(t.TempDir(), "documents.db"), logger)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer Close(drv, nil, logger)

	persister := NewSQLPersister(drv, logger)
	if err := persister.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	s := NewDocumentStore(logger, WithPersister(persister))
	docs := newDocs("first.pdf", "second.pdf", "third.pdf")
	if err := s.CreateMany(ctx, docs); err != nil {
		t.Fatalf("CreateMany: %v", err)
	}

	city := "Berlin"
	rec := entity.ExtractedRecord{City: &city, Confidence: 92, ModelUsed: "models/gemini-2.5-flash", Warnings: []string{}}
	if _, applied, err := s.UpdateByID(ctx, docs[1].ID, entity.CompletedPatch(rec)); err != nil || !applied {
		t.Fatalf("UpdateByID = (%v, %v)", applied, err)
	}
	if _, err := s.RemoveByID(ctx, docs[2].ID); err != nil {
		t.Fatalf("RemoveByID: %v", err)
	}

	reloaded := NewDocumentStore(logger, WithPersister(persister))
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	all, _ := reloaded.ListAll(ctx)
	if len(all) != 2 {
		t.Fatalf("expected 2 persisted documents, got %d", len(all))
	}
	if all[0].ID != docs[0].ID || all[1].ID != docs[1].ID {
		t.Errorf("load did not restore submission order")
	}
	got := all[1]
	if got.Status != constants.StatusCompleted || got.ExtractedData == nil {
		t.Fatalf("completed record not restored: %+v", got)
	}
	if got.ExtractedData.Name != nil || got.ExtractedData.City == nil || *got.ExtractedData.City != "Berlin" {
		t.Errorf("extracted fields not restored: %+v", got.ExtractedData)
	}
	if got.ExtractedData.Confidence != 92 {
		t.Errorf("confidence = %d, want 92", got.ExtractedData.Confidence)
	}

	// New records continue the sequence after a reload.
	more := newDocs("fourth.pdf")
	if err := reloaded.CreateMany(ctx, more); err != nil {
		t.Fatalf("CreateMany after load: %v", err)
	}
	after, _ := reloaded.ListAll(ctx)
	if after[len(after)-1].Seq <= got.Seq {
		t.Errorf("sequence did not advance past loaded records")
	}
}
