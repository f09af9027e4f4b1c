package repository

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docuextract/internal/common"
	"github.com/joseph-ayodele/docuextract/internal/entity"
)

// DocumentRepository is the store contract the pipeline and API depend on.
type DocumentRepository interface {
	CreateMany(ctx context.Context, docs []entity.Document) error
	// UpdateByID applies patch atomically. A missing record yields applied=false and a nil error.
	UpdateByID(ctx context.Context, id uuid.UUID, patch entity.DocumentPatch) (doc entity.Document, applied bool, err error)
	RemoveByID(ctx context.Context, id uuid.UUID) (bool, error)
	ListAll(ctx context.Context) ([]entity.Document, error)
	GetByID(ctx context.Context, id uuid.UUID) (entity.Document, bool, error)
}

// Persister is the durable side of the store: read once on start, written on every change.
type Persister interface {
	LoadAll(ctx context.Context) ([]entity.Document, error)
	Save(ctx context.Context, docs ...entity.Document) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeRemoved ChangeKind = "removed"
)

// Change is delivered to observers after a mutation has been applied.
type Change struct {
	Kind     ChangeKind      `json:"type"`
	Document entity.Document `json:"document"`
}

type Observer func(Change)

// DocumentStore is the in-memory, mutex-guarded document list with an optional write-through persister.
type DocumentStore struct {
	mu        sync.RWMutex
	docs      map[uuid.UUID]*entity.Document
	order     []uuid.UUID
	seq       int64
	persister Persister
	observers []Observer
	feed      changeFeed
	log       *slog.Logger
	now       func() time.Time
}

type StoreOption func(*DocumentStore)

func WithPersister(p Persister) StoreOption {
	return func(s *DocumentStore) {
		s.persister = p
	}
}

func WithObserver(o Observer) StoreOption {
	return func(s *DocumentStore) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

func WithClock(now func() time.Time) StoreOption {
	return func(s *DocumentStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewDocumentStore(log *slog.Logger, opts ...StoreOption) *DocumentStore {
	if log == nil {
		log = slog.Default()
	}
	s := &DocumentStore{
		docs: make(map[uuid.UUID]*entity.Document),
		log:  log,
		now:  time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Subscribe registers an observer for subsequent changes.
func (s *DocumentStore) Subscribe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Load replaces the in-memory list with the persisted one, in submission order.
func (s *DocumentStore) Load(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	docs, err := s.persister.LoadAll(ctx)
	if err != nil {
		s.log.Error("store.load.failed", "error", err)
		return common.WrapError(err, "load documents")
	}
	slices.SortStableFunc(docs, func(a, b entity.Document) int {
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		}
		return 0
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = make(map[uuid.UUID]*entity.Document, len(docs))
	s.order = s.order[:0]
	s.seq = 0
	for i := range docs {
		d := docs[i].Clone()
		s.docs[d.ID] = &d
		s.order = append(s.order, d.ID)
		if d.Seq > s.seq {
			s.seq = d.Seq
		}
	}
	s.log.Info("store.load.ok", "documents", len(docs))
	return nil
}

func (s *DocumentStore) CreateMany(ctx context.Context, docs []entity.Document) error {
	if len(docs) == 0 {
		return nil
	}

	s.mu.Lock()
	seen := make(map[uuid.UUID]struct{}, len(docs))
	for _, d := range docs {
		if d.ID == uuid.Nil {
			s.mu.Unlock()
			return common.InvalidInputError("document id is required")
		}
		if _, exists := s.docs[d.ID]; exists {
			s.mu.Unlock()
			return common.InvalidInputError(fmt.Sprintf("document %s already exists", d.ID))
		}
		if _, dup := seen[d.ID]; dup {
			s.mu.Unlock()
			return common.InvalidInputError(fmt.Sprintf("document %s submitted twice", d.ID))
		}
		seen[d.ID] = struct{}{}
	}

	now := s.now()
	created := make([]entity.Document, 0, len(docs))
	for _, d := range docs {
		d = d.Clone()
		s.seq++
		d.Seq = s.seq
		if d.CreatedAt.IsZero() {
			d.CreatedAt = now
		}
		if d.UpdatedAt.IsZero() {
			d.UpdatedAt = d.CreatedAt
		}
		s.docs[d.ID] = &d
		s.order = append(s.order, d.ID)
		created = append(created, d.Clone())
	}
	s.persist(ctx, "create", created...)
	for _, d := range created {
		s.feed.push(s.observers, Change{Kind: ChangeCreated, Document: d})
	}
	s.mu.Unlock()

	s.feed.drain()
	return nil
}

func (s *DocumentStore) UpdateByID(ctx context.Context, id uuid.UUID, patch entity.DocumentPatch) (entity.Document, bool, error) {
	s.mu.Lock()
	d, ok := s.docs[id]
	if !ok {
		s.mu.Unlock()
		s.log.Debug("store.update.missing", "document_id", id)
		return entity.Document{}, false, nil
	}
	if !patch.Apply(d, s.now()) {
		out := d.Clone()
		s.mu.Unlock()
		return out, false, nil
	}
	out := d.Clone()
	s.persist(ctx, "update", out)
	s.feed.push(s.observers, Change{Kind: ChangeUpdated, Document: out})
	s.mu.Unlock()

	s.feed.drain()
	return out, true, nil
}

func (s *DocumentStore) RemoveByID(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	d, ok := s.docs[id]
	if !ok {
		s.mu.Unlock()
		return false, nil
	}
	removed := d.Clone()
	delete(s.docs, id)
	s.order = slices.DeleteFunc(s.order, func(x uuid.UUID) bool { return x == id })
	if s.persister != nil {
		if err := s.persister.Delete(ctx, id); err != nil {
			s.log.Error("store.persist.failed", "op", "remove", "document_id", id, "error", err)
		}
	}
	s.feed.push(s.observers, Change{Kind: ChangeRemoved, Document: removed})
	s.mu.Unlock()

	s.feed.drain()
	return true, nil
}

func (s *DocumentStore) ListAll(_ context.Context) ([]entity.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.Document, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.docs[id].Clone())
	}
	return out, nil
}

func (s *DocumentStore) GetByID(_ context.Context, id uuid.UUID) (entity.Document, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[id]
	if !ok {
		return entity.Document{}, false, nil
	}
	return d.Clone(), true, nil
}

// persist writes through while the lock is held so that the durable order matches memory.
// Failures are logged; in-memory state stays authoritative for the running process.
func (s *DocumentStore) persist(ctx context.Context, op string, docs ...entity.Document) {
	if s.persister == nil {
		return
	}
	if err := s.persister.Save(ctx, docs...); err != nil {
		s.log.Error("store.persist.failed", "op", op, "documents", len(docs), "error", err)
	}
}

// changeFeed delivers changes in commit order. Changes are pushed while the store lock is
// held and delivered outside it by a single drainer at a time.
type changeFeed struct {
	mu       sync.Mutex
	queue    []pendingChange
	draining bool
}

type pendingChange struct {
	observers []Observer
	change    Change
}

func (f *changeFeed) push(observers []Observer, c Change) {
	if len(observers) == 0 {
		return
	}
	f.mu.Lock()
	f.queue = append(f.queue, pendingChange{observers: observers, change: c})
	f.mu.Unlock()
}

// drain delivers queued changes until the queue is empty. A caller that finds another
// drainer running returns at once; that drainer picks up its change.
func (f *changeFeed) drain() {
	f.mu.Lock()
	if f.draining {
		f.mu.Unlock()
		return
	}
	f.draining = true
	f.mu.Unlock()

	finished := false
	defer func() {
		// an observer panicked; let the next caller take over
		if !finished {
			f.mu.Lock()
			f.draining = false
			f.mu.Unlock()
		}
	}()
	for {
		f.mu.Lock()
		if len(f.queue) == 0 {
			f.draining = false
			f.mu.Unlock()
			finished = true
			return
		}
		next := f.queue[0]
		f.queue[0] = pendingChange{}
		f.queue = f.queue[1:]
		f.mu.Unlock()
		notify(next.observers, next.change)
	}
}

func notify(observers []Observer, c Change) {
	for _, o := range observers {
		o(c)
	}
}
