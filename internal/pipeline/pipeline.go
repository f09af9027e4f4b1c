package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docuextract/constants"
	"github.com/joseph-ayodele/docuextract/internal/async"
	"github.com/joseph-ayodele/docuextract/internal/blob"
	"github.com/joseph-ayodele/docuextract/internal/classify"
	"github.com/joseph-ayodele/docuextract/internal/common"
	"github.com/joseph-ayodele/docuextract/internal/entity"
	"github.com/joseph-ayodele/docuextract/internal/llm"
	"github.com/joseph-ayodele/docuextract/internal/preprocess"
	"github.com/joseph-ayodele/docuextract/internal/repository"
)

// Config holds stage pacing and the rate-limit policy.
type Config struct {
	PreprocessDelay time.Duration
	ClassifyDelay   time.Duration
	ProcessTimeout  time.Duration
	MaxInFlight     int
	Backoff         BackoffPolicy
}

func ConfigFrom(c common.PipelineConfig) Config {
	return Config{
		PreprocessDelay: c.PreprocessDelay,
		ClassifyDelay:   c.ClassifyDelay,
		ProcessTimeout:  c.ProcessTimeout,
		MaxInFlight:     c.MaxInFlight,
		Backoff: BackoffPolicy{
			MaxAttempts: c.RateLimitAttempts,
			Initial:     c.RateLimitInitial,
			Max:         c.RateLimitMaxDelay,
			Multiplier:  c.RateLimitMultiplier,
		},
	}
}

// Deps are the collaborators the pipeline drives. Store and Extractor are required.
type Deps struct {
	Store        repository.DocumentRepository
	Extractor    llm.FieldExtractor
	Blobs        blob.Store
	Preprocessor preprocess.Preprocessor
	Classifier   classify.Classifier
}

// Upload is one raw file handed to Submit.
type Upload struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Rejection explains why an upload did not become a document.
type Rejection struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Pipeline drives each document through preprocessing, classification and extraction.
type Pipeline struct {
	cfg        Config
	store      repository.DocumentRepository
	extractor  llm.FieldExtractor
	blobs      blob.Store
	pre        preprocess.Preprocessor
	classifier classify.Classifier
	runner     *async.Runner
	log        *slog.Logger
	now        func() time.Time
}

type Option func(*Pipeline)

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

func New(cfg Config, deps Deps, logger *slog.Logger, opts ...Option) (*Pipeline, error) {
	if deps.Store == nil {
		return nil, common.ConfigurationError("pipeline: document store is required")
	}
	if deps.Extractor == nil {
		return nil, common.ConfigurationError("pipeline: extractor is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Blobs == nil {
		deps.Blobs = blob.NewMemory()
	}
	if deps.Preprocessor == nil {
		deps.Preprocessor = preprocess.Passthrough{}
	}
	if deps.Classifier == nil {
		deps.Classifier = classify.NewWeightedRandom(nil)
	}

	p := &Pipeline{
		cfg:        cfg,
		store:      deps.Store,
		extractor:  deps.Extractor,
		blobs:      deps.Blobs,
		pre:        deps.Preprocessor,
		classifier: deps.Classifier,
		log:        logger,
		now:        time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	p.runner = async.NewRunner(p.process, logger,
		async.WithMaxInFlight(cfg.MaxInFlight),
		async.WithProcessTimeout(cfg.ProcessTimeout),
	)
	return p, nil
}

// Submit validates uploads, records every accepted one as pending in a single CreateMany call
// and starts processing each independently. Rejected uploads never create a record.
func (p *Pipeline) Submit(ctx context.Context, uploads []Upload) ([]entity.Document, []Rejection, error) {
	now := p.now()
	var (
		docs     []entity.Document
		rejected []Rejection
	)
	for _, u := range uploads {
		if reason := validateUpload(u); reason != "" {
			p.log.Warn("pipeline.submit.rejected", "file", u.Name, "reason", reason)
			rejected = append(rejected, Rejection{Name: u.Name, Reason: reason})
			continue
		}
		sum := sha256.Sum256(u.Data)
		mimeType := u.MIMEType
		if mimeType == "" {
			mimeType = constants.PDFMIMEType
		}
		d := entity.NewDocument(entity.SourceFile{
			Name:     u.Name,
			Size:     int64(len(u.Data)),
			MIMEType: mimeType,
			SHA256:   hex.EncodeToString(sum[:]),
		}, now)

		if err := p.blobs.Put(ctx, d.ID.String(), u.Data); err != nil {
			p.discardPayloads(ctx, docs)
			return nil, rejected, common.WrapError(err, "store payload")
		}
		docs = append(docs, d)
	}
	if len(docs) == 0 {
		return nil, rejected, nil
	}

	if err := p.store.CreateMany(ctx, docs); err != nil {
		p.discardPayloads(ctx, docs)
		return nil, rejected, err
	}
	p.log.Info("pipeline.submit.ok", "accepted", len(docs), "rejected", len(rejected))

	for _, d := range docs {
		p.start(ctx, d.ID, false)
	}
	return docs, rejected, nil
}

// Retry re-runs a failed document. Any other status is left untouched and false is returned.
func (p *Pipeline) Retry(ctx context.Context, id uuid.UUID) (bool, error) {
	doc, applied, err := p.store.UpdateByID(ctx, id, entity.RetryPatch())
	if err != nil {
		return false, err
	}
	if !applied {
		p.log.Debug("pipeline.retry.ignored", "document_id", id, "status", doc.Status)
		return false, nil
	}
	p.log.Info("pipeline.retry.start", "document_id", id, "retry_count", doc.RetryCount)
	p.start(ctx, id, true)
	return true, nil
}

// Remove deletes the record and its payload. In-flight processing is not cancelled;
// its later updates find no record and stop.
func (p *Pipeline) Remove(ctx context.Context, id uuid.UUID) (bool, error) {
	removed, err := p.store.RemoveByID(ctx, id)
	if err != nil || !removed {
		return removed, err
	}
	if err := p.blobs.Delete(ctx, id.String()); err != nil {
		p.log.Warn("pipeline.remove.payload_delete_failed", "document_id", id, "error", err)
	}
	return true, nil
}

// Recover restarts documents a previous process left unfinished. Documents whose payload
// is gone are failed so they can be re-uploaded.
func (p *Pipeline) Recover(ctx context.Context) (int, error) {
	docs, err := p.store.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	restarted := 0
	for _, d := range docs {
		if d.Status.Terminal() {
			continue
		}
		if _, err := p.blobs.Get(ctx, d.ID.String()); err != nil {
			p.log.Warn("pipeline.recover.payload_missing", "document_id", d.ID, "error", err)
			_, _, _ = p.store.UpdateByID(ctx, d.ID, entity.FailedPatch("processing was interrupted and the file is no longer available; upload it again"))
			continue
		}
		if _, applied, err := p.store.UpdateByID(ctx, d.ID, entity.StagePatch(constants.StatusPending, constants.ProgressPending)); err != nil || !applied {
			continue
		}
		p.start(ctx, d.ID, false)
		restarted++
	}
	if restarted > 0 {
		p.log.Info("pipeline.recover.ok", "restarted", restarted)
	}
	return restarted, nil
}

// Wait blocks until all started documents reach a final state.
func (p *Pipeline) Wait() {
	p.runner.Wait()
}

// Shutdown stops accepting work and waits for in-flight documents until ctx expires.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	return p.runner.Shutdown(ctx)
}

func (p *Pipeline) start(ctx context.Context, id uuid.UUID, retry bool) {
	job := async.Job{
		DocumentID: id,
		Retry:      retry,
		TraceID:    common.RequestIDFromContext(ctx),
	}
	if err := p.runner.Enqueue(ctx, job); err != nil {
		p.fail(ctx, id, err)
	}
}

func (p *Pipeline) discardPayloads(ctx context.Context, docs []entity.Document) {
	for _, d := range docs {
		_ = p.blobs.Delete(ctx, d.ID.String())
	}
}

func validateUpload(u Upload) string {
	if !constants.IsPDF(u.Name, u.MIMEType) {
		return "Only PDF files are allowed"
	}
	v := common.NewValidator()
	v.Field("file", u.Data, common.Required, common.MaxBytes(constants.MaxUploadBytes))
	return v.ErrorMessage()
}
