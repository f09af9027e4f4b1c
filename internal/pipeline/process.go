package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docuextract/constants"
	"github.com/joseph-ayodele/docuextract/internal/async"
	"github.com/joseph-ayodele/docuextract/internal/common"
	"github.com/joseph-ayodele/docuextract/internal/entity"
	"github.com/joseph-ayodele/docuextract/internal/llm"
)

// errRemoved stops a run whose record no longer exists.
var errRemoved = errors.New("document removed")

// process runs one attempt for a document; it is the async.Handler.
func (p *Pipeline) process(ctx context.Context, job async.Job) {
	id := job.DocumentID
	ctx = common.WithDocumentID(ctx, id.String())
	if job.TraceID != "" {
		ctx = common.WithRequestID(ctx, job.TraceID)
	}
	log := p.log.With("document_id", id)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline.panic", "panic", r, "stack", string(debug.Stack()))
			p.fail(ctx, id, fmt.Errorf("unexpected error: %v", r))
		}
	}()

	err := p.run(ctx, id, log)
	switch {
	case err == nil:
		log.Info("pipeline.completed", "retry", job.Retry, "elapsed_ms", time.Since(start).Milliseconds())
	case errors.Is(err, errRemoved):
		log.Info("pipeline.abandoned", "reason", "document removed")
	default:
		log.Error("pipeline.failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		p.fail(ctx, id, err)
	}
}

func (p *Pipeline) run(ctx context.Context, id uuid.UUID, log *slog.Logger) error {
	doc, ok, err := p.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return errRemoved
	}

	// 1) preprocessing
	if err := p.advance(ctx, id, entity.StagePatch(constants.StatusPreprocessing, constants.ProgressPreprocessing)); err != nil {
		return err
	}
	data, err := p.blobs.Get(ctx, id.String())
	if err != nil {
		return err
	}
	pre, err := p.pre.Preprocess(ctx, data)
	if err != nil {
		return err
	}
	log.Debug("pipeline.stage.preprocessed", "pages", pre.Pages)
	if err := common.Sleep(ctx, p.cfg.PreprocessDelay); err != nil {
		return err
	}

	// 2) classification, used only for model selection
	if err := p.advance(ctx, id, entity.StagePatch(constants.StatusClassifying, constants.ProgressClassifying)); err != nil {
		return err
	}
	typ, err := p.classifier.Classify(ctx, data)
	if err != nil {
		return common.WrapError(err, "classify")
	}
	if err := p.advance(ctx, id, entity.ClassificationPatch(typ)); err != nil {
		return err
	}
	log.Debug("pipeline.stage.classified", "classification", typ)
	if err := common.Sleep(ctx, p.cfg.ClassifyDelay); err != nil {
		return err
	}

	// 3) extraction
	if err := p.advance(ctx, id, entity.StagePatch(constants.StatusExtracting, constants.ProgressExtracting)); err != nil {
		return err
	}
	res, err := p.extract(ctx, id, llm.ExtractRequest{
		FileName:     doc.SourceFile.Name,
		MIMEType:     doc.SourceFile.MIMEType,
		Data:         data,
		DocumentType: typ,
	}, log)
	if err != nil {
		return err
	}

	rec := buildRecord(res)
	log.Info("pipeline.stage.extracted",
		"model", rec.ModelUsed,
		"requested_model", rec.RequestedModel,
		"confidence", rec.Confidence,
		"low_confidence", rec.LowConfidence,
	)
	return p.advance(ctx, id, entity.CompletedPatch(rec))
}

// extract calls the extractor, pausing in rate-limited between retries per the backoff policy.
func (p *Pipeline) extract(ctx context.Context, id uuid.UUID, req llm.ExtractRequest, log *slog.Logger) (llm.Result, error) {
	for attempt := 0; ; attempt++ {
		res, _, err := p.extractor.ExtractFields(ctx, req)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, common.ErrRateLimited) || attempt >= p.cfg.Backoff.MaxAttempts {
			return llm.Result{}, err
		}

		delay := p.cfg.Backoff.Delay(attempt)
		log.Warn("pipeline.rate_limited", "attempt", attempt+1, "max_attempts", p.cfg.Backoff.MaxAttempts, "backoff_ms", delay.Milliseconds())
		if err := p.advance(ctx, id, entity.StagePatch(constants.StatusRateLimited, constants.ProgressExtracting)); err != nil {
			return llm.Result{}, err
		}
		if err := common.Sleep(ctx, delay); err != nil {
			return llm.Result{}, err
		}
		if err := p.advance(ctx, id, entity.StagePatch(constants.StatusExtracting, constants.ProgressExtracting)); err != nil {
			return llm.Result{}, err
		}
	}
}

// advance applies a patch; a missing record ends the run.
func (p *Pipeline) advance(ctx context.Context, id uuid.UUID, patch entity.DocumentPatch) error {
	_, applied, err := p.store.UpdateByID(ctx, id, patch)
	if err != nil {
		return err
	}
	if !applied {
		return errRemoved
	}
	return nil
}

// fail records the terminal failure even when the run's context is already done.
// Only the run's own deadline or cancellation replaces the cause's message; a timeout
// inside a single call keeps its own message and hint.
func (p *Pipeline) fail(ctx context.Context, id uuid.UUID, cause error) {
	msg := common.DisplayMessage(cause)
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		msg = "processing timed out"
	case errors.Is(ctx.Err(), context.Canceled):
		msg = "processing was cancelled"
	}
	ctx = context.WithoutCancel(ctx)
	if _, _, err := p.store.UpdateByID(ctx, id, entity.FailedPatch(msg)); err != nil {
		p.log.Error("pipeline.fail.update_error", "document_id", id, "error", err)
	}
}
