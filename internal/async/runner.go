package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// ErrClosed is returned by Enqueue once Shutdown has started.
var ErrClosed = errors.New("runner is shutting down")

// Job is one processing run of one document.
type Job struct {
	DocumentID  uuid.UUID
	Retry       bool
	SubmittedAt time.Time
	TraceID     string
}

// Handler processes a job. It owns its own error reporting.
type Handler func(ctx context.Context, job Job)

// Runner starts one goroutine per job. Jobs are never queued behind each other unless
// a MaxInFlight cap is set, in which case they wait on a semaphore.
type Runner struct {
	handle  Handler
	logger  *slog.Logger
	timeout time.Duration
	sem     *semaphore.Weighted

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

type Option func(*Runner)

// WithMaxInFlight caps concurrently running jobs; n <= 0 means unlimited.
func WithMaxInFlight(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func NewRunner(handle Handler, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	base, cancel := context.WithCancel(context.Background())
	r := &Runner{
		handle:  handle,
		logger:  logger,
		timeout: 3 * time.Minute,
		base:    base,
		cancel:  cancel,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Enqueue starts job in the background. The caller's ctx only bounds the hand-off;
// the job itself runs detached from it.
func (r *Runner) Enqueue(_ context.Context, job Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		r.logger.Warn("async.enqueue.rejected", "document_id", job.DocumentID, "reason", "shutting down")
		return ErrClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}

	r.wg.Add(1)
	go r.run(job)
	r.logger.Debug("async.enqueue.ok", "document_id", job.DocumentID, "retry", job.Retry)
	return nil
}

func (r *Runner) run(job Job) {
	defer r.wg.Done()

	if r.sem != nil {
		if err := r.sem.Acquire(r.base, 1); err != nil {
			r.logger.Warn("async.job.abandoned", "document_id", job.DocumentID, "error", err)
			return
		}
		defer r.sem.Release(1)
	}

	ctx, cancel := context.WithTimeout(r.base, r.timeout)
	defer cancel()

	start := time.Now()
	r.handle(ctx, job)
	r.logger.Debug("async.job.done",
		"document_id", job.DocumentID,
		"queued_ms", start.Sub(job.SubmittedAt).Milliseconds(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
}

// Wait blocks until every started job has returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Shutdown stops accepting jobs and drains the running ones. If ctx expires first the
// remaining jobs are cancelled and ctx.Err() is returned.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); r.wg.Wait() }()

	select {
	case <-done:
		r.cancel()
		r.logger.Info("async.shutdown.drained")
		return nil
	case <-ctx.Done():
		r.cancel()
		r.logger.Warn("async.shutdown.interrupted", "error", ctx.Err())
		<-done
		return ctx.Err()
	}
}
