package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/docuextract/internal/llm"
)

// ErrNoCandidate is returned when no strategy produced a usable model.
var ErrNoCandidate = errors.New("no fallback model available")

// ResolutionStrategy proposes a replacement for a model that failed to generate.
// ok=false with a nil error passes to the next strategy.
type ResolutionStrategy interface {
	Name() string
	Resolve(ctx context.Context, requested string) (model string, ok bool, err error)
}

// ListingStrategy picks a candidate from a provider model listing.
type ListingStrategy struct {
	name   string
	lister llm.ModelLister
	marker string
}

func NewListingStrategy(name string, lister llm.ModelLister) *ListingStrategy {
	return &ListingStrategy{name: name, lister: lister, marker: llm.FamilyMarker}
}

func (s *ListingStrategy) Name() string { return s.name }

func (s *ListingStrategy) Resolve(ctx context.Context, requested string) (string, bool, error) {
	models, err := s.lister.ListModels(ctx)
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", s.name, err)
	}
	m, ok := llm.PickCandidate(models, s.marker, requested)
	return m, ok, nil
}

// ListModels exposes the underlying listing.
func (s *ListingStrategy) ListModels(ctx context.Context) ([]llm.ModelDescriptor, error) {
	return s.lister.ListModels(ctx)
}

// Resolver tries its strategies in order and stops at the first candidate.
type Resolver struct {
	strategies []ResolutionStrategy
	log        *slog.Logger
}

func NewResolver(logger *slog.Logger, strategies ...ResolutionStrategy) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{strategies: strategies, log: logger}
}

// Resolve returns a model to retry with. Strategy errors are logged and skipped;
// when nothing matches the result wraps ErrNoCandidate and the last strategy error.
func (r *Resolver) Resolve(ctx context.Context, requested string) (string, error) {
	var lastErr error
	for _, s := range r.strategies {
		m, ok, err := s.Resolve(ctx, requested)
		if err != nil {
			r.log.Warn("llm.fallback.strategy_error", "strategy", s.Name(), "error", err)
			lastErr = err
			continue
		}
		if ok {
			r.log.Info("llm.fallback.resolved", "strategy", s.Name(), "requested", requested, "model", m)
			return m, nil
		}
		r.log.Debug("llm.fallback.no_match", "strategy", s.Name())
	}
	if lastErr != nil {
		return "", errors.Join(ErrNoCandidate, lastErr)
	}
	return "", ErrNoCandidate
}

// ListModels returns the first listing any strategy can produce.
func (r *Resolver) ListModels(ctx context.Context) ([]llm.ModelDescriptor, error) {
	var lastErr error = ErrNoCandidate
	for _, s := range r.strategies {
		lister, ok := s.(llm.ModelLister)
		if !ok {
			continue
		}
		models, err := lister.ListModels(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		return models, nil
	}
	return nil, lastErr
}
