package gemini

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docuextract/constants"
	"github.com/joseph-ayodele/docuextract/internal/common"
	"github.com/joseph-ayodele/docuextract/internal/llm"
)

// Generator sends one document plus prompt to a named model and returns the raw text reply.
type Generator interface {
	Generate(ctx context.Context, model, prompt, mimeType string, data []byte) (string, error)
}

// Client implements llm.FieldExtractor with model selection and the listing fallback.
type Client struct {
	cfg      Config
	gen      Generator
	resolver *Resolver
	closer   io.Closer
	log      *slog.Logger
}

// NewClient wires an explicit generator and resolver; tests use it with fakes.
func NewClient(cfg Config, gen Generator, resolver *Resolver, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if resolver == nil {
		resolver = NewResolver(logger)
	}
	return &Client{cfg: cfg.withDefaults(), gen: gen, resolver: resolver, log: logger}
}

// New builds the backend named by cfg.Backend. The gemini backend resolves through the SDK
// listing first and the REST listing second; vertex has only the REST listing.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := &http.Client{Timeout: cfg.Timeout}

	var strategies []ResolutionStrategy
	var gen Generator
	var closer io.Closer

	switch cfg.Backend {
	case common.BackendGemini:
		if cfg.APIKey == "" {
			return nil, common.ConfigurationError("GEMINI_API_KEY is required")
		}
		sdk, err := NewSDK(ctx, cfg.APIKey, cfg.Temperature)
		if err != nil {
			return nil, common.WrapError(err, "gemini backend")
		}
		gen, closer = sdk, sdk
		strategies = append(strategies, NewListingStrategy("sdk-listing", sdk))
	case common.BackendVertex:
		v, err := NewVertex(ctx, cfg.VertexProject, cfg.VertexLocation, cfg.Temperature)
		if err != nil {
			return nil, common.WrapError(err, "vertex backend")
		}
		gen, closer = v, v
	default:
		return nil, common.ConfigurationError("unknown extraction backend: " + cfg.Backend)
	}
	if cfg.APIKey != "" {
		strategies = append(strategies, NewListingStrategy("rest-listing", NewRESTLister(cfg.ListURL, cfg.APIKey, httpClient, logger)))
	}

	c := NewClient(cfg, gen, NewResolver(logger, strategies...), logger)
	c.closer = closer
	return c, nil
}

func (c *Client) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

// ListModels returns the provider listing used by the fallback protocol.
func (c *Client) ListModels(ctx context.Context) ([]llm.ModelDescriptor, error) {
	return c.resolver.ListModels(ctx)
}

func (c *Client) ExtractFields(ctx context.Context, req llm.ExtractRequest) (llm.Result, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	if len(req.Data) == 0 {
		return llm.Result{}, nil, common.InvalidInputError("no file provided")
	}
	if !constants.IsPDF(req.FileName, req.MIMEType) {
		return llm.Result{}, nil, common.InvalidInputError("only PDF documents are supported")
	}
	if c.gen == nil {
		return llm.Result{}, nil, common.ConfigurationError("GEMINI_API_KEY is required")
	}
	mimeType := req.MIMEType
	if mimeType == "" {
		mimeType = constants.PDFMIMEType
	}

	requested := llm.SelectModel(req.DocumentType, c.cfg.ModelOverride)
	prompt := llm.BuildExtractionPrompt(req)

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"model", requested,
		"document_type", req.DocumentType,
		"bytes", len(req.Data),
	)

	used := requested
	text, err := c.generate(ctx, requested, prompt, mimeType, req.Data)
	if err != nil {
		if isRateLimit(err) {
			c.log.Warn("llm.extract.rate_limited", "req_id", rid, "model", requested, "error", err)
			return llm.Result{}, nil, common.RateLimitedError(err)
		}
		c.log.Warn("llm.extract.generate_failed", "req_id", rid, "model", requested, "error", err)

		fallback, rerr := c.resolver.Resolve(ctx, requested)
		if rerr != nil {
			c.log.Error("llm.extract.no_fallback",
				"req_id", rid, "error", rerr,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return llm.Result{}, nil, common.ServiceUnavailableError("generation failed", err, fallbackHint)
		}

		text, rerr = c.generate(ctx, fallback, prompt, mimeType, req.Data)
		if rerr != nil {
			c.log.Error("llm.extract.fallback_failed",
				"req_id", rid, "model", fallback, "error", rerr,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return llm.Result{}, nil, common.ServiceUnavailableError("generation failed", err, fallbackHint)
		}
		used = fallback
	}

	fields, warnings, err := llm.ParseModelOutput(text, c.log)
	if err != nil {
		c.log.Error("llm.extract.parse_failed",
			"req_id", rid, "model", used, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Result{}, []byte(text), err
	}

	elapsed := time.Since(start)
	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"model", used,
		"requested", requested,
		"warnings", len(warnings),
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return llm.Result{
		Fields:         fields,
		Model:          used,
		RequestedModel: requested,
		Cost:           llm.EstimateCost(used),
		ProcessingTime: elapsed,
		Warnings:       warnings,
	}, []byte(text), nil
}

func (c *Client) generate(ctx context.Context, model, prompt, mimeType string, data []byte) (string, error) {
	ctx, cancel := common.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	text, err := c.gen.Generate(ctx, model, prompt, mimeType, data)
	if err == nil && text == "" {
		err = errors.New("empty response")
	}
	return text, err
}
