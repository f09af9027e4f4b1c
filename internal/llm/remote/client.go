package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/docuextract/internal/common"
	"github.com/joseph-ayodele/docuextract/internal/llm"
)

// Client calls a running docuextract server's extraction endpoint.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     logger,
	}
}

// ExtractFields posts the document as multipart form data with its type hint.
func (c *Client) ExtractFields(ctx context.Context, req llm.ExtractRequest) (llm.Result, []byte, error) {
	if len(req.Data) == 0 {
		return llm.Result{}, nil, common.InvalidInputError("no file provided")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	name := req.FileName
	if name == "" {
		name = "document.pdf"
	}
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return llm.Result{}, nil, fmt.Errorf("build multipart: %w", err)
	}
	if _, err := fw.Write(req.Data); err != nil {
		return llm.Result{}, nil, fmt.Errorf("build multipart: %w", err)
	}
	if req.DocumentType != "" {
		if err := mw.WriteField("type", string(req.DocumentType)); err != nil {
			return llm.Result{}, nil, fmt.Errorf("build multipart: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return llm.Result{}, nil, fmt.Errorf("build multipart: %w", err)
	}

	raw, status, err := llm.FetchJSON(ctx, c.http, http.MethodPost, c.baseURL+"/api/extract", &body,
		map[string]string{"Content-Type": mw.FormDataContentType()}, c.log)
	if err != nil {
		return llm.Result{}, raw, decodeError(raw, status, err)
	}

	var out llm.ExtractResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return llm.Result{}, raw, common.MalformedResponseError("Failed to parse extraction response", string(raw), err)
	}
	return out.Result(), raw, nil
}

// Health reports whether the server answers its liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	raw, status, err := llm.FetchJSON(ctx, c.http, http.MethodGet, c.baseURL+"/api/upload", nil, nil, c.log)
	if err != nil {
		return decodeError(raw, status, err)
	}
	var ok struct {
		OK bool `json:"ok"`
	}
	if err := json.Unmarshal(raw, &ok); err != nil || !ok.OK {
		return common.ServiceUnavailableError("health check failed", errors.New(string(raw)), "")
	}
	return nil
}

func decodeError(raw []byte, status int, cause error) error {
	if status == 0 {
		return common.ServiceUnavailableError("extraction service unreachable", cause, "check the -server address")
	}

	var body llm.ErrorResponse
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		body.Error = http.StatusText(status)
	}
	underlying := cause
	if body.Details != "" {
		underlying = errors.New(body.Details)
	}

	switch {
	case body.Code == common.CodeRateLimited || status == http.StatusTooManyRequests:
		return common.RateLimitedError(underlying)
	case body.Code == common.CodeInvalidInput || status == http.StatusBadRequest:
		e := common.InvalidInputError(body.Error)
		e.Err = underlying
		return e
	case body.Code == common.CodeConfiguration:
		e := common.ConfigurationError(body.Error)
		e.Err = underlying
		return e
	case body.Code == common.CodeMalformedResponse:
		return common.MalformedResponseError(body.Error, body.Details, cause)
	}
	return common.ServiceUnavailableError(body.Error, underlying, body.Hint)
}
