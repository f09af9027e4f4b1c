package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/joseph-ayodele/docuextract/internal/common"
	"github.com/joseph-ayodele/docuextract/internal/llm"
)

// RESTLister queries the provider's HTTP model listing with the API key as a query parameter.
type RESTLister struct {
	URL    string
	APIKey string
	HTTP   *http.Client
	log    *slog.Logger
}

func NewRESTLister(listURL, apiKey string, client *http.Client, logger *slog.Logger) *RESTLister {
	if logger == nil {
		logger = slog.Default()
	}
	return &RESTLister{URL: listURL, APIKey: apiKey, HTTP: client, log: logger}
}

func (l *RESTLister) ListModels(ctx context.Context) ([]llm.ModelDescriptor, error) {
	if l.APIKey == "" {
		return nil, common.ConfigurationError("GEMINI_API_KEY is required for model listing")
	}
	u, err := url.Parse(l.URL)
	if err != nil {
		return nil, fmt.Errorf("parse list url: %w", err)
	}
	q := u.Query()
	q.Set("key", l.APIKey)
	u.RawQuery = q.Encode()

	raw, _, err := llm.FetchJSON(ctx, l.HTTP, http.MethodGet, u.String(), nil, nil, l.log)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	return ParseModelListing(raw)
}

// ParseModelListing accepts either a bare array of descriptors or an object with a "models" field.
// Each entry is identified by its name, id or model field.
func ParseModelListing(raw []byte) ([]llm.ModelDescriptor, error) {
	var entries []map[string]any
	if err := json.Unmarshal(raw, &entries); err != nil {
		var wrapped struct {
			Models []map[string]any `json:"models"`
		}
		if err2 := json.Unmarshal(raw, &wrapped); err2 != nil {
			return nil, fmt.Errorf("decode model listing: %w", err2)
		}
		entries = wrapped.Models
	}

	out := make([]llm.ModelDescriptor, 0, len(entries))
	for _, e := range entries {
		d := llm.ModelDescriptor{Name: firstString(e, "name", "id", "model")}
		if d.Name == "" {
			continue
		}
		d.DisplayName, _ = e["displayName"].(string)
		if methods, ok := e["supportedGenerationMethods"].([]any); ok {
			for _, m := range methods {
				if s, ok := m.(string); ok {
					d.SupportedGenerationMethods = append(d.SupportedGenerationMethods, s)
				}
			}
		}
		out = append(out, d)
	}
	return out, nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
