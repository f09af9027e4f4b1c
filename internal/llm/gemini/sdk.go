package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/docuextract/internal/llm"
)

// SDK is the Gemini API backend. It supports both generation and model enumeration.
type SDK struct {
	client      *genai.Client
	temperature float32
}

func NewSDK(ctx context.Context, apiKey string, temperature float32) (*SDK, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &SDK{client: client, temperature: temperature}, nil
}

func (s *SDK) Close() error {
	return s.client.Close()
}

func (s *SDK) Generate(ctx context.Context, model, prompt, mimeType string, data []byte) (string, error) {
	m := s.client.GenerativeModel(model)
	m.SetTemperature(s.temperature)

	resp, err := m.GenerateContent(ctx, genai.Blob{MIMEType: mimeType, Data: data}, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("empty response from gemini")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String(), nil
}

func (s *SDK) ListModels(ctx context.Context) ([]llm.ModelDescriptor, error) {
	var out []llm.ModelDescriptor
	it := s.client.ListModels(ctx)
	for {
		mi, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, llm.ModelDescriptor{
			Name:                       mi.Name,
			DisplayName:                mi.DisplayName,
			SupportedGenerationMethods: mi.SupportedGenerationMethods,
		})
	}
	return out, nil
}
