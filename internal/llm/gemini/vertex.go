package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	vertex "cloud.google.com/go/vertexai/genai"

	"github.com/joseph-ayodele/docuextract/internal/llm"
)

// Vertex is the Vertex AI backend. It cannot enumerate models.
type Vertex struct {
	client      *vertex.Client
	temperature float32
}

func NewVertex(ctx context.Context, projectID, region string, temperature float32) (*Vertex, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertex: projectID and region cannot be empty")
	}
	client, err := vertex.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("vertex genai.NewClient: %w", err)
	}
	return &Vertex{client: client, temperature: temperature}, nil
}

func (v *Vertex) Close() error {
	return v.client.Close()
}

func (v *Vertex) Generate(ctx context.Context, model, prompt, mimeType string, data []byte) (string, error) {
	m := v.client.GenerativeModel(llm.BareModelName(model))
	m.SetTemperature(v.temperature)

	resp, err := m.GenerateContent(ctx, vertex.Blob{MIMEType: mimeType, Data: data}, vertex.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("empty response from vertex")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(vertex.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String(), nil
}
