package gemini

import (
	"time"

	"github.com/joseph-ayodele/docuextract/internal/common"
)

// Config for the Gemini extraction client.
type Config struct {
	Backend        string // gemini | vertex
	APIKey         string
	ModelOverride  string // GEMINI_MODEL, replaces the per-type selection
	ListURL        string // REST model listing endpoint
	VertexProject  string
	VertexLocation string
	Temperature    float32
	Timeout        time.Duration // per generation call
}

// ConfigFrom maps the process configuration onto the client config.
func ConfigFrom(c common.LLMConfig) Config {
	return Config{
		Backend:        c.Backend,
		APIKey:         c.APIKey,
		ModelOverride:  c.ModelOverride,
		ListURL:        c.ListURL,
		VertexProject:  c.VertexProject,
		VertexLocation: c.VertexLocation,
		Temperature:    c.Temperature,
		Timeout:        c.Timeout,
	}
}

func (c Config) withDefaults() Config {
	if c.Backend == "" {
		c.Backend = common.BackendGemini
	}
	if c.ListURL == "" {
		c.ListURL = common.DefaultListURL
	}
	if c.VertexLocation == "" {
		c.VertexLocation = "us-central1"
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	return c
}
