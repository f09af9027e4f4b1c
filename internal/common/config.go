package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Store    StoreConfig
	Blob     BlobConfig
	Server   ServerConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
	WatchDir string
	Debug    bool
}

// StoreConfig holds document persistence configuration.
// An empty DSN keeps documents in memory only.
type StoreConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// BlobConfig selects where uploaded payloads are kept between retries.
type BlobConfig struct {
	Backend string // memory | fs | gcs
	Dir     string
	Bucket  string
	Prefix  string
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr string
	GRPCAddr string
}

// LLMConfig holds extraction provider configuration
type LLMConfig struct {
	Backend        string // gemini | vertex
	APIKey         string
	ModelOverride  string
	ListURL        string
	VertexProject  string
	VertexLocation string
	Temperature    float32
	Timeout        time.Duration
}

// PipelineConfig holds stage pacing and rate-limit backoff settings
type PipelineConfig struct {
	PreprocessDelay     time.Duration
	ClassifyDelay       time.Duration
	ProcessTimeout      time.Duration
	MaxInFlight         int
	RateLimitAttempts   int
	RateLimitInitial    time.Duration
	RateLimitMaxDelay   time.Duration
	RateLimitMultiplier float64
}

const (
	BackendGemini = "gemini"
	BackendVertex = "vertex"

	DefaultListURL = "https://generativelanguage.googleapis.com/v1/models"
)

// LoadConfig loads configuration from a .env file (if present) and environment variables
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Store: StoreConfig{
			DSN:              getEnv("STORE_DSN", ""),
			MaxConns:         getEnvAsInt32("STORE_MAX_CONNS", 10),
			MinConns:         getEnvAsInt32("STORE_MIN_CONNS", 1),
			MaxConnLifetime:  getEnvAsDuration("STORE_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("STORE_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("STORE_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("STORE_STATEMENT_TIMEOUT", 0),
		},
		Blob: BlobConfig{
			Backend: strings.ToLower(getEnv("BLOB_BACKEND", "memory")),
			Dir:     getEnv("BLOB_DIR", "./data/blobs"),
			Bucket:  getEnv("BLOB_BUCKET", ""),
			Prefix:  getEnv("BLOB_PREFIX", "documents/"),
		},
		Server: ServerConfig{
			HTTPAddr: getEnv("HTTP_ADDR", ":3000"),
			GRPCAddr: getEnv("GRPC_ADDR", ":8081"),
		},
		LLM: LLMConfig{
			Backend:        strings.ToLower(getEnv("GEMINI_BACKEND", BackendGemini)),
			APIKey:         getEnv("GEMINI_API_KEY", ""),
			ModelOverride:  getEnv("GEMINI_MODEL", ""),
			ListURL:        getEnv("GEMINI_LIST_URL", DefaultListURL),
			VertexProject:  getEnv("VERTEX_PROJECT", ""),
			VertexLocation: getEnv("VERTEX_LOCATION", "us-central1"),
			Temperature:    getEnvAsFloat32("GEMINI_TEMPERATURE", 0.0),
			Timeout:        getEnvAsDuration("GEMINI_TIMEOUT", 60*time.Second),
		},
		Pipeline: PipelineConfig{
			PreprocessDelay:     getEnvAsDuration("PIPELINE_PREPROCESS_DELAY", 800*time.Millisecond),
			ClassifyDelay:       getEnvAsDuration("PIPELINE_CLASSIFY_DELAY", 600*time.Millisecond),
			ProcessTimeout:      getEnvAsDuration("PIPELINE_PROCESS_TIMEOUT", 3*time.Minute),
			MaxInFlight:         getEnvAsInt("PIPELINE_MAX_IN_FLIGHT", 0),
			RateLimitAttempts:   getEnvAsInt("RATE_LIMIT_MAX_ATTEMPTS", 3),
			RateLimitInitial:    getEnvAsDuration("RATE_LIMIT_INITIAL_BACKOFF", 2*time.Second),
			RateLimitMaxDelay:   getEnvAsDuration("RATE_LIMIT_MAX_BACKOFF", 30*time.Second),
			RateLimitMultiplier: 2,
		},
		WatchDir: getEnv("WATCH_DIR", ""),
		Debug:    getEnvAsBool("DEBUG", false),
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.LLM.Backend {
	case BackendGemini:
		if c.LLM.APIKey == "" {
			return ConfigurationError("GEMINI_API_KEY is required")
		}
	case BackendVertex:
		if c.LLM.VertexProject == "" {
			return ConfigurationError("VERTEX_PROJECT is required for the vertex backend")
		}
	default:
		return ConfigurationError("GEMINI_BACKEND must be gemini or vertex")
	}
	if c.Server.HTTPAddr == "" {
		return ConfigurationError("HTTP_ADDR is required")
	}
	switch c.Blob.Backend {
	case "memory", "fs":
	case "gcs":
		if c.Blob.Bucket == "" {
			return ConfigurationError("BLOB_BUCKET is required for the gcs blob backend")
		}
	default:
		return ConfigurationError("BLOB_BACKEND must be memory, fs or gcs")
	}
	if c.Pipeline.RateLimitAttempts < 0 {
		return ConfigurationError("RATE_LIMIT_MAX_ATTEMPTS must not be negative")
	}
	return nil
}
