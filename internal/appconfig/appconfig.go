// internal/appconfig/appconfig.go
// Package appconfig manages loading and interpreting application configuration.
package appconfig

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// defaultRequestTimeout is the default timeout for HTTP requests.
	defaultRequestTimeout = 120 * time.Second

	// DefaultChunksPath is the default path to the chunk text store.
	DefaultChunksPath = "data/processed/chunks.jsonl"
	// DefaultIndexPath is the default path to the binary vector index.
	DefaultIndexPath = "indexes/vectors.idx"
	// DefaultMetaPath is the default path to the chunk metadata store.
	DefaultMetaPath = "indexes/meta.jsonl"
)

// ErrMissingAPIKey indicates the required Gemini credential is absent.
var ErrMissingAPIKey = errors.New("GOOGLE_API_KEY is not set")

// Config represents the top-level application configuration.
// Values are environment-provided (bound through viper in the commands
// package) so every knob can be overridden without code changes.
type Config struct {
	APIKey     string `mapstructure:"apiKey"`
	BaseURL    string `mapstructure:"baseURL"`
	Model      string `mapstructure:"model"`
	EmbedModel string `mapstructure:"embedModel"`

	// Retrieval policy.
	TopK          int     `mapstructure:"topK"`
	MinSimilarity float64 `mapstructure:"minSimilarity"`

	// Ingest policy, consumed by the corpus/index build pipelines.
	CorpusPath   string `mapstructure:"corpusPath"`
	ChunkSize    int    `mapstructure:"chunkSize"`
	ChunkOverlap int    `mapstructure:"chunkOverlap"`

	// Index artifacts, loaded once at engine construction.
	ChunksPath string `mapstructure:"chunksPath"`
	IndexPath  string `mapstructure:"indexPath"`
	MetaPath   string `mapstructure:"metaPath"`

	// Decoding parameters for the generation service.
	Temperature     float64 `mapstructure:"temperature"`
	TopP            float64 `mapstructure:"topP"`
	SamplingTopK    int     `mapstructure:"samplingTopK"`
	MaxOutputTokens int     `mapstructure:"maxOutputTokens"`

	// ExamLayout toggles the exam-layout normalization stage; the other
	// stages are always on for generated answers.
	ExamLayout bool `mapstructure:"examLayout"`

	TimeoutSeconds int    `mapstructure:"timeout"`
	Debug          bool   `mapstructure:"debug"`
	LogFile        string `mapstructure:"logFile"`
	ConfigPath     string `mapstructure:"-"`
}

// Default returns a Config populated with the documented defaults. The
// commands package overlays environment values on top of this.
func Default() Config {
	return Config{
		BaseURL:         "https://generativelanguage.googleapis.com/v1beta",
		Model:           "gemini-2.5-pro",
		EmbedModel:      "text-embedding-004",
		TopK:            4,
		MinSimilarity:   0.32,
		CorpusPath:      "data/raw",
		ChunkSize:       900,
		ChunkOverlap:    200,
		ChunksPath:      DefaultChunksPath,
		IndexPath:       DefaultIndexPath,
		MetaPath:        DefaultMetaPath,
		Temperature:     0.4,
		TopP:            0.95,
		SamplingTopK:    40,
		MaxOutputTokens: 4096,
		ExamLayout:      true,
	}
}

// Validate checks the parts of the configuration that must be present
// before any request can be served. Failures here are fatal at startup.
func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("generation model identifier is empty")
	}
	if strings.TrimSpace(c.EmbedModel) == "" {
		return fmt.Errorf("embedding model identifier is empty")
	}
	if c.TopK <= 0 {
		return fmt.Errorf("topK must be positive, got %d", c.TopK)
	}
	if c.MinSimilarity < -1 || c.MinSimilarity > 1 {
		return fmt.Errorf("minSimilarity must be within [-1, 1], got %v", c.MinSimilarity)
	}
	return nil
}

// ValidateIngest checks the chunking policy used by the build pipelines.
func (c Config) ValidateIngest() error {
	if strings.TrimSpace(c.CorpusPath) == "" {
		return fmt.Errorf("corpusPath is required for ingest")
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunkSize must be greater than zero")
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("chunkOverlap must be zero or greater")
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunkOverlap must be smaller than chunkSize")
	}
	return nil
}

// RequestTimeout returns the timeout duration for HTTP requests, falling
// back to the default if not specified.
func (c Config) RequestTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LogFilePath returns the path to the application log file, applying a
// default if not set.
func (c Config) LogFilePath() string {
	if path := strings.TrimSpace(c.LogFile); path != "" {
		return path
	}
	return "chema.log"
}
