// internal/rag/embedding.go
package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/chemalabs/chema/internal/logging"
)

// normEpsilon guards the unit-normalization against division by zero.
const normEpsilon = 1e-12

// DefaultEmbeddingDimension matches the text-embedding-004 vector size and
// sizes the all-zero failure sentinel.
const DefaultEmbeddingDimension = 768

// GeminiEmbedder implements Embedder against the Gemini embedContent
// endpoint.
type GeminiEmbedder struct {
	client    *http.Client
	baseURL   string
	apiKey    string
	model     string
	dimension int
}

// NewGeminiEmbedder constructs an embedding adapter for the given model.
func NewGeminiEmbedder(baseURL, apiKey, model string, timeout time.Duration) *GeminiEmbedder {
	return &GeminiEmbedder{
		client:    &http.Client{Timeout: timeout},
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		model:     model,
		dimension: DefaultEmbeddingDimension,
	}
}

// Dimension returns the embedding vector dimension.
func (e *GeminiEmbedder) Dimension() int {
	return e.dimension
}

type embedContentRequest struct {
	Content  embedContent `json:"content"`
	TaskType string       `json:"taskType,omitempty"`
}

type embedContent struct {
	Parts []embedPart `json:"parts"`
}

type embedPart struct {
	Text string `json:"text"`
}

type embedContentResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

// Embed requests a raw embedding vector for the given text and task type.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string, task TaskType) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("embed: text is empty")
	}

	payload := embedContentRequest{
		Content:  embedContent{Parts: []embedPart{{Text: text}}},
		TaskType: string(task),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:embedContent", e.baseURL, e.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding request failed: %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var parsed embedContentResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse embedding response: %w", err)
	}
	if len(parsed.Embedding.Values) == 0 {
		return nil, fmt.Errorf("embedding response returned empty vector")
	}

	return parsed.Embedding.Values, nil
}

// EmbedQuery returns the unit-normalized query vector for text, or the
// all-zero sentinel when the service call fails. Callers detect failure by
// checking IsZeroVector rather than handling an error.
func (e *GeminiEmbedder) EmbedQuery(ctx context.Context, text string) []float32 {
	vec, err := e.Embed(ctx, text, TaskQuery)
	if err != nil {
		logging.LogEvent("embed query failed, degrading to zero vector: %v", err)
		return make([]float32, e.dimension)
	}
	return Normalize(vec)
}

// Normalize scales v to unit length in place and returns it. A zero vector
// stays (effectively) zero thanks to the epsilon guard.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum) + normEpsilon
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

// IsZeroVector reports whether v is the all-zero failure sentinel.
func IsZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
