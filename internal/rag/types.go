// internal/rag/types.go
// Package rag implements the retrieval side of the answer pipeline: the
// chunk text/metadata stores, the flat vector index, the embedding adapter,
// and the similarity retriever that joins them.
package rag

import "context"

// ChunkRecord is a single JSONL record in the chunk text store. Records are
// produced by the ingest pipeline and treated as immutable afterwards.
type ChunkRecord struct {
	ID      string `json:"id"`
	Source  string `json:"source"`
	Section string `json:"section"`
	Text    string `json:"text"`
}

// ChunkMeta is a single JSONL record in the chunk metadata store. The store
// is ordered identically to the vector index rows.
type ChunkMeta struct {
	ID      string `json:"id"`
	Source  string `json:"source"`
	Section string `json:"section"`
}

// RetrievedContext is one retrieval hit joined with its chunk text and
// metadata. Score is a cosine similarity in [-1, 1]; vectors are
// unit-normalized, so inner product equals cosine similarity.
type RetrievedContext struct {
	ID      string  `json:"id"`
	Source  string  `json:"source"`
	Section string  `json:"section"`
	Score   float64 `json:"score"`
	Text    string  `json:"text"`
}

// TaskType selects the embedding mode. Mixing query and document modes
// degrades retrieval quality, so callers must pick the right one.
type TaskType string

const (
	// TaskQuery embeds a user question.
	TaskQuery TaskType = "RETRIEVAL_QUERY"
	// TaskDocument embeds a corpus chunk.
	TaskDocument TaskType = "RETRIEVAL_DOCUMENT"
)

// Embedder turns text into a fixed-dimension vector via the embedding
// service. Implementations return raw (not yet normalized) vectors.
type Embedder interface {
	Embed(ctx context.Context, text string, task TaskType) ([]float32, error)
	Dimension() int
}

// QueryEmbedder produces unit-normalized query vectors, degrading to the
// all-zero sentinel instead of returning an error.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) []float32
}
