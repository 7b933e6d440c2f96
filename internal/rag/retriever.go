// internal/rag/retriever.go
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/chemalabs/chema/internal/logging"
)

// Retriever performs top-k similarity search over the prebuilt index and
// joins hits with chunk text and metadata.
type Retriever struct {
	embedder QueryEmbedder
	index    *Index
	metas    []ChunkMeta
	texts    map[string]string
	topK     int
	floor    float64
}

// Artifacts bundles the read-only stores a Retriever searches over.
type Artifacts struct {
	Index *Index
	Metas []ChunkMeta
	Texts map[string]string
}

// LoadArtifacts reads the vector index and its parallel metadata and text
// stores. Any missing or unreadable artifact fails the load as a whole; the
// engine then degrades to ungrounded-only operation.
func LoadArtifacts(indexPath, metaPath, chunksPath string) (*Artifacts, error) {
	index, err := LoadIndex(indexPath)
	if err != nil {
		return nil, err
	}
	metas, err := LoadMeta(metaPath)
	if err != nil {
		return nil, err
	}
	texts, err := LoadChunkTexts(chunksPath)
	if err != nil {
		return nil, err
	}
	if index.Len() != len(metas) {
		return nil, fmt.Errorf("index has %d vectors but metadata has %d records", index.Len(), len(metas))
	}
	return &Artifacts{Index: index, Metas: metas, Texts: texts}, nil
}

// NewRetriever creates a Retriever over loaded artifacts.
func NewRetriever(embedder QueryEmbedder, arts *Artifacts, topK int, floor float64) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}
	if arts == nil || arts.Index == nil {
		return nil, fmt.Errorf("artifacts cannot be nil")
	}
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}
	return &Retriever{
		embedder: embedder,
		index:    arts.Index,
		metas:    arts.Metas,
		texts:    arts.Texts,
		topK:     topK,
		floor:    floor,
	}, nil
}

// Floor returns the configured similarity floor.
func (r *Retriever) Floor() float64 {
	return r.floor
}

// Retrieve embeds the query and returns the contexts at or above the
// similarity floor, ordered by descending score, plus the best raw score
// seen (which may belong to a hit that was filtered out). A zero-vector
// embedding or an unloaded index yields no results rather than an error.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]RetrievedContext, float64) {
	q := r.embedder.EmbedQuery(ctx, query)
	if IsZeroVector(q) {
		return nil, 0
	}

	hits := r.index.Search(q, r.topK)
	var contexts []RetrievedContext
	topRaw := 0.0
	seenRaw := false
	for _, hit := range hits {
		// The index can reference stale rows if the artifacts ever drift.
		if hit.Pos < 0 || hit.Pos >= len(r.metas) {
			logging.LogEvent("retrieve: dropping out-of-range index position %d", hit.Pos)
			continue
		}
		if !seenRaw {
			topRaw = hit.Score
			seenRaw = true
		}
		if hit.Score < r.floor {
			continue
		}
		meta := r.metas[hit.Pos]
		contexts = append(contexts, RetrievedContext{
			ID:      meta.ID,
			Source:  meta.Source,
			Section: meta.Section,
			Score:   hit.Score,
			Text:    strings.TrimSpace(r.texts[meta.ID]),
		})
	}
	return contexts, topRaw
}

// HasReliableContext reports whether grounded generation is viable: a
// non-empty result whose top entry carries text and meets the floor. It is
// recomputed per request, never cached.
func HasReliableContext(contexts []RetrievedContext, floor float64) bool {
	return len(contexts) > 0 &&
		strings.TrimSpace(contexts[0].Text) != "" &&
		contexts[0].Score >= floor
}
