// internal/rag/indexer.go
package rag

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"

	"github.com/chemalabs/chema/internal/appconfig"
	"github.com/chemalabs/chema/internal/logging"
)

// BuildIndex embeds every chunk in document mode, unit-normalizes the
// vectors, and writes the flat index plus the parallel metadata store.
// Embedding failures here are fatal: a partially built index would silently
// drift from its metadata.
func BuildIndex(ctx context.Context, cfg appconfig.Config, embedder Embedder) error {
	status := color.New(color.FgCyan).PrintfFunc()
	start := time.Now()

	var recs []ChunkRecord
	err := scanJSONL(cfg.ChunksPath, func(lineNo int, line []byte) error {
		if err := ValidateChunkRecord(line); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		var rec ChunkRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		recs = append(recs, rec)
		return nil
	})
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return fmt.Errorf("chunk store %s contains no records", cfg.ChunksPath)
	}
	status("Embedding %d chunks with %s\n", len(recs), cfg.EmbedModel)

	rows := make([][]float32, 0, len(recs))
	for i, rec := range recs {
		vec, err := embedder.Embed(ctx, rec.Text, TaskDocument)
		if err != nil {
			return fmt.Errorf("embed chunk %s: %w", rec.ID, err)
		}
		rows = append(rows, Normalize(vec))
		if (i+1)%25 == 0 || i+1 == len(recs) {
			status("Embedded %d/%d chunks\n", i+1, len(recs))
		}
	}

	index, err := NewIndex(rows)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.IndexPath), 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}
	if err := WriteIndex(cfg.IndexPath, index); err != nil {
		return err
	}

	meta, err := os.Create(cfg.MetaPath)
	if err != nil {
		return fmt.Errorf("create metadata file: %w", err)
	}
	defer meta.Close()

	writer := bufio.NewWriter(meta)
	encoder := json.NewEncoder(writer)
	encoder.SetEscapeHTML(false)
	for _, rec := range recs {
		if err := encoder.Encode(ChunkMeta{ID: rec.ID, Source: rec.Source, Section: rec.Section}); err != nil {
			return fmt.Errorf("write metadata record: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush metadata: %w", err)
	}

	status("Index complete in %s: %s, %s\n", time.Since(start).Truncate(time.Millisecond), cfg.IndexPath, cfg.MetaPath)
	logging.LogEvent("index: built %d vectors (dim %d) in %s", index.Len(), index.Dimension(), time.Since(start).Truncate(time.Millisecond))
	return nil
}
