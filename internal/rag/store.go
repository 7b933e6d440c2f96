// internal/rag/store.go
package rag

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// chunkRecordSchema is enforced on every record crossing the ingestion
// boundary, so downstream code can trust field shapes instead of checking
// them ad hoc.
const chunkRecordSchema = `{
	"type": "object",
	"required": ["id", "source", "text"],
	"properties": {
		"id":      {"type": "string", "minLength": 1},
		"source":  {"type": "string", "minLength": 1},
		"section": {"type": "string"},
		"text":    {"type": "string"}
	}
}`

var chunkSchema = gojsonschema.NewStringLoader(chunkRecordSchema)

// ValidateChunkRecord checks a raw JSONL line against the chunk schema.
func ValidateChunkRecord(line []byte) error {
	result, err := gojsonschema.Validate(chunkSchema, gojsonschema.NewBytesLoader(line))
	if err != nil {
		return fmt.Errorf("validate chunk record: %w", err)
	}
	if !result.Valid() {
		issues := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}
		return fmt.Errorf("invalid chunk record: %s", strings.Join(issues, "; "))
	}
	return nil
}

// LoadChunkTexts reads the chunk text store and returns a lookup of chunk
// id to text. The store is read once at startup and treated as immutable.
func LoadChunkTexts(path string) (map[string]string, error) {
	texts := make(map[string]string)
	err := scanJSONL(path, func(lineNo int, line []byte) error {
		if err := ValidateChunkRecord(line); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		var rec ChunkRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		texts[rec.ID] = rec.Text
		return nil
	})
	if err != nil {
		return nil, err
	}
	return texts, nil
}

// LoadMeta reads the chunk metadata store. The returned slice preserves
// file order, which must match the vector index row order.
func LoadMeta(path string) ([]ChunkMeta, error) {
	var metas []ChunkMeta
	err := scanJSONL(path, func(lineNo int, line []byte) error {
		var meta ChunkMeta
		if err := json.Unmarshal(line, &meta); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		metas = append(metas, meta)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return metas, nil
}

func scanJSONL(path string, handle func(lineNo int, line []byte) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 8*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := handle(lineNo, []byte(line)); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}
