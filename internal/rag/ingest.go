// internal/rag/ingest.go
package rag

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/chemalabs/chema/internal/appconfig"
	"github.com/chemalabs/chema/internal/logging"
)

// section is a header-delimited span of a markdown document.
type section struct {
	label string
	text  string
}

// BuildChunks walks the corpus directory, splits each markdown/plain-text
// document into header-labeled sections, chunks them with the configured
// size and overlap, and writes the chunk text store.
func BuildChunks(cfg appconfig.Config) error {
	if err := cfg.ValidateIngest(); err != nil {
		return err
	}

	status := color.New(color.FgCyan).PrintfFunc()
	status("Ingesting corpus: %s\n", cfg.CorpusPath)

	files, err := discoverCorpusFiles(cfg.CorpusPath)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no corpus files found under %s", cfg.CorpusPath)
	}
	status("Discovered %d corpus files\n", len(files))

	if err := os.MkdirAll(filepath.Dir(cfg.ChunksPath), 0o755); err != nil {
		return fmt.Errorf("create chunks directory: %w", err)
	}
	out, err := os.Create(cfg.ChunksPath)
	if err != nil {
		return fmt.Errorf("create chunks file: %w", err)
	}
	defer out.Close()

	writer := bufio.NewWriter(out)
	encoder := json.NewEncoder(writer)
	encoder.SetEscapeHTML(false)

	total := 0
	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read corpus file %s: %w", path, err)
		}
		text := strings.TrimSpace(string(raw))
		if text == "" {
			logging.LogEvent("ingest: skipping empty file %s", path)
			continue
		}

		source, err := filepath.Rel(cfg.CorpusPath, path)
		if err != nil {
			source = filepath.Base(path)
		}
		source = filepath.ToSlash(source)

		count := 0
		for _, sec := range splitSections(text) {
			for _, c := range ChunkText(sec.text, cfg.ChunkSize, cfg.ChunkOverlap) {
				rec := ChunkRecord{
					ID:      fmt.Sprintf("%s:%d", source, count),
					Source:  source,
					Section: sec.label,
					Text:    c.Text,
				}
				line, err := json.Marshal(rec)
				if err != nil {
					return fmt.Errorf("marshal chunk record: %w", err)
				}
				if err := ValidateChunkRecord(line); err != nil {
					return fmt.Errorf("chunk %s: %w", rec.ID, err)
				}
				if err := encoder.Encode(rec); err != nil {
					return fmt.Errorf("write chunk record: %w", err)
				}
				count++
			}
		}
		status("Chunked %s into %d chunks\n", source, count)
		total += count
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush chunks file: %w", err)
	}
	status("Wrote %d chunks to %s\n", total, cfg.ChunksPath)
	logging.LogEvent("ingest: wrote %d chunks to %s", total, cfg.ChunksPath)
	return nil
}

func discoverCorpusFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".md", ".markdown", ".txt":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// splitSections cuts a markdown document at its headers. Each section keeps
// its header line in the text (the title is useful retrieval context) and
// carries the joined header path as its label.
func splitSections(text string) []section {
	lines := strings.Split(text, "\n")
	headers := make([]string, 0, 4)
	var sections []section
	var body []string

	flush := func() {
		content := strings.TrimSpace(strings.Join(body, "\n"))
		if content != "" {
			sections = append(sections, section{
				label: strings.Join(headers, " > "),
				text:  content,
			})
		}
		body = body[:0]
	}

	for _, line := range lines {
		level, title := headerLine(line)
		if level == 0 {
			body = append(body, line)
			continue
		}
		flush()
		if level-1 < len(headers) {
			headers = headers[:level-1]
		}
		headers = append(headers, title)
		body = append(body, line)
	}
	flush()
	return sections
}

func headerLine(line string) (int, string) {
	trimmed := strings.TrimSpace(line)
	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	if level == 0 || level > 4 || level >= len(trimmed) || trimmed[level] != ' ' {
		return 0, ""
	}
	return level, strings.TrimSpace(trimmed[level:])
}
