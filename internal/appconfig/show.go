// internal/appconfig/show.go
package appconfig

import (
	"fmt"
	"io"
)

// ShowConfig prints the current configuration summary. The API key is
// masked; only enough of it is shown to tell credentials apart.
func ShowConfig(out io.Writer, file string, cfg *Config) {
	if file == "" {
		fmt.Fprintln(out, "No config file loaded (using defaults and environment).")
	} else {
		fmt.Fprintf(out, "Config file: %s\n\n", file)
	}

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintf(out, "  API Key:          %s\n", MaskSecret(cfg.APIKey))
	fmt.Fprintf(out, "  Base URL:         %s\n", cfg.BaseURL)
	fmt.Fprintf(out, "  Model:            %s\n", cfg.Model)
	fmt.Fprintf(out, "  Embed Model:      %s\n", cfg.EmbedModel)
	fmt.Fprintf(out, "  Top K:            %d\n", cfg.TopK)
	fmt.Fprintf(out, "  Min Similarity:   %v\n", cfg.MinSimilarity)
	fmt.Fprintf(out, "  Corpus Path:      %s\n", cfg.CorpusPath)
	fmt.Fprintf(out, "  Chunk Size:       %d\n", cfg.ChunkSize)
	fmt.Fprintf(out, "  Chunk Overlap:    %d\n", cfg.ChunkOverlap)
	fmt.Fprintf(out, "  Chunks Path:      %s\n", cfg.ChunksPath)
	fmt.Fprintf(out, "  Index Path:       %s\n", cfg.IndexPath)
	fmt.Fprintf(out, "  Meta Path:        %s\n", cfg.MetaPath)
	fmt.Fprintf(out, "  Temperature:      %v\n", cfg.Temperature)
	fmt.Fprintf(out, "  Top P:            %v\n", cfg.TopP)
	fmt.Fprintf(out, "  Sampling Top K:   %d\n", cfg.SamplingTopK)
	fmt.Fprintf(out, "  Max Out Tokens:   %d\n", cfg.MaxOutputTokens)
	fmt.Fprintf(out, "  Exam Layout:      %v\n", cfg.ExamLayout)
	fmt.Fprintf(out, "  Request Timeout:  %s\n", cfg.RequestTimeout())
	fmt.Fprintf(out, "  Debug:            %v\n", cfg.Debug)
	fmt.Fprintf(out, "  Log File:         %s\n", cfg.LogFilePath())
}

// MaskSecret hides all but the last four characters of a credential.
func MaskSecret(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}
