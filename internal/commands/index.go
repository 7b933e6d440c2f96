// internal/commands/index.go
package chema

import (
	"github.com/spf13/cobra"

	"github.com/chemalabs/chema/internal/rag"
)

// indexCmd embeds the chunk store and writes the vector index artifacts.
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed the chunk store and build the vector index",
	Long: `The 'index' command embeds every chunk with the document task type,
normalizes the vectors, and writes the binary index plus the metadata
sidecar used for retrieval.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if err := cfg.Validate(); err != nil {
			return err
		}
		embedder := rag.NewGeminiEmbedder(cfg.BaseURL, cfg.APIKey, cfg.EmbedModel, cfg.RequestTimeout())
		return rag.BuildIndex(cmd.Context(), *cfg, embedder)
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}
