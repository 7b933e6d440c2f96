// internal/commands/ingest.go
package chema

import (
	"github.com/spf13/cobra"

	"github.com/chemalabs/chema/internal/rag"
)

// ingestCmd chunks the raw corpus into the validated chunk store.
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Chunk the raw corpus into the chunk store",
	Long: `The 'ingest' command reads every markdown and text file under the corpus
path, splits each by markdown headers and then into overlapping word-count
chunks, and writes the validated chunk records to the chunk store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if err := cfg.ValidateIngest(); err != nil {
			return err
		}
		return rag.BuildChunks(*cfg)
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
