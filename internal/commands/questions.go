// internal/commands/questions.go
package chema

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chemalabs/chema/internal/questions"
	"github.com/chemalabs/chema/internal/textnorm"
	"github.com/chemalabs/chema/internal/util"
)

var questionsOutPath string

// questionsCmd segments an exam file into structured questions.
var questionsCmd = &cobra.Command{
	Use:   "questions <file>",
	Short: "Segment an exam file into structured questions",
	Long: `The 'questions' command normalizes an exam text file, splits it on
"Câu N:" markers, and emits the questions with their A-D choices as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading exam file: %w", err)
		}

		opts := textnorm.DefaultOptions()
		opts.ExamLayout = true // segmentation depends on the exam layout stage
		cleaned := textnorm.Clean(string(raw), opts)

		qs := questions.Split(cleaned)
		if len(qs) == 0 {
			return fmt.Errorf("no question markers found in %s", args[0])
		}

		data, err := json.MarshalIndent(qs, "", "  ")
		if err != nil {
			return err
		}

		if questionsOutPath != "" {
			return util.WriteFile(questionsOutPath, append(data, '\n'))
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	questionsCmd.Flags().StringVar(&questionsOutPath, "out", "", "write JSON to this file instead of stdout")
	rootCmd.AddCommand(questionsCmd)
}
