// internal/commands/ask.go
package chema

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/k0kubun/pp"
	"github.com/spf13/cobra"

	"github.com/chemalabs/chema/internal/engine"
	"github.com/chemalabs/chema/internal/prompt"
	"github.com/chemalabs/chema/internal/stoich"
)

var (
	askMode      string
	askImagePath string
)

// askCmd answers a single question on the command line, streaming the
// response as it is generated.
var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask one question and stream the answer",
	Long: `The 'ask' command answers a single question without entering the chat TUI.
Equation inputs like "Fe + O2 -> Fe2O3" are balanced instantly; everything
else is answered by the model, grounded on the local index when possible.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if err := cfg.Validate(); err != nil {
			return err
		}

		question := strings.TrimSpace(strings.Join(args, " "))
		if question == "" && askImagePath == "" {
			return fmt.Errorf("provide a question or --image")
		}

		var image []byte
		if askImagePath != "" {
			data, err := os.ReadFile(askImagePath)
			if err != nil {
				return fmt.Errorf("reading image: %w", err)
			}
			image = data
		}

		eng := buildEngine(cfg)
		out := cmd.OutOrStdout()

		res := eng.Answer(cmd.Context(), engine.Request{
			Question: question,
			Image:    image,
			Mode:     prompt.ParseMode(askMode),
		}, func(fragment string) error {
			_, err := fmt.Fprint(out, fragment)
			return err
		})
		fmt.Fprintln(out)

		printFootnote(res)
		if cfg.Debug {
			pp.Fprintln(os.Stderr, res.Sources)
		}
		return nil
	},
}

// printFootnote renders the answer metadata below the streamed text.
func printFootnote(res engine.AnswerResult) {
	switch res.Strategy {
	case engine.StrategyBalance:
		color.Cyan("\n⚖️ Đã cân bằng phương trình.")
		color.HiBlack("%s", stoich.HintStoichiometry())
	case engine.StrategyRAG:
		color.Cyan("\n📚 Dựa trên tài liệu (độ liên quan cao nhất %.2f):", res.TopScore)
		for _, src := range res.Sources {
			label := src.Source
			if src.Section != "" {
				label += " · " + src.Section
			}
			color.HiBlack("  - %s (%.2f)", label, src.Score)
		}
	case engine.StrategyModelOnly:
		color.HiBlack("\n💡 Trả lời từ kiến thức phổ thông của mô hình (độ liên quan cao nhất %.2f).", res.TopScore)
	case engine.StrategyMultimodal:
		color.Cyan("\n📸 Đã trả lời từ ảnh đề bài.")
	}
}

func init() {
	askCmd.Flags().StringVar(&askMode, "mode", "", "pedagogical mode: slow, advanced, crash, practice, fun")
	askCmd.Flags().StringVar(&askImagePath, "image", "", "path to a photographed problem (png or jpeg)")
	rootCmd.AddCommand(askCmd)
}
