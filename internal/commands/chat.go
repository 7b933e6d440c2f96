// internal/commands/chat.go
package chema

import (
	"github.com/spf13/cobra"

	"github.com/chemalabs/chema/internal/tui"
)

// chatCmd represents the 'chat' command, which starts an interactive chat session.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive tutoring session",
	Long:  `The 'chat' command opens the terminal chat interface for back-and-forth tutoring.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if err := cfg.Validate(); err != nil {
			return err
		}
		return tui.Run(cfg, buildEngine(cfg))
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
