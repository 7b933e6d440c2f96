// internal/commands/show_config.go
package chema

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chemalabs/chema/internal/appconfig"
)

// showCmd groups the read-only inspection subcommands.
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Inspect application state",
}

// showConfigCmd implements the 'show config' command, which displays the current configuration settings.
var showConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show config settings",
	Long:  `Show config settings after file, environment, and flag overrides have been applied.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := GetConfig()
		if cfg == nil {
			d := appconfig.Default()
			cfg = &d
		}
		appconfig.ShowConfig(cmd.OutOrStdout(), viper.ConfigFileUsed(), cfg)
	},
}

func init() {
	showCmd.AddCommand(showConfigCmd)
	rootCmd.AddCommand(showCmd)
}
