// internal/commands/root.go
package chema

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chemalabs/chema/internal/appconfig"
	"github.com/chemalabs/chema/internal/logging"
)

var (
	cfgFile       string
	currentConfig *appconfig.Config
	appVersion    = "dev"
	appCommit     = "none"
	appDate       = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chema",
	Short: "chema — Vietnamese high-school chemistry tutor backed by a local retrieval index",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; explicit environment always wins over it.
		_ = godotenv.Load()

		if err := ensureConfigLoaded(); err != nil {
			return err
		}

		var cfg appconfig.Config
		if err := viper.Unmarshal(&cfg); err != nil {
			return fmt.Errorf("unmarshal config: %w", err)
		}
		cfg.ConfigPath = viper.ConfigFileUsed()
		currentConfig = &cfg

		if err := logging.Init(cfg.LogFilePath()); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", appVersion, appCommit, appDate)

	defer logging.Close()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := appconfig.Default()

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (e.g., config/config.json)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("logFile", "", "path to the log file")
	rootCmd.PersistentFlags().String("model", defaults.Model, "generation model identifier")
	rootCmd.PersistentFlags().Bool("examLayout", defaults.ExamLayout, "re-segment answers into exam layout")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("logFile", rootCmd.PersistentFlags().Lookup("logFile"))
	_ = viper.BindPFlag("model", rootCmd.PersistentFlags().Lookup("model"))
	_ = viper.BindPFlag("examLayout", rootCmd.PersistentFlags().Lookup("examLayout"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("json")
		viper.AddConfigPath("config")
		viper.AddConfigPath(".")
	}
	setConfigDefaults()
	bindEnvironment()
}

// setConfigDefaults seeds viper with the documented defaults so a bare
// environment still yields a runnable configuration.
func setConfigDefaults() {
	d := appconfig.Default()
	viper.SetDefault("baseURL", d.BaseURL)
	viper.SetDefault("embedModel", d.EmbedModel)
	viper.SetDefault("topK", d.TopK)
	viper.SetDefault("minSimilarity", d.MinSimilarity)
	viper.SetDefault("corpusPath", d.CorpusPath)
	viper.SetDefault("chunkSize", d.ChunkSize)
	viper.SetDefault("chunkOverlap", d.ChunkOverlap)
	viper.SetDefault("chunksPath", d.ChunksPath)
	viper.SetDefault("indexPath", d.IndexPath)
	viper.SetDefault("metaPath", d.MetaPath)
	viper.SetDefault("temperature", d.Temperature)
	viper.SetDefault("topP", d.TopP)
	viper.SetDefault("samplingTopK", d.SamplingTopK)
	viper.SetDefault("maxOutputTokens", d.MaxOutputTokens)
	viper.SetDefault("timeout", d.TimeoutSeconds)
}

// bindEnvironment maps the well-known environment variables onto config
// keys. GOOGLE_API_KEY is the only required one.
func bindEnvironment() {
	_ = viper.BindEnv("apiKey", "GOOGLE_API_KEY")
	_ = viper.BindEnv("model", "GEMINI_MODEL")
	_ = viper.BindEnv("embedModel", "EMBED_MODEL")
	_ = viper.BindEnv("topK", "TOP_K")
	_ = viper.BindEnv("minSimilarity", "MIN_SIMILARITY")
	_ = viper.BindEnv("chunkSize", "CHUNK_SIZE")
	_ = viper.BindEnv("chunkOverlap", "CHUNK_OVERLAP")
	_ = viper.BindEnv("corpusPath", "CORPUS_PATH")
	_ = viper.BindEnv("logFile", "CHEMA_LOG_FILE")
}

// ensureConfigLoaded reads the config and sets safe defaults.
func ensureConfigLoaded() error {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to load config: %w", err)
	}
	return nil
}

// GetConfig returns the loaded application configuration for other packages.
func GetConfig() *appconfig.Config {
	return currentConfig
}
