// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the worksheet-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/worksheet-engine/internal/logger"
	"github.com/pdiddy/worksheet-engine/internal/secrets"
	"github.com/pdiddy/worksheet-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the worksheet-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "worksheet-engine",
	Short: "Generate validated, illustrated worksheets and lesson plans",
	Long: `worksheet-engine turns a natural-language request into a print-ready
worksheet, answer key and (for lesson plans) instructor guide.

A text provider drafts a structured plan, which is validated and repaired
once if needed. Image placements pass a relevance gate before an image
provider renders them; images are cached, compressed and trimmed to a size
budget, then assembled into HTML and checked by a final quality pass.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./worksheet-engine.yaml or ~/.config/worksheet-engine/worksheet-engine.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "logging mode: debug, prod, or quiet (default quiet)")
	rootCmd.PersistentFlags().String("library", "", "library database path (default library/worksheets.db)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("worksheet-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "worksheet-engine"))
		}
	}

	viper.SetEnvPrefix("WORKSHEET_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig starts from the defaults, applies the config file and
// environment, then fills API keys from secrets. Command flags are applied by
// the caller.
func loadConfig(cmd *cobra.Command) (types.PipelineConfig, error) {
	cfg := types.DefaultPipelineConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("reading configuration: %w", err)
	}

	cfg.Text.APIKey = secrets.Resolve(loadedSecrets, secrets.AnthropicAPIKey, cfg.Text.APIKey)
	cfg.Image.APIKey = secrets.Resolve(loadedSecrets, secrets.OpenAIAPIKey, cfg.Image.APIKey)
	if cfg.Text.Backend == types.TextBackendOllama {
		cfg.Text.BaseURL = secrets.Resolve(loadedSecrets, secrets.OllamaURL, cfg.Text.BaseURL)
	}

	if path, _ := cmd.Flags().GetString("library"); path != "" {
		cfg.Library.Path = path
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command) (*logger.Logger, error) {
	mode, _ := cmd.Flags().GetString("log-level")
	if mode == "" {
		mode = viper.GetString("log_level")
	}
	return logger.New(mode)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
