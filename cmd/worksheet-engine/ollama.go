// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/worksheet-engine/internal/llm"
	"github.com/pdiddy/worksheet-engine/internal/secrets"
)

var ollamaCmd = &cobra.Command{
	Use:   "ollama",
	Short: "Check and manage the local Ollama text backend",
	Long: `Ollama reports on a local Ollama server used as the text backend
(--backend ollama) and pulls recommended models.`,
}

var ollamaStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether Ollama is installed and running",
	RunE: func(cmd *cobra.Command, args []string) error {
		o := ollamaBackend(cmd)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		st := o.Status(ctx)
		fmt.Printf("Installed: %t", st.Installed)
		if st.Version != "" {
			fmt.Printf(" (version %s)", st.Version)
		}
		fmt.Println()
		fmt.Printf("Running:   %t (%s)\n", st.Running, o.BaseURL)
		if !st.Running {
			return nil
		}

		fmt.Println("\nRecommended models:")
		for _, m := range llm.RecommendedModels {
			mark := " "
			if st.HasModel(m.Name) {
				mark = "*"
			}
			fmt.Printf("  %s %-14s %-4s %s\n", mark, m.Name, m.Parameters, m.Description)
		}
		fmt.Println("  (* installed)")
		return nil
	},
}

var ollamaModelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models installed on the Ollama server",
	RunE: func(cmd *cobra.Command, args []string) error {
		o := ollamaBackend(cmd)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		models, err := o.ListModels(ctx)
		if err != nil {
			return err
		}
		if len(models) == 0 {
			fmt.Println("No models installed.")
			return nil
		}
		fmt.Fprintf(os.Stdout, "%-30s  %-10s  %s\n", "Name", "Size", "Modified")
		fmt.Fprintln(os.Stdout, strings.Repeat("-", 60))
		for _, m := range models {
			fmt.Fprintf(os.Stdout, "%-30s  %-10s  %s\n", m.Name, m.HumanSize(), m.ModifiedAt.Local().Format("2006-01-02"))
		}
		return nil
	},
}

var ollamaPullCmd = &cobra.Command{
	Use:   "pull [model]",
	Short: "Download a model with the local ollama binary",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		model := llm.RecommendedModels[0].Name
		if len(args) == 1 {
			model = args[0]
		}
		return ollamaBackend(cmd).Pull(cmd.Context(), model, os.Stdout)
	},
}

func ollamaBackend(cmd *cobra.Command) *llm.OllamaBackend {
	url, _ := cmd.Flags().GetString("url")
	url = secrets.Resolve(loadedSecrets, secrets.OllamaURL, url)
	if url == "" {
		url = llm.DefaultOllamaURL
	}
	return &llm.OllamaBackend{
		BaseURL: url,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func init() {
	ollamaCmd.PersistentFlags().String("url", "", "Ollama server URL (default http://localhost:11434)")

	ollamaCmd.AddCommand(ollamaStatusCmd)
	ollamaCmd.AddCommand(ollamaModelsCmd)
	ollamaCmd.AddCommand(ollamaPullCmd)

	rootCmd.AddCommand(ollamaCmd)
}
