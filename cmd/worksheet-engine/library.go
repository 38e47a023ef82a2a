// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/worksheet-engine/internal/library"
	"github.com/pdiddy/worksheet-engine/pkg/types"
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Manage saved documents (list, show, delete, export)",
	Long: `Library manages the local SQLite store of generated documents. Documents
are added by "generate --save".`,
}

// --- list subcommand ---

var libraryListCmd = &cobra.Command{
	Use:   "list [query]",
	Short: "List saved documents, newest first",
	Long: `List shows saved documents. A query matches any part of the title or
topic; --mode, --grade and --subject narrow the result.`,
	RunE: runLibraryList,
}

func runLibraryList(cmd *cobra.Command, args []string) error {
	store, err := openLibrary(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	docs, err := store.List(context.Background(), listOptsFromFlags(cmd, args))
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(docs)
	}

	if len(docs) == 0 {
		fmt.Println("No documents found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-36s  %-40s  %-5s  %-12s  %-11s  %-6s  %s\n",
		"ID", "Title", "Grade", "Subject", "Mode", "Images", "Created")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 134))
	for _, d := range docs {
		title := d.Title
		if len(title) > 40 {
			title = title[:37] + "..."
		}
		status := ""
		if !d.Passed {
			status = " (quality issues)"
		}
		fmt.Fprintf(os.Stdout, "%-36s  %-40s  %-5s  %-12s  %-11s  %-6d  %s%s\n",
			d.ID, title, d.Grade, d.Subject, d.Mode, d.ImageStats.Total,
			d.CreatedAt.Local().Format("2006-01-02 15:04"), status)
	}
	fmt.Fprintf(os.Stdout, "\n%d documents\n", len(docs))
	return nil
}

// --- show subcommand ---

var libraryShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a saved document and optionally write its HTML",
	Args:  cobra.ExactArgs(1),
	RunE:  runLibraryShow,
}

func runLibraryShow(cmd *cobra.Command, args []string) error {
	store, err := openLibrary(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	doc, err := store.Get(context.Background(), args[0])
	if err != nil {
		return err
	}

	if outputDir, _ := cmd.Flags().GetString("output-dir"); outputDir != "" {
		paths, err := library.WriteHTML(doc, outputDir)
		if err != nil {
			return err
		}
		for _, path := range paths {
			fmt.Printf("wrote: %s\n", path)
		}
		return nil
	}

	fmt.Printf("ID:        %s\n", doc.ID)
	fmt.Printf("Title:     %s\n", doc.Title)
	fmt.Printf("Grade:     %s\n", doc.Grade)
	fmt.Printf("Subject:   %s\n", doc.Subject)
	if doc.Topic != "" {
		fmt.Printf("Topic:     %s\n", doc.Topic)
	}
	fmt.Printf("Mode:      %s (%s images)\n", doc.Mode, doc.Richness)
	fmt.Printf("Created:   %s\n", doc.CreatedAt.Local().Format("2006-01-02 15:04"))
	if doc.Plan != nil {
		fmt.Printf("Questions: %d\n", types.CountQuestions(doc.Plan))
	}
	st := doc.ImageStats
	fmt.Printf("Images:    %d total, %d generated, %d cached, %d failed\n", st.Total, st.Generated, st.Cached, st.Failed)
	if rel := st.Relevance; rel != nil {
		fmt.Printf("Relevance: %d of %d admitted (cap %d)\n", rel.Accepted, rel.Total, rel.Cap)
	}
	fmt.Printf("Quality:   passed=%t, %d errors, %d warnings\n", doc.Quality.Passed, doc.Quality.Errors, doc.Quality.Warnings)
	for _, m := range doc.Quality.Messages {
		fmt.Printf("  - %s\n", m)
	}
	return nil
}

// --- delete subcommand ---

var libraryDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete saved documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openLibrary(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		for _, id := range args {
			if err := store.Delete(context.Background(), id); err != nil {
				return err
			}
			fmt.Printf("deleted: %s\n", id)
		}
		return nil
	},
}

// --- export subcommand ---

var libraryExportCmd = &cobra.Command{
	Use:   "export [query]",
	Short: "Export saved documents to YAML or JSON",
	Long: `Export writes document metadata, plans, image stats and quality results
to export.yaml or export.json next to the library database. Supports the
same filters as list.`,
	RunE: runLibraryExport,
}

func runLibraryExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	store, err := openLibrary(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := listOptsFromFlags(cmd, args)

	var path string
	switch format {
	case "yaml", "":
		path, err = store.ExportYAML(context.Background(), opts)
	case "json":
		path, err = store.ExportJSON(context.Background(), opts)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Exported to %s\n", path)
	return nil
}

// --- shared helpers ---

func openLibrary(cmd *cobra.Command) (*library.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return library.Open(cfg.Library)
}

func listOptsFromFlags(cmd *cobra.Command, args []string) library.ListOptions {
	query := strings.Join(args, " ")
	mode, _ := cmd.Flags().GetString("mode")
	grade, _ := cmd.Flags().GetString("grade")
	subject, _ := cmd.Flags().GetString("subject")
	limit, _ := cmd.Flags().GetInt("limit")

	opts := library.ListOptions{
		Query:   query,
		Grade:   grade,
		Subject: subject,
		Limit:   limit,
	}
	if mode != "" {
		opts.Mode = types.ParseDocumentMode(mode)
	}
	return opts
}

func init() {
	for _, c := range []*cobra.Command{libraryListCmd, libraryExportCmd} {
		c.Flags().String("mode", "", "filter by mode: worksheet or lesson_plan")
		c.Flags().String("grade", "", "filter by grade")
		c.Flags().String("subject", "", "filter by subject")
		c.Flags().Int("limit", 0, "maximum documents (0 = default)")
	}
	libraryListCmd.Flags().Bool("json", false, "output results as JSON")
	libraryShowCmd.Flags().String("output-dir", "", "write the document's HTML under this directory instead of printing")
	libraryExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	libraryCmd.AddCommand(libraryListCmd)
	libraryCmd.AddCommand(libraryShowCmd)
	libraryCmd.AddCommand(libraryDeleteCmd)
	libraryCmd.AddCommand(libraryExportCmd)

	rootCmd.AddCommand(libraryCmd)
}
