// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/worksheet-engine/internal/assemble"
	"github.com/pdiddy/worksheet-engine/internal/library"
	"github.com/pdiddy/worksheet-engine/internal/plan"
	"github.com/pdiddy/worksheet-engine/internal/quality"
	"github.com/pdiddy/worksheet-engine/pkg/types"
)

var assembleCmd = &cobra.Command{
	Use:   "assemble <plan.yaml|plan.json>",
	Short: "Render HTML from a plan file without calling any provider",
	Long: `Assemble renders the worksheet, answer key and (for lesson plans)
instructor guide from a plan file. Image placements render as placeholder
boxes. The quality gate runs over the result.`,
	Args: cobra.ExactArgs(1),
	RunE: runAssemble,
}

func runAssemble(cmd *cobra.Command, args []string) error {
	p, err := plan.LoadPlanFile(args[0])
	if err != nil {
		return err
	}

	out, err := assemble.Assemble(p, nil)
	if err != nil {
		return err
	}

	outputDir, _ := cmd.Flags().GetString("output-dir")
	name := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
	doc := &types.Document{
		ID:                  name,
		WorksheetHTML:       out.Worksheet,
		AnswerKeyHTML:       out.AnswerKey,
		InstructorGuideHTML: out.InstructorGuide,
	}
	paths, err := library.WriteHTML(doc, outputDir)
	if err != nil {
		return err
	}
	for _, path := range paths {
		fmt.Printf("wrote: %s\n", path)
	}

	rep := quality.Check(quality.Input{
		Worksheet:       out.Worksheet,
		AnswerKey:       out.AnswerKey,
		InstructorGuide: out.InstructorGuide,
		Plan:            p,
	})
	fmt.Printf("quality: passed=%t, %d questions, %d answers\n", rep.Passed, rep.Questions, rep.Answers)
	for _, is := range rep.Issues {
		fmt.Printf("  %-7s  %s: %s\n", is.Severity, is.Document, is.Message)
	}
	return nil
}

func init() {
	assembleCmd.Flags().String("output-dir", "output", "directory for generated HTML")

	rootCmd.AddCommand(assembleCmd)
}
