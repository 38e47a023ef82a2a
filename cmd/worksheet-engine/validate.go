// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/worksheet-engine/internal/llm"
	"github.com/pdiddy/worksheet-engine/internal/plan"
	"github.com/pdiddy/worksheet-engine/pkg/types"
)

var validateCmd = &cobra.Command{
	Use:   "validate <plan.yaml|plan.json>",
	Short: "Check a plan file for structural and pedagogical problems",
	Long: `Validate loads a plan file and reports every error and warning with a
suggested fix. With --repair a plan whose error count is within the
auto-repair threshold is sent to the text provider once, and the corrected
plan is written to --out.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("novice") {
		cfg.Validation.NoviceTeacher, _ = cmd.Flags().GetBool("novice")
	}

	p, err := plan.LoadPlanFile(args[0])
	if err != nil {
		return err
	}
	req := plan.RequirementsFromConfig(cfg.Validation)

	var result types.ValidationResult
	repair, _ := cmd.Flags().GetBool("repair")
	if repair {
		log, err := newLogger(cmd)
		if err != nil {
			return err
		}
		defer log.Sync()

		text, err := llm.New(cfg.Text)
		if err != nil {
			return err
		}
		out := plan.NewRepairer(text, log).ValidateAndRepair(context.Background(), p, req)
		result = out.Validation
		switch {
		case out.Repaired:
			fmt.Printf("repaired: %d errors before, %d after\n", len(out.Initial.Errors()), len(out.Validation.Errors()))
			if path, _ := cmd.Flags().GetString("out"); path != "" {
				if err := plan.WritePlanFile(path, out.Plan); err != nil {
					return err
				}
				fmt.Printf("wrote: %s\n", path)
			}
		case out.Reason != "":
			fmt.Printf("not repaired: %s\n", out.Reason)
		}
	} else {
		result = plan.Validate(p, req)
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printValidation(result)
	if !result.Valid {
		return fmt.Errorf("%d validation error(s)", len(result.Errors()))
	}
	failOn, _ := cmd.Flags().GetString("fail-on")
	if types.ParseSeverity(failOn) == types.SeverityWarning && len(result.Warnings()) > 0 {
		return fmt.Errorf("%d validation warning(s)", len(result.Warnings()))
	}
	return nil
}

func printValidation(r types.ValidationResult) {
	if len(r.Issues) == 0 {
		fmt.Println("Plan is valid.")
		return
	}
	for _, is := range r.Issues {
		fmt.Printf("%-7s  %s: %s\n", is.Severity, is.Field, is.Message)
		if is.Suggestion != "" {
			fmt.Printf("         fix: %s\n", is.Suggestion)
		}
	}
	fmt.Printf("\n%d errors, %d warnings (auto-repairable: %t)\n",
		len(r.Errors()), len(r.Warnings()), r.AutoRepairable)
}

func init() {
	validateCmd.Flags().Bool("repair", false, "attempt one AI-assisted repair when within the threshold")
	validateCmd.Flags().String("out", "", "write the repaired plan to this .yaml or .json file")
	validateCmd.Flags().Bool("novice", false, "require a coaching script on lesson plans")
	validateCmd.Flags().Bool("json", false, "output the validation result as JSON")
	validateCmd.Flags().String("fail-on", "error", "lowest severity that fails the command: error or warning")

	rootCmd.AddCommand(validateCmd)
}
