// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/worksheet-engine/internal/imagecache"
	"github.com/pdiddy/worksheet-engine/internal/library"
	"github.com/pdiddy/worksheet-engine/internal/llm"
	"github.com/pdiddy/worksheet-engine/internal/pipeline"
	"github.com/pdiddy/worksheet-engine/internal/plan"
	"github.com/pdiddy/worksheet-engine/internal/quality"
	"github.com/pdiddy/worksheet-engine/pkg/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Generate a worksheet or lesson plan from a prompt",
	Long: `Generate runs the full pipeline for one request and writes the HTML
documents to <output-dir>/<run-id>/. With --save the document is also stored
in the library, and cached images persist between runs unless caching is
turned off in the config file.

Without an image API key every admitted placement renders as a neutral
placeholder box. Without a text provider the plan comes from the built-in
template.`,
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyGenerateFlags(cmd, &cfg)

	req, err := requestFromFlags(cmd, args)
	if err != nil {
		return err
	}

	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	text, err := llm.New(cfg.Text)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v; using the template plan\n", err)
	}

	cache := imagecache.New(cfg.Cache, log)
	cache.Start(ctx)
	p := pipeline.New(cfg, text, cache, log)
	p.Out = os.Stdout

	save, _ := cmd.Flags().GetBool("save")
	var store *library.Store
	if save || cfg.Cache.Persist {
		store, err = library.Open(cfg.Library)
		if err != nil {
			return err
		}
		defer store.Close()

		if cfg.Cache.Persist {
			if n, err := pipeline.RestoreCache(ctx, store, cache); err != nil {
				log.Warn("restoring image cache", "error", err)
			} else if n > 0 {
				fmt.Printf("cache: restored %d images\n", n)
			}
		}
		if save {
			p.Library = store
		}
	}

	res, err := p.Run(ctx, req)
	if err != nil {
		return err
	}

	if store != nil && cfg.Cache.Persist {
		if _, err := pipeline.PersistCache(context.Background(), store, cache); err != nil {
			log.Warn("persisting image cache", "error", err)
		}
	}

	doc := res.Document()
	paths, err := library.WriteHTML(doc, cfg.OutputDir)
	if err != nil {
		return err
	}
	for _, path := range paths {
		fmt.Printf("wrote: %s\n", path)
	}

	if planOut, _ := cmd.Flags().GetString("plan-out"); planOut != "" {
		if err := plan.WritePlanFile(planOut, res.Plan); err != nil {
			return err
		}
		fmt.Printf("wrote: %s\n", planOut)
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runSummary{
			RunID:      res.RunID,
			Source:     res.PlanSource,
			Validation: res.Validation,
			ImageStats: res.ImageStats,
			Quality:    res.Quality,
			Usage:      res.Usage,
			Files:      paths,
		})
	}

	printRunSummary(res)
	if res.Cancelled {
		return fmt.Errorf("run %s was interrupted; output may be incomplete", res.RunID)
	}
	return res.SaveErr
}

// runSummary is the --json output of generate.
type runSummary struct {
	RunID      string                 `json:"runId"`
	Source     plan.Source            `json:"planSource"`
	Validation types.ValidationResult `json:"validation"`
	ImageStats types.ImageStats       `json:"imageStats"`
	Quality    quality.Report         `json:"quality"`
	Usage      llm.Usage              `json:"usage"`
	Files      []string               `json:"files"`
}

func printRunSummary(res *pipeline.Result) {
	fmt.Printf("\nrun %s (%s)\n", res.RunID, res.Duration.Round(time.Millisecond))
	fmt.Printf("  plan:       %s, %d questions\n", res.PlanSource, types.CountQuestions(res.Plan))
	issues := make([]types.ValidationIssue, 0, len(res.Issues)+len(res.Validation.Issues))
	issues = append(issues, res.Issues...)
	for _, is := range append(issues, res.Validation.Issues...) {
		fmt.Printf("  %-7s     %s: %s\n", is.Severity, is.Field, is.Message)
	}
	st := res.ImageStats
	fmt.Printf("  images:     %d total, %d generated, %d cached, %d failed\n", st.Total, st.Generated, st.Cached, st.Failed)
	if len(res.Reduction.Removed) > 0 {
		fmt.Printf("  budget:     removed %d images\n", len(res.Reduction.Removed))
	}
	fmt.Printf("  quality:    passed=%t\n", res.Quality.Passed)
	for _, is := range res.Quality.Issues {
		fmt.Printf("  %-7s     %s: %s\n", is.Severity, is.Document, is.Message)
	}
}

// applyGenerateFlags overrides configuration with explicitly set flags.
func applyGenerateFlags(cmd *cobra.Command, cfg *types.PipelineConfig) {
	f := cmd.Flags()
	if f.Changed("backend") {
		b, _ := f.GetString("backend")
		cfg.Text.Backend = types.ParseTextBackend(b)
	}
	if f.Changed("model") {
		cfg.Text.Model, _ = f.GetString("model")
	} else if cfg.Text.Backend == types.TextBackendOllama && strings.HasPrefix(cfg.Text.Model, "claude") {
		cfg.Text.Model = llm.RecommendedModels[0].Name
	}
	if f.Changed("image-model") {
		cfg.Image.Model, _ = f.GetString("image-model")
	}
	if noImages, _ := f.GetBool("no-images"); noImages {
		cfg.Image.Disabled = true
	}
	if noRepair, _ := f.GetBool("no-repair"); noRepair {
		cfg.Validation.Repair = false
	}
	if f.Changed("novice") {
		cfg.Validation.NoviceTeacher, _ = f.GetBool("novice")
	}
	if f.Changed("output-dir") {
		cfg.OutputDir, _ = f.GetString("output-dir")
	}
}

func requestFromFlags(cmd *cobra.Command, args []string) (pipeline.Request, error) {
	f := cmd.Flags()
	prompt, _ := f.GetString("prompt")
	if prompt == "" && len(args) > 0 {
		prompt = strings.Join(args, " ")
	}
	grade, _ := f.GetString("grade")
	subject, _ := f.GetString("subject")
	topic, _ := f.GetString("topic")
	if prompt == "" && topic == "" {
		return pipeline.Request{}, fmt.Errorf("prompt or --topic required")
	}

	mode, _ := f.GetString("mode")
	richness, _ := f.GetString("richness")
	questions, _ := f.GetInt("questions")
	typeNames, _ := f.GetStringSlice("types")
	difficulty, _ := f.GetString("difficulty")
	style, _ := f.GetString("style")
	theme, _ := f.GetString("theme")
	duration, _ := f.GetInt("duration")
	refs, _ := f.GetStringSlice("reference")

	r := types.ParseRichness(richness)
	opts := plan.Options{
		QuestionCount:         questions,
		Difficulty:            types.ParseDifficulty(difficulty),
		VisualStyle:           types.ParseVisualStyle(style),
		Theme:                 theme,
		TargetDurationMinutes: duration,
	}
	for _, name := range typeNames {
		opts.QuestionTypes = append(opts.QuestionTypes, types.ParseQuestionType(name))
	}
	opts.MaxImages, _ = f.GetInt("max-images")
	if !f.Changed("max-images") {
		opts.MaxImages = maxImagesFor(r, questions)
	}

	return pipeline.Request{
		Prompt:     prompt,
		Grade:      grade,
		Subject:    subject,
		Topic:      topic,
		Mode:       types.ParseDocumentMode(mode),
		Richness:   r,
		Options:    opts,
		References: refs,
	}, nil
}

// maxImagesFor asks the provider for a few more placements than the gate
// will admit so it has something to choose from.
func maxImagesFor(r types.Richness, questions int) int {
	if questions <= 0 {
		questions = plan.DefaultQuestionCount
	}
	switch r {
	case types.RichnessMinimal:
		return 3
	case types.RichnessRich:
		return min(questions+2, 12)
	default:
		return 7
	}
}

func init() {
	generateCmd.Flags().String("prompt", "", "natural-language request (or pass it as arguments)")
	generateCmd.Flags().String("grade", "", "grade level, e.g. K, 1, 5")
	generateCmd.Flags().String("subject", "", "subject, e.g. Math, Science")
	generateCmd.Flags().String("topic", "", "topic within the subject")
	generateCmd.Flags().String("mode", "worksheet", "document mode: worksheet or lesson_plan")
	generateCmd.Flags().String("richness", "standard", "image richness: minimal, standard, or rich")
	generateCmd.Flags().Int("questions", 0, "number of questions (default 10)")
	generateCmd.Flags().StringSlice("types", nil, "question types, e.g. multiple_choice,short_answer")
	generateCmd.Flags().String("difficulty", "medium", "difficulty: easy, medium, or hard")
	generateCmd.Flags().String("style", "cartoon", "visual style: cartoon, simple_icons, watercolor, line_art, realistic")
	generateCmd.Flags().String("theme", "", "optional theme for images, e.g. space, ocean")
	generateCmd.Flags().Int("duration", 0, "lesson length in minutes (lesson plans, default 45)")
	generateCmd.Flags().Int("max-images", 0, "placements to request from the text provider (default depends on richness)")
	generateCmd.Flags().StringSlice("reference", nil, "reference or inspiration text (repeatable)")

	generateCmd.Flags().String("backend", "", "text backend: claude or ollama (overrides config)")
	generateCmd.Flags().String("model", "", "text model identifier (overrides config)")
	generateCmd.Flags().String("image-model", "", "image model identifier (overrides config)")
	generateCmd.Flags().Bool("no-images", false, "skip the image provider; placements render as placeholders")
	generateCmd.Flags().Bool("no-repair", false, "skip the AI-assisted repair pass")
	generateCmd.Flags().Bool("novice", false, "require a coaching script on lesson plans")

	generateCmd.Flags().String("output-dir", "output", "directory for generated HTML")
	generateCmd.Flags().String("plan-out", "", "also write the final plan to this .yaml or .json file")
	generateCmd.Flags().Bool("save", false, "store the document in the library")
	generateCmd.Flags().Bool("json", false, "print the run summary as JSON")

	rootCmd.AddCommand(generateCmd)
}
