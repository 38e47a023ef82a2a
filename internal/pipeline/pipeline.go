// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one request through every stage: plan generation,
// validation and repair, the relevance gate, image generation with the cache,
// compression and budget reduction, assembly, and the quality gate. Stages
// run strictly in order and provider failures never abort a run.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/worksheet-engine/internal/assemble"
	"github.com/pdiddy/worksheet-engine/internal/compress"
	"github.com/pdiddy/worksheet-engine/internal/imagecache"
	"github.com/pdiddy/worksheet-engine/internal/imagegen"
	"github.com/pdiddy/worksheet-engine/internal/llm"
	"github.com/pdiddy/worksheet-engine/internal/logger"
	"github.com/pdiddy/worksheet-engine/internal/plan"
	"github.com/pdiddy/worksheet-engine/internal/quality"
	"github.com/pdiddy/worksheet-engine/internal/relevance"
	"github.com/pdiddy/worksheet-engine/pkg/types"
)

// Request is one document to produce.
type Request struct {
	Prompt   string
	Grade    string
	Subject  string
	Topic    string
	Mode     types.DocumentMode
	Richness types.Richness
	Options  plan.Options

	References []string
}

func (r Request) context() plan.GenerationContext {
	return plan.GenerationContext{
		Prompt:     r.Prompt,
		Grade:      r.Grade,
		Subject:    r.Subject,
		Topic:      r.Topic,
		Mode:       r.Mode,
		Options:    r.Options,
		References: r.References,
	}
}

// DocumentSaver receives finished documents.
type DocumentSaver interface {
	Save(ctx context.Context, doc *types.Document) error
}

// Pipeline holds the stage handles. Build it with New or fill the fields
// directly in tests.
type Pipeline struct {
	Planner      *plan.Generator
	Repairer     *plan.Repairer
	Requirements plan.Requirements
	Gate         relevance.Gate
	Images       *imagegen.Generator
	Compressor   *compress.Compressor
	MinKeep      int

	// Library, when set, stores every finished document.
	Library DocumentSaver

	Log *logger.Logger

	// Out receives one progress line per stage. Nil discards them.
	Out io.Writer
}

// New wires a Pipeline from cfg. text may be nil, in which case every plan
// comes from the fallback template and repair is skipped.
func New(cfg types.PipelineConfig, text llm.TextProvider, cache *imagecache.Cache, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	planner := plan.NewGenerator(text, log)
	planner.MaxTokens = cfg.Text.MaxTokens

	var repairer *plan.Repairer
	if cfg.Validation.Repair {
		repairer = plan.NewRepairer(text, log)
		repairer.MaxTokens = cfg.Text.MaxTokens
	} else {
		repairer = plan.NewRepairer(nil, log)
	}

	return &Pipeline{
		Planner:      planner,
		Repairer:     repairer,
		Requirements: plan.RequirementsFromConfig(cfg.Validation),
		Images:       imagegen.NewGenerator(cfg.Image, cache, log),
		Compressor:   compress.New(cfg.Compression, log),
		MinKeep:      cfg.Compression.MinKeep,
		Log:          log,
	}
}

// Result is everything a run produced.
type Result struct {
	RunID    string
	Request  Request
	Started  time.Time
	Duration time.Duration

	// Plan is the validated plan with only the placements that were
	// rendered.
	Plan           *types.DocumentPlan
	PlanSource     plan.Source
	FallbackReason string
	Usage          llm.Usage

	Validation types.ValidationResult
	Repair     plan.RepairOutcome

	// Issues are provider findings raised before validation, such as a
	// content-policy refusal.
	Issues []types.ValidationIssue

	Relevance   relevance.Result
	Images      []types.ImageResult
	ImageStats  types.ImageStats
	Compression compress.Totals
	Reduction   compress.Reduction

	Output  assemble.Output
	Quality quality.Report

	// Cancelled is true when the caller's context ended during the run.
	Cancelled bool

	// SaveErr records a library failure. The run itself still succeeded.
	SaveErr error
}

// Run executes every stage for req. The only error returned is a rendering
// failure; provider problems become fallbacks recorded in the result.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	req.Mode = types.ParseDocumentMode(string(req.Mode))
	req.Richness = types.ParseRichness(string(req.Richness))

	res := &Result{RunID: uuid.NewString(), Request: req, Started: time.Now()}
	log := p.logger().With("run_id", res.RunID)
	w := p.out()

	// Plan.
	gen := p.Planner.Generate(ctx, req.context())
	res.PlanSource = gen.Source
	res.FallbackReason = gen.FallbackReason
	res.Usage = gen.Usage
	res.Issues = gen.Issues
	if gen.Source == plan.SourceFallback {
		fmt.Fprintf(w, "plan: fallback template (%s)\n", gen.FallbackReason)
	} else {
		fmt.Fprintf(w, "plan: %d questions, %d placements\n", types.CountQuestions(gen.Plan), len(gen.Plan.ImagePlacements))
	}

	// Validate and repair.
	rep := p.repairer().ValidateAndRepair(ctx, gen.Plan, p.Requirements)
	res.Repair = rep
	res.Validation = rep.Validation
	res.Usage = res.Usage.Add(rep.Usage)
	current := rep.Plan
	switch {
	case rep.Repaired:
		fmt.Fprintf(w, "validate: repaired %d errors to %d\n", len(rep.Initial.Errors()), len(rep.Validation.Errors()))
	case rep.Validation.Valid:
		fmt.Fprintf(w, "validate: ok (%d warnings)\n", len(rep.Validation.Warnings()))
	default:
		fmt.Fprintf(w, "validate: %d errors remain\n", len(rep.Validation.Errors()))
	}

	// Relevance.
	questions := types.CountQuestions(current)
	res.Relevance = p.Gate.Filter(current.ImagePlacements, req.Richness, questions)
	sum := res.Relevance.Summary
	fmt.Fprintf(w, "relevance: %d of %d placements admitted (cap %d)\n", sum.Accepted, sum.Total, sum.Cap)
	for _, d := range res.Relevance.Rejected {
		log.Debug("placement rejected", "placement", d.Placement.ID, "purpose", d.Purpose, "reason", d.Reason)
	}

	// Images.
	admitted := res.Relevance.Placements()
	reqs := ImageRequests(current, admitted)
	batch := p.Images.GenerateBatch(ctx, reqs, func(done, total int, out imagegen.Outcome) {
		log.Debug("image resolved", "done", done, "total", total, "key", out.Key, "state", out.State.String(), "attempts", out.Attempts)
	})
	res.ImageStats = batch.Stats
	res.ImageStats.Relevance = &sum
	fmt.Fprintf(w, "images: %d generated, %d cached, %d failed\n", batch.Stats.Generated, batch.Stats.Cached, batch.Stats.Failed)

	// Compress and fit the budget.
	sizes := make(map[string]types.SizeClass, len(admitted))
	for _, pl := range admitted {
		sizes[pl.ID] = pl.Size
	}
	compressed, totals := p.Compressor.CompressAll(batch.Results(), sizes)
	res.Compression = totals
	res.Reduction = compress.ReduceToFitThreshold(compressed, res.Relevance.Purposes(), req.Richness, p.MinKeep)
	res.Images = res.Reduction.Images
	if n := len(res.Reduction.Removed); n > 0 {
		fmt.Fprintf(w, "compress: removed %d images to fit the budget\n", n)
	}
	if s := res.Reduction.Report.Suggestion; s != "" {
		log.Warn("image payload", "suggestion", s)
	}

	// Assemble.
	res.Plan = withPlacements(current, res.Images)
	out, err := assemble.Assemble(res.Plan, res.Images)
	if err != nil {
		return res, fmt.Errorf("assembling run %s: %w", res.RunID, err)
	}
	res.Output = out

	// Quality.
	res.Quality = quality.Check(quality.Input{
		Worksheet:       out.Worksheet,
		AnswerKey:       out.AnswerKey,
		InstructorGuide: out.InstructorGuide,
		Plan:            res.Plan,
		Images:          res.Images,
		Richness:        req.Richness,
	})
	fmt.Fprintf(w, "quality: passed=%t (%d issues)\n", res.Quality.Passed, len(res.Quality.Issues))

	res.Cancelled = ctx.Err() != nil || gen.IsCancelled()
	res.Duration = time.Since(res.Started)

	if p.Library != nil {
		doc := res.Document()
		if err := p.Library.Save(ctx, doc); err != nil {
			log.Error("saving document", "error", err)
			res.SaveErr = err
		} else {
			fmt.Fprintf(w, "library: saved %s\n", doc.ID)
		}
	}

	log.Info("run complete",
		"mode", req.Mode,
		"source", res.PlanSource,
		"questions", types.CountQuestions(res.Plan),
		"images", len(res.Images),
		"passed", res.Quality.Passed,
		"duration", res.Duration,
	)
	return res, nil
}

// Document converts the result into a library record.
func (r *Result) Document() *types.Document {
	doc := &types.Document{
		ID:                  r.RunID,
		RunID:               r.RunID,
		Grade:               r.Request.Grade,
		Subject:             r.Request.Subject,
		Topic:               r.Request.Topic,
		Mode:                r.Request.Mode,
		Richness:            r.Request.Richness,
		WorksheetHTML:       r.Output.Worksheet,
		AnswerKeyHTML:       r.Output.AnswerKey,
		InstructorGuideHTML: r.Output.InstructorGuide,
		Plan:                r.Plan,
		ImageStats:          r.ImageStats,
		Quality:             summarize(r.Quality),
	}
	if r.Plan != nil {
		doc.Title = r.Plan.Metadata.Title
		if doc.Topic == "" {
			doc.Topic = r.Plan.Metadata.Topic
		}
		if doc.Grade == "" {
			doc.Grade = r.Plan.Metadata.Grade
		}
		if doc.Subject == "" {
			doc.Subject = r.Plan.Metadata.Subject
		}
	}
	if doc.Title == "" {
		doc.Title = r.Request.Prompt
	}
	return doc
}

func summarize(rep quality.Report) types.QualitySummary {
	q := types.QualitySummary{Passed: rep.Passed}
	for _, is := range rep.Issues {
		if is.Severity == types.SeverityError {
			q.Errors++
		} else {
			q.Warnings++
		}
		q.Messages = append(q.Messages, is.Document+": "+is.Message)
	}
	return q
}

// ImageRequests builds one request per admitted placement, in admission
// order.
func ImageRequests(p *types.DocumentPlan, admitted []types.ImagePlacement) []types.ImageRequest {
	style := types.ParseVisualStyle(string(p.Style.VisualStyle))
	reqs := make([]types.ImageRequest, 0, len(admitted))
	for _, pl := range admitted {
		reqs = append(reqs, types.ImageRequest{
			Prompt:      pl.Description,
			Description: pl.Description,
			Style:       style,
			Size:        types.ParseSizeClass(string(pl.Size)),
			PlacementID: pl.ID,
			Grade:       p.Metadata.Grade,
			Subject:     p.Metadata.Subject,
			Theme:       p.Style.Theme,
		})
	}
	return reqs
}

// withPlacements returns a copy of p whose placements are those that have an
// image, kept in plan order.
func withPlacements(p *types.DocumentPlan, images []types.ImageResult) *types.DocumentPlan {
	have := make(map[string]bool, len(images))
	for _, img := range images {
		have[img.PlacementID] = true
	}
	out := *p
	out.ImagePlacements = nil
	for _, pl := range p.ImagePlacements {
		if have[pl.ID] {
			out.ImagePlacements = append(out.ImagePlacements, pl)
		}
	}
	return &out
}

func (p *Pipeline) repairer() *plan.Repairer {
	if p.Repairer == nil {
		return plan.NewRepairer(nil, p.Log)
	}
	return p.Repairer
}

func (p *Pipeline) logger() *logger.Logger {
	if p.Log == nil {
		return logger.Nop()
	}
	return p.Log
}

func (p *Pipeline) out() io.Writer {
	if p.Out == nil {
		return io.Discard
	}
	return p.Out
}
