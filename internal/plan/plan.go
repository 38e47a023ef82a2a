// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package plan produces and checks document plans. The generator asks a text
// provider for a plan and falls back to a deterministic template; the
// validator checks structural and pedagogical rules; the repairer makes one
// bounded AI-assisted attempt to fix a small number of errors.
package plan

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/worksheet-engine/internal/llm"
	"github.com/pdiddy/worksheet-engine/internal/logger"
	"github.com/pdiddy/worksheet-engine/pkg/types"
)

// DefaultQuestionCount is used when the caller does not ask for a count.
const DefaultQuestionCount = 10

// DefaultLessonMinutes is the lesson length used when no target is given.
const DefaultLessonMinutes = 45

// Options are the structured choices that accompany a request.
type Options struct {
	QuestionCount         int
	QuestionTypes         []types.QuestionType
	Difficulty            types.Difficulty
	VisualStyle           types.VisualStyle
	Theme                 string
	TargetDurationMinutes int

	// MaxImages is how many placements to ask the provider for; 0 asks for none.
	MaxImages int
}

func (o Options) withDefaults(mode types.DocumentMode) Options {
	if o.QuestionCount <= 0 {
		o.QuestionCount = DefaultQuestionCount
	}
	if len(o.QuestionTypes) == 0 {
		o.QuestionTypes = []types.QuestionType{types.QuestionMultipleChoice, types.QuestionShortAnswer}
	}
	if o.Difficulty == "" {
		o.Difficulty = types.DifficultyMedium
	}
	if o.VisualStyle == "" {
		o.VisualStyle = types.StyleCartoon
	}
	if mode == types.ModeLessonPlan && o.TargetDurationMinutes <= 0 {
		o.TargetDurationMinutes = DefaultLessonMinutes
	}
	return o
}

// GenerationContext is everything the generator knows about a request.
type GenerationContext struct {
	Prompt  string
	Grade   string
	Subject string
	Topic   string
	Mode    types.DocumentMode
	Options Options

	// References are optional reference or inspiration snippets.
	References []string
}

// Source records where a plan came from.
type Source string

const (
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
	SourceFile     Source = "file"
)

// Result is the output of Generate.
type Result struct {
	Plan   *types.DocumentPlan
	Source Source
	Usage  llm.Usage

	// FallbackReason explains why the template plan was used.
	FallbackReason string

	// DroppedPlacements counts provider placements whose anchor did not resolve.
	DroppedPlacements int

	// Issues carries provider refusals surfaced as validation errors.
	Issues []types.ValidationIssue
}

// Generator asks a TextProvider for a plan.
type Generator struct {
	Provider  llm.TextProvider
	Log       *logger.Logger
	MaxTokens int
}

// NewGenerator returns a Generator. A nil provider always yields the
// fallback plan.
func NewGenerator(p llm.TextProvider, log *logger.Logger) *Generator {
	if log == nil {
		log = logger.Nop()
	}
	return &Generator{Provider: p, Log: log}
}

// Generate never fails: any provider, parse or normalization error produces
// the fallback plan with the reason recorded.
func (g *Generator) Generate(ctx context.Context, gc GenerationContext) Result {
	gc.Mode = types.ParseDocumentMode(string(gc.Mode))
	opts := gc.Options.withDefaults(gc.Mode)

	fallback := func(reason string, usage llm.Usage) Result {
		g.Log.Warn("using fallback plan", "reason", reason, "mode", gc.Mode)
		return Result{
			Plan:           CreateFallbackPlan(gc),
			Source:         SourceFallback,
			FallbackReason: reason,
			Usage:          usage,
		}
	}

	if g.Provider == nil {
		return fallback("no text provider configured", llm.Usage{})
	}

	prompt, err := renderPlanPrompt(gc)
	if err != nil {
		return fallback(fmt.Sprintf("rendering prompt: %v", err), llm.Usage{})
	}

	comp, err := g.Provider.Complete(ctx, llm.CompletionRequest{
		System:    systemPrompt,
		Prompt:    prompt,
		MaxTokens: g.MaxTokens,
		JSON:      true,
	})
	if err != nil {
		res := fallback(fmt.Sprintf("provider error: %v", err), llm.Usage{})
		if llm.IsContentPolicy(err) {
			res.Issues = append(res.Issues, types.ValidationIssue{
				Severity:   types.SeverityError,
				Field:      "prompt",
				Message:    "the text provider refused the request on content-policy grounds",
				Suggestion: "rephrase the request",
			})
		}
		return res
	}

	raw, err := ParseRaw(comp.Text)
	if err != nil {
		return fallback(fmt.Sprintf("parse error: %v", err), comp.Usage)
	}

	p, dropped, err := raw.Normalize(NormalizeOptions{
		Mode:        gc.Mode,
		Grade:       gc.Grade,
		Subject:     gc.Subject,
		VisualStyle: opts.VisualStyle,
		Theme:       opts.Theme,
	})
	if err != nil {
		return fallback(fmt.Sprintf("normalize error: %v", err), comp.Usage)
	}
	if p.Metadata.Topic == "" {
		p.Metadata.Topic = gc.Topic
	}
	if p.Mode == types.ModeLessonPlan && p.TargetDurationMinutes <= 0 {
		p.TargetDurationMinutes = opts.TargetDurationMinutes
	}
	if dropped > 0 {
		g.Log.Info("dropped placements with unknown anchors", "count", dropped)
	}

	g.Log.Debug("plan generated",
		"questions", types.CountQuestions(p),
		"placements", len(p.ImagePlacements),
		"input_tokens", comp.Usage.InputTokens,
		"output_tokens", comp.Usage.OutputTokens,
	)

	return Result{Plan: p, Source: SourceAI, Usage: comp.Usage, DroppedPlacements: dropped}
}

// IsCancelled reports whether a fallback was caused by the caller's context.
func (r Result) IsCancelled() bool {
	return r.Source == SourceFallback &&
		(strings.Contains(r.FallbackReason, context.Canceled.Error()) ||
			strings.Contains(r.FallbackReason, context.DeadlineExceeded.Error()))
}

// errNoProvider is returned by the repairer when it has nothing to call.
var errNoProvider = errors.New("no text provider configured")
