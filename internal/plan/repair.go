// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package plan

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pdiddy/worksheet-engine/internal/llm"
	"github.com/pdiddy/worksheet-engine/internal/logger"
	"github.com/pdiddy/worksheet-engine/pkg/types"
)

// RepairOutcome reports what ValidateAndRepair did.
type RepairOutcome struct {
	Plan       *types.DocumentPlan
	Validation types.ValidationResult

	// Initial is the validation of the plan as given.
	Initial types.ValidationResult

	Attempted bool
	Repaired  bool
	Usage     llm.Usage

	// Reason explains why no repaired plan was returned.
	Reason string
}

// Repairer makes a single AI-assisted repair attempt on an invalid plan.
type Repairer struct {
	Provider  llm.TextProvider
	Log       *logger.Logger
	MaxTokens int
}

// NewRepairer returns a Repairer. A nil provider never repairs.
func NewRepairer(p llm.TextProvider, log *logger.Logger) *Repairer {
	if log == nil {
		log = logger.Nop()
	}
	return &Repairer{Provider: p, Log: log}
}

// ValidateAndRepair validates p and, when it is invalid but auto-repairable,
// sends the plan and its error list to the provider exactly once. The
// corrected plan is re-validated and returned unless it has more errors than
// the original. On any failure the original plan and validation come back
// unchanged. p is never modified.
func (r *Repairer) ValidateAndRepair(ctx context.Context, p *types.DocumentPlan, req Requirements) RepairOutcome {
	initial := Validate(p, req)
	out := RepairOutcome{Plan: p, Validation: initial, Initial: initial}

	switch {
	case initial.Valid:
		return out
	case !initial.AutoRepairable:
		out.Reason = fmt.Sprintf("%d errors exceed the auto-repair threshold", len(initial.Errors()))
		return out
	case r.Provider == nil:
		out.Reason = errNoProvider.Error()
		return out
	}

	planJSON, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		out.Reason = fmt.Sprintf("marshaling plan: %v", err)
		return out
	}
	kind := "worksheet"
	if p.Mode == types.ModeLessonPlan {
		kind = "lesson"
	}
	prompt, err := renderRepairPrompt(kind, string(planJSON), initial.Errors())
	if err != nil {
		out.Reason = fmt.Sprintf("rendering prompt: %v", err)
		return out
	}

	out.Attempted = true
	comp, err := r.Provider.Complete(ctx, llm.CompletionRequest{
		System:    systemPrompt,
		Prompt:    prompt,
		MaxTokens: r.MaxTokens,
		JSON:      true,
	})
	if err != nil {
		out.Reason = fmt.Sprintf("provider error: %v", err)
		r.Log.Warn("plan repair failed", "error", err)
		return out
	}
	out.Usage = comp.Usage

	raw, err := ParseRaw(comp.Text)
	if err != nil {
		out.Reason = fmt.Sprintf("parse error: %v", err)
		r.Log.Warn("plan repair output unparseable", "error", err)
		return out
	}
	fixed, _, err := raw.Normalize(NormalizeOptions{
		Mode:        p.Mode,
		Grade:       p.Metadata.Grade,
		Subject:     p.Metadata.Subject,
		VisualStyle: p.Style.VisualStyle,
		Theme:       p.Style.Theme,
	})
	if err != nil {
		out.Reason = fmt.Sprintf("normalize error: %v", err)
		return out
	}
	if fixed.TargetDurationMinutes == 0 {
		fixed.TargetDurationMinutes = p.TargetDurationMinutes
	}

	after := Validate(fixed, req)
	if len(after.Errors()) > len(initial.Errors()) {
		out.Reason = fmt.Sprintf("repair made things worse (%d errors, was %d)", len(after.Errors()), len(initial.Errors()))
		return out
	}

	r.Log.Info("plan repaired", "errors_before", len(initial.Errors()), "errors_after", len(after.Errors()))
	out.Plan = fixed
	out.Validation = after
	out.Repaired = true
	return out
}
