// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package plan

import (
	"fmt"
	"math"
	"strings"

	"github.com/pdiddy/worksheet-engine/pkg/types"
)

// DefaultAutoRepairThreshold is the largest error count sent for repair.
const DefaultAutoRepairThreshold = 3

// durationBands bounds each timed lesson section, in minutes.
var durationBands = map[types.SectionType]struct{ min, max int }{
	types.SectionWarmUp:              {3, 10},
	types.SectionInstruction:         {8, 20},
	types.SectionGuidedPractice:      {8, 20},
	types.SectionIndependentPractice: {8, 25},
	types.SectionClosure:             {3, 10},
}

// Requirements tunes Validate. The zero value checks structure only for
// worksheets and applies the default lesson rules to lesson plans.
type Requirements struct {
	// RequiredSectionTypes overrides the lesson section list. Worksheets
	// require none unless set.
	RequiredSectionTypes []types.SectionType

	// TargetDurationMinutes overrides the plan's own target when > 0.
	TargetDurationMinutes int

	// RequireMaterials checks materials on worksheets too.
	RequireMaterials bool

	// NoviceTeacher requires a coaching script on lesson plans.
	NoviceTeacher bool

	MinDifferentiationProfiles int
	AutoRepairThreshold        int

	// Readability checks the objective text. Nil skips the check.
	Readability ReadabilityChecker
}

// RequirementsFromConfig builds Requirements with the default readability
// heuristic.
func RequirementsFromConfig(cfg types.ValidationConfig) Requirements {
	return Requirements{
		NoviceTeacher:              cfg.NoviceTeacher,
		MinDifferentiationProfiles: cfg.MinDifferentiationProfiles,
		AutoRepairThreshold:        cfg.AutoRepairThreshold,
		Readability:                SyllableChecker{},
	}
}

type issues []types.ValidationIssue

func (is *issues) errorf(field, suggestion, format string, args ...any) {
	*is = append(*is, types.ValidationIssue{
		Severity:   types.SeverityError,
		Field:      field,
		Message:    fmt.Sprintf(format, args...),
		Suggestion: suggestion,
	})
}

func (is *issues) warnf(field, suggestion, format string, args ...any) {
	*is = append(*is, types.ValidationIssue{
		Severity:   types.SeverityWarning,
		Field:      field,
		Message:    fmt.Sprintf(format, args...),
		Suggestion: suggestion,
	})
}

// Validate checks p against req. It is deterministic and makes no calls.
// Valid is true iff no error-severity issue was found; AutoRepairable is
// true iff the error count is within the threshold.
func Validate(p *types.DocumentPlan, req Requirements) types.ValidationResult {
	var is issues
	lesson := p.Mode == types.ModeLessonPlan

	// Required section types.
	required := req.RequiredSectionTypes
	if required == nil && lesson {
		required = types.LessonSectionTypes
	}
	present := make(map[types.SectionType]bool)
	for _, s := range p.Structure.Sections {
		present[s.Type] = true
	}
	for _, t := range required {
		if !present[t] {
			is.errorf("structure.sections", fmt.Sprintf("add a %s section", t), "missing required section type %s", t)
		}
	}
	if lesson && req.NoviceTeacher && len(p.CoachingScript) == 0 {
		is.errorf("coachingScript", "add what to say and what to watch for in each section", "coaching script is required for a novice teacher")
	}

	// Section titles and activities.
	for i, s := range p.Structure.Sections {
		path := fmt.Sprintf("structure.sections[%d]", i)
		if strings.TrimSpace(s.Title) == "" {
			is.errorf(path+".title", "give the section a title", "section %q has no title", s.ID)
		}
		if len(s.Items) == 0 {
			is.errorf(path+".items", "add at least one activity", "section %q has no activities", s.ID)
		}
	}

	// Timing.
	if lesson {
		target := p.TargetDurationMinutes
		if req.TargetDurationMinutes > 0 {
			target = req.TargetDurationMinutes
		}
		if target > 0 {
			total := p.TotalDuration()
			if math.Abs(float64(total-target)) > 0.1*float64(target) {
				is.warnf("targetDurationMinutes", "adjust section durations to fit the lesson length",
					"sections total %d minutes, target is %d", total, target)
			}
		}
		for i, s := range p.Structure.Sections {
			b, ok := durationBands[s.Type]
			if !ok {
				continue
			}
			if s.DurationMinutes < b.min || s.DurationMinutes > b.max {
				is.warnf(fmt.Sprintf("structure.sections[%d].durationMinutes", i),
					fmt.Sprintf("use %d-%d minutes", b.min, b.max),
					"%s section runs %d minutes", s.Type, s.DurationMinutes)
			}
		}
	}

	// Materials.
	if lesson || req.RequireMaterials {
		if len(p.Materials) == 0 {
			is.errorf("materials", "list the materials the lesson needs", "materials list is empty")
		}
		for i, m := range p.Materials {
			if strings.TrimSpace(m.Name) == "" {
				is.errorf(fmt.Sprintf("materials[%d].name", i), "name the material", "material %d has no name", i+1)
			}
		}
	}

	// Differentiation.
	if lesson {
		minProfiles := req.MinDifferentiationProfiles
		if minProfiles <= 0 {
			minProfiles = 2
		}
		profiles := make(map[string]bool)
		for _, d := range p.Differentiation {
			if strings.TrimSpace(d.Profile) != "" && strings.TrimSpace(d.Guidance) != "" {
				profiles[strings.ToLower(strings.TrimSpace(d.Profile))] = true
			}
		}
		if len(profiles) < minProfiles {
			is.warnf("differentiation", "describe support and extension for different learners",
				"differentiation covers %d learner profiles, want at least %d", len(profiles), minProfiles)
		}
	}

	// Reading level.
	if req.Readability != nil && len(p.Metadata.Objectives) > 0 {
		text := strings.Join(p.Metadata.Objectives, " ")
		if level, ceiling, ok := req.Readability.Check(text, p.Metadata.Grade); ok && level > ceiling {
			is.warnf("metadata.learningObjectives", "use shorter words and sentences",
				"objectives read at grade %.1f, above %.1f for grade %s", level, ceiling, p.Metadata.Grade)
		}
	}

	// Structure.
	seen := make(map[string]bool)
	for i, s := range p.Structure.Sections {
		for j, it := range s.Items {
			path := fmt.Sprintf("structure.sections[%d].items[%d]", i, j)
			switch {
			case it.ID == "":
				is.errorf(path+".id", "assign an id", "item has no id")
			case seen[it.ID]:
				is.errorf(path+".id", "give each item a unique id", "duplicate item id %q", it.ID)
			default:
				seen[it.ID] = true
			}
			if strings.TrimSpace(it.Text) == "" {
				is.errorf(path+".text", "write the question or activity", "item %q has no text", it.ID)
			}
		}
	}
	placements := make(map[string]bool, len(p.ImagePlacements))
	for k, pl := range p.ImagePlacements {
		path := fmt.Sprintf("imagePlacements[%d]", k)
		switch {
		case pl.ID == "":
			is.errorf(path+".id", "assign an id", "placement has no id")
		case placements[pl.ID]:
			is.errorf(path+".id", "give each placement a unique id", "duplicate placement id %q", pl.ID)
		default:
			placements[pl.ID] = true
		}
		if !seen[pl.AnchorID] {
			is.errorf(path+".anchorId", "anchor the image to an existing item",
				"placement anchor %q does not match any item", pl.AnchorID)
		}
	}

	threshold := req.AutoRepairThreshold
	if threshold <= 0 {
		threshold = DefaultAutoRepairThreshold
	}
	res := types.ValidationResult{Issues: []types.ValidationIssue(is)}
	errCount := len(res.Errors())
	res.Valid = errCount == 0
	res.AutoRepairable = errCount <= threshold
	return res
}
