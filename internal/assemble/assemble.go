// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assemble renders a document plan and its images into printable
// HTML: the student worksheet, the answer key and, for lesson plans, the
// instructor guide. Rendering is pure and deterministic.
package assemble

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/worksheet-engine/pkg/types"
)

// Markers used in the rendered HTML. Callers count them to re-derive the
// number of questions and answers.
const (
	QuestionMarker = `class="question"`
	AnswerMarker   = `class="answer"`
)

// Output holds the rendered documents. InstructorGuide is empty for
// worksheets.
type Output struct {
	Worksheet       string `json:"worksheet" yaml:"worksheet"`
	AnswerKey       string `json:"answerKey" yaml:"answer_key"`
	InstructorGuide string `json:"instructorGuide,omitempty" yaml:"instructor_guide,omitempty"`
}

type figure struct {
	Src         string
	Alt         string
	Width       int
	Height      int
	Placeholder bool
}

type itemView struct {
	Number  int
	Item    types.PlanItem
	Figures []figure
	Lines   int
}

type sectionView struct {
	Type         types.SectionType
	Title        string
	Instructions string
	Duration     int
	Items        []itemView
	Coaching     []types.CoachingNote
}

type page struct {
	CSS             string
	Title           string
	Grade           string
	Subject         string
	Header          types.PlanHeader
	Duration        int
	Objectives      []string
	Materials       []types.Material
	Differentiation []types.Differentiation
	GeneralCoaching []types.CoachingNote
	Sections        []sectionView
}

// Assemble renders p with images. Images are matched to placements by
// placement id; images without a matching id fill the remaining placements
// in plan order. Placements left without an image render as a placeholder
// box.
func Assemble(p *types.DocumentPlan, images []types.ImageResult) (Output, error) {
	pg := buildPage(p, matchImages(p, images))

	var out Output
	var err error
	if out.Worksheet, err = render(worksheetTmpl, pg); err != nil {
		return Output{}, fmt.Errorf("rendering worksheet: %w", err)
	}
	if out.AnswerKey, err = render(answerKeyTmpl, pg); err != nil {
		return Output{}, fmt.Errorf("rendering answer key: %w", err)
	}
	if p.Mode == types.ModeLessonPlan {
		if out.InstructorGuide, err = render(guideTmpl, pg); err != nil {
			return Output{}, fmt.Errorf("rendering instructor guide: %w", err)
		}
	}
	return out, nil
}

func render(t *template.Template, pg page) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, pg); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// CountMarkers counts occurrences of marker in rendered HTML.
func CountMarkers(html, marker string) int {
	return strings.Count(html, marker)
}

// matchImages pairs each placement, by index, with an image. Unmatched
// placements map to nil.
func matchImages(p *types.DocumentPlan, images []types.ImageResult) []*types.ImageResult {
	matched := make([]*types.ImageResult, len(p.ImagePlacements))
	byID := make(map[string]int, len(p.ImagePlacements))
	for k, pl := range p.ImagePlacements {
		if pl.ID != "" {
			byID[pl.ID] = k
		}
	}

	var positional []*types.ImageResult
	for i := range images {
		img := &images[i]
		if k, ok := byID[img.PlacementID]; ok && img.PlacementID != "" && matched[k] == nil {
			matched[k] = img
			continue
		}
		positional = append(positional, img)
	}
	for k := range matched {
		if matched[k] != nil {
			continue
		}
		if len(positional) == 0 {
			break
		}
		matched[k] = positional[0]
		positional = positional[1:]
	}
	return matched
}

func buildPage(p *types.DocumentPlan, matched []*types.ImageResult) page {
	title := firstNonEmpty(p.Structure.Header.Title, p.Metadata.Title, "Worksheet")

	figures := make(map[string][]figure)
	for k, pl := range p.ImagePlacements {
		figures[pl.AnchorID] = append(figures[pl.AnchorID], toFigure(pl, matched[k]))
	}

	// Coaching notes attach to their section; the rest are listed at the end.
	sectionIDs := make(map[string]bool)
	for _, s := range p.Structure.Sections {
		sectionIDs[s.ID] = true
	}
	coaching := make(map[string][]types.CoachingNote)
	var general []types.CoachingNote
	for _, n := range p.CoachingScript {
		if n.SectionID != "" && sectionIDs[n.SectionID] {
			coaching[n.SectionID] = append(coaching[n.SectionID], n)
			continue
		}
		general = append(general, n)
	}

	pg := page{
		CSS:             baseCSS,
		Title:           title,
		Grade:           p.Metadata.Grade,
		Subject:         p.Metadata.Subject,
		Header:          p.Structure.Header,
		Duration:        p.TotalDuration(),
		Objectives:      p.Metadata.Objectives,
		Materials:       p.Materials,
		Differentiation: p.Differentiation,
		GeneralCoaching: general,
	}
	n := 0
	for _, s := range p.Structure.Sections {
		sv := sectionView{
			Type:         s.Type,
			Title:        s.Title,
			Instructions: s.Instructions,
			Duration:     s.DurationMinutes,
			Coaching:     coaching[s.ID],
		}
		for _, it := range s.Items {
			n++
			sv.Items = append(sv.Items, itemView{
				Number:  n,
				Item:    it,
				Figures: figures[it.ID],
				Lines:   writeLines(it),
			})
		}
		pg.Sections = append(pg.Sections, sv)
	}
	return pg
}

func toFigure(pl types.ImagePlacement, img *types.ImageResult) figure {
	w, h := pl.Size.Dimensions()
	f := figure{Alt: pl.Description, Width: w, Height: h, Placeholder: true}
	if img == nil || img.IsPlaceholder() || img.Data == "" {
		return f
	}
	if img.Width > 0 && img.Height > 0 {
		f.Width, f.Height = img.Width, img.Height
	}
	mediaType := img.MediaType
	if mediaType == "" {
		mediaType = "image/png"
	}
	f.Src = "data:" + mediaType + ";base64," + img.Data
	f.Placeholder = false
	return f
}

// writeLines is the number of blank answer lines under an item.
func writeLines(it types.PlanItem) int {
	if len(it.Options) > 0 {
		return 0
	}
	switch it.Type {
	case types.QuestionShortAnswer, types.QuestionFillBlank:
		return 1
	case types.QuestionOpenResponse:
		return 3
	default:
		return 0
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
