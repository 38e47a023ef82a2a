// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/worksheet-engine/pkg/types"
)

// ErrNoJSON is returned when provider output contains no JSON object.
var ErrNoJSON = errors.New("no JSON object in provider output")

// ErrEmptyPlan is returned when a parsed plan has no items at all.
var ErrEmptyPlan = errors.New("plan has no items")

// RawPlan is provider output decoded as loosely as possible. It is never used
// past Normalize; downstream stages only see types.DocumentPlan.
type RawPlan struct {
	Mode     string `json:"mode"`
	Metadata struct {
		Title              string      `json:"title"`
		Grade              flexString  `json:"grade"`
		Subject            string      `json:"subject"`
		Topic              string      `json:"topic"`
		LearningObjectives flexStrings `json:"learningObjectives"`
		Objectives         flexStrings `json:"objectives"`
	} `json:"metadata"`
	Structure struct {
		Header   rawHeader    `json:"header"`
		Sections []rawSection `json:"sections"`
	} `json:"structure"`
	// Sections catches models that put sections at the top level.
	Sections []rawSection `json:"sections"`
	Style    struct {
		Difficulty  string `json:"difficulty"`
		VisualStyle string `json:"visualStyle"`
		Theme       string `json:"theme"`
	} `json:"style"`
	ImagePlacements       []rawPlacement    `json:"imagePlacements"`
	Materials             []rawMaterial     `json:"materials"`
	Differentiation       []rawDiff         `json:"differentiation"`
	CoachingScript        []rawCoachingNote `json:"coachingScript"`
	TargetDurationMinutes flexInt           `json:"targetDurationMinutes"`
}

type rawHeader struct {
	Title        string `json:"title"`
	Instructions string `json:"instructions"`
	ShowName     *bool  `json:"showName"`
	ShowDate     *bool  `json:"showDate"`
}

type rawSection struct {
	ID              flexString `json:"id"`
	Type            string     `json:"type"`
	Title           string     `json:"title"`
	Instructions    string     `json:"instructions"`
	DurationMinutes flexInt    `json:"durationMinutes"`
	Items           []rawItem  `json:"items"`
	Questions       []rawItem  `json:"questions"`
	Activities      []rawItem  `json:"activities"`
}

type rawItem struct {
	ID            flexString  `json:"id"`
	Type          string      `json:"type"`
	Text          string      `json:"text"`
	Question      string      `json:"question"`
	Options       flexStrings `json:"options"`
	CorrectAnswer flexString  `json:"correctAnswer"`
	Answer        flexString  `json:"answer"`
	Explanation   string      `json:"explanation"`
	Points        flexInt     `json:"points"`
}

type rawPlacement struct {
	ID          flexString `json:"id"`
	AnchorID    flexString `json:"anchorId"`
	ItemID      flexString `json:"itemId"`
	Description string     `json:"description"`
	Purpose     string     `json:"purpose"`
	Size        string     `json:"size"`
}

type rawMaterial struct {
	Name     string
	Quantity string
}

// UnmarshalJSON accepts either "Pencils" or {"name":"Pencils","quantity":"1 each"}.
func (m *rawMaterial) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		m.Name = s
		return nil
	}
	var obj struct {
		Name     string     `json:"name"`
		Item     string     `json:"item"`
		Quantity flexString `json:"quantity"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	m.Name = firstNonEmpty(obj.Name, obj.Item)
	m.Quantity = string(obj.Quantity)
	return nil
}

type rawDiff struct {
	Profile  string `json:"profile"`
	Learner  string `json:"learner"`
	Guidance string `json:"guidance"`
	Strategy string `json:"strategy"`
}

type rawCoachingNote struct {
	SectionID flexString `json:"sectionId"`
	Say       string     `json:"say"`
	WatchFor  string     `json:"watchFor"`
}

// flexString decodes a JSON string, number, or bool into its text form.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case float64:
		*f = flexString(strconv.FormatFloat(t, 'f', -1, 64))
	case bool:
		*f = flexString(strconv.FormatBool(t))
	default:
		*f = flexString(strings.TrimSpace(string(b)))
	}
	return nil
}

// flexInt decodes a JSON number or numeric string.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return nil
	}
	// "45 minutes" → 45
	if fields := strings.Fields(s); len(fields) > 0 {
		if v, err := strconv.Atoi(fields[0]); err == nil {
			*f = flexInt(v)
		}
	}
	return nil
}

// flexStrings decodes either a list or a single string.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(b []byte) error {
	var list []flexString
	if err := json.Unmarshal(b, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, s := range list {
			if s != "" {
				out = append(out, string(s))
			}
		}
		*f = out
		return nil
	}
	var s flexString
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s != "" {
		*f = []string{string(s)}
	}
	return nil
}

// ParseRaw extracts the JSON object from provider text, tolerating markdown
// code fences and prose before or after the object.
func ParseRaw(text string) (*RawPlan, error) {
	obj, err := extractJSON(text)
	if err != nil {
		return nil, err
	}
	var raw RawPlan
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return nil, fmt.Errorf("parsing plan JSON: %w", err)
	}
	return &raw, nil
}

// extractJSON returns the first balanced {...} object in text.
func extractJSON(text string) (string, error) {
	text = stripFences(text)
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", ErrNoJSON
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("%w: unbalanced braces", ErrNoJSON)
}

// stripFences returns the body of the first ``` fenced block, or text
// unchanged when there is none.
func stripFences(text string) string {
	open := strings.Index(text, "```")
	if open < 0 {
		return text
	}
	body := text[open+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:] // drop the language tag line
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return body
}

// NormalizeOptions fills values the provider omitted.
type NormalizeOptions struct {
	Mode        types.DocumentMode
	Grade       string
	Subject     string
	VisualStyle types.VisualStyle
	Theme       string
}

// Normalize converts a RawPlan into a DocumentPlan. Missing ids are assigned
// deterministically, unknown enum values take their default, and placements
// whose anchor does not resolve to an item are dropped. It returns the number
// of dropped placements.
func (r *RawPlan) Normalize(opts NormalizeOptions) (*types.DocumentPlan, int, error) {
	p := &types.DocumentPlan{
		Metadata: types.PlanMetadata{
			Title:      strings.TrimSpace(r.Metadata.Title),
			Grade:      firstNonEmpty(string(r.Metadata.Grade), opts.Grade),
			Subject:    firstNonEmpty(r.Metadata.Subject, opts.Subject),
			Topic:      strings.TrimSpace(r.Metadata.Topic),
			Objectives: append([]string(r.Metadata.LearningObjectives), r.Metadata.Objectives...),
		},
		Style: types.PlanStyle{
			Difficulty:  types.ParseDifficulty(r.Style.Difficulty),
			VisualStyle: opts.VisualStyle,
			Theme:       firstNonEmpty(r.Style.Theme, opts.Theme),
		},
		TargetDurationMinutes: int(r.TargetDurationMinutes),
	}
	if r.Mode != "" {
		p.Mode = types.ParseDocumentMode(r.Mode)
	} else {
		p.Mode = opts.Mode
	}
	if p.Style.VisualStyle == "" {
		p.Style.VisualStyle = types.ParseVisualStyle(r.Style.VisualStyle)
	}

	h := r.Structure.Header
	p.Structure.Header = types.PlanHeader{
		Title:        firstNonEmpty(h.Title, p.Metadata.Title),
		Instructions: h.Instructions,
		ShowName:     h.ShowName == nil || *h.ShowName,
		ShowDate:     h.ShowDate == nil || *h.ShowDate,
	}
	if p.Metadata.Title == "" {
		p.Metadata.Title = p.Structure.Header.Title
	}

	sections := r.Structure.Sections
	if len(sections) == 0 {
		sections = r.Sections
	}
	for _, rs := range sections {
		s := types.PlanSection{
			ID:              string(rs.ID),
			Type:            types.ParseSectionType(rs.Type),
			Title:           strings.TrimSpace(rs.Title),
			Instructions:    rs.Instructions,
			DurationMinutes: int(rs.DurationMinutes),
		}
		items := append(append(append([]rawItem{}, rs.Items...), rs.Questions...), rs.Activities...)
		for _, ri := range items {
			s.Items = append(s.Items, types.PlanItem{
				ID:            string(ri.ID),
				Type:          types.ParseQuestionType(ri.Type),
				Text:          strings.TrimSpace(firstNonEmpty(ri.Text, ri.Question)),
				Options:       ri.Options,
				CorrectAnswer: firstNonEmpty(string(ri.CorrectAnswer), string(ri.Answer)),
				Explanation:   ri.Explanation,
				Points:        int(ri.Points),
			})
		}
		p.Structure.Sections = append(p.Structure.Sections, s)
	}

	for _, m := range r.Materials {
		p.Materials = append(p.Materials, types.Material{Name: strings.TrimSpace(m.Name), Quantity: m.Quantity})
	}
	for _, d := range r.Differentiation {
		p.Differentiation = append(p.Differentiation, types.Differentiation{
			Profile:  firstNonEmpty(d.Profile, d.Learner),
			Guidance: firstNonEmpty(d.Guidance, d.Strategy),
		})
	}
	for _, c := range r.CoachingScript {
		p.CoachingScript = append(p.CoachingScript, types.CoachingNote{
			SectionID: string(c.SectionID),
			Say:       c.Say,
			Watch:     c.WatchFor,
		})
	}
	for _, rp := range r.ImagePlacements {
		p.ImagePlacements = append(p.ImagePlacements, types.ImagePlacement{
			ID:          string(rp.ID),
			AnchorID:    firstNonEmpty(string(rp.AnchorID), string(rp.ItemID)),
			Description: strings.TrimSpace(rp.Description),
			Purpose:     rp.Purpose,
			Size:        types.ParseSizeClass(rp.Size),
		})
	}

	if types.CountQuestions(p) == 0 {
		return nil, 0, ErrEmptyPlan
	}

	Canonicalize(p)
	return p, dropDanglingPlacements(p), nil
}

// Canonicalize assigns missing section, item and placement ids and folds
// every enum to its canonical spelling. Assigned ids never collide with ids
// already in the plan. Existing ids are kept even when duplicated; the
// validator reports those.
func Canonicalize(p *types.DocumentPlan) {
	p.Mode = types.ParseDocumentMode(string(p.Mode))
	p.Style.Difficulty = types.ParseDifficulty(string(p.Style.Difficulty))
	p.Style.VisualStyle = types.ParseVisualStyle(string(p.Style.VisualStyle))

	taken := make(map[string]bool)
	for _, s := range p.Structure.Sections {
		taken[s.ID] = true
		for _, it := range s.Items {
			taken[it.ID] = true
		}
	}
	for _, pl := range p.ImagePlacements {
		taken[pl.ID] = true
	}

	var sn, qn, in int
	for i := range p.Structure.Sections {
		s := &p.Structure.Sections[i]
		if s.ID == "" {
			s.ID = nextID("s", &sn, taken)
		}
		s.Type = types.ParseSectionType(string(s.Type))
		for j := range s.Items {
			it := &s.Items[j]
			if it.ID == "" {
				it.ID = nextID("q", &qn, taken)
			}
			it.Type = types.ParseQuestionType(string(it.Type))
		}
	}
	for i := range p.ImagePlacements {
		pl := &p.ImagePlacements[i]
		if pl.ID == "" {
			pl.ID = nextID("img", &in, taken)
		}
		pl.Size = types.ParseSizeClass(string(pl.Size))
	}
}

// nextID returns the first prefix<N> after *n that is not taken and marks it.
func nextID(prefix string, n *int, taken map[string]bool) string {
	for {
		*n++
		id := fmt.Sprintf("%s%d", prefix, *n)
		if !taken[id] {
			taken[id] = true
			return id
		}
	}
}

func dropDanglingPlacements(p *types.DocumentPlan) int {
	idx := p.ItemIndex()
	kept := p.ImagePlacements[:0]
	dropped := 0
	for _, pl := range p.ImagePlacements {
		if _, ok := idx[pl.AnchorID]; ok {
			kept = append(kept, pl)
			continue
		}
		dropped++
	}
	if len(kept) == 0 {
		kept = nil
	}
	p.ImagePlacements = kept
	return dropped
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
