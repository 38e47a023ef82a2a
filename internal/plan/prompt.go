// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package plan

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/pdiddy/worksheet-engine/pkg/types"
)

const systemPrompt = `You design printable classroom materials for teachers. You always answer with a single JSON object and no other text.`

// planPromptTmpl asks the text provider for a complete document plan.
var planPromptTmpl = template.Must(template.New("plan").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(`Create a {{if .LessonPlan}}lesson plan{{else}}worksheet{{end}} for grade {{.Grade}} {{.Subject}}.

Teacher request:
{{.Prompt}}
{{if .Topic}}
Topic: {{.Topic}}
{{end}}
Requirements:
- {{.QuestionCount}} questions or activities in total.
- Question types to use: {{join .QuestionTypes ", "}}.
- Difficulty: {{.Difficulty}}.
- Language and reading level appropriate for grade {{.Grade}}.
{{- if .LessonPlan}}
- Sections, in order, with these "type" values: warm_up, instruction, guided_practice, independent_practice, closure. Give every section a "durationMinutes".
- Total duration about {{.TargetDuration}} minutes.
- A "materials" list naming every material needed.
- "differentiation" guidance for at least two learner profiles (for example "struggling readers" and "advanced learners").
- A "coachingScript" with what the teacher should say and watch for in each section.
{{- end}}
{{- if gt .MaxImages 0}}
- Up to {{.MaxImages}} "imagePlacements" that help a student answer a specific item. Anchor each to an item id. Describe the picture concretely and give its "purpose": counting_support, phonics_cue, vocabulary_support, diagram, scene_context or illustration. Do not propose decorative images.
{{- else}}
- No images.
{{- end}}
{{if .References}}
Reference material to draw on:
{{range .References}}---
{{.}}
{{end}}---
{{end}}
Respond with JSON in exactly this shape:
{"mode": "{{if .LessonPlan}}lesson_plan{{else}}worksheet{{end}}",
 "metadata": {"title": "", "grade": "{{.Grade}}", "subject": "{{.Subject}}", "topic": "", "learningObjectives": [""]},
 "structure": {"header": {"title": "", "instructions": "", "showName": true, "showDate": true},
   "sections": [{"id": "s1", "type": "{{if .LessonPlan}}warm_up{{else}}questions{{end}}", "title": "", "instructions": ""{{if .LessonPlan}}, "durationMinutes": 5{{end}},
     "items": [{"id": "q1", "type": "multiple_choice", "text": "", "options": ["", ""], "correctAnswer": "", "explanation": "", "points": 1}]}]},
 "style": {"difficulty": "{{.Difficulty}}", "visualStyle": "{{.VisualStyle}}"{{if .Theme}}, "theme": "{{.Theme}}"{{end}}},
 "imagePlacements": [{"id": "img1", "anchorId": "q1", "description": "", "purpose": "", "size": "small"}]{{if .LessonPlan}},
 "materials": [{"name": "", "quantity": ""}],
 "differentiation": [{"profile": "", "guidance": ""}],
 "coachingScript": [{"sectionId": "s1", "say": "", "watchFor": ""}],
 "targetDurationMinutes": {{.TargetDuration}}{{end}}}
`))

// repairPromptTmpl asks the text provider to fix listed validation errors.
var repairPromptTmpl = template.Must(template.New("repair").Parse(`The following {{.Kind}} plan failed validation. Fix exactly these issues and keep everything else unchanged, including ids, wording and order.

Issues:
{{range .Issues}}- {{.Field}}: {{.Message}}{{if .Suggestion}} ({{.Suggestion}}){{end}}
{{end}}
Plan:
{{.PlanJSON}}

Respond with the complete corrected plan as a single JSON object in the same shape.
`))

type planPromptData struct {
	LessonPlan     bool
	Prompt         string
	Grade          string
	Subject        string
	Topic          string
	QuestionCount  int
	QuestionTypes  []string
	Difficulty     types.Difficulty
	VisualStyle    types.VisualStyle
	Theme          string
	TargetDuration int
	MaxImages      int
	References     []string
}

func renderPlanPrompt(gc GenerationContext) (string, error) {
	opts := gc.Options.withDefaults(gc.Mode)
	qt := make([]string, len(opts.QuestionTypes))
	for i, t := range opts.QuestionTypes {
		qt[i] = string(t)
	}
	data := planPromptData{
		LessonPlan:     gc.Mode == types.ModeLessonPlan,
		Prompt:         gc.Prompt,
		Grade:          gc.Grade,
		Subject:        gc.Subject,
		Topic:          gc.Topic,
		QuestionCount:  opts.QuestionCount,
		QuestionTypes:  qt,
		Difficulty:     opts.Difficulty,
		VisualStyle:    opts.VisualStyle,
		Theme:          opts.Theme,
		TargetDuration: opts.TargetDurationMinutes,
		MaxImages:      opts.MaxImages,
		References:     gc.References,
	}
	var buf bytes.Buffer
	if err := planPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderRepairPrompt(kind, planJSON string, issues []types.ValidationIssue) (string, error) {
	var buf bytes.Buffer
	err := repairPromptTmpl.Execute(&buf, struct {
		Kind     string
		PlanJSON string
		Issues   []types.ValidationIssue
	}{kind, planJSON, issues})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
