// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package plan

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/worksheet-engine/internal/llm"
	"github.com/pdiddy/worksheet-engine/pkg/types"
)

// --- mock provider ---

// mockProvider returns queued responses in order and counts calls.
type mockProvider struct {
	texts   []string
	errs    []error
	calls   int
	prompts []string
}

func (m *mockProvider) Complete(_ context.Context, req llm.CompletionRequest) (llm.Completion, error) {
	i := m.calls
	m.calls++
	m.prompts = append(m.prompts, req.Prompt)
	if i < len(m.errs) && m.errs[i] != nil {
		return llm.Completion{}, m.errs[i]
	}
	text := ""
	if i < len(m.texts) {
		text = m.texts[i]
	}
	return llm.Completion{Text: text, Usage: llm.Usage{InputTokens: 100, OutputTokens: 50}}, nil
}

const aiPlanJSON = `{
  "mode": "worksheet",
  "metadata": {"title": "Counting Apples", "grade": 1, "subject": "Math", "topic": "counting", "learningObjectives": ["Count to ten."]},
  "structure": {
    "header": {"title": "Counting Apples", "instructions": "Count and write."},
    "sections": [
      {"title": "Count", "items": [
        {"type": "Multiple Choice", "text": "How many apples?", "options": ["3", "4"], "correctAnswer": 4},
        {"id": "q9", "type": "mystery", "question": "Write the number after 6.", "answer": "7"}
      ]}
    ]
  },
  "style": {"difficulty": "EASY", "visualStyle": "watercolor"},
  "imagePlacements": [
    {"anchorId": "q1", "description": "four red apples to count", "purpose": "counting", "size": "Small"},
    {"anchorId": "nope", "description": "a border of leaves", "size": "huge"}
  ],
  "materials": ["Crayons", {"name": "Counters", "quantity": 10}]
}`

// --- ParseRaw / Normalize ---

func TestParseRawToleratesWrapping(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"bare", aiPlanJSON},
		{"fenced", "```json\n" + aiPlanJSON + "\n```"},
		{"prose around", "Here is your worksheet plan:\n" + aiPlanJSON + "\nLet me know if you need changes {or not}."},
		{"fenced with prose", "Sure!\n```\n" + aiPlanJSON + "\n```\nEnjoy."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := ParseRaw(tt.text)
			require.NoError(t, err)
			assert.Equal(t, "Counting Apples", raw.Metadata.Title)
			assert.Equal(t, flexString("1"), raw.Metadata.Grade)
		})
	}
}

func TestParseRawErrors(t *testing.T) {
	_, err := ParseRaw("I cannot help with that.")
	assert.ErrorIs(t, err, ErrNoJSON)

	_, err = ParseRaw(`{"metadata": {"title": "x"`)
	assert.ErrorIs(t, err, ErrNoJSON)

	_, err = ParseRaw(`{"structure": 5}`)
	assert.Error(t, err)
}

func TestExtractJSONIgnoresBracesInStrings(t *testing.T) {
	got, err := extractJSON(`note {"text": "use } and { freely", "n": {"x": "\"}"}} trailing }`)
	require.NoError(t, err)
	assert.Equal(t, `{"text": "use } and { freely", "n": {"x": "\"}"}}`, got)
}

func TestNormalize(t *testing.T) {
	raw, err := ParseRaw(aiPlanJSON)
	require.NoError(t, err)

	p, dropped, err := raw.Normalize(NormalizeOptions{Mode: types.ModeWorksheet, Grade: "2", Subject: "Science"})
	require.NoError(t, err)

	assert.Equal(t, 1, dropped, "placement anchored to a missing item is dropped")
	assert.Equal(t, "1", p.Metadata.Grade, "provider grade wins over the default")
	assert.Equal(t, "Math", p.Metadata.Subject)
	assert.Equal(t, types.DifficultyEasy, p.Style.Difficulty)
	assert.Equal(t, types.StyleWatercolor, p.Style.VisualStyle)
	assert.True(t, p.Structure.Header.ShowName)

	require.Len(t, p.Structure.Sections, 1)
	s := p.Structure.Sections[0]
	assert.Equal(t, "s1", s.ID)
	assert.Equal(t, types.SectionQuestions, s.Type)
	require.Len(t, s.Items, 2)
	assert.Equal(t, "q1", s.Items[0].ID)
	assert.Equal(t, types.QuestionMultipleChoice, s.Items[0].Type)
	assert.Equal(t, "4", s.Items[0].CorrectAnswer)
	assert.Equal(t, "q9", s.Items[1].ID)
	assert.Equal(t, types.QuestionShortAnswer, s.Items[1].Type, "unknown type takes the default arm")
	assert.Equal(t, "Write the number after 6.", s.Items[1].Text)

	require.Len(t, p.ImagePlacements, 1)
	assert.Equal(t, "img1", p.ImagePlacements[0].ID)
	assert.Equal(t, types.SizeSmall, p.ImagePlacements[0].Size)

	assert.Equal(t, []types.Material{{Name: "Crayons"}, {Name: "Counters", Quantity: "10"}}, p.Materials)
}

func TestNormalizeStyleOverride(t *testing.T) {
	raw, err := ParseRaw(aiPlanJSON)
	require.NoError(t, err)
	p, _, err := raw.Normalize(NormalizeOptions{VisualStyle: types.StyleLineArt})
	require.NoError(t, err)
	assert.Equal(t, types.StyleLineArt, p.Style.VisualStyle)
}

func TestNormalizeEmptyPlan(t *testing.T) {
	raw, err := ParseRaw(`{"metadata": {"title": "Nothing"}, "structure": {"sections": [{"title": "Empty"}]}}`)
	require.NoError(t, err)
	_, _, err = raw.Normalize(NormalizeOptions{})
	assert.ErrorIs(t, err, ErrEmptyPlan)
}

func TestNormalizeTopLevelSections(t *testing.T) {
	raw, err := ParseRaw(`{"sections": [{"title": "A", "questions": [{"text": "One?"}]}, {"title": "B", "activities": [{"text": "Draw."}]}]}`)
	require.NoError(t, err)
	p, _, err := raw.Normalize(NormalizeOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, types.CountQuestions(p))
	assert.Equal(t, "q2", p.Structure.Sections[1].Items[0].ID, "item ids count across sections")
}

func TestNormalizeAssignsUnusedIDs(t *testing.T) {
	raw, err := ParseRaw(`{
  "structure": {"sections": [{"items": [
    {"text": "One?"}, {"id": "q1", "text": "Two?"}, {"text": "Three?"}
  ]}]},
  "imagePlacements": [
    {"id": "img2", "anchorId": "q1", "description": "three apples to count"},
    {"anchorId": "q3", "description": "a labeled plant diagram"},
    {"anchorId": "q3", "description": "a seed in soil"}
  ]
}`)
	require.NoError(t, err)
	p, dropped, err := raw.Normalize(NormalizeOptions{})
	require.NoError(t, err)
	assert.Zero(t, dropped)

	items := p.Structure.Sections[0].Items
	assert.Equal(t, []string{"q2", "q1", "q3"}, []string{items[0].ID, items[1].ID, items[2].ID})

	ids := make([]string, 0, len(p.ImagePlacements))
	for _, pl := range p.ImagePlacements {
		ids = append(ids, pl.ID)
	}
	assert.Equal(t, []string{"img2", "img1", "img3"}, ids)
	assert.Equal(t, "q1", p.ImagePlacements[0].AnchorID)

	res := Validate(p, Requirements{})
	for _, is := range res.Errors() {
		assert.NotContains(t, is.Message, "duplicate")
	}
}

// --- Generator ---

func TestGenerateFromProvider(t *testing.T) {
	mp := &mockProvider{texts: []string{"```json\n" + aiPlanJSON + "\n```"}}
	g := NewGenerator(mp, nil)

	res := g.Generate(context.Background(), GenerationContext{
		Prompt:  "counting worksheet with apples",
		Grade:   "1",
		Subject: "Math",
		Options: Options{QuestionCount: 2, MaxImages: 2},
	})

	assert.Equal(t, SourceAI, res.Source)
	assert.Empty(t, res.FallbackReason)
	assert.Equal(t, 1, res.DroppedPlacements)
	assert.Equal(t, 2, types.CountQuestions(res.Plan))
	assert.Equal(t, llm.Usage{InputTokens: 100, OutputTokens: 50}, res.Usage)
	require.Len(t, mp.prompts, 1)
	assert.Contains(t, mp.prompts[0], "counting worksheet with apples")
	assert.Contains(t, mp.prompts[0], "Up to 2")
}

func TestGenerateFallsBack(t *testing.T) {
	tests := []struct {
		name       string
		provider   llm.TextProvider
		wantReason string
		wantIssue  bool
	}{
		{"no provider", nil, "no text provider", false},
		{"provider error", &mockProvider{errs: []error{errors.New("connection reset")}}, "provider error", false},
		{"unparseable output", &mockProvider{texts: []string{"Sorry, I can't do that."}}, "parse error", false},
		{"empty plan", &mockProvider{texts: []string{`{"structure": {"sections": []}}`}}, "normalize error", false},
		{
			"content policy",
			&mockProvider{errs: []error{&llm.HTTPError{Provider: "Claude", StatusCode: 400, Body: "blocked by content policy"}}},
			"provider error", true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewGenerator(tt.provider, nil).Generate(context.Background(), GenerationContext{Prompt: "fractions", Grade: "4", Subject: "Math", Topic: "fractions"})

			assert.Equal(t, SourceFallback, res.Source)
			assert.Contains(t, res.FallbackReason, tt.wantReason)
			assert.Equal(t, DefaultQuestionCount, types.CountQuestions(res.Plan))
			if tt.wantIssue {
				require.Len(t, res.Issues, 1)
				assert.Equal(t, "prompt", res.Issues[0].Field)
			} else {
				assert.Empty(t, res.Issues)
			}
		})
	}
}

func TestGenerateCancelledContextFallsBack(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mp := &mockProvider{errs: []error{context.Canceled}}
	res := NewGenerator(mp, nil).Generate(ctx, GenerationContext{Topic: "plants"})
	assert.Equal(t, SourceFallback, res.Source)
	assert.True(t, res.IsCancelled())
}

// --- CreateFallbackPlan ---

func TestCreateFallbackPlanDeterministic(t *testing.T) {
	gc := GenerationContext{Grade: "3", Subject: "Science", Topic: "plant life cycle"}
	a := CreateFallbackPlan(gc)
	b := CreateFallbackPlan(gc)
	assert.Equal(t, a, b)
	assert.Equal(t, "Plant Life Cycle Practice", a.Metadata.Title)
	assert.Equal(t, 10, types.CountQuestions(a))
	assert.Empty(t, a.ImagePlacements)
	assert.True(t, Validate(a, Requirements{}).Valid)
}

func TestCreateFallbackPlanQuestionTypes(t *testing.T) {
	p := CreateFallbackPlan(GenerationContext{Topic: "verbs", Options: Options{
		QuestionCount: 4,
		QuestionTypes: []types.QuestionType{types.QuestionTrueFalse, types.QuestionFillBlank},
	}})
	items := p.Items()
	require.Len(t, items, 4)
	assert.Equal(t, types.QuestionTrueFalse, items[0].Type)
	assert.Equal(t, []string{"True", "False"}, items[0].Options)
	assert.Equal(t, types.QuestionFillBlank, items[1].Type)
	assert.Equal(t, types.QuestionTrueFalse, items[2].Type)
}

func TestCreateFallbackLessonPlanIsClean(t *testing.T) {
	for _, target := range []int{0, 30, 60, 90} {
		p := CreateFallbackPlan(GenerationContext{
			Grade: "2", Subject: "Math", Topic: "addition", Mode: types.ModeLessonPlan,
			Options: Options{TargetDurationMinutes: target},
		})
		res := Validate(p, RequirementsFromConfig(types.DefaultPipelineConfig().Validation))
		assert.True(t, res.Valid, "target %d: %v", target, res.Issues)
		assert.Len(t, p.CoachingScript, len(types.LessonSectionTypes))
	}

	p := CreateFallbackPlan(GenerationContext{Topic: "addition", Mode: types.ModeLessonPlan})
	res := Validate(p, RequirementsFromConfig(types.DefaultPipelineConfig().Validation))
	assert.Empty(t, res.Issues, "default 45 minute lesson has no warnings either")
}

// --- Validate ---

func validLesson() *types.DocumentPlan {
	return CreateFallbackPlan(GenerationContext{Grade: "2", Subject: "Math", Topic: "addition", Mode: types.ModeLessonPlan})
}

func TestValidateEmptyMaterials(t *testing.T) {
	p := validLesson()
	p.Materials = []types.Material{}

	res := Validate(p, RequirementsFromConfig(types.DefaultPipelineConfig().Validation))

	errs := res.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "materials", errs[0].Field)
	assert.False(t, res.Valid)
	assert.True(t, res.AutoRepairable)
}

func TestValidateLessonRules(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(p *types.DocumentPlan)
		req       Requirements
		wantField string
		wantSev   types.Severity
	}{
		{
			name:      "missing closure",
			mutate: func(p *types.DocumentPlan) {
				p.Structure.Sections = p.Structure.Sections[:4]
				p.TargetDurationMinutes = p.TotalDuration()
			},
			wantField: "structure.sections",
			wantSev:   types.SeverityError,
		},
		{
			name:      "novice teacher needs coaching",
			mutate:    func(p *types.DocumentPlan) { p.CoachingScript = nil },
			req:       Requirements{NoviceTeacher: true},
			wantField: "coachingScript",
			wantSev:   types.SeverityError,
		},
		{
			name:      "untitled section",
			mutate:    func(p *types.DocumentPlan) { p.Structure.Sections[1].Title = " " },
			wantField: "structure.sections[1].title",
			wantSev:   types.SeverityError,
		},
		{
			name:      "section with no activity",
			mutate:    func(p *types.DocumentPlan) { p.Structure.Sections[0].Items = nil },
			wantField: "structure.sections[0].items",
			wantSev:   types.SeverityError,
		},
		{
			name:      "warm-up too long",
			mutate:    func(p *types.DocumentPlan) { p.Structure.Sections[0].DurationMinutes = 12; p.Structure.Sections[1].DurationMinutes = 8 },
			wantField: "structure.sections[0].durationMinutes",
			wantSev:   types.SeverityWarning,
		},
		{
			name:      "total off target",
			mutate:    func(p *types.DocumentPlan) { p.TargetDurationMinutes = 60 },
			wantField: "targetDurationMinutes",
			wantSev:   types.SeverityWarning,
		},
		{
			name:      "one learner profile",
			mutate:    func(p *types.DocumentPlan) { p.Differentiation = p.Differentiation[:1] },
			wantField: "differentiation",
			wantSev:   types.SeverityWarning,
		},
		{
			name:      "unnamed material",
			mutate:    func(p *types.DocumentPlan) { p.Materials[1].Name = "" },
			wantField: "materials[1].name",
			wantSev:   types.SeverityError,
		},
		{
			name: "objectives above grade",
			mutate: func(p *types.DocumentPlan) {
				p.Metadata.Objectives = []string{"Students will demonstrate comprehensive understanding of commutative properties regarding additive mathematical operations."}
			},
			req:       Requirements{Readability: SyllableChecker{}},
			wantField: "metadata.learningObjectives",
			wantSev:   types.SeverityWarning,
		},
		{
			name:      "duplicate item id",
			mutate:    func(p *types.DocumentPlan) { p.Structure.Sections[3].Items[1].ID = "q1" },
			wantField: "structure.sections[3].items[1].id",
			wantSev:   types.SeverityError,
		},
		{
			name:      "blank item text",
			mutate:    func(p *types.DocumentPlan) { p.Structure.Sections[3].Items[2].Text = "" },
			wantField: "structure.sections[3].items[2].text",
			wantSev:   types.SeverityError,
		},
		{
			name: "dangling anchor",
			mutate: func(p *types.DocumentPlan) {
				p.ImagePlacements = []types.ImagePlacement{{ID: "img1", AnchorID: "q99", Description: "ten counters"}}
			},
			wantField: "imagePlacements[0].anchorId",
			wantSev:   types.SeverityError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validLesson()
			tt.mutate(p)
			res := Validate(p, tt.req)
			require.Len(t, res.Issues, 1, "%v", res.Issues)
			assert.Equal(t, tt.wantField, res.Issues[0].Field)
			assert.Equal(t, tt.wantSev, res.Issues[0].Severity)
			assert.NotEmpty(t, res.Issues[0].Suggestion)
			assert.Equal(t, tt.wantSev == types.SeverityWarning, res.Valid)
		})
	}
}

func TestValidateWorksheetSkipsLessonRules(t *testing.T) {
	p := CreateFallbackPlan(GenerationContext{Topic: "maps"})
	p.Materials = nil
	p.Differentiation = nil
	res := Validate(p, Requirements{})
	assert.True(t, res.Valid)
	assert.Empty(t, res.Issues)

	res = Validate(p, Requirements{RequireMaterials: true})
	require.Len(t, res.Errors(), 1)
	assert.Equal(t, "materials", res.Errors()[0].Field)
}

func TestValidateDuplicatePlacementID(t *testing.T) {
	p := CreateFallbackPlan(GenerationContext{Topic: "plants"})
	items := p.Items()
	require.GreaterOrEqual(t, len(items), 2)
	p.ImagePlacements = []types.ImagePlacement{
		{ID: "img1", AnchorID: items[0].ID, Description: "three apples to count"},
		{ID: "img1", AnchorID: items[1].ID, Description: "a labeled plant diagram"},
	}

	res := Validate(p, Requirements{})

	require.Len(t, res.Errors(), 1)
	assert.Equal(t, "imagePlacements[1].id", res.Errors()[0].Field)
	assert.Contains(t, res.Errors()[0].Message, `duplicate placement id "img1"`)
	assert.False(t, res.Valid)
}

func TestValidateAutoRepairThreshold(t *testing.T) {
	p := validLesson()
	p.Materials = nil
	p.Structure.Sections[0].Title = ""
	p.Structure.Sections[1].Title = ""
	p.Structure.Sections[2].Title = ""

	res := Validate(p, Requirements{})
	assert.Len(t, res.Errors(), 4)
	assert.False(t, res.AutoRepairable)

	res = Validate(p, Requirements{AutoRepairThreshold: 4})
	assert.True(t, res.AutoRepairable)
}

// --- ValidateAndRepair ---

func TestValidateAndRepairFixesPlan(t *testing.T) {
	p := validLesson()
	p.Materials = nil

	fixed := validLesson()
	fixedJSON, err := jsonString(fixed)
	require.NoError(t, err)

	mp := &mockProvider{texts: []string{fixedJSON}}
	out := NewRepairer(mp, nil).ValidateAndRepair(context.Background(), p, Requirements{})

	assert.Equal(t, 1, mp.calls)
	assert.True(t, out.Attempted)
	assert.True(t, out.Repaired)
	assert.True(t, out.Validation.Valid)
	assert.False(t, out.Initial.Valid)
	assert.NotEmpty(t, out.Plan.Materials)
	assert.Nil(t, p.Materials, "input plan is not modified")
	assert.Contains(t, mp.prompts[0], "materials: materials list is empty")
}

func TestValidateAndRepairSingleAttempt(t *testing.T) {
	p := validLesson()
	p.Materials = nil

	// The "repaired" plan still has the same error.
	stillBroken := validLesson()
	stillBroken.Materials = nil
	brokenJSON, err := jsonString(stillBroken)
	require.NoError(t, err)

	mp := &mockProvider{texts: []string{brokenJSON, brokenJSON, brokenJSON}}
	out := NewRepairer(mp, nil).ValidateAndRepair(context.Background(), p, Requirements{})

	assert.Equal(t, 1, mp.calls, "exactly one repair call")
	assert.False(t, out.Validation.Valid)
}

func TestValidateAndRepairNoCall(t *testing.T) {
	tooBroken := validLesson()
	tooBroken.Materials = nil
	for i := range tooBroken.Structure.Sections {
		tooBroken.Structure.Sections[i].Title = ""
	}

	tests := []struct {
		name       string
		plan       *types.DocumentPlan
		wantReason string
	}{
		{"valid plan", validLesson(), ""},
		{"not auto-repairable", tooBroken, "threshold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mp := &mockProvider{}
			out := NewRepairer(mp, nil).ValidateAndRepair(context.Background(), tt.plan, Requirements{})
			assert.Equal(t, 0, mp.calls)
			assert.False(t, out.Attempted)
			assert.Same(t, tt.plan, out.Plan)
			if tt.wantReason != "" {
				assert.Contains(t, out.Reason, tt.wantReason)
			}
		})
	}
}

func TestValidateAndRepairKeepsOriginalOnFailure(t *testing.T) {
	tests := []struct {
		name string
		mp   *mockProvider
	}{
		{"provider error", &mockProvider{errs: []error{errors.New("timeout")}}},
		{"unparseable", &mockProvider{texts: []string{"no json here"}}},
		{"worse plan", &mockProvider{texts: []string{`{"mode":"lesson_plan","structure":{"sections":[{"items":[{"text":"x"}]}]}}`}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validLesson()
			p.Materials = nil
			out := NewRepairer(tt.mp, nil).ValidateAndRepair(context.Background(), p, Requirements{})
			assert.Equal(t, 1, tt.mp.calls)
			assert.True(t, out.Attempted)
			assert.False(t, out.Repaired)
			assert.Same(t, p, out.Plan)
			assert.Equal(t, out.Initial, out.Validation)
			assert.NotEmpty(t, out.Reason)
		})
	}
}

// --- readability ---

func TestCountSyllables(t *testing.T) {
	tests := map[string]int{
		"cat":       1,
		"apple":     2,
		"make":      1,
		"the":       1,
		"reading":   2,
		"beautiful": 3,
		"rhythm":    1,
		"a":         1,
	}
	for word, want := range tests {
		assert.Equal(t, want, CountSyllables(word), word)
	}
}

func TestParseGrade(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"K", 0, true},
		{"Kindergarten", 0, true},
		{"3", 3, true},
		{"3rd", 3, true},
		{"Grade 5", 5, true},
		{"grade-7", 0, false},
		{"", 0, false},
		{"college", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseGrade(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestSyllableCheckerSkipsShortText(t *testing.T) {
	_, _, ok := SyllableChecker{}.Check("Count apples.", "1")
	assert.False(t, ok)

	level, ceiling, ok := SyllableChecker{}.Check("We will count the red apples. We will add two more and say how many we have.", "1")
	require.True(t, ok)
	assert.Less(t, level, ceiling)
}

// --- plan files ---

func TestPlanFileRoundTrip(t *testing.T) {
	p := validLesson()
	p.ImagePlacements = []types.ImagePlacement{{ID: "img1", AnchorID: "q1", Description: "two groups of blocks", Purpose: "counting_support", Size: types.SizeSmall}}
	dir := t.TempDir()

	for _, name := range []string{"plan.yaml", "plan.json"} {
		path := filepath.Join(dir, "nested", name)
		require.NoError(t, WritePlanFile(path, p))
		got, err := LoadPlanFile(path)
		require.NoError(t, err)
		assert.Equal(t, p, got, name)
	}
}

func TestLoadPlanFileCanonicalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	yamlText := strings.Join([]string{
		"mode: Lesson Plan",
		"structure:",
		"  sections:",
		"    - title: Practice",
		"      type: we-do",
		"      items:",
		"        - text: Add 2 and 3.",
		"          type: Short Answer",
		"image_placements:",
		"  - anchor_id: q7",
		"    description: blocks",
		"    size: banner",
	}, "\n")
	require.NoError(t, writeText(path, yamlText))

	p, err := LoadPlanFile(path)
	require.NoError(t, err)
	assert.Equal(t, types.ModeLessonPlan, p.Mode)
	assert.Equal(t, types.SectionGuidedPractice, p.Structure.Sections[0].Type)
	assert.Equal(t, "q1", p.Structure.Sections[0].Items[0].ID)
	require.Len(t, p.ImagePlacements, 1, "dangling placements are kept for the validator")
	assert.Equal(t, types.SizeWide, p.ImagePlacements[0].Size)

	_, err = LoadPlanFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func jsonString(p *types.DocumentPlan) (string, error) {
	b, err := json.Marshal(p)
	return string(b), err
}

func writeText(path, text string) error {
	return os.WriteFile(path, []byte(text), 0o644)
}
