// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package quality

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/worksheet-engine/internal/assemble"
	"github.com/pdiddy/worksheet-engine/internal/compress"
	"github.com/pdiddy/worksheet-engine/pkg/types"
)

func samplePlan(mode types.DocumentMode) *types.DocumentPlan {
	return &types.DocumentPlan{
		Mode:     mode,
		Metadata: types.PlanMetadata{Title: "Shapes", Grade: "2", Subject: "Math"},
		Structure: types.PlanStructure{Sections: []types.PlanSection{
			{ID: "s1", Type: types.SectionWarmUp, Title: "Shapes", DurationMinutes: 5, Items: []types.PlanItem{
				{ID: "q1", Type: types.QuestionShortAnswer, Text: "How many sides does a triangle have?", CorrectAnswer: "3"},
				{ID: "q2", Type: types.QuestionShortAnswer, Text: "How many sides does a square have?", CorrectAnswer: "4"},
			}},
		}},
		ImagePlacements: []types.ImagePlacement{{ID: "img1", AnchorID: "q1", Description: "A triangle", Size: types.SizeSmall}},
		Materials:       []types.Material{{Name: "Pencils"}},
	}
}

func assembled(t *testing.T, p *types.DocumentPlan) Input {
	t.Helper()
	out, err := assemble.Assemble(p, nil)
	require.NoError(t, err)
	return Input{
		Worksheet:       out.Worksheet,
		AnswerKey:       out.AnswerKey,
		InstructorGuide: out.InstructorGuide,
		Plan:            p,
		Richness:        types.RichnessStandard,
	}
}

func messages(r Report) string {
	var b strings.Builder
	for _, is := range r.Issues {
		b.WriteString(is.Document + ": " + is.Message + "\n")
	}
	return b.String()
}

func TestCheckPassesAssembledOutput(t *testing.T) {
	for _, mode := range []types.DocumentMode{types.ModeWorksheet, types.ModeLessonPlan} {
		t.Run(string(mode), func(t *testing.T) {
			rep := Check(assembled(t, samplePlan(mode)))
			assert.True(t, rep.Passed, messages(rep))
			assert.Empty(t, rep.Errors())
			assert.Equal(t, 2, rep.Questions)
			assert.Equal(t, 2, rep.Answers)
			assert.True(t, rep.Size.Valid)
		})
	}
}

func TestCheckFindings(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(in *Input)
		doc     string
		message string
	}{
		{
			name:    "placeholder sentinel",
			mutate:  func(in *Input) { in.Worksheet = strings.Replace(in.Worksheet, "</main>", `<img src="placeholder:abc"></main>`, 1) },
			doc:     DocWorksheet,
			message: "unrendered image placeholder",
		},
		{
			name:    "template marker",
			mutate:  func(in *Input) { in.AnswerKey = strings.Replace(in.AnswerKey, "</main>", "{{.Answer}}</main>", 1) },
			doc:     DocAnswerKey,
			message: "template marker",
		},
		{
			name:    "spaced template marker",
			mutate:  func(in *Input) { in.Worksheet = strings.Replace(in.Worksheet, "</main>", "{{ student_name }}</main>", 1) },
			doc:     DocWorksheet,
			message: "template marker",
		},
		{
			name:    "missing template value",
			mutate:  func(in *Input) { in.Worksheet = strings.Replace(in.Worksheet, "</main>", "<no value></main>", 1) },
			doc:     DocWorksheet,
			message: "missing template value",
		},
		{
			name:    "unclosed element",
			mutate:  func(in *Input) { in.Worksheet = strings.Replace(in.Worksheet, "</section>", "", 1) },
			doc:     DocWorksheet,
			message: "mismatched",
		},
		{
			name:    "missing body",
			mutate:  func(in *Input) { in.Worksheet = `<div class="question">1</div><div class="question">2</div>` },
			doc:     DocWorksheet,
			message: "missing <body>",
		},
		{
			name: "answer count mismatch",
			mutate: func(in *Input) {
				i := strings.LastIndex(in.AnswerKey, `<div class="answer"`)
				j := strings.Index(in.AnswerKey[i:], "</div>")
				in.AnswerKey = in.AnswerKey[:i] + in.AnswerKey[i+j+len("</div>"):]
			},
			doc:     DocAnswerKey,
			message: "1 answers for 2 questions",
		},
		{
			name:    "question count mismatch with plan",
			mutate:  func(in *Input) { in.Plan.Structure.Sections[0].Items = in.Plan.Structure.Sections[0].Items[:1] },
			doc:     DocWorksheet,
			message: "plan has 1",
		},
		{
			name:    "empty answer key",
			mutate:  func(in *Input) { in.AnswerKey = "" },
			doc:     DocAnswerKey,
			message: "document is empty",
		},
		{
			name: "payload over budget",
			mutate: func(in *Input) {
				in.Images = []types.ImageResult{{Data: "AAAA", CompressedBytes: 6 * compress.MiB}}
			},
			doc:     DocImages,
			message: "over the 5 MiB budget",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := assembled(t, samplePlan(types.ModeWorksheet))
			tt.mutate(&in)

			rep := Check(in)
			assert.False(t, rep.Passed)
			found := false
			for _, is := range rep.Errors() {
				if is.Document == tt.doc && strings.Contains(is.Message, tt.message) {
					found = true
				}
			}
			assert.True(t, found, "want %s issue containing %q, got:\n%s", tt.doc, tt.message, messages(rep))
		})
	}
}

func TestCheckAllowsMarkerTextInContent(t *testing.T) {
	p := samplePlan(types.ModeWorksheet)
	items := p.Structure.Sections[0].Items
	items[0].Text = "Is {{1,2}} a set of sets? Write {{}} for the empty one."
	items[0].CorrectAnswer = "{{1,2}}"
	items[1].Text = "Label the box placeholder: square."
	p.ImagePlacements[0].Description = "a card reading placeholder: {{ }}"

	rep := Check(assembled(t, p))
	assert.True(t, rep.Passed, messages(rep))
}

func TestCheckLessonNeedsGuide(t *testing.T) {
	in := assembled(t, samplePlan(types.ModeLessonPlan))
	in.InstructorGuide = ""
	rep := Check(in)
	assert.False(t, rep.Passed)
	assert.Contains(t, messages(rep), DocInstructorGuide+": document is empty")
}

func TestHasClass(t *testing.T) {
	assert.True(t, hasClass("question", "question"))
	assert.True(t, hasClass("big question red", "question"))
	assert.False(t, hasClass("question-number", "question"))
	assert.False(t, hasClass("", "question"))
}
