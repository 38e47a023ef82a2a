// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package assemble

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/worksheet-engine/internal/plan"
	"github.com/pdiddy/worksheet-engine/pkg/types"
)

func worksheetPlan() *types.DocumentPlan {
	return &types.DocumentPlan{
		Mode: types.ModeWorksheet,
		Metadata: types.PlanMetadata{
			Title:   "Apple Counting",
			Grade:   "1",
			Subject: "Math",
		},
		Structure: types.PlanStructure{
			Header: types.PlanHeader{Title: "Apple Counting", ShowName: true},
			Sections: []types.PlanSection{
				{ID: "s1", Title: "Count", Items: []types.PlanItem{
					{ID: "q1", Type: types.QuestionShortAnswer, Text: "How many apples?", CorrectAnswer: "3"},
					{ID: "q2", Type: types.QuestionMultipleChoice, Text: "Which is more?", Options: []string{"2", "5"}, CorrectAnswer: "5"},
				}},
				{ID: "s2", Title: "Think", Items: []types.PlanItem{
					{ID: "q3", Type: types.QuestionTrueFalse, Text: "4 is less than 2.", CorrectAnswer: "False", Explanation: "4 is more than 2."},
					{ID: "q4", Type: types.QuestionOpenResponse, Text: "Draw 6 apples."},
				}},
			},
		},
		ImagePlacements: []types.ImagePlacement{
			{ID: "img1", AnchorID: "q1", Description: "Three apples", Size: types.SizeSmall},
			{ID: "img2", AnchorID: "q2", Description: "Two and five apples", Size: types.SizeWide},
		},
	}
}

func TestAssembleQuestionCountRoundTrip(t *testing.T) {
	p := worksheetPlan()
	out, err := Assemble(p, nil)
	require.NoError(t, err)

	assert.Equal(t, types.CountQuestions(p), CountMarkers(out.Worksheet, QuestionMarker))
	assert.Equal(t, types.CountQuestions(p), CountMarkers(out.AnswerKey, AnswerMarker))
	assert.Empty(t, out.InstructorGuide)
}

func TestAssembleLessonRoundTrip(t *testing.T) {
	p := plan.CreateFallbackPlan(plan.GenerationContext{
		Prompt:  "fractions",
		Grade:   "4",
		Subject: "Math",
		Topic:   "fractions",
		Mode:    types.ModeLessonPlan,
	})
	out, err := Assemble(p, nil)
	require.NoError(t, err)

	assert.Equal(t, types.CountQuestions(p), CountMarkers(out.Worksheet, QuestionMarker))
	assert.Equal(t, types.CountQuestions(p), CountMarkers(out.AnswerKey, AnswerMarker))

	guide := out.InstructorGuide
	require.NotEmpty(t, guide)
	assert.Contains(t, guide, "Lesson Plan")
	assert.Contains(t, guide, "Materials")
	assert.Contains(t, guide, "Pencils")
	assert.Contains(t, guide, "Differentiation")
	assert.Contains(t, guide, "Say:")
	assert.Contains(t, guide, "Learning Objectives")
	for _, s := range p.Structure.Sections {
		assert.Contains(t, guide, s.Title)
	}
}

func TestAssembleEscapesText(t *testing.T) {
	p := worksheetPlan()
	p.Metadata.Title = `Tom & "Jerry"`
	p.Structure.Header.Title = ""
	p.Structure.Sections[0].Items[0].Text = `<script>alert('x')</script>`
	p.Structure.Sections[0].Items[0].CorrectAnswer = `<b>3</b>`
	p.ImagePlacements[0].Description = `"><img src=x onerror=alert(1)>`

	out, err := Assemble(p, nil)
	require.NoError(t, err)

	for _, doc := range []string{out.Worksheet, out.AnswerKey} {
		assert.NotContains(t, doc, "<script>")
		assert.NotContains(t, doc, "<b>3</b>")
		assert.NotContains(t, doc, "<img src=x")
		assert.Contains(t, doc, "Tom &amp; &#34;Jerry&#34;")
	}
	assert.Contains(t, out.Worksheet, "&lt;script&gt;alert(&#39;x&#39;)&lt;/script&gt;")
	assert.Contains(t, out.AnswerKey, "&lt;b&gt;3&lt;/b&gt;")
}

func TestAssembleDeterministic(t *testing.T) {
	images := []types.ImageResult{{Data: "QUJD", MediaType: "image/jpeg", PlacementID: "img1", Width: 100, Height: 80}}
	a, err := Assemble(worksheetPlan(), images)
	require.NoError(t, err)
	b, err := Assemble(worksheetPlan(), images)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestAssembleImageMatching(t *testing.T) {
	p := worksheetPlan()
	images := []types.ImageResult{
		{Data: "QkJCQg==", MediaType: "image/jpeg", PlacementID: "img2"},
		{Data: "QUFBQQ==", MediaType: "image/png"},
	}
	out, err := Assemble(p, images)
	require.NoError(t, err)

	first := strings.Index(out.Worksheet, "data:image/png;base64,QUFBQQ==")
	second := strings.Index(out.Worksheet, "data:image/jpeg;base64,QkJCQg==")
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, second)
	assert.Less(t, first, second, "positional image fills img1 on q1")

	// Missing dimensions fall back to the size class box.
	assert.Contains(t, out.Worksheet, `width="256" height="256"`)
	assert.Contains(t, out.Worksheet, `width="600" height="400"`)
}

func TestAssemblePlaceholders(t *testing.T) {
	p := worksheetPlan()
	images := []types.ImageResult{
		{Data: types.PlaceholderPrefix + "abc123", PlacementID: "img1", Width: 256, Height: 256},
	}
	out, err := Assemble(p, images)
	require.NoError(t, err)

	assert.NotContains(t, out.Worksheet, types.PlaceholderPrefix)
	// One explicit placeholder and one placement with no image at all.
	assert.Equal(t, 2, strings.Count(out.Worksheet, `class="image-placeholder"`))
	assert.Contains(t, out.Worksheet, "Image: Three apples")
	assert.NotContains(t, out.Worksheet, "<img ")
}

func TestAssembleWorksheetDetails(t *testing.T) {
	out, err := Assemble(worksheetPlan(), nil)
	require.NoError(t, err)

	ws := out.Worksheet
	assert.Contains(t, ws, "Name: ")
	assert.NotContains(t, ws, "Date: ")
	assert.Contains(t, ws, `<ol class="options" type="A">`)
	assert.Contains(t, ws, "True &nbsp;&nbsp; False")
	// Short answer gets one line, open response three.
	assert.Equal(t, 4, strings.Count(ws, `class="write-line"`))
	assert.Contains(t, ws, `<span class="question-number">4.</span>`)

	assert.Contains(t, out.AnswerKey, "Answers will vary.")
	assert.Contains(t, out.AnswerKey, `<p class="explanation">4 is more than 2.</p>`)
}
