// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package plan

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pdiddy/worksheet-engine/pkg/types"
)

// lessonShape is the default minutes per lesson section for a 45 minute
// lesson, in teaching order.
var lessonShape = []struct {
	typ     types.SectionType
	title   string
	minutes int
}{
	{types.SectionWarmUp, "Warm-Up", 5},
	{types.SectionInstruction, "Instruction", 15},
	{types.SectionGuidedPractice, "Guided Practice", 10},
	{types.SectionIndependentPractice, "Independent Practice", 10},
	{types.SectionClosure, "Closure", 5},
}

// CreateFallbackPlan builds a deterministic plan from the request alone. The
// same context always yields the same plan. It has no image placements.
func CreateFallbackPlan(gc GenerationContext) *types.DocumentPlan {
	mode := types.ParseDocumentMode(string(gc.Mode))
	opts := gc.Options.withDefaults(mode)

	topic := firstNonEmpty(gc.Topic, gc.Subject, "Practice")
	title := fmt.Sprintf("%s Practice", titleCase(topic))
	if mode == types.ModeLessonPlan {
		title = fmt.Sprintf("%s Lesson", titleCase(topic))
	}

	p := &types.DocumentPlan{
		Mode: mode,
		Metadata: types.PlanMetadata{
			Title:      title,
			Grade:      gc.Grade,
			Subject:    gc.Subject,
			Topic:      topic,
			Objectives: []string{fmt.Sprintf("Students practice %s.", strings.ToLower(topic))},
		},
		Structure: types.PlanStructure{
			Header: types.PlanHeader{
				Title:        title,
				Instructions: "Read each question carefully and write your answer.",
				ShowName:     true,
				ShowDate:     true,
			},
		},
		Style: types.PlanStyle{
			Difficulty:  opts.Difficulty,
			VisualStyle: opts.VisualStyle,
			Theme:       opts.Theme,
		},
		Materials: []types.Material{
			{Name: "Pencils", Quantity: "1 per student"},
			{Name: "Printed worksheet", Quantity: "1 per student"},
		},
		Differentiation: []types.Differentiation{
			{Profile: "Students who need support", Guidance: "Read the questions aloud and let students answer orally or with a partner."},
			{Profile: "Students ready for a challenge", Guidance: "Ask students to write one new question of their own and answer it."},
		},
	}

	items := fallbackItems(topic, opts)

	if mode != types.ModeLessonPlan {
		p.Structure.Sections = []types.PlanSection{{
			ID:    "s1",
			Type:  types.SectionQuestions,
			Title: "Questions",
			Items: items,
		}}
		return p
	}

	p.TargetDurationMinutes = opts.TargetDurationMinutes
	minutes := scaleLesson(opts.TargetDurationMinutes)
	for i, shape := range lessonShape {
		s := types.PlanSection{
			ID:              fmt.Sprintf("s%d", i+1),
			Type:            shape.typ,
			Title:           shape.title,
			DurationMinutes: minutes[i],
		}
		if shape.typ == types.SectionIndependentPractice {
			s.Items = items
		} else {
			s.Items = []types.PlanItem{{
				ID:            fmt.Sprintf("a%d", i+1),
				Type:          types.QuestionActivity,
				Text:          lessonActivity(shape.typ, topic),
				CorrectAnswer: "Teacher observation",
			}}
		}
		p.Structure.Sections = append(p.Structure.Sections, s)
		p.CoachingScript = append(p.CoachingScript, types.CoachingNote{
			SectionID: s.ID,
			Say:       coachingLine(shape.typ, topic),
			Watch:     "Students who have not started after two minutes.",
		})
	}
	return p
}

func fallbackItems(topic string, opts Options) []types.PlanItem {
	items := make([]types.PlanItem, opts.QuestionCount)
	for i := range items {
		qt := opts.QuestionTypes[i%len(opts.QuestionTypes)]
		it := types.PlanItem{
			ID:     fmt.Sprintf("q%d", i+1),
			Type:   qt,
			Points: 1,
		}
		switch qt {
		case types.QuestionMultipleChoice:
			it.Text = fmt.Sprintf("Question %d: Which answer best fits %s?", i+1, strings.ToLower(topic))
			it.Options = []string{"A", "B", "C", "D"}
			it.CorrectAnswer = "Answers will vary."
		case types.QuestionTrueFalse:
			it.Text = fmt.Sprintf("Question %d: True or false? Write one fact about %s.", i+1, strings.ToLower(topic))
			it.Options = []string{"True", "False"}
			it.CorrectAnswer = "Answers will vary."
		case types.QuestionFillBlank:
			it.Text = fmt.Sprintf("Question %d: Fill in the blank about %s: ____", i+1, strings.ToLower(topic))
			it.CorrectAnswer = "Answers will vary."
		default:
			it.Text = fmt.Sprintf("Question %d: Write what you know about %s.", i+1, strings.ToLower(topic))
			it.CorrectAnswer = "Answers will vary."
		}
		items[i] = it
	}
	return items
}

// scaleLesson stretches the default lesson shape to target minutes, keeping
// every section inside its duration band.
func scaleLesson(target int) []int {
	out := make([]int, len(lessonShape))
	for i, shape := range lessonShape {
		m := (shape.minutes*target + DefaultLessonMinutes/2) / DefaultLessonMinutes
		b := durationBands[shape.typ]
		out[i] = min(max(m, b.min), b.max)
	}
	return out
}

func lessonActivity(t types.SectionType, topic string) string {
	topic = strings.ToLower(topic)
	switch t {
	case types.SectionWarmUp:
		return fmt.Sprintf("Share one thing you already know about %s.", topic)
	case types.SectionInstruction:
		return fmt.Sprintf("Listen and take notes while the teacher models %s.", topic)
	case types.SectionGuidedPractice:
		return fmt.Sprintf("Work with a partner on %s problems with teacher help.", topic)
	default:
		return fmt.Sprintf("Tell a partner one new thing you learned about %s.", topic)
	}
}

func coachingLine(t types.SectionType, topic string) string {
	topic = strings.ToLower(topic)
	switch t {
	case types.SectionWarmUp:
		return fmt.Sprintf("Today we are going to learn about %s. What do you already know?", topic)
	case types.SectionInstruction:
		return "Watch how I solve this first one. I will say each step out loud."
	case types.SectionGuidedPractice:
		return "Let's do the next ones together. Tell me the first step."
	case types.SectionIndependentPractice:
		return "Now try these on your own. Raise your hand if you get stuck."
	default:
		return "Turn to your partner and share one thing you learned today."
	}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
