// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the worksheet-engine
// pipeline: the document plan every stage reads, image placements and
// results, validation findings, and per-stage configuration.
package types

import "strings"

// DocumentMode selects what the pipeline produces.
type DocumentMode string

const (
	ModeWorksheet  DocumentMode = "worksheet"
	ModeLessonPlan DocumentMode = "lesson_plan"
)

// ParseDocumentMode maps free-form input to a DocumentMode. Unknown values
// produce a worksheet.
func ParseDocumentMode(s string) DocumentMode {
	switch normalizeEnum(s) {
	case "lesson_plan", "lesson", "lessonplan":
		return ModeLessonPlan
	default:
		return ModeWorksheet
	}
}

// QuestionType identifies how an item is answered.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionShortAnswer    QuestionType = "short_answer"
	QuestionFillBlank      QuestionType = "fill_blank"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionMatching       QuestionType = "matching"
	QuestionOpenResponse   QuestionType = "open_response"
	QuestionActivity       QuestionType = "activity"
)

// ParseQuestionType maps free-form input to a QuestionType. Unknown values
// produce a short answer.
func ParseQuestionType(s string) QuestionType {
	switch normalizeEnum(s) {
	case "multiple_choice", "mcq", "choice":
		return QuestionMultipleChoice
	case "fill_blank", "fill_in_the_blank", "fill_in_blank", "cloze":
		return QuestionFillBlank
	case "true_false", "truefalse", "tf":
		return QuestionTrueFalse
	case "matching", "match":
		return QuestionMatching
	case "open_response", "open_ended", "essay":
		return QuestionOpenResponse
	case "activity", "task":
		return QuestionActivity
	default:
		return QuestionShortAnswer
	}
}

// SectionType classifies a section of a lesson plan.
type SectionType string

const (
	SectionWarmUp              SectionType = "warm_up"
	SectionInstruction         SectionType = "instruction"
	SectionGuidedPractice      SectionType = "guided_practice"
	SectionIndependentPractice SectionType = "independent_practice"
	SectionClosure             SectionType = "closure"
	SectionQuestions           SectionType = "questions"
)

// LessonSectionTypes lists the section types every lesson plan must contain,
// in teaching order.
var LessonSectionTypes = []SectionType{
	SectionWarmUp,
	SectionInstruction,
	SectionGuidedPractice,
	SectionIndependentPractice,
	SectionClosure,
}

// ParseSectionType maps free-form input to a SectionType. Unknown values
// produce a plain question section.
func ParseSectionType(s string) SectionType {
	switch normalizeEnum(s) {
	case "warm_up", "warmup", "do_now", "hook":
		return SectionWarmUp
	case "instruction", "direct_instruction", "i_do", "mini_lesson":
		return SectionInstruction
	case "guided_practice", "we_do", "guided":
		return SectionGuidedPractice
	case "independent_practice", "you_do", "independent":
		return SectionIndependentPractice
	case "closure", "exit_ticket", "wrap_up", "wrapup":
		return SectionClosure
	default:
		return SectionQuestions
	}
}

// Difficulty is the overall difficulty of a document.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty maps free-form input to a Difficulty, defaulting to medium.
func ParseDifficulty(s string) Difficulty {
	switch normalizeEnum(s) {
	case "easy", "beginner", "low":
		return DifficultyEasy
	case "hard", "advanced", "challenging", "high":
		return DifficultyHard
	default:
		return DifficultyMedium
	}
}

// PlanMetadata describes what a document is about.
type PlanMetadata struct {
	Title      string   `json:"title" yaml:"title"`
	Grade      string   `json:"grade" yaml:"grade"`
	Subject    string   `json:"subject" yaml:"subject"`
	Topic      string   `json:"topic" yaml:"topic"`
	Objectives []string `json:"learningObjectives" yaml:"learning_objectives"`
}

// PlanHeader is printed at the top of every page of the primary document.
type PlanHeader struct {
	Title        string `json:"title" yaml:"title"`
	Instructions string `json:"instructions,omitempty" yaml:"instructions,omitempty"`
	ShowName     bool   `json:"showName" yaml:"show_name"`
	ShowDate     bool   `json:"showDate" yaml:"show_date"`
}

// PlanItem is one question or activity.
type PlanItem struct {
	ID            string       `json:"id" yaml:"id"`
	Type          QuestionType `json:"type" yaml:"type"`
	Text          string       `json:"text" yaml:"text"`
	Options       []string     `json:"options,omitempty" yaml:"options,omitempty"`
	CorrectAnswer string       `json:"correctAnswer" yaml:"correct_answer"`
	Explanation   string       `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	Points        int          `json:"points,omitempty" yaml:"points,omitempty"`
}

// PlanSection is an ordered group of items. Type and DurationMinutes are
// only meaningful for lesson plans.
type PlanSection struct {
	ID              string      `json:"id" yaml:"id"`
	Type            SectionType `json:"type" yaml:"type"`
	Title           string      `json:"title" yaml:"title"`
	Instructions    string      `json:"instructions,omitempty" yaml:"instructions,omitempty"`
	DurationMinutes int         `json:"durationMinutes,omitempty" yaml:"duration_minutes,omitempty"`
	Items           []PlanItem  `json:"items" yaml:"items"`
}

// PlanStructure is the header plus ordered sections.
type PlanStructure struct {
	Header   PlanHeader    `json:"header" yaml:"header"`
	Sections []PlanSection `json:"sections" yaml:"sections"`
}

// PlanStyle controls the look of the document.
type PlanStyle struct {
	Difficulty  Difficulty  `json:"difficulty" yaml:"difficulty"`
	VisualStyle VisualStyle `json:"visualStyle" yaml:"visual_style"`
	Theme       string      `json:"theme,omitempty" yaml:"theme,omitempty"`
}

// Material is a physical or digital resource a lesson needs.
type Material struct {
	Name     string `json:"name" yaml:"name"`
	Quantity string `json:"quantity,omitempty" yaml:"quantity,omitempty"`
}

// Differentiation is guidance for one learner profile.
type Differentiation struct {
	Profile  string `json:"profile" yaml:"profile"`
	Guidance string `json:"guidance" yaml:"guidance"`
}

// CoachingNote is a scripted prompt for a teacher new to the material.
type CoachingNote struct {
	SectionID string `json:"sectionId,omitempty" yaml:"section_id,omitempty"`
	Say       string `json:"say" yaml:"say"`
	Watch     string `json:"watchFor,omitempty" yaml:"watch_for,omitempty"`
}

// DocumentPlan is the canonical intermediate representation that every stage
// after plan generation reads.
type DocumentPlan struct {
	Mode                  DocumentMode      `json:"mode" yaml:"mode"`
	Metadata              PlanMetadata      `json:"metadata" yaml:"metadata"`
	Structure             PlanStructure     `json:"structure" yaml:"structure"`
	Style                 PlanStyle         `json:"style" yaml:"style"`
	ImagePlacements       []ImagePlacement  `json:"imagePlacements,omitempty" yaml:"image_placements,omitempty"`
	Materials             []Material        `json:"materials,omitempty" yaml:"materials,omitempty"`
	Differentiation       []Differentiation `json:"differentiation,omitempty" yaml:"differentiation,omitempty"`
	CoachingScript        []CoachingNote    `json:"coachingScript,omitempty" yaml:"coaching_script,omitempty"`
	TargetDurationMinutes int               `json:"targetDurationMinutes,omitempty" yaml:"target_duration_minutes,omitempty"`
}

// Items returns every item in document order.
func (p *DocumentPlan) Items() []PlanItem {
	var items []PlanItem
	for _, s := range p.Structure.Sections {
		items = append(items, s.Items...)
	}
	return items
}

// ItemIndex maps item ids to their zero-based position in document order.
func (p *DocumentPlan) ItemIndex() map[string]int {
	idx := make(map[string]int)
	n := 0
	for _, s := range p.Structure.Sections {
		for _, it := range s.Items {
			if _, ok := idx[it.ID]; !ok {
				idx[it.ID] = n
			}
			n++
		}
	}
	return idx
}

// CountQuestions returns the number of items across all sections.
func CountQuestions(p *DocumentPlan) int {
	n := 0
	for _, s := range p.Structure.Sections {
		n += len(s.Items)
	}
	return n
}

// TotalDuration sums section durations in minutes.
func (p *DocumentPlan) TotalDuration() int {
	total := 0
	for _, s := range p.Structure.Sections {
		total += s.DurationMinutes
	}
	return total
}

// normalizeEnum lowercases s and folds spaces and hyphens to underscores.
func normalizeEnum(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	return strings.ReplaceAll(s, " ", "_")
}
