// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// QualitySummary is the stored outcome of the final quality pass.
type QualitySummary struct {
	Passed   bool     `json:"passed" yaml:"passed"`
	Errors   int      `json:"errors" yaml:"errors"`
	Warnings int      `json:"warnings" yaml:"warnings"`
	Messages []string `json:"messages,omitempty" yaml:"messages,omitempty"`
}

// Document is a finished pipeline artifact as kept in the library.
type Document struct {
	ID        string       `json:"id" yaml:"id"`
	RunID     string       `json:"runId,omitempty" yaml:"run_id,omitempty"`
	Title     string       `json:"title" yaml:"title"`
	Grade     string       `json:"grade" yaml:"grade"`
	Subject   string       `json:"subject" yaml:"subject"`
	Topic     string       `json:"topic,omitempty" yaml:"topic,omitempty"`
	Mode      DocumentMode `json:"mode" yaml:"mode"`
	Richness  Richness     `json:"richness" yaml:"richness"`
	CreatedAt time.Time    `json:"createdAt" yaml:"created_at"`
	UpdatedAt time.Time    `json:"updatedAt" yaml:"updated_at"`

	WorksheetHTML       string `json:"worksheetHtml,omitempty" yaml:"worksheet_html,omitempty"`
	AnswerKeyHTML       string `json:"answerKeyHtml,omitempty" yaml:"answer_key_html,omitempty"`
	InstructorGuideHTML string `json:"instructorGuideHtml,omitempty" yaml:"instructor_guide_html,omitempty"`

	Plan       *DocumentPlan  `json:"plan,omitempty" yaml:"plan,omitempty"`
	ImageStats ImageStats     `json:"imageStats" yaml:"image_stats"`
	Quality    QualitySummary `json:"quality" yaml:"quality"`
}

// DocumentSummary is the listing view of a Document.
type DocumentSummary struct {
	ID         string       `json:"id" yaml:"id"`
	Title      string       `json:"title" yaml:"title"`
	Grade      string       `json:"grade" yaml:"grade"`
	Subject    string       `json:"subject" yaml:"subject"`
	Topic      string       `json:"topic,omitempty" yaml:"topic,omitempty"`
	Mode       DocumentMode `json:"mode" yaml:"mode"`
	CreatedAt  time.Time    `json:"createdAt" yaml:"created_at"`
	ImageStats ImageStats   `json:"imageStats" yaml:"image_stats"`
	Passed     bool         `json:"passed" yaml:"passed"`
}
