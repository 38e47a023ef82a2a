// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package library

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/worksheet-engine/pkg/types"
)

const exportLimit = 100000

// ExportEntry is a document as written by ExportYAML and ExportJSON. HTML
// bodies are left out; use WriteHTML for those.
type ExportEntry struct {
	ID         string               `json:"id" yaml:"id"`
	Title      string               `json:"title" yaml:"title"`
	Grade      string               `json:"grade" yaml:"grade"`
	Subject    string               `json:"subject" yaml:"subject"`
	Topic      string               `json:"topic,omitempty" yaml:"topic,omitempty"`
	Mode       types.DocumentMode   `json:"mode" yaml:"mode"`
	Richness   types.Richness       `json:"richness" yaml:"richness"`
	CreatedAt  string               `json:"createdAt" yaml:"created_at"`
	ImageStats types.ImageStats     `json:"imageStats" yaml:"image_stats"`
	Quality    types.QualitySummary `json:"quality" yaml:"quality"`
	Plan       *types.DocumentPlan  `json:"plan,omitempty" yaml:"plan,omitempty"`
}

// ExportYAML writes matching documents to export.yaml next to the database
// and returns the file path.
func (s *Store) ExportYAML(ctx context.Context, opts ListOptions) (string, error) {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, "export.yaml")
	data, err := yaml.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	return path, os.WriteFile(path, data, 0o644)
}

// ExportJSON writes matching documents to export.json next to the database
// and returns the file path.
func (s *Store) ExportJSON(ctx context.Context, opts ListOptions) (string, error) {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, "export.json")
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	return path, os.WriteFile(path, data, 0o644)
}

func (s *Store) exportEntries(ctx context.Context, opts ListOptions) ([]ExportEntry, error) {
	opts.Limit = exportLimit
	summaries, err := s.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}

	entries := make([]ExportEntry, 0, len(summaries))
	for _, sum := range summaries {
		doc, err := s.Get(ctx, sum.ID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ExportEntry{
			ID:         doc.ID,
			Title:      doc.Title,
			Grade:      doc.Grade,
			Subject:    doc.Subject,
			Topic:      doc.Topic,
			Mode:       doc.Mode,
			Richness:   doc.Richness,
			CreatedAt:  formatTime(doc.CreatedAt),
			ImageStats: doc.ImageStats,
			Quality:    doc.Quality,
			Plan:       doc.Plan,
		})
	}
	return entries, nil
}

// Output file names written by WriteHTML.
const (
	WorksheetFile       = "worksheet.html"
	AnswerKeyFile       = "answer_key.html"
	InstructorGuideFile = "instructor_guide.html"
)

// WriteHTML writes the document's HTML bodies into dir/<id>/ and returns the
// paths written. Empty bodies are skipped.
func WriteHTML(doc *types.Document, dir string) ([]string, error) {
	target := filepath.Join(dir, doc.ID)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	files := []struct{ name, body string }{
		{WorksheetFile, doc.WorksheetHTML},
		{AnswerKeyFile, doc.AnswerKeyHTML},
		{InstructorGuideFile, doc.InstructorGuideHTML},
	}
	var written []string
	for _, f := range files {
		if f.body == "" {
			continue
		}
		path := filepath.Join(target, f.name)
		if err := os.WriteFile(path, []byte(f.body), 0o644); err != nil {
			return written, fmt.Errorf("writing %s: %w", f.name, err)
		}
		written = append(written, path)
	}
	return written, nil
}
