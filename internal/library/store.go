// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package library persists finished documents and the image cache tier in
// SQLite.
package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/worksheet-engine/pkg/types"
)

// DefaultLimit bounds List and Search when no limit is given.
const DefaultLimit = 50

// ErrNotFound is returned when a document id does not exist.
var ErrNotFound = errors.New("document not found")

// Store manages the library SQLite database.
type Store struct {
	db  *sql.DB
	dir string

	// now is replaced in tests.
	now func() time.Time
}

// Open opens or creates the database at cfg.Path and creates the schema if
// it does not exist.
func Open(cfg types.LibraryConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = types.DefaultPipelineConfig().Library.Path
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating library directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, dir: dir, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dir is the directory holding the database.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			run_id TEXT,
			title TEXT NOT NULL,
			grade TEXT,
			subject TEXT,
			topic TEXT,
			mode TEXT NOT NULL,
			richness TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			worksheet_html TEXT,
			answer_key_html TEXT,
			guide_html TEXT,
			plan TEXT,
			image_stats TEXT,
			quality TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_created ON documents(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_subject ON documents(subject, grade)`,
		`CREATE TABLE IF NOT EXISTS cache_entries (
			key TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			media_type TEXT,
			width INTEGER,
			height INTEGER,
			original_bytes INTEGER,
			compressed_bytes INTEGER,
			ratio REAL,
			created_at TEXT NOT NULL,
			hits INTEGER NOT NULL DEFAULT 0
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save inserts or updates doc. A missing id is assigned; CreatedAt is kept
// from an earlier save of the same id.
func (s *Store) Save(ctx context.Context, doc *types.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := s.now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	planJSON, err := marshalNullable(doc.Plan)
	if err != nil {
		return fmt.Errorf("marshaling plan: %w", err)
	}
	statsJSON, err := json.Marshal(doc.ImageStats)
	if err != nil {
		return fmt.Errorf("marshaling image stats: %w", err)
	}
	qualityJSON, err := json.Marshal(doc.Quality)
	if err != nil {
		return fmt.Errorf("marshaling quality: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, run_id, title, grade, subject, topic, mode, richness,
			created_at, updated_at, worksheet_html, answer_key_html, guide_html, plan, image_stats, quality)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			run_id=excluded.run_id, title=excluded.title, grade=excluded.grade,
			subject=excluded.subject, topic=excluded.topic, mode=excluded.mode,
			richness=excluded.richness, updated_at=excluded.updated_at,
			worksheet_html=excluded.worksheet_html, answer_key_html=excluded.answer_key_html,
			guide_html=excluded.guide_html, plan=excluded.plan,
			image_stats=excluded.image_stats, quality=excluded.quality`,
		doc.ID, doc.RunID, doc.Title, doc.Grade, doc.Subject, doc.Topic,
		string(doc.Mode), string(doc.Richness),
		formatTime(doc.CreatedAt), formatTime(doc.UpdatedAt),
		doc.WorksheetHTML, doc.AnswerKeyHTML, doc.InstructorGuideHTML,
		planJSON, string(statsJSON), string(qualityJSON),
	)
	if err != nil {
		return fmt.Errorf("saving document %s: %w", doc.ID, err)
	}
	return nil
}

// Get returns the document with id.
func (s *Store) Get(ctx context.Context, id string) (*types.Document, error) {
	var (
		doc                              types.Document
		mode, richness, created, updated string
		runID, grade, subject, topic     sql.NullString
		worksheet, answers, guide        sql.NullString
		planJSON, statsJSON, qualityJSON sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, run_id, title, grade, subject, topic, mode, richness, created_at, updated_at,
			worksheet_html, answer_key_html, guide_html, plan, image_stats, quality
		 FROM documents WHERE id = ?`, id,
	).Scan(&doc.ID, &runID, &doc.Title, &grade, &subject, &topic, &mode, &richness, &created, &updated,
		&worksheet, &answers, &guide, &planJSON, &statsJSON, &qualityJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying document %s: %w", id, err)
	}

	doc.RunID = runID.String
	doc.Grade = grade.String
	doc.Subject = subject.String
	doc.Topic = topic.String
	doc.Mode = types.DocumentMode(mode)
	doc.Richness = types.Richness(richness)
	doc.CreatedAt = parseTime(created)
	doc.UpdatedAt = parseTime(updated)
	doc.WorksheetHTML = worksheet.String
	doc.AnswerKeyHTML = answers.String
	doc.InstructorGuideHTML = guide.String

	if planJSON.Valid && planJSON.String != "" {
		var p types.DocumentPlan
		if err := json.Unmarshal([]byte(planJSON.String), &p); err != nil {
			return nil, fmt.Errorf("parsing stored plan: %w", err)
		}
		doc.Plan = &p
	}
	if statsJSON.Valid && statsJSON.String != "" {
		if err := json.Unmarshal([]byte(statsJSON.String), &doc.ImageStats); err != nil {
			return nil, fmt.Errorf("parsing stored image stats: %w", err)
		}
	}
	if qualityJSON.Valid && qualityJSON.String != "" {
		if err := json.Unmarshal([]byte(qualityJSON.String), &doc.Quality); err != nil {
			return nil, fmt.Errorf("parsing stored quality: %w", err)
		}
	}
	return &doc, nil
}

// Delete removes the document with id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// ListOptions filters List and Search. Empty fields match everything.
type ListOptions struct {
	// Query matches a substring of the title or topic, ignoring case.
	Query   string
	Mode    types.DocumentMode
	Grade   string
	Subject string

	// Limit caps the result count. Zero uses DefaultLimit.
	Limit int
}

// List returns document summaries, newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]types.DocumentSummary, error) {
	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(`SELECT id, title, grade, subject, topic, mode, created_at, image_stats, quality
		FROM documents WHERE 1=1`)

	if q := strings.TrimSpace(opts.Query); q != "" {
		like := "%" + escapeLike(strings.ToLower(q)) + "%"
		qb.WriteString(` AND (lower(title) LIKE ? ESCAPE '\' OR lower(coalesce(topic, '')) LIKE ? ESCAPE '\')`)
		args = append(args, like, like)
	}
	if opts.Mode != "" {
		qb.WriteString(` AND mode = ?`)
		args = append(args, string(opts.Mode))
	}
	if opts.Grade != "" {
		qb.WriteString(` AND grade = ?`)
		args = append(args, opts.Grade)
	}
	if opts.Subject != "" {
		qb.WriteString(` AND lower(subject) = lower(?)`)
		args = append(args, opts.Subject)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	qb.WriteString(` ORDER BY created_at DESC, id LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var out []types.DocumentSummary
	for rows.Next() {
		var (
			sum                    types.DocumentSummary
			grade, subject, topic  sql.NullString
			mode, created          string
			statsJSON, qualityJSON sql.NullString
		)
		if err := rows.Scan(&sum.ID, &sum.Title, &grade, &subject, &topic, &mode, &created, &statsJSON, &qualityJSON); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		sum.Grade = grade.String
		sum.Subject = subject.String
		sum.Topic = topic.String
		sum.Mode = types.DocumentMode(mode)
		sum.CreatedAt = parseTime(created)
		if statsJSON.Valid && statsJSON.String != "" {
			if err := json.Unmarshal([]byte(statsJSON.String), &sum.ImageStats); err != nil {
				return nil, fmt.Errorf("parsing image stats of %s: %w", sum.ID, err)
			}
		}
		if qualityJSON.Valid && qualityJSON.String != "" {
			var q types.QualitySummary
			if err := json.Unmarshal([]byte(qualityJSON.String), &q); err != nil {
				return nil, fmt.Errorf("parsing quality of %s: %w", sum.ID, err)
			}
			sum.Passed = q.Passed
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Search returns documents whose title or topic contains query.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]types.DocumentSummary, error) {
	return s.List(ctx, ListOptions{Query: query, Limit: limit})
}

func marshalNullable(p *types.DocumentPlan) (any, error) {
	if p == nil {
		return nil, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
