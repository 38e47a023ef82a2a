// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package quality runs the final automated checks over assembled documents.
// Problems are reported, never fixed, and never stop delivery.
package quality

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/pdiddy/worksheet-engine/internal/compress"
	"github.com/pdiddy/worksheet-engine/pkg/types"
)

// Document names used in issues.
const (
	DocWorksheet       = "worksheet"
	DocAnswerKey       = "answer_key"
	DocInstructorGuide = "instructor_guide"
	DocImages          = "images"
)

// Issue is one finding.
type Issue struct {
	Severity types.Severity `json:"severity" yaml:"severity"`
	Document string         `json:"document" yaml:"document"`
	Message  string         `json:"message" yaml:"message"`
}

// Report is the result of Check. Passed is true iff there are no
// error-severity issues.
type Report struct {
	Passed    bool                `json:"passed" yaml:"passed"`
	Questions int                 `json:"questions" yaml:"questions"`
	Answers   int                 `json:"answers" yaml:"answers"`
	Size      compress.SizeReport `json:"size" yaml:"size"`
	Issues    []Issue             `json:"issues,omitempty" yaml:"issues,omitempty"`
}

// Errors returns the error-severity issues.
func (r Report) Errors() []Issue {
	var out []Issue
	for _, is := range r.Issues {
		if is.Severity == types.SeverityError {
			out = append(out, is)
		}
	}
	return out
}

// Input is everything Check looks at.
type Input struct {
	Worksheet       string
	AnswerKey       string
	InstructorGuide string

	// Plan, when set, is the reference for the question count.
	Plan     *types.DocumentPlan
	Images   []types.ImageResult
	Richness types.Richness
}

// templateAction matches an unfilled template variable such as {{name}} or
// {{ .Title }}. Set notation like {{1,2}} does not match.
var templateAction = regexp.MustCompile(`\{\{\s*[.$]?[A-Za-z_][\w.]*\s*\}\}`)

// missingValue is what text/template prints for a missing field. Plan text is
// escaped, so it can only come from a template.
const missingValue = "<no value>"

// urlAttrs hold image and link targets, where a placeholder payload would
// leak into the page.
var urlAttrs = map[string]bool{"src": true, "href": true}

// blockElements are checked for balanced open and close tags.
var blockElements = map[string]bool{
	"html": true, "head": true, "body": true, "header": true, "main": true,
	"section": true, "div": true, "p": true, "ul": true, "ol": true, "li": true,
	"dl": true, "dt": true, "dd": true, "figure": true, "table": true,
	"tr": true, "td": true, "h1": true, "h2": true, "h3": true,
}

type checker struct {
	issues []Issue
}

func (c *checker) add(sev types.Severity, doc, format string, args ...any) {
	c.issues = append(c.issues, Issue{Severity: sev, Document: doc, Message: fmt.Sprintf(format, args...)})
}

// Check inspects the documents and image payload.
func Check(in Input) Report {
	var c checker

	docs := []struct {
		name, body string
		required   bool
	}{
		{DocWorksheet, in.Worksheet, true},
		{DocAnswerKey, in.AnswerKey, true},
		{DocInstructorGuide, in.InstructorGuide, in.Plan != nil && in.Plan.Mode == types.ModeLessonPlan},
	}
	for _, d := range docs {
		if strings.TrimSpace(d.body) == "" {
			if d.required {
				c.add(types.SeverityError, d.name, "document is empty")
			}
			continue
		}
		if m := templateAction.FindAllString(d.body, -1); len(m) > 0 {
			c.add(types.SeverityError, d.name, "%d template marker(s) left in output (%q)", len(m), m[0])
		}
		if n := strings.Count(d.body, missingValue); n > 0 {
			c.add(types.SeverityError, d.name, "%d missing template value(s) left in output (%q)", n, missingValue)
		}
		c.checkStructure(d.name, d.body)
	}

	rep := Report{
		Questions: countClass(in.Worksheet, "question"),
		Answers:   countClass(in.AnswerKey, "answer"),
	}
	if rep.Questions == 0 && in.Worksheet != "" {
		c.add(types.SeverityWarning, DocWorksheet, "worksheet has no questions")
	}
	if rep.Answers != rep.Questions {
		c.add(types.SeverityError, DocAnswerKey, "answer key has %d answers for %d questions", rep.Answers, rep.Questions)
	}
	if in.Plan != nil {
		if want := types.CountQuestions(in.Plan); want != rep.Questions {
			c.add(types.SeverityError, DocWorksheet, "worksheet shows %d questions, plan has %d", rep.Questions, want)
		}
	}

	rep.Size = compress.ValidateOutputSize(in.Images, in.Richness)
	if !rep.Size.Valid {
		c.add(types.SeverityError, DocImages, "%s", rep.Size.Suggestion)
	}

	rep.Issues = c.issues
	rep.Passed = len(rep.Errors()) == 0
	return rep
}

// checkStructure tokenizes doc and reports unbalanced block elements, a
// missing body and placeholder payloads used as image or link targets.
func (c *checker) checkStructure(name, doc string) {
	z := html.NewTokenizer(strings.NewReader(doc))
	var stack []string
	sawBody := false
	mismatches := 0
	placeholders := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				c.add(types.SeverityError, name, "html tokenizer: %v", err)
			}
			if !sawBody {
				c.add(types.SeverityError, name, "missing <body>")
			}
			if mismatches > 0 {
				c.add(types.SeverityError, name, "%d mismatched closing tag(s)", mismatches)
			}
			if len(stack) > 0 {
				c.add(types.SeverityError, name, "unclosed <%s>", strings.Join(stack, ">, <"))
			}
			if placeholders > 0 {
				c.add(types.SeverityError, name, "%d unrendered image placeholder(s) left in output (%q)", placeholders, types.PlaceholderPrefix)
			}
			return
		case html.SelfClosingTagToken:
			_, hasAttr := z.TagName()
			placeholders += placeholderAttrs(z, hasAttr)
		case html.StartTagToken:
			tn, hasAttr := z.TagName()
			placeholders += placeholderAttrs(z, hasAttr)
			tag := string(tn)
			if tag == "body" {
				sawBody = true
			}
			if blockElements[tag] {
				stack = append(stack, tag)
			}
		case html.EndTagToken:
			tn, _ := z.TagName()
			tag := string(tn)
			if !blockElements[tag] {
				continue
			}
			if len(stack) == 0 || stack[len(stack)-1] != tag {
				mismatches++
				// Resynchronize on the nearest matching open tag.
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == tag {
						stack = stack[:i]
						break
					}
				}
				continue
			}
			stack = stack[:len(stack)-1]
		}
	}
}

// placeholderAttrs counts src and href values of the current tag that carry
// a placeholder payload.
func placeholderAttrs(z *html.Tokenizer, more bool) int {
	n := 0
	for more {
		var key, val []byte
		key, val, more = z.TagAttr()
		if urlAttrs[string(key)] && strings.Contains(string(val), types.PlaceholderPrefix) {
			n++
		}
	}
	return n
}

// countClass counts elements carrying class in their class attribute.
func countClass(doc, class string) int {
	if strings.TrimSpace(doc) == "" {
		return 0
	}
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return 0
	}
	n := 0
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode {
			for _, a := range node.Attr {
				if a.Key == "class" && hasClass(a.Val, class) {
					n++
					break
				}
			}
		}
		for ch := node.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(root)
	return n
}

func hasClass(attr, class string) bool {
	for _, f := range strings.Fields(attr) {
		if f == class {
			return true
		}
	}
	return false
}
