// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package imagegen turns admitted image placements into images. Each request
// is served from the cache when possible, otherwise it walks an attempt
// table of provider calls and ends as a success or a placeholder. Generation
// never returns an error to the caller.
package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"
	"text/template"
	"time"

	_ "golang.org/x/image/webp"

	"github.com/pdiddy/worksheet-engine/internal/httputil"
	"github.com/pdiddy/worksheet-engine/internal/imagecache"
	"github.com/pdiddy/worksheet-engine/internal/logger"
	"github.com/pdiddy/worksheet-engine/pkg/types"
)

// providerSizes maps size classes to the sizes the image API accepts.
var providerSizes = map[types.SizeClass]string{
	types.SizeSmall:  "1024x1024",
	types.SizeMedium: "1024x1024",
	types.SizeWide:   "1536x1024",
	types.SizeLarge:  "1024x1024",
}

// ProviderSize returns the provider size string for c. Unknown classes get
// the medium size.
func ProviderSize(c types.SizeClass) string {
	if s, ok := providerSizes[c]; ok {
		return s
	}
	return providerSizes[types.SizeMedium]
}

// State is where a request is in its attempt sequence.
type State int

const (
	StatePending State = iota
	StateRetrying
	StateFallbackStyle
	StateSucceeded
	StatePlaceholder
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRetrying:
		return "retrying"
	case StateFallbackStyle:
		return "fallback_style"
	case StateSucceeded:
		return "succeeded"
	case StatePlaceholder:
		return "placeholder"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// attempt is one row of the attempt table.
type attempt struct {
	state State
	style types.VisualStyle
	retry int // 1-based retry number when state is StateRetrying
}

// attemptTable lists every provider call a request may make: the first
// call, maxRetries retries in the requested style, then one call in the
// fallback style unless the request already uses it.
func attemptTable(style types.VisualStyle, maxRetries int) []attempt {
	table := []attempt{{state: StatePending, style: style}}
	for n := 1; n <= maxRetries; n++ {
		table = append(table, attempt{state: StateRetrying, style: style, retry: n})
	}
	if style != types.FallbackStyle {
		table = append(table, attempt{state: StateFallbackStyle, style: types.FallbackStyle})
	}
	return table
}

var promptTmpl = template.Must(template.New("image").Parse(
	`Educational image for a grade {{.Grade}} {{.Subject}} worksheet: {{.Content}}.
Style: {{.Style}}.{{if .Theme}} Theme: {{.Theme}}.{{end}}
Keep it clear, age-appropriate and uncluttered. Do not include any words or captions.`))

// BuildPrompt renders the provider prompt for req in style.
func BuildPrompt(req types.ImageRequest, style types.VisualStyle) string {
	subject := strings.TrimSpace(req.Prompt)
	if subject == "" {
		subject = strings.TrimSpace(req.Description)
	}
	grade := req.Grade
	if grade == "" {
		grade = "K-5"
	}
	var buf bytes.Buffer
	_ = promptTmpl.Execute(&buf, map[string]string{
		"Grade":   grade,
		"Subject": req.Subject,
		"Content": subject,
		"Style":   style.PromptPhrase(),
		"Theme":   req.Theme,
	})
	return buf.String()
}

// Placeholder returns the sentinel result for a request that could not be
// generated. Its dimensions are the size class target so layout is kept.
func Placeholder(key string, size types.SizeClass, placementID string) types.ImageResult {
	w, h := size.Dimensions()
	return types.ImageResult{
		Data:        types.PlaceholderPrefix + key,
		MediaType:   "image/placeholder",
		Width:       w,
		Height:      h,
		PlacementID: placementID,
	}
}

// Outcome describes how one request was resolved.
type Outcome struct {
	Result   types.ImageResult
	Key      string
	Cached   bool
	State    State
	Attempts int
	Err      error // last provider error, if any
}

// Generator resolves image requests against a cache and a provider.
type Generator struct {
	Provider   ImageProvider
	Cache      *imagecache.Cache
	Log        *logger.Logger
	Model      string
	MaxRetries int
	RetryDelay time.Duration
}

// NewGenerator builds a Generator from cfg. A disabled config or a missing
// API key leaves Provider nil, which turns every miss into a placeholder.
func NewGenerator(cfg types.ImageConfig, cache *imagecache.Cache, log *logger.Logger) *Generator {
	if log == nil {
		log = logger.Nop()
	}
	g := &Generator{
		Cache:      cache,
		Log:        log,
		Model:      cfg.Model,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
	}
	if !cfg.Disabled && cfg.APIKey != "" {
		g.Provider = &OpenAIProvider{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			BaseURL:   cfg.BaseURL,
			UserAgent: cfg.UserAgent,
			Client:    &http.Client{Timeout: cfg.Timeout},
		}
	}
	return g
}

// Generate resolves one request. It never fails: every path ends in a real
// image or a placeholder.
func (g *Generator) Generate(ctx context.Context, req types.ImageRequest) Outcome {
	key := imagecache.Key(req)
	if g.Cache == nil {
		return g.run(ctx, req, key)
	}

	var out Outcome
	res, cached, err := g.Cache.GetOrGenerate(ctx, key, func(ctx context.Context) (types.ImageResult, error) {
		out = g.run(ctx, req, key)
		if err := ctx.Err(); err != nil && out.Result.IsPlaceholder() {
			// Callers sharing this generation must not inherit our cancellation.
			return out.Result, err
		}
		return out.Result, nil
	})
	if err != nil {
		return Outcome{Result: Placeholder(key, req.Size, req.PlacementID), Key: key, State: StatePlaceholder, Err: err}
	}
	res.PlacementID = req.PlacementID
	out.Result = res
	out.Key = key
	out.Cached = cached
	if cached || out.Attempts == 0 {
		// Served from the cache or by a concurrent caller's generation.
		out.State = StateSucceeded
		if res.IsPlaceholder() {
			out.State = StatePlaceholder
		}
	}
	return out
}

// run walks the attempt table for req.
func (g *Generator) run(ctx context.Context, req types.ImageRequest, key string) Outcome {
	out := Outcome{Key: key, State: StatePending}
	placeholder := func() Outcome {
		out.State = StatePlaceholder
		out.Result = Placeholder(key, req.Size, req.PlacementID)
		return out
	}
	if g.Provider == nil {
		return placeholder()
	}

	table := attemptTable(req.Style, max(g.MaxRetries, 0))
	for i := 0; i < len(table); i++ {
		a := table[i]
		if i > 0 && !g.wait(ctx) {
			return placeholder()
		}
		if ctx.Err() != nil {
			return placeholder()
		}

		out.State = a.state
		out.Attempts++
		img, err := g.Provider.Generate(ctx, ProviderRequest{
			Prompt: BuildPrompt(req, a.style),
			Size:   ProviderSize(req.Size),
			Model:  g.Model,
		})
		if err == nil {
			out.State = StateSucceeded
			out.Err = nil
			out.Result = toResult(img, req.PlacementID)
			if a.state == StateFallbackStyle {
				g.logger().Info("image generated with fallback style", "placement", req.PlacementID, "style", a.style)
			}
			return out
		}

		out.Err = err
		g.logger().Warn("image attempt failed", "placement", req.PlacementID, "state", a.state.String(), "retry", a.retry, "style", a.style, "error", err)
		switch {
		case ctx.Err() != nil:
			return placeholder()
		case errors.Is(err, ErrContentPolicy):
			// Skip the remaining retries in this style.
			next := len(table)
			for j := i + 1; j < len(table); j++ {
				if table[j].state == StateFallbackStyle {
					next = j
					break
				}
			}
			i = next - 1
		case isPermanent(err):
			return placeholder()
		}
	}
	return placeholder()
}

func (g *Generator) logger() *logger.Logger {
	if g.Log == nil {
		return logger.Nop()
	}
	return g.Log
}

// wait sleeps RetryDelay and reports false if ctx ended first.
func (g *Generator) wait(ctx context.Context) bool {
	if g.RetryDelay <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(g.RetryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// isPermanent reports provider errors that no retry or style change can fix,
// such as a rejected API key.
func isPermanent(err error) bool {
	var sc httputil.StatusCoder
	if !errors.As(err, &sc) {
		return false
	}
	code := sc.HTTPStatusCode()
	return code >= 400 && code < 500 && !httputil.IsRetryableStatus(code)
}

func toResult(img ProviderImage, placementID string) types.ImageResult {
	res := types.ImageResult{
		Data:          base64.StdEncoding.EncodeToString(img.Data),
		MediaType:     img.MediaType,
		OriginalBytes: len(img.Data),
		PlacementID:   placementID,
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(img.Data)); err == nil {
		res.Width = cfg.Width
		res.Height = cfg.Height
	}
	return res
}

// Progress is called after each request in a batch.
type Progress func(done, total int, out Outcome)

// BatchResult holds per-request outcomes in request order.
type BatchResult struct {
	Outcomes []Outcome
	Stats    types.ImageStats
}

// Results returns the image results in request order.
func (b BatchResult) Results() []types.ImageResult {
	out := make([]types.ImageResult, len(b.Outcomes))
	for i, o := range b.Outcomes {
		out[i] = o.Result
	}
	return out
}

// GenerateBatch resolves requests one at a time, in order.
func (g *Generator) GenerateBatch(ctx context.Context, reqs []types.ImageRequest, progress Progress) BatchResult {
	res := BatchResult{Outcomes: make([]Outcome, 0, len(reqs))}
	res.Stats.Total = len(reqs)
	for i, req := range reqs {
		out := g.Generate(ctx, req)
		switch {
		case out.Result.IsPlaceholder():
			res.Stats.Failed++
		case out.Cached:
			res.Stats.Cached++
		default:
			res.Stats.Generated++
		}
		res.Outcomes = append(res.Outcomes, out)
		if progress != nil {
			progress(i+1, len(reqs), out)
		}
	}
	return res
}
