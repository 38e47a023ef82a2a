// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/pdiddy/worksheet-engine/internal/httputil"
)

// DefaultOllamaURL is where a local Ollama server listens.
const DefaultOllamaURL = "http://localhost:11434"

const defaultOllamaModel = "llama3.2"

// RecommendedModel is a model known to produce usable plans on modest hardware.
type RecommendedModel struct {
	Name        string
	Parameters  string
	Description string
}

// RecommendedModels lists models suggested for plan generation, smallest
// footprint last.
var RecommendedModels = []RecommendedModel{
	{Name: "llama3.2", Parameters: "3B", Description: "Fast, good for general tasks"},
	{Name: "llama3.2:1b", Parameters: "1B", Description: "Smallest, fastest option"},
	{Name: "mistral", Parameters: "7B", Description: "Good balance of speed and quality"},
	{Name: "gemma2:2b", Parameters: "2B", Description: "Google's efficient model"},
}

// OllamaBackend calls a local Ollama server's /api/generate endpoint.
type OllamaBackend struct {
	BaseURL    string
	Model      string
	MaxTokens  int
	MaxRetries int
	Client     *http.Client

	// exec runs the ollama binary for Status and Pull. Nil uses os/exec.
	exec executor
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

func (o *OllamaBackend) baseURL() string {
	if o.BaseURL == "" {
		return DefaultOllamaURL
	}
	return strings.TrimRight(o.BaseURL, "/")
}

// Complete runs a non-streaming generation.
func (o *OllamaBackend) Complete(ctx context.Context, in CompletionRequest) (Completion, error) {
	model := firstNonEmpty(in.Model, o.Model, defaultOllamaModel)
	body := ollamaGenerateRequest{
		Model:  model,
		Prompt: in.Prompt,
		System: in.System,
	}
	if in.JSON {
		body.Format = "json"
	}
	maxTokens := in.MaxTokens
	if maxTokens <= 0 {
		maxTokens = o.MaxTokens
	}
	if maxTokens > 0 {
		body.Options = map[string]any{"num_predict": maxTokens}
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return Completion{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL()+"/api/generate", bytes.NewReader(bodyBytes))
	if err != nil {
		return Completion{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httputil.DoWithRetry(ctx, clientOrDefault(o.Client), req, o.MaxRetries)
	if err != nil {
		return Completion{}, fmt.Errorf("calling Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return Completion{}, &HTTPError{Provider: "Ollama", StatusCode: resp.StatusCode, Body: string(b)}
	}

	var oResp ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&oResp); err != nil {
		return Completion{}, fmt.Errorf("decoding Ollama response: %w", err)
	}
	if strings.TrimSpace(oResp.Response) == "" {
		return Completion{}, ErrEmptyCompletion
	}

	return Completion{
		Text:  oResp.Response,
		Model: firstNonEmpty(oResp.Model, model),
		Usage: Usage{InputTokens: oResp.PromptEvalCount, OutputTokens: oResp.EvalCount},
	}, nil
}

// OllamaModel is one locally installed model.
type OllamaModel struct {
	Name       string    `json:"name" yaml:"name"`
	Size       int64     `json:"size" yaml:"size"`
	ModifiedAt time.Time `json:"modified_at" yaml:"modified_at"`
}

// HumanSize formats Size with a binary unit.
func (m OllamaModel) HumanSize() string {
	return formatSize(m.Size)
}

// OllamaStatus reports whether Ollama can serve requests.
type OllamaStatus struct {
	Installed bool          `json:"installed" yaml:"installed"`
	Running   bool          `json:"running" yaml:"running"`
	Version   string        `json:"version,omitempty" yaml:"version,omitempty"`
	Models    []OllamaModel `json:"models" yaml:"models"`
}

// HasModel reports whether name is installed. A bare name matches its
// ":latest" tag.
func (s OllamaStatus) HasModel(name string) bool {
	for _, m := range s.Models {
		if m.Name == name || m.Name == name+":latest" {
			return true
		}
	}
	return false
}

type ollamaTagsResponse struct {
	Models []OllamaModel `json:"models"`
}

// ListModels returns the models installed on the server.
func (o *OllamaBackend) ListModels(ctx context.Context) ([]OllamaModel, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL()+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := clientOrDefault(o.Client).Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, &HTTPError{Provider: "Ollama", StatusCode: resp.StatusCode, Body: string(b)}
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decoding Ollama tags: %w", err)
	}
	return tags.Models, nil
}

// Status checks for the ollama binary on PATH, its version, and whether the
// server answers /api/tags. A server reachable over the network counts as
// running even when no local binary exists.
func (o *OllamaBackend) Status(ctx context.Context) OllamaStatus {
	x := o.executor()
	var st OllamaStatus
	if _, err := x.LookPath("ollama"); err == nil {
		st.Installed = true
		if out, err := x.Output(ctx, "ollama", "--version"); err == nil {
			st.Version = parseOllamaVersion(out)
		}
	}
	models, err := o.ListModels(ctx)
	if err == nil {
		st.Running = true
		st.Models = models
	}
	return st
}

// Pull downloads model through the local ollama binary, streaming its
// progress to w.
func (o *OllamaBackend) Pull(ctx context.Context, model string, w io.Writer) error {
	x := o.executor()
	if _, err := x.LookPath("ollama"); err != nil {
		return fmt.Errorf("ollama binary not found on PATH: %w", err)
	}
	if err := x.Run(ctx, w, "ollama", "pull", model); err != nil {
		return fmt.Errorf("pulling %s: %w", model, err)
	}
	return nil
}

func (o *OllamaBackend) executor() executor {
	if o.exec == nil {
		return osExecutor{}
	}
	return o.exec
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	Output(ctx context.Context, name string, args ...string) (string, error)
	Run(ctx context.Context, stdout io.Writer, name string, args ...string) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (osExecutor) Output(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	return string(out), err
}

func (osExecutor) Run(ctx context.Context, stdout io.Writer, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stdout
	return cmd.Run()
}

// parseOllamaVersion extracts "0.5.7" from "ollama version is 0.5.7".
func parseOllamaVersion(out string) string {
	out = strings.TrimSpace(out)
	if i := strings.LastIndexByte(out, ' '); i >= 0 {
		return out[i+1:]
	}
	return out
}

func formatSize(bytes int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/gb)
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/mb)
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/kb)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
