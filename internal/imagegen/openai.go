// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/pdiddy/worksheet-engine/internal/llm"
)

// openAIImagesURL is the image generation endpoint. Package-level var for test substitution.
var openAIImagesURL = "https://api.openai.com/v1/images/generations"

const defaultImageModel = "gpt-image-1"

// Typed provider failures. Callers test them with errors.Is.
var (
	ErrContentPolicy = errors.New("image request rejected by content policy")
	ErrRateLimited   = errors.New("image provider rate limited")
)

// ProviderRequest is one call to an ImageProvider.
type ProviderRequest struct {
	Prompt string
	Size   string // provider size string, e.g. "1024x1024"
	Model  string
}

// ProviderImage is the raw image returned by a provider.
type ProviderImage struct {
	Data          []byte
	MediaType     string
	RevisedPrompt string
}

// ImageProvider abstracts the image API so tests can supply a mock.
type ImageProvider interface {
	Generate(ctx context.Context, req ProviderRequest) (ProviderImage, error)
}

// OpenAIProvider calls an OpenAI-compatible /v1/images/generations endpoint.
type OpenAIProvider struct {
	APIKey    string
	Model     string
	BaseURL   string // replaces the host part of the endpoint when set
	UserAgent string
	Client    *http.Client
}

type imagesRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

type imagesResponse struct {
	Data []struct {
		B64JSON       string `json:"b64_json"`
		URL           string `json:"url"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
}

func (p *OpenAIProvider) endpoint() string {
	if p.BaseURL != "" {
		return strings.TrimRight(p.BaseURL, "/") + "/v1/images/generations"
	}
	return openAIImagesURL
}

func (p *OpenAIProvider) client() *http.Client {
	if p.Client != nil {
		return p.Client
	}
	return http.DefaultClient
}

// Generate requests a single image and returns its decoded bytes.
func (p *OpenAIProvider) Generate(ctx context.Context, in ProviderRequest) (ProviderImage, error) {
	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		return ProviderImage{}, errors.New("image prompt required")
	}
	model := in.Model
	if model == "" {
		model = p.Model
	}
	if model == "" {
		model = defaultImageModel
	}

	// gpt-image models always return base64 and reject response_format.
	format := "b64_json"
	if strings.HasPrefix(strings.ToLower(model), "gpt-image-") {
		format = ""
	}
	body, err := json.Marshal(imagesRequest{
		Model:          model,
		Prompt:         prompt,
		N:              1,
		Size:           in.Size,
		ResponseFormat: format,
	})
	if err != nil {
		return ProviderImage{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(), bytes.NewReader(body))
	if err != nil {
		return ProviderImage{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}

	resp, err := p.client().Do(req)
	if err != nil {
		return ProviderImage{}, fmt.Errorf("calling image API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return ProviderImage{}, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return ProviderImage{}, classify(&llm.HTTPError{Provider: "image", StatusCode: resp.StatusCode, Body: string(respBody)})
	}

	var parsed imagesResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return ProviderImage{}, fmt.Errorf("parsing response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return ProviderImage{}, errors.New("no image returned")
	}
	item := parsed.Data[0]

	var raw []byte
	switch {
	case strings.TrimSpace(item.B64JSON) != "":
		raw, err = base64.StdEncoding.DecodeString(strings.TrimSpace(item.B64JSON))
		if err != nil {
			return ProviderImage{}, fmt.Errorf("decoding image base64: %w", err)
		}
	case strings.TrimSpace(item.URL) != "":
		raw, err = p.download(ctx, strings.TrimSpace(item.URL))
		if err != nil {
			return ProviderImage{}, fmt.Errorf("downloading generated image: %w", err)
		}
	default:
		return ProviderImage{}, errors.New("image response missing b64_json and url")
	}

	mt := mimetype.Detect(raw)
	if !strings.HasPrefix(mt.String(), "image/") {
		return ProviderImage{}, fmt.Errorf("provider returned %s, not an image", mt.String())
	}
	return ProviderImage{Data: raw, MediaType: mt.String(), RevisedPrompt: item.RevisedPrompt}, nil
}

func (p *OpenAIProvider) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download returned %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// classify wraps a provider HTTP error with the matching sentinel.
func classify(he *llm.HTTPError) error {
	switch {
	case he.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", ErrRateLimited, he)
	case llm.IsContentPolicy(he):
		return fmt.Errorf("%w: %w", ErrContentPolicy, he)
	default:
		return he
	}
}
