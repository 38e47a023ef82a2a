package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that call a provider.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with provider requests
	// (e.g. "worksheet-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// TextBackend identifies the text-completion provider.
type TextBackend string

const (
	TextBackendClaude TextBackend = "claude"
	TextBackendOllama TextBackend = "ollama"
)

// ParseTextBackend maps free-form input to a TextBackend, defaulting to claude.
func ParseTextBackend(s string) TextBackend {
	if normalizeEnum(s) == "ollama" {
		return TextBackendOllama
	}
	return TextBackendClaude
}

// TextConfig holds settings for plan generation and repair.
type TextConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Backend selects the text provider: claude or ollama.
	Backend TextBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Model is the model identifier (e.g. "claude-sonnet-4-5-20250929" or "llama3.2").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for hosted providers.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BaseURL overrides the provider endpoint. Ollama defaults to
	// http://localhost:11434.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// MaxTokens bounds the completion length (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// MaxRetries is the number of retry attempts for throttled calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// ImageConfig holds settings for the image generation stage.
type ImageConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Model is the image model identifier (default "gpt-image-1").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the image API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BaseURL overrides the OpenAI-compatible endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// MaxRetries is the number of primary-style retries after the first
	// attempt (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// RetryDelay is the fixed delay between attempts (default 2s).
	RetryDelay time.Duration `json:"retry_delay" yaml:"retry_delay" mapstructure:"retry_delay"`

	// Disabled skips the provider entirely; every admitted placement renders
	// as a placeholder.
	Disabled bool `json:"disabled" yaml:"disabled" mapstructure:"disabled"`
}

// CacheConfig holds settings for the image cache.
type CacheConfig struct {
	// TTLDays is how long an entry lives (default 7).
	TTLDays int `json:"ttl_days" yaml:"ttl_days" mapstructure:"ttl_days"`

	// MaxEntries is the entry-count ceiling (default 500).
	MaxEntries int `json:"max_entries" yaml:"max_entries" mapstructure:"max_entries"`

	// SweepInterval is how often the background sweeper runs (default 1h).
	SweepInterval time.Duration `json:"sweep_interval" yaml:"sweep_interval" mapstructure:"sweep_interval"`

	// Persist stores entries in the library database between runs.
	Persist bool `json:"persist" yaml:"persist" mapstructure:"persist"`
}

// TTL returns the entry lifetime as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLDays) * 24 * time.Hour
}

// CompressionConfig holds settings for the compression stage.
type CompressionConfig struct {
	// Quality is the JPEG quality, 1-100 (default 80).
	Quality int `json:"quality" yaml:"quality" mapstructure:"quality"`

	// MinKeep is the number of real images budget reduction never drops
	// below (default 1).
	MinKeep int `json:"min_keep" yaml:"min_keep" mapstructure:"min_keep"`
}

// ValidationConfig holds settings for the plan validator.
type ValidationConfig struct {
	// AutoRepairThreshold is the largest error count that still triggers a
	// repair call (default 3).
	AutoRepairThreshold int `json:"auto_repair_threshold" yaml:"auto_repair_threshold" mapstructure:"auto_repair_threshold"`

	// MinDifferentiationProfiles is the number of learner profiles lesson
	// plans should address (default 2).
	MinDifferentiationProfiles int `json:"min_differentiation_profiles" yaml:"min_differentiation_profiles" mapstructure:"min_differentiation_profiles"`

	// NoviceTeacher requires a coaching script on lesson plans.
	NoviceTeacher bool `json:"novice_teacher" yaml:"novice_teacher" mapstructure:"novice_teacher"`

	// Repair enables the single AI-assisted repair pass.
	Repair bool `json:"repair" yaml:"repair" mapstructure:"repair"`
}

// LibraryConfig holds settings for the document library.
type LibraryConfig struct {
	// Path is the SQLite database file (default "library/worksheets.db").
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Text        TextConfig        `json:"text" yaml:"text" mapstructure:"text"`
	Image       ImageConfig       `json:"image" yaml:"image" mapstructure:"image"`
	Cache       CacheConfig       `json:"cache" yaml:"cache" mapstructure:"cache"`
	Compression CompressionConfig `json:"compression" yaml:"compression" mapstructure:"compression"`
	Validation  ValidationConfig  `json:"validation" yaml:"validation" mapstructure:"validation"`
	Library     LibraryConfig     `json:"library" yaml:"library" mapstructure:"library"`

	// OutputDir is where generated HTML files are written (default "output").
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`
}

// DefaultPipelineConfig returns the configuration used when no file or flag
// overrides a value.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Text: TextConfig{
			HTTPConfig: HTTPConfig{Timeout: 120 * time.Second, UserAgent: "worksheet-engine/0.1"},
			Backend:    TextBackendClaude,
			Model:      "claude-sonnet-4-5-20250929",
			MaxTokens:  4096,
			MaxRetries: 3,
		},
		Image: ImageConfig{
			HTTPConfig: HTTPConfig{Timeout: 90 * time.Second, UserAgent: "worksheet-engine/0.1"},
			Model:      "gpt-image-1",
			MaxRetries: 2,
			RetryDelay: 2 * time.Second,
		},
		Cache: CacheConfig{
			TTLDays:       7,
			MaxEntries:    500,
			SweepInterval: time.Hour,
			Persist:       true,
		},
		Compression: CompressionConfig{Quality: 80, MinKeep: 1},
		Validation: ValidationConfig{
			AutoRepairThreshold:        3,
			MinDifferentiationProfiles: 2,
			Repair:                     true,
		},
		Library:   LibraryConfig{Path: "library/worksheets.db"},
		OutputDir: "output",
	}
}
