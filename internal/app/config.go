package app

import (
	"strings"
	"time"
)

// LLM providers.
const (
	ProviderOpenAI = "openai"
	ProviderVertex = "vertex"
)

// Defaults applied after flags, environment and config file.
var DefaultFolders = []string{"bid1", "bid2"}

const (
	DefaultProvider     = ProviderOpenAI
	DefaultModel        = "gpt-4o-mini"
	DefaultTemperature  = 0.3
	DefaultMaxTokens    = 2000
	DefaultAttempts     = 1
	DefaultRetryBackoff = 2 * time.Second
	DefaultWorkers      = 1
	DefaultHTTPTimeout  = 120 * time.Second
)

// Config holds runtime configuration for the application.
type Config struct {
	OutputDir string
	Folders   []string

	// Output
	Combine bool
	XLSX    bool

	// LLM
	LLMProvider     string
	LLMBaseURL      string
	LLMModel        string
	LLMAPIKey       string
	LLMTemperature  float64
	LLMMaxTokens    int
	LLMAttempts     int
	LLMRetryBackoff time.Duration
	SystemPrompt    string
	HTTPTimeout     time.Duration
	LLMInsecure     bool

	// Vertex AI
	VertexProject  string
	VertexLocation string

	// Behavior
	Workers          int
	SkipPDFPreflight bool
	DryRun           bool
	Verbose          bool
}

// ApplyDefaults fills every field still unset after flags, environment and
// config file were applied.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}
	if len(cfg.Folders) == 0 {
		cfg.Folders = append([]string{}, DefaultFolders...)
	}
	if strings.TrimSpace(cfg.LLMProvider) == "" {
		cfg.LLMProvider = DefaultProvider
	}
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	if strings.TrimSpace(cfg.LLMModel) == "" {
		cfg.LLMModel = DefaultModel
	}
	if cfg.LLMTemperature == 0 {
		cfg.LLMTemperature = DefaultTemperature
	}
	if cfg.LLMMaxTokens == 0 {
		cfg.LLMMaxTokens = DefaultMaxTokens
	}
	if cfg.LLMAttempts == 0 {
		cfg.LLMAttempts = DefaultAttempts
	}
	if cfg.LLMRetryBackoff == 0 {
		cfg.LLMRetryBackoff = DefaultRetryBackoff
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = DefaultHTTPTimeout
	}
	if cfg.Workers == 0 {
		cfg.Workers = DefaultWorkers
	}
}

// SplitList parses a comma-separated list, dropping blanks.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
