package app

import (
    "encoding/json"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema.
// Nested sections map naturally to flags/env.
type FileConfig struct {
    Output  string   `yaml:"output" json:"output"`
    Folders []string `yaml:"folders" json:"folders"`
    Combine bool     `yaml:"combine" json:"combine"`
    XLSX    bool     `yaml:"xlsx" json:"xlsx"`
    Workers int      `yaml:"workers" json:"workers"`
    DryRun  bool     `yaml:"dryRun" json:"dryRun"`
    Verbose bool     `yaml:"verbose" json:"verbose"`

    LLM struct {
        Provider     string        `yaml:"provider" json:"provider"`
        BaseURL      string        `yaml:"base" json:"base"`
        Model        string        `yaml:"model" json:"model"`
        APIKey       string        `yaml:"key" json:"key"`
        Temperature  float64       `yaml:"temperature" json:"temperature"`
        MaxTokens    int           `yaml:"maxTokens" json:"maxTokens"`
        Attempts     int           `yaml:"attempts" json:"attempts"`
        RetryBackoff time.Duration `yaml:"retryBackoff" json:"retryBackoff"`
        Timeout      time.Duration `yaml:"timeout" json:"timeout"`
        SystemPrompt string        `yaml:"systemPrompt" json:"systemPrompt"`
        Insecure     bool          `yaml:"insecure" json:"insecure"`
    } `yaml:"llm" json:"llm"`

    Vertex struct {
        Project  string `yaml:"project" json:"project"`
        Location string `yaml:"location" json:"location"`
    } `yaml:"vertex" json:"vertex"`

    PDF struct {
        SkipPreflight bool `yaml:"skipPreflight" json:"skipPreflight"`
    } `yaml:"pdf" json:"pdf"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
    var fc FileConfig
    b, err := os.ReadFile(path)
    if err != nil {
        return fc, err
    }
    switch ext := strings.ToLower(filepath.Ext(path)); ext {
    case ".yaml", ".yml":
        if err := yaml.Unmarshal(b, &fc); err != nil {
            return fc, fmt.Errorf("parse yaml: %w", err)
        }
    case ".json":
        if err := json.Unmarshal(b, &fc); err != nil {
            return fc, fmt.Errorf("parse json: %w", err)
        }
    default:
        // Try YAML then JSON
        if err := yaml.Unmarshal(b, &fc); err != nil {
            if jerr := json.Unmarshal(b, &fc); jerr != nil {
                return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
            }
        }
    }
    return fc, nil
}

// ApplyFileConfig overlays values from FileConfig into cfg for any fields that
// are still unset. Flags and environment are applied first, so the file only
// supplies what neither of them set.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
    if cfg == nil { return }

    if cfg.OutputDir == "" && fc.Output != "" { cfg.OutputDir = fc.Output }
    if len(cfg.Folders) == 0 && len(fc.Folders) > 0 { cfg.Folders = append([]string{}, fc.Folders...) }
    if !cfg.Combine && fc.Combine { cfg.Combine = true }
    if !cfg.XLSX && fc.XLSX { cfg.XLSX = true }
    if cfg.Workers == 0 && fc.Workers > 0 { cfg.Workers = fc.Workers }
    if !cfg.DryRun && fc.DryRun { cfg.DryRun = true }
    if !cfg.Verbose && fc.Verbose { cfg.Verbose = true }

    if cfg.LLMProvider == "" && fc.LLM.Provider != "" { cfg.LLMProvider = fc.LLM.Provider }
    if cfg.LLMBaseURL == "" && fc.LLM.BaseURL != "" { cfg.LLMBaseURL = fc.LLM.BaseURL }
    if cfg.LLMModel == "" && fc.LLM.Model != "" { cfg.LLMModel = fc.LLM.Model }
    if cfg.LLMAPIKey == "" && fc.LLM.APIKey != "" { cfg.LLMAPIKey = fc.LLM.APIKey }
    if cfg.LLMTemperature == 0 && fc.LLM.Temperature > 0 { cfg.LLMTemperature = fc.LLM.Temperature }
    if cfg.LLMMaxTokens == 0 && fc.LLM.MaxTokens > 0 { cfg.LLMMaxTokens = fc.LLM.MaxTokens }
    if cfg.LLMAttempts == 0 && fc.LLM.Attempts > 0 { cfg.LLMAttempts = fc.LLM.Attempts }
    if cfg.LLMRetryBackoff == 0 && fc.LLM.RetryBackoff > 0 { cfg.LLMRetryBackoff = fc.LLM.RetryBackoff }
    if cfg.HTTPTimeout == 0 && fc.LLM.Timeout > 0 { cfg.HTTPTimeout = fc.LLM.Timeout }
    if cfg.SystemPrompt == "" && fc.LLM.SystemPrompt != "" { cfg.SystemPrompt = fc.LLM.SystemPrompt }
    if !cfg.LLMInsecure && fc.LLM.Insecure { cfg.LLMInsecure = true }

    if cfg.VertexProject == "" && fc.Vertex.Project != "" { cfg.VertexProject = fc.Vertex.Project }
    if cfg.VertexLocation == "" && fc.Vertex.Location != "" { cfg.VertexLocation = fc.Vertex.Location }

    if !cfg.SkipPDFPreflight && fc.PDF.SkipPreflight { cfg.SkipPDFPreflight = true }
}

// StartupConfigError reports configuration that prevents any processing.
type StartupConfigError struct {
    Field  string
    Reason string
}

func (e *StartupConfigError) Error() string {
    return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// ValidateConfig checks required settings after defaults were applied.
// A dry run needs no model credentials.
func ValidateConfig(cfg Config) error {
    if trim(cfg.OutputDir) == "" {
        return &StartupConfigError{Field: "output_dir", Reason: "output directory is required"}
    }
    if len(cfg.Folders) == 0 {
        return &StartupConfigError{Field: "folders", Reason: "at least one input folder is required"}
    }
    if cfg.Workers < 0 || cfg.LLMMaxTokens < 0 || cfg.LLMAttempts < 0 {
        return &StartupConfigError{Field: "limits", Reason: "negative limits are not allowed"}
    }
    if cfg.LLMTemperature < 0 || cfg.LLMTemperature > 2 {
        return &StartupConfigError{Field: "llm.temperature", Reason: "must be between 0 and 2"}
    }
    switch cfg.LLMProvider {
    case ProviderOpenAI:
        if !cfg.DryRun && trim(cfg.LLMAPIKey) == "" && trim(cfg.LLMBaseURL) == "" {
            return &StartupConfigError{Field: "llm.key", Reason: "OPENAI_API_KEY is not set (or set LLM_API_KEY, or -llm.base for a local server)"}
        }
    case ProviderVertex:
        if !cfg.DryRun && (trim(cfg.VertexProject) == "" || trim(cfg.VertexLocation) == "") {
            return &StartupConfigError{Field: "vertex", Reason: "vertex.project and vertex.location are required"}
        }
    default:
        return &StartupConfigError{Field: "llm.provider", Reason: fmt.Sprintf("unknown provider %q", cfg.LLMProvider)}
    }
    return nil
}

func trim(s string) string { return strings.TrimSpace(s) }
