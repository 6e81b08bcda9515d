package app

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Explicit cfg values (flags) take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
    if cfg == nil { return }

    setString := func(dst *string, keys ...string) {
        if strings.TrimSpace(*dst) != "" { return }
        for _, k := range keys {
            if v := strings.TrimSpace(os.Getenv(k)); v != "" {
                *dst = v
                return
            }
        }
    }
    setString(&cfg.OutputDir, "OUTPUT_DIR")
    setString(&cfg.LLMProvider, "LLM_PROVIDER")
    setString(&cfg.LLMBaseURL, "LLM_BASE_URL", "OPENAI_BASE_URL")
    setString(&cfg.LLMModel, "LLM_MODEL")
    setString(&cfg.LLMAPIKey, "OPENAI_API_KEY", "LLM_API_KEY")
    setString(&cfg.SystemPrompt, "LLM_SYSTEM_PROMPT")
    setString(&cfg.VertexProject, "VERTEX_PROJECT", "GOOGLE_CLOUD_PROJECT")
    setString(&cfg.VertexLocation, "VERTEX_LOCATION", "GOOGLE_CLOUD_REGION")

    if len(cfg.Folders) == 0 {
        cfg.Folders = SplitList(os.Getenv("RFP_FOLDERS"))
    }

    setInt := func(dst *int, key string) {
        if *dst != 0 { return }
        if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil && n > 0 {
            *dst = n
        }
    }
    setInt(&cfg.LLMMaxTokens, "LLM_MAX_TOKENS")
    setInt(&cfg.LLMAttempts, "LLM_ATTEMPTS")
    setInt(&cfg.Workers, "RFP_WORKERS")

    if cfg.LLMTemperature == 0 {
        if f, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv("LLM_TEMPERATURE")), 64); err == nil && f > 0 {
            cfg.LLMTemperature = f
        }
    }

    setDuration := func(dst *time.Duration, key string) {
        if *dst != 0 { return }
        if s := os.Getenv(key); s != "" {
            if d, err := time.ParseDuration(s); err == nil {
                *dst = d
            }
        }
    }
    setDuration(&cfg.LLMRetryBackoff, "LLM_RETRY_BACKOFF")
    setDuration(&cfg.HTTPTimeout, "LLM_TIMEOUT")

    // Booleans
    setBool := func(dst *bool, envKey string) {
        if *dst { return }
        if s := strings.ToLower(strings.TrimSpace(os.Getenv(envKey))); s != "" {
            if s == "1" || s == "true" || s == "yes" || s == "on" {
                *dst = true
            }
        }
    }
    setBool(&cfg.Combine, "RFP_COMBINE")
    setBool(&cfg.XLSX, "RFP_XLSX")
    setBool(&cfg.SkipPDFPreflight, "PDF_SKIP_PREFLIGHT")
    setBool(&cfg.LLMInsecure, "LLM_INSECURE_SKIP_VERIFY")
    setBool(&cfg.DryRun, "DRY_RUN")
    setBool(&cfg.Verbose, "VERBOSE")
}
