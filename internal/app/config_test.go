package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigFile_YAMLAndJSON(t *testing.T) {
	dir := t.TempDir()
	y := filepath.Join(dir, "rfp.yaml")
	yml := "output: out\nfolders: [bidA, bidB]\ncombine: true\nworkers: 3\nllm:\n  provider: vertex\n  model: gemini-1.5-pro\n  maxTokens: 4096\n  retryBackoff: 3s\nvertex:\n  project: acme\n  location: us-central1\n"
	if err := os.WriteFile(y, []byte(yml), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	fc, err := LoadConfigFile(y)
	if err != nil {
		t.Fatalf("LoadConfigFile yaml: %v", err)
	}
	if fc.Output != "out" || len(fc.Folders) != 2 || !fc.Combine || fc.Workers != 3 {
		t.Fatalf("unexpected top-level values: %+v", fc)
	}
	if fc.LLM.Provider != "vertex" || fc.LLM.MaxTokens != 4096 || fc.LLM.RetryBackoff != 3*time.Second {
		t.Fatalf("unexpected llm values: %+v", fc.LLM)
	}
	if fc.Vertex.Project != "acme" || fc.Vertex.Location != "us-central1" {
		t.Fatalf("unexpected vertex values: %+v", fc.Vertex)
	}

	j := filepath.Join(dir, "rfp.json")
	if err := os.WriteFile(j, []byte(`{"output":"out2","llm":{"model":"gpt-4o","attempts":2}}`), 0o644); err != nil {
		t.Fatalf("write json: %v", err)
	}
	fc, err = LoadConfigFile(j)
	if err != nil {
		t.Fatalf("LoadConfigFile json: %v", err)
	}
	if fc.Output != "out2" || fc.LLM.Model != "gpt-4o" || fc.LLM.Attempts != 2 {
		t.Fatalf("unexpected json values: %+v", fc)
	}

	bad := filepath.Join(dir, "rfp.yml")
	if err := os.WriteFile(bad, []byte("folders: [unterminated"), 0o644); err != nil {
		t.Fatalf("write bad: %v", err)
	}
	if _, err := LoadConfigFile(bad); err == nil {
		t.Fatalf("expected parse error")
	}
}

// Precedence: flags > env > file > defaults.
func TestConfigPrecedence(t *testing.T) {
	t.Setenv("LLM_MODEL", "env-model")
	t.Setenv("LLM_MAX_TOKENS", "")
	t.Setenv("RFP_WORKERS", "")
	t.Setenv("LLM_ATTEMPTS", "")
	t.Setenv("LLM_TEMPERATURE", "")
	t.Setenv("RFP_FOLDERS", "")

	var fc FileConfig
	fc.LLM.Model = "file-model"
	fc.LLM.MaxTokens = 3000
	fc.Workers = 2

	cfg := Config{Workers: 5} // as if -workers=5 was passed
	ApplyEnvToConfig(&cfg)
	ApplyFileConfig(&cfg, fc)
	ApplyDefaults(&cfg)

	if cfg.Workers != 5 {
		t.Fatalf("flag should win, Workers=%d", cfg.Workers)
	}
	if cfg.LLMModel != "env-model" {
		t.Fatalf("env should beat file, LLMModel=%q", cfg.LLMModel)
	}
	if cfg.LLMMaxTokens != 3000 {
		t.Fatalf("file should beat default, LLMMaxTokens=%d", cfg.LLMMaxTokens)
	}
	if cfg.LLMAttempts != DefaultAttempts || cfg.LLMTemperature != DefaultTemperature {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if len(cfg.Folders) != 2 || cfg.Folders[0] != "bid1" || cfg.Folders[1] != "bid2" {
		t.Fatalf("default folders %v", cfg.Folders)
	}
}

func TestValidateConfig(t *testing.T) {
	base := Config{OutputDir: "out"}
	ApplyDefaults(&base)

	cases := []struct {
		name  string
		edit  func(*Config)
		field string
	}{
		{"missing key", func(c *Config) {}, "llm.key"},
		{"missing output", func(c *Config) { c.OutputDir = " "; c.LLMAPIKey = "k" }, "output_dir"},
		{"bad provider", func(c *Config) { c.LLMProvider = "bard" }, "llm.provider"},
		{"vertex without project", func(c *Config) { c.LLMProvider = ProviderVertex }, "vertex"},
		{"negative workers", func(c *Config) { c.LLMAPIKey = "k"; c.Workers = -1 }, "limits"},
		{"temperature", func(c *Config) { c.LLMAPIKey = "k"; c.LLMTemperature = 3 }, "llm.temperature"},
	}
	for _, tc := range cases {
		cfg := base
		tc.edit(&cfg)
		err := ValidateConfig(cfg)
		var sce *StartupConfigError
		if !errors.As(err, &sce) {
			t.Fatalf("%s: expected StartupConfigError, got %v", tc.name, err)
		}
		if sce.Field != tc.field {
			t.Fatalf("%s: field=%q, want %q", tc.name, sce.Field, tc.field)
		}
	}

	ok := []func(*Config){
		func(c *Config) { c.LLMAPIKey = "sk-test" },
		func(c *Config) { c.LLMBaseURL = "http://localhost:8080/v1" },
		func(c *Config) { c.DryRun = true },
		func(c *Config) { c.LLMProvider = ProviderVertex; c.VertexProject = "p"; c.VertexLocation = "us-central1" },
	}
	for i, edit := range ok {
		cfg := base
		edit(&cfg)
		if err := ValidateConfig(cfg); err != nil {
			t.Fatalf("case %d: unexpected error %v", i, err)
		}
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" bid1 , ,bid2,")
	if len(got) != 2 || got[0] != "bid1" || got[1] != "bid2" {
		t.Fatalf("SplitList=%v", got)
	}
	if len(SplitList("")) != 0 {
		t.Fatalf("empty input should yield no entries")
	}
}
