package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, path, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !strings.HasSuffix(path, filepath.Join(".archivebot", "config.yaml")) {
		t.Fatalf("config path = %q", path)
	}

	if cfg.Host() != DefaultHost || cfg.Port() != DefaultPort {
		t.Fatalf("server defaults = %s:%d", cfg.Host(), cfg.Port())
	}
	if cfg.LLMProvider() != DefaultLLMProvider || cfg.LLMModel() != DefaultLLMModel {
		t.Fatalf("llm defaults = %s/%s", cfg.LLMProvider(), cfg.LLMModel())
	}
	if !cfg.MockMode() {
		t.Fatalf("mock mode should default on")
	}
	if cfg.MaxTokens() != DefaultMaxTokens || cfg.ContextWindow() != DefaultContextWindow {
		t.Fatalf("token defaults = %d/%d", cfg.MaxTokens(), cfg.ContextWindow())
	}
}

func TestLoadParsesFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".archivebot")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := `
server:
  host: 0.0.0.0
  port: 9000
llm:
  provider: openai
  base_url: https://api.example.com/v1
  api_key: sk-test
  model: gpt-4o-mini
  mock_mode: false
  max_tokens: 1024
  context_window: 4096
vector:
  enabled: false
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Host() != "0.0.0.0" || cfg.Port() != 9000 {
		t.Fatalf("server = %s:%d", cfg.Host(), cfg.Port())
	}
	if cfg.LLMProvider() != "openai" || cfg.LLMModel() != "gpt-4o-mini" {
		t.Fatalf("llm = %s/%s", cfg.LLMProvider(), cfg.LLMModel())
	}
	if cfg.MockMode() {
		t.Fatalf("mock mode should be off")
	}
	if cfg.VectorEnabled() {
		t.Fatalf("vector store should be off")
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".archivebot")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [not a map"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ARCHIVEBOT_LLM_BASE_URL", "http://llm.internal:8080")
	t.Setenv("ARCHIVEBOT_LLM_MODEL", "mistral")
	t.Setenv("ARCHIVEBOT_LLM_MOCK", "false")

	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLMBaseURL() != "http://llm.internal:8080" {
		t.Fatalf("base url = %q", cfg.LLMBaseURL())
	}
	if cfg.LLMModel() != "mistral" {
		t.Fatalf("model = %q", cfg.LLMModel())
	}
	if cfg.MockMode() {
		t.Fatalf("mock mode should be off via env")
	}
}

func TestEnsureDefaultConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path, err := EnsureDefaultConfig()
	if err != nil {
		t.Fatalf("EnsureDefaultConfig: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	// Second call must not overwrite.
	before, _ := os.ReadFile(path)
	if _, err := EnsureDefaultConfig(); err != nil {
		t.Fatalf("second EnsureDefaultConfig: %v", err)
	}
	after, _ := os.ReadFile(path)
	if string(before) != string(after) {
		t.Fatalf("existing config was rewritten")
	}

	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load after ensure: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(c *AppConfig)
		wantErr bool
	}{
		{"defaults pass", func(c *AppConfig) {}, false},
		{"bad port", func(c *AppConfig) { c.Server.Port = ptr(70000) }, true},
		{"bad provider", func(c *AppConfig) { c.LLM.Provider = ptr("bedrock") }, true},
		{"zero max tokens", func(c *AppConfig) { c.LLM.MaxTokens = ptr(0) }, true},
		{"window below budget", func(c *AppConfig) {
			c.LLM.MaxTokens = ptr(4096)
			c.LLM.ContextWindow = ptr(2048)
		}, true},
		{"live mode without base url", func(c *AppConfig) {
			c.LLM.MockMode = ptr(false)
			c.LLM.BaseURL = ptr("")
		}, true},
		{"bad embedding provider", func(c *AppConfig) {
			c.Vector.EmbeddingProvider = ptr("cohere")
		}, true},
		{"vector disabled skips embedding checks", func(c *AppConfig) {
			c.Vector.Enabled = ptr(false)
			c.Vector.EmbeddingProvider = ptr("cohere")
		}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &AppConfig{}
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateOpenAIEmbeddingsNeedKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	cfg := &AppConfig{}
	cfg.Vector.EmbeddingProvider = ptr("openai")
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error without API key")
	}

	cfg.LLM.APIKey = ptr("sk-test")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error with key: %v", err)
	}
}
