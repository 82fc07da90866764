package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is read from a YAML file under the user's home directory.
// All fields are optional; defaults are applied by the accessor methods.
//
// Example (~/.archivebot/config.yaml):
//
// server:
//   host: 127.0.0.1
//   port: 8088
// database:
//   path: /var/lib/archivebot/archive.db
// llm:
//   provider: ollama
//   base_url: http://localhost:11434
//   model: llama3
//   mock_mode: true
//   max_tokens: 2048
//   context_window: 8192
//   timeout_ms: 60000
// vector:
//   enabled: true
//   path: /var/lib/archivebot/vectors
//   embedding_provider: ollama
//   embedding_model: nomic-embed-text
//
// Notes:
// - If the config file does not exist, Load returns defaults without error.
// - If the config file exists but cannot be parsed, Load returns an error.
// - Validate runs once at startup; failures there are fatal because the
//   service cannot operate without a coherent model configuration.

type AppConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	LLM      LLMConfig      `yaml:"llm"`
	Vector   VectorConfig   `yaml:"vector"`
}

type ServerConfig struct {
	Host *string `yaml:"host"`
	Port *int    `yaml:"port"`
}

type DatabaseConfig struct {
	Path *string `yaml:"path"`
}

// LLMConfig configures the chat-completion endpoint.
type LLMConfig struct {
	Provider      *string `yaml:"provider"` // ollama or openai
	BaseURL       *string `yaml:"base_url"`
	APIKey        *string `yaml:"api_key"`
	Model         *string `yaml:"model"`
	MockMode      *bool   `yaml:"mock_mode"`
	MaxTokens     *int    `yaml:"max_tokens"`     // response budget per completion
	ContextWindow *int    `yaml:"context_window"` // model context window in tokens
	TimeoutMs     *int    `yaml:"timeout_ms"`
}

// VectorConfig configures the embedded vector store used for retrieval.
type VectorConfig struct {
	Enabled           *bool   `yaml:"enabled"`
	Path              *string `yaml:"path"`
	EmbeddingProvider *string `yaml:"embedding_provider"` // openai or ollama
	EmbeddingModel    *string `yaml:"embedding_model"`
	OllamaURL         *string `yaml:"ollama_url"`
}

const (
	DefaultHost          = "127.0.0.1"
	DefaultPort          = 8088
	DefaultLLMProvider   = "ollama"
	DefaultLLMBaseURL    = "http://localhost:11434"
	DefaultLLMModel      = "llama3"
	DefaultMaxTokens     = 2048
	DefaultContextWindow = 8192
	DefaultTimeoutMs     = 60000
	DefaultEmbedProvider = "ollama"
	DefaultEmbedModel    = "nomic-embed-text"
	DefaultOllamaURL     = "http://localhost:11434"
)

// DefaultPaths returns the config dir and config file path.
func DefaultPaths() (configDir string, configFile string, err error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", "", fmt.Errorf("get user home dir: %w", err)
	}
	configDir = filepath.Join(home, ".archivebot")
	configFile = filepath.Join(configDir, "config.yaml")
	return configDir, configFile, nil
}

// Load reads ~/.archivebot/config.yaml.
// If the file doesn't exist, it returns a default config and nil error.
func Load() (*AppConfig, string, error) {
	_, configFile, err := DefaultPaths()
	if err != nil {
		return nil, "", err
	}

	cfg := &AppConfig{}

	b, err := os.ReadFile(configFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg.applyEnvOverrides()
			return cfg, configFile, nil
		}
		return nil, "", fmt.Errorf("read config file %s: %w", configFile, err)
	}

	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, "", fmt.Errorf("parse yaml config %s: %w", configFile, err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	return cfg, configFile, nil
}

// EnsureDefaultConfig writes a default config file if it doesn't already
// exist. It is safe to call on startup.
func EnsureDefaultConfig() (string, error) {
	configDir, configFile, err := DefaultPaths()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configFile); err == nil {
		return configFile, nil
	}

	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("create config dir %s: %w", configDir, err)
	}

	defaultCfg := AppConfig{
		Server: ServerConfig{Host: ptr(DefaultHost), Port: ptr(DefaultPort)},
		LLM: LLMConfig{
			Provider: ptr(DefaultLLMProvider),
			BaseURL:  ptr(DefaultLLMBaseURL),
			Model:    ptr(DefaultLLMModel),
			MockMode: ptr(true),
		},
	}
	b, err := yaml.Marshal(&defaultCfg)
	if err != nil {
		return "", fmt.Errorf("marshal default config: %w", err)
	}

	if err := os.WriteFile(configFile, b, 0o600); err != nil {
		return "", fmt.Errorf("write default config file %s: %w", configFile, err)
	}

	return configFile, nil
}

// applyEnvOverrides layers environment variables over file values. The API
// key in particular should not live in a config file.
func (c *AppConfig) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv("ARCHIVEBOT_LLM_BASE_URL")); v != "" {
		c.LLM.BaseURL = &v
	}
	if v := strings.TrimSpace(os.Getenv("ARCHIVEBOT_LLM_API_KEY")); v != "" {
		c.LLM.APIKey = &v
	}
	if v := strings.TrimSpace(os.Getenv("ARCHIVEBOT_LLM_MODEL")); v != "" {
		c.LLM.Model = &v
	}
	if v := strings.TrimSpace(os.Getenv("ARCHIVEBOT_LLM_MOCK")); v != "" {
		mock := v == "true" || v == "1"
		c.LLM.MockMode = &mock
	}
}

// Validate checks the parts of the config that would otherwise fail at an
// arbitrary point mid-request. This is the fatal startup check.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.Host()) == "" {
		return errors.New("server.host must not be empty")
	}
	if p := c.Port(); p < 1 || p > 65535 {
		return fmt.Errorf("server.port %d out of range", p)
	}
	switch c.LLMProvider() {
	case "ollama", "openai":
	default:
		return fmt.Errorf("llm.provider %q is not supported (ollama, openai)", c.LLMProvider())
	}
	if !c.MockMode() && strings.TrimSpace(c.LLMBaseURL()) == "" {
		return errors.New("llm.base_url must be set when mock_mode is off")
	}
	if c.MaxTokens() <= 0 {
		return fmt.Errorf("llm.max_tokens %d must be positive", c.MaxTokens())
	}
	if c.ContextWindow() <= c.MaxTokens() {
		return fmt.Errorf("llm.context_window %d must exceed llm.max_tokens %d", c.ContextWindow(), c.MaxTokens())
	}
	if c.VectorEnabled() {
		switch c.EmbeddingProvider() {
		case "ollama":
		case "openai":
			if strings.TrimSpace(c.OpenAIAPIKey()) == "" {
				return errors.New("vector.embedding_provider openai requires an API key")
			}
		default:
			return fmt.Errorf("vector.embedding_provider %q is not supported (ollama, openai)", c.EmbeddingProvider())
		}
	}
	return nil
}
