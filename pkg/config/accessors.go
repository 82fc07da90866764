package config

import "os"

// Accessor methods apply defaults so callers never need nil checks.

func (c *AppConfig) Host() string {
	if c.Server.Host != nil {
		return *c.Server.Host
	}
	return DefaultHost
}

func (c *AppConfig) Port() int {
	if c.Server.Port != nil {
		return *c.Server.Port
	}
	return DefaultPort
}

// DatabasePath defaults to a file next to the config.
func (c *AppConfig) DatabasePath() string {
	if c.Database.Path != nil && *c.Database.Path != "" {
		return *c.Database.Path
	}
	configDir, _, err := DefaultPaths()
	if err != nil {
		return "archive.db"
	}
	return configDir + string(os.PathSeparator) + "archive.db"
}

func (c *AppConfig) LLMProvider() string {
	if c.LLM.Provider != nil && *c.LLM.Provider != "" {
		return *c.LLM.Provider
	}
	return DefaultLLMProvider
}

func (c *AppConfig) LLMBaseURL() string {
	if c.LLM.BaseURL != nil {
		return *c.LLM.BaseURL
	}
	return DefaultLLMBaseURL
}

func (c *AppConfig) LLMAPIKey() string {
	if c.LLM.APIKey != nil {
		return *c.LLM.APIKey
	}
	return ""
}

func (c *AppConfig) LLMModel() string {
	if c.LLM.Model != nil && *c.LLM.Model != "" {
		return *c.LLM.Model
	}
	return DefaultLLMModel
}

// MockMode defaults to true so a fresh checkout works without a model server.
func (c *AppConfig) MockMode() bool {
	if c.LLM.MockMode != nil {
		return *c.LLM.MockMode
	}
	return true
}

func (c *AppConfig) MaxTokens() int {
	if c.LLM.MaxTokens != nil {
		return *c.LLM.MaxTokens
	}
	return DefaultMaxTokens
}

func (c *AppConfig) ContextWindow() int {
	if c.LLM.ContextWindow != nil {
		return *c.LLM.ContextWindow
	}
	return DefaultContextWindow
}

func (c *AppConfig) TimeoutMs() int {
	if c.LLM.TimeoutMs != nil && *c.LLM.TimeoutMs > 0 {
		return *c.LLM.TimeoutMs
	}
	return DefaultTimeoutMs
}

func (c *AppConfig) VectorEnabled() bool {
	if c.Vector.Enabled != nil {
		return *c.Vector.Enabled
	}
	return true
}

// VectorPath defaults to a directory next to the config. Empty means
// in-memory only.
func (c *AppConfig) VectorPath() string {
	if c.Vector.Path != nil {
		return *c.Vector.Path
	}
	configDir, _, err := DefaultPaths()
	if err != nil {
		return ""
	}
	return configDir + string(os.PathSeparator) + "vectors"
}

func (c *AppConfig) EmbeddingProvider() string {
	if c.Vector.EmbeddingProvider != nil && *c.Vector.EmbeddingProvider != "" {
		return *c.Vector.EmbeddingProvider
	}
	return DefaultEmbedProvider
}

func (c *AppConfig) EmbeddingModel() string {
	if c.Vector.EmbeddingModel != nil && *c.Vector.EmbeddingModel != "" {
		return *c.Vector.EmbeddingModel
	}
	return DefaultEmbedModel
}

func (c *AppConfig) OllamaURL() string {
	if c.Vector.OllamaURL != nil && *c.Vector.OllamaURL != "" {
		return *c.Vector.OllamaURL
	}
	return DefaultOllamaURL
}

// OpenAIAPIKey is the key used for OpenAI embeddings; it falls back to the
// LLM key and then the conventional environment variable.
func (c *AppConfig) OpenAIAPIKey() string {
	if k := c.LLMAPIKey(); k != "" {
		return k
	}
	return os.Getenv("OPENAI_API_KEY")
}

func ptr[T any](v T) *T {
	return &v
}
