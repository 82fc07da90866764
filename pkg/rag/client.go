// Language model client: a thin adapter over an eino chat model, plus a
// deterministic mock for development and tests.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/archivebot/archivebot/pkg/models"
	"github.com/archivebot/archivebot/pkg/utils"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// CompletionClient issues one chat completion per call. Implementations do
// not retry; recovery is the orchestrator's concern.
type CompletionClient interface {
	GenerateCompletion(ctx context.Context, req *models.CompletionRequest) (*models.CompletionResult, error)
}

// ClientConfig configures the live client.
type ClientConfig struct {
	Provider string // ollama or openai
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// Client wraps an eino chat model behind the CompletionClient contract.
type Client struct {
	chatModel model.BaseChatModel
	provider  string
	modelName string
	logger    *slog.Logger
}

// NewClient creates the live client for the configured provider.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	var (
		chatModel model.BaseChatModel
		err       error
	)

	switch cfg.Provider {
	case "openai":
		chatModel, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("create OpenAI model: %w", err)
		}

	case "ollama":
		chatModel, err = ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("create Ollama model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}

	return &Client{
		chatModel: chatModel,
		provider:  cfg.Provider,
		modelName: cfg.Model,
		logger:    utils.GetLogger(),
	}, nil
}

// GenerateCompletion performs exactly one outbound call. Provider-reported
// usage is preferred; when absent, usage is estimated with the same token
// estimator the mock uses so both modes report comparable numbers.
func (c *Client) GenerateCompletion(ctx context.Context, req *models.CompletionRequest) (*models.CompletionResult, error) {
	start := time.Now()

	history := make([]*schema.Message, 0, len(req.Messages))
	for _, msg := range req.Messages {
		history = append(history, &schema.Message{
			Role:    schema.RoleType(msg.Role),
			Content: msg.Content,
		})
	}

	opts := make([]model.Option, 0, 3)
	if req.Temperature > 0 {
		opts = append(opts, model.WithTemperature(req.Temperature))
	}
	if req.TopP > 0 {
		opts = append(opts, model.WithTopP(req.TopP))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}

	resp, err := c.chatModel.Generate(ctx, history, opts...)
	if err != nil {
		return nil, &ProviderError{Provider: c.provider, Err: err}
	}

	latency := time.Since(start).Milliseconds()

	promptTokens := EstimateChatTokens(req.Messages)
	completionTokens := EstimateTokens(resp.Content)
	if resp.ResponseMeta != nil && resp.ResponseMeta.Usage != nil {
		promptTokens = resp.ResponseMeta.Usage.PromptTokens
		completionTokens = resp.ResponseMeta.Usage.CompletionTokens
	}

	c.logger.Debug("completion generated",
		"model", c.modelName,
		"prompt_tokens", promptTokens,
		"completion_tokens", completionTokens,
		"latency_ms", latency)

	return &models.CompletionResult{
		Content: resp.Content,
		Usage: models.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
			Model:            c.modelName,
			LatencyMs:        latency,
		},
		ConversationID: req.ConversationID,
	}, nil
}

// ========== Mock mode ==========

// mockLatencyMs is the simulated latency the mock reports. It does not
// actually sleep, keeping tests fast and deterministic.
const mockLatencyMs = 500

// mockEchoLimit bounds how much of the user message the mock echoes back.
const mockEchoLimit = 50

// MockClient is a deterministic stand-in used when no live model endpoint
// is configured. It estimates usage the same way the live path does so
// tests behave consistently across modes.
type MockClient struct {
	ModelName string
}

// NewMockClient creates the mock client. name defaults to "mock".
func NewMockClient(name string) *MockClient {
	if name == "" {
		name = "mock"
	}
	return &MockClient{ModelName: name}
}

// GenerateCompletion echoes a truncated form of the last user message.
func (m *MockClient) GenerateCompletion(ctx context.Context, req *models.CompletionRequest) (*models.CompletionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ProviderError{Provider: "mock", Err: err}
	}

	lastUser := ""
	for _, msg := range req.Messages {
		if msg.Role == models.RoleUser {
			lastUser = msg.Content
		}
	}
	if len(lastUser) > mockEchoLimit {
		lastUser = cutAtRuneBoundary(lastUser, mockEchoLimit) + "..."
	}

	content := fmt.Sprintf("This is a mock response to your query: %q\n\nConfigure a live model endpoint to get real answers.", lastUser)

	promptTokens := EstimateChatTokens(req.Messages)
	completionTokens := EstimateTokens(content)

	return &models.CompletionResult{
		Content: content,
		Usage: models.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
			Model:            m.ModelName,
			LatencyMs:        mockLatencyMs,
		},
		ConversationID: req.ConversationID,
	}, nil
}
