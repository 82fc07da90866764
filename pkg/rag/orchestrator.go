// RAG orchestrator: classifies intent and runs the per-intent pipeline that
// ties retrieval, window fitting, prompt building, and the model client into
// one structured chat response.
package rag

import (
	"context"
	"log/slog"
	"time"

	"github.com/archivebot/archivebot/pkg/models"
	"github.com/archivebot/archivebot/pkg/utils"
)

// Retriever is the retrieval collaborator. Results must be relevance-sorted
// descending by score.
type Retriever interface {
	Search(ctx context.Context, query string, limit int, filters *models.SearchFilters) ([]models.SearchResult, error)
}

const (
	// Retrieval limits leave headroom for token-based trimming.
	searchRetrievalLimit    = 15
	summarizeRetrievalLimit = 30

	// reservedOverhead pads the response budget when fitting context, so
	// formatting around the completion never pushes past the window.
	reservedOverhead = 200

	tempSearch       = 0.7
	tempSummarize    = 0.3
	tempConversation = 0.8
	defaultTopP      = 0.95

	fallbackMessage = "I'm sorry, but I encountered an error while generating a response. Please try again later."
)

// Orchestrator runs one stateless pipeline per chat request. Concurrent
// requests share nothing but the collaborators, which manage their own
// synchronization.
type Orchestrator struct {
	retriever     Retriever
	client        CompletionClient
	maxTokens     int // response budget per completion
	contextWindow int // model context window
	logger        *slog.Logger
}

// NewOrchestrator wires the orchestrator with its collaborators and budget.
func NewOrchestrator(retriever Retriever, client CompletionClient, maxTokens, contextWindow int) *Orchestrator {
	return &Orchestrator{
		retriever:     retriever,
		client:        client,
		maxTokens:     maxTokens,
		contextWindow: contextWindow,
		logger:        utils.GetLogger(),
	}
}

// Chat classifies the message and runs the matching pipeline. Collaborator
// errors never escape: any failure produces the safe fallback response with
// a conversation intent, zero sources, and measured latency.
func (o *Orchestrator) Chat(ctx context.Context, req *models.ChatRequest) *models.ChatResponse {
	start := time.Now()

	intent := DetectIntent(req.Message)

	var (
		resp *models.ChatResponse
		err  error
	)
	switch intent {
	case models.IntentSearch:
		resp, err = o.handleSearch(ctx, req)
	case models.IntentSummarization:
		resp, err = o.handleSummarization(ctx, req)
	case models.IntentConversation:
		resp, err = o.handleConversation(ctx, req)
	}

	if err != nil {
		o.logger.Error("chat pipeline failed", "intent", intent, "error", err)
		return o.fallbackResponse(req, start)
	}

	if resp.Usage != nil && resp.Usage.LatencyMs == 0 {
		resp.Usage.LatencyMs = time.Since(start).Milliseconds()
	}

	o.logger.Info("chat response generated",
		"intent", resp.Intent,
		"sources", resp.Sources,
		"latency_ms", latencyOf(resp, start))

	return resp
}

// fallbackResponse is the safe default returned on any collaborator error.
func (o *Orchestrator) fallbackResponse(req *models.ChatRequest, start time.Time) *models.ChatResponse {
	return &models.ChatResponse{
		Message: fallbackMessage,
		Intent:  models.IntentConversation,
		Sources: 0,
		Usage: &models.Usage{
			LatencyMs: time.Since(start).Milliseconds(),
		},
		ConversationID: req.ConversationID,
	}
}

func latencyOf(resp *models.ChatResponse, start time.Time) int64 {
	if resp.Usage != nil && resp.Usage.LatencyMs > 0 {
		return resp.Usage.LatencyMs
	}
	return time.Since(start).Milliseconds()
}

// ========== Search pipeline ==========

func (o *Orchestrator) handleSearch(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error) {
	results, err := o.retriever.Search(ctx, req.Message, searchRetrievalLimit, searchFilters(req))
	if err != nil {
		return nil, &RetrievalError{Err: err}
	}

	items := make([]ContextItem, 0, len(results))
	for _, r := range results {
		md := make(models.Metadata, len(r.Metadata)+2)
		for k, v := range r.Metadata {
			md[k] = v
		}
		md["message_id"] = models.MetaString(r.ID)
		md["score"] = models.MetaNumber(r.Score)
		items = append(items, ContextItem{Text: r.Content, Metadata: md})
	}

	systemPrompt := RagSystemPrompt(true)
	fitted := FitContextItems(items, o.contextWindow, o.maxTokens+reservedOverhead, systemPrompt, req.Message)

	messages := BuildRagPrompt(req.Message, fitted, searchRetrievalLimit)

	result, err := o.client.GenerateCompletion(ctx, &models.CompletionRequest{
		Messages:       messages,
		Temperature:    tempSearch,
		TopP:           defaultTopP,
		MaxTokens:      o.maxTokens,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		return nil, err
	}

	// Citations cover exactly the post-fit items, in the order they were
	// sent to the model.
	citations := make([]models.Citation, 0, len(fitted))
	for i, item := range fitted {
		score := item.Metadata.Num("score")
		if score == 0 {
			score = 1 - float64(i)*0.05
		}
		citations = append(citations, models.Citation{
			Text:           item.Text,
			Metadata:       item.Metadata,
			RelevanceScore: score,
		})
	}
	result.Citations = citations

	return &models.ChatResponse{
		Message:        result.Content,
		Intent:         models.IntentSearch,
		Sources:        len(fitted),
		References:     referencesFromCitations(citations),
		Usage:          &result.Usage,
		ConversationID: req.ConversationID,
	}, nil
}

// ========== Summarization pipeline ==========

func (o *Orchestrator) handleSummarization(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error) {
	topic := summarizationTopic(req.Message)
	query := topic
	if query == "" {
		query = req.Message
	}

	results, err := o.retriever.Search(ctx, query, summarizeRetrievalLimit, searchFilters(req))
	if err != nil {
		return nil, &RetrievalError{Err: err}
	}

	// The summarizer works on raw result texts; per-sentence citations are
	// not meaningful for a summary, so references come straight from the
	// retrieval results below.
	texts := make([]string, 0, len(results))
	for _, r := range results {
		texts = append(texts, r.Content)
	}

	messages := BuildSummarizationPrompt(texts, topic)

	result, err := o.client.GenerateCompletion(ctx, &models.CompletionRequest{
		Messages:       messages,
		Temperature:    tempSummarize,
		TopP:           defaultTopP,
		MaxTokens:      o.maxTokens,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		return nil, err
	}

	references := make([]models.SourceReference, 0, len(results))
	for _, r := range results {
		references = append(references, models.SourceReference{
			Text:           r.Content,
			MessageID:      r.ID,
			Channel:        r.Metadata.Str("channel"),
			User:           r.Metadata.Str("user"),
			Timestamp:      r.Metadata.Str("timestamp"),
			RelevanceScore: r.Score,
		})
	}

	return &models.ChatResponse{
		Message:        result.Content,
		Intent:         models.IntentSummarization,
		Sources:        len(results),
		References:     references,
		Usage:          &result.Usage,
		ConversationID: req.ConversationID,
	}, nil
}

// ========== Conversation pipeline ==========

func (o *Orchestrator) handleConversation(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error) {
	history := historyMessages(req.History, req.HistoryRoles)

	messages := BuildConversationPrompt(req.Message, history)
	fitted := FitConversation(messages, o.contextWindow, o.maxTokens+reservedOverhead)

	result, err := o.client.GenerateCompletion(ctx, &models.CompletionRequest{
		Messages:       fitted,
		Temperature:    tempConversation,
		TopP:           defaultTopP,
		MaxTokens:      o.maxTokens,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		return nil, err
	}

	return &models.ChatResponse{
		Message:        result.Content,
		Intent:         models.IntentConversation,
		Sources:        0,
		Usage:          &result.Usage,
		ConversationID: req.ConversationID,
	}, nil
}

// historyMessages converts flat history turns into role-tagged messages.
// Explicit role tags are used when supplied and well-formed; otherwise role
// is inferred by position parity (even=user, odd=assistant), which assumes
// strict chronological alternation.
func historyMessages(history, roles []string) []models.Message {
	messages := make([]models.Message, 0, len(history))

	explicit := len(roles) == len(history) && len(roles) > 0
	for i, content := range history {
		role := models.RoleUser
		if explicit {
			switch roles[i] {
			case models.RoleUser, models.RoleAssistant:
				role = roles[i]
			default:
				explicit = false
			}
		}
		if !explicit && i%2 == 1 {
			role = models.RoleAssistant
		}
		messages = append(messages, models.Message{Role: role, Content: content})
	}

	return messages
}

func searchFilters(req *models.ChatRequest) *models.SearchFilters {
	if len(req.ChannelIDs) == 0 {
		return nil
	}
	return &models.SearchFilters{ChannelIDs: req.ChannelIDs}
}

func referencesFromCitations(citations []models.Citation) []models.SourceReference {
	references := make([]models.SourceReference, 0, len(citations))
	for _, c := range citations {
		references = append(references, models.SourceReference{
			Text:           c.Text,
			MessageID:      c.Metadata.Str("message_id"),
			Channel:        c.Metadata.Str("channel"),
			User:           c.Metadata.Str("user"),
			Timestamp:      c.Metadata.Str("timestamp"),
			RelevanceScore: c.RelevanceScore,
		})
	}
	return references
}
