// Chat HTTP handlers
package handler

import (
	"log/slog"
	"net/http"

	"github.com/archivebot/archivebot/pkg/models"
	"github.com/archivebot/archivebot/pkg/rag"
	"github.com/archivebot/archivebot/pkg/service"
	"github.com/archivebot/archivebot/pkg/utils"
	"github.com/gin-gonic/gin"
)

// ChatHandler handles chat requests against the archive.
type ChatHandler struct {
	orchestrator *rag.Orchestrator
	history      *service.HistoryService
	logger       *slog.Logger
}

// NewChatHandler creates a new chat handler. history may be nil; chat then
// runs stateless with caller-supplied history only.
func NewChatHandler(orchestrator *rag.Orchestrator, history *service.HistoryService) *ChatHandler {
	return &ChatHandler{
		orchestrator: orchestrator,
		history:      history,
		logger:       utils.GetLogger(),
	}
}

// RegisterRoutes registers chat routes
func (h *ChatHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/chat", h.Chat)
}

// Chat answers one message.
// POST /api/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	// Resolve the conversation and backfill history from storage when the
	// caller did not supply any.
	if h.history != nil {
		conversation, err := h.history.EnsureConversation(ctx, req.ConversationID, req.Message)
		if err != nil {
			if err == service.ErrConversationNotFound {
				c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		if req.ConversationID != "" && len(req.History) == 0 {
			history, roles, err := h.history.HistoryForPrompt(ctx, conversation.ID, 0)
			if err != nil {
				h.logger.Warn("Failed to load conversation history", "error", err, "conversation", conversation.ID)
			} else {
				req.History = history
				req.HistoryRoles = roles
			}
		}

		req.ConversationID = conversation.ID
	}

	resp := h.orchestrator.Chat(ctx, &req)

	// Persistence failures must not lose the generated answer.
	if h.history != nil && resp.ConversationID != "" {
		if _, err := h.history.AppendTurn(ctx, resp.ConversationID, models.RoleUser, req.Message, resp.Intent, 0); err != nil {
			h.logger.Warn("Failed to store user turn", "error", err)
		}
		if _, err := h.history.AppendTurn(ctx, resp.ConversationID, models.RoleAssistant, resp.Message, resp.Intent, resp.Sources); err != nil {
			h.logger.Warn("Failed to store assistant turn", "error", err)
		}
	}

	c.JSON(http.StatusOK, resp)
}
