// Conversation management HTTP handlers
package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/archivebot/archivebot/pkg/service"
	"github.com/archivebot/archivebot/pkg/utils"
	"github.com/gin-gonic/gin"
)

// ConversationHandler handles conversation CRUD requests.
type ConversationHandler struct {
	history *service.HistoryService
	logger  *slog.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(history *service.HistoryService) *ConversationHandler {
	return &ConversationHandler{
		history: history,
		logger:  utils.GetLogger(),
	}
}

// RegisterRoutes registers conversation routes
func (h *ConversationHandler) RegisterRoutes(r *gin.RouterGroup) {
	conversations := r.Group("/conversations")
	{
		conversations.GET("", h.List)
		conversations.POST("", h.Create)
		conversations.GET(":id", h.Get)
		conversations.PUT(":id/title", h.Rename)
		conversations.PUT(":id/archive", h.Archive)
		conversations.DELETE(":id", h.Delete)
		conversations.GET(":id/messages", h.Messages)
	}
}

// List returns conversations newest-first.
// GET /api/conversations
func (h *ConversationHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	conversations, err := h.history.ListConversations(c.Request.Context(), c.Query("status"), limit, offset)
	if err != nil {
		h.logger.Error("Failed to list conversations", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list conversations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversations": conversations,
		"count":         len(conversations),
	})
}

// Create creates a new conversation.
// POST /api/conversations
func (h *ConversationHandler) Create(c *gin.Context) {
	var req struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	conversation, err := h.history.CreateConversation(c.Request.Context(), req.Title)
	if err != nil {
		h.logger.Error("Failed to create conversation", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create conversation"})
		return
	}

	c.JSON(http.StatusCreated, conversation)
}

// Get retrieves a single conversation.
// GET /api/conversations/:id
func (h *ConversationHandler) Get(c *gin.Context) {
	conversation, err := h.history.GetConversation(c.Request.Context(), c.Param("id"))
	if err != nil {
		if err == service.ErrConversationNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, conversation)
}

// Rename updates a conversation title.
// PUT /api/conversations/:id/title
func (h *ConversationHandler) Rename(c *gin.Context) {
	var req struct {
		Title string `json:"title" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	conversation, err := h.history.RenameConversation(c.Request.Context(), c.Param("id"), req.Title)
	if err != nil {
		if err == service.ErrConversationNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, conversation)
}

// Archive marks a conversation archived.
// PUT /api/conversations/:id/archive
func (h *ConversationHandler) Archive(c *gin.Context) {
	if err := h.history.ArchiveConversation(c.Request.Context(), c.Param("id")); err != nil {
		if err == service.ErrConversationNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Conversation archived"})
}

// Delete removes a conversation and its turns.
// DELETE /api/conversations/:id
func (h *ConversationHandler) Delete(c *gin.Context) {
	if err := h.history.DeleteConversation(c.Request.Context(), c.Param("id")); err != nil {
		if err == service.ErrConversationNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Conversation deleted"})
}

// Messages returns the turns of a conversation in chronological order.
// GET /api/conversations/:id/messages
func (h *ConversationHandler) Messages(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	turns, err := h.history.GetTurns(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		if err == service.ErrConversationNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": turns,
		"count":    len(turns),
	})
}
