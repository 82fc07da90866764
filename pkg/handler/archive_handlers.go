// Archive browsing, ingestion and search HTTP handlers
package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/archivebot/archivebot/pkg/models"
	"github.com/archivebot/archivebot/pkg/service"
	"github.com/archivebot/archivebot/pkg/utils"
	"github.com/gin-gonic/gin"
)

// ArchiveHandler serves the imported Slack archive.
type ArchiveHandler struct {
	archive   *service.ArchiveService
	retrieval *service.RetrievalService
	logger    *slog.Logger
}

// NewArchiveHandler creates a new archive handler.
func NewArchiveHandler(archive *service.ArchiveService, retrieval *service.RetrievalService) *ArchiveHandler {
	return &ArchiveHandler{
		archive:   archive,
		retrieval: retrieval,
		logger:    utils.GetLogger(),
	}
}

// RegisterRoutes registers archive routes
func (h *ArchiveHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/channels", h.ListChannels)
	r.GET("/channels/:id/messages", h.ChannelMessages)
	r.GET("/users", h.ListUsers)
	r.GET("/search", h.Search)
	r.POST("/archive/messages", h.Ingest)
	r.GET("/archive/stats", h.Stats)
}

// ListChannels lists imported channels.
// GET /api/channels
func (h *ArchiveHandler) ListChannels(c *gin.Context) {
	channels, err := h.archive.ListChannels(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list channels", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list channels"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"channels": channels,
		"count":    len(channels),
	})
}

// ListUsers lists known archive authors.
// GET /api/users
func (h *ArchiveHandler) ListUsers(c *gin.Context) {
	users, err := h.archive.ListUsers(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list users", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"count": len(users),
	})
}

// ChannelMessages returns one channel's messages.
// GET /api/channels/:id/messages
func (h *ArchiveHandler) ChannelMessages(c *gin.Context) {
	channelID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid channel id"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	messages, err := h.archive.ChannelMessages(c.Request.Context(), channelID, limit, offset)
	if err != nil {
		if err == service.ErrChannelNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"count":    len(messages),
	})
}

// Search runs a semantic query over the archive.
// GET /api/search?q=...&limit=...&channel_ids=1,2
func (h *ArchiveHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	var filters *models.SearchFilters
	if channels := c.Query("channel_ids"); channels != "" {
		ids := make([]int64, 0)
		for _, part := range strings.Split(channels, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid channel_ids filter"})
				return
			}
			ids = append(ids, id)
		}
		filters = &models.SearchFilters{ChannelIDs: ids}
	}

	results, err := h.retrieval.Search(c.Request.Context(), query, limit, filters)
	if err != nil {
		if err == service.ErrVectorStoreDisabled {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search is disabled"})
			return
		}
		h.logger.Error("Search failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
		return
	}

	c.JSON(http.StatusOK, models.SearchResponse{
		Results: results,
		Total:   len(results),
	})
}

// Ingest imports parsed archive data.
// POST /api/archive/messages
func (h *ArchiveHandler) Ingest(c *gin.Context) {
	var req service.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.archive.Ingest(c.Request.Context(), &req)
	if err != nil {
		h.logger.Error("Ingest failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Stats reports archive row counts and index size.
// GET /api/archive/stats
func (h *ArchiveHandler) Stats(c *gin.Context) {
	stats, err := h.archive.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}
