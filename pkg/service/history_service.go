// Conversation history service backed by the relational store
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/archivebot/archivebot/pkg/db"
	"github.com/archivebot/archivebot/pkg/models"
	"github.com/archivebot/archivebot/pkg/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
)

// titleLimit caps auto-generated conversation titles.
const titleLimit = 60

// defaultHistoryTurns is how many prior turns are fed back into the chat
// pipeline when the caller does not supply history explicitly.
const defaultHistoryTurns = 10

// HistoryService persists conversations and their turns.
type HistoryService struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewHistoryService creates the history service.
func NewHistoryService(database *gorm.DB) *HistoryService {
	return &HistoryService{
		db:     database,
		logger: utils.GetLogger(),
	}
}

// ========== Conversation Management ==========

// CreateConversation creates a new conversation. An empty title gets the
// default.
func (s *HistoryService) CreateConversation(ctx context.Context, title string) (*db.Conversation, error) {
	if title == "" {
		title = "New Chat"
	}

	conversation := &db.Conversation{
		ID:        uuid.New().String(),
		Title:     title,
		Status:    db.ConversationStatusActive,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := s.db.WithContext(ctx).Create(conversation).Error; err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	return conversation, nil
}

// GetConversation retrieves a conversation by ID.
func (s *HistoryService) GetConversation(ctx context.Context, id string) (*db.Conversation, error) {
	var conversation db.Conversation
	if err := s.db.WithContext(ctx).First(&conversation, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return &conversation, nil
}

// ListConversations returns conversations newest-first.
func (s *HistoryService) ListConversations(ctx context.Context, status string, limit, offset int) ([]db.Conversation, error) {
	query := s.db.WithContext(ctx).Model(&db.Conversation{}).Order("updated_at DESC")

	if status != "" {
		query = query.Where("status = ?", status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var conversations []db.Conversation
	if err := query.Find(&conversations).Error; err != nil {
		return nil, err
	}
	return conversations, nil
}

// RenameConversation updates a conversation title.
func (s *HistoryService) RenameConversation(ctx context.Context, id, title string) (*db.Conversation, error) {
	conversation, err := s.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"title":      title,
		"updated_at": time.Now(),
	}
	if err := s.db.WithContext(ctx).Model(conversation).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to rename conversation: %w", err)
	}

	return s.GetConversation(ctx, id)
}

// ArchiveConversation marks a conversation archived without deleting turns.
func (s *HistoryService) ArchiveConversation(ctx context.Context, id string) error {
	conversation, err := s.GetConversation(ctx, id)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Model(conversation).Updates(map[string]interface{}{
		"status":     db.ConversationStatusArchived,
		"updated_at": time.Now(),
	}).Error
}

// DeleteConversation removes a conversation and all its turns.
func (s *HistoryService) DeleteConversation(ctx context.Context, id string) error {
	if _, err := s.GetConversation(ctx, id); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&db.ConversationMessage{}, "conversation_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&db.Conversation{}, "id = ?", id).Error
	})
}

// ========== Turn Management ==========

// AppendTurn stores one role-tagged turn and bumps the conversation's
// updated_at so listing stays recency-ordered.
func (s *HistoryService) AppendTurn(ctx context.Context, conversationID, role, content string, intent models.ChatIntent, sourceCount int) (*db.ConversationMessage, error) {
	if _, err := s.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}

	message := &db.ConversationMessage{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Intent:         string(intent),
		SourceCount:    sourceCount,
		CreatedAt:      time.Now(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return err
		}
		return tx.Model(&db.Conversation{}).Where("id = ?", conversationID).
			Update("updated_at", time.Now()).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append turn: %w", err)
	}

	return message, nil
}

// GetTurns returns the turns of a conversation in chronological order.
func (s *HistoryService) GetTurns(ctx context.Context, conversationID string, limit int) ([]db.ConversationMessage, error) {
	if _, err := s.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var turns []db.ConversationMessage
	if err := query.Find(&turns).Error; err != nil {
		return nil, err
	}
	return turns, nil
}

// HistoryForPrompt returns the newest prior turns as flat content and role
// slices suitable for the chat pipeline, oldest first. System turns are
// skipped; the pipeline adds its own system prompt.
func (s *HistoryService) HistoryForPrompt(ctx context.Context, conversationID string, turns int) ([]string, []string, error) {
	if turns <= 0 {
		turns = defaultHistoryTurns
	}

	if _, err := s.GetConversation(ctx, conversationID); err != nil {
		return nil, nil, err
	}

	var recent []db.ConversationMessage
	err := s.db.WithContext(ctx).
		Where("conversation_id = ? AND role <> ?", conversationID, models.RoleSystem).
		Order("created_at DESC").
		Limit(turns).
		Find(&recent).Error
	if err != nil {
		return nil, nil, err
	}

	history := make([]string, 0, len(recent))
	roles := make([]string, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		history = append(history, recent[i].Content)
		roles = append(roles, recent[i].Role)
	}

	return history, roles, nil
}

// EnsureConversation resolves the conversation for one chat exchange: an
// empty ID creates a fresh conversation titled after the first message.
func (s *HistoryService) EnsureConversation(ctx context.Context, id, firstMessage string) (*db.Conversation, error) {
	if id != "" {
		return s.GetConversation(ctx, id)
	}

	title := firstMessage
	if len(title) > titleLimit {
		title = title[:titleLimit] + "..."
	}
	return s.CreateConversation(ctx, title)
}
