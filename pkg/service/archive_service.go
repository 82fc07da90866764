// Archive service - browsing and ingestion of imported Slack data
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/archivebot/archivebot/pkg/db"
	"github.com/archivebot/archivebot/pkg/utils"
	"gorm.io/gorm"
)

var (
	ErrChannelNotFound = errors.New("channel not found")
)

// IngestChannel is one channel record in an ingest request.
type IngestChannel struct {
	SlackChannelID string `json:"slack_channel_id" binding:"required"`
	Name           string `json:"name" binding:"required"`
	Purpose        string `json:"purpose,omitempty"`
	IsPrivate      bool   `json:"is_private,omitempty"`
}

// IngestUser is one author record in an ingest request.
type IngestUser struct {
	SlackUserID string `json:"slack_user_id" binding:"required"`
	Username    string `json:"username" binding:"required"`
	RealName    string `json:"real_name,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
}

// IngestMessage is one already-parsed message in an ingest request. Channel
// and user are referenced by their Slack IDs; both must be present in the
// same request or already imported.
type IngestMessage struct {
	SlackMessageID string    `json:"slack_message_id" binding:"required"`
	SlackChannelID string    `json:"slack_channel_id" binding:"required"`
	SlackUserID    string    `json:"slack_user_id" binding:"required"`
	Text           string    `json:"text"`
	Timestamp      time.Time `json:"timestamp"`
	ThreadTS       string    `json:"thread_ts,omitempty"`
	HasAttachments bool      `json:"has_attachments,omitempty"`
}

// IngestRequest is the bulk import payload.
type IngestRequest struct {
	Channels []IngestChannel `json:"channels,omitempty"`
	Users    []IngestUser    `json:"users,omitempty"`
	Messages []IngestMessage `json:"messages,omitempty"`
}

// IngestResult summarizes one bulk import.
type IngestResult struct {
	Channels int `json:"channels"`
	Users    int `json:"users"`
	Messages int `json:"messages"`
	Indexed  int `json:"indexed"`
	Skipped  int `json:"skipped"`
}

// ArchiveStats summarizes the archive for status reporting.
type ArchiveStats struct {
	Channels int64 `json:"channels"`
	Users    int64 `json:"users"`
	Messages int64 `json:"messages"`
	Indexed  int   `json:"indexed"`
}

// ArchiveService serves the imported Slack archive and feeds new messages
// into the vector index.
type ArchiveService struct {
	db        *gorm.DB
	retrieval *RetrievalService
	logger    *slog.Logger
}

// NewArchiveService creates the archive service. retrieval may be nil when
// the vector store is disabled; ingestion then skips indexing.
func NewArchiveService(database *gorm.DB, retrieval *RetrievalService) *ArchiveService {
	return &ArchiveService{
		db:        database,
		retrieval: retrieval,
		logger:    utils.GetLogger(),
	}
}

// ========== Browsing ==========

// ListChannels returns all imported channels ordered by name.
func (s *ArchiveService) ListChannels(ctx context.Context) ([]db.Channel, error) {
	var channels []db.Channel
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&channels).Error; err != nil {
		return nil, err
	}
	return channels, nil
}

// ListUsers returns all known archive authors ordered by username.
func (s *ArchiveService) ListUsers(ctx context.Context) ([]db.SlackUser, error) {
	var users []db.SlackUser
	if err := s.db.WithContext(ctx).Order("username ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// ChannelMessages returns one channel's messages in chronological order.
func (s *ArchiveService) ChannelMessages(ctx context.Context, channelID int64, limit, offset int) ([]db.ArchiveMessage, error) {
	var channel db.Channel
	if err := s.db.WithContext(ctx).First(&channel, "id = ?", channelID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChannelNotFound
		}
		return nil, err
	}

	query := s.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("timestamp ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var messages []db.ArchiveMessage
	if err := query.Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

// Stats reports archive row counts and the vector index size.
func (s *ArchiveService) Stats(ctx context.Context) (*ArchiveStats, error) {
	stats := &ArchiveStats{}

	if err := s.db.WithContext(ctx).Model(&db.Channel{}).Count(&stats.Channels).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&db.SlackUser{}).Count(&stats.Users).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&db.ArchiveMessage{}).Count(&stats.Messages).Error; err != nil {
		return nil, err
	}
	if s.retrieval != nil {
		stats.Indexed = s.retrieval.Count()
	}

	return stats, nil
}

// ========== Ingestion ==========

// Ingest imports already-parsed channels, users and messages. Records are
// upserted by their Slack IDs so re-importing an export is safe. Newly
// stored messages are embedded into the vector index when retrieval is
// enabled.
func (s *ArchiveService) Ingest(ctx context.Context, req *IngestRequest) (*IngestResult, error) {
	result := &IngestResult{}

	for _, c := range req.Channels {
		if err := s.upsertChannel(ctx, c); err != nil {
			return nil, fmt.Errorf("failed to import channel %s: %w", c.SlackChannelID, err)
		}
		result.Channels++
	}

	for _, u := range req.Users {
		if err := s.upsertUser(ctx, u); err != nil {
			return nil, fmt.Errorf("failed to import user %s: %w", u.SlackUserID, err)
		}
		result.Users++
	}

	docs := make([]ArchiveDocument, 0, len(req.Messages))
	for _, m := range req.Messages {
		doc, err := s.upsertMessage(ctx, m)
		if err != nil {
			s.logger.Warn("Skipping message", "error", err, "slack_message_id", m.SlackMessageID)
			result.Skipped++
			continue
		}
		result.Messages++
		if doc != nil {
			docs = append(docs, *doc)
		}
	}

	if s.retrieval != nil && s.retrieval.Enabled() && len(docs) > 0 {
		indexed, err := s.retrieval.Index(ctx, docs)
		if err != nil {
			return nil, fmt.Errorf("failed to index messages: %w", err)
		}
		result.Indexed = indexed
	}

	s.logger.Info("Archive import finished",
		"channels", result.Channels,
		"users", result.Users,
		"messages", result.Messages,
		"indexed", result.Indexed,
		"skipped", result.Skipped)

	return result, nil
}

func (s *ArchiveService) upsertChannel(ctx context.Context, c IngestChannel) error {
	var existing db.Channel
	err := s.db.WithContext(ctx).First(&existing, "slack_channel_id = ?", c.SlackChannelID).Error
	if err == nil {
		return s.db.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
			"name":       c.Name,
			"purpose":    c.Purpose,
			"is_private": c.IsPrivate,
			"updated_at": time.Now(),
		}).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	return s.db.WithContext(ctx).Create(&db.Channel{
		SlackChannelID: c.SlackChannelID,
		Name:           c.Name,
		Purpose:        c.Purpose,
		IsPrivate:      c.IsPrivate,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}).Error
}

func (s *ArchiveService) upsertUser(ctx context.Context, u IngestUser) error {
	var existing db.SlackUser
	err := s.db.WithContext(ctx).First(&existing, "slack_user_id = ?", u.SlackUserID).Error
	if err == nil {
		return s.db.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
			"username":   u.Username,
			"real_name":  u.RealName,
			"avatar":     u.Avatar,
			"updated_at": time.Now(),
		}).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	return s.db.WithContext(ctx).Create(&db.SlackUser{
		SlackUserID: u.SlackUserID,
		Username:    u.Username,
		RealName:    u.RealName,
		Avatar:      u.Avatar,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}).Error
}

// upsertMessage stores one message and returns the document to index, or
// nil for an already-imported message.
func (s *ArchiveService) upsertMessage(ctx context.Context, m IngestMessage) (*ArchiveDocument, error) {
	var channel db.Channel
	if err := s.db.WithContext(ctx).First(&channel, "slack_channel_id = ?", m.SlackChannelID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("unknown channel %s", m.SlackChannelID)
		}
		return nil, err
	}

	var user db.SlackUser
	if err := s.db.WithContext(ctx).First(&user, "slack_user_id = ?", m.SlackUserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("unknown user %s", m.SlackUserID)
		}
		return nil, err
	}

	var existing db.ArchiveMessage
	err := s.db.WithContext(ctx).First(&existing, "slack_message_id = ?", m.SlackMessageID).Error
	if err == nil {
		// Re-imports keep the original row and skip re-embedding.
		return nil, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	timestamp := m.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	message := &db.ArchiveMessage{
		SlackMessageID: m.SlackMessageID,
		ChannelID:      channel.ID,
		SlackUserID:    user.ID,
		Text:           m.Text,
		Timestamp:      timestamp,
		ThreadTS:       m.ThreadTS,
		HasAttachments: m.HasAttachments,
		CreatedAt:      time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(message).Error; err != nil {
		return nil, err
	}

	return &ArchiveDocument{
		ID:        strconv.FormatInt(message.ID, 10),
		Content:   message.Text,
		ChannelID: channel.ID,
		Channel:   channel.Name,
		User:      user.Username,
		Timestamp: timestamp.UTC().Format(time.RFC3339),
		ThreadTS:  m.ThreadTS,
	}, nil
}
