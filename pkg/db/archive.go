// Database models for the imported Slack archive
package db

import "time"

// Channel represents an imported Slack channel
type Channel struct {
	ID             int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	SlackChannelID string    `json:"slack_channel_id" gorm:"uniqueIndex;size:64;not null"`
	Name           string    `json:"name" gorm:"size:200;not null"`
	Purpose        string    `json:"purpose,omitempty" gorm:"size:500"`
	IsPrivate      bool      `json:"is_private" gorm:"default:false"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Channel) TableName() string {
	return "channels"
}

// SlackUser represents an author of archive messages
type SlackUser struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	SlackUserID string    `json:"slack_user_id" gorm:"uniqueIndex;size:64;not null"`
	Username    string    `json:"username" gorm:"size:200;not null"`
	RealName    string    `json:"real_name,omitempty" gorm:"size:200"`
	Avatar      string    `json:"avatar,omitempty" gorm:"size:500"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (SlackUser) TableName() string {
	return "slack_users"
}

// ArchiveMessage represents one imported Slack message
type ArchiveMessage struct {
	ID             int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	SlackMessageID string    `json:"slack_message_id" gorm:"uniqueIndex;size:64;not null"`
	ChannelID      int64     `json:"channel_id" gorm:"index;not null"`
	SlackUserID    int64     `json:"slack_user_id" gorm:"index;not null"`
	Text           string    `json:"text" gorm:"type:text"`
	Timestamp      time.Time `json:"timestamp" gorm:"index"`
	ThreadTS       string    `json:"thread_ts,omitempty" gorm:"size:64;index"`
	HasAttachments bool      `json:"has_attachments" gorm:"default:false"`
	CreatedAt      time.Time `json:"created_at"`
}

func (ArchiveMessage) TableName() string {
	return "messages"
}
