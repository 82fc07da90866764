// Database models for chat conversations
package db

import "time"

// Conversation represents one chat thread between a caller and the assistant
type Conversation struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Title     string    `json:"title" gorm:"size:200;default:'New Chat'"`
	Status    string    `json:"status" gorm:"size:20;default:'active'"` // active, archived
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// Conversation status
const (
	ConversationStatusActive   = "active"
	ConversationStatusArchived = "archived"
)

// ConversationMessage is one stored turn with an explicit role tag.
type ConversationMessage struct {
	ID             string    `json:"id" gorm:"primaryKey;size:36"`
	ConversationID string    `json:"conversation_id" gorm:"index;size:36;not null"`
	Role           string    `json:"role" gorm:"size:20;not null"` // user, assistant, system
	Content        string    `json:"content" gorm:"type:text"`
	Intent         string    `json:"intent,omitempty" gorm:"size:20"`
	SourceCount    int       `json:"source_count,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func (ConversationMessage) TableName() string {
	return "conversation_messages"
}
