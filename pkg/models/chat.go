// Transport types for the chat endpoint
package models

// ChatIntent is the coarse classification of an inbound chat message. It is
// determined once per request and immutable afterwards.
type ChatIntent string

const (
	IntentSearch        ChatIntent = "search"
	IntentConversation  ChatIntent = "conversation"
	IntentSummarization ChatIntent = "summarization"
)

// ChatRequest is the body of POST /api/chat.
//
// History is a flat list of prior turns. When HistoryRoles is supplied it
// must be the same length as History and carry explicit "user"/"assistant"
// tags; without it, role is inferred by position parity (even=user,
// odd=assistant), which requires strict chronological alternation.
type ChatRequest struct {
	Message        string   `json:"message" binding:"required"`
	History        []string `json:"history,omitempty"`
	HistoryRoles   []string `json:"history_roles,omitempty"`
	ChannelIDs     []int64  `json:"channel_ids,omitempty"`
	ConversationID string   `json:"conversation_id,omitempty"`
}

// SourceReference points a chat answer back at an archive message.
type SourceReference struct {
	Text           string  `json:"text"`
	MessageID      string  `json:"message_id,omitempty"`
	Channel        string  `json:"channel,omitempty"`
	User           string  `json:"user,omitempty"`
	Timestamp      string  `json:"timestamp,omitempty"`
	RelevanceScore float64 `json:"relevance_score,omitempty"`
}

// ChatResponse is the external contract returned to the caller.
type ChatResponse struct {
	Message        string            `json:"message"`
	Intent         ChatIntent        `json:"intent"`
	Sources        int               `json:"sources"`
	References     []SourceReference `json:"references,omitempty"`
	Usage          *Usage            `json:"usage,omitempty"`
	ConversationID string            `json:"conversation_id,omitempty"`
}
