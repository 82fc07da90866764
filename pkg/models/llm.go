// Transport types for the language model client
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Message roles (OpenAI standard)
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged chat message. Ordering within a slice is
// chronological; a system message conventionally comes first.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is built fresh per call and never mutated afterwards.
type CompletionRequest struct {
	Messages       []Message `json:"messages"`
	Temperature    float32   `json:"temperature,omitempty"`
	TopP           float32   `json:"top_p,omitempty"`
	MaxTokens      int       `json:"max_tokens,omitempty"`
	Model          string    `json:"model,omitempty"`
	ConversationID string    `json:"conversation_id,omitempty"`
}

// Usage carries token accounting and latency for one completion.
type Usage struct {
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	Model            string `json:"model,omitempty"`
	LatencyMs        int64  `json:"latency_ms,omitempty"`
}

// Citation is a context item that was actually sent to the model, in the
// order it was sent.
type Citation struct {
	Text           string   `json:"text"`
	Metadata       Metadata `json:"metadata,omitempty"`
	RelevanceScore float64  `json:"relevance_score,omitempty"`
}

// CompletionResult is the normalized completion returned by the client.
type CompletionResult struct {
	Content        string     `json:"content"`
	Usage          Usage      `json:"usage"`
	Citations      []Citation `json:"citations,omitempty"`
	ConversationID string     `json:"conversation_id,omitempty"`
}

// ========== Metadata ==========

// Metadata is a source-attribution bag on context items and citations.
// Values are restricted to a closed set of scalar variants rather than
// interface{} so the pipeline stays type-safe end to end.
type Metadata map[string]MetaValue

// MetaValue is a string, number, or timestamp.
type MetaValue interface {
	fmt.Stringer
	metaValue()
}

type MetaString string

type MetaNumber float64

type MetaTime time.Time

func (MetaString) metaValue() {}
func (MetaNumber) metaValue() {}
func (MetaTime) metaValue()   {}

func (v MetaString) String() string { return string(v) }

func (v MetaNumber) String() string {
	return strconv.FormatFloat(float64(v), 'f', -1, 64)
}

func (v MetaTime) String() string {
	return time.Time(v).UTC().Format(time.RFC3339)
}

func (v MetaString) MarshalJSON() ([]byte, error) { return json.Marshal(string(v)) }
func (v MetaNumber) MarshalJSON() ([]byte, error) { return json.Marshal(float64(v)) }
func (v MetaTime) MarshalJSON() ([]byte, error)   { return json.Marshal(v.String()) }

// Str returns the value under key when it is a string, else "".
func (m Metadata) Str(key string) string {
	if v, ok := m[key].(MetaString); ok {
		return string(v)
	}
	return ""
}

// Num returns the value under key when it is a number, else 0.
func (m Metadata) Num(key string) float64 {
	if v, ok := m[key].(MetaNumber); ok {
		return float64(v)
	}
	return 0
}

// Time returns the value under key when it is a timestamp.
func (m Metadata) Time(key string) (time.Time, bool) {
	if v, ok := m[key].(MetaTime); ok {
		return time.Time(v), true
	}
	return time.Time{}, false
}
