// Token estimation for context budgeting.
//
// Counts are approximations based on the common ~4 characters per token
// ratio for English text, not a real tokenizer. Callers must treat them as
// estimates and never compare them against an actual tokenizer's output.
package rag

import (
	"strings"
	"unicode/utf8"

	"github.com/archivebot/archivebot/pkg/models"
)

// charsPerToken is the approximation ratio applied to normalized text.
const charsPerToken = 4

// perMessageOverhead is the fixed token cost most chat formats add per
// message on top of role and content.
const perMessageOverhead = 4

// conversationOverhead covers conversation start/end tokens.
const conversationOverhead = 2

// truncationMargin shrinks the computed character budget so estimation error
// cannot push a truncated string back over the limit.
const truncationMargin = 0.9

// EstimateTokens approximates the token count of text. Runs of whitespace
// are collapsed before counting; empty text estimates to 0.
func EstimateTokens(text string) int {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return 0
	}
	return (len(normalized) + charsPerToken - 1) / charsPerToken
}

// EstimateChatTokens approximates the token count of a chat message list,
// charging each message its content tokens, its role name length, and a
// fixed per-message overhead. The conversation-level overhead is added only
// when at least one message is present, so an empty list estimates to 0.
func EstimateChatTokens(messages []models.Message) int {
	if len(messages) == 0 {
		return 0
	}

	total := 0
	for _, msg := range messages {
		total += len(msg.Role)
		total += EstimateTokens(msg.Content)
		total += perMessageOverhead
	}
	total += conversationOverhead

	return total
}

// TruncateToTokenLimit cuts text so its estimate fits within maxTokens. Text
// that already fits is returned unchanged; otherwise the string is hard-cut
// at 90% of the approximate character budget and an ellipsis is appended.
func TruncateToTokenLimit(text string, maxTokens int) string {
	if text == "" {
		return ""
	}

	if EstimateTokens(text) <= maxTokens {
		return text
	}

	approxCharLimit := maxTokens * charsPerToken
	safeCharLimit := int(float64(approxCharLimit) * truncationMargin)
	if safeCharLimit < 0 {
		safeCharLimit = 0
	}
	if safeCharLimit > len(text) {
		safeCharLimit = len(text)
	}

	return cutAtRuneBoundary(text, safeCharLimit) + "..."
}

// cutAtRuneBoundary cuts text at no more than limit bytes, backing off so a
// multibyte rune is never split.
func cutAtRuneBoundary(text string, limit int) string {
	if limit >= len(text) {
		return text
	}
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return text[:limit]
}
