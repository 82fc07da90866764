// Context window fitting.
//
// Both operations are pure functions: they trim their inputs to a token
// budget and never perform I/O. Budget exhaustion surfaces as an empty
// result, not an error.
package rag

import "github.com/archivebot/archivebot/pkg/models"

// ContextItem is one candidate piece of retrieved evidence.
type ContextItem struct {
	Text     string
	Metadata models.Metadata
}

// promptOverhead accounts for message formatting around the system and user
// prompts when fitting context items.
const promptOverhead = 10

// fitMessageOverhead is the per-message formatting charge used when fitting
// conversation history.
const fitMessageOverhead = 5

// minPartialTokens is the smallest remaining budget worth filling with a
// truncated item; below this the partial would carry no meaningful content.
const minPartialTokens = 50

// FitContextItems trims items so that items + system prompt + user prompt +
// formatting overhead stay within maxTokens - reservedTokens.
//
// Items must arrive pre-sorted by relevance, most relevant first; the caller
// (the orchestrator) upholds that contract. Items are accumulated in order
// until one would overflow the budget. That item is included in truncated
// form when enough budget remains, and everything after it is dropped.
func FitContextItems(items []ContextItem, maxTokens, reservedTokens int, systemPrompt, userPrompt string) []ContextItem {
	available := maxTokens - reservedTokens -
		EstimateTokens(systemPrompt) - EstimateTokens(userPrompt) - promptOverhead

	if available <= 0 {
		return nil
	}

	used := 0
	fitted := make([]ContextItem, 0, len(items))

	for _, item := range items {
		itemTokens := EstimateTokens(item.Text)

		if used+itemTokens <= available {
			fitted = append(fitted, item)
			used += itemTokens
			continue
		}

		if remaining := available - used; remaining > minPartialTokens {
			fitted = append(fitted, ContextItem{
				Text:     TruncateToTokenLimit(item.Text, remaining),
				Metadata: item.Metadata,
			})
		}
		break
	}

	return fitted
}

// FitConversation trims a conversation to maxTokens - reservedTokens while
// preserving recency: a leading system message is always kept and charged
// first, then messages are accumulated newest to oldest. The result is in
// chronological order with the system message forced to the front.
func FitConversation(messages []models.Message, maxTokens, reservedTokens int) []models.Message {
	available := maxTokens - reservedTokens

	// Only the first system message survives; any later ones are dropped so
	// a system prompt can never appear mid-sequence.
	var system *models.Message
	rest := make([]models.Message, 0, len(messages))
	for i, msg := range messages {
		if msg.Role == models.RoleSystem {
			if system == nil {
				system = &messages[i]
			}
			continue
		}
		rest = append(rest, msg)
	}

	used := 0
	if system != nil {
		used = EstimateTokens(system.Content) + fitMessageOverhead
	}

	kept := make([]models.Message, 0, len(rest))
	for i := len(rest) - 1; i >= 0; i-- {
		msg := rest[i]
		msgTokens := EstimateTokens(msg.Content)

		if used+msgTokens+fitMessageOverhead <= available {
			kept = append(kept, msg)
			used += msgTokens + fitMessageOverhead
			continue
		}

		if remaining := available - used - fitMessageOverhead; remaining > minPartialTokens {
			kept = append(kept, models.Message{
				Role:    msg.Role,
				Content: TruncateToTokenLimit(msg.Content, remaining),
			})
		}
		break
	}

	// kept is newest-first; restore chronological order.
	result := make([]models.Message, 0, len(kept)+1)
	if system != nil {
		result = append(result, *system)
	}
	for i := len(kept) - 1; i >= 0; i-- {
		result = append(result, kept[i])
	}

	return result
}
