// Intent classification for inbound chat messages.
package rag

import (
	"regexp"
	"strings"

	"github.com/archivebot/archivebot/pkg/models"
)

// Summarization beats search beats conversation: a message matching both
// "summarize" and a search keyword is a summarization request about the
// matched topic.

var summarizationPattern = regexp.MustCompile(`(?i)\b(summarize|summary|summarization|recap|tl;?dr)\b`)

var searchPattern = regexp.MustCompile(`(?i)\b(find|search|locate|look for|where is|where can|when did|who said|what is|what was|how do|how did|show me|tell me about)\b`)

var searchPhrases = []string{
	"find",
	"search",
	"look for",
	"locate",
	"where is",
	"when did",
	"who said",
	"what is",
	"how do",
	"show me",
	"tell me about",
}

// DetectIntent classifies message into one of the three chat intents,
// defaulting to conversation.
func DetectIntent(message string) models.ChatIntent {
	if summarizationPattern.MatchString(message) {
		return models.IntentSummarization
	}

	if searchPattern.MatchString(message) {
		return models.IntentSearch
	}
	lower := strings.ToLower(message)
	for _, phrase := range searchPhrases {
		if strings.Contains(lower, phrase) {
			return models.IntentSearch
		}
	}

	return models.IntentConversation
}

// summarizationTopic strips the summarization keywords and filler from a
// message to derive the topic to retrieve on. Returns "" when nothing
// meaningful remains.
func summarizationTopic(message string) string {
	topic := summarizationPattern.ReplaceAllString(message, " ")

	// Drop leading politeness/filler that survives keyword removal.
	topic = strings.TrimSpace(topic)
	for _, prefix := range []string{"please", "can you", "could you", "give me a", "give me", "provide a", "provide", "the", "a"} {
		lower := strings.ToLower(topic)
		if strings.HasPrefix(lower, prefix+" ") {
			topic = strings.TrimSpace(topic[len(prefix):])
		}
	}

	topic = strings.Trim(topic, " .,:;!?")
	return strings.TrimSpace(topic)
}
