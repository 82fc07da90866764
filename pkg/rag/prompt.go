// Prompt templates for the chat pipelines.
package rag

import (
	"fmt"
	"strings"

	"github.com/archivebot/archivebot/pkg/models"
)

// DefaultMaxContextItems caps the number of context blocks rendered into a
// RAG prompt before any token-based trimming happens.
const DefaultMaxContextItems = 10

// RagSystemPrompt instructs the model to answer only from provided context
// and to cite channels.
func RagSystemPrompt(includeTimestamps bool) string {
	var b strings.Builder

	b.WriteString(`You are a helpful assistant with access to a Slack archive. Answer the user's questions based on the retrieved context.

RULES:
1. If the answer can be found in the context, provide it concisely.
2. If the answer cannot be found in the context, say "I don't have information about that in the Slack archive."
3. Always prioritize information from the context over your general knowledge.
4. Cite message sources when appropriate with [Channel: channel_name].
5. Format code blocks properly with the appropriate language syntax highlighting.
6. Keep responses concise and focused on the question.`)

	if includeTimestamps {
		b.WriteString("\n7. When relevant, include timestamps to indicate when information was discussed.")
	}

	b.WriteString(`

When analyzing the context, remember that Slack conversations are often informal and may contain:
- Abbreviations and company-specific jargon
- Multiple people discussing topics simultaneously
- Thread replies that may provide important clarifications
- Questions that were asked but never answered`)

	return b.String()
}

// ConversationSystemPrompt is the persona for plain conversation without
// retrieval.
func ConversationSystemPrompt() string {
	return `You are a helpful assistant chatting with a user about their Slack workspace.

RULES:
1. Be friendly, helpful, and concise.
2. If the user asks about specific information from Slack that you don't have, suggest they try a search query.
3. Format code blocks properly with the appropriate language syntax highlighting.
4. Keep your responses concise and to the point.
5. If the user seems to be looking for information, suggest they use search terms like "find", "search for", etc.`
}

// SummarizationSystemPrompt instructs neutral, structured summarization.
// topic may be empty.
func SummarizationSystemPrompt(topic string) string {
	about := ""
	if topic != "" {
		about = fmt.Sprintf(" about %q", topic)
	}

	return fmt.Sprintf(`You are a helpful assistant summarizing Slack conversations.

Your task is to create a concise summary of the conversation%s.

RULES:
1. Focus on the key points, decisions, and action items.
2. Maintain a neutral, objective tone.
3. Be concise but comprehensive.
4. Include the names of participants when they make important points.
5. Structure your summary with clear sections if appropriate.
6. If there are unresolved questions or topics, note them at the end.`, about)
}

// BuildRagPrompt renders the system message plus one user message containing
// the query followed by numbered context blocks. At most maxContextItems
// entries are rendered; this positional cap applies before token-based
// trimming. maxContextItems <= 0 means DefaultMaxContextItems.
func BuildRagPrompt(query string, contextItems []ContextItem, maxContextItems int) []models.Message {
	if maxContextItems <= 0 {
		maxContextItems = DefaultMaxContextItems
	}
	if len(contextItems) > maxContextItems {
		contextItems = contextItems[:maxContextItems]
	}

	blocks := make([]string, 0, len(contextItems))
	for i, item := range contextItems {
		blocks = append(blocks, fmt.Sprintf("[%d] %s", i+1, item.Text))
	}

	userContent := fmt.Sprintf(`I need information from the Slack archive. Here's my question:

%s

Here is the relevant context from the Slack archive:
%s

Please answer based on this context.`, query, strings.Join(blocks, "\n\n"))

	return []models.Message{
		{Role: models.RoleSystem, Content: RagSystemPrompt(true)},
		{Role: models.RoleUser, Content: userContent},
	}
}

// BuildConversationPrompt renders the system message, the prior history
// turns, and the new user message.
func BuildConversationPrompt(userMessage string, history []models.Message) []models.Message {
	messages := make([]models.Message, 0, len(history)+2)
	messages = append(messages, models.Message{Role: models.RoleSystem, Content: ConversationSystemPrompt()})
	messages = append(messages, history...)
	messages = append(messages, models.Message{Role: models.RoleUser, Content: userMessage})
	return messages
}

// BuildSummarizationPrompt renders the system message plus one user message
// instructing summarization of the joined texts. topic may be empty.
func BuildSummarizationPrompt(texts []string, topic string) []models.Message {
	about := ""
	if topic != "" {
		about = fmt.Sprintf(" about %q", topic)
	}

	userContent := fmt.Sprintf(`Please summarize the following Slack conversation%s:

%s

Create a concise summary that captures the main points, decisions, and any action items.`, about, strings.Join(texts, "\n\n"))

	return []models.Message{
		{Role: models.RoleSystem, Content: SummarizationSystemPrompt(topic)},
		{Role: models.RoleUser, Content: userContent},
	}
}
