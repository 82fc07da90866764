package rag

import (
	"strings"
	"testing"

	"github.com/archivebot/archivebot/pkg/models"
)

// hundredTokenText estimates to exactly 100 tokens (400 chars, no spaces).
var hundredTokenText = strings.Repeat("a", 400)

func makeItems(n int) []ContextItem {
	items := make([]ContextItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, ContextItem{
			Text:     hundredTokenText,
			Metadata: models.Metadata{"channel": models.MetaString("general")},
		})
	}
	return items
}

func TestFitContextItemsAllFit(t *testing.T) {
	// available = 1000 - 0 - 0 - 0 - 10 = 990; nine 100-token items fit.
	fitted := FitContextItems(makeItems(9), 1000, 0, "", "")
	if len(fitted) != 9 {
		t.Fatalf("fitted %d items, want 9", len(fitted))
	}
	for i, item := range fitted {
		if item.Text != hundredTokenText {
			t.Fatalf("item %d was modified", i)
		}
	}
}

func TestFitContextItemsPartialLastItem(t *testing.T) {
	// available = 990; nine items use 900, leaving 90 > minPartialTokens,
	// so the tenth is included truncated.
	fitted := FitContextItems(makeItems(10), 1000, 0, "", "")
	if len(fitted) != 10 {
		t.Fatalf("fitted %d items, want 10", len(fitted))
	}

	last := fitted[9]
	if !strings.HasSuffix(last.Text, "...") {
		t.Fatalf("last item not truncated: %q", last.Text[:20])
	}
	if EstimateTokens(last.Text) > 90 {
		t.Fatalf("truncated item estimates %d tokens, budget was 90", EstimateTokens(last.Text))
	}
	if last.Metadata.Str("channel") != "general" {
		t.Fatalf("truncation dropped metadata")
	}
}

func TestFitContextItemsSkipsTinyPartial(t *testing.T) {
	// available = 940; nine items use 900, leaving 40 <= minPartialTokens,
	// so the tenth is dropped entirely.
	fitted := FitContextItems(makeItems(10), 950, 0, "", "")
	if len(fitted) != 9 {
		t.Fatalf("fitted %d items, want 9", len(fitted))
	}
}

func TestFitContextItemsNoBudget(t *testing.T) {
	fitted := FitContextItems(makeItems(3), 5, 0, "", "")
	if len(fitted) != 0 {
		t.Fatalf("fitted %d items with no budget", len(fitted))
	}
}

func TestFitContextItemsChargesPrompts(t *testing.T) {
	// The system and user prompts eat into the budget.
	prompt := hundredTokenText
	with := FitContextItems(makeItems(10), 1000, 0, prompt, prompt)
	without := FitContextItems(makeItems(10), 1000, 0, "", "")
	if len(with) >= len(without) {
		t.Fatalf("prompts not charged: %d items with prompts, %d without", len(with), len(without))
	}
}

func TestFitConversationKeepsEverythingWhenRoomy(t *testing.T) {
	messages := []models.Message{
		{Role: models.RoleSystem, Content: "sys"},
		{Role: models.RoleUser, Content: "first question"},
		{Role: models.RoleAssistant, Content: "first answer"},
		{Role: models.RoleUser, Content: "second question"},
	}

	fitted := FitConversation(messages, 10000, 0)
	if len(fitted) != 4 {
		t.Fatalf("fitted %d messages, want 4", len(fitted))
	}
	for i := range messages {
		if fitted[i] != messages[i] {
			t.Fatalf("message %d reordered or changed: %+v", i, fitted[i])
		}
	}
}

func TestFitConversationDropsOldestFirst(t *testing.T) {
	messages := []models.Message{
		{Role: models.RoleSystem, Content: "sys"},
		{Role: models.RoleUser, Content: hundredTokenText},
		{Role: models.RoleAssistant, Content: hundredTokenText},
		{Role: models.RoleUser, Content: hundredTokenText},
	}

	// system costs 1+5=6; each turn costs 100+5=105. Budget 250 fits the
	// two newest turns (6+105+105=216) and leaves 29 for the oldest,
	// below the partial threshold.
	fitted := FitConversation(messages, 250, 0)
	if len(fitted) != 3 {
		t.Fatalf("fitted %d messages, want 3", len(fitted))
	}
	if fitted[0].Role != models.RoleSystem {
		t.Fatalf("system message not first: %+v", fitted[0])
	}
	if fitted[1].Role != models.RoleAssistant || fitted[2].Role != models.RoleUser {
		t.Fatalf("kept the wrong turns: %s, %s", fitted[1].Role, fitted[2].Role)
	}
}

func TestFitConversationPartialOldest(t *testing.T) {
	messages := []models.Message{
		{Role: models.RoleSystem, Content: "sys"},
		{Role: models.RoleUser, Content: hundredTokenText},
		{Role: models.RoleAssistant, Content: hundredTokenText},
		{Role: models.RoleUser, Content: hundredTokenText},
	}

	// Budget 290 leaves 290-216-5=69 for the oldest turn, above the
	// partial threshold, so it comes back truncated.
	fitted := FitConversation(messages, 290, 0)
	if len(fitted) != 4 {
		t.Fatalf("fitted %d messages, want 4", len(fitted))
	}
	if !strings.HasSuffix(fitted[1].Content, "...") {
		t.Fatalf("oldest kept message not truncated")
	}
	if fitted[1].Role != models.RoleUser {
		t.Fatalf("truncated message changed role: %s", fitted[1].Role)
	}
}

func TestFitConversationSystemForcedFirst(t *testing.T) {
	messages := []models.Message{
		{Role: models.RoleUser, Content: "first question"},
		{Role: models.RoleAssistant, Content: "first answer"},
		{Role: models.RoleSystem, Content: "sys"},
		{Role: models.RoleUser, Content: "second question"},
	}

	fitted := FitConversation(messages, 10000, 0)
	if len(fitted) != 4 {
		t.Fatalf("fitted %d messages, want 4", len(fitted))
	}
	if fitted[0].Role != models.RoleSystem || fitted[0].Content != "sys" {
		t.Fatalf("system message not first: %+v", fitted[0])
	}
	wantOrder := []string{"first question", "first answer", "second question"}
	for i, content := range wantOrder {
		if fitted[i+1].Content != content {
			t.Fatalf("turn %d = %q, want %q", i, fitted[i+1].Content, content)
		}
	}
}

func TestFitConversationDropsExtraSystemMessages(t *testing.T) {
	messages := []models.Message{
		{Role: models.RoleSystem, Content: "sys one"},
		{Role: models.RoleUser, Content: "question"},
		{Role: models.RoleSystem, Content: "sys two"},
		{Role: models.RoleAssistant, Content: "answer"},
	}

	fitted := FitConversation(messages, 10000, 0)
	if len(fitted) != 3 {
		t.Fatalf("fitted %d messages, want 3", len(fitted))
	}
	if fitted[0].Content != "sys one" {
		t.Fatalf("wrong system message kept: %q", fitted[0].Content)
	}
	for _, msg := range fitted[1:] {
		if msg.Role == models.RoleSystem {
			t.Fatalf("extra system message survived: %+v", msg)
		}
	}
	if fitted[1].Content != "question" || fitted[2].Content != "answer" {
		t.Fatalf("turns reordered: %+v", fitted[1:])
	}
}

func TestFitConversationNoSystemMessage(t *testing.T) {
	messages := []models.Message{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "hello"},
	}

	fitted := FitConversation(messages, 1000, 0)
	if len(fitted) != 2 {
		t.Fatalf("fitted %d messages, want 2", len(fitted))
	}
	if fitted[0].Content != "hi" || fitted[1].Content != "hello" {
		t.Fatalf("messages reordered: %+v", fitted)
	}
}
