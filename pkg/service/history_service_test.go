package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/archivebot/archivebot/pkg/db"
	"github.com/archivebot/archivebot/pkg/models"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	return database
}

func TestCreateAndGetConversation(t *testing.T) {
	s := NewHistoryService(testDB(t))
	ctx := context.Background()

	created, err := s.CreateConversation(ctx, "migration questions")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("conversation has no id")
	}
	if created.Status != db.ConversationStatusActive {
		t.Fatalf("status = %q, want active", created.Status)
	}

	got, err := s.GetConversation(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if got.Title != "migration questions" {
		t.Fatalf("title = %q", got.Title)
	}
}

func TestCreateConversationDefaultTitle(t *testing.T) {
	s := NewHistoryService(testDB(t))

	created, err := s.CreateConversation(context.Background(), "")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if created.Title != "New Chat" {
		t.Fatalf("title = %q, want default", created.Title)
	}
}

func TestGetConversationNotFound(t *testing.T) {
	s := NewHistoryService(testDB(t))

	_, err := s.GetConversation(context.Background(), "missing")
	if !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("error = %v, want ErrConversationNotFound", err)
	}
}

func TestListConversationsFiltersStatus(t *testing.T) {
	s := NewHistoryService(testDB(t))
	ctx := context.Background()

	a, _ := s.CreateConversation(ctx, "first")
	if _, err := s.CreateConversation(ctx, "second"); err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if err := s.ArchiveConversation(ctx, a.ID); err != nil {
		t.Fatalf("ArchiveConversation: %v", err)
	}

	active, err := s.ListConversations(ctx, db.ConversationStatusActive, 0, 0)
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(active) != 1 || active[0].Title != "second" {
		t.Fatalf("active conversations = %+v", active)
	}

	all, err := s.ListConversations(ctx, "", 0, 0)
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all conversations = %d, want 2", len(all))
	}
}

func TestAppendAndGetTurns(t *testing.T) {
	s := NewHistoryService(testDB(t))
	ctx := context.Background()

	conv, _ := s.CreateConversation(ctx, "t")

	if _, err := s.AppendTurn(ctx, conv.ID, models.RoleUser, "find the runbook", models.IntentSearch, 0); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}
	if _, err := s.AppendTurn(ctx, conv.ID, models.RoleAssistant, "here it is", models.IntentSearch, 2); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}

	turns, err := s.GetTurns(ctx, conv.ID, 0)
	if err != nil {
		t.Fatalf("GetTurns: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("turns = %d, want 2", len(turns))
	}
	if turns[0].Role != models.RoleUser || turns[1].Role != models.RoleAssistant {
		t.Fatalf("turn order wrong: %s, %s", turns[0].Role, turns[1].Role)
	}
	if turns[1].SourceCount != 2 {
		t.Fatalf("source count = %d", turns[1].SourceCount)
	}
}

func TestAppendTurnUnknownConversation(t *testing.T) {
	s := NewHistoryService(testDB(t))

	_, err := s.AppendTurn(context.Background(), "missing", models.RoleUser, "hi", models.IntentConversation, 0)
	if !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("error = %v, want ErrConversationNotFound", err)
	}
}

func TestHistoryForPrompt(t *testing.T) {
	s := NewHistoryService(testDB(t))
	ctx := context.Background()

	conv, _ := s.CreateConversation(ctx, "t")
	s.AppendTurn(ctx, conv.ID, models.RoleUser, "q1", models.IntentConversation, 0)
	s.AppendTurn(ctx, conv.ID, models.RoleAssistant, "a1", models.IntentConversation, 0)
	s.AppendTurn(ctx, conv.ID, models.RoleUser, "q2", models.IntentConversation, 0)

	history, roles, err := s.HistoryForPrompt(ctx, conv.ID, 2)
	if err != nil {
		t.Fatalf("HistoryForPrompt: %v", err)
	}
	if len(history) != 2 || len(roles) != 2 {
		t.Fatalf("history = %v, roles = %v", history, roles)
	}
	// Newest two turns, restored to chronological order.
	if history[0] != "a1" || history[1] != "q2" {
		t.Fatalf("history = %v", history)
	}
	if roles[0] != models.RoleAssistant || roles[1] != models.RoleUser {
		t.Fatalf("roles = %v", roles)
	}
}

func TestDeleteConversationRemovesTurns(t *testing.T) {
	s := NewHistoryService(testDB(t))
	ctx := context.Background()

	conv, _ := s.CreateConversation(ctx, "t")
	s.AppendTurn(ctx, conv.ID, models.RoleUser, "hello", models.IntentConversation, 0)

	if err := s.DeleteConversation(ctx, conv.ID); err != nil {
		t.Fatalf("DeleteConversation: %v", err)
	}
	if _, err := s.GetConversation(ctx, conv.ID); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("conversation still present: %v", err)
	}

	var count int64
	s.db.Model(&db.ConversationMessage{}).Where("conversation_id = ?", conv.ID).Count(&count)
	if count != 0 {
		t.Fatalf("orphaned turns remain: %d", count)
	}
}

func TestEnsureConversationTruncatesTitle(t *testing.T) {
	s := NewHistoryService(testDB(t))

	long := strings.Repeat("w", 100)
	conv, err := s.EnsureConversation(context.Background(), "", long)
	if err != nil {
		t.Fatalf("EnsureConversation: %v", err)
	}
	if len(conv.Title) != titleLimit+3 || !strings.HasSuffix(conv.Title, "...") {
		t.Fatalf("title = %q", conv.Title)
	}
}
