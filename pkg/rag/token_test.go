package rag

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/archivebot/archivebot/pkg/models"
)

func TestEstimateTokens(t *testing.T) {
	cases := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"whitespace only", "  \t\n  ", 0},
		{"exact multiple", "abcd", 1},
		{"rounds up", "abcde", 2},
		{"simple sentence", "hello world", 3},
		{"whitespace collapsed", "hello \t\n  world", 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := EstimateTokens(tc.text); got != tc.want {
				t.Fatalf("EstimateTokens(%q) = %d, want %d", tc.text, got, tc.want)
			}
		})
	}
}

func TestEstimateTokensMonotonicInContent(t *testing.T) {
	short := EstimateTokens("the deployment failed")
	long := EstimateTokens("the deployment failed because the database migration timed out")
	if long <= short {
		t.Fatalf("longer text estimated %d tokens, shorter %d", long, short)
	}
}

func TestEstimateChatTokensEmpty(t *testing.T) {
	if got := EstimateChatTokens(nil); got != 0 {
		t.Fatalf("EstimateChatTokens(nil) = %d, want 0", got)
	}
	if got := EstimateChatTokens([]models.Message{}); got != 0 {
		t.Fatalf("EstimateChatTokens(empty) = %d, want 0", got)
	}
}

func TestEstimateChatTokensSingleMessage(t *testing.T) {
	messages := []models.Message{
		{Role: models.RoleUser, Content: "hello world"},
	}

	// content (3) + role length (4) + per-message overhead (4) + conversation overhead (2)
	want := 3 + len(models.RoleUser) + perMessageOverhead + conversationOverhead
	if got := EstimateChatTokens(messages); got != want {
		t.Fatalf("EstimateChatTokens = %d, want %d", got, want)
	}
}

func TestEstimateChatTokensChargesEveryMessage(t *testing.T) {
	one := EstimateChatTokens([]models.Message{
		{Role: models.RoleUser, Content: "hello world"},
	})
	two := EstimateChatTokens([]models.Message{
		{Role: models.RoleUser, Content: "hello world"},
		{Role: models.RoleAssistant, Content: "hello world"},
	})

	wantDelta := 3 + len(models.RoleAssistant) + perMessageOverhead
	if two-one != wantDelta {
		t.Fatalf("second message added %d tokens, want %d", two-one, wantDelta)
	}
}

func TestTruncateToTokenLimitShortTextUnchanged(t *testing.T) {
	text := "short enough"
	if got := TruncateToTokenLimit(text, 100); got != text {
		t.Fatalf("TruncateToTokenLimit changed text that fits: %q", got)
	}
}

func TestTruncateToTokenLimitCutsAndMarks(t *testing.T) {
	text := strings.Repeat("a", 200)
	got := TruncateToTokenLimit(text, 10)

	if !strings.HasSuffix(got, "...") {
		t.Fatalf("truncated text missing ellipsis: %q", got)
	}
	// 10 tokens * 4 chars * 0.9 margin = 36 chars plus the marker.
	if len(got) != 36+3 {
		t.Fatalf("truncated length = %d, want %d", len(got), 39)
	}
	if EstimateTokens(got) > 10 {
		t.Fatalf("truncated text still estimates %d tokens", EstimateTokens(got))
	}
}

func TestTruncateToTokenLimitKeepsRunesWhole(t *testing.T) {
	// The leading byte shifts every three-byte rune off the character budget,
	// so a naive byte cut would split one.
	text := "a" + strings.Repeat("界", 300)
	for _, max := range []int{5, 10, 25, 50} {
		got := TruncateToTokenLimit(text, max)
		if !utf8.ValidString(got) {
			t.Fatalf("maxTokens=%d produced invalid UTF-8: %q", max, got)
		}
		if !strings.HasSuffix(got, "...") {
			t.Fatalf("maxTokens=%d missing ellipsis: %q", max, got)
		}
		if EstimateTokens(got) > max {
			t.Fatalf("maxTokens=%d still estimates %d tokens", max, EstimateTokens(got))
		}
	}
}

func TestTruncateToTokenLimitEmpty(t *testing.T) {
	if got := TruncateToTokenLimit("", 10); got != "" {
		t.Fatalf("TruncateToTokenLimit(\"\") = %q", got)
	}
}
