package usecase

import (
	"strings"
	"testing"
	"time"

	"assistant-backend/internal/agent/session"
)

func TestSkipsMemoryAugmentation(t *testing.T) {
	cases := []struct {
		input string
		skip  bool
	}{
		{"what's on my calendar tomorrow?", true},
		{"draft an email to bob@example.com", true},
		{"remind me about the dentist", true},
		{"check my inbox", true},
		{"what did we talk about last week?", false},
		{"explain quantum computing", false},
	}
	for _, tc := range cases {
		if got := SkipsMemoryAugmentation(tc.input); got != tc.skip {
			t.Errorf("SkipsMemoryAugmentation(%q) = %v, want %v", tc.input, got, tc.skip)
		}
	}
}

func TestIsEmailFollowUp(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"send it", true},
		{"make it shorter", true},
		{"yes", true},
		{"looks good", true},
		{"okay, keep it", true},
		{"cancel", true},
		{"send it.", true},
		// Keywords must match whole words, not substrings.
		{"book a table tonight", false},
		{"add a prefix to it", false},
		// Too long to be a terse follow-up.
		{"send a brand new email to my accountant about the quarterly tax filing deadline", false},
		// Short but no follow-up vocabulary.
		{"what time is it", false},
	}
	for _, tc := range cases {
		if got := IsEmailFollowUp(tc.input); got != tc.want {
			t.Errorf("IsEmailFollowUp(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestIsEmailTool(t *testing.T) {
	for _, name := range []string{"draft_email", "send_draft", "improve_draft", "cancel_draft", "keep_draft", "list_drafts", "select_draft"} {
		if !IsEmailTool(name) {
			t.Errorf("IsEmailTool(%q) = false", name)
		}
	}
	for _, name := range []string{"calendar", "read_emails", "general_conversation"} {
		if IsEmailTool(name) {
			t.Errorf("IsEmailTool(%q) = true", name)
		}
	}
}

func TestBindFollowUp(t *testing.T) {
	emailCtx := &session.EmailContext{
		Request:  "draft an email to bob@example.com about the launch",
		Response: "Email Draft Created\nTo: bob@example.com",
		ToolUsed: "draft_email",
		At:       time.Now(),
	}

	bound := BindFollowUp("send it", emailCtx)
	for _, want := range []string{
		"send it",
		"draft an email to bob@example.com about the launch",
		"draft_email",
		"do not create a new one",
	} {
		if !strings.Contains(bound, want) {
			t.Errorf("bound input missing %q:\n%s", want, bound)
		}
	}
}
