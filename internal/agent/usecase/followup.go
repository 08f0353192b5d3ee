package usecase

import (
	"fmt"
	"strings"

	"assistant-backend/internal/agent/session"
)

var liveDataKeywords = []string{
	"calendar", "schedule", "meeting", "appointment", "event", "remind",
	"email", "mail", "inbox", "draft", "send",
}

// SkipsMemoryAugmentation reports whether a message targets live calendar
// or email state. Such requests must not be biased by stale remembered
// text, so semantic memory is left out of their context.
func SkipsMemoryAugmentation(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range liveDataKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

var followUpKeywords = []string{
	"send", "improve", "cancel", "keep", "discard", "shorter", "longer",
	"formal", "friendly", "yes", "okay", "ok", "looks good", "perfect",
	"change", "fix",
}

// IsEmailFollowUp reports whether a message is a short confirmation or
// improvement reply that should bind to the previous email-tool exchange:
// fewer than 10 words and containing follow-up vocabulary. Single-word
// keywords must match whole words so "ok" does not fire on "book" or "fix"
// on "prefix".
func IsEmailFollowUp(message string) bool {
	words := strings.Fields(strings.ToLower(message))
	if len(words) >= 10 {
		return false
	}

	wordSet := make(map[string]bool, len(words))
	for _, w := range words {
		wordSet[strings.Trim(w, ".,!?'\"")] = true
	}
	joined := strings.Join(words, " ")

	for _, kw := range followUpKeywords {
		if strings.ContainsRune(kw, ' ') {
			if strings.Contains(joined, kw) {
				return true
			}
			continue
		}
		if wordSet[kw] {
			return true
		}
	}
	return false
}

// BindFollowUp rewrites a short follow-up reply to carry the prior
// email-tool exchange as explicit context, so the reasoning loop needs no
// pronoun resolution.
func BindFollowUp(message string, emailCtx *session.EmailContext) string {
	return fmt.Sprintf(`The user previously asked: "%s"
The assistant used the %s tool and replied:
%s

The user now says: "%s"
This is a follow-up about that email. Act on the existing draft; do not create a new one unless asked.`,
		emailCtx.Request, emailCtx.ToolUsed, emailCtx.Response, message)
}

var emailToolNames = map[string]bool{
	"draft_email":   true,
	"send_draft":    true,
	"improve_draft": true,
	"cancel_draft":  true,
	"keep_draft":    true,
	"list_drafts":   true,
	"select_draft":  true,
}

// IsEmailTool reports whether a tool name belongs to the email workflow.
func IsEmailTool(name string) bool {
	return emailToolNames[name]
}
