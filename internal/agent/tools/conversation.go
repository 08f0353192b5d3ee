package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"assistant-backend/pkg/ai"
)

const conversationFallback = "Hello! I'm your personal assistant. I can help you schedule events, " +
	"manage emails, and summarize documents. How can I assist you today?"

// ConversationTool handles greetings and small talk that need no other
// capability.
type ConversationTool struct {
	llm ai.LanguageModel
}

func NewConversationTool(llm ai.LanguageModel) *ConversationTool {
	return &ConversationTool{llm: llm}
}

func (t *ConversationTool) Name() string { return "general_conversation" }

func (t *ConversationTool) Description() string {
	return "Handle greetings, casual conversation and general questions that don't need " +
		"calendar, email or document functionality, e.g. 'Hello', 'What can you do?'."
}

func (t *ConversationTool) ReturnDirect() bool { return false }

func (t *ConversationTool) Execute(ctx context.Context, userID, input string) (string, error) {
	prompt := fmt.Sprintf(`You are a friendly and helpful personal assistant accessible via WhatsApp.

The user said: %s

Respond naturally and conversationally. Keep your response brief and professional.

You can help users with:
- Creating and managing calendar events
- Reading and sending emails
- Summarizing any document content they provide

If the user is just greeting you or asking general questions, respond warmly and let them know you're here to help.

Your response:`, input)

	reply, err := t.llm.Complete(ctx, prompt)
	if err != nil {
		log.Warn().Err(err).Msg("conversation completion failed, using canned reply")
		return conversationFallback, nil
	}
	return strings.TrimSpace(reply), nil
}
