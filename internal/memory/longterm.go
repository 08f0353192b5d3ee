package memory

import (
	"context"
	"fmt"

	"assistant-backend/internal/conversation/domain"
	"assistant-backend/internal/conversation/repository"

	"github.com/rs/zerolog/log"
)

// SemanticIndex is the vector-store side of long-term memory. Optional: when
// absent, retrieval degrades to nothing and saves skip indexing.
type SemanticIndex interface {
	AddConversation(ctx context.Context, conversationID, userID, message, response string) error
	Search(ctx context.Context, userID, query string, limit int) ([]string, error)
	Delete(ctx context.Context, conversationIDs ...string) error
}

// LongTerm pairs the relational conversation log with the semantic index.
// Every saved turn lands in both; deletes hit both.
type LongTerm struct {
	conversations repository.ConversationRepository
	index         SemanticIndex
}

func NewLongTerm(conversations repository.ConversationRepository, index SemanticIndex) *LongTerm {
	return &LongTerm{conversations: conversations, index: index}
}

// SaveTurn appends one exchange and indexes it for retrieval. Index failures
// are logged, not surfaced: the relational row is the source of truth.
func (m *LongTerm) SaveTurn(ctx context.Context, userID, message, response, toolUsed string, metadata map[string]any) (string, error) {
	conversation := &domain.Conversation{
		UserID:        userID,
		UserMessage:   message,
		AgentResponse: response,
		ToolUsed:      toolUsed,
		Metadata:      metadata,
	}

	if err := m.conversations.Create(conversation); err != nil {
		return "", fmt.Errorf("failed to save conversation: %w", err)
	}

	if m.index != nil {
		if err := m.index.AddConversation(ctx, conversation.ID, userID, message, response); err != nil {
			log.Warn().Err(err).Str("conversation_id", conversation.ID).Msg("failed to index conversation")
		}
	}

	return conversation.ID, nil
}

// Recent returns the latest N turns for a user, oldest first.
func (m *LongTerm) Recent(userID string, limit int) ([]*domain.Conversation, error) {
	return m.conversations.RecentByUser(userID, limit)
}

// SearchSimilar returns past turns semantically close to the query, rendered
// as short context strings.
func (m *LongTerm) SearchSimilar(ctx context.Context, userID, query string, limit int) ([]string, error) {
	if m.index == nil {
		return nil, nil
	}

	ids, err := m.index.Search(ctx, userID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("semantic search failed: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := m.conversations.FindByIDs(ids)
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(rows))
	for _, row := range rows {
		texts = append(texts, fmt.Sprintf("User: %s\nAssistant: %s", row.UserMessage, row.AgentResponse))
	}
	return texts, nil
}

// DeleteUser removes all of one user's turns from both stores.
func (m *LongTerm) DeleteUser(ctx context.Context, userID string) error {
	ids, err := m.conversations.IDsByUser(userID)
	if err != nil {
		return err
	}

	if err := m.conversations.DeleteByUser(userID); err != nil {
		return fmt.Errorf("failed to delete conversations: %w", err)
	}

	if m.index != nil && len(ids) > 0 {
		if err := m.index.Delete(ctx, ids...); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("failed to delete conversation embeddings")
		}
	}
	return nil
}

// DeleteAll wipes every user's turns from both stores. Destructive; the HTTP
// surface gates it behind an explicit confirm flag.
func (m *LongTerm) DeleteAll(ctx context.Context) error {
	ids, err := m.conversations.AllIDs()
	if err != nil {
		return err
	}

	if err := m.conversations.DeleteAll(); err != nil {
		return fmt.Errorf("failed to delete conversations: %w", err)
	}

	if m.index != nil && len(ids) > 0 {
		if err := m.index.Delete(ctx, ids...); err != nil {
			log.Warn().Err(err).Msg("failed to delete conversation embeddings")
		}
	}
	return nil
}
