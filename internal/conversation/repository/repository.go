package repository

import "assistant-backend/internal/conversation/domain"

// ConversationRepository defines the interface for conversation data access
type ConversationRepository interface {
	// Create appends a new conversation row
	Create(conversation *domain.Conversation) error

	// FindByID finds a conversation by its ID
	FindByID(id string) (*domain.Conversation, error)

	// FindByIDs finds conversations for a list of IDs, preserving input order
	FindByIDs(ids []string) ([]*domain.Conversation, error)

	// RecentByUser returns the latest N conversations for a user, oldest first
	RecentByUser(userID string, limit int) ([]*domain.Conversation, error)

	// CountByUser returns the total number of conversations for a user
	CountByUser(userID string) (int64, error)

	// IDsByUser returns all conversation IDs for a user
	IDsByUser(userID string) ([]string, error)

	// AllIDs returns every conversation ID
	AllIDs() ([]string, error)

	// DeleteByUser removes all conversations for a user
	DeleteByUser(userID string) error

	// DeleteAll removes every conversation
	DeleteAll() error
}
