package repository

import (
	"time"

	"assistant-backend/internal/draft/domain"
)

// DraftRepository defines the interface for email draft data access.
// Read paths treat expired rows as absent.
type DraftRepository interface {
	// Create persists a new draft
	Create(draft *domain.EmailDraft) error

	// CreateReplacingActive atomically demotes the user's draft-status rows
	// to cancelled and persists the new draft. If the insert fails the
	// demotion is rolled back, so a failed create never loses the prior
	// active draft
	CreateReplacingActive(draft *domain.EmailDraft) error

	// ActiveByUser returns the user's single non-expired draft-status row,
	// or nil if there is none
	ActiveByUser(userID string, now time.Time) (*domain.EmailDraft, error)

	// ListOpen returns all non-expired rows with status draft or kept,
	// most recent first
	ListOpen(userID string, now time.Time) ([]*domain.EmailDraft, error)

	// Update persists changes to an existing draft
	Update(draft *domain.EmailDraft) error

	// CancelActive demotes every draft-status row for the user to cancelled,
	// re-establishing the single-active-draft invariant before a new create
	// or select
	CancelActive(userID string) error

	// DeleteExpired physically removes rows past their expiry, returning the
	// number removed
	DeleteExpired(now time.Time) (int64, error)
}
