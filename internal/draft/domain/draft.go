package domain

import "time"

// DraftStatus represents the lifecycle state of an email draft
type DraftStatus string

const (
	StatusDraft     DraftStatus = "draft"
	StatusSent      DraftStatus = "sent"
	StatusCancelled DraftStatus = "cancelled"
	StatusKept      DraftStatus = "kept"
)

// Expiry policy: fresh and re-selected drafts live one hour, each improvement
// buys another hour, an explicit "keep" parks the draft for a day.
const (
	DefaultTTL = 1 * time.Hour
	KeptTTL    = 24 * time.Hour
)

// EmailDraft is a pending outgoing email awaiting user approval. At most one
// row per user holds StatusDraft at any time; an expired row is treated as
// absent by every read path and swept eventually.
type EmailDraft struct {
	ID      string `json:"id" gorm:"primaryKey"`
	UserID  string `json:"user_id" gorm:"index;not null"`
	ToEmail string `json:"to_email" gorm:"not null"`
	Subject string `json:"subject" gorm:"not null"`
	Body    string `json:"body" gorm:"type:text;not null"`

	// Remote mailbox mirror; authoritative over local content when set
	GmailDraftID string `json:"gmail_draft_id,omitempty"`

	Status    DraftStatus `json:"status" gorm:"default:draft;not null"`
	CreatedAt time.Time   `json:"created_at" gorm:"index"`
	UpdatedAt time.Time   `json:"updated_at"`
	ExpiresAt time.Time   `json:"expires_at" gorm:"index"`
}

// IsExpired reports whether the draft has passed its expiry timestamp.
func (d *EmailDraft) IsExpired(now time.Time) bool {
	return now.After(d.ExpiresAt)
}

// ExtendExpiry pushes the expiry timestamp out from now.
func (d *EmailDraft) ExtendExpiry(now time.Time, ttl time.Duration) {
	d.ExpiresAt = now.Add(ttl)
}
