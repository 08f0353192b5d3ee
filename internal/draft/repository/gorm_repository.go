package repository

import (
	"time"

	"assistant-backend/internal/draft/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// gormDraftRepository implements DraftRepository using GORM
type gormDraftRepository struct {
	db *gorm.DB
}

// NewGormDraftRepository creates a new GORM-based DraftRepository
func NewGormDraftRepository(db *gorm.DB) DraftRepository {
	db.AutoMigrate(&domain.EmailDraft{})
	return &gormDraftRepository{db: db}
}

func (r *gormDraftRepository) Create(draft *domain.EmailDraft) error {
	now := time.Now()
	if draft.ID == "" {
		draft.ID = uuid.New().String()
	}
	if draft.Status == "" {
		draft.Status = domain.StatusDraft
	}
	draft.CreatedAt = now
	draft.UpdatedAt = now
	if draft.ExpiresAt.IsZero() {
		draft.ExpiresAt = now.Add(domain.DefaultTTL)
	}
	return r.db.Create(draft).Error
}

func (r *gormDraftRepository) CreateReplacingActive(draft *domain.EmailDraft) error {
	now := time.Now()
	if draft.ID == "" {
		draft.ID = uuid.New().String()
	}
	if draft.Status == "" {
		draft.Status = domain.StatusDraft
	}
	draft.CreatedAt = now
	draft.UpdatedAt = now
	if draft.ExpiresAt.IsZero() {
		draft.ExpiresAt = now.Add(domain.DefaultTTL)
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.EmailDraft{}).
			Where("user_id = ? AND status = ?", draft.UserID, domain.StatusDraft).
			Updates(map[string]interface{}{
				"status":     domain.StatusCancelled,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}
		return tx.Create(draft).Error
	})
}

func (r *gormDraftRepository) ActiveByUser(userID string, now time.Time) (*domain.EmailDraft, error) {
	var draft domain.EmailDraft
	err := r.db.Where("user_id = ? AND status = ? AND expires_at > ?",
		userID, domain.StatusDraft, now).
		Order("updated_at DESC").
		First(&draft).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &draft, nil
}

func (r *gormDraftRepository) ListOpen(userID string, now time.Time) ([]*domain.EmailDraft, error) {
	var drafts []*domain.EmailDraft
	err := r.db.Where("user_id = ? AND status IN ? AND expires_at > ?",
		userID, []domain.DraftStatus{domain.StatusDraft, domain.StatusKept}, now).
		Order("updated_at DESC").
		Find(&drafts).Error
	return drafts, err
}

func (r *gormDraftRepository) Update(draft *domain.EmailDraft) error {
	draft.UpdatedAt = time.Now()
	return r.db.Save(draft).Error
}

func (r *gormDraftRepository) CancelActive(userID string) error {
	return r.db.Model(&domain.EmailDraft{}).
		Where("user_id = ? AND status = ?", userID, domain.StatusDraft).
		Updates(map[string]interface{}{
			"status":     domain.StatusCancelled,
			"updated_at": time.Now(),
		}).Error
}

func (r *gormDraftRepository) DeleteExpired(now time.Time) (int64, error) {
	result := r.db.Delete(&domain.EmailDraft{}, "expires_at <= ?", now)
	return result.RowsAffected, result.Error
}
