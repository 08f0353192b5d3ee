package repository

import (
	"time"

	"assistant-backend/internal/conversation/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// gormConversationRepository implements ConversationRepository using GORM
type gormConversationRepository struct {
	db *gorm.DB
}

// NewGormConversationRepository creates a new GORM-based ConversationRepository
func NewGormConversationRepository(db *gorm.DB) ConversationRepository {
	db.AutoMigrate(&domain.Conversation{})
	return &gormConversationRepository{db: db}
}

func (r *gormConversationRepository) Create(conversation *domain.Conversation) error {
	if conversation.ID == "" {
		conversation.ID = uuid.New().String()
	}
	conversation.CreatedAt = time.Now()
	return r.db.Create(conversation).Error
}

func (r *gormConversationRepository) FindByID(id string) (*domain.Conversation, error) {
	var conversation domain.Conversation
	err := r.db.Where("id = ?", id).First(&conversation).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &conversation, nil
}

func (r *gormConversationRepository) FindByIDs(ids []string) ([]*domain.Conversation, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var rows []*domain.Conversation
	if err := r.db.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.Conversation, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	ordered := make([]*domain.Conversation, 0, len(rows))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			ordered = append(ordered, row)
		}
	}
	return ordered, nil
}

func (r *gormConversationRepository) RecentByUser(userID string, limit int) ([]*domain.Conversation, error) {
	var conversations []*domain.Conversation
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&conversations).Error
	if err != nil {
		return nil, err
	}

	// Oldest first
	for i, j := 0, len(conversations)-1; i < j; i, j = i+1, j-1 {
		conversations[i], conversations[j] = conversations[j], conversations[i]
	}
	return conversations, nil
}

func (r *gormConversationRepository) CountByUser(userID string) (int64, error) {
	var count int64
	err := r.db.Model(&domain.Conversation{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *gormConversationRepository) IDsByUser(userID string) ([]string, error) {
	var ids []string
	err := r.db.Model(&domain.Conversation{}).Where("user_id = ?", userID).Pluck("id", &ids).Error
	return ids, err
}

func (r *gormConversationRepository) AllIDs() ([]string, error) {
	var ids []string
	err := r.db.Model(&domain.Conversation{}).Pluck("id", &ids).Error
	return ids, err
}

func (r *gormConversationRepository) DeleteByUser(userID string) error {
	return r.db.Delete(&domain.Conversation{}, "user_id = ?", userID).Error
}

func (r *gormConversationRepository) DeleteAll() error {
	return r.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&domain.Conversation{}).Error
}
