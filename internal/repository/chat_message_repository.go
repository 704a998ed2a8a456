package repository

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"copium-tutor/internal/model"
)

type ChatMessageRepository struct {
	db *gorm.DB
}

func NewChatMessageRepository(db *gorm.DB) *ChatMessageRepository {
	return &ChatMessageRepository{db: db}
}

// Create stores the message. A message id that already exists is ignored,
// so a redelivered message is written once.
func (r *ChatMessageRepository) Create(message *model.ChatMessage) error {
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(message).Error; err != nil {
		return fmt.Errorf("create chat message failed: %w", err)
	}
	return nil
}

func (r *ChatMessageRepository) ListByChatID(chatID string, limit int) ([]model.ChatMessage, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}

	var messages []model.ChatMessage
	err := r.db.
		Where("chat_id = ?", chatID).
		Order("created_at ASC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("list chat messages failed: %w", err)
	}
	return messages, nil
}

func (r *ChatMessageRepository) CountByChatID(chatID string) (int64, error) {
	var n int64
	if err := r.db.Model(&model.ChatMessage{}).Where("chat_id = ?", chatID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count chat messages failed: %w", err)
	}
	return n, nil
}
