package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"copium-tutor/internal/model"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Create(chat *model.Chat) error {
	if err := r.db.Create(chat).Error; err != nil {
		return fmt.Errorf("create chat failed: %w", err)
	}
	return nil
}

func (r *ChatRepository) GetByIDAndUserID(id, userID string) (*model.Chat, error) {
	var chat model.Chat
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&chat).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chat failed: %w", err)
	}
	return &chat, nil
}

func (r *ChatRepository) ListByProjectID(projectID, userID string) ([]model.Chat, error) {
	var chats []model.Chat
	err := r.db.
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Order("updated_at DESC").
		Find(&chats).Error
	if err != nil {
		return nil, fmt.Errorf("list chats failed: %w", err)
	}
	return chats, nil
}

func (r *ChatRepository) ListByUserID(userID string) ([]model.Chat, error) {
	var chats []model.Chat
	if err := r.db.Where("user_id = ?", userID).Order("updated_at DESC").Find(&chats).Error; err != nil {
		return nil, fmt.Errorf("list chats failed: %w", err)
	}
	return chats, nil
}

// Update writes the given columns and bumps updated_at. It reports whether
// the chat exists for the user.
func (r *ChatRepository) Update(id, userID string, fields map[string]any) (bool, error) {
	fields["updated_at"] = time.Now()
	res := r.db.Model(&model.Chat{}).Where("id = ? AND user_id = ?", id, userID).Updates(fields)
	if res.Error != nil {
		return false, fmt.Errorf("update chat failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// DeleteWithMessages removes the chat and its messages in one transaction.
func (r *ChatRepository) DeleteWithMessages(id, userID string) (bool, error) {
	var deleted bool
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&model.Chat{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		if !deleted {
			return nil
		}
		return tx.Where("chat_id = ?", id).Delete(&model.ChatMessage{}).Error
	})
	if err != nil {
		return false, fmt.Errorf("delete chat failed: %w", err)
	}
	return deleted, nil
}
