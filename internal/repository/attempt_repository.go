package repository

import (
	"fmt"

	"gorm.io/gorm"

	"copium-tutor/internal/model"
)

type AttemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

func (r *AttemptRepository) Create(attempt *model.Attempt) error {
	if err := r.db.Create(attempt).Error; err != nil {
		return fmt.Errorf("create attempt failed: %w", err)
	}
	return nil
}

func (r *AttemptRepository) ListByQuizID(quizID, userID string) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.db.
		Where("quiz_id = ? AND user_id = ?", quizID, userID).
		Order("created_at DESC").
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("list attempts failed: %w", err)
	}
	return attempts, nil
}
