package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"copium-tutor/internal/model"
)

type QuizRepository struct {
	db *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{db: db}
}

func (r *QuizRepository) Create(quiz *model.Quiz) error {
	if err := r.db.Create(quiz).Error; err != nil {
		return fmt.Errorf("create quiz failed: %w", err)
	}
	return nil
}

func (r *QuizRepository) GetByID(id string) (*model.Quiz, error) {
	var quiz model.Quiz
	if err := r.db.Where("id = ?", id).First(&quiz).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get quiz failed: %w", err)
	}
	return &quiz, nil
}

func (r *QuizRepository) GetByIDAndUserID(id, userID string) (*model.Quiz, error) {
	var quiz model.Quiz
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&quiz).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get quiz failed: %w", err)
	}
	return &quiz, nil
}

func (r *QuizRepository) ListByProjectID(projectID, userID string) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	err := r.db.
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Order("created_at DESC").
		Find(&quizzes).Error
	if err != nil {
		return nil, fmt.Errorf("list quizzes failed: %w", err)
	}
	return quizzes, nil
}

func (r *QuizRepository) ListByUserID(userID string) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	if err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&quizzes).Error; err != nil {
		return nil, fmt.Errorf("list quizzes failed: %w", err)
	}
	return quizzes, nil
}

// DeleteWithAttempts removes the quiz and its attempts in one transaction.
// It reports whether the quiz existed for the user.
func (r *QuizRepository) DeleteWithAttempts(id, userID string) (bool, error) {
	var deleted bool
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&model.Quiz{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		if !deleted {
			return nil
		}
		return tx.Where("quiz_id = ?", id).Delete(&model.Attempt{}).Error
	})
	if err != nil {
		return false, fmt.Errorf("delete quiz failed: %w", err)
	}
	return deleted, nil
}

// ListUnfinished returns every quiz still pending or generating, oldest first.
func (r *QuizRepository) ListUnfinished() ([]model.Quiz, error) {
	var quizzes []model.Quiz
	err := r.db.
		Where("status IN ?", []model.QuizStatus{model.QuizPending, model.QuizGenerating}).
		Order("created_at ASC").
		Find(&quizzes).Error
	if err != nil {
		return nil, fmt.Errorf("list unfinished quizzes failed: %w", err)
	}
	return quizzes, nil
}

// Transition moves the quiz to status `to` only while it is in one of `from`.
// It reports whether the row changed.
func (r *QuizRepository) Transition(id string, from []model.QuizStatus, to model.QuizStatus) (bool, error) {
	res := r.db.Model(&model.Quiz{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now()})
	if res.Error != nil {
		return false, fmt.Errorf("transition quiz status failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// SaveReady stores the generated content and marks the quiz ready. It is a
// no-op once the quiz reached a terminal status.
func (r *QuizRepository) SaveReady(id string, questions model.QuestionSet, answerKey map[string]any, explanations map[string]string) (bool, error) {
	update := model.Quiz{
		Questions:    questions,
		AnswerKey:    answerKey,
		Explanations: explanations,
		NumQuestions: len(questions.Questions),
		Status:       model.QuizReady,
		UpdatedAt:    time.Now(),
	}
	res := r.db.Model(&model.Quiz{}).
		Where("id = ? AND status IN ?", id, []model.QuizStatus{model.QuizPending, model.QuizGenerating}).
		Select("questions", "answer_key", "explanations", "num_questions", "status", "generation_error", "updated_at").
		Updates(&update)
	if res.Error != nil {
		return false, fmt.Errorf("save ready quiz failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// MarkFailed records a generation failure unless the quiz is already terminal.
func (r *QuizRepository) MarkFailed(id, message string) (bool, error) {
	res := r.db.Model(&model.Quiz{}).
		Where("id = ? AND status IN ?", id, []model.QuizStatus{model.QuizPending, model.QuizGenerating}).
		Updates(map[string]any{
			"status":           model.QuizFailed,
			"generation_error": message,
			"updated_at":       time.Now(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("mark quiz failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ResetForRetry puts a failed quiz back to pending and clears its error.
func (r *QuizRepository) ResetForRetry(id string) (bool, error) {
	res := r.db.Model(&model.Quiz{}).
		Where("id = ? AND status = ?", id, model.QuizFailed).
		Updates(map[string]any{
			"status":           model.QuizPending,
			"generation_error": gorm.Expr("NULL"),
			"updated_at":       time.Now(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("reset quiz failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
