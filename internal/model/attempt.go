package model

import "time"

// QuestionFeedback is the grading outcome for one question.
type QuestionFeedback struct {
	Correct     bool   `json:"correct"`
	Expected    any    `json:"expected"`
	Response    any    `json:"response"`
	Explanation string `json:"explanation"`
}

// Attempt is an immutable record of one graded submission.
type Attempt struct {
	ID        string                      `gorm:"primaryKey;size:64" json:"attempt_id"`
	QuizID    string                      `gorm:"size:64;not null;index" json:"quiz_id"`
	UserID    string                      `gorm:"size:64;not null;index" json:"user_id"`
	Answers   map[string]any              `gorm:"type:text;serializer:json" json:"answers"`
	Score     int                         `gorm:"not null" json:"score"`
	Feedback  map[string]QuestionFeedback `gorm:"type:text;serializer:json" json:"feedback"`
	CreatedAt time.Time                   `json:"created_at"`
}
