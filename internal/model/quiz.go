package model

import "time"

type QuizStatus string

const (
	QuizPending    QuizStatus = "pending"
	QuizGenerating QuizStatus = "generating"
	QuizReady      QuizStatus = "ready"
	QuizFailed     QuizStatus = "failed"
)

// Terminal reports whether no further engine transition may leave s.
func (s QuizStatus) Terminal() bool {
	return s == QuizReady || s == QuizFailed
}

const (
	QuizTypeMCQ   = "mcq"
	QuizTypeShort = "short"
	QuizTypeLong  = "long"
)

// Question is one normalized quiz question. Choices is set for mcq only.
type Question struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Question string   `json:"question"`
	Choices  []string `json:"choices,omitempty"`
}

type QuestionSet struct {
	Questions []Question `json:"questions"`
}

// Quiz is a generation job and, once ready, the generated quiz itself.
// AnswerKey values are choice indexes for mcq and trimmed text otherwise.
type Quiz struct {
	ID              string            `gorm:"primaryKey;size:64" json:"quiz_id"`
	ProjectID       string            `gorm:"size:64;not null;index" json:"project_id"`
	UserID          string            `gorm:"size:64;not null;index" json:"user_id"`
	Title           string            `gorm:"size:256;not null" json:"title"`
	Topic           string            `gorm:"type:text;not null" json:"topic"`
	QuizType        string            `gorm:"size:16;not null" json:"quiz_type"`
	NumQuestions    int               `gorm:"not null" json:"num_questions"`
	DocumentIDs     []string          `gorm:"type:text;serializer:json" json:"document_ids"`
	Questions       QuestionSet       `gorm:"type:text;serializer:json" json:"-"`
	AnswerKey       map[string]any    `gorm:"type:text;serializer:json" json:"-"`
	Explanations    map[string]string `gorm:"type:text;serializer:json" json:"-"`
	Status          QuizStatus        `gorm:"size:16;not null;index" json:"status"`
	GenerationError *string           `gorm:"type:text" json:"generation_error"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}
