package model

import "time"

const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// Chat is one conversation inside a project. Every chat of a project talks
// to the same memory thread.
type Chat struct {
	ID          string    `gorm:"primaryKey;size:64" json:"chat_id"`
	ProjectID   string    `gorm:"size:64;not null;index" json:"project_id"`
	UserID      string    `gorm:"size:64;not null;index" json:"user_id"`
	Title       string    `gorm:"size:256;not null" json:"title"`
	LLMProvider string    `gorm:"size:64;not null" json:"llm_provider"`
	ModelName   string    `gorm:"size:128;not null" json:"model_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `gorm:"index" json:"updated_at"`
}

type ChatMessage struct {
	ID        string    `gorm:"primaryKey;size:64" json:"message_id"`
	ChatID    string    `gorm:"size:64;not null;index" json:"chat_id"`
	UserID    string    `gorm:"size:64;not null;index" json:"user_id"`
	Role      string    `gorm:"size:16;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
