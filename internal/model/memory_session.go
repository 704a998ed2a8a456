package model

import "time"

// MemorySession links a project to its remote assistant and thread.
type MemorySession struct {
	ProjectID   string    `gorm:"primaryKey;size:64" json:"project_id"`
	AssistantID string    `gorm:"size:128;not null" json:"assistant_id"`
	ThreadID    string    `gorm:"size:128;not null" json:"thread_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
