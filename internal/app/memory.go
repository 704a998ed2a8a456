package app

import (
	"context"

	"copium-tutor/internal/backboard"
)

// MemoryService is the part of the memory service API the pipeline drives.
// *backboard.Client implements it.
type MemoryService interface {
	Configured() bool
	CreateAssistant(ctx context.Context, name, description string) (*backboard.Assistant, error)
	CreateThread(ctx context.Context, assistantID string) (*backboard.Thread, error)
	GetThread(ctx context.Context, threadID string) (*backboard.Thread, error)
	ListThreadDocuments(ctx context.Context, threadID string) ([]backboard.Document, error)
	UploadDocument(ctx context.Context, threadID, path string) (*backboard.Document, error)
	SendMessage(ctx context.Context, threadID, content string, opts backboard.MessageOptions) (string, error)
}

// Dispatcher schedules a generation run for a quiz id.
type Dispatcher interface {
	Enqueue(ctx context.Context, quizID string) error
}

// ProjectLocker serializes work on one project. Acquire returns a release
// func, or an error when the project is already locked.
type ProjectLocker interface {
	Acquire(ctx context.Context, projectID string) (func(), error)
}
