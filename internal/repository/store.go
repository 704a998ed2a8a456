package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store bundles the repositories a single background task needs over its own
// session. Close cancels the session context so no statement outlives the task.
type Store struct {
	Projects     *ProjectRepository
	Files        *FileRepository
	IndexRecords *IndexRecordRepository
	Sessions     *MemorySessionRepository
	Quizzes      *QuizRepository
	Attempts     *AttemptRepository
	Decks        *DeckRepository
	Chats        *ChatRepository
	ChatMessages *ChatMessageRepository
	cancel       context.CancelFunc
}

func OpenStore(ctx context.Context, db *gorm.DB) *Store {
	ctx, cancel := context.WithCancel(ctx)
	handle := db.Session(&gorm.Session{NewDB: true, Context: ctx})
	return &Store{
		Projects:     NewProjectRepository(handle),
		Files:        NewFileRepository(handle),
		IndexRecords: NewIndexRecordRepository(handle),
		Sessions:     NewMemorySessionRepository(handle),
		Quizzes:      NewQuizRepository(handle),
		Attempts:     NewAttemptRepository(handle),
		Decks:        NewDeckRepository(handle),
		Chats:        NewChatRepository(handle),
		ChatMessages: NewChatMessageRepository(handle),
		cancel:       cancel,
	}
}

func (s *Store) Close() {
	s.cancel()
}
