package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"copium-tutor/internal/backboard"
	"copium-tutor/internal/model"
	"copium-tutor/internal/platform/database"
)

// fakeMemory is an in-process memory service. Threads and assistants live in
// maps; replies are served in order.
type fakeMemory struct {
	mu sync.Mutex

	configured   bool
	nextID       int
	assistants   map[string]bool
	threads      map[string]string
	docs         map[string][]backboard.Document
	uploadStatus string
	failUploads  map[string]error
	getThreadErr error
	replies      []string
	sendErr      error
	panicOnSend  bool

	// createGate, when set, holds CreateAssistant until it is closed.
	createGate    chan struct{}
	createEntered chan struct{}

	uploads  []string
	prompts  []string
	options  []backboard.MessageOptions
	created  int
	threadsN int
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{
		configured:   true,
		assistants:   map[string]bool{},
		threads:      map[string]string{},
		docs:         map[string][]backboard.Document{},
		uploadStatus: "indexed",
		failUploads:  map[string]error{},
	}
}

func (f *fakeMemory) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeMemory) Configured() bool { return f.configured }

func (f *fakeMemory) CreateAssistant(ctx context.Context, name, description string) (*backboard.Assistant, error) {
	if f.createGate != nil {
		select {
		case f.createEntered <- struct{}{}:
		default:
		}
		select {
		case <-f.createGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	id := f.id("asst")
	f.assistants[id] = true
	return &backboard.Assistant{AssistantID: id, Name: name, Description: description}, nil
}

func (f *fakeMemory) CreateThread(_ context.Context, assistantID string) (*backboard.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.assistants[assistantID] {
		return nil, backboard.ErrNotFound
	}
	f.threadsN++
	id := f.id("thread")
	f.threads[id] = assistantID
	return &backboard.Thread{ThreadID: id, AssistantID: assistantID}, nil
}

func (f *fakeMemory) GetThread(_ context.Context, threadID string) (*backboard.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getThreadErr != nil {
		return nil, f.getThreadErr
	}
	assistantID, ok := f.threads[threadID]
	if !ok {
		return nil, backboard.ErrNotFound
	}
	return &backboard.Thread{ThreadID: threadID, AssistantID: assistantID}, nil
}

func (f *fakeMemory) ListThreadDocuments(_ context.Context, threadID string) ([]backboard.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.threads[threadID]; !ok {
		return nil, backboard.ErrNotFound
	}
	return append([]backboard.Document(nil), f.docs[threadID]...), nil
}

func (f *fakeMemory) UploadDocument(_ context.Context, threadID, path string) (*backboard.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.threads[threadID]; !ok {
		return nil, backboard.ErrNotFound
	}
	name := filepath.Base(path)
	if err := f.failUploads[name]; err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	doc := backboard.Document{DocumentID: f.id("doc"), Filename: name, Status: f.uploadStatus}
	f.docs[threadID] = append(f.docs[threadID], doc)
	f.uploads = append(f.uploads, name)
	return &doc, nil
}

func (f *fakeMemory) SendMessage(_ context.Context, _ string, content string, opts backboard.MessageOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOnSend {
		panic("boom")
	}
	f.prompts = append(f.prompts, content)
	f.options = append(f.options, opts)
	if f.sendErr != nil {
		return "", f.sendErr
	}
	if len(f.replies) == 0 {
		return "", nil
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

// addSession registers a live assistant and thread and stores the row.
func (f *fakeMemory) addSession(t *testing.T, db *gorm.DB, projectID string) string {
	t.Helper()
	f.mu.Lock()
	assistantID := f.id("asst")
	threadID := f.id("thread")
	f.assistants[assistantID] = true
	f.threads[threadID] = assistantID
	f.mu.Unlock()

	require.NoError(t, db.Create(&model.MemorySession{
		ProjectID:   projectID,
		AssistantID: assistantID,
		ThreadID:    threadID,
	}).Error)
	return threadID
}

func (f *fakeMemory) setDocs(threadID string, statuses ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	docs := make([]backboard.Document, 0, len(statuses))
	for _, s := range statuses {
		docs = append(docs, backboard.Document{DocumentID: f.id("doc"), Status: s})
	}
	f.docs[threadID] = docs
}

func (f *fakeMemory) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedProject(t *testing.T, db *gorm.DB, projectID, userID string) {
	t.Helper()
	require.NoError(t, db.Create(&model.Project{ID: projectID, UserID: userID, Name: "Biology 101"}).Error)
}

// attachFile stores a file row for path and attaches it to the project.
func attachFile(t *testing.T, db *gorm.DB, projectID, fileID, path string) {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&model.ProjectFile{}).Where("project_id = ?", projectID).Count(&count).Error)
	require.NoError(t, db.Create(&model.File{
		ID:         fileID,
		Path:       path,
		Size:       1,
		UploadedAt: time.Now().Add(time.Duration(count) * time.Second),
	}).Error)
	require.NoError(t, db.Create(&model.ProjectFile{ProjectID: projectID, FileID: fileID}).Error)
}

func markIndexed(t *testing.T, db *gorm.DB, projectID string, fileIDs ...string) {
	t.Helper()
	for _, id := range fileIDs {
		require.NoError(t, db.Create(&model.IndexRecord{
			ProjectID:   projectID,
			FileID:      id,
			ContentHash: "hash-" + id,
			IndexedAt:   time.Now(),
		}).Error)
	}
}

func countRecords(t *testing.T, db *gorm.DB, projectID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&model.IndexRecord{}).Where("project_id = ?", projectID).Count(&n).Error)
	return n
}
