package repository

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"copium-tutor/internal/model"
	"copium-tutor/internal/platform/database"
)

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

func seedProjectFiles(t *testing.T, db *gorm.DB, projectID string, fileIDs ...string) {
	t.Helper()
	require.NoError(t, db.Create(&model.Project{ID: projectID, UserID: "u1", Name: "Course"}).Error)
	base := time.Now().Add(-time.Hour)
	for i, id := range fileIDs {
		require.NoError(t, db.Create(&model.File{ID: id, Path: id + ".pdf", Size: 10, UploadedAt: base.Add(time.Duration(i) * time.Minute)}).Error)
		require.NoError(t, db.Create(&model.ProjectFile{ProjectID: projectID, FileID: id}).Error)
	}
}

func TestFileRepositoryListByProjectID(t *testing.T) {
	db := newTestDB(t)
	seedProjectFiles(t, db, "p1", "f1", "f2")
	seedProjectFiles(t, db, "p2", "f3")
	repo := NewFileRepository(db)

	files, err := repo.ListByProjectID("p1")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "f1", files[0].ID)
	assert.Equal(t, "f2", files[1].ID)

	byID, err := repo.ListByIDs([]string{"f3", "missing"})
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, "f3", byID[0].ID)
}

func TestIndexRecordInsertIfAbsent(t *testing.T) {
	db := newTestDB(t)
	repo := NewIndexRecordRepository(db)

	rec := &model.IndexRecord{ProjectID: "p1", FileID: "f1", ContentHash: "h1", IndexedAt: time.Now()}
	inserted, err := repo.InsertIfAbsent(rec)
	require.NoError(t, err)
	assert.True(t, inserted)

	dup := &model.IndexRecord{ProjectID: "p1", FileID: "f1", ContentHash: "h1", IndexedAt: time.Now()}
	inserted, err = repo.InsertIfAbsent(dup)
	require.NoError(t, err)
	assert.False(t, inserted)

	ok, err := repo.Exists("p1", "f1", "h1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.Exists("p1", "f1", "h2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIndexRecordCountIndexedFilesIgnoresHash(t *testing.T) {
	db := newTestDB(t)
	repo := NewIndexRecordRepository(db)
	for _, rec := range []model.IndexRecord{
		{ProjectID: "p1", FileID: "f1", ContentHash: "old", IndexedAt: time.Now()},
		{ProjectID: "p1", FileID: "f1", ContentHash: "new", IndexedAt: time.Now()},
		{ProjectID: "p1", FileID: "f2", ContentHash: "h", IndexedAt: time.Now()},
		{ProjectID: "p2", FileID: "f3", ContentHash: "h", IndexedAt: time.Now()},
	} {
		_, err := repo.InsertIfAbsent(&rec)
		require.NoError(t, err)
	}

	n, err := repo.CountIndexedFiles("p1", []string{"f1", "f2", "f3"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = repo.CountIndexedFiles("p1", nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	records, err := repo.ListByProjectID("p1")
	require.NoError(t, err)
	assert.Len(t, records, 3, "history keeps every hash")
}

func TestMemorySessionLifecycle(t *testing.T) {
	db := newTestDB(t)
	sessions := NewMemorySessionRepository(db)
	records := NewIndexRecordRepository(db)

	got, err := sessions.GetByProjectID("p1")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = records.InsertIfAbsent(&model.IndexRecord{ProjectID: "p1", FileID: "f1", ContentHash: "h", IndexedAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, sessions.Replace(&model.MemorySession{ProjectID: "p1", AssistantID: "a1", ThreadID: "t1"}))

	n, err := records.CountIndexedFiles("p1", []string{"f1"})
	require.NoError(t, err)
	assert.Zero(t, n, "a new session starts without index records")

	_, err = records.InsertIfAbsent(&model.IndexRecord{ProjectID: "p1", FileID: "f1", ContentHash: "h", IndexedAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, sessions.ReplaceThread("p1", "t2"))

	got, err = sessions.GetByProjectID("p1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a1", got.AssistantID)
	assert.Equal(t, "t2", got.ThreadID)
	n, err = records.CountIndexedFiles("p1", []string{"f1"})
	require.NoError(t, err)
	assert.Zero(t, n, "thread repair invalidates index records")

	assert.Error(t, sessions.ReplaceThread("missing", "t3"))

	require.NoError(t, sessions.Delete("p1"))
	got, err = sessions.GetByProjectID("p1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func newQuiz(id string, status model.QuizStatus) *model.Quiz {
	return &model.Quiz{
		ID:           id,
		ProjectID:    "p1",
		UserID:       "u1",
		Title:        "Cells (MCQ)",
		Topic:        "Cells",
		QuizType:     model.QuizTypeMCQ,
		NumQuestions: 2,
		DocumentIDs:  []string{"f1"},
		Status:       status,
	}
}

func TestQuizTransitionsRespectTerminalStates(t *testing.T) {
	db := newTestDB(t)
	repo := NewQuizRepository(db)
	require.NoError(t, repo.Create(newQuiz("q1", model.QuizPending)))

	changed, err := repo.Transition("q1", []model.QuizStatus{model.QuizPending}, model.QuizGenerating)
	require.NoError(t, err)
	assert.True(t, changed)

	set := model.QuestionSet{Questions: []model.Question{
		{ID: "q1", Type: model.QuizTypeMCQ, Question: "Powerhouse?", Choices: []string{"Nucleus", "Mitochondria"}},
	}}
	changed, err = repo.SaveReady("q1", set, map[string]any{"q1": 1}, map[string]string{"q1": "ATP"})
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.MarkFailed("q1", "late failure")
	require.NoError(t, err)
	assert.False(t, changed, "ready is terminal")

	quiz, err := repo.GetByID("q1")
	require.NoError(t, err)
	require.NotNil(t, quiz)
	assert.Equal(t, model.QuizReady, quiz.Status)
	assert.Nil(t, quiz.GenerationError)
	assert.Equal(t, 1, quiz.NumQuestions)
	require.Len(t, quiz.Questions.Questions, 1)
	assert.Equal(t, []string{"Nucleus", "Mitochondria"}, quiz.Questions.Questions[0].Choices)
	assert.EqualValues(t, 1, quiz.AnswerKey["q1"])
	assert.Equal(t, "ATP", quiz.Explanations["q1"])
	assert.Equal(t, []string{"f1"}, quiz.DocumentIDs)
}

func TestQuizFailAndReset(t *testing.T) {
	db := newTestDB(t)
	repo := NewQuizRepository(db)
	require.NoError(t, repo.Create(newQuiz("q1", model.QuizPending)))

	changed, err := repo.ResetForRetry("q1")
	require.NoError(t, err)
	assert.False(t, changed, "only failed quizzes can be reset")

	changed, err = repo.MarkFailed("q1", "No documents selected.")
	require.NoError(t, err)
	assert.True(t, changed)

	quiz, err := repo.GetByID("q1")
	require.NoError(t, err)
	require.NotNil(t, quiz.GenerationError)
	assert.Equal(t, "No documents selected.", *quiz.GenerationError)

	changed, err = repo.ResetForRetry("q1")
	require.NoError(t, err)
	assert.True(t, changed)

	quiz, err = repo.GetByID("q1")
	require.NoError(t, err)
	assert.Equal(t, model.QuizPending, quiz.Status)
	assert.Nil(t, quiz.GenerationError)
}

func TestQuizListAndOwnership(t *testing.T) {
	db := newTestDB(t)
	repo := NewQuizRepository(db)
	require.NoError(t, repo.Create(newQuiz("q1", model.QuizPending)))
	other := newQuiz("q2", model.QuizPending)
	other.UserID = "u2"
	require.NoError(t, repo.Create(other))

	quizzes, err := repo.ListByProjectID("p1", "u1")
	require.NoError(t, err)
	require.Len(t, quizzes, 1)
	assert.Equal(t, "q1", quizzes[0].ID)

	quiz, err := repo.GetByIDAndUserID("q2", "u1")
	require.NoError(t, err)
	assert.Nil(t, quiz)
}

func TestDeckCreateWithCards(t *testing.T) {
	db := newTestDB(t)
	repo := NewDeckRepository(db)
	deck := &model.Deck{ID: "d1", ProjectID: "p1", UserID: "u1", Name: "Cells", Prompt: "cells"}
	cards := []model.Card{
		{ID: "c2", DeckID: "d1", Front: "B", Back: "b", Position: 1},
		{ID: "c1", DeckID: "d1", Front: "A", Back: "a", Position: 0},
	}
	require.NoError(t, repo.CreateWithCards(deck, cards))

	got, err := repo.GetByIDAndUserID("d1", "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	listed, err := repo.ListCards("d1")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "A", listed[0].Front)
}

func TestStoreCloseCancelsSession(t *testing.T) {
	db := newTestDB(t)
	store := OpenStore(t.Context(), db)
	require.NoError(t, store.Quizzes.Create(newQuiz("q1", model.QuizPending)))
	store.Close()

	_, err := store.Quizzes.GetByID("q1")
	assert.Error(t, err)
}

func TestChatRepositoryUpdateAndDelete(t *testing.T) {
	db := newTestDB(t)
	chats := NewChatRepository(db)
	messages := NewChatMessageRepository(db)

	old := time.Now().Add(-time.Hour)
	require.NoError(t, chats.Create(&model.Chat{ID: "c1", ProjectID: "p1", UserID: "u1", Title: "New chat", LLMProvider: "openai", ModelName: "gpt-4o", CreatedAt: old, UpdatedAt: old}))
	require.NoError(t, chats.Create(&model.Chat{ID: "c2", ProjectID: "p1", UserID: "u1", Title: "Other", LLMProvider: "openai", ModelName: "gpt-4o", CreatedAt: old, UpdatedAt: old.Add(time.Minute)}))

	found, err := chats.Update("c1", "u2", map[string]any{"title": "Nope"})
	require.NoError(t, err)
	assert.False(t, found)
	found, err = chats.Update("c1", "u1", map[string]any{"title": "Cells"})
	require.NoError(t, err)
	assert.True(t, found)

	listed, err := chats.ListByProjectID("p1", "u1")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "c1", listed[0].ID)
	assert.Equal(t, "Cells", listed[0].Title)

	msg := &model.ChatMessage{ID: "m1", ChatID: "c1", UserID: "u1", Role: model.ChatRoleUser, Content: "hi", CreatedAt: time.Now()}
	require.NoError(t, messages.Create(msg))
	require.NoError(t, messages.Create(msg))
	n, err := messages.CountByChatID("c1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	deleted, err := chats.DeleteWithMessages("c1", "u2")
	require.NoError(t, err)
	assert.False(t, deleted)
	deleted, err = chats.DeleteWithMessages("c1", "u1")
	require.NoError(t, err)
	assert.True(t, deleted)

	n, err = messages.CountByChatID("c1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeckRepositoryCards(t *testing.T) {
	db := newTestDB(t)
	decks := NewDeckRepository(db)

	deck := &model.Deck{ID: "d1", ProjectID: "p1", UserID: "u1", Name: "Cells", Prompt: "x", CreatedAt: time.Now()}
	require.NoError(t, decks.CreateWithCards(deck, []model.Card{
		{ID: "k1", DeckID: "d1", Front: "a", Back: "b", Position: 0},
		{ID: "k2", DeckID: "d1", Front: "c", Back: "d", Position: 4},
	}))

	card := &model.Card{ID: "k3", DeckID: "d1", Front: "e", Back: "f"}
	require.NoError(t, decks.AppendCard(card))
	assert.Equal(t, 5, card.Position)

	deleted, err := decks.DeleteCard("k3", "u2")
	require.NoError(t, err)
	assert.False(t, deleted)
	deleted, err = decks.DeleteCard("k3", "u1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = decks.DeleteWithCards("d1", "u1")
	require.NoError(t, err)
	assert.True(t, deleted)
	cards, err := decks.ListCards("d1")
	require.NoError(t, err)
	assert.Empty(t, cards)
}
