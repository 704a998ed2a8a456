package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"copium-tutor/internal/backboard"
	"copium-tutor/internal/model"
	"copium-tutor/internal/repository"
)

const fiveQuestionReply = "Here is your quiz:\n```json\n" + `{
  "questions": [
    {"id": "q1", "question": "Powerhouse of the cell?", "choices": ["Nucleus", "Mitochondria", "Ribosome", "Golgi"], "answer": "B"},
    {"id": "q2", "question": "Site of protein synthesis?", "options": ["Nucleus", "Lysosome", "Ribosome", "Vacuole"], "correct_index": 2},
    {"id": "q3", "question": "Capital of France?", "choices": ["Paris", "Rome", "Berlin", "Madrid"], "correct_answer": "paris"},
    {"id": "q4", "question": "Which stores DNA?", "choices": {"A": "Nucleus", "B": "Membrane", "C": "Cytoplasm", "D": "Wall"}},
    {"id": "q5", "question": "Largest organelle in plant cells?", "choices": ["Nucleus", "Ribosome", "Plastid", "Central vacuole", "Cell wall"], "answer": "D"}
  ],
  "answers": {"q4": "A"},
  "explanations": {"q1": "ATP is made in mitochondria."}
}` + "\n```"

func newTestEngine(db *gorm.DB, fake *fakeMemory, readyTimeout time.Duration) *GenerationEngine {
	return NewGenerationEngine(db, fake, NewMemorySessionManager(fake, discardLogger()), EngineOptions{
		ReadyTimeout: readyTimeout,
		PollInterval: time.Millisecond,
		Message:      backboard.MessageOptions{LLMProvider: "openai", ModelName: "gpt-4o"},
	}, discardLogger())
}

// readyProject seeds a project whose two documents are indexed and whose
// thread reports them processed.
func readyProject(t *testing.T, db *gorm.DB, fake *fakeMemory) string {
	t.Helper()
	seedProject(t, db, "p1", "u1")
	attachFile(t, db, "p1", "f1", "lecture-1.pdf")
	attachFile(t, db, "p1", "f2", "lecture-2.pdf")
	markIndexed(t, db, "p1", "f1", "f2")
	thread := fake.addSession(t, db, "p1")
	fake.setDocs(thread, "indexed", "Processed")
	return thread
}

func pendingQuiz(t *testing.T, db *gorm.DB, quizType string, n int, docIDs ...string) string {
	t.Helper()
	quiz := &model.Quiz{
		ID:           uuid.NewString(),
		ProjectID:    "p1",
		UserID:       "u1",
		Title:        "Cells (" + strings.ToUpper(quizType) + ")",
		Topic:        "Cells",
		QuizType:     quizType,
		NumQuestions: n,
		DocumentIDs:  docIDs,
		Status:       model.QuizPending,
	}
	require.NoError(t, db.Create(quiz).Error)
	return quiz.ID
}

func loadQuiz(t *testing.T, db *gorm.DB, id string) *model.Quiz {
	t.Helper()
	quiz, err := repository.NewQuizRepository(db).GetByID(id)
	require.NoError(t, err)
	require.NotNil(t, quiz)
	return quiz
}

func failureText(q *model.Quiz) string {
	if q.GenerationError == nil {
		return ""
	}
	return *q.GenerationError
}

func TestEngineGeneratesMCQQuiz(t *testing.T) {
	db := newTestDB(t)
	fake := newFakeMemory()
	readyProject(t, db, fake)
	fake.replies = []string{fiveQuestionReply}
	id := pendingQuiz(t, db, model.QuizTypeMCQ, 5, "f1", "f2")

	require.NoError(t, newTestEngine(db, fake, time.Second).Run(t.Context(), id))

	quiz := loadQuiz(t, db, id)
	assert.Equal(t, model.QuizReady, quiz.Status)
	assert.Nil(t, quiz.GenerationError)
	require.Len(t, quiz.Questions.Questions, 5)

	want := map[string]float64{"q1": 1, "q2": 2, "q3": 0, "q4": 0, "q5": 3}
	for _, q := range quiz.Questions.Questions {
		assert.Len(t, q.Choices, 4, q.ID)
		idx, ok := quiz.AnswerKey[q.ID].(float64)
		require.True(t, ok, q.ID)
		assert.GreaterOrEqual(t, idx, 0.0)
		assert.LessOrEqual(t, idx, 3.0)
		assert.Equal(t, want[q.ID], idx, q.ID)
	}
	assert.Equal(t, "ATP is made in mitochondria.", quiz.Explanations["q1"])
	assert.Equal(t, "", quiz.Explanations["q2"])

	prompts := fake.sent()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "lecture-1.pdf")
	assert.Equal(t, backboard.MemoryAuto, fake.options[0].Memory)
}

func TestEngineGeneratesShortAnswerQuiz(t *testing.T) {
	db := newTestDB(t)
	fake := newFakeMemory()
	readyProject(t, db, fake)
	fake.replies = []string{`[{"question": "Define osmosis.", "answer": "  movement of water across a membrane "}, {"prompt": ""}]`}
	id := pendingQuiz(t, db, model.QuizTypeShort, 3, "f1")

	require.NoError(t, newTestEngine(db, fake, time.Second).Run(t.Context(), id))

	quiz := loadQuiz(t, db, id)
	assert.Equal(t, model.QuizReady, quiz.Status)
	require.Len(t, quiz.Questions.Questions, 1)
	assert.Equal(t, "q1", quiz.Questions.Questions[0].ID)
	assert.Empty(t, quiz.Questions.Questions[0].Choices)
	assert.Equal(t, "movement of water across a membrane", quiz.AnswerKey["q1"])
}

func TestEngineRetriesOnceOnEmptyReply(t *testing.T) {
	db := newTestDB(t)
	fake := newFakeMemory()
	readyProject(t, db, fake)
	fake.replies = []string{"I could not find anything.", fiveQuestionReply}
	id := pendingQuiz(t, db, model.QuizTypeMCQ, 2, "f1", "f2")

	require.NoError(t, newTestEngine(db, fake, time.Second).Run(t.Context(), id))

	quiz := loadQuiz(t, db, id)
	assert.Equal(t, model.QuizReady, quiz.Status)
	assert.Len(t, quiz.Questions.Questions, 2)

	prompts := fake.sent()
	require.Len(t, prompts, 2)
	assert.NotContains(t, prompts[0], retryMarker)
	assert.Contains(t, prompts[1], retryMarker)
}

const retryMarker = "Do not return an empty questions list."

func TestEngineFailures(t *testing.T) {
	cases := []struct {
		name    string
		setup   func(fake *fakeMemory, thread string)
		docIDs  []string
		timeout time.Duration
		want    string
		prompts int
	}{
		{
			name:   "no api key",
			setup:  func(fake *fakeMemory, _ string) { fake.configured = false },
			docIDs: []string{"f1"},
			want:   msgNoAPIKey,
		},
		{
			name:   "no documents",
			docIDs: nil,
			want:   msgNoDocuments,
		},
		{
			name:   "document not indexed",
			docIDs: []string{"f1", "f3"},
			want:   msgNotIndexed,
		},
		{
			name:   "thread has no documents",
			setup:  func(fake *fakeMemory, thread string) { fake.setDocs(thread) },
			docIDs: []string{"f1"},
			want:   msgNoThreadDocs,
		},
		{
			name:    "documents still indexing",
			setup:   func(fake *fakeMemory, thread string) { fake.setDocs(thread, "indexed", "processing") },
			docIDs:  []string{"f1"},
			timeout: 20 * time.Millisecond,
			want:    msgStillIndexing,
		},
		{
			name:    "no questions after retry",
			setup:   func(fake *fakeMemory, _ string) { fake.replies = []string{"{}", `{"questions": []}`} },
			docIDs:  []string{"f1"},
			want:    msgNoQuestions,
			prompts: 2,
		},
		{
			name: "upstream error",
			setup: func(fake *fakeMemory, _ string) {
				fake.sendErr = &backboard.APIError{Status: 502, Body: "bad gateway"}
			},
			docIDs:  []string{"f1"},
			want:    "Quiz generation failed (upstream: ",
			prompts: 1,
		},
		{
			name:   "panic",
			setup:  func(fake *fakeMemory, _ string) { fake.panicOnSend = true },
			docIDs: []string{"f1"},
			want:   "Quiz generation failed (internal: panic: boom)",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := newTestDB(t)
			fake := newFakeMemory()
			thread := readyProject(t, db, fake)
			if tc.setup != nil {
				tc.setup(fake, thread)
			}
			timeout := tc.timeout
			if timeout == 0 {
				timeout = time.Second
			}
			id := pendingQuiz(t, db, model.QuizTypeMCQ, 3, tc.docIDs...)

			require.NoError(t, newTestEngine(db, fake, timeout).Run(t.Context(), id))

			quiz := loadQuiz(t, db, id)
			assert.Equal(t, model.QuizFailed, quiz.Status)
			assert.True(t, strings.HasPrefix(failureText(quiz), tc.want), failureText(quiz))
			assert.Empty(t, quiz.Questions.Questions)
			assert.Len(t, fake.sent(), tc.prompts)
		})
	}
}

func TestEngineLeavesTerminalQuizAlone(t *testing.T) {
	db := newTestDB(t)
	fake := newFakeMemory()
	readyProject(t, db, fake)
	fake.replies = []string{fiveQuestionReply}
	id := pendingQuiz(t, db, model.QuizTypeMCQ, 5, "f1")
	engine := newTestEngine(db, fake, time.Second)

	require.NoError(t, engine.Run(t.Context(), id))
	require.Equal(t, model.QuizReady, loadQuiz(t, db, id).Status)

	fake.replies = []string{`{"questions": []}`}
	require.NoError(t, engine.Run(t.Context(), id))

	quiz := loadQuiz(t, db, id)
	assert.Equal(t, model.QuizReady, quiz.Status)
	assert.Len(t, quiz.Questions.Questions, 5)
	assert.Len(t, fake.sent(), 1)
}

func TestEngineLeavesInterruptedJobResumable(t *testing.T) {
	db := newTestDB(t)
	fake := newFakeMemory()
	thread := readyProject(t, db, fake)
	fake.setDocs(thread, "processing")
	id := pendingQuiz(t, db, model.QuizTypeMCQ, 5, "f1")
	engine := newTestEngine(db, fake, time.Second)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	err := engine.Run(ctx, id)
	assert.ErrorIs(t, err, ErrJobInterrupted)

	quiz := loadQuiz(t, db, id)
	assert.Equal(t, model.QuizGenerating, quiz.Status)
	assert.Empty(t, failureText(quiz))

	fake.setDocs(thread, "indexed")
	fake.replies = []string{fiveQuestionReply}
	require.NoError(t, engine.Run(t.Context(), id))
	assert.Equal(t, model.QuizReady, loadQuiz(t, db, id).Status)
}

func TestEngineUnknownQuiz(t *testing.T) {
	db := newTestDB(t)
	err := newTestEngine(db, newFakeMemory(), time.Second).Run(t.Context(), "missing")
	assert.ErrorIs(t, err, ErrQuizNotFound)
}
