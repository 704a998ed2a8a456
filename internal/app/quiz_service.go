package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"copium-tutor/internal/model"
	"copium-tutor/internal/repository"
	"copium-tutor/internal/study"
)

const defaultMaxQuestions = 50

type QuizService struct {
	projects     *repository.ProjectRepository
	files        *repository.FileRepository
	quizzes      *repository.QuizRepository
	attempts     *repository.AttemptRepository
	dispatcher   Dispatcher
	maxQuestions int
	logger       *slog.Logger
}

func NewQuizService(
	projects *repository.ProjectRepository,
	files *repository.FileRepository,
	quizzes *repository.QuizRepository,
	attempts *repository.AttemptRepository,
	dispatcher Dispatcher,
	maxQuestions int,
	logger *slog.Logger,
) *QuizService {
	if maxQuestions <= 0 {
		maxQuestions = defaultMaxQuestions
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QuizService{
		projects:     projects,
		files:        files,
		quizzes:      quizzes,
		attempts:     attempts,
		dispatcher:   dispatcher,
		maxQuestions: maxQuestions,
		logger:       logger,
	}
}

type CreateQuizInput struct {
	ProjectID    string
	UserID       string
	Topic        string
	QuizType     string
	NumQuestions int
	DocumentIDs  []string
}

// QuizSummary is a quiz listed across projects.
type QuizSummary struct {
	model.Quiz
	ProjectName string `json:"project_name"`
}

// QuizDetail is a quiz as shown to the learner: questions without answers.
type QuizDetail struct {
	*model.Quiz
	Questions []model.Question `json:"questions"`
}

// CreateQuiz validates the request, stores a pending quiz and schedules its
// generation. It returns before generation starts.
func (s *QuizService) CreateQuiz(ctx context.Context, input CreateQuizInput) (*model.Quiz, error) {
	topic := strings.TrimSpace(input.Topic)
	quizType := strings.ToLower(strings.TrimSpace(input.QuizType))
	if input.ProjectID == "" || input.UserID == "" || topic == "" {
		return nil, ErrInvalidInput
	}
	switch quizType {
	case model.QuizTypeMCQ, model.QuizTypeShort, model.QuizTypeLong:
	default:
		return nil, goerr.Wrap(ErrInvalidInput, "unsupported quiz type", goerr.V("quiz_type", input.QuizType))
	}
	if input.NumQuestions < 1 || input.NumQuestions > s.maxQuestions {
		return nil, goerr.Wrap(ErrInvalidInput, fmt.Sprintf("num_questions must be between 1 and %d", s.maxQuestions))
	}

	if _, err := s.ownedProject(input.UserID, input.ProjectID); err != nil {
		return nil, err
	}

	docIDs := uniqueStrings(input.DocumentIDs)
	if len(docIDs) == 0 {
		files, err := s.files.ListByProjectID(input.ProjectID)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			docIDs = append(docIDs, f.ID)
		}
	}
	if len(docIDs) == 0 {
		return nil, goerr.Wrap(ErrInvalidInput, "project has no documents", goerr.V("project_id", input.ProjectID))
	}

	quiz := &model.Quiz{
		ID:           uuid.NewString(),
		ProjectID:    input.ProjectID,
		UserID:       input.UserID,
		Title:        fmt.Sprintf("%s (%s)", topic, strings.ToUpper(quizType)),
		Topic:        topic,
		QuizType:     quizType,
		NumQuestions: input.NumQuestions,
		DocumentIDs:  docIDs,
		Status:       model.QuizPending,
	}
	if err := s.quizzes.Create(quiz); err != nil {
		return nil, err
	}

	if err := s.enqueue(ctx, quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

func (s *QuizService) GetQuiz(userID, quizID string) (*QuizDetail, error) {
	quiz, err := s.ownedQuiz(userID, quizID)
	if err != nil {
		return nil, err
	}
	questions := quiz.Questions.Questions
	if questions == nil {
		questions = []model.Question{}
	}
	return &QuizDetail{Quiz: quiz, Questions: questions}, nil
}

func (s *QuizService) ListQuizzes(userID, projectID string) ([]model.Quiz, error) {
	if _, err := s.ownedProject(userID, projectID); err != nil {
		return nil, err
	}
	return s.quizzes.ListByProjectID(projectID, userID)
}

// ListAllQuizzes lists the user's quizzes in every project, newest first.
func (s *QuizService) ListAllQuizzes(userID string) ([]QuizSummary, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	quizzes, err := s.quizzes.ListByUserID(userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(quizzes))
	for _, q := range quizzes {
		ids = append(ids, q.ProjectID)
	}
	names, err := projectNames(s.projects, ids)
	if err != nil {
		return nil, err
	}
	out := make([]QuizSummary, 0, len(quizzes))
	for _, q := range quizzes {
		out = append(out, QuizSummary{Quiz: q, ProjectName: names[q.ProjectID]})
	}
	return out, nil
}

// DeleteQuiz removes the quiz with its attempts. A run still in flight finds
// the row gone and stores nothing.
func (s *QuizService) DeleteQuiz(userID, quizID string) error {
	deleted, err := s.quizzes.DeleteWithAttempts(quizID, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrQuizNotFound
	}
	s.logger.Info("quiz deleted", "quiz_id", quizID)
	return nil
}

// RegenerateQuiz starts a fresh run for a failed quiz. A quiz still pending
// is only re-enqueued, which covers a run lost before it started.
func (s *QuizService) RegenerateQuiz(ctx context.Context, userID, quizID string) (*model.Quiz, error) {
	quiz, err := s.ownedQuiz(userID, quizID)
	if err != nil {
		return nil, err
	}

	switch quiz.Status {
	case model.QuizFailed:
		reset, err := s.quizzes.ResetForRetry(quizID)
		if err != nil {
			return nil, err
		}
		if !reset {
			return nil, ErrQuizNotRetryable
		}
		quiz.Status = model.QuizPending
		quiz.GenerationError = nil
	case model.QuizPending:
	default:
		return nil, goerr.Wrap(ErrQuizNotRetryable, "quiz cannot be regenerated",
			goerr.V("quiz_id", quizID), goerr.V("status", quiz.Status))
	}

	if err := s.enqueue(ctx, quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

// SubmitAttempt grades answers against a ready quiz and stores the attempt.
func (s *QuizService) SubmitAttempt(userID, quizID string, answers map[string]any) (*model.Attempt, error) {
	quiz, err := s.ownedQuiz(userID, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.Status != model.QuizReady {
		return nil, ErrQuizNotReady
	}
	if answers == nil {
		answers = map[string]any{}
	}

	score, feedback := study.Grade(quiz, answers)
	attempt := &model.Attempt{
		ID:        uuid.NewString(),
		QuizID:    quizID,
		UserID:    userID,
		Answers:   answers,
		Score:     score,
		Feedback:  feedback,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.attempts.Create(attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

func (s *QuizService) ListAttempts(userID, quizID string) ([]model.Attempt, error) {
	if _, err := s.ownedQuiz(userID, quizID); err != nil {
		return nil, err
	}
	return s.attempts.ListByQuizID(quizID, userID)
}

// ResumeUnfinished schedules a run for every quiz left pending or generating,
// such as jobs interrupted by a shutdown. It returns how many were scheduled.
func (s *QuizService) ResumeUnfinished(ctx context.Context) (int, error) {
	quizzes, err := s.quizzes.ListUnfinished()
	if err != nil {
		return 0, err
	}
	for _, quiz := range quizzes {
		if err := s.dispatcher.Enqueue(ctx, quiz.ID); err != nil {
			return 0, goerr.Wrap(err, "resume generation job failed", goerr.V("job_id", quiz.ID))
		}
	}
	if len(quizzes) > 0 {
		s.logger.Info("unfinished generation jobs resumed", "count", len(quizzes))
	}
	return len(quizzes), nil
}

func (s *QuizService) enqueue(ctx context.Context, quiz *model.Quiz) error {
	if err := s.dispatcher.Enqueue(ctx, quiz.ID); err != nil {
		s.logger.Error("enqueue generation job failed", "job_id", quiz.ID, "error", err)
		if _, markErr := s.quizzes.MarkFailed(quiz.ID, failureMessage(err)); markErr != nil {
			s.logger.Error("mark quiz failed after enqueue error", "job_id", quiz.ID, "error", markErr)
		}
		return goerr.Wrap(err, "enqueue generation job failed", goerr.V("job_id", quiz.ID))
	}
	return nil
}

func (s *QuizService) ownedProject(userID, projectID string) (*model.Project, error) {
	project, err := s.projects.GetByID(projectID)
	if err != nil {
		return nil, err
	}
	if project == nil || project.UserID != userID {
		return nil, ErrProjectNotFound
	}
	return project, nil
}

func (s *QuizService) ownedQuiz(userID, quizID string) (*model.Quiz, error) {
	quiz, err := s.quizzes.GetByIDAndUserID(quizID, userID)
	if err != nil {
		return nil, err
	}
	if quiz == nil {
		return nil, ErrQuizNotFound
	}
	return quiz, nil
}
