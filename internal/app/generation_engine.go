package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"gorm.io/gorm"

	"copium-tutor/internal/backboard"
	"copium-tutor/internal/metrics"
	"copium-tutor/internal/model"
	"copium-tutor/internal/repository"
	"copium-tutor/internal/study"
)

const (
	msgNoAPIKey       = "BACKBOARD_API_KEY not set"
	msgNoDocuments    = "No documents selected."
	msgNotIndexed     = "Selected documents are not indexed yet. Go to the course page and click Index documents."
	msgNoThreadDocs   = "No indexed documents found for this course. Click Index documents first."
	msgStillIndexing  = "Documents are still indexing. Try again soon."
	msgNoQuestions    = "No questions were generated. Try re-indexing documents."
	msgFailurePrefix  = "Quiz generation failed"
	defaultReadyLimit = 900 * time.Second
	defaultPollEvery  = 2 * time.Second
)

type EngineOptions struct {
	ReadyTimeout time.Duration
	PollInterval time.Duration
	Message      backboard.MessageOptions
}

// GenerationEngine runs quiz generation jobs. Each run owns its own storage
// session and always leaves the quiz in a terminal status.
type GenerationEngine struct {
	db       *gorm.DB
	client   MemoryService
	sessions *MemorySessionManager
	opts     EngineOptions
	logger   *slog.Logger
}

func NewGenerationEngine(db *gorm.DB, client MemoryService, sessions *MemorySessionManager, opts EngineOptions, logger *slog.Logger) *GenerationEngine {
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = defaultReadyLimit
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollEvery
	}
	if opts.Message.Memory == "" {
		opts.Message.Memory = backboard.MemoryAuto
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerationEngine{
		db:       db,
		client:   client,
		sessions: sessions,
		opts:     opts,
		logger:   logger,
	}
}

// Run claims the quiz and drives it to ready or failed. A quiz that is
// already terminal is left alone. When ctx is cancelled mid-run the quiz stays
// generating and ErrJobInterrupted is returned, so a later run can claim it
// again. Any other returned error reports that the terminal status itself
// could not be stored.
func (e *GenerationEngine) Run(ctx context.Context, quizID string) (err error) {
	// Terminal writes must land even when ctx is cancelled mid-run.
	store := repository.OpenStore(context.WithoutCancel(ctx), e.db)
	defer store.Close()

	quiz, err := store.Quizzes.GetByID(quizID)
	if err != nil {
		return err
	}
	if quiz == nil {
		return goerr.Wrap(ErrQuizNotFound, "generation job has no quiz", goerr.V("job_id", quizID))
	}
	if quiz.Status.Terminal() {
		e.logger.Info("generation job already finished", "job_id", quizID, "status", quiz.Status)
		return nil
	}

	claimed, err := store.Quizzes.Transition(quizID,
		[]model.QuizStatus{model.QuizPending, model.QuizGenerating}, model.QuizGenerating)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	logger := e.logger.With("job_id", quizID, "project_id", quiz.ProjectID)
	started := time.Now()
	defer func() {
		metrics.GenerationDuration.Observe(time.Since(started).Seconds())
	}()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("generation job panicked", "panic", r)
			err = e.fail(store, quizID, fmt.Errorf("panic: %v", r), logger)
		}
	}()

	result, genErr := e.generate(ctx, store, quiz, logger)
	if genErr != nil {
		if ctx.Err() != nil && errors.Is(genErr, context.Canceled) {
			logger.Info("generation job interrupted, left for a later run", "error", genErr)
			return goerr.Wrap(ErrJobInterrupted, "generation job interrupted", goerr.V("job_id", quizID))
		}
		return e.fail(store, quizID, genErr, logger)
	}

	if len(result.Defaulted) > 0 {
		logger.Warn("mcq answers could not be resolved, defaulted to first choice", "question_ids", result.Defaulted)
	}

	saved, err := store.Quizzes.SaveReady(quizID,
		model.QuestionSet{Questions: result.Questions}, result.AnswerKey, result.Explanations)
	if err != nil {
		return err
	}
	if saved {
		metrics.GenerationJobs.WithLabelValues(string(model.QuizReady)).Inc()
		logger.Info("quiz ready", "questions", len(result.Questions))
	}
	return nil
}

func (e *GenerationEngine) generate(ctx context.Context, store *repository.Store, quiz *model.Quiz, logger *slog.Logger) (study.Normalized, error) {
	var none study.Normalized

	if !e.client.Configured() {
		return none, failWith(ErrServiceNotConfigured, msgNoAPIKey)
	}
	docIDs := uniqueStrings(quiz.DocumentIDs)
	if len(docIDs) == 0 {
		return none, failWith(ErrInvalidInput, msgNoDocuments)
	}
	indexed, err := NewIndexLedger(store.IndexRecords).AllIndexed(quiz.ProjectID, docIDs)
	if err != nil {
		return none, err
	}
	if !indexed {
		return none, failWith(ErrNotIndexed, msgNotIndexed)
	}

	handle, err := e.sessions.Resolve(ctx, store.Sessions, quiz.ProjectID)
	if err != nil {
		return none, err
	}

	docs, err := e.client.ListThreadDocuments(ctx, handle.ThreadID)
	if err != nil {
		logger.Warn("list thread documents failed", "thread_id", handle.ThreadID, "error", err)
		docs = nil
	}
	if len(docs) == 0 {
		return none, failWith(ErrNotIndexed, msgNoThreadDocs)
	}
	logger.Debug("thread documents found", "thread_id", handle.ThreadID, "count", len(docs))

	if err := e.waitForReady(ctx, handle.ThreadID, logger); err != nil {
		return none, err
	}

	files, err := store.Files.ListByIDs(docIDs)
	if err != nil {
		return none, err
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		if name := study.DisplayName(f.Path); name != "" {
			names = append(names, name)
		}
	}

	req := study.QuizRequest{
		ProjectID:    quiz.ProjectID,
		Topic:        quiz.Topic,
		QuizType:     quiz.QuizType,
		NumQuestions: quiz.NumQuestions,
		Files:        names,
	}

	result, err := e.ask(ctx, handle.ThreadID, req, false, quiz, logger)
	if err != nil {
		return none, err
	}
	if len(result.Questions) == 0 {
		logger.Info("empty quiz reply, retrying once")
		result, err = e.ask(ctx, handle.ThreadID, req, true, quiz, logger)
		if err != nil {
			return none, err
		}
	}
	if len(result.Questions) == 0 {
		return none, failWith(ErrNoQuestions, msgNoQuestions)
	}
	return result, nil
}

func (e *GenerationEngine) ask(ctx context.Context, threadID string, req study.QuizRequest, retry bool, quiz *model.Quiz, logger *slog.Logger) (study.Normalized, error) {
	reply, err := e.client.SendMessage(ctx, threadID, study.QuizPrompt(req, retry), e.opts.Message)
	if err != nil {
		return study.Normalized{}, goerr.Wrap(err, "quiz prompt failed",
			goerr.V("thread_id", threadID), goerr.V("retry", retry))
	}
	logger.Debug("quiz reply", "retry", retry, "raw", truncate(reply, 2000))

	payload, err := study.Salvage(reply)
	if err != nil {
		logger.Info("quiz reply had no usable json", "retry", retry)
		return study.Normalized{}, nil
	}
	return study.Normalize(study.ParseRawPayload(payload), quiz.QuizType, quiz.NumQuestions), nil
}

// waitForReady polls the thread until every document reached a terminal
// processing status or the deadline passes.
func (e *GenerationEngine) waitForReady(ctx context.Context, threadID string, logger *slog.Logger) error {
	deadline := time.Now().Add(e.opts.ReadyTimeout)
	timer := time.NewTimer(0)
	defer timer.Stop()

	var last []string
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		metrics.ReadinessPolls.Inc()
		docs, err := e.client.ListThreadDocuments(ctx, threadID)
		if err != nil {
			logger.Debug("document status poll failed", "thread_id", threadID, "error", err)
			docs = nil
		}
		last = last[:0]
		ready := len(docs) > 0
		for _, d := range docs {
			last = append(last, backboard.NormalizeStatus(d.Status))
			if !backboard.IsTerminalStatus(d.Status) {
				ready = false
			}
		}
		if ready {
			return nil
		}

		if !time.Now().Before(deadline) {
			logger.Info("documents still indexing at deadline", "thread_id", threadID, "statuses", last)
			return failWith(ErrReadyTimeout, msgStillIndexing)
		}
		timer.Reset(min(e.opts.PollInterval, time.Until(deadline)))
	}
}

func (e *GenerationEngine) fail(store *repository.Store, quizID string, cause error, logger *slog.Logger) error {
	message := failureMessage(cause)
	logger.Warn("quiz generation failed", "kind", ErrorKind(cause), "error", cause)

	changed, err := store.Quizzes.MarkFailed(quizID, message)
	if err != nil {
		return err
	}
	if changed {
		metrics.GenerationJobs.WithLabelValues(string(model.QuizFailed)).Inc()
	}
	return nil
}

// failureMessage is the text stored on a failed quiz: the fixed message of a
// known failure, else the error kind and detail.
func failureMessage(err error) string {
	var known *jobFailure
	if errors.As(err, &known) {
		return known.message
	}
	return fmt.Sprintf("%s (%s: %s)", msgFailurePrefix, ErrorKind(err), err.Error())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
