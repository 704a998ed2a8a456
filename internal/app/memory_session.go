package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/singleflight"

	"copium-tutor/internal/backboard"
	"copium-tutor/internal/metrics"
	"copium-tutor/internal/model"
	"copium-tutor/internal/repository"
)

// SessionState is the outcome of one resolution of a project's memory session.
type SessionState string

const (
	SessionCreated          SessionState = "created"
	SessionReused           SessionState = "reused"
	SessionRepairedThread   SessionState = "repaired_thread"
	SessionAssistantMissing SessionState = "assistant_missing"
)

// MemoryHandle identifies the remote assistant and thread to use for a project.
type MemoryHandle struct {
	ProjectID   string
	AssistantID string
	ThreadID    string
	State       SessionState
}

// MemorySessionManager creates, checks and repairs the per-project memory
// session. Concurrent resolutions for one project in this process share a
// single remote round trip.
type MemorySessionManager struct {
	client MemoryService
	group  singleflight.Group
	logger *slog.Logger
}

func NewMemorySessionManager(client MemoryService, logger *slog.Logger) *MemorySessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemorySessionManager{client: client, logger: logger}
}

// Resolve returns a live session for the project, reading and writing through
// the caller's repository so background tasks keep their own handle.
//
// A missing row creates assistant and thread. A stored thread that the
// service no longer knows is replaced under the same assistant and the
// project's index records are dropped. If the assistant is gone too, the row
// and its records are deleted and ErrAssistantMissing is returned; the next
// call starts over from an empty state.
//
// The shared round trip is detached from every caller's cancellation. A
// caller whose ctx ends stops waiting, while callers that joined the same
// resolution still get its result.
func (m *MemorySessionManager) Resolve(ctx context.Context, repo *repository.MemorySessionRepository, projectID string) (*MemoryHandle, error) {
	flightCtx := context.WithoutCancel(ctx)
	ch := m.group.DoChan(projectID, func() (any, error) {
		return m.resolve(flightCtx, repo.WithContext(flightCtx), projectID)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		handle := *res.Val.(*MemoryHandle)
		return &handle, nil
	}
}

func (m *MemorySessionManager) resolve(ctx context.Context, repo *repository.MemorySessionRepository, projectID string) (*MemoryHandle, error) {
	row, err := repo.GetByProjectID(projectID)
	if err != nil {
		return nil, err
	}
	if row == nil || row.AssistantID == "" || row.ThreadID == "" {
		return m.create(ctx, repo, projectID)
	}

	_, err = m.client.GetThread(ctx, row.ThreadID)
	if err == nil {
		metrics.SessionTransitions.WithLabelValues(string(SessionReused)).Inc()
		return &MemoryHandle{ProjectID: projectID, AssistantID: row.AssistantID, ThreadID: row.ThreadID, State: SessionReused}, nil
	}
	if !errors.Is(err, backboard.ErrNotFound) {
		return nil, goerr.Wrap(err, "memory thread liveness check failed",
			goerr.V("project_id", projectID), goerr.V("thread_id", row.ThreadID))
	}

	m.logger.Warn("memory thread missing, creating a new one",
		"project_id", projectID, "assistant_id", row.AssistantID, "thread_id", row.ThreadID)

	thread, err := m.client.CreateThread(ctx, row.AssistantID)
	if errors.Is(err, backboard.ErrNotFound) {
		m.logger.Warn("memory assistant missing, dropping session",
			"project_id", projectID, "assistant_id", row.AssistantID)
		if delErr := repo.Delete(projectID); delErr != nil {
			return nil, delErr
		}
		metrics.SessionTransitions.WithLabelValues(string(SessionAssistantMissing)).Inc()
		return nil, goerr.Wrap(ErrAssistantMissing, "memory session reset, retry to create a new one",
			goerr.V("project_id", projectID), goerr.V("assistant_id", row.AssistantID))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "recreate memory thread failed",
			goerr.V("project_id", projectID), goerr.V("assistant_id", row.AssistantID))
	}
	if thread.ThreadID == "" {
		return nil, goerr.New("memory service returned an empty thread id", goerr.V("project_id", projectID))
	}

	if err := repo.ReplaceThread(projectID, thread.ThreadID); err != nil {
		return nil, err
	}
	metrics.SessionTransitions.WithLabelValues(string(SessionRepairedThread)).Inc()
	return &MemoryHandle{ProjectID: projectID, AssistantID: row.AssistantID, ThreadID: thread.ThreadID, State: SessionRepairedThread}, nil
}

func (m *MemorySessionManager) create(ctx context.Context, repo *repository.MemorySessionRepository, projectID string) (*MemoryHandle, error) {
	assistant, err := m.client.CreateAssistant(ctx,
		fmt.Sprintf("CopiumTutor Course %s", projectID),
		"Study tutor that generates flashcards/quizzes using course documents and memory.",
	)
	if err != nil {
		return nil, goerr.Wrap(err, "create memory assistant failed", goerr.V("project_id", projectID))
	}
	thread, err := m.client.CreateThread(ctx, assistant.AssistantID)
	if err != nil {
		return nil, goerr.Wrap(err, "create memory thread failed",
			goerr.V("project_id", projectID), goerr.V("assistant_id", assistant.AssistantID))
	}
	if assistant.AssistantID == "" || thread.ThreadID == "" {
		return nil, goerr.New("memory service returned empty ids", goerr.V("project_id", projectID))
	}

	if err := repo.Replace(&model.MemorySession{
		ProjectID:   projectID,
		AssistantID: assistant.AssistantID,
		ThreadID:    thread.ThreadID,
	}); err != nil {
		return nil, err
	}

	m.logger.Info("memory session created",
		"project_id", projectID, "assistant_id", assistant.AssistantID, "thread_id", thread.ThreadID)
	metrics.SessionTransitions.WithLabelValues(string(SessionCreated)).Inc()
	return &MemoryHandle{ProjectID: projectID, AssistantID: assistant.AssistantID, ThreadID: thread.ThreadID, State: SessionCreated}, nil
}
