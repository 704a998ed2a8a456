package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"copium-tutor/internal/repository"
)

func TestResolveCreatesThenReuses(t *testing.T) {
	db := newTestDB(t)
	fake := newFakeMemory()
	manager := NewMemorySessionManager(fake, discardLogger())
	repo := repository.NewMemorySessionRepository(db)

	first, err := manager.Resolve(t.Context(), repo, "p1")
	require.NoError(t, err)
	assert.Equal(t, SessionCreated, first.State)
	assert.NotEmpty(t, first.AssistantID)
	assert.NotEmpty(t, first.ThreadID)

	row, err := repo.GetByProjectID("p1")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, first.ThreadID, row.ThreadID)

	second, err := manager.Resolve(t.Context(), repo, "p1")
	require.NoError(t, err)
	assert.Equal(t, SessionReused, second.State)
	assert.Equal(t, first.ThreadID, second.ThreadID)
	assert.Equal(t, 1, fake.created)
}

func TestResolveRepairsMissingThread(t *testing.T) {
	db := newTestDB(t)
	fake := newFakeMemory()
	oldThread := fake.addSession(t, db, "p1")
	markIndexed(t, db, "p1", "f1", "f2")
	delete(fake.threads, oldThread)

	manager := NewMemorySessionManager(fake, discardLogger())
	repo := repository.NewMemorySessionRepository(db)

	handle, err := manager.Resolve(t.Context(), repo, "p1")
	require.NoError(t, err)
	assert.Equal(t, SessionRepairedThread, handle.State)
	assert.NotEqual(t, oldThread, handle.ThreadID)
	assert.Equal(t, 0, fake.created, "assistant is kept")

	row, err := repo.GetByProjectID("p1")
	require.NoError(t, err)
	assert.Equal(t, handle.ThreadID, row.ThreadID)
	assert.Zero(t, countRecords(t, db, "p1"), "records of the lost thread are invalid")
}

func TestResolveAssistantMissingResetsSession(t *testing.T) {
	db := newTestDB(t)
	fake := newFakeMemory()
	fake.addSession(t, db, "p1")
	markIndexed(t, db, "p1", "f1")
	fake.assistants = map[string]bool{}
	fake.threads = map[string]string{}

	manager := NewMemorySessionManager(fake, discardLogger())
	repo := repository.NewMemorySessionRepository(db)

	_, err := manager.Resolve(t.Context(), repo, "p1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAssistantMissing)
	assert.Equal(t, KindNotFound, ErrorKind(err))

	row, err := repo.GetByProjectID("p1")
	require.NoError(t, err)
	assert.Nil(t, row)
	assert.Zero(t, countRecords(t, db, "p1"))

	handle, err := manager.Resolve(t.Context(), repo, "p1")
	require.NoError(t, err)
	assert.Equal(t, SessionCreated, handle.State)
}

func TestResolveKeepsSessionOnTransientError(t *testing.T) {
	db := newTestDB(t)
	fake := newFakeMemory()
	thread := fake.addSession(t, db, "p1")
	markIndexed(t, db, "p1", "f1")
	fake.getThreadErr = errors.New("connection reset")

	manager := NewMemorySessionManager(fake, discardLogger())
	repo := repository.NewMemorySessionRepository(db)

	_, err := manager.Resolve(t.Context(), repo, "p1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAssistantMissing)

	row, err := repo.GetByProjectID("p1")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, thread, row.ThreadID)
	assert.EqualValues(t, 1, countRecords(t, db, "p1"))
}

func TestResolveOutlivesCancelledCaller(t *testing.T) {
	db := newTestDB(t)
	fake := newFakeMemory()
	fake.createGate = make(chan struct{})
	fake.createEntered = make(chan struct{}, 1)
	manager := NewMemorySessionManager(fake, discardLogger())

	requestCtx, cancel := context.WithCancel(t.Context())
	requestErr := make(chan error, 1)
	go func() {
		store := repository.OpenStore(requestCtx, db)
		defer store.Close()
		_, err := manager.Resolve(requestCtx, store.Sessions, "p1")
		requestErr <- err
	}()
	<-fake.createEntered

	type outcome struct {
		handle *MemoryHandle
		err    error
	}
	jobDone := make(chan outcome, 1)
	go func() {
		store := repository.OpenStore(context.Background(), db)
		defer store.Close()
		handle, err := manager.Resolve(context.Background(), store.Sessions, "p1")
		jobDone <- outcome{handle, err}
	}()

	cancel()
	assert.ErrorIs(t, <-requestErr, context.Canceled)

	close(fake.createGate)
	job := <-jobDone
	require.NoError(t, job.err)
	assert.Equal(t, 1, fake.created, "one assistant for both callers")

	row, err := repository.NewMemorySessionRepository(db).GetByProjectID("p1")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, job.handle.ThreadID, row.ThreadID)
}
