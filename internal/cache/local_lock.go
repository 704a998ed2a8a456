package cache

import (
	"context"
	"sync"
)

// LocalLock is the single-process stand-in for ProjectLock when no redis is
// configured.
type LocalLock struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalLock() *LocalLock {
	return &LocalLock{held: map[string]struct{}{}}
}

func (l *LocalLock) Acquire(_ context.Context, projectID string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[projectID]; ok {
		return nil, ErrLockHeld
	}
	l.held[projectID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, projectID)
			l.mu.Unlock()
		})
	}, nil
}
