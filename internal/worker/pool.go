package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
)

var ErrPoolClosed = errors.New("generation pool closed")

// JobRunner runs one generation job to a terminal status.
type JobRunner interface {
	Run(ctx context.Context, quizID string) error
}

// Pool bounds how many generation jobs run at once. It doubles as the
// in-process dispatcher when no broker is configured.
type Pool struct {
	pool   *ants.Pool
	runner JobRunner
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// mu orders wg.Add against Close so no Add runs after Wait has started.
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewPool(size int, runner JobRunner, logger *slog.Logger) (*Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p, err := ants.NewPool(size, ants.WithExpiryDuration(time.Minute))
	if err != nil {
		return nil, fmt.Errorf("create generation pool failed: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		pool:   p,
		runner: runner,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Enqueue schedules a run for quizID and returns without waiting for a free
// worker. The run does not inherit ctx, so it outlives the request that
// created it.
func (p *Pool) Enqueue(_ context.Context, quizID string) error {
	if !p.track() {
		return ErrPoolClosed
	}
	go func() {
		defer p.wg.Done()
		if err := p.Submit(quizID, nil); err != nil {
			p.logger.Error("schedule generation job failed", "job_id", quizID, "error", err)
		}
	}()
	return nil
}

// Submit schedules a run for quizID and calls done with its result. Submit
// blocks while every worker is busy. Jobs that get a worker after Close has
// begun are not started and stay pending.
func (p *Pool) Submit(quizID string, done func(error)) error {
	if !p.track() {
		return ErrPoolClosed
	}

	err := p.pool.Submit(func() {
		defer p.wg.Done()
		var runErr error
		defer func() {
			if r := recover(); r != nil {
				runErr = fmt.Errorf("panic: %v", r)
				p.logger.Error("generation task panicked", "job_id", quizID, "panic", r)
			}
			if done != nil {
				done(runErr)
			}
		}()

		if err := p.ctx.Err(); err != nil {
			runErr = err
			return
		}
		runErr = p.runner.Run(p.ctx, quizID)
		if runErr != nil {
			p.logger.Error("generation job failed to settle", "job_id", quizID, "error", runErr)
		}
	})
	if err != nil {
		p.wg.Done()
		return fmt.Errorf("submit generation job failed: %w", err)
	}
	return nil
}

// track registers one more unit of work unless the pool is closed.
func (p *Pool) track() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.wg.Add(1)
	return true
}

func (p *Pool) Running() int {
	return p.pool.Running()
}

// Close stops accepting jobs, cancels running ones and waits for them to
// store their terminal status.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
	p.pool.Release()
}
