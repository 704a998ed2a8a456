package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"copium-tutor/internal/app"
	"copium-tutor/internal/platform/rabbitmq"
)

// GenerationWorker consumes generation jobs from the broker and runs them on
// the pool. A delivery is acked once its job reached a terminal status.
type GenerationWorker struct {
	conn      *amqp.Connection
	pool      *Pool
	queueName string
	prefetch  int
	logger    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewGenerationWorker(conn *amqp.Connection, pool *Pool, queueName string, prefetch int, logger *slog.Logger) *GenerationWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerationWorker{
		conn:      conn,
		pool:      pool,
		queueName: queueName,
		prefetch:  prefetch,
		logger:    logger,
	}
}

func (w *GenerationWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if err := ch.Qos(w.prefetch, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker prefetch failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.logger.Warn("generation queue closed", "queue", w.queueName)
					return
				}
				w.handle(d)
			}
		}
	}()

	w.logger.Info("generation worker started", "queue", w.queueName, "prefetch", w.prefetch)
	return nil
}

func (w *GenerationWorker) handle(d amqp.Delivery) {
	var job rabbitmq.GenerationJob
	if err := json.Unmarshal(d.Body, &job); err != nil || job.QuizID == "" {
		w.logger.Error("decode generation job failed", "message_id", d.MessageId, "error", err)
		_ = d.Nack(false, false)
		return
	}

	err := w.pool.Submit(job.QuizID, func(runErr error) {
		if runErr == nil {
			_ = d.Ack(false)
			return
		}
		_ = d.Nack(false, requeue(runErr, d.Redelivered))
	})
	if err != nil {
		w.logger.Error("submit generation job failed", "job_id", job.QuizID, "error", err)
		_ = d.Nack(false, true)
	}
}

// requeue decides whether a failed delivery goes back to the queue. Jobs cut
// short by shutdown always do. A job whose terminal status could not be
// stored gets one redelivery.
func requeue(runErr error, redelivered bool) bool {
	if errors.Is(runErr, app.ErrJobInterrupted) || errors.Is(runErr, context.Canceled) {
		return true
	}
	return !redelivered
}

func (w *GenerationWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
