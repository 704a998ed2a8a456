package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"copium-tutor/internal/model"
	"copium-tutor/internal/repository"
)

var errIncompleteMessage = errors.New("chat message missing id, chat or role")

// ChatPersistWorker drains the chat queue into the message table.
type ChatPersistWorker struct {
	conn      *amqp.Connection
	repo      *repository.ChatMessageRepository
	queueName string
	logger    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewChatPersistWorker(conn *amqp.Connection, repo *repository.ChatMessageRepository, queueName string, logger *slog.Logger) *ChatPersistWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatPersistWorker{
		conn:      conn,
		repo:      repo,
		queueName: queueName,
		logger:    logger,
	}
}

func (w *ChatPersistWorker) Start(ctx context.Context) error {
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
					w.logger.Warn("chat queue closed", "queue", w.queueName)
					return
				}

				msg, err := decodeChatMessage(d.Body)
				if err != nil {
					w.logger.Error("decode chat message failed", "message_id", d.MessageId, "error", err)
					_ = d.Nack(false, false)
					continue
				}

				if err := w.repo.Create(msg); err != nil {
					w.logger.Error("persist chat message failed", "message_id", msg.ID, "chat_id", msg.ChatID, "error", err)
					_ = d.Nack(false, !d.Redelivered)
					continue
				}

				_ = d.Ack(false)
			}
		}
	}()

	w.logger.Info("chat persist worker started", "queue", w.queueName)
	return nil
}

func decodeChatMessage(body []byte) (*model.ChatMessage, error) {
	var msg model.ChatMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" || msg.ChatID == "" || msg.Role == "" {
		return nil, errIncompleteMessage
	}
	return &msg, nil
}

func (w *ChatPersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
