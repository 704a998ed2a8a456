package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"copium-tutor/internal/model"
)

// ChatMessagePublisher hands chat messages to the persist worker.
type ChatMessagePublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewChatMessagePublisher(conn *amqp.Connection, queueName string) *ChatMessagePublisher {
	return &ChatMessagePublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *ChatMessagePublisher) Persist(ctx context.Context, msg model.ChatMessage) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal chat message failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.ID,
		},
	); err != nil {
		return fmt.Errorf("publish chat message failed: %w", err)
	}
	return nil
}
