package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// GenerationJob is the queue payload; the quiz row carries everything else.
type GenerationJob struct {
	QuizID string `json:"quiz_id"`
}

type JobPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewJobPublisher(conn *amqp.Connection, queueName string) *JobPublisher {
	return &JobPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

// Enqueue publishes a persistent generation job for quizID.
func (p *JobPublisher) Enqueue(ctx context.Context, quizID string) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if err := declareQueue(ch, p.queueName); err != nil {
		return err
	}

	payload, err := json.Marshal(GenerationJob{QuizID: quizID})
	if err != nil {
		return fmt.Errorf("marshal generation job failed: %w", err)
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
			MessageId:    quizID,
		},
	); err != nil {
		return fmt.Errorf("publish generation job failed: %w", err)
	}
	return nil
}
