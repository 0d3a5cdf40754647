// Package queue publishes completed transfers to RabbitMQ for downstream
// consumers (notifications, fraud monitoring). Publishing is best effort and
// happens only after the ledger mutation has committed.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/oakline/ledger/internal/models"
	"github.com/streadway/amqp"
)

const transferQueue = "transfer-events"

type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
}

func NewPublisher(uri string) (*Publisher, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		transferQueue, // name
		true,          // durable
		false,         // delete when unused
		false,         // exclusive
		false,         // no-wait
		nil,           // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &Publisher{conn: conn, channel: ch, queue: q}, nil
}

func (p *Publisher) Close() error {
	if err := p.channel.Close(); err != nil {
		return err
	}
	return p.conn.Close()
}

// PublishTransfer emits a completed transfer as a persistent JSON message.
func (p *Publisher) PublishTransfer(ctx context.Context, tx *models.Transaction) error {
	body, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transfer: %w", err)
	}

	err = p.channel.Publish(
		"",            // exchange
		transferQueue, // routing key
		false,         // mandatory
		false,         // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		})
	if err != nil {
		return fmt.Errorf("failed to publish transfer event: %w", err)
	}
	return nil
}
