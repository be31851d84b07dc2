package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/abkawan/account-ledger/internal/models"
	"github.com/streadway/amqp"
)

const (
	// queue for committed ledger events
	EventQueue = "ledger_events"
)

// handles RabbitMQ operations
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
}

func NewRabbitMQ(uri string) (*RabbitMQ, error) {
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
		EventQueue, // name
		true,       // durable
		false,      // delete when unused
		false,      // exclusive
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare a queue: %w", err)
	}

	return &RabbitMQ{
		conn:    conn,
		channel: ch,
		queue:   q,
	}, nil
}

func (r *RabbitMQ) Close() error {
	if err := r.channel.Close(); err != nil {
		return err
	}
	return r.conn.Close()
}

// PublishEvent puts a committed ledger event on the queue. Events are
// published after the ledger commit, so losing one never loses money,
// only an archive row.
func (r *RabbitMQ) PublishEvent(ctx context.Context, event *models.LedgerEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// Publish a message
	err = r.channel.Publish(
		"",         // exchange
		EventQueue, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent, // make message persistent
		})
	if err != nil {
		return fmt.Errorf("failed to publish a message: %w", err)
	}

	return nil
}

// ConsumeEvents delivers ledger events from the queue until ctx is done.
func (r *RabbitMQ) ConsumeEvents(ctx context.Context) (<-chan models.LedgerEvent, error) {
	msgs, err := r.channel.Consume(
		EventQueue, // queue
		"",         // consumer
		false,      // auto-ack
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register a consumer: %w", err)
	}

	eventChan := make(chan models.LedgerEvent)

	// Process messages in a goroutine
	go func() {
		defer close(eventChan)

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				var event models.LedgerEvent
				if err := json.Unmarshal(msg.Body, &event); err != nil {
					slog.Error("failed to unmarshal ledger event", "error", err)
					msg.Reject(false) // Don't requeue
					continue
				}

				eventChan <- event

				// Acknowledge message
				msg.Ack(false)
			}
		}
	}()

	return eventChan, nil
}
