package config

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"divisionone/internal/ledger"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

// Publisher represents a RabbitMQ publisher
type Publisher struct {
	mu       sync.Mutex
	channel  *amqp.Channel
	declared map[string]bool
}

// NewPublisher creates a new RabbitMQ publisher
func NewPublisher() (*Publisher, error) {
	if RabbitMQ == nil {
		return nil, fmt.Errorf("RabbitMQ connection not initialized")
	}

	ch, err := RabbitMQ.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	return &Publisher{
		channel:  ch,
		declared: make(map[string]bool),
	}, nil
}

// Publish publishes a message to the specified queue
func (p *Publisher) Publish(ctx context.Context, queueName string, message interface{}) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.declared[queueName] {
		_, err := p.channel.QueueDeclare(
			queueName,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,   // args
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue: %w", err)
		}
		p.declared[queueName] = true
	}

	err = p.channel.PublishWithContext(ctx,
		"",        // exchange
		queueName, // routing key
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	log.WithField("queue", queueName).Debugf("Published message: %s", string(body))
	return nil
}

// Close closes the publisher
func (p *Publisher) Close() error {
	if p.channel != nil {
		return p.channel.Close()
	}
	return nil
}

// MessagePublisher is the part of Publisher the event sink needs.
type MessagePublisher interface {
	Publish(ctx context.Context, queueName string, message interface{}) error
}

// EventSink forwards committed ledger events to every queue in Queues.
type EventSink struct {
	Publisher MessagePublisher
	Queues    []string
}

// NewEventSink publishes to the persistence and stream queues.
func NewEventSink(p MessagePublisher) *EventSink {
	return &EventSink{
		Publisher: p,
		Queues:    []string{QueueProgramEvents, QueueProgramEventsStream},
	}
}

func (s *EventSink) Publish(ctx context.Context, events []ledger.Event) error {
	for _, event := range events {
		for _, queue := range s.Queues {
			if err := s.Publisher.Publish(ctx, queue, event); err != nil {
				return fmt.Errorf("event %s of %s: %w", event.Name, event.Signature, err)
			}
		}
	}
	return nil
}

var _ ledger.EventSink = (*EventSink)(nil)
