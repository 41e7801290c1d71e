package ports

import (
	"context"
	"time"
)

// OutboxMessage is an event committed together with the state change that raised it.
type OutboxMessage struct {
	ID          string
	Topic       string
	Key         string
	EventType   string
	Payload     []byte
	Headers     map[string]string
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// EventPublisher delivers committed outbox messages to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, msgs ...OutboxMessage) error
}
