package core

import (
	"context"
	"time"
)

type (
	// Event is a domain event published to downstream consumers (mailers, analytics..).
	Event struct {
		Type       string      `json:"type"`
		Key        string      `json:"key"`
		Payload    interface{} `json:"payload"`
		OccurredAt time.Time   `json:"occurred_at"`
	}

	// EventPublisher is any service that can publish domain events
	EventPublisher interface {
		Publish(ctx context.Context, events ...Event) error
		Close() error
	}
)

func NewEvent(typ, key string, payload interface{}) Event {
	return Event{
		Type:       typ,
		Key:        key,
		Payload:    payload,
		OccurredAt: NowFunc(),
	}
}
