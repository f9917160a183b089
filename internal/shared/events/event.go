package events

import (
	"time"

	"github.com/google/uuid"
)

// Event is implemented by everything published on the Bus.
type Event interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	// AggregateID identifies the entity the event is about.
	AggregateID() uuid.UUID
}

// BaseEvent carries the common event fields. Embed it in concrete events.
type BaseEvent struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Aggregate uuid.UUID `json:"aggregate_id"`
}

func (e BaseEvent) EventID() uuid.UUID     { return e.ID }
func (e BaseEvent) EventType() string      { return e.Type }
func (e BaseEvent) OccurredAt() time.Time  { return e.Timestamp }
func (e BaseEvent) AggregateID() uuid.UUID { return e.Aggregate }

// NewBaseEvent stamps a new event of eventType about aggregateID.
func NewBaseEvent(eventType string, aggregateID uuid.UUID) BaseEvent {
	return BaseEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Aggregate: aggregateID,
	}
}
