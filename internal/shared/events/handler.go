package events

import "context"

// Handler reacts to published events.
type Handler interface {
	// Name labels the handler in logs and metrics.
	Name() string
	// Handles lists the event types the handler subscribes to.
	Handles() []string
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc struct {
	name       string
	eventTypes []string
	fn         func(context.Context, Event) error
}

// NewHandlerFunc creates a named handler for eventTypes.
func NewHandlerFunc(name string, eventTypes []string, fn func(context.Context, Event) error) *HandlerFunc {
	return &HandlerFunc{name: name, eventTypes: eventTypes, fn: fn}
}

func (h *HandlerFunc) Name() string      { return h.name }
func (h *HandlerFunc) Handles() []string { return h.eventTypes }

func (h *HandlerFunc) Handle(ctx context.Context, event Event) error {
	return h.fn(ctx, event)
}
