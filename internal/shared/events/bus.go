package events

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/taskboard/server/internal/shared/metrics"
)

// Bus dispatches events to registered handlers.
//
// Handler failures and panics are logged and counted but never reach the
// publisher. In async mode every Publish runs on its own goroutine with a
// context detached from the caller's cancellation; Wait blocks until all of
// them finish.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	async    bool
	closed   bool
	wg       sync.WaitGroup
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithAsync makes Publish return before handlers run.
func WithAsync(async bool) BusOption {
	return func(b *Bus) { b.async = async }
}

// WithMetrics counts handler failures.
func WithMetrics(m *metrics.Metrics) BusOption {
	return func(b *Bus) { b.metrics = m }
}

// NewBus creates a new event bus.
func NewBus(logger *zap.Logger, opts ...BusOption) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Register subscribes handler to the event types it handles.
func (b *Bus) Register(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, eventType := range handler.Handles() {
		b.handlers[eventType] = append(b.handlers[eventType], handler)
		b.logger.Debug("registered event handler",
			zap.String("event_type", eventType),
			zap.String("handler", handler.Name()),
		)
	}
}

// Publish hands event to every handler registered for its type, in
// registration order.
func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := b.handlers[event.EventType()]
	closed := b.closed
	if b.async && !closed && len(handlers) > 0 {
		b.wg.Add(1)
	}
	b.mu.RUnlock()

	if closed {
		b.logger.Warn("event dropped on closed bus",
			zap.String("event_type", event.EventType()),
			zap.String("event_id", event.EventID().String()),
		)
		return
	}
	if len(handlers) == 0 {
		return
	}

	if !b.async {
		b.dispatch(ctx, event, handlers)
		return
	}

	detached := context.WithoutCancel(ctx)
	go func() {
		defer b.wg.Done()
		b.dispatch(detached, event, handlers)
	}()
}

func (b *Bus) dispatch(ctx context.Context, event Event, handlers []Handler) {
	for _, handler := range handlers {
		if err := b.invoke(ctx, handler, event); err != nil {
			b.metrics.RecordHookFailure(handler.Name())
			b.logger.Error("event handler failed",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.String("handler", handler.Name()),
				zap.Error(err),
			)
		}
	}
}

func (b *Bus) invoke(ctx context.Context, handler Handler, event Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	return handler.Handle(ctx, event)
}

// Wait blocks until in-flight async dispatches complete.
func (b *Bus) Wait() {
	b.wg.Wait()
}

// Close stops accepting events and drains in-flight dispatches.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.wg.Wait()
}
