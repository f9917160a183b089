package board

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/taskboard/server/internal/shared/events"
)

// ActivityRecorder appends every board change to the activity feed.
type ActivityRecorder struct {
	repo Repository
}

// NewActivityRecorder creates an ActivityRecorder writing through repo.
func NewActivityRecorder(repo Repository) *ActivityRecorder {
	return &ActivityRecorder{repo: repo}
}

func (h *ActivityRecorder) Name() string      { return "activity" }
func (h *ActivityRecorder) Handles() []string { return []string{events.BoardChangedType} }

func (h *ActivityRecorder) Handle(ctx context.Context, event events.Event) error {
	change, ok := event.(*events.ChangeEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}
	// The feed goes with the board.
	if change.EntityType == events.EntityBoard && change.Action == events.ActionDeleted {
		return nil
	}

	return h.repo.CreateActivity(ctx, &Activity{
		BoardID:    change.BoardID,
		EntityType: change.EntityType,
		EntityID:   change.EntityID,
		Action:     change.Action,
		UserID:     change.UserID,
		CreatedAt:  change.OccurredAt(),
	})
}

// NotifierConfig configures a Notifier.
type NotifierConfig struct {
	TopicPrefix      string
	PublishTimeout   time.Duration
	FailureThreshold uint32
	CircuitTimeout   time.Duration
}

// Notifier forwards board changes to the broker topic of the board.
// A circuit breaker stops publishing while the broker keeps failing.
type Notifier struct {
	broker  events.Broker
	breaker *gobreaker.CircuitBreaker[any]
	cfg     NotifierConfig
	logger  *zap.Logger
}

// NewNotifier creates a Notifier publishing to broker.
func NewNotifier(broker events.Broker, cfg NotifierConfig, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.CircuitTimeout <= 0 {
		cfg.CircuitTimeout = 30 * time.Second
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 2 * time.Second
	}

	threshold := cfg.FailureThreshold
	settings := gobreaker.Settings{
		Name:        "notifier",
		MaxRequests: 1,
		Timeout:     cfg.CircuitTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &Notifier{
		broker:  broker,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
		cfg:     cfg,
		logger:  logger,
	}
}

func (n *Notifier) Name() string      { return "notifier" }
func (n *Notifier) Handles() []string { return []string{events.BoardChangedType} }

func (n *Notifier) Handle(ctx context.Context, event events.Event) error {
	change, ok := event.(*events.ChangeEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}

	topic := events.BoardTopic(n.cfg.TopicPrefix, change.BoardID)
	_, err = n.breaker.Execute(func() (any, error) {
		ctx, cancel := context.WithTimeout(ctx, n.cfg.PublishTimeout)
		defer cancel()
		return nil, n.broker.Publish(ctx, topic, payload)
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// State reports the breaker state.
func (n *Notifier) State() gobreaker.State {
	return n.breaker.State()
}
