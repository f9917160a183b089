package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisBroker fans out through Redis pub/sub so every server instance sees
// every change.
type RedisBroker struct {
	client redis.UniversalClient

	mu     sync.Mutex
	subs   map[*redisSubscription]struct{}
	closed bool
}

// NewRedisBroker creates a broker on client. The client stays owned by the caller.
func NewRedisBroker(client redis.UniversalClient) *RedisBroker {
	return &RedisBroker{
		client: client,
		subs:   make(map[*redisSubscription]struct{}),
	}
}

func (b *RedisBroker) Publish(ctx context.Context, topic string, payload []byte) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrBrokerClosed
	}

	if err := b.client.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", topic, err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, ErrBrokerClosed
	}

	pubsub := b.client.Subscribe(ctx, topic)
	// Wait for the subscription confirmation so no publish is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", topic, err)
	}

	sub := &redisSubscription{
		broker: b,
		pubsub: pubsub,
		ch:     make(chan Message, subscriberBuffer),
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		_ = pubsub.Close()
		return nil, ErrBrokerClosed
	}
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	go sub.pump()
	return sub, nil
}

func (b *RedisBroker) Close() error {
	b.mu.Lock()
	b.closed = true
	subs := make([]*redisSubscription, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Close()
	}
	return nil
}

type redisSubscription struct {
	broker *RedisBroker
	pubsub *redis.PubSub
	ch     chan Message
	done   chan struct{}
	once   sync.Once
}

func (s *redisSubscription) C() <-chan Message { return s.ch }

func (s *redisSubscription) pump() {
	defer close(s.ch)
	in := s.pubsub.Channel()
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			select {
			case s.ch <- Message{Topic: msg.Channel, Payload: []byte(msg.Payload)}:
			case <-s.done:
				return
			default:
			}
		}
	}
}

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.pubsub.Close()

		s.broker.mu.Lock()
		delete(s.broker.subs, s)
		s.broker.mu.Unlock()
	})
	return err
}
