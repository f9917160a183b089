package events

import (
	"context"
	"errors"
	"sync"
)

// ErrBrokerClosed is returned by a broker after Close.
var ErrBrokerClosed = errors.New("broker closed")

// Message is a payload received on a topic.
type Message struct {
	Topic   string
	Payload []byte
}

// Broker fans out payloads to topic subscribers.
type Broker interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, topic string) (Subscription, error)
	Close() error
}

// Subscription delivers messages until closed.
type Subscription interface {
	C() <-chan Message
	Close() error
}

const subscriberBuffer = 16

// MemoryBroker is a process-local Broker. Slow subscribers lose messages
// rather than blocking publishers.
type MemoryBroker struct {
	mu     sync.RWMutex
	subs   map[string]map[*memorySubscription]struct{}
	closed bool
}

// NewMemoryBroker creates an empty in-process broker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string]map[*memorySubscription]struct{})}
}

func (b *MemoryBroker) Publish(_ context.Context, topic string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBrokerClosed
	}

	for sub := range b.subs[topic] {
		select {
		case sub.ch <- Message{Topic: topic, Payload: payload}:
		default:
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(_ context.Context, topic string) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBrokerClosed
	}

	sub := &memorySubscription{
		broker: b,
		topic:  topic,
		ch:     make(chan Message, subscriberBuffer),
	}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[*memorySubscription]struct{})
	}
	b.subs[topic][sub] = struct{}{}
	return sub, nil
}

// Subscribers reports how many subscriptions are open on topic.
func (b *MemoryBroker) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for topic, subs := range b.subs {
		for sub := range subs {
			sub.closeLocked()
		}
		delete(b.subs, topic)
	}
	return nil
}

func (b *MemoryBroker) unsubscribe(sub *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if subs, ok := b.subs[sub.topic]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.subs, sub.topic)
		}
	}
	sub.closeLocked()
}

type memorySubscription struct {
	broker *MemoryBroker
	topic  string
	ch     chan Message
	once   sync.Once
}

func (s *memorySubscription) C() <-chan Message { return s.ch }

func (s *memorySubscription) Close() error {
	s.broker.unsubscribe(s)
	return nil
}

// closeLocked must be called with the broker lock held.
func (s *memorySubscription) closeLocked() {
	s.once.Do(func() { close(s.ch) })
}
