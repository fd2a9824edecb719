package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"execintel/internal/logger"
)

// InMemoryBroker is a channel-based Broker that simulates a
// partitioned stream for local development and single-process batch
// runs.
type InMemoryBroker struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Message
	log         logger.Logger
	closed      bool
}

// NewInMemoryBroker creates an InMemoryBroker.
func NewInMemoryBroker(log logger.Logger) *InMemoryBroker {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &InMemoryBroker{
		subscribers: make(map[string][]chan Message),
		log:         log,
	}
}

func (b *InMemoryBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("broker is closed")
	}

	msg := Message{
		Topic:     topic,
		Key:       key,
		Value:     value,
		Timestamp: time.Now().UnixMilli(),
	}

	for _, ch := range b.subscribers[topic] {
		select {
		case ch <- msg:
		case <-ctx.Done():
			return ctx.Err()
		default:
			b.log.Warn("broker: channel buffer full for topic %q, message dropped", topic)
		}
	}

	return nil
}

func (b *InMemoryBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("broker is closed")
	}

	ch := make(chan Message, 100)
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	return ch, nil
}

func (b *InMemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for topic, channels := range b.subscribers {
		for _, ch := range channels {
			close(ch)
		}
		delete(b.subscribers, topic)
	}
	return nil
}
