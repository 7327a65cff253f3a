package broadcast

import (
	"context"
	"sync"
)

// Message wraps data of type T published to a topic.
type Message[T any] struct {
	Topic string
	Data  T
}

// Subscriber receives messages published to the topic it subscribed to.
// Implementations must be safe for concurrent use.
type Subscriber[T any] interface {
	// Receive returns a channel for receiving published messages.
	// The context parameter allows implementations to respect cancellation
	// during blocking operations (e.g. in Redis or NATS adapters). The
	// in-memory implementation does not use it but keeps it for interface
	// consistency across adapters.
	Receive(ctx context.Context) <-chan Message[T]

	// Close closes the subscriber and releases resources.
	// After Close, the receive channel is closed and no more messages will
	// be received. Close is idempotent and safe to call multiple times.
	Close() error
}

// Broadcaster fans messages out to the subscribers of a topic.
// Implementations should handle slow consumers gracefully, typically by
// dropping messages rather than blocking the publisher.
type Broadcaster[T any] interface {
	// Subscribe creates a new subscriber for the given topic. When the
	// context is cancelled, the subscription is automatically cleaned up.
	Subscribe(ctx context.Context, topic string) Subscriber[T]

	// Publish sends a message to all active subscribers of the topic.
	// Messages may be dropped for slow consumers to prevent blocking.
	// Publishing to a topic with no subscribers is not an error.
	Publish(ctx context.Context, topic string, data T) error

	// Close shuts down the broadcaster and closes all subscribers.
	Close() error
}

type subscriber[T any] struct {
	ch     chan Message[T]
	closed bool
	mu     sync.RWMutex
}

func newSubscriber[T any](bufferSize int) *subscriber[T] {
	return &subscriber[T]{
		ch: make(chan Message[T], bufferSize),
	}
}

func (s *subscriber[T]) Receive(ctx context.Context) <-chan Message[T] {
	return s.ch
}

func (s *subscriber[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		close(s.ch)
		s.closed = true
	}
	return nil
}

func (s *subscriber[T]) send(msg Message[T]) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}

	select {
	case s.ch <- msg:
		return true
	default:
		return false
	}
}
