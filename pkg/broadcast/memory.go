package broadcast

import (
	"context"
	"sync"
)

// MemoryBroadcaster is an in-process Broadcaster keyed by topic.
// It drops messages for slow consumers rather than blocking Publish.
// All methods are safe for concurrent use.
type MemoryBroadcaster[T any] struct {
	topics     map[string]map[*subscriber[T]]struct{}
	bufferSize int
	closed     bool
	done       chan struct{} // closed on Close to release cleanup goroutines
	mu         sync.RWMutex
	cleanupWg  sync.WaitGroup // tracks context-cancellation cleanup goroutines
}

// NewMemoryBroadcaster creates a new in-memory broadcaster.
// The bufferSize parameter determines the channel buffer size for each
// subscriber; a minimum of 1 is enforced because a zero-buffer channel would
// make every send blocking and defeat the non-blocking design.
func NewMemoryBroadcaster[T any](bufferSize int) *MemoryBroadcaster[T] {
	return &MemoryBroadcaster[T]{
		topics:     make(map[string]map[*subscriber[T]]struct{}),
		bufferSize: max(bufferSize, 1),
		done:       make(chan struct{}),
	}
}

// Subscribe creates a new subscriber for the topic. The subscription is
// cleaned up when the provided context is cancelled. If the broadcaster is
// already closed, a closed subscriber is returned.
func (b *MemoryBroadcaster[T]) Subscribe(ctx context.Context, topic string) Subscriber[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		sub := newSubscriber[T](b.bufferSize)
		_ = sub.Close()
		return sub
	}

	sub := newSubscriber[T](b.bufferSize)
	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[*subscriber[T]]struct{})
		b.topics[topic] = subs
	}
	subs[sub] = struct{}{}

	if ctx.Done() != nil {
		b.cleanupWg.Add(1)
		go func() {
			defer b.cleanupWg.Done()
			select {
			case <-ctx.Done():
				b.unsubscribe(topic, sub)
			case <-b.done:
				// Close must not wait for subscriber contexts that may
				// never be cancelled.
			}
		}()
	}

	return sub
}

// Publish sends a message to all active subscribers of the topic.
// Sends are non-blocking: if a subscriber's buffer is full the message is
// dropped for that subscriber and it is removed from the topic.
func (b *MemoryBroadcaster[T]) Publish(ctx context.Context, topic string, data T) error {
	// Publishes are frequent, subscriber churn is not, hence RLock here.
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrClosed
	}

	msg := Message[T]{Topic: topic, Data: data}
	for sub := range b.topics[topic] {
		if !sub.send(msg) {
			// Remove slow/closed subscribers asynchronously so a full
			// buffer never stalls the publisher holding the read lock.
			go b.unsubscribe(topic, sub)
		}
	}

	return nil
}

// Close shuts down the broadcaster and closes all subscribers.
// Safe to call multiple times. After Close, Subscribe returns closed
// subscribers and Publish returns ErrClosed.
func (b *MemoryBroadcaster[T]) Close() error {
	b.mu.Lock()

	if b.closed {
		b.mu.Unlock()
		return nil
	}

	b.closed = true
	close(b.done)

	for _, subs := range b.topics {
		for sub := range subs {
			_ = sub.Close()
		}
	}

	clear(b.topics)
	b.mu.Unlock()

	// Wait for cleanup goroutines so Close never races async unsubscribes.
	b.cleanupWg.Wait()

	return nil
}

// Subscribers returns the number of active subscribers for a topic.
func (b *MemoryBroadcaster[T]) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

func (b *MemoryBroadcaster[T]) unsubscribe(topic string, sub *subscriber[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.topics[topic]
	if !ok {
		return
	}

	delete(subs, sub)
	if len(subs) == 0 {
		delete(b.topics, topic)
	}
	_ = sub.Close()
}
