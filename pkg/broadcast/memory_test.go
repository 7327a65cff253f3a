package broadcast

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveOne[T any](t *testing.T, sub Subscriber[T]) Message[T] {
	t.Helper()
	select {
	case msg, ok := <-sub.Receive(context.Background()):
		require.True(t, ok, "receive channel closed unexpectedly")
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return Message[T]{}
	}
}

func TestMemoryBroadcaster_PublishToTopic(t *testing.T) {
	b := NewMemoryBroadcaster[string](4)
	defer b.Close()

	ctx := context.Background()
	sub := b.Subscribe(ctx, "user:1")

	require.NoError(t, b.Publish(ctx, "user:1", "hello"))

	msg := receiveOne(t, sub)
	assert.Equal(t, "user:1", msg.Topic)
	assert.Equal(t, "hello", msg.Data)
}

func TestMemoryBroadcaster_TopicIsolation(t *testing.T) {
	b := NewMemoryBroadcaster[int](4)
	defer b.Close()

	ctx := context.Background()
	sub1 := b.Subscribe(ctx, "user:1")
	sub2 := b.Subscribe(ctx, "user:2")

	require.NoError(t, b.Publish(ctx, "user:1", 42))

	msg := receiveOne(t, sub1)
	assert.Equal(t, 42, msg.Data)

	select {
	case <-sub2.Receive(ctx):
		t.Fatal("subscriber of another topic received the message")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryBroadcaster_MultipleSubscribers(t *testing.T) {
	b := NewMemoryBroadcaster[int](4)
	defer b.Close()

	ctx := context.Background()
	sub1 := b.Subscribe(ctx, "user:1")
	sub2 := b.Subscribe(ctx, "user:1")

	require.NoError(t, b.Publish(ctx, "user:1", 7))

	assert.Equal(t, 7, receiveOne(t, sub1).Data)
	assert.Equal(t, 7, receiveOne(t, sub2).Data)
}

func TestMemoryBroadcaster_NoSubscribersIsNotAnError(t *testing.T) {
	b := NewMemoryBroadcaster[int](4)
	defer b.Close()

	require.NoError(t, b.Publish(context.Background(), "user:none", 1))
}

func TestMemoryBroadcaster_SlowConsumerDropped(t *testing.T) {
	b := NewMemoryBroadcaster[int](1)
	defer b.Close()

	ctx := context.Background()
	_ = b.Subscribe(ctx, "user:1")

	// Second publish overflows the buffer of the never-draining subscriber.
	require.NoError(t, b.Publish(ctx, "user:1", 1))
	require.NoError(t, b.Publish(ctx, "user:1", 2))

	assert.Eventually(t, func() bool {
		return b.Subscribers("user:1") == 0
	}, time.Second, 10*time.Millisecond, "slow subscriber should be removed")
}

func TestMemoryBroadcaster_ContextCancellationUnsubscribes(t *testing.T) {
	b := NewMemoryBroadcaster[int](4)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	_ = b.Subscribe(ctx, "user:1")
	require.Equal(t, 1, b.Subscribers("user:1"))

	cancel()

	assert.Eventually(t, func() bool {
		return b.Subscribers("user:1") == 0
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryBroadcaster_CloseWithLiveSubscriberContext(t *testing.T) {
	b := NewMemoryBroadcaster[int](4)

	// The subscriber context is cancellable but never cancelled; Close must
	// still return instead of waiting for it.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = b.Subscribe(ctx, "user:1")

	closed := make(chan struct{})
	go func() {
		_ = b.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close blocked on a live subscriber context")
	}
}

func TestMemoryBroadcaster_Close(t *testing.T) {
	b := NewMemoryBroadcaster[int](4)

	ctx := context.Background()
	sub := b.Subscribe(ctx, "user:1")

	require.NoError(t, b.Close())
	require.NoError(t, b.Close(), "close must be idempotent")

	_, ok := <-sub.Receive(ctx)
	assert.False(t, ok, "subscriber channel should be closed")

	assert.ErrorIs(t, b.Publish(ctx, "user:1", 1), ErrClosed)

	// Subscribing after close yields an already-closed subscriber.
	late := b.Subscribe(ctx, "user:1")
	_, ok = <-late.Receive(ctx)
	assert.False(t, ok)
}
