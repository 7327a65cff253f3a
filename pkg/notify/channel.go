package notify

import (
	"context"
	"sync"
)

// ChannelSender delivers a notification over one medium. Implementations
// fail with a channel-specific error which the dispatcher records as the
// notification's lastError; one channel's failure never prevents the others
// from being attempted.
type ChannelSender interface {
	// Channel identifies the medium this sender serves.
	Channel() Channel

	// Send delivers the notification to the user. The user carries the
	// addressing data (email, timezone) the medium needs.
	Send(ctx context.Context, n Notification, user User) error
}

// ChannelRegistry maps channels to their senders. Adding a delivery medium
// means registering one implementation; the dispatcher has no per-channel
// knowledge.
type ChannelRegistry struct {
	senders map[Channel]ChannelSender
	mu      sync.RWMutex
}

// NewChannelRegistry creates an empty registry.
func NewChannelRegistry() *ChannelRegistry {
	return &ChannelRegistry{senders: make(map[Channel]ChannelSender)}
}

// Register adds or replaces the sender for its channel.
func (r *ChannelRegistry) Register(s ChannelSender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.senders[s.Channel()] = s
}

// Get returns the sender registered for a channel.
func (r *ChannelRegistry) Get(ch Channel) (ChannelSender, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.senders[ch]
	return s, ok
}

// Channels returns the channels that currently have a sender.
func (r *ChannelRegistry) Channels() []Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Channel, 0, len(r.senders))
	for ch := range r.senders {
		out = append(out, ch)
	}
	return out
}

// NoopChannel accepts every send without delivering anywhere. Useful in
// tests and in development setups that only care about persistence.
type NoopChannel struct {
	channel Channel
}

// NewNoopChannel creates a no-op sender for the given channel.
func NewNoopChannel(ch Channel) *NoopChannel {
	return &NoopChannel{channel: ch}
}

func (c *NoopChannel) Channel() Channel { return c.channel }

func (c *NoopChannel) Send(ctx context.Context, n Notification, user User) error {
	return nil
}
