// Package broadcast provides topic-keyed publish/subscribe primitives for
// fanning messages out to in-process subscribers.
//
// The notification engine publishes realtime notifications to per-user
// topics; each connected client of a user holds one subscriber. The
// in-memory implementation favours publisher liveness over delivery
// guarantees: a subscriber that cannot keep up has messages dropped and is
// unsubscribed rather than allowed to stall the publisher.
//
//	b := broadcast.NewMemoryBroadcaster[Event](64)
//	sub := b.Subscribe(ctx, "user:"+userID)
//	for msg := range sub.Receive(ctx) {
//	    // push msg.Data to the client
//	}
//
// The Broadcaster interface is deliberately small so hosts can swap in a
// Redis or NATS backed implementation for multi-instance deployments.
package broadcast
