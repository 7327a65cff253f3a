package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/pulsefit/notify/pkg/broadcast"
)

// RealtimePayload is the JSON-serializable projection of a notification
// published to a user's realtime topic. Delivery bookkeeping fields stay
// server-side.
type RealtimePayload struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Type      string         `json:"type"`
	Category  Category       `json:"category"`
	Priority  Priority       `json:"priority"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// UserTopic returns the broadcast topic carrying a user's realtime
// notifications. Connected clients subscribe to it.
func UserTopic(userID string) string {
	return "user:" + userID + ":notifications"
}

// RealtimeChannel publishes notifications to the per-user topic on a
// broadcaster. The broadcaster is the transport boundary; swapping the
// in-memory implementation for a distributed one changes nothing here.
type RealtimeChannel struct {
	broadcaster broadcast.Broadcaster[RealtimePayload]
}

// NewRealtimeChannel creates the realtime channel adapter.
func NewRealtimeChannel(b broadcast.Broadcaster[RealtimePayload]) *RealtimeChannel {
	return &RealtimeChannel{broadcaster: b}
}

func (c *RealtimeChannel) Channel() Channel { return ChannelRealtime }

func (c *RealtimeChannel) Send(ctx context.Context, n Notification, user User) error {
	payload := RealtimePayload{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      n.Type,
		Category:  n.Category,
		Priority:  n.Priority,
		Title:     n.Title,
		Content:   n.Content,
		Data:      n.Data,
		CreatedAt: n.CreatedAt,
	}
	if err := c.broadcaster.Publish(ctx, UserTopic(n.UserID), payload); err != nil {
		return fmt.Errorf("realtime publish: %w", err)
	}
	return nil
}
