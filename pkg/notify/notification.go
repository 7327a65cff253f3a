package notify

import (
	"time"
)

// Category groups notifications by the kind of domain event that produced them.
type Category string

const (
	CategoryActivity    Category = "activity"
	CategoryTeam        Category = "team"
	CategoryAchievement Category = "achievement"
	CategorySystem      Category = "system"
	CategorySocial      Category = "social"
	CategoryReminder    Category = "reminder"
)

// Valid reports whether the category is one of the known values.
func (c Category) Valid() bool {
	switch c {
	case CategoryActivity, CategoryTeam, CategoryAchievement,
		CategorySystem, CategorySocial, CategoryReminder:
		return true
	}
	return false
}

// Priority represents the notification priority level.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Channel is a delivery medium for a notification.
type Channel string

const (
	ChannelRealtime Channel = "realtime"
	ChannelEmail    Channel = "email"
	ChannelPush     Channel = "push"
)

// Status is the lifecycle state of a notification.
type Status string

const (
	StatusPending   Status = "pending"
	StatusScheduled Status = "scheduled"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
	StatusRead      Status = "read"
	StatusExpired   Status = "expired"
)

// statusTransitions is the allowed edge set of the lifecycle state machine:
// PENDING → SCHEDULED → SENT/FAILED/EXPIRED, SENT → READ, and FAILED back to
// SCHEDULED for retries. READ and EXPIRED have no outgoing edges; FAILED
// becomes terminal once retries are exhausted, which is enforced by the
// dispatcher rather than the table.
var statusTransitions = map[Status][]Status{
	StatusPending:   {StatusScheduled, StatusSent, StatusFailed, StatusExpired},
	StatusScheduled: {StatusSent, StatusFailed, StatusExpired},
	StatusFailed:    {StatusScheduled, StatusExpired},
	StatusSent:      {StatusRead},
}

// CanTransition reports whether the state machine allows moving from s to
// target. A same-state "transition" is always allowed as a no-op.
func (s Status) CanTransition(target Status) bool {
	if s == target {
		return true
	}
	for _, allowed := range statusTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Notification is one message destined for one user.
type Notification struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	TemplateID string `json:"template_id,omitempty"`

	Type     string   `json:"type"` // free-form event tag, e.g. "activity.logged"
	Category Category `json:"category"`
	Priority Priority `json:"priority"`

	Title        string         `json:"title"`
	Content      string         `json:"content"`
	EmailContent string         `json:"email_content,omitempty"` // richer body used by the email channel
	Data         map[string]any `json:"data,omitempty"`

	Channels     []Channel  `json:"channels"`
	Status       Status     `json:"status"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	ReadAt       *time.Time `json:"read_at,omitempty"`
	ClickedAt    *time.Time `json:"clicked_at,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`

	RetryCount int    `json:"retry_count"`
	MaxRetries int    `json:"max_retries"`
	LastError  string `json:"last_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsExpired reports whether the notification's expiry has passed at the given time.
func (n *Notification) IsExpired(now time.Time) bool {
	if n.ExpiresAt == nil {
		return false
	}
	return now.After(*n.ExpiresAt)
}

// IsTerminal reports whether the notification can never be dispatched again:
// READ and EXPIRED always, FAILED once retries are exhausted.
func (n *Notification) IsTerminal() bool {
	switch n.Status {
	case StatusRead, StatusExpired:
		return true
	case StatusFailed:
		return n.RetryCount >= n.MaxRetries
	}
	return false
}

// transition moves the notification to the target status. UpdatedAt is left
// untouched: it is the optimistic token observed at read time, and the store
// stamps a fresh one on write.
func (n *Notification) transition(target Status) error {
	if !n.Status.CanTransition(target) {
		return ErrInvalidTransition
	}
	n.Status = target
	return nil
}
