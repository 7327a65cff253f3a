package notify

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// User is the engine's projection of a platform member: just enough to
// validate targets and address deliveries. The full profile is owned by the
// host application.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Timezone string `json:"timezone,omitempty"`
}

// UserStore resolves notification targets.
type UserStore interface {
	// Get returns the user or ErrInvalidUser when no such user exists.
	Get(ctx context.Context, id string) (*User, error)
}

// ListOptions filters and paginates a user's notifications.
type ListOptions struct {
	Limit      int    // clamped to 100 by the manager
	Cursor     string // opaque cursor from a previous page
	Status     *Status
	Category   *Category
	Priority   *Priority
	UnreadOnly bool
	StartDate  *time.Time
	EndDate    *time.Time
}

// Page is one page of a user's notifications, newest first.
type Page struct {
	Items      []Notification `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
	HasMore    bool           `json:"has_more"`
}

// Stats aggregates a user's notifications for badge counts and overview UIs.
type Stats struct {
	Total      int              `json:"total"`
	Unread     int              `json:"unread"`
	ByCategory map[Category]int `json:"by_category"`
	ByPriority map[Priority]int `json:"by_priority"`
	ByStatus   map[Status]int   `json:"by_status"`
}

// NotificationStore is the notification repository. The store is the single
// source of truth for status; Update performs an optimistic-concurrency check
// against the UpdatedAt the caller observed and fails with
// ErrConcurrentUpdate when the row moved underneath.
type NotificationStore interface {
	Create(ctx context.Context, n Notification) error

	// Get returns the notification or ErrNotificationNotFound.
	Get(ctx context.Context, id string) (*Notification, error)

	// Update persists n. n.UpdatedAt must carry the value the caller loaded;
	// the store stamps a fresh UpdatedAt and returns the stored copy.
	Update(ctx context.Context, n Notification) (*Notification, error)

	// List returns a page of the user's notifications, newest first.
	List(ctx context.Context, userID string, opts ListOptions) (*Page, error)

	// ListDue returns up to limit notifications ready for the scheduled
	// scan: status SCHEDULED, scheduledFor <= now, not yet expired.
	ListDue(ctx context.Context, now time.Time, limit int) ([]Notification, error)

	// ListPendingByKind returns PENDING notifications matching a type and
	// category created within [from, to]. Used by batch re-location.
	ListPendingByKind(ctx context.Context, typ string, category Category, from, to time.Time) ([]Notification, error)

	// MarkRead sets readAt and READ status on the given ids, but only for
	// rows owned by userID that are SENT and unread. Returns the number
	// updated. Ownership scoping is a security invariant.
	MarkRead(ctx context.Context, userID string, ids []string, now time.Time) (int, error)

	// MarkAllRead is MarkRead over every eligible row of the user,
	// optionally restricted to one category.
	MarkAllRead(ctx context.Context, userID string, category *Category, now time.Time) (int, error)

	// SetClicked stamps clickedAt on a row owned by userID, first click wins.
	SetClicked(ctx context.Context, userID, id string, now time.Time) error

	// DeleteExpired removes rows past expiry that will never deliver:
	// status PENDING, SCHEDULED or FAILED. Returns the count removed.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)

	// CountStats aggregates the user's notifications.
	CountStats(ctx context.Context, userID string) (*Stats, error)
}

// TemplateStore is the template repository.
type TemplateStore interface {
	Create(ctx context.Context, tpl Template) error
	Update(ctx context.Context, tpl Template) error

	// Get returns the template by id or ErrTemplateNotFound.
	Get(ctx context.Context, id string) (*Template, error)

	// GetByKey returns the template by its stable key or ErrTemplateNotFound.
	GetByKey(ctx context.Context, key string) (*Template, error)

	// List returns templates, optionally restricted to one category.
	List(ctx context.Context, category *Category) ([]Template, error)
}

// PreferenceStore is the preference repository.
type PreferenceStore interface {
	// Get returns the preference row or ErrPreferenceNotFound.
	Get(ctx context.Context, userID string, category Category) (*Preference, error)

	// ListByUser returns all preference rows of a user.
	ListByUser(ctx context.Context, userID string) ([]Preference, error)

	// ReplaceAll atomically replaces the user's preference rows: existing
	// rows are deleted, the given ones created.
	ReplaceAll(ctx context.Context, userID string, prefs []Preference) error
}

// BatchStore is the batch record repository.
type BatchStore interface {
	Create(ctx context.Context, b Batch) error

	// Get returns the batch or ErrBatchNotFound.
	Get(ctx context.Context, id string) (*Batch, error)

	Update(ctx context.Context, b Batch) error
}

// encodeCursor packs a (createdAt, id) position into an opaque page cursor.
func encodeCursor(createdAt time.Time, id string) string {
	raw := createdAt.UTC().Format(time.RFC3339Nano) + "|" + id
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

// decodeCursor unpacks a cursor produced by encodeCursor.
func decodeCursor(cursor string) (time.Time, string, error) {
	raw, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	ts, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return time.Time{}, "", fmt.Errorf("%w: malformed cursor", ErrInvalidCursor)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return createdAt, id, nil
}
