package notify

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryNotificationStore is an in-memory NotificationStore.
// Suitable for development and testing; production deployments use the
// Postgres-backed store.
type MemoryNotificationStore struct {
	items map[string]Notification
	mu    sync.RWMutex
}

// NewMemoryNotificationStore creates an empty in-memory notification store.
func NewMemoryNotificationStore() *MemoryNotificationStore {
	return &MemoryNotificationStore{items: make(map[string]Notification)}
}

func (s *MemoryNotificationStore) Create(ctx context.Context, n Notification) error {
	if n.ID == "" {
		return fmt.Errorf("notification ID is required")
	}
	if n.UserID == "" {
		return fmt.Errorf("user ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = n.CreatedAt
	}
	s.items[n.ID] = n
	return nil
}

func (s *MemoryNotificationStore) Get(ctx context.Context, id string) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.items[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	// Copy to prevent external mutation of stored data.
	out := n
	return &out, nil
}

func (s *MemoryNotificationStore) Update(ctx context.Context, n Notification) (*Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.items[n.ID]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	if !stored.UpdatedAt.Equal(n.UpdatedAt) {
		return nil, ErrConcurrentUpdate
	}

	n.UpdatedAt = time.Now()
	s.items[n.ID] = n
	out := n
	return &out, nil
}

func (s *MemoryNotificationStore) List(ctx context.Context, userID string, opts ListOptions) (*Page, error) {
	s.mu.RLock()
	filtered := make([]Notification, 0)
	for _, n := range s.items {
		if n.UserID != userID {
			continue
		}
		if opts.Status != nil && n.Status != *opts.Status {
			continue
		}
		if opts.Category != nil && n.Category != *opts.Category {
			continue
		}
		if opts.Priority != nil && n.Priority != *opts.Priority {
			continue
		}
		if opts.UnreadOnly && n.ReadAt != nil {
			continue
		}
		if opts.StartDate != nil && n.CreatedAt.Before(*opts.StartDate) {
			continue
		}
		if opts.EndDate != nil && n.CreatedAt.After(*opts.EndDate) {
			continue
		}
		filtered = append(filtered, n)
	}
	s.mu.RUnlock()

	// Newest first, ID as tiebreaker for a stable cursor order.
	sort.Slice(filtered, func(i, j int) bool {
		if !filtered[i].CreatedAt.Equal(filtered[j].CreatedAt) {
			return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
		}
		return filtered[i].ID > filtered[j].ID
	})

	start := 0
	if opts.Cursor != "" {
		cursorAt, cursorID, err := decodeCursor(opts.Cursor)
		if err != nil {
			return nil, err
		}
		for i, n := range filtered {
			if n.CreatedAt.Before(cursorAt) ||
				(n.CreatedAt.Equal(cursorAt) && n.ID < cursorID) {
				start = i
				break
			}
			start = len(filtered)
		}
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	end := min(start+limit, len(filtered))
	page := &Page{Items: filtered[start:end]}
	if end < len(filtered) {
		last := page.Items[len(page.Items)-1]
		page.NextCursor = encodeCursor(last.CreatedAt, last.ID)
		page.HasMore = true
	}
	return page, nil
}

func (s *MemoryNotificationStore) ListDue(ctx context.Context, now time.Time, limit int) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	due := make([]Notification, 0)
	for _, n := range s.items {
		if n.Status != StatusScheduled {
			continue
		}
		if n.ScheduledFor == nil || n.ScheduledFor.After(now) {
			continue
		}
		if n.ExpiresAt != nil && !n.ExpiresAt.After(now) {
			continue
		}
		due = append(due, n)
	}

	// Oldest due first so a backlog drains in scheduling order.
	sort.Slice(due, func(i, j int) bool {
		return due[i].ScheduledFor.Before(*due[j].ScheduledFor)
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *MemoryNotificationStore) ListPendingByKind(ctx context.Context, typ string, category Category, from, to time.Time) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Notification, 0)
	for _, n := range s.items {
		if n.Status != StatusPending {
			continue
		}
		if n.Type != typ || n.Category != category {
			continue
		}
		if n.CreatedAt.Before(from) || n.CreatedAt.After(to) {
			continue
		}
		out = append(out, n)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryNotificationStore) MarkRead(ctx context.Context, userID string, ids []string, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := 0
	for _, id := range ids {
		n, ok := s.items[id]
		// Ownership scoping: rows of other users are silently skipped.
		if !ok || n.UserID != userID {
			continue
		}
		if n.Status != StatusSent || n.ReadAt != nil {
			continue
		}
		readAt := now
		n.ReadAt = &readAt
		n.Status = StatusRead
		n.UpdatedAt = now
		s.items[id] = n
		updated++
	}
	return updated, nil
}

func (s *MemoryNotificationStore) MarkAllRead(ctx context.Context, userID string, category *Category, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := 0
	for id, n := range s.items {
		if n.UserID != userID {
			continue
		}
		if category != nil && n.Category != *category {
			continue
		}
		if n.Status != StatusSent || n.ReadAt != nil {
			continue
		}
		readAt := now
		n.ReadAt = &readAt
		n.Status = StatusRead
		n.UpdatedAt = now
		s.items[id] = n
		updated++
	}
	return updated, nil
}

func (s *MemoryNotificationStore) SetClicked(ctx context.Context, userID, id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.items[id]
	if !ok || n.UserID != userID {
		return ErrNotificationNotFound
	}
	if n.ClickedAt != nil {
		return nil
	}
	clickedAt := now
	n.ClickedAt = &clickedAt
	n.UpdatedAt = now
	s.items[id] = n
	return nil
}

func (s *MemoryNotificationStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, n := range s.items {
		if n.ExpiresAt == nil || !now.After(*n.ExpiresAt) {
			continue
		}
		switch n.Status {
		case StatusPending, StatusScheduled, StatusFailed:
			delete(s.items, id)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryNotificationStore) CountStats(ctx context.Context, userID string) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{
		ByCategory: make(map[Category]int),
		ByPriority: make(map[Priority]int),
		ByStatus:   make(map[Status]int),
	}
	for _, n := range s.items {
		if n.UserID != userID {
			continue
		}
		stats.Total++
		if n.ReadAt == nil {
			stats.Unread++
		}
		stats.ByCategory[n.Category]++
		stats.ByPriority[n.Priority]++
		stats.ByStatus[n.Status]++
	}
	return stats, nil
}

// MemoryTemplateStore is an in-memory TemplateStore.
type MemoryTemplateStore struct {
	byID  map[string]Template
	byKey map[string]string // key -> id
	mu    sync.RWMutex
}

// NewMemoryTemplateStore creates an empty in-memory template store.
func NewMemoryTemplateStore() *MemoryTemplateStore {
	return &MemoryTemplateStore{
		byID:  make(map[string]Template),
		byKey: make(map[string]string),
	}
}

func (s *MemoryTemplateStore) Create(ctx context.Context, tpl Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byKey[tpl.Key]; exists {
		return fmt.Errorf("template key %q already exists", tpl.Key)
	}
	s.byID[tpl.ID] = tpl
	s.byKey[tpl.Key] = tpl.ID
	return nil
}

func (s *MemoryTemplateStore) Update(ctx context.Context, tpl Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[tpl.ID]
	if !ok {
		return ErrTemplateNotFound
	}
	if existing.Key != tpl.Key {
		if _, taken := s.byKey[tpl.Key]; taken {
			return fmt.Errorf("template key %q already exists", tpl.Key)
		}
		delete(s.byKey, existing.Key)
		s.byKey[tpl.Key] = tpl.ID
	}
	s.byID[tpl.ID] = tpl
	return nil
}

func (s *MemoryTemplateStore) Get(ctx context.Context, id string) (*Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tpl, ok := s.byID[id]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	out := tpl
	return &out, nil
}

func (s *MemoryTemplateStore) GetByKey(ctx context.Context, key string) (*Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byKey[key]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	tpl := s.byID[id]
	out := tpl
	return &out, nil
}

func (s *MemoryTemplateStore) List(ctx context.Context, category *Category) ([]Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Template, 0, len(s.byID))
	for _, tpl := range s.byID {
		if category != nil && tpl.Category != *category {
			continue
		}
		out = append(out, tpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// MemoryPreferenceStore is an in-memory PreferenceStore.
type MemoryPreferenceStore struct {
	// userID -> category -> preference
	prefs map[string]map[Category]Preference
	mu    sync.RWMutex
}

// NewMemoryPreferenceStore creates an empty in-memory preference store.
func NewMemoryPreferenceStore() *MemoryPreferenceStore {
	return &MemoryPreferenceStore{prefs: make(map[string]map[Category]Preference)}
}

func (s *MemoryPreferenceStore) Get(ctx context.Context, userID string, category Category) (*Preference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pref, ok := s.prefs[userID][category]
	if !ok {
		return nil, ErrPreferenceNotFound
	}
	out := pref
	return &out, nil
}

func (s *MemoryPreferenceStore) ListByUser(ctx context.Context, userID string) ([]Preference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Preference, 0, len(s.prefs[userID]))
	for _, pref := range s.prefs[userID] {
		out = append(out, pref)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (s *MemoryPreferenceStore) ReplaceAll(ctx context.Context, userID string, prefs []Preference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make(map[Category]Preference, len(prefs))
	for _, pref := range prefs {
		pref.UserID = userID
		rows[pref.Category] = pref
	}
	s.prefs[userID] = rows
	return nil
}

// MemoryBatchStore is an in-memory BatchStore.
type MemoryBatchStore struct {
	items map[string]Batch
	mu    sync.RWMutex
}

// NewMemoryBatchStore creates an empty in-memory batch store.
func NewMemoryBatchStore() *MemoryBatchStore {
	return &MemoryBatchStore{items: make(map[string]Batch)}
}

func (s *MemoryBatchStore) Create(ctx context.Context, b Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[b.ID] = b
	return nil
}

func (s *MemoryBatchStore) Get(ctx context.Context, id string) (*Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.items[id]
	if !ok {
		return nil, ErrBatchNotFound
	}
	out := b
	return &out, nil
}

func (s *MemoryBatchStore) Update(ctx context.Context, b Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[b.ID]; !ok {
		return ErrBatchNotFound
	}
	s.items[b.ID] = b
	return nil
}

// MemoryUserStore is an in-memory UserStore for development and tests.
type MemoryUserStore struct {
	users map[string]User
	mu    sync.RWMutex
}

// NewMemoryUserStore creates a user store seeded with the given users.
func NewMemoryUserStore(users ...User) *MemoryUserStore {
	s := &MemoryUserStore{users: make(map[string]User, len(users))}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

// Add inserts or replaces a user.
func (s *MemoryUserStore) Add(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *MemoryUserStore) Get(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidUser, id)
	}
	out := u
	return &out, nil
}
