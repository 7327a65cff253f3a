package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pulsefit/notify/pkg/cache"
	"github.com/pulsefit/notify/pkg/logger"
)

// Enqueuer accepts notification ids for asynchronous dispatch. The manager
// hands freshly created notifications to it fire-and-forget; a full queue is
// not an error because the notification is rescheduled so the scheduled scan
// delivers it. Without an enqueuer, notifications stay PENDING for explicit
// dispatch through Dispatch or SendBatch.
type Enqueuer interface {
	Enqueue(id string) bool
}

// CreateInput is the request to create one notification.
type CreateInput struct {
	UserID       string         `json:"user_id"`
	TemplateKey  string         `json:"template_key,omitempty"` // renders title/content when set
	Type         string         `json:"type"`
	Category     Category       `json:"category"`
	Priority     Priority       `json:"priority,omitempty"` // defaults to medium
	Title        string         `json:"title,omitempty"`
	Content      string         `json:"content,omitempty"`
	EmailContent string         `json:"email_content,omitempty"`
	Data         map[string]any `json:"data,omitempty"`

	// Channels narrows delivery to a subset of the user's preferred channels.
	// Empty means "all channels the preference allows".
	Channels []Channel `json:"channels,omitempty"`

	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	MaxRetries   *int       `json:"max_retries,omitempty"`
}

// Manager owns the notification lifecycle: creation with all its policy
// checks, read receipts, listing, stats and the administrative template and
// preference surfaces. Delivery itself belongs to the Dispatcher.
type Manager struct {
	store     NotificationStore
	templates TemplateStore
	prefs     PreferenceStore
	users     UserStore
	resolver  *Resolver
	limiter   *RateLimiter
	enqueuer  Enqueuer

	cfg Config
	log *slog.Logger

	statsCache *cache.TTLCache[string, *Stats]

	// now is swappable for deterministic time-dependent tests.
	now func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithRateLimiter installs the creation rate limiter. Without one, creation
// is unlimited even when the config says otherwise.
func WithRateLimiter(l *RateLimiter) ManagerOption {
	return func(m *Manager) { m.limiter = l }
}

// WithEnqueuer installs the queue used for immediate dispatch after create.
func WithEnqueuer(e Enqueuer) ManagerOption {
	return func(m *Manager) { m.enqueuer = e }
}

// WithResolver shares an externally built preference resolver, typically the
// same instance the dispatcher uses so both see one cache.
func WithResolver(r *Resolver) ManagerOption {
	return func(m *Manager) {
		if r != nil {
			m.resolver = r
		}
	}
}

// WithManagerLogger overrides the manager's logger.
func WithManagerLogger(log *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// NewManager creates the lifecycle manager.
func NewManager(
	store NotificationStore,
	templates TemplateStore,
	prefs PreferenceStore,
	users UserStore,
	cfg Config,
	opts ...ManagerOption,
) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Manager{
		store:      store,
		templates:  templates,
		prefs:      prefs,
		users:      users,
		resolver:   NewResolver(prefs, WithPreferenceCacheTTL(cfg.PreferenceCacheTTL)),
		cfg:        cfg,
		log:        slog.Default().With(logger.Component("notify.manager")),
		statsCache: cache.NewTTLCache[string, *Stats](),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Resolver exposes the preference resolver so the dispatcher and the host can
// share the same cache.
func (m *Manager) Resolver() *Resolver { return m.resolver }

// Create runs the full creation pipeline: target validation, optional
// template rendering, rate limiting, channel resolution, persistence, and a
// fire-and-forget handoff to immediate dispatch. Validation failures surface
// to the caller and nothing is persisted; delivery failures never do.
func (m *Manager) Create(ctx context.Context, input CreateInput) (*Notification, error) {
	if _, err := m.users.Get(ctx, input.UserID); err != nil {
		return nil, err
	}
	if !input.Category.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, input.Category)
	}

	title, content, emailContent := input.Title, input.Content, input.EmailContent
	templateID := ""
	if input.TemplateKey != "" {
		tpl, err := m.templates.GetByKey(ctx, input.TemplateKey)
		if err != nil {
			return nil, err
		}
		if !tpl.IsActive {
			return nil, fmt.Errorf("%w: template %q is inactive", ErrTemplateNotFound, input.TemplateKey)
		}
		rendered := RenderTemplate(*tpl, input.Data)
		title, content, emailContent = rendered.Title, rendered.Content, rendered.EmailContent
		templateID = tpl.ID
	}

	if m.cfg.RateLimitEnabled && m.limiter != nil {
		if _, err := m.limiter.Allow(ctx, input.UserID); err != nil {
			return nil, err
		}
	}

	channels, err := m.resolver.ResolveChannels(ctx, input.UserID, input.Category, input.Channels)
	if err != nil {
		return nil, err
	}

	now := m.now()

	expiresAt := input.ExpiresAt
	if expiresAt == nil {
		at := now.Add(m.cfg.DefaultExpiration)
		expiresAt = &at
	}

	priority := input.Priority
	if priority == "" {
		priority = PriorityMedium
	}

	maxRetries := m.cfg.DefaultRetryCount
	if input.MaxRetries != nil && *input.MaxRetries >= 0 {
		maxRetries = *input.MaxRetries
	}

	n := Notification{
		ID:           uuid.NewString(),
		UserID:       input.UserID,
		TemplateID:   templateID,
		Type:         input.Type,
		Category:     input.Category,
		Priority:     priority,
		Title:        title,
		Content:      content,
		EmailContent: emailContent,
		Data:         input.Data,
		Channels:     channels,
		Status:       StatusPending,
		ScheduledFor: input.ScheduledFor,
		ExpiresAt:    expiresAt,
		MaxRetries:   maxRetries,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	futureScheduled := input.ScheduledFor != nil && input.ScheduledFor.After(now)
	if futureScheduled {
		n.Status = StatusScheduled
	}

	if err := m.store.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("persist notification: %w", err)
	}
	m.statsCache.Invalidate(input.UserID)

	if !futureScheduled && m.enqueuer != nil && !m.enqueuer.Enqueue(n.ID) {
		// The scan predicate only matches SCHEDULED rows, so a dropped
		// notification must be rescheduled or it would sit PENDING until
		// cleanup deletes it.
		if terr := n.transition(StatusScheduled); terr == nil {
			n.ScheduledFor = &now
			if updated, uerr := m.store.Update(ctx, n); uerr != nil {
				m.log.ErrorContext(ctx, "failed to reschedule after full dispatch queue",
					logger.NotificationID(n.ID), logger.Error(uerr))
			} else {
				n = *updated
			}
		}
		m.log.WarnContext(ctx, "dispatch queue full, notification rescheduled for next scan",
			logger.NotificationID(n.ID), logger.UserID(n.UserID))
	}

	m.log.InfoContext(ctx, "notification created",
		logger.NotificationID(n.ID),
		logger.UserID(n.UserID),
		logger.Category(string(n.Category)),
		slog.String("status", string(n.Status)),
		slog.Int("channels", len(n.Channels)),
	)
	return &n, nil
}

// Schedule moves a notification to SCHEDULED for the given time. Works from
// PENDING (defer an immediate notification) and from FAILED (manual retry).
func (m *Manager) Schedule(ctx context.Context, id string, at time.Time) (*Notification, error) {
	n, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := n.transition(StatusScheduled); err != nil {
		return nil, fmt.Errorf("%w: cannot schedule from %s", err, n.Status)
	}
	n.ScheduledFor = &at
	updated, err := m.store.Update(ctx, *n)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// MarkRead marks the given notifications read for the user. Only rows owned
// by userID count; ids of other users are silently ignored, never an error.
// Returns the number actually updated.
func (m *Manager) MarkRead(ctx context.Context, userID string, ids []string) (int, error) {
	updated, err := m.store.MarkRead(ctx, userID, ids, m.now())
	if err != nil {
		return 0, err
	}
	if updated > 0 {
		m.statsCache.Invalidate(userID)
	}
	return updated, nil
}

// MarkAllRead marks every unread sent notification of the user read,
// optionally restricted to one category.
func (m *Manager) MarkAllRead(ctx context.Context, userID string, category *Category) (int, error) {
	updated, err := m.store.MarkAllRead(ctx, userID, category, m.now())
	if err != nil {
		return 0, err
	}
	if updated > 0 {
		m.statsCache.Invalidate(userID)
	}
	return updated, nil
}

// MarkClicked records the first click on a notification. Later clicks are
// no-ops.
func (m *Manager) MarkClicked(ctx context.Context, userID, id string) error {
	return m.store.SetClicked(ctx, userID, id, m.now())
}

// List returns a page of the user's notifications, newest first. The limit
// is silently clamped to 100 and defaults to 20.
func (m *Manager) List(ctx context.Context, userID string, opts ListOptions) (*Page, error) {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	return m.store.List(ctx, userID, opts)
}

// Stats returns the user's notification counts. Served from a short-TTL
// cache; writes through the manager invalidate it so badge counts stay
// near-live.
func (m *Manager) Stats(ctx context.Context, userID string) (*Stats, error) {
	if stats, ok := m.statsCache.Get(userID); ok {
		return stats, nil
	}
	stats, err := m.store.CountStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	m.statsCache.Set(userID, stats, m.cfg.StatsCacheTTL)
	return stats, nil
}

// CountUnread returns the user's unread count.
func (m *Manager) CountUnread(ctx context.Context, userID string) (int, error) {
	stats, err := m.Stats(ctx, userID)
	if err != nil {
		return 0, err
	}
	return stats.Unread, nil
}

// CleanupExpired removes notifications past expiry that will never deliver
// (PENDING, SCHEDULED or FAILED). Meant for a cron trigger. Returns the
// count removed.
func (m *Manager) CleanupExpired(ctx context.Context) (int, error) {
	removed, err := m.store.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		m.log.InfoContext(ctx, "expired notifications removed", slog.Int("count", removed))
	}
	return removed, nil
}

// CreateTemplate registers a template. A missing ID is generated.
func (m *Manager) CreateTemplate(ctx context.Context, tpl Template) (*Template, error) {
	if !tpl.Category.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, tpl.Category)
	}
	if tpl.Key == "" {
		return nil, fmt.Errorf("template key is required")
	}
	if tpl.ID == "" {
		tpl.ID = uuid.NewString()
	}
	now := m.now()
	tpl.CreatedAt = now
	tpl.UpdatedAt = now
	if err := m.templates.Create(ctx, tpl); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// UpdateTemplate replaces a template's content.
func (m *Manager) UpdateTemplate(ctx context.Context, tpl Template) (*Template, error) {
	if !tpl.Category.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, tpl.Category)
	}
	tpl.UpdatedAt = m.now()
	if err := m.templates.Update(ctx, tpl); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// GetTemplate looks a template up by its stable key.
func (m *Manager) GetTemplate(ctx context.Context, key string) (*Template, error) {
	return m.templates.GetByKey(ctx, key)
}

// ListTemplates lists templates, optionally restricted to one category.
func (m *Manager) ListTemplates(ctx context.Context, category *Category) ([]Template, error) {
	return m.templates.List(ctx, category)
}

// UpdateUserPreferences replaces the user's preference rows wholesale:
// existing rows are deleted and the given ones created. The resolver cache is
// invalidated so the new policy applies immediately.
func (m *Manager) UpdateUserPreferences(ctx context.Context, userID string, prefs []Preference) error {
	now := m.now()
	for i := range prefs {
		if !prefs[i].Category.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidCategory, prefs[i].Category)
		}
		if prefs[i].QuietHoursStart != "" {
			if _, err := parseClock(prefs[i].QuietHoursStart); err != nil {
				return err
			}
		}
		if prefs[i].QuietHoursEnd != "" {
			if _, err := parseClock(prefs[i].QuietHoursEnd); err != nil {
				return err
			}
		}
		prefs[i].UserID = userID
		if prefs[i].CreatedAt.IsZero() {
			prefs[i].CreatedAt = now
		}
		prefs[i].UpdatedAt = now
	}
	if err := m.prefs.ReplaceAll(ctx, userID, prefs); err != nil {
		return fmt.Errorf("replace preferences: %w", err)
	}
	m.resolver.Invalidate(userID)
	return nil
}

// GetUserPreferences returns all preference rows of the user.
func (m *Manager) GetUserPreferences(ctx context.Context, userID string) ([]Preference, error) {
	return m.prefs.ListByUser(ctx, userID)
}
