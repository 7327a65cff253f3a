package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulsefit/notify/pkg/pg"
)

// Postgres-backed stores. Expected schema:
//
//	CREATE TABLE notifications (
//	    id            TEXT PRIMARY KEY,
//	    user_id       TEXT NOT NULL,
//	    template_id   TEXT NOT NULL DEFAULT '',
//	    type          TEXT NOT NULL,
//	    category      TEXT NOT NULL,
//	    priority      TEXT NOT NULL,
//	    title         TEXT NOT NULL,
//	    content       TEXT NOT NULL,
//	    email_content TEXT NOT NULL DEFAULT '',
//	    data          JSONB,
//	    channels      TEXT[] NOT NULL DEFAULT '{}',
//	    status        TEXT NOT NULL,
//	    scheduled_for TIMESTAMPTZ,
//	    sent_at       TIMESTAMPTZ,
//	    read_at       TIMESTAMPTZ,
//	    clicked_at    TIMESTAMPTZ,
//	    expires_at    TIMESTAMPTZ,
//	    retry_count   INT NOT NULL DEFAULT 0,
//	    max_retries   INT NOT NULL DEFAULT 0,
//	    last_error    TEXT NOT NULL DEFAULT '',
//	    created_at    TIMESTAMPTZ NOT NULL,
//	    updated_at    TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX notifications_user_created_idx ON notifications (user_id, created_at DESC, id DESC);
//	CREATE INDEX notifications_due_idx ON notifications (scheduled_for) WHERE status = 'scheduled';
//
//	CREATE TABLE notification_templates (
//	    id            TEXT PRIMARY KEY,
//	    key           TEXT NOT NULL UNIQUE,
//	    name          TEXT NOT NULL,
//	    category      TEXT NOT NULL,
//	    subject       TEXT NOT NULL,
//	    content       TEXT NOT NULL,
//	    email_content TEXT NOT NULL DEFAULT '',
//	    variables     TEXT[] NOT NULL DEFAULT '{}',
//	    is_active     BOOLEAN NOT NULL DEFAULT TRUE,
//	    created_at    TIMESTAMPTZ NOT NULL,
//	    updated_at    TIMESTAMPTZ NOT NULL
//	);
//
//	CREATE TABLE notification_preferences (
//	    user_id           TEXT NOT NULL,
//	    category          TEXT NOT NULL,
//	    channels          TEXT[] NOT NULL DEFAULT '{}',
//	    is_enabled        BOOLEAN NOT NULL DEFAULT TRUE,
//	    quiet_hours_start TEXT NOT NULL DEFAULT '',
//	    quiet_hours_end   TEXT NOT NULL DEFAULT '',
//	    timezone          TEXT NOT NULL DEFAULT '',
//	    created_at        TIMESTAMPTZ NOT NULL,
//	    updated_at        TIMESTAMPTZ NOT NULL,
//	    PRIMARY KEY (user_id, category)
//	);
//
//	CREATE TABLE notification_batches (
//	    id           TEXT PRIMARY KEY,
//	    type         TEXT NOT NULL,
//	    category     TEXT NOT NULL,
//	    total_count  INT NOT NULL,
//	    sent_count   INT NOT NULL DEFAULT 0,
//	    failed_count INT NOT NULL DEFAULT 0,
//	    status       TEXT NOT NULL,
//	    started_at   TIMESTAMPTZ NOT NULL,
//	    completed_at TIMESTAMPTZ
//	);

const notificationColumns = `id, user_id, template_id, type, category, priority,
	title, content, email_content, data, channels, status,
	scheduled_for, sent_at, read_at, clicked_at, expires_at,
	retry_count, max_retries, last_error, created_at, updated_at`

// PostgresNotificationStore is the production NotificationStore.
type PostgresNotificationStore struct {
	pool *pgxpool.Pool
}

// NewPostgresNotificationStore creates the store over an existing pool.
func NewPostgresNotificationStore(pool *pgxpool.Pool) *PostgresNotificationStore {
	return &PostgresNotificationStore{pool: pool}
}

func (s *PostgresNotificationStore) Create(ctx context.Context, n Notification) error {
	data, err := marshalData(n.Data)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
		n.ID, n.UserID, n.TemplateID, n.Type, string(n.Category), string(n.Priority),
		n.Title, n.Content, n.EmailContent, data, channelStrings(n.Channels), string(n.Status),
		n.ScheduledFor, n.SentAt, n.ReadAt, n.ClickedAt, n.ExpiresAt,
		n.RetryCount, n.MaxRetries, n.LastError, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *PostgresNotificationStore) Get(ctx context.Context, id string) (*Notification, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	n, err := scanNotification(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return n, nil
}

func (s *PostgresNotificationStore) Update(ctx context.Context, n Notification) (*Notification, error) {
	data, err := marshalData(n.Data)
	if err != nil {
		return nil, err
	}

	updatedAt := time.Now()
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications SET
			status = $1, scheduled_for = $2, sent_at = $3, read_at = $4,
			clicked_at = $5, expires_at = $6, retry_count = $7,
			max_retries = $8, last_error = $9, title = $10, content = $11,
			email_content = $12, data = $13, channels = $14, updated_at = $15
		WHERE id = $16 AND updated_at = $17`,
		string(n.Status), n.ScheduledFor, n.SentAt, n.ReadAt,
		n.ClickedAt, n.ExpiresAt, n.RetryCount,
		n.MaxRetries, n.LastError, n.Title, n.Content,
		n.EmailContent, data, channelStrings(n.Channels), updatedAt,
		n.ID, n.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the row is gone or its updated_at moved underneath us.
		if _, gerr := s.Get(ctx, n.ID); gerr != nil {
			return nil, gerr
		}
		return nil, ErrConcurrentUpdate
	}

	n.UpdatedAt = updatedAt
	out := n
	return &out, nil
}

func (s *PostgresNotificationStore) List(ctx context.Context, userID string, opts ListOptions) (*Page, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = $1`
	args := []any{userID}

	appendArg := func(clause string, value any) {
		args = append(args, value)
		query += fmt.Sprintf(clause, len(args))
	}

	if opts.Status != nil {
		appendArg(" AND status = $%d", string(*opts.Status))
	}
	if opts.Category != nil {
		appendArg(" AND category = $%d", string(*opts.Category))
	}
	if opts.Priority != nil {
		appendArg(" AND priority = $%d", string(*opts.Priority))
	}
	if opts.UnreadOnly {
		query += " AND read_at IS NULL"
	}
	if opts.StartDate != nil {
		appendArg(" AND created_at >= $%d", *opts.StartDate)
	}
	if opts.EndDate != nil {
		appendArg(" AND created_at <= $%d", *opts.EndDate)
	}
	if opts.Cursor != "" {
		cursorAt, cursorID, err := decodeCursor(opts.Cursor)
		if err != nil {
			return nil, err
		}
		args = append(args, cursorAt, cursorID)
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", len(args)-1, len(args))
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	// Fetch one extra row to know whether another page exists.
	appendArg(" ORDER BY created_at DESC, id DESC LIMIT $%d", limit+1)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	items := make([]Notification, 0, limit)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		items = append(items, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	page := &Page{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		last := page.Items[limit-1]
		page.NextCursor = encodeCursor(last.CreatedAt, last.ID)
		page.HasMore = true
	}
	return page, nil
}

func (s *PostgresNotificationStore) ListDue(ctx context.Context, now time.Time, limit int) ([]Notification, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE status = 'scheduled' AND scheduled_for <= $1
			AND (expires_at IS NULL OR expires_at > $1)
		ORDER BY scheduled_for ASC
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due notifications: %w", err)
	}
	defer rows.Close()
	return collectNotifications(rows)
}

func (s *PostgresNotificationStore) ListPendingByKind(ctx context.Context, typ string, category Category, from, to time.Time) ([]Notification, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE status = 'pending' AND type = $1 AND category = $2
			AND created_at BETWEEN $3 AND $4
		ORDER BY created_at ASC`, typ, string(category), from, to)
	if err != nil {
		return nil, fmt.Errorf("list pending notifications: %w", err)
	}
	defer rows.Close()
	return collectNotifications(rows)
}

func (s *PostgresNotificationStore) MarkRead(ctx context.Context, userID string, ids []string, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET status = 'read', read_at = $1, updated_at = $1
		WHERE user_id = $2 AND id = ANY($3)
			AND status = 'sent' AND read_at IS NULL`,
		now, userID, ids)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresNotificationStore) MarkAllRead(ctx context.Context, userID string, category *Category, now time.Time) (int, error) {
	query := `
		UPDATE notifications
		SET status = 'read', read_at = $1, updated_at = $1
		WHERE user_id = $2 AND status = 'sent' AND read_at IS NULL`
	args := []any{now, userID}
	if category != nil {
		args = append(args, string(*category))
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresNotificationStore) SetClicked(ctx context.Context, userID, id string, now time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET clicked_at = $1, updated_at = $1
		WHERE user_id = $2 AND id = $3 AND clicked_at IS NULL`,
		now, userID, id)
	if err != nil {
		return fmt.Errorf("set clicked: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// No-op when the row exists but was already clicked.
		var exists bool
		if err := s.pool.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM notifications WHERE user_id = $1 AND id = $2)`,
			userID, id).Scan(&exists); err != nil {
			return fmt.Errorf("set clicked: %w", err)
		}
		if !exists {
			return ErrNotificationNotFound
		}
	}
	return nil
}

func (s *PostgresNotificationStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM notifications
		WHERE expires_at < $1 AND status IN ('pending', 'scheduled', 'failed')`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresNotificationStore) CountStats(ctx context.Context, userID string) (*Stats, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT category, priority, status,
			count(*), count(*) FILTER (WHERE read_at IS NULL)
		FROM notifications
		WHERE user_id = $1
		GROUP BY category, priority, status`, userID)
	if err != nil {
		return nil, fmt.Errorf("count stats: %w", err)
	}
	defer rows.Close()

	stats := &Stats{
		ByCategory: make(map[Category]int),
		ByPriority: make(map[Priority]int),
		ByStatus:   make(map[Status]int),
	}
	for rows.Next() {
		var category, priority, status string
		var total, unread int
		if err := rows.Scan(&category, &priority, &status, &total, &unread); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats.Total += total
		stats.Unread += unread
		stats.ByCategory[Category(category)] += total
		stats.ByPriority[Priority(priority)] += total
		stats.ByStatus[Status(status)] += total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count stats: %w", err)
	}
	return stats, nil
}

// PostgresTemplateStore is the production TemplateStore.
type PostgresTemplateStore struct {
	pool *pgxpool.Pool
}

// NewPostgresTemplateStore creates the store over an existing pool.
func NewPostgresTemplateStore(pool *pgxpool.Pool) *PostgresTemplateStore {
	return &PostgresTemplateStore{pool: pool}
}

const templateColumns = `id, key, name, category, subject, content,
	email_content, variables, is_active, created_at, updated_at`

func (s *PostgresTemplateStore) Create(ctx context.Context, tpl Template) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notification_templates (`+templateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		tpl.ID, tpl.Key, tpl.Name, string(tpl.Category), tpl.Subject, tpl.Content,
		tpl.EmailContent, tpl.Variables, tpl.IsActive, tpl.CreatedAt, tpl.UpdatedAt,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return fmt.Errorf("template key %q already exists", tpl.Key)
		}
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

func (s *PostgresTemplateStore) Update(ctx context.Context, tpl Template) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notification_templates SET
			key = $1, name = $2, category = $3, subject = $4, content = $5,
			email_content = $6, variables = $7, is_active = $8, updated_at = $9
		WHERE id = $10`,
		tpl.Key, tpl.Name, string(tpl.Category), tpl.Subject, tpl.Content,
		tpl.EmailContent, tpl.Variables, tpl.IsActive, tpl.UpdatedAt, tpl.ID,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return fmt.Errorf("template key %q already exists", tpl.Key)
		}
		return fmt.Errorf("update template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

func (s *PostgresTemplateStore) Get(ctx context.Context, id string) (*Template, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+templateColumns+` FROM notification_templates WHERE id = $1`, id)
	return scanTemplate(row)
}

func (s *PostgresTemplateStore) GetByKey(ctx context.Context, key string) (*Template, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+templateColumns+` FROM notification_templates WHERE key = $1`, key)
	return scanTemplate(row)
}

func (s *PostgresTemplateStore) List(ctx context.Context, category *Category) ([]Template, error) {
	query := `SELECT ` + templateColumns + ` FROM notification_templates`
	args := []any{}
	if category != nil {
		args = append(args, string(*category))
		query += " WHERE category = $1"
	}
	query += " ORDER BY key ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	out := make([]Template, 0)
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return out, nil
}

// PostgresPreferenceStore is the production PreferenceStore.
type PostgresPreferenceStore struct {
	pool *pgxpool.Pool
}

// NewPostgresPreferenceStore creates the store over an existing pool.
func NewPostgresPreferenceStore(pool *pgxpool.Pool) *PostgresPreferenceStore {
	return &PostgresPreferenceStore{pool: pool}
}

const preferenceColumns = `user_id, category, channels, is_enabled,
	quiet_hours_start, quiet_hours_end, timezone, created_at, updated_at`

func (s *PostgresPreferenceStore) Get(ctx context.Context, userID string, category Category) (*Preference, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+preferenceColumns+` FROM notification_preferences
		WHERE user_id = $1 AND category = $2`, userID, string(category))
	pref, err := scanPreference(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrPreferenceNotFound
		}
		return nil, fmt.Errorf("get preference: %w", err)
	}
	return pref, nil
}

func (s *PostgresPreferenceStore) ListByUser(ctx context.Context, userID string) ([]Preference, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+preferenceColumns+` FROM notification_preferences
		WHERE user_id = $1 ORDER BY category ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	defer rows.Close()

	out := make([]Preference, 0)
	for rows.Next() {
		pref, err := scanPreference(rows)
		if err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		out = append(out, *pref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	return out, nil
}

func (s *PostgresPreferenceStore) ReplaceAll(ctx context.Context, userID string, prefs []Preference) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin preference replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM notification_preferences WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear preferences: %w", err)
	}
	for _, pref := range prefs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO notification_preferences (`+preferenceColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			userID, string(pref.Category), channelStrings(pref.Channels), pref.IsEnabled,
			pref.QuietHoursStart, pref.QuietHoursEnd, pref.Timezone,
			pref.CreatedAt, pref.UpdatedAt,
		); err != nil {
			return fmt.Errorf("insert preference: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// PostgresBatchStore is the production BatchStore.
type PostgresBatchStore struct {
	pool *pgxpool.Pool
}

// NewPostgresBatchStore creates the store over an existing pool.
func NewPostgresBatchStore(pool *pgxpool.Pool) *PostgresBatchStore {
	return &PostgresBatchStore{pool: pool}
}

func (s *PostgresBatchStore) Create(ctx context.Context, b Batch) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notification_batches
			(id, type, category, total_count, sent_count, failed_count, status, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		b.ID, b.Type, string(b.Category), b.TotalCount, b.SentCount, b.FailedCount,
		string(b.Status), b.StartedAt, b.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

func (s *PostgresBatchStore) Get(ctx context.Context, id string) (*Batch, error) {
	var b Batch
	var category, status string
	err := s.pool.QueryRow(ctx, `
		SELECT id, type, category, total_count, sent_count, failed_count, status, started_at, completed_at
		FROM notification_batches WHERE id = $1`, id).Scan(
		&b.ID, &b.Type, &category, &b.TotalCount, &b.SentCount, &b.FailedCount,
		&status, &b.StartedAt, &b.CompletedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrBatchNotFound
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	b.Category = Category(category)
	b.Status = BatchStatus(status)
	return &b, nil
}

func (s *PostgresBatchStore) Update(ctx context.Context, b Batch) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notification_batches SET
			sent_count = $1, failed_count = $2, status = $3, completed_at = $4
		WHERE id = $5`,
		b.SentCount, b.FailedCount, string(b.Status), b.CompletedAt, b.ID,
	)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBatchNotFound
	}
	return nil
}

func marshalData(data map[string]any) ([]byte, error) {
	if data == nil {
		return nil, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal notification data: %w", err)
	}
	return raw, nil
}

func channelStrings(channels []Channel) []string {
	out := make([]string, len(channels))
	for i, ch := range channels {
		out[i] = string(ch)
	}
	return out
}

func toChannels(values []string) []Channel {
	out := make([]Channel, len(values))
	for i, v := range values {
		out[i] = Channel(v)
	}
	return out
}

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	var category, priority, status string
	var data []byte
	var channels []string

	err := row.Scan(
		&n.ID, &n.UserID, &n.TemplateID, &n.Type, &category, &priority,
		&n.Title, &n.Content, &n.EmailContent, &data, &channels, &status,
		&n.ScheduledFor, &n.SentAt, &n.ReadAt, &n.ClickedAt, &n.ExpiresAt,
		&n.RetryCount, &n.MaxRetries, &n.LastError, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	n.Category = Category(category)
	n.Priority = Priority(priority)
	n.Status = Status(status)
	n.Channels = toChannels(channels)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return nil, fmt.Errorf("unmarshal notification data: %w", err)
		}
	}
	return &n, nil
}

func collectNotifications(rows pgx.Rows) ([]Notification, error) {
	out := make([]Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanTemplate(row pgx.Row) (*Template, error) {
	var tpl Template
	var category string
	err := row.Scan(
		&tpl.ID, &tpl.Key, &tpl.Name, &category, &tpl.Subject, &tpl.Content,
		&tpl.EmailContent, &tpl.Variables, &tpl.IsActive, &tpl.CreatedAt, &tpl.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("scan template: %w", err)
	}
	tpl.Category = Category(category)
	return &tpl, nil
}

func scanPreference(row pgx.Row) (*Preference, error) {
	var pref Preference
	var category string
	var channels []string
	err := row.Scan(
		&pref.UserID, &category, &channels, &pref.IsEnabled,
		&pref.QuietHoursStart, &pref.QuietHoursEnd, &pref.Timezone,
		&pref.CreatedAt, &pref.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	pref.Category = Category(category)
	pref.Channels = toChannels(channels)
	return &pref, nil
}
