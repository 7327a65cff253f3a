package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pulsefit/notify/pkg/cache"
)

// Preference is a user's delivery policy for one notification category.
// Absence of a preference row means the category is disabled: nothing
// delivers. This fail-closed default keeps accidental categories silent
// until the user opts in.
type Preference struct {
	UserID          string    `json:"user_id"`
	Category        Category  `json:"category"`
	Channels        []Channel `json:"channels"`
	IsEnabled       bool      `json:"is_enabled"`
	QuietHoursStart string    `json:"quiet_hours_start,omitempty"` // "HH:MM" local time
	QuietHoursEnd   string    `json:"quiet_hours_end,omitempty"`   // "HH:MM" local time
	Timezone        string    `json:"timezone,omitempty"`          // IANA name, UTC when empty
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Resolver computes effective delivery channels and quiet-hours windows.
// Lookups go through a short-TTL read-through cache; Invalidate must be
// called when a user's preferences change.
type Resolver struct {
	store    PreferenceStore
	cache    *cache.TTLCache[string, *Preference]
	cacheTTL time.Duration
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithPreferenceCacheTTL overrides the preference cache freshness bound.
func WithPreferenceCacheTTL(ttl time.Duration) ResolverOption {
	return func(r *Resolver) {
		if ttl > 0 {
			r.cacheTTL = ttl
		}
	}
}

// NewResolver creates a preference resolver backed by the given store.
func NewResolver(store PreferenceStore, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:    store,
		cache:    cache.NewTTLCache[string, *Preference](),
		cacheTTL: time.Minute,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveChannels computes the channels a notification for (userID, category)
// may deliver on. No enabled preference row means no channels; this is a
// policy outcome, not an error. When requested is non-empty the result is the
// intersection with the preference's channels, preserving requested order.
func (r *Resolver) ResolveChannels(ctx context.Context, userID string, category Category, requested []Channel) ([]Channel, error) {
	pref, err := r.preference(ctx, userID, category)
	if err != nil {
		return nil, err
	}
	if pref == nil || !pref.IsEnabled {
		return []Channel{}, nil
	}

	if len(requested) == 0 {
		out := make([]Channel, len(pref.Channels))
		copy(out, pref.Channels)
		return out, nil
	}

	allowed := make(map[Channel]struct{}, len(pref.Channels))
	for _, ch := range pref.Channels {
		allowed[ch] = struct{}{}
	}

	out := make([]Channel, 0, len(requested))
	for _, ch := range requested {
		if _, ok := allowed[ch]; ok {
			out = append(out, ch)
		}
	}
	return out, nil
}

// IsQuietHours reports whether now falls inside the user's quiet-hours window
// for the category. Quiet hours are local "HH:MM" bounds in the preference's
// timezone (UTC when unset). A window with start > end wraps midnight. No
// preference or missing bounds means never quiet.
func (r *Resolver) IsQuietHours(ctx context.Context, userID string, category Category, now time.Time) (bool, error) {
	pref, err := r.preference(ctx, userID, category)
	if err != nil {
		return false, err
	}
	if pref == nil || pref.QuietHoursStart == "" || pref.QuietHoursEnd == "" {
		return false, nil
	}

	start, err := parseClock(pref.QuietHoursStart)
	if err != nil {
		return false, err
	}
	end, err := parseClock(pref.QuietHoursEnd)
	if err != nil {
		return false, err
	}

	local := now.In(pref.location())
	minute := local.Hour()*60 + local.Minute()

	if start <= end {
		return minute >= start && minute <= end, nil
	}
	// Window wraps midnight: [start, 24:00) ∪ [0:00, end].
	return minute >= start || minute <= end, nil
}

// NextDeliveryTime returns now when delivery is currently allowed, otherwise
// the next occurrence of the quiet-hours end: today if it hasn't passed yet
// in the user's timezone, else tomorrow.
func (r *Resolver) NextDeliveryTime(ctx context.Context, userID string, category Category, now time.Time) (time.Time, error) {
	quiet, err := r.IsQuietHours(ctx, userID, category, now)
	if err != nil {
		return time.Time{}, err
	}
	if !quiet {
		return now, nil
	}

	pref, err := r.preference(ctx, userID, category)
	if err != nil {
		return time.Time{}, err
	}

	end, err := parseClock(pref.QuietHoursEnd)
	if err != nil {
		return time.Time{}, err
	}

	loc := pref.location()
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), end/60, end%60, 0, 0, loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next, nil
}

// Invalidate drops cached preferences for a user. Called after preference
// writes so policy changes take effect without waiting out the TTL.
func (r *Resolver) Invalidate(userID string) {
	for _, category := range []Category{
		CategoryActivity, CategoryTeam, CategoryAchievement,
		CategorySystem, CategorySocial, CategoryReminder,
	} {
		r.cache.Invalidate(prefCacheKey(userID, category))
	}
}

// preference is the cached lookup. A nil result with nil error means "no
// preference row", which is itself cached to keep the fail-closed path cheap.
func (r *Resolver) preference(ctx context.Context, userID string, category Category) (*Preference, error) {
	key := prefCacheKey(userID, category)
	if pref, ok := r.cache.Get(key); ok {
		return pref, nil
	}

	pref, err := r.store.Get(ctx, userID, category)
	if err != nil {
		if errors.Is(err, ErrPreferenceNotFound) {
			r.cache.Set(key, nil, r.cacheTTL)
			return nil, nil
		}
		return nil, err
	}

	r.cache.Set(key, pref, r.cacheTTL)
	return pref, nil
}

func prefCacheKey(userID string, category Category) string {
	return userID + "/" + string(category)
}

func (p *Preference) location() *time.Location {
	if p == nil || p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// parseClock converts an "HH:MM" string to minutes since midnight.
func parseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("%w: %q is not HH:MM", ErrInvalidQuietHours, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: bad hour in %q", ErrInvalidQuietHours, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: bad minute in %q", ErrInvalidQuietHours, s)
	}
	return h*60 + m, nil
}
