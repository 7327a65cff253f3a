package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPreference(t *testing.T, store *MemoryPreferenceStore, pref Preference) {
	t.Helper()
	require.NoError(t, store.ReplaceAll(context.Background(), pref.UserID, []Preference{pref}))
}

func TestResolverResolveChannels(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("no preference row yields empty set", func(t *testing.T) {
		t.Parallel()
		resolver := NewResolver(NewMemoryPreferenceStore())

		channels, err := resolver.ResolveChannels(ctx, "user-1", CategoryActivity,
			[]Channel{ChannelRealtime, ChannelEmail})
		require.NoError(t, err)
		assert.Empty(t, channels, "fail-closed: absence means nothing delivers")
	})

	t.Run("disabled preference yields empty set", func(t *testing.T) {
		t.Parallel()
		store := NewMemoryPreferenceStore()
		seedPreference(t, store, Preference{
			UserID:    "user-1",
			Category:  CategoryActivity,
			Channels:  []Channel{ChannelRealtime, ChannelEmail},
			IsEnabled: false,
		})
		resolver := NewResolver(store)

		channels, err := resolver.ResolveChannels(ctx, "user-1", CategoryActivity, nil)
		require.NoError(t, err)
		assert.Empty(t, channels)
	})

	t.Run("no requested channels returns full preference set", func(t *testing.T) {
		t.Parallel()
		store := NewMemoryPreferenceStore()
		seedPreference(t, store, Preference{
			UserID:    "user-1",
			Category:  CategoryTeam,
			Channels:  []Channel{ChannelRealtime, ChannelEmail},
			IsEnabled: true,
		})
		resolver := NewResolver(store)

		channels, err := resolver.ResolveChannels(ctx, "user-1", CategoryTeam, nil)
		require.NoError(t, err)
		assert.Equal(t, []Channel{ChannelRealtime, ChannelEmail}, channels)
	})

	t.Run("requested channels intersect with preference in requested order", func(t *testing.T) {
		t.Parallel()
		store := NewMemoryPreferenceStore()
		seedPreference(t, store, Preference{
			UserID:    "user-1",
			Category:  CategoryActivity,
			Channels:  []Channel{ChannelRealtime},
			IsEnabled: true,
		})
		resolver := NewResolver(store)

		channels, err := resolver.ResolveChannels(ctx, "user-1", CategoryActivity,
			[]Channel{ChannelEmail, ChannelRealtime, ChannelPush})
		require.NoError(t, err)
		assert.Equal(t, []Channel{ChannelRealtime}, channels)
	})

	t.Run("other categories are unaffected", func(t *testing.T) {
		t.Parallel()
		store := NewMemoryPreferenceStore()
		seedPreference(t, store, Preference{
			UserID:    "user-1",
			Category:  CategoryActivity,
			Channels:  []Channel{ChannelRealtime},
			IsEnabled: true,
		})
		resolver := NewResolver(store)

		channels, err := resolver.ResolveChannels(ctx, "user-1", CategorySocial, nil)
		require.NoError(t, err)
		assert.Empty(t, channels)
	})
}

func TestResolverIsQuietHours(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	newResolver := func(t *testing.T, start, end, tz string) *Resolver {
		t.Helper()
		store := NewMemoryPreferenceStore()
		seedPreference(t, store, Preference{
			UserID:          "user-1",
			Category:        CategoryActivity,
			Channels:        []Channel{ChannelRealtime},
			IsEnabled:       true,
			QuietHoursStart: start,
			QuietHoursEnd:   end,
			Timezone:        tz,
		})
		return NewResolver(store)
	}

	at := func(hour, minute int) time.Time {
		return time.Date(2026, 3, 1, hour, minute, 0, 0, time.UTC)
	}

	t.Run("midnight wraparound", func(t *testing.T) {
		t.Parallel()
		resolver := newResolver(t, "22:00", "06:00", "")

		tests := []struct {
			now   time.Time
			quiet bool
		}{
			{at(23, 30), true},
			{at(5, 0), true},
			{at(12, 0), false},
			{at(22, 0), true},
			{at(6, 0), true},
			{at(6, 1), false},
			{at(21, 59), false},
		}
		for _, tt := range tests {
			quiet, err := resolver.IsQuietHours(ctx, "user-1", CategoryActivity, tt.now)
			require.NoError(t, err)
			assert.Equalf(t, tt.quiet, quiet, "at %s", tt.now.Format("15:04"))
		}
	})

	t.Run("same-day window", func(t *testing.T) {
		t.Parallel()
		resolver := newResolver(t, "09:00", "17:00", "")

		quiet, err := resolver.IsQuietHours(ctx, "user-1", CategoryActivity, at(12, 0))
		require.NoError(t, err)
		assert.True(t, quiet)

		quiet, err = resolver.IsQuietHours(ctx, "user-1", CategoryActivity, at(18, 0))
		require.NoError(t, err)
		assert.False(t, quiet)
	})

	t.Run("bounds interpreted in user timezone", func(t *testing.T) {
		t.Parallel()
		resolver := newResolver(t, "22:00", "06:00", "America/New_York")

		// 03:00 UTC is 22:00 or 23:00 in New York depending on DST; quiet
		// either way.
		quiet, err := resolver.IsQuietHours(ctx, "user-1", CategoryActivity, at(3, 0))
		require.NoError(t, err)
		assert.True(t, quiet)

		// 16:00 UTC is morning-to-midday in New York, never quiet.
		quiet, err = resolver.IsQuietHours(ctx, "user-1", CategoryActivity, at(16, 0))
		require.NoError(t, err)
		assert.False(t, quiet)
	})

	t.Run("missing bounds mean never quiet", func(t *testing.T) {
		t.Parallel()
		resolver := newResolver(t, "", "", "")

		quiet, err := resolver.IsQuietHours(ctx, "user-1", CategoryActivity, at(23, 30))
		require.NoError(t, err)
		assert.False(t, quiet)
	})

	t.Run("no preference row means never quiet", func(t *testing.T) {
		t.Parallel()
		resolver := NewResolver(NewMemoryPreferenceStore())

		quiet, err := resolver.IsQuietHours(ctx, "user-1", CategoryActivity, at(23, 30))
		require.NoError(t, err)
		assert.False(t, quiet)
	})

	t.Run("malformed bounds rejected", func(t *testing.T) {
		t.Parallel()
		resolver := newResolver(t, "25:00", "06:00", "")

		_, err := resolver.IsQuietHours(ctx, "user-1", CategoryActivity, at(23, 30))
		assert.ErrorIs(t, err, ErrInvalidQuietHours)
	})
}

func TestResolverNextDeliveryTime(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryPreferenceStore()
	seedPreference(t, store, Preference{
		UserID:          "user-1",
		Category:        CategoryActivity,
		Channels:        []Channel{ChannelRealtime},
		IsEnabled:       true,
		QuietHoursStart: "22:00",
		QuietHoursEnd:   "06:00",
	})
	resolver := NewResolver(store)

	t.Run("outside quiet hours returns now", func(t *testing.T) {
		t.Parallel()
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		next, err := resolver.NextDeliveryTime(ctx, "user-1", CategoryActivity, now)
		require.NoError(t, err)
		assert.Equal(t, now, next)
	})

	t.Run("late evening defers to tomorrow's window end", func(t *testing.T) {
		t.Parallel()
		now := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)
		next, err := resolver.NextDeliveryTime(ctx, "user-1", CategoryActivity, now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC), next)
	})

	t.Run("early morning defers to today's window end", func(t *testing.T) {
		t.Parallel()
		now := time.Date(2026, 3, 1, 5, 0, 0, 0, time.UTC)
		next, err := resolver.NextDeliveryTime(ctx, "user-1", CategoryActivity, now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC), next)
	})
}

func TestResolverCaching(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryPreferenceStore()
	seedPreference(t, store, Preference{
		UserID:    "user-1",
		Category:  CategoryActivity,
		Channels:  []Channel{ChannelRealtime},
		IsEnabled: true,
	})
	resolver := NewResolver(store, WithPreferenceCacheTTL(time.Hour))

	channels, err := resolver.ResolveChannels(ctx, "user-1", CategoryActivity, nil)
	require.NoError(t, err)
	require.Equal(t, []Channel{ChannelRealtime}, channels)

	// A store write alone does not show through the cache.
	seedPreference(t, store, Preference{
		UserID:    "user-1",
		Category:  CategoryActivity,
		Channels:  []Channel{ChannelEmail},
		IsEnabled: true,
	})
	channels, err = resolver.ResolveChannels(ctx, "user-1", CategoryActivity, nil)
	require.NoError(t, err)
	assert.Equal(t, []Channel{ChannelRealtime}, channels)

	// Invalidation makes the new policy visible.
	resolver.Invalidate("user-1")
	channels, err = resolver.ResolveChannels(ctx, "user-1", CategoryActivity, nil)
	require.NoError(t, err)
	assert.Equal(t, []Channel{ChannelEmail}, channels)
}
