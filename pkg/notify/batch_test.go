package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type batchFixture struct {
	coordinator *BatchCoordinator
	manager     *Manager
	store       *MemoryNotificationStore
	batches     *MemoryBatchStore
	registry    *ChannelRegistry
	prefs       *MemoryPreferenceStore
}

func newBatchFixture(t *testing.T, cfg Config) *batchFixture {
	t.Helper()

	f := &batchFixture{
		store:    NewMemoryNotificationStore(),
		batches:  NewMemoryBatchStore(),
		registry: NewChannelRegistry(),
		prefs:    NewMemoryPreferenceStore(),
	}
	templates := NewMemoryTemplateStore()
	users := NewMemoryUserStore(
		User{ID: "user-1", Email: "a@pulsefit.test"},
		User{ID: "user-2", Email: "b@pulsefit.test"},
		User{ID: "user-3", Email: "c@pulsefit.test"},
	)

	resolver := NewResolver(f.prefs)
	manager, err := NewManager(f.store, templates, f.prefs, users, cfg, WithResolver(resolver))
	require.NoError(t, err)
	f.manager = manager

	dispatcher, err := NewDispatcher(f.store, users, resolver, f.registry, cfg)
	require.NoError(t, err)

	f.coordinator = NewBatchCoordinator(manager, dispatcher, f.batches, f.store, cfg)
	return f
}

func (f *batchFixture) allowRealtime(t *testing.T, category Category, userIDs ...string) {
	t.Helper()
	for _, userID := range userIDs {
		require.NoError(t, f.prefs.ReplaceAll(context.Background(), userID, []Preference{{
			UserID:    userID,
			Category:  category,
			Channels:  []Channel{ChannelRealtime},
			IsEnabled: true,
		}}))
	}
}

func teamPayload() CreateInput {
	return CreateInput{
		Type:     "team.challenge",
		Category: CategoryTeam,
		Title:    "Weekend challenge",
		Content:  "Your team challenge starts Saturday.",
	}
}

func TestBatchCoordinatorCreateBatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.RateLimitEnabled = false

	t.Run("too many users rejected up front", func(t *testing.T) {
		t.Parallel()
		small := cfg
		small.MaxBatchSize = 2
		f := newBatchFixture(t, small)

		_, err := f.coordinator.CreateBatch(ctx, []string{"user-1", "user-2", "user-3"}, teamPayload())
		assert.ErrorIs(t, err, ErrBatchTooLarge)
	})

	t.Run("invalid category rejected", func(t *testing.T) {
		t.Parallel()
		f := newBatchFixture(t, cfg)

		payload := teamPayload()
		payload.Category = "BOGUS"
		_, err := f.coordinator.CreateBatch(ctx, []string{"user-1"}, payload)
		assert.ErrorIs(t, err, ErrInvalidCategory)
	})

	t.Run("all-settled fan-out tolerates member failures", func(t *testing.T) {
		t.Parallel()
		f := newBatchFixture(t, cfg)

		batch, err := f.coordinator.CreateBatch(ctx,
			[]string{"user-1", "ghost", "user-3"}, teamPayload())
		require.NoError(t, err, "member failures never propagate")
		assert.Equal(t, 3, batch.TotalCount)
		assert.Equal(t, 2, batch.SentCount)
		assert.Equal(t, 1, batch.FailedCount)
		assert.Equal(t, BatchFailed, batch.Status)
		require.NotNil(t, batch.CompletedAt)

		// The surviving members were persisted.
		for _, userID := range []string{"user-1", "user-3"} {
			page, err := f.store.List(ctx, userID, ListOptions{})
			require.NoError(t, err)
			assert.Len(t, page.Items, 1)
		}
	})

	t.Run("clean fan-out completes", func(t *testing.T) {
		t.Parallel()
		f := newBatchFixture(t, cfg)

		batch, err := f.coordinator.CreateBatch(ctx, []string{"user-1", "user-2"}, teamPayload())
		require.NoError(t, err)
		assert.Equal(t, 2, batch.SentCount)
		assert.Zero(t, batch.FailedCount)
		assert.Equal(t, BatchCompleted, batch.Status)

		stored, err := f.batches.Get(ctx, batch.ID)
		require.NoError(t, err)
		assert.Equal(t, BatchCompleted, stored.Status)
	})
}

func TestBatchCoordinatorSendBatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.RateLimitEnabled = false

	t.Run("missing batch", func(t *testing.T) {
		t.Parallel()
		f := newBatchFixture(t, cfg)

		_, err := f.coordinator.SendBatch(ctx, "ghost")
		assert.ErrorIs(t, err, ErrBatchNotFound)
	})

	t.Run("dispatches pending members", func(t *testing.T) {
		t.Parallel()
		f := newBatchFixture(t, cfg)
		f.registry.Register(&stubSender{channel: ChannelRealtime})
		f.allowRealtime(t, CategoryTeam, "user-1", "user-2")

		batch, err := f.coordinator.CreateBatch(ctx, []string{"user-1", "user-2"}, teamPayload())
		require.NoError(t, err)

		result, err := f.coordinator.SendBatch(ctx, batch.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Dispatched)
		assert.Equal(t, 2, result.Sent)
		assert.Zero(t, result.Failed)

		for _, userID := range []string{"user-1", "user-2"} {
			page, err := f.store.List(ctx, userID, ListOptions{})
			require.NoError(t, err)
			require.Len(t, page.Items, 1)
			assert.Equal(t, StatusSent, page.Items[0].Status)
		}

		// A second pass finds nothing pending.
		result, err = f.coordinator.SendBatch(ctx, batch.ID)
		require.NoError(t, err)
		assert.Zero(t, result.Dispatched)
	})

	t.Run("aggregates member delivery failures", func(t *testing.T) {
		t.Parallel()
		f := newBatchFixture(t, cfg)
		f.registry.Register(&stubSender{channel: ChannelRealtime})
		// user-2 has no preference row, so their member has no channels and
		// fails at dispatch.
		f.allowRealtime(t, CategoryTeam, "user-1")

		batch, err := f.coordinator.CreateBatch(ctx, []string{"user-1", "user-2"}, teamPayload())
		require.NoError(t, err)

		result, err := f.coordinator.SendBatch(ctx, batch.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Dispatched)
		assert.Equal(t, 1, result.Sent)
		assert.Equal(t, 1, result.Failed)
	})

	t.Run("cancelled batch refuses dispatch", func(t *testing.T) {
		t.Parallel()
		f := newBatchFixture(t, cfg)

		batch, err := f.coordinator.CreateBatch(ctx, []string{"user-1"}, teamPayload())
		require.NoError(t, err)

		_, err = f.coordinator.CancelBatch(ctx, batch.ID)
		require.NoError(t, err)

		_, err = f.coordinator.SendBatch(ctx, batch.ID)
		assert.ErrorIs(t, err, ErrBatchCancelled)
	})
}

func TestBatchCoordinatorCancelBatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.RateLimitEnabled = false
	f := newBatchFixture(t, cfg)

	batch, err := f.coordinator.CreateBatch(ctx, []string{"user-1"}, teamPayload())
	require.NoError(t, err)

	cancelled, err := f.coordinator.CancelBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, BatchCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CompletedAt)

	// Cancelling twice is an error, not a silent no-op.
	_, err = f.coordinator.CancelBatch(ctx, batch.ID)
	assert.ErrorIs(t, err, ErrBatchCancelled)

	_, err = f.coordinator.CancelBatch(ctx, "ghost")
	assert.ErrorIs(t, err, ErrBatchNotFound)
}

func TestBatchWindowRelocation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.RateLimitEnabled = false
	f := newBatchFixture(t, cfg)
	f.registry.Register(&stubSender{channel: ChannelRealtime})
	f.allowRealtime(t, CategoryTeam, "user-1")

	batch, err := f.coordinator.CreateBatch(ctx, []string{"user-1"}, teamPayload())
	require.NoError(t, err)

	// A pending notification of a different kind outside the batch's
	// type/category is never picked up by the batch send.
	other := newStoredNotification(t, f.store, Notification{
		UserID:   "user-1",
		Type:     "activity.logged",
		Category: CategoryActivity,
		Status:   StatusPending,
		Channels: []Channel{ChannelRealtime},
	})

	result, err := f.coordinator.SendBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Dispatched)

	got, err := f.store.Get(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func TestBatchSendWindowBounds(t *testing.T) {
	t.Parallel()

	// Rows created well before the batch window are not re-located even when
	// they match type and category.
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.RateLimitEnabled = false
	f := newBatchFixture(t, cfg)
	f.registry.Register(&stubSender{channel: ChannelRealtime})
	f.allowRealtime(t, CategoryTeam, "user-1")

	stale := newStoredNotification(t, f.store, Notification{
		UserID:    "user-1",
		Type:      "team.challenge",
		Category:  CategoryTeam,
		Status:    StatusPending,
		Channels:  []Channel{ChannelRealtime},
		CreatedAt: time.Now().Add(-24 * time.Hour),
		UpdatedAt: time.Now().Add(-24 * time.Hour),
	})

	batch, err := f.coordinator.CreateBatch(ctx, []string{"user-1"}, teamPayload())
	require.NoError(t, err)

	result, err := f.coordinator.SendBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Dispatched, "only the batch member is dispatched")

	got, err := f.store.Get(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}
