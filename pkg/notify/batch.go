package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pulsefit/notify/pkg/logger"
)

// BatchStatus is the lifecycle state of a fan-out batch.
type BatchStatus string

const (
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
	BatchFailed     BatchStatus = "failed"
	BatchCancelled  BatchStatus = "cancelled"
)

// Batch is the reporting record of one fan-out call. It aggregates outcomes
// but is not a transactional unit: each notification in it succeeds or fails
// on its own.
type Batch struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Category Category `json:"category"`

	TotalCount  int `json:"total_count"`
	SentCount   int `json:"sent_count"`
	FailedCount int `json:"failed_count"`

	Status      BatchStatus `json:"status"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// BatchDeliveryResult aggregates a dispatch pass over a batch's
// notifications.
type BatchDeliveryResult struct {
	BatchID    string `json:"batch_id"`
	Dispatched int    `json:"dispatched"`
	Sent       int    `json:"sent"`
	Failed     int    `json:"failed"`
}

// batchWindowSlack pads the creation-time window used to re-locate a batch's
// notifications, absorbing clock skew between the batch record and the rows.
const batchWindowSlack = time.Minute

// BatchCoordinator fans one notification payload out to many users and
// aggregates the outcome onto a Batch record.
type BatchCoordinator struct {
	manager    *Manager
	dispatcher *Dispatcher
	batches    BatchStore
	store      NotificationStore

	cfg Config
	log *slog.Logger

	now func() time.Time
}

// NewBatchCoordinator creates the fan-out coordinator.
func NewBatchCoordinator(
	manager *Manager,
	dispatcher *Dispatcher,
	batches BatchStore,
	store NotificationStore,
	cfg Config,
) *BatchCoordinator {
	return &BatchCoordinator{
		manager:    manager,
		dispatcher: dispatcher,
		batches:    batches,
		store:      store,
		cfg:        cfg,
		log:        slog.Default().With(logger.Component("notify.batch")),
		now:        time.Now,
	}
}

// CreateBatch creates one notification per user from the shared payload.
// All-settled semantics: individual creation failures are captured on the
// batch, never propagated, and never stop the fan-out. The terminal batch
// status is FAILED when any creation failed, COMPLETED otherwise.
func (c *BatchCoordinator) CreateBatch(ctx context.Context, userIDs []string, payload CreateInput) (*Batch, error) {
	if len(userIDs) > c.cfg.MaxBatchSize {
		return nil, fmt.Errorf("%w: %d users exceeds the %d cap", ErrBatchTooLarge, len(userIDs), c.cfg.MaxBatchSize)
	}
	if !payload.Category.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, payload.Category)
	}

	now := c.now()
	batch := Batch{
		ID:         uuid.NewString(),
		Type:       payload.Type,
		Category:   payload.Category,
		TotalCount: len(userIDs),
		Status:     BatchProcessing,
		StartedAt:  now,
	}
	if err := c.batches.Create(ctx, batch); err != nil {
		return nil, fmt.Errorf("persist batch: %w", err)
	}

	for _, userID := range userIDs {
		input := payload
		input.UserID = userID
		if _, err := c.manager.Create(ctx, input); err != nil {
			batch.FailedCount++
			c.log.WarnContext(ctx, "batch member creation failed",
				logger.BatchID(batch.ID),
				logger.UserID(userID),
				logger.Error(err),
			)
			continue
		}
		batch.SentCount++
	}

	completedAt := c.now()
	batch.CompletedAt = &completedAt
	batch.Status = BatchCompleted
	if batch.FailedCount > 0 {
		batch.Status = BatchFailed
	}
	if err := c.batches.Update(ctx, batch); err != nil {
		return nil, fmt.Errorf("finalize batch: %w", err)
	}

	c.log.InfoContext(ctx, "batch created",
		logger.BatchID(batch.ID),
		slog.Int("total", batch.TotalCount),
		slog.Int("created", batch.SentCount),
		slog.Int("failed", batch.FailedCount),
	)
	return &batch, nil
}

// SendBatch dispatches the batch's still-pending notifications. Members are
// re-located by (type, category, PENDING) within the batch's creation window;
// the window carries slack on both ends. Dispatch outcomes aggregate the same
// way single dispatch does.
func (c *BatchCoordinator) SendBatch(ctx context.Context, batchID string) (*BatchDeliveryResult, error) {
	batch, err := c.batches.Get(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.Status == BatchCancelled {
		return nil, fmt.Errorf("%w: %s", ErrBatchCancelled, batchID)
	}

	from := batch.StartedAt.Add(-batchWindowSlack)
	to := c.now().Add(batchWindowSlack)
	if batch.CompletedAt != nil {
		to = batch.CompletedAt.Add(batchWindowSlack)
	}

	pending, err := c.store.ListPendingByKind(ctx, batch.Type, batch.Category, from, to)
	if err != nil {
		return nil, fmt.Errorf("locate batch notifications: %w", err)
	}

	result := &BatchDeliveryResult{BatchID: batchID}
	for _, n := range pending {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Dispatched++
		results, derr := c.dispatcher.Dispatch(ctx, n.ID)
		if derr != nil {
			result.Failed++
			continue
		}
		// Quiet-hours deferral returns nil with no results; the member is
		// neither sent nor failed yet.
		if len(results) > 0 {
			result.Sent++
		}
	}

	c.log.InfoContext(ctx, "batch dispatched",
		logger.BatchID(batchID),
		slog.Int("dispatched", result.Dispatched),
		slog.Int("sent", result.Sent),
		slog.Int("failed", result.Failed),
	)
	return result, nil
}

// CancelBatch marks the batch cancelled, preventing future scheduled
// dispatch of its members. In-flight sends are not interrupted.
func (c *BatchCoordinator) CancelBatch(ctx context.Context, batchID string) (*Batch, error) {
	batch, err := c.batches.Get(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.Status == BatchCancelled {
		return nil, fmt.Errorf("%w: %s", ErrBatchCancelled, batchID)
	}

	batch.Status = BatchCancelled
	if batch.CompletedAt == nil {
		completedAt := c.now()
		batch.CompletedAt = &completedAt
	}
	if err := c.batches.Update(ctx, *batch); err != nil {
		return nil, err
	}

	c.log.InfoContext(ctx, "batch cancelled", logger.BatchID(batchID))
	return batch, nil
}
