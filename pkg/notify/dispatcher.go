package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pulsefit/notify/pkg/logger"
)

// DeliveryResult is the outcome of one channel attempt within a dispatch.
type DeliveryResult struct {
	Channel Channel `json:"channel"`
	Success bool    `json:"success"`
	Error   string  `json:"error,omitempty"`
}

// Dispatcher drives notifications through delivery: single dispatch with
// per-channel fan-out, the periodic scheduled scan with retry backoff, and
// the in-process queue feeding immediate sends after create.
type Dispatcher struct {
	store    NotificationStore
	users    UserStore
	resolver *Resolver
	registry *ChannelRegistry

	cfg Config
	log *slog.Logger

	// inflight guards against the scan loop and an API-triggered send racing
	// on the same notification. The store's optimistic check is the backstop;
	// this keeps the common case from ever reaching it.
	inflight   map[string]struct{}
	inflightMu sync.Mutex

	queue chan string

	// now is swappable for deterministic backoff tests.
	now func() time.Time
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger overrides the dispatcher's logger.
func WithDispatcherLogger(log *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if log != nil {
			d.log = log
		}
	}
}

// NewDispatcher creates a dispatcher delivering through the given registry.
func NewDispatcher(
	store NotificationStore,
	users UserStore,
	resolver *Resolver,
	registry *ChannelRegistry,
	cfg Config,
	opts ...DispatcherOption,
) (*Dispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Dispatcher{
		store:    store,
		users:    users,
		resolver: resolver,
		registry: registry,
		cfg:      cfg,
		log:      slog.Default().With(logger.Component("notify.dispatcher")),
		inflight: make(map[string]struct{}),
		queue:    make(chan string, cfg.DispatchQueueSize),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Enqueue submits a notification id for asynchronous dispatch. Non-blocking:
// returns false when the queue is full, in which case the scheduled scan
// delivers the notification later.
func (d *Dispatcher) Enqueue(id string) bool {
	select {
	case d.queue <- id:
		return true
	default:
		return false
	}
}

// Run consumes the dispatch queue and, when scheduling is enabled, drives the
// periodic scan of due notifications. Blocks until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	var ticker *time.Ticker
	var tick <-chan time.Time
	if d.cfg.EnableScheduling {
		ticker = time.NewTicker(d.cfg.SchedulerInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	d.log.InfoContext(ctx, "dispatcher started",
		slog.Bool("scheduling", d.cfg.EnableScheduling),
		slog.Duration("scan_interval", d.cfg.SchedulerInterval),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case id := <-d.queue:
			_, err := d.Dispatch(ctx, id)
			if err == nil {
				continue
			}
			// Fire-and-forget path: failures are logged, never raised.
			d.log.ErrorContext(ctx, "immediate dispatch failed",
				logger.NotificationID(id), logger.Error(err))
			if errors.Is(err, ErrDeliveryFailed) {
				if rerr := d.rescheduleOrFail(ctx, id); rerr != nil {
					d.log.ErrorContext(ctx, "retry bookkeeping failed",
						logger.NotificationID(id), logger.Error(rerr))
				}
			}
		case <-tick:
			if _, err := d.ProcessScheduled(ctx); err != nil {
				d.log.ErrorContext(ctx, "scheduled scan failed", logger.Error(err))
			}
			// The sweep rides the same tick so undeliverable rows don't pile
			// up in hosts that run the in-process loop without external cron.
			removed, err := d.store.DeleteExpired(ctx, d.now())
			if err != nil {
				d.log.ErrorContext(ctx, "expired cleanup failed", logger.Error(err))
			} else if removed > 0 {
				d.log.InfoContext(ctx, "expired notifications removed", slog.Int("count", removed))
			}
		}
	}
}

// Dispatch attempts delivery of one notification across its channels.
// Channels run concurrently; results are joined before the aggregate status
// is computed and come back in channel order. SENT needs at least one
// success; otherwise the notification is FAILED with retryCount incremented
// and ErrDeliveryFailed returned alongside the per-channel results.
func (d *Dispatcher) Dispatch(ctx context.Context, id string) ([]DeliveryResult, error) {
	if !d.markInflight(id) {
		return nil, fmt.Errorf("%w: %s", ErrDispatchInProgress, id)
	}
	defer d.clearInflight(id)

	n, err := d.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.IsTerminal() {
		return nil, fmt.Errorf("%w: notification %s is %s", ErrInvalidTransition, id, n.Status)
	}

	now := d.now()

	// Lazy expiry check: a notification that outlived its expiry flips to
	// EXPIRED here even if the cleanup sweep hasn't seen it yet.
	if n.IsExpired(now) {
		if err := n.transition(StatusExpired); err == nil {
			if _, uerr := d.store.Update(ctx, *n); uerr != nil {
				d.log.WarnContext(ctx, "failed to persist expiry",
					logger.NotificationID(id), logger.Error(uerr))
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrNotificationExpired, id)
	}

	if d.cfg.QuietHoursEnabled {
		quiet, qerr := d.resolver.IsQuietHours(ctx, n.UserID, n.Category, now)
		if qerr != nil {
			return nil, qerr
		}
		if quiet {
			next, nerr := d.resolver.NextDeliveryTime(ctx, n.UserID, n.Category, now)
			if nerr != nil {
				return nil, nerr
			}
			if err := n.transition(StatusScheduled); err != nil {
				return nil, err
			}
			n.ScheduledFor = &next
			if _, uerr := d.store.Update(ctx, *n); uerr != nil {
				return nil, uerr
			}
			d.log.InfoContext(ctx, "delivery deferred for quiet hours",
				logger.NotificationID(id),
				logger.UserID(n.UserID),
				slog.Time("next_attempt", next),
			)
			// Deferred, not failed: empty result, no error.
			return []DeliveryResult{}, nil
		}
	}

	user, err := d.users.Get(ctx, n.UserID)
	if err != nil {
		return nil, err
	}

	results := d.deliver(ctx, *n, *user)

	sent := false
	for _, r := range results {
		if r.Success {
			sent = true
			break
		}
	}

	n.RetryCount++
	// Partial failures are still recorded: lastError carries the first
	// failed channel's message even when another channel succeeded.
	n.LastError = firstFailure(results)
	if sent {
		if err := n.transition(StatusSent); err != nil {
			return results, err
		}
		sentAt := now
		n.SentAt = &sentAt
	} else {
		if err := n.transition(StatusFailed); err != nil {
			return results, err
		}
	}

	if _, err := d.store.Update(ctx, *n); err != nil {
		return results, err
	}

	if !sent {
		d.log.WarnContext(ctx, "delivery failed on all channels",
			logger.NotificationID(id),
			logger.UserID(n.UserID),
			logger.RetryCount(n.RetryCount),
			slog.String("last_error", n.LastError),
		)
		return results, fmt.Errorf("%w: %s", ErrDeliveryFailed, n.LastError)
	}

	d.log.InfoContext(ctx, "notification sent",
		logger.NotificationID(id),
		logger.UserID(n.UserID),
		slog.Int("channels_attempted", len(results)),
	)
	return results, nil
}

// deliver fans the send out across the notification's channels. Sends run
// concurrently; the results slice is indexed by channel position so ordering
// survives the join. Disabled or unregistered channels record a failure
// without a send attempt.
func (d *Dispatcher) deliver(ctx context.Context, n Notification, user User) []DeliveryResult {
	if len(n.Channels) == 0 {
		return []DeliveryResult{{Success: false, Error: "no deliverable channels"}}
	}

	results := make([]DeliveryResult, len(n.Channels))
	var wg sync.WaitGroup
	for i, ch := range n.Channels {
		results[i] = DeliveryResult{Channel: ch}

		if !d.cfg.channelEnabled(ch) {
			results[i].Error = fmt.Sprintf("%s: %s", ErrChannelDisabled, ch)
			continue
		}
		sender, ok := d.registry.Get(ch)
		if !ok {
			results[i].Error = fmt.Sprintf("no sender registered for channel %s", ch)
			continue
		}

		wg.Add(1)
		go func(i int, sender ChannelSender) {
			defer wg.Done()
			if err := sender.Send(ctx, n, user); err != nil {
				results[i].Error = err.Error()
				return
			}
			results[i].Success = true
		}(i, sender)
	}
	wg.Wait()
	return results
}

// ProcessScheduled scans for due notifications and dispatches each. One
// notification's failure never halts the scan: delivery failures are
// recorded on the entity and either rescheduled with exponential backoff or
// marked permanently FAILED once retries are exhausted. Returns the number
// actually sent. Idempotent under double invocation because the scan
// predicate only matches SCHEDULED rows.
func (d *Dispatcher) ProcessScheduled(ctx context.Context) (int, error) {
	now := d.now()
	due, err := d.store.ListDue(ctx, now, d.cfg.ScanBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list due notifications: %w", err)
	}

	sent := 0
	for _, n := range due {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}

		results, derr := d.Dispatch(ctx, n.ID)
		switch {
		case derr == nil:
			// Quiet-hours deferral also returns nil but with no results;
			// only actual deliveries count as sent.
			if len(results) > 0 {
				sent++
			}
		case errors.Is(derr, ErrDeliveryFailed):
			if rerr := d.rescheduleOrFail(ctx, n.ID); rerr != nil {
				d.log.ErrorContext(ctx, "retry bookkeeping failed",
					logger.NotificationID(n.ID), logger.Error(rerr))
			}
		case errors.Is(derr, ErrDispatchInProgress):
			// Someone else is already on it.
		default:
			d.log.WarnContext(ctx, "scheduled dispatch skipped",
				logger.NotificationID(n.ID), logger.Error(derr))
		}
	}

	if len(due) > 0 {
		d.log.InfoContext(ctx, "scheduled scan complete",
			slog.Int("due", len(due)), slog.Int("sent", sent))
	}
	return sent, nil
}

// rescheduleOrFail decides a failed notification's fate: permanent FAILED
// when the retry budget is spent, otherwise a new SCHEDULED slot at
// now + retryDelay * 2^retryCount. No jitter: retry volumes here are small
// enough that synchronized herds are not a concern.
func (d *Dispatcher) rescheduleOrFail(ctx context.Context, id string) error {
	n, err := d.store.Get(ctx, id)
	if err != nil {
		return err
	}

	if n.RetryCount >= n.MaxRetries {
		d.log.WarnContext(ctx, "retries exhausted, notification permanently failed",
			logger.NotificationID(id),
			logger.RetryCount(n.RetryCount),
			slog.String("last_error", n.LastError),
		)
		return nil
	}

	now := d.now()
	delay := d.cfg.RetryDelay * time.Duration(1<<n.RetryCount)
	next := now.Add(delay)

	if err := n.transition(StatusScheduled); err != nil {
		return err
	}
	n.ScheduledFor = &next
	if _, err := d.store.Update(ctx, *n); err != nil {
		return err
	}

	d.log.InfoContext(ctx, "notification rescheduled for retry",
		logger.NotificationID(id),
		logger.RetryCount(n.RetryCount),
		slog.Duration("backoff", delay),
	)
	return nil
}

func (d *Dispatcher) markInflight(id string) bool {
	d.inflightMu.Lock()
	defer d.inflightMu.Unlock()
	if _, busy := d.inflight[id]; busy {
		return false
	}
	d.inflight[id] = struct{}{}
	return true
}

func (d *Dispatcher) clearInflight(id string) {
	d.inflightMu.Lock()
	defer d.inflightMu.Unlock()
	delete(d.inflight, id)
}

// firstFailure returns the first failed channel's message in channel order,
// or empty when every channel succeeded.
func firstFailure(results []DeliveryResult) string {
	for _, r := range results {
		if !r.Success && r.Error != "" {
			return r.Error
		}
	}
	return ""
}
