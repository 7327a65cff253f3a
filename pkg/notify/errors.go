package notify

import "errors"

var (
	// ErrInvalidUser is returned when the target user of a notification does not exist.
	ErrInvalidUser = errors.New("notify: invalid user")

	// ErrInvalidCategory is returned when a notification references an unknown category.
	ErrInvalidCategory = errors.New("notify: invalid category")

	// ErrTemplateNotFound is returned when a template id does not resolve to an active template.
	ErrTemplateNotFound = errors.New("notify: template not found")

	// ErrRateLimited is returned when a user exceeded the notification creation cap.
	ErrRateLimited = errors.New("notify: rate limited")

	// ErrBatchTooLarge is returned when a fan-out exceeds the configured batch size.
	ErrBatchTooLarge = errors.New("notify: batch too large")

	// ErrBatchNotFound is returned when a batch id does not exist.
	ErrBatchNotFound = errors.New("notify: batch not found")

	// ErrBatchCancelled is returned when dispatching a cancelled batch.
	ErrBatchCancelled = errors.New("notify: batch cancelled")

	// ErrNotificationNotFound is returned when a notification id does not exist.
	ErrNotificationNotFound = errors.New("notify: notification not found")

	// ErrNotificationExpired is returned when dispatch is attempted past the
	// notification's expiry; the notification transitions to EXPIRED instead
	// of being delivered.
	ErrNotificationExpired = errors.New("notify: notification expired")

	// ErrEmailUnavailable is returned by the email channel when no mail
	// transport is configured.
	ErrEmailUnavailable = errors.New("notify: email service unavailable")

	// ErrPushNotImplemented is returned by the push channel stub.
	ErrPushNotImplemented = errors.New("notify: push delivery not implemented")

	// ErrChannelDisabled marks a channel that is switched off at the engine
	// configuration level; no send is attempted on it.
	ErrChannelDisabled = errors.New("notify: channel disabled")

	// ErrDeliveryFailed is returned by dispatch when every channel failed.
	ErrDeliveryFailed = errors.New("notify: delivery failed on all channels")

	// ErrDispatchInProgress is returned when a notification is already being
	// dispatched by another caller in this process.
	ErrDispatchInProgress = errors.New("notify: dispatch already in progress")

	// ErrInvalidTransition is returned on an attempt to move a notification
	// out of a terminal state or along an edge the state machine forbids.
	ErrInvalidTransition = errors.New("notify: invalid status transition")

	// ErrConcurrentUpdate is returned by stores when a notification row was
	// modified between load and save.
	ErrConcurrentUpdate = errors.New("notify: concurrent update")

	// ErrPreferenceNotFound is returned when no preference row exists for a
	// user/category pair. Resolution treats this as "category disabled".
	ErrPreferenceNotFound = errors.New("notify: preference not found")

	// ErrInvalidCursor is returned when a pagination cursor cannot be decoded.
	ErrInvalidCursor = errors.New("notify: invalid cursor")

	// ErrInvalidQuietHours is returned when a preference carries an
	// unparseable quiet-hours clock value.
	ErrInvalidQuietHours = errors.New("notify: invalid quiet hours")

	// ErrInvalidConfig is returned when engine configuration is unusable.
	ErrInvalidConfig = errors.New("notify: invalid configuration")
)
