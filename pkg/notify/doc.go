// Package notify is the notification delivery engine: templated message
// creation, per-user delivery preferences with quiet hours, fixed-window
// rate limiting, a lifecycle state machine with scheduled retry, pluggable
// delivery channels, and batch fan-out.
//
// # Architecture
//
// Four cooperating components drive a notification from creation to
// delivery:
//
//   - Manager owns the lifecycle: Create runs target validation, template
//     rendering, rate limiting and preference resolution, then persists the
//     notification and hands it to the dispatch queue. It also serves
//     listing, stats, read receipts and the template/preference admin
//     surfaces.
//
//   - Dispatcher drives delivery: per-channel concurrent fan-out with joined
//     results, quiet-hours deferral, lazy expiry, and the periodic scan that
//     retries failed notifications with exponential backoff.
//
//   - ChannelRegistry maps delivery media to ChannelSender implementations:
//     realtime (broadcast topics), email (Postmark transport), push (stub).
//
//   - BatchCoordinator fans one payload out to many users with all-settled
//     semantics and aggregates the outcome onto a Batch record.
//
// Storage is abstracted behind per-aggregate store interfaces with two
// implementations each: in-memory for development and tests, Postgres for
// production.
//
// # Usage
//
//	cfg := notify.DefaultConfig()
//
//	store := notify.NewMemoryNotificationStore()
//	templates := notify.NewMemoryTemplateStore()
//	prefs := notify.NewMemoryPreferenceStore()
//	batches := notify.NewMemoryBatchStore()
//	users := notify.NewMemoryUserStore(hostUsers...)
//
//	registry := notify.NewChannelRegistry()
//	registry.Register(notify.NewRealtimeChannel(broadcaster))
//	registry.Register(notify.NewEmailChannel(mailSender))
//	registry.Register(notify.NewPushChannel())
//
//	limiter, err := notify.NewRateLimiter(
//		notify.NewMemoryRateLimitStore(), cfg.RateLimitPerUser, cfg.RateLimitWindow)
//	if err != nil {
//		panic(err)
//	}
//
//	resolver := notify.NewResolver(prefs,
//		notify.WithPreferenceCacheTTL(cfg.PreferenceCacheTTL))
//
//	dispatcher, err := notify.NewDispatcher(store, users, resolver, registry, cfg)
//	if err != nil {
//		panic(err)
//	}
//
//	manager, err := notify.NewManager(store, templates, prefs, users, cfg,
//		notify.WithResolver(resolver),
//		notify.WithRateLimiter(limiter),
//		notify.WithEnqueuer(dispatcher))
//	if err != nil {
//		panic(err)
//	}
//
//	go dispatcher.Run(ctx)
//
//	n, err := manager.Create(ctx, notify.CreateInput{
//		UserID:   "user-1",
//		Type:     "activity.milestone",
//		Category: notify.CategoryActivity,
//		Title:    "100km this month!",
//		Content:  "You just crossed 100km of running this month.",
//	})
//
// For production, swap the memory stores for their Postgres counterparts
// over a pkg/pg pool and the memory rate-limit store for the Redis one.
package notify
