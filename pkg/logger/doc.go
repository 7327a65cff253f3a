// Package logger provides a context-aware wrapper around Go's slog package
// adding functional options for configuration, helper attribute constructors,
// and transparent injection of values stored in context.Context.
//
// The single factory New creates a *slog.Logger configured by Option
// functions: output format (text or json), minimum level, static attributes
// applied to every record, and ContextExtractor callbacks that pull
// attributes out of the context on every Handle call.
//
// Helper constructors such as UserID, NotificationID, Channel and Error keep
// attribute naming consistent across the engine:
//
//	log := logger.New(logger.WithDevelopment("notify"))
//	log.InfoContext(ctx, "notification dispatched",
//	    logger.NotificationID(n.ID),
//	    logger.UserID(n.UserID),
//	)
//
// Error and Errors produce attributes only when the supplied error is
// non-nil, so they can be passed unconditionally.
package logger
