package notify

import (
	"fmt"
	"time"
)

// Config holds the engine configuration.
// All values can be loaded from the environment via pkg/config.
type Config struct {
	// MaxBatchSize caps the number of users a single fan-out may target.
	MaxBatchSize int `env:"NOTIFY_MAX_BATCH_SIZE" envDefault:"500"`

	// DefaultRetryCount is the per-notification retry budget when the caller
	// does not specify one.
	DefaultRetryCount int `env:"NOTIFY_DEFAULT_RETRY_COUNT" envDefault:"3"`

	// RetryDelay is the base delay for exponential backoff between delivery
	// attempts: delay = RetryDelay * 2^retryCount.
	RetryDelay time.Duration `env:"NOTIFY_RETRY_DELAY" envDefault:"1s"`

	// Channel switches. A disabled channel records a failed delivery result
	// without attempting a send.
	EnableRealtime bool `env:"NOTIFY_ENABLE_REALTIME" envDefault:"true"`
	EnableEmail    bool `env:"NOTIFY_ENABLE_EMAIL" envDefault:"true"`
	EnablePush     bool `env:"NOTIFY_ENABLE_PUSH" envDefault:"false"`

	// QuietHoursEnabled defers delivery inside a user's quiet-hours window.
	QuietHoursEnabled bool `env:"NOTIFY_QUIET_HOURS_ENABLED" envDefault:"true"`

	// Rate limiting of notification creation per user (fixed window).
	RateLimitEnabled bool          `env:"NOTIFY_RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitPerUser int           `env:"NOTIFY_RATE_LIMIT_PER_USER" envDefault:"60"`
	RateLimitWindow  time.Duration `env:"NOTIFY_RATE_LIMIT_WINDOW" envDefault:"1m"`

	// DefaultExpiration is applied when the caller gives no expiry.
	DefaultExpiration time.Duration `env:"NOTIFY_DEFAULT_EXPIRATION" envDefault:"168h"`

	// Scheduler settings. EnableScheduling gates the periodic scan inside
	// Dispatcher.Run; the ProcessScheduled entry point itself stays callable
	// either way for external cron triggers.
	EnableScheduling  bool          `env:"NOTIFY_ENABLE_SCHEDULING" envDefault:"true"`
	SchedulerInterval time.Duration `env:"NOTIFY_SCHEDULER_INTERVAL" envDefault:"30s"`
	ScanBatchSize     int           `env:"NOTIFY_SCAN_BATCH_SIZE" envDefault:"100"`

	// DispatchQueueSize bounds the fire-and-forget queue feeding immediate
	// dispatch after create.
	DispatchQueueSize int `env:"NOTIFY_DISPATCH_QUEUE_SIZE" envDefault:"256"`

	// Cache freshness bounds for read-through caches.
	StatsCacheTTL      time.Duration `env:"NOTIFY_STATS_CACHE_TTL" envDefault:"30s"`
	PreferenceCacheTTL time.Duration `env:"NOTIFY_PREFERENCE_CACHE_TTL" envDefault:"1m"`
}

// DefaultConfig returns the configuration used when nothing is set in the
// environment. Mirrors the envDefault tags.
func DefaultConfig() Config {
	return Config{
		MaxBatchSize:       500,
		DefaultRetryCount:  3,
		RetryDelay:         time.Second,
		EnableRealtime:     true,
		EnableEmail:        true,
		EnablePush:         false,
		QuietHoursEnabled:  true,
		RateLimitEnabled:   true,
		RateLimitPerUser:   60,
		RateLimitWindow:    time.Minute,
		DefaultExpiration:  168 * time.Hour,
		EnableScheduling:   true,
		SchedulerInterval:  30 * time.Second,
		ScanBatchSize:      100,
		DispatchQueueSize:  256,
		StatsCacheTTL:      30 * time.Second,
		PreferenceCacheTTL: time.Minute,
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c Config) Validate() error {
	if c.MaxBatchSize <= 0 {
		return fmt.Errorf("%w: MaxBatchSize must be positive, got %d", ErrInvalidConfig, c.MaxBatchSize)
	}
	if c.DefaultRetryCount < 0 {
		return fmt.Errorf("%w: DefaultRetryCount must not be negative, got %d", ErrInvalidConfig, c.DefaultRetryCount)
	}
	if c.RetryDelay <= 0 {
		return fmt.Errorf("%w: RetryDelay must be positive, got %v", ErrInvalidConfig, c.RetryDelay)
	}
	if c.RateLimitEnabled && (c.RateLimitPerUser <= 0 || c.RateLimitWindow <= 0) {
		return fmt.Errorf("%w: rate limiting enabled with non-positive limit or window", ErrInvalidConfig)
	}
	if c.ScanBatchSize <= 0 {
		return fmt.Errorf("%w: ScanBatchSize must be positive, got %d", ErrInvalidConfig, c.ScanBatchSize)
	}
	return nil
}

// channelEnabled reports whether a channel is switched on at the engine level.
func (c Config) channelEnabled(ch Channel) bool {
	switch ch {
	case ChannelRealtime:
		return c.EnableRealtime
	case ChannelEmail:
		return c.EnableEmail
	case ChannelPush:
		return c.EnablePush
	}
	return false
}
