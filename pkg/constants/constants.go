// Package constants provides shared constants used throughout the ttsync
// codebase. This includes timeouts, retry policy defaults, pacing delays,
// and other configuration values that should be consistent across the
// application.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultFetchTimeout is the per-request timeout against the upstream catalog
	DefaultFetchTimeout = 30 * time.Second

	// DefaultTimeout is the standard timeout for general operations
	DefaultTimeout = 10 * time.Second

	// ServerShutdownTimeout bounds graceful HTTP server shutdown
	ServerShutdownTimeout = 5 * time.Second
)

// Retry constants define the upstream retry policy.
// A transient failure is retried with an exponentially increasing delay:
// base, 2*base, 4*base, ...
const (
	// MaxRetries is the maximum number of attempts for one logical fetch
	MaxRetries = 3

	// RetryBaseDelay is the delay before the first retry
	RetryBaseDelay = 2 * time.Second

	// RetryMultiplier doubles the delay on each subsequent attempt
	RetryMultiplier = 2
)

// Pacing constants. Pacing is applied by the orchestrator between units of
// work, never by the upstream client itself.
const (
	// UnitPacingDelay is the delay between consecutive profile fetches
	UnitPacingDelay = 300 * time.Millisecond

	// OrganizationPacingDelay is the delay between consecutive clubs
	OrganizationPacingDelay = 1 * time.Second

	// ErrorPacingDelay is the extra delay after a failed unit, easing off a
	// struggling upstream
	ErrorPacingDelay = 2 * time.Second
)

// Task constants
const (
	// TaskLogCap is the maximum number of log entries retained per task
	TaskLogCap = 1000

	// DefaultHistoryLimit is the default number of ledger rows returned by
	// history queries
	DefaultHistoryLimit = 20

	// MaxHistoryLimit is the maximum allowed history page size
	MaxHistoryLimit = 100
)

// Cache constants
const (
	// CacheTTL is the default time-to-live for cached read responses
	CacheTTL = 5 * time.Minute

	// CacheCleanupInterval is how often to clean expired cache entries
	CacheCleanupInterval = 10 * time.Minute
)

// Limit constants
const (
	// DefaultPageSize is the default number of items per page for paginated results
	DefaultPageSize = 100

	// MaxPageSize is the maximum allowed page size for paginated results
	MaxPageSize = 1000
)
