package venice

import (
	"net/http"
	"time"

	"github.com/petal-labs/venice-go/core"
)

// DefaultBaseURL is the production Venice API root.
const DefaultBaseURL = "https://api.venice.ai/api/v1"

// Defaults applied by New when the corresponding option is not set.
const (
	DefaultTimeout           = 30 * time.Second
	DefaultMaxConcurrent     = 5
	DefaultRequestsPerMinute = 60
)

// Config holds client configuration. It is fixed at construction; endpoint
// methods never mutate it.
type Config struct {
	// APIKey is the bearer credential (required).
	APIKey core.Secret

	// BaseURL is the API root. Defaults to DefaultBaseURL.
	BaseURL string

	// Timeout bounds a single attempt's network wait, not the cumulative
	// retry sequence. Defaults to DefaultTimeout. For streaming requests it
	// bounds stream setup only, never the lifetime of the stream.
	Timeout time.Duration

	// MaxConcurrent caps in-flight requests. Defaults to
	// DefaultMaxConcurrent; 0 or less disables the cap.
	MaxConcurrent int

	// RequestsPerMinute caps dispatches within any rolling 60-second
	// window. Defaults to DefaultRequestsPerMinute; 0 or less disables it.
	RequestsPerMinute int

	// Retry is the retry policy. Defaults to core.DefaultRetryPolicy.
	Retry core.RetryPolicy

	// Middleware is the initial middleware list, run in order.
	Middleware []core.Middleware

	// Observer receives request/response lifecycle events.
	Observer core.Observer

	// Logger receives SDK diagnostics, gated by LogLevel.
	Logger core.Logger

	// LogLevel controls diagnostic verbosity. Defaults to core.LogNone.
	LogLevel core.LogLevel

	// HTTPClient issues the requests. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Headers are extra headers added to every request.
	Headers http.Header
}

// Option configures the client.
type Option func(*Config)

// WithBaseURL sets the API root.
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithMaxConcurrent sets the in-flight request ceiling.
func WithMaxConcurrent(n int) Option {
	return func(c *Config) {
		c.MaxConcurrent = n
	}
}

// WithRequestsPerMinute sets the rolling per-minute dispatch ceiling.
func WithRequestsPerMinute(n int) Option {
	return func(c *Config) {
		c.RequestsPerMinute = n
	}
}

// WithRetryPolicy sets the retry policy.
func WithRetryPolicy(p core.RetryPolicy) Option {
	return func(c *Config) {
		if p != nil {
			c.Retry = p
		}
	}
}

// WithMiddleware appends middleware stages, run in the order added.
func WithMiddleware(ms ...core.Middleware) Option {
	return func(c *Config) {
		c.Middleware = append(c.Middleware, ms...)
	}
}

// WithObserver sets the lifecycle event observer.
func WithObserver(o core.Observer) Option {
	return func(c *Config) {
		if o != nil {
			c.Observer = o
		}
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(l core.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithLogLevel sets the diagnostics verbosity.
func WithLogLevel(level core.LogLevel) Option {
	return func(c *Config) {
		c.LogLevel = level
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Config) {
		if hc != nil {
			c.HTTPClient = hc
		}
	}
}

// WithHeader adds an extra header to every request.
func WithHeader(key, value string) Option {
	return func(c *Config) {
		if c.Headers == nil {
			c.Headers = make(http.Header)
		}
		c.Headers.Set(key, value)
	}
}
