package core

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy determines retry behavior for failed requests.
type RetryPolicy interface {
	// NextDelay returns the delay before the next retry attempt and whether
	// to retry at all. attempt starts at 0 for the first retry after the
	// initial failure.
	NextDelay(attempt int, err error) (delay time.Duration, ok bool)
}

// RetryConfig configures the exponential backoff policy.
type RetryConfig struct {
	MaxRetries int           // Retries after the first failure; 0 disables retries
	BaseDelay  time.Duration // Delay before the first retry (default: 1s)
	MaxDelay   time.Duration // Cap on the computed delay (default: 30s)
	Multiplier float64       // Backoff growth factor (default: 2)
	Jitter     float64       // Jitter fraction 0.0-1.0 (default: 0.2); 0 disables
}

// DefaultRetryPolicy returns the policy used when none is configured:
// 3 retries, 1s base delay doubling per attempt, 20% jitter, 30s cap.
func DefaultRetryPolicy() RetryPolicy {
	return NewRetryPolicy(RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2,
		Jitter:     0.2,
	})
}

// NewRetryPolicy creates a retry policy with the given configuration.
// Zero delay and multiplier values fall back to defaults; MaxRetries 0
// means no retries and Jitter 0 disables jitter.
func NewRetryPolicy(cfg RetryConfig) RetryPolicy {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2
	}
	if cfg.Jitter < 0 || cfg.Jitter > 1 {
		cfg.Jitter = 0.2
	}
	return &exponentialBackoff{cfg: cfg}
}

type exponentialBackoff struct {
	cfg RetryConfig
}

func (e *exponentialBackoff) NextDelay(attempt int, err error) (time.Duration, bool) {
	if attempt >= e.cfg.MaxRetries {
		return 0, false
	}
	if !retryable(err) {
		return 0, false
	}

	// A rate-limited response with a Retry-After hint overrides the
	// computed backoff for the next attempt.
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Kind == KindRateLimited && apiErr.RetryAfter > 0 {
		return apiErr.RetryAfter, true
	}

	delay := float64(e.cfg.BaseDelay) * math.Pow(e.cfg.Multiplier, float64(attempt))

	if e.cfg.Jitter > 0 {
		span := delay * e.cfg.Jitter
		delay += (rand.Float64()*2 - 1) * span
	}

	if delay > float64(e.cfg.MaxDelay) {
		delay = float64(e.cfg.MaxDelay)
	}
	if delay < 0 {
		delay = 0
	}

	return time.Duration(delay), true
}

// retryable reports whether err warrants another attempt.
func retryable(err error) bool {
	if err == nil {
		return false
	}

	// An explicit abort always wins, even over a retryable status.
	if errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		switch apiErr.Kind {
		case KindRateLimited, KindTransient:
			return true
		case KindUnknown:
			return retryableStatus(apiErr.Status)
		}
		return false
	}

	// A single-attempt timeout is retryable; the attempt deadline expired,
	// not the caller's.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	return false
}

// retryableStatus reports whether an HTTP status warrants a retry:
// request timeout, rate limiting, and upstream server failures.
func retryableStatus(status int) bool {
	switch status {
	case 408, 429, 500, 502, 503, 504:
		return true
	}
	return false
}
