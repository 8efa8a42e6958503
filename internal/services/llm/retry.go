package llm

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/flashback/internal/common"
)

// RetryConfig defines retry behavior for model calls. Callers attempt an
// operation up to MaxAttempts times total, waiting Backoff(attempt) between
// failures.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts before giving up (default: 3)
	MaxAttempts int

	// InitialBackoff is the wait before the second attempt (default: 2s)
	InitialBackoff time.Duration

	// MaxBackoff is the maximum wait between attempts (default: 90s)
	MaxBackoff time.Duration

	// BackoffMultiplier is applied to the backoff on each retry (default: 2.0)
	BackoffMultiplier float64
}

const (
	DefaultMaxAttempts       = 3
	DefaultInitialBackoff    = 2 * time.Second
	DefaultMaxBackoff        = 90 * time.Second
	DefaultBackoffMultiplier = 2.0
)

// NewDefaultRetryConfig returns a RetryConfig with the default attempt and
// backoff settings.
func NewDefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       DefaultMaxAttempts,
		InitialBackoff:    DefaultInitialBackoff,
		MaxBackoff:        DefaultMaxBackoff,
		BackoffMultiplier: DefaultBackoffMultiplier,
	}
}

// NewRetryConfig builds a RetryConfig from application configuration,
// falling back to defaults for any unset value.
func NewRetryConfig(cfg *common.LLMConfig) *RetryConfig {
	rc := NewDefaultRetryConfig()
	if cfg == nil {
		return rc
	}
	if cfg.MaxAttempts > 0 {
		rc.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.InitialBackoff != "" {
		if d, err := time.ParseDuration(cfg.InitialBackoff); err == nil && d > 0 {
			rc.InitialBackoff = d
		}
	}
	if cfg.BackoffMultiplier > 1 {
		rc.BackoffMultiplier = cfg.BackoffMultiplier
	}
	return rc
}

// IsRateLimitError checks if an error is a provider rate limit error.
// Matches 429 status codes and RESOURCE_EXHAUSTED errors.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "RESOURCE_EXHAUSTED") ||
		strings.Contains(errStr, "quota")
}

// retryDelayRegex matches "Please retry in Xs" or "retryDelay:Xs" patterns
var retryDelayRegex = regexp.MustCompile(`(?i)(?:Please retry in |retryDelay[:\s]+)(\d+(?:\.\d+)?)\s*s`)

// ExtractRetryDelay parses the API-suggested retry delay from a rate limit
// error message. Returns 0 if no delay is found.
//
// Example error message:
// "Error 429, Message: ... Please retry in 45.387061394s., Status: RESOURCE_EXHAUSTED"
func ExtractRetryDelay(err error) time.Duration {
	if err == nil {
		return 0
	}

	matches := retryDelayRegex.FindStringSubmatch(err.Error())
	if len(matches) < 2 {
		return 0
	}

	seconds, parseErr := strconv.ParseFloat(matches[1], 64)
	if parseErr != nil {
		return 0
	}

	return time.Duration(seconds * float64(time.Second))
}

// Backoff computes the wait before the next attempt. attempt is zero-based:
// Backoff(0) is the wait after the first failure. When apiDelay > 0 (from
// ExtractRetryDelay) it overrides the exponential schedule. The result is
// capped at MaxBackoff.
func (c *RetryConfig) Backoff(attempt int, apiDelay time.Duration) time.Duration {
	if apiDelay > 0 {
		// Use API-provided delay plus small buffer
		delay := apiDelay + 5*time.Second
		if delay > c.MaxBackoff {
			delay = c.MaxBackoff
		}
		return delay
	}

	backoff := c.InitialBackoff
	for i := 0; i < attempt; i++ {
		backoff = time.Duration(float64(backoff) * c.BackoffMultiplier)
	}
	if backoff > c.MaxBackoff {
		backoff = c.MaxBackoff
	}
	return backoff
}
